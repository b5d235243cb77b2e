package repository

import "context"

// Store exposes the repository for each aggregate root.
type Store interface {
	Users() UserRepository
	Profiles() ProfileRepository
	PasswordResets() PasswordResetRepository
	LoginLogs() LoginLogRepository
	Categories() CategoryRepository
	Shops() ShopRepository
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Tracking() TrackingRepository
	Vehicles() VehicleRepository
	DriverLicenses() DriverLicenseRepository
	Transactions() TransactionRepository
	Recipients() TransferRecipientRepository
	DVAs() DVARepository
	WebhookEvents() WebhookEventRepository
	Notifications() NotificationRepository
	PhoneVerifications() PhoneVerificationRepository
	HelpRequests() HelpRequestRepository
	FAQs() FAQRepository
}

// UserRepository defines account and wallet data access.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) error
	UpdateLastLogin(ctx context.Context, id int64, at int64) error
	SetPhoneVerified(ctx context.Context, phone string, at int64) error
	// AdjustBalance applies deltaKobo to the wallet. A debit that would
	// take the balance negative is refused and reports false.
	AdjustBalance(ctx context.Context, userID int64, deltaKobo int64) (bool, error)
	Balance(ctx context.Context, userID int64) (int64, error)
	// ListActiveCourierIDs returns couriers that are active, approved and
	// currently marked available, the candidate pool for order offers.
	ListActiveCourierIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
	CountByType(ctx context.Context, userType string) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// ProfileRepository stores customer and courier profile rows.
type ProfileRepository interface {
	UserProfileByUser(ctx context.Context, userID int64) (*UserProfile, error)
	CourierProfileByUser(ctx context.Context, userID int64) (*CourierProfile, error)
	CreateUserProfile(ctx context.Context, profile *UserProfile) (*UserProfile, error)
	CreateCourierProfile(ctx context.Context, profile *CourierProfile) (*CourierProfile, error)
	SaveUserProfile(ctx context.Context, profile *UserProfile) error
	SaveCourierProfile(ctx context.Context, profile *CourierProfile) error
	SetCourierAvailability(ctx context.Context, userID int64, available bool, at int64) error
}

// PasswordResetRepository manages single-use password reset tokens.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) (*PasswordResetToken, error)
	FindByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	MarkUsed(ctx context.Context, id int64, at int64) error
	InvalidateUnusedForUser(ctx context.Context, userID int64) (int64, error)
	CountRecentForUser(ctx context.Context, userID int64, since int64) (int64, error)
	DeleteExpired(ctx context.Context, before int64) (int64, error)
}

// LoginLogRepository records authentication attempts.
type LoginLogRepository interface {
	Create(ctx context.Context, entry *LoginLog) error
	ListRecent(ctx context.Context, limit int) ([]*LoginLog, error)
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// CategoryRepository manages product categories.
type CategoryRepository interface {
	ListActive(ctx context.Context) ([]*Category, error)
	FindByID(ctx context.Context, id int64) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	Create(ctx context.Context, category *Category) (*Category, error)
	Save(ctx context.Context, category *Category) error
}

// ShopRepository manages marketplace storefronts.
type ShopRepository interface {
	List(ctx context.Context, filter ShopFilter) ([]*Shop, error)
	Count(ctx context.Context, filter ShopFilter) (int64, error)
	FindByID(ctx context.Context, id int64) (*Shop, error)
	FindBySlug(ctx context.Context, slug string) (*Shop, error)
	Create(ctx context.Context, shop *Shop) (*Shop, error)
	Save(ctx context.Context, shop *Shop) error
}

// ProductRepository manages marketplace products.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)
	Count(ctx context.Context, filter ProductFilter) (int64, error)
	FindByID(ctx context.Context, id int64) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	Create(ctx context.Context, product *Product) (*Product, error)
	Save(ctx context.Context, product *Product) error
}

// CartRepository manages carts and their items.
type CartRepository interface {
	FindByUser(ctx context.Context, userID int64) (*Cart, error)
	Create(ctx context.Context, userID int64) (*Cart, error)
	Items(ctx context.Context, cartID int64) ([]*CartItem, error)
	// Lines joins items with the product columns checkout needs.
	Lines(ctx context.Context, cartID int64) ([]*CartLine, error)
	// UpsertItem adds quantity to an existing line or inserts a new one.
	UpsertItem(ctx context.Context, cartID, productID, quantity int64) (*CartItem, error)
	SetItemQuantity(ctx context.Context, cartID, itemID, quantity int64) (bool, error)
	DeleteItem(ctx context.Context, cartID, itemID int64) (bool, error)
	Clear(ctx context.Context, cartID int64) error
	// DeleteStale removes carts (and their items) untouched since the cutoff.
	DeleteStale(ctx context.Context, before int64) (int64, error)
}

// OrderRepository manages delivery orders and courier offers.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) (*Order, error)
	// CreateFromCart atomically creates the order, decrements product
	// stock for every line and empties the cart. Stock short of any
	// requested quantity fails the whole checkout.
	CreateFromCart(ctx context.Context, order *Order, cartID int64, lines []*CartLine) (*Order, error)
	FindByID(ctx context.Context, id int64) (*Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByTracking(ctx context.Context, trackingNumber string) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)
	Count(ctx context.Context, filter OrderFilter) (int64, error)
	Save(ctx context.Context, order *Order) error
	SetPaymentStatus(ctx context.Context, orderID int64, status string, at int64) error
	// Accept assigns the order to the courier. The update is conditional
	// on the order still being AVAILABLE and unassigned; it reports false
	// when another courier won the race.
	Accept(ctx context.Context, orderID, courierID int64, at int64) (bool, error)
	OfferToCouriers(ctx context.Context, orderID int64, courierIDs []int64, expiresAt int64) error
	OfferedCourierIDs(ctx context.Context, orderID int64) ([]int64, error)
	// HasOffer reports whether the courier holds an unexpired offer.
	HasOffer(ctx context.Context, orderID, courierID int64) (bool, error)
	RemoveOffer(ctx context.Context, orderID, courierID int64) error
	ClearOffers(ctx context.Context, orderID int64) error
	// ListAvailableForCourier returns AVAILABLE unassigned orders whose
	// offer to this courier has not expired.
	ListAvailableForCourier(ctx context.Context, courierID int64, limit int) ([]*Order, error)
	ListWithExpiredOffers(ctx context.Context, nowUnix int64, limit int) ([]*Order, error)
	StatusCountsForSender(ctx context.Context, senderID int64) (map[string]int64, error)
	StatusCountsForCourier(ctx context.Context, courierID int64) (map[string]int64, error)
}

// TrackingRepository appends and reads order tracking history.
type TrackingRepository interface {
	Append(ctx context.Context, entry *TrackingEntry) (*TrackingEntry, error)
	ListForOrder(ctx context.Context, orderID int64, limit int) ([]*TrackingEntry, error)
}

// VehicleRepository manages courier vehicles.
type VehicleRepository interface {
	List(ctx context.Context, filter VehicleFilter) ([]*Vehicle, error)
	FindByID(ctx context.Context, id int64) (*Vehicle, error)
	FindByPlate(ctx context.Context, plate string) (*Vehicle, error)
	Create(ctx context.Context, vehicle *Vehicle) (*Vehicle, error)
	Save(ctx context.Context, vehicle *Vehicle) error
	SetActive(ctx context.Context, id int64, active bool, at int64) error
}

// DriverLicenseRepository stores one licence record per courier.
type DriverLicenseRepository interface {
	FindByCourier(ctx context.Context, courierID int64) (*DriverLicense, error)
	Upsert(ctx context.Context, license *DriverLicense) (*DriverLicense, error)
}

// TransactionRepository manages wallet transactions.
type TransactionRepository interface {
	Create(ctx context.Context, txn *Transaction) (*Transaction, error)
	FindByID(ctx context.Context, id int64) (*Transaction, error)
	FindByReference(ctx context.Context, reference string) (*Transaction, error)
	FindByProviderReference(ctx context.Context, reference string) (*Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
	Save(ctx context.Context, txn *Transaction) error
	// MarkSuccessAndCredit flips a pending transaction to SUCCESS and
	// credits the net amount to the wallet in one database transaction.
	// Reports false when the row was already settled.
	MarkSuccessAndCredit(ctx context.Context, txnID int64, completedAt int64) (bool, error)
	MarkStatus(ctx context.Context, txnID int64, status string, completedAt int64) (bool, error)
	// MarkFailedAndRefund flips a pending withdrawal to FAILED and
	// returns the debited amount to the wallet.
	MarkFailedAndRefund(ctx context.Context, txnID int64, completedAt int64) (bool, error)
	// MarkReversedAndRefund flips a settled withdrawal to REVERSED and
	// returns the debited amount to the wallet.
	MarkReversedAndRefund(ctx context.Context, txnID int64, completedAt int64) (bool, error)
}

// TransferRecipientRepository stores saved payout destinations.
type TransferRecipientRepository interface {
	Create(ctx context.Context, recipient *TransferRecipient) (*TransferRecipient, error)
	ListForUser(ctx context.Context, userID int64) ([]*TransferRecipient, error)
	FindByID(ctx context.Context, id int64) (*TransferRecipient, error)
	FindByCode(ctx context.Context, code string) (*TransferRecipient, error)
	Save(ctx context.Context, recipient *TransferRecipient) error
}

// DVARepository stores dedicated virtual accounts, one per user.
type DVARepository interface {
	FindByUser(ctx context.Context, userID int64) (*DedicatedVirtualAccount, error)
	FindByAccountNumber(ctx context.Context, accountNumber string) (*DedicatedVirtualAccount, error)
	Create(ctx context.Context, account *DedicatedVirtualAccount) (*DedicatedVirtualAccount, error)
}

// WebhookEventRepository stores provider events for idempotent handling.
type WebhookEventRepository interface {
	// Create persists the event. A repeated dedupe key returns ErrDuplicate.
	Create(ctx context.Context, event *WebhookEvent) (*WebhookEvent, error)
	FindByDedupeKey(ctx context.Context, dedupeKey string) (*WebhookEvent, error)
	// MarkProcessed finalizes a successfully applied event; MarkFailed
	// records the error and leaves the row open for a provider retry.
	MarkProcessed(ctx context.Context, id int64, at int64) error
	MarkFailed(ctx context.Context, id int64, at int64, message string) error
}

// NotificationRepository manages user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) (*Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]*Notification, error)
	Count(ctx context.Context, filter NotificationFilter) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	FindByID(ctx context.Context, id int64) (*Notification, error)
	MarkRead(ctx context.Context, id, userID int64, at int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64, at int64) (int64, error)
}

// PhoneVerificationRepository tracks OTP sessions.
type PhoneVerificationRepository interface {
	Create(ctx context.Context, verification *PhoneVerification) (*PhoneVerification, error)
	LatestForPhone(ctx context.Context, phone string) (*PhoneVerification, error)
	LatestActiveForPhone(ctx context.Context, phone string) (*PhoneVerification, error)
	DeactivateForPhone(ctx context.Context, phone string) (int64, error)
	// IncrementAttempts bumps the attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, id int64) (int64, error)
	MarkVerified(ctx context.Context, id int64, at int64) error
	DeleteExpired(ctx context.Context, before int64) (int64, error)
}

// HelpRequestRepository manages support tickets.
type HelpRequestRepository interface {
	Create(ctx context.Context, request *HelpRequest) (*HelpRequest, error)
	FindByID(ctx context.Context, id int64) (*HelpRequest, error)
	List(ctx context.Context, filter HelpRequestFilter) ([]*HelpRequest, error)
	Count(ctx context.Context, filter HelpRequestFilter) (int64, error)
	Save(ctx context.Context, request *HelpRequest) error
	SetWorkflow(ctx context.Context, id int64, triggered bool, workflowID *string) error
	SetStatus(ctx context.Context, id int64, status string, at int64) error
}

// FAQRepository serves published FAQ entries.
type FAQRepository interface {
	ListActive(ctx context.Context, category *string) ([]*FAQ, error)
	FindByID(ctx context.Context, id int64) (*FAQ, error)
	Create(ctx context.Context, faq *FAQ) (*FAQ, error)
	Save(ctx context.Context, faq *FAQ) error
}
