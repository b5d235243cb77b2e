package repository

import "encoding/json"

// User account types.
const (
	UserTypeCustomer = "USER"
	UserTypeCourier  = "COURIER"
)

// Courier approval states.
const (
	ApprovalPending   = "PENDING"
	ApprovalApproved  = "APPROVED"
	ApprovalRejected  = "REJECTED"
	ApprovalSuspended = "SUSPENDED"
)

// Order lifecycle states.
const (
	OrderPending   = "PENDING"
	OrderAvailable = "AVAILABLE"
	OrderAssigned  = "ASSIGNED"
	OrderAccepted  = "ACCEPTED"
	OrderPickedUp  = "PICKED_UP"
	OrderInTransit = "IN_TRANSIT"
	OrderDelivered = "DELIVERED"
	OrderCancelled = "CANCELLED"
)

// Order payment states.
const (
	OrderPaymentPending = "PENDING"
	OrderPaymentPaid    = "PAID"
	OrderPaymentFailed  = "FAILED"
)

// Wallet transaction types.
const (
	TxnDeposit    = "DEPOSIT"
	TxnWithdrawal = "WITHDRAWAL"
	TxnPayment    = "PAYMENT"
	TxnRefund     = "REFUND"
)

// Wallet transaction states.
const (
	TxnPending    = "PENDING"
	TxnProcessing = "PROCESSING"
	TxnSuccess    = "SUCCESS"
	TxnFailed     = "FAILED"
	TxnReversed   = "REVERSED"
)

// Notification types recorded against wallet and order activity.
const (
	NotifyTransactionSuccess = "TRANSACTION_SUCCESS"
	NotifyTransactionFailed  = "TRANSACTION_FAILED"
	NotifyDepositReceived    = "DEPOSIT_RECEIVED"
	NotifyWithdrawalSuccess  = "WITHDRAWAL_SUCCESS"
	NotifyWithdrawalFailed   = "WITHDRAWAL_FAILED"
	NotifyWithdrawalReversed = "WITHDRAWAL_REVERSED"
	NotifyDVACreated         = "DVA_CREATED"
	NotifyBalanceLow         = "BALANCE_LOW"
	NotifyTransferPending    = "TRANSFER_PENDING"
	NotifyOther              = "OTHER"
)

// Help request lifecycle states.
const (
	HelpPending    = "PENDING"
	HelpInProgress = "IN_PROGRESS"
	HelpResolved   = "RESOLVED"
	HelpClosed     = "CLOSED"
)

// User represents an account row shared by customers and couriers.
// Wallet balance lives here so credits and debits are single-row updates.
type User struct {
	ID            int64
	Email         string
	Password      string
	PhoneNumber   string
	UserType      string
	BalanceKobo   int64
	IsActive      bool
	IsStaff       bool
	PhoneVerified bool
	LastLoginAt   *int64
	CreatedAt     int64
	UpdatedAt     int64
}

// UserProfile holds customer-facing identity fields.
type UserProfile struct {
	ID              int64
	UserID          int64
	FullName        string
	Address         *string
	ProfileImageURL *string
	CreatedAt       int64
	UpdatedAt       int64
}

// CourierProfile holds courier identity, bank and approval data.
type CourierProfile struct {
	ID                  int64
	UserID              int64
	FullName            string
	LicenseNumber       *string
	VehicleType         *string
	VehicleRegistration *string
	IsAvailable         bool
	CurrentLocation     json.RawMessage
	Address             *string
	ProfileImageURL     *string
	BVN                 *string
	BankAccountNumber   *string
	BankCode            *string
	BankName            *string
	AccountName         *string
	ApprovalStatus      string
	ApprovalNotes       *string
	ApprovedAt          *int64
	ApprovedByID        *int64
	CreatedAt           int64
	UpdatedAt           int64
}

// PasswordResetToken stores a hashed single-use reset token.
type PasswordResetToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt int64
	UsedAt    *int64
	CreatedAt int64
}

// LoginLog records authentication attempts for auditing.
type LoginLog struct {
	ID        int64
	UserID    *int64
	Email     string
	IP        string
	UserAgent string
	Success   bool
	Reason    *string
	CreatedAt int64
}

// Category groups marketplace products.
type Category struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	IconURL     *string
	IsFeatured  bool
	IsActive    bool
	CreatedAt   int64
	UpdatedAt   int64
}

// Shop represents a marketplace vendor storefront.
type Shop struct {
	ID            int64
	Name          string
	Slug          string
	Description   string
	OwnerName     string
	LogoURL       *string
	CoverImageURL *string
	Address       string
	PhoneNumber   string
	Email         string
	Rating        float64
	TotalSales    int64
	IsVerified    bool
	IsActive      bool
	CreatedAt     int64
	UpdatedAt     int64
}

// Product is a purchasable marketplace item.
type Product struct {
	ID                 int64
	ShopID             int64
	CategoryID         int64
	Name               string
	Slug               string
	Description        string
	ShortDescription   string
	SKU                string
	PriceKobo          int64
	CompareAtPriceKobo *int64
	StockQuantity      int64
	PrimaryImageURL    *string
	Images             []string
	WeightKG           float64
	Dimensions         string
	IsAvailable        bool
	IsFeatured         bool
	Rating             float64
	TotalSales         int64
	Metadata           json.RawMessage
	CreatedAt          int64
	UpdatedAt          int64
}

// Cart is a per-user shopping cart. One cart per user.
type Cart struct {
	ID        int64
	UserID    int64
	CreatedAt int64
	UpdatedAt int64
}

// CartItem is a product line inside a cart, unique per cart+product.
type CartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int64
	CreatedAt int64
	UpdatedAt int64
}

// CartLine joins a cart item with the product columns checkout needs.
type CartLine struct {
	ItemID        int64
	ProductID     int64
	ShopID        int64
	Name          string
	UnitPriceKobo int64
	Quantity      int64
	StockQuantity int64
	IsAvailable   bool
}

// Order captures a delivery request from creation through completion.
type Order struct {
	ID                        int64
	OrderNumber               string
	TrackingNumber            string
	SenderID                  int64
	AssignedCourierID         *int64
	PickupAddress             string
	PickupLatitude            *float64
	PickupLongitude           *float64
	DropoffAddress            string
	DropoffLatitude           *float64
	DropoffLongitude          *float64
	RecipientName             string
	RecipientEmail            *string
	RecipientPhone            string
	RecipientAlternatePhone   *string
	DeliveryInstructions      string
	RequireRecipientSignature bool
	ParcelType                string
	ParcelDescription         string
	ParcelCondition           string
	ParcelQuantity            int64
	ParcelWeightKG            float64
	ParcelWorthKobo           int64
	ParcelImages              []string
	DeliveryFeeKobo           int64
	ServiceChargeKobo         int64
	InsuranceFeeKobo          int64
	TotalAmountKobo           int64
	CourierPayoutKobo         int64
	PaymentStatus             string
	Status                    string
	CurrentLocation           string
	EstimatedDeliveryAt       *int64
	OfferExpiresAt            *int64
	PickedUpAt                *int64
	DeliveredAt               *int64
	CancelledAt               *int64
	Metadata                  json.RawMessage
	CreatedAt                 int64
	UpdatedAt                 int64
}

// OrderOffer records that an order was offered to a courier.
type OrderOffer struct {
	ID        int64
	OrderID   int64
	CourierID int64
	ExpiresAt int64
	CreatedAt int64
}

// TrackingEntry records one status or location change for an order.
type TrackingEntry struct {
	ID        int64
	OrderID   int64
	Status    string
	Location  string
	Latitude  *float64
	Longitude *float64
	Notes     string
	CreatedAt int64
}

// Vehicle is a courier-registered delivery vehicle.
type Vehicle struct {
	ID                     int64
	CourierID              int64
	VehicleType            string
	OwnershipCondition     string
	Manufacturer           string
	Model                  string
	YearOfManufacture      int64
	LicensePlate           string
	RegistrationProofURL   *string
	InsuranceProofURL      *string
	RoadWorthinessProofURL *string
	IsActive               bool
	CreatedAt              int64
	UpdatedAt              int64
}

// DriverLicense stores a courier's licence document, one per courier.
type DriverLicense struct {
	ID                     int64
	CourierID              int64
	LicenseNumber          string
	IssueDate              *int64
	ExpiryDate             *int64
	IssuingAuthority       string
	FrontPageURL           *string
	BackPageURL            *string
	VehicleInsuranceURL    *string
	VehicleRegistrationURL *string
	CreatedAt              int64
	UpdatedAt              int64
}

// Transaction records a wallet movement, deposits and withdrawals alike.
type Transaction struct {
	ID                int64
	UserID            int64
	Type              string
	Status            string
	PaymentMethod     string
	AmountKobo        int64
	FeeKobo           int64
	NetAmountKobo     int64
	Reference         string
	ProviderTxnID     *string
	ProviderReference *string
	Description       *string
	Metadata          json.RawMessage
	CompletedAt       *int64
	CreatedAt         int64
	UpdatedAt         int64
}

// DedicatedVirtualAccount is a provider-issued collection account, one per user.
type DedicatedVirtualAccount struct {
	ID            int64
	UserID        int64
	CustomerCode  string
	AccountNumber string
	AccountName   string
	BankName      string
	BankSlug      string
	Currency      string
	CreatedAt     int64
	UpdatedAt     int64
}

// TransferRecipient is a saved payout destination registered with the provider.
type TransferRecipient struct {
	ID            int64
	UserID        int64
	RecipientCode string
	RecipientType string
	Name          string
	AccountNumber string
	BankCode      *string
	BankName      *string
	Currency      string
	IsActive      bool
	CreatedAt     int64
	UpdatedAt     int64
}

// WebhookEvent stores a received provider event for idempotent processing.
type WebhookEvent struct {
	ID          int64
	EventType   string
	Reference   string
	DedupeKey   string
	Payload     json.RawMessage
	Processed   bool
	ProcessedAt *int64
	Error       *string
	CreatedAt   int64
}

// Notification is a user-facing activity record.
type Notification struct {
	ID            int64
	UserID        int64
	Type          string
	Title         string
	Message       string
	IsRead        bool
	TransactionID *int64
	Metadata      json.RawMessage
	ReadAt        *int64
	CreatedAt     int64
	UpdatedAt     int64
}

// PhoneVerification tracks one OTP round-trip for a phone number.
// The provider generates and checks the code; we keep the session id.
type PhoneVerification struct {
	ID          int64
	PhoneNumber string
	ProviderSID string
	Method      string
	ExpiresAt   int64
	Attempts    int64
	MaxAttempts int64
	IsVerified  bool
	IsActive    bool
	VerifiedAt  *int64
	CreatedAt   int64
}

// HelpRequest is a support ticket, possibly anonymous.
type HelpRequest struct {
	ID                int64
	UserID            *int64
	UserEmail         string
	UserName          *string
	PhoneNumber       *string
	Subject           string
	Message           string
	Category          string
	Priority          string
	Status            string
	WorkflowTriggered bool
	WorkflowID        *string
	CreatedAt         int64
	UpdatedAt         int64
}

// FAQ is a published frequently-asked question.
type FAQ struct {
	ID           int64
	Question     string
	Answer       string
	Category     string
	DisplayOrder int64
	IsActive     bool
	CreatedAt    int64
	UpdatedAt    int64
}
