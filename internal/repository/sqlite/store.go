package sqlite

import (
	"database/sql"

	"github.com/xcellar/xcellar/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db                 *sql.DB
	users              repository.UserRepository
	profiles           repository.ProfileRepository
	passwordResets     repository.PasswordResetRepository
	loginLogs          repository.LoginLogRepository
	categories         repository.CategoryRepository
	shops              repository.ShopRepository
	products           repository.ProductRepository
	carts              repository.CartRepository
	orders             repository.OrderRepository
	tracking           repository.TrackingRepository
	vehicles           repository.VehicleRepository
	driverLicenses     repository.DriverLicenseRepository
	transactions       repository.TransactionRepository
	recipients         repository.TransferRecipientRepository
	dvas               repository.DVARepository
	webhookEvents      repository.WebhookEventRepository
	notifications      repository.NotificationRepository
	phoneVerifications repository.PhoneVerificationRepository
	helpRequests       repository.HelpRequestRepository
	faqs               repository.FAQRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                 db,
		users:              &userRepo{db: db},
		profiles:           &profileRepo{db: db},
		passwordResets:     &passwordResetRepo{db: db},
		loginLogs:          &loginLogRepo{db: db},
		categories:         &categoryRepo{db: db},
		shops:              &shopRepo{db: db},
		products:           &productRepo{db: db},
		carts:              &cartRepo{db: db},
		orders:             &orderRepo{db: db},
		tracking:           &trackingRepo{db: db},
		vehicles:           &vehicleRepo{db: db},
		driverLicenses:     &driverLicenseRepo{db: db},
		transactions:       &transactionRepo{db: db},
		recipients:         &recipientRepo{db: db},
		dvas:               &dvaRepo{db: db},
		webhookEvents:      &webhookEventRepo{db: db},
		notifications:      &notificationRepo{db: db},
		phoneVerifications: &phoneVerificationRepo{db: db},
		helpRequests:       &helpRequestRepo{db: db},
		faqs:               &faqRepo{db: db},
	}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Users() repository.UserRepository {
	return s.users
}

func (s *Store) Profiles() repository.ProfileRepository {
	return s.profiles
}

func (s *Store) PasswordResets() repository.PasswordResetRepository {
	return s.passwordResets
}

func (s *Store) LoginLogs() repository.LoginLogRepository {
	return s.loginLogs
}

func (s *Store) Categories() repository.CategoryRepository {
	return s.categories
}

func (s *Store) Shops() repository.ShopRepository {
	return s.shops
}

func (s *Store) Products() repository.ProductRepository {
	return s.products
}

func (s *Store) Carts() repository.CartRepository {
	return s.carts
}

func (s *Store) Orders() repository.OrderRepository {
	return s.orders
}

func (s *Store) Tracking() repository.TrackingRepository {
	return s.tracking
}

func (s *Store) Vehicles() repository.VehicleRepository {
	return s.vehicles
}

func (s *Store) DriverLicenses() repository.DriverLicenseRepository {
	return s.driverLicenses
}

func (s *Store) Transactions() repository.TransactionRepository {
	return s.transactions
}

func (s *Store) Recipients() repository.TransferRecipientRepository {
	return s.recipients
}

func (s *Store) DVAs() repository.DVARepository {
	return s.dvas
}

func (s *Store) WebhookEvents() repository.WebhookEventRepository {
	return s.webhookEvents
}

func (s *Store) Notifications() repository.NotificationRepository {
	return s.notifications
}

func (s *Store) PhoneVerifications() repository.PhoneVerificationRepository {
	return s.phoneVerifications
}

func (s *Store) HelpRequests() repository.HelpRequestRepository {
	return s.helpRequests
}

func (s *Store) FAQs() repository.FAQRepository {
	return s.faqs
}
