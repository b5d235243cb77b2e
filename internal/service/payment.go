package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/paystack"
	"github.com/xcellar/xcellar/internal/repository"
)

const (
	// minAmountKobo is 100 naira, the smallest accepted deposit or withdrawal.
	minAmountKobo = 100 * 100

	referenceAttempts = 10
)

// PaymentProvider is the slice of the Paystack client the wallet flows use.
type PaymentProvider interface {
	InitializeTransaction(ctx context.Context, input paystack.InitializeInput) (*paystack.Authorization, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionStatus, error)
	CreateCustomer(ctx context.Context, input paystack.CreateCustomerInput) (*paystack.Customer, error)
	CreateDedicatedAccount(ctx context.Context, customerCode, preferredBank string) (*paystack.DedicatedAccount, error)
	CreateTransferRecipient(ctx context.Context, input paystack.CreateRecipientInput) (*paystack.Recipient, error)
	InitiateTransfer(ctx context.Context, input paystack.TransferInput) (*paystack.Transfer, error)
	FinalizeTransfer(ctx context.Context, transferCode, otp string) (*paystack.Transfer, error)
}

// DepositInit is what the client needs to complete a hosted checkout.
type DepositInit struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// TransferResult reports an initiated withdrawal. TransferCode is set when
// the provider wants OTP finalization.
type TransferResult struct {
	Transaction  *repository.Transaction
	Status       string
	TransferCode string
}

// RecipientInput registers a payout bank account.
type RecipientInput struct {
	Name          string
	AccountNumber string
	BankCode      string
	BankName      string
}

// PaymentService runs the wallet: deposits, withdrawals, virtual accounts
// and the notification feed that mirrors wallet activity.
type PaymentService interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	InitializeDeposit(ctx context.Context, userID, amountKobo int64) (*DepositInit, error)
	VerifyDeposit(ctx context.Context, userID int64, reference string) (*repository.Transaction, error)
	CreateDVA(ctx context.Context, userID int64) (*repository.DedicatedVirtualAccount, error)
	DVA(ctx context.Context, userID int64) (*repository.DedicatedVirtualAccount, error)
	CreateRecipient(ctx context.Context, userID int64, input RecipientInput) (*repository.TransferRecipient, error)
	Recipients(ctx context.Context, userID int64) ([]*repository.TransferRecipient, error)
	Transfer(ctx context.Context, userID, recipientID, amountKobo int64, reason string) (*TransferResult, error)
	FinalizeTransfer(ctx context.Context, userID int64, transferCode, otp string) error
	Transactions(ctx context.Context, filter repository.TransactionFilter) ([]*repository.Transaction, int64, error)
	Transaction(ctx context.Context, userID, txnID int64) (*repository.Transaction, error)
	Notifications(ctx context.Context, filter repository.NotificationFilter) ([]*repository.Notification, int64, error)
	Notification(ctx context.Context, userID, noticeID int64) (*repository.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, noticeID int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
}

type paymentService struct {
	users      repository.UserRepository
	txns       repository.TransactionRepository
	recipients repository.TransferRecipientRepository
	dvas       repository.DVARepository
	notices    repository.NotificationRepository
	profiles   repository.ProfileRepository
	provider   PaymentProvider
}

// NewPaymentService assembles the wallet flows.
func NewPaymentService(
	users repository.UserRepository,
	txns repository.TransactionRepository,
	recipients repository.TransferRecipientRepository,
	dvas repository.DVARepository,
	notices repository.NotificationRepository,
	profiles repository.ProfileRepository,
	provider PaymentProvider,
) PaymentService {
	return &paymentService{
		users:      users,
		txns:       txns,
		recipients: recipients,
		dvas:       dvas,
		notices:    notices,
		profiles:   profiles,
		provider:   provider,
	}
}

func (s *paymentService) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.users.Balance(ctx, userID)
}

func (s *paymentService) InitializeDeposit(ctx context.Context, userID, amountKobo int64) (*DepositInit, error) {
	if amountKobo < minAmountKobo {
		return nil, ErrAmountTooSmall
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	txn, err := s.createTransaction(ctx, &repository.Transaction{
		UserID:        userID,
		Type:          repository.TxnDeposit,
		Status:        repository.TxnPending,
		PaymentMethod: "paystack",
		AmountKobo:    amountKobo,
		NetAmountKobo: amountKobo,
	})
	if err != nil {
		return nil, err
	}

	auth, err := s.provider.InitializeTransaction(ctx, paystack.InitializeInput{
		Email:      user.Email,
		AmountKobo: amountKobo,
		Reference:  txn.Reference,
		Currency:   "NGN",
	})
	if err != nil {
		_, _ = s.txns.MarkStatus(ctx, txn.ID, repository.TxnFailed, time.Now().Unix())
		return nil, s.mapProviderError(err)
	}

	return &DepositInit{
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		Reference:        txn.Reference,
	}, nil
}

// VerifyDeposit confirms a deposit with the provider and credits the wallet
// exactly once. Re-verifying a settled transaction is a no-op.
func (s *paymentService) VerifyDeposit(ctx context.Context, userID int64, reference string) (*repository.Transaction, error) {
	txn, err := s.txns.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if txn.UserID != userID {
		return nil, ErrNotFound
	}
	if txn.Status == repository.TxnSuccess {
		return txn, nil
	}

	status, err := s.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, s.mapProviderError(err)
	}

	now := time.Now().Unix()
	switch status.Status {
	case "success":
		credited, err := s.txns.MarkSuccessAndCredit(ctx, txn.ID, now)
		if err != nil {
			return nil, fmt.Errorf("settle deposit: %w", err)
		}
		if credited {
			s.recordNotification(ctx, userID, repository.NotifyDepositReceived, "Deposit received",
				fmt.Sprintf("Your wallet was credited with NGN %.2f.", float64(txn.NetAmountKobo)/100), &txn.ID)
		}
	case "failed", "abandoned":
		_, _ = s.txns.MarkStatus(ctx, txn.ID, repository.TxnFailed, now)
		s.recordNotification(ctx, userID, repository.NotifyTransactionFailed, "Deposit failed",
			"Your deposit could not be completed.", &txn.ID)
	}

	return s.txns.FindByID(ctx, txn.ID)
}

func (s *paymentService) CreateDVA(ctx context.Context, userID int64) (*repository.DedicatedVirtualAccount, error) {
	if existing, err := s.dvas.FindByUser(ctx, userID); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: dedicated account already exists", ErrValidation)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	input := paystack.CreateCustomerInput{Email: user.Email, Phone: user.PhoneNumber}
	if profile, err := s.profiles.UserProfileByUser(ctx, userID); err == nil && profile.FullName != "" {
		input.FirstName, input.LastName = splitName(profile.FullName)
	}
	customer, err := s.provider.CreateCustomer(ctx, input)
	if err != nil {
		return nil, s.mapProviderError(err)
	}

	account, err := s.provider.CreateDedicatedAccount(ctx, customer.CustomerCode, "")
	if err != nil {
		return nil, s.mapProviderError(err)
	}

	dva, err := s.dvas.Create(ctx, &repository.DedicatedVirtualAccount{
		UserID:        userID,
		CustomerCode:  customer.CustomerCode,
		AccountNumber: account.AccountNumber,
		AccountName:   account.AccountName,
		BankName:      account.Bank.Name,
		BankSlug:      account.Bank.Slug,
		Currency:      account.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("store dedicated account: %w", err)
	}

	s.recordNotification(ctx, userID, repository.NotifyDVACreated, "Virtual account ready",
		fmt.Sprintf("Fund your wallet via %s %s.", dva.BankName, dva.AccountNumber), nil)
	return dva, nil
}

func (s *paymentService) DVA(ctx context.Context, userID int64) (*repository.DedicatedVirtualAccount, error) {
	dva, err := s.dvas.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return dva, nil
}

func (s *paymentService) CreateRecipient(ctx context.Context, userID int64, input RecipientInput) (*repository.TransferRecipient, error) {
	if input.AccountNumber == "" || input.BankCode == "" {
		return nil, fmt.Errorf("%w: account number and bank code are required", ErrValidation)
	}

	recipient, err := s.provider.CreateTransferRecipient(ctx, paystack.CreateRecipientInput{
		Name:          input.Name,
		AccountNumber: input.AccountNumber,
		BankCode:      input.BankCode,
	})
	if err != nil {
		return nil, s.mapProviderError(err)
	}

	record := &repository.TransferRecipient{
		UserID:        userID,
		RecipientCode: recipient.RecipientCode,
		RecipientType: recipient.Type,
		Name:          recipient.Details.AccountName,
		AccountNumber: recipient.Details.AccountNumber,
		IsActive:      true,
	}
	if record.Name == "" {
		record.Name = input.Name
	}
	if recipient.Details.BankCode != "" {
		record.BankCode = &recipient.Details.BankCode
	}
	bankName := recipient.Details.BankName
	if bankName == "" {
		bankName = input.BankName
	}
	if bankName != "" {
		record.BankName = &bankName
	}

	created, err := s.recipients.Create(ctx, record)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, ferr := s.recipients.FindByCode(ctx, recipient.RecipientCode)
			if ferr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("store recipient: %w", err)
	}
	return created, nil
}

func (s *paymentService) Recipients(ctx context.Context, userID int64) ([]*repository.TransferRecipient, error) {
	return s.recipients.ListForUser(ctx, userID)
}

// Transfer deducts the wallet first, then asks the provider to pay out. A
// provider failure flips the transaction to FAILED and restores the balance.
func (s *paymentService) Transfer(ctx context.Context, userID, recipientID, amountKobo int64, reason string) (*TransferResult, error) {
	if amountKobo < minAmountKobo {
		return nil, ErrAmountTooSmall
	}
	recipient, err := s.recipients.FindByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if recipient.UserID != userID || !recipient.IsActive {
		return nil, ErrNotFound
	}

	debited, err := s.users.AdjustBalance(ctx, userID, -amountKobo)
	if err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}
	if !debited {
		return nil, ErrInsufficientBalance
	}

	txn, err := s.createTransaction(ctx, &repository.Transaction{
		UserID:        userID,
		Type:          repository.TxnWithdrawal,
		Status:        repository.TxnPending,
		PaymentMethod: "paystack",
		AmountKobo:    amountKobo,
		NetAmountKobo: amountKobo,
	})
	if err != nil {
		// The debit already happened; give it back.
		_, _ = s.users.AdjustBalance(ctx, userID, amountKobo)
		return nil, err
	}

	transfer, err := s.provider.InitiateTransfer(ctx, paystack.TransferInput{
		AmountKobo:    amountKobo,
		RecipientCode: recipient.RecipientCode,
		Reference:     txn.Reference,
		Reason:        reason,
	})
	if err != nil {
		_, _ = s.txns.MarkFailedAndRefund(ctx, txn.ID, time.Now().Unix())
		s.recordNotification(ctx, userID, repository.NotifyWithdrawalFailed, "Withdrawal failed",
			"Your withdrawal could not be completed and the amount was returned to your wallet.", &txn.ID)
		return nil, s.mapProviderError(err)
	}

	if transfer.TransferCode != "" {
		providerRef := transfer.TransferCode
		txn.ProviderReference = &providerRef
		_ = s.txns.Save(ctx, txn)
	}
	s.recordNotification(ctx, userID, repository.NotifyTransferPending, "Withdrawal in progress",
		fmt.Sprintf("Your withdrawal of NGN %.2f is being processed.", float64(amountKobo)/100), &txn.ID)

	result := &TransferResult{Transaction: txn, Status: transfer.Status}
	if transfer.Status == "otp" {
		result.TransferCode = transfer.TransferCode
	}
	return result, nil
}

func (s *paymentService) FinalizeTransfer(ctx context.Context, userID int64, transferCode, otp string) error {
	if transferCode == "" || otp == "" {
		return fmt.Errorf("%w: transfer code and otp are required", ErrValidation)
	}
	txn, err := s.txns.FindByProviderReference(ctx, transferCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if txn.UserID != userID {
		return ErrNotFound
	}
	if _, err := s.provider.FinalizeTransfer(ctx, transferCode, otp); err != nil {
		return s.mapProviderError(err)
	}
	return nil
}

func (s *paymentService) Transactions(ctx context.Context, filter repository.TransactionFilter) ([]*repository.Transaction, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	txns, err := s.txns.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.txns.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (s *paymentService) Transaction(ctx context.Context, userID, txnID int64) (*repository.Transaction, error) {
	txn, err := s.txns.FindByID(ctx, txnID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if txn.UserID != userID {
		return nil, ErrNotFound
	}
	return txn, nil
}

func (s *paymentService) Notifications(ctx context.Context, filter repository.NotificationFilter) ([]*repository.Notification, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	notices, err := s.notices.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.notices.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return notices, total, nil
}

func (s *paymentService) Notification(ctx context.Context, userID, noticeID int64) (*repository.Notification, error) {
	notice, err := s.notices.FindByID(ctx, noticeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if notice.UserID != userID {
		return nil, ErrNotFound
	}
	return notice, nil
}

func (s *paymentService) MarkNotificationRead(ctx context.Context, userID, noticeID int64) error {
	updated, err := s.notices.MarkRead(ctx, noticeID, userID, time.Now().Unix())
	if err != nil {
		return err
	}
	if !updated {
		// Either unknown, someone else's, or already read. Reads are
		// idempotent, so only the first two are errors.
		if _, err := s.Notification(ctx, userID, noticeID); err != nil {
			return err
		}
	}
	return nil
}

func (s *paymentService) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	return s.notices.MarkAllRead(ctx, userID, time.Now().Unix())
}

// createTransaction persists a transaction, regenerating the reference on
// collision up to ten times.
func (s *paymentService) createTransaction(ctx context.Context, txn *repository.Transaction) (*repository.Transaction, error) {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		txn.Reference = newTxnReference()
		created, err := s.txns.Create(ctx, txn)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create transaction: %w", err)
		}
	}
	return nil, ErrDuplicateReference
}

func (s *paymentService) recordNotification(ctx context.Context, userID int64, noticeType, title, message string, txnID *int64) {
	if s.notices == nil {
		return
	}
	_, _ = s.notices.Create(ctx, &repository.Notification{
		UserID:        userID,
		Type:          noticeType,
		Title:         title,
		Message:       message,
		TransactionID: txnID,
	})
}

func (s *paymentService) mapProviderError(err error) error {
	var apiErr *paystack.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrValidation, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrProviderFailure, err)
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[len(parts)-1]
}
