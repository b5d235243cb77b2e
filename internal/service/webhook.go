package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xcellar/xcellar/internal/paystack"
	"github.com/xcellar/xcellar/internal/repository"
)

// Webhook outcomes reported to the provider.
const (
	WebhookProcessed = "processed"
	WebhookIgnored   = "ignored"
	WebhookDuplicate = "already processed"
)

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Customer  struct {
			Email        string `json:"email"`
			CustomerCode string `json:"customer_code"`
		} `json:"customer"`
		DedicatedAccount struct {
			AccountNumber string `json:"account_number"`
			AccountName   string `json:"account_name"`
			Currency      string `json:"currency"`
			Bank          struct {
				Name string `json:"name"`
				Slug string `json:"slug"`
			} `json:"bank"`
		} `json:"dedicated_account"`
	} `json:"data"`
}

// WebhookService verifies and applies Paystack webhook events. Processing
// is idempotent: the same provider event applied twice changes nothing.
type WebhookService interface {
	Process(ctx context.Context, body []byte, signature string) (string, error)
}

type webhookService struct {
	secretKey string
	events    repository.WebhookEventRepository
	txns      repository.TransactionRepository
	users     repository.UserRepository
	dvas      repository.DVARepository
	notices   repository.NotificationRepository
}

// NewWebhookService assembles webhook processing with the signing secret.
func NewWebhookService(
	secretKey string,
	events repository.WebhookEventRepository,
	txns repository.TransactionRepository,
	users repository.UserRepository,
	dvas repository.DVARepository,
	notices repository.NotificationRepository,
) WebhookService {
	return &webhookService{
		secretKey: secretKey,
		events:    events,
		txns:      txns,
		users:     users,
		dvas:      dvas,
		notices:   notices,
	}
}

func (s *webhookService) Process(ctx context.Context, body []byte, signature string) (string, error) {
	if signature == "" {
		return "", fmt.Errorf("%w: missing signature", ErrValidation)
	}
	if !paystack.VerifySignature(s.secretKey, body, signature) {
		return "", ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: malformed payload", ErrValidation)
	}
	if payload.Event == "" {
		return "", fmt.Errorf("%w: missing event type", ErrValidation)
	}

	dedupeKey := fmt.Sprintf("%s:%s:%d", payload.Event, payload.Data.Reference, payload.Data.ID)
	record, err := s.events.Create(ctx, &repository.WebhookEvent{
		EventType: payload.Event,
		Reference: payload.Data.Reference,
		DedupeKey: dedupeKey,
		Payload:   json.RawMessage(body),
	})
	if err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return "", fmt.Errorf("store event: %w", err)
		}
		// A repeated key is only a true duplicate once the event applied.
		// A row left open by a failed apply gets another attempt on the
		// provider's retry.
		existing, findErr := s.events.FindByDedupeKey(ctx, dedupeKey)
		if findErr != nil {
			return "", fmt.Errorf("look up event: %w", findErr)
		}
		if existing.Processed {
			return WebhookDuplicate, nil
		}
		record = existing
	}

	outcome, procErr := s.apply(ctx, payload)
	now := time.Now().Unix()
	if procErr != nil {
		_ = s.events.MarkFailed(ctx, record.ID, now, procErr.Error())
		return "", procErr
	}
	_ = s.events.MarkProcessed(ctx, record.ID, now)
	return outcome, nil
}

func (s *webhookService) apply(ctx context.Context, payload webhookPayload) (string, error) {
	switch payload.Event {
	case "charge.success":
		return s.applyChargeSuccess(ctx, payload)
	case "transfer.success":
		return s.applyTransferSettled(ctx, payload, repository.TxnSuccess)
	case "transfer.failed":
		return s.applyTransferRefund(ctx, payload, false)
	case "transfer.reversed":
		return s.applyTransferRefund(ctx, payload, true)
	case "dedicatedaccount.assign.success":
		return s.applyDVAAssigned(ctx, payload)
	default:
		return WebhookIgnored, nil
	}
}

func (s *webhookService) applyChargeSuccess(ctx context.Context, payload webhookPayload) (string, error) {
	txn, err := s.findTxn(ctx, payload.Data.Reference)
	if err != nil {
		return "", err
	}
	if txn == nil {
		// Charges without a matching transaction come from direct DVA
		// transfers: credit the account owner with a fresh deposit row.
		return s.applyDVADeposit(ctx, payload)
	}

	credited, err := s.txns.MarkSuccessAndCredit(ctx, txn.ID, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("settle charge: %w", err)
	}
	if credited {
		s.record(ctx, txn.UserID, repository.NotifyDepositReceived, "Deposit received",
			fmt.Sprintf("Your wallet was credited with NGN %.2f.", float64(txn.NetAmountKobo)/100), &txn.ID)
	}
	return WebhookProcessed, nil
}

func (s *webhookService) applyDVADeposit(ctx context.Context, payload webhookPayload) (string, error) {
	if payload.Data.Customer.Email == "" || payload.Data.Amount <= 0 {
		return WebhookIgnored, nil
	}
	user, err := s.users.FindByEmail(ctx, normalizeEmail(payload.Data.Customer.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return WebhookIgnored, nil
		}
		return "", err
	}

	txn, err := s.txns.Create(ctx, &repository.Transaction{
		UserID:        user.ID,
		Type:          repository.TxnDeposit,
		Status:        repository.TxnPending,
		PaymentMethod: "bank_transfer",
		AmountKobo:    payload.Data.Amount,
		NetAmountKobo: payload.Data.Amount,
		Reference:     newTxnReference(),
	})
	if err != nil {
		return "", fmt.Errorf("create deposit: %w", err)
	}
	ref := payload.Data.Reference
	txn.ProviderReference = &ref
	_ = s.txns.Save(ctx, txn)

	if _, err := s.txns.MarkSuccessAndCredit(ctx, txn.ID, time.Now().Unix()); err != nil {
		return "", fmt.Errorf("settle deposit: %w", err)
	}
	s.record(ctx, user.ID, repository.NotifyDepositReceived, "Deposit received",
		fmt.Sprintf("Your wallet was credited with NGN %.2f via bank transfer.", float64(payload.Data.Amount)/100), &txn.ID)
	return WebhookProcessed, nil
}

func (s *webhookService) applyTransferSettled(ctx context.Context, payload webhookPayload, status string) (string, error) {
	txn, err := s.findTxn(ctx, payload.Data.Reference)
	if err != nil || txn == nil {
		return WebhookIgnored, err
	}
	updated, err := s.txns.MarkStatus(ctx, txn.ID, status, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("settle transfer: %w", err)
	}
	if updated {
		s.record(ctx, txn.UserID, repository.NotifyWithdrawalSuccess, "Withdrawal successful",
			fmt.Sprintf("Your withdrawal of NGN %.2f was completed.", float64(txn.AmountKobo)/100), &txn.ID)
	}
	return WebhookProcessed, nil
}

func (s *webhookService) applyTransferRefund(ctx context.Context, payload webhookPayload, reversed bool) (string, error) {
	txn, err := s.findTxn(ctx, payload.Data.Reference)
	if err != nil || txn == nil {
		return WebhookIgnored, err
	}

	var refunded bool
	if reversed {
		refunded, err = s.txns.MarkReversedAndRefund(ctx, txn.ID, time.Now().Unix())
	} else {
		refunded, err = s.txns.MarkFailedAndRefund(ctx, txn.ID, time.Now().Unix())
	}
	if err != nil {
		return "", fmt.Errorf("refund transfer: %w", err)
	}
	if refunded {
		noticeType := repository.NotifyWithdrawalFailed
		title := "Withdrawal failed"
		if reversed {
			noticeType = repository.NotifyWithdrawalReversed
			title = "Withdrawal reversed"
		}
		s.record(ctx, txn.UserID, noticeType, title,
			fmt.Sprintf("NGN %.2f was returned to your wallet.", float64(txn.AmountKobo)/100), &txn.ID)
	}
	return WebhookProcessed, nil
}

func (s *webhookService) applyDVAAssigned(ctx context.Context, payload webhookPayload) (string, error) {
	email := normalizeEmail(payload.Data.Customer.Email)
	if email == "" || payload.Data.DedicatedAccount.AccountNumber == "" {
		return WebhookIgnored, nil
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return WebhookIgnored, nil
		}
		return "", err
	}
	if existing, err := s.dvas.FindByUser(ctx, user.ID); err == nil && existing != nil {
		return WebhookProcessed, nil
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	dva, err := s.dvas.Create(ctx, &repository.DedicatedVirtualAccount{
		UserID:        user.ID,
		CustomerCode:  payload.Data.Customer.CustomerCode,
		AccountNumber: payload.Data.DedicatedAccount.AccountNumber,
		AccountName:   payload.Data.DedicatedAccount.AccountName,
		BankName:      payload.Data.DedicatedAccount.Bank.Name,
		BankSlug:      payload.Data.DedicatedAccount.Bank.Slug,
		Currency:      payload.Data.DedicatedAccount.Currency,
	})
	if err != nil {
		return "", fmt.Errorf("store dedicated account: %w", err)
	}
	s.record(ctx, user.ID, repository.NotifyDVACreated, "Virtual account ready",
		fmt.Sprintf("Fund your wallet via %s %s.", dva.BankName, dva.AccountNumber), nil)
	return WebhookProcessed, nil
}

// findTxn looks a transaction up by our reference first, falling back to
// the provider's. A miss is not an error; the event is simply not ours.
func (s *webhookService) findTxn(ctx context.Context, reference string) (*repository.Transaction, error) {
	if reference == "" {
		return nil, nil
	}
	txn, err := s.txns.FindByReference(ctx, reference)
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	txn, err = s.txns.FindByProviderReference(ctx, reference)
	if err == nil {
		return txn, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

func (s *webhookService) record(ctx context.Context, userID int64, noticeType, title, message string, txnID *int64) {
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
