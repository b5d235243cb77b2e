package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/repository"
)

const webhookTestSecret = "sk_test_webhook"

func signWebhook(body []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// fakeWebhookEvents enforces the dedupe key like the real table does.
type fakeWebhookEvents struct {
	repository.WebhookEventRepository
	byKey  map[string]*repository.WebhookEvent
	nextID int64
}

func newFakeWebhookEvents() *fakeWebhookEvents {
	return &fakeWebhookEvents{byKey: make(map[string]*repository.WebhookEvent)}
}

func (f *fakeWebhookEvents) Create(_ context.Context, event *repository.WebhookEvent) (*repository.WebhookEvent, error) {
	if _, ok := f.byKey[event.DedupeKey]; ok {
		return nil, repository.ErrDuplicate
	}
	f.nextID++
	clone := *event
	clone.ID = f.nextID
	f.byKey[clone.DedupeKey] = &clone
	return &clone, nil
}

func (f *fakeWebhookEvents) FindByDedupeKey(_ context.Context, dedupeKey string) (*repository.WebhookEvent, error) {
	event, ok := f.byKey[dedupeKey]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *event
	return &clone, nil
}

func (f *fakeWebhookEvents) MarkProcessed(_ context.Context, id int64, at int64) error {
	return f.mark(id, at, nil, true)
}

func (f *fakeWebhookEvents) MarkFailed(_ context.Context, id int64, at int64, message string) error {
	return f.mark(id, at, &message, false)
}

func (f *fakeWebhookEvents) mark(id, at int64, procErr *string, processed bool) error {
	for _, event := range f.byKey {
		if event.ID == id {
			event.Processed = processed
			event.ProcessedAt = &at
			event.Error = procErr
			return nil
		}
	}
	return repository.ErrNotFound
}

// fakeTxns wires wallet settlement against an in-memory balance.
type fakeTxns struct {
	repository.TransactionRepository
	txns      map[int64]*repository.Transaction
	balance   map[int64]int64
	nextID    int64
	creditErr error // returned once by MarkSuccessAndCredit
}

func newFakeTxns() *fakeTxns {
	return &fakeTxns{txns: make(map[int64]*repository.Transaction), balance: make(map[int64]int64)}
}

func (f *fakeTxns) Create(_ context.Context, txn *repository.Transaction) (*repository.Transaction, error) {
	f.nextID++
	clone := *txn
	clone.ID = f.nextID
	f.txns[clone.ID] = &clone
	return &clone, nil
}

func (f *fakeTxns) Save(_ context.Context, txn *repository.Transaction) error {
	clone := *txn
	f.txns[txn.ID] = &clone
	return nil
}

func (f *fakeTxns) FindByReference(_ context.Context, reference string) (*repository.Transaction, error) {
	for _, txn := range f.txns {
		if txn.Reference == reference {
			clone := *txn
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTxns) FindByProviderReference(_ context.Context, reference string) (*repository.Transaction, error) {
	for _, txn := range f.txns {
		if txn.ProviderReference != nil && *txn.ProviderReference == reference {
			clone := *txn
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTxns) MarkSuccessAndCredit(_ context.Context, txnID int64, completedAt int64) (bool, error) {
	if f.creditErr != nil {
		err := f.creditErr
		f.creditErr = nil
		return false, err
	}
	txn, ok := f.txns[txnID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if txn.Status != repository.TxnPending {
		return false, nil
	}
	txn.Status = repository.TxnSuccess
	txn.CompletedAt = &completedAt
	f.balance[txn.UserID] += txn.NetAmountKobo
	return true, nil
}

func (f *fakeTxns) MarkStatus(_ context.Context, txnID int64, status string, completedAt int64) (bool, error) {
	txn, ok := f.txns[txnID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if txn.Status != repository.TxnPending {
		return false, nil
	}
	txn.Status = status
	txn.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeTxns) MarkFailedAndRefund(_ context.Context, txnID int64, completedAt int64) (bool, error) {
	txn, ok := f.txns[txnID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if txn.Status != repository.TxnPending {
		return false, nil
	}
	txn.Status = repository.TxnFailed
	txn.CompletedAt = &completedAt
	f.balance[txn.UserID] += txn.AmountKobo
	return true, nil
}

func (f *fakeTxns) MarkReversedAndRefund(_ context.Context, txnID int64, completedAt int64) (bool, error) {
	txn, ok := f.txns[txnID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if txn.Status != repository.TxnPending {
		return false, nil
	}
	txn.Status = repository.TxnReversed
	txn.CompletedAt = &completedAt
	f.balance[txn.UserID] += txn.AmountKobo
	return true, nil
}

// fakeWebhookUsers resolves users by email.
type fakeWebhookUsers struct {
	repository.UserRepository
	byEmail map[string]*repository.User
}

func (f *fakeWebhookUsers) FindByEmail(_ context.Context, email string) (*repository.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

// fakeDVAs stores one virtual account per user.
type fakeDVAs struct {
	repository.DVARepository
	byUser map[int64]*repository.DedicatedVirtualAccount
}

func (f *fakeDVAs) FindByUser(_ context.Context, userID int64) (*repository.DedicatedVirtualAccount, error) {
	dva, ok := f.byUser[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return dva, nil
}

func (f *fakeDVAs) Create(_ context.Context, account *repository.DedicatedVirtualAccount) (*repository.DedicatedVirtualAccount, error) {
	clone := *account
	clone.ID = int64(len(f.byUser) + 1)
	f.byUser[account.UserID] = &clone
	return &clone, nil
}

type webhookFixture struct {
	svc     WebhookService
	events  *fakeWebhookEvents
	txns    *fakeTxns
	users   *fakeWebhookUsers
	dvas    *fakeDVAs
	notices *fakeNotices
}

func newWebhookFixture() *webhookFixture {
	events := newFakeWebhookEvents()
	txns := newFakeTxns()
	users := &fakeWebhookUsers{byEmail: map[string]*repository.User{
		"jane@example.com": {ID: 7, Email: "jane@example.com"},
	}}
	dvas := &fakeDVAs{byUser: make(map[int64]*repository.DedicatedVirtualAccount)}
	notices := &fakeNotices{}
	return &webhookFixture{
		svc:     NewWebhookService(webhookTestSecret, events, txns, users, dvas, notices),
		events:  events,
		txns:    txns,
		users:   users,
		dvas:    dvas,
		notices: notices,
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture()
	body := []byte(`{"event":"charge.success","data":{"reference":"TXN_abc"}}`)

	_, err := f.svc.Process(context.Background(), body, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Process(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhookChargeSuccessCreditsWallet(t *testing.T) {
	f := newWebhookFixture()
	txn, err := f.txns.Create(context.Background(), &repository.Transaction{
		UserID:        7,
		Type:          repository.TxnDeposit,
		Status:        repository.TxnPending,
		AmountKobo:    500_000,
		NetAmountKobo: 500_000,
		Reference:     "TXN_dep1",
	})
	require.NoError(t, err)

	body := []byte(`{"event":"charge.success","data":{"id":101,"reference":"TXN_dep1","status":"success","amount":500000}}`)
	outcome, err := f.svc.Process(context.Background(), body, signWebhook(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.EqualValues(t, 500_000, f.txns.balance[7])
	assert.Equal(t, repository.TxnSuccess, f.txns.txns[txn.ID].Status)
	require.Len(t, f.notices.created, 1)
	assert.Equal(t, repository.NotifyDepositReceived, f.notices.created[0].Type)
}

func TestWebhookDuplicateEventIsIgnored(t *testing.T) {
	f := newWebhookFixture()
	_, err := f.txns.Create(context.Background(), &repository.Transaction{
		UserID:        7,
		Type:          repository.TxnDeposit,
		Status:        repository.TxnPending,
		AmountKobo:    500_000,
		NetAmountKobo: 500_000,
		Reference:     "TXN_dep1",
	})
	require.NoError(t, err)

	body := []byte(`{"event":"charge.success","data":{"id":101,"reference":"TXN_dep1","amount":500000}}`)
	sig := signWebhook(body)

	outcome, err := f.svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)

	outcome, err = f.svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, outcome)

	// Replays never double-credit.
	assert.EqualValues(t, 500_000, f.txns.balance[7])
}

func TestWebhookFailedApplyReprocessedOnRetry(t *testing.T) {
	f := newWebhookFixture()
	_, err := f.txns.Create(context.Background(), &repository.Transaction{
		UserID:        7,
		Type:          repository.TxnDeposit,
		Status:        repository.TxnPending,
		AmountKobo:    500_000,
		NetAmountKobo: 500_000,
		Reference:     "TXN_dep1",
	})
	require.NoError(t, err)

	body := []byte(`{"event":"charge.success","data":{"id":101,"reference":"TXN_dep1","amount":500000}}`)
	sig := signWebhook(body)

	// The first delivery fails mid-apply; the provider sees an error and
	// will retry.
	f.txns.creditErr = errors.New("database locked")
	_, err = f.svc.Process(context.Background(), body, sig)
	require.Error(t, err)
	assert.Zero(t, f.txns.balance[7])

	// The retry must not be swallowed as a duplicate.
	outcome, err := f.svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.EqualValues(t, 500_000, f.txns.balance[7])

	// A third delivery is a true duplicate.
	outcome, err = f.svc.Process(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, outcome)
	assert.EqualValues(t, 500_000, f.txns.balance[7])
}

func TestWebhookDirectDVADeposit(t *testing.T) {
	f := newWebhookFixture()

	body := []byte(`{"event":"charge.success","data":{"id":202,"reference":"PSK_direct","amount":250000,"customer":{"email":"Jane@Example.com"}}}`)
	outcome, err := f.svc.Process(context.Background(), body, signWebhook(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.EqualValues(t, 250_000, f.txns.balance[7])

	// The fresh deposit row carries the provider reference.
	txn, err := f.txns.FindByProviderReference(context.Background(), "PSK_direct")
	require.NoError(t, err)
	assert.Equal(t, repository.TxnSuccess, txn.Status)
	assert.Equal(t, "bank_transfer", txn.PaymentMethod)
}

func TestWebhookUnknownChargeIgnored(t *testing.T) {
	f := newWebhookFixture()

	body := []byte(`{"event":"charge.success","data":{"id":303,"reference":"PSK_mystery","amount":100000,"customer":{"email":"nobody@example.com"}}}`)
	outcome, err := f.svc.Process(context.Background(), body, signWebhook(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome)
}

func TestWebhookTransferFailedRefunds(t *testing.T) {
	f := newWebhookFixture()
	_, err := f.txns.Create(context.Background(), &repository.Transaction{
		UserID:     7,
		Type:       repository.TxnWithdrawal,
		Status:     repository.TxnPending,
		AmountKobo: 300_000,
		Reference:  "TXN_wd1",
	})
	require.NoError(t, err)

	body := []byte(`{"event":"transfer.failed","data":{"id":404,"reference":"TXN_wd1"}}`)
	outcome, err := f.svc.Process(context.Background(), body, signWebhook(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.EqualValues(t, 300_000, f.txns.balance[7])
	require.Len(t, f.notices.created, 1)
	assert.Equal(t, repository.NotifyWithdrawalFailed, f.notices.created[0].Type)
}

func TestWebhookDVAAssignment(t *testing.T) {
	f := newWebhookFixture()

	body := []byte(`{"event":"dedicatedaccount.assign.success","data":{"customer":{"email":"jane@example.com","customer_code":"CUS_1"},"dedicated_account":{"account_number":"9912345678","account_name":"JANE DOE","currency":"NGN","bank":{"name":"Wema Bank","slug":"wema-bank"}}}}`)
	outcome, err := f.svc.Process(context.Background(), body, signWebhook(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)

	dva, err := f.dvas.FindByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "9912345678", dva.AccountNumber)
	assert.Equal(t, "Wema Bank", dva.BankName)

	// A second assignment for the same user is a no-op.
	body2 := []byte(`{"event":"dedicatedaccount.assign.success","data":{"id":2,"customer":{"email":"jane@example.com","customer_code":"CUS_1"},"dedicated_account":{"account_number":"0000000000","account_name":"JANE DOE","currency":"NGN","bank":{"name":"Other","slug":"other"}}}}`)
	outcome, err = f.svc.Process(context.Background(), body2, signWebhook(body2))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	dva, _ = f.dvas.FindByUser(context.Background(), 7)
	assert.Equal(t, "9912345678", dva.AccountNumber)
}

func TestWebhookUnhandledEvent(t *testing.T) {
	f := newWebhookFixture()

	body := []byte(`{"event":"subscription.create","data":{"id":1}}`)
	outcome, err := f.svc.Process(context.Background(), body, signWebhook(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome)
	assert.Empty(t, f.notices.created)
}

func TestWebhookMalformedPayload(t *testing.T) {
	f := newWebhookFixture()

	body := []byte(`{not json`)
	_, err := f.svc.Process(context.Background(), body, signWebhook(body))
	assert.ErrorIs(t, err, ErrValidation)

	body = []byte(fmt.Sprintf(`{"data":{"id":%d}}`, time.Now().Unix()))
	_, err = f.svc.Process(context.Background(), body, signWebhook(body))
	assert.ErrorIs(t, err, ErrValidation)
}
