package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/cache"
	"github.com/xcellar/xcellar/internal/paystack"
)

type fakeBankDirectory struct {
	banks     []paystack.Bank
	listCalls int
	listErr   error

	resolved   *paystack.ResolvedAccount
	resolveErr error
}

func (f *fakeBankDirectory) ListBanks(_ context.Context) ([]paystack.Bank, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.banks, nil
}

func (f *fakeBankDirectory) ResolveAccount(_ context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.resolved, nil
}

func TestBanksServedFromCache(t *testing.T) {
	directory := &fakeBankDirectory{banks: []paystack.Bank{
		{Name: "GTBank", Code: "058"},
		{Name: "Zenith Bank", Code: "057"},
	}}
	svc := NewBankService(directory, cache.NewStore(cache.Options{}))
	ctx := context.Background()

	banks, err := svc.Banks(ctx)
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, 1, directory.listCalls)

	// Second call hits the cache, not the provider.
	banks, err = svc.Banks(ctx)
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, "GTBank", banks[0].Name)
	assert.Equal(t, 1, directory.listCalls)
}

func TestBanksWithoutCache(t *testing.T) {
	directory := &fakeBankDirectory{banks: []paystack.Bank{{Name: "GTBank", Code: "058"}}}
	svc := NewBankService(directory, nil)
	ctx := context.Background()

	_, err := svc.Banks(ctx)
	require.NoError(t, err)
	_, err = svc.Banks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, directory.listCalls)
}

func TestBanksProviderFailure(t *testing.T) {
	directory := &fakeBankDirectory{listErr: paystack.ErrUnavailable}
	svc := NewBankService(directory, cache.NewStore(cache.Options{}))

	_, err := svc.Banks(context.Background())
	assert.ErrorIs(t, err, ErrProviderFailure)
}

func TestVerifyAccount(t *testing.T) {
	directory := &fakeBankDirectory{resolved: &paystack.ResolvedAccount{
		AccountNumber: "0123456789",
		AccountName:   "JANE DOE",
	}}
	svc := NewBankService(directory, nil)
	ctx := context.Background()

	resolved, err := svc.VerifyAccount(ctx, "0123456789", "058")
	require.NoError(t, err)
	assert.Equal(t, "JANE DOE", resolved.AccountName)

	_, err = svc.VerifyAccount(ctx, "", "058")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.VerifyAccount(ctx, "0123456789", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestVerifyAccountAPIErrorBecomesValidation(t *testing.T) {
	directory := &fakeBankDirectory{resolveErr: &paystack.APIError{
		StatusCode: 422,
		Message:    "Could not resolve account name",
	}}
	svc := NewBankService(directory, nil)

	_, err := svc.VerifyAccount(context.Background(), "0000000000", "058")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Could not resolve account name")
}
