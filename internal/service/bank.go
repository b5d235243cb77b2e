package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xcellar/xcellar/internal/cache"
	"github.com/xcellar/xcellar/internal/paystack"
)

const (
	bankListCacheKey = "banks:ngn"
	bankListCacheTTL = 24 * time.Hour
)

// BankDirectory is the slice of the Paystack client bank lookups use.
type BankDirectory interface {
	ListBanks(ctx context.Context) ([]paystack.Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
}

// BankService serves the supported bank list and verifies account numbers.
type BankService interface {
	Banks(ctx context.Context) ([]paystack.Bank, error)
	VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
}

type bankService struct {
	provider BankDirectory
	cache    cache.Store
}

// NewBankService wraps the provider with a day-long bank list cache.
func NewBankService(provider BankDirectory, store cache.Store) BankService {
	var banks cache.Store
	if store != nil {
		banks = store.Namespace("core")
	}
	return &bankService{provider: provider, cache: banks}
}

func (s *bankService) Banks(ctx context.Context) ([]paystack.Bank, error) {
	if s.cache != nil {
		var cached []paystack.Bank
		if found, err := s.cache.GetJSON(ctx, bankListCacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}

	banks, err := s.provider.ListBanks(ctx)
	if err != nil {
		return nil, mapBankError(err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, bankListCacheKey, banks, bankListCacheTTL)
	}
	return banks, nil
}

func (s *bankService) VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error) {
	if accountNumber == "" || bankCode == "" {
		return nil, ErrValidation
	}
	resolved, err := s.provider.ResolveAccount(ctx, accountNumber, bankCode)
	if err != nil {
		return nil, mapBankError(err)
	}
	return resolved, nil
}

func mapBankError(err error) error {
	var apiErr *paystack.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrValidation, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrProviderFailure, err)
}
