package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xcellar/xcellar/internal/repository"
)

type emptyCarts struct {
	repository.CartRepository
}

func (emptyCarts) FindByUser(_ context.Context, _ int64) (*repository.Cart, error) {
	return nil, repository.ErrNotFound
}

func validCheckoutInput() CheckoutInput {
	return CheckoutInput{
		PickupAddress:   "12 Marina Road, Lagos",
		DropoffAddress:  "4 Allen Avenue, Ikeja",
		RecipientName:   "Ada Obi",
		RecipientPhone:  "08031234567",
		DeliveryFeeKobo: 150_000,
	}
}

func TestCheckoutValidatesRecipientPhone(t *testing.T) {
	svc := NewMarketplaceService(nil, nil, nil, emptyCarts{}, nil, nil)
	ctx := context.Background()

	input := validCheckoutInput()
	input.RecipientPhone = "not-a-number"
	_, err := svc.Checkout(ctx, 1, input)
	assert.ErrorIs(t, err, ErrInvalidPhone)

	input.RecipientPhone = "12345"
	_, err = svc.Checkout(ctx, 1, input)
	assert.ErrorIs(t, err, ErrInvalidPhone)

	// A well-formed phone clears validation and reaches the cart lookup.
	_, err = svc.Checkout(ctx, 1, validCheckoutInput())
	assert.ErrorIs(t, err, ErrCartEmpty)
}

func TestCheckoutValidatesRequiredFields(t *testing.T) {
	svc := NewMarketplaceService(nil, nil, nil, emptyCarts{}, nil, nil)
	ctx := context.Background()

	input := validCheckoutInput()
	input.DropoffAddress = ""
	_, err := svc.Checkout(ctx, 1, input)
	assert.ErrorIs(t, err, ErrValidation)

	input = validCheckoutInput()
	input.RecipientName = ""
	_, err = svc.Checkout(ctx, 1, input)
	assert.ErrorIs(t, err, ErrValidation)
}
