package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// CartView is the caller's open cart with computed totals.
type CartView struct {
	CartID    int64
	Items     []CartItemView
	TotalKobo int64
}

// CartItemView is one cart line with its subtotal.
type CartItemView struct {
	ItemID        int64
	ProductID     int64
	Name          string
	UnitPriceKobo int64
	Quantity      int64
	SubtotalKobo  int64
}

// CheckoutInput carries the delivery details a marketplace checkout needs.
type CheckoutInput struct {
	PickupAddress        string
	DropoffAddress       string
	RecipientName        string
	RecipientPhone       string
	RecipientEmail       string
	DeliveryInstructions string
	DeliveryFeeKobo      int64
	ServiceChargeKobo    int64
	InsuranceFeeKobo     int64
}

// MarketplaceService serves the catalog and runs cart and checkout flows.
type MarketplaceService interface {
	Categories(ctx context.Context) ([]*repository.Category, error)
	Shops(ctx context.Context, filter repository.ShopFilter) ([]*repository.Shop, int64, error)
	Shop(ctx context.Context, id int64) (*repository.Shop, error)
	Products(ctx context.Context, filter repository.ProductFilter) ([]*repository.Product, int64, error)
	Product(ctx context.Context, id int64) (*repository.Product, error)
	Cart(ctx context.Context, userID int64) (*CartView, error)
	AddToCart(ctx context.Context, userID, productID, quantity int64) (*CartView, error)
	RemoveFromCart(ctx context.Context, userID, itemID int64) (*CartView, error)
	Checkout(ctx context.Context, userID int64, input CheckoutInput) (*repository.Order, error)
}

type marketplaceService struct {
	categories repository.CategoryRepository
	shops      repository.ShopRepository
	products   repository.ProductRepository
	carts      repository.CartRepository
	orders     repository.OrderRepository
	tracking   repository.TrackingRepository
}

// NewMarketplaceService assembles catalog, cart and checkout flows.
func NewMarketplaceService(
	categories repository.CategoryRepository,
	shops repository.ShopRepository,
	products repository.ProductRepository,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	tracking repository.TrackingRepository,
) MarketplaceService {
	return &marketplaceService{
		categories: categories,
		shops:      shops,
		products:   products,
		carts:      carts,
		orders:     orders,
		tracking:   tracking,
	}
}

func (s *marketplaceService) Categories(ctx context.Context) ([]*repository.Category, error) {
	return s.categories.ListActive(ctx)
}

func (s *marketplaceService) Shops(ctx context.Context, filter repository.ShopFilter) ([]*repository.Shop, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	shops, err := s.shops.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.shops.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return shops, total, nil
}

func (s *marketplaceService) Shop(ctx context.Context, id int64) (*repository.Shop, error) {
	shop, err := s.shops.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !shop.IsActive {
		return nil, ErrNotFound
	}
	return shop, nil
}

func (s *marketplaceService) Products(ctx context.Context, filter repository.ProductFilter) ([]*repository.Product, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	available := true
	filter.Available = &available
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *marketplaceService) Product(ctx context.Context, id int64) (*repository.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !product.IsAvailable {
		return nil, ErrNotFound
	}
	return product, nil
}

func (s *marketplaceService) Cart(ctx context.Context, userID int64) (*CartView, error) {
	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart.ID)
}

func (s *marketplaceService) AddToCart(ctx context.Context, userID, productID, quantity int64) (*CartView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if !product.IsAvailable {
		return nil, ErrProductUnavailable
	}

	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Existing line quantity counts against stock too.
	have := int64(0)
	lines, err := s.carts.Lines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line.ProductID == productID {
			have = line.Quantity
			break
		}
	}
	if have+quantity > product.StockQuantity {
		return nil, ErrInsufficientStock
	}

	if _, err := s.carts.UpsertItem(ctx, cart.ID, productID, quantity); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart.ID)
}

func (s *marketplaceService) RemoveFromCart(ctx context.Context, userID, itemID int64) (*CartView, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	removed, err := s.carts.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrNotFound
	}
	return s.buildView(ctx, cart.ID)
}

// Checkout turns the cart into a parcel delivery order. The order, the
// stock decrements and the cart clear all commit together.
func (s *marketplaceService) Checkout(ctx context.Context, userID int64, input CheckoutInput) (*repository.Order, error) {
	if input.PickupAddress == "" || input.DropoffAddress == "" {
		return nil, fmt.Errorf("%w: pickup and dropoff addresses are required", ErrValidation)
	}
	if input.RecipientName == "" || input.RecipientPhone == "" {
		return nil, fmt.Errorf("%w: recipient name and phone are required", ErrValidation)
	}
	recipientPhone := normalizePhone(input.RecipientPhone)
	if !isValidPhone(recipientPhone) {
		return nil, ErrInvalidPhone
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCartEmpty
		}
		return nil, err
	}
	lines, err := s.carts.Lines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	description := "Marketplace Order:"
	itemCount := int64(0)
	for _, line := range lines {
		if !line.IsAvailable {
			return nil, ErrProductUnavailable
		}
		if line.Quantity > line.StockQuantity {
			return nil, ErrInsufficientStock
		}
		description += fmt.Sprintf("\n- %s x%d", line.Name, line.Quantity)
		itemCount += line.Quantity
	}

	total := input.DeliveryFeeKobo + input.ServiceChargeKobo + input.InsuranceFeeKobo

	order := &repository.Order{
		OrderNumber:          newOrderNumber(),
		TrackingNumber:       newTrackingNumber(),
		SenderID:             userID,
		PickupAddress:        sanitizeText(input.PickupAddress),
		DropoffAddress:       sanitizeText(input.DropoffAddress),
		RecipientName:        sanitizeText(input.RecipientName),
		RecipientPhone:       recipientPhone,
		DeliveryInstructions: sanitizeText(input.DeliveryInstructions),
		ParcelType:           "OTHER",
		ParcelDescription:    description,
		ParcelQuantity:       itemCount,
		ParcelWeightKG:       1.00,
		DeliveryFeeKobo:      input.DeliveryFeeKobo,
		ServiceChargeKobo:    input.ServiceChargeKobo,
		InsuranceFeeKobo:     input.InsuranceFeeKobo,
		TotalAmountKobo:      total,
		PaymentStatus:        repository.OrderPaymentPending,
		Status:               repository.OrderPending,
	}
	if email := normalizeEmail(input.RecipientEmail); email != "" {
		if !isValidEmail(email) {
			return nil, ErrInvalidEmail
		}
		order.RecipientEmail = &email
	}

	created, err := s.orders.CreateFromCart(ctx, order, cart.ID, lines)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("checkout: %w", err)
	}

	_, _ = s.tracking.Append(ctx, &repository.TrackingEntry{
		OrderID:   created.ID,
		Status:    created.Status,
		Notes:     "Order created and awaiting confirmation",
		CreatedAt: time.Now().Unix(),
	})
	return created, nil
}

func (s *marketplaceService) ensureCart(ctx context.Context, userID int64) (*repository.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return s.carts.Create(ctx, userID)
}

func (s *marketplaceService) buildView(ctx context.Context, cartID int64) (*CartView, error) {
	lines, err := s.carts.Lines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	view := &CartView{CartID: cartID, Items: make([]CartItemView, 0, len(lines))}
	for _, line := range lines {
		subtotal := line.UnitPriceKobo * line.Quantity
		view.Items = append(view.Items, CartItemView{
			ItemID:        line.ItemID,
			ProductID:     line.ProductID,
			Name:          line.Name,
			UnitPriceKobo: line.UnitPriceKobo,
			Quantity:      line.Quantity,
			SubtotalKobo:  subtotal,
		})
		view.TotalKobo += subtotal
	}
	return view, nil
}
