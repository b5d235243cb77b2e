package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/xcellar/xcellar/internal/notifier"
	"github.com/xcellar/xcellar/internal/repository"
)

const (
	offerBatchSize   = 5
	offerWindow      = 24 * time.Hour
	availableMaximum = 100
	trackingTailSize = 10
)

var parcelTypes = map[string]bool{
	"DOCUMENT":       true,
	"SMALL_PACKAGE":  true,
	"MEDIUM_PACKAGE": true,
	"LARGE_PACKAGE":  true,
	"FRAGILE":        true,
	"OTHER":          true,
}

// statusTransitions is the courier-driven progression. Any pair not listed
// here is refused.
var statusTransitions = map[string]string{
	repository.OrderAccepted:  repository.OrderPickedUp,
	repository.OrderPickedUp:  repository.OrderInTransit,
	repository.OrderInTransit: repository.OrderDelivered,
}

// OrderInput is the request data for a new delivery order.
type OrderInput struct {
	PickupAddress             string
	PickupLatitude            *float64
	PickupLongitude           *float64
	DropoffAddress            string
	DropoffLatitude           *float64
	DropoffLongitude          *float64
	RecipientName             string
	RecipientEmail            string
	RecipientPhone            string
	RecipientAlternatePhone   string
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
}

// StatusUpdateInput moves an accepted order along its lifecycle.
type StatusUpdateInput struct {
	Status    string
	Location  string
	Latitude  *float64
	Longitude *float64
	Notes     string
}

// OrderDetail is an order with its most recent tracking entries.
type OrderDetail struct {
	Order    *repository.Order
	Tracking []*repository.TrackingEntry
}

// OrderService runs the parcel delivery lifecycle from creation through
// courier hand-off and completion.
type OrderService interface {
	Create(ctx context.Context, senderID int64, input OrderInput) (*repository.Order, error)
	Confirm(ctx context.Context, senderID, orderID int64) (*repository.Order, error)
	List(ctx context.Context, userID int64, userType string, status *string, limit, offset int) ([]*repository.Order, error)
	Get(ctx context.Context, userID int64, userType string, orderID int64) (*OrderDetail, error)
	Track(ctx context.Context, userID int64, userType string, orderID int64) ([]*repository.TrackingEntry, error)
	Cancel(ctx context.Context, senderID, orderID int64) (*repository.Order, error)
	Available(ctx context.Context, courierID int64) ([]*repository.Order, error)
	Accept(ctx context.Context, courierID, orderID int64) (*repository.Order, error)
	Reject(ctx context.Context, courierID, orderID int64) error
	UpdateStatus(ctx context.Context, courierID, orderID int64, input StatusUpdateInput) (*repository.Order, error)
	// ReofferExpired re-runs offer assignment for AVAILABLE orders whose
	// offer window lapsed. Used by the background sweeper.
	ReofferExpired(ctx context.Context, limit int) (int, error)
}

type orderService struct {
	orders   repository.OrderRepository
	tracking repository.TrackingRepository
	users    repository.UserRepository
	notices  repository.NotificationRepository
	notify   notifier.Service
}

// NewOrderService assembles the delivery order flows.
func NewOrderService(
	orders repository.OrderRepository,
	tracking repository.TrackingRepository,
	users repository.UserRepository,
	notices repository.NotificationRepository,
	notify notifier.Service,
) OrderService {
	return &orderService{
		orders:   orders,
		tracking: tracking,
		users:    users,
		notices:  notices,
		notify:   notify,
	}
}

func (s *orderService) Create(ctx context.Context, senderID int64, input OrderInput) (*repository.Order, error) {
	if input.PickupAddress == "" || input.DropoffAddress == "" {
		return nil, fmt.Errorf("%w: pickup and dropoff addresses are required", ErrValidation)
	}
	if input.RecipientName == "" || input.RecipientPhone == "" {
		return nil, fmt.Errorf("%w: recipient name and phone are required", ErrValidation)
	}
	if !parcelTypes[input.ParcelType] {
		return nil, fmt.Errorf("%w: unknown parcel type %q", ErrValidation, input.ParcelType)
	}
	if len(input.ParcelImages) > 5 {
		return nil, fmt.Errorf("%w: at most 5 parcel images", ErrValidation)
	}
	if input.ParcelQuantity < 1 {
		input.ParcelQuantity = 1
	}

	order := &repository.Order{
		OrderNumber:               newOrderNumber(),
		TrackingNumber:            newTrackingNumber(),
		SenderID:                  senderID,
		PickupAddress:             sanitizeText(input.PickupAddress),
		PickupLatitude:            input.PickupLatitude,
		PickupLongitude:           input.PickupLongitude,
		DropoffAddress:            sanitizeText(input.DropoffAddress),
		DropoffLatitude:           input.DropoffLatitude,
		DropoffLongitude:          input.DropoffLongitude,
		RecipientName:             sanitizeText(input.RecipientName),
		RecipientPhone:            normalizePhone(input.RecipientPhone),
		DeliveryInstructions:      sanitizeText(input.DeliveryInstructions),
		RequireRecipientSignature: input.RequireRecipientSignature,
		ParcelType:                input.ParcelType,
		ParcelDescription:         sanitizeText(input.ParcelDescription),
		ParcelCondition:           sanitizeText(input.ParcelCondition),
		ParcelQuantity:            input.ParcelQuantity,
		ParcelWeightKG:            input.ParcelWeightKG,
		ParcelWorthKobo:           input.ParcelWorthKobo,
		ParcelImages:              input.ParcelImages,
		DeliveryFeeKobo:           input.DeliveryFeeKobo,
		ServiceChargeKobo:         input.ServiceChargeKobo,
		InsuranceFeeKobo:          input.InsuranceFeeKobo,
		TotalAmountKobo:           input.DeliveryFeeKobo + input.ServiceChargeKobo + input.InsuranceFeeKobo,
		PaymentStatus:             repository.OrderPaymentPending,
		Status:                    repository.OrderPending,
	}
	if !isValidPhone(order.RecipientPhone) {
		return nil, ErrInvalidPhone
	}
	if email := normalizeEmail(input.RecipientEmail); email != "" {
		if !isValidEmail(email) {
			return nil, ErrInvalidEmail
		}
		order.RecipientEmail = &email
	}
	if alt := normalizePhone(input.RecipientAlternatePhone); alt != "" {
		if !isValidPhone(alt) {
			return nil, ErrInvalidPhone
		}
		order.RecipientAlternatePhone = &alt
	}

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.appendTracking(ctx, created.ID, created.Status, "", nil, nil, "Order created and awaiting confirmation")
	return created, nil
}

func (s *orderService) Confirm(ctx context.Context, senderID, orderID int64) (*repository.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SenderID != senderID {
		return nil, ErrForbidden
	}
	if order.Status != repository.OrderPending {
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, order.Status)
	}
	if order.PaymentStatus != repository.OrderPaymentPaid {
		return nil, ErrPaymentRequired
	}

	order.Status = repository.OrderAvailable
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	s.appendTracking(ctx, order.ID, order.Status, "", nil, nil, "Order confirmed and open for couriers")

	if err := s.assignOffers(ctx, order, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// assignOffers picks up to five random eligible couriers, excluding any ids
// in skip, and opens a fresh 24 hour offer window.
func (s *orderService) assignOffers(ctx context.Context, order *repository.Order, skip []int64) error {
	candidates, err := s.users.ListActiveCourierIDs(ctx)
	if err != nil {
		return fmt.Errorf("list couriers: %w", err)
	}
	skipped := make(map[int64]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}
	eligible := candidates[:0]
	for _, id := range candidates {
		if !skipped[id] {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	// The package-level shuffle is safe for the concurrent callers here:
	// request handlers and the offer sweeper both run assignOffers.
	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if len(eligible) > offerBatchSize {
		eligible = eligible[:offerBatchSize]
	}

	expiresAt := time.Now().Add(offerWindow).Unix()
	if err := s.orders.OfferToCouriers(ctx, order.ID, eligible, expiresAt); err != nil {
		return fmt.Errorf("store offers: %w", err)
	}
	order.OfferExpiresAt = &expiresAt
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save offer window: %w", err)
	}
	for _, courierID := range eligible {
		s.appendTracking(ctx, order.ID, order.Status, "", nil, nil,
			"Order offered to courier #"+strconv.FormatInt(courierID, 10))
	}
	return nil
}

func (s *orderService) List(ctx context.Context, userID int64, userType string, status *string, limit, offset int) ([]*repository.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	filter := repository.OrderFilter{Status: status, Limit: limit, Offset: offset}
	if userType == repository.UserTypeCourier {
		filter.CourierID = &userID
	} else {
		filter.SenderID = &userID
	}
	return s.orders.List(ctx, filter)
}

func (s *orderService) Get(ctx context.Context, userID int64, userType string, orderID int64) (*OrderDetail, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(order, userID, userType); err != nil {
		return nil, err
	}
	entries, err := s.tracking.ListForOrder(ctx, order.ID, trackingTailSize)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, Tracking: entries}, nil
}

func (s *orderService) Track(ctx context.Context, userID int64, userType string, orderID int64) ([]*repository.TrackingEntry, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(order, userID, userType); err != nil {
		return nil, err
	}
	return s.tracking.ListForOrder(ctx, order.ID, 0)
}

func (s *orderService) authorize(order *repository.Order, userID int64, userType string) error {
	if order.SenderID == userID {
		return nil
	}
	if userType == repository.UserTypeCourier &&
		order.AssignedCourierID != nil && *order.AssignedCourierID == userID {
		return nil
	}
	return ErrForbidden
}

func (s *orderService) Cancel(ctx context.Context, senderID, orderID int64) (*repository.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SenderID != senderID {
		return nil, ErrForbidden
	}
	if order.Status != repository.OrderPending && order.Status != repository.OrderAvailable {
		return nil, ErrOrderNotCancellable
	}

	now := time.Now().Unix()
	order.Status = repository.OrderCancelled
	order.CancelledAt = &now
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	_ = s.orders.ClearOffers(ctx, order.ID)
	s.appendTracking(ctx, order.ID, order.Status, "", nil, nil, "Order cancelled by sender")
	return order, nil
}

func (s *orderService) Available(ctx context.Context, courierID int64) ([]*repository.Order, error) {
	return s.orders.ListAvailableForCourier(ctx, courierID, availableMaximum)
}

func (s *orderService) Accept(ctx context.Context, courierID, orderID int64) (*repository.Order, error) {
	offered, err := s.orders.HasOffer(ctx, orderID, courierID)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, ErrNoOffer
	}

	won, err := s.orders.Accept(ctx, orderID, courierID, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("accept order: %w", err)
	}
	if !won {
		return nil, ErrOrderNotAvailable
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.appendTracking(ctx, order.ID, order.Status, "", nil, nil,
		"Order accepted by courier #"+strconv.FormatInt(courierID, 10))
	return order, nil
}

func (s *orderService) Reject(ctx context.Context, courierID, orderID int64) error {
	if _, err := s.findOrder(ctx, orderID); err != nil {
		return err
	}
	return s.orders.RemoveOffer(ctx, orderID, courierID)
}

func (s *orderService) UpdateStatus(ctx context.Context, courierID, orderID int64, input StatusUpdateInput) (*repository.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AssignedCourierID == nil || *order.AssignedCourierID != courierID {
		return nil, ErrForbidden
	}
	if statusTransitions[order.Status] != input.Status {
		return nil, fmt.Errorf("%w: %s cannot move to %s", ErrInvalidTransition, order.Status, input.Status)
	}

	now := time.Now().Unix()
	order.Status = input.Status
	switch input.Status {
	case repository.OrderPickedUp:
		order.PickedUpAt = &now
	case repository.OrderDelivered:
		order.DeliveredAt = &now
	}
	if input.Location != "" {
		order.CurrentLocation = sanitizeText(input.Location)
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	s.appendTracking(ctx, order.ID, order.Status, input.Location, input.Latitude, input.Longitude, sanitizeText(input.Notes))

	if input.Status == repository.OrderDelivered {
		s.notifyDelivered(ctx, order)
	}
	return order, nil
}

func (s *orderService) notifyDelivered(ctx context.Context, order *repository.Order) {
	if s.notices != nil {
		_, _ = s.notices.Create(ctx, &repository.Notification{
			UserID:  order.SenderID,
			Type:    repository.NotifyOther,
			Title:   "Order delivered",
			Message: fmt.Sprintf("Your order %s has been delivered.", order.OrderNumber),
		})
	}
	if s.notify == nil {
		return
	}
	sender, err := s.users.FindByID(ctx, order.SenderID)
	if err != nil {
		return
	}
	_ = s.notify.SendEmail(ctx, notifier.EmailRequest{
		To:       sender.Email,
		Template: "order_delivered",
		Data: map[string]any{
			"order_number":    order.OrderNumber,
			"tracking_number": order.TrackingNumber,
		},
	})
}

func (s *orderService) ReofferExpired(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	orders, err := s.orders.ListWithExpiredOffers(ctx, time.Now().Unix(), limit)
	if err != nil {
		return 0, err
	}
	reoffered := 0
	for _, order := range orders {
		previous, err := s.orders.OfferedCourierIDs(ctx, order.ID)
		if err != nil {
			return reoffered, err
		}
		if err := s.orders.ClearOffers(ctx, order.ID); err != nil {
			return reoffered, err
		}
		if err := s.assignOffers(ctx, order, previous); err != nil {
			return reoffered, err
		}
		s.appendTracking(ctx, order.ID, order.Status, "", nil, nil, "Offer window expired, order re-offered")
		reoffered++
	}
	return reoffered, nil
}

func (s *orderService) findOrder(ctx context.Context, orderID int64) (*repository.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) appendTracking(ctx context.Context, orderID int64, status, location string, lat, lng *float64, notes string) {
	_, _ = s.tracking.Append(ctx, &repository.TrackingEntry{
		OrderID:   orderID,
		Status:    status,
		Location:  location,
		Latitude:  lat,
		Longitude: lng,
		Notes:     notes,
		CreatedAt: time.Now().Unix(),
	})
}
