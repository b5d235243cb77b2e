package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/notifier"
	"github.com/xcellar/xcellar/internal/repository"
)

// fakeOrders is an in-memory order store with the offer bookkeeping the
// service relies on.
type fakeOrders struct {
	repository.OrderRepository
	mu     sync.Mutex
	orders map[int64]*repository.Order
	offers map[int64]map[int64]int64 // orderID -> courierID -> expiresAt
	nextID int64
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders: make(map[int64]*repository.Order),
		offers: make(map[int64]map[int64]int64),
	}
}

func (f *fakeOrders) Create(_ context.Context, order *repository.Order) (*repository.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	clone := *order
	clone.ID = f.nextID
	clone.CreatedAt = time.Now().Unix()
	f.orders[clone.ID] = &clone
	return &clone, nil
}

func (f *fakeOrders) FindByID(_ context.Context, id int64) (*repository.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrders) Save(_ context.Context, order *repository.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrders) List(_ context.Context, filter repository.OrderFilter) ([]*repository.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Order
	for _, o := range f.orders {
		if filter.SenderID != nil && o.SenderID != *filter.SenderID {
			continue
		}
		if filter.CourierID != nil && (o.AssignedCourierID == nil || *o.AssignedCourierID != *filter.CourierID) {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		clone := *o
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeOrders) Accept(_ context.Context, orderID, courierID int64, at int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if order.Status != repository.OrderAvailable || order.AssignedCourierID != nil {
		return false, nil
	}
	order.Status = repository.OrderAccepted
	order.AssignedCourierID = &courierID
	order.UpdatedAt = at
	return true, nil
}

func (f *fakeOrders) OfferToCouriers(_ context.Context, orderID int64, courierIDs []int64, expiresAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.offers[orderID]
	if set == nil {
		set = make(map[int64]int64)
		f.offers[orderID] = set
	}
	for _, id := range courierIDs {
		set[id] = expiresAt
	}
	return nil
}

func (f *fakeOrders) OfferedCourierIDs(_ context.Context, orderID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id := range f.offers[orderID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeOrders) HasOffer(_ context.Context, orderID, courierID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	expiresAt, ok := f.offers[orderID][courierID]
	return ok && expiresAt > time.Now().Unix(), nil
}

func (f *fakeOrders) RemoveOffer(_ context.Context, orderID, courierID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.offers[orderID], courierID)
	return nil
}

func (f *fakeOrders) ClearOffers(_ context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.offers, orderID)
	return nil
}

func (f *fakeOrders) ListAvailableForCourier(_ context.Context, courierID int64, _ int) ([]*repository.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().Unix()
	var out []*repository.Order
	for orderID, set := range f.offers {
		if expiresAt, ok := set[courierID]; ok && expiresAt > now {
			clone := *f.orders[orderID]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListWithExpiredOffers(_ context.Context, nowUnix int64, _ int) ([]*repository.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Order
	seen := map[int64]bool{}
	for orderID, set := range f.offers {
		for _, expiresAt := range set {
			if expiresAt < nowUnix && !seen[orderID] {
				seen[orderID] = true
				clone := *f.orders[orderID]
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

// fakeTracking records appended entries in order.
type fakeTracking struct {
	repository.TrackingRepository
	mu      sync.Mutex
	entries []*repository.TrackingEntry
}

func (f *fakeTracking) Append(_ context.Context, entry *repository.TrackingEntry) (*repository.TrackingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *entry
	clone.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, &clone)
	return &clone, nil
}

func (f *fakeTracking) ListForOrder(_ context.Context, orderID int64, limit int) ([]*repository.TrackingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.TrackingEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].OrderID == orderID {
			out = append(out, f.entries[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeTracking) lastNote(orderID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].OrderID == orderID {
			return f.entries[i].Notes
		}
	}
	return ""
}

// fakeOrderUsers serves the courier candidate pool and sender lookups.
type fakeOrderUsers struct {
	repository.UserRepository
	couriers []int64
	users    map[int64]*repository.User
}

func (f *fakeOrderUsers) ListActiveCourierIDs(_ context.Context) ([]int64, error) {
	return append([]int64(nil), f.couriers...), nil
}

func (f *fakeOrderUsers) FindByID(_ context.Context, id int64) (*repository.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

// fakeNotices collects created notifications.
type fakeNotices struct {
	repository.NotificationRepository
	created []*repository.Notification
}

func (f *fakeNotices) Create(_ context.Context, n *repository.Notification) (*repository.Notification, error) {
	clone := *n
	clone.ID = int64(len(f.created) + 1)
	f.created = append(f.created, &clone)
	return &clone, nil
}

type orderFixture struct {
	svc      OrderService
	orders   *fakeOrders
	tracking *fakeTracking
	users    *fakeOrderUsers
	notices  *fakeNotices
	notify   *notifier.LoggerService
}

func newOrderFixture(couriers ...int64) *orderFixture {
	orders := newFakeOrders()
	tracking := &fakeTracking{}
	users := &fakeOrderUsers{
		couriers: couriers,
		users: map[int64]*repository.User{
			1: {ID: 1, Email: "sender@example.com", UserType: repository.UserTypeCustomer},
		},
	}
	notices := &fakeNotices{}
	notify := notifier.NewLoggerService(nil)
	return &orderFixture{
		svc:      NewOrderService(orders, tracking, users, notices, notify),
		orders:   orders,
		tracking: tracking,
		users:    users,
		notices:  notices,
		notify:   notify,
	}
}

func validOrderInput() OrderInput {
	return OrderInput{
		PickupAddress:     "12 Marina Road, Lagos",
		DropoffAddress:    "4 Allen Avenue, Ikeja",
		RecipientName:     "Ada Obi",
		RecipientPhone:    "08031234567",
		ParcelType:        "SMALL_PACKAGE",
		ParcelDescription: "Books",
		ParcelQuantity:    2,
		ParcelWeightKG:    1.5,
		ParcelWorthKobo:   500_000,
		DeliveryFeeKobo:   150_000,
		ServiceChargeKobo: 15_000,
		InsuranceFeeKobo:  5_000,
	}
}

func (f *orderFixture) createConfirmed(t *testing.T, senderID int64) *repository.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), senderID, validOrderInput())
	require.NoError(t, err)

	stored := f.orders.orders[order.ID]
	stored.PaymentStatus = repository.OrderPaymentPaid

	confirmed, err := f.svc.Confirm(context.Background(), senderID, order.ID)
	require.NoError(t, err)
	return confirmed
}

func TestOrderCreate(t *testing.T) {
	f := newOrderFixture()

	order, err := f.svc.Create(context.Background(), 1, validOrderInput())
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-`, order.OrderNumber)
	assert.Regexp(t, `^TRK-`, order.TrackingNumber)
	assert.Equal(t, repository.OrderPending, order.Status)
	assert.Equal(t, repository.OrderPaymentPending, order.PaymentStatus)
	assert.Equal(t, "+2348031234567", order.RecipientPhone)
	assert.EqualValues(t, 170_000, order.TotalAmountKobo)
	assert.Len(t, f.tracking.entries, 1)
}

func TestOrderCreateValidation(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	input := validOrderInput()
	input.PickupAddress = ""
	_, err := f.svc.Create(ctx, 1, input)
	assert.ErrorIs(t, err, ErrValidation)

	input = validOrderInput()
	input.ParcelType = "LIVESTOCK"
	_, err = f.svc.Create(ctx, 1, input)
	assert.ErrorIs(t, err, ErrValidation)

	input = validOrderInput()
	input.RecipientPhone = "12"
	_, err = f.svc.Create(ctx, 1, input)
	assert.ErrorIs(t, err, ErrInvalidPhone)

	input = validOrderInput()
	input.ParcelImages = []string{"a", "b", "c", "d", "e", "f"}
	_, err = f.svc.Create(ctx, 1, input)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderConfirmRequiresPayment(t *testing.T) {
	f := newOrderFixture(10)
	order, err := f.svc.Create(context.Background(), 1, validOrderInput())
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, ErrPaymentRequired)

	_, err = f.svc.Confirm(context.Background(), 2, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOrderConfirmOpensOffers(t *testing.T) {
	f := newOrderFixture(10, 11, 12, 13, 14, 15, 16)

	order := f.createConfirmed(t, 1)
	assert.Equal(t, repository.OrderAvailable, order.Status)
	require.NotNil(t, order.OfferExpiresAt)

	offered, err := f.orders.OfferedCourierIDs(context.Background(), order.ID)
	require.NoError(t, err)
	// Offers go to at most five of the seven candidates.
	assert.Len(t, offered, 5)
}

func TestOrderConfirmTwice(t *testing.T) {
	f := newOrderFixture(10)
	order := f.createConfirmed(t, 1)

	_, err := f.svc.Confirm(context.Background(), 1, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderAccept(t *testing.T) {
	f := newOrderFixture(10)
	order := f.createConfirmed(t, 1)

	accepted, err := f.svc.Accept(context.Background(), 10, order.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.OrderAccepted, accepted.Status)
	require.NotNil(t, accepted.AssignedCourierID)
	assert.EqualValues(t, 10, *accepted.AssignedCourierID)
}

func TestOrderAcceptWithoutOffer(t *testing.T) {
	f := newOrderFixture(10)
	order := f.createConfirmed(t, 1)

	_, err := f.svc.Accept(context.Background(), 99, order.ID)
	assert.ErrorIs(t, err, ErrNoOffer)
}

func TestOrderAcceptRace(t *testing.T) {
	f := newOrderFixture(10, 11)
	order := f.createConfirmed(t, 1)

	offered, err := f.orders.OfferedCourierIDs(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, offered, 2)

	_, err = f.svc.Accept(context.Background(), offered[0], order.ID)
	require.NoError(t, err)

	// The second courier still holds an offer but the order is already
	// taken. The conditional update loses, never double-assigns.
	_, err = f.svc.Accept(context.Background(), offered[1], order.ID)
	assert.ErrorIs(t, err, ErrOrderNotAvailable)
}

func TestOrderAcceptAfterWindowLapse(t *testing.T) {
	f := newOrderFixture(10)
	order := f.createConfirmed(t, 1)
	ctx := context.Background()

	// Between the window lapsing and the sweeper re-offering, the order
	// neither appears in the feed nor satisfies the accept check.
	for courierID := range f.orders.offers[order.ID] {
		f.orders.offers[order.ID][courierID] = time.Now().Add(-time.Hour).Unix()
	}

	available, err := f.svc.Available(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = f.svc.Accept(ctx, 10, order.ID)
	assert.ErrorIs(t, err, ErrNoOffer)
}

func TestOrderConfirmConcurrent(t *testing.T) {
	f := newOrderFixture(10, 11, 12, 13, 14, 15)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 2; i++ {
		order, err := f.svc.Create(ctx, 1, validOrderInput())
		require.NoError(t, err)
		f.orders.orders[order.ID].PaymentStatus = repository.OrderPaymentPaid
		ids = append(ids, order.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, orderID := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Confirm(ctx, 1, orderID)
		}()
	}
	wg.Wait()

	for i, orderID := range ids {
		require.NoError(t, errs[i])
		offered, err := f.orders.OfferedCourierIDs(ctx, orderID)
		require.NoError(t, err)
		assert.NotEmpty(t, offered)
	}
}

func TestOrderRejectRemovesOffer(t *testing.T) {
	f := newOrderFixture(10)
	order := f.createConfirmed(t, 1)

	require.NoError(t, f.svc.Reject(context.Background(), 10, order.ID))

	offered, err := f.orders.HasOffer(context.Background(), order.ID, 10)
	require.NoError(t, err)
	assert.False(t, offered)
}

func TestOrderStatusProgression(t *testing.T) {
	f := newOrderFixture(10)
	order := f.createConfirmed(t, 1)
	ctx := context.Background()

	_, err := f.svc.Accept(ctx, 10, order.ID)
	require.NoError(t, err)

	// Skipping a step is refused.
	_, err = f.svc.UpdateStatus(ctx, 10, order.ID, StatusUpdateInput{Status: repository.OrderDelivered})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := f.svc.UpdateStatus(ctx, 10, order.ID, StatusUpdateInput{Status: repository.OrderPickedUp, Location: "Marina Road"})
	require.NoError(t, err)
	assert.Equal(t, repository.OrderPickedUp, updated.Status)
	assert.NotNil(t, updated.PickedUpAt)
	assert.Equal(t, "Marina Road", updated.CurrentLocation)

	_, err = f.svc.UpdateStatus(ctx, 10, order.ID, StatusUpdateInput{Status: repository.OrderInTransit})
	require.NoError(t, err)

	delivered, err := f.svc.UpdateStatus(ctx, 10, order.ID, StatusUpdateInput{Status: repository.OrderDelivered})
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	// The sender gets an in-app notification on delivery.
	require.Len(t, f.notices.created, 1)
	assert.EqualValues(t, 1, f.notices.created[0].UserID)
}

func TestOrderStatusOnlyAssignedCourier(t *testing.T) {
	f := newOrderFixture(10)
	order := f.createConfirmed(t, 1)
	ctx := context.Background()

	_, err := f.svc.Accept(ctx, 10, order.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, 99, order.ID, StatusUpdateInput{Status: repository.OrderPickedUp})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOrderCancelRules(t *testing.T) {
	f := newOrderFixture(10)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, 1, validOrderInput())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, 1, order.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.OrderCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	// Once a courier holds the order, cancellation is refused.
	order2 := f.createConfirmed(t, 1)
	_, err = f.svc.Accept(ctx, 10, order2.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, 1, order2.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestOrderGetAuthorization(t *testing.T) {
	f := newOrderFixture(10)
	order := f.createConfirmed(t, 1)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, 1, repository.UserTypeCustomer, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, 2, repository.UserTypeCustomer, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// The assigned courier can read the order, an unrelated one cannot.
	_, err = f.svc.Accept(ctx, 10, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, 10, repository.UserTypeCourier, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, 11, repository.UserTypeCourier, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReofferExpiredSkipsPreviousCouriers(t *testing.T) {
	f := newOrderFixture(10, 11)
	order := f.createConfirmed(t, 1)
	ctx := context.Background()

	// Force the offer window into the past.
	for courierID := range f.orders.offers[order.ID] {
		f.orders.offers[order.ID][courierID] = time.Now().Add(-time.Hour).Unix()
	}

	// Only the two original couriers exist, so after skipping them the
	// pool is empty and the order keeps waiting.
	reoffered, err := f.svc.ReofferExpired(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, reoffered)

	offered, err := f.orders.OfferedCourierIDs(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, offered)

	// With fresh couriers available the sweep re-offers to them.
	order2 := f.createConfirmed(t, 1)
	previous, err := f.orders.OfferedCourierIDs(ctx, order2.ID)
	require.NoError(t, err)
	for courierID := range f.orders.offers[order2.ID] {
		f.orders.offers[order2.ID][courierID] = time.Now().Add(-time.Hour).Unix()
	}
	f.users.couriers = []int64{10, 11, 20, 21}

	_, err = f.svc.ReofferExpired(ctx, 10)
	require.NoError(t, err)

	next, err := f.orders.OfferedCourierIDs(ctx, order2.ID)
	require.NoError(t, err)
	for _, id := range next {
		assert.NotContains(t, previous, id)
	}
	assert.NotEmpty(t, next)
}
