package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/xcellar/xcellar/internal/migrations"
	"github.com/xcellar/xcellar/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	// In-memory databases vanish when their sole connection closes.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Up(db))
	return NewStore(db)
}

func createTestUser(t *testing.T, store *Store, email, userType string) *repository.User {
	t.Helper()
	user, err := store.Users().Create(context.Background(), &repository.User{
		Email:    email,
		Password: "$2a$10$fakefakefakefakefakefake",
		UserType: userType,
		IsActive: true,
	})
	require.NoError(t, err)
	return user
}

func TestUserCreateAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "jane@example.com", repository.UserTypeCustomer)
	assert.NotZero(t, user.ID)

	found, err := store.Users().FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = store.Users().FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The email column is unique.
	_, err = store.Users().Create(ctx, &repository.User{
		Email:    "jane@example.com",
		Password: "x",
		UserType: repository.UserTypeCustomer,
		IsActive: true,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestWalletBalanceGuards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "wallet@example.com", repository.UserTypeCustomer)

	ok, err := store.Users().AdjustBalance(ctx, user.ID, 100_000)
	require.NoError(t, err)
	assert.True(t, ok)

	balance, err := store.Users().Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100_000, balance)

	// A debit past zero is refused and leaves the balance untouched.
	ok, err = store.Users().AdjustBalance(ctx, user.ID, -150_000)
	require.NoError(t, err)
	assert.False(t, ok)

	balance, err = store.Users().Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100_000, balance)

	ok, err = store.Users().AdjustBalance(ctx, user.ID, -100_000)
	require.NoError(t, err)
	assert.True(t, ok)
}

func seedCatalog(t *testing.T, store *Store) (*repository.Shop, *repository.Product) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Unix()

	category, err := store.Categories().Create(ctx, &repository.Category{
		Name: "Groceries", Slug: "groceries", IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	shop, err := store.Shops().Create(ctx, &repository.Shop{
		Name: "Corner Shop", Slug: "corner-shop", IsActive: true, IsVerified: true,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	product, err := store.Products().Create(ctx, &repository.Product{
		ShopID: shop.ID, CategoryID: category.ID,
		Name: "Rice 5kg", Slug: "rice-5kg", SKU: "SKU-RICE-5",
		PriceKobo: 850_000, StockQuantity: 10, IsAvailable: true,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return shop, product
}

func TestCartUpsertAndStaleCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "cart@example.com", repository.UserTypeCustomer)
	_, product := seedCatalog(t, store)

	cart, err := store.Carts().Create(ctx, user.ID)
	require.NoError(t, err)

	item, err := store.Carts().UpsertItem(ctx, cart.ID, product.ID, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, item.Quantity)

	// A repeat upsert adds to the existing line instead of duplicating it.
	item, err = store.Carts().UpsertItem(ctx, cart.ID, product.ID, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, item.Quantity)

	items, err := store.Carts().Items(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	lines, err := store.Carts().Lines(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 850_000, lines[0].UnitPriceKobo)
	assert.EqualValues(t, 10, lines[0].StockQuantity)

	// Cleanup only removes carts untouched since the cutoff.
	deleted, err := store.Carts().DeleteStale(ctx, time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = store.Carts().DeleteStale(ctx, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = store.Carts().FindByUser(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckoutDecrementsStockAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "buyer@example.com", repository.UserTypeCustomer)
	_, product := seedCatalog(t, store)

	cart, err := store.Carts().Create(ctx, user.ID)
	require.NoError(t, err)
	_, err = store.Carts().UpsertItem(ctx, cart.ID, product.ID, 4)
	require.NoError(t, err)
	lines, err := store.Carts().Lines(ctx, cart.ID)
	require.NoError(t, err)

	order := &repository.Order{
		OrderNumber:    "ORD-itest1",
		TrackingNumber: "TRK-itest1",
		SenderID:       user.ID,
		PickupAddress:  "Shop",
		DropoffAddress: "Home",
		RecipientName:  "Jane",
		RecipientPhone: "+2348031234567",
		ParcelType:     "SMALL_PACKAGE",
		ParcelQuantity: 1,
		PaymentStatus:  repository.OrderPaymentPending,
		Status:         repository.OrderPending,
	}
	created, err := store.Orders().CreateFromCart(ctx, order, cart.ID, lines)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	refetched, err := store.Products().FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, refetched.StockQuantity)

	items, err := store.Carts().Items(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Short stock fails the whole checkout and rolls back.
	_, err = store.Carts().UpsertItem(ctx, cart.ID, product.ID, 100)
	require.NoError(t, err)
	lines, err = store.Carts().Lines(ctx, cart.ID)
	require.NoError(t, err)
	order2 := *order
	order2.OrderNumber = "ORD-itest2"
	order2.TrackingNumber = "TRK-itest2"
	_, err = store.Orders().CreateFromCart(ctx, &order2, cart.ID, lines)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	refetched, err = store.Products().FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, refetched.StockQuantity)
}

func TestOrderAcceptIsConditional(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sender := createTestUser(t, store, "sender@example.com", repository.UserTypeCustomer)
	courierA := createTestUser(t, store, "courier.a@example.com", repository.UserTypeCourier)
	courierB := createTestUser(t, store, "courier.b@example.com", repository.UserTypeCourier)

	order, err := store.Orders().Create(ctx, &repository.Order{
		OrderNumber:    "ORD-race",
		TrackingNumber: "TRK-race",
		SenderID:       sender.ID,
		PickupAddress:  "A",
		DropoffAddress: "B",
		RecipientName:  "Jane",
		RecipientPhone: "+2348031234567",
		ParcelType:     "DOCUMENT",
		ParcelQuantity: 1,
		PaymentStatus:  repository.OrderPaymentPaid,
		Status:         repository.OrderAvailable,
	})
	require.NoError(t, err)

	expiresAt := time.Now().Add(time.Hour).Unix()
	require.NoError(t, store.Orders().OfferToCouriers(ctx, order.ID, []int64{courierA.ID, courierB.ID}, expiresAt))

	offered, err := store.Orders().OfferedCourierIDs(ctx, order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{courierA.ID, courierB.ID}, offered)

	won, err := store.Orders().Accept(ctx, order.ID, courierA.ID, time.Now().Unix())
	require.NoError(t, err)
	assert.True(t, won)

	// Second accept affects zero rows.
	won, err = store.Orders().Accept(ctx, order.ID, courierB.ID, time.Now().Unix())
	require.NoError(t, err)
	assert.False(t, won)

	stored, err := store.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedCourierID)
	assert.Equal(t, courierA.ID, *stored.AssignedCourierID)
	assert.Equal(t, repository.OrderAccepted, stored.Status)
}

func TestLapsedOffersAreInvisible(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sender := createTestUser(t, store, "sender@example.com", repository.UserTypeCustomer)
	courier := createTestUser(t, store, "courier@example.com", repository.UserTypeCourier)

	order, err := store.Orders().Create(ctx, &repository.Order{
		OrderNumber:    "ORD-lapsed",
		TrackingNumber: "TRK-lapsed",
		SenderID:       sender.ID,
		PickupAddress:  "A",
		DropoffAddress: "B",
		RecipientName:  "Jane",
		RecipientPhone: "+2348031234567",
		ParcelType:     "DOCUMENT",
		ParcelQuantity: 1,
		PaymentStatus:  repository.OrderPaymentPaid,
		Status:         repository.OrderAvailable,
	})
	require.NoError(t, err)

	// Offer window lapsed an hour ago; the order still sits AVAILABLE
	// until the sweeper re-offers it.
	expired := time.Now().Add(-time.Hour).Unix()
	require.NoError(t, store.Orders().OfferToCouriers(ctx, order.ID, []int64{courier.ID}, expired))

	available, err := store.Orders().ListAvailableForCourier(ctx, courier.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, available)

	offered, err := store.Orders().HasOffer(ctx, order.ID, courier.ID)
	require.NoError(t, err)
	assert.False(t, offered)

	// A fresh window makes the same offer visible again.
	fresh := time.Now().Add(time.Hour).Unix()
	require.NoError(t, store.Orders().OfferToCouriers(ctx, order.ID, []int64{courier.ID}, fresh))

	available, err = store.Orders().ListAvailableForCourier(ctx, courier.ID, 10)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, order.ID, available[0].ID)

	offered, err = store.Orders().HasOffer(ctx, order.ID, courier.ID)
	require.NoError(t, err)
	assert.True(t, offered)
}

func TestWebhookEventDedupe(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event, err := store.WebhookEvents().Create(ctx, &repository.WebhookEvent{
		EventType: "charge.success",
		Reference: "TXN_a",
		DedupeKey: "charge.success:TXN_a:1",
		Payload:   []byte(`{}`),
	})
	require.NoError(t, err)

	// A failed apply leaves the row open for reprocessing.
	require.NoError(t, store.WebhookEvents().MarkFailed(ctx, event.ID, time.Now().Unix(), "credit failed"))
	open, err := store.WebhookEvents().FindByDedupeKey(ctx, "charge.success:TXN_a:1")
	require.NoError(t, err)
	assert.False(t, open.Processed)
	require.NotNil(t, open.Error)
	assert.Equal(t, "credit failed", *open.Error)

	require.NoError(t, store.WebhookEvents().MarkProcessed(ctx, event.ID, time.Now().Unix()))
	done, err := store.WebhookEvents().FindByDedupeKey(ctx, "charge.success:TXN_a:1")
	require.NoError(t, err)
	assert.True(t, done.Processed)
	assert.Nil(t, done.Error)

	_, err = store.WebhookEvents().Create(ctx, &repository.WebhookEvent{
		EventType: "charge.success",
		Reference: "TXN_a",
		DedupeKey: "charge.success:TXN_a:1",
		Payload:   []byte(`{}`),
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestTransactionSettlement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "pay@example.com", repository.UserTypeCustomer)

	txn, err := store.Transactions().Create(ctx, &repository.Transaction{
		UserID:        user.ID,
		Type:          repository.TxnDeposit,
		Status:        repository.TxnPending,
		AmountKobo:    200_000,
		NetAmountKobo: 200_000,
		Reference:     "TXN_settle",
	})
	require.NoError(t, err)

	credited, err := store.Transactions().MarkSuccessAndCredit(ctx, txn.ID, time.Now().Unix())
	require.NoError(t, err)
	assert.True(t, credited)

	balance, err := store.Users().Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 200_000, balance)

	// Settling twice is a no-op.
	credited, err = store.Transactions().MarkSuccessAndCredit(ctx, txn.ID, time.Now().Unix())
	require.NoError(t, err)
	assert.False(t, credited)

	balance, err = store.Users().Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 200_000, balance)
}

func TestNotificationsMarkRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "notice@example.com", repository.UserTypeCustomer)

	for i := 0; i < 3; i++ {
		_, err := store.Notifications().Create(ctx, &repository.Notification{
			UserID: user.ID, Type: repository.NotifyOther, Title: "t", Message: "m",
		})
		require.NoError(t, err)
	}

	unread, err := store.Notifications().CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	list, err := store.Notifications().List(ctx, repository.NotificationFilter{UserID: user.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 3)

	ok, err := store.Notifications().MarkRead(ctx, list[0].ID, user.ID, time.Now().Unix())
	require.NoError(t, err)
	assert.True(t, ok)

	// Another user cannot mark someone else's notification.
	ok, err = store.Notifications().MarkRead(ctx, list[1].ID, user.ID+1, time.Now().Unix())
	require.NoError(t, err)
	assert.False(t, ok)

	updated, err := store.Notifications().MarkAllRead(ctx, user.ID, time.Now().Unix())
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	unread, err = store.Notifications().CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestShopCategoryFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	shop, product := seedCatalog(t, store)

	shops, err := store.Shops().List(ctx, repository.ShopFilter{CategoryID: &product.CategoryID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, shop.ID, shops[0].ID)

	other := int64(9999)
	shops, err = store.Shops().List(ctx, repository.ShopFilter{CategoryID: &other, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, shops)
}
