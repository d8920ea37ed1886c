package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grocery-orders/models"
	"grocery-orders/store"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, o *models.Order, recipient string, isAdminCopy bool) error {
	args := m.Called(ctx, o, recipient, isAdminCopy)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// recordingStore remembers which headers were written and deleted.
type recordingStore struct {
	*store.Memory
	inserted []string
	deleted  []string
}

func (s *recordingStore) InsertOrder(ctx context.Context, o *models.Order) error {
	s.inserted = append(s.inserted, o.OrderNumber)
	return s.Memory.InsertOrder(ctx, o)
}

func (s *recordingStore) DeleteOrder(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.Memory.DeleteOrder(ctx, id)
}

// txStore adds a transactional create on top of the memory store.
type txStore struct {
	*recordingStore
	txErr error
	txRan bool
}

func (s *txStore) CreateOrderTx(ctx context.Context, o *models.Order, items []models.OrderItem) error {
	s.txRan = true
	if s.txErr != nil {
		return s.txErr
	}
	if err := s.Memory.InsertOrder(ctx, o); err != nil {
		return err
	}
	return s.Memory.InsertItems(ctx, items)
}

type brokenStore struct {
	*store.Memory
}

func (brokenStore) GetOrder(context.Context, string) (*models.Order, error) {
	return nil, errors.New("connection reset by peer")
}

func ptr[T any](v T) *T { return &v }

func pickupInput(user string) CreateOrderInput {
	return CreateOrderInput{
		UserID:          user,
		CustomerName:    "Nimal Perera",
		CustomerPhone:   "0771234567",
		FulfillmentType: models.FulfillmentPickup,
		Subtotal:        decimal.NewFromInt(1200),
		DeliveryFee:     decimal.Zero,
		Total:           decimal.NewFromInt(1200),
		Items: []CartLine{
			{ProductID: "rice-5kg", ProductName: "Rice 5kg", Quantity: 2, PriceAtPurchase: decimal.NewFromInt(600)},
		},
	}
}

func deliveryInput(user string) CreateOrderInput {
	in := pickupInput(user)
	in.FulfillmentType = models.FulfillmentDelivery
	in.DeliveryAddress = ptr("12 Main St, Ambalangoda")
	in.DeliveryLat = ptr(6.2400)
	in.DeliveryLng = ptr(80.0600)
	in.DeliveryDistanceKm = ptr(0.87)
	in.DeliveryFee = decimal.NewFromInt(135)
	in.Total = decimal.NewFromInt(1335)
	return in
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newManager(st OrderStore, n Notifier, p EventPublisher) *OrderManager {
	m := NewOrderManager(st, n, p, "admin@shop.lk", nil)
	c := &clock{t: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
	m.Now = c.now
	m.Location = time.UTC
	return m
}

func TestCreate_PersistsOrderWithItems(t *testing.T) {
	mem := store.NewMemory()
	m := newManager(mem, nil, nil)

	order, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Regexp(t, `^ORD-20261018-[0-9A-F]{6}$`, order.OrderNumber)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "1200", order.Items[0].Subtotal.String())
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	stored, err := mem.GetOrderByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestCreate_PickupClearsDeliveryFields(t *testing.T) {
	m := newManager(store.NewMemory(), nil, nil)
	in := pickupInput("u1")
	in.DeliveryAddress = ptr("ignored")
	in.DeliveryLat = ptr(1.0)

	order, err := m.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, order.DeliveryAddress)
	assert.Nil(t, order.DeliveryLat)
	assert.Nil(t, order.DeliveryLng)
	assert.Nil(t, order.DeliveryDistanceKm)
}

func TestCreate_DeliveryKeepsLocation(t *testing.T) {
	m := newManager(store.NewMemory(), nil, nil)

	order, err := m.Create(context.Background(), deliveryInput("u1"))
	require.NoError(t, err)
	require.NotNil(t, order.DeliveryDistanceKm)
	assert.Equal(t, 0.87, *order.DeliveryDistanceKm)
	assert.Equal(t, "1335", order.Total.String())
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
		field  string
	}{
		{"empty items", func(in *CreateOrderInput) { in.Items = []CartLine{} }, "items"},
		{"nil items", func(in *CreateOrderInput) { in.Items = nil }, "items"},
		{"missing user", func(in *CreateOrderInput) { in.UserID = "" }, "user_id"},
		{"blank name", func(in *CreateOrderInput) { in.CustomerName = "   " }, "customer_name"},
		{"missing phone", func(in *CreateOrderInput) { in.CustomerPhone = "" }, "customer_phone"},
		{"missing fulfillment", func(in *CreateOrderInput) { in.FulfillmentType = "" }, "fulfillment_type"},
		{"unknown fulfillment", func(in *CreateOrderInput) { in.FulfillmentType = "drone" }, "fulfillment_type"},
		{"zero quantity", func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"missing product name", func(in *CreateOrderInput) { in.Items[0].ProductName = "" }, "items[0].product_name"},
		{"negative price", func(in *CreateOrderInput) { in.Items[0].PriceAtPurchase = decimal.NewFromInt(-1) }, "items[0].price_at_purchase"},
		{"bad email", func(in *CreateOrderInput) { in.CustomerEmail = ptr("nope") }, "customer_email"},
		{"total mismatch", func(in *CreateOrderInput) { in.Total = decimal.NewFromInt(999) }, "total"},
		{"delivery without address", func(in *CreateOrderInput) {
			in.FulfillmentType = models.FulfillmentDelivery
			in.DeliveryLat, in.DeliveryLng, in.DeliveryDistanceKm = ptr(6.0), ptr(80.0), ptr(1.0)
		}, "delivery_address"},
		{"delivery with blank address", func(in *CreateOrderInput) {
			in.FulfillmentType = models.FulfillmentDelivery
			in.DeliveryAddress = ptr("  ")
			in.DeliveryLat, in.DeliveryLng, in.DeliveryDistanceKm = ptr(6.0), ptr(80.0), ptr(1.0)
		}, "delivery_address"},
		{"delivery without distance", func(in *CreateOrderInput) {
			in.FulfillmentType = models.FulfillmentDelivery
			in.DeliveryAddress = ptr("12 Main St")
			in.DeliveryLat, in.DeliveryLng = ptr(6.0), ptr(80.0)
		}, "delivery_distance_km"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &recordingStore{Memory: store.NewMemory()}
			m := newManager(st, nil, nil)
			in := pickupInput("u1")
			tt.mutate(&in)

			_, err := m.Create(context.Background(), in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Empty(t, st.inserted, "no write may happen on invalid input")

			all, err := st.ListOrders(context.Background(), models.OrderFilter{})
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestCreate_ItemFailureCompensates(t *testing.T) {
	mem := store.NewMemory()
	mem.InsertItemsErr = errors.New("items table unavailable")
	st := &recordingStore{Memory: mem}
	m := newManager(st, nil, nil)

	order, err := m.Create(context.Background(), pickupInput("u1"))
	require.Nil(t, order)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "could not save order", err.Error())
	assert.NotContains(t, err.Error(), "items table")

	require.Len(t, st.inserted, 1)
	require.Len(t, st.deleted, 1)
	_, err = st.GetOrderByNumber(context.Background(), st.inserted[0])
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreate_CompensationFailureStillReportsPersistenceError(t *testing.T) {
	mem := store.NewMemory()
	mem.InsertItemsErr = errors.New("items down")
	mem.DeleteErr = errors.New("delete down")
	m := newManager(mem, nil, nil)

	_, err := m.Create(context.Background(), pickupInput("u1"))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.EqualError(t, perr.Err, "items down")
}

func TestCreate_UsesTransactionWhenAvailable(t *testing.T) {
	st := &txStore{recordingStore: &recordingStore{Memory: store.NewMemory()}}
	m := newManager(st, nil, nil)

	order, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)
	assert.True(t, st.txRan)
	assert.Empty(t, st.inserted, "header must not be written outside the transaction")

	got, err := st.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestCreate_TransactionFailureDoesNotCompensate(t *testing.T) {
	st := &txStore{
		recordingStore: &recordingStore{Memory: store.NewMemory()},
		txErr:          errors.New("deadlock"),
	}
	m := newManager(st, nil, nil)

	_, err := m.Create(context.Background(), pickupInput("u1"))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, st.deleted)
}

func TestCreate_NotifiesAdminAndCustomer(t *testing.T) {
	n := new(MockNotifier)
	p := new(MockPublisher)
	m := newManager(store.NewMemory(), n, p)

	in := pickupInput("u1")
	in.CustomerEmail = ptr(" buyer@mail.lk ")

	n.On("Send", mock.Anything, mock.AnythingOfType("*models.Order"), "admin@shop.lk", true).Return(nil).Once()
	n.On("Send", mock.Anything, mock.AnythingOfType("*models.Order"), "buyer@mail.lk", false).Return(nil).Once()
	p.On("PublishOrderEvent", mock.Anything, mock.MatchedBy(func(ev models.OrderEvent) bool {
		return ev.Type == models.EventCreated && ev.Status == models.StatusPending && ev.UserID == "u1"
	})).Return(nil).Once()

	_, err := m.Create(context.Background(), in)
	require.NoError(t, err)
	n.AssertExpectations(t)
	p.AssertExpectations(t)
}

func TestCreate_NotificationFailureIsSwallowed(t *testing.T) {
	mem := store.NewMemory()
	n := new(MockNotifier)
	p := new(MockPublisher)
	m := newManager(mem, n, p)

	n.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	p.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	order, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)

	_, err = mem.GetOrder(context.Background(), order.ID)
	assert.NoError(t, err)
	n.AssertNumberOfCalls(t, "Send", 1)
}

func TestGet_Authorization(t *testing.T) {
	m := newManager(store.NewMemory(), nil, nil)
	order, err := m.Create(context.Background(), pickupInput("owner"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		who     models.Identity
		wantErr error
	}{
		{"owner", models.Identity{UserID: "owner"}, nil},
		{"admin flag", models.Identity{UserID: "staff", IsAdmin: true}, nil},
		{"admin email", models.Identity{UserID: "staff", Email: "ADMIN@shop.lk"}, nil},
		{"stranger", models.Identity{UserID: "someone-else", Email: "x@y.lk"}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Get(context.Background(), order.ID, tt.who)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, order.ID, got.ID)
			assert.Len(t, got.Items, 1)
		})
	}

	_, err = m.Get(context.Background(), "missing", models.Identity{UserID: "owner"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_StorageFailureIsOpaque(t *testing.T) {
	m := newManager(brokenStore{Memory: store.NewMemory()}, nil, nil)

	_, err := m.Get(context.Background(), "o1", models.Identity{UserID: "u1"})

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "could not load order", err.Error())
}

func TestListForUser_NewestFirst(t *testing.T) {
	m := newManager(store.NewMemory(), nil, nil)
	first, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)
	second, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)
	_, err = m.Create(context.Background(), pickupInput("u2"))
	require.NoError(t, err)

	orders, err := m.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestUpdateStatus_CancelFromAnyOpenState(t *testing.T) {
	for _, from := range []models.OrderStatus{
		models.StatusPending, models.StatusConfirmed, models.StatusPacking,
		models.StatusReady, models.StatusDispatched,
	} {
		t.Run(string(from), func(t *testing.T) {
			m := newManager(store.NewMemory(), nil, nil)
			order, err := m.Create(context.Background(), pickupInput("u1"))
			require.NoError(t, err)
			if from != models.StatusPending {
				_, err = m.UpdateStatus(context.Background(), order.ID, from)
				require.NoError(t, err)
			}

			updated, err := m.UpdateStatus(context.Background(), order.ID, models.StatusCancelled)
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, updated.Status)
			assert.True(t, updated.UpdatedAt.After(order.UpdatedAt))
			assert.Equal(t, order.CreatedAt, updated.CreatedAt)
		})
	}
}

// Transitions are deliberately unrestricted, including out of terminal states.
func TestUpdateStatus_PermissiveMachine(t *testing.T) {
	for _, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition(models.StatusPending, "shipped"))

	m := newManager(store.NewMemory(), nil, nil)
	order, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)
	_, err = m.UpdateStatus(context.Background(), order.ID, models.StatusCompleted)
	require.NoError(t, err)
	reopened, err := m.UpdateStatus(context.Background(), order.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reopened.Status)
}

func TestUpdateStatus_Errors(t *testing.T) {
	m := newManager(store.NewMemory(), nil, nil)
	order, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)

	_, err = m.UpdateStatus(context.Background(), order.ID, "shipped")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")

	_, err = m.UpdateStatus(context.Background(), "missing", models.StatusReady)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_PublishesEvent(t *testing.T) {
	p := new(MockPublisher)
	m := newManager(store.NewMemory(), nil, p)

	p.On("PublishOrderEvent", mock.Anything, mock.MatchedBy(func(ev models.OrderEvent) bool {
		return ev.Type == models.EventCreated
	})).Return(nil).Once()
	p.On("PublishOrderEvent", mock.Anything, mock.MatchedBy(func(ev models.OrderEvent) bool {
		return ev.Type == models.EventStatusUpdated && ev.Status == models.StatusReady
	})).Return(nil).Once()

	order, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)
	_, err = m.UpdateStatus(context.Background(), order.ID, models.StatusReady)
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestUpdateAdminNotes(t *testing.T) {
	m := newManager(store.NewMemory(), nil, nil)
	order, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)

	updated, err := m.UpdateAdminNotes(context.Background(), order.ID, "  ring the bell ")
	require.NoError(t, err)
	require.NotNil(t, updated.AdminNotes)
	assert.Equal(t, "ring the bell", *updated.AdminNotes)

	cleared, err := m.UpdateAdminNotes(context.Background(), order.ID, "   ")
	require.NoError(t, err)
	assert.Nil(t, cleared.AdminNotes)

	_, err = m.UpdateAdminNotes(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAll_FilterAndSearch(t *testing.T) {
	m := newManager(store.NewMemory(), nil, nil)
	a, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)
	in := pickupInput("u2")
	in.CustomerName = "Kamala Silva"
	b, err := m.Create(context.Background(), in)
	require.NoError(t, err)
	_, err = m.UpdateStatus(context.Background(), b.ID, models.StatusReady)
	require.NoError(t, err)

	all, err := m.ListAll(context.Background(), models.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ready, err := m.ListAll(context.Background(), models.OrderFilter{Status: models.StatusReady})
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, b.ID, ready[0].ID)

	found, err := m.ListAll(context.Background(), models.OrderFilter{Query: "kamala"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	byNumber, err := m.ListAll(context.Background(), models.OrderFilter{Query: a.OrderNumber})
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	assert.Equal(t, a.ID, byNumber[0].ID)

	_, err = m.ListAll(context.Background(), models.OrderFilter{Status: "lost"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDailyStats(t *testing.T) {
	m := newManager(store.NewMemory(), nil, nil)
	_, err := m.Create(context.Background(), pickupInput("u1"))
	require.NoError(t, err)
	d, err := m.Create(context.Background(), deliveryInput("u2"))
	require.NoError(t, err)
	c, err := m.Create(context.Background(), pickupInput("u3"))
	require.NoError(t, err)
	_, err = m.UpdateStatus(context.Background(), c.ID, models.StatusCancelled)
	require.NoError(t, err)

	stats, err := m.DailyStats(context.Background(), d.CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", stats.Date)
	assert.Equal(t, 3, stats.OrdersCount)
	assert.Equal(t, "2400", stats.ItemsRevenue.String())
	assert.Equal(t, "135", stats.DeliveryRevenue.String())
	assert.Equal(t, "2535", stats.GrandRevenue.String())
	assert.Equal(t, 2, stats.ByStatus[models.StatusPending])
	assert.Equal(t, 1, stats.ByStatus[models.StatusCancelled])

	empty, err := m.DailyStats(context.Background(), d.CreatedAt.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Zero(t, empty.OrdersCount)
	assert.True(t, empty.GrandRevenue.IsZero())
}

func TestNotifiers_JoinsErrors(t *testing.T) {
	ok := new(MockNotifier)
	bad := new(MockNotifier)
	ok.On("Send", mock.Anything, mock.Anything, "a@b.lk", true).Return(nil)
	bad.On("Send", mock.Anything, mock.Anything, "a@b.lk", true).Return(errors.New("telegram down"))

	err := Notifiers{ok, bad}.Send(context.Background(), &models.Order{}, "a@b.lk", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram down")
	ok.AssertExpectations(t)

	assert.NoError(t, Notifiers{ok}.Send(context.Background(), &models.Order{}, "a@b.lk", true))
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"total": "is wrong", "items": "is required"}}
	assert.Equal(t, "invalid order: items is required; total is wrong", err.Error())
}
