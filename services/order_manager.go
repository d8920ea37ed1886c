package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"grocery-orders/models"
	"grocery-orders/store"
	"grocery-orders/utils"
)

// OrderManager owns order creation, reads and the status lifecycle.
type OrderManager struct {
	store      OrderStore
	notifier   Notifier
	events     EventPublisher
	log        *zap.Logger
	validate   *validator.Validate
	adminEmail string

	// Now and Location are replaceable in tests.
	Now      func() time.Time
	Location *time.Location
}

// NewOrderManager wires a manager. notifier and events may be nil.
func NewOrderManager(st OrderStore, notifier Notifier, events EventPublisher, adminEmail string, log *zap.Logger) *OrderManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderManager{
		store:      st,
		notifier:   notifier,
		events:     events,
		log:        log,
		validate:   newValidator(),
		adminEmail: strings.TrimSpace(adminEmail),
		Now:        func() time.Time { return time.Now().UTC() },
		Location:   time.Local,
	}
}

// IsAdmin reports whether id may act on any order.
func (m *OrderManager) IsAdmin(id models.Identity) bool {
	if id.IsAdmin {
		return true
	}
	return m.adminEmail != "" && strings.EqualFold(strings.TrimSpace(id.Email), m.adminEmail)
}

// Create validates and persists an order with its items. Notification and
// event failures are logged and never fail the call.
func (m *OrderManager) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	normalize(&in)
	if err := validateCreate(m.validate, &in); err != nil {
		return nil, err
	}

	now := m.Now()
	order := &models.Order{
		ID:              uuid.NewString(),
		OrderNumber:     utils.NewOrderNumber(now),
		UserID:          in.UserID,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerEmail:   in.CustomerEmail,
		FulfillmentType: in.FulfillmentType,
		Subtotal:        in.Subtotal,
		DeliveryFee:     in.DeliveryFee,
		Total:           in.Total,
		ExpressDelivery: in.ExpressDelivery,
		Status:          models.StatusPending,
		CustomerNotes:   in.CustomerNotes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.FulfillmentType == models.FulfillmentDelivery {
		order.DeliveryAddress = in.DeliveryAddress
		order.DeliveryLat = in.DeliveryLat
		order.DeliveryLng = in.DeliveryLng
		order.DeliveryDistanceKm = in.DeliveryDistanceKm
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		items = append(items, models.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.PriceAtPurchase,
			Subtotal:        line.PriceAtPurchase.Mul(decimal.NewFromInt(int64(line.Quantity))),
			CreatedAt:       now,
		})
	}

	if err := m.persist(ctx, order, items); err != nil {
		return nil, err
	}
	order.Items = items

	m.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.StringFixed(2)),
	)

	m.notifyCreated(ctx, order)
	m.publish(ctx, order, models.EventCreated)
	return order, nil
}

// persist writes the order in one transaction when the store supports it.
// Otherwise the header is deleted again if the items cannot be written.
func (m *OrderManager) persist(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if tx, ok := m.store.(TxCreator); ok {
		if err := tx.CreateOrderTx(ctx, order, items); err != nil {
			m.log.Error("create order transaction failed",
				zap.String("order_number", order.OrderNumber), zap.Error(err))
			return &PersistenceError{Op: "save order", Err: err}
		}
		return nil
	}

	if err := m.store.InsertOrder(ctx, order); err != nil {
		m.log.Error("insert order failed",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
		return &PersistenceError{Op: "save order", Err: err}
	}
	if err := m.store.InsertItems(ctx, items); err != nil {
		m.log.Error("insert order items failed, removing order",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
		if delErr := m.store.DeleteOrder(context.WithoutCancel(ctx), order.ID); delErr != nil {
			m.log.Error("compensating delete failed",
				zap.String("order_id", order.ID), zap.Error(delErr))
		}
		return &PersistenceError{Op: "save order", Err: err}
	}
	return nil
}

func (m *OrderManager) notifyCreated(ctx context.Context, order *models.Order) {
	if m.notifier == nil {
		return
	}
	if m.adminEmail != "" {
		m.send(ctx, order, m.adminEmail, true)
	}
	if order.CustomerEmail != nil {
		m.send(ctx, order, *order.CustomerEmail, false)
	}
}

func (m *OrderManager) send(ctx context.Context, order *models.Order, recipient string, isAdminCopy bool) {
	if err := m.notifier.Send(ctx, order, recipient, isAdminCopy); err != nil {
		nerr := &NotificationError{Recipient: recipient, Err: err}
		m.log.Warn("order notification failed",
			zap.String("order_number", order.OrderNumber),
			zap.Bool("admin_copy", isAdminCopy),
			zap.Error(nerr),
		)
	}
}

func (m *OrderManager) publish(ctx context.Context, order *models.Order, eventType string) {
	if m.events == nil {
		return
	}
	ev := models.OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Type:        eventType,
		Status:      order.Status,
		Total:       order.Total,
		Occurred:    m.Now(),
	}
	if err := m.events.PublishOrderEvent(ctx, ev); err != nil {
		m.log.Warn("publish order event failed",
			zap.String("order_number", order.OrderNumber),
			zap.String("event", eventType),
			zap.Error(err),
		)
	}
}

// Get returns an order to its owner or to an admin.
func (m *OrderManager) Get(ctx context.Context, orderID string, who models.Identity) (*models.Order, error) {
	order, err := m.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != who.UserID && !m.IsAdmin(who) {
		return nil, ErrForbidden
	}
	return order, nil
}

// GetByNumber is an admin lookup by the human-facing order number.
func (m *OrderManager) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	order, err := m.store.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, m.storeError("load order", err)
	}
	return order, nil
}

// ListForUser returns the user's orders, newest first.
func (m *OrderManager) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := m.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, m.storeError("load orders", err)
	}
	return orders, nil
}

// ListAll is the admin list. An empty filter returns every order.
func (m *OrderManager) ListAll(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newValidationError("status", "is not a known order status")
	}
	orders, err := m.store.ListOrders(ctx, f)
	if err != nil {
		return nil, m.storeError("load orders", err)
	}
	return orders, nil
}

// CanTransition reports whether an order may move from one status to another.
// Any known status is reachable from any other, terminal ones included.
func CanTransition(from, to models.OrderStatus) bool {
	return from.Valid() && to.Valid()
}

// UpdateStatus sets a new status and publishes a status event.
func (m *OrderManager) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, newValidationError("status", "is not a known order status")
	}
	current, err := m.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, status) {
		return nil, newValidationError("status", "cannot move from "+string(current.Status))
	}

	if err := m.store.UpdateStatus(ctx, orderID, status, m.Now()); err != nil {
		return nil, m.storeError("update order", err)
	}
	order, err := m.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	m.log.Info("order status updated",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(current.Status)),
		zap.String("to", string(order.Status)),
	)
	m.publish(ctx, order, models.EventStatusUpdated)
	return order, nil
}

// UpdateAdminNotes replaces the admin notes. Blank notes clear them.
func (m *OrderManager) UpdateAdminNotes(ctx context.Context, orderID string, notes string) (*models.Order, error) {
	var value *string
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		value = &trimmed
	}
	if err := m.store.UpdateAdminNotes(ctx, orderID, value, m.Now()); err != nil {
		return nil, m.storeError("update order", err)
	}
	return m.load(ctx, orderID)
}

func (m *OrderManager) load(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, m.storeError("load order", err)
	}
	return order, nil
}

func (m *OrderManager) storeError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	m.log.Error(op+" failed", zap.Error(err))
	return &PersistenceError{Op: op, Err: err}
}

// normalize trims free text and turns blank optional fields into nil.
func normalize(in *CreateOrderInput) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.FulfillmentType = models.FulfillmentType(strings.ToLower(strings.TrimSpace(string(in.FulfillmentType))))
	in.CustomerEmail = blankToNil(in.CustomerEmail)
	in.CustomerNotes = blankToNil(in.CustomerNotes)
	for i := range in.Items {
		in.Items[i].ProductID = strings.TrimSpace(in.Items[i].ProductID)
		in.Items[i].ProductName = strings.TrimSpace(in.Items[i].ProductName)
	}
	if in.FulfillmentType == models.FulfillmentPickup {
		in.DeliveryAddress = nil
		in.DeliveryLat = nil
		in.DeliveryLng = nil
		in.DeliveryDistanceKm = nil
	}
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
