package services

import (
	"context"
	"errors"
	"time"

	"grocery-orders/models"
)

// OrderStore is the storage the manager needs. Missing rows are reported as
// store.ErrNotFound.
type OrderStore interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	InsertItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, id string) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error
	UpdateAdminNotes(ctx context.Context, id string, notes *string, at time.Time) error
}

// TxCreator is implemented by stores that can write an order and its items
// in one transaction.
type TxCreator interface {
	CreateOrderTx(ctx context.Context, o *models.Order, items []models.OrderItem) error
}

type Notifier interface {
	Send(ctx context.Context, o *models.Order, recipient string, isAdminCopy bool) error
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error
}

// Notifiers sends through every notifier and joins the failures.
type Notifiers []Notifier

func (ns Notifiers) Send(ctx context.Context, o *models.Order, recipient string, isAdminCopy bool) error {
	var errs []error
	for _, n := range ns {
		if err := n.Send(ctx, o, recipient, isAdminCopy); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publishers fans an event out to every configured broker.
type Publishers []EventPublisher

func (ps Publishers) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishOrderEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
