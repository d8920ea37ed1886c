package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPacking    OrderStatus = "packing"
	StatusReady      OrderStatus = "ready"
	StatusDispatched OrderStatus = "dispatched"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPacking,
	StatusReady,
	StatusDispatched,
	StatusCompleted,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   *string         `json:"customer_email"`
	FulfillmentType FulfillmentType `json:"fulfillment_type"`

	// Set only for delivery orders.
	DeliveryAddress    *string  `json:"delivery_address"`
	DeliveryLat        *float64 `json:"delivery_lat"`
	DeliveryLng        *float64 `json:"delivery_lng"`
	DeliveryDistanceKm *float64 `json:"delivery_distance_km"`

	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Total           decimal.Decimal `json:"total"`
	ExpressDelivery bool            `json:"express_delivery"`
	Status          OrderStatus     `json:"status"`
	CustomerNotes   *string         `json:"customer_notes"`
	AdminNotes      *string         `json:"admin_notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items []OrderItem `json:"order_items,omitempty"`
}

// OrderItem is a point-in-time snapshot of a cart line. ProductName and
// PriceAtPurchase are never refreshed from the catalogue.
type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	CreatedAt       time.Time       `json:"created_at"`
}

// OrderFilter narrows the admin order list.
type OrderFilter struct {
	Status OrderStatus
	Query  string
	From   time.Time
	To     time.Time
}

type OrderEvent struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Type        string          `json:"type"` // created, status_updated
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Occurred    time.Time       `json:"occurred"`
}

const (
	EventCreated       = "created"
	EventStatusUpdated = "status_updated"
)

// DailyStats summarises the orders created on one day.
type DailyStats struct {
	Date            string              `json:"date"`
	OrdersCount     int                 `json:"orders_count"`
	ItemsRevenue    decimal.Decimal     `json:"items_revenue"`
	DeliveryRevenue decimal.Decimal     `json:"delivery_revenue"`
	GrandRevenue    decimal.Decimal     `json:"grand_revenue"`
	ByStatus        map[OrderStatus]int `json:"by_status"`
}
