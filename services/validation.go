package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"grocery-orders/models"
)

// CreateOrderInput is a checkout request. Pricing is computed by the caller
// with the delivery package and is checked, not recomputed.
type CreateOrderInput struct {
	UserID          string                 `json:"user_id" validate:"required"`
	CustomerName    string                 `json:"customer_name" validate:"required"`
	CustomerPhone   string                 `json:"customer_phone" validate:"required"`
	CustomerEmail   *string                `json:"customer_email" validate:"omitempty,email"`
	FulfillmentType models.FulfillmentType `json:"fulfillment_type" validate:"required,oneof=pickup delivery"`

	DeliveryAddress    *string  `json:"delivery_address" validate:"required_if=FulfillmentType delivery"`
	DeliveryLat        *float64 `json:"delivery_lat" validate:"required_if=FulfillmentType delivery"`
	DeliveryLng        *float64 `json:"delivery_lng" validate:"required_if=FulfillmentType delivery"`
	DeliveryDistanceKm *float64 `json:"delivery_distance_km" validate:"required_if=FulfillmentType delivery"`

	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Total           decimal.Decimal `json:"total"`
	ExpressDelivery bool            `json:"express_delivery"`
	CustomerNotes   *string         `json:"customer_notes"`

	Items []CartLine `json:"items" validate:"required,min=1,dive"`
}

type CartLine struct {
	ProductID       string          `json:"product_id" validate:"required"`
	ProductName     string          `json:"product_name" validate:"required"`
	Quantity        int             `json:"quantity" validate:"gte=1"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"required":    "is required",
	"required_if": "is required for delivery orders",
	"min":         "must contain at least one item",
	"gte":         "must be at least 1",
	"oneof":       "must be pickup or delivery",
	"email":       "must be a valid email address",
}

// validateCreate runs the struct rules, then the cross-field rules the tags
// cannot express.
func validateCreate(v *validator.Validate, in *CreateOrderInput) error {
	fields := map[string]string{}

	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate order: %w", err)
		}
		for _, fe := range verrs {
			fields[fieldPath(fe)] = fieldMessage(fe.Tag())
		}
	}

	if in.FulfillmentType == models.FulfillmentDelivery && in.DeliveryAddress != nil &&
		strings.TrimSpace(*in.DeliveryAddress) == "" {
		fields["delivery_address"] = "is required for delivery orders"
	}
	if in.DeliveryDistanceKm != nil && *in.DeliveryDistanceKm < 0 {
		fields["delivery_distance_km"] = "must not be negative"
	}

	for i, line := range in.Items {
		if line.PriceAtPurchase.IsNegative() {
			fields[fmt.Sprintf("items[%d].price_at_purchase", i)] = "must not be negative"
		}
	}

	switch {
	case in.Subtotal.IsNegative():
		fields["subtotal"] = "must not be negative"
	case in.DeliveryFee.IsNegative():
		fields["delivery_fee"] = "must not be negative"
	case !in.Total.Equal(in.Subtotal.Add(in.DeliveryFee)):
		fields["total"] = "must equal subtotal plus delivery fee"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// fieldPath drops the root struct name: "CreateOrderInput.items[0].quantity"
// becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(tag string) string {
	if msg, ok := fieldMessages[tag]; ok {
		return msg
	}
	return "is invalid"
}
