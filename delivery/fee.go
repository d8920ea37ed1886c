package delivery

import (
	"github.com/shopspring/decimal"

	"grocery-orders/config"
	"grocery-orders/models"
)

type FeeConfig struct {
	FreeThreshold decimal.Decimal
	BaseFee       decimal.Decimal
	PerKmFee      decimal.Decimal
	ExpressFee    decimal.Decimal
}

func FeeConfigFrom(p config.PricingConfig) FeeConfig {
	return FeeConfig{
		FreeThreshold: p.FreeDeliveryThreshold,
		BaseFee:       p.BaseDeliveryFee,
		PerKmFee:      p.PerKmFee,
		ExpressFee:    p.ExpressFee,
	}
}

// DeliveryFee prices a delivery in whole currency units.
//
// A subtotal at or above FreeThreshold replaces the distance fee with zero;
// the express surcharge is still added on top. distanceKm must not be negative.
func DeliveryFee(distanceKm float64, cartSubtotal decimal.Decimal, express bool, cfg FeeConfig) decimal.Decimal {
	fee := decimal.Zero
	if cartSubtotal.LessThan(cfg.FreeThreshold) {
		fee = cfg.BaseFee.Add(decimal.NewFromFloat(distanceKm).Mul(cfg.PerKmFee))
	}
	if express {
		fee = fee.Add(cfg.ExpressFee)
	}
	return fee.Round(0)
}

type Quote struct {
	GeoResult
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	MaxRadiusKm float64         `json:"max_radius_km"`
}

// Pricer quotes deliveries from a fixed shop location.
type Pricer struct {
	Shop        models.Coordinate
	MaxRadiusKm float64
	Fees        FeeConfig
}

func NewPricer(shop config.ShopConfig, pricing config.PricingConfig) *Pricer {
	return &Pricer{
		Shop:        models.Coordinate{Lat: shop.Lat, Lng: shop.Lng},
		MaxRadiusKm: pricing.MaxDeliveryRadiusKm,
		Fees:        FeeConfigFrom(pricing),
	}
}

// Quote is only priced when the customer is inside the radius; outside it the
// fee stays zero and WithinRadius is false.
func (p *Pricer) Quote(customer models.Coordinate, subtotal decimal.Decimal, express bool) Quote {
	geo := WithinRadius(p.Shop, customer, p.MaxRadiusKm)
	q := Quote{GeoResult: geo, DeliveryFee: decimal.Zero, MaxRadiusKm: p.MaxRadiusKm}
	if geo.WithinRadius {
		q.DeliveryFee = DeliveryFee(geo.DistanceKm, subtotal, express, p.Fees)
	}
	return q
}
