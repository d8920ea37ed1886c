package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"grocery-orders/models"
)

// DailyStats summarises orders created on the calendar day of day, in the
// manager's Location. Cancelled orders are counted but earn no revenue.
func (m *OrderManager) DailyStats(ctx context.Context, day time.Time) (*models.DailyStats, error) {
	local := day.In(m.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.Location)
	end := start.AddDate(0, 0, 1)

	orders, err := m.ListAll(ctx, models.OrderFilter{From: start, To: end})
	if err != nil {
		return nil, err
	}

	stats := &models.DailyStats{
		Date:            start.Format("2006-01-02"),
		ItemsRevenue:    decimal.Zero,
		DeliveryRevenue: decimal.Zero,
		GrandRevenue:    decimal.Zero,
		ByStatus:        make(map[models.OrderStatus]int, len(models.OrderStatuses)),
	}
	for _, o := range orders {
		stats.OrdersCount++
		stats.ByStatus[o.Status]++
		if o.Status == models.StatusCancelled {
			continue
		}
		stats.ItemsRevenue = stats.ItemsRevenue.Add(o.Subtotal)
		stats.DeliveryRevenue = stats.DeliveryRevenue.Add(o.DeliveryFee)
		stats.GrandRevenue = stats.GrandRevenue.Add(o.Total)
	}
	return stats, nil
}
