package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"grocery-orders/models"
)

const orderColumns = `id, order_number, user_id, customer_name, customer_phone, customer_email,
	fulfillment_type, delivery_address, delivery_lat, delivery_lng, delivery_distance_km,
	subtotal, delivery_fee, total, express_delivery, status, customer_notes, admin_notes,
	created_at, updated_at`

const itemColumns = `id, order_id, product_id, product_name, quantity, price_at_purchase, subtotal, created_at`

type MySQL struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// CreateOrderTx writes the order header and its items in a single transaction.
func (s *MySQL) CreateOrderTx(ctx context.Context, o *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertOrder(ctx, tx, o); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO order_items ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.PriceAtPurchase, it.Subtotal, it.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *MySQL) InsertOrder(ctx context.Context, o *models.Order) error {
	return insertOrder(ctx, s.db, o)
}

func insertOrder(ctx context.Context, ex execer, o *models.Order) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO orders ("+orderColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		o.ID, o.OrderNumber, o.UserID, o.CustomerName, o.CustomerPhone, o.CustomerEmail,
		string(o.FulfillmentType), o.DeliveryAddress, o.DeliveryLat, o.DeliveryLng, o.DeliveryDistanceKm,
		o.Subtotal, o.DeliveryFee, o.Total, o.ExpressDelivery, string(o.Status), o.CustomerNotes, o.AdminNotes,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *MySQL) InsertItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*8)
	for _, it := range items {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.PriceAtPurchase, it.Subtotal, it.CreatedAt)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO order_items ("+itemColumns+") VALUES "+strings.Join(placeholders, ", "), args...)
	if err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func (s *MySQL) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return affectedOne(res)
}

func (s *MySQL) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.getOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
}

func (s *MySQL) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return s.getOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE order_number = ?", number)
}

func (s *MySQL) getOne(ctx context.Context, query string, arg string) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	orders := []models.Order{*o}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s *MySQL) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.list(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC, order_number DESC",
		userID)
}

func (s *MySQL) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, f.To)
	}
	if strings.TrimSpace(f.Query) != "" {
		where = append(where, "(LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_phone) LIKE ?)")
		p := likePattern(f.Query)
		args = append(args, p, p, p)
	}
	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, order_number DESC"
	return s.list(ctx, query, args...)
}

func (s *MySQL) list(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all given orders with one query.
func (s *MySQL) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]int, len(orders))
	placeholders := make([]string, 0, len(orders))
	args := make([]any, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, o.ID)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM order_items WHERE order_id IN ("+strings.Join(placeholders, ", ")+") ORDER BY created_at ASC, id ASC",
		args...)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.PriceAtPurchase, &it.Subtotal, &it.CreatedAt); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func (s *MySQL) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		string(status), at, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return affectedOne(res)
}

func (s *MySQL) UpdateAdminNotes(ctx context.Context, id string, notes *string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET admin_notes = ?, updated_at = ? WHERE id = ?",
		notes, at, id)
	if err != nil {
		return fmt.Errorf("update admin notes: %w", err)
	}
	return affectedOne(res)
}

func scanOrder(row scanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail,
		(*string)(&o.FulfillmentType), &o.DeliveryAddress, &o.DeliveryLat, &o.DeliveryLng, &o.DeliveryDistanceKm,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &o.ExpressDelivery, (*string)(&o.Status), &o.CustomerNotes, &o.AdminNotes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
