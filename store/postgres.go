package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"grocery-orders/models"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const pgInsertOrder = `INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

const pgInsertItem = `INSERT INTO order_items (` + itemColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Postgres) CreateOrderTx(ctx context.Context, o *models.Order, items []models.OrderItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := pgInsertOrderRow(ctx, tx, o); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(pgInsertItem, itemArgs(it)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Postgres) InsertOrder(ctx context.Context, o *models.Order) error {
	return pgInsertOrderRow(ctx, s.pool, o)
}

func pgInsertOrderRow(ctx context.Context, ex pgExecer, o *models.Order) error {
	_, err := ex.Exec(ctx, pgInsertOrder,
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

func itemArgs(it models.OrderItem) []any {
	return []any{it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.PriceAtPurchase, it.Subtotal, it.CreatedAt}
}

func (s *Postgres) InsertItems(ctx context.Context, items []models.OrderItem) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(pgInsertItem, itemArgs(it)...)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func (s *Postgres) DeleteOrder(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (s *Postgres) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return s.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
}

func (s *Postgres) getOne(ctx context.Context, query, arg string) (*models.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

func (s *Postgres) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, order_number DESC`,
		userID)
}

func (s *Postgres) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+next(string(f.Status)))
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= "+next(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < "+next(f.To))
	}
	if strings.TrimSpace(f.Query) != "" {
		p := next(likePattern(f.Query))
		where = append(where, "(LOWER(order_number) LIKE "+p+" OR LOWER(customer_name) LIKE "+p+" OR LOWER(customer_phone) LIKE "+p+")")
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, order_number DESC"
	return s.list(ctx, query, args...)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *Postgres) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]int, len(orders))
	ids := make([]string, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids = append(ids, o.ID)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY created_at ASC, id ASC`, ids)
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

func (s *Postgres) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`, string(status), at, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) UpdateAdminNotes(ctx context.Context, id string, notes *string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET admin_notes = $1, updated_at = $2 WHERE id = $3`, notes, at, id)
	if err != nil {
		return fmt.Errorf("update admin notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
