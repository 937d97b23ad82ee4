package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeremiapane/fnb-kiosk/models"
)

const pgUniqueViolation = "23505"

const orderColumns = `order_id, customer_name, customer_phone, items, subtotal::float8, tip_amount::float8,
	total::float8, status, payment_status, payment_method, created_at, updated_at`

// PostgresStore is the relational backend on a pgx connection pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	avail *availability
}

func NewPostgresStore(ctx context.Context, url string, probeInterval time.Duration) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return NewPostgresStoreFromPool(pool, probeInterval), nil
}

func NewPostgresStoreFromPool(pool *pgxpool.Pool, probeInterval time.Duration) *PostgresStore {
	s := &PostgresStore{pool: pool}
	s.avail = newAvailability(probeInterval, pool.Ping)
	return s
}

// Pool exposes the pool for migrations.
func (s *PostgresStore) Pool() *pgxpool.Pool { return s.pool }

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) IsAvailable(ctx context.Context) bool { return s.avail.check(ctx) }

func (s *PostgresStore) MarkUnavailable(err error) { s.avail.markDown(err) }

func (s *PostgresStore) Probe(ctx context.Context) error { return s.avail.probe(ctx) }

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, order *models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO orders (order_id, customer_name, customer_phone, items, subtotal, tip_amount,
			total, status, payment_status, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.OrderID, order.CustomerName, order.CustomerPhone, items,
		order.Subtotal, order.TipAmount, order.Total,
		string(order.Status), string(order.PaymentStatus), order.PaymentMethod,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o             models.Order
		items         []byte
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&o.OrderID, &o.CustomerName, &o.CustomerPhone, &items,
		&o.Subtotal, &o.TipAmount, &o.Total,
		&status, &paymentStatus, &o.PaymentMethod,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", o.OrderID, err)
	}
	o.Status = models.OrderStatus(status)
	o.PaymentStatus = models.PaymentStatus(paymentStatus)
	return &o, nil
}

func (s *PostgresStore) Find(ctx context.Context, orderID string) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *PostgresStore) Update(ctx context.Context, order *models.Order) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET customer_name = $2, customer_phone = $3, status = $4,
			payment_status = $5, payment_method = $6, updated_at = $7
		WHERE order_id = $1`,
		order.OrderID, order.CustomerName, order.CustomerPhone,
		string(order.Status), string(order.PaymentStatus), order.PaymentMethod, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, orderID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *PostgresStore) Clear(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders`)
	if err != nil {
		return 0, fmt.Errorf("clear orders: %w", err)
	}
	return tag.RowsAffected(), nil
}
