package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infinityai/tradebot/internal/domain"
)

// OrderLogStore implements domain.OrderLogStore using PostgreSQL. Every order
// placed or cancelled through the routing layer is logged here best-effort;
// the log is written after the broker call and never consulted on the hot
// path.
type OrderLogStore struct {
	pool *pgxpool.Pool
}

// NewOrderLogStore creates a new OrderLogStore backed by the given connection
// pool.
func NewOrderLogStore(pool *pgxpool.Pool) *OrderLogStore {
	return &OrderLogStore{pool: pool}
}

const orderLogCols = `order_id, broker, symbol, side, quantity, price, status, created_at`

func scanOrderLogRows(rows pgx.Rows) ([]domain.OrderRecord, error) {
	var records []domain.OrderRecord
	for rows.Next() {
		var r domain.OrderRecord
		var broker, side, status string

		if err := rows.Scan(
			&r.OrderID, &broker, &r.Symbol, &side,
			&r.Quantity, &r.Price, &status, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.Broker = domain.BrokerName(broker)
		r.Side = domain.OrderSide(side)
		r.Status = domain.OrderStatus(status)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Insert appends an order record to the log.
func (s *OrderLogStore) Insert(ctx context.Context, rec domain.OrderRecord) error {
	const query = `
		INSERT INTO order_log (
			order_id, broker, symbol, side, quantity, price, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		rec.OrderID, string(rec.Broker), rec.Symbol, string(rec.Side),
		rec.Quantity, rec.Price, string(rec.Status), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert order log %s: %w", rec.OrderID, err)
	}
	return nil
}

// List returns logged orders, newest first, optionally filtered to a single
// broker, with pagination and time filtering.
func (s *OrderLogStore) List(ctx context.Context, broker domain.BrokerName, opts domain.ListOpts) ([]domain.OrderRecord, error) {
	query := `SELECT ` + orderLogCols + ` FROM order_log WHERE 1=1`
	args := []any{}
	argIdx := 1

	if broker != "" {
		query += fmt.Sprintf(" AND broker = $%d", argIdx)
		args = append(args, string(broker))
		argIdx++
	}
	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order log: %w", err)
	}
	defer rows.Close()

	records, err := scanOrderLogRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan order log: %w", err)
	}
	return records, nil
}

// ListBefore returns all orders logged strictly before the cutoff. The
// archiver uses it to select records for cold storage.
func (s *OrderLogStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OrderRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderLogCols+` FROM order_log
		 WHERE created_at < $1
		 ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order log before: %w", err)
	}
	defer rows.Close()

	records, err := scanOrderLogRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan order log before: %w", err)
	}
	return records, nil
}

// Compile-time interface check.
var _ domain.OrderLogStore = (*OrderLogStore)(nil)
