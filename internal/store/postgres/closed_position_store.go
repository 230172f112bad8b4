package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infinityai/tradebot/internal/domain"
)

// ClosedPositionStore implements domain.ClosedPositionStore using PostgreSQL.
// The table is an append-only log: closed positions are inserted once and
// never updated or deleted, so the trade history stays auditable.
type ClosedPositionStore struct {
	pool *pgxpool.Pool
}

// NewClosedPositionStore creates a new ClosedPositionStore backed by the
// given connection pool.
func NewClosedPositionStore(pool *pgxpool.Pool) *ClosedPositionStore {
	return &ClosedPositionStore{pool: pool}
}

const closedPositionCols = `id, spread_type, symbol, broker, buy_strike, sell_strike,
	premium, max_profit, entry_price, current_value, realized_pnl,
	close_reason, created_at, expires_at, closed_at`

func scanClosedPositionRows(rows pgx.Rows) ([]domain.SpreadPosition, error) {
	var positions []domain.SpreadPosition
	for rows.Next() {
		var p domain.SpreadPosition
		var spreadType, broker, reason string

		if err := rows.Scan(
			&p.ID, &spreadType, &p.Symbol, &broker,
			&p.BuyStrike, &p.SellStrike,
			&p.Premium, &p.MaxProfit,
			&p.EntryPrice, &p.CurrentValue, &p.RealizedPnL,
			&reason, &p.CreatedAt, &p.ExpiresAt, &p.ClosedAt,
		); err != nil {
			return nil, err
		}
		p.Type = domain.SpreadType(spreadType)
		p.Broker = domain.BrokerName(broker)
		p.CloseReason = domain.CloseReason(reason)
		p.Status = domain.PositionStatusClosed
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Append inserts a closed position into the log.
func (s *ClosedPositionStore) Append(ctx context.Context, p domain.SpreadPosition) error {
	const query = `
		INSERT INTO closed_positions (
			id, spread_type, symbol, broker, buy_strike, sell_strike,
			premium, max_profit, entry_price, current_value, realized_pnl,
			close_reason, created_at, expires_at, closed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15
		)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, string(p.Type), p.Symbol, string(p.Broker),
		p.BuyStrike, p.SellStrike,
		p.Premium, p.MaxProfit,
		p.EntryPrice, p.CurrentValue, p.RealizedPnL,
		string(p.CloseReason), p.CreatedAt, p.ExpiresAt, p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append closed position %s: %w", p.ID, err)
	}
	return nil
}

// List returns closed positions, newest close first, with pagination and
// optional time filtering on the close timestamp.
func (s *ClosedPositionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.SpreadPosition, error) {
	query := `SELECT ` + closedPositionCols + ` FROM closed_positions WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND closed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND closed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY closed_at DESC"

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
		return nil, fmt.Errorf("postgres: list closed positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanClosedPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan closed positions: %w", err)
	}
	return positions, nil
}

// Count returns the total number of closed positions in the log.
func (s *ClosedPositionStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM closed_positions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count closed positions: %w", err)
	}
	return count, nil
}

// ListBefore returns all positions closed strictly before the cutoff. The
// archiver uses it to select records for cold storage.
func (s *ClosedPositionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.SpreadPosition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+closedPositionCols+` FROM closed_positions
		 WHERE closed_at < $1
		 ORDER BY closed_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed positions before: %w", err)
	}
	defer rows.Close()

	positions, err := scanClosedPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan closed positions before: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.ClosedPositionStore = (*ClosedPositionStore)(nil)
