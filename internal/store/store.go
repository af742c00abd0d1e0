// Package store persists trade and equity history to Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkovacs/trading-bridge/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id            BIGSERIAL PRIMARY KEY,
	ts            TIMESTAMPTZ NOT NULL,
	strategy_name TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	entry_price   DOUBLE PRECISION NOT NULL,
	exit_price    DOUBLE PRECISION NOT NULL,
	quantity      INTEGER NOT NULL,
	profit_loss   DOUBLE PRECISION NOT NULL,
	risk_reward   DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS equity_log (
	id     BIGSERIAL PRIMARY KEY,
	ts     TIMESTAMPTZ NOT NULL,
	equity DOUBLE PRECISION NOT NULL
);`

// Trade is one row of the trades table.
type Trade struct {
	ID           int64
	Timestamp    time.Time
	StrategyName string
	Symbol       string
	EntryPrice   float64
	ExitPrice    float64
	Quantity     int
	ProfitLoss   float64
	RiskReward   float64
}

// EquityPoint is one equity_log sample.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and ensures the schema exists.
func Open(ctx context.Context, cfg config.DB) (*Store, error) {
	pool, err := pgxpool.New(ctx, BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// LogTrade records a completed (or just-entered) trade. Profit/loss is
// derived from the prices, matching the reference schema.
func (s *Store) LogTrade(ctx context.Context, t Trade) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	t.ProfitLoss = (t.ExitPrice - t.EntryPrice) * float64(t.Quantity)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (ts, strategy_name, symbol, entry_price, exit_price, quantity, profit_loss, risk_reward)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.Timestamp, t.StrategyName, t.Symbol, t.EntryPrice, t.ExitPrice, t.Quantity, t.ProfitLoss, t.RiskReward,
	)
	if err != nil {
		return fmt.Errorf("store: log trade: %w", err)
	}
	return nil
}

// LogEquity appends one account equity sample.
func (s *Store) LogEquity(ctx context.Context, equity float64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO equity_log (ts, equity) VALUES ($1, $2)`,
		time.Now().UTC(), equity,
	)
	if err != nil {
		return fmt.Errorf("store: log equity: %w", err)
	}
	return nil
}

// TradesForMonth returns all trades in the given month, oldest first.
// month/year of 0 means no filter.
func (s *Store) TradesForMonth(ctx context.Context, month time.Month, year int) ([]Trade, error) {
	q := `SELECT id, ts, strategy_name, symbol, entry_price, exit_price, quantity, profit_loss, risk_reward
	      FROM trades`
	args := []any{}
	if month != 0 && year != 0 {
		q += ` WHERE EXTRACT(MONTH FROM ts) = $1 AND EXTRACT(YEAR FROM ts) = $2`
		args = append(args, int(month), year)
	}
	q += ` ORDER BY ts`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.StrategyName, &t.Symbol,
			&t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.ProfitLoss, &t.RiskReward); err != nil {
			return nil, fmt.Errorf("store: scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// EquityCurve returns equity samples between from and to, oldest first.
func (s *Store) EquityCurve(ctx context.Context, from, to time.Time) ([]EquityPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ts, equity FROM equity_log WHERE ts >= $1 AND ts < $2 ORDER BY ts`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query equity: %w", err)
	}
	defer rows.Close()

	var points []EquityPoint
	for rows.Next() {
		var p EquityPoint
		if err := rows.Scan(&p.Timestamp, &p.Equity); err != nil {
			return nil, fmt.Errorf("store: scan equity: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
