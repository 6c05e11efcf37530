package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jpillora/backoff"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/amirphl/simple-backtest/internal/candle"
)

// Schema creates the candles table. OHLC columns are nullable; a NULL
// price is read back as a missing bar.
const Schema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol     TEXT             NOT NULL,
	timeframe  TEXT             NOT NULL,
	timestamp  TIMESTAMPTZ      NOT NULL,
	open       DOUBLE PRECISION,
	high       DOUBLE PRECISION,
	low        DOUBLE PRECISION,
	close      DOUBLE PRECISION,
	volume     DOUBLE PRECISION NOT NULL DEFAULT 0,
	source     TEXT             NOT NULL DEFAULT '',
	PRIMARY KEY (symbol, timeframe, timestamp, source)
);
SELECT create_hypertable('candles', 'timestamp', if_not_exists => TRUE);
CREATE INDEX IF NOT EXISTS candles_symbol_timeframe_idx ON candles (symbol, timeframe, timestamp);
`

const pingAttempts = 5

type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to connStr and pings with exponential backoff until the
// server answers or the attempts run out.
func Open(ctx context.Context, connStr string, maxOpen, maxIdle int, logger zerolog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 5 * time.Second, Factor: 2}
	for {
		err = db.PingContext(ctx)
		if err == nil {
			return &Postgres{db: db}, nil
		}
		if int(b.Attempt())+1 >= pingAttempts {
			break
		}
		wait := b.Duration()
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("postgres ping failed")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	db.Close()
	return nil, fmt.Errorf("failed to reach postgres after %d attempts: %w", pingAttempts, err)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) DB() *sql.DB {
	return p.db
}

// GetCandles returns one bar per timestamp. When a timestamp is stored
// under several sources, quoted bars win over synthetic ones.
func (p *Postgres) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	start, end = window(start, end)
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT ON (timestamp) timestamp, open, high, low, close, volume, symbol, timeframe, source
		FROM candles
		WHERE symbol=$1 AND timeframe=$2 AND timestamp >= $3 AND timestamp < $4
		ORDER BY timestamp ASC, (source = $5) ASC, source ASC`,
		symbol, timeframe, start, end, candle.SourceSynthetic)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles in range: %w", err)
	}
	defer rows.Close()

	var candles []candle.Candle
	for rows.Next() {
		var (
			c           candle.Candle
			o, h, l, cl sql.NullFloat64
		)
		if err := rows.Scan(&c.Timestamp, &o, &h, &l, &cl, &c.Volume, &c.Symbol, &c.Timeframe, &c.Source); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		c.Open, c.High, c.Low, c.Close = orNaN(o), orNaN(h), orNaN(l), orNaN(cl)
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candle rows: %w", err)
	}
	return candles, nil
}

// SaveCandles upserts candles in one transaction.
func (p *Postgres) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d for %s %s at %s: %w",
				i, c.Symbol, c.Timeframe, c.Timestamp, err)
		}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := saveCandles(ctx, tx, candles); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

func saveCandles(ctx context.Context, tx *sql.Tx, candles []candle.Candle) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, timeframe, timestamp, source) DO UPDATE SET
			open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
			close=EXCLUDED.close, volume=EXCLUDED.volume`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range candles {
		_, err := stmt.ExecContext(ctx, c.Symbol, c.Timeframe, c.Timestamp.UTC(),
			nullable(c.Open), nullable(c.High), nullable(c.Low), nullable(c.Close), c.Volume, c.Source)
		if err != nil {
			return fmt.Errorf("failed to save candle at index %d (%s %s at %s): %w",
				i, c.Symbol, c.Timeframe, c.Timestamp, err)
		}
	}
	return nil
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}
