package db

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/simple-backtest/internal/candle"
	dbconf "github.com/amirphl/simple-backtest/internal/db/conf"
)

func nan() float64 { return math.NaN() }

func TestPostgresCandles(t *testing.T) {
	cfg, cleanup := dbconf.NewTestConfig(t, Schema)
	defer cleanup()
	ctx := context.Background()
	p := NewPostgres(cfg.DB)

	series := bars("SPY", 4)
	series[1].Open, series[1].High, series[1].Low, series[1].Close = nan(), nan(), nan(), nan()
	require.NoError(t, p.SaveCandles(ctx, series))

	// a synthetic bar at an already quoted timestamp loses to the quote
	synth := bars("SPY", 1)[0]
	synth.Close = 100.9
	synth.Source = candle.SourceSynthetic
	require.NoError(t, p.SaveCandles(ctx, []candle.Candle{synth}))

	got, err := p.GetCandles(ctx, "SPY", "1d", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, series[0].Close, got[0].Close)
	assert.Empty(t, got[0].Source)
	assert.True(t, got[1].IsMissing())
	assert.Equal(t, time.UTC, got[2].Timestamp.Location())

	got, err = p.GetCandles(ctx, "SPY", "1d", day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, series[2].Close, got[0].Close)

	// upsert replaces
	series[3].Close = 103.2
	require.NoError(t, p.SaveCandles(ctx, series[3:]))
	got, err = p.GetCandles(ctx, "SPY", "1d", day0.AddDate(0, 0, 3), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 103.2, got[0].Close)
}

func TestOpen(t *testing.T) {
	cfg, cleanup := dbconf.NewTestConfig(t, Schema)
	defer cleanup()

	p, err := Open(context.Background(), cfg.ConnStr, 4, 2, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()
	assert.NoError(t, p.DB().Ping())
}

func TestOpenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable connect_timeout=1", 1, 1, zerolog.Nop())
	assert.Error(t, err)
}
