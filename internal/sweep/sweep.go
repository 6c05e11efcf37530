// Package sweep evaluates a fixed list of strategy variants over the same
// bars. It does not search or optimize; every listed variant runs once.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/amirphl/simple-backtest/internal/backtest"
	"github.com/amirphl/simple-backtest/internal/strategy"
)

// Variant is one named strategy configuration.
type Variant struct {
	Name     string          `yaml:"name" json:"name"`
	Strategy strategy.Config `yaml:"strategy" json:"strategy"`
}

type Result struct {
	Variant Variant
	Report  *backtest.Report
}

type options struct {
	workers  int
	progress func(done, total int)
	logger   zerolog.Logger
}

type Option func(*options)

// WithWorkers bounds concurrent runs. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = max(1, n) }
}

// WithProgress is called after every finished variant. Calls are serialized.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) { o.progress = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run evaluates every variant against base, replacing only its strategy.
// Results are ordered by realistic return, best first, ties by name. The
// first failing variant cancels the rest.
func Run(ctx context.Context, base backtest.Input, variants []Variant, opts ...Option) ([]Result, error) {
	o := options{workers: 1, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if len(variants) == 0 {
		return nil, errors.New("sweep: no variants")
	}
	if err := uniqueNames(variants); err != nil {
		return nil, err
	}

	results := make([]Result, len(variants))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, v := range variants {
		i, v := i, v // per-iteration copies (go1.21 loop semantics)
		g.Go(func() error {
			in := base
			in.Strategy = v.Strategy
			rep, err := backtest.Run(gctx, in, backtest.WithLogger(o.logger.With().Str("variant", v.Name).Logger()))
			if err != nil {
				return fmt.Errorf("variant %q: %w", v.Name, err)
			}
			results[i] = Result{Variant: v, Report: rep}

			mu.Lock()
			done++
			if o.progress != nil {
				o.progress(done, len(variants))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Report.Realistic.TotalReturnPct, results[j].Report.Realistic.TotalReturnPct
		if a != b {
			return a > b
		}
		return results[i].Variant.Name < results[j].Variant.Name
	})
	return results, nil
}

func uniqueNames(variants []Variant) error {
	seen := make(map[string]bool, len(variants))
	for i, v := range variants {
		if v.Name == "" {
			return fmt.Errorf("sweep: variant %d has no name", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("sweep: duplicate variant %q", v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}
