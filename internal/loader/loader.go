// Package loader refreshes the per-symbol cache in parallel and resolves each
// symbol to a parsed series plus live quote, falling back from the primary to
// the secondary provider per symbol.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pricemirror/internal/cache"
	"pricemirror/internal/domain"
	"pricemirror/internal/source"
	"pricemirror/internal/util"
)

// Config bounds parallelism and the history range requested on refresh.
type Config struct {
	MaxWorkers      int // shard count upper bound (200)
	BatchSize       int // symbols per sub-batch within a shard (150)
	MaxLookbackDays int // history requested on refresh (1825)
}

// Result is the outcome of one run. Resolved order is not deterministic.
type Result struct {
	Resolved   []domain.ResolvedTicker
	Unresolved []domain.Symbol
	Outcomes   []Outcome
	Processed  int
	Shards     int
	Elapsed    time.Duration
}

// Loader runs load cycles against one cache directory.
type Loader struct {
	cfg     Config
	fetcher *fetcher
	log     *slog.Logger
}

// New validates cfg and wires the providers. now may be nil.
func New(cfg Config, c *cache.Store, primary, secondary source.Source, now util.Clock) (*Loader, error) {
	if c == nil {
		return nil, errors.New("loader: cache store is required")
	}
	if primary == nil || secondary == nil {
		return nil, errors.New("loader: both sources are required")
	}
	if cfg.MaxWorkers <= 0 {
		return nil, fmt.Errorf("loader: max workers must be positive, got %d", cfg.MaxWorkers)
	}
	if cfg.MaxLookbackDays <= 0 {
		return nil, fmt.Errorf("loader: max lookback must be positive, got %d", cfg.MaxLookbackDays)
	}
	if now == nil {
		now = time.Now
	}

	log := slog.Default().With("component", "loader")
	return &Loader{
		cfg: cfg,
		fetcher: &fetcher{
			cache:       c,
			primary:     primary,
			secondary:   secondary,
			now:         now,
			maxLookback: cfg.MaxLookbackDays,
			log:         log,
		},
		log: log,
	}, nil
}

// Run resolves every symbol once and blocks until all shards finish. Symbols
// are de-duplicated first. Per-symbol failures surface only as membership in
// Result.Unresolved; a cancelled ctx makes the remaining symbols unresolved.
func (l *Loader) Run(ctx context.Context, symbols []domain.Symbol) Result {
	runStart := time.Now()
	symbols = Unique(symbols)
	shards := Partition(symbols, l.cfg.MaxWorkers)

	l.log.Info("starting load",
		"symbols", len(symbols),
		"shards", len(shards),
		"batchSize", l.cfg.BatchSize,
		"cacheDir", l.fetcher.cache.Dir(),
	)

	agg := NewAggregator()
	var wg sync.WaitGroup

	for shardIdx, shard := range shards {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batches := Batches(shard, l.cfg.BatchSize)
			for batchIdx, batch := range batches {
				b := Batch{Outcomes: make([]Outcome, 0, len(batch))}
				for _, sym := range batch {
					t, out := l.fetcher.resolve(ctx, sym)
					b.Outcomes = append(b.Outcomes, out)
					if out.Status == StatusUnresolved {
						b.Unresolved = append(b.Unresolved, sym)
						continue
					}
					b.Resolved = append(b.Resolved, t)
				}

				processed := agg.Publish(b)

				l.log.Debug("batch done",
					"shard", shardIdx,
					"batch", fmt.Sprintf("%d/%d", batchIdx+1, len(batches)),
					"resolved", len(b.Resolved),
					"unresolved", len(b.Unresolved),
					"processed", processed,
					"elapsed", time.Since(runStart).Round(time.Millisecond),
				)
			}
		}()
	}
	wg.Wait()

	all := agg.Drain()
	res := Result{
		Resolved:   all.Resolved,
		Unresolved: all.Unresolved,
		Outcomes:   all.Outcomes,
		Processed:  agg.Processed(),
		Shards:     len(shards),
		Elapsed:    time.Since(runStart),
	}

	l.log.Info("load complete",
		"processed", res.Processed,
		"resolved", len(res.Resolved),
		"unresolved", len(res.Unresolved),
		"shards", res.Shards,
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res
}
