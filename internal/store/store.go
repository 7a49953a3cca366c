// Package store persists derived artifacts outside the CSV cache: a columnar
// mirror of each resolved series and a history of load runs.
package store

import (
	"context"
	"time"

	"pricemirror/internal/domain"
	"pricemirror/internal/loader"
)

// SeriesStore persists parsed daily series.
type SeriesStore interface {
	// WriteSeries replaces the stored bars for s.Symbol.
	WriteSeries(ctx context.Context, s *domain.DailySeries) error

	// ReadSeries returns the stored series for symbol.
	ReadSeries(ctx context.Context, symbol domain.Symbol) (*domain.DailySeries, error)

	// ListSymbols returns all symbols with a stored series.
	ListSymbols(ctx context.Context) ([]domain.Symbol, error)
}

// RunRecorder keeps a history of load runs and per-symbol outcomes.
type RunRecorder interface {
	// RecordRun stores one completed run and returns its id.
	RecordRun(ctx context.Context, started time.Time, res loader.Result) (int64, error)

	Close() error
}
