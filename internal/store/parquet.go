package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"pricemirror/internal/domain"
)

// Compile-time interface check.
var _ SeriesStore = (*ParquetStore)(nil)

// ParquetStore implements SeriesStore with one Parquet file per symbol.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for one daily bar. High and low are
// optional; absent values are stored as null.
type BarRecord struct {
	Date          int64    `parquet:"date,timestamp(millisecond)"` // UTC midnight, Unix ms
	Open          float64  `parquet:"open"`
	High          *float64 `parquet:"high,optional"`
	Low           *float64 `parquet:"low,optional"`
	Close         float64  `parquet:"close"`
	AdjustedClose float64  `parquet:"adj_close"`
	Volume        int64    `parquet:"volume"`
	Provenance    string   `parquet:"provenance,dict"`
}

// Bar dates are calendar days; they are stored as UTC midnight so the file
// reads back to the same day in any zone.
func toDateMilli(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli()
}

func fromDateMilli(ms int64) time.Time {
	y, m, d := time.UnixMilli(ms).UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// ---------------------------------------------------------------------------
// SeriesStore implementation
// ---------------------------------------------------------------------------

// WriteSeries writes s to <DataDir>/<SYMBOL>.parquet, replacing any previous
// mirror. The cache file stays the source of truth; the mirror is rebuilt
// from it on every run.
func (s *ParquetStore) WriteSeries(_ context.Context, series *domain.DailySeries) error {
	if series == nil || series.Symbol == "" {
		return errors.New("store: series without symbol")
	}

	records := make([]BarRecord, len(series.Bars))
	for i, b := range series.Bars {
		r := BarRecord{
			Date:          toDateMilli(b.Date),
			Open:          b.Open,
			Close:         b.Close,
			AdjustedClose: b.AdjustedClose,
			Volume:        b.Volume,
			Provenance:    string(series.Provenance),
		}
		if b.HasHigh {
			high := b.High
			r.High = &high
		}
		if b.HasLow {
			low := b.Low
			r.Low = &low
		}
		records[i] = r
	}

	path := s.seriesPath(series.Symbol)
	if err := writeParquetFile(path, records); err != nil {
		return fmt.Errorf("writing series for %s: %w", series.Symbol, err)
	}
	return nil
}

// ReadSeries reads the mirror for symbol. Provenance is taken from the
// stored rows.
func (s *ParquetStore) ReadSeries(_ context.Context, symbol domain.Symbol) (*domain.DailySeries, error) {
	records, err := readParquetFile[BarRecord](s.seriesPath(symbol))
	if err != nil {
		return nil, fmt.Errorf("reading series for %s: %w", symbol, err)
	}

	out := &domain.DailySeries{Symbol: symbol, Provenance: domain.ProvenancePrimary}
	out.Bars = make([]domain.DailyBar, 0, len(records))
	for _, r := range records {
		if r.Provenance != "" {
			out.Provenance = domain.Provenance(r.Provenance)
		}
		b := domain.DailyBar{
			Date:          fromDateMilli(r.Date),
			Open:          r.Open,
			Close:         r.Close,
			AdjustedClose: r.AdjustedClose,
			Volume:        r.Volume,
		}
		if r.High != nil {
			b.High, b.HasHigh = *r.High, true
		}
		if r.Low != nil {
			b.Low, b.HasLow = *r.Low, true
		}
		out.Bars = append(out.Bars, b)
	}
	sort.SliceStable(out.Bars, func(i, j int) bool { return out.Bars[i].Date.Before(out.Bars[j].Date) })
	return out, nil
}

// ListSymbols lists all symbols that have a mirror file.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]domain.Symbol, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []domain.Symbol
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		symbols = append(symbols, domain.Symbol(strings.TrimSuffix(name, ".parquet")))
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols, nil
}

// MirrorAll writes every resolved series, at most limit files at a time.
// The first error cancels the remaining writes.
func MirrorAll(ctx context.Context, st SeriesStore, resolved []domain.ResolvedTicker, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, r := range resolved {
		if r.Series == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return st.WriteSeries(gctx, r.Series)
		})
	}
	return g.Wait()
}

// LoadAll reads the stored series for symbols, or for every stored symbol
// when symbols is empty. Symbols without a readable series are returned as
// missing. Tickers carry no quote and come back in input order.
func LoadAll(ctx context.Context, st SeriesStore, symbols []domain.Symbol, limit int) ([]domain.ResolvedTicker, []domain.Symbol, error) {
	if len(symbols) == 0 {
		var err error
		if symbols, err = st.ListSymbols(ctx); err != nil {
			return nil, nil, fmt.Errorf("listing mirror: %w", err)
		}
	}

	series := make([]*domain.DailySeries, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sym := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := st.ReadSeries(gctx, sym)
			if err != nil {
				slog.Debug("mirror read failed", "symbol", sym, "error", err)
				return nil
			}
			series[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		resolved []domain.ResolvedTicker
		missing  []domain.Symbol
	)
	for i, sym := range symbols {
		if series[i] == nil || series[i].Len() == 0 {
			missing = append(missing, sym)
			continue
		}
		resolved = append(resolved, domain.ResolvedTicker{Symbol: sym, Series: series[i]})
	}
	return resolved, missing, nil
}

// seriesPath returns the filesystem path for a series Parquet file.
// Layout: <dataDir>/<SYMBOL>.parquet
func (s *ParquetStore) seriesPath(symbol domain.Symbol) string {
	return filepath.Join(s.DataDir, strings.ToUpper(symbol.String())+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
