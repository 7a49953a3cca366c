package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"pricemirror/internal/cache"
	"pricemirror/internal/domain"
	"pricemirror/internal/series"
	"pricemirror/internal/source"
	"pricemirror/internal/util"
)

// Status is the per-symbol outcome of one run.
type Status string

const (
	StatusCached     Status = "cached"
	StatusFetched    Status = "fetched"
	StatusFallback   Status = "fallback"
	StatusUnresolved Status = "unresolved"
)

// Outcome records how one symbol was handled. It is kept for run history and
// carries no failure detail.
type Outcome struct {
	Symbol     domain.Symbol
	Status     Status
	Provenance domain.Provenance
}

// fetcher runs the per-symbol protocol: fresh cache, else primary, else
// secondary, then parse and quote.
type fetcher struct {
	cache       *cache.Store
	primary     source.Source
	secondary   source.Source
	now         util.Clock
	maxLookback int
	log         *slog.Logger
}

func (f *fetcher) resolve(ctx context.Context, sym domain.Symbol) (domain.ResolvedTicker, Outcome) {
	unresolved := Outcome{Symbol: sym, Status: StatusUnresolved}
	if ctx.Err() != nil {
		return domain.ResolvedTicker{}, unresolved
	}

	s, status, ok := f.loadSeries(ctx, sym)
	if !ok {
		return domain.ResolvedTicker{}, unresolved
	}

	src := f.primary
	if s.Provenance == domain.ProvenanceSecondary {
		src = f.secondary
	}
	q, err := src.Quote(ctx, sym)
	if err != nil {
		f.log.Warn("quote failed", "symbol", sym, "source", src.Name(), "err", err)
		return domain.ResolvedTicker{}, unresolved
	}

	return domain.ResolvedTicker{Symbol: sym, Series: s, Quote: q},
		Outcome{Symbol: sym, Status: status, Provenance: s.Provenance}
}

// loadSeries produces the cached series for sym, refreshing it from the
// providers when the cache file is not from today.
func (f *fetcher) loadSeries(ctx context.Context, sym domain.Symbol) (*domain.DailySeries, Status, bool) {
	if f.cache.IsFresh(sym) {
		s, err := f.parse(sym, f.cache.Provenance(sym))
		if err == nil {
			return s, StatusCached, true
		}
		f.log.Warn("fresh cache unreadable, refetching", "symbol", sym, "err", err)
	}

	now := f.now()
	start := util.DaysAgo(now, f.maxLookback)
	end := util.Day(now).AddDate(0, 0, 1)

	if err := f.cache.Invalidate(sym); err != nil {
		f.log.Error("invalidate failed", "symbol", sym, "err", err)
		return nil, StatusUnresolved, false
	}
	s, err := f.fetch(ctx, f.primary, domain.ProvenancePrimary, sym, start, end)
	if err == nil {
		return s, StatusFetched, true
	}
	f.log.Debug("primary failed", "symbol", sym, "err", err)

	if err := f.cache.Invalidate(sym); err != nil {
		f.log.Error("invalidate failed", "symbol", sym, "err", err)
		return nil, StatusUnresolved, false
	}
	s, err = f.fetch(ctx, f.secondary, domain.ProvenanceSecondary, sym, start, end)
	if err == nil {
		return s, StatusFallback, true
	}
	f.log.Info("unresolved", "symbol", sym, "err", err)

	if err := f.cache.Invalidate(sym); err != nil {
		f.log.Error("invalidate failed", "symbol", sym, "err", err)
	}
	return nil, StatusUnresolved, false
}

// fetch downloads one history into the cache and parses it back.
func (f *fetcher) fetch(ctx context.Context, src source.Source, prov domain.Provenance, sym domain.Symbol, start, end time.Time) (*domain.DailySeries, error) {
	data, err := src.History(ctx, sym, start, end)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Write(sym, data); err != nil {
		return nil, fmt.Errorf("writing cache: %w", err)
	}
	if prov == domain.ProvenanceSecondary {
		if err := f.cache.MarkSecondary(sym); err != nil {
			return nil, fmt.Errorf("marking secondary: %w", err)
		}
	}

	s, err := f.parse(sym, prov)
	if err != nil {
		return nil, &source.FetchError{Kind: source.KindMalformed, Source: src.Name(), Symbol: sym, Err: err}
	}
	return s, nil
}

func (f *fetcher) parse(sym domain.Symbol, prov domain.Provenance) (*domain.DailySeries, error) {
	data, err := f.cache.Read(sym)
	if err != nil {
		return nil, err
	}
	return series.Parse(sym, prov, bytes.NewReader(data))
}
