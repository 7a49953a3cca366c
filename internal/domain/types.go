// Package domain defines the core types shared across the mirror: symbols,
// provenance, daily bars and series, live quotes, and resolved tickers.
package domain

import (
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Symbol
// ---------------------------------------------------------------------------

// Symbol identifies a tradable instrument. Symbols compare case-insensitively;
// NewSymbol returns the canonical upper-case form used as the cache key.
type Symbol string

// NewSymbol returns the canonical form of s.
func NewSymbol(s string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(s)))
}

// String returns the symbol text.
func (s Symbol) String() string { return string(s) }

// Symbols converts a list of raw strings to canonical symbols, skipping blanks.
func Symbols(raw []string) []Symbol {
	out := make([]Symbol, 0, len(raw))
	for _, r := range raw {
		if s := NewSymbol(r); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Provenance
// ---------------------------------------------------------------------------

// Provenance records which data source produced a cached series.
type Provenance string

const (
	ProvenancePrimary   Provenance = "primary"
	ProvenanceSecondary Provenance = "secondary"
)

// ---------------------------------------------------------------------------
// Bars and series
// ---------------------------------------------------------------------------

// DailyBar is one trading day. High and Low may be absent in the source data;
// HasHigh/HasLow report whether they were present.
type DailyBar struct {
	Date          time.Time
	Open          float64
	High          float64
	Low           float64
	Close         float64
	AdjustedClose float64
	Volume        int64
	HasHigh       bool
	HasLow        bool
}

// SwingRatio returns the intraday swing (high-low)/low, or 0 when either
// bound is absent or low is not positive.
func (b DailyBar) SwingRatio() float64 {
	if !b.HasHigh || !b.HasLow || b.Low <= 0 {
		return 0
	}
	return (b.High - b.Low) / b.Low
}

// DailySeries is an oldest-to-newest sequence of bars for a single symbol.
// Dates are strictly increasing. A series is not modified after parsing.
type DailySeries struct {
	Symbol     Symbol
	Provenance Provenance
	Bars       []DailyBar
}

// Len returns the number of bars.
func (s *DailySeries) Len() int { return len(s.Bars) }

// Last returns the newest bar and false if the series is empty.
func (s *DailySeries) Last() (DailyBar, bool) {
	if len(s.Bars) == 0 {
		return DailyBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// ---------------------------------------------------------------------------
// Resolved ticker
// ---------------------------------------------------------------------------

// ResolvedTicker is the per-symbol product of a successful fetch: the parsed
// series plus the live quote from whichever source resolved the symbol.
type ResolvedTicker struct {
	Symbol Symbol
	Series *DailySeries
	Quote  Quote
}

// LongName returns the display name from the quote, falling back to the
// symbol when the provider did not supply one.
func (t ResolvedTicker) LongName() string {
	if t.Quote != nil && t.Quote.LongName() != "" {
		return t.Quote.LongName()
	}
	return t.Symbol.String()
}
