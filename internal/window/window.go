// Package window builds trailing time-window views over a daily series and
// derives summary statistics from them. Views borrow the series' bar slice
// and must not be retained beyond the call that created them.
package window

import (
	"fmt"
	"math"
	"sort"
	"time"

	"pricemirror/internal/domain"
	"pricemirror/internal/util"
)

// View is the suffix of a series whose bars fall on or after Cutoff.
type View struct {
	Lookback int
	Cutoff   time.Time
	Bars     []domain.DailyBar
}

// Swing summarises intraday (high-low)/low ratios over a view, in percent.
type Swing struct {
	MinPct  float64
	MaxPct  float64
	MeanPct float64
}

// New selects the bars of s dated on or after today minus lookbackDays.
func New(s *domain.DailySeries, lookbackDays int, today time.Time) *View {
	cutoff := util.DaysAgo(today, lookbackDays)
	v := &View{Lookback: lookbackDays, Cutoff: cutoff}
	if s == nil {
		return v
	}

	bars := s.Bars
	i := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Date.Before(cutoff)
	})
	v.Bars = bars[i:len(bars):len(bars)]
	return v
}

// Empty reports whether no bars qualified. Callers should skip statistics for
// an empty view.
func (v *View) Empty() bool { return len(v.Bars) == 0 }

// Label returns the human-readable bucket for the view's lookback.
func (v *View) Label() string { return Label(v.Lookback) }

// Start returns the oldest bar in the view.
func (v *View) Start() (domain.DailyBar, bool) {
	if v.Empty() {
		return domain.DailyBar{}, false
	}
	return v.Bars[0], true
}

// MovingAverage is the arithmetic mean of adjusted close over the view.
func (v *View) MovingAverage() (float64, bool) {
	if v.Empty() {
		return 0, false
	}
	var sum float64
	for _, b := range v.Bars {
		sum += b.AdjustedClose
	}
	return sum / float64(len(v.Bars)), true
}

// ChangeFromStart returns (price - start)/start where start is the adjusted
// close of the oldest bar in the view.
func (v *View) ChangeFromStart(price float64) (float64, bool) {
	start, ok := v.Start()
	if !ok {
		return 0, false
	}
	return Ratio(price, start.AdjustedClose)
}

// ChangeFromAverage returns (price - ma)/ma.
func (v *View) ChangeFromAverage(price float64) (float64, bool) {
	ma, ok := v.MovingAverage()
	if !ok {
		return 0, false
	}
	return Ratio(price, ma)
}

// Swing aggregates per-bar swing ratios. Bars missing high or low contribute
// zero.
func (v *View) Swing() (Swing, bool) {
	if v.Empty() {
		return Swing{}, false
	}
	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, b := range v.Bars {
		r := b.SwingRatio()
		sum += r
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	return Swing{
		MinPct:  lo * 100,
		MaxPct:  hi * 100,
		MeanPct: sum / float64(len(v.Bars)) * 100,
	}, true
}

// Ratio returns (now-base)/base, or false when base is zero.
func Ratio(now, base float64) (float64, bool) {
	if base == 0 {
		return 0, false
	}
	return (now - base) / base, true
}

// Label buckets a lookback length: under 90 days reads "N day", under a year
// "N mon" (30-day months, rounded), otherwise "N year" (truncated).
func Label(days int) string {
	switch {
	case days >= 365:
		return fmt.Sprintf("%d year", days/365)
	case days >= 90:
		return fmt.Sprintf("%.0f mon", math.Round(float64(days)/30))
	default:
		return fmt.Sprintf("%d day", days)
	}
}
