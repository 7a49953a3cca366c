package window

import (
	"time"

	"pricemirror/internal/domain"
)

// Stats is a value snapshot of one window, safe to keep after the view and
// its series are gone.
type Stats struct {
	Label    string
	Lookback int
	Cutoff   time.Time
	Empty    bool

	StartDate         time.Time
	StartClose        float64
	MovingAverage     float64
	ChangeFromStart   float64
	ChangeFromAverage float64
	Swing             Swing
}

// Compute builds the view for lookbackDays and captures its statistics
// against the live price.
func Compute(s *domain.DailySeries, lookbackDays int, today time.Time, price float64) Stats {
	v := New(s, lookbackDays, today)
	st := Stats{
		Label:    v.Label(),
		Lookback: lookbackDays,
		Cutoff:   v.Cutoff,
		Empty:    v.Empty(),
	}
	if st.Empty {
		return st
	}

	start, _ := v.Start()
	st.StartDate = start.Date
	st.StartClose = start.AdjustedClose
	st.MovingAverage, _ = v.MovingAverage()
	st.ChangeFromStart, _ = v.ChangeFromStart(price)
	st.ChangeFromAverage, _ = v.ChangeFromAverage(price)
	st.Swing, _ = v.Swing()
	return st
}

// ComputeAll returns Stats for each lookback in order.
func ComputeAll(s *domain.DailySeries, lookbacks []int, today time.Time, price float64) []Stats {
	out := make([]Stats, 0, len(lookbacks))
	for _, l := range lookbacks {
		out = append(out, Compute(s, l, today, price))
	}
	return out
}
