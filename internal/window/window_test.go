package window

import (
	"math"
	"testing"
	"time"

	"pricemirror/internal/domain"
)

const floatDelta = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatDelta
}

var today = time.Date(2024, 9, 30, 14, 30, 0, 0, time.Local)

func daysBefore(n int) time.Time {
	y, m, d := today.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local).AddDate(0, 0, -n)
}

func seriesOf(bars ...domain.DailyBar) *domain.DailySeries {
	return &domain.DailySeries{Symbol: "TEST", Provenance: domain.ProvenancePrimary, Bars: bars}
}

func TestNewSelectsSuffix(t *testing.T) {
	s := seriesOf(
		domain.DailyBar{Date: daysBefore(400), AdjustedClose: 1},
		domain.DailyBar{Date: daysBefore(300), AdjustedClose: 2},
		domain.DailyBar{Date: daysBefore(10), AdjustedClose: 3},
		domain.DailyBar{Date: daysBefore(1), AdjustedClose: 4},
	)

	v := New(s, 365, today)
	if len(v.Bars) != 3 {
		t.Fatalf("len(Bars) = %d, want 3", len(v.Bars))
	}
	for i, want := range []float64{2, 3, 4} {
		if v.Bars[i].AdjustedClose != want {
			t.Errorf("Bars[%d].AdjustedClose = %v, want %v", i, v.Bars[i].AdjustedClose, want)
		}
	}
	if !v.Cutoff.Equal(daysBefore(365)) {
		t.Errorf("Cutoff = %v, want %v", v.Cutoff, daysBefore(365))
	}
}

func TestNewIncludesCutoffDay(t *testing.T) {
	s := seriesOf(domain.DailyBar{Date: daysBefore(50), AdjustedClose: 7})
	if v := New(s, 50, today); v.Empty() {
		t.Error("bar dated exactly at the cutoff should be included")
	}
	if v := New(s, 49, today); !v.Empty() {
		t.Error("bar dated before the cutoff should be excluded")
	}
}

func TestEmptyView(t *testing.T) {
	s := seriesOf(domain.DailyBar{Date: daysBefore(500), AdjustedClose: 1})
	v := New(s, 50, today)
	if !v.Empty() {
		t.Fatal("expected empty view")
	}
	if _, ok := v.MovingAverage(); ok {
		t.Error("MovingAverage on empty view should report false")
	}
	if _, ok := v.ChangeFromStart(10); ok {
		t.Error("ChangeFromStart on empty view should report false")
	}
	if _, ok := v.Swing(); ok {
		t.Error("Swing on empty view should report false")
	}

	st := Compute(s, 50, today, 10)
	if !st.Empty || st.MovingAverage != 0 {
		t.Errorf("Compute on empty view = %+v, want Empty with zero stats", st)
	}

	if v := New(nil, 50, today); !v.Empty() {
		t.Error("nil series should give an empty view")
	}
}

func TestMovingAverageSingleBar(t *testing.T) {
	s := seriesOf(domain.DailyBar{Date: daysBefore(1), AdjustedClose: 123.456})
	ma, ok := New(s, 50, today).MovingAverage()
	if !ok || ma != 123.456 {
		t.Errorf("MovingAverage() = %v, %v, want 123.456 exactly", ma, ok)
	}
}

func TestMovingAverage(t *testing.T) {
	s := seriesOf(
		domain.DailyBar{Date: daysBefore(3), AdjustedClose: 10, Close: 99},
		domain.DailyBar{Date: daysBefore(2), AdjustedClose: 20, Close: 99},
		domain.DailyBar{Date: daysBefore(1), AdjustedClose: 30, Close: 99},
	)
	ma, _ := New(s, 50, today).MovingAverage()
	if !floatEquals(ma, 20) {
		t.Errorf("MovingAverage() = %v, want 20 (adjusted closes only)", ma)
	}
}

func TestChangeFromStart(t *testing.T) {
	s := seriesOf(
		domain.DailyBar{Date: daysBefore(100), AdjustedClose: 50},
		domain.DailyBar{Date: daysBefore(20), AdjustedClose: 80},
		domain.DailyBar{Date: daysBefore(1), AdjustedClose: 90},
	)
	v := New(s, 50, today)
	got, ok := v.ChangeFromStart(100)
	if !ok || !floatEquals(got, 0.25) {
		t.Errorf("ChangeFromStart(100) = %v, want 0.25 against window start 80", got)
	}

	avg, ok := v.ChangeFromAverage(85)
	if !ok || !floatEquals(avg, 0) {
		t.Errorf("ChangeFromAverage(85) = %v, want 0", avg)
	}

	zero := seriesOf(domain.DailyBar{Date: daysBefore(1), AdjustedClose: 0})
	if _, ok := New(zero, 50, today).ChangeFromStart(1); ok {
		t.Error("zero start price should report false")
	}
}

func bar(n int, high, low float64) domain.DailyBar {
	return domain.DailyBar{Date: daysBefore(n), High: high, Low: low, HasHigh: true, HasLow: true, AdjustedClose: 1}
}

func TestSwing(t *testing.T) {
	s := seriesOf(bar(3, 10, 8), bar(2, 20, 10), bar(1, 5, 5))
	sw, ok := New(s, 50, today).Swing()
	if !ok {
		t.Fatal("Swing reported empty")
	}
	if !floatEquals(sw.MinPct, 0) || !floatEquals(sw.MaxPct, 100) {
		t.Errorf("Swing min/max = %v/%v, want 0/100", sw.MinPct, sw.MaxPct)
	}
	if !floatEquals(sw.MeanPct, (25.0+100.0+0.0)/3) {
		t.Errorf("Swing mean = %v, want %v", sw.MeanPct, (25.0+100.0+0.0)/3)
	}

	pair := seriesOf(bar(2, 20, 10), bar(1, 5, 5))
	sw, _ = New(pair, 50, today).Swing()
	if !floatEquals(sw.MinPct, 0) || !floatEquals(sw.MaxPct, 100) || !floatEquals(sw.MeanPct, 50) {
		t.Errorf("Swing = %+v, want {0 100 50}", sw)
	}
}

func TestSwingMissingHighLow(t *testing.T) {
	missing := domain.DailyBar{Date: daysBefore(2), High: 12, HasHigh: true, AdjustedClose: 1}
	s := seriesOf(missing, bar(1, 11, 10))
	sw, ok := New(s, 50, today).Swing()
	if !ok {
		t.Fatal("Swing reported empty")
	}
	if !floatEquals(sw.MinPct, 0) || !floatEquals(sw.MaxPct, 10) || !floatEquals(sw.MeanPct, 5) {
		t.Errorf("Swing = %+v, want {0 10 5}", sw)
	}
}

func TestLabel(t *testing.T) {
	cases := map[int]string{
		1:    "1 day",
		50:   "50 day",
		89:   "89 day",
		90:   "3 mon",
		200:  "7 mon",
		364:  "12 mon",
		365:  "1 year",
		729:  "1 year",
		1825: "5 year",
	}
	for days, want := range cases {
		if got := Label(days); got != want {
			t.Errorf("Label(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestComputeAll(t *testing.T) {
	s := seriesOf(
		domain.DailyBar{Date: daysBefore(300), AdjustedClose: 50},
		domain.DailyBar{Date: daysBefore(1), AdjustedClose: 100},
	)
	stats := ComputeAll(s, []int{50, 365}, today, 110)
	if len(stats) != 2 {
		t.Fatalf("len = %d, want 2", len(stats))
	}
	if stats[0].Label != "50 day" || stats[0].StartClose != 100 {
		t.Errorf("stats[0] = %+v", stats[0])
	}
	if stats[1].Label != "1 year" || stats[1].StartClose != 50 || !floatEquals(stats[1].ChangeFromStart, 1.2) {
		t.Errorf("stats[1] = %+v", stats[1])
	}
	if !floatEquals(stats[1].MovingAverage, 75) {
		t.Errorf("stats[1].MovingAverage = %v, want 75", stats[1].MovingAverage)
	}
}
