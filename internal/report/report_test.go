package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"pricemirror/internal/domain"
	"pricemirror/internal/loader"
	"pricemirror/internal/util"
)

var today = time.Date(2024, 9, 30, 12, 0, 0, 0, time.Local)

func resolvedTicker(sym domain.Symbol, prov domain.Provenance, q domain.Quote) domain.ResolvedTicker {
	s := &domain.DailySeries{Symbol: sym, Provenance: prov}
	for _, n := range []int{300, 100, 10, 1} {
		p := float64(400 - n)
		s.Bars = append(s.Bars, domain.DailyBar{
			Date: util.DaysAgo(today, n), AdjustedClose: p, Close: p,
			High: p * 1.02, Low: p, HasHigh: true, HasLow: true,
		})
	}
	return domain.ResolvedTicker{Symbol: sym, Series: s, Quote: q}
}

func TestFormatInt(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for in, want := range tests {
		if got := FormatInt(in); got != want {
			t.Errorf("FormatInt(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatRatio(t *testing.T) {
	if got := FormatRatio(0.0123); got != "+1.23%" {
		t.Errorf("FormatRatio(0.0123) = %q", got)
	}
	if got := FormatRatio(-0.5); got != "-50.00%" {
		t.Errorf("FormatRatio(-0.5) = %q", got)
	}
	if got := FormatPrice(0); got != "-" {
		t.Errorf("FormatPrice(0) = %q", got)
	}
	if got := FormatPrice(12.345); got != "$12.35" && got != "$12.34" {
		t.Errorf("FormatPrice(12.345) = %q", got)
	}
}

func TestBuildSortsAndComputes(t *testing.T) {
	resolved := []domain.ResolvedTicker{
		resolvedTicker("MSFT", domain.ProvenanceSecondary, domain.SecondaryQuote{Price: 420}),
		resolvedTicker("AAPL", domain.ProvenancePrimary, domain.PrimaryQuote{Name: "Apple Inc.", Price: 420}),
	}

	ts, err := Build(context.Background(), resolved, []int{50, 365, 1825}, today)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(ts) != 2 || ts[0].Symbol != "AAPL" || ts[1].Symbol != "MSFT" {
		t.Fatalf("order = %v", []domain.Symbol{ts[0].Symbol, ts[1].Symbol})
	}
	if ts[0].Name != "Apple Inc." || ts[1].Name != "MSFT" {
		t.Errorf("names = %q, %q", ts[0].Name, ts[1].Name)
	}

	w50 := ts[0].Windows[0]
	if w50.Empty || w50.StartClose != 390 {
		t.Errorf("50 day window = %+v, want start close 390", w50)
	}
	w365 := ts[0].Windows[1]
	if w365.StartClose != 100 {
		t.Errorf("1 year window start close = %v, want 100", w365.StartClose)
	}
	if ts[1].Provenance != domain.ProvenanceSecondary {
		t.Errorf("MSFT provenance = %s", ts[1].Provenance)
	}
}

func TestBuildPrefersProviderAverage(t *testing.T) {
	q := domain.PrimaryQuote{Price: 110, FiftyDayAverage: 100}
	ts, err := Build(context.Background(), []domain.ResolvedTicker{resolvedTicker("AAA", domain.ProvenancePrimary, q)}, []int{50, 365}, today)
	if err != nil {
		t.Fatal(err)
	}
	w := ts[0].Windows[0]
	if w.MovingAverage != 100 {
		t.Errorf("MovingAverage = %v, want provider 100", w.MovingAverage)
	}
	if w.ChangeFromAverage < 0.0999 || w.ChangeFromAverage > 0.1001 {
		t.Errorf("ChangeFromAverage = %v, want 0.1", w.ChangeFromAverage)
	}
	if ts[0].Windows[1].MovingAverage == 100 {
		t.Error("1 year window should use the computed average")
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, []domain.ResolvedTicker{resolvedTicker("A", domain.ProvenancePrimary, domain.PrimaryQuote{})}, []int{50}, today)
	if err == nil {
		t.Error("expected context error")
	}
}

func TestRenderTicker(t *testing.T) {
	q := domain.PrimaryQuote{
		Name: "Apple Inc.", Price: 420, DayChange: 2, DayChangePercent: 0.005, DayOpen: 418,
		YearHigh: 500, YearLow: 300, PriceEarnings: 30.5, EarningsPerShare: 13.77,
	}
	ts, err := Build(context.Background(), []domain.ResolvedTicker{resolvedTicker("AAPL", domain.ProvenancePrimary, q)}, []int{50, 1825}, today)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	NewRenderer(&buf, false).Tickers(ts)
	out := buf.String()

	for _, want := range []string{
		"Ticker: AAPL (Apple Inc.)",
		" > Last price: $420.00",
		" > Open:       +0.50% @ +2.00 / $418.00",
		" > 50 day:",
		"Day fluct: min[2.00%] max[2.00%] avg[2.00%])",
		" > 5 year:",
		" > Year high:  -16.00% @ $500.00",
		" > Year low:   +40.00% @ $300.00",
		" > P/E:        30.50 @ (Earning: 13.77)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderEmptyWindow(t *testing.T) {
	s := &domain.DailySeries{Symbol: "OLD", Provenance: domain.ProvenancePrimary}
	for _, n := range []int{300, 100} {
		s.Bars = append(s.Bars, domain.DailyBar{Date: util.DaysAgo(today, n), AdjustedClose: 10, Close: 10})
	}
	rt := domain.ResolvedTicker{Symbol: "OLD", Series: s, Quote: domain.PrimaryQuote{Price: 10}}
	ts, err := Build(context.Background(), []domain.ResolvedTicker{rt}, []int{50, 365}, today)
	if err != nil {
		t.Fatal(err)
	}
	if !ts[0].Windows[0].Empty || ts[0].Windows[1].Empty {
		t.Fatalf("Empty = %v/%v, want true/false", ts[0].Windows[0].Empty, ts[0].Windows[1].Empty)
	}

	var buf bytes.Buffer
	NewRenderer(&buf, false).Ticker(ts[0])
	out := buf.String()

	want := " > 50 day:     Data is missing for " + FormatDate(util.DaysAgo(today, 50)) + "!"
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q\n%s", want, out)
	}
	if strings.Contains(out, "1 year:      Data is missing") {
		t.Errorf("1 year window should render statistics:\n%s", out)
	}
}

func TestBuildWithoutQuoteUsesLastClose(t *testing.T) {
	rt := resolvedTicker("MIR", domain.ProvenancePrimary, nil)
	ts, err := Build(context.Background(), []domain.ResolvedTicker{rt}, []int{50}, today)
	if err != nil {
		t.Fatal(err)
	}
	tk := ts[0]
	if tk.LastClose != 399 || !util.SameDay(tk.AsOf, util.DaysAgo(today, 1)) {
		t.Errorf("LastClose = %v @ %v, want 399 @ D-1", tk.LastClose, tk.AsOf)
	}
	if tk.Name != "MIR" {
		t.Errorf("Name = %q, want symbol fallback", tk.Name)
	}

	var buf bytes.Buffer
	NewRenderer(&buf, false).Ticker(tk)
	out := buf.String()
	want := " > Last close: $399.00 (" + FormatDate(util.DaysAgo(today, 1)) + ")"
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q\n%s", want, out)
	}
	if strings.Contains(out, "Last price") {
		t.Errorf("quote lines printed without a quote:\n%s", out)
	}
}

func TestRenderSecondaryTicker(t *testing.T) {
	q := domain.SecondaryQuote{Name: "Some Fund", Price: 10, PreviousClose: 8, DayOpen: 9}
	ts, _ := Build(context.Background(), []domain.ResolvedTicker{resolvedTicker("FUND", domain.ProvenanceSecondary, q)}, []int{50}, today)

	var buf bytes.Buffer
	NewRenderer(&buf, false).Ticker(ts[0])
	out := buf.String()
	if !strings.Contains(out, " > Open:       +25.00% @ +2.00 / $9.00") {
		t.Errorf("unexpected open line:\n%s", out)
	}
	if !strings.Contains(out, " > Source:     secondary") {
		t.Errorf("missing source line:\n%s", out)
	}
	if strings.Contains(out, "Year high") {
		t.Error("secondary quote should not print a year range")
	}
}

func TestRenderSummary(t *testing.T) {
	res := loader.Result{
		Resolved:   make([]domain.ResolvedTicker, 2),
		Unresolved: []domain.Symbol{"ZZZ", "AAA"},
		Processed:  4,
		Shards:     3,
		Elapsed:    1500 * time.Millisecond,
	}
	var buf bytes.Buffer
	NewRenderer(&buf, false).Summary(res)
	out := buf.String()

	if !strings.Contains(out, "Load time (4 symbols, 3 shards): 1.5s, 2 resolved, 2 unresolved") {
		t.Errorf("summary = %q", out)
	}
	if !strings.Contains(out, "Unresolved: AAA, ZZZ") {
		t.Errorf("unresolved line = %q", out)
	}
}
