// Package report turns resolved tickers into per-window statistics and
// renders them for the terminal.
package report

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"pricemirror/internal/domain"
	"pricemirror/internal/loader"
	"pricemirror/internal/window"
)

// Ticker is the display snapshot for one resolved symbol.
type Ticker struct {
	Symbol     domain.Symbol
	Name       string
	Provenance domain.Provenance
	Quote      domain.Quote
	Bars       int
	Windows    []window.Stats

	// LastClose and AsOf are set when there is no quote and windows are
	// measured against the newest stored bar instead.
	LastClose float64
	AsOf      time.Time
}

// Build computes window statistics for every resolved ticker concurrently
// and returns them sorted by symbol. today anchors every window cutoff.
func Build(ctx context.Context, resolved []domain.ResolvedTicker, lookbacks []int, today time.Time) ([]Ticker, error) {
	out := make([]Ticker, len(resolved))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, r := range resolved {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = buildTicker(r, lookbacks, today)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func buildTicker(r domain.ResolvedTicker, lookbacks []int, today time.Time) Ticker {
	t := Ticker{
		Symbol: r.Symbol,
		Name:   r.LongName(),
		Quote:  r.Quote,
	}
	if r.Series != nil {
		t.Provenance = r.Series.Provenance
		t.Bars = r.Series.Len()
	}

	var price float64
	if r.Quote != nil {
		price = r.Quote.LastPrice()
	} else if r.Series != nil {
		if last, ok := r.Series.Last(); ok {
			price = last.AdjustedClose
			t.LastClose, t.AsOf = last.AdjustedClose, last.Date
		}
	}
	t.Windows = window.ComputeAll(r.Series, lookbacks, today, price)

	// The primary provider publishes its own 50 and 200 day averages; prefer
	// them over the locally computed ones.
	if pq, ok := r.Quote.(domain.PrimaryQuote); ok {
		for i := range t.Windows {
			w := &t.Windows[i]
			if w.Empty {
				continue
			}
			avg := providerAverage(pq, w.Lookback)
			if avg <= 0 {
				continue
			}
			w.MovingAverage = avg
			w.ChangeFromAverage, _ = window.Ratio(price, avg)
		}
	}
	return t
}

func providerAverage(q domain.PrimaryQuote, lookback int) float64 {
	switch lookback {
	case 50:
		return q.FiftyDayAverage
	case 200:
		return q.TwoHundredDayAvg
	default:
		return 0
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

var (
	symbolStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Renderer writes tickers and run summaries. Styling is applied only when
// styled is set, so plain output stays stable for files and tests.
type Renderer struct {
	w      io.Writer
	styled bool
}

// NewRenderer creates a Renderer writing to w.
func NewRenderer(w io.Writer, styled bool) *Renderer {
	return &Renderer{w: w, styled: styled}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) ratio(v float64) string {
	text := FormatRatio(v)
	switch {
	case v > 0:
		return r.style(gainStyle, text)
	case v < 0:
		return r.style(lossStyle, text)
	default:
		return text
	}
}

func (r *Renderer) line(label, format string, args ...any) {
	fmt.Fprintf(r.w, " > %-11s %s\n", label+":", fmt.Sprintf(format, args...))
}

// Ticker writes one ticker block.
func (r *Renderer) Ticker(t Ticker) {
	fmt.Fprintf(r.w, "Ticker: %s (%s)\n", r.style(symbolStyle, t.Symbol.String()), t.Name)

	q := t.Quote
	if q != nil {
		r.line("Last price", "%s", FormatPrice(q.LastPrice()))
		r.line("Last trade", "%s", FormatTime(q.TradeTime()))
		r.line("Open", "%s @ %+.2f / %s", r.ratio(q.PercentChange()), q.Change(), FormatPrice(q.Open()))
	} else if !t.AsOf.IsZero() {
		r.line("Last close", "%s (%s)", FormatPrice(t.LastClose), FormatDate(t.AsOf))
	}

	for _, w := range t.Windows {
		if w.Empty {
			r.line(w.Label, "%s", r.style(warnStyle, "Data is missing for "+FormatDate(w.Cutoff)+"!"))
			continue
		}
		r.line(w.Label, "%s @ %s (%s: %s @ %s, Day fluct: min[%s] max[%s] avg[%s])",
			r.ratio(w.ChangeFromAverage), FormatPrice(w.MovingAverage),
			FormatDate(w.StartDate), r.ratio(w.ChangeFromStart), FormatPrice(w.StartClose),
			FormatPct(w.Swing.MinPct), FormatPct(w.Swing.MaxPct), FormatPct(w.Swing.MeanPct),
		)
	}

	if pq, ok := q.(domain.PrimaryQuote); ok {
		r.primaryExtras(pq)
	}
	if t.Provenance == domain.ProvenanceSecondary {
		r.line("Source", "%s", r.style(dimStyle, string(t.Provenance)))
	}
}

func (r *Renderer) primaryExtras(q domain.PrimaryQuote) {
	if q.YearHigh > 0 {
		chg, _ := window.Ratio(q.Price, q.YearHigh)
		r.line("Year high", "%s @ %s", r.ratio(chg), FormatPrice(q.YearHigh))
	}
	if q.YearLow > 0 {
		chg, _ := window.Ratio(q.Price, q.YearLow)
		r.line("Year low", "%s @ %s", r.ratio(chg), FormatPrice(q.YearLow))
	}
	if q.PriceEarnings > 0 {
		r.line("P/E", "%.2f @ (Earning: %.2f)", q.PriceEarnings, q.EarningsPerShare)
	}
	if q.Volume > 0 {
		r.line("Volume", "%s (avg %s)", FormatInt(q.Volume), FormatInt(q.AvgDailyVolume))
	}
}

// Tickers writes every ticker separated by blank lines.
func (r *Renderer) Tickers(ts []Ticker) {
	for i, t := range ts {
		if i > 0 {
			fmt.Fprintln(r.w)
		}
		r.Ticker(t)
	}
}

// Summary writes the completion line for a run and the sorted unresolved
// symbols, if any.
func (r *Renderer) Summary(res loader.Result) {
	fmt.Fprintf(r.w, "Load time (%s symbols, %d shards): %s, %d resolved, %d unresolved\n",
		FormatInt(int64(res.Processed)), res.Shards, FormatDuration(res.Elapsed),
		len(res.Resolved), len(res.Unresolved))
	if len(res.Unresolved) == 0 {
		return
	}

	names := make([]string, len(res.Unresolved))
	for i, s := range res.Unresolved {
		names[i] = s.String()
	}
	sort.Strings(names)
	fmt.Fprintf(r.w, "Unresolved: %s\n", r.style(warnStyle, strings.Join(names, ", ")))
}
