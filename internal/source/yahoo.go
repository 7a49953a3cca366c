package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"pricemirror/internal/domain"
	"pricemirror/internal/series"
)

// Yahoo is the primary provider. History carries an adjusted close column;
// quotes carry the full field set including 52-week range and valuation.
type Yahoo struct {
	loc *time.Location
	log *slog.Logger
}

var _ Source = (*Yahoo)(nil)

// NewYahoo creates the primary provider. Bar timestamps are mapped onto
// exchange-local calendar days.
func NewYahoo() *Yahoo {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Yahoo{loc: loc, log: slog.Default().With("source", "yahoo")}
}

func (y *Yahoo) Name() string { return "yahoo" }

// History downloads daily bars through the chart endpoint.
func (y *Yahoo) History(ctx context.Context, symbol domain.Symbol, start, end time.Time) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(KindTimeout, y.Name(), symbol, err)
	}

	iter := chart.Get(&chart.Params{
		Symbol:   symbol.String(),
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []domain.DailyBar
	for iter.Next() {
		b := iter.Bar()
		if b == nil || b.AdjClose.IsZero() {
			continue
		}
		high, low := toFloat(b.High), toFloat(b.Low)
		yr, mo, dd := time.Unix(int64(b.Timestamp), 0).In(y.loc).Date()
		bars = append(bars, domain.DailyBar{
			Date:          time.Date(yr, mo, dd, 0, 0, 0, 0, time.Local),
			Open:          toFloat(b.Open),
			High:          high,
			Low:           low,
			Close:         toFloat(b.Close),
			AdjustedClose: toFloat(b.AdjClose),
			Volume:        int64(b.Volume),
			HasHigh:       high > 0,
			HasLow:        low > 0,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, classify(y.Name(), symbol, fmt.Errorf("chart: %w", err))
	}
	if len(bars) == 0 {
		return nil, fail(KindMalformed, y.Name(), symbol, errors.New("chart returned no bars"))
	}

	var buf bytes.Buffer
	if err := series.Encode(&buf, domain.ProvenancePrimary, bars); err != nil {
		return nil, fail(KindMalformed, y.Name(), symbol, err)
	}
	y.log.Debug("history fetched", "symbol", symbol, "bars", len(bars))
	return buf.Bytes(), nil
}

// Quote reads the equity quote, which embeds the regular market fields and
// adds long name and trailing valuation.
func (y *Yahoo) Quote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(KindTimeout, y.Name(), symbol, err)
	}

	e, err := equity.Get(symbol.String())
	if err != nil {
		return nil, classify(y.Name(), symbol, fmt.Errorf("equity: %w", err))
	}
	if e == nil {
		return nil, fail(KindUnknownSymbol, y.Name(), symbol, ErrUnknownSymbol)
	}

	name := e.LongName
	if name == "" {
		name = e.ShortName
	}
	q := domain.PrimaryQuote{
		Name:             name,
		Price:            e.RegularMarketPrice,
		DayChange:        e.RegularMarketChange,
		DayChangePercent: e.RegularMarketChangePercent / 100,
		DayOpen:          e.RegularMarketOpen,
		YearHigh:         e.FiftyTwoWeekHigh,
		YearLow:          e.FiftyTwoWeekLow,
		FiftyDayAverage:  e.FiftyDayAverage,
		TwoHundredDayAvg: e.TwoHundredDayAverage,
		Volume:           int64(e.RegularMarketVolume),
		AvgDailyVolume:   int64(e.AverageDailyVolume3Month),
		PriceEarnings:    e.TrailingPE,
		EarningsPerShare: e.EpsTrailingTwelveMonths,
	}
	if e.RegularMarketTime > 0 {
		q.Time = time.Unix(int64(e.RegularMarketTime), 0)
	}
	return q, nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
