package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"pricemirror/internal/domain"
	"pricemirror/internal/series"
)

// AlpacaOptions holds credentials and endpoints for the secondary provider.
type AlpacaOptions struct {
	APIKey    string
	APISecret string
	DataURL   string // market-data API; empty uses the SDK default
	BaseURL   string // trading API, used for asset names
	Feed      string // "sip" or "iex"
}

// Alpaca is the secondary provider. Bars are requested fully adjusted, so the
// "Close" column of its history already carries adjusted prices.
type Alpaca struct {
	data   *marketdata.Client
	assets *alpaca.Client
	feed   string
	loc    *time.Location
	log    *slog.Logger
}

var _ Source = (*Alpaca)(nil)

// NewAlpaca creates the secondary provider.
func NewAlpaca(opts AlpacaOptions) *Alpaca {
	dataOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		dataOpts.BaseURL = opts.DataURL
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	return &Alpaca{
		data: marketdata.NewClient(dataOpts),
		assets: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
			BaseURL:   opts.BaseURL,
		}),
		feed: opts.Feed,
		loc:  loc,
		log:  slog.Default().With("source", "alpaca"),
	}
}

func (a *Alpaca) Name() string { return "alpaca" }

// History fetches split- and dividend-adjusted daily bars for [start, end).
func (a *Alpaca) History(ctx context.Context, symbol domain.Symbol, start, end time.Time) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(KindTimeout, a.Name(), symbol, err)
	}

	req := marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Adjustment("all"),
		Start:      start,
		End:        end,
	}
	if a.feed != "" {
		req.Feed = marketdata.Feed(a.feed)
	}
	raw, err := a.data.GetBars(symbol.String(), req)
	if err != nil {
		return nil, classify(a.Name(), symbol, fmt.Errorf("GetBars: %w", err))
	}
	if len(raw) == 0 {
		return nil, fail(KindUnknownSymbol, a.Name(), symbol, ErrUnknownSymbol)
	}

	bars := make([]domain.DailyBar, 0, len(raw))
	for _, b := range raw {
		yr, mo, dd := b.Timestamp.In(a.loc).Date()
		bars = append(bars, domain.DailyBar{
			Date:          time.Date(yr, mo, dd, 0, 0, 0, 0, time.Local),
			Open:          b.Open,
			High:          b.High,
			Low:           b.Low,
			Close:         b.Close,
			AdjustedClose: b.Close,
			Volume:        int64(b.Volume),
			HasHigh:       b.High > 0,
			HasLow:        b.Low > 0,
		})
	}

	var buf bytes.Buffer
	if err := series.Encode(&buf, domain.ProvenanceSecondary, bars); err != nil {
		return nil, fail(KindMalformed, a.Name(), symbol, err)
	}
	a.log.Debug("history fetched", "symbol", symbol, "bars", len(bars))
	return buf.Bytes(), nil
}

// Quote builds a reduced quote from the latest snapshot. The asset name is
// best effort; a failed lookup leaves it empty.
func (a *Alpaca) Quote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(KindTimeout, a.Name(), symbol, err)
	}

	req := marketdata.GetSnapshotRequest{}
	if a.feed != "" {
		req.Feed = marketdata.Feed(a.feed)
	}
	snap, err := a.data.GetSnapshot(symbol.String(), req)
	if err != nil {
		return nil, classify(a.Name(), symbol, fmt.Errorf("GetSnapshot: %w", err))
	}
	if snap == nil || snap.LatestTrade == nil {
		return nil, fail(KindMalformed, a.Name(), symbol, errors.New("snapshot has no latest trade"))
	}

	q := domain.SecondaryQuote{
		Price: snap.LatestTrade.Price,
		Time:  snap.LatestTrade.Timestamp,
	}
	if snap.DailyBar != nil {
		q.DayOpen = snap.DailyBar.Open
	}
	if snap.PrevDailyBar != nil {
		q.PreviousClose = snap.PrevDailyBar.Close
	}

	if asset, err := a.assets.GetAsset(symbol.String()); err != nil {
		a.log.Debug("asset lookup failed", "symbol", symbol, "error", err)
	} else if asset != nil {
		q.Name = asset.Name
	}
	return q, nil
}
