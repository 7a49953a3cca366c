// Package series converts between cached CSV files and domain.DailySeries.
//
// The two providers use different column conventions. Primary files carry an
// "Adj Close" column next to the raw "Close"; secondary files only carry
// "Close", which the secondary provider has already split/dividend adjusted.
// Parse remaps whichever column holds the adjusted price onto
// DailyBar.AdjustedClose.
package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"pricemirror/internal/domain"
	"pricemirror/internal/util"
)

// ErrNoBars is returned when a file parses but yields no usable rows.
var ErrNoBars = errors.New("no usable bars")

// Column headers, normalised (lower case, spaces to underscores).
const (
	colDate     = "date"
	colOpen     = "open"
	colHigh     = "high"
	colLow      = "low"
	colClose    = "close"
	colAdjClose = "adj_close"
	colVolume   = "volume"
)

var (
	primaryHeader   = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}
	secondaryHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}
)

func normalizeHeader(h string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", "_"))
}

// Parse reads a cached CSV file into a series tagged with provenance. Rows
// with an unparseable date or adjusted close are skipped; absent high/low
// values are kept as absent. The result is sorted oldest to newest with
// duplicate dates dropped.
func Parse(symbol domain.Symbol, provenance domain.Provenance, r io.Reader) (*domain.DailySeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file: %w", symbol, ErrNoBars)
		}
		return nil, fmt.Errorf("%s: reading header: %w", symbol, err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[normalizeHeader(h)] = i
	}
	if _, ok := idx[colDate]; !ok {
		return nil, fmt.Errorf("%s: missing %q column", symbol, colDate)
	}

	adjCol := colAdjClose
	if provenance == domain.ProvenanceSecondary {
		adjCol = colClose
	}
	if _, ok := idx[adjCol]; !ok {
		return nil, fmt.Errorf("%s: missing %q column for %s data", symbol, adjCol, provenance)
	}

	field := func(row []string, col string) (string, bool) {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[i])
		if v == "" || strings.EqualFold(v, "null") {
			return "", false
		}
		return v, true
	}
	number := func(row []string, col string) (float64, bool) {
		v, ok := field(row, col)
		if !ok {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}

	var bars []domain.DailyBar
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading row: %w", symbol, err)
		}

		ds, ok := field(row, colDate)
		if !ok {
			continue
		}
		date, err := time.ParseInLocation(util.DateLayout, ds, time.Local)
		if err != nil {
			continue
		}
		adj, ok := number(row, adjCol)
		if !ok {
			continue
		}

		bar := domain.DailyBar{Date: date, AdjustedClose: adj}
		bar.Open, _ = number(row, colOpen)
		bar.Close, _ = number(row, colClose)
		bar.High, bar.HasHigh = number(row, colHigh)
		bar.Low, bar.HasLow = number(row, colLow)
		if vol, ok := number(row, colVolume); ok {
			bar.Volume = int64(vol)
		}
		bars = append(bars, bar)
	}

	bars = sortDedupe(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoBars)
	}

	return &domain.DailySeries{
		Symbol:     symbol,
		Provenance: provenance,
		Bars:       bars,
	}, nil
}

// sortDedupe orders bars oldest to newest and keeps the first bar seen for
// each date.
func sortDedupe(bars []domain.DailyBar) []domain.DailyBar {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Encode writes bars in the column layout of the given provenance. Bars are
// written in the order given.
func Encode(w io.Writer, provenance domain.Provenance, bars []domain.DailyBar) error {
	cw := csv.NewWriter(w)

	header := primaryHeader
	if provenance == domain.ProvenanceSecondary {
		header = secondaryHeader
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	optional := func(v float64, ok bool) string {
		if !ok {
			return "null"
		}
		return formatFloat(v)
	}

	for _, b := range bars {
		row := []string{
			b.Date.Format(util.DateLayout),
			formatFloat(b.Open),
			optional(b.High, b.HasHigh),
			optional(b.Low, b.HasLow),
		}
		if provenance == domain.ProvenanceSecondary {
			row = append(row, formatFloat(b.AdjustedClose))
		} else {
			row = append(row, formatFloat(b.Close), formatFloat(b.AdjustedClose))
		}
		row = append(row, strconv.FormatInt(b.Volume, 10))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
