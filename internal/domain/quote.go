package domain

import "time"

// Quote is the capability set shared by every live quote regardless of the
// source that produced it. Source-specific fields live on the concrete
// PrimaryQuote and SecondaryQuote types.
type Quote interface {
	Provenance() Provenance
	LastPrice() float64
	TradeTime() time.Time
	Change() float64
	PercentChange() float64 // fraction, 0.01 == 1%
	Open() float64
	LongName() string
}

var (
	_ Quote = PrimaryQuote{}
	_ Quote = SecondaryQuote{}
)

// PrimaryQuote is the quote returned by the primary provider. It carries the
// full set of fields, including the 52-week range, provider moving averages
// and valuation ratios.
type PrimaryQuote struct {
	Name             string
	Price            float64
	Time             time.Time
	DayChange        float64
	DayChangePercent float64
	DayOpen          float64

	YearHigh         float64
	YearLow          float64
	FiftyDayAverage  float64
	TwoHundredDayAvg float64
	Volume           int64
	AvgDailyVolume   int64
	PriceEarnings    float64
	EarningsPerShare float64
}

func (q PrimaryQuote) Provenance() Provenance { return ProvenancePrimary }
func (q PrimaryQuote) LastPrice() float64     { return q.Price }
func (q PrimaryQuote) TradeTime() time.Time   { return q.Time }
func (q PrimaryQuote) Change() float64        { return q.DayChange }
func (q PrimaryQuote) PercentChange() float64 { return q.DayChangePercent }
func (q PrimaryQuote) Open() float64          { return q.DayOpen }
func (q PrimaryQuote) LongName() string       { return q.Name }

// SecondaryQuote is the reduced quote available from the secondary provider,
// derived from its latest trade and daily bars.
type SecondaryQuote struct {
	Name          string
	Price         float64
	Time          time.Time
	PreviousClose float64
	DayOpen       float64
}

func (q SecondaryQuote) Provenance() Provenance { return ProvenanceSecondary }
func (q SecondaryQuote) LastPrice() float64     { return q.Price }
func (q SecondaryQuote) TradeTime() time.Time   { return q.Time }
func (q SecondaryQuote) Open() float64          { return q.DayOpen }
func (q SecondaryQuote) LongName() string       { return q.Name }

// Change returns the move since the previous close, or 0 if unknown.
func (q SecondaryQuote) Change() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	return q.Price - q.PreviousClose
}

// PercentChange returns the fractional move since the previous close.
func (q SecondaryQuote) PercentChange() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	return (q.Price - q.PreviousClose) / q.PreviousClose
}
