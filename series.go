package fundtrack

import (
	"slices"

	"github.com/etnz/fundtrack/date"
	"github.com/shopspring/decimal"
)

// Observation is a single price observed at a date.
type Observation struct {
	Date  date.Date
	Price decimal.Decimal
}

// Series is the price history of a single ticker, as returned by a provider.
//
// Observations need not be sorted nor contiguous.
type Series struct {
	Ticker       string
	Observations []Observation
}

// NewSeries returns an empty series for the ticker.
func NewSeries(ticker string) *Series { return &Series{Ticker: ticker} }

// Append adds an observation to the series.
func (s *Series) Append(on date.Date, price decimal.Decimal) *Series {
	s.Observations = append(s.Observations, Observation{Date: on, Price: price})
	return s
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.Observations) }

// Range returns the first and last dates observed. ok is false if the series is empty.
func (s *Series) Range() (r date.Range, ok bool) {
	for i, o := range s.Observations {
		if i == 0 || o.Date.Before(r.From) {
			r.From = o.Date
		}
		if i == 0 || o.Date.After(r.To) {
			r.To = o.Date
		}
	}
	return r, len(s.Observations) > 0
}

// Restrict drops observations outside r.
func (s *Series) Restrict(r date.Range) *Series {
	s.Observations = slices.DeleteFunc(s.Observations, func(o Observation) bool { return !r.Contains(o.Date) })
	return s
}

// validate fails on the first observation without a date.
func (s *Series) validate() error {
	for i, o := range s.Observations {
		if o.Date.IsZero() {
			return &DataError{Ticker: s.Ticker, Row: i, Err: errMissingDate}
		}
	}
	return nil
}

// sorted returns the observations sorted chronologically, with a single
// observation per date: the last one appended wins.
func (s *Series) sorted() []Observation {
	obs := slices.Clone(s.Observations)
	// stable, so that among equal dates the last appended stays last.
	slices.SortStableFunc(obs, func(a, b Observation) int { return a.Date.Compare(b.Date) })
	dedup := obs[:0]
	for _, o := range obs {
		if n := len(dedup); n > 0 && dedup[n-1].Date == o.Date {
			dedup[n-1] = o
			continue
		}
		dedup = append(dedup, o)
	}
	return dedup
}
