package fundtrack

import (
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/fundtrack/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FillPolicy selects how Merge fills the dates a fund has no observation for.
//
// Forward and backward filling are mutually exclusive ways to look at the
// same gaps, each pipeline picks one.
type FillPolicy int

const (
	// FillForward carries the last observed price forward. Dates before the
	// first observation stay null.
	FillForward FillPolicy = iota
	// FillBackward carries the next observed price backward. Dates after the
	// last observation stay null.
	FillBackward
	// FillNone keeps only observed prices.
	FillNone
)

func (p FillPolicy) String() string {
	switch p {
	case FillForward:
		return "forward"
	case FillBackward:
		return "backward"
	case FillNone:
		return "none"
	default:
		return fmt.Sprintf("FillPolicy(%d)", int(p))
	}
}

// ParseFillPolicy parses a policy name: forward (or ffill), backward (or bfill), none.
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "ffill", "":
		return FillForward, nil
	case "backward", "bfill":
		return FillBackward, nil
	case "none":
		return FillNone, nil
	default:
		return FillForward, fmt.Errorf("unknown fill policy %q", s)
	}
}

// MergeOptions configures Merge.
type MergeOptions struct {
	Fill   FillPolicy
	Logger zerolog.Logger
}

// Merge aligns price series into a single table.
//
// Each series is labelled with the code of its fund in the registry; series
// whose ticker is not registered are dropped with a warning. Series sharing a
// label are combined, the later one in the slice winning on common dates.
//
// The table has a row for every date observed in any series, and nothing
// else, most recent first. Columns follow the registry order. Gaps are filled
// according to opts.Fill and every price is rounded to the cent, half to even.
//
// Merge fails with a *DataError if an observation has no date, and with
// ErrNoSeries if no series is left to merge.
func Merge(series []*Series, reg *Registry, opts MergeOptions) (*Table, error) {
	columns := make(map[string]*Series)
	for _, s := range series {
		if s == nil {
			continue
		}
		if err := s.validate(); err != nil {
			return nil, err
		}
		label, ok := reg.LabelOf(s.Ticker)
		if !ok {
			opts.Logger.Warn().Str("ticker", s.Ticker).Msg("ticker is not in the registry, dropping its prices")
			continue
		}
		c, ok := columns[label]
		if !ok {
			c = &Series{Ticker: s.Ticker}
			columns[label] = c
		}
		c.Observations = append(c.Observations, s.Observations...)
	}
	if len(columns) == 0 {
		return nil, ErrNoSeries
	}

	labels := make([]string, 0, len(columns))
	for _, code := range reg.Codes() {
		if _, ok := columns[code]; ok {
			labels = append(labels, code)
		}
	}

	observations := make([][]Observation, len(labels))
	dates := make([][]date.Date, len(labels))
	for j, label := range labels {
		obs := columns[label].sorted()
		observations[j] = obs
		dates[j] = make([]date.Date, len(obs))
		for i, o := range obs {
			dates[j][i] = o.Date
		}
	}

	// Build rows in chronological order first, fills are easier to reason about.
	all := slices.Collect(date.Union(dates...))
	rows := make([]Row, len(all))
	for i, on := range all {
		rows[i] = Row{Date: on, Values: make([]decimal.NullDecimal, len(labels))}
	}

	column := make([]decimal.NullDecimal, len(all))
	for j := range labels {
		clear(column)
		k := 0
		for i, on := range all {
			if obs := observations[j]; k < len(obs) && obs[k].Date == on {
				column[i] = decimal.NewNullDecimal(Round(obs[k].Price))
				k++
			}
		}
		fill(column, opts.Fill)
		for i := range rows {
			rows[i].Values[j] = column[i]
		}
	}

	slices.Reverse(rows)
	return &Table{Labels: labels, Rows: rows}, nil
}

// fill fills the nulls of a chronological column in place.
func fill(column []decimal.NullDecimal, policy FillPolicy) {
	var last decimal.NullDecimal
	switch policy {
	case FillForward:
		for i, v := range column {
			if v.Valid {
				last = v
			} else {
				column[i] = last
			}
		}
	case FillBackward:
		for i := len(column) - 1; i >= 0; i-- {
			if v := column[i]; v.Valid {
				last = v
			} else {
				column[i] = last
			}
		}
	}
}

// Round rounds a price to the cent, half to even.
func Round(d decimal.Decimal) decimal.Decimal { return d.RoundBank(2) }
