package fundtrack

import (
	"slices"

	"github.com/etnz/fundtrack/date"
	"github.com/shopspring/decimal"
)

// Row is a line of the price table: one value per label, null when unknown.
type Row struct {
	Date   date.Date
	Values []decimal.NullDecimal
}

// Table is the merged price table: one row per date, most recent first, and
// one column per fund code.
type Table struct {
	Labels []string
	Rows   []Row
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Dates returns the dates of the rows, most recent first.
func (t *Table) Dates() []date.Date {
	dates := make([]date.Date, len(t.Rows))
	for i, r := range t.Rows {
		dates[i] = r.Date
	}
	return dates
}

// index returns the column index of label or -1.
func (t *Table) index(label string) int { return slices.Index(t.Labels, label) }

// Column returns the values of a label, aligned with Dates. ok is false if
// the label is not in the table.
func (t *Table) Column(label string) (values []decimal.NullDecimal, ok bool) {
	j := t.index(label)
	if j < 0 {
		return nil, false
	}
	values = make([]decimal.NullDecimal, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r.Values[j]
	}
	return values, true
}

// Latest returns the most recent known value of a label, and its date.
func (t *Table) Latest(label string) (on date.Date, value decimal.Decimal, ok bool) {
	j := t.index(label)
	if j < 0 {
		return date.Date{}, decimal.Zero, false
	}
	for _, r := range t.Rows {
		if v := r.Values[j]; v.Valid {
			return r.Date, v.Decimal, true
		}
	}
	return date.Date{}, decimal.Zero, false
}

// ValueAsOf returns the value of a label on a given day, or the most recent
// known value before it.
func (t *Table) ValueAsOf(label string, day date.Date) (decimal.Decimal, bool) {
	j := t.index(label)
	if j < 0 {
		return decimal.Zero, false
	}
	for _, r := range t.Rows {
		if r.Date.After(day) {
			continue
		}
		if v := r.Values[j]; v.Valid {
			return v.Decimal, true
		}
	}
	return decimal.Zero, false
}

// Slice returns a table restricted to the rows in r. Rows are shared with t.
func (t *Table) Slice(r date.Range) *Table {
	s := &Table{Labels: t.Labels}
	for _, row := range t.Rows {
		if r.Contains(row.Date) {
			s.Rows = append(s.Rows, row)
		}
	}
	return s
}

// Head returns a table with the n most recent rows. Rows are shared with t.
func (t *Table) Head(n int) *Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Labels: t.Labels, Rows: t.Rows[:n]}
}
