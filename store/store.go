// Package store persists the price table in other formats than the default
// CSV file: a SQLite database or a Parquet file.
package store

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/shopspring/decimal"
)

// Store is a price table store that must be closed after use.
type Store interface {
	fundtrack.Store
	io.Closer
}

// Open returns the store for path, selected by its extension: ".db",
// ".sqlite" and ".sqlite3" for SQLite, ".parquet" for Parquet, and CSV for
// anything else.
func Open(path string) (Store, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".db", ".sqlite", ".sqlite3":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open %s: %w", path, err)
		}
		return s, nil
	case ".parquet":
		return &Parquet{Path: path}, nil
	default:
		return csvStore{fundtrack.CSVStore{Path: path}}, nil
	}
}

type csvStore struct{ fundtrack.CSVStore }

func (csvStore) Close() error { return nil }

// cell is a single value of the table in long format.
type cell struct {
	on    string
	label string
	price *string
}

// cells flattens a table, row by row then label by label.
func cells(t *fundtrack.Table) []cell {
	res := make([]cell, 0, len(t.Rows)*len(t.Labels))
	for _, row := range t.Rows {
		on := row.Date.String()
		for j, v := range row.Values {
			c := cell{on: on, label: t.Labels[j]}
			if v.Valid {
				p := v.Decimal.String()
				c.price = &p
			}
			res = append(res, c)
		}
	}
	return res
}

// table rebuilds a table from its labels, in column order, and its cells.
func table(labels []string, cells []cell) (*fundtrack.Table, error) {
	t := &fundtrack.Table{Labels: labels}
	column := make(map[string]int, len(labels))
	for j, l := range labels {
		column[l] = j
	}
	rows := make(map[date.Date]int)
	for i, c := range cells {
		j, ok := column[c.label]
		if !ok {
			return nil, &fundtrack.DataError{Ticker: c.label, Row: i, Err: errors.New("unknown fund")}
		}
		on, err := date.Parse(c.on)
		if err != nil {
			return nil, &fundtrack.DataError{Ticker: c.label, Row: i, Err: err}
		}
		r, ok := rows[on]
		if !ok {
			r = len(t.Rows)
			rows[on] = r
			t.Rows = append(t.Rows, fundtrack.Row{Date: on, Values: make([]decimal.NullDecimal, len(labels))})
		}
		if c.price == nil {
			continue
		}
		v, err := decimal.NewFromString(*c.price)
		if err != nil {
			return nil, &fundtrack.DataError{Ticker: c.label, Row: i, Err: err}
		}
		t.Rows[r].Values[j] = decimal.NewNullDecimal(v)
	}
	slices.SortFunc(t.Rows, func(a, b fundtrack.Row) int { return b.Date.Compare(a.Date) })
	return t, nil
}
