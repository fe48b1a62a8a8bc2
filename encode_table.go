package fundtrack

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/fundtrack/date"
	"github.com/shopspring/decimal"
)

// Sink persists a price table. Each Write fully replaces the previous content.
type Sink interface {
	Write(ctx context.Context, t *Table) error
}

// Source reads a price table back.
type Source interface {
	Read(ctx context.Context) (*Table, error)
}

// Store is a Sink that can also be read from.
type Store interface {
	Sink
	Source
}

const dateColumn = "Date"

// EncodeTable writes the table as CSV: a Date column with ISO dates, then one
// column per label with prices to the cent. Unknown values are empty strings.
// Rows are written in table order (most recent first).
func EncodeTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{dateColumn}, t.Labels...)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range t.Rows {
		record[0] = row.Date.String()
		for j, v := range row.Values {
			record[j+1] = ""
			if v.Valid {
				record[j+1] = v.Decimal.StringFixed(2)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeTable reads a table written by EncodeTable. Rows are sorted most
// recent first whatever their order in the file.
//
// Malformed dates or prices are reported as *DataError, with the label as
// ticker and the 0-based data row.
func DecodeTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read table header: %w", err)
	}
	if len(header) == 0 || !strings.EqualFold(header[0], dateColumn) {
		return nil, fmt.Errorf("table must start with a %q column, got %q", dateColumn, header)
	}
	t := &Table{Labels: slices.Clone(header[1:])}
	for i := 0; ; i++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read table row %d: %w", i, err)
		}
		on, err := date.Parse(record[0])
		if err != nil {
			return nil, &DataError{Ticker: dateColumn, Row: i, Err: err}
		}
		row := Row{Date: on, Values: make([]decimal.NullDecimal, len(t.Labels))}
		for j, cell := range record[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" || strings.EqualFold(cell, "nan") {
				continue
			}
			v, err := decimal.NewFromString(cell)
			if err != nil {
				return nil, &DataError{Ticker: t.Labels[j], Row: i, Err: err}
			}
			row.Values[j] = decimal.NewNullDecimal(v)
		}
		t.Rows = append(t.Rows, row)
	}
	slices.SortStableFunc(t.Rows, func(a, b Row) int { return b.Date.Compare(a.Date) })
	return t, nil
}

// CSVStore stores the price table in a CSV file.
type CSVStore struct {
	Path string
}

// Write replaces the file content with the table. The table is written to a
// temporary file first and renamed, so that a crash never leaves a partial file.
func (s CSVStore) Write(_ context.Context, t *Table) error {
	var buf bytes.Buffer
	if err := EncodeTable(&buf, t); err != nil {
		return err
	}
	return WriteFileAtomic(s.Path, buf.Bytes())
}

// Read reads the table from the file.
func (s CSVStore) Read(_ context.Context) (*Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := DecodeTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return t, nil
}

// WriteFileAtomic writes content to a temp file in the directory of path,
// then renames it to path.
func WriteFileAtomic(path string, content []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ Store = CSVStore{}
