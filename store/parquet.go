package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/fundtrack"
	"github.com/parquet-go/parquet-go"
)

// labelsKey is the file metadata key holding the column labels, in order, so
// that a table without rows keeps its labels.
const labelsKey = "fundtrack.labels"

// PriceRecord is the Parquet schema of a price, in long format.
type PriceRecord struct {
	Date     string  `parquet:"date"`
	Fund     string  `parquet:"fund"`
	Position int32   `parquet:"position"` // column of the fund in the table
	Price    *string `parquet:"price,optional"`
}

// Parquet stores the price table in a Parquet file.
type Parquet struct {
	Path string
}

// Write replaces the file with the table. It is written to a temporary file
// first and renamed.
func (s *Parquet) Write(_ context.Context, t *fundtrack.Table) error {
	position := make(map[string]int32, len(t.Labels))
	for j, l := range t.Labels {
		position[l] = int32(j)
	}
	all := cells(t)
	records := make([]PriceRecord, len(all))
	for i, c := range all {
		records[i] = PriceRecord{Date: c.on, Fund: c.label, Position: position[c.label], Price: c.price}
	}
	labels, err := json.Marshal(t.Labels)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, records, parquet.KeyValueMetadata(labelsKey, string(labels))); err != nil {
		return fmt.Errorf("encode parquet: %w", err)
	}
	return fundtrack.WriteFileAtomic(s.Path, buf.Bytes())
}

// Read reads the table back.
func (s *Parquet) Read(_ context.Context) (*fundtrack.Table, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	f, err := parquet.OpenFile(r, r.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	records, err := parquet.Read[PriceRecord](r, r.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	var labels []string
	if v, ok := f.Lookup(labelsKey); ok {
		if err := json.Unmarshal([]byte(v), &labels); err != nil {
			return nil, fmt.Errorf("%s: invalid %s metadata: %w", s.Path, labelsKey, err)
		}
	} else {
		// files without metadata: labels in order of their position.
		slices.SortStableFunc(records, func(a, b PriceRecord) int { return int(a.Position) - int(b.Position) })
		for _, r := range records {
			if n := len(labels); n == 0 || labels[n-1] != r.Fund {
				labels = append(labels, r.Fund)
			}
		}
	}
	all := make([]cell, len(records))
	for i, r := range records {
		all[i] = cell{on: r.Date, label: r.Fund, price: r.Price}
	}
	return table(labels, all)
}

// Close does nothing, the file is only open during Read and Write.
func (s *Parquet) Close() error { return nil }

var _ Store = (*Parquet)(nil)
