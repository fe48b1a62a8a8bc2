package fundtrack

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Fund describes a fund of the registry.
type Fund struct {
	ISIN     string
	Ticker   string // identifier used by price providers
	Code     string // short label, used as column name in the price table
	Name     string // display name
	Type     string
	Colour   string
	Provider string // provider adapter to fetch this fund from, empty for the default one
}

// Key returns the identifier used to request the fund to providers: its
// ticker, or its ISIN for funds that have no ticker.
func (f Fund) Key() string {
	if f.Ticker != "" {
		return f.Ticker
	}
	return f.ISIN
}

// Registry is the ordered list of funds being tracked.
//
// The order is meaningful: it is the column order of the price table.
type Registry struct {
	funds []Fund
}

// NewRegistry returns a registry with the given funds. It fails like Add does.
func NewRegistry(funds ...Fund) (*Registry, error) {
	r := new(Registry)
	for _, f := range funds {
		if err := r.Add(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends a fund to the registry.
//
// A fund needs a code and either a ticker or an ISIN, and neither its code
// nor its key can already be in use.
func (r *Registry) Add(f Fund) error {
	f = f.normalized()
	if f.Code == "" {
		return errors.New("fund code is required")
	}
	if f.Key() == "" {
		return fmt.Errorf("fund %q needs a ticker or an ISIN", f.Code)
	}
	for _, x := range r.funds {
		if x.Code == f.Code {
			return fmt.Errorf("fund code %q is already used by %q", f.Code, x.Key())
		}
		if x.Key() == f.Key() {
			return fmt.Errorf("fund %q is already registered as %q", f.Key(), x.Code)
		}
	}
	r.funds = append(r.funds, f)
	return nil
}

func (f Fund) normalized() Fund {
	f.ISIN = strings.TrimSpace(f.ISIN)
	f.Ticker = strings.TrimSpace(f.Ticker)
	f.Code = strings.TrimSpace(f.Code)
	f.Name = strings.TrimSpace(f.Name)
	f.Type = strings.TrimSpace(f.Type)
	f.Colour = strings.TrimSpace(f.Colour)
	f.Provider = strings.ToLower(strings.TrimSpace(f.Provider))
	return f
}

// Len returns the number of funds.
func (r *Registry) Len() int { return len(r.funds) }

// Funds returns a copy of the funds, in registry order.
func (r *Registry) Funds() []Fund { return slices.Clone(r.funds) }

// Codes returns the fund codes, in registry order.
func (r *Registry) Codes() []string {
	codes := make([]string, len(r.funds))
	for i, f := range r.funds {
		codes[i] = f.Code
	}
	return codes
}

// Fund returns the fund with that code.
func (r *Registry) Fund(code string) (Fund, bool) {
	for _, f := range r.funds {
		if f.Code == code {
			return f, true
		}
	}
	return Fund{}, false
}

// LabelOf returns the code of the fund requested to providers as key. Both
// tickers and ISINs are recognized.
func (r *Registry) LabelOf(key string) (string, bool) {
	for _, f := range r.funds {
		if f.Key() == key || (f.Ticker != "" && f.Ticker == key) || (f.ISIN != "" && f.ISIN == key) {
			return f.Code, true
		}
	}
	return "", false
}

// position returns the index of the code in the registry, or -1.
func (r *Registry) position(code string) int {
	return slices.IndexFunc(r.funds, func(f Fund) bool { return f.Code == code })
}

// registry file column names.
const (
	colISIN     = "isin"
	colTicker   = "ticker"
	colFund     = "fund"
	colName     = "fund name"
	colType     = "type"
	colColour   = "colour"
	colColor    = "color"
	colProvider = "provider"
)

var registryHeader = []string{"ISIN", "Ticker", "Fund", "Fund Name", "Type", "Colour", "Provider"}

// DecodeRegistry reads a registry in CSV format.
//
// Columns are matched by header name, case insensitive: ISIN, Ticker, Fund,
// Fund Name, Type, Colour (or Color) and Provider. Only Fund is mandatory.
func DecodeRegistry(r io.Reader) (*Registry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return new(Registry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read registry header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[colFund]; !ok {
		return nil, fmt.Errorf("registry has no %q column", "Fund")
	}
	if _, ok := cols[colColour]; !ok {
		if i, ok := cols[colColor]; ok {
			cols[colColour] = i
		}
	}

	reg := new(Registry)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read registry line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		f := Fund{
			ISIN:     get(colISIN),
			Ticker:   get(colTicker),
			Code:     get(colFund),
			Name:     get(colName),
			Type:     get(colType),
			Colour:   get(colColour),
			Provider: get(colProvider),
		}
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue // blank line
		}
		if err := reg.Add(f); err != nil {
			return nil, fmt.Errorf("registry line %d: %w", line, err)
		}
	}
	return reg, nil
}

// EncodeRegistry writes the registry in CSV format.
func EncodeRegistry(w io.Writer, reg *Registry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(registryHeader); err != nil {
		return err
	}
	for _, f := range reg.funds {
		if err := cw.Write([]string{f.ISIN, f.Ticker, f.Code, f.Name, f.Type, f.Colour, f.Provider}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadRegistry reads the registry file at path.
func LoadRegistry(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open registry: %w", err)
	}
	defer f.Close()
	reg, err := DecodeRegistry(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// AppendFund adds a fund to the registry file at path, creating the file if
// it does not exist yet. The file is rewritten atomically.
func AppendFund(path string, f Fund) (*Registry, error) {
	reg, err := LoadRegistry(path)
	if errors.Is(err, os.ErrNotExist) {
		reg, err = new(Registry), nil
	}
	if err != nil {
		return nil, err
	}
	if err := reg.Add(f); err != nil {
		return nil, fmt.Errorf("%w fund: %w", ErrInvalid, err)
	}
	var buf bytes.Buffer
	if err := EncodeRegistry(&buf, reg); err != nil {
		return nil, err
	}
	if err := WriteFileAtomic(path, buf.Bytes()); err != nil {
		return nil, err
	}
	return reg, nil
}
