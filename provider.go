package fundtrack

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/fundtrack/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Provider fetches the price history of a fund.
//
// The returned series carries the fund ticker (or ISIN when it has no
// ticker), so that Merge can label it.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, fund Fund, r date.Range) (*Series, error)
}

// Fetcher fetches the price series of every fund of a registry.
type Fetcher struct {
	Providers map[string]Provider // by name
	Default   string              // provider for funds that do not name one
	Workers   int                 // parallel fetches, defaults to 4
	Retries   int                 // extra attempts per fund
	Backoff   time.Duration       // delay before the first retry, doubled each time; defaults to 1s
	Logger    zerolog.Logger
}

// Register adds providers under their names.
func (f *Fetcher) Register(providers ...Provider) {
	if f.Providers == nil {
		f.Providers = make(map[string]Provider)
	}
	for _, p := range providers {
		f.Providers[p.Name()] = p
	}
}

func (f *Fetcher) provider(fund Fund) (Provider, error) {
	name := fund.Provider
	if name == "" {
		name = f.Default
	}
	p, ok := f.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// FetchAll fetches every fund of the registry in parallel.
//
// A fund that cannot be fetched is logged and reported in the returned
// errors, and the others are still fetched: a single failure never aborts
// the whole fetch. Series are returned in registry order, without the
// failed ones.
func (f *Fetcher) FetchAll(ctx context.Context, reg *Registry, r date.Range) ([]*Series, []*FetchError) {
	funds := reg.Funds()
	series := make([]*Series, len(funds))
	errs := make([]*FetchError, len(funds))

	workers := f.Workers
	if workers <= 0 {
		workers = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, fund := range funds {
		g.Go(func() error {
			s, err := f.fetch(ctx, fund, r)
			if err != nil {
				errs[i] = err
				f.Logger.Warn().Err(err.Err).Str("fund", fund.Code).Str("ticker", fund.Key()).Str("provider", err.Provider).Msg("fetch failed, skipping fund")
				return nil
			}
			f.Logger.Info().Str("fund", fund.Code).Str("ticker", fund.Key()).Int("prices", s.Len()).Msg("fetched")
			series[i] = s
			return nil
		})
	}
	g.Wait()

	var ok []*Series
	var failed []*FetchError
	for i := range funds {
		if errs[i] != nil {
			failed = append(failed, errs[i])
		} else if series[i] != nil {
			ok = append(ok, series[i])
		}
	}
	return ok, failed
}

func (f *Fetcher) fetch(ctx context.Context, fund Fund, r date.Range) (*Series, *FetchError) {
	p, err := f.provider(fund)
	if err != nil {
		return nil, &FetchError{Ticker: fund.Key(), Provider: fund.Provider, Err: err}
	}
	backoff := f.Backoff
	if backoff == 0 {
		backoff = time.Second
	}
	var s *Series
	err = retry(ctx, f.Retries+1, backoff, func() error {
		var err error
		s, err = p.Fetch(ctx, fund, r)
		if err == nil && (s == nil || s.Len() == 0) {
			err = fmt.Errorf("no prices between %v", r)
		}
		var dataErr *DataError
		if errors.As(err, &dataErr) {
			// malformed data will not get better.
			return permanent{err}
		}
		return err
	})
	var perm permanent
	if errors.As(err, &perm) {
		err = perm.error
	}
	if err != nil {
		return nil, &FetchError{Ticker: fund.Key(), Provider: p.Name(), Err: err}
	}
	s.Ticker = fund.Key()
	return s, nil
}

// permanent marks an error that retry must not retry.
type permanent struct{ error }

// retry calls fn up to attempts times with exponential backoff starting at
// delay. It returns the last error.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var perm permanent
		if errors.As(err, &perm) {
			return err
		}
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return err
}

// DirProvider reads price histories from a directory of CSV files, one per
// fund, named after the fund key: "<dir>/<key>.csv".
type DirProvider struct {
	Dir string
}

func (DirProvider) Name() string { return "file" }

// Fetch reads the fund file and keeps the prices within r.
func (p DirProvider) Fetch(_ context.Context, fund Fund, r date.Range) (*Series, error) {
	s, err := ReadSeriesFile(filepath.Join(p.Dir, fund.Key()+".csv"))
	if err != nil {
		return nil, err
	}
	s.Ticker = fund.Key()
	return s.Restrict(r), nil
}

// ReadSeriesFile reads a series file. The ticker is the file name without
// its extension.
func ReadSeriesFile(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ticker := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return DecodeSeries(f, ticker)
}

// DecodeSeries reads a series in CSV format: a Date column and a Price (or
// Close) column, in any order and with any other columns. Rows with a valid
// date and an empty price are skipped.
func DecodeSeries(r io.Reader, ticker string) (*Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read %s header: %w", ticker, err)
	}
	dateCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "price", "close", "nav":
			if priceCol < 0 {
				priceCol = i
			}
		}
	}
	if dateCol < 0 || priceCol < 0 {
		return nil, fmt.Errorf("%s: need a Date and a Price column, got %q", ticker, header)
	}

	s := NewSeries(ticker)
	for i := 0; ; i++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataError{Ticker: ticker, Row: i, Err: err}
		}
		if dateCol >= len(record) || priceCol >= len(record) {
			return nil, &DataError{Ticker: ticker, Row: i, Err: errors.New("missing columns")}
		}
		on, err := date.Parse(record[dateCol])
		if err != nil {
			return nil, &DataError{Ticker: ticker, Row: i, Err: err}
		}
		cell := strings.TrimSpace(record[priceCol])
		if cell == "" || strings.EqualFold(cell, "nan") {
			continue
		}
		price, err := decimal.NewFromString(cell)
		if err != nil {
			return nil, &DataError{Ticker: ticker, Row: i, Err: err}
		}
		s.Append(on, price)
	}
	return s, nil
}
