// Package jpmorgan fetches fund NAV histories from the J.P. Morgan Asset
// Management spreadsheet export.
//
// Funds are identified by ISIN. The export is an xlsx workbook: a few title
// rows, then one row per day with a DD.MM.YYYY date and the NAV.
package jpmorgan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/etnz/fundtrack/webcache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// titleRows is the number of rows before the first NAV row.
const titleRows = 5

const navDateFormat = "02.01.2006"

// Options configures a Client.
type Options struct {
	BaseURL string // defaults to https://am.jpmorgan.com
	Country string // defaults to "it"
	Role    string // defaults to "adv"
	Locale  string // defaults to "it-IT"
}

// Client downloads NAV histories.
type Client struct {
	opts   Options
	client *http.Client
	log    zerolog.Logger
}

// New returns a client.
func New(opts Options, cache webcache.Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://am.jpmorgan.com"
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.Country == "" {
		opts.Country = "it"
	}
	if opts.Role == "" {
		opts.Role = "adv"
	}
	if opts.Locale == "" {
		opts.Locale = "it-IT"
	}
	cache.Logger = cache.Logger.With().Str("provider", "jpmorgan").Logger()
	cache.Period = date.Daily
	return &Client{opts: opts, client: webcache.NewClient(cache), log: cache.Logger}
}

func (c *Client) Name() string { return "jpmorgan" }

// Fetch downloads the NAV history of the fund ISIN within r.
func (c *Client) Fetch(ctx context.Context, fund fundtrack.Fund, r date.Range) (*fundtrack.Series, error) {
	if fund.ISIN == "" {
		return nil, fmt.Errorf("fund %q has no ISIN", fund.Code)
	}
	q := url.Values{}
	q.Set("type", "historicalNav")
	q.Set("cusip", fund.ISIN)
	q.Set("country", c.opts.Country)
	q.Set("role", c.opts.Role)
	q.Set("locale", c.opts.Locale)
	q.Set("fromDate", r.From.String())
	q.Set("toDate", r.To.String())
	addr := fmt.Sprintf("%s/FundsMarketingHandler/excel?%s", c.opts.BaseURL, q.Encode())

	body, err := webcache.Get(ctx, c.client, addr, http.Header{
		"Accept": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	})
	if err != nil {
		return nil, err
	}
	s, err := DecodeNAV(bytes.NewReader(body), fund.Key())
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("isin", fund.ISIN).Int("navs", s.Len()).Msg("excel")
	return s.Restrict(r), nil
}

// DecodeNAV reads a NAV workbook from its first sheet. Rows with a blank
// date or NAV are skipped, malformed ones are a *fundtrack.DataError.
func DecodeNAV(r io.Reader, ticker string) (*fundtrack.Series, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: not a NAV workbook: %w", ticker, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: empty workbook", ticker)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: cannot read sheet %q: %w", ticker, sheets[0], err)
	}

	s := fundtrack.NewSeries(ticker)
	for i := titleRows; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 2 {
			continue
		}
		cellDate, cellNAV := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if cellDate == "" || cellNAV == "" {
			continue
		}
		on, err := time.Parse(navDateFormat, cellDate)
		if err != nil {
			return nil, &fundtrack.DataError{Ticker: ticker, Row: i, Err: err}
		}
		nav, err := parseNAV(cellNAV)
		if err != nil {
			return nil, &fundtrack.DataError{Ticker: ticker, Row: i, Err: err}
		}
		s.Append(date.New(on.Date()), nav)
	}
	return s, nil
}

// parseNAV parses a number with either a dot or a comma as decimal separator.
func parseNAV(s string) (decimal.Decimal, error) {
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("invalid NAV " + s)
	}
	return v, nil
}

var _ fundtrack.Provider = (*Client)(nil)
