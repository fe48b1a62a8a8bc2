// Package yahoo fetches daily quotes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/etnz/fundtrack/webcache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options configures a Client.
type Options struct {
	BaseURL  string         // defaults to https://query1.finance.yahoo.com
	Suffix   string         // appended to every ticker, like ".F" for Frankfurt
	Field    string         // quote field to use: "open" (default) or "close"
	Location *time.Location // reference timezone of the dates, defaults to UTC
}

// Client fetches quote histories by ticker.
type Client struct {
	opts   Options
	client *http.Client
	log    zerolog.Logger
}

// New returns a client.
func New(opts Options, cache webcache.Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://query1.finance.yahoo.com"
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	switch opts.Field {
	case "":
		opts.Field = "open"
	case "open", "close":
	default:
		return nil, fmt.Errorf("yahoo: unsupported quote field %q", opts.Field)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	cache.Logger = cache.Logger.With().Str("provider", "yahoo").Logger()
	cache.Period = date.Daily
	return &Client{opts: opts, client: webcache.NewClient(cache), log: cache.Logger}, nil
}

func (c *Client) Name() string { return "yahoo" }

// chart is the payload of the chart API.
type chart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []decimal.NullDecimal `json:"open"`
					Close []decimal.NullDecimal `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns the daily quotes of the fund ticker within r.
//
// Bars are timestamped instants; they are converted to the client location
// before being reduced to a date. Bars without a value are skipped.
func (c *Client) Fetch(ctx context.Context, fund fundtrack.Fund, r date.Range) (*fundtrack.Series, error) {
	if fund.Ticker == "" {
		return nil, fmt.Errorf("fund %q has no ticker", fund.Code)
	}
	symbol := fund.Ticker + c.opts.Suffix
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(r.From.Time(c.opts.Location).Unix(), 10))
	q.Set("period2", strconv.FormatInt(r.To.Add(1).Time(c.opts.Location).Unix(), 10))
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.opts.BaseURL, url.PathEscape(symbol), q.Encode())

	body, err := webcache.Get(ctx, c.client, addr, nil)
	if err != nil {
		return nil, err
	}
	var payload chart
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &fundtrack.DataError{Ticker: symbol, Err: err}
	}
	if e := payload.Chart.Error; e != nil {
		return nil, fmt.Errorf("%s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: empty chart", symbol)
	}
	res := payload.Chart.Result[0]

	s := fundtrack.NewSeries(fund.Key())
	if len(res.Indicators.Quote) == 0 {
		return s, nil
	}
	values := res.Indicators.Quote[0].Open
	if c.opts.Field == "close" {
		values = res.Indicators.Quote[0].Close
	}
	if len(values) != len(res.Timestamp) {
		return nil, &fundtrack.DataError{Ticker: symbol, Row: min(len(values), len(res.Timestamp)),
			Err: fmt.Errorf("%d timestamps for %d quotes", len(res.Timestamp), len(values))}
	}
	for i, ts := range res.Timestamp {
		if !values[i].Valid {
			continue
		}
		on := date.In(time.Unix(ts, 0), c.opts.Location)
		if !r.Contains(on) {
			continue
		}
		s.Append(on, values[i].Decimal)
	}
	c.log.Debug().Str("ticker", symbol).Int("quotes", s.Len()).Msg("chart")
	return s, nil
}

var _ fundtrack.Provider = (*Client)(nil)
