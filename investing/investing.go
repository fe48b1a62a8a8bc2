// Package investing fetches historical prices from investing.com.
//
// Instruments are identified by a pair id that is looked up from the fund
// ticker first.
package investing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/etnz/fundtrack/webcache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// the api rejects requests without it.
var header = http.Header{"Domain-Id": {"www"}}

// Client fetches prices from investing.com.
type Client struct {
	baseURL string
	loc     *time.Location
	client  *http.Client
	log     zerolog.Logger

	mu    sync.Mutex
	pairs map[string]int64 // ticker to pair id
}

// New returns a client. baseURL defaults to https://api.investing.com and
// dates are reduced in loc (UTC if nil).
func New(baseURL string, loc *time.Location, cache webcache.Options) *Client {
	if baseURL == "" {
		baseURL = "https://api.investing.com"
	}
	if loc == nil {
		loc = time.UTC
	}
	cache.Logger = cache.Logger.With().Str("provider", "investing").Logger()
	cache.Period = date.Daily
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		loc:     loc,
		client:  webcache.NewClient(cache),
		log:     cache.Logger,
		pairs:   make(map[string]int64),
	}
}

func (c *Client) Name() string { return "investing" }

// Quote describes an instrument as found by the search api.
type Quote struct {
	ID          int64  `json:"id"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Exchange    string `json:"exchange"`
	Type        string `json:"type"`
	Flag        string `json:"flag"`
}

func (c *Client) search(ctx context.Context, query string) (any, error) {
	addr := fmt.Sprintf("%s/api/search/v2/search?q=%s", c.baseURL, url.QueryEscape(query))
	var payload any
	if err := webcache.GetJSON(ctx, c.client, addr, header, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Info returns the best match of the search api for query, a ticker or an ISIN.
func (c *Client) Info(ctx context.Context, query string) (Quote, error) {
	payload, err := c.search(ctx, query)
	if err != nil {
		return Quote{}, err
	}
	jval, err := jsonpath.Get("$.quotes[0]", payload)
	if err != nil {
		return Quote{}, fmt.Errorf("no instrument matches %q: %w", query, err)
	}
	// round trip through json to fill the struct.
	raw, err := json.Marshal(jval)
	if err != nil {
		return Quote{}, err
	}
	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return Quote{}, fmt.Errorf("unexpected quote for %q: %w", query, err)
	}
	if q.ID == 0 {
		return Quote{}, fmt.Errorf("no instrument matches %q", query)
	}
	return q, nil
}

// PairID returns the investing.com pair id of the ticker. Ids are memoized.
func (c *Client) PairID(ctx context.Context, ticker string) (int64, error) {
	c.mu.Lock()
	id, ok := c.pairs[ticker]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	payload, err := c.search(ctx, ticker)
	if err != nil {
		return 0, err
	}
	jval, err := jsonpath.Get("$.quotes[0].id", payload)
	if err != nil {
		return 0, fmt.Errorf("no pair id for %q: %w", ticker, err)
	}
	// jsonpath may return a list of one answer.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok || val <= 0 {
		return 0, fmt.Errorf("no pair id for %q, got %v", ticker, jval)
	}
	id = int64(val)

	c.mu.Lock()
	c.pairs[ticker] = id
	c.mu.Unlock()
	return id, nil
}

type historical struct {
	Data []struct {
		Timestamp string              `json:"rowDateTimestamp"`
		Close     decimal.NullDecimal `json:"last_closeRaw"`
	} `json:"data"`
}

// Fetch returns the daily closing prices of the fund within r. The fund is
// searched by ticker, or by ISIN when it has no ticker.
func (c *Client) Fetch(ctx context.Context, fund fundtrack.Fund, r date.Range) (*fundtrack.Series, error) {
	id, err := c.PairID(ctx, fund.Key())
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("start-date", r.From.String())
	q.Set("end-date", r.To.String())
	q.Set("time-frame", "Daily")
	q.Set("add-missing-rows", "false")
	addr := fmt.Sprintf("%s/api/financialdata/historical/%s?%s", c.baseURL, strconv.FormatInt(id, 10), q.Encode())

	var payload historical
	if err := webcache.GetJSON(ctx, c.client, addr, header, &payload); err != nil {
		return nil, err
	}

	s := fundtrack.NewSeries(fund.Key())
	for i, row := range payload.Data {
		ts, err := time.Parse(time.RFC3339, row.Timestamp)
		if err != nil {
			return nil, &fundtrack.DataError{Ticker: fund.Key(), Row: i, Err: err}
		}
		if !row.Close.Valid {
			return nil, &fundtrack.DataError{Ticker: fund.Key(), Row: i, Err: errors.New("no closing price")}
		}
		s.Append(date.In(ts, c.loc), row.Close.Decimal)
	}
	c.log.Debug().Str("ticker", fund.Key()).Int64("pair", id).Int("prices", s.Len()).Msg("historical")
	return s, nil
}

var _ fundtrack.Provider = (*Client)(nil)
