// Package eodhd fetches fund prices from EOD Historical Data (https://eodhd.com).
package eodhd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/etnz/fundtrack/webcache"
	"github.com/rs/zerolog"
)

// DefaultExchange is the eodhd virtual exchange listing the european funds.
// See https://eodhd.com/financial-apis/covered-tickers-eodhd
const DefaultExchange = "EUFUND"

// Client fetches prices from eodhd.
type Client struct {
	apiKey   string
	baseURL  string
	exchange string
	daily    *http.Client // prices
	monthly  *http.Client // ticker lists, they barely change
	log      zerolog.Logger

	mu      sync.Mutex
	tickers map[string]string // isin to eodhd ticker
}

// New returns a client. baseURL defaults to https://eodhd.com and exchange
// to DefaultExchange.
func New(apiKey, baseURL, exchange string, cache webcache.Options) *Client {
	if baseURL == "" {
		baseURL = "https://eodhd.com"
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	log := cache.Logger.With().Str("provider", "eodhd").Logger()
	cache.Logger = log
	daily, monthly := cache, cache
	daily.Period, monthly.Period = date.Daily, date.Monthly
	return &Client{
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		exchange: exchange,
		daily:    webcache.NewClient(daily),
		monthly:  webcache.NewClient(monthly),
		log:      log,
		tickers:  make(map[string]string),
	}
}

func (c *Client) Name() string { return "eodhd" }

// Fetch returns the daily close prices of the fund within r.
//
// A fund ticker with an exchange suffix (like "0P0000XYZ.EUFUND") is used
// as is, otherwise the fund is looked up by ISIN in the client exchange.
func (c *Client) Fetch(ctx context.Context, fund fundtrack.Fund, r date.Range) (*fundtrack.Series, error) {
	if c.apiKey == "" {
		return nil, errors.New("eodhd needs an api key")
	}
	ticker, err := c.Ticker(ctx, fund)
	if err != nil {
		return nil, err
	}
	prices, err := c.fetchPrices(ctx, ticker, r)
	if err != nil {
		return nil, err
	}
	s := fundtrack.NewSeries(fund.Key())
	for i, p := range prices {
		if p.Date.IsZero() {
			return nil, &fundtrack.DataError{Ticker: ticker, Row: i, Err: errors.New("no date")}
		}
		if !p.Close.Valid {
			continue
		}
		s.Append(p.Date, p.Close.Decimal)
	}
	return s, nil
}

// Ticker returns the eodhd ticker of the fund.
func (c *Client) Ticker(ctx context.Context, fund fundtrack.Fund) (string, error) {
	if strings.Contains(fund.Ticker, ".") {
		return fund.Ticker, nil
	}
	isin := fund.ISIN
	if isin == "" {
		return "", fmt.Errorf("fund %q has neither an eodhd ticker nor an ISIN", fund.Code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tickers[isin]; ok {
		return t, nil
	}
	tickers, err := c.fetchTickers(ctx, false)
	if err != nil {
		// try with delisted
		tickers, err = c.fetchTickers(ctx, true)
		if err != nil {
			return "", err
		}
	}
	for _, t := range tickers {
		if t.Isin != "" {
			c.tickers[t.Isin] = t.Code + "." + c.exchange
		}
	}
	if t, ok := c.tickers[isin]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%s is not traded in eodhd's exchange %s", isin, c.exchange)
}

var _ fundtrack.Provider = (*Client)(nil)
