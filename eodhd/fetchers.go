package eodhd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/etnz/fundtrack/date"
	"github.com/etnz/fundtrack/webcache"
	"github.com/shopspring/decimal"
)

// This file contains functions to access the EODHD API.

type eodPrice struct {
	Date  date.Date           `json:"date"`
	Open  decimal.NullDecimal `json:"open"`
	Close decimal.NullDecimal `json:"close"`
}

// fetchPrices returns the daily prices for a given EODHD ticker.
// The EODHD ticker format is typically "SYMBOL.EXCHANGECODE".
func (c *Client) fetchPrices(ctx context.Context, ticker string, r date.Range) ([]eodPrice, error) {
	// https://eodhd.com/api/eod/NVD.F?api_token=demo&fmt=json
	// [
	//	{
	//		"date": "2024-02-13",
	//		"open": 675.066,
	//		"high": 684.219,
	//		"low": 648.659,
	//		"close": 668.445,
	//		"adjusted_close": 67.705,
	//		"volume": 0
	//	},
	// bounds are included in the response.
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.apiKey)
	q.Set("from", r.From.String())
	q.Set("to", r.To.String())
	addr := fmt.Sprintf("%s/api/eod/%s?%s", c.baseURL, url.PathEscape(ticker), q.Encode())

	var content []eodPrice
	if err := webcache.GetJSON(ctx, c.daily, addr, nil, &content); err != nil {
		return nil, fmt.Errorf("cannot fetch %s prices: %w", ticker, err)
	}
	return content, nil
}

// TickerInfo holds information about a specific ticker on an exchange from the EODHD API.
type TickerInfo struct {
	Code     string `json:"Code"`
	Name     string `json:"Name"`
	Country  string `json:"Country"`
	Exchange string `json:"Exchange"`
	Currency string `json:"Currency"`
	Type     string `json:"Type"`
	Isin     string `json:"Isin"`
}

// fetchTickers retrieves the list of all tickers of the client exchange.
func (c *Client) fetchTickers(ctx context.Context, delisted bool) ([]TickerInfo, error) {
	// https://eodhd.com/api/exchange-symbol-list/{EXCHANGE_CODE}
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.apiKey)
	if delisted {
		q.Set("delisted", "1")
	}
	addr := fmt.Sprintf("%s/api/exchange-symbol-list/%s?%s", c.baseURL, c.exchange, q.Encode())

	var content []TickerInfo
	if err := webcache.GetJSON(ctx, c.monthly, addr, nil, &content); err != nil {
		return nil, fmt.Errorf("failed to fetch tickers for exchange %s: %w", c.exchange, err)
	}
	return content, nil
}

// SearchResult matches the structure of a single item in the EODHD search API response.
type SearchResult struct {
	Code              string          `json:"Code"`
	Exchange          string          `json:"Exchange"`
	Name              string          `json:"Name"`
	Type              string          `json:"Type"`
	Country           string          `json:"Country"`
	Currency          string          `json:"Currency"`
	ISIN              string          `json:"ISIN"`
	PreviousClose     decimal.Decimal `json:"previousClose"`
	PreviousCloseDate string          `json:"previousCloseDate"`
}

// Ticker returns the ticker to register the result with.
func (r SearchResult) Ticker() string { return r.Code + "." + r.Exchange }

// Search searches for securities by name, ticker or ISIN.
func (c *Client) Search(ctx context.Context, term string) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.apiKey)
	addr := fmt.Sprintf("%s/api/search/%s?%s", c.baseURL, url.PathEscape(term), q.Encode())

	var results []SearchResult
	if err := webcache.GetJSON(ctx, c.daily, addr, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}
