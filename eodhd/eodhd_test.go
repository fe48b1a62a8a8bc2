package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/etnz/fundtrack/webcache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, listings *int) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exchange-symbol-list/EUFUND", func(w http.ResponseWriter, r *http.Request) {
		*listings++
		assert.Equal(t, "key", r.URL.Query().Get("api_token"))
		w.Write([]byte(`[{"Code":"0P0000ABCD","Name":"Some Fund","Exchange":"EUFUND","Currency":"EUR","Type":"FUND","Isin":"LU0000000001"}]`))
	})
	mux.HandleFunc("/api/eod/0P0000ABCD.EUFUND", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-01-31", r.URL.Query().Get("to"))
		w.Write([]byte(`[
			{"date":"2024-01-02","open":10.1,"close":10.25},
			{"date":"2024-01-03","open":10.2,"close":null},
			{"date":"2024-01-04","open":10.3,"close":10.5}
		]`))
	})
	mux.HandleFunc("/api/eod/IWDA.AS", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"date":"2024-01-02","open":80,"close":81}]`))
	})
	mux.HandleFunc("/api/search/world", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Code":"IWDA","Exchange":"AS","Name":"iShares Core MSCI World","ISIN":"IE00B4L5Y983","previousClose":81.2}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	return New("key", url, "", webcache.Options{Disabled: true, Logger: zerolog.Nop()})
}

var january = date.NewRange(date.New(2024, time.January, 1), date.New(2024, time.January, 31))

func TestFetchByISIN(t *testing.T) {
	listings := 0
	c := newTestClient(newTestServer(t, &listings).URL)
	fund := fundtrack.Fund{ISIN: "LU0000000001", Code: "SOME"}

	s, err := c.Fetch(context.Background(), fund, january)
	require.NoError(t, err)
	assert.Equal(t, "LU0000000001", s.Ticker)
	require.Equal(t, 2, s.Len(), "null closes are skipped")
	assert.Equal(t, date.New(2024, time.January, 2), s.Observations[0].Date)
	assert.Equal(t, "10.25", s.Observations[0].Price.String())
	assert.Equal(t, "10.5", s.Observations[1].Price.String())

	_, err = c.Fetch(context.Background(), fund, january)
	require.NoError(t, err)
	assert.Equal(t, 1, listings, "the ISIN lookup is memoized")
}

func TestFetchByTicker(t *testing.T) {
	listings := 0
	c := newTestClient(newTestServer(t, &listings).URL)

	s, err := c.Fetch(context.Background(), fundtrack.Fund{Ticker: "IWDA.AS", Code: "WORLD"}, january)
	require.NoError(t, err)
	assert.Equal(t, "IWDA.AS", s.Ticker)
	assert.Equal(t, 1, s.Len())
	assert.Zero(t, listings)
}

func TestFetchErrors(t *testing.T) {
	listings := 0
	srv := newTestServer(t, &listings)

	_, err := newTestClient(srv.URL).Fetch(context.Background(), fundtrack.Fund{ISIN: "XX0000000000", Code: "X"}, january)
	assert.ErrorContains(t, err, "not traded")

	_, err = newTestClient(srv.URL).Fetch(context.Background(), fundtrack.Fund{Ticker: "MISSING.AS", Code: "X"}, january)
	assert.ErrorContains(t, err, "404")

	nokey := New("", srv.URL, "", webcache.Options{Disabled: true})
	_, err = nokey.Fetch(context.Background(), fundtrack.Fund{Ticker: "IWDA.AS", Code: "X"}, january)
	assert.ErrorContains(t, err, "api key")
}

func TestSearch(t *testing.T) {
	listings := 0
	c := newTestClient(newTestServer(t, &listings).URL)

	results, err := c.Search(context.Background(), "world")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "IWDA.AS", results[0].Ticker())
	assert.Equal(t, "IE00B4L5Y983", results[0].ISIN)
}
