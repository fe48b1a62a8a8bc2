package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/fundtrack"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	opts := Options{
		Registry: write("funds.csv", "ISIN,Ticker,Fund,Fund Name,Type,Colour,Provider\n"+
			",US.TICK,US,US Equity,,,\n"+
			"LU0000000001,,EU,EU Bonds,,,\n"),
		Transactions: write("transactions.csv", "Date,Fund,Price,Quantity,Fees\n2024-01-01,US,5,20,2\n"),
		Prices: fundtrack.CSVStore{Path: write("prices.csv", "Date,US,EU\n"+
			"2024-01-03,10.20,5.50\n"+
			"2024-01-02,10.00,5.50\n"+
			"2024-01-01,10.00,\n")},
		Currency:    "USD",
		CORSOrigins: []string{"http://localhost:3000"},
		Logger:      zerolog.Nop(),
	}
	return New(opts), dir
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFunds(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "GET", "/api/funds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var funds []fundJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &funds))
	require.Len(t, funds, 2)
	assert.Equal(t, "US", funds[0].Code)
	assert.Equal(t, "LU0000000001", funds[1].ISIN)

	rec = do(t, s, "POST", "/api/funds", `{"code":"JP","ticker":"JP.TICK","provider":"yahoo"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, "GET", "/api/funds", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &funds))
	require.Len(t, funds, 3)
	assert.Equal(t, "JP", funds[2].Code)

	rec = do(t, s, "POST", "/api/funds", `{"code":"US","ticker":"OTHER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "code already in use")

	rec = do(t, s, "POST", "/api/funds", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrices(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "GET", "/api/prices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"labels": ["US", "EU"],
		"rows": [
			{"date": "2024-01-03", "prices": ["10.20", "5.50"]},
			{"date": "2024-01-02", "prices": ["10.00", "5.50"]},
			{"date": "2024-01-01", "prices": ["10.00", null]}
		]
	}`, rec.Body.String())

	rec = do(t, s, "GET", "/api/prices?from=2024-01-02&to=2024-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res pricesJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "2024-01-02", res.Rows[0].Date.String())

	rec = do(t, s, "GET", "/api/prices?from=yesterday-ish", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricesMissingTable(t *testing.T) {
	s, dir := newTestServer(t)
	s.opts.Prices = fundtrack.CSVStore{Path: filepath.Join(dir, "none.csv")}

	rec := do(t, s, "GET", "/api/prices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"labels": [], "rows": []}`, rec.Body.String())
}

func TestHoldings(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "GET", "/api/holdings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"currency": "USD",
		"funds": [{
			"fund": "US",
			"quantity": "20",
			"invested": "102.00",
			"price": "10.20",
			"price_date": "2024-01-03",
			"value": "204.00",
			"gain": "102.00"
		}],
		"invested": "102.00",
		"value": "204.00",
		"gain": "102.00"
	}`, rec.Body.String())
}

func TestTransactions(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "POST", "/api/transactions", `{"date":"2024-01-05","fund":"EU","price":"5","quantity":"10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, "POST", "/api/transactions", `{"date":"2024-01-05","fund":"XX","price":"5","quantity":"10"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown fund")

	rec = do(t, s, "GET", "/api/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []transactionJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 2)
	assert.Equal(t, "EU", txs[1].Fund)
	assert.Equal(t, "50", txs[1].Quantity.Mul(txs[1].Price).String())
}

func TestAppendFailures(t *testing.T) {
	s, dir := newTestServer(t)
	// a directory can be neither read as a registry nor appended to.
	s.opts.Registry = dir
	s.opts.Transactions = dir

	rec := do(t, s, "POST", "/api/funds", `{"code":"JP","ticker":"JP.TICK"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	s, dir = newTestServer(t)
	s.opts.Transactions = dir
	rec = do(t, s, "POST", "/api/transactions", `{"date":"2024-01-05","fund":"EU","price":"5","quantity":"10"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	rec = do(t, s, "POST", "/api/transactions", `{"date":"2024-01-05","fund":"EU","price":"5","quantity":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "rejected before the file is touched")
}

func TestDashboard(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "GET", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Holdings</h1>")
	assert.Contains(t, body, "<h1>Prices</h1>")
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "$204.00")
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/funds", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/funds", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
