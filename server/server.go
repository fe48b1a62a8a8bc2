// Package server serves the price table, the registry and the holdings over
// HTTP, with a small HTML dashboard.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/etnz/fundtrack/renderer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Options configures the server.
type Options struct {
	Registry     string           // registry CSV file
	Transactions string           // transaction log CSV file
	Prices       fundtrack.Source // price table
	Currency     string
	Rows         int // price rows on the dashboard, all if <= 0
	CORSOrigins  []string
	Logger       zerolog.Logger
}

// Server is the HTTP server.
type Server struct {
	opts   Options
	router *chi.Mux
	log    zerolog.Logger
	md     goldmark.Markdown

	// serializes the writes to the registry and the transaction log.
	mu sync.Mutex
}

// New returns a server with its routes set up.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		router: chi.NewRouter(),
		log:    opts.Logger.With().Str("component", "server").Logger(),
		md:     goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	if len(s.opts.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleDashboard)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/funds", s.handleFunds)
		r.Post("/funds", s.handleAddFund)
		r.Get("/prices", s.handlePrices)
		r.Get("/holdings", s.handleHoldings)
		r.Get("/transactions", s.handleTransactions)
		r.Post("/transactions", s.handleAddTransaction)
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting HTTP server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down HTTP server")
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// registry loads the registry file. A missing file is an empty registry.
func (s *Server) registry() (*fundtrack.Registry, error) {
	reg, err := fundtrack.LoadRegistry(s.opts.Registry)
	if errors.Is(err, os.ErrNotExist) {
		return new(fundtrack.Registry), nil
	}
	return reg, err
}

// prices reads the price table. A missing table is an empty one.
func (s *Server) prices(ctx context.Context) (*fundtrack.Table, error) {
	t, err := s.opts.Prices.Read(ctx)
	if errors.Is(err, os.ErrNotExist) {
		return new(fundtrack.Table), nil
	}
	return t, err
}

func (s *Server) holdings(ctx context.Context) (*fundtrack.Holdings, *fundtrack.Table, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, nil, err
	}
	txs, err := fundtrack.LoadTransactions(s.opts.Transactions)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.prices(ctx)
	if err != nil {
		return nil, nil, err
	}
	return fundtrack.ComputeHoldings(reg, txs, t), t, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	h, t, err := s.holdings(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	var body bytes.Buffer
	if err := s.md.Convert([]byte(renderer.ReportMarkdown(h, t, s.opts.Currency, s.opts.Rows)), &body); err != nil {
		s.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, page, body.String())
}

const page = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>ftk</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { padding: 0.2em 0.8em; border-bottom: 1px solid #ddd; }
</style>
</head>
<body>
%s
</body>
</html>
`

type fundJSON struct {
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	Ticker   string `json:"ticker,omitempty"`
	ISIN     string `json:"isin,omitempty"`
	Type     string `json:"type,omitempty"`
	Colour   string `json:"colour,omitempty"`
	Provider string `json:"provider,omitempty"`
}

func newFundJSON(f fundtrack.Fund) fundJSON {
	return fundJSON{
		Code:     f.Code,
		Name:     f.Name,
		Ticker:   f.Ticker,
		ISIN:     f.ISIN,
		Type:     f.Type,
		Colour:   f.Colour,
		Provider: f.Provider,
	}
}

func (f fundJSON) fund() fundtrack.Fund {
	return fundtrack.Fund{
		Code:     f.Code,
		Name:     f.Name,
		Ticker:   f.Ticker,
		ISIN:     f.ISIN,
		Type:     f.Type,
		Colour:   f.Colour,
		Provider: f.Provider,
	}
}

func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request) {
	reg, err := s.registry()
	if err != nil {
		s.internalError(w, err)
		return
	}
	funds := []fundJSON{}
	for _, f := range reg.Funds() {
		funds = append(funds, newFundJSON(f))
	}
	s.writeJSON(w, http.StatusOK, funds)
}

func (s *Server) handleAddFund(w http.ResponseWriter, r *http.Request) {
	var req fundJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fundtrack.AppendFund(s.opts.Registry, req.fund()); err != nil {
		s.appendError(w, err)
		return
	}
	s.log.Info().Str("fund", req.Code).Msg("fund added")
	s.writeJSON(w, http.StatusCreated, req)
}

type pricesJSON struct {
	Labels []string   `json:"labels"`
	Rows   []priceRow `json:"rows"`
}

type priceRow struct {
	Date   date.Date `json:"date"`
	Prices []*string `json:"prices"` // null when unknown
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	var rng date.Range
	var err error
	if from := r.URL.Query().Get("from"); from != "" {
		if rng.From, err = date.ParseRelative(from); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	rng.To = date.Today()
	if to := r.URL.Query().Get("to"); to != "" {
		if rng.To, err = date.ParseRelative(to); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	t, err := s.prices(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	t = t.Slice(rng)

	res := pricesJSON{Labels: t.Labels, Rows: []priceRow{}}
	if res.Labels == nil {
		res.Labels = []string{}
	}
	for _, row := range t.Rows {
		pr := priceRow{Date: row.Date, Prices: make([]*string, len(row.Values))}
		for i, v := range row.Values {
			if v.Valid {
				p := v.Decimal.StringFixed(2)
				pr.Prices[i] = &p
			}
		}
		res.Rows = append(res.Rows, pr)
	}
	s.writeJSON(w, http.StatusOK, res)
}

type holdingJSON struct {
	Fund      string     `json:"fund"`
	Quantity  string     `json:"quantity"`
	Invested  string     `json:"invested"`
	Price     *string    `json:"price"`
	PriceDate *date.Date `json:"price_date"`
	Value     *string    `json:"value"`
	Gain      *string    `json:"gain"`
}

type holdingsJSON struct {
	Currency string        `json:"currency"`
	Funds    []holdingJSON `json:"funds"`
	Invested string        `json:"invested"`
	Value    string        `json:"value"`
	Gain     string        `json:"gain"`
}

func fixed(d decimal.Decimal) *string {
	s := d.StringFixed(2)
	return &s
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	h, _, err := s.holdings(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	res := holdingsJSON{
		Currency: s.opts.Currency,
		Funds:    []holdingJSON{},
		Invested: h.Invested.StringFixed(2),
		Value:    h.Value.StringFixed(2),
		Gain:     h.Gain.StringFixed(2),
	}
	for _, f := range h.Funds {
		hj := holdingJSON{
			Fund:     f.Fund.Code,
			Quantity: f.Quantity.String(),
			Invested: f.Invested.StringFixed(2),
		}
		if f.Priced() {
			on := f.PriceDate
			hj.Price, hj.PriceDate, hj.Value, hj.Gain = fixed(f.Price), &on, fixed(f.Value), fixed(f.Gain)
		}
		res.Funds = append(res.Funds, hj)
	}
	s.writeJSON(w, http.StatusOK, res)
}

type transactionJSON struct {
	Date     date.Date       `json:"date"`
	Fund     string          `json:"fund"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Fees     decimal.Decimal `json:"fees"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := fundtrack.LoadTransactions(s.opts.Transactions)
	if err != nil {
		s.internalError(w, err)
		return
	}
	res := []transactionJSON{}
	for _, tx := range txs {
		res = append(res, transactionJSON(tx))
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	reg, err := s.registry()
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fundtrack.AppendTransaction(s.opts.Transactions, reg, fundtrack.Transaction(req)); err != nil {
		s.appendError(w, err)
		return
	}
	s.log.Info().Str("fund", req.Fund).Stringer("date", req.Date).Msg("transaction added")
	s.writeJSON(w, http.StatusCreated, req)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// appendError reports a failed append: 400 for rejected input, 500 otherwise.
func (s *Server) appendError(w http.ResponseWriter, err error) {
	if errors.Is(err, fundtrack.ErrInvalid) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.internalError(w, err)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	s.writeError(w, http.StatusInternalServerError, err.Error())
}
