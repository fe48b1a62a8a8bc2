package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/fundtrack/server"
	"github.com/etnz/fundtrack/store"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr string
	rows int
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard and the JSON api" }
func (*serveCmd) Usage() string {
	return `ftk serve [-addr <host:port>] [-n <rows>]

  Serves the holdings and the latest prices as an HTML page on /, and the
  registry, the prices, the holdings and the transactions as JSON under /api.

  Stop it with Ctrl-C.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Address to listen on. Defaults to the configured one.")
	f.IntVar(&c.rows, "n", 30, "Number of price rows on the dashboard, 0 for all.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.addr != "" {
		cfg.Server.Addr = c.addr
	}
	log := newLogger(cfg)

	st, err := store.Open(cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	srv := server.New(server.Options{
		Registry:     cfg.Registry,
		Transactions: cfg.Transactions,
		Prices:       st,
		Currency:     cfg.Currency,
		Rows:         c.rows,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Logger:       log,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
