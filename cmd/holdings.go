package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/renderer"
	"github.com/etnz/fundtrack/store"
	"github.com/google/subcommands"
)

// holdingsCmd holds the flags for the 'holdings' subcommand.
type holdingsCmd struct {
	currency string
	rows     int
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the holdings valued at the latest prices" }
func (*holdingsCmd) Usage() string {
	return `ftk holdings [-c <currency>] [-n <rows>]

  Displays the quantity, the invested amount, the market value and the gain
  of every fund with transactions, valued at the latest known price.
  With -n, the latest prices are displayed too.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Currency of the amounts. Defaults to the configured one.")
	f.IntVar(&c.rows, "n", 0, "Number of price rows to display after the holdings.")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.currency != "" {
		cfg.Currency = c.currency
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	txs, err := fundtrack.LoadTransactions(cfg.Transactions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading transactions: %v\n", err)
		return subcommands.ExitFailure
	}

	st, err := store.Open(cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()
	table, err := st.Read(ctx)
	if errors.Is(err, os.ErrNotExist) {
		table, err = new(fundtrack.Table), nil
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading prices: %v\n", err)
		return subcommands.ExitFailure
	}

	h := fundtrack.ComputeHoldings(reg, txs, table)
	if c.rows > 0 {
		printMarkdown(renderer.ReportMarkdown(h, table, cfg.Currency, c.rows))
	} else {
		printMarkdown(renderer.HoldingsMarkdown(h, cfg.Currency))
	}
	return subcommands.ExitSuccess
}
