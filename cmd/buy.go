package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// buyCmd holds the flags for the 'buy' subcommand.
type buyCmd struct {
	date     string
	fund     string
	price    string
	quantity string
	fees     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a fund purchase" }
func (*buyCmd) Usage() string {
	return `ftk buy -f <fund> -p <price> -q <quantity> [-fees <fees>] [-d <date>]

  Appends a purchase to the transaction log. The fund must be in the registry.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Transaction date, absolute or relative like -1d.")
	f.StringVar(&c.fund, "f", "", "Fund code.")
	f.StringVar(&c.price, "p", "", "Price per unit.")
	f.StringVar(&c.quantity, "q", "", "Number of units.")
	f.StringVar(&c.fees, "fees", "0", "Fees paid on top of the price.")
}

// transaction parses the flags.
func (c *buyCmd) transaction() (tx fundtrack.Transaction, err error) {
	if tx.Date, err = date.ParseRelative(c.date); err != nil {
		return tx, err
	}
	tx.Fund = c.fund
	if tx.Price, err = decimal.NewFromString(c.price); err != nil {
		return tx, fmt.Errorf("invalid price %q: %w", c.price, err)
	}
	if tx.Quantity, err = decimal.NewFromString(c.quantity); err != nil {
		return tx, fmt.Errorf("invalid quantity %q: %w", c.quantity, err)
	}
	if tx.Fees, err = decimal.NewFromString(c.fees); err != nil {
		return tx, fmt.Errorf("invalid fees %q: %w", c.fees, err)
	}
	return tx, nil
}

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tx, err := c.transaction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := fundtrack.AppendTransaction(cfg.Transactions, reg, tx); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to %s: %v\n", cfg.Transactions, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Successfully appended transaction to %s\n", cfg.Transactions)
	return subcommands.ExitSuccess
}
