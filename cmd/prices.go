package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/renderer"
	"github.com/etnz/fundtrack/store"
	"github.com/google/subcommands"
)

type pricesCmd struct {
	rows int
	csv  bool
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "display the latest prices" }
func (*pricesCmd) Usage() string {
	return `ftk prices [-n <rows>] [-csv]

  Displays the most recent rows of the price table.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.rows, "n", 10, "Number of rows to display, 0 for all.")
	f.BoolVar(&c.csv, "csv", false, "Print the rows in CSV format instead.")
}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	st, err := store.Open(cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	table, err := st.Read(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading prices: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.csv {
		n := c.rows
		if n <= 0 {
			n = table.Len()
		}
		if err := fundtrack.EncodeTable(os.Stdout, table.Head(n)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.PricesMarkdown(table, c.rows))
	return subcommands.ExitSuccess
}
