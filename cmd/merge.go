package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/store"
	"github.com/google/subcommands"
)

type mergeCmd struct {
	output string
	fill   string
}

func (*mergeCmd) Name() string     { return "merge" }
func (*mergeCmd) Synopsis() string { return "merge price files into the price table" }
func (*mergeCmd) Usage() string {
	return `ftk merge [-o <file>] [-fill forward|backward|none] <series.csv>...

  Merges local price files into the price table, without fetching anything.

  Each file has a Date column and a Price (or Close, or NAV) column. The file
  name without its extension is the ticker or ISIN of the fund, and it is
  relabeled with the fund code of the registry. Files of unknown funds are
  skipped.
`
}

func (c *mergeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Price table file. Defaults to the configured output.")
	f.StringVar(&c.fill, "fill", "", "Gap filling policy: forward, backward or none. Defaults to the configured one.")
}

func (c *mergeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one price file is required.")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.output != "" {
		cfg.Output = c.output
	}
	if c.fill != "" {
		cfg.Fetch.Fill = c.fill
	}
	fill, err := cfg.FillPolicy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	log := newLogger(cfg)

	reg, err := loadRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var series []*fundtrack.Series
	for _, path := range f.Args() {
		s, err := fundtrack.ReadSeriesFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			return subcommands.ExitFailure
		}
		series = append(series, s)
	}

	table, err := fundtrack.Merge(series, reg, fundtrack.MergeOptions{Fill: fill, Logger: log})
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
	if err := st.Write(ctx, table); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", cfg.Output, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Merged %d funds over %d dates into %s\n", len(table.Labels), table.Len(), cfg.Output)
	return subcommands.ExitSuccess
}
