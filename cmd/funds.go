package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/renderer"
	"github.com/google/subcommands"
)

type fundsCmd struct{}

func (*fundsCmd) Name() string     { return "funds" }
func (*fundsCmd) Synopsis() string { return "list the funds of the registry" }
func (*fundsCmd) Usage() string {
	return `ftk funds

  Lists the funds of the registry, in the column order of the price table.
`
}

func (*fundsCmd) SetFlags(*flag.FlagSet) {}

func (*fundsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	reg, err := loadRegistry(cfg)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Printf("No registry at %s yet, add a fund with 'ftk add-fund'.\n", cfg.Registry)
		return subcommands.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.FundsMarkdown(reg))
	return subcommands.ExitSuccess
}

// addFundCmd holds the flags for the 'add-fund' subcommand.
type addFundCmd struct {
	fund fundtrack.Fund
}

func (*addFundCmd) Name() string     { return "add-fund" }
func (*addFundCmd) Synopsis() string { return "add a fund to the registry" }
func (*addFundCmd) Usage() string {
	return `ftk add-fund -code <code> (-ticker <ticker> | -isin <isin>) [-name <name>] [-type <type>] [-colour <colour>] [-provider <provider>]

  Appends a fund to the registry, creating it if needed. The fund becomes the
  last column of the price table.

  The code labels the fund everywhere in ftk. The ticker (or the ISIN if the
  fund has no ticker) identifies it with its provider.
`
}

func (c *addFundCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fund.Code, "code", "", "Short label of the fund, the price table column name.")
	f.StringVar(&c.fund.Ticker, "ticker", "", "Ticker of the fund at its provider.")
	f.StringVar(&c.fund.ISIN, "isin", "", "ISIN of the fund.")
	f.StringVar(&c.fund.Name, "name", "", "Display name.")
	f.StringVar(&c.fund.Type, "type", "", "Asset type, like Equity or Bond.")
	f.StringVar(&c.fund.Colour, "colour", "", "Chart colour.")
	f.StringVar(&c.fund.Provider, "provider", "", "Provider to fetch the fund from: yahoo, investing, jpmorgan, eodhd or file. Defaults to the configured one.")
}

func (c *addFundCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.fund.Code == "" {
		fmt.Fprintln(os.Stderr, "Error: -code is required.")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := fundtrack.AppendFund(cfg.Registry, c.fund); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding fund %q: %v\n", c.fund.Code, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Successfully added %s to %s\n", c.fund.Code, cfg.Registry)
	return subcommands.ExitSuccess
}

// addFundCommand returns the add-fund command line that registers a fund.
func addFundCommand(f fundtrack.Fund) string {
	var b strings.Builder
	b.WriteString("ftk add-fund")
	for _, opt := range []struct{ name, value string }{
		{"code", f.Code},
		{"ticker", f.Ticker},
		{"isin", f.ISIN},
		{"name", f.Name},
		{"type", f.Type},
		{"provider", f.Provider},
	} {
		if opt.value != "" {
			fmt.Fprintf(&b, " -%s='%s'", opt.name, strings.ReplaceAll(opt.value, "'", `'\''`))
		}
	}
	return b.String()
}
