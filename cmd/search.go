package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/eodhd"
	"github.com/etnz/fundtrack/investing"
	"github.com/google/subcommands"
)

// searchCmd implements the "search" command.
type searchCmd struct {
	provider string
	code     string
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search for funds at a provider" }
func (*searchCmd) Usage() string {
	return `ftk search [-p eodhd|investing] [-code <code>] <search term>

  Searches for funds by name, ticker or ISIN and prints ready-to-use
  'ftk add-fund' commands for the results.

  The eodhd provider requires an API key, set in the configuration or in the
  EODHD_API_KEY environment variable.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.provider, "p", "eodhd", "Provider to search: eodhd or investing.")
	f.StringVar(&c.code, "code", "CODE", "Fund code to put in the printed commands.")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a search term is required.")
		return subcommands.ExitUsageError
	}
	term := strings.Join(f.Args(), " ")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	log := newLogger(cfg)
	cache := cacheOptions(cfg, log)

	switch c.provider {
	case "eodhd":
		key := cfg.Providers.EODHD.APIKey
		if key == "" {
			fmt.Fprintln(os.Stderr, "Error: EODHD API key is not set. Use the configuration file or the EODHD_API_KEY environment variable.")
			return subcommands.ExitFailure
		}
		client := eodhd.New(key, cfg.Providers.EODHD.BaseURL, cfg.Providers.EODHD.Exchange, cache)
		results, err := client.Search(ctx, term)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error searching funds: %v\n", err)
			return subcommands.ExitFailure
		}
		if len(results) == 0 {
			fmt.Printf("No results found for '%s'.\n", term)
			return subcommands.ExitSuccess
		}
		fmt.Printf("Found %d results for '%s':\n\n", len(results), term)
		for _, item := range results {
			fmt.Printf("%s (%s)\n", item.Name, item.Ticker())
			fmt.Printf("    Type        : %s, Country: %s, Currency: %s\n", item.Type, item.Country, item.Currency)
			fmt.Printf("    ISIN        : %s\n", item.ISIN)
			fmt.Printf("    Prev. Close : %s on %s\n", item.PreviousClose.StringFixed(2), item.PreviousCloseDate)
			fmt.Printf("    %s\n\n", addFundCommand(fundtrack.Fund{
				Code:     c.code,
				Ticker:   item.Ticker(),
				ISIN:     item.ISIN,
				Name:     item.Name,
				Type:     item.Type,
				Provider: "eodhd",
			}))
		}

	case "investing":
		loc, err := cfg.Location()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		client := investing.New(cfg.Providers.Investing.BaseURL, loc, cache)
		quote, err := client.Info(ctx, term)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error searching funds: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("%s (%s)\n", quote.Description, quote.Symbol)
		fmt.Printf("    Type        : %s, Exchange: %s, Pair ID: %d\n", quote.Type, quote.Exchange, quote.ID)
		fmt.Printf("    %s\n", addFundCommand(fundtrack.Fund{
			Code:     c.code,
			Ticker:   term,
			Name:     quote.Description,
			Provider: "investing",
		}))

	default:
		fmt.Fprintf(os.Stderr, "Error: cannot search provider %q.\n", c.provider)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}
