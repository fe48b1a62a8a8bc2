// Package cmd implements the ftk command line application.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/config"
	"github.com/etnz/fundtrack/eodhd"
	"github.com/etnz/fundtrack/investing"
	"github.com/etnz/fundtrack/jpmorgan"
	"github.com/etnz/fundtrack/webcache"
	"github.com/etnz/fundtrack/yahoo"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, g := range groups() {
		for _, cmd := range g.cmds {
			c.Register(cmd, g.name)
		}
	}
}

type group struct {
	name string
	cmds []subcommands.Command
}

func groups() []group {
	return []group{
		{"prices", []subcommands.Command{&fetchCmd{}, &mergeCmd{}, &pricesCmd{}}},
		{"funds", []subcommands.Command{&fundsCmd{}, &addFundCmd{}, &searchCmd{}}},
		{"transactions", []subcommands.Command{&buyCmd{}, &holdingsCmd{}}},
		{"dashboard", []subcommands.Command{&serveCmd{}}},
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "ftk.yaml", "Path to the configuration file (YAML). Environment variables and a .env file override it.")

// loadConfig loads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", *configFile, err)
	}
	return cfg, nil
}

// newLogger returns the human friendly logger of the command line.
func newLogger(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(cfg.Level()).With().Timestamp().Logger()
}

// loadRegistry loads the registry of the configuration.
func loadRegistry(cfg *config.Config) (*fundtrack.Registry, error) {
	return fundtrack.LoadRegistry(cfg.Registry)
}

// cacheOptions returns the disk cache settings of the providers.
func cacheOptions(cfg *config.Config, log zerolog.Logger) webcache.Options {
	return webcache.Options{Disabled: cfg.Cache.Disabled, Dir: cfg.Cache.Dir, Logger: log}
}

// newFetcher returns a fetcher with every provider configured.
func newFetcher(cfg *config.Config, log zerolog.Logger) (*fundtrack.Fetcher, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cache := cacheOptions(cfg, log)

	p := cfg.Providers
	yh, err := yahoo.New(yahoo.Options{
		BaseURL:  p.Yahoo.BaseURL,
		Suffix:   p.Yahoo.Suffix,
		Field:    p.Yahoo.Field,
		Location: loc,
	}, cache)
	if err != nil {
		return nil, err
	}

	f := &fundtrack.Fetcher{
		Default: cfg.Fetch.Provider,
		Workers: cfg.Fetch.Workers,
		Retries: cfg.Fetch.Retries,
		Logger:  log,
	}
	f.Register(
		yh,
		investing.New(p.Investing.BaseURL, loc, cache),
		jpmorgan.New(jpmorgan.Options{
			BaseURL: p.JPMorgan.BaseURL,
			Country: p.JPMorgan.Country,
			Role:    p.JPMorgan.Role,
			Locale:  p.JPMorgan.Locale,
		}, cache),
		eodhd.New(p.EODHD.APIKey, p.EODHD.BaseURL, p.EODHD.Exchange, cache),
		fundtrack.DirProvider{Dir: p.File.Dir},
	)
	if _, ok := f.Providers[f.Default]; !ok {
		return nil, fmt.Errorf("unknown default provider %q", f.Default)
	}
	return f, nil
}

// printMarkdown renders markdown for the terminal, or prints it as is if it
// cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
