package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/config"
	"github.com/etnz/fundtrack/store"
	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type fetchCmd struct {
	output   string
	fill     string
	from     string
	to       string
	schedule string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch the prices of every fund and write the price table" }
func (*fetchCmd) Usage() string {
	return `ftk fetch [-o <file>] [-fill forward|backward|none] [-from <date>] [-to <date>] [-schedule <cron>]

  Fetches the price history of every fund of the registry from its provider,
  merges them into a single table, one column per fund, and replaces the
  price table with it.

  Funds that cannot be fetched are reported and skipped. If no fund could be
  fetched at all, the price table is left untouched and the command fails.

  The output extension selects the format: .csv, .db (SQLite) or .parquet.

  With -schedule the command keeps running and fetches on the cron schedule,
  like "0 30 18 * * 1-5" (seconds are optional).
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Price table file. Defaults to the configured output.")
	f.StringVar(&c.fill, "fill", "", "Gap filling policy: forward, backward or none. Defaults to the configured one.")
	f.StringVar(&c.from, "from", "", "First date to fetch, absolute or relative like -5y. Defaults to the configured start.")
	f.StringVar(&c.to, "to", "", "Last date to fetch. Defaults to today.")
	f.StringVar(&c.schedule, "schedule", "", "Cron schedule to fetch on, instead of fetching once.")
}

// apply overrides the configuration with the flags that are set.
func (c *fetchCmd) apply(cfg *config.Config) error {
	if c.output != "" {
		cfg.Output = c.output
	}
	if c.fill != "" {
		cfg.Fetch.Fill = c.fill
	}
	if c.from != "" {
		cfg.Fetch.Start = c.from
	}
	if c.to != "" {
		cfg.Fetch.End = c.to
	}
	if c.schedule != "" {
		cfg.Fetch.Schedule = c.schedule
	}
	return cfg.Validate()
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := c.apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	log := newLogger(cfg)

	fetcher, err := newFetcher(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if cfg.Fetch.Schedule == "" {
		if err := fetch(ctx, cfg, fetcher, log); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := schedule(ctx, cfg.Fetch.Schedule, log, func(ctx context.Context) error {
		return fetch(ctx, cfg, fetcher, log)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// fetch runs the price pipeline once. The registry is reloaded and the range
// recomputed on each run, so that a scheduled fetch sees registry changes and
// moves with today.
func fetch(ctx context.Context, cfg *config.Config, fetcher *fundtrack.Fetcher, log zerolog.Logger) error {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	r, err := cfg.Range()
	if err != nil {
		return err
	}
	fill, err := cfg.FillPolicy()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Output)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = fundtrack.Run(ctx, fundtrack.RunConfig{
		Registry: reg,
		Fetcher:  fetcher,
		Range:    r,
		Fill:     fill,
		Sink:     st,
		Logger:   log,
	})
	return err
}

// schedule calls job on the cron spec until ctx is done. A failed job is
// logged and the schedule goes on.
func schedule(ctx context.Context, spec string, log zerolog.Logger, job func(context.Context) error) error {
	c := cron.New(cron.WithParser(config.CronParser))
	_, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled fetch failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	log.Info().Str("schedule", spec).Msg("waiting for the next scheduled fetch")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
