package fundtrack

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/fundtrack/date"
	"github.com/rs/zerolog"
)

// RunConfig holds everything a pipeline run needs.
type RunConfig struct {
	Registry *Registry
	Fetcher  *Fetcher
	Range    date.Range
	Fill     FillPolicy
	Sink     Sink
	Logger   zerolog.Logger
}

// Run fetches the prices of every registered fund, merges them and writes the
// table to the sink, replacing its previous content.
//
// Funds that cannot be fetched are skipped. If none could be fetched, Run
// returns an error wrapping ErrNoSeries and the sink is left untouched.
func Run(ctx context.Context, cfg RunConfig) (*Table, error) {
	if cfg.Registry == nil || cfg.Fetcher == nil || cfg.Sink == nil {
		return nil, errors.New("run needs a registry, a fetcher and a sink")
	}
	log := cfg.Logger
	log.Info().Int("funds", cfg.Registry.Len()).Stringer("range", cfg.Range).Msg("fetching prices")

	series, failed := cfg.Fetcher.FetchAll(ctx, cfg.Registry, cfg.Range)
	if len(series) == 0 {
		errs := make([]error, 0, len(failed)+1)
		errs = append(errs, ErrNoSeries)
		for _, err := range failed {
			errs = append(errs, err)
		}
		return nil, errors.Join(errs...)
	}
	if len(failed) > 0 {
		log.Warn().Int("failed", len(failed)).Int("fetched", len(series)).Msg("some funds were skipped")
	}

	table, err := Merge(series, cfg.Registry, MergeOptions{Fill: cfg.Fill, Logger: log})
	if err != nil {
		return nil, err
	}
	if err := cfg.Sink.Write(ctx, table); err != nil {
		return nil, fmt.Errorf("cannot write prices: %w", err)
	}
	log.Info().Int("rows", table.Len()).Strs("funds", table.Labels).Msg("prices written")
	return table, nil
}
