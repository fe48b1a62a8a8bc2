package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/fundtrack"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ftk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
registry: data/funds.csv
output: data/prices.db
fetch:
  start: "2023-01-01"
  fill: bfill
  provider: yahoo
  schedule: "0 30 18 * * 1-5"
providers:
  yahoo:
    suffix: .F
  eodhd:
    api_key: from-file
server:
  addr: ":9090"
  cors_origins: ["http://localhost:3000"]
log:
  level: debug
`), 0o644))
	t.Setenv("EODHD_API_KEY", "from-env")
	t.Setenv("FTK_OUTPUT", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "data/funds.csv", cfg.Registry)
	assert.Equal(t, "data/prices.db", cfg.Output)
	assert.Equal(t, "transactions.csv", cfg.Transactions, "defaults are kept")
	assert.Equal(t, 4, cfg.Fetch.Workers)
	assert.Equal(t, ".F", cfg.Providers.Yahoo.Suffix)
	assert.Equal(t, "from-env", cfg.Providers.EODHD.APIKey, "environment wins")
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())

	fill, err := cfg.FillPolicy()
	require.NoError(t, err)
	assert.Equal(t, fundtrack.FillBackward, fill)

	r, err := cfg.Range()
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", r.From.String())
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("FTK_REGISTRY", "elsewhere.csv")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "elsewhere.csv", cfg.Registry)
	assert.Equal(t, "Europe/Rome", cfg.Timezone)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ftk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch: [unclosed"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "Mars/Olympus"
	cfg.Fetch.Fill = "sideways"
	cfg.Fetch.Start = "someday"
	cfg.Fetch.Schedule = "every now and then"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, msg := range []string{"timezone", "fill policy", "fetch start", "schedule", "log level"} {
		assert.Contains(t, err.Error(), msg)
	}
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())

	cfg = Default()
	cfg.Fetch.Start, cfg.Fetch.End = "2024-02-01", "2024-01-01"
	assert.ErrorContains(t, cfg.Validate(), "after its end")
}
