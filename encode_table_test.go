package fundtrack

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTable(t *testing.T) {
	us := NewSeries("US.TICK").Append(jan(1), d("10.001")).Append(jan(3), d("10.2"))
	eu := NewSeries("EU.TICK").Append(jan(2), d("5.5"))
	tbl, err := Merge([]*Series{us, eu}, usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeTable(&buf, tbl))
	assert.Equal(t, `Date,US,EU
2024-01-03,10.20,5.50
2024-01-02,10.00,5.50
2024-01-01,10.00,
`, buf.String())
}

func TestDecodeTable(t *testing.T) {
	tbl, err := DecodeTable(strings.NewReader("Date,US,EU\n2024-01-01,10.00,nan\n2024-01-03,10.20,5.50\n2024-1-2,10,5.5\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2024-01-01", "10.00", ""},
		{"2024-01-02", "10.00", "5.50"},
		{"2024-01-03", "10.20", "5.50"},
	}, cells(tbl))
}

func TestDecodeTable_Malformed(t *testing.T) {
	_, err := DecodeTable(strings.NewReader("Date,US,EU\n2024-01-01,10.00,\n2024-01-02,ten,5\n"))
	var dataErr *DataError
	require.True(t, errors.As(err, &dataErr), "got %v", err)
	assert.Equal(t, "US", dataErr.Ticker)
	assert.Equal(t, 1, dataErr.Row)

	_, err = DecodeTable(strings.NewReader("Date,US\nyesterday,10\n"))
	require.True(t, errors.As(err, &dataErr), "got %v", err)
	assert.Equal(t, "Date", dataErr.Ticker)
	assert.Equal(t, 0, dataErr.Row)

	_, err = DecodeTable(strings.NewReader("Day,US\n"))
	assert.Error(t, err)
}

func TestCSVStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prices", "prices.csv")
	store := CSVStore{Path: path}

	first, err := Merge(sample(), usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, first))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Labels, got.Labels)
	assert.Equal(t, cells(first), cells(got))

	// a second write fully replaces the first one.
	second, err := Merge([]*Series{NewSeries("EU.TICK").Append(jan(20), d("6"))}, usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, second))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,EU\n2024-01-20,6.00\n", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
