package jpmorgan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/etnz/fundtrack/webcache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook returns an xlsx export with title rows and then the given rows.
func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	all := append([][]any{
		{"Storico NAV"},
		{"JPMorgan Funds - Some Fund A (acc) - EUR"},
		{"ISIN", "LU0000000001"},
		{},
		{"Data", "NAV"},
	}, rows...)
	for i, row := range all {
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeNAV(t *testing.T) {
	content := workbook(t,
		[]any{"03.01.2024", "10.5"},
		[]any{"02.01.2024", "10,25"},
		[]any{"", ""},
		[]any{"01.01.2024"},
	)
	s, err := DecodeNAV(bytes.NewReader(content), "LU0000000001")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, date.New(2024, time.January, 3), s.Observations[0].Date)
	assert.Equal(t, "10.5", s.Observations[0].Price.String())
	assert.Equal(t, "10.25", s.Observations[1].Price.String())
}

func TestDecodeNAV_Malformed(t *testing.T) {
	content := workbook(t,
		[]any{"03.01.2024", "10.5"},
		[]any{"2024-01-02", "10.25"},
	)
	_, err := DecodeNAV(bytes.NewReader(content), "LU0000000001")
	var dataErr *fundtrack.DataError
	require.True(t, errors.As(err, &dataErr), "got %v", err)
	assert.Equal(t, 6, dataErr.Row)

	_, err = DecodeNAV(bytes.NewReader([]byte("<html>maintenance</html>")), "LU0000000001")
	assert.ErrorContains(t, err, "not a NAV workbook")
}

func TestFetch(t *testing.T) {
	content := workbook(t,
		[]any{"01.02.2024", "11"},
		[]any{"03.01.2024", "10.5"},
		[]any{"28.12.2023", "10"},
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/FundsMarketingHandler/excel", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "historicalNav", q.Get("type"))
		assert.Equal(t, "LU0000000001", q.Get("cusip"))
		assert.Equal(t, "it-IT", q.Get("locale"))
		assert.Equal(t, "2024-01-01", q.Get("fromDate"))
		w.Write(content)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, webcache.Options{Disabled: true, Logger: zerolog.Nop()})
	january := date.NewRange(date.New(2024, time.January, 1), date.New(2024, time.January, 31))

	s, err := c.Fetch(context.Background(), fundtrack.Fund{ISIN: "LU0000000001", Code: "JPM"}, january)
	require.NoError(t, err)
	assert.Equal(t, "LU0000000001", s.Ticker)
	require.Equal(t, 1, s.Len(), "navs outside the range are dropped")

	_, err = c.Fetch(context.Background(), fundtrack.Fund{Ticker: "JPM.F", Code: "JPM"}, january)
	assert.ErrorContains(t, err, "no ISIN")
}
