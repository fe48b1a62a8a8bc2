package fundtrack

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/etnz/fundtrack/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(day int) date.Date { return date.New(2024, time.January, day) }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustRegistry(t *testing.T, funds ...Fund) *Registry {
	t.Helper()
	reg, err := NewRegistry(funds...)
	require.NoError(t, err)
	return reg
}

// usEU is a registry with two funds, US before EU.
func usEU(t *testing.T) *Registry {
	return mustRegistry(t,
		Fund{ISIN: "US0000000001", Ticker: "US.TICK", Code: "US", Name: "US fund"},
		Fund{ISIN: "EU0000000001", Ticker: "EU.TICK", Code: "EU", Name: "EU fund"},
	)
}

// cells renders a table as strings, "" for nulls, chronologically.
func cells(tbl *Table) [][]string {
	var res [][]string
	for _, row := range slices.Backward(tbl.Rows) {
		line := []string{row.Date.String()}
		for _, v := range row.Values {
			if v.Valid {
				line = append(line, v.Decimal.StringFixed(2))
			} else {
				line = append(line, "")
			}
		}
		res = append(res, line)
	}
	return res
}

func TestMerge_ForwardFill(t *testing.T) {
	us := NewSeries("US.TICK").Append(jan(1), d("10.001")).Append(jan(3), d("10.2"))
	eu := NewSeries("EU.TICK").Append(jan(2), d("5.5"))

	tbl, err := Merge([]*Series{eu, us}, usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	assert.Equal(t, []string{"US", "EU"}, tbl.Labels, "columns follow the registry order")
	assert.Equal(t, [][]string{
		{"2024-01-01", "10.00", ""},
		{"2024-01-02", "10.00", "5.50"},
		{"2024-01-03", "10.20", "5.50"},
	}, cells(tbl))
	assert.Equal(t, []date.Date{jan(3), jan(2), jan(1)}, tbl.Dates(), "rows are most recent first")
}

func TestMerge_UnknownTicker(t *testing.T) {
	us := NewSeries("US.TICK").Append(jan(1), d("10"))
	other := NewSeries("XX.TICK").Append(jan(2), d("3"))

	tbl, err := Merge([]*Series{us, other}, usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, tbl.Labels)
	// the dates of dropped series do not make it to the table either.
	assert.Equal(t, [][]string{{"2024-01-01", "10.00"}}, cells(tbl))
}

func TestMerge_NoSeries(t *testing.T) {
	_, err := Merge(nil, usEU(t), MergeOptions{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrNoSeries)

	other := NewSeries("XX.TICK").Append(jan(2), d("3"))
	_, err = Merge([]*Series{other}, usEU(t), MergeOptions{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrNoSeries)
}

func TestMerge_MissingDate(t *testing.T) {
	us := NewSeries("US.TICK").Append(jan(1), d("10")).Append(date.Date{}, d("11"))

	_, err := Merge([]*Series{us}, usEU(t), MergeOptions{Logger: zerolog.Nop()})
	var dataErr *DataError
	require.True(t, errors.As(err, &dataErr), "got %v", err)
	assert.Equal(t, "US.TICK", dataErr.Ticker)
	assert.Equal(t, 1, dataErr.Row)
}

func TestMerge_ISINKey(t *testing.T) {
	reg := mustRegistry(t, Fund{ISIN: "LU0000000001", Code: "JPM"})
	s := NewSeries("LU0000000001").Append(jan(1), d("100"))

	tbl, err := Merge([]*Series{s}, reg, MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, []string{"JPM"}, tbl.Labels)
}

func TestMerge_Policies(t *testing.T) {
	us := NewSeries("US.TICK").Append(jan(2), d("10")).Append(jan(4), d("12"))
	eu := NewSeries("EU.TICK").Append(jan(1), d("5")).Append(jan(3), d("6")).Append(jan(5), d("7"))

	tests := []struct {
		fill FillPolicy
		want [][]string
	}{
		{FillForward, [][]string{
			{"2024-01-01", "", "5.00"},
			{"2024-01-02", "10.00", "5.00"},
			{"2024-01-03", "10.00", "6.00"},
			{"2024-01-04", "12.00", "6.00"},
			{"2024-01-05", "12.00", "7.00"},
		}},
		{FillBackward, [][]string{
			{"2024-01-01", "10.00", "5.00"},
			{"2024-01-02", "10.00", "6.00"},
			{"2024-01-03", "12.00", "6.00"},
			{"2024-01-04", "12.00", "7.00"},
			{"2024-01-05", "", "7.00"},
		}},
		{FillNone, [][]string{
			{"2024-01-01", "", "5.00"},
			{"2024-01-02", "10.00", ""},
			{"2024-01-03", "", "6.00"},
			{"2024-01-04", "12.00", ""},
			{"2024-01-05", "", "7.00"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.fill.String(), func(t *testing.T) {
			tbl, err := Merge([]*Series{us, eu}, usEU(t), MergeOptions{Fill: tt.fill, Logger: zerolog.Nop()})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cells(tbl))
		})
	}
}

// sample returns a few series with unsorted, overlapping and duplicated dates.
func sample() []*Series {
	return []*Series{
		NewSeries("US.TICK").
			Append(jan(9), d("10.125")).
			Append(jan(3), d("10.135")).
			Append(jan(5), d("9.999")).
			Append(jan(3), d("10.135")),
		NewSeries("EU.TICK").
			Append(jan(4), d("5.5")).
			Append(jan(12), d("5.015")).
			Append(jan(1), d("4")),
	}
}

func TestMerge_DatesAreTheUnion(t *testing.T) {
	want := map[date.Date]bool{}
	for _, s := range sample() {
		for _, o := range s.Observations {
			want[o.Date] = true
		}
	}
	tbl, err := Merge(sample(), usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	got := map[date.Date]bool{}
	for _, on := range tbl.Dates() {
		assert.False(t, got[on], "duplicate row for %v", on)
		got[on] = true
	}
	assert.Equal(t, want, got)
	assert.True(t, slices.IsSortedFunc(tbl.Dates(), func(a, b date.Date) int { return b.Compare(a) }))
}

func TestMerge_Idempotent(t *testing.T) {
	once, err := Merge(sample(), usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	twice, err := Merge(append(sample(), sample()...), usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, cells(once), cells(twice))
}

func TestMerge_NullBeforeFirstObservation(t *testing.T) {
	series := sample()
	tbl, err := Merge(series, usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	for _, s := range series {
		label, _ := usEU(t).LabelOf(s.Ticker)
		first, _ := s.Range()
		values, ok := tbl.Column(label)
		require.True(t, ok)
		for i, on := range tbl.Dates() {
			if on.Before(first.From) {
				assert.False(t, values[i].Valid, "%s on %v", label, on)
			} else {
				assert.True(t, values[i].Valid, "%s on %v", label, on)
			}
		}
	}
}

func TestMerge_Rounding(t *testing.T) {
	tbl, err := Merge(sample(), usEU(t), MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	us, _ := tbl.Column("US")
	// 10.125 and 10.135 round half to even.
	assert.Equal(t, "10.12", us[0].Decimal.StringFixed(2))
	assert.Equal(t, "10.14", us[len(us)-2].Decimal.StringFixed(2))

	for _, row := range tbl.Rows {
		for _, v := range row.Values {
			if v.Valid {
				assert.True(t, v.Decimal.Equal(Round(v.Decimal)), "%v is not stable", v.Decimal)
			}
		}
	}
}

func TestMerge_DuplicateLabels(t *testing.T) {
	reg := mustRegistry(t, Fund{ISIN: "US0000000001", Ticker: "US.TICK", Code: "US"})
	byTicker := NewSeries("US.TICK").Append(jan(1), d("10")).Append(jan(2), d("11"))
	byISIN := NewSeries("US0000000001").Append(jan(2), d("12")).Append(jan(3), d("13"))

	tbl, err := Merge([]*Series{byTicker, byISIN}, reg, MergeOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2024-01-01", "10.00"},
		{"2024-01-02", "12.00"},
		{"2024-01-03", "13.00"},
	}, cells(tbl), "the later series wins")
}

func TestParseFillPolicy(t *testing.T) {
	for in, want := range map[string]FillPolicy{
		"":         FillForward,
		"ffill":    FillForward,
		"Forward":  FillForward,
		"bfill":    FillBackward,
		"backward": FillBackward,
		"none":     FillNone,
	} {
		got, err := ParseFillPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFillPolicy("sideways")
	assert.Error(t, err)
}

func TestTable_Accessors(t *testing.T) {
	us := NewSeries("US.TICK").Append(jan(1), d("10")).Append(jan(3), d("12"))
	eu := NewSeries("EU.TICK").Append(jan(2), d("5"))
	tbl, err := Merge([]*Series{us, eu}, usEU(t), MergeOptions{Fill: FillNone, Logger: zerolog.Nop()})
	require.NoError(t, err)

	on, v, ok := tbl.Latest("EU")
	require.True(t, ok)
	assert.Equal(t, jan(2), on)
	assert.Equal(t, "5", v.String())

	v, ok = tbl.ValueAsOf("US", jan(2))
	require.True(t, ok)
	assert.Equal(t, "10", v.String())

	_, ok = tbl.ValueAsOf("EU", jan(1))
	assert.False(t, ok)
	_, _, ok = tbl.Latest("XX")
	assert.False(t, ok)

	assert.Equal(t, []date.Date{jan(2), jan(1)}, tbl.Slice(date.NewRange(jan(1), jan(2))).Dates())
	assert.Equal(t, []date.Date{jan(3)}, tbl.Head(1).Dates())
}
