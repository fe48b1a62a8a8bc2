package renderer

import (
	"bytes"

	"github.com/etnz/fundtrack"
	md "github.com/nao1215/markdown"
)

// PricesMarkdown renders the n most recent rows of the price table, all of
// them if n <= 0. Unknown prices are rendered as "-".
func PricesMarkdown(t *fundtrack.Table, n int) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Prices")
	if t.Len() == 0 {
		doc.PlainText("No prices yet.")
		return doc.String()
	}
	if n <= 0 {
		n = t.Len()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft},
		Header:    append([]string{"Date"}, t.Labels...),
		Rows:      [][]string{},
	}
	for range t.Labels {
		table.Alignment = append(table.Alignment, md.AlignRight)
	}
	for _, row := range t.Head(n).Rows {
		line := []string{row.Date.String()}
		for _, v := range row.Values {
			if v.Valid {
				line = append(line, v.Decimal.StringFixed(2))
			} else {
				line = append(line, "-")
			}
		}
		table.Rows = append(table.Rows, line)
	}
	doc.Table(table)
	return doc.String()
}

// FundsMarkdown renders the registry.
func FundsMarkdown(reg *fundtrack.Registry) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Funds")

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft},
		Header:    []string{"Fund", "Name", "Ticker", "ISIN", "Type", "Provider"},
		Rows:      [][]string{},
	}
	for _, f := range reg.Funds() {
		provider := f.Provider
		if provider == "" {
			provider = "default"
		}
		table.Rows = append(table.Rows, []string{md.Bold(f.Code), f.Name, f.Ticker, f.ISIN, f.Type, provider})
	}
	doc.Table(table)
	return doc.String()
}
