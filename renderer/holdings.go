package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/fundtrack"
	md "github.com/nao1215/markdown"
)

// HoldingsMarkdown renders the holdings, amounts in currency.
func HoldingsMarkdown(h *fundtrack.Holdings, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Holdings")

	if len(h.Funds) == 0 {
		doc.PlainText("No transactions yet.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Fund", "Quantity", "Invested", "Price", "As of", "Value", "Gain"},
		Rows:   [][]string{},
	}
	for _, f := range h.Funds {
		price, on, value, gain := "-", "-", "-", "-"
		if f.Priced() {
			price = Money(f.Price, currency)
			on = f.PriceDate.String()
			value = Money(f.Value, currency)
			gain = SignedMoney(f.Gain, currency)
		}
		table.Rows = append(table.Rows, []string{
			f.Fund.Code,
			f.Quantity.String(),
			Money(f.Invested, currency),
			price,
			on,
			value,
			gain,
		})
	}
	table.Rows = append(table.Rows, []string{
		md.Bold("Total"),
		"",
		md.Bold(Money(h.Invested, currency)),
		"",
		"",
		md.Bold(Money(h.Value, currency)),
		md.Bold(SignedMoney(h.Gain, currency)),
	})
	doc.Table(table)

	if !h.Invested.IsZero() && !h.Gain.IsZero() {
		doc.PlainText(fmt.Sprintf("Overall return: %s%%", h.Gain.Div(h.Invested).Shift(2).StringFixed(2)))
	}
	return doc.String()
}

// ReportMarkdown renders the dashboard page: holdings, then the latest prices.
func ReportMarkdown(h *fundtrack.Holdings, t *fundtrack.Table, currency string, n int) string {
	return HoldingsMarkdown(h, currency) + "\n" + PricesMarkdown(t, n)
}
