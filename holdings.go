package fundtrack

import (
	"github.com/etnz/fundtrack/date"
	"github.com/shopspring/decimal"
)

// Holding is the position in one fund.
type Holding struct {
	Fund      Fund
	Quantity  decimal.Decimal
	Invested  decimal.Decimal // sum of quantity*price+fees over the purchases
	Price     decimal.Decimal // latest known price, zero if none
	PriceDate date.Date       // date of Price, zero if none
	Value     decimal.Decimal // Quantity*Price
	Gain      decimal.Decimal // Value-Invested, zero if there is no price
}

// Priced reports whether a market price was known for the fund.
func (h Holding) Priced() bool { return !h.PriceDate.IsZero() }

// Holdings is the portfolio position: one Holding per fund with
// transactions, in registry order, and the totals.
type Holdings struct {
	Funds    []Holding
	Invested decimal.Decimal
	Value    decimal.Decimal // market value of priced funds only
	Gain     decimal.Decimal
}

// ComputeHoldings aggregates transactions per fund and values them with the
// latest prices of the table. table may be nil.
//
// Transactions on funds that are not in the registry are ignored.
func ComputeHoldings(reg *Registry, txs []Transaction, table *Table) *Holdings {
	byCode := make(map[string]*Holding)
	for _, tx := range txs {
		h, ok := byCode[tx.Fund]
		if !ok {
			f, ok := reg.Fund(tx.Fund)
			if !ok {
				continue
			}
			h = &Holding{Fund: f}
			byCode[tx.Fund] = h
		}
		h.Quantity = h.Quantity.Add(tx.Quantity)
		h.Invested = h.Invested.Add(tx.Invested())
	}

	res := new(Holdings)
	for _, code := range reg.Codes() {
		h, ok := byCode[code]
		if !ok {
			continue
		}
		if table != nil {
			if on, price, ok := table.Latest(code); ok {
				h.Price, h.PriceDate = price, on
				h.Value = h.Quantity.Mul(price)
				h.Gain = h.Value.Sub(h.Invested)
			}
		}
		res.Invested = res.Invested.Add(h.Invested)
		if h.Priced() {
			res.Value = res.Value.Add(h.Value)
			res.Gain = res.Gain.Add(h.Gain)
		}
		res.Funds = append(res.Funds, *h)
	}
	return res
}

// InvestedByFund returns the invested total per fund code, without any
// registry check.
func InvestedByFund(txs []Transaction) map[string]decimal.Decimal {
	res := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		res[tx.Fund] = res[tx.Fund].Add(tx.Invested())
	}
	return res
}
