// Package fundtrack tracks a personal portfolio of investment funds.
//
// It is designed around flat, human readable files:
//   - a fund registry (funds.csv) listing, for each fund, its ISIN, the
//     ticker used by price providers, a short code used as label, a display
//     name and colour, and the provider to fetch it from.
//   - a historical price table (historical_data.csv) with one row per date,
//     most recent first, and one column per fund code.
//   - an append-only transaction log (transactions.csv) recording purchases.
//
// The core of the package is the merge engine (Merge): provider adapters
// (see the yahoo, investing, jpmorgan and eodhd packages) each yield a Series
// of (date, price) observations, and Merge aligns them on the union of their
// dates, fills the gaps with an explicit FillPolicy, and rounds prices to the
// cent. Run chains fetching, merging and persisting for one refresh.
//
// Holdings aggregates the transaction log against the latest prices for the
// `ftk` command and the dashboard server.
package fundtrack
