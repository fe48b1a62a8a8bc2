package fundtrack

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSeries is returned when there is nothing to merge: no series was
	// fetched, or none of them belongs to the registry.
	ErrNoSeries = errors.New("no price series to merge")

	// ErrUnknownFund is returned when a fund code is not in the registry.
	ErrUnknownFund = errors.New("unknown fund")

	// ErrInvalid wraps the errors of a fund or a transaction rejected
	// before anything is written.
	ErrInvalid = errors.New("invalid")

	errMissingDate = errors.New("observation has no date")
)

// DataError reports malformed price data: an unparseable date or price, or
// an observation without a date. It identifies the ticker and the row.
//
// Malformed data usually means the upstream format changed, so it is never
// silently dropped.
type DataError struct {
	Ticker string
	Row    int // 0-based index of the offending row or observation
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("malformed data for %q at row %d: %v", e.Ticker, e.Row, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// FetchError reports a ticker that could not be fetched from its provider.
type FetchError struct {
	Ticker   string
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cannot fetch %q from %s: %v", e.Ticker, e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
