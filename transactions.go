package fundtrack

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/fundtrack/date"
	"github.com/shopspring/decimal"
)

// Transaction is a fund purchase.
type Transaction struct {
	Date     date.Date
	Fund     string // fund code
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Fees     decimal.Decimal
}

// Invested returns the cash spent on the transaction, fees included.
func (tx Transaction) Invested() decimal.Decimal {
	return tx.Quantity.Mul(tx.Price).Add(tx.Fees)
}

// Validate checks the transaction. If reg is not nil, the fund must be registered.
func (tx Transaction) Validate(reg *Registry) error {
	var errs []error
	if tx.Date.IsZero() {
		errs = append(errs, errMissingDate)
	}
	if tx.Fund == "" {
		errs = append(errs, errors.New("fund code is required"))
	} else if reg != nil {
		if _, ok := reg.Fund(tx.Fund); !ok {
			errs = append(errs, fmt.Errorf("%w %q", ErrUnknownFund, tx.Fund))
		}
	}
	if !tx.Quantity.IsPositive() {
		errs = append(errs, fmt.Errorf("quantity must be positive, got %s", tx.Quantity))
	}
	if tx.Price.IsNegative() {
		errs = append(errs, fmt.Errorf("price cannot be negative, got %s", tx.Price))
	}
	if tx.Fees.IsNegative() {
		errs = append(errs, fmt.Errorf("fees cannot be negative, got %s", tx.Fees))
	}
	return errors.Join(errs...)
}

var transactionHeader = []string{"Date", "Fund", "Price", "Quantity", "Fees"}

// DecodeTransactions reads a transaction log in CSV format, with a
// Date,Fund,Price,Quantity,Fees header. An empty Fees cell means no fees.
//
// Malformed cells are reported as *DataError with the fund code as ticker.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read transactions header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range transactionHeader[:4] {
		if _, ok := cols[strings.ToLower(h)]; !ok {
			return nil, fmt.Errorf("transactions have no %q column", h)
		}
	}

	var txs []Transaction
	for i := 0; ; i++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read transaction %d: %w", i, err)
		}
		get := func(col string) string {
			j, ok := cols[col]
			if !ok || j >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[j])
		}
		tx := Transaction{Fund: get("fund")}
		if tx.Date, err = date.Parse(get("date")); err != nil {
			return nil, &DataError{Ticker: tx.Fund, Row: i, Err: err}
		}
		if tx.Price, err = decimal.NewFromString(get("price")); err != nil {
			return nil, &DataError{Ticker: tx.Fund, Row: i, Err: fmt.Errorf("price: %w", err)}
		}
		if tx.Quantity, err = decimal.NewFromString(get("quantity")); err != nil {
			return nil, &DataError{Ticker: tx.Fund, Row: i, Err: fmt.Errorf("quantity: %w", err)}
		}
		if fees := get("fees"); fees != "" {
			if tx.Fees, err = decimal.NewFromString(fees); err != nil {
				return nil, &DataError{Ticker: tx.Fund, Row: i, Err: fmt.Errorf("fees: %w", err)}
			}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (tx Transaction) record() []string {
	return []string{tx.Date.String(), tx.Fund, tx.Price.String(), tx.Quantity.String(), tx.Fees.String()}
}

// EncodeTransactions writes transactions in CSV format, header included.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := cw.Write(tx.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadTransactions reads the transaction log at path. A missing file is an
// empty log.
func LoadTransactions(path string) ([]Transaction, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	txs, err := DecodeTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return txs, nil
}

// AppendTransaction validates tx and appends it to the log at path. The
// header is written when the file is created.
func AppendTransaction(path string, reg *Registry, tx Transaction) error {
	if err := tx.Validate(reg); err != nil {
		return fmt.Errorf("%w transaction: %w", ErrInvalid, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(transactionHeader); err != nil {
			return err
		}
	}
	if err := cw.Write(tx.record()); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}
