package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/etnz/fundtrack"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// SQLite stores the price table in a SQLite database, in long format: one
// row per date and fund.
type SQLite struct {
	path     string
	db       *sql.DB
	mu       sync.Mutex
	migrated bool
}

// OpenSQLite opens the database at path. The file and its tables are only
// created by the first Write, so that a failed run leaves no database behind.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLite{path: path, db: db}, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS funds (
			position INTEGER PRIMARY KEY,
			code     TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS prices (
			date  TEXT NOT NULL,
			fund  TEXT NOT NULL,
			price TEXT,
			PRIMARY KEY (date, fund)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_fund ON prices(fund, date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.migrated = true
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Write replaces the database content with the table, in a single transaction.
func (s *SQLite) Write(ctx context.Context, t *fundtrack.Table) (err error) {
	if err := s.migrate(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{`DELETE FROM prices`, `DELETE FROM funds`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for i, label := range t.Labels {
		if _, err := tx.ExecContext(ctx, `INSERT INTO funds (position, code) VALUES (?, ?)`, i, label); err != nil {
			return fmt.Errorf("insert fund %q: %w", label, err)
		}
	}
	insert, err := tx.PrepareContext(ctx, `INSERT INTO prices (date, fund, price) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()
	for _, c := range cells(t) {
		if _, err := insert.ExecContext(ctx, c.on, c.label, c.price); err != nil {
			return fmt.Errorf("insert %s price on %s: %w", c.label, c.on, err)
		}
	}
	return tx.Commit()
}

// Read reads the table back. It fails with an os.ErrNotExist error if the
// database was never written.
func (s *SQLite) Read(ctx context.Context) (*fundtrack.Table, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	var labels []string
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM funds ORDER BY position`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, err
		}
		labels = append(labels, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT date, fund, price FROM prices ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all []cell
	for rows.Next() {
		var c cell
		var price sql.NullString
		if err := rows.Scan(&c.on, &c.label, &price); err != nil {
			return nil, err
		}
		if price.Valid {
			c.price = &price.String
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table(labels, all)
}

var _ Store = (*SQLite)(nil)
