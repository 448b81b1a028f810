// Package storage implements ledger.Store on SQLite (modernc.org/sqlite)
// with schema managed by embedded golang-migrate migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) QueryByOwnerAndMonth(ctx context.Context, set ledger.Set, ownerID string, year, month int) ([]ledger.Row, error) {
	q, err := queriesFor(set)
	if err != nil {
		return nil, err
	}
	return s.queryRows(ctx, q.byMonth, ownerID, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month))
}

func (s *SQLiteStore) QueryByOwnerAndYear(ctx context.Context, set ledger.Set, ownerID string, year int) ([]ledger.Row, error) {
	q, err := queriesFor(set)
	if err != nil {
		return nil, err
	}
	return s.queryRows(ctx, q.byYear, ownerID, fmt.Sprintf("%04d", year))
}

// Insert assigns a new UUID and stores the row.
func (s *SQLiteStore) Insert(ctx context.Context, set ledger.Set, row ledger.Row) (ledger.Row, error) {
	q, err := queriesFor(set)
	if err != nil {
		return ledger.Row{}, err
	}
	row.ID = uuid.NewString()
	if set.Kind() == core.Income {
		row.Category = nil
		row.HighPriority = false
	}
	if _, err := s.db.ExecContext(ctx, q.insert, q.insertArgs(row)...); err != nil {
		return ledger.Row{}, fmt.Errorf("insert into %s: %w", set, err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"set", set.String(),
		"id", row.ID,
		"amount", row.Amount.String(),
		"date", row.Date.String())

	return row, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, set ledger.Set, id, ownerID string) (ledger.Row, error) {
	q, err := queriesFor(set)
	if err != nil {
		return ledger.Row{}, err
	}
	row, err := scanRow(s.db.QueryRowContext(ctx, q.byID, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Row{}, ledger.ErrRowNotFound
	}
	if err != nil {
		return ledger.Row{}, fmt.Errorf("get %s by id: %w", set, err)
	}
	return row, nil
}

// UpdateByID writes only the patch's provided fields in a single statement.
func (s *SQLiteStore) UpdateByID(ctx context.Context, set ledger.Set, id, ownerID string, patch ledger.Patch) (ledger.Row, error) {
	q, err := queriesFor(set)
	if err != nil {
		return ledger.Row{}, err
	}
	res, err := s.db.ExecContext(ctx, q.update, q.updateArgs(patch, id, ownerID)...)
	if err != nil {
		return ledger.Row{}, fmt.Errorf("update %s: %w", set, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ledger.Row{}, fmt.Errorf("update %s rows affected: %w", set, err)
	}
	if n == 0 {
		return ledger.Row{}, ledger.ErrRowNotFound
	}

	slog.InfoContext(ctx, "Transaction updated in SQLite", "set", set.String(), "id", id)
	return s.GetByID(ctx, set, id, ownerID)
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, set ledger.Set, id, ownerID string) (int64, error) {
	q, err := queriesFor(set)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, q.delete, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", set, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s rows affected: %w", set, err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Transaction deleted from SQLite", "set", set.String(), "id", id)
	}
	return n, nil
}

func (s *SQLiteStore) queryRows(ctx context.Context, query string, args ...any) ([]ledger.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var out []ledger.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (ledger.Row, error) {
	var (
		r        ledger.Row
		amount   string
		date     string
		category sql.NullString
		priority int64
	)
	if err := sc.Scan(&r.ID, &r.OwnerID, &r.Name, &amount, &date, &category, &r.Description, &priority); err != nil {
		return ledger.Row{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return ledger.Row{}, fmt.Errorf("row %s has malformed amount %q: %w", r.ID, amount, err)
	}
	parsed, err := core.ParseDate(date)
	if err != nil {
		return ledger.Row{}, fmt.Errorf("row %s has malformed date %q: %w", r.ID, date, err)
	}
	r.Amount = d
	r.Date = parsed
	if category.Valid {
		c := category.String
		r.Category = &c
	}
	r.HighPriority = priority != 0
	return r, nil
}

func queriesFor(set ledger.Set) (setQueries, error) {
	q, ok := queries[set]
	if !ok {
		return setQueries{}, fmt.Errorf("unknown ledger set %d", set)
	}
	return q, nil
}
