package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestSQLiteStoreRoundTripsEverySet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, set := range ledger.Sets {
		row := ledger.Row{
			OwnerID:     "u1",
			Name:        "entry " + set.String(),
			Amount:      decimal.RequireFromString("12.34"),
			Date:        core.NewDate(2025, 3, 5),
			Description: "note",
		}
		if set.Kind() == core.Expense {
			row.Category = ptr("Food")
			row.HighPriority = true
		}

		created, err := s.Insert(ctx, set, row)
		assert.NoError(t, err)
		assert.NotEqual(t, "", created.ID)

		got, err := s.GetByID(ctx, set, created.ID, "u1")
		assert.NoError(t, err)
		assert.Equal(t, row.Name, got.Name)
		assert.True(t, got.Amount.Equal(row.Amount))
		assert.Equal(t, "2025-03-05", got.Date.String())
		assert.Equal(t, "note", got.Description)
		if set.Kind() == core.Expense {
			assert.Equal(t, "Food", *got.Category)
			assert.True(t, got.HighPriority)
		} else {
			assert.Zero(t, got.Category)
		}
	}
}

func TestSQLiteStoreMonthAndYearQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	dates := []core.Date{
		core.NewDate(2025, 3, 1),
		core.NewDate(2025, 3, 31),
		core.NewDate(2025, 4, 1),
		core.NewDate(2024, 3, 15),
	}
	for _, d := range dates {
		_, err := s.Insert(ctx, ledger.BusinessExpenses, ledger.Row{OwnerID: "u1", Name: "v", Amount: decimal.NewFromInt(1), Date: d, Category: ptr("Travel")})
		assert.NoError(t, err)
	}
	_, err := s.Insert(ctx, ledger.BusinessExpenses, ledger.Row{OwnerID: "u2", Name: "v", Amount: decimal.NewFromInt(1), Date: core.NewDate(2025, 3, 2), Category: ptr("Travel")})
	assert.NoError(t, err)

	march, err := s.QueryByOwnerAndMonth(ctx, ledger.BusinessExpenses, "u1", 2025, 3)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(march))
	assert.Equal(t, "2025-03-01", march[0].Date.String())
	assert.Equal(t, "2025-03-31", march[1].Date.String())

	year, err := s.QueryByOwnerAndYear(ctx, ledger.BusinessExpenses, "u1", 2025)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(year))

	empty, err := s.QueryByOwnerAndMonth(ctx, ledger.PersonalExpenses, "u1", 2025, 3)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(empty))
}

func TestSQLiteStoreUpdateIsScopedAndPartial(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.Insert(ctx, ledger.PersonalExpenses, ledger.Row{
		OwnerID: "u1", Name: "rent", Amount: decimal.NewFromInt(900), Date: core.NewDate(2025, 1, 1), Category: ptr("Housing"),
	})
	assert.NoError(t, err)

	_, err = s.UpdateByID(ctx, ledger.PersonalExpenses, created.ID, "u2", ledger.Patch{Name: ptr("stolen")})
	assert.IsError(t, err, ledger.ErrRowNotFound)

	updated, err := s.UpdateByID(ctx, ledger.PersonalExpenses, created.ID, "u1", ledger.Patch{
		Amount:       ptr(decimal.RequireFromString("950.5")),
		HighPriority: ptr(true),
	})
	assert.NoError(t, err)
	assert.Equal(t, "rent", updated.Name)
	assert.Equal(t, "Housing", *updated.Category)
	assert.Equal(t, "950.5", updated.Amount.String())
	assert.True(t, updated.HighPriority)

	_, err = s.UpdateByID(ctx, ledger.PersonalExpenses, "missing", "u1", ledger.Patch{Name: ptr("x")})
	assert.IsError(t, err, ledger.ErrRowNotFound)
}

func TestSQLiteStoreDeleteTwice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.Insert(ctx, ledger.BusinessIncomes, ledger.Row{OwnerID: "u1", Name: "invoice", Amount: decimal.NewFromInt(5), Date: core.NewDate(2025, 2, 2)})
	assert.NoError(t, err)

	n, err := s.DeleteByID(ctx, ledger.BusinessIncomes, created.ID, "u2")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.DeleteByID(ctx, ledger.BusinessIncomes, created.ID, "u1")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteByID(ctx, ledger.BusinessIncomes, created.ID, "u1")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = s.GetByID(ctx, ledger.BusinessIncomes, created.ID, "u1")
	assert.IsError(t, err, ledger.ErrRowNotFound)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	assert.NoError(t, RunMigrations(path))
	assert.NoError(t, RunMigrations(path))
}
