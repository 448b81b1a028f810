package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	appErrors "fintrack/internal/errors"
)

// schema names the income and expense sets backing one account mode.
type schema struct {
	incomes  Set
	expenses Set
}

// schemas is the single place mode dispatch happens.
var schemas = map[core.AccountMode]schema{
	core.Personal: {incomes: PersonalIncomes, expenses: PersonalExpenses},
	core.Business: {incomes: BusinessIncomes, expenses: BusinessExpenses},
}

// SetFor resolves the physical set for a mode and kind.
func SetFor(mode core.AccountMode, kind core.Kind) (Set, error) {
	s, ok := schemas[mode]
	if !ok {
		return 0, appErrors.NewInvalidParameter("type", fmt.Sprintf("unknown account type %q", mode))
	}
	switch kind {
	case core.Income:
		return s.incomes, nil
	case core.Expense:
		return s.expenses, nil
	default:
		return 0, appErrors.NewInvalidParameter("kind", fmt.Sprintf("unknown kind %q", kind))
	}
}

// Period holds one owner's rows for a single calendar month.
type Period struct {
	Incomes  []core.Transaction
	Expenses []core.Transaction
}

// Year holds one owner's rows for a calendar year grouped by month.
// Months[0] is January.
type Year struct {
	Months [12]Period
}

// Incomes flattens the year's incomes in month order.
func (y Year) Incomes() []core.Transaction {
	var out []core.Transaction
	for _, p := range y.Months {
		out = append(out, p.Incomes...)
	}
	return out
}

func (y Year) Expenses() []core.Transaction {
	var out []core.Transaction
	for _, p := range y.Months {
		out = append(out, p.Expenses...)
	}
	return out
}

// Accessor reads scoped rows from a Store and hands back normalised
// transactions. It holds no state beyond the store handle.
type Accessor struct {
	store Store
}

func NewAccessor(store Store) *Accessor {
	return &Accessor{store: store}
}

// FetchPeriod returns the owner's incomes and expenses dated in year/month.
func (a *Accessor) FetchPeriod(ctx context.Context, ownerID string, mode core.AccountMode, year, month int) (Period, error) {
	s, ok := schemas[mode]
	if !ok {
		return Period{}, appErrors.NewInvalidParameter("type", fmt.Sprintf("unknown account type %q", mode))
	}

	var incomes, expenses []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = a.fetchMonth(gctx, s.incomes, ownerID, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = a.fetchMonth(gctx, s.expenses, ownerID, year, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return Period{}, err
	}
	return Period{Incomes: incomes, Expenses: expenses}, nil
}

// FetchKind returns one kind of the owner's rows for year/month.
func (a *Accessor) FetchKind(ctx context.Context, ownerID string, mode core.AccountMode, kind core.Kind, year, month int) ([]core.Transaction, error) {
	set, err := SetFor(mode, kind)
	if err != nil {
		return nil, err
	}
	return a.fetchMonth(ctx, set, ownerID, year, month)
}

// FetchYear reads each set once for the whole year and groups rows by month.
func (a *Accessor) FetchYear(ctx context.Context, ownerID string, mode core.AccountMode, year int) (Year, error) {
	s, ok := schemas[mode]
	if !ok {
		return Year{}, appErrors.NewInvalidParameter("type", fmt.Sprintf("unknown account type %q", mode))
	}

	var incomes, expenses []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = a.fetchYear(gctx, s.incomes, ownerID, year)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = a.fetchYear(gctx, s.expenses, ownerID, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return Year{}, err
	}

	var out Year
	for _, tx := range incomes {
		i := tx.Date.Month() - 1
		out.Months[i].Incomes = append(out.Months[i].Incomes, tx)
	}
	for _, tx := range expenses {
		i := tx.Date.Month() - 1
		out.Months[i].Expenses = append(out.Months[i].Expenses, tx)
	}
	return out, nil
}

func (a *Accessor) fetchMonth(ctx context.Context, set Set, ownerID string, year, month int) ([]core.Transaction, error) {
	rows, err := a.store.QueryByOwnerAndMonth(ctx, set, ownerID, year, month)
	if err != nil {
		slog.ErrorContext(ctx, "Ledger query failed", "set", set.String(), "year", year, "month", month, "error", err)
		return nil, appErrors.NewStoreUnavailable(fmt.Errorf("query %s: %w", set, err))
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		if !r.Date.InMonth(year, month) || r.OwnerID != ownerID {
			continue
		}
		out = append(out, r.ToTransaction(set))
	}
	return out, nil
}

func (a *Accessor) fetchYear(ctx context.Context, set Set, ownerID string, year int) ([]core.Transaction, error) {
	rows, err := a.store.QueryByOwnerAndYear(ctx, set, ownerID, year)
	if err != nil {
		slog.ErrorContext(ctx, "Ledger query failed", "set", set.String(), "year", year, "error", err)
		return nil, appErrors.NewStoreUnavailable(fmt.Errorf("query %s: %w", set, err))
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		if r.Date.Year() != year || r.OwnerID != ownerID {
			continue
		}
		out = append(out, r.ToTransaction(set))
	}
	return out, nil
}
