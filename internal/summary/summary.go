// Package summary validates report requests and orchestrates the ledger
// accessor and aggregation engine. Every call recomputes from the store.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fintrack/internal/aggregate"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	appErrors "fintrack/internal/errors"
	"fintrack/internal/ledger"
)

// Reader is the slice of the ledger accessor the reports need.
type Reader interface {
	FetchPeriod(ctx context.Context, ownerID string, mode core.AccountMode, year, month int) (ledger.Period, error)
	FetchYear(ctx context.Context, ownerID string, mode core.AccountMode, year int) (ledger.Year, error)
}

type Totals struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	TotalBalance  decimal.Decimal
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalIncome   json.Number `json:"totalIncome"`
		TotalExpenses json.Number `json:"totalExpenses"`
		TotalBalance  json.Number `json:"totalBalance"`
	}{core.Number(t.TotalIncome), core.Number(t.TotalExpenses), core.Number(t.TotalBalance)})
}

type Dashboard struct {
	Totals     Totals                    `json:"totals"`
	Categories []aggregate.CategorySlice `json:"categories"`
}

type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// GetMonthlySummary returns the sparse per-day calendar for one month.
func (s *Service) GetMonthlySummary(ctx context.Context, p *auth.Principal, mode core.AccountMode, year, month int) (map[int]aggregate.Bucket, error) {
	mode, err := checkRequest(p, mode, year, &month)
	if err != nil {
		return nil, err
	}
	period, err := s.reader.FetchPeriod(ctx, p.ID, mode, year, month)
	if err != nil {
		return nil, err
	}
	return aggregate.DailyBuckets(period.Incomes, period.Expenses), nil
}

// GetYearlySummary returns the twelve monthly buckets of a year.
func (s *Service) GetYearlySummary(ctx context.Context, p *auth.Principal, mode core.AccountMode, year int) ([12]aggregate.Bucket, error) {
	mode, err := checkRequest(p, mode, year, nil)
	if err != nil {
		return [12]aggregate.Bucket{}, err
	}
	y, err := s.reader.FetchYear(ctx, p.ID, mode, year)
	if err != nil {
		return [12]aggregate.Bucket{}, err
	}
	return aggregate.MonthlyBuckets(y.Incomes(), y.Expenses()), nil
}

// GetRunningBalance returns the cumulative balance at the end of each month.
func (s *Service) GetRunningBalance(ctx context.Context, p *auth.Principal, mode core.AccountMode, year int) ([12]decimal.Decimal, error) {
	months, err := s.GetYearlySummary(ctx, p, mode, year)
	if err != nil {
		return [12]decimal.Decimal{}, err
	}
	return aggregate.RunningBalance(months), nil
}

// GetDashboard returns totals and the category breakdown for one month.
func (s *Service) GetDashboard(ctx context.Context, p *auth.Principal, mode core.AccountMode, year, month int) (Dashboard, error) {
	mode, err := checkRequest(p, mode, year, &month)
	if err != nil {
		return Dashboard{}, err
	}
	period, err := s.reader.FetchPeriod(ctx, p.ID, mode, year, month)
	if err != nil {
		return Dashboard{}, err
	}

	income := aggregate.Total(period.Incomes)
	expenses := aggregate.Total(period.Expenses)
	d := Dashboard{
		Totals: Totals{
			TotalIncome:   income,
			TotalExpenses: expenses,
			TotalBalance:  income.Sub(expenses),
		},
		Categories: aggregate.CategoryBreakdown(period.Expenses, mode),
	}

	slog.DebugContext(ctx, "Dashboard computed",
		"user", p.ID,
		"mode", mode.String(),
		"year", year,
		"month", month,
		"categories", len(d.Categories))
	return d, nil
}

// checkRequest rejects a missing principal before anything else, then
// validates the period and resolves an empty mode to the principal's.
// A nil month skips the month check.
func checkRequest(p *auth.Principal, mode core.AccountMode, year int, month *int) (core.AccountMode, error) {
	if !p.Valid() {
		return "", appErrors.NewUnauthorized("authentication required")
	}
	if year < core.MinYear || year > core.MaxYear {
		return "", appErrors.NewInvalidParameter("year", fmt.Sprintf("year must be between %d and %d", core.MinYear, core.MaxYear))
	}
	if month != nil && (*month < 1 || *month > 12) {
		return "", appErrors.NewInvalidParameter("month", "month must be between 1 and 12")
	}
	if mode == "" {
		mode = p.AccountType
	}
	if !mode.IsValid() {
		return "", appErrors.NewInvalidParameter("type", fmt.Sprintf("unknown account type %q", mode))
	}
	return mode, nil
}
