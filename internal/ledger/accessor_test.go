package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	appErrors "fintrack/internal/errors"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    map[Set][]Row
	failOn  map[Set]error
	queries map[Set]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[Set][]Row{}, failOn: map[Set]error{}, queries: map[Set]int{}}
}

func (f *fakeStore) add(set Set, r Row) {
	f.rows[set] = append(f.rows[set], r)
}

func (f *fakeStore) QueryByOwnerAndMonth(_ context.Context, set Set, ownerID string, year, month int) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[set]++
	if err := f.failOn[set]; err != nil {
		return nil, err
	}
	// returns every row for the owner so the accessor's own filter is exercised
	var out []Row
	for _, r := range f.rows[set] {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) QueryByOwnerAndYear(_ context.Context, set Set, ownerID string, year int) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[set]++
	if err := f.failOn[set]; err != nil {
		return nil, err
	}
	var out []Row
	for _, r := range f.rows[set] {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Insert(context.Context, Set, Row) (Row, error) { return Row{}, nil }
func (f *fakeStore) GetByID(context.Context, Set, string, string) (Row, error) {
	return Row{}, ErrRowNotFound
}
func (f *fakeStore) UpdateByID(context.Context, Set, string, string, Patch) (Row, error) {
	return Row{}, ErrRowNotFound
}
func (f *fakeStore) DeleteByID(context.Context, Set, string, string) (int64, error) { return 0, nil }

func cat(s string) *string { return &s }

func TestFetchPeriodNormalisesAndFilters(t *testing.T) {
	f := newFakeStore()
	f.add(PersonalIncomes, Row{ID: "i1", OwnerID: "u1", Amount: decimal.NewFromInt(100), Date: core.NewDate(2025, 3, 5)})
	f.add(PersonalIncomes, Row{ID: "i2", OwnerID: "u1", Amount: decimal.NewFromInt(7), Date: core.NewDate(2025, 2, 28)})
	f.add(PersonalExpenses, Row{ID: "e1", OwnerID: "u1", Amount: decimal.NewFromInt(40), Date: core.NewDate(2025, 3, 5), Category: cat("Food")})
	f.add(BusinessExpenses, Row{ID: "b1", OwnerID: "u1", Amount: decimal.NewFromInt(999), Date: core.NewDate(2025, 3, 5)})

	a := NewAccessor(f)
	p, err := a.FetchPeriod(context.Background(), "u1", core.Personal, 2025, 3)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(p.Incomes))
	assert.Equal(t, 1, len(p.Expenses))
	assert.Equal(t, "i1", p.Incomes[0].ID)
	assert.Equal(t, core.Income, p.Incomes[0].Kind)
	assert.Equal(t, core.Personal, p.Expenses[0].Mode)
	assert.Equal(t, core.Expense, p.Expenses[0].Kind)
	assert.Equal(t, "Food", p.Expenses[0].CategoryName())
	assert.Equal(t, 0, f.queries[BusinessExpenses])
}

func TestFetchPeriodEmptyIsValid(t *testing.T) {
	a := NewAccessor(newFakeStore())
	p, err := a.FetchPeriod(context.Background(), "nobody", core.Business, 2025, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(p.Incomes))
	assert.Equal(t, 0, len(p.Expenses))
}

func TestFetchYearGroupsByMonth(t *testing.T) {
	f := newFakeStore()
	f.add(BusinessIncomes, Row{OwnerID: "u1", Amount: decimal.NewFromInt(1), Date: core.NewDate(2025, 1, 31)})
	f.add(BusinessIncomes, Row{OwnerID: "u1", Amount: decimal.NewFromInt(2), Date: core.NewDate(2025, 12, 1)})
	f.add(BusinessExpenses, Row{OwnerID: "u1", Amount: decimal.NewFromInt(3), Date: core.NewDate(2025, 12, 2)})
	f.add(BusinessExpenses, Row{OwnerID: "u1", Amount: decimal.NewFromInt(4), Date: core.NewDate(2024, 12, 2)})

	y, err := NewAccessor(f).FetchYear(context.Background(), "u1", core.Business, 2025)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(y.Months[0].Incomes))
	assert.Equal(t, 1, len(y.Months[11].Incomes))
	assert.Equal(t, 1, len(y.Months[11].Expenses))
	assert.Equal(t, 2, len(y.Incomes()))
	assert.Equal(t, 1, len(y.Expenses()))
	assert.Equal(t, 1, f.queries[BusinessIncomes])
	assert.Equal(t, 1, f.queries[BusinessExpenses])
}

func TestFetchWrapsStoreFailure(t *testing.T) {
	f := newFakeStore()
	f.failOn[PersonalExpenses] = errors.New("connection refused")
	_, err := NewAccessor(f).FetchPeriod(context.Background(), "u1", core.Personal, 2025, 3)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStoreUnavailable))
}

func TestUnknownModeIsInvalidParameter(t *testing.T) {
	_, err := NewAccessor(newFakeStore()).FetchPeriod(context.Background(), "u1", core.AccountMode("family"), 2025, 3)
	appErr, ok := appErrors.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, appErrors.CodeInvalidParameter, appErr.Code)
	assert.Equal(t, "type", appErr.Field)
}

func TestSetFor(t *testing.T) {
	cases := []struct {
		mode core.AccountMode
		kind core.Kind
		want Set
	}{
		{core.Personal, core.Income, PersonalIncomes},
		{core.Personal, core.Expense, PersonalExpenses},
		{core.Business, core.Income, BusinessIncomes},
		{core.Business, core.Expense, BusinessExpenses},
	}
	for _, tc := range cases {
		got, err := SetFor(tc.mode, tc.kind)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.mode, got.Mode())
		assert.Equal(t, tc.kind, got.Kind())
	}
	_, err := SetFor(core.Personal, core.Kind("transfer"))
	assert.Error(t, err)
}

func TestPatchApply(t *testing.T) {
	amt := decimal.NewFromInt(9)
	r := Patch{Amount: &amt, Category: cat("Rent")}.Apply(Row{Name: "keep", Amount: decimal.NewFromInt(1)})
	assert.Equal(t, "keep", r.Name)
	assert.True(t, r.Amount.Equal(amt))
	assert.Equal(t, "Rent", *r.Category)
	assert.True(t, Patch{}.IsEmpty())
}
