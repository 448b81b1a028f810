package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	appErrors "fintrack/internal/errors"
	"fintrack/internal/ledger"
	"fintrack/internal/storage/memory"
	"fintrack/internal/summary"
)

// countingStore records every call that reaches the store.
type countingStore struct {
	ledger.Store
	mu    sync.Mutex
	calls int
}

func (c *countingStore) hit() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingStore) Insert(ctx context.Context, set ledger.Set, row ledger.Row) (ledger.Row, error) {
	c.hit()
	return c.Store.Insert(ctx, set, row)
}

func (c *countingStore) GetByID(ctx context.Context, set ledger.Set, id, ownerID string) (ledger.Row, error) {
	c.hit()
	return c.Store.GetByID(ctx, set, id, ownerID)
}

func (c *countingStore) UpdateByID(ctx context.Context, set ledger.Set, id, ownerID string, p ledger.Patch) (ledger.Row, error) {
	c.hit()
	return c.Store.UpdateByID(ctx, set, id, ownerID, p)
}

func (c *countingStore) DeleteByID(ctx context.Context, set ledger.Set, id, ownerID string) (int64, error) {
	c.hit()
	return c.Store.DeleteByID(ctx, set, id, ownerID)
}

type recordingPublisher struct {
	events []*amqp.TransactionEvent
	err    error
}

func (r *recordingPublisher) PublishTransactionEvent(_ context.Context, ev *amqp.TransactionEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

type brokenStore struct{ ledger.Store }

func (brokenStore) Insert(context.Context, ledger.Set, ledger.Row) (ledger.Row, error) {
	return ledger.Row{}, errors.New("disk full")
}

func str(s string) *string { return &s }
func boolean(b bool) *bool { return &b }

var (
	alice = &auth.Principal{ID: "alice", AccountType: core.Personal}
	bob   = &auth.Principal{ID: "bob", AccountType: core.Personal}
)

func newService() (*TransactionService, *countingStore, *recordingPublisher) {
	store := &countingStore{Store: memory.New()}
	pub := &recordingPublisher{}
	return NewTransactionService(store, pub), store, pub
}

func validExpense() Fields {
	return Fields{Name: str("groceries"), Amount: str("40"), Date: str("2025-03-05"), Category: str("Food")}
}

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	appErr, ok := appErrors.AsAppError(err)
	assert.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, appErrors.CodeValidation, appErr.Code)
	assert.Equal(t, field, appErr.Field)
}

func TestCreateTransaction(t *testing.T) {
	svc, _, pub := newService()
	tx, err := svc.CreateTransaction(context.Background(), alice, core.Expense, "", validExpense())
	assert.NoError(t, err)
	assert.NotEqual(t, "", tx.ID)
	assert.Equal(t, "alice", tx.OwnerID)
	assert.Equal(t, core.Personal, tx.Mode)
	assert.Equal(t, "40", tx.Amount.String())
	assert.Equal(t, "Food", tx.CategoryName())

	assert.Equal(t, 1, len(pub.events))
	assert.Equal(t, amqp.OpCreated, pub.events[0].Op)
	assert.Equal(t, tx.ID, pub.events[0].ID)
	assert.Equal(t, 3, pub.events[0].Month)
}

func TestCreateNegativeAmountNeverReachesStore(t *testing.T) {
	svc, store, pub := newService()
	f := validExpense()
	f.Amount = str("-5")
	_, err := svc.CreateTransaction(context.Background(), alice, core.Expense, core.Personal, f)
	assertValidation(t, err, "amount")
	assert.Equal(t, 0, store.calls)
	assert.Equal(t, 0, len(pub.events))
}

func TestCreateReportsFirstViolation(t *testing.T) {
	cases := []struct {
		name   string
		kind   core.Kind
		mutate func(*Fields)
		field  string
	}{
		{"missing name", core.Expense, func(f *Fields) { f.Name = nil }, "name"},
		{"blank name and bad amount", core.Expense, func(f *Fields) { f.Name = str(" "); f.Amount = str("x") }, "name"},
		{"missing amount", core.Expense, func(f *Fields) { f.Amount = nil }, "amount"},
		{"zero amount", core.Expense, func(f *Fields) { f.Amount = str("0") }, "amount"},
		{"non numeric amount", core.Expense, func(f *Fields) { f.Amount = str("ten") }, "amount"},
		{"missing date", core.Expense, func(f *Fields) { f.Date = nil }, "date"},
		{"bad date", core.Expense, func(f *Fields) { f.Date = str("2025-02-30") }, "date"},
		{"expense without category", core.Expense, func(f *Fields) { f.Category = nil }, "category"},
		{"bad kind", core.Kind("transfer"), func(f *Fields) {}, "kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _ := newService()
			f := validExpense()
			tc.mutate(&f)
			_, err := svc.CreateTransaction(context.Background(), alice, tc.kind, core.Personal, f)
			assertValidation(t, err, tc.field)
			assert.Equal(t, 0, store.calls)
		})
	}
}

func TestCreateIncomeDropsCategory(t *testing.T) {
	svc, _, _ := newService()
	f := Fields{Name: str("salary"), Amount: str("1000,50"), Date: str("2025-03-01"), Category: str("ignored"), HighPriority: boolean(true)}
	tx, err := svc.CreateTransaction(context.Background(), alice, core.Income, core.Business, f)
	assert.NoError(t, err)
	assert.Zero(t, tx.Category)
	assert.False(t, tx.HighPriority)
	assert.Equal(t, core.Business, tx.Mode)
	assert.Equal(t, "1000.5", tx.Amount.String())
}

func TestCreateRequiresPrincipal(t *testing.T) {
	svc, store, _ := newService()
	_, err := svc.CreateTransaction(context.Background(), nil, core.Expense, core.Personal, validExpense())
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Equal(t, 0, store.calls)
}

func TestCreateStoreFailureIsStoreUnavailable(t *testing.T) {
	svc := NewTransactionService(brokenStore{memory.New()}, nil)
	_, err := svc.CreateTransaction(context.Background(), alice, core.Expense, core.Personal, validExpense())
	assert.True(t, errors.Is(err, appErrors.ErrStoreUnavailable))
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewTransactionService(store, pub)
	tx, err := svc.CreateTransaction(context.Background(), alice, core.Expense, core.Personal, validExpense())
	assert.NoError(t, err)
	assert.NotEqual(t, "", tx.ID)
	assert.Equal(t, 1, store.Len(ledger.PersonalExpenses))
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService()
	created, err := svc.CreateTransaction(ctx, alice, core.Expense, core.Personal, validExpense())
	assert.NoError(t, err)

	updated, err := svc.UpdateTransaction(ctx, alice, created.ID, core.Expense, core.Personal, Fields{Amount: str("55.10")})
	assert.NoError(t, err)
	assert.Equal(t, "55.1", updated.Amount.String())
	assert.Equal(t, "groceries", updated.Name)
	assert.Equal(t, "Food", updated.CategoryName())
	assert.Equal(t, 2, len(pub.events))
	assert.Equal(t, amqp.OpUpdated, pub.events[1].Op)

	moved, err := svc.UpdateTransaction(ctx, alice, created.ID, core.Expense, core.Personal, Fields{Date: str("2025-04-01")})
	assert.NoError(t, err)
	assert.Equal(t, 4, moved.Date.Month())
	// new and previous period both announced
	assert.Equal(t, 4, len(pub.events))
	assert.Equal(t, 4, pub.events[2].Month)
	assert.Equal(t, 3, pub.events[3].Month)
}

func TestUpdateForeignOrMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	created, err := svc.CreateTransaction(ctx, alice, core.Expense, core.Personal, validExpense())
	assert.NoError(t, err)

	_, err = svc.UpdateTransaction(ctx, bob, created.ID, core.Expense, core.Personal, Fields{Name: str("mine now")})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.UpdateTransaction(ctx, alice, "does-not-exist", core.Expense, core.Personal, Fields{Name: str("x")})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	// wrong kind points at a different set, so the row is not there either
	_, err = svc.UpdateTransaction(ctx, alice, created.ID, core.Income, core.Personal, Fields{Name: str("x")})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateRevalidatesAmount(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	created, err := svc.CreateTransaction(ctx, alice, core.Expense, core.Personal, validExpense())
	assert.NoError(t, err)
	before := store.calls

	_, err = svc.UpdateTransaction(ctx, alice, created.ID, core.Expense, core.Personal, Fields{Amount: str("-1")})
	assertValidation(t, err, "amount")
	assert.Equal(t, before, store.calls)

	_, err = svc.UpdateTransaction(ctx, alice, created.ID, core.Expense, core.Personal, Fields{Category: str("")})
	assertValidation(t, err, "category")
}

func TestUpdateEmptyPatchReturnsExisting(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService()
	created, err := svc.CreateTransaction(ctx, alice, core.Expense, core.Personal, validExpense())
	assert.NoError(t, err)

	got, err := svc.UpdateTransaction(ctx, alice, created.ID, core.Expense, "", Fields{})
	assert.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 1, len(pub.events))
}

func TestDeleteTwice(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService()
	created, err := svc.CreateTransaction(ctx, alice, core.Expense, core.Personal, validExpense())
	assert.NoError(t, err)

	assert.True(t, errors.Is(svc.DeleteTransaction(ctx, bob, created.ID, core.Expense, core.Personal), appErrors.ErrNotFound))

	assert.NoError(t, svc.DeleteTransaction(ctx, alice, created.ID, core.Expense, core.Personal))
	assert.Equal(t, amqp.OpDeleted, pub.events[len(pub.events)-1].Op)
	assert.Equal(t, 3, pub.events[len(pub.events)-1].Month)

	err = svc.DeleteTransaction(ctx, alice, created.ID, core.Expense, core.Personal)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDeleteWithoutPublisherSkipsLookup(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.New()}
	svc := NewTransactionService(store, nil)
	created, err := svc.CreateTransaction(ctx, alice, core.Income, core.Personal, Fields{Name: str("gift"), Amount: str("5"), Date: str("2025-01-01")})
	assert.NoError(t, err)

	before := store.calls
	assert.NoError(t, svc.DeleteTransaction(ctx, alice, created.ID, core.Income, core.Personal))
	assert.Equal(t, before+1, store.calls)
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()
	_, err := svc.CreateTransaction(ctx, alice, core.Expense, core.Personal, validExpense())
	assert.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, bob, core.Expense, core.Personal, validExpense())
	assert.NoError(t, err)

	got, err := svc.ListTransactions(ctx, alice, core.Expense, "", 2025, 3)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(got))
	assert.Equal(t, "alice", got[0].OwnerID)

	none, err := svc.ListTransactions(ctx, alice, core.Expense, core.Personal, 2025, 4)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(none))

	_, err = svc.ListTransactions(ctx, alice, core.Expense, core.Personal, 2025, 13)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidParameter))
}

func TestListTransactionsYearBoundsMatchReports(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewTransactionService(store, nil)
	reports := summary.NewService(ledger.NewAccessor(store))

	for _, year := range []int{core.MinYear - 1, core.MaxYear + 1} {
		_, listErr := svc.ListTransactions(ctx, alice, core.Expense, core.Personal, year, 3)
		_, reportErr := reports.GetMonthlySummary(ctx, alice, core.Personal, year, 3)
		for _, err := range []error{listErr, reportErr} {
			appErr, ok := appErrors.AsAppError(err)
			assert.True(t, ok, "year %d: expected AppError, got %v", year, err)
			assert.Equal(t, appErrors.CodeInvalidParameter, appErr.Code)
			assert.Equal(t, "year", appErr.Field)
		}
	}

	for _, year := range []int{core.MinYear, core.MaxYear} {
		_, err := svc.ListTransactions(ctx, alice, core.Expense, core.Personal, year, 3)
		assert.NoError(t, err)
		_, err = reports.GetMonthlySummary(ctx, alice, core.Personal, year, 3)
		assert.NoError(t, err)
	}
}
