package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	appErrors "fintrack/internal/errors"
	"fintrack/internal/ledger"
)

// EventPublisher announces committed writes. Implemented by *amqp.Client.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// Fields are caller supplied values. A nil pointer means "not provided".
type Fields struct {
	Name         *string
	Amount       *string
	Date         *string
	Category     *string
	Description  *string
	HighPriority *bool
}

// TransactionService performs validated writes against the ledger store and
// publishes a change event after each one.
type TransactionService struct {
	store     ledger.Store
	accessor  *ledger.Accessor
	publisher EventPublisher
}

// NewTransactionService accepts a nil publisher; events are then skipped.
func NewTransactionService(store ledger.Store, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		accessor:  ledger.NewAccessor(store),
		publisher: publisher,
	}
}

// CreateTransaction validates every field before the store is touched and
// returns the stored record with its assigned id.
func (s *TransactionService) CreateTransaction(ctx context.Context, p *auth.Principal, kind core.Kind, mode core.AccountMode, f Fields) (core.Transaction, error) {
	if !p.Valid() {
		return core.Transaction{}, appErrors.NewUnauthorized("authentication required")
	}
	if mode == "" {
		mode = p.AccountType
	}

	tx, err := buildTransaction(p.ID, kind, mode, f)
	if err != nil {
		return core.Transaction{}, err
	}

	set, err := ledger.SetFor(tx.Mode, tx.Kind)
	if err != nil {
		return core.Transaction{}, err
	}

	row, err := s.store.Insert(ctx, set, ledger.RowFromTransaction(tx))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to insert transaction", "set", set.String(), "error", err)
		return core.Transaction{}, appErrors.NewStoreUnavailable(fmt.Errorf("insert: %w", err))
	}
	created := row.ToTransaction(set)

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"user", p.ID,
		"mode", created.Mode.String(),
		"kind", created.Kind.String())

	s.publish(ctx, amqp.OpCreated, created)
	return created, nil
}

// UpdateTransaction applies only the provided fields to a record owned by the
// principal. Records that are missing or belong to someone else are NotFound.
func (s *TransactionService) UpdateTransaction(ctx context.Context, p *auth.Principal, id string, kind core.Kind, mode core.AccountMode, f Fields) (core.Transaction, error) {
	if !p.Valid() {
		return core.Transaction{}, appErrors.NewUnauthorized("authentication required")
	}
	if mode == "" {
		mode = p.AccountType
	}
	set, err := ledger.SetFor(mode, kind)
	if err != nil {
		return core.Transaction{}, err
	}

	patch, err := buildPatch(kind, f)
	if err != nil {
		return core.Transaction{}, err
	}

	existing, err := s.store.GetByID(ctx, set, id, p.ID)
	if err != nil {
		return core.Transaction{}, storeError(ctx, "load", err)
	}
	if patch.IsEmpty() {
		return existing.ToTransaction(set), nil
	}

	row, err := s.store.UpdateByID(ctx, set, id, p.ID, patch)
	if err != nil {
		return core.Transaction{}, storeError(ctx, "update", err)
	}
	updated := row.ToTransaction(set)

	slog.InfoContext(ctx, "Transaction updated", "id", id, "user", p.ID, "set", set.String())

	s.publish(ctx, amqp.OpUpdated, updated)
	if updated.Date.Year() != existing.Date.Year() || updated.Date.Month() != existing.Date.Month() {
		// the old period changed too
		s.publish(ctx, amqp.OpUpdated, existing.ToTransaction(set))
	}
	return updated, nil
}

// DeleteTransaction hard deletes a record owned by the principal. NotFound is
// decided by the affected row count alone.
func (s *TransactionService) DeleteTransaction(ctx context.Context, p *auth.Principal, id string, kind core.Kind, mode core.AccountMode) error {
	if !p.Valid() {
		return appErrors.NewUnauthorized("authentication required")
	}
	if mode == "" {
		mode = p.AccountType
	}
	set, err := ledger.SetFor(mode, kind)
	if err != nil {
		return err
	}

	// The event needs the row's period, which is gone after the delete.
	var prior *ledger.Row
	if s.publisher != nil {
		if r, err := s.store.GetByID(ctx, set, id, p.ID); err == nil {
			prior = &r
		}
	}

	n, err := s.store.DeleteByID(ctx, set, id, p.ID)
	if err != nil {
		return storeError(ctx, "delete", err)
	}
	if n == 0 {
		return appErrors.NewNotFound()
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user", p.ID, "set", set.String())

	if prior != nil {
		s.publish(ctx, amqp.OpDeleted, prior.ToTransaction(set))
	}
	return nil
}

// ListTransactions returns the principal's records of one kind for a month.
func (s *TransactionService) ListTransactions(ctx context.Context, p *auth.Principal, kind core.Kind, mode core.AccountMode, year, month int) ([]core.Transaction, error) {
	if !p.Valid() {
		return nil, appErrors.NewUnauthorized("authentication required")
	}
	if year < core.MinYear || year > core.MaxYear {
		return nil, appErrors.NewInvalidParameter("year", fmt.Sprintf("year must be between %d and %d", core.MinYear, core.MaxYear))
	}
	if month < 1 || month > 12 {
		return nil, appErrors.NewInvalidParameter("month", "month must be between 1 and 12")
	}
	if mode == "" {
		mode = p.AccountType
	}
	return s.accessor.FetchKind(ctx, p.ID, mode, kind, year, month)
}

func (s *TransactionService) publish(ctx context.Context, op amqp.Op, tx core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "op", string(op), "id", tx.ID)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(op, tx)); err != nil {
		// the write is committed; the event is best effort
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"op", string(op),
			"id", tx.ID,
			"error", err)
	}
}

func storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, ledger.ErrRowNotFound) {
		return appErrors.NewNotFound()
	}
	slog.ErrorContext(ctx, "Ledger store operation failed", "op", op, "error", err)
	return appErrors.NewStoreUnavailable(fmt.Errorf("%s: %w", op, err))
}

// buildTransaction checks rules in a fixed order and reports the first one
// violated.
func buildTransaction(ownerID string, kind core.Kind, mode core.AccountMode, f Fields) (core.Transaction, error) {
	if !kind.IsValid() {
		return core.Transaction{}, validationError(core.ErrInvalidKind)
	}
	if !mode.IsValid() {
		return core.Transaction{}, validationError(core.ErrInvalidMode)
	}

	tx := core.Transaction{OwnerID: ownerID, Kind: kind, Mode: mode}

	if f.Name == nil || strings.TrimSpace(*f.Name) == "" {
		return core.Transaction{}, validationError(core.ErrEmptyName)
	}
	tx.Name = strings.TrimSpace(*f.Name)

	if f.Amount == nil {
		return core.Transaction{}, appErrors.NewValidationError("amount", "amount is required")
	}
	amount, err := core.ParseAmount(*f.Amount)
	if err != nil {
		return core.Transaction{}, validationError(err)
	}
	tx.Amount = amount

	if f.Date == nil {
		return core.Transaction{}, validationError(core.ErrMissingDate)
	}
	date, err := core.ParseDate(*f.Date)
	if err != nil {
		return core.Transaction{}, validationError(err)
	}
	tx.Date = date

	if kind == core.Expense {
		if f.Category == nil || *f.Category == "" {
			return core.Transaction{}, validationError(core.ErrMissingCategory)
		}
		c := *f.Category
		tx.Category = &c
		if f.HighPriority != nil {
			tx.HighPriority = *f.HighPriority
		}
	}
	if f.Description != nil {
		tx.Description = *f.Description
	}

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, validationError(err)
	}
	return tx, nil
}

// buildPatch validates provided fields only. Category and priority are
// ignored for incomes, which have neither.
func buildPatch(kind core.Kind, f Fields) (ledger.Patch, error) {
	var patch ledger.Patch

	if f.Name != nil {
		name := strings.TrimSpace(*f.Name)
		if name == "" {
			return ledger.Patch{}, validationError(core.ErrEmptyName)
		}
		if len(name) > 200 {
			return ledger.Patch{}, validationError(core.ErrNameTooLong)
		}
		patch.Name = &name
	}
	if f.Amount != nil {
		amount, err := core.ParseAmount(*f.Amount)
		if err != nil {
			return ledger.Patch{}, validationError(err)
		}
		patch.Amount = &amount
	}
	if f.Date != nil {
		date, err := core.ParseDate(*f.Date)
		if err != nil {
			return ledger.Patch{}, validationError(err)
		}
		patch.Date = &date
	}
	if f.Description != nil {
		d := *f.Description
		patch.Description = &d
	}
	if kind == core.Expense {
		if f.Category != nil {
			if *f.Category == "" {
				return ledger.Patch{}, validationError(core.ErrMissingCategory)
			}
			c := *f.Category
			patch.Category = &c
		}
		if f.HighPriority != nil {
			hp := *f.HighPriority
			patch.HighPriority = &hp
		}
	}
	return patch, nil
}

var fieldFor = map[error]string{
	core.ErrInvalidKind:     "kind",
	core.ErrInvalidMode:     "accountMode",
	core.ErrEmptyName:       "name",
	core.ErrNameTooLong:     "name",
	core.ErrInvalidAmount:   "amount",
	core.ErrMissingDate:     "date",
	core.ErrInvalidDate:     "date",
	core.ErrMissingCategory: "category",
}

func validationError(err error) *appErrors.AppError {
	return appErrors.NewValidationError(fieldFor[err], err.Error())
}
