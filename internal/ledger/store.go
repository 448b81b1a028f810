// Package ledger defines the ledger store contract and the accessor that
// normalises the four underlying record sets into core.Transaction values.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Set names one of the four physical record collections.
type Set int

const (
	PersonalIncomes Set = iota
	PersonalExpenses
	BusinessIncomes
	BusinessExpenses
)

// Sets lists every set in declaration order.
var Sets = []Set{PersonalIncomes, PersonalExpenses, BusinessIncomes, BusinessExpenses}

func (s Set) Mode() core.AccountMode {
	if s == BusinessIncomes || s == BusinessExpenses {
		return core.Business
	}
	return core.Personal
}

func (s Set) Kind() core.Kind {
	if s == PersonalExpenses || s == BusinessExpenses {
		return core.Expense
	}
	return core.Income
}

func (s Set) String() string {
	switch s {
	case PersonalIncomes:
		return "personal_incomes"
	case PersonalExpenses:
		return "personal_expenses"
	case BusinessIncomes:
		return "business_incomes"
	case BusinessExpenses:
		return "business_expenses"
	default:
		return "unknown"
	}
}

// Row is the mode-agnostic shape every store returns. Mode and kind are
// implied by the set it came from.
type Row struct {
	ID           string
	OwnerID      string
	Name         string
	Amount       decimal.Decimal
	Date         core.Date
	Category     *string
	Description  string
	HighPriority bool
}

// Patch carries only the fields a caller supplied; nil means unchanged.
type Patch struct {
	Name         *string
	Amount       *decimal.Decimal
	Date         *core.Date
	Category     *string
	Description  *string
	HighPriority *bool
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Amount == nil && p.Date == nil &&
		p.Category == nil && p.Description == nil && p.HighPriority == nil
}

// Apply returns r with the patch's provided fields overwritten.
func (p Patch) Apply(r Row) Row {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Category != nil {
		c := *p.Category
		r.Category = &c
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.HighPriority != nil {
		r.HighPriority = *p.HighPriority
	}
	return r
}

// ErrRowNotFound is returned when no row matches (id, owner).
var ErrRowNotFound = errors.New("ledger: row not found")

// Store is the persistence contract the core consumes. Every operation is
// scoped by owner and is atomic per row.
type Store interface {
	QueryByOwnerAndMonth(ctx context.Context, set Set, ownerID string, year, month int) ([]Row, error)
	QueryByOwnerAndYear(ctx context.Context, set Set, ownerID string, year int) ([]Row, error)
	Insert(ctx context.Context, set Set, row Row) (Row, error)
	GetByID(ctx context.Context, set Set, id, ownerID string) (Row, error)
	UpdateByID(ctx context.Context, set Set, id, ownerID string, patch Patch) (Row, error)
	DeleteByID(ctx context.Context, set Set, id, ownerID string) (int64, error)
}

// ToTransaction stamps mode and kind from the set.
func (r Row) ToTransaction(set Set) core.Transaction {
	tx := core.Transaction{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Mode:         set.Mode(),
		Kind:         set.Kind(),
		Amount:       r.Amount,
		Date:         r.Date,
		Name:         r.Name,
		Description:  r.Description,
		HighPriority: r.HighPriority,
	}
	if set.Kind() == core.Expense && r.Category != nil {
		c := *r.Category
		tx.Category = &c
	}
	return tx
}

// RowFromTransaction drops mode and kind, which the target set encodes.
func RowFromTransaction(tx core.Transaction) Row {
	r := Row{
		ID:           tx.ID,
		OwnerID:      tx.OwnerID,
		Name:         tx.Name,
		Amount:       tx.Amount,
		Date:         tx.Date,
		Description:  tx.Description,
		HighPriority: tx.HighPriority,
	}
	if tx.Kind == core.Expense && tx.Category != nil {
		c := *tx.Category
		r.Category = &c
	}
	return r
}
