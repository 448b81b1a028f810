package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Personal AccountMode = "personal"
	Business AccountMode = "business"

	Income  Kind = "income"
	Expense Kind = "expense"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Reports and listings accept years in [MinYear, MaxYear].
const (
	MinYear = 1900
	MaxYear = 9999
)

type (
	// AccountMode selects which ledger (and category vocabulary) a record lives in.
	AccountMode string

	Kind string

	// Date is a calendar date at UTC midnight. Time of day carries no meaning.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID           string
		OwnerID      string
		Mode         AccountMode
		Kind         Kind
		Amount       decimal.Decimal
		Date         Date
		Category     *string // expenses only
		Name         string
		Description  string
		HighPriority bool // expenses only
	}
)

var (
	ErrInvalidAmount   = errors.New("amount must be a number greater than zero")
	ErrEmptyName       = errors.New("name is required")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrMissingDate     = errors.New("date is required")
	ErrInvalidDate     = errors.New("date must be formatted as YYYY-MM-DD")
	ErrMissingCategory = errors.New("category is required for expenses")
	ErrInvalidKind     = errors.New("kind must be income or expense")
	ErrInvalidMode     = errors.New("account mode must be personal or business")
)

func ParseAccountMode(s string) (AccountMode, error) {
	m := AccountMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", ErrInvalidMode
	}
	return m, nil
}

func (m AccountMode) IsValid() bool {
	switch m {
	case Personal, Business:
		return true
	default:
		return false
	}
}

func (m AccountMode) String() string {
	return string(m)
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string {
	return string(k)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// InMonth reports calendar year+month equality. Period membership is decided
// here, never by range arithmetic on timestamps.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CategoryName returns the expense category or "" when unset.
func (t Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// Validate checks the record in rule order and returns the first violation.
func (t Transaction) Validate() error {
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if !t.Mode.IsValid() {
		return ErrInvalidMode
	}
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if len(t.Name) > 200 {
		return ErrNameTooLong
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if t.Kind == Expense && (t.Category == nil || *t.Category == "") {
		return ErrMissingCategory
	}
	return nil
}

// MarshalJSON renders amounts as JSON numbers rather than decimal's default quoted strings.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := struct {
		ID           string      `json:"id"`
		Kind         Kind        `json:"kind"`
		AccountMode  AccountMode `json:"accountMode"`
		Name         string      `json:"name"`
		Amount       json.Number `json:"amount"`
		Date         Date        `json:"date"`
		Category     *string     `json:"category"`
		Description  string      `json:"description,omitempty"`
		HighPriority bool        `json:"highPriority,omitempty"`
	}{
		ID:           t.ID,
		Kind:         t.Kind,
		AccountMode:  t.Mode,
		Name:         t.Name,
		Amount:       Number(t.Amount),
		Date:         t.Date,
		Category:     t.Category,
		Description:  t.Description,
		HighPriority: t.HighPriority,
	}
	return json.Marshal(out)
}
