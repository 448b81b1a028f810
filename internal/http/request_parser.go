package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	appErrors "fintrack/internal/errors"
	"fintrack/internal/services"
)

const maxBodyBytes = 1 << 20

// MonthParams holds the period and ledger selector of a report request.
type MonthParams struct {
	Year  int
	Month int
	Mode  core.AccountMode
}

// ParseMonthParams reads year, month and type from a query string.
// A missing year or month defaults to now; a non-numeric one is an
// InvalidParameter. Range checks are left to the services.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
		Mode:  core.AccountMode(strings.TrimSpace(query.Get("type"))),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, appErrors.NewInvalidParameter("year", fmt.Sprintf("year %q is not a number", v))
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, appErrors.NewInvalidParameter("month", fmt.Sprintf("month %q is not a number", v))
		}
		params.Month = m
	}
	return params, nil
}

// flexString accepts a JSON string or number and keeps its literal text,
// so amounts reach the decimal parser without a float64 round trip.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a number or string, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

type transactionRequest struct {
	Kind         core.Kind        `json:"kind"`
	AccountMode  core.AccountMode `json:"accountMode"`
	Name         *string          `json:"name"`
	Amount       *flexString      `json:"amount"`
	Date         *string          `json:"date"`
	Category     *string          `json:"category"`
	Description  *string          `json:"description"`
	HighPriority *bool            `json:"highPriority"`
}

func decodeTransactionRequest(w http.ResponseWriter, r *http.Request) (transactionRequest, error) {
	var req transactionRequest
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return req, appErrors.NewInvalidParameter("body", "content type must be application/json")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, appErrors.NewInvalidParameter("body", "request body too large")
		}
		return req, appErrors.NewInvalidParameter("body", "malformed JSON body")
	}
	return req, nil
}

// kind and mode fall back to the query string so clients can address a
// ledger the same way for every verb.
func (t transactionRequest) kind(r *http.Request) core.Kind {
	if t.Kind != "" {
		return t.Kind
	}
	return core.Kind(r.URL.Query().Get("kind"))
}

func (t transactionRequest) mode(r *http.Request) core.AccountMode {
	if t.AccountMode != "" {
		return t.AccountMode
	}
	return core.AccountMode(r.URL.Query().Get("type"))
}

func (t transactionRequest) fields() services.Fields {
	f := services.Fields{
		Name:         sanitized(t.Name),
		Date:         t.Date,
		Category:     sanitized(t.Category),
		Description:  sanitized(t.Description),
		HighPriority: t.HighPriority,
	}
	if t.Amount != nil {
		s := string(*t.Amount)
		f.Amount = &s
	}
	return f
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
