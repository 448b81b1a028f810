// Package sheets defines the outbound port for dashboard snapshot exports.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/summary"
)

// Snapshot is one owner's dashboard for one month, taken at a point in time.
type Snapshot struct {
	OwnerID   string
	Mode      core.AccountMode
	Year      int
	Month     int
	Dashboard summary.Dashboard
	TakenAt   time.Time
}

// SnapshotWriter appends snapshots to an external sheet.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, s Snapshot) (rowRef string, err error)
}

// Header names the columns produced by Values.
var Header = []any{"Taken at", "Owner", "Account", "Period", "Income", "Expenses", "Balance", "Categories"}

// Values renders s as one sheet row. Amounts are plain decimal strings so
// USER_ENTERED input parses them as numbers.
func (s Snapshot) Values() []any {
	cats := make([]string, 0, len(s.Dashboard.Categories))
	for _, c := range s.Dashboard.Categories {
		cats = append(cats, fmt.Sprintf("%s %s (%d%%)", c.Name, c.Value.String(), c.Percentage))
	}
	t := s.Dashboard.Totals
	return []any{
		s.TakenAt.UTC().Format(time.RFC3339),
		s.OwnerID,
		string(s.Mode),
		fmt.Sprintf("%04d-%02d", s.Year, s.Month),
		t.TotalIncome.String(),
		t.TotalExpenses.String(),
		t.TotalBalance.String(),
		strings.Join(cats, "; "),
	}
}
