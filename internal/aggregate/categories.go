package aggregate

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// OtherCategory collects expenses recorded without a category.
const OtherCategory = "Other"

type CategorySlice struct {
	Name       string
	Value      decimal.Decimal
	Color      string
	Percentage int
}

func (c CategorySlice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name       string      `json:"name"`
		Value      json.Number `json:"value"`
		Color      string      `json:"color"`
		Percentage int         `json:"percentage"`
	}{c.Name, core.Number(c.Value), c.Color, c.Percentage})
}

var PersonalColors = map[string]string{
	"Food":           "#FF6384",
	"Housing":        "#36A2EB",
	"Transportation": "#FFCE56",
	"Utilities":      "#4BC0C0",
	"Entertainment":  "#9966FF",
	"Healthcare":     "#FF9F40",
	"Shopping":       "#C9CBCF",
	"Education":      "#7BC225",
	"Other":          "#B0B0B0",
}

var BusinessColors = map[string]string{
	"Office Supplies":       "#1F77B4",
	"Marketing":             "#FF7F0E",
	"Travel":                "#2CA02C",
	"Payroll":               "#D62728",
	"Software":              "#9467BD",
	"Utilities":             "#8C564B",
	"Rent":                  "#E377C2",
	"Professional Services": "#17BECF",
	"Other":                 "#7F7F7F",
}

// DefaultPalette colors categories missing from the mode's table, cycled by
// position in the sorted breakdown.
var DefaultPalette = []string{
	"#8884D8",
	"#82CA9D",
	"#FFC658",
	"#FF8042",
	"#0088FE",
	"#00C49F",
	"#FFBB28",
	"#A28CFF",
}

func colorTable(mode core.AccountMode) map[string]string {
	if mode == core.Business {
		return BusinessColors
	}
	return PersonalColors
}

// CategoryBreakdown groups expenses by category name, exactly as stored
// (case-sensitive, untrimmed). The result is sorted by value descending,
// ties keep first-seen order. Percentages round half up and are 0 when
// there is nothing to divide by.
func CategoryBreakdown(expenses []core.Transaction, mode core.AccountMode) []CategorySlice {
	var (
		order []string
		sums  = make(map[string]decimal.Decimal)
	)
	for _, tx := range expenses {
		name := OtherCategory
		if tx.Category != nil && *tx.Category != "" {
			name = *tx.Category
		}
		cur, seen := sums[name]
		if !seen {
			order = append(order, name)
			cur = decimal.Zero
		}
		sums[name] = cur.Add(tx.Amount)
	}

	out := make([]CategorySlice, 0, len(order))
	for _, name := range order {
		out = append(out, CategorySlice{Name: name, Value: sums[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})

	total := Total(expenses)
	table := colorTable(mode)
	for i := range out {
		out[i].Percentage = Percentage(out[i].Value, total)
		if c, ok := table[out[i].Name]; ok {
			out[i].Color = c
		} else {
			out[i].Color = DefaultPalette[i%len(DefaultPalette)]
		}
	}
	return out
}

// Percentage is round-half-up(part/total*100), or 0 when total is not positive.
func Percentage(part, total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	// DivRound compares the exact remainder, so the quotient is rounded once.
	return int(part.Mul(decimal.NewFromInt(100)).DivRound(total, 0).IntPart())
}
