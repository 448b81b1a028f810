// Package aggregate reduces normalised transactions into the calendar,
// chart and category views. Every function is pure and total: empty input
// yields zeroed output, never an error.
package aggregate

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Bucket is the income and expense total for one day or month.
type Bucket struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (b Bucket) Balance() decimal.Decimal {
	return b.Income.Sub(b.Expense)
}

func (b Bucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Income  json.Number `json:"income"`
		Expense json.Number `json:"expense"`
	}{core.Number(b.Income), core.Number(b.Expense)})
}

// Total sums amounts exactly. An empty list totals zero.
func Total(txs []core.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	return sum
}

// DailyBuckets keys totals by day of month. Days with no activity are absent.
// Callers pass rows already scoped to a single month.
func DailyBuckets(incomes, expenses []core.Transaction) map[int]Bucket {
	in := sumByDay(incomes)
	out := sumByDay(expenses)

	buckets := make(map[int]Bucket, len(in)+len(out))
	for day, v := range in {
		buckets[day] = Bucket{Income: v, Expense: decimal.Zero}
	}
	for day, v := range out {
		b, ok := buckets[day]
		if !ok {
			b.Income = decimal.Zero
		}
		b.Expense = v
		buckets[day] = b
	}
	return buckets
}

// MonthlyBuckets always returns twelve entries, index 0 = January.
func MonthlyBuckets(incomes, expenses []core.Transaction) [12]Bucket {
	var months [12]Bucket
	for i := range months {
		months[i] = Bucket{Income: decimal.Zero, Expense: decimal.Zero}
	}
	for _, tx := range incomes {
		i := tx.Date.Month() - 1
		months[i].Income = months[i].Income.Add(tx.Amount)
	}
	for _, tx := range expenses {
		i := tx.Date.Month() - 1
		months[i].Expense = months[i].Expense.Add(tx.Amount)
	}
	return months
}

// RunningBalance accumulates income minus expense month by month.
func RunningBalance(months [12]Bucket) [12]decimal.Decimal {
	var out [12]decimal.Decimal
	acc := decimal.Zero
	for i, b := range months {
		acc = acc.Add(b.Balance())
		out[i] = acc
	}
	return out
}

func sumByDay(txs []core.Transaction) map[int]decimal.Decimal {
	sums := make(map[int]decimal.Decimal)
	for _, tx := range txs {
		day := tx.Date.Day()
		cur, ok := sums[day]
		if !ok {
			cur = decimal.Zero
		}
		sums[day] = cur.Add(tx.Amount)
	}
	return sums
}
