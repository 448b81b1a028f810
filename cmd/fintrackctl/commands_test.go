package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"

	"fintrack/internal/ledger"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
	"fintrack/internal/summary"
)

func newTestApp() (*app, *bytes.Buffer) {
	store := memory.New()
	var buf bytes.Buffer
	return &app{
		summary:      summary.NewService(ledger.NewAccessor(store)),
		transactions: services.NewTransactionService(store, nil),
		out:          &buf,
	}, &buf
}

func TestAddThenDashboard(t *testing.T) {
	a, buf := newTestApp()
	g := &Globals{User: "u1", Type: "personal"}

	add := []AddCmd{
		{Kind: "income", Name: "Salary", Amount: "100", Date: "2025-03-05"},
		{Kind: "expense", Name: "Groceries", Amount: "40", Date: "2025-03-05", Category: "Food"},
		{Kind: "expense", Name: "Lunch", Amount: "20", Date: "2025-03-07", Category: "Food"},
	}
	for i := range add {
		assert.NoError(t, add[i].Run(g, a))
	}

	buf.Reset()
	cmd := DashboardCmd{PeriodFlags{Year: 2025, Month: 3}}
	assert.NoError(t, cmd.Run(g, a))
	out := buf.String()
	assert.Contains(t, out, `"totalBalance": 40`)
	assert.Contains(t, out, `"name": "Food"`)
	assert.Contains(t, out, `"percentage": 100`)
}

func TestAddRejectsNegativeAmount(t *testing.T) {
	a, _ := newTestApp()
	cmd := AddCmd{Kind: "expense", Name: "x", Amount: "-5", Date: "2025-03-05", Category: "Food"}
	err := cmd.Run(&Globals{User: "u1", Type: "personal"}, a)
	assert.Error(t, err)
}

func TestExportPrintsTwelveRows(t *testing.T) {
	a, buf := newTestApp()
	g := &Globals{User: "u1", Type: "business"}
	add := AddCmd{Kind: "income", Name: "Invoice", Amount: "250", Date: "2025-06-30"}
	assert.NoError(t, add.Run(g, a))

	buf.Reset()
	assert.NoError(t, (&ExportCmd{Year: 2025}).Run(g, a))
	assert.Equal(t, 12, strings.Count(buf.String(), `"u1"`))
	assert.Contains(t, buf.String(), `"2025-06"`)
}

func TestParseDefaults(t *testing.T) {
	var c struct {
		Commands
	}
	vars := kong.Vars{}
	for k, v := range defaultVars(time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)) {
		vars[k] = v
	}
	parser, err := kong.New(&c, vars, kong.Bind(&c.Globals))
	assert.NoError(t, err)

	_, err = parser.Parse([]string{"--user", "u1", "dashboard"})
	assert.NoError(t, err)
	assert.Equal(t, 2025, c.Dashboard.Year)
	assert.Equal(t, 3, c.Dashboard.Month)
	assert.Equal(t, "personal", c.Type)

	_, err = parser.Parse([]string{"--user", "u1", "add", "expense", "Lunch", "12,50", "-c", "Food"})
	assert.NoError(t, err)
	assert.Equal(t, "2025-03-08", c.Add.Date)
	assert.Equal(t, "12,50", c.Add.Amount)

	_, err = parser.Parse([]string{"--user", "u1", "--type", "corporate", "yearly"})
	assert.Error(t, err)
}
