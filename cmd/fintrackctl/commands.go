package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/summary"
	"fintrack/internal/worker"
)

// Globals defines flags shared by every command.
type Globals struct {
	User string `help:"Owner id of the ledger." env:"FINTRACK_USER" required:""`
	Type string `help:"Account type (personal or business)." enum:"personal,business" default:"personal" env:"FINTRACK_ACCOUNT_TYPE"`
}

func (g *Globals) principal() *auth.Principal {
	return &auth.Principal{ID: g.User, AccountType: core.AccountMode(g.Type)}
}

func (g *Globals) mode() core.AccountMode {
	return core.AccountMode(g.Type)
}

type Commands struct {
	Globals

	Monthly   MonthlyCmd   `cmd:"" help:"Print the per-day income and expense of a month."`
	Yearly    YearlyCmd    `cmd:"" help:"Print the per-month income and expense of a year."`
	Balance   BalanceCmd   `cmd:"" help:"Print the running balance at the end of each month."`
	Dashboard DashboardCmd `cmd:"" help:"Print totals and the category breakdown of a month."`
	Add       AddCmd       `cmd:"" help:"Record an income or expense."`
	Export    ExportCmd    `cmd:"" help:"Print a snapshot row for every month of a year."`
}

// app carries the services a command runs against.
type app struct {
	summary      *summary.Service
	transactions *services.TransactionService
	out          io.Writer
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type PeriodFlags struct {
	Year  int `help:"Calendar year." default:"${year}"`
	Month int `help:"Calendar month (1-12)." default:"${month}"`
}

type MonthlyCmd struct {
	PeriodFlags
}

func (cmd *MonthlyCmd) Run(g *Globals, a *app) error {
	days, err := a.summary.GetMonthlySummary(context.Background(), g.principal(), g.mode(), cmd.Year, cmd.Month)
	if err != nil {
		return err
	}
	return a.print(days)
}

type YearlyCmd struct {
	Year int `help:"Calendar year." default:"${year}"`
}

func (cmd *YearlyCmd) Run(g *Globals, a *app) error {
	months, err := a.summary.GetYearlySummary(context.Background(), g.principal(), g.mode(), cmd.Year)
	if err != nil {
		return err
	}
	return a.print(months)
}

type BalanceCmd struct {
	Year int `help:"Calendar year." default:"${year}"`
}

func (cmd *BalanceCmd) Run(g *Globals, a *app) error {
	balances, err := a.summary.GetRunningBalance(context.Background(), g.principal(), g.mode(), cmd.Year)
	if err != nil {
		return err
	}
	out := make([]json.Number, len(balances))
	for i, b := range balances {
		out[i] = core.Number(b)
	}
	return a.print(out)
}

type DashboardCmd struct {
	PeriodFlags
}

func (cmd *DashboardCmd) Run(g *Globals, a *app) error {
	dash, err := a.summary.GetDashboard(context.Background(), g.principal(), g.mode(), cmd.Year, cmd.Month)
	if err != nil {
		return err
	}
	return a.print(dash)
}

type AddCmd struct {
	Kind         string `arg:"" help:"income or expense." enum:"income,expense"`
	Name         string `arg:"" help:"Short name of the entry."`
	Amount       string `arg:"" help:"Positive amount, dot or comma decimal separator."`
	Date         string `help:"Date as YYYY-MM-DD." default:"${today}"`
	Category     string `help:"Expense category." short:"c"`
	Description  string `help:"Free text note." short:"d"`
	HighPriority bool   `help:"Flag an expense as high priority."`
}

func (cmd *AddCmd) Run(g *Globals, a *app) error {
	f := services.Fields{
		Name:   &cmd.Name,
		Amount: &cmd.Amount,
		Date:   &cmd.Date,
	}
	if cmd.Category != "" {
		f.Category = &cmd.Category
	}
	if cmd.Description != "" {
		f.Description = &cmd.Description
	}
	if cmd.HighPriority {
		f.HighPriority = &cmd.HighPriority
	}

	tx, err := a.transactions.CreateTransaction(context.Background(), g.principal(), core.Kind(cmd.Kind), g.mode(), f)
	if err != nil {
		return err
	}
	return a.print(tx)
}

type ExportCmd struct {
	Year int `help:"Calendar year." default:"${year}"`
}

// Run renders the rows the export worker would write, without a spreadsheet.
func (cmd *ExportCmd) Run(g *Globals, a *app) error {
	writer := memory.New()
	n, err := worker.NewSnapshotWorker(a.summary, writer, nil).ExportYear(context.Background(), g.User, g.mode(), cmd.Year)
	if err != nil {
		return fmt.Errorf("export stopped after %d months: %w", n, err)
	}
	rows := make([][]any, 0, n)
	for _, s := range writer.Snapshots() {
		rows = append(rows, s.Values())
	}
	return a.print(rows)
}

// defaultVars feeds the ${year}, ${month} and ${today} placeholders.
func defaultVars(now time.Time) map[string]string {
	return map[string]string{
		"year":  fmt.Sprint(now.Year()),
		"month": fmt.Sprint(int(now.Month())),
		"today": now.Format(core.DateLayout),
	}
}
