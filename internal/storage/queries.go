package storage

import (
	"fintrack/internal/ledger"
)

// setQueries holds the static statements for one ledger set. Every select
// projects the same column order: id, user_id, name, amount, date, category,
// description, high_priority.
type setQueries struct {
	byMonth string
	byYear  string
	byID    string
	insert  string
	update  string
	delete  string

	// insertArgs and updateArgs bind a row or patch to the set's own columns.
	insertArgs func(r ledger.Row) []any
	updateArgs func(p ledger.Patch, id, ownerID string) []any
}

var queries = map[ledger.Set]setQueries{
	ledger.PersonalIncomes: {
		byMonth: `SELECT id, user_id, name, amount, date, NULL AS category, description, 0 AS high_priority
FROM personal_incomes
WHERE user_id = ? AND strftime('%Y', date) = ? AND strftime('%m', date) = ?
ORDER BY date, rowid`,
		byYear: `SELECT id, user_id, name, amount, date, NULL AS category, description, 0 AS high_priority
FROM personal_incomes
WHERE user_id = ? AND strftime('%Y', date) = ?
ORDER BY date, rowid`,
		byID: `SELECT id, user_id, name, amount, date, NULL AS category, description, 0 AS high_priority
FROM personal_incomes
WHERE id = ? AND user_id = ?`,
		insert: `INSERT INTO personal_incomes (id, user_id, name, amount, date, description)
VALUES (?, ?, ?, ?, ?, ?)`,
		update: `UPDATE personal_incomes
SET name = COALESCE(?, name),
    amount = COALESCE(?, amount),
    date = COALESCE(?, date),
    description = COALESCE(?, description)
WHERE id = ? AND user_id = ?`,
		delete:     `DELETE FROM personal_incomes WHERE id = ? AND user_id = ?`,
		insertArgs: incomeInsertArgs,
		updateArgs: incomeUpdateArgs,
	},
	ledger.PersonalExpenses: {
		byMonth: `SELECT id, user_id, name, amount, date, category, description, high_priority
FROM personal_expenses
WHERE user_id = ? AND strftime('%Y', date) = ? AND strftime('%m', date) = ?
ORDER BY date, rowid`,
		byYear: `SELECT id, user_id, name, amount, date, category, description, high_priority
FROM personal_expenses
WHERE user_id = ? AND strftime('%Y', date) = ?
ORDER BY date, rowid`,
		byID: `SELECT id, user_id, name, amount, date, category, description, high_priority
FROM personal_expenses
WHERE id = ? AND user_id = ?`,
		insert: `INSERT INTO personal_expenses (id, user_id, name, amount, date, category, description, high_priority)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		update: `UPDATE personal_expenses
SET name = COALESCE(?, name),
    amount = COALESCE(?, amount),
    date = COALESCE(?, date),
    category = COALESCE(?, category),
    description = COALESCE(?, description),
    high_priority = COALESCE(?, high_priority)
WHERE id = ? AND user_id = ?`,
		delete:     `DELETE FROM personal_expenses WHERE id = ? AND user_id = ?`,
		insertArgs: expenseInsertArgs,
		updateArgs: expenseUpdateArgs,
	},
	ledger.BusinessIncomes: {
		byMonth: `SELECT id, user_id, source, revenue, date, NULL AS category, notes, 0 AS high_priority
FROM business_incomes
WHERE user_id = ? AND strftime('%Y', date) = ? AND strftime('%m', date) = ?
ORDER BY date, rowid`,
		byYear: `SELECT id, user_id, source, revenue, date, NULL AS category, notes, 0 AS high_priority
FROM business_incomes
WHERE user_id = ? AND strftime('%Y', date) = ?
ORDER BY date, rowid`,
		byID: `SELECT id, user_id, source, revenue, date, NULL AS category, notes, 0 AS high_priority
FROM business_incomes
WHERE id = ? AND user_id = ?`,
		insert: `INSERT INTO business_incomes (id, user_id, source, revenue, date, notes)
VALUES (?, ?, ?, ?, ?, ?)`,
		update: `UPDATE business_incomes
SET source = COALESCE(?, source),
    revenue = COALESCE(?, revenue),
    date = COALESCE(?, date),
    notes = COALESCE(?, notes)
WHERE id = ? AND user_id = ?`,
		delete:     `DELETE FROM business_incomes WHERE id = ? AND user_id = ?`,
		insertArgs: incomeInsertArgs,
		updateArgs: incomeUpdateArgs,
	},
	ledger.BusinessExpenses: {
		byMonth: `SELECT id, user_id, vendor, cost, date, expense_category, notes, urgent
FROM business_expenses
WHERE user_id = ? AND strftime('%Y', date) = ? AND strftime('%m', date) = ?
ORDER BY date, rowid`,
		byYear: `SELECT id, user_id, vendor, cost, date, expense_category, notes, urgent
FROM business_expenses
WHERE user_id = ? AND strftime('%Y', date) = ?
ORDER BY date, rowid`,
		byID: `SELECT id, user_id, vendor, cost, date, expense_category, notes, urgent
FROM business_expenses
WHERE id = ? AND user_id = ?`,
		insert: `INSERT INTO business_expenses (id, user_id, vendor, cost, date, expense_category, notes, urgent)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		update: `UPDATE business_expenses
SET vendor = COALESCE(?, vendor),
    cost = COALESCE(?, cost),
    date = COALESCE(?, date),
    expense_category = COALESCE(?, expense_category),
    notes = COALESCE(?, notes),
    urgent = COALESCE(?, urgent)
WHERE id = ? AND user_id = ?`,
		delete:     `DELETE FROM business_expenses WHERE id = ? AND user_id = ?`,
		insertArgs: expenseInsertArgs,
		updateArgs: expenseUpdateArgs,
	},
}

func incomeInsertArgs(r ledger.Row) []any {
	return []any{r.ID, r.OwnerID, r.Name, r.Amount.String(), r.Date.String(), r.Description}
}

func expenseInsertArgs(r ledger.Row) []any {
	return []any{r.ID, r.OwnerID, r.Name, r.Amount.String(), r.Date.String(), nullable(r.Category), r.Description, r.HighPriority}
}

func incomeUpdateArgs(p ledger.Patch, id, ownerID string) []any {
	return []any{nullable(p.Name), amountArg(p), dateArg(p), nullable(p.Description), id, ownerID}
}

func expenseUpdateArgs(p ledger.Patch, id, ownerID string) []any {
	var hp any
	if p.HighPriority != nil {
		hp = *p.HighPriority
	}
	return []any{nullable(p.Name), amountArg(p), dateArg(p), nullable(p.Category), nullable(p.Description), hp, id, ownerID}
}

// nullable binds nil pointers as SQL NULL so COALESCE keeps the stored value.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func amountArg(p ledger.Patch) any {
	if p.Amount == nil {
		return nil
	}
	return p.Amount.String()
}

func dateArg(p ledger.Patch) any {
	if p.Date == nil {
		return nil
	}
	return p.Date.String()
}
