package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
)

// Stats aggregates the transactions of one calendar month.
type Stats struct {
	Year               int                                  `json:"year"`
	Month              time.Month                           `json:"month"`
	TotalExpenses      decimal.Decimal                      `json:"totalExpenses"`
	TotalIncome        decimal.Decimal                      `json:"totalIncome"`
	Savings            decimal.Decimal                      `json:"savings"`
	ExpensesByCategory map[core.CategoryKey]decimal.Decimal `json:"expensesByCategory"`
	Transactions       []core.Transaction                   `json:"transactions"`
}

// CategoryStat is one row of the expense breakdown.
type CategoryStat struct {
	Category   core.CategoryKey `json:"category"`
	Amount     decimal.Decimal  `json:"amount"`
	Percentage decimal.Decimal  `json:"percentage"`
	Name       string           `json:"name"`
	Color      string           `json:"color"`
	Icon       string           `json:"icon"`
}

// BudgetLevel classifies the month's balance.
type BudgetLevel string

const (
	BudgetGood    BudgetLevel = "good"
	BudgetWarning BudgetLevel = "warning"
	BudgetNeutral BudgetLevel = "neutral"
)

// Budget is the dashboard balance card.
type Budget struct {
	MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
	Spent         decimal.Decimal `json:"spent"`
	Remaining     decimal.Decimal `json:"remaining"`
	Status        BudgetLevel     `json:"status"`
	Message       string          `json:"message"`
}

// DayTotals is one point of the weekly series.
type DayTotals struct {
	Date     time.Time       `json:"date"`
	Label    string          `json:"label"`
	Expenses decimal.Decimal `json:"expenses"`
	Income   decimal.Decimal `json:"income"`
}

var weekdayLabels = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}

// Compute derives Stats for year/month from txs, interpreting dates in loc.
func Compute(txs []core.Transaction, year int, month time.Month, loc *time.Location) Stats {
	s := Stats{
		Year:               year,
		Month:              month,
		TotalExpenses:      decimal.Zero,
		TotalIncome:        decimal.Zero,
		ExpensesByCategory: make(map[core.CategoryKey]decimal.Decimal),
		Transactions:       []core.Transaction{},
	}
	for _, tx := range txs {
		d := tx.Date.In(loc)
		if d.Year() != year || d.Month() != month {
			continue
		}
		s.Transactions = append(s.Transactions, tx)
		switch tx.Type {
		case core.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
			s.ExpensesByCategory[tx.Category] = s.ExpensesByCategory[tx.Category].Add(tx.Amount)
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		}
	}
	s.Savings = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// Breakdown returns the per-category share of expenses, largest first with
// ties ordered by key. It is empty when the month has no expenses.
func Breakdown(s Stats) []CategoryStat {
	out := []CategoryStat{}
	if !s.TotalExpenses.IsPositive() {
		return out
	}
	for key, amount := range s.ExpensesByCategory {
		info := key.Info()
		out = append(out, CategoryStat{
			Category:   key,
			Amount:     amount,
			Percentage: core.Percent(amount, s.TotalExpenses),
			Name:       info.Name,
			Color:      info.Color,
			Icon:       info.Icon,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BudgetOf classifies the month balance as income minus expenses.
func BudgetOf(s Stats, monthlyBudget decimal.Decimal) Budget {
	remaining := s.TotalIncome.Sub(s.TotalExpenses)
	b := Budget{
		MonthlyBudget: monthlyBudget,
		Spent:         s.TotalExpenses,
		Remaining:     remaining,
	}
	switch remaining.Sign() {
	case 1:
		b.Status = BudgetGood
		b.Message = "Te quedan $" + core.FormatAmount(remaining) + " disponibles"
	case -1:
		b.Status = BudgetWarning
		b.Message = "Has superado tu presupuesto en $" + core.FormatAmount(remaining.Abs())
	default:
		b.Status = BudgetNeutral
		b.Message = "Has gastado exactamente tu presupuesto"
	}
	return b
}

// Weekly returns per-day totals for the seven days ending on now, oldest first.
func Weekly(txs []core.Transaction, now time.Time) []DayTotals {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	days := make([]DayTotals, 7)
	index := make(map[string]int, len(days))
	for i := range days {
		d := today.AddDate(0, 0, i-6)
		days[i] = DayTotals{
			Date:     d,
			Label:    weekdayLabels[d.Weekday()],
			Expenses: decimal.Zero,
			Income:   decimal.Zero,
		}
		index[d.Format(time.DateOnly)] = i
	}

	for _, tx := range txs {
		idx, ok := index[tx.Date.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		switch tx.Type {
		case core.Expense:
			days[idx].Expenses = days[idx].Expenses.Add(tx.Amount)
		case core.Income:
			days[idx].Income = days[idx].Income.Add(tx.Amount)
		}
	}
	return days
}
