package compose

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/intent"
	"finbot/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshotOf(txs ...core.Transaction) Snapshot {
	st := ledger.Compute(txs, 2024, time.March, time.UTC)
	return Snapshot{Stats: st, CategoryStats: ledger.Breakdown(st), MonthlyBudget: dec("2000")}
}

func tx(typ core.TransactionType, amount string, cat core.CategoryKey) core.Transaction {
	return core.Transaction{Type: typ, Amount: dec(amount), Category: cat, Date: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)}
}

func TestComposeExpense(t *testing.T) {
	c := NewDefault()
	p := intent.NewParser()

	tests := []struct {
		name   string
		input  string
		snap   Snapshot
		amount string
		want   string
	}{
		{
			name:   "first expense of the month has no follow-up",
			input:  "Gasté $50 en comida",
			snap:   snapshotOf(),
			amount: "50",
			want:   "Registré tu gasto de $50 en Comida.",
		},
		{
			name:   "share measured against prior expenses",
			input:  "Gasté $50 en comida",
			snap:   snapshotOf(tx(core.Expense, "50", core.Transport)),
			amount: "50",
			want:   "Registré tu gasto de $50 en Comida. Este gasto representa el 100.0% de tus gastos mensuales. ¿Te gustaría que analicemos cómo optimizar esta categoría?",
		},
		{
			name:   "above alert only before adding the new expense",
			input:  "gasté $70 en comida",
			snap:   snapshotOf(tx(core.Expense, "200", core.Housing)),
			amount: "70",
			want:   "Registré tu gasto de $70 en Comida. Este gasto representa el 35.0% de tus gastos mensuales. ¿Te gustaría que analicemos cómo optimizar esta categoría?",
		},
		{
			name:   "small share asks for review",
			input:  "Gasté $50 en comida",
			snap:   snapshotOf(tx(core.Expense, "950", core.Housing)),
			amount: "50",
			want:   "Registré tu gasto de $50 en Comida. ¿Quieres que revisemos tu presupuesto para esta categoría?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.Compose(p.Parse(tt.input), tt.snap)
			if r.Text != tt.want {
				t.Fatalf("text:\n got %q\nwant %q", r.Text, tt.want)
			}
			if r.Action != ActionAddTransaction || r.Transaction == nil {
				t.Fatalf("expected ADD_TRANSACTION, got %+v", r)
			}
			d := r.Transaction
			if d.Type != core.Expense || !d.Amount.Equal(dec(tt.amount)) || d.Category != core.Food || d.Description != "comida" {
				t.Fatalf("unexpected draft %+v", d)
			}
		})
	}
}

func TestComposeIncome(t *testing.T) {
	c := NewDefault()
	p := intent.NewParser()

	tests := []struct {
		name string
		snap Snapshot
		tail string
	}{
		{"first income", snapshotOf(), ""},
		{"healthy rate", snapshotOf(tx(core.Income, "500", core.Other), tx(core.Expense, "100", core.Food)), "¡Muy bien! Estás ahorrando el 80.0% de tus ingresos. ¿Quieres establecer una meta de ahorro?"},
		{"negative rate", snapshotOf(tx(core.Income, "100", core.Other), tx(core.Expense, "2000", core.Food)), "Noto que tus gastos superan tus ingresos. ¿Te gustaría que creemos un plan para equilibrar tus finanzas?"},
		{"low rate ignores the new income", snapshotOf(tx(core.Income, "1000", core.Other), tx(core.Expense, "900", core.Food)), "¿Quieres que analicemos cómo aumentar tu tasa de ahorro?"},
		{"negative before the new income", snapshotOf(tx(core.Income, "500", core.Other), tx(core.Expense, "900", core.Food)), "Noto que tus gastos superan tus ingresos. ¿Te gustaría que creemos un plan para equilibrar tus finanzas?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.Compose(p.Parse("Recibí $500 de mi trabajo"), tt.snap)
			want := strings.TrimSpace("¡Excelente! Registré tu ingreso de $500 de mi trabajo. " + tt.tail)
			if r.Text != want {
				t.Fatalf("text:\n got %q\nwant %q", r.Text, want)
			}
			d := r.Transaction
			if r.Action != ActionAddTransaction || d == nil || d.Type != core.Income || d.Category != core.Other || !strings.Contains(d.Description, "trabajo") {
				t.Fatalf("unexpected reply %+v", r)
			}
		})
	}
}

func TestComposeBudget(t *testing.T) {
	c := NewDefault()
	q := intent.Result{Kind: intent.BudgetQuery}

	if r := c.Compose(q, snapshotOf()); r.Text != NoExpensesText || r.Action != ActionNone {
		t.Fatalf("empty month reply = %+v", r)
	}

	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{
			name: "no income",
			snap: snapshotOf(tx(core.Expense, "30", core.Food), tx(core.Expense, "10", core.Transport)),
			want: "Este mes has gastado $40 en total. Tu mayor gasto es en Comida ($30, 75.0%).",
		},
		{
			name: "remaining",
			snap: snapshotOf(tx(core.Expense, "30", core.Food), tx(core.Income, "100", core.Other)),
			want: "Este mes has gastado $30 en total. Tu mayor gasto es en Comida ($30, 100.0%). Te quedan $70 disponibles este mes.",
		},
		{
			name: "exceeded",
			snap: snapshotOf(tx(core.Expense, "130", core.Housing), tx(core.Income, "100", core.Other)),
			want: "Este mes has gastado $130 en total. Tu mayor gasto es en Vivienda ($130, 100.0%). Has superado tu presupuesto en $30. ¿Quieres que creemos un plan de recuperación?",
		},
		{
			name: "exact",
			snap: snapshotOf(tx(core.Expense, "100", core.Food), tx(core.Income, "100", core.Other)),
			want: "Este mes has gastado $100 en total. Tu mayor gasto es en Comida ($100, 100.0%). Has gastado exactamente tu presupuesto.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := c.Compose(q, tt.snap); r.Text != tt.want {
				t.Fatalf("text:\n got %q\nwant %q", r.Text, tt.want)
			}
		})
	}
}

func TestComposeGoal(t *testing.T) {
	c := NewDefault()
	p := intent.NewParser()

	r := c.Compose(p.Parse("Quiero ahorrar $1000"), snapshotOf())
	if r.Action != ActionAddGoal || r.Goal == nil {
		t.Fatalf("expected ADD_GOAL, got %+v", r)
	}
	if r.Goal.Title != "Ahorrar $1000" || !r.Goal.TargetAmount.Equal(dec("1000")) || r.Goal.Description != "Meta de ahorro personal" {
		t.Fatalf("unexpected goal draft %+v", r.Goal)
	}
	if !strings.HasPrefix(r.Text, "¡Perfecto! Creé una meta para ahorrar $1000.") {
		t.Fatalf("unexpected text %q", r.Text)
	}

	r = c.Compose(intent.Result{Kind: intent.GoalCreate, Amount: dec("300"), Topic: "vacaciones"}, snapshotOf())
	if r.Goal == nil || r.Goal.Title != "Ahorrar $300 para vacaciones" || !strings.Contains(r.Text, "para vacaciones") {
		t.Fatalf("topic not applied: %+v", r)
	}

	r = c.Compose(p.Parse("quiero ahorrar"), snapshotOf())
	if r.Text != GoalAmountQuestion || r.Action != ActionNone || r.Goal != nil {
		t.Fatalf("missing amount reply = %+v", r)
	}
}

func TestComposeMissingTransactionAmount(t *testing.T) {
	c := NewDefault()
	if r := c.Compose(intent.Result{Kind: intent.Expense, MissingAmount: true}, snapshotOf()); r.Text != ExpenseAmountQuestion || r.Action != ActionNone {
		t.Fatalf("expense without amount = %+v", r)
	}
	if r := c.Compose(intent.Result{Kind: intent.Income, MissingAmount: true}, snapshotOf()); r.Text != IncomeAmountQuestion || r.Action != ActionNone {
		t.Fatalf("income without amount = %+v", r)
	}
}

func TestComposeAnalysisAndAdvice(t *testing.T) {
	c := NewDefault()
	tests := []struct {
		name     string
		kind     intent.Kind
		income   string
		expenses string
		contains string
	}{
		{"analysis high", intent.ExpenseAnalysis, "100", "95", "Tus gastos representan el 95.0% de tus ingresos"},
		{"analysis moderate", intent.ExpenseAnalysis, "100", "75", "nivel moderado"},
		{"analysis low", intent.ExpenseAnalysis, "100", "20", "Excelente control de gastos"},
		{"advice low", intent.SavingsAdvice, "100", "95", "Aumentar tu tasa de ahorro al 10%"},
		{"advice mid", intent.SavingsAdvice, "100", "85", "Llegar al 20% de ahorro"},
		{"advice high", intent.SavingsAdvice, "100", "50", "Estás ahorrando el 50.0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotOf(tx(core.Income, tt.income, core.Other), tx(core.Expense, tt.expenses, core.Food))
			r := c.Compose(intent.Result{Kind: tt.kind}, snap)
			if !strings.Contains(r.Text, tt.contains) || r.Action != ActionNone {
				t.Fatalf("reply %q does not contain %q", r.Text, tt.contains)
			}
		})
	}
}

func TestComposeFixedTemplates(t *testing.T) {
	c := NewDefault()
	if r := c.Compose(intent.Result{Kind: intent.Help}, snapshotOf()); r.Text != HelpText {
		t.Fatalf("help = %q", r.Text)
	}
	if r := c.Compose(intent.Result{Kind: intent.Unknown}, snapshotOf()); r.Text != UnknownText {
		t.Fatalf("unknown = %q", r.Text)
	}
}

func TestCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.CategoryShareAlert = decimal.NewFromInt(60)
	c := New(th)
	r := c.Compose(intent.NewParser().Parse("gasté 50 en comida"), snapshotOf(tx(core.Expense, "100", core.Food)))
	if strings.Contains(r.Text, "representa") {
		t.Fatalf("50%% share should not alert with a 60%% threshold: %q", r.Text)
	}
}
