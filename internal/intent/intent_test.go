package intent

import (
	"testing"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantKind    Kind
		wantAmount  string
		wantDesc    string
		wantSource  string
		wantCat     core.CategoryKey
		wantMissing bool
	}{
		{name: "expense with sigil", input: "Gasté $50 en comida", wantKind: Expense, wantAmount: "50", wantDesc: "comida", wantCat: core.Food},
		{name: "expense without accent", input: "gaste 30 en uber", wantKind: Expense, wantAmount: "30", wantDesc: "uber", wantCat: core.Transport},
		{name: "expense paid", input: "Pagué $12.50 por la renta", wantKind: Expense, wantAmount: "12.5", wantDesc: "la renta", wantCat: core.Housing},
		{name: "expense unknown category", input: "pague 9 de regalos", wantKind: Expense, wantAmount: "9", wantDesc: "regalos", wantCat: core.Other},
		{name: "income", input: "Recibí $500 de mi trabajo", wantKind: Income, wantAmount: "500", wantSource: "mi trabajo", wantDesc: "Ingreso de mi trabajo", wantCat: core.Other},
		{name: "income earned", input: "gané 120.75 por freelance", wantKind: Income, wantAmount: "120.75", wantSource: "freelance", wantDesc: "Ingreso de freelance", wantCat: core.Other},
		{name: "income without accent", input: "recibi 80 de mi mamá", wantKind: Income, wantAmount: "80", wantSource: "mi mamá", wantDesc: "Ingreso de mi mamá", wantCat: core.Other},
		{name: "budget query", input: "¿Cómo está mi presupuesto?", wantKind: BudgetQuery},
		{name: "budget via gastos", input: "muéstrame mis gastos", wantKind: BudgetQuery},
		{name: "goal with amount", input: "Quiero ahorrar $1000", wantKind: GoalCreate, wantAmount: "1000"},
		{name: "goal meta loose amount", input: "mi meta es juntar 250.5 para diciembre", wantKind: GoalCreate, wantAmount: "250.5"},
		{name: "goal missing amount", input: "quiero ahorrar", wantKind: GoalCreate, wantMissing: true},
		{name: "goal zero amount", input: "quiero ahorrar $0", wantKind: GoalCreate, wantMissing: true},
		{name: "analysis keyword is not a local intent", input: "analiza mis finanzas", wantKind: Unknown},
		{name: "advice question is help", input: "¿qué consejo me das?", wantKind: Help},
		{name: "analysis question is help", input: "¿que análisis puedes hacer?", wantKind: Help},
		{name: "help", input: "ayuda", wantKind: Help},
		{name: "help via que", input: "¿qué puedes hacer?", wantKind: Help},
		{name: "unknown", input: "hola", wantKind: Unknown},
		{name: "zero expense falls through", input: "gasté 0 en comida", wantKind: Unknown},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.input)
			if got.Kind != tt.wantKind {
				t.Fatalf("Parse(%q).Kind = %s, want %s", tt.input, got.Kind, tt.wantKind)
			}
			if tt.wantAmount != "" && !got.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("Amount = %s, want %s", got.Amount, tt.wantAmount)
			}
			if tt.wantDesc != "" && got.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", got.Description, tt.wantDesc)
			}
			if tt.wantSource != "" && got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
			if tt.wantCat != "" && got.Category != tt.wantCat {
				t.Errorf("Category = %s, want %s", got.Category, tt.wantCat)
			}
			if got.MissingAmount != tt.wantMissing {
				t.Errorf("MissingAmount = %v, want %v", got.MissingAmount, tt.wantMissing)
			}
		})
	}
}

func TestParseDecomposedAccents(t *testing.T) {
	// "gasté" and "recibí" spelled with combining acute accents.
	p := NewParser()
	if got := p.Parse("gaste\u0301 $20 en cine"); got.Kind != Expense || got.Category != core.Entertainment {
		t.Fatalf("decomposed expense parsed as %+v", got)
	}
	if got := p.Parse("recibi\u0301 $20 de bono"); got.Kind != Income {
		t.Fatalf("decomposed income parsed as %+v", got)
	}
}

func TestParsePriorityExpenseBeforeBudget(t *testing.T) {
	// Contains both an expense phrase and the "gastos" keyword.
	got := NewParser().Parse("gasté 15 en gastos de comida")
	if got.Kind != Expense {
		t.Fatalf("Kind = %s, want %s", got.Kind, Expense)
	}
}

func TestCustomRules(t *testing.T) {
	p := NewParserWithRules(keywordRule(Help, "socorro"))
	if got := p.Parse("SOCORRO"); got.Kind != Help {
		t.Fatalf("Kind = %s, want %s", got.Kind, Help)
	}
	if got := p.Parse("gasté 5 en comida"); got.Kind != Unknown {
		t.Fatalf("Kind = %s, want %s", got.Kind, Unknown)
	}
}

func TestAnalysisRules(t *testing.T) {
	p := NewParserWithRules(AnalysisRules()...)
	tests := []struct {
		input string
		want  Kind
	}{
		{"analiza mis finanzas", ExpenseAnalysis},
		{"¿qué consejo me das?", SavingsAdvice},
		{"ayuda", Help},
		{"gasté 10 en comida", Expense},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := p.Parse(tt.input).Kind; got != tt.want {
				t.Fatalf("Kind = %s, want %s", got, tt.want)
			}
		})
	}
	if len(DefaultRules()) != 5 {
		t.Fatal("AnalysisRules must not modify DefaultRules")
	}
}
