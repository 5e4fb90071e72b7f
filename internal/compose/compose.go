// Package compose turns a classified utterance and the month's statistics
// into the assistant's reply and the ledger action it implies.
package compose

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/intent"
	"finbot/internal/ledger"
)

// Action is the ledger mutation a reply asks the session to apply.
type Action string

const (
	ActionNone           Action = "NONE"
	ActionAddTransaction Action = "ADD_TRANSACTION"
	ActionAddGoal        Action = "ADD_GOAL"
)

// TransactionDraft is a transaction awaiting an id and date from the ledger.
type TransactionDraft struct {
	Type        core.TransactionType `json:"type"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description"`
	Category    core.CategoryKey     `json:"category"`
}

// GoalDraft is a goal awaiting an id from the ledger.
type GoalDraft struct {
	Title        string          `json:"title"`
	TargetAmount decimal.Decimal `json:"targetAmount"`
	Description  string          `json:"description"`
}

type Reply struct {
	Text        string            `json:"text"`
	Action      Action            `json:"action"`
	Transaction *TransactionDraft `json:"transaction,omitempty"`
	Goal        *GoalDraft        `json:"goal,omitempty"`
}

// Snapshot is the ledger state a reply is composed against. Stats are taken
// before the reply's own action is applied.
type Snapshot struct {
	Stats         ledger.Stats
	CategoryStats []ledger.CategoryStat
	MonthlyBudget decimal.Decimal
}

// Thresholds are percentages that pick follow-up sentences.
type Thresholds struct {
	CategoryShareAlert   decimal.Decimal
	HealthySavingsRate   decimal.Decimal
	ExpenseRatioHigh     decimal.Decimal
	ExpenseRatioModerate decimal.Decimal
	MinimumSavingsRate   decimal.Decimal
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CategoryShareAlert:   decimal.NewFromInt(30),
		HealthySavingsRate:   decimal.NewFromInt(20),
		ExpenseRatioHigh:     decimal.NewFromInt(90),
		ExpenseRatioModerate: decimal.NewFromInt(70),
		MinimumSavingsRate:   decimal.NewFromInt(10),
	}
}

// Fixed replies.
const (
	HelpText = "Puedo ayudarte a:\n" +
		"• Registrar gastos e ingresos\n" +
		"• Analizar tu presupuesto\n" +
		"• Crear metas de ahorro\n" +
		"• Dar recomendaciones personalizadas\n\n" +
		"Solo dime qué necesitas, por ejemplo: \"Gasté $50 en comida\" o \"¿Cómo está mi presupuesto?\""

	UnknownText = "No entendí completamente. Puedes decirme cosas como:\n" +
		"• \"Gasté $30 en transporte\"\n" +
		"• \"Recibí $500 de mi trabajo\"\n" +
		"• \"¿Cómo está mi presupuesto?\"\n" +
		"• \"Quiero ahorrar $1000\""

	ApologyText = "Lo siento, no pude procesar tu mensaje. ¿Puedes intentar con: \"Gasté $50 en comida\" o \"¿Cómo está mi presupuesto?\""

	GoalAmountQuestion    = "¿Cuánto te gustaría ahorrar? Puedes decirme algo como \"Quiero ahorrar $1000\" y crearé una meta personalizada para ti."
	ExpenseAmountQuestion = "¿Cuánto gastaste? Por favor, incluye el monto en tu mensaje."
	IncomeAmountQuestion  = "¿Cuánto ingresaste? Por favor, incluye el monto en tu mensaje."

	NoExpensesText = "Aún no tienes gastos registrados este mes. ¡Comienza ingresando tus primeros gastos!"

	defaultGoalDescription = "Meta de ahorro personal"
)

type Composer struct {
	th Thresholds
}

func New(th Thresholds) *Composer {
	return &Composer{th: th}
}

// NewDefault returns a composer using DefaultThresholds.
func NewDefault() *Composer {
	return New(DefaultThresholds())
}

// Compose builds the reply for r. It never fails; unrecognised input gets
// the unknown template.
func (c *Composer) Compose(r intent.Result, s Snapshot) Reply {
	switch r.Kind {
	case intent.Expense:
		return c.expense(r, s)
	case intent.Income:
		return c.income(r, s)
	case intent.BudgetQuery:
		return text(c.budget(s))
	case intent.GoalCreate:
		return c.goal(r)
	case intent.ExpenseAnalysis:
		return text(c.analysis(s))
	case intent.SavingsAdvice:
		return text(c.advice(s))
	case intent.Help:
		return text(HelpText)
	default:
		return text(UnknownText)
	}
}

func text(s string) Reply {
	return Reply{Text: s, Action: ActionNone}
}

func (c *Composer) expense(r intent.Result, s Snapshot) Reply {
	if !r.HasAmount() {
		return text(ExpenseAmountQuestion)
	}
	cat := r.Category.Normalize()

	var b strings.Builder
	fmt.Fprintf(&b, "Registré tu gasto de $%s en %s. ", core.FormatAmount(r.Amount), cat.Info().Name)

	if s.Stats.TotalExpenses.IsPositive() {
		share := core.Percent(r.Amount, s.Stats.TotalExpenses)
		if share.GreaterThan(c.th.CategoryShareAlert) {
			fmt.Fprintf(&b, "Este gasto representa el %s%% de tus gastos mensuales. ¿Te gustaría que analicemos cómo optimizar esta categoría?", core.FormatPercent(share))
		} else {
			b.WriteString("¿Quieres que revisemos tu presupuesto para esta categoría?")
		}
	}

	return Reply{
		Text:   strings.TrimSpace(b.String()),
		Action: ActionAddTransaction,
		Transaction: &TransactionDraft{
			Type:        core.Expense,
			Amount:      r.Amount,
			Description: r.Description,
			Category:    cat,
		},
	}
}

func (c *Composer) income(r intent.Result, s Snapshot) Reply {
	if !r.HasAmount() {
		return text(IncomeAmountQuestion)
	}
	source := r.Source
	if source == "" {
		source = string(core.Other)
	}
	desc := r.Description
	if desc == "" {
		desc = "Ingreso de " + source
	}

	var b strings.Builder
	fmt.Fprintf(&b, "¡Excelente! Registré tu ingreso de $%s de %s. ", core.FormatAmount(r.Amount), source)

	if s.Stats.TotalIncome.IsPositive() {
		rate := core.Percent(s.Stats.Savings, s.Stats.TotalIncome)
		switch {
		case rate.GreaterThan(c.th.HealthySavingsRate):
			fmt.Fprintf(&b, "¡Muy bien! Estás ahorrando el %s%% de tus ingresos. ¿Quieres establecer una meta de ahorro?", core.FormatPercent(rate))
		case rate.IsNegative():
			b.WriteString("Noto que tus gastos superan tus ingresos. ¿Te gustaría que creemos un plan para equilibrar tus finanzas?")
		default:
			b.WriteString("¿Quieres que analicemos cómo aumentar tu tasa de ahorro?")
		}
	}

	return Reply{
		Text:   strings.TrimSpace(b.String()),
		Action: ActionAddTransaction,
		Transaction: &TransactionDraft{
			Type:        core.Income,
			Amount:      r.Amount,
			Description: desc,
			Category:    core.Other,
		},
	}
}

func (c *Composer) budget(s Snapshot) string {
	st := s.Stats
	if !st.TotalExpenses.IsPositive() || len(s.CategoryStats) == 0 {
		return NoExpensesText
	}
	top := s.CategoryStats[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Este mes has gastado $%s en total. Tu mayor gasto es en %s ($%s, %s%%). ",
		core.FormatAmount(st.TotalExpenses), top.Name, core.FormatAmount(top.Amount), core.FormatPercent(top.Percentage))

	if st.TotalIncome.IsPositive() {
		remaining := st.TotalIncome.Sub(st.TotalExpenses)
		switch remaining.Sign() {
		case 1:
			fmt.Fprintf(&b, "Te quedan $%s disponibles este mes.", core.FormatAmount(remaining))
		case -1:
			fmt.Fprintf(&b, "Has superado tu presupuesto en $%s. ¿Quieres que creemos un plan de recuperación?", core.FormatAmount(remaining.Abs()))
		default:
			b.WriteString("Has gastado exactamente tu presupuesto.")
		}
	}
	return strings.TrimSpace(b.String())
}

func (c *Composer) goal(r intent.Result) Reply {
	if r.MissingAmount || !r.HasAmount() {
		return text(GoalAmountQuestion)
	}
	amount := core.FormatAmount(r.Amount)

	draft := &GoalDraft{
		Title:        "Ahorrar $" + amount,
		TargetAmount: r.Amount,
		Description:  defaultGoalDescription,
	}
	msg := fmt.Sprintf("¡Perfecto! Creé una meta para ahorrar $%s. Te ayudaré a alcanzarla con consejos personalizados y retos semanales.", amount)

	if topic := strings.TrimSpace(r.Topic); topic != "" {
		draft.Title += " para " + topic
		draft.Description = "Meta de ahorro para " + topic
		msg = fmt.Sprintf("¡Perfecto! Creé una meta para ahorrar $%s para %s. Te ayudaré a alcanzarla con consejos personalizados y retos semanales.", amount, topic)
	}

	return Reply{Text: msg, Action: ActionAddGoal, Goal: draft}
}

func (c *Composer) analysis(s Snapshot) string {
	st := s.Stats
	ratio := core.Percent(st.TotalExpenses, st.TotalIncome)

	var b strings.Builder
	b.WriteString("📊 **Análisis de tus gastos:**\n\n")
	fmt.Fprintf(&b, "💸 Total gastado: $%s\n", core.FormatAmount(st.TotalExpenses))
	fmt.Fprintf(&b, "📊 Porcentaje de ingresos: %s%%\n\n", core.FormatPercent(ratio))

	switch {
	case ratio.GreaterThan(c.th.ExpenseRatioHigh):
		fmt.Fprintf(&b, "⚠️ Tus gastos representan el %s%% de tus ingresos. Considera reducir gastos para mejorar tu ahorro.", core.FormatPercent(ratio))
	case ratio.GreaterThan(c.th.ExpenseRatioModerate):
		b.WriteString("📈 Tus gastos están en un nivel moderado. Hay espacio para optimizar y aumentar tu ahorro.")
	default:
		b.WriteString("✅ Excelente control de gastos. Estás en un buen camino para alcanzar tus metas financieras.")
	}
	return b.String()
}

func (c *Composer) advice(s Snapshot) string {
	st := s.Stats
	rate := core.Percent(st.TotalIncome.Sub(st.TotalExpenses), st.TotalIncome)

	var b strings.Builder
	b.WriteString("💡 **Consejos para mejorar tu ahorro:**\n\n")

	switch {
	case rate.LessThan(c.th.MinimumSavingsRate):
		fmt.Fprintf(&b, "🎯 **Meta inmediata:** Aumentar tu tasa de ahorro al %s%%\n", c.th.MinimumSavingsRate)
		b.WriteString("💡 **Estrategia:** Aplica la regla 50/30/20\n")
		b.WriteString("📱 **Herramienta:** Registra cada gasto aquí mismo\n\n")
		b.WriteString("¿Quieres que te ayude a crear un plan de ahorro personalizado?")
	case rate.LessThan(c.th.HealthySavingsRate):
		fmt.Fprintf(&b, "🎯 **Meta:** Llegar al %s%% de ahorro\n", c.th.HealthySavingsRate)
		b.WriteString("💡 **Estrategia:** Automatiza tus ahorros\n")
		b.WriteString("📊 **Seguimiento:** Revisa tus gastos semanalmente\n\n")
		b.WriteString("¡Vas por buen camino! ¿Quieres establecer metas más ambiciosas?")
	default:
		fmt.Fprintf(&b, "🏆 **¡Excelente trabajo!** Estás ahorrando el %s%%\n", core.FormatPercent(rate))
		b.WriteString("💡 **Siguiente paso:** Considera invertir tus ahorros\n")
		b.WriteString("🎯 **Meta:** Diversificar tus fuentes de ingreso\n\n")
		b.WriteString("¿Te interesa aprender sobre inversiones?")
	}
	return b.String()
}
