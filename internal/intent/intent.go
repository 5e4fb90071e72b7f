// Package intent classifies chat utterances into finance intents.
//
// Classification is an ordered list of rules. Each rule either matches and
// returns a Result or declines, in which case the next rule is tried. The
// order is the priority: expense and income phrasing first, then the keyword
// intents, then help, with Unknown as the fallback.
package intent

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"finbot/internal/core"
)

// Kind is the classified purpose of an utterance.
type Kind string

const (
	Expense     Kind = "EXPENSE"
	Income      Kind = "INCOME"
	BudgetQuery Kind = "BUDGET_QUERY"
	GoalCreate  Kind = "GOAL_CREATE"
	Help        Kind = "HELP"
	Unknown     Kind = "UNKNOWN"
)

// Analysis and advice are produced by the Dialogflow mapping, or locally
// only with AnalysisRules.
const (
	ExpenseAnalysis Kind = "EXPENSE_ANALYSIS"
	SavingsAdvice   Kind = "SAVINGS_ADVICE"
)

// Result is a classified utterance with its extracted parameters.
type Result struct {
	Kind Kind

	// Amount is set for Expense, Income and GoalCreate when extractable.
	Amount decimal.Decimal

	// MissingAmount is true when the intent was recognised but no usable
	// amount could be extracted.
	MissingAmount bool

	// Description is the trailing phrase for expenses.
	Description string

	// Source is the trailing phrase for incomes.
	Source string

	// Category is the classified category for expenses.
	Category core.CategoryKey

	// Topic is an optional goal subject ("vacaciones"); empty for local parses.
	Topic string
}

// HasAmount reports whether a positive amount was extracted.
func (r Result) HasAmount() bool {
	return r.Amount.IsPositive()
}

// Rule tries to classify normalised text.
type Rule interface {
	Match(text string) (Result, bool)
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(text string) (Result, bool)

func (f RuleFunc) Match(text string) (Result, bool) { return f(text) }

var (
	expensePattern = regexp.MustCompile(`(?:gasté|gaste|pagué|pague)\s*\$?(\d+(?:\.\d+)?)\s*(?:en|por|de)\s*(.+)`)
	incomePattern  = regexp.MustCompile(`(?:recibí|recibi|ingresé|ingrese|gané|gane)\s*\$?(\d+(?:\.\d+)?)\s*(?:de|por|en)\s*(.+)`)
	looseAmount    = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)`)
)

// DefaultRules returns the rule list in priority order. It yields one of
// Expense, Income, BudgetQuery, GoalCreate, Help or Unknown.
func DefaultRules() []Rule {
	return []Rule{
		RuleFunc(matchExpense),
		RuleFunc(matchIncome),
		keywordRule(BudgetQuery, "presupuesto", "gastos"),
		RuleFunc(matchGoal),
		helpRule(),
	}
}

// AnalysisRules is DefaultRules with the analysis and advice keywords
// checked ahead of help.
func AnalysisRules() []Rule {
	rules := DefaultRules()
	last := len(rules) - 1
	return append(rules[:last:last],
		keywordRule(ExpenseAnalysis, "analiza", "análisis", "analisis"),
		keywordRule(SavingsAdvice, "consejo"),
		rules[last],
	)
}

func helpRule() Rule {
	return keywordRule(Help, "ayuda", "qué", "que")
}

// Parser applies rules in order and falls back to Unknown.
type Parser struct {
	rules []Rule
}

// NewParser returns a parser using DefaultRules.
func NewParser() *Parser {
	return &Parser{rules: DefaultRules()}
}

// NewParserWithRules returns a parser with a custom rule list.
func NewParserWithRules(rules ...Rule) *Parser {
	return &Parser{rules: rules}
}

// Parse classifies raw user text.
func (p *Parser) Parse(text string) Result {
	normalized := Normalize(text)
	for _, rule := range p.rules {
		if res, ok := rule.Match(normalized); ok {
			return res
		}
	}
	return Result{Kind: Unknown}
}

// Normalize composes accents and lower-cases the text, so precomposed and
// decomposed spellings of "gasté" match the same patterns.
func Normalize(text string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(text)))
}

func matchExpense(text string) (Result, bool) {
	m := expensePattern.FindStringSubmatch(text)
	if m == nil {
		return Result{}, false
	}
	amount, err := core.ParseAmount(m[1])
	if err != nil {
		return Result{}, false
	}
	desc := strings.TrimSpace(m[2])
	return Result{
		Kind:        Expense,
		Amount:      amount,
		Description: desc,
		Category:    core.Classify(desc),
	}, true
}

func matchIncome(text string) (Result, bool) {
	m := incomePattern.FindStringSubmatch(text)
	if m == nil {
		return Result{}, false
	}
	amount, err := core.ParseAmount(m[1])
	if err != nil {
		return Result{}, false
	}
	source := strings.TrimSpace(m[2])
	return Result{
		Kind:        Income,
		Amount:      amount,
		Source:      source,
		Description: "Ingreso de " + source,
		Category:    core.Other,
	}, true
}

func matchGoal(text string) (Result, bool) {
	if !strings.Contains(text, "ahorrar") && !strings.Contains(text, "meta") {
		return Result{}, false
	}
	res := Result{Kind: GoalCreate}
	m := looseAmount.FindStringSubmatch(text)
	if m == nil {
		res.MissingAmount = true
		return res, true
	}
	amount, err := core.ParseAmount(m[1])
	if err != nil {
		res.MissingAmount = true
		return res, true
	}
	res.Amount = amount
	return res, true
}

func keywordRule(kind Kind, keywords ...string) Rule {
	return RuleFunc(func(text string) (Result, bool) {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return Result{Kind: kind}, true
			}
		}
		return Result{}, false
	})
}
