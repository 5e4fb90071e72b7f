// Package assistant defines how chat replies are generated. A Responder is
// picked at startup: the local rule-based one or the Dialogflow-backed one
// in the dialogflow subpackage.
package assistant

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"finbot/internal/compose"
	"finbot/internal/intent"
)

// Kind names a Responder implementation.
type Kind string

const (
	KindLocal      Kind = "local"
	KindDialogflow Kind = "dialogflow"
)

func (k Kind) IsValid() bool {
	return k == KindLocal || k == KindDialogflow
}

// FinancialContext is the summary sent along with each utterance.
type FinancialContext struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Savings       decimal.Decimal `json:"savings"`
	MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
}

// ContextOf summarises a composer snapshot.
func ContextOf(s compose.Snapshot) FinancialContext {
	return FinancialContext{
		TotalIncome:   s.Stats.TotalIncome,
		TotalExpenses: s.Stats.TotalExpenses,
		Savings:       s.Stats.Savings,
		MonthlyBudget: s.MonthlyBudget,
	}
}

// Request is one user utterance to answer.
type Request struct {
	SessionID string
	Text      string
	Context   FinancialContext
	Snapshot  compose.Snapshot
}

// Responder produces a reply and the ledger action it implies.
type Responder interface {
	Respond(ctx context.Context, req Request) (compose.Reply, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, req Request) (compose.Reply, error)

func (f ResponderFunc) Respond(ctx context.Context, req Request) (compose.Reply, error) {
	return f(ctx, req)
}

// Local parses and composes in process. It never fails.
type Local struct {
	parser   *intent.Parser
	composer *compose.Composer
}

var _ Responder = (*Local)(nil)

func NewLocal(parser *intent.Parser, composer *compose.Composer) *Local {
	if parser == nil {
		parser = intent.NewParser()
	}
	if composer == nil {
		composer = compose.NewDefault()
	}
	return &Local{parser: parser, composer: composer}
}

func (l *Local) Respond(ctx context.Context, req Request) (compose.Reply, error) {
	if err := ctx.Err(); err != nil {
		return compose.Reply{}, fmt.Errorf("local responder: %w", err)
	}
	return l.composer.Compose(l.parser.Parse(req.Text), req.Snapshot), nil
}
