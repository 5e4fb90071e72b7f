// Package dialogflow answers chat messages through Dialogflow v2
// detectIntent and maps the detected intent onto the shared reply templates.
package dialogflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	df "google.golang.org/api/dialogflow/v2"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"finbot/internal/assistant"
	"finbot/internal/compose"
	"finbot/internal/core"
	"finbot/internal/intent"
	"finbot/internal/log"
)

// Intent display names configured in the agent.
const (
	IntentExpense  = "registrar_gasto"
	IntentIncome   = "registrar_ingreso"
	IntentBudget   = "consultar_presupuesto"
	IntentGoal     = "crear_meta_ahorro"
	IntentAnalysis = "analizar_gastos"
	IntentAdvice   = "consejos_ahorro"
)

const (
	contextName     = "financial-context"
	contextLifespan = 5

	defaultExpenseDescription = "Gasto registrado"
	fallbackText              = "No entendí completamente. ¿Puedes reformular tu mensaje?"
)

// Config selects the agent and credentials.
type Config struct {
	ProjectID       string
	LanguageCode    string
	CredentialsJSON []byte
	CredentialsFile string

	// Options are appended to the client options, for tests.
	Options []goption.ClientOption
}

type Responder struct {
	svc       *df.Service
	projectID string
	language  string
	composer  *compose.Composer
	logger    *log.Logger
}

var _ assistant.Responder = (*Responder)(nil)

// New builds a Dialogflow client from service account credentials.
func New(ctx context.Context, cfg Config, composer *compose.Composer) (*Responder, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("missing dialogflow project id")
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "es-ES"
	}
	if composer == nil {
		composer = compose.NewDefault()
	}

	opts := []goption.ClientOption{goption.WithScopes(df.DialogflowScope)}
	switch {
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, goption.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(raw))
	}
	opts = append(opts, cfg.Options...)

	svc, err := df.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create dialogflow service: %w", err)
	}

	return &Responder{
		svc:       svc,
		projectID: cfg.ProjectID,
		language:  cfg.LanguageCode,
		composer:  composer,
		logger:    log.NewLogger(log.ComponentAssistant),
	}, nil
}

func (r *Responder) sessionPath(sessionID string) string {
	if sessionID == "" {
		sessionID = "default"
	}
	return fmt.Sprintf("projects/%s/agent/sessions/%s", r.projectID, sessionID)
}

// Respond sends the utterance with the financial context attached and maps
// the detected intent. Transport and API errors are returned unchanged so
// the session can apologise.
func (r *Responder) Respond(ctx context.Context, req assistant.Request) (compose.Reply, error) {
	session := r.sessionPath(req.SessionID)

	params, err := json.Marshal(contextParameters(req.Context))
	if err != nil {
		return compose.Reply{}, fmt.Errorf("encode context: %w", err)
	}

	body := &df.GoogleCloudDialogflowV2DetectIntentRequest{
		QueryInput: &df.GoogleCloudDialogflowV2QueryInput{
			Text: &df.GoogleCloudDialogflowV2TextInput{
				Text:         req.Text,
				LanguageCode: r.language,
			},
		},
		QueryParams: &df.GoogleCloudDialogflowV2QueryParameters{
			Contexts: []*df.GoogleCloudDialogflowV2Context{{
				Name:          session + "/contexts/" + contextName,
				LifespanCount: contextLifespan,
				Parameters:    googleapi.RawMessage(params),
			}},
		},
	}

	resp, err := r.svc.Projects.Agent.Sessions.DetectIntent(session, body).Context(ctx).Do()
	if err != nil {
		return compose.Reply{}, fmt.Errorf("detect intent: %w", err)
	}
	if resp.QueryResult == nil {
		return compose.Reply{}, errors.New("detect intent: empty query result")
	}

	qr := resp.QueryResult
	name := ""
	if qr.Intent != nil {
		name = qr.Intent.DisplayName
	}
	r.logger.DebugContext(ctx, "Intent detected", log.FieldIntent, name)

	p, err := decodeParameters(qr.Parameters)
	if err != nil {
		return compose.Reply{}, fmt.Errorf("decode parameters: %w", err)
	}

	res, ok := toResult(name, p)
	if !ok {
		text := strings.TrimSpace(qr.FulfillmentText)
		if text == "" {
			text = fallbackText
		}
		return compose.Reply{Text: text, Action: compose.ActionNone}, nil
	}
	return r.composer.Compose(res, req.Snapshot), nil
}

func contextParameters(fc assistant.FinancialContext) map[string]float64 {
	f := func(d decimal.Decimal) float64 {
		v, _ := d.Float64()
		return v
	}
	return map[string]float64{
		"totalIncome":   f(fc.TotalIncome),
		"totalExpenses": f(fc.TotalExpenses),
		"savings":       f(fc.Savings),
		"monthlyBudget": f(fc.MonthlyBudget),
	}
}

type parameters map[string]any

func decodeParameters(raw googleapi.RawMessage) (parameters, error) {
	p := parameters{}
	if len(raw) == 0 {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

// amount returns the first positive number among keys. Dialogflow sends
// numbers, numeric strings or lists of them depending on the entity.
func (p parameters) amount(keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		if d, ok := toDecimal(p[k]); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil && d.IsPositive()
	case string:
		d, err := core.ParseAmount(x)
		return d, err == nil
	case []any:
		if len(x) > 0 {
			return toDecimal(x[0])
		}
	case map[string]any:
		// @sys.unit-currency: {"amount": 50, "currency": "USD"}
		return toDecimal(x["amount"])
	}
	return decimal.Zero, false
}

func (p parameters) str(key string) string {
	switch x := p[key].(type) {
	case string:
		return strings.TrimSpace(x)
	case []any:
		if len(x) > 0 {
			if s, ok := x[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func toResult(name string, p parameters) (intent.Result, bool) {
	switch name {
	case IntentExpense:
		amount, ok := p.amount("number", "amount")
		desc := p.str("description")
		if desc == "" {
			desc = defaultExpenseDescription
		}
		cat := core.CategoryKey(core.Fold(p.str("categoria_gasto")))
		if !cat.IsKnown() {
			cat = core.Classify(desc)
		}
		return intent.Result{Kind: intent.Expense, Amount: amount, MissingAmount: !ok, Description: desc, Category: cat}, true
	case IntentIncome:
		amount, ok := p.amount("number", "amount")
		source := p.str("fuente_ingreso")
		if source == "" {
			source = string(core.Other)
		}
		desc := p.str("description")
		if desc == "" {
			desc = "Ingreso de " + source
		}
		return intent.Result{Kind: intent.Income, Amount: amount, MissingAmount: !ok, Source: source, Description: desc, Category: core.Other}, true
	case IntentBudget:
		return intent.Result{Kind: intent.BudgetQuery}, true
	case IntentGoal:
		amount, ok := p.amount("number", "amount")
		return intent.Result{Kind: intent.GoalCreate, Amount: amount, MissingAmount: !ok, Topic: p.str("goal")}, true
	case IntentAnalysis:
		return intent.Result{Kind: intent.ExpenseAnalysis}, true
	case IntentAdvice:
		return intent.Result{Kind: intent.SavingsAdvice}, true
	default:
		return intent.Result{}, false
	}
}
