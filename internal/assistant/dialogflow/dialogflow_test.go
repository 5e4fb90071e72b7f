package dialogflow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"finbot/internal/assistant"
	"finbot/internal/compose"
	"finbot/internal/core"
)

type capturedRequest struct {
	Path string
	Body map[string]any
}

func newTestResponder(t *testing.T, status int, response string) (*Responder, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	r, err := New(context.Background(), Config{
		ProjectID: "finbot-test",
		Options: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
			goption.WithHTTPClient(srv.Client()),
		},
	}, compose.NewDefault())
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}
	return r, captured
}

func TestNewRequiresProject(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatalf("expected error for missing project id")
	}
}

func TestRespondExpenseIntent(t *testing.T) {
	r, captured := newTestResponder(t, http.StatusOK, `{
		"queryResult": {
			"intent": {"displayName": "registrar_gasto"},
			"parameters": {"number": 45, "categoria_gasto": "Transporte", "description": "uber"},
			"fulfillmentText": "ignored"
		}
	}`)

	req := assistant.Request{
		SessionID: "abc",
		Text:      "gasté 45 en uber",
		Context: assistant.FinancialContext{
			TotalIncome:   decimal.NewFromInt(1000),
			TotalExpenses: decimal.NewFromInt(200),
			Savings:       decimal.NewFromInt(800),
			MonthlyBudget: decimal.NewFromInt(2000),
		},
	}
	reply, err := r.Respond(context.Background(), req)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	if reply.Action != compose.ActionAddTransaction || reply.Transaction == nil {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if reply.Transaction.Category != core.Transport || !reply.Transaction.Amount.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("unexpected draft %+v", reply.Transaction)
	}

	if !strings.HasSuffix(captured.Path, "projects/finbot-test/agent/sessions/abc:detectIntent") {
		t.Fatalf("unexpected path %q", captured.Path)
	}
	input := captured.Body["queryInput"].(map[string]any)["text"].(map[string]any)
	if input["text"] != "gasté 45 en uber" || input["languageCode"] != "es-ES" {
		t.Fatalf("unexpected query input %v", input)
	}
	contexts := captured.Body["queryParams"].(map[string]any)["contexts"].([]any)
	fc := contexts[0].(map[string]any)
	if fc["name"] != "projects/finbot-test/agent/sessions/abc/contexts/financial-context" {
		t.Fatalf("unexpected context name %v", fc["name"])
	}
	params := fc["parameters"].(map[string]any)
	if params["totalIncome"] != float64(1000) || params["savings"] != float64(800) {
		t.Fatalf("unexpected context parameters %v", params)
	}
}

func TestRespondIntentMapping(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantAction compose.Action
		contains   string
	}{
		{
			name:       "income with string amount",
			response:   `{"queryResult":{"intent":{"displayName":"registrar_ingreso"},"parameters":{"amount":"800","fuente_ingreso":"mi trabajo"}}}`,
			wantAction: compose.ActionAddTransaction,
			contains:   "Registré tu ingreso de $800 de mi trabajo",
		},
		{
			name:       "expense missing amount",
			response:   `{"queryResult":{"intent":{"displayName":"registrar_gasto"},"parameters":{"number":""}}}`,
			wantAction: compose.ActionNone,
			contains:   compose.ExpenseAmountQuestion,
		},
		{
			name:       "goal with topic",
			response:   `{"queryResult":{"intent":{"displayName":"crear_meta_ahorro"},"parameters":{"number":[1200],"goal":"vacaciones"}}}`,
			wantAction: compose.ActionAddGoal,
			contains:   "para vacaciones",
		},
		{
			name:       "budget",
			response:   `{"queryResult":{"intent":{"displayName":"consultar_presupuesto"}}}`,
			wantAction: compose.ActionNone,
			contains:   compose.NoExpensesText,
		},
		{
			name:       "advice",
			response:   `{"queryResult":{"intent":{"displayName":"consejos_ahorro"}}}`,
			wantAction: compose.ActionNone,
			contains:   "Consejos para mejorar tu ahorro",
		},
		{
			name:       "unmapped intent uses fulfillment",
			response:   `{"queryResult":{"intent":{"displayName":"saludo"},"fulfillmentText":"¡Hola!"}}`,
			wantAction: compose.ActionNone,
			contains:   "¡Hola!",
		},
		{
			name:       "no intent and no fulfillment",
			response:   `{"queryResult":{}}`,
			wantAction: compose.ActionNone,
			contains:   fallbackText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResponder(t, http.StatusOK, tt.response)
			reply, err := r.Respond(context.Background(), assistant.Request{Text: "x"})
			if err != nil {
				t.Fatalf("respond: %v", err)
			}
			if reply.Action != tt.wantAction || !strings.Contains(reply.Text, tt.contains) {
				t.Fatalf("reply = %+v, want action %s containing %q", reply, tt.wantAction, tt.contains)
			}
		})
	}
}

func TestRespondPropagatesAPIErrors(t *testing.T) {
	r, _ := newTestResponder(t, http.StatusInternalServerError, `{"error":{"code":500,"message":"boom"}}`)
	if _, err := r.Respond(context.Background(), assistant.Request{Text: "x"}); err == nil {
		t.Fatalf("expected error from failing API")
	}
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{json.Number("12.5"), "12.5", true},
		{"30", "30", true},
		{[]any{json.Number("7")}, "7", true},
		{map[string]any{"amount": json.Number("50"), "currency": "USD"}, "50", true},
		{json.Number("0"), "", false},
		{"", "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := toDecimal(tt.in)
		if ok != tt.ok {
			t.Fatalf("toDecimal(%v) ok = %v, want %v", tt.in, ok, tt.ok)
		}
		if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("toDecimal(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
