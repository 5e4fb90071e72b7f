// Package chat runs conversation sessions: the transcript, the typing flag,
// suggestion chips, and the round trip through a Responder into the ledger.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finbot/internal/assistant"
	"finbot/internal/compose"
	"finbot/internal/core"
	"finbot/internal/ledger"
	"finbot/internal/log"
)

var ErrEmptyMessage = errors.New("chat: empty message")

const WelcomeID = "welcome"

// WelcomeText opens every transcript.
const WelcomeText = "¡Hola! Soy tu Asistente Financiero Personal. Puedes ingresar tus gastos e ingresos directamente aquí. Por ejemplo: \"Gasté $50 en comida\" o \"Recibí $500 de mi trabajo\". ¿En qué puedo ayudarte hoy?"

var (
	initialSuggestions = []string{
		"Gasté $30 en transporte",
		"Recibí $500 de mi trabajo",
		"Gasté $25 en comida",
		"¿Cómo está mi presupuesto?",
		"Quiero ahorrar $1000",
	}
	followUpSuggestions = []string{
		"¿Cómo está mi presupuesto?",
		"Quiero ahorrar $500",
		"Gasté $40 en entretenimiento",
		"Recibí $800 de mi trabajo",
	}
)

// Ledger is the part of the ledger a session reads and mutates.
type Ledger interface {
	MonthlyStats() ledger.Stats
	MonthlyBudget() decimal.Decimal
	AddTransaction(ctx context.Context, typ core.TransactionType, amount decimal.Decimal, description string, category core.CategoryKey) (core.Transaction, error)
	AddGoal(ctx context.Context, title string, target decimal.Decimal, description string) (core.Goal, error)
}

var _ Ledger = (*ledger.Ledger)(nil)

// Option configures a Session.
type Option func(*Session)

// WithDelay pauses before each reply so the typing indicator is visible.
func WithDelay(d time.Duration) Option {
	return func(s *Session) { s.delay = d }
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides uuid-based message ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// Session is one conversation. Its transcript is guarded for memory safety
// only: concurrent sends are not serialised and their messages may interleave.
type Session struct {
	id        string
	ledger    Ledger
	responder assistant.Responder
	delay     time.Duration
	now       func() time.Time
	newID     func() string
	logger    *log.Logger

	mu          sync.RWMutex
	messages    []core.Message
	typing      bool
	suggestions []string
}

// NewSession starts a conversation holding only the welcome message.
func NewSession(id string, l Ledger, r assistant.Responder, opts ...Option) *Session {
	s := &Session{
		id:        id,
		ledger:    l,
		responder: r,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    log.NewLogger(log.ComponentChat),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = []core.Message{s.welcome()}
	s.suggestions = append([]string(nil), initialSuggestions...)
	return s
}

func (s *Session) welcome() core.Message {
	return core.Message{ID: WelcomeID, Type: core.BotMessage, Content: WelcomeText, Timestamp: s.now()}
}

func (s *Session) ID() string { return s.id }

// SendMessage appends the user's message, obtains a reply, applies its
// action to the ledger and appends the reply. Responder failures are logged
// and answered with a fixed apology without touching the ledger.
func (s *Session) SendMessage(ctx context.Context, text string) (core.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Message{}, ErrEmptyMessage
	}

	s.append(core.Message{ID: s.newID(), Type: core.UserMessage, Content: text, Timestamp: s.now()})
	s.setTyping(true)
	defer s.setTyping(false)

	reply := s.respond(ctx, text)
	s.apply(ctx, reply)

	bot := core.Message{ID: s.newID(), Type: core.BotMessage, Content: reply.Text, Timestamp: s.now()}
	s.append(bot)

	s.mu.Lock()
	s.suggestions = append([]string(nil), followUpSuggestions...)
	s.mu.Unlock()

	return bot, nil
}

func (s *Session) respond(ctx context.Context, text string) compose.Reply {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	stats := s.ledger.MonthlyStats()
	snap := compose.Snapshot{
		Stats:         stats,
		CategoryStats: ledger.Breakdown(stats),
		MonthlyBudget: s.ledger.MonthlyBudget(),
	}
	req := assistant.Request{
		SessionID: s.id,
		Text:      text,
		Context:   assistant.ContextOf(snap),
		Snapshot:  snap,
	}

	reply, err := s.responder.Respond(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "Responder failed",
			log.FieldSessionID, s.id,
			log.FieldError, err)
		return compose.Reply{Text: compose.ApologyText, Action: compose.ActionNone}
	}
	return reply
}

func (s *Session) apply(ctx context.Context, reply compose.Reply) {
	switch reply.Action {
	case compose.ActionAddTransaction:
		if d := reply.Transaction; d != nil {
			if _, err := s.ledger.AddTransaction(ctx, d.Type, d.Amount, d.Description, d.Category); err != nil {
				s.logger.WarnContext(ctx, "Transaction not fully recorded",
					log.FieldSessionID, s.id,
					log.FieldError, err)
			}
		}
	case compose.ActionAddGoal:
		if d := reply.Goal; d != nil {
			if _, err := s.ledger.AddGoal(ctx, d.Title, d.TargetAmount, d.Description); err != nil {
				s.logger.WarnContext(ctx, "Goal not fully recorded",
					log.FieldSessionID, s.id,
					log.FieldError, err)
			}
		}
	}
}

func (s *Session) append(m core.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

func (s *Session) setTyping(v bool) {
	s.mu.Lock()
	s.typing = v
	s.mu.Unlock()
}

// Clear truncates the transcript back to the welcome message.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []core.Message{s.welcome()}
	s.suggestions = append([]string(nil), initialSuggestions...)
}

// Messages returns a copy of the transcript in insertion order.
func (s *Session) Messages() []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Message(nil), s.messages...)
}

// Typing reports whether a reply is being prepared.
func (s *Session) Typing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing
}

func (s *Session) Suggestions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.suggestions...)
}
