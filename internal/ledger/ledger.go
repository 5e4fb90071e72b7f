// Package ledger holds the user's transactions and savings goals, derives
// the dashboard statistics from them and persists the whole state as one
// JSON blob after every mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/kv"
	"finbot/internal/log"
)

var (
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	ErrGoalNotFound  = errors.New("ledger: goal not found")
)

// EventKind names a ledger mutation.
type EventKind string

const (
	TransactionAdded EventKind = "transaction.added"
	GoalAdded        EventKind = "goal.added"
	GoalProgressed   EventKind = "goal.progressed"
	BudgetUpdated    EventKind = "budget.updated"
)

// Event describes one applied mutation.
type Event struct {
	Kind        EventKind
	Transaction *core.Transaction
	Goal        *core.Goal
	Budget      *decimal.Decimal
	At          time.Time
}

// Notifier is told about each mutation after it has been persisted.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Option configures a Ledger.
type Option func(*Ledger)

// WithKey overrides the store key.
func WithKey(key string) Option {
	return func(l *Ledger) {
		if key != "" {
			l.key = key
		}
	}
}

// WithClock overrides time.Now. The clock's location decides month boundaries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithNotifier registers a mutation observer.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithIDGenerator overrides uuid-based ids.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

type Ledger struct {
	mu   sync.RWMutex
	data Data

	// persistMu orders snapshot writes so the last write carries the latest state.
	persistMu sync.Mutex

	store    kv.Store
	key      string
	now      func() time.Time
	newID    func() string
	notifier Notifier
	logger   *log.Logger
}

// Open loads the ledger from store. A missing, unreadable or malformed
// snapshot yields the default state; Open never fails.
func Open(ctx context.Context, store kv.Store, opts ...Option) *Ledger {
	l := &Ledger{
		data:   DefaultData(),
		store:  store,
		key:    DefaultKey,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.NewLogger(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.load(ctx)
	return l
}

func (l *Ledger) load(ctx context.Context) {
	if l.store == nil {
		return
	}
	raw, err := l.store.Get(ctx, l.key)
	if errors.Is(err, kv.ErrNotFound) {
		l.logger.InfoContext(ctx, "No stored ledger, starting empty", "key", l.key)
		return
	}
	if err != nil {
		l.logger.WarnContext(ctx, "Failed to read ledger, using defaults",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		return
	}
	data, dropped, err := Decode(raw)
	if err != nil {
		l.logger.WarnContext(ctx, "Malformed ledger snapshot, using defaults",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		return
	}
	if dropped > 0 {
		l.logger.WarnContext(ctx, "Dropped invalid ledger records", "count", dropped)
	}
	l.data = data
	l.logger.InfoContext(ctx, "Ledger loaded",
		"transactions", len(data.Transactions),
		"goals", len(data.Goals))
}

// AddTransaction records a transaction dated now. An empty or unknown
// category becomes "otros". When persisting fails the transaction is still
// kept in memory and returned together with the error.
func (l *Ledger) AddTransaction(ctx context.Context, typ core.TransactionType, amount decimal.Decimal, description string, category core.CategoryKey) (core.Transaction, error) {
	if !typ.IsValid() {
		return core.Transaction{}, core.ErrInvalidType
	}
	if !amount.IsPositive() {
		return core.Transaction{}, ErrInvalidAmount
	}

	tx := core.Transaction{
		ID:          l.newID(),
		Type:        typ,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Category:    category.Normalize(),
		Date:        l.now(),
	}

	l.mu.Lock()
	l.data.Transactions = append(l.data.Transactions, tx)
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Transaction recorded",
		"id", tx.ID,
		log.FieldTxType, string(tx.Type),
		log.FieldAmount, tx.Amount.String(),
		log.FieldCategory, string(tx.Category))

	err := l.persist(ctx)
	l.notify(ctx, Event{Kind: TransactionAdded, Transaction: &tx, At: tx.Date})
	return tx, err
}

// AddGoal creates a goal with no progress.
func (l *Ledger) AddGoal(ctx context.Context, title string, target decimal.Decimal, description string) (core.Goal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return core.Goal{}, core.ErrEmptyTitle
	}
	if !target.IsPositive() {
		return core.Goal{}, ErrInvalidAmount
	}

	g := core.Goal{
		ID:            l.newID(),
		Title:         title,
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
		Description:   strings.TrimSpace(description),
		CreatedAt:     l.now(),
	}

	l.mu.Lock()
	l.data.Goals = append(l.data.Goals, g)
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Goal created",
		log.FieldGoalID, g.ID,
		"target", g.TargetAmount.String())

	err := l.persist(ctx)
	l.notify(ctx, Event{Kind: GoalAdded, Goal: &g, At: g.CreatedAt})
	return g, err
}

// UpdateGoalProgress adds delta to the goal's saved amount, capped at the
// target. Unknown ids and non-positive deltas are no-ops.
func (l *Ledger) UpdateGoalProgress(ctx context.Context, id string, delta decimal.Decimal) error {
	if !delta.IsPositive() {
		return nil
	}

	l.mu.Lock()
	idx := l.goalIndex(id)
	if idx < 0 {
		l.mu.Unlock()
		return nil
	}
	g := l.data.Goals[idx].WithProgress(delta)
	l.data.Goals[idx] = g
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Goal progress updated",
		log.FieldGoalID, g.ID,
		"current", g.CurrentAmount.String(),
		"completed", g.Completed)

	err := l.persist(ctx)
	l.notify(ctx, Event{Kind: GoalProgressed, Goal: &g, At: l.now()})
	return err
}

// SetMonthlyBudget replaces the configured monthly budget.
func (l *Ledger) SetMonthlyBudget(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	l.data.MonthlyBudget = amount
	l.mu.Unlock()

	err := l.persist(ctx)
	l.notify(ctx, Event{Kind: BudgetUpdated, Budget: &amount, At: l.now()})
	return err
}

func (l *Ledger) goalIndex(id string) int {
	for i := range l.data.Goals {
		if l.data.Goals[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) persist(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.RLock()
	raw, err := Encode(l.data)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := l.store.Put(ctx, l.key, raw); err != nil {
		l.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.FieldOperation, log.OpPersist,
			log.FieldError, err)
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

func (l *Ledger) notify(ctx context.Context, ev Event) {
	if l.notifier != nil {
		l.notifier.Notify(ctx, ev)
	}
}

// Transactions returns a copy of every transaction in insertion order.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Transaction(nil), l.data.Transactions...)
}

// Goals returns a copy of every goal in insertion order.
func (l *Ledger) Goals() []core.Goal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Goal(nil), l.data.Goals...)
}

// Goal looks a goal up by id.
func (l *Ledger) Goal(id string) (core.Goal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := l.goalIndex(id); idx >= 0 {
		return l.data.Goals[idx], nil
	}
	return core.Goal{}, ErrGoalNotFound
}

func (l *Ledger) MonthlyBudget() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data.MonthlyBudget
}

func (l *Ledger) Currency() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data.Currency
}

// Snapshot returns a deep enough copy of the current state for encoding.
func (l *Ledger) Snapshot() Data {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d := l.data
	d.Transactions = append([]core.Transaction(nil), l.data.Transactions...)
	d.Goals = append([]core.Goal(nil), l.data.Goals...)
	d.Categories = core.CategoryTable()
	return d
}

// MonthlyStats derives stats for the current month. Nothing is cached.
func (l *Ledger) MonthlyStats() Stats {
	now := l.now()
	return l.StatsFor(now.Year(), now.Month())
}

// StatsFor derives stats for any month, using the clock's location.
func (l *Ledger) StatsFor(year int, month time.Month) Stats {
	loc := l.now().Location()
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Compute(l.data.Transactions, year, month, loc)
}

// CategoryStats is the expense breakdown of the current month.
func (l *Ledger) CategoryStats() []CategoryStat {
	return Breakdown(l.MonthlyStats())
}

// BudgetStatus is the balance card of the current month.
func (l *Ledger) BudgetStatus() Budget {
	return BudgetOf(l.MonthlyStats(), l.MonthlyBudget())
}

// WeeklySeries returns the last seven days of totals, oldest first.
func (l *Ledger) WeeklySeries() []DayTotals {
	return Weekly(l.Transactions(), l.now())
}

func (l *Ledger) GoalsSummary() GoalsSummary {
	return Summarize(l.Goals())
}

func (l *Ledger) GoalStatus(g core.Goal) GoalStatus {
	return StatusOf(g, l.now())
}
