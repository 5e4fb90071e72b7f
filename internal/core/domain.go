package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	UserMessage MessageType = "user"
	BotMessage  MessageType = "bot"
)

type (
	TransactionType string

	MessageType string

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Category    CategoryKey     `json:"category"`
		Date        time.Time       `json:"date"`
	}

	Goal struct {
		ID            string          `json:"id"`
		Title         string          `json:"title"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		Description   string          `json:"description"`
		CreatedAt     time.Time       `json:"createdAt"`
		Completed     bool            `json:"completed"`
	}

	Message struct {
		ID        string      `json:"id"`
		Type      MessageType `json:"type"`
		Content   string      `json:"content"`
		Timestamp time.Time   `json:"timestamp"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyTitle         = errors.New("empty goal title")
	ErrProgressOverTarget = errors.New("goal progress above target")
)

// IsValid reports whether t is one of the two known transaction types.
func (t TransactionType) IsValid() bool {
	return t == Expense || t == Income
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Category.IsKnown() {
		return ErrUnknownCategory
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.GreaterThan(g.TargetAmount) {
		return ErrProgressOverTarget
	}
	return nil
}

// IsCompleted is derived from the amounts; the stored Completed flag follows it.
func (g Goal) IsCompleted() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Progress returns the completion percentage in [0, 100].
func (g Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	return g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
}

// WithProgress returns a copy of g with delta added to the current amount,
// capped at the target. Non-positive deltas leave the goal unchanged.
func (g Goal) WithProgress(delta decimal.Decimal) Goal {
	if !delta.IsPositive() {
		return g
	}
	g.CurrentAmount = decimal.Min(g.CurrentAmount.Add(delta), g.TargetAmount)
	g.Completed = g.IsCompleted()
	return g
}
