// Package memory records exported rows in process, for tests and local runs
// without a spreadsheet.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finbot/internal/core"
	ports "finbot/internal/sheets"
)

var _ ports.Exporter = (*Recorder)(nil)

type Recorder struct {
	mu           sync.Mutex
	transactions [][]any
	goals        [][]any
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, ports.TransactionRow(tx))
	return fmt.Sprintf("transactions!%d", len(r.transactions)), nil
}

func (r *Recorder) AppendGoal(ctx context.Context, g core.Goal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goals = append(r.goals, ports.GoalRow(g))
	return fmt.Sprintf("goals!%d", len(r.goals)), nil
}

// Transactions returns a copy of the recorded transaction rows.
func (r *Recorder) Transactions() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]any(nil), r.transactions...)
}

// Goals returns a copy of the recorded goal rows.
func (r *Recorder) Goals() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]any(nil), r.goals...)
}
