package sheets

import (
	"context"

	"finbot/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// GoalWriter appends the current state of a goal as a new row.
	GoalWriter interface {
		AppendGoal(ctx context.Context, g core.Goal) (rowRef string, err error)
	}

	Exporter interface {
		TransactionWriter
		GoalWriter
	}
)
