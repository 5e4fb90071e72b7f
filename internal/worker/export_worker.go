package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"finbot/internal/amqp"
	"finbot/internal/ledger"
	"finbot/internal/log"
	"finbot/internal/sheets"
)

// Consumer delivers ledger events until its context is cancelled.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// ExportWorker mirrors ledger events into a spreadsheet.
type ExportWorker struct {
	exporter sheets.Exporter
	logger   *log.Logger

	exported atomic.Int64
	skipped  atomic.Int64
}

func NewExportWorker(exporter sheets.Exporter) *ExportWorker {
	return &ExportWorker{
		exporter: exporter,
		logger:   log.NewLogger(log.ComponentWorker),
	}
}

// HandleLedgerEvent exports one event. A returned error makes the consumer
// requeue the message.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	var (
		ref string
		err error
	)

	switch ev.Kind {
	case ledger.TransactionAdded:
		if ev.Transaction == nil {
			return w.skip(ctx, ev, "missing transaction")
		}
		ref, err = w.exporter.AppendTransaction(ctx, *ev.Transaction)
	case ledger.GoalAdded, ledger.GoalProgressed:
		if ev.Goal == nil {
			return w.skip(ctx, ev, "missing goal")
		}
		ref, err = w.exporter.AppendGoal(ctx, *ev.Goal)
	default:
		return w.skip(ctx, ev, "not exported")
	}

	if err != nil {
		return fmt.Errorf("export %s: %w", ev.Kind, err)
	}

	w.exported.Add(1)
	w.logger.InfoContext(ctx, "Exported ledger event",
		log.FieldEventKind, ev.Kind,
		"sheets_ref", ref)
	return nil
}

func (w *ExportWorker) skip(ctx context.Context, ev *amqp.LedgerEvent, reason string) error {
	w.skipped.Add(1)
	w.logger.DebugContext(ctx, "Skipping ledger event", log.FieldEventKind, ev.Kind, "reason", reason)
	return nil
}

// Run consumes events until ctx is cancelled or the consumer fails.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := consumer.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		w.logger.InfoContext(ctx, "Export worker stopping",
			"exported", w.exported.Load(),
			"skipped", w.skipped.Load())
		return nil
	})

	return g.Wait()
}

// Stats returns how many events were exported and skipped.
func (w *ExportWorker) Stats() (exported, skipped int64) {
	return w.exported.Load(), w.skipped.Load()
}
