// Package worker moves recorded expenses from the local database to the
// export destination, driven by AMQP messages with a periodic catch-up pass.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/export"
	"spendtrack/internal/log"
)

// ExpenseSource is the slice of the repository the worker needs.
type ExpenseSource interface {
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	PendingSyncExpenses(ctx context.Context, limit int) ([]core.Expense, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// ExportWorker appends expenses to the export destination and tracks their
// sync status in storage.
type ExportWorker struct {
	source    ExpenseSource
	appender  export.Appender
	batchSize int
}

func NewExportWorker(source ExpenseSource, appender export.Appender, batchSize int) *ExportWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &ExportWorker{
		source:    source,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleExpenseCreated processes a single expense-created message: it loads
// the row and appends it to the destination. A failed append marks the row
// errored and returns the error so the delivery is retried or dead-lettered.
func (w *ExportWorker) HandleExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	slog.InfoContext(ctx, "Processing expense created message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldExpenseID, msg.ID)

	expense, err := w.source.GetExpense(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	return w.exportOne(ctx, expense)
}

// CatchUp exports one batch of rows that were recorded while the worker was
// down or whose messages were lost. It returns the number exported.
func (w *ExportWorker) CatchUp(ctx context.Context) (int, error) {
	pending, err := w.source.PendingSyncExpenses(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Catch-up pass",
		log.FieldComponent, log.ComponentWorker,
		"pending", len(pending))

	exported := 0
	for _, e := range pending {
		if ctx.Err() != nil {
			return exported, ctx.Err()
		}
		if err := w.exportOne(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Catch-up export failed",
				log.FieldComponent, log.ComponentWorker,
				log.FieldExpenseID, e.ID,
				log.FieldError, err)
			continue
		}
		exported++
	}
	return exported, nil
}

func (w *ExportWorker) exportOne(ctx context.Context, e core.Expense) error {
	if err := w.appender.Append(ctx, e); err != nil {
		if markErr := w.source.MarkSyncError(ctx, e.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldComponent, log.ComponentWorker,
				log.FieldExpenseID, e.ID,
				log.FieldError, markErr)
		}
		return fmt.Errorf("append expense %d: %w", e.ID, err)
	}

	if err := w.source.MarkSynced(ctx, e.ID); err != nil {
		return fmt.Errorf("mark expense %d synced: %w", e.ID, err)
	}
	return nil
}
