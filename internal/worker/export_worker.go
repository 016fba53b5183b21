// Package worker drains the export queue: it loads newly created expenses
// from storage and appends them to the configured spreadsheet, with a
// periodic reconciliation pass for anything the queue missed.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kabirpofficial/trackify/internal/amqp"
	"github.com/kabirpofficial/trackify/internal/core"
	"github.com/kabirpofficial/trackify/internal/storage"
)

// ExpenseExporter writes one expense to the external destination and returns
// a reference to the written record.
type ExpenseExporter interface {
	Append(ctx context.Context, e core.Expense) (string, error)
}

// ExportWorker moves expenses from SQLite to the export destination.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exporter  ExpenseExporter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter ExpenseExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single expense-created message. Returning
// an error makes the consumer requeue the message.
func (w *ExportWorker) HandleExportMessage(msg *amqp.ExpenseCreatedMessage) error {
	ctx := context.Background()

	slog.InfoContext(ctx, "Processing export message",
		"expense_id", msg.ID,
		"user_id", msg.UserID,
		"version", msg.Version)

	return w.exportExpense(ctx, msg.ID)
}

// ProcessPendingExpenses exports any expenses still marked pending. This is
// a backup mechanism in case queue messages are lost.
func (w *ExportWorker) ProcessPendingExpenses(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	for _, p := range pending {
		if err := w.exportExpense(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending expense", "expense_id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "expense_id", p.ID, "error", err)
			}
		}
	}

	return nil
}

func (w *ExportWorker) exportExpense(ctx context.Context, id int64) error {
	expense, err := w.storage.GetExpenseWithCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense %d: %w", id, err)
	}

	ref, err := w.exporter.Append(ctx, expense)
	if err != nil {
		return fmt.Errorf("append expense %d: %w", id, err)
	}

	if err := w.storage.MarkExported(ctx, id); err != nil {
		return fmt.Errorf("mark expense %d exported: %w", id, err)
	}

	slog.InfoContext(ctx, "Expense exported",
		"expense_id", id,
		"ref", ref)

	return nil
}
