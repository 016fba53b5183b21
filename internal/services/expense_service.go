package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kabirpofficial/trackify/internal/amqp"
	"github.com/kabirpofficial/trackify/internal/core"
	"github.com/kabirpofficial/trackify/internal/storage"
)

// ExpenseService manages expense entries and the summary report. On creation
// it enqueues an export message when an AMQP client is configured; export is
// best-effort and never fails the originating request.
type ExpenseService struct {
	store      *storage.SQLiteRepository
	categories *CategoryService
	amqpClient *amqp.Client
}

func NewExpenseService(store *storage.SQLiteRepository, categories *CategoryService, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		store:      store,
		categories: categories,
		amqpClient: amqpClient,
	}
}

// List returns the caller's expenses with their category joined, most recent
// first.
func (s *ExpenseService) List(ctx context.Context, userID int64) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Create verifies that the category belongs to userID, persists the expense,
// and enqueues it for export. The owning user always comes from the
// authenticated identity, never from the request body.
func (s *ExpenseService) Create(ctx context.Context, userID int64, e core.Expense) (core.Expense, error) {
	category, err := s.categories.GetOwned(ctx, e.CategoryID, userID)
	if err != nil {
		// storage.ErrNotFound propagates: the caller cannot tell a missing
		// category from someone else's.
		return core.Expense{}, err
	}

	e.UserID = userID
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	created.Category = &category

	if err := s.publishExportMessage(ctx, created.ID, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"expense_id", created.ID, "error", err)
		// Don't fail the request - the expense is saved and the pending
		// reconciliation pass will pick it up.
	}

	return created, nil
}

// Summarize loads the caller's expenses and aggregates them by category name.
func (s *ExpenseService) Summarize(ctx context.Context, userID int64) (core.Summary, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load expenses for summary: %w", err)
	}
	return core.Summarize(expenses), nil
}

func (s *ExpenseService) publishExportMessage(ctx context.Context, id, userID int64) error {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not configured, skipping export message")
		return nil
	}
	return s.amqpClient.PublishExpenseCreated(ctx, id, userID, 1)
}

// Close closes the storage and AMQP connections.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
