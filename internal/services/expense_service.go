package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"maestro/internal/amqp"
	"maestro/internal/core"
	"maestro/internal/storage"
)

// ExpenseService orchestrates expense writes across SQLite and AMQP.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
}

func NewExpenseService(store ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
	}
}

// CreateExpense validates and saves an expense, then publishes a change
// event. Publish failures are logged, never surfaced: SQLite is the source
// of truth.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = uuid.NewString()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.publishChange(ctx, e.ID, string(e.Kind), "create")
	return e, nil
}

// UpdateExpense validates and saves changes to an existing expense.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.publishChange(ctx, e.ID, string(e.Kind), "update")
	return nil
}

// DeleteExpense soft deletes an expense and publishes a change event.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}
	if err := s.store.SoftDeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}

	s.publishChange(ctx, id, string(e.Kind), "delete")
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, f)
}

// SetPaidInstallments replaces the paid set of an expense. Numbers outside
// [1, installments] are rejected; duplicates collapse in storage.
func (s *ExpenseService) SetPaidInstallments(ctx context.Context, expenseID string, numbers []int) error {
	e, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}

	n := e.EffectiveInstallments()
	for _, num := range numbers {
		if num < 1 || num > n {
			return fmt.Errorf("installment %d of %d: %w", num, n, core.ErrInvalidPaidSet)
		}
	}

	if err := s.store.ReplacePaidInstallments(ctx, expenseID, numbers); err != nil {
		return fmt.Errorf("replace paid installments: %w", err)
	}

	s.publishChange(ctx, expenseID, string(e.Kind), "update")
	return nil
}

func (s *ExpenseService) publishChange(ctx context.Context, id, kind, op string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping change event",
			"id", id, "op", op)
		return
	}

	msg := amqp.NewExpenseChangedMessage(id, kind, op)
	if err := s.publisher.PublishExpenseChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense change",
			"id", id, "op", op, "error", err)
	}
}
