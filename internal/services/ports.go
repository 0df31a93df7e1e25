package services

import (
	"context"

	"maestro/internal/amqp"
	"maestro/internal/core"
	"maestro/internal/invoice"
	"maestro/internal/storage"
)

// CardStore is the slice of the repository the card and invoice services need.
type CardStore interface {
	CreateCard(ctx context.Context, c core.Card) error
	UpdateCard(ctx context.Context, c core.Card) error
	DeleteCard(ctx context.Context, id string) error
	GetCard(ctx context.Context, id string) (core.Card, error)
	ListCards(ctx context.Context) ([]core.Card, error)
}

// ExpenseStore is the slice of the repository the expense and invoice
// services need.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) error
	UpdateExpense(ctx context.Context, e core.Expense) error
	SoftDeleteExpense(ctx context.Context, id string) error
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error)
	ReplacePaidInstallments(ctx context.Context, expenseID string, numbers []int) error
	ApplyPaidInstallments(ctx context.Context, updates []invoice.PaidUpdate) error
}

// EventPublisher publishes domain events to the broker. A nil publisher is
// allowed; services log and carry on, the local write is the source of truth.
type EventPublisher interface {
	PublishInvoicePaid(ctx context.Context, msg *amqp.InvoicePaidMessage) error
	PublishExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error
}
