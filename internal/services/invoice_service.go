package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maestro/internal/amqp"
	"maestro/internal/core"
	"maestro/internal/invoice"
	applog "maestro/internal/log"
	"maestro/internal/storage"
)

// ErrNotCreditExpense is returned when an installment plan is requested for
// an expense that is not a credit card purchase.
var ErrNotCreditExpense = errors.New("expense is not a credit card purchase")

// InvoiceLine is one installment share falling into an invoice period.
type InvoiceLine struct {
	ExpenseID         string
	Description       string
	InstallmentNumber int
	Installments      int
	Label             string
	Share             core.Money
	Paid              bool
}

// Invoice is the open invoice of a card at a reference instant.
type Invoice struct {
	Card    core.Card
	Period  invoice.Period
	DueDate core.Date
	Total   core.Money
	Lines   []InvoiceLine
}

// InstallmentRow is one entry of an expense's full installment schedule.
type InstallmentRow struct {
	Number int
	Anchor core.Date
	Period invoice.Period
	Share  core.Money
	Paid   bool
}

// PayResult reports what settling an invoice changed.
type PayResult struct {
	Total   core.Money
	Updates []invoice.PaidUpdate
}

// InvoiceService computes invoices from stored cards and expenses and
// settles them.
type InvoiceService struct {
	cards     CardStore
	expenses  ExpenseStore
	publisher EventPublisher
	logs      *applog.StructuredLogger
}

func NewInvoiceService(cards CardStore, expenses ExpenseStore, publisher EventPublisher) *InvoiceService {
	return &InvoiceService{
		cards:     cards,
		expenses:  expenses,
		publisher: publisher,
		logs: applog.NewStructuredLogger(applog.New(applog.Config{
			Component: applog.ComponentInvoice,
			Handler:   slog.Default().Handler(),
		})),
	}
}

func (s *InvoiceService) cardExpenses(ctx context.Context, cardID string) ([]core.Expense, error) {
	return s.expenses.ListExpenses(ctx, storage.ExpenseFilter{
		CardID:     cardID,
		CreditOnly: true,
	})
}

// CardInvoice builds the open invoice of a card as of ref: period, due
// date, total and the per-installment breakdown.
func (s *InvoiceService) CardInvoice(ctx context.Context, cardID string, ref time.Time) (Invoice, error) {
	card, err := s.cards.GetCard(ctx, cardID)
	if err != nil {
		return Invoice{}, fmt.Errorf("load card: %w", err)
	}
	expenses, err := s.cardExpenses(ctx, cardID)
	if err != nil {
		return Invoice{}, fmt.Errorf("list expenses: %w", err)
	}

	byID := make(map[string]core.Expense, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
	}

	period := invoice.CurrentPeriod(card, ref)
	inv := Invoice{
		Card:    card,
		Period:  period,
		DueDate: invoice.DueDate(card, period),
	}
	for _, occ := range invoice.CurrentOccurrences(card, expenses, ref) {
		e := byID[occ.ExpenseID]
		inv.Total.Cents += occ.Share.Cents
		inv.Lines = append(inv.Lines, InvoiceLine{
			ExpenseID:         occ.ExpenseID,
			Description:       e.Description,
			InstallmentNumber: occ.Number,
			Installments:      e.EffectiveInstallments(),
			Label:             invoice.InstallmentLabel(e, ref),
			Share:             occ.Share,
			Paid:              e.HasPaidInstallment(occ.Number),
		})
	}
	return inv, nil
}

// PayInvoice marks every installment in the card's open invoice as paid,
// applying all updates in one transaction. Already-paid installments are
// skipped, so paying twice is a no-op.
func (s *InvoiceService) PayInvoice(ctx context.Context, cardID string, ref time.Time) (PayResult, error) {
	card, err := s.cards.GetCard(ctx, cardID)
	if err != nil {
		return PayResult{}, fmt.Errorf("load card: %w", err)
	}
	expenses, err := s.cardExpenses(ctx, cardID)
	if err != nil {
		return PayResult{}, fmt.Errorf("list expenses: %w", err)
	}

	result := PayResult{
		Total:   invoice.Total(card, expenses, ref),
		Updates: invoice.MarkPaid(card, expenses, ref),
	}
	if len(result.Updates) == 0 {
		slog.InfoContext(ctx, "Invoice already settled", "card", cardID)
		return result, nil
	}

	if err := s.expenses.ApplyPaidInstallments(ctx, result.Updates); err != nil {
		return PayResult{}, fmt.Errorf("apply paid installments: %w", err)
	}

	period := invoice.CurrentPeriod(card, ref)
	s.logs.LogInvoicePaid(ctx, card.ID, period.String(), result.Total.Cents, len(result.Updates))

	if s.publisher != nil {
		msg := amqp.NewInvoicePaidMessage(card.ID, card.Name,
			period.Year, int(period.Month), result.Total.Cents, len(result.Updates))
		if err := s.publisher.PublishInvoicePaid(ctx, msg); err != nil {
			s.logs.LogError(ctx, "Failed to publish invoice paid event", err,
				applog.ComponentInvoice, applog.OpPay,
				applog.NewFields().WithInvoice(card.ID, period.String(), result.Total.Cents))
		}
	}

	return result, nil
}

// InstallmentPlan expands the full installment schedule of a credit expense.
func (s *InvoiceService) InstallmentPlan(ctx context.Context, expenseID string) ([]InstallmentRow, error) {
	e, err := s.expenses.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	if e.PaymentMethod != core.MethodCredit || e.CreditCardID == "" {
		return nil, ErrNotCreditExpense
	}
	card, err := s.cards.GetCard(ctx, e.CreditCardID)
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}

	occurrences := invoice.Occurrences(card.ClosingDay, e)
	rows := make([]InstallmentRow, 0, len(occurrences))
	for _, occ := range occurrences {
		rows = append(rows, InstallmentRow{
			Number: occ.Number,
			Anchor: occ.Anchor,
			Period: occ.Period,
			Share:  occ.Share,
			Paid:   e.HasPaidInstallment(occ.Number),
		})
	}
	return rows, nil
}
