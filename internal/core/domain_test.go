package core

import (
	"errors"
	"testing"
)

func validCreditExpense() Expense {
	return Expense{
		ID:            "e1",
		Kind:          KindMember,
		Description:   "groceries",
		Amount:        Money{Cents: 12550},
		Date:          NewDate(2025, 3, 15),
		PaymentMethod: MethodCredit,
		CreditCardID:  "card-1",
		Installments:  3,
	}
}

func TestCardValidate(t *testing.T) {
	tests := []struct {
		name    string
		card    Card
		wantErr error
	}{
		{"valid", Card{ID: "c1", Name: "Blue", ClosingDay: 10, DueDay: 20}, nil},
		{"closing day 31 still valid", Card{ID: "c1", Name: "Blue", ClosingDay: 31, DueDay: 20}, nil},
		{"empty name", Card{ID: "c1", Name: "  ", ClosingDay: 10, DueDay: 20}, ErrEmptyName},
		{"closing day zero", Card{ID: "c1", Name: "Blue", ClosingDay: 0, DueDay: 20}, ErrInvalidClosingDay},
		{"closing day 32", Card{ID: "c1", Name: "Blue", ClosingDay: 32, DueDay: 20}, ErrInvalidClosingDay},
		{"due day zero", Card{ID: "c1", Name: "Blue", ClosingDay: 10, DueDay: 0}, ErrInvalidDueDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Expense)
		wantErr error
	}{
		{"valid", func(e *Expense) {}, nil},
		{"invalid kind", func(e *Expense) { e.Kind = "junk" }, ErrInvalidKind},
		{"empty description", func(e *Expense) { e.Description = "" }, ErrEmptyDescription},
		{"zero amount", func(e *Expense) { e.Amount = Money{} }, ErrInvalidAmount},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"invalid method", func(e *Expense) { e.PaymentMethod = "check" }, ErrInvalidMethod},
		{"credit without card", func(e *Expense) { e.CreditCardID = "" }, ErrMissingCard},
		{"paid installment out of range", func(e *Expense) { e.PaidInstallments = []int{4} }, ErrInvalidPaidSet},
		{"paid installment zero", func(e *Expense) { e.PaidInstallments = []int{0} }, ErrInvalidPaidSet},
		{"paid installments within range", func(e *Expense) { e.PaidInstallments = []int{1, 3} }, nil},
		{"cash expense needs no card", func(e *Expense) {
			e.PaymentMethod = MethodCash
			e.CreditCardID = ""
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validCreditExpense()
			tt.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveInstallments(t *testing.T) {
	e := validCreditExpense()
	e.Installments = 0
	if got := e.EffectiveInstallments(); got != 1 {
		t.Errorf("EffectiveInstallments() with zero = %d, want 1", got)
	}
	e.Installments = -3
	if got := e.EffectiveInstallments(); got != 1 {
		t.Errorf("EffectiveInstallments() with negative = %d, want 1", got)
	}
	e.Installments = 12
	if got := e.EffectiveInstallments(); got != 12 {
		t.Errorf("EffectiveInstallments() = %d, want 12", got)
	}
}

func TestHasPaidInstallment(t *testing.T) {
	e := validCreditExpense()
	e.PaidInstallments = []int{1, 3}
	if !e.HasPaidInstallment(1) || !e.HasPaidInstallment(3) {
		t.Error("expected installments 1 and 3 to be paid")
	}
	if e.HasPaidInstallment(2) {
		t.Error("installment 2 should not be paid")
	}
}

func TestIsCreditOnCard(t *testing.T) {
	e := validCreditExpense()
	if !e.IsCreditOnCard("card-1") {
		t.Error("expected match on own card")
	}
	if e.IsCreditOnCard("card-2") {
		t.Error("unexpected match on other card")
	}
	e.PaymentMethod = MethodDebit
	if e.IsCreditOnCard("card-1") {
		t.Error("debit expense must never match")
	}
}
