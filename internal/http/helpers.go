package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"maestro/internal/core"
	"maestro/internal/invoice"
	applog "maestro/internal/log"
	"maestro/internal/services"
	"maestro/internal/storage"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNotCreditExpense),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidClosingDay),
		errors.Is(err, core.ErrInvalidDueDay),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidMethod),
		errors.Is(err, core.ErrMissingCard),
		errors.Is(err, core.ErrInvalidPaidSet):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		// The context logger already carries the request ID.
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err.Error())
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// cardPayload is the request shape for creating and updating cards.
type cardPayload struct {
	Name       string `json:"name"`
	ClosingDay int    `json:"closing_day"`
	DueDay     int    `json:"due_day"`
}

type cardResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ClosingDay int    `json:"closing_day"`
	DueDay     int    `json:"due_day"`
}

func toCardResponse(c core.Card) cardResponse {
	return cardResponse{
		ID:         c.ID,
		Name:       c.Name,
		ClosingDay: c.ClosingDay,
		DueDay:     c.DueDay,
	}
}

// expensePayload is the request shape for creating and updating expenses.
// Amount accepts either a decimal string ("12,34" or "12.34") or cents.
type expensePayload struct {
	Kind             string `json:"kind"`
	Description      string `json:"description"`
	Owner            string `json:"owner,omitempty"`
	Category         string `json:"category,omitempty"`
	Amount           string `json:"amount,omitempty"`
	AmountCents      int64  `json:"amount_cents,omitempty"`
	Date             string `json:"date"`
	PaymentMethod    string `json:"payment_method"`
	CreditCardID     string `json:"credit_card_id,omitempty"`
	Installments     int    `json:"installments,omitempty"`
	PaidInstallments []int  `json:"paid_installments,omitempty"`
}

func (p expensePayload) toExpense() (core.Expense, error) {
	cents := p.AmountCents
	if p.Amount != "" {
		parsed, err := core.ParseDecimalToCents(p.Amount)
		if err != nil {
			return core.Expense{}, err
		}
		cents = parsed
	}

	var date core.Date
	if p.Date != "" {
		t, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return core.Expense{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, p.Date)
		}
		date = core.Date{Time: t}
	}

	return core.Expense{
		Kind:             core.ExpenseKind(p.Kind),
		Description:      p.Description,
		Owner:            p.Owner,
		Category:         p.Category,
		Amount:           core.Money{Cents: cents},
		Date:             date,
		PaymentMethod:    core.PaymentMethod(p.PaymentMethod),
		CreditCardID:     p.CreditCardID,
		Installments:     p.Installments,
		PaidInstallments: p.PaidInstallments,
	}, nil
}

type expenseResponse struct {
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	Description      string `json:"description"`
	Owner            string `json:"owner,omitempty"`
	Category         string `json:"category,omitempty"`
	AmountCents      int64  `json:"amount_cents"`
	Amount           string `json:"amount"`
	Date             string `json:"date"`
	PaymentMethod    string `json:"payment_method"`
	CreditCardID     string `json:"credit_card_id,omitempty"`
	Installments     int    `json:"installments,omitempty"`
	PaidInstallments []int  `json:"paid_installments,omitempty"`
	InstallmentLabel string `json:"installment_label"`
}

func toExpenseResponse(e core.Expense, ref time.Time) expenseResponse {
	return expenseResponse{
		ID:               e.ID,
		Kind:             string(e.Kind),
		Description:      e.Description,
		Owner:            e.Owner,
		Category:         e.Category,
		AmountCents:      e.Amount.Cents,
		Amount:           e.Amount.String(),
		Date:             e.Date.Format("2006-01-02"),
		PaymentMethod:    string(e.PaymentMethod),
		CreditCardID:     e.CreditCardID,
		Installments:     e.Installments,
		PaidInstallments: e.PaidInstallments,
		InstallmentLabel: invoice.InstallmentLabel(e, ref),
	}
}
