package http

import (
	"net/http"
	"time"

	"maestro/internal/core"
	"maestro/internal/storage"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ExpenseFilter{
		Kind:       core.ExpenseKind(q.Get("kind")),
		CardID:     q.Get("card"),
		CreditOnly: q.Get("credit") == "true",
	}

	expenses, err := s.expenses.ListExpenses(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := time.Now().UTC()
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var payload expensePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	e, err := payload.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCardInvoices(created.CreditCardID)

	writeJSON(w, http.StatusCreated, toExpenseResponse(created, time.Now().UTC()))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.GetExpense(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e, time.Now().UTC()))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	// Load first so a card change invalidates both the old and new card.
	previous, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload expensePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	e, err := payload.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = id

	if err := s.expenses.UpdateExpense(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCardInvoices(previous.CreditCardID)
	s.invalidateCardInvoices(e.CreditCardID)

	writeJSON(w, http.StatusOK, toExpenseResponse(e, time.Now().UTC()))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	previous, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCardInvoices(previous.CreditCardID)

	w.WriteHeader(http.StatusNoContent)
}

type installmentRowResponse struct {
	Number     int    `json:"number"`
	Anchor     string `json:"anchor"`
	Period     string `json:"period"`
	ShareCents int64  `json:"share_cents"`
	Paid       bool   `json:"paid"`
}

type installmentPlanResponse struct {
	Rows           []installmentRowResponse `json:"rows"`
	PaidCents      int64                    `json:"paid_cents"`
	RemainingCents int64                    `json:"remaining_cents"`
}

func (s *Server) handleInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	rows, err := s.invoices.InstallmentPlan(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	plan := installmentPlanResponse{Rows: make([]installmentRowResponse, 0, len(rows))}
	for _, row := range rows {
		if row.Paid {
			plan.PaidCents += row.Share.Cents
		} else {
			plan.RemainingCents += row.Share.Cents
		}
		plan.Rows = append(plan.Rows, installmentRowResponse{
			Number:     row.Number,
			Anchor:     row.Anchor.Format("2006-01-02"),
			Period:     row.Period.String(),
			ShareCents: row.Share.Cents,
			Paid:       row.Paid,
		})
	}
	writeJSON(w, http.StatusOK, plan)
}

type paidInstallmentsPayload struct {
	Paid []int `json:"paid"`
}

func (s *Server) handleSetPaidInstallments(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	var payload paidInstallmentsPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.expenses.SetPaidInstallments(r.Context(), id, payload.Paid); err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCardInvoices(e.CreditCardID)

	writeJSON(w, http.StatusOK, toExpenseResponse(e, time.Now().UTC()))
}
