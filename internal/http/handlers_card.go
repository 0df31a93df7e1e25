package http

import (
	"log/slog"
	"net/http"

	"maestro/internal/core"
	"maestro/internal/services"
)

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.cards.ListCards(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var payload cardPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	created, err := s.cards.CreateCard(r.Context(), core.Card{
		Name:       payload.Name,
		ClosingDay: payload.ClosingDay,
		DueDay:     payload.DueDay,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(created))
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.cards.GetCard(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(card))
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var payload cardPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	card := core.Card{
		ID:         pathID(r),
		Name:       payload.Name,
		ClosingDay: payload.ClosingDay,
		DueDay:     payload.DueDay,
	}
	if err := s.cards.UpdateCard(r.Context(), card); err != nil {
		writeError(w, r, err)
		return
	}

	// A changed closing day moves installments across periods.
	s.invalidateCardInvoices(card.ID)
	writeJSON(w, http.StatusOK, toCardResponse(card))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := s.cards.DeleteCard(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCardInvoices(id)
	w.WriteHeader(http.StatusNoContent)
}

type invoiceLineResponse struct {
	ExpenseID         string `json:"expense_id"`
	Description       string `json:"description"`
	InstallmentNumber int    `json:"installment_number"`
	Installments      int    `json:"installments"`
	Label             string `json:"label"`
	ShareCents        int64  `json:"share_cents"`
	Paid              bool   `json:"paid"`
}

type invoiceResponse struct {
	CardID     string                `json:"card_id"`
	CardName   string                `json:"card_name"`
	Period     string                `json:"period"`
	DueDate    string                `json:"due_date"`
	TotalCents int64                 `json:"total_cents"`
	Total      string                `json:"total"`
	Lines      []invoiceLineResponse `json:"lines"`
}

func toInvoiceResponse(inv services.Invoice) invoiceResponse {
	out := invoiceResponse{
		CardID:     inv.Card.ID,
		CardName:   inv.Card.Name,
		Period:     inv.Period.String(),
		DueDate:    inv.DueDate.Format("2006-01-02"),
		TotalCents: inv.Total.Cents,
		Total:      inv.Total.String(),
		Lines:      make([]invoiceLineResponse, 0, len(inv.Lines)),
	}
	for _, line := range inv.Lines {
		out.Lines = append(out.Lines, invoiceLineResponse{
			ExpenseID:         line.ExpenseID,
			Description:       line.Description,
			InstallmentNumber: line.InstallmentNumber,
			Installments:      line.Installments,
			Label:             line.Label,
			ShareCents:        line.Share.Cents,
			Paid:              line.Paid,
		})
	}
	return out
}

func (s *Server) handleCardInvoice(w http.ResponseWriter, r *http.Request) {
	ref, err := parseRefDate(r)
	if err != nil {
		writeBadRequest(w, "invalid ref date, want YYYY-MM-DD")
		return
	}
	cardID := pathID(r)

	key := invoiceCacheKey(cardID, ref)
	if inv, ok := s.invoiceCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Invoice cache hit", "card", cardID)
		writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
		return
	}

	inv, err := s.invoices.CardInvoice(r.Context(), cardID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invoiceCache.Set(key, inv)
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

type payInvoiceResponse struct {
	CardID     string `json:"card_id"`
	TotalCents int64  `json:"total_cents"`
	Updated    int    `json:"updated"`
}

func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	ref, err := parseRefDate(r)
	if err != nil {
		writeBadRequest(w, "invalid ref date, want YYYY-MM-DD")
		return
	}
	cardID := pathID(r)

	result, err := s.invoices.PayInvoice(r.Context(), cardID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCardInvoices(cardID)

	writeJSON(w, http.StatusOK, payInvoiceResponse{
		CardID:     cardID,
		TotalCents: result.Total.Cents,
		Updated:    len(result.Updates),
	})
}
