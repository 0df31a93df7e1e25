package amqp

import (
	"encoding/json"
	"time"
)

// InvoicePaidMessage reports that a card's open invoice was settled and its
// installment updates applied. The worker consumes it to append a row to the
// invoice log spreadsheet.
type InvoicePaidMessage struct {
	CardID     string    `json:"card_id"`
	CardName   string    `json:"card_name"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	TotalCents int64     `json:"total_cents"`
	Updates    int       `json:"updates"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewInvoicePaidMessage creates a paid-invoice event for the given period.
func NewInvoicePaidMessage(cardID, cardName string, year, month int, totalCents int64, updates int) *InvoicePaidMessage {
	return &InvoicePaidMessage{
		CardID:     cardID,
		CardName:   cardName,
		Year:       year,
		Month:      month,
		TotalCents: totalCents,
		Updates:    updates,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *InvoicePaidMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvoicePaidMessageFromJSON creates a message from JSON bytes
func InvoicePaidMessageFromJSON(data []byte) (*InvoicePaidMessage, error) {
	var msg InvoicePaidMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ExpenseChangedMessage is a lightweight notification that an expense was
// created, updated or deleted. Consumers refetch whatever they need; the
// message deliberately carries no payload beyond identity.
type ExpenseChangedMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"` // create, update, delete
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(id, kind, op string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		ID:        id,
		Kind:      kind,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
