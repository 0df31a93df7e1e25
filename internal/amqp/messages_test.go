package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestInvoicePaidMessageRoundTrip(t *testing.T) {
	msg := NewInvoicePaidMessage("card-1", "Nubank", 2025, 7, 12050, 3)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := InvoicePaidMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if got.CardID != "card-1" || got.CardName != "Nubank" {
		t.Errorf("card mismatch: got %s/%s", got.CardID, got.CardName)
	}
	if got.Year != 2025 || got.Month != 7 {
		t.Errorf("period mismatch: got %d-%d", got.Year, got.Month)
	}
	if got.TotalCents != 12050 {
		t.Errorf("total mismatch: got %d", got.TotalCents)
	}
	if got.Updates != 3 {
		t.Errorf("updates mismatch: got %d", got.Updates)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestExpenseChangedMessageRoundTrip(t *testing.T) {
	msg := NewExpenseChangedMessage("e-42", "transaction", "update")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := ExpenseChangedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if got.ID != "e-42" || got.Kind != "transaction" || got.Op != "update" {
		t.Errorf("unexpected message: %+v", got)
	}
}

func TestInvoicePaidMessageFromJSONInvalid(t *testing.T) {
	if _, err := InvoicePaidMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := exponentialBackoff(tt.attempt); got != tt.want {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"channel not open", errors.New("Exception (504) Reason: \"channel/connection is not open\""), true},
		{"deliveries closed", ErrDeliveriesClosed, true},
		{"wrapped deliveries closed", fmt.Errorf("consume: %w", ErrDeliveriesClosed), true},
		{"unrelated", errors.New("invalid payload"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
