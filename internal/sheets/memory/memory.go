package memory

import (
	"context"
	"fmt"
	"sync"

	"maestro/internal/sheets"
)

// Store is an in-memory invoice log for tests and local runs without
// Google credentials.
type Store struct {
	mu      sync.Mutex
	entries []sheets.InvoiceLogEntry
}

var _ sheets.InvoiceLogWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendInvoice records the entry and returns a synthetic row reference.
func (s *Store) AppendInvoice(_ context.Context, entry sheets.InvoiceLogEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return fmt.Sprintf("mem:%d", len(s.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []sheets.InvoiceLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.InvoiceLogEntry(nil), s.entries...)
}
