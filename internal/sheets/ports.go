package sheets

import (
	"context"
	"time"
)

// InvoiceLogEntry is one row of the invoice payment log.
type InvoiceLogEntry struct {
	PaidAt     time.Time
	CardName   string
	Period     string // "2025-07"
	TotalCents int64
	Updates    int
}

// InvoiceLogWriter appends settled invoices to an external log.
type InvoiceLogWriter interface {
	AppendInvoice(ctx context.Context, entry InvoiceLogEntry) (rowRef string, err error)
}
