package worker

import (
	"context"
	"fmt"
	"log/slog"

	"maestro/internal/amqp"
	applog "maestro/internal/log"
	"maestro/internal/sheets"
)

// ReportWorker appends settled invoices to the external invoice log.
type ReportWorker struct {
	log  sheets.InvoiceLogWriter
	logs *applog.Logger
}

func NewReportWorker(log sheets.InvoiceLogWriter) *ReportWorker {
	return &ReportWorker{
		log: log,
		logs: applog.New(applog.Config{
			Component: applog.ComponentWorker,
			Handler:   slog.Default().Handler(),
		}),
	}
}

// HandleInvoicePaid processes a single paid-invoice message. Returning an
// error requeues the message.
func (w *ReportWorker) HandleInvoicePaid(ctx context.Context, msg *amqp.InvoicePaidMessage) error {
	period := fmt.Sprintf("%04d-%02d", msg.Year, msg.Month)

	w.logs.InfoContext(ctx, "Processing invoice paid message",
		applog.FieldCardID, msg.CardID,
		applog.FieldPeriod, period,
		applog.FieldTotalCents, msg.TotalCents)

	entry := sheets.InvoiceLogEntry{
		PaidAt:     msg.Timestamp,
		CardName:   msg.CardName,
		Period:     period,
		TotalCents: msg.TotalCents,
		Updates:    msg.Updates,
	}

	ref, err := w.log.AppendInvoice(ctx, entry)
	if err != nil {
		return fmt.Errorf("append invoice log: %w", err)
	}

	w.logs.InfoContext(ctx, "Invoice logged",
		applog.FieldCardID, msg.CardID,
		applog.FieldOperation, applog.OpAppend,
		applog.FieldSheetsRef, ref)
	return nil
}
