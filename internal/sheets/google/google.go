package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "maestro/internal/sheets"
)

// Client appends settled invoices to a Google Sheets spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logSheet      string
}

var _ ports.InvoiceLogWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS).
// Optional: GOOGLE_INVOICE_SHEET_NAME (default "Invoices").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	logSheet := strings.TrimSpace(os.Getenv("GOOGLE_INVOICE_SHEET_NAME"))
	if logSheet == "" {
		logSheet = "Invoices"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logSheet:      logSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// AppendInvoice writes one log row after the last used row of the log sheet.
func (c *Client) AppendInvoice(ctx context.Context, entry ports.InvoiceLogEntry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Find the next empty row from the sheet's current extent.
	rng := fmt.Sprintf("%s!A:A", c.logSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.logSheet, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:E%d", c.logSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{logRow(entry)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// logRow flattens an entry into a sheet row: date, card, period, total in
// currency units, updated installment count.
func logRow(entry ports.InvoiceLogEntry) []any {
	return []any{
		entry.PaidAt.Format("2006-01-02"),
		entry.CardName,
		entry.Period,
		float64(entry.TotalCents) / 100.0,
		entry.Updates,
	}
}
