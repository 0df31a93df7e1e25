// Package storage persists cards and expenses in SQLite. The invoice engine
// never touches it: callers read full collections here, hand them to the
// engine, and apply the engine's update batches back through it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"maestro/internal/core"
	"maestro/internal/invoice"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a card or expense does not exist or has been
// deleted.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// DSN pragma so every pooled connection enforces foreign keys.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateCard inserts a new card.
func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_cards (id, name, closing_day, due_day) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.ClosingDay, c.DueDay)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}

	slog.InfoContext(ctx, "Card saved",
		"id", c.ID,
		"name", c.Name,
		"closing_day", c.ClosingDay,
		"due_day", c.DueDay)
	return nil
}

// UpdateCard updates a card's name and billing-cycle parameters.
func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credit_cards SET name = ?, closing_day = ?, due_day = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		c.Name, c.ClosingDay, c.DueDay, c.ID)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return requireRow(res, "card", c.ID)
}

// DeleteCard soft deletes a card. Expenses keep referencing it so historic
// invoices stay reconstructible.
func (r *SQLiteRepository) DeleteCard(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credit_cards SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireRow(res, "card", id)
}

// GetCard returns a single card by ID.
func (r *SQLiteRepository) GetCard(ctx context.Context, id string) (core.Card, error) {
	var c core.Card
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, closing_day, due_day FROM credit_cards WHERE id = ? AND deleted_at IS NULL`, id).
		Scan(&c.ID, &c.Name, &c.ClosingDay, &c.DueDay)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// ListCards returns all cards ordered by name.
func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, closing_day, due_day FROM credit_cards WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []core.Card
	for rows.Next() {
		var c core.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.ClosingDay, &c.DueDay); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateExpense inserts an expense of any kind.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, kind, description, owner, category, amount_cents, date, payment_method, credit_card_id, installments)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Description, e.Owner, e.Category,
		e.Amount.Cents, e.Date.Format(dateLayout), string(e.PaymentMethod),
		nullable(e.CreditCardID), e.EffectiveInstallments())
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"kind", string(e.Kind),
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"payment_method", string(e.PaymentMethod),
		"installments", e.EffectiveInstallments())
	return nil
}

// UpdateExpense replaces the mutable fields of an expense. The paid set is
// managed separately via ReplacePaidInstallments / ApplyPaidInstallments.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET description = ?, owner = ?, category = ?, amount_cents = ?, date = ?,
		        payment_method = ?, credit_card_id = ?, installments = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		e.Description, e.Owner, e.Category, e.Amount.Cents, e.Date.Format(dateLayout),
		string(e.PaymentMethod), nullable(e.CreditCardID), e.EffectiveInstallments(), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res, "expense", e.ID)
}

// SoftDeleteExpense marks an expense deleted without dropping its rows.
func (r *SQLiteRepository) SoftDeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	return requireRow(res, "expense", id)
}

// GetExpense returns a single expense with its paid-installment set.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, kind, description, owner, category, amount_cents, date, payment_method, credit_card_id, installments
		 FROM expenses WHERE id = ? AND deleted_at IS NULL`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}

	paid, err := r.paidSets(ctx, []string{id})
	if err != nil {
		return core.Expense{}, err
	}
	e.PaidInstallments = paid[id]
	return e, nil
}

// ExpenseFilter narrows ListExpenses. Zero values mean no filtering.
type ExpenseFilter struct {
	Kind       core.ExpenseKind
	CardID     string
	CreditOnly bool
}

// ListExpenses returns expenses ordered by date descending, newest first,
// with their paid sets attached.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	q := `SELECT id, kind, description, owner, category, amount_cents, date, payment_method, credit_card_id, installments
	      FROM expenses WHERE deleted_at IS NULL`
	var args []any
	if f.Kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.CardID != "" {
		q += ` AND credit_card_id = ?`
		args = append(args, f.CardID)
	}
	if f.CreditOnly {
		q += ` AND payment_method = ?`
		args = append(args, string(core.MethodCredit))
	}
	q += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	var ids []string
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	paid, err := r.paidSets(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].PaidInstallments = paid[out[i].ID]
	}
	return out, nil
}

// ReplacePaidInstallments overwrites the paid set of one expense. This backs
// the per-expense installment checkboxes, where the user supplies the
// complete new set.
func (r *SQLiteRepository) ReplacePaidInstallments(ctx context.Context, expenseID string, numbers []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace paid installments: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM paid_installments WHERE expense_id = ?`, expenseID); err != nil {
		return fmt.Errorf("clear paid installments: %w", err)
	}
	for _, n := range numbers {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO paid_installments (expense_id, number) VALUES (?, ?)`,
			expenseID, n); err != nil {
			return fmt.Errorf("insert paid installment %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace paid installments: %w", err)
	}

	slog.InfoContext(ctx, "Paid installments replaced",
		"expense_id", expenseID,
		"count", len(numbers))
	return nil
}

// ApplyPaidInstallments applies the engine's mark-invoice-paid batch as a
// single transaction: all pairs land or none do. INSERT OR IGNORE gives the
// union-not-overwrite semantics that keep concurrent settlements idempotent.
func (r *SQLiteRepository) ApplyPaidInstallments(ctx context.Context, updates []invoice.PaidUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin paid installments batch: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO paid_installments (expense_id, number) VALUES (?, ?)`,
			u.ExpenseID, u.InstallmentNumber); err != nil {
			return fmt.Errorf("apply paid installment %s/%d: %w", u.ExpenseID, u.InstallmentNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit paid installments batch: %w", err)
	}

	slog.InfoContext(ctx, "Paid installments batch applied", "updates", len(updates))
	return nil
}

// paidSets loads the paid-installment numbers for the given expense IDs.
func (r *SQLiteRepository) paidSets(ctx context.Context, ids []string) (map[string][]int, error) {
	out := make(map[string][]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_id, number FROM paid_installments WHERE expense_id IN (`+placeholders+`) ORDER BY number`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("load paid installments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan paid installment: %w", err)
		}
		out[id] = append(out[id], n)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var e core.Expense
	var kind, method, date string
	var cardID sql.NullString
	if err := s.Scan(&e.ID, &kind, &e.Description, &e.Owner, &e.Category,
		&e.Amount.Cents, &date, &method, &cardID, &e.Installments); err != nil {
		return core.Expense{}, err
	}
	e.Kind = core.ExpenseKind(kind)
	e.PaymentMethod = core.PaymentMethod(method)
	e.CreditCardID = cardID.String

	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	e.Date = core.Date{Time: t}
	return e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}
