package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindTransaction ExpenseKind = "transaction"
	KindMember      ExpenseKind = "member"
	KindThirdParty  ExpenseKind = "third_party"
)

const (
	MethodCash            PaymentMethod = "cash"
	MethodInstantTransfer PaymentMethod = "instant_transfer"
	MethodDebit           PaymentMethod = "debit"
	MethodCredit          PaymentMethod = "credit"
)

type (
	// ExpenseKind tags the three structurally identical expense variants
	// (personal transaction, family-member expense, third-party expense).
	ExpenseKind string

	PaymentMethod string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Card holds a credit card's billing-cycle parameters. ClosingDay is the
	// day of month the cycle cuts off; DueDay is when the invoice is payable.
	Card struct {
		ID         string
		Name       string
		ClosingDay int
		DueDay     int
	}

	// Expense is the shared shape of all three expense kinds. CreditCardID,
	// Installments and PaidInstallments are only meaningful when the payment
	// method is credit.
	Expense struct {
		ID               string
		Kind             ExpenseKind
		Description      string
		Owner            string // who the expense belongs to (member/third-party kinds)
		Category         string
		Amount           Money
		Date             Date
		PaymentMethod    PaymentMethod
		CreditCardID     string
		Installments     int
		PaidInstallments []int
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidClosingDay = errors.New("closing day must be between 1 and 31")
	ErrInvalidDueDay     = errors.New("due day must be between 1 and 31")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyDescription  = errors.New("empty description")
	ErrInvalidKind       = errors.New("invalid expense kind")
	ErrInvalidMethod     = errors.New("invalid payment method")
	ErrMissingCard       = errors.New("credit expense requires a card")
	ErrInvalidPaidSet    = errors.New("paid installments outside 1..installments")
)

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k ExpenseKind) Valid() bool {
	switch k {
	case KindTransaction, KindMember, KindThirdParty:
		return true
	default:
		return false
	}
}

func (pm PaymentMethod) Valid() bool {
	switch pm {
	case MethodCash, MethodInstantTransfer, MethodDebit, MethodCredit:
		return true
	default:
		return false
	}
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidClosingDay
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

// EffectiveInstallments returns the installment count, treating missing or
// non-positive values as a single-shot charge. Legacy records may lack the
// field entirely.
func (e Expense) EffectiveInstallments() int {
	if e.Installments < 1 {
		return 1
	}
	return e.Installments
}

// HasPaidInstallment reports whether installment n is in the paid set.
func (e Expense) HasPaidInstallment(n int) bool {
	for _, p := range e.PaidInstallments {
		if p == n {
			return true
		}
	}
	return false
}

// IsCreditOnCard reports whether the expense is a credit purchase charged to
// the given card.
func (e Expense) IsCreditOnCard(cardID string) bool {
	return e.PaymentMethod == MethodCredit && e.CreditCardID == cardID
}

func (e Expense) Validate() error {
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.PaymentMethod.Valid() {
		return ErrInvalidMethod
	}
	if e.PaymentMethod == MethodCredit && strings.TrimSpace(e.CreditCardID) == "" {
		return ErrMissingCard
	}
	n := e.EffectiveInstallments()
	for _, p := range e.PaidInstallments {
		if p < 1 || p > n {
			return ErrInvalidPaidSet
		}
	}
	return nil
}
