// Package invoice implements the credit-card billing-cycle engine: which
// installment of which purchase falls into which monthly invoice, the open
// invoice total for a card, and the paid-installment updates produced when an
// invoice is settled.
//
// Everything here is a pure function over in-memory cards and expenses; the
// engine performs no I/O and callers recompute on every data change.
package invoice

import (
	"fmt"
	"time"

	"maestro/internal/core"
)

// Period identifies a monthly billing cycle by the year and month of its
// closing date. It is derived on every query, never persisted.
type Period struct {
	Year  int
	Month time.Month
}

// String renders the period as "2025-07".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Next returns the period one month later.
func (p Period) Next() Period {
	y, m := addMonths(p.Year, p.Month, 1)
	return Period{Year: y, Month: m}
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampDay caps day to the last valid day of the month. A closing day of 31
// evaluated in February must resolve to Feb 28/29, not roll into March.
func clampDay(year int, month time.Month, day int) int {
	if last := lastDayOfMonth(year, month); day > last {
		return last
	}
	return day
}

// addMonths advances a (year, month) pair by n calendar months.
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	m := int(month) - 1 + n
	year += m / 12
	m = m % 12
	if m < 0 {
		m += 12
		year--
	}
	return year, time.Month(m + 1)
}

// periodFor assigns the invoice period for an anchor date: the same-month
// closing anchor is the closing day clamped to the month length, and a date
// strictly after it belongs to the following month's period.
func periodFor(closingDay int, year int, month time.Month, day int) Period {
	p := Period{Year: year, Month: month}
	if day > clampDay(year, month, closingDay) {
		return p.Next()
	}
	return p
}

// CurrentPeriod determines the invoice period that is open as of ref. If ref
// is on or before the card's closing day (clamped for short months), the
// period is ref's own month; otherwise the next one.
func CurrentPeriod(card core.Card, ref time.Time) Period {
	return periodFor(card.ClosingDay, ref.Year(), ref.Month(), ref.Day())
}

// DueDate returns the calendar date the invoice for p becomes payable,
// clamping the card's due day against short months. Display only; it does not
// participate in period computation.
func DueDate(card core.Card, p Period) core.Date {
	return core.NewDate(p.Year, int(p.Month), clampDay(p.Year, p.Month, card.DueDay))
}
