package invoice

import (
	"strconv"
	"time"

	"maestro/internal/core"
)

// Occurrence is one monthly slice of a purchase: installment Number of the
// expense, due in Period, for Share of the total amount.
type Occurrence struct {
	ExpenseID string
	Number    int       // 1-based installment sequence number
	Anchor    core.Date // purchase date advanced Number-1 calendar months
	Period    Period
	Share     core.Money
}

// PaidUpdate is one (expense, installment) pair that a settled invoice marks
// as paid. The caller must apply the full batch atomically, as a set union
// with each expense's existing paid installments.
type PaidUpdate struct {
	ExpenseID         string
	InstallmentNumber int
}

// Occurrences expands an expense into one occurrence per installment, starting
// at the purchase month. The amount is divided equally in whole cents; the
// truncated remainder is NOT redistributed onto the last installment, so the
// shares of an amount not divisible by the installment count sum to slightly
// less than the original (at most installments-1 cents). That mirrors the
// equal-division behavior the dashboards were built on.
//
// Advancing by calendar months clamps the day: a purchase on Jan 31 has its
// second installment anchored at Feb 28/29, not Mar 2.
func Occurrences(closingDay int, e core.Expense) []Occurrence {
	n := e.EffectiveInstallments()
	share := core.Money{Cents: e.Amount.Cents / int64(n)}

	out := make([]Occurrence, 0, n)
	for i := 0; i < n; i++ {
		year, month := addMonths(e.Date.Year(), e.Date.Time.Month(), i)
		day := clampDay(year, month, e.Date.Day())
		out = append(out, Occurrence{
			ExpenseID: e.ID,
			Number:    i + 1,
			Anchor:    core.NewDate(year, int(month), day),
			Period:    periodFor(closingDay, year, month, day),
			Share:     share,
		})
	}
	return out
}

// Total computes the open invoice amount for a card as of ref: the sum of the
// shares of every installment occurrence falling into the current period,
// over all credit expenses charged to the card. Zero when nothing matches.
func Total(card core.Card, expenses []core.Expense, ref time.Time) core.Money {
	current := CurrentPeriod(card, ref)
	var cents int64
	for _, e := range expenses {
		if !e.IsCreditOnCard(card.ID) {
			continue
		}
		for _, occ := range Occurrences(card.ClosingDay, e) {
			if occ.Period == current {
				cents += occ.Share.Cents
			}
		}
	}
	return core.Money{Cents: cents}
}

// CurrentOccurrences returns the occurrences billed into the card's current
// period, for invoice breakdowns.
func CurrentOccurrences(card core.Card, expenses []core.Expense, ref time.Time) []Occurrence {
	current := CurrentPeriod(card, ref)
	var out []Occurrence
	for _, e := range expenses {
		if !e.IsCreditOnCard(card.ID) {
			continue
		}
		for _, occ := range Occurrences(card.ClosingDay, e) {
			if occ.Period == current {
				out = append(out, occ)
			}
		}
	}
	return out
}

// MarkPaid returns the paid-installment updates for settling the card's
// current invoice: one PaidUpdate per current-period occurrence whose
// installment number is not already in the expense's paid set.
//
// Re-running after the updates have been applied yields an empty list, so
// concurrent "mark as paid" actions degrade to no-ops rather than
// double-marking.
func MarkPaid(card core.Card, expenses []core.Expense, ref time.Time) []PaidUpdate {
	current := CurrentPeriod(card, ref)
	var updates []PaidUpdate
	for _, e := range expenses {
		if !e.IsCreditOnCard(card.ID) {
			continue
		}
		for _, occ := range Occurrences(card.ClosingDay, e) {
			if occ.Period != current || e.HasPaidInstallment(occ.Number) {
				continue
			}
			updates = append(updates, PaidUpdate{
				ExpenseID:         e.ID,
				InstallmentNumber: occ.Number,
			})
		}
	}
	return updates
}

// InstallmentLabel derives the "k/N" progress label shown next to a
// multi-installment expense, where k is how many months have elapsed since
// the purchase month, clamped to [1, N]. Single-shot charges get "N/A".
// It shares the month-difference arithmetic with Occurrences so the label
// never disagrees with the schedule.
func InstallmentLabel(e core.Expense, ref time.Time) string {
	n := e.EffectiveInstallments()
	if n <= 1 {
		return "N/A"
	}
	diff := (ref.Year()-e.Date.Year())*12 + int(ref.Month()) - e.Date.Month()
	k := diff + 1
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return strconv.Itoa(k) + "/" + strconv.Itoa(n)
}
