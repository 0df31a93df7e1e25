package invoice

import (
	"testing"
	"time"

	"maestro/internal/core"
)

func creditExpense(id string, amountCents int64, date core.Date, installments int, paid []int) core.Expense {
	return core.Expense{
		ID:               id,
		Kind:             core.KindMember,
		Description:      "test purchase",
		Amount:           core.Money{Cents: amountCents},
		Date:             date,
		PaymentMethod:    core.MethodCredit,
		CreditCardID:     "card-1",
		Installments:     installments,
		PaidInstallments: paid,
	}
}

func TestOccurrences_SingleInstallment(t *testing.T) {
	card := core.Card{ID: "card-1", Name: "Blue", ClosingDay: 10, DueDay: 20}
	e := creditExpense("e1", 5000, core.NewDate(2025, 3, 4), 0, nil)

	occs := Occurrences(card.ClosingDay, e)
	if len(occs) != 1 {
		t.Fatalf("Occurrences() returned %d occurrences, want 1", len(occs))
	}
	if occs[0].Share.Cents != 5000 {
		t.Errorf("share = %d cents, want full amount 5000", occs[0].Share.Cents)
	}
	// A single occurrence bills into the period open at the purchase date.
	want := CurrentPeriod(card, e.Date.Time)
	if occs[0].Period != want {
		t.Errorf("period = %v, want %v", occs[0].Period, want)
	}
}

func TestOccurrences_SpecSchedule(t *testing.T) {
	// Closing day 10, purchase on the 15th of March, 3 installments of 100.
	// Every anchor lands after the closing day, so each slice bills one
	// month ahead of its anchor month.
	e := creditExpense("e1", 30000, core.NewDate(2025, 3, 15), 3, nil)

	occs := Occurrences(10, e)
	if len(occs) != 3 {
		t.Fatalf("Occurrences() returned %d occurrences, want 3", len(occs))
	}

	wantPeriods := []Period{
		{Year: 2025, Month: time.April},
		{Year: 2025, Month: time.May},
		{Year: 2025, Month: time.June},
	}
	for i, occ := range occs {
		if occ.Number != i+1 {
			t.Errorf("occurrence %d: number = %d, want %d", i, occ.Number, i+1)
		}
		if occ.Share.Cents != 10000 {
			t.Errorf("occurrence %d: share = %d cents, want 10000", i, occ.Share.Cents)
		}
		if occ.Period != wantPeriods[i] {
			t.Errorf("occurrence %d: period = %v, want %v", i, occ.Period, wantPeriods[i])
		}
	}
}

func TestOccurrences_OnClosingDayStaysInMonth(t *testing.T) {
	// Purchase exactly on the closing day belongs to that month's invoice.
	e := creditExpense("e1", 1000, core.NewDate(2025, 3, 10), 1, nil)
	occs := Occurrences(10, e)
	want := Period{Year: 2025, Month: time.March}
	if occs[0].Period != want {
		t.Errorf("period = %v, want %v", occs[0].Period, want)
	}
}

func TestOccurrences_ClosingDayClampedBeforeComparison(t *testing.T) {
	// Closing day 28, purchase on Jan 30: the same-month anchor is Jan 28,
	// the purchase falls after it, so the slice bills into February.
	e := creditExpense("e1", 1000, core.NewDate(2025, 1, 30), 1, nil)
	occs := Occurrences(28, e)
	want := Period{Year: 2025, Month: time.February}
	if occs[0].Period != want {
		t.Errorf("period = %v, want %v", occs[0].Period, want)
	}
}

func TestOccurrences_AnchorDayClamping(t *testing.T) {
	// Purchase on Jan 31: monthly anchors clamp to short months instead of
	// rolling into the next one.
	e := creditExpense("e1", 9000, core.NewDate(2025, 1, 31), 3, nil)
	occs := Occurrences(15, e)

	wantAnchors := []core.Date{
		core.NewDate(2025, 1, 31),
		core.NewDate(2025, 2, 28),
		core.NewDate(2025, 3, 31),
	}
	for i, occ := range occs {
		if !occ.Anchor.Equal(wantAnchors[i].Time) {
			t.Errorf("occurrence %d: anchor = %v, want %v", i, occ.Anchor, wantAnchors[i])
		}
	}
	// The clamped Feb 28 anchor is still past closing day 15, so the
	// February slice bills into March.
	if occs[1].Period != (Period{Year: 2025, Month: time.March}) {
		t.Errorf("february slice period = %v, want 2025 March", occs[1].Period)
	}
}

func TestOccurrences_EqualDivisionTruncates(t *testing.T) {
	// 100.00 over 3 installments: 33.33 each, 1 cent of dust is dropped and
	// deliberately not redistributed onto the last installment.
	e := creditExpense("e1", 10000, core.NewDate(2025, 3, 1), 3, nil)
	occs := Occurrences(10, e)

	var sum int64
	for _, occ := range occs {
		if occ.Share.Cents != 3333 {
			t.Errorf("share = %d cents, want 3333", occ.Share.Cents)
		}
		sum += occ.Share.Cents
	}
	if sum > e.Amount.Cents {
		t.Errorf("sum of shares %d exceeds amount %d", sum, e.Amount.Cents)
	}
	if e.Amount.Cents-sum >= int64(len(occs)) {
		t.Errorf("truncation dust %d cents, want less than %d", e.Amount.Cents-sum, len(occs))
	}
}

func TestTotal(t *testing.T) {
	card := core.Card{ID: "card-1", Name: "Blue", ClosingDay: 10, DueDay: 20}
	other := creditExpense("e3", 99900, core.NewDate(2025, 3, 15), 1, nil)
	other.CreditCardID = "card-2"
	cash := creditExpense("e4", 88800, core.NewDate(2025, 3, 15), 1, nil)
	cash.PaymentMethod = core.MethodCash
	cash.CreditCardID = ""

	expenses := []core.Expense{
		// 3 x 100.00 billed into April, May, June.
		creditExpense("e1", 30000, core.NewDate(2025, 3, 15), 3, nil),
		// Single shot on Mar 2, before closing: bills into March.
		creditExpense("e2", 4550, core.NewDate(2025, 3, 2), 1, nil),
		other, // different card
		cash,  // not credit
	}

	tests := []struct {
		name string
		ref  time.Time
		want int64
	}{
		{
			name: "march period sees only the pre-closing single shot",
			ref:  time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
			want: 4550,
		},
		{
			name: "april period sees first installment",
			ref:  time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			want: 10000,
		},
		{
			name: "june period sees last installment",
			ref:  time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC),
			want: 10000,
		},
		{
			name: "period after the schedule is empty",
			ref:  time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Total(card, expenses, tt.ref)
			if got.Cents != tt.want {
				t.Errorf("Total() = %d cents, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestTotal_NoMatchesIsZeroNotError(t *testing.T) {
	card := core.Card{ID: "card-1", Name: "Blue", ClosingDay: 10, DueDay: 20}
	got := Total(card, nil, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC))
	if got.Cents != 0 {
		t.Errorf("Total() with no expenses = %d cents, want 0", got.Cents)
	}
}

func TestMarkPaid(t *testing.T) {
	card := core.Card{ID: "card-1", Name: "Blue", ClosingDay: 10, DueDay: 20}
	ref := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC) // April period

	expenses := []core.Expense{
		// First installment bills into April.
		creditExpense("e1", 30000, core.NewDate(2025, 3, 15), 3, nil),
		// Second installment (Apr 2 anchor) bills into April, already paid.
		creditExpense("e2", 20000, core.NewDate(2025, 3, 2), 2, []int{2}),
	}

	updates := MarkPaid(card, expenses, ref)
	if len(updates) != 1 {
		t.Fatalf("MarkPaid() returned %d updates, want 1: %v", len(updates), updates)
	}
	if updates[0].ExpenseID != "e1" || updates[0].InstallmentNumber != 1 {
		t.Errorf("update = %+v, want e1 installment 1", updates[0])
	}
}

func TestMarkPaid_Idempotent(t *testing.T) {
	card := core.Card{ID: "card-1", Name: "Blue", ClosingDay: 10, DueDay: 20}
	ref := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	expenses := []core.Expense{
		creditExpense("e1", 30000, core.NewDate(2025, 3, 15), 3, nil),
		creditExpense("e2", 4550, core.NewDate(2025, 3, 12), 1, nil),
	}

	first := MarkPaid(card, expenses, ref)
	if len(first) == 0 {
		t.Fatal("MarkPaid() first run returned no updates")
	}

	// Apply the updates as a set union, the way the batch executor would.
	byID := map[string]*core.Expense{}
	for i := range expenses {
		byID[expenses[i].ID] = &expenses[i]
	}
	for _, u := range first {
		e := byID[u.ExpenseID]
		if !e.HasPaidInstallment(u.InstallmentNumber) {
			e.PaidInstallments = append(e.PaidInstallments, u.InstallmentNumber)
		}
	}

	second := MarkPaid(card, expenses, ref)
	if len(second) != 0 {
		t.Errorf("MarkPaid() second run returned %d updates, want 0: %v", len(second), second)
	}
}

func TestInstallmentLabel(t *testing.T) {
	purchase := core.NewDate(2025, 3, 15)

	tests := []struct {
		name         string
		installments int
		ref          time.Time
		want         string
	}{
		{
			name:         "single shot gets sentinel",
			installments: 1,
			ref:          time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			want:         "N/A",
		},
		{
			name:         "missing installments treated as single shot",
			installments: 0,
			ref:          time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			want:         "N/A",
		},
		{
			name:         "purchase month is first installment",
			installments: 3,
			ref:          time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			want:         "1/3",
		},
		{
			name:         "one month later",
			installments: 3,
			ref:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			want:         "2/3",
		},
		{
			name:         "clamped at last installment",
			installments: 3,
			ref:          time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			want:         "3/3",
		},
		{
			name:         "reference before purchase month clamps to first",
			installments: 3,
			ref:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:         "1/3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := creditExpense("e1", 30000, purchase, tt.installments, nil)
			got := InstallmentLabel(e, tt.ref)
			if got != tt.want {
				t.Errorf("InstallmentLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInstallmentLabel_UndefinedInstallmentsSingleOccurrence(t *testing.T) {
	// installments unset, amount 50.00: label is the sentinel and the
	// expansion is one occurrence carrying the full amount.
	e := creditExpense("e1", 5000, core.NewDate(2025, 3, 4), 0, nil)
	if got := InstallmentLabel(e, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)); got != "N/A" {
		t.Errorf("InstallmentLabel() = %q, want %q", got, "N/A")
	}
	occs := Occurrences(10, e)
	if len(occs) != 1 || occs[0].Share.Cents != 5000 {
		t.Errorf("Occurrences() = %+v, want one occurrence of 5000 cents", occs)
	}
}
