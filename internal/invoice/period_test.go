package invoice

import (
	"testing"
	"time"

	"maestro/internal/core"
)

func TestCurrentPeriod(t *testing.T) {
	tests := []struct {
		name       string
		closingDay int
		ref        time.Time
		want       Period
	}{
		{
			name:       "before closing day - same month",
			closingDay: 10,
			ref:        time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			want:       Period{Year: 2025, Month: time.March},
		},
		{
			name:       "on closing day - same month",
			closingDay: 10,
			ref:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			want:       Period{Year: 2025, Month: time.March},
		},
		{
			name:       "after closing day - next month",
			closingDay: 10,
			ref:        time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
			want:       Period{Year: 2025, Month: time.April},
		},
		{
			name:       "after closing day in December - wraps year",
			closingDay: 10,
			ref:        time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
			want:       Period{Year: 2026, Month: time.January},
		},
		{
			name:       "closing day 31 in February resolves to February's last day",
			closingDay: 31,
			ref:        time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			want:       Period{Year: 2025, Month: time.February},
		},
		{
			name:       "closing day 31 in leap February",
			closingDay: 31,
			ref:        time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			want:       Period{Year: 2024, Month: time.February},
		},
		{
			name:       "closing day 31 in a 30-day month does not roll over",
			closingDay: 31,
			ref:        time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
			want:       Period{Year: 2025, Month: time.April},
		},
		{
			name:       "closing day 29 in non-leap February clamps to 28",
			closingDay: 29,
			ref:        time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			want:       Period{Year: 2025, Month: time.February},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := core.Card{ID: "c1", Name: "Test", ClosingDay: tt.closingDay, DueDay: 20}
			got := CurrentPeriod(card, tt.ref)
			if got != tt.want {
				t.Errorf("CurrentPeriod() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPeriodString(t *testing.T) {
	p := Period{Year: 2025, Month: time.July}
	if got := p.String(); got != "2025-07" {
		t.Errorf("Period.String() = %q, want %q", got, "2025-07")
	}
}

func TestPeriodNext(t *testing.T) {
	p := Period{Year: 2025, Month: time.December}
	want := Period{Year: 2026, Month: time.January}
	if got := p.Next(); got != want {
		t.Errorf("Period.Next() = %v, want %v", got, want)
	}
}

func TestDueDate(t *testing.T) {
	tests := []struct {
		name   string
		dueDay int
		period Period
		want   core.Date
	}{
		{
			name:   "regular due day",
			dueDay: 15,
			period: Period{Year: 2025, Month: time.March},
			want:   core.NewDate(2025, 3, 15),
		},
		{
			name:   "due day 31 clamped in February",
			dueDay: 31,
			period: Period{Year: 2025, Month: time.February},
			want:   core.NewDate(2025, 2, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := core.Card{ID: "c1", Name: "Test", ClosingDay: 5, DueDay: tt.dueDay}
			got := DueDate(card, tt.period)
			if !got.Equal(tt.want.Time) {
				t.Errorf("DueDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     time.Month
		n         int
		wantYear  int
		wantMonth time.Month
	}{
		{"same month", 2025, time.March, 0, 2025, time.March},
		{"within year", 2025, time.March, 2, 2025, time.May},
		{"across year boundary", 2025, time.November, 3, 2026, time.February},
		{"several years", 2025, time.January, 25, 2027, time.February},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m := addMonths(tt.year, tt.month, tt.n)
			if y != tt.wantYear || m != tt.wantMonth {
				t.Errorf("addMonths(%d, %v, %d) = (%d, %v), want (%d, %v)",
					tt.year, tt.month, tt.n, y, m, tt.wantYear, tt.wantMonth)
			}
		})
	}
}
