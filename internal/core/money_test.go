package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.5", 50, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"0", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "R$ 12,34"},
		{100, "R$ 1,00"},
		{5, "R$ 0,05"},
		{-1234, "-R$ 12,34"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
