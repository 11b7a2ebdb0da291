package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRound_HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2.345", "2.35"},
		{"2.344", "2.34"},
		{"-2.345", "-2.35"},
		{"0.005", "0.01"},
		{"0.125", "0.13"}, // banker's rounding would give 0.12
		{"10", "10.00"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := Round(decimal.RequireFromString(tc.in))
			if got.StringFixed(2) != tc.want {
				t.Errorf("Round(%s) = %s, want %s", tc.in, got.StringFixed(2), tc.want)
			}
		})
	}
}

func TestSum_IsExact(t *testing.T) {
	got := Sum(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"), decimal.RequireFromString("0.005"))
	if !got.Equal(decimal.RequireFromString("0.305")) {
		t.Fatalf("Sum = %s, want 0.305", got)
	}
	if !Sum().IsZero() {
		t.Fatal("empty Sum should be zero")
	}
}

func TestString(t *testing.T) {
	if got := String(decimal.NewFromInt(5)); got != "5.00" {
		t.Fatalf("String = %q", got)
	}
}
