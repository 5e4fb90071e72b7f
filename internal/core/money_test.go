package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"50", "50", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"$30", "30", true},
		{" 2.50 ", "2.5", true},
		{"0.01", "0.01", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"$", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("50.00")); got != "50" {
		t.Fatalf("FormatAmount = %q, want 50", got)
	}
	if got := FormatAmount(decimal.RequireFromString("12.50")); got != "12.5" {
		t.Fatalf("FormatAmount = %q, want 12.5", got)
	}
	if got := FormatPercent(decimal.RequireFromString("33.333")); got != "33.3" {
		t.Fatalf("FormatPercent = %q, want 33.3", got)
	}
	if got := Percent(decimal.NewFromInt(1), decimal.Zero); !got.IsZero() {
		t.Fatalf("Percent with zero whole = %s, want 0", got)
	}
	if got := Percent(decimal.NewFromInt(25), decimal.NewFromInt(200)); !got.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("Percent = %s, want 12.5", got)
	}
}
