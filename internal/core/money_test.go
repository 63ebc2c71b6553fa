package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12", 1200, true},
		{"0.01", 1, true},
		{"12.345", 1234, true}, // rounds down
		{"12.346", 1235, true}, // rounds up
		{".50", 50, true},
		{"", 0, false},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"12a", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseDecimalToCents(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseDecimalToCents(%q) expected error", tc.in)
		}
		if tc.ok && got != tc.cents {
			t.Fatalf("ParseDecimalToCents(%q) = %d, want %d", tc.in, got, tc.cents)
		}
	}
}

func TestParseAmount(t *testing.T) {
	m, err := ParseAmount("99.99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cents != 9999 {
		t.Fatalf("expected 9999 cents, got %d", m.Cents)
	}
	if _, err := ParseAmount("nope"); err == nil {
		t.Fatal("expected error")
	}
}
