package duration

import (
	"testing"
	"time"
)

func TestParseSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"42", 42 * time.Second},
		{"3.", 3 * time.Second},
		{"4.2", 4*time.Second + 200_000_000*time.Nanosecond},
		{"5.34", 5*time.Second + 340_000_000*time.Nanosecond},
		{"6.567891234", 6*time.Second + 567_891_234*time.Nanosecond},
		// Sub-nanosecond precision truncates rather than rounds: the
		// 10th digit ('7') is dropped, not used to round the 9th up.
		{"7.8901234567", 7*time.Second + 890_123_456*time.Nanosecond},
		{"0", 0},
		{"0.000000000", 0},
	}
	for _, c := range cases {
		got, err := ParseSeconds(c.in)
		if err != nil {
			t.Fatalf("ParseSeconds(%q) unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseSeconds(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseSecondsInvalid(t *testing.T) {
	if _, err := ParseSeconds("abc"); err == nil {
		t.Error("expected error for non-numeric whole part")
	}
}
