package timecode

import (
	"math"
	"testing"
)

func TestParseValid(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{"00:00:00,000", 0},
		{"00:00:01,500", 1.5},
		{"00:01:02,003", 62.003},
		{"01:00:00,000", 3600},
		{"10:59:59,999", 39599.999},
	}
	for _, tc := range cases {
		got, err := Parse(tc.input)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.input, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Parse(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	inputs := []string{
		"",
		"00:00:01",
		"00:00:01.500",
		"0:00:01,500",
		"00:00:01,50",
		"00-00-01,500",
		"00:61:00,000",
		"00:00:61,000",
		"abc",
		" 00:00:01,500",
	}
	for _, input := range inputs {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	inputs := []string{
		"00:00:00,000",
		"00:00:01,500",
		"00:12:34,567",
		"02:03:04,005",
		"99:59:59,999",
	}
	for _, input := range inputs {
		seconds, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", input, err)
		}
		if got := Format(seconds); got != input {
			t.Errorf("Format(Parse(%q)) = %q", input, got)
		}
	}
}

func TestFormatClampsNegative(t *testing.T) {
	if got := Format(-3.2); got != "00:00:00,000" {
		t.Errorf("Format(-3.2) = %q, want zero timestamp", got)
	}
}

func TestFormatRoundsMilliseconds(t *testing.T) {
	if got := Format(1.2345); got != "00:00:01,235" {
		t.Errorf("Format(1.2345) = %q, want 00:00:01,235", got)
	}
}
