package script

import (
	"strings"
	"testing"
)

func TestRenderSRT(t *testing.T) {
	segments := []Segment{
		{ID: 1, StartSeconds: 1.5, EndSeconds: 5, Text: "First cue."},
		{ID: 2, StartSeconds: 6, EndSeconds: 10.25, Text: "Second cue.\nSecond line."},
	}
	got := RenderSRT(segments)

	want := "1\n00:00:01,500 --> 00:00:05,000\nFirst cue.\n" +
		"\n" +
		"2\n00:00:06,000 --> 00:00:10,250\nSecond cue.\nSecond line.\n"
	if got != want {
		t.Errorf("RenderSRT mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderSRTCueCountAndOrder(t *testing.T) {
	result := Normalize([]RawSegment{
		seg("00:00:01,000", "00:00:02,000", "a"),
		seg("00:00:03,000", "00:00:04,000", "b"),
		seg("00:00:05,000", "00:00:06,000", "c"),
	}, 0, Options{})
	doc := RenderSRT(result.Segments)

	blocks := strings.Split(strings.TrimSpace(doc), "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("rendered %d cues, want 3", len(blocks))
	}
	for i, block := range blocks {
		lines := strings.SplitN(block, "\n", 3)
		if lines[0] != []string{"1", "2", "3"}[i] {
			t.Errorf("cue %d has index line %q", i, lines[0])
		}
		if !strings.Contains(lines[1], " --> ") {
			t.Errorf("cue %d missing timestamp separator: %q", i, lines[1])
		}
	}
}

func TestRenderSRTEmpty(t *testing.T) {
	if got := RenderSRT(nil); got != "" {
		t.Errorf("RenderSRT(nil) = %q, want empty", got)
	}
}
