// Package script validates and normalizes narration scripts produced by the
// video-understanding model.
//
// The model's output is untrusted: segments may be missing fields, carry
// malformed timestamps, run backwards, overlap their neighbors, or spill past
// the end of the video. Normalize repairs what can be repaired
// deterministically and skips the rest, reporting every skip so the caller
// can see exactly what was dropped. Accepted segments are strictly ordered
// and never overlap.
package script

import "strings"

// RawSegment is one untrusted candidate from the decoded narration script.
type RawSegment struct {
	ID            any    `json:"id,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	NarrationText string `json:"narration_text"`
	Text          string `json:"text"`
}

// NarrationText takes precedence; Text is tolerated as a fallback key since
// the model occasionally emits it instead.
func (r RawSegment) narration() string {
	if text := strings.TrimSpace(r.NarrationText); text != "" {
		return text
	}
	return strings.TrimSpace(r.Text)
}

// Segment is a validated narration segment. Instances are created only by
// Normalize and are immutable afterwards.
type Segment struct {
	// ID is the 1-based position among accepted segments, ascending in
	// output order.
	ID           int
	StartSeconds float64
	EndSeconds   float64
	Text         string
}

// DurationSeconds returns the requested window length.
func (s Segment) DurationSeconds() float64 {
	return s.EndSeconds - s.StartSeconds
}

// SkipReason identifies why a candidate was rejected.
type SkipReason string

const (
	SkipEmptyText        SkipReason = "empty_text"
	SkipMissingTimestamp SkipReason = "missing_timestamp"
	SkipBadTimestamp     SkipReason = "bad_timestamp"
	SkipInverted         SkipReason = "inverted_unrepairable"
	SkipClampedEmpty     SkipReason = "clamped_empty"
	SkipOverlap          SkipReason = "overlap_unrepairable"
)

// Skip reports one rejected candidate. Index is the 1-based position in the
// raw input, not an accepted-segment id.
type Skip struct {
	Index  int
	Reason SkipReason
	Detail string
}

// Result carries the accepted sequence together with everything that was
// rejected. Skips are informational; an empty Segments slice is the caller's
// signal that the script is unusable.
type Result struct {
	Segments []Segment
	Skipped  []Skip
}
