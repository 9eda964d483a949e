package script

import (
	"fmt"

	"narrate/internal/timecode"
)

// DefaultMinSegmentSeconds is the duration floor applied when repairing a
// segment whose end does not follow its start.
const DefaultMinSegmentSeconds = 0.5

// Options controls normalization thresholds.
type Options struct {
	// MinSegmentSeconds is the repaired duration for inverted or
	// zero-length segments. Zero selects DefaultMinSegmentSeconds.
	MinSegmentSeconds float64
}

func (o Options) minSegment() float64 {
	if o.MinSegmentSeconds > 0 {
		return o.MinSegmentSeconds
	}
	return DefaultMinSegmentSeconds
}

// Normalize validates candidates in input order and produces the accepted,
// strictly ordered segment sequence plus a report of every rejection.
//
// videoDuration, when positive, bounds every timestamp; pass zero when the
// source duration is unknown. Normalize never fails on malformed individual
// candidates: the worst case is an empty accepted sequence.
func Normalize(candidates []RawSegment, videoDuration float64, opts Options) Result {
	minSegment := opts.minSegment()

	result := Result{
		Segments: make([]Segment, 0, len(candidates)),
		Skipped:  nil,
	}

	var prevEnd float64
	for i, candidate := range candidates {
		index := i + 1
		skip := func(reason SkipReason, detail string) {
			result.Skipped = append(result.Skipped, Skip{Index: index, Reason: reason, Detail: detail})
		}

		text := candidate.narration()
		if text == "" {
			skip(SkipEmptyText, "narration text missing or empty")
			continue
		}
		if candidate.StartTime == "" || candidate.EndTime == "" {
			skip(SkipMissingTimestamp, "start_time and end_time are required")
			continue
		}

		start, err := timecode.Parse(candidate.StartTime)
		if err != nil {
			skip(SkipBadTimestamp, fmt.Sprintf("start_time: %v", err))
			continue
		}
		end, err := timecode.Parse(candidate.EndTime)
		if err != nil {
			skip(SkipBadTimestamp, fmt.Sprintf("end_time: %v", err))
			continue
		}

		// Inverted or zero-length windows get a fixed-duration repair,
		// unless that repair would collide with the next candidate.
		if start >= end {
			repaired := start + minSegment
			if next, ok := nextStart(candidates, i); ok && repaired > next {
				skip(SkipInverted, fmt.Sprintf("start %.3f >= end %.3f and repair would overlap next segment", start, end))
				continue
			}
			end = repaired
		}

		if videoDuration > 0 {
			start = clamp(start, 0, videoDuration)
			end = clamp(end, 0, videoDuration)
			if end-start <= 0 {
				skip(SkipClampedEmpty, fmt.Sprintf("window collapsed after clamping to %.3fs video", videoDuration))
				continue
			}
		}

		// Earlier segment wins the contested interval.
		if start < prevEnd {
			start = prevEnd
			if start >= end {
				skip(SkipOverlap, fmt.Sprintf("window fully covered by previous segment ending at %.3f", prevEnd))
				continue
			}
		}

		result.Segments = append(result.Segments, Segment{
			ID:           len(result.Segments) + 1,
			StartSeconds: start,
			EndSeconds:   end,
			Text:         text,
		})
		prevEnd = end
	}

	return result
}

// nextStart returns the parsed start time of the first candidate after index
// i that has a parseable start, if any.
func nextStart(candidates []RawSegment, i int) (float64, bool) {
	for _, candidate := range candidates[i+1:] {
		if candidate.StartTime == "" {
			continue
		}
		start, err := timecode.Parse(candidate.StartTime)
		if err != nil {
			continue
		}
		return start, true
	}
	return 0, false
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
