// Package audio assembles synthesized narration clips into one audio track.
//
// Assembly is split in two: BuildPlan computes the exact sequence of silences
// and speech clips as pure data, and Render realizes that sequence with
// ffmpeg. The split keeps the timing algorithm testable without touching the
// encoder.
//
// The plan guarantees every segment begins at or after its requested onset.
// It deliberately does not guarantee segments end on time: synthesized speech
// runs as long as it runs, and an overrun pushes every later segment back.
// That drift is the accepted trade-off for never trimming or stretching
// speech.
package audio

import (
	"fmt"
	"sort"

	"narrate/internal/script"
	"narrate/internal/services"
)

// Clip is one synthesized speech segment on disk. DurationSeconds is the
// measured duration of the file, not the requested window.
type Clip struct {
	SegmentID       int
	Path            string
	DurationSeconds float64
}

// ItemKind discriminates plan entries.
type ItemKind int

const (
	ItemSilence ItemKind = iota
	ItemSpeech
)

// Item is one stretch of the output timeline.
type Item struct {
	Kind            ItemKind
	DurationSeconds float64
	// Path and SegmentID are set for speech items only.
	Path      string
	SegmentID int
	// OnsetSeconds records where this item begins in the output track.
	OnsetSeconds float64
}

// Plan is the full output timeline.
type Plan struct {
	Items        []Item
	TotalSeconds float64
}

// silenceFloor suppresses sub-millisecond gaps that would otherwise become
// degenerate encoder inputs.
const silenceFloor = 0.001

// BuildPlan lays the clips onto a single timeline in ascending segment id
// order. Every accepted segment must have a clip; a missing or invalid clip
// aborts the whole plan rather than leaving a silent hole that would be
// indistinguishable from an intentionally shorter narration.
func BuildPlan(segments []script.Segment, clips map[int]Clip) (Plan, error) {
	ordered := make([]script.Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var plan Plan
	cursor := 0.0
	for _, segment := range ordered {
		clip, ok := clips[segment.ID]
		if !ok {
			return Plan{}, services.Wrap(services.ErrAssembly, "assembling", "build plan",
				fmt.Sprintf("no clip for segment %d", segment.ID), nil)
		}
		if clip.Path == "" || clip.DurationSeconds <= 0 {
			return Plan{}, services.Wrap(services.ErrAssembly, "assembling", "build plan",
				fmt.Sprintf("clip for segment %d is invalid (path=%q duration=%.3f)", segment.ID, clip.Path, clip.DurationSeconds), nil)
		}

		if lead := segment.StartSeconds - cursor; lead > silenceFloor {
			plan.Items = append(plan.Items, Item{
				Kind:            ItemSilence,
				DurationSeconds: lead,
				OnsetSeconds:    cursor,
			})
			cursor += lead
		}

		plan.Items = append(plan.Items, Item{
			Kind:            ItemSpeech,
			DurationSeconds: clip.DurationSeconds,
			Path:            clip.Path,
			SegmentID:       segment.ID,
			OnsetSeconds:    cursor,
		})
		cursor += clip.DurationSeconds
	}

	plan.TotalSeconds = cursor
	return plan, nil
}

// SpeechOnset returns where the given segment's speech begins in the output
// track, for drift inspection.
func (p Plan) SpeechOnset(segmentID int) (float64, bool) {
	for _, item := range p.Items {
		if item.Kind == ItemSpeech && item.SegmentID == segmentID {
			return item.OnsetSeconds, true
		}
	}
	return 0, false
}
