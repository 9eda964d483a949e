// Package tts defines the capability contract every speech engine must
// implement.
//
// The pipeline holds only the Engine interface; any backend that can
// synthesize plain text, synthesize SSML, and report clip duration may be
// substituted. Synthesize dispatches between the two synthesis operations by
// detecting an SSML wrapper.
package tts

import (
	"context"
	"strings"
)

// Result describes one synthesized clip on disk. DurationSeconds is the
// measured duration of the written file.
type Result struct {
	Path            string
	DurationSeconds float64
}

// Engine is the capability set required of a speech backend.
type Engine interface {
	SynthesizePlain(ctx context.Context, text, outPath string) (Result, error)
	SynthesizeSSML(ctx context.Context, ssml, outPath string) (Result, error)
	ClipDuration(ctx context.Context, path string) (float64, error)
}

// Synthesize routes text to the appropriate engine operation.
func Synthesize(ctx context.Context, engine Engine, text, outPath string) (Result, error) {
	if IsSSML(text) {
		return engine.SynthesizeSSML(ctx, text, outPath)
	}
	return engine.SynthesizePlain(ctx, text, outPath)
}

// IsSSML reports whether text carries an SSML document wrapper.
func IsSSML(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "<speak>") && strings.HasSuffix(trimmed, "</speak>")
}
