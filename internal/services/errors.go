// Package services defines the error taxonomy shared by every pipeline stage
// and the narrow clients that talk to external collaborators.
//
// Errors are tagged with sentinel markers so callers can classify a failure
// without parsing message text. Wrap attaches stage and operation context to
// an error while preserving the marker for errors.Is checks.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks failures reading or probing the source video.
	ErrInput = errors.New("video input error")
	// ErrNarration marks upstream model failures and unparsable responses.
	ErrNarration = errors.New("narration generation error")
	// ErrScriptValidation marks a script with zero usable segments.
	ErrScriptValidation = errors.New("script validation error")
	// ErrTTS marks per-segment synthesis failures.
	ErrTTS = errors.New("tts error")
	// ErrAssembly marks timeline assembly failures, including missing clips.
	ErrAssembly = errors.New("assembly error")
	// ErrMux marks failures combining the assembled audio with the video.
	ErrMux = errors.New("mux error")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures that may succeed on retry.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Marker returns the taxonomy sentinel carried by err, or nil when the error
// is untagged.
func Marker(err error) error {
	for _, sentinel := range []error{
		ErrInput,
		ErrNarration,
		ErrScriptValidation,
		ErrTTS,
		ErrAssembly,
		ErrMux,
		ErrConfiguration,
		ErrTransient,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
