package runs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a narration run.
type Status string

const (
	StatusPending         Status = "pending"
	StatusAcquiringScript Status = "acquiring_script"
	StatusValidating      Status = "validating"
	StatusSynthesizing    Status = "synthesizing"
	StatusAssembling      Status = "assembling"
	StatusMuxing          Status = "muxing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusAcquiringScript,
	StatusValidating,
	StatusSynthesizing,
	StatusAssembling,
	StatusMuxing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus normalizes a user-supplied status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run is a persisted narration run.
type Run struct {
	ID           string
	VideoPath    string
	Status       Status
	ErrorMessage string
	ScriptPath   string
	SubtitlePath string
	AudioPath    string
	OutputPath   string
	SegmentCount int
	SkippedCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
