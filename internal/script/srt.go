package script

import (
	"strconv"
	"strings"

	"narrate/internal/timecode"
)

// RenderSRT derives a SubRip document from accepted segments: one cue per
// segment, cue index equal to the segment id, text verbatim. Cues are
// separated by blank lines per the SRT convention.
func RenderSRT(segments []Segment) string {
	if len(segments) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(segments))
	var b strings.Builder
	for _, segment := range segments {
		b.Reset()
		b.WriteString(strconv.Itoa(segment.ID))
		b.WriteByte('\n')
		b.WriteString(timecode.Format(segment.StartSeconds))
		b.WriteString(" --> ")
		b.WriteString(timecode.Format(segment.EndSeconds))
		b.WriteByte('\n')
		b.WriteString(segment.Text)
		b.WriteByte('\n')
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}
