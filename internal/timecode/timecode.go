// Package timecode converts between SRT-style `HH:MM:SS,mmm` timestamps and
// numeric offsets in seconds.
//
// The format is fixed-width: two-digit hours, minutes, and seconds, a comma
// separator, and three-digit milliseconds. Anything else fails to parse.
// Format is the inverse of Parse for every valid timestamp.
package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var timestampPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)

// Parse converts an SRT timestamp to an offset in seconds.
func Parse(value string) (float64, error) {
	match := timestampPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])
	millis, _ := strconv.Atoi(match[4])
	if minutes >= 60 || seconds >= 60 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Format renders an offset in seconds as an SRT timestamp. Negative offsets
// are clamped to zero; sub-millisecond remainders round to the nearest
// millisecond.
func Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	totalMillis -= hours * 3_600_000
	minutes := totalMillis / 60_000
	totalMillis -= minutes * 60_000
	secs := totalMillis / 1000
	millis := totalMillis - secs*1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
