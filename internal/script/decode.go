package script

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var markdownFence = regexp.MustCompile(`(?is)^` + "```" + `(?:json)?\s*(.*?)\s*` + "```" + `$`)

// DecodeScript parses the raw model response into candidate segments. The
// response is expected to be a JSON list, optionally wrapped in a markdown
// code fence, which some models emit despite instructions not to.
func DecodeScript(raw string) ([]RawSegment, error) {
	payload := StripMarkdownFence(raw)
	if payload == "" {
		return nil, fmt.Errorf("empty narration script")
	}

	var candidates []RawSegment
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return nil, fmt.Errorf("decode narration script: %w", err)
	}
	return candidates, nil
}

// StripMarkdownFence removes a surrounding ```json ... ``` wrapper when
// present and trims whitespace.
func StripMarkdownFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if match := markdownFence.FindStringSubmatch(trimmed); match != nil {
		return strings.TrimSpace(match[1])
	}
	return trimmed
}
