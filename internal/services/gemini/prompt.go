package gemini

import "fmt"

// narrationPrompt instructs the model to return a timed narration script as a
// JSON list of segments. The timestamp format here must stay in sync with the
// script package parser.
const narrationPrompt = `You are an expert video narrator and storyteller. Your task is to analyze the provided video
and generate an engaging, story-driven narration script. This script should not just describe
what is happening on screen frame-by-frame, but weave a compelling narrative, inferring context,
emotions, and progression, much like an audiobook bringing a film to life.

The narration must:
1.  Cover the entire runtime of the video, starting when the video starts and stopping when it ends.
    Aim for at least 95%% coverage with spoken words, allowing for brief dramatic pauses.
2.  Be synchronized with the video. Spoken words should align with on-screen events
    within a reasonable tolerance (ideally +/- 1 second).
3.  Tell a story, not just provide captions. Avoid literalism like "And then we see...".
    Focus on narrative flow, pacing, tone, and engaging vocabulary.
4.  The output MUST be a valid JSON list of objects. Each object represents a narration segment
    and MUST have the following three keys:
    - "start_time": A string representing the start time of the narration segment in "HH:MM:SS,mmm" format.
    - "end_time": A string representing the end time of the narration segment in "HH:MM:SS,mmm" format.
    - "narration_text": A string containing the spoken words for this segment.

Example of a single JSON object in the list:
{
  "start_time": "00:00:05,123",
  "end_time": "00:00:12,678",
  "narration_text": "The old lighthouse stood defiantly against the raging storm, its beam cutting through the darkness."
}

Ensure the timestamps are accurate and reflect when the narration for that specific text segment
should begin and end in the video. The segments should be sequential and cover the video's duration.
Do not include any other text or explanations outside of the JSON list.
The video's duration is approximately %s.`

// NarrationPrompt renders the narration instruction for a video of the given
// duration.
func NarrationPrompt(durationSeconds float64) string {
	return fmt.Sprintf(narrationPrompt, formatDuration(durationSeconds))
}

func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds + 0.5)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%d hours, %d minutes, and %d seconds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%d minutes and %d seconds", minutes, secs)
	default:
		return fmt.Sprintf("%d seconds", secs)
	}
}
