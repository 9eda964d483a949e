package audio

import (
	"context"
	"strings"
	"testing"

	"narrate/internal/script"
)

func planFor(t *testing.T) Plan {
	t.Helper()
	segments := []script.Segment{
		{ID: 1, StartSeconds: 1.0, EndSeconds: 3.0, Text: "one"},
		{ID: 2, StartSeconds: 4.0, EndSeconds: 6.0, Text: "two"},
	}
	clips := map[int]Clip{
		1: {SegmentID: 1, Path: "/clips/one.mp3", DurationSeconds: 2.0},
		2: {SegmentID: 2, Path: "/clips/two.mp3", DurationSeconds: 2.0},
	}
	plan, err := BuildPlan(segments, clips)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	return plan
}

func TestRenderArgsBuildsConcatGraph(t *testing.T) {
	plan := planFor(t)
	args, err := renderArgs(plan, "/out/narration.mp3.partial", RenderOptions{
		SampleRate: 48000,
		Channels:   1,
		Bitrate:    "192k",
	})
	if err != nil {
		t.Fatalf("renderArgs: %v", err)
	}
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-f lavfi -t 1.000 -i anullsrc=r=48000:cl=mono") {
		t.Errorf("missing leading silence input:\n%s", joined)
	}
	if !strings.Contains(joined, "-i /clips/one.mp3") || !strings.Contains(joined, "-i /clips/two.mp3") {
		t.Errorf("missing speech inputs:\n%s", joined)
	}
	if !strings.Contains(joined, "concat=n=4:v=0:a=1[out]") {
		t.Errorf("concat should cover all four items:\n%s", joined)
	}
	if !strings.Contains(joined, "aformat=sample_rates=48000:channel_layouts=mono") {
		t.Errorf("inputs should be normalized before concat:\n%s", joined)
	}
	if !strings.Contains(joined, "-b:a 192k") {
		t.Errorf("bitrate not applied:\n%s", joined)
	}
	if args[len(args)-2] != "mp3" || args[len(args)-1] != "/out/narration.mp3.partial" {
		t.Errorf("output format/path tail = %v", args[len(args)-2:])
	}
}

func TestRenderArgsWavOutput(t *testing.T) {
	plan := planFor(t)
	args, err := renderArgs(plan, "/out/narration.wav.partial", RenderOptions{})
	if err != nil {
		t.Fatalf("renderArgs: %v", err)
	}
	if args[len(args)-2] != "wav" {
		t.Errorf("format = %s, want wav", args[len(args)-2])
	}
}

func TestRenderRejectsEmptyPlan(t *testing.T) {
	err := Render(context.Background(), Plan{}, "/out/x.mp3", RenderOptions{})
	if err == nil {
		t.Fatal("expected error for empty plan")
	}
}
