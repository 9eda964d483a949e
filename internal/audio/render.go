package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"narrate/internal/services"
)

// RenderOptions controls encoding of the assembled track.
type RenderOptions struct {
	SampleRate   int
	Channels     int
	Bitrate      string
	FFmpegBinary string
}

func (o RenderOptions) sampleRate() int {
	if o.SampleRate > 0 {
		return o.SampleRate
	}
	return 44100
}

func (o RenderOptions) channelLayout() string {
	if o.Channels == 1 {
		return "mono"
	}
	return "stereo"
}

// Render realizes a plan as a single audio file at outPath. Silences are
// generated with anullsrc, speech clips are read from disk, and everything
// is resampled to a common format before concatenation. The file is written
// to a temporary path and renamed only on success.
func Render(ctx context.Context, plan Plan, outPath string, opts RenderOptions) error {
	if len(plan.Items) == 0 {
		return services.Wrap(services.ErrAssembly, "assembling", "render", "empty plan", nil)
	}
	if strings.TrimSpace(outPath) == "" {
		return services.Wrap(services.ErrAssembly, "assembling", "render", "output path is required", nil)
	}

	binary := strings.TrimSpace(opts.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return services.Wrap(services.ErrAssembly, "assembling", "resolve ffmpeg", "", err)
	}

	args, err := renderArgs(plan, outPath+".partial", opts)
	if err != nil {
		return err
	}

	tmpPath := outPath + ".partial"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, binary, args...)
	if output, runErr := cmd.CombinedOutput(); runErr != nil {
		detail := strings.TrimSpace(string(output))
		return services.Wrap(services.ErrAssembly, "assembling", "ffmpeg", detail, runErr)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return services.Wrap(services.ErrAssembly, "assembling", "finalize output", "", err)
	}
	return nil
}

// renderArgs builds the full ffmpeg invocation for a plan: one input per
// item, a filter graph normalizing each input to a common sample format, and
// a single concat into the output.
func renderArgs(plan Plan, outPath string, opts RenderOptions) ([]string, error) {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	for _, item := range plan.Items {
		switch item.Kind {
		case ItemSilence:
			source := fmt.Sprintf("anullsrc=r=%d:cl=%s", opts.sampleRate(), opts.channelLayout())
			args = append(args,
				"-f", "lavfi",
				"-t", fmt.Sprintf("%.3f", item.DurationSeconds),
				"-i", source,
			)
		case ItemSpeech:
			args = append(args, "-i", item.Path)
		default:
			return nil, services.Wrap(services.ErrAssembly, "assembling", "render", fmt.Sprintf("unknown item kind %d", item.Kind), nil)
		}
	}

	var filter strings.Builder
	for i := range plan.Items {
		fmt.Fprintf(&filter, "[%d:a]aformat=sample_rates=%d:channel_layouts=%s[a%d];",
			i, opts.sampleRate(), opts.channelLayout(), i)
	}
	for i := range plan.Items {
		fmt.Fprintf(&filter, "[a%d]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[out]", len(plan.Items))

	args = append(args, "-filter_complex", filter.String(), "-map", "[out]")
	if opts.Bitrate != "" {
		args = append(args, "-b:a", opts.Bitrate)
	}
	args = append(args, "-f", outputFormat(outPath), outPath)
	return args, nil
}

func outputFormat(path string) string {
	trimmed := strings.TrimSuffix(strings.ToLower(path), ".partial")
	switch {
	case strings.HasSuffix(trimmed, ".wav"):
		return "wav"
	default:
		return "mp3"
	}
}
