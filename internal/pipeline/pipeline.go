// Package pipeline coordinates a narration run from source video to
// assembled audio.
//
// A run moves through fixed stages: probe the video, acquire a narration
// script, validate and normalize it, synthesize each segment, assemble the
// timeline, and optionally mux the result back into the video container.
// Every stage transition is persisted to the run store so interrupted runs
// remain inspectable.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"narrate/internal/audio"
	"narrate/internal/config"
	"narrate/internal/logging"
	"narrate/internal/media/mux"
	"narrate/internal/runs"
	"narrate/internal/script"
	"narrate/internal/services"
	"narrate/internal/services/gemini"
	"narrate/internal/tts"
	"narrate/internal/videoinput"
)

// Narrator produces a raw narration script for a video. The returned text is
// expected to be a JSON list of segments, already stripped of markdown
// fencing.
type Narrator interface {
	GenerateNarration(ctx context.Context, video gemini.VideoInfo) (string, error)
}

// Options controls a single run.
type Options struct {
	// ScriptPath supplies a pre-written narration script, skipping the
	// video-understanding call entirely.
	ScriptPath string
	// ScriptOnly stops the run after validation, leaving the script and
	// subtitle artifacts but synthesizing nothing.
	ScriptOnly bool
	// Mux combines the assembled narration with the source video into a new
	// container after assembly.
	Mux bool
}

// Outcome reports the artifacts a completed run produced.
type Outcome struct {
	RunID        string
	Video        videoinput.Metadata
	Segments     []script.Segment
	Skipped      []script.Skip
	ScriptPath   string
	SubtitlePath string
	AudioPath    string
	OutputPath   string
}

// Pipeline executes narration runs.
type Pipeline struct {
	cfg      *config.Config
	store    *runs.Store
	narrator Narrator
	engine   tts.Engine
	logger   *slog.Logger

	probe  func(ctx context.Context, ffprobeBinary, path string) (videoinput.Metadata, error)
	render func(ctx context.Context, plan audio.Plan, outPath string, opts audio.RenderOptions) error
	muxRun func(ctx context.Context, req mux.Request) error
}

// New assembles a pipeline from its collaborators. The store may be nil for
// ephemeral runs; state transitions are then skipped.
func New(cfg *config.Config, store *runs.Store, narrator Narrator, engine tts.Engine, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		narrator: narrator,
		engine:   engine,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		probe:    videoinput.Probe,
		render:   audio.Render,
		muxRun:   mux.Run,
	}
}

// Run narrates the video at videoPath.
func (p *Pipeline) Run(ctx context.Context, videoPath string, opts Options) (*Outcome, error) {
	runID := uuid.NewString()
	logger := p.logger.With(logging.String(logging.FieldRunID, runID))

	if p.store != nil {
		if _, err := p.store.Create(ctx, runID, videoPath); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	outcome, err := p.execute(ctx, runID, videoPath, opts, logger)
	if err != nil {
		if p.store != nil {
			if markErr := p.store.MarkFailed(context.WithoutCancel(ctx), runID, err.Error()); markErr != nil {
				logger.Warn("record failure", logging.Error(markErr))
			}
		}
		return nil, err
	}
	if p.store != nil {
		if setErr := p.store.SetStatus(ctx, runID, runs.StatusCompleted); setErr != nil {
			logger.Warn("record completion", logging.Error(setErr))
		}
	}
	return outcome, nil
}

func (p *Pipeline) execute(ctx context.Context, runID, videoPath string, opts Options, logger *slog.Logger) (*Outcome, error) {
	video, err := p.probe(ctx, p.cfg.Assembly.FFprobeBinary, videoPath)
	if err != nil {
		return nil, err
	}
	logger.Info("video probed",
		logging.String("video", video.Filename),
		logging.Float64("duration_seconds", video.DurationSeconds))

	workDir := filepath.Join(p.cfg.Paths.WorkDir, runID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "acquiring-script", "create work dir", "", err)
	}
	if err := os.MkdirAll(p.cfg.Paths.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "acquiring-script", "create output dir", "", err)
	}

	if err := p.setStatus(ctx, runID, runs.StatusAcquiringScript); err != nil {
		return nil, err
	}
	raw, err := p.acquireScript(ctx, video, opts, logger)
	if err != nil {
		return nil, err
	}
	scriptPath := filepath.Join(workDir, "script_raw.json")
	if err := os.WriteFile(scriptPath, []byte(raw), 0o644); err != nil {
		return nil, services.Wrap(services.ErrNarration, "acquiring-script", "write raw script", "", err)
	}

	if err := p.setStatus(ctx, runID, runs.StatusValidating); err != nil {
		return nil, err
	}
	candidates, err := script.DecodeScript(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrScriptValidation, "validating", "decode script", "", err)
	}
	result := script.Normalize(candidates, video.DurationSeconds, script.Options{
		MinSegmentSeconds: p.cfg.Validator.MinSegmentSeconds,
	})
	for _, skip := range result.Skipped {
		logger.Warn("segment skipped",
			logging.Int("index", skip.Index),
			logging.String("reason", string(skip.Reason)),
			logging.String("detail", skip.Detail))
	}
	if len(result.Segments) == 0 {
		return nil, services.Wrap(services.ErrScriptValidation, "validating", "normalize script",
			fmt.Sprintf("no usable segments (%d candidates, %d skipped)", len(candidates), len(result.Skipped)), nil)
	}
	logger.Info("script validated",
		logging.Int("segments", len(result.Segments)),
		logging.Int("skipped", len(result.Skipped)))

	subtitlePath := filepath.Join(p.cfg.Paths.OutputDir, video.BaseName()+"_narration.srt")
	if err := os.WriteFile(subtitlePath, []byte(script.RenderSRT(result.Segments)), 0o644); err != nil {
		return nil, services.Wrap(services.ErrScriptValidation, "validating", "write subtitles", "", err)
	}

	outcome := &Outcome{
		RunID:        runID,
		Video:        video,
		Segments:     result.Segments,
		Skipped:      result.Skipped,
		ScriptPath:   scriptPath,
		SubtitlePath: subtitlePath,
	}
	p.recordArtifacts(ctx, runID, outcome, logger)
	if opts.ScriptOnly {
		return outcome, nil
	}

	if err := p.setStatus(ctx, runID, runs.StatusSynthesizing); err != nil {
		return nil, err
	}
	clips, err := p.synthesize(ctx, workDir, result.Segments, logger)
	if err != nil {
		return nil, err
	}

	if err := p.setStatus(ctx, runID, runs.StatusAssembling); err != nil {
		return nil, err
	}
	plan, err := audio.BuildPlan(result.Segments, clips)
	if err != nil {
		return nil, err
	}
	audioPath := filepath.Join(p.cfg.Paths.OutputDir,
		video.BaseName()+"_narration."+p.cfg.Assembly.AudioFormat)
	renderOpts := audio.RenderOptions{
		SampleRate:   p.cfg.Assembly.SampleRate,
		Channels:     p.cfg.Assembly.Channels,
		Bitrate:      p.cfg.Assembly.AudioBitrate,
		FFmpegBinary: p.cfg.Assembly.FFmpegBinary,
	}
	if err := p.render(ctx, plan, audioPath, renderOpts); err != nil {
		return nil, err
	}
	outcome.AudioPath = audioPath
	logger.Info("timeline assembled",
		logging.Float64("total_seconds", plan.TotalSeconds),
		logging.String("audio", audioPath))

	if opts.Mux {
		if err := p.setStatus(ctx, runID, runs.StatusMuxing); err != nil {
			return nil, err
		}
		outputPath := filepath.Join(p.cfg.Paths.OutputDir,
			video.BaseName()+"_narrated"+filepath.Ext(video.Path))
		if err := p.muxRun(ctx, mux.Request{
			VideoPath:    video.Path,
			AudioPath:    audioPath,
			OutputPath:   outputPath,
			FFmpegBinary: p.cfg.Assembly.FFmpegBinary,
		}); err != nil {
			return nil, err
		}
		outcome.OutputPath = outputPath
		logger.Info("muxed", logging.String("output", outputPath))
	}

	p.recordArtifacts(ctx, runID, outcome, logger)
	return outcome, nil
}

func (p *Pipeline) acquireScript(ctx context.Context, video videoinput.Metadata, opts Options, logger *slog.Logger) (string, error) {
	if opts.ScriptPath != "" {
		data, err := os.ReadFile(opts.ScriptPath)
		if err != nil {
			return "", services.Wrap(services.ErrInput, "acquiring-script", "read script file", "", err)
		}
		logger.Info("using supplied script", logging.String("path", opts.ScriptPath))
		return script.StripMarkdownFence(string(data)), nil
	}
	if p.narrator == nil {
		return "", services.Wrap(services.ErrConfiguration, "acquiring-script", "gemini",
			"no narrator configured and no script supplied", nil)
	}
	logger.Info("requesting narration script",
		logging.Float64("duration_seconds", video.DurationSeconds),
		logging.Int("size_bytes", int(video.SizeBytes)))
	return p.narrator.GenerateNarration(ctx, gemini.VideoInfo{
		Path:            video.Path,
		DurationSeconds: video.DurationSeconds,
		SizeBytes:       video.SizeBytes,
	})
}

// synthesize renders every segment to its own clip using a bounded worker
// pool. The first failure cancels the remaining work; a narration with holes
// in it is worse than no narration.
func (p *Pipeline) synthesize(ctx context.Context, workDir string, segments []script.Segment, logger *slog.Logger) (map[int]audio.Clip, error) {
	workers := p.cfg.TTS.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(segments) {
		workers = len(segments)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan script.Segment)
	var (
		mu       sync.Mutex
		clips    = make(map[int]audio.Clip, len(segments))
		firstErr error
	)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for segment := range jobs {
				clip, err := p.synthesizeSegment(ctx, workDir, segment)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
				} else {
					clips[segment.ID] = clip
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, segment := range segments {
		select {
		case jobs <- segment:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTTS, "synthesizing", "synthesize segments", "", err)
	}
	logger.Info("segments synthesized", logging.Int("clips", len(clips)))
	return clips, nil
}

func (p *Pipeline) synthesizeSegment(ctx context.Context, workDir string, segment script.Segment) (audio.Clip, error) {
	outPath := filepath.Join(workDir, fmt.Sprintf("segment_%03d.%s", segment.ID, p.cfg.Assembly.AudioFormat))
	result, err := tts.Synthesize(ctx, p.engine, segment.Text, outPath)
	if err != nil {
		return audio.Clip{}, services.Wrap(services.ErrTTS, "synthesizing",
			fmt.Sprintf("segment %d", segment.ID), "", err)
	}
	return audio.Clip{
		SegmentID:       segment.ID,
		Path:            result.Path,
		DurationSeconds: result.DurationSeconds,
	}, nil
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status runs.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.store == nil {
		return nil
	}
	if err := p.store.SetStatus(ctx, runID, status); err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	return nil
}

func (p *Pipeline) recordArtifacts(ctx context.Context, runID string, outcome *Outcome, logger *slog.Logger) {
	if p.store == nil {
		return
	}
	err := p.store.RecordArtifacts(context.WithoutCancel(ctx), runID, runs.Artifacts{
		ScriptPath:   outcome.ScriptPath,
		SubtitlePath: outcome.SubtitlePath,
		AudioPath:    outcome.AudioPath,
		OutputPath:   outcome.OutputPath,
		SegmentCount: len(outcome.Segments),
		SkippedCount: len(outcome.Skipped),
	})
	if err != nil {
		logger.Warn("record artifacts", logging.Error(err))
	}
}

// SkipSummary renders skip reports grouped by reason for operator output.
func SkipSummary(skips []script.Skip) []string {
	counts := make(map[script.SkipReason]int)
	for _, skip := range skips {
		counts[skip.Reason]++
	}
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	lines := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		lines = append(lines, fmt.Sprintf("%s: %d", reason, counts[script.SkipReason(reason)]))
	}
	return lines
}
