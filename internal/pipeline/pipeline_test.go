package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"narrate/internal/audio"
	"narrate/internal/config"
	"narrate/internal/media/mux"
	"narrate/internal/runs"
	"narrate/internal/services"
	"narrate/internal/services/gemini"
	"narrate/internal/tts"
	"narrate/internal/videoinput"
)

const sampleScript = `[
  {"id": 1, "start_time": "00:00:00,000", "end_time": "00:00:03,000", "narration_text": "The journey begins."},
  {"id": 2, "start_time": "00:00:04,000", "end_time": "00:00:07,500", "narration_text": "A storm gathers."}
]`

type stubNarrator struct {
	script string
	err    error
	calls  atomic.Int32
}

func (s *stubNarrator) GenerateNarration(ctx context.Context, video gemini.VideoInfo) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.script, nil
}

type stubEngine struct {
	duration float64
	failText string
}

func (s *stubEngine) SynthesizePlain(ctx context.Context, text, outPath string) (tts.Result, error) {
	if err := ctx.Err(); err != nil {
		return tts.Result{}, err
	}
	if s.failText != "" && strings.Contains(text, s.failText) {
		return tts.Result{}, errors.New("synthesis rejected")
	}
	if err := os.WriteFile(outPath, []byte("clip"), 0o644); err != nil {
		return tts.Result{}, err
	}
	return tts.Result{Path: outPath, DurationSeconds: s.duration}, nil
}

func (s *stubEngine) SynthesizeSSML(ctx context.Context, ssml, outPath string) (tts.Result, error) {
	return s.SynthesizePlain(ctx, ssml, outPath)
}

func (s *stubEngine) ClipDuration(ctx context.Context, path string) (float64, error) {
	return s.duration, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.TTS.Workers = 2
	return &cfg
}

func testPipeline(t *testing.T, cfg *config.Config, store *runs.Store, narrator Narrator, engine tts.Engine) *Pipeline {
	t.Helper()
	p := New(cfg, store, narrator, engine, nil)
	p.probe = func(ctx context.Context, ffprobeBinary, path string) (videoinput.Metadata, error) {
		return videoinput.Metadata{
			Path:            path,
			Filename:        filepath.Base(path),
			DurationSeconds: 10,
			SizeBytes:       2048,
		}, nil
	}
	p.render = func(ctx context.Context, plan audio.Plan, outPath string, opts audio.RenderOptions) error {
		return os.WriteFile(outPath, []byte("audio"), 0o644)
	}
	p.muxRun = func(ctx context.Context, req mux.Request) error {
		return os.WriteFile(req.OutputPath, []byte("video"), 0o644)
	}
	return p
}

func TestRunProducesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	narrator := &stubNarrator{script: sampleScript}
	p := testPipeline(t, cfg, nil, narrator, &stubEngine{duration: 2})

	outcome, err := p.Run(context.Background(), "/videos/demo.mp4", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if narrator.calls.Load() != 1 {
		t.Errorf("narrator calls = %d", narrator.calls.Load())
	}
	if len(outcome.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(outcome.Segments))
	}
	for _, path := range []string{outcome.ScriptPath, outcome.SubtitlePath, outcome.AudioPath} {
		if path == "" {
			t.Fatal("artifact path missing")
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact %s: %v", path, err)
		}
	}
	if outcome.OutputPath != "" {
		t.Error("output path should be empty without mux")
	}
	srt, err := os.ReadFile(outcome.SubtitlePath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.Contains(string(srt), "00:00:00,000 --> 00:00:03,000") {
		t.Errorf("srt missing timing line:\n%s", srt)
	}
}

func TestRunWithMux(t *testing.T) {
	cfg := testConfig(t)
	p := testPipeline(t, cfg, nil, &stubNarrator{script: sampleScript}, &stubEngine{duration: 2})

	outcome, err := p.Run(context.Background(), "/videos/demo.mp4", Options{Mux: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.OutputPath == "" {
		t.Fatal("mux should set output path")
	}
	if _, err := os.Stat(outcome.OutputPath); err != nil {
		t.Errorf("muxed output: %v", err)
	}
}

func TestRunScriptOnly(t *testing.T) {
	cfg := testConfig(t)
	p := testPipeline(t, cfg, nil, &stubNarrator{script: sampleScript}, &stubEngine{duration: 2})

	outcome, err := p.Run(context.Background(), "/videos/demo.mp4", Options{ScriptOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.AudioPath != "" {
		t.Error("script-only run should not assemble audio")
	}
	if outcome.SubtitlePath == "" {
		t.Error("script-only run should still write subtitles")
	}
}

func TestRunWithSuppliedScript(t *testing.T) {
	cfg := testConfig(t)
	narrator := &stubNarrator{script: sampleScript}
	p := testPipeline(t, cfg, nil, narrator, &stubEngine{duration: 2})

	scriptPath := filepath.Join(t.TempDir(), "script.json")
	if err := os.WriteFile(scriptPath, []byte("```json\n"+sampleScript+"\n```"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	outcome, err := p.Run(context.Background(), "/videos/demo.mp4", Options{ScriptPath: scriptPath})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if narrator.calls.Load() != 0 {
		t.Error("supplied script should skip the narrator")
	}
	if len(outcome.Segments) != 2 {
		t.Errorf("segments = %d, want 2", len(outcome.Segments))
	}
}

func TestRunFailsWhenNoUsableSegments(t *testing.T) {
	cfg := testConfig(t)
	empty := `[{"start_time": "bogus", "end_time": "also bogus", "narration_text": "x"}]`
	p := testPipeline(t, cfg, nil, &stubNarrator{script: empty}, &stubEngine{duration: 2})

	_, err := p.Run(context.Background(), "/videos/demo.mp4", Options{})
	if !errors.Is(err, services.ErrScriptValidation) {
		t.Errorf("error = %v, want ErrScriptValidation", err)
	}
}

func TestRunFailsWhenSynthesisFails(t *testing.T) {
	cfg := testConfig(t)
	p := testPipeline(t, cfg, nil, &stubNarrator{script: sampleScript},
		&stubEngine{duration: 2, failText: "storm"})

	_, err := p.Run(context.Background(), "/videos/demo.mp4", Options{})
	if !errors.Is(err, services.ErrTTS) {
		t.Errorf("error = %v, want ErrTTS", err)
	}
}

func TestRunFailsWhenNarratorFails(t *testing.T) {
	cfg := testConfig(t)
	narrErr := services.Wrap(services.ErrNarration, "acquiring-script", "gemini", "blocked", nil)
	p := testPipeline(t, cfg, nil, &stubNarrator{err: narrErr}, &stubEngine{duration: 2})

	_, err := p.Run(context.Background(), "/videos/demo.mp4", Options{})
	if !errors.Is(err, services.ErrNarration) {
		t.Errorf("error = %v, want ErrNarration", err)
	}
}

func TestRunRecordsStoreLifecycle(t *testing.T) {
	cfg := testConfig(t)
	store, err := runs.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	p := testPipeline(t, cfg, store, &stubNarrator{script: sampleScript}, &stubEngine{duration: 2})
	outcome, err := p.Run(context.Background(), "/videos/demo.mp4", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := store.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != runs.StatusCompleted {
		t.Errorf("status = %s, want completed", run.Status)
	}
	if run.SegmentCount != 2 {
		t.Errorf("segment count = %d, want 2", run.SegmentCount)
	}
	if run.AudioPath != outcome.AudioPath {
		t.Errorf("audio path = %s, want %s", run.AudioPath, outcome.AudioPath)
	}
}

func TestRunStoreRecordsFailure(t *testing.T) {
	cfg := testConfig(t)
	store, err := runs.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	p := testPipeline(t, cfg, store, &stubNarrator{err: errors.New("api down")}, &stubEngine{duration: 2})
	_, runErr := p.Run(context.Background(), "/videos/demo.mp4", Options{})
	if runErr == nil {
		t.Fatal("expected run failure")
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("runs = %d, want 1", len(all))
	}
	if all[0].Status != runs.StatusFailed {
		t.Errorf("status = %s, want failed", all[0].Status)
	}
	if !strings.Contains(all[0].ErrorMessage, "api down") {
		t.Errorf("error message = %q", all[0].ErrorMessage)
	}
}

func TestSynthesizeUsesWorkerPool(t *testing.T) {
	cfg := testConfig(t)
	cfg.TTS.Workers = 4
	p := testPipeline(t, cfg, nil, nil, &stubEngine{duration: 1.5})

	script := "["
	for i := 0; i < 8; i++ {
		if i > 0 {
			script += ","
		}
		script += fmt.Sprintf(`{"start_time": "00:00:%02d,000", "end_time": "00:00:%02d,000", "narration_text": "segment %d"}`,
			i, i+1, i)
	}
	script += "]"
	p.narrator = &stubNarrator{script: script}

	outcome, err := p.Run(context.Background(), "/videos/demo.mp4", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcome.Segments) != 8 {
		t.Errorf("segments = %d, want 8", len(outcome.Segments))
	}
}

func TestSkipSummary(t *testing.T) {
	script := `[
	  {"start_time": "00:00:00,000", "end_time": "00:00:02,000", "narration_text": "ok"},
	  {"start_time": "00:00:02,000", "end_time": "00:00:04,000", "narration_text": ""},
	  {"narration_text": "no timestamps"}
	]`
	cfg := testConfig(t)
	p := testPipeline(t, cfg, nil, &stubNarrator{script: script}, &stubEngine{duration: 1})

	outcome, err := p.Run(context.Background(), "/videos/demo.mp4", Options{ScriptOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := SkipSummary(outcome.Skipped)
	if len(lines) != 2 {
		t.Fatalf("summary lines = %v", lines)
	}
}
