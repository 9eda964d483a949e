package runs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"narrate/internal/runs"
)

func openStore(t *testing.T) *runs.Store {
	t.Helper()
	store, err := runs.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id := uuid.NewString()
	created, err := store.Create(ctx, id, "/videos/demo.mp4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != runs.StatusPending {
		t.Errorf("status = %s, want pending", created.Status)
	}

	fetched, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.VideoPath != "/videos/demo.mp4" {
		t.Errorf("video path = %s", fetched.VideoPath)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestGetMissingRun(t *testing.T) {
	store := openStore(t)
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, runs.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	if _, err := store.Create(ctx, id, "/v.mp4"); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, status := range []runs.Status{
		runs.StatusAcquiringScript,
		runs.StatusValidating,
		runs.StatusSynthesizing,
		runs.StatusAssembling,
		runs.StatusMuxing,
		runs.StatusCompleted,
	} {
		if err := store.SetStatus(ctx, id, status); err != nil {
			t.Fatalf("set status %s: %v", status, err)
		}
		run, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if run.Status != status {
			t.Errorf("status = %s, want %s", run.Status, status)
		}
	}
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	if _, err := store.Create(ctx, id, "/v.mp4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetStatus(ctx, id, runs.Status("bogus")); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestMarkFailed(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	if _, err := store.Create(ctx, id, "/v.mp4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.MarkFailed(ctx, id, "tts: synthesis failed"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.Status != runs.StatusFailed {
		t.Errorf("status = %s, want failed", run.Status)
	}
	if run.ErrorMessage != "tts: synthesis failed" {
		t.Errorf("error message = %q", run.ErrorMessage)
	}
}

func TestRecordArtifacts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	if _, err := store.Create(ctx, id, "/v.mp4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	artifacts := runs.Artifacts{
		ScriptPath:   "/out/script.json",
		SubtitlePath: "/out/narration.srt",
		AudioPath:    "/out/narration.mp3",
		OutputPath:   "/out/narrated.mp4",
		SegmentCount: 12,
		SkippedCount: 2,
	}
	if err := store.RecordArtifacts(ctx, id, artifacts); err != nil {
		t.Fatalf("record artifacts: %v", err)
	}
	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.AudioPath != artifacts.AudioPath || run.SubtitlePath != artifacts.SubtitlePath {
		t.Errorf("artifact paths not persisted: %+v", run)
	}
	if run.SegmentCount != 12 || run.SkippedCount != 2 {
		t.Errorf("counts = %d/%d, want 12/2", run.SegmentCount, run.SkippedCount)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := uuid.NewString()
	second := uuid.NewString()
	if _, err := store.Create(ctx, first, "/a.mp4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, second, "/b.mp4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetStatus(ctx, second, runs.StatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}

	completed, err := store.List(ctx, runs.StatusCompleted)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != second {
		t.Errorf("completed = %+v", completed)
	}
}

func TestClearRemovesTerminalRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	active := uuid.NewString()
	done := uuid.NewString()
	if _, err := store.Create(ctx, active, "/a.mp4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, done, "/b.mp4"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetStatus(ctx, done, runs.StatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != active {
		t.Errorf("remaining = %+v", remaining)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := runs.ParseStatus("  Completed "); !ok || status != runs.StatusCompleted {
		t.Errorf("ParseStatus(Completed) = %s, %v", status, ok)
	}
	if _, ok := runs.ParseStatus("nonsense"); ok {
		t.Error("ParseStatus(nonsense) should fail")
	}
}
