package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"narrate/internal/services"
)

func writeVideo(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func candidateResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
}

func TestGenerateNarrationInline(t *testing.T) {
	videoPath := writeVideo(t, 64)
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(candidateResponse("[{\"start_time\":\"00:00:00,000\"}]"))
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:                   "k",
		BaseURL:                  server.URL,
		MaxInlineDurationSeconds: 60,
		MaxInlineSizeMB:          20,
	})
	text, err := client.GenerateNarration(context.Background(), VideoInfo{
		Path:            videoPath,
		DurationSeconds: 12,
		SizeBytes:       64,
	})
	if err != nil {
		t.Fatalf("GenerateNarration: %v", err)
	}
	if text != "[{\"start_time\":\"00:00:00,000\"}]" {
		t.Errorf("text = %q", text)
	}
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request shape: %+v", captured)
	}
	videoPart := captured.Contents[0].Parts[0]
	if videoPart.InlineData == nil {
		t.Fatal("small video should be sent inline")
	}
	if videoPart.InlineData.MIMEType != "video/mp4" {
		t.Errorf("mime type = %s", videoPart.InlineData.MIMEType)
	}
	if decoded, err := base64.StdEncoding.DecodeString(videoPart.InlineData.Data); err != nil || len(decoded) != 64 {
		t.Errorf("inline data decode: len=%d err=%v", len(decoded), err)
	}
	promptPart := captured.Contents[0].Parts[1]
	if !strings.Contains(promptPart.Text, "12 seconds") {
		t.Errorf("prompt should mention video duration, got %q", promptPart.Text[:80])
	}
}

func TestGenerateNarrationUploadsLargeVideo(t *testing.T) {
	videoPath := writeVideo(t, 128)
	var uploads, polls, generates, deletes atomic.Int32
	var mux http.ServeMux
	mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"file": map[string]string{"name": "files/abc", "uri": "https://files/abc", "state": "PROCESSING"},
		})
	})
	mux.HandleFunc("GET /v1beta/files/abc", func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		state := "PROCESSING"
		if polls.Load() >= 2 {
			state = "ACTIVE"
		}
		json.NewEncoder(w).Encode(map[string]string{"name": "files/abc", "uri": "https://files/abc", "state": state})
	})
	mux.HandleFunc("DELETE /v1beta/files/abc", func(w http.ResponseWriter, r *http.Request) {
		deletes.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, ":generateContent") {
			generates.Add(1)
			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.Contents[0].Parts[0].FileData == nil {
				t.Error("large video should use file_data")
			} else if req.Contents[0].Parts[0].FileData.FileURI != "https://files/abc" {
				t.Errorf("file uri = %s", req.Contents[0].Parts[0].FileData.FileURI)
			}
			json.NewEncoder(w).Encode(candidateResponse("[]"))
			return
		}
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	server := httptest.NewServer(&mux)
	defer server.Close()

	client := NewClient(Config{
		APIKey:                   "k",
		BaseURL:                  server.URL,
		MaxInlineDurationSeconds: 60,
		MaxInlineSizeMB:          20,
	},
		WithPollInterval(time.Millisecond, time.Second),
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.GenerateNarration(context.Background(), VideoInfo{
		Path:            videoPath,
		DurationSeconds: 300,
		SizeBytes:       128,
	}); err != nil {
		t.Fatalf("GenerateNarration: %v", err)
	}
	if uploads.Load() != 1 || generates.Load() != 1 {
		t.Errorf("uploads=%d generates=%d", uploads.Load(), generates.Load())
	}
	if polls.Load() < 2 {
		t.Errorf("expected processing poll, got %d", polls.Load())
	}
	if deletes.Load() != 1 {
		t.Errorf("uploaded file should be deleted, deletes=%d", deletes.Load())
	}
}

func TestGenerateNarrationStripsFence(t *testing.T) {
	videoPath := writeVideo(t, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(candidateResponse("```json\n[{\"a\":1}]\n```"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxInlineSizeMB: 20})
	text, err := client.GenerateNarration(context.Background(), VideoInfo{Path: videoPath, SizeBytes: 8})
	if err != nil {
		t.Fatalf("GenerateNarration: %v", err)
	}
	if text != "[{\"a\":1}]" {
		t.Errorf("text = %q, fence should be stripped", text)
	}
}

func TestGenerateNarrationRetriesServerErrors(t *testing.T) {
	videoPath := writeVideo(t, 8)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(candidateResponse("[]"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}))
	if _, err := client.GenerateNarration(context.Background(), VideoInfo{Path: videoPath, SizeBytes: 8}); err != nil {
		t.Fatalf("GenerateNarration: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want retry after 500", calls.Load())
	}
}

func TestGenerateNarrationBlockedPrompt(t *testing.T) {
	videoPath := writeVideo(t, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"promptFeedback": map[string]string{"blockReason": "SAFETY"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.GenerateNarration(context.Background(), VideoInfo{Path: videoPath, SizeBytes: 8})
	if err == nil {
		t.Fatal("expected error for blocked prompt")
	}
	if !errors.Is(err, services.ErrNarration) {
		t.Errorf("error = %v, want ErrNarration marker", err)
	}
	if !strings.Contains(err.Error(), "SAFETY") {
		t.Errorf("error should carry block reason: %v", err)
	}
}

func TestGenerateNarrationMissingKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.GenerateNarration(context.Background(), VideoInfo{Path: "x.mp4"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration marker", err)
	}
}
