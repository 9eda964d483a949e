// Package mux replaces a video's audio track by invoking ffmpeg.
//
// The video stream is copied without re-encoding; the audio stream is
// encoded to AAC. Output is written to a temporary file and renamed into
// place only on success so a failed mux never leaves a partial artifact
// behind.
package mux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"narrate/internal/services"
)

// Request describes one mux operation.
type Request struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
	// FFmpegBinary overrides the binary resolved from PATH when set.
	FFmpegBinary string
}

// Run combines the video and audio inputs into OutputPath.
func Run(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.VideoPath) == "" || strings.TrimSpace(req.AudioPath) == "" {
		return services.Wrap(services.ErrMux, "muxing", "run", "video and audio paths are required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrMux, "muxing", "run", "output path is required", nil)
	}

	binary := strings.TrimSpace(req.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return services.Wrap(services.ErrMux, "muxing", "resolve ffmpeg", "", err)
	}

	tmpPath := req.OutputPath + ".partial" + filepath.Ext(req.OutputPath)
	defer os.Remove(tmpPath)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-f", containerFormat(req.OutputPath),
		tmpPath,
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := strings.TrimSpace(string(output))
		return services.Wrap(services.ErrMux, "muxing", "ffmpeg", detail, err)
	}

	if err := os.Rename(tmpPath, req.OutputPath); err != nil {
		return services.Wrap(services.ErrMux, "muxing", "finalize output", "", err)
	}
	return nil
}

func containerFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mkv":
		return "matroska"
	case ".mov":
		return "mov"
	default:
		return "mp4"
	}
}

// Available reports whether the mux binary can be resolved.
func Available(binary string) error {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return errors.Join(fmt.Errorf("ffmpeg binary %q not found", binary), err)
	}
	return nil
}
