// Package videoinput resolves and probes the source video.
//
// The provider contract is narrow: given a local path, return the path plus
// basic metadata, or a tagged input error for anything unreadable. The
// pipeline only consumes the metadata it needs for validation (duration) and
// upload-size decisions.
package videoinput

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"narrate/internal/media/ffprobe"
	"narrate/internal/services"
)

// Metadata describes the probed source video.
type Metadata struct {
	Path            string
	Filename        string
	DurationSeconds float64
	Width           int
	Height          int
	FPS             float64
	SizeBytes       int64
	FormatName      string
}

// Probe validates that path points at a readable video file and extracts its
// metadata via ffprobe.
func Probe(ctx context.Context, ffprobeBinary, path string) (Metadata, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Metadata{}, services.Wrap(services.ErrInput, "input", "probe", "video path is required", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrInput, "input", "stat video", "", err)
	}
	if info.IsDir() {
		return Metadata{}, services.Wrap(services.ErrInput, "input", "stat video", fmt.Sprintf("%s is a directory", path), nil)
	}

	result, err := ffprobe.Inspect(ctx, ffprobeBinary, path)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrInput, "input", "ffprobe", "", err)
	}
	if result.VideoStreamCount() == 0 {
		return Metadata{}, services.Wrap(services.ErrInput, "input", "ffprobe", "no video stream found", nil)
	}

	meta := Metadata{
		Path:            path,
		Filename:        filepath.Base(path),
		DurationSeconds: result.DurationSeconds(),
		FPS:             result.FPS(),
		SizeBytes:       result.SizeBytes(),
		FormatName:      result.Format.FormatName,
	}
	if stream, ok := result.VideoStream(); ok {
		meta.Width = stream.Width
		meta.Height = stream.Height
	}
	if meta.SizeBytes == 0 {
		meta.SizeBytes = info.Size()
	}
	if meta.DurationSeconds <= 0 {
		return Metadata{}, services.Wrap(services.ErrInput, "input", "ffprobe", "video reports zero duration", nil)
	}
	return meta, nil
}

// BaseName returns the video filename without its extension, usable as an
// artifact name prefix.
func (m Metadata) BaseName() string {
	name := strings.TrimSuffix(m.Filename, filepath.Ext(m.Filename))
	if name == "" {
		return "video"
	}
	return sanitizeName(name)
}

func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_-")
}
