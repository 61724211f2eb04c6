package sinks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/TavariAgent/cortex-em-spectrum-foundation/internal/errors"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/framepool"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/resilience"
)

// ExportConfig controls a recent-history video export.
type ExportConfig struct {
	LastSeconds float64
	OutputPath  string
	FPS         int
	WorkDir     string // directory to stage numbered BMPs; caller-owned
}

// ExportRecentToVideo stages one BMP per coalesced history frame and
// drives ffmpeg's concat demuxer off a manifest that expands each frame
// back to its real-time duration: a "file" line followed by a
// "duration repeats/fps" line. The demuxer only honors a file's
// duration up to the next file line, so the final file is written a
// second time with no trailing duration — an ffmpeg concat
// idiosyncrasy, not an oversight. Staged BMPs and the manifest are left
// on disk if ffmpeg fails so the caller can retry or inspect them.
func ExportRecentToVideo(ctx context.Context, pool *framepool.Pool, cfg ExportConfig) error {
	clip := pool.SnapshotRecent(cfg.LastSeconds)
	if len(clip) == 0 {
		return apperrors.New(apperrors.ResourceExhausted, "no frames to export")
	}

	fps := cfg.FPS
	if fps < 1 {
		fps = 1
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = cfg.OutputPath + ".frames"
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.ResourceExhausted, "failed to create export work dir")
	}

	const prefix = "cap"
	var paths []string
	var durations []float64
	for i, cur := range clip {
		if !cur.Image.Ok() {
			continue
		}
		var next *framepool.Frame
		if i+1 < len(clip) {
			next = &clip[i+1]
		}
		repeats := framepool.ExpandRepeats(cur, next, fps)

		path := NumberedPath(filepath.Join(workDir, prefix), len(paths), ".bmp", 6)
		writeErr := resilience.Retry(ctx, resilience.SinkRetryConfig(), func() error {
			return WriteBMP32(path, cur.Image)
		})
		if writeErr != nil {
			return apperrors.Wrap(writeErr, apperrors.ResourceExhausted, "failed to stage export frame")
		}
		paths = append(paths, path)
		durations = append(durations, float64(repeats)/float64(fps))
	}

	if len(paths) == 0 {
		return apperrors.New(apperrors.ResourceExhausted, "no valid frames staged; aborting export")
	}

	manifestPath := filepath.Join(workDir, "concat.txt")
	if err := writeConcatManifest(manifestPath, paths, durations); err != nil {
		return apperrors.Wrap(err, apperrors.ResourceExhausted, "failed to write concat manifest")
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", manifestPath,
		"-vsync", "vfr",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		cfg.OutputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return apperrors.Wrapf(err, apperrors.ResourceExhausted, "ffmpeg failed: %s", string(out))
	}

	cleanupStagedFrames(paths)
	os.Remove(manifestPath)
	os.Remove(workDir) // best-effort, only succeeds if now empty
	return nil
}

// writeConcatManifest emits ffmpeg's concat-demuxer text format: each
// path gets a "file" line and a "duration" line holding its real-time
// extent in seconds. The demuxer ignores the last entry's duration, so
// per the format's own idiosyncrasy the final path is written again
// with no duration line to make its preceding duration take effect.
func writeConcatManifest(path string, paths []string, durations []float64) error {
	var b strings.Builder
	for i, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", p)
		fmt.Fprintf(&b, "duration %f\n", durations[i])
	}
	fmt.Fprintf(&b, "file '%s'\n", paths[len(paths)-1])
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func cleanupStagedFrames(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
