// Package capture provides platform-native screen capture, decoded into
// the pipeline's BGRA raw image format.
package capture

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"os"

	apperrors "github.com/TavariAgent/cortex-em-spectrum-foundation/internal/errors"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

// backend captures one still frame as encoded image bytes (JPEG) from the
// native platform tool, or nil if the capture failed.
type backend interface {
	captureJPEG() []byte
	cleanup()
}

// Source is a platform-agnostic screen capture source. It satisfies
// gate.CaptureFunc's signature via Capture.
type Source struct {
	backend backend
	tempDir string
}

func newSource(b backend, tempDir string) *Source {
	return &Source{backend: b, tempDir: tempDir}
}

// Capture grabs one still frame and decodes it to a BGRA RawImage.
func (s *Source) Capture(ctx context.Context) (rawimage.RawImage, error) {
	if err := ctx.Err(); err != nil {
		return rawimage.RawImage{}, err
	}

	data := s.backend.captureJPEG()
	if data == nil {
		return rawimage.RawImage{}, apperrors.New(apperrors.CaptureTransient, "capture tool produced no frame")
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return rawimage.RawImage{}, apperrors.Wrap(err, apperrors.CaptureTransient, "failed to decode captured frame")
	}

	return toRawImage(img), nil
}

// Close releases backend resources (temp directories and the like).
func (s *Source) Close() {
	s.backend.cleanup()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// toRawImage converts a decoded image.Image into a top-down BGRA RawImage.
func toRawImage(src image.Image) rawimage.RawImage {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := rawimage.New(w, h)
	if !out.Ok() {
		return out
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			out.Pix[i+0] = byte(b >> 8)
			out.Pix[i+1] = byte(g >> 8)
			out.Pix[i+2] = byte(r >> 8)
			out.Pix[i+3] = 255
			i += 4
		}
	}
	return out
}

func mkTempDir(prefix string) string {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		slog.Error("failed to create capture temp dir", "error", err)
		return os.TempDir()
	}
	return dir
}
