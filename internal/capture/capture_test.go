package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	apperrors "github.com/TavariAgent/cortex-em-spectrum-foundation/internal/errors"
)

type fakeBackend struct {
	data       []byte
	cleanCalls int
}

func (f *fakeBackend) captureJPEG() []byte { return f.data }
func (f *fakeBackend) cleanup()            { f.cleanCalls++ }

func encodeJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("failed to encode fixture JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestCaptureDecodesToRawImage(t *testing.T) {
	data := encodeJPEG(t, 8, 6, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	src := newSource(&fakeBackend{data: data}, "")

	img, err := src.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if img.Width != 8 || img.Height != 6 {
		t.Errorf("dims = %dx%d, want 8x6", img.Width, img.Height)
	}
	px := img.At(0, 0)
	if px[3] != 255 {
		t.Errorf("alpha = %d, want 255", px[3])
	}
	if px[2] < 150 {
		t.Errorf("red channel = %d, want a strongly red pixel", px[2])
	}
}

func TestCaptureReturnsTransientOnNilFrame(t *testing.T) {
	src := newSource(&fakeBackend{data: nil}, "")

	_, err := src.Capture(context.Background())
	if !apperrors.IsCode(err, apperrors.CaptureTransient) {
		t.Errorf("expected CaptureTransient, got %v", err)
	}
}

func TestCaptureReturnsTransientOnBadData(t *testing.T) {
	src := newSource(&fakeBackend{data: []byte("not a jpeg")}, "")

	_, err := src.Capture(context.Background())
	if !apperrors.IsCode(err, apperrors.CaptureTransient) {
		t.Errorf("expected CaptureTransient, got %v", err)
	}
}

func TestCaptureHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newSource(&fakeBackend{data: []byte("irrelevant")}, "")
	_, err := src.Capture(ctx)
	if err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestCloseCallsBackendCleanup(t *testing.T) {
	b := &fakeBackend{}
	src := newSource(b, "")
	src.Close()
	if b.cleanCalls != 1 {
		t.Errorf("cleanup calls = %d, want 1", b.cleanCalls)
	}
}
