package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/config"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

// fixedSource captures a sequence of frames in order, holding on the last
// once exhausted.
type fixedSource struct {
	frames []rawimage.RawImage
	calls  int
}

func (s *fixedSource) Capture(ctx context.Context) (rawimage.RawImage, error) {
	idx := s.calls
	if idx >= len(s.frames) {
		idx = len(s.frames) - 1
	}
	s.calls++
	return s.frames[idx], nil
}

func solidFrame(w, h int, b, g, r byte) rawimage.RawImage {
	img := rawimage.New(w, h)
	for i := 0; i < w*h; i++ {
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = b, g, r, 255
	}
	return img
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.FPS = 1000 // fast ticks in tests
	cfg.Seconds = 0
	cfg.NoStaticGate = true
	return cfg
}

func TestRunSingleTickProducesOneFrame(t *testing.T) {
	src := &fixedSource{frames: []rawimage.RawImage{solidFrame(2, 2, 1, 2, 3)}}
	o := New(src, testConfig(), nil, nil)

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Captured != 1 {
		t.Errorf("Captured = %d, want 1", summary.Captured)
	}
	if summary.Unique != 1 {
		t.Errorf("Unique = %d, want 1 (first frame is never a duplicate)", summary.Unique)
	}
}

func TestRunDedupesIdenticalFrames(t *testing.T) {
	frame := solidFrame(2, 2, 1, 2, 3)
	src := &fixedSource{frames: []rawimage.RawImage{frame, frame, frame}}
	cfg := testConfig()
	cfg.Seconds = 1
	cfg.FPS = 3
	cfg.NoAdaptive = true // disable activity gating so identical frames always dedupe

	o := New(src, cfg, nil, nil)
	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Unique != 1 {
		t.Errorf("Unique = %d, want 1", summary.Unique)
	}
	if summary.Duplicate != 2 {
		t.Errorf("Duplicate = %d, want 2", summary.Duplicate)
	}
}

func TestRunCountsChangedFramesAsUnique(t *testing.T) {
	src := &fixedSource{frames: []rawimage.RawImage{
		solidFrame(2, 2, 0, 0, 0),
		solidFrame(2, 2, 255, 255, 255),
		solidFrame(2, 2, 10, 20, 30),
	}}
	cfg := testConfig()
	cfg.Seconds = 1
	cfg.FPS = 3
	cfg.NoAdaptive = true

	o := New(src, cfg, nil, nil)
	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Unique != 3 {
		t.Errorf("Unique = %d, want 3", summary.Unique)
	}
	if summary.Duplicate != 0 {
		t.Errorf("Duplicate = %d, want 0", summary.Duplicate)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	src := &fixedSource{frames: []rawimage.RawImage{solidFrame(2, 2, 1, 1, 1)}}
	cfg := testConfig()
	cfg.FPS = 10
	cfg.Seconds = 100 // would run a long time if not cancelled

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	o := New(src, cfg, nil, nil)
	summary, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Captured >= cfg.Seconds*cfg.FPS {
		t.Errorf("expected early exit on cancellation, got %d ticks", summary.Captured)
	}
}

// captureFn adapts a plain function to the CaptureSource interface.
type captureFn func(ctx context.Context) (rawimage.RawImage, error)

func (f captureFn) Capture(ctx context.Context) (rawimage.RawImage, error) { return f(ctx) }

func TestRunReturnsStaticGateTimeout(t *testing.T) {
	calls := 0
	var src CaptureSource = captureFn(func(ctx context.Context) (rawimage.RawImage, error) {
		calls++
		return solidFrame(2, 2, byte(calls), 0, 0), nil // always changes, never settles
	})

	cfg := testConfig()
	cfg.NoStaticGate = false
	cfg.StaticSeconds = 10
	cfg.StaticTimeout = 0.01

	o := New(src, cfg, nil, nil)
	_, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected a static-gate timeout error")
	}
}

func TestRunIDIsStable(t *testing.T) {
	src := &fixedSource{frames: []rawimage.RawImage{solidFrame(1, 1, 1, 1, 1)}}
	o := New(src, testConfig(), nil, nil)
	id1 := o.RunID()
	id2 := o.RunID()
	if id1 == "" || id1 != id2 {
		t.Errorf("RunID should be stable and non-empty, got %q and %q", id1, id2)
	}
}
