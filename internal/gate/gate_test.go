package gate

import (
	"context"
	"testing"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

func solidFrame(v byte) rawimage.RawImage {
	img := rawimage.New(4, 4)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestWaitSucceedsOnStaticFeed(t *testing.T) {
	frame := solidFrame(42)
	capture := func(ctx context.Context) (rawimage.RawImage, error) {
		return frame.Clone(), nil
	}
	res := Wait(context.Background(), capture, Config{
		FPSHint:           1000,
		RequiredStaticSec: 0.01,
		TimeoutSec:        2.0,
	})
	if !res.OK {
		t.Fatalf("expected gate to succeed, got %+v", res)
	}
	if res.StableSeconds < 0.01 {
		t.Errorf("stable_seconds = %v, want >= 0.01", res.StableSeconds)
	}
}

func TestWaitFailsOnChangingFeed(t *testing.T) {
	i := byte(0)
	capture := func(ctx context.Context) (rawimage.RawImage, error) {
		i++
		return solidFrame(i), nil
	}
	res := Wait(context.Background(), capture, Config{
		FPSHint:           1000,
		RequiredStaticSec: 10.0,
		TimeoutSec:        0.02,
	})
	if res.OK {
		t.Fatalf("expected gate to time out, got %+v", res)
	}
}

func TestWaitTolerantAcceptsSignatureOnly(t *testing.T) {
	frame := solidFrame(7)
	capture := func(ctx context.Context) (rawimage.RawImage, error) {
		return frame.Clone(), nil
	}
	res := Wait(context.Background(), capture, Config{
		FPSHint:           1000,
		RequiredStaticSec: 0.005,
		TimeoutSec:        2.0,
		Tolerant:          true,
	})
	if !res.OK {
		t.Fatalf("expected tolerant gate to succeed, got %+v", res)
	}
}

func TestWaitCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	capture := func(ctx context.Context) (rawimage.RawImage, error) {
		return rawimage.RawImage{}, context.Canceled
	}
	res := Wait(ctx, capture, Config{FPSHint: 1, RequiredStaticSec: 1, TimeoutSec: 5})
	if res.OK {
		t.Error("cancelled context should not report success")
	}
}
