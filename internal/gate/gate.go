// Package gate implements the static-scene preflight check: block capture
// startup until the source has settled onto a stable frame, or fail with a
// diagnosable reason.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/operand"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/resize"
)

// CaptureFunc produces the next frame from the capture source.
type CaptureFunc func(ctx context.Context) (rawimage.RawImage, error)

// Config parameterizes a single gate run.
type Config struct {
	FPSHint             int
	RequiredStaticSec   float64
	TimeoutSec          float64
	ResizeWidth         int // 0 disables resize
	ResizeHeight        int
	Tolerant            bool // signature_equal only, no byte compare
}

// Result reports the outcome of a gate run.
type Result struct {
	OK              bool
	StableSeconds   float64
	FramesObserved  int
	IdenticalStreak int
	Signature       operand.Map
	Frame           rawimage.RawImage
	Message         string
}

// Wait blocks, polling capture at the configured rate, until the scene has
// been stable for RequiredStaticSec seconds or TimeoutSec elapses.
func Wait(ctx context.Context, capture CaptureFunc, cfg Config) Result {
	fpsHint := cfg.FPSHint
	if fpsHint <= 0 {
		fpsHint = 1
	}
	interval := time.Duration(float64(time.Second) / float64(fpsHint))
	needed := int(cfg.RequiredStaticSec * float64(fpsHint))
	if needed < 1 {
		needed = 1
	}

	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		havePrev bool
		prev     rawimage.RawImage
		prevMap  operand.Map
		streak   int
		observed int
	)

	for {
		elapsed := time.Since(start).Seconds()
		if elapsed >= cfg.TimeoutSec {
			ok := streak >= needed
			msg := "timeout: scene did not become static"
			if ok {
				msg = "stable at timeout boundary"
			}
			res := Result{
				OK:              ok,
				StableSeconds:   float64(streak) / float64(fpsHint),
				FramesObserved:  observed,
				IdenticalStreak: streak,
				Message:         msg,
			}
			if ok {
				res.Frame, res.Signature = prev, prevMap
			}
			return res
		}

		raw, err := capture(ctx)
		if err != nil || !raw.Ok() {
			select {
			case <-ctx.Done():
				return Result{Message: fmt.Sprintf("cancelled: %v", ctx.Err())}
			case <-ticker.C:
				continue
			}
		}

		working := raw
		if cfg.ResizeWidth > 0 && cfg.ResizeHeight > 0 {
			if resized := resize.Bilinear(raw, cfg.ResizeWidth, cfg.ResizeHeight); resized.Ok() {
				working = resized
			}
		}

		cur := operand.Compute(working)

		identical := false
		if havePrev {
			if cfg.Tolerant {
				identical = operand.SignatureEqual(prevMap, cur)
			} else {
				identical = operand.FramesIdentical(working, prev, cur, prevMap)
			}
		}
		if identical {
			streak++
		} else {
			streak = 1
		}
		observed++
		prev, prevMap, havePrev = working, cur, true

		if streak >= needed {
			return Result{
				OK:              true,
				StableSeconds:   float64(streak) / float64(fpsHint),
				FramesObserved:  observed,
				IdenticalStreak: streak,
				Signature:       cur,
				Frame:           working,
				Message:         "static scene confirmed",
			}
		}

		select {
		case <-ctx.Done():
			return Result{Message: fmt.Sprintf("cancelled: %v", ctx.Err())}
		case <-ticker.C:
		}
	}
}
