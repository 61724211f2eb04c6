// Package orchestrator drives the capture-dedupe-coalesce-retain-emit
// loop: one tick per target frame period, skipping transient capture
// failures and writing non-duplicate frames to the configured sink.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/activity"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/config"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/correction"
	apperrors "github.com/TavariAgent/cortex-em-spectrum-foundation/internal/errors"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/framepool"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/gate"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/guard"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/liveview"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/operand"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/resilience"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/resize"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/sinks"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/syncx"
)

// CaptureSource is the capture interface the orchestrator drives. A
// *capture.Source or any test fixture satisfying this shape works.
type CaptureSource interface {
	Capture(ctx context.Context) (rawimage.RawImage, error)
}

// state is the orchestrator's mutable per-tick state, guarded for the
// cross-thread reads a live viewer or a status query might perform.
type state struct {
	prev        rawimage.RawImage
	prevOk      bool
	prevSig     operand.Map
	frameIndex  int
	uniqueCount int
	dupCount    int
	sceneAwake  bool
}

// Summary is the orchestrator's final one-line report.
type Summary struct {
	RunID         string
	Captured      int
	Unique        int
	Duplicate     int
	Elapsed       time.Duration
	ActivityAwake bool
}

// Orchestrator coordinates capture, dedupe, correction, activity
// tracking, history retention, and sink emission at a target tick rate.
type Orchestrator struct {
	cfg   config.Config
	runID string
	start time.Time

	source      CaptureSource
	breaker     *resilience.Breaker
	corrections *correction.Queue
	tracker     *activity.Tracker
	pool        *framepool.Pool
	metricsLog  *sinks.MetricsLogger
	live        *liveview.Broadcaster

	state *syncx.RWGuard[state]
}

// New wires an Orchestrator from a capture source and resolved config.
// metricsLog and live may be nil to disable those sinks.
func New(source CaptureSource, cfg config.Config, metricsLog *sinks.MetricsLogger, live *liveview.Broadcaster) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		runID:       uuid.NewString(),
		start:       time.Now(),
		source:      source,
		breaker:     resilience.New(resilience.FastConfig()),
		corrections: correction.New(),
		pool:        framepool.New(framepool.DefaultConfig()),
		metricsLog:  metricsLog,
		live:        live,
		state:       syncx.NewGuard(state{}),
	}
	if !cfg.NoAdaptive {
		activityCfg := activity.DefaultConfig()
		activityCfg.Diagnostics = cfg.Diagnostics
		o.tracker = activity.New(activityCfg)
	}
	installCorrections(o.corrections, cfg)
	return o
}

// RunID returns the identifier stamped on this orchestrator's run.
func (o *Orchestrator) RunID() string { return o.runID }

// Pool exposes the frame history for export tooling.
func (o *Orchestrator) Pool() *framepool.Pool { return o.pool }

// Run executes the static-scene preflight gate (unless disabled) and
// then drives ticks at the configured FPS for cfg.Seconds, or a single
// tick if Seconds <= 0. Returns a Summary and the first fatal error
// encountered, if any.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	runStart := time.Now()

	if !o.cfg.NoStaticGate {
		gateCfg := gate.Config{
			FPSHint:           o.cfg.FPS,
			RequiredStaticSec: o.cfg.StaticSeconds,
			TimeoutSec:        o.cfg.StaticTimeout,
			Tolerant:          o.cfg.StaticTolerant,
		}
		if o.cfg.HasResize {
			gateCfg.ResizeWidth = o.cfg.Resize.Width
			gateCfg.ResizeHeight = o.cfg.Resize.Height
		}
		result := gate.Wait(ctx, o.source.Capture, gateCfg)
		if !result.OK {
			return o.summary(runStart), apperrors.New(apperrors.StaticGateTimeout, result.Message)
		}
	}

	tickPeriod := time.Second / time.Duration(o.cfg.FPS)
	totalTicks := o.cfg.Seconds * o.cfg.FPS
	if o.cfg.Seconds <= 0 {
		totalTicks = 1
	}

	next := time.Now()
	for i := 0; i < totalTicks; i++ {
		if err := ctx.Err(); err != nil {
			break
		}
		o.tick(ctx)

		next = next.Add(tickPeriod)
		if sleep := time.Until(next); sleep > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(sleep):
			}
		}
	}

	return o.summary(runStart), nil
}

// tick runs one iteration of the capture-dedupe-coalesce-retain-emit
// loop, per the pipeline's step order: capture, resize, activity
// decision, correction, fingerprint, dedupe, live push, pool push,
// sink emit.
func (o *Orchestrator) tick(ctx context.Context) {
	scope := guard.Enter("orchestrator_tick")
	defer func() {
		snap := scope.Exit()
		slog.Debug("tick complete", "scope", snap)
	}()

	cur, err := resilience.ExecuteWithResult(o.breaker, func() (rawimage.RawImage, error) {
		return o.source.Capture(ctx)
	})
	if err != nil {
		slog.Debug("capture tick skipped", "error", err, "breaker_state", o.breaker.State())
		return
	}

	if o.cfg.HasResize {
		cur = resize.Bilinear(cur, o.cfg.Resize.Width, o.cfg.Resize.Height)
	}

	st := o.state.Get()

	allowDedupe := true
	dedupeBlock := false
	diffRatio := 0.0
	tsec := time.Since(o.start).Seconds()
	sceneAwake := st.sceneAwake
	perceptualDistance := 0
	perceptualDistanceOK := false

	if o.tracker != nil && st.prevOk {
		decision := o.tracker.Update(cur, st.prev, st.prevOk, tsec)
		allowDedupe = decision.AllowDedupe
		dedupeBlock = decision.DedupeBlock
		diffRatio = decision.DiffRatio
		sceneAwake = decision.IsSceneAwake
		perceptualDistance = decision.PerceptualDistance
		perceptualDistanceOK = decision.PerceptualDistanceOK
	}

	o.corrections.Apply(&cur)

	curSig := operand.Compute(cur)
	identical := allowDedupe && st.prevOk && operand.FramesIdentical(cur, st.prev, curSig, st.prevSig)

	if o.live != nil {
		o.live.Push(cur, st.frameIndex)
	}

	o.pool.Push(cur, int64(st.frameIndex), tsec)

	if o.cfg.RecordBase != "" && (dedupeBlock || !identical) {
		path := sinks.NumberedPath(o.cfg.RecordBase, st.frameIndex, ".bmp", 6)
		if werr := sinks.WriteBMP32(path, cur); werr != nil {
			slog.Error("sink write failed", "path", path, "error", werr)
		}
	}

	if o.metricsLog != nil {
		o.metricsLog.LogFrame(st.frameIndex, tsec, !identical, o.pool.Len(), guard.ProcessRSSBytes(), diffRatio, dedupeBlock, perceptualDistance, perceptualDistanceOK)
	}

	o.state.Write(func(s *state) {
		s.prev = cur
		s.prevOk = true
		s.prevSig = curSig
		s.frameIndex++
		s.sceneAwake = sceneAwake
		if identical {
			s.dupCount++
		} else {
			s.uniqueCount++
		}
	})
}

func (o *Orchestrator) summary(runStart time.Time) Summary {
	st := o.state.Get()
	return Summary{
		RunID:         o.runID,
		Captured:      st.uniqueCount + st.dupCount,
		Unique:        st.uniqueCount,
		Duplicate:     st.dupCount,
		Elapsed:       time.Since(runStart),
		ActivityAwake: st.sceneAwake,
	}
}

// installCorrections wires the persistent correction pipeline requested
// on the CLI: grayscale, gamma, brightness, contrast, pixelation.
func installCorrections(q *correction.Queue, cfg config.Config) {
	if cfg.Grayscale {
		q.Enqueue(correction.Grayscale)
	}
	if cfg.HasGamma {
		q.Enqueue(correction.Gamma(cfg.Gamma))
	}
	if cfg.HasBright {
		q.Enqueue(correction.Brightness(cfg.Brightness))
	}
	if cfg.HasContr {
		q.Enqueue(correction.Contrast(cfg.Contrast))
	}
	if cfg.HasPixel {
		q.Enqueue(correction.Pixelate(cfg.Pixelate))
	}
}
