// Package router implements the per-tile render-route decision (CPU,
// offload, or skip), gated behind a calibration window so tiles are never
// skipped before a baseline amplitude has been learned.
package router

import "time"

// Route is a per-tile rendering decision.
type Route int

const (
	// Cpu renders the tile normally this frame.
	Cpu Route = iota
	// Offload marks the tile as changed enough to need a full re-render
	// and dirties its accumulator state.
	Offload
	// Skip leaves the tile's accumulator untouched; only reachable once
	// calibrated.
	Skip
)

func (r Route) String() string {
	switch r {
	case Cpu:
		return "cpu"
	case Offload:
		return "offload"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// Config tunes the calibration window and routing thresholds.
type Config struct {
	Epsilon         float64
	KPercent        float64
	CalibFrames     int
	CalibMinSeconds float64
	AllowSkipRoute  bool
}

// DefaultConfig matches the reference router's defaults.
func DefaultConfig() Config {
	return Config{
		Epsilon:         0,
		KPercent:        0,
		CalibFrames:     30,
		CalibMinSeconds: 1.0,
		AllowSkipRoute:  true,
	}
}

// Router tracks per-tile change percentages and the global calibration
// state driving route decisions.
type Router struct {
	cfg Config

	lastChangePercent []float64
	calibrated        bool
	framesSeen        int
	start             time.Time
	now               func() time.Time
}

// New creates a router for the given tile count.
func New(cfg Config, tileCount int) *Router {
	return &Router{
		cfg:               cfg,
		lastChangePercent: make([]float64, tileCount),
		now:               time.Now,
	}
}

// BeginFrame advances the frame counter and recomputes the calibrated flag.
// calibrated latches true once frames_seen >= CalibFrames AND elapsed
// seconds since the first BeginFrame call is >= CalibMinSeconds.
func (r *Router) BeginFrame() {
	if r.framesSeen == 0 {
		r.start = r.now()
	}
	r.framesSeen++
	if r.calibrated {
		return
	}
	elapsed := r.now().Sub(r.start).Seconds()
	if r.framesSeen >= r.cfg.CalibFrames && elapsed >= r.cfg.CalibMinSeconds {
		r.calibrated = true
	}
}

// UpdateTileChange records the percent of pixels changed this frame for
// tile idx.
func (r *Router) UpdateTileChange(idx int, percent float64) {
	if idx < 0 || idx >= len(r.lastChangePercent) {
		return
	}
	r.lastChangePercent[idx] = percent
}

// Decide returns the route for tile idx based on its last recorded change
// percentage.
func (r *Router) Decide(idx int) Route {
	if idx < 0 || idx >= len(r.lastChangePercent) {
		return Cpu
	}
	percent := r.lastChangePercent[idx]
	switch {
	case percent > r.cfg.KPercent:
		return Offload
	case r.cfg.AllowSkipRoute && r.calibrated && percent == 0:
		return Skip
	default:
		return Cpu
	}
}

// Calibrated reports whether the calibration window has closed.
func (r *Router) Calibrated() bool {
	return r.calibrated
}

// TileCount returns the number of tiles this router tracks.
func (r *Router) TileCount() int {
	return len(r.lastChangePercent)
}
