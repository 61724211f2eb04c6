// Package activity classifies motion between consecutive frames into
// static/mid/high activity bands and tracks a latched "scene awake" state
// used to gate dedupe and downstream sleep behavior.
package activity

import (
	"log/slog"

	"github.com/corona10/goimagehash"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

// Config tunes the classifier's thresholds and cooldown windows.
type Config struct {
	StaticThreshold float64 // diff_ratio <= this -> static
	WakeThreshold   float64 // diff_ratio >= this -> high activity
	DedupePauseSec  float64 // suppression window after high activity
	StaticResetSec  float64 // continuous static duration required to un-latch awake
	SampleStride    int     // pixel sampling stride, >= 1
	ChannelThr      int     // per-channel delta threshold, >= 0
	Diagnostics     bool    // compute the perceptual-hash distance field
}

// DefaultConfig matches the classifier's reference thresholds.
func DefaultConfig() Config {
	return Config{
		StaticThreshold: 0.03,
		WakeThreshold:   0.05,
		DedupePauseSec:  15.0,
		StaticResetSec:  15.0,
		SampleStride:    4,
		ChannelThr:      4,
	}
}

// Decision is the classifier's output for a single frame update.
type Decision struct {
	DiffRatio        float64
	IsStaticScene    bool
	IsSceneAwake     bool
	QuietActive      bool
	DedupeBlock      bool
	AllowDedupe      bool
	IsSleeping       bool // static and not awake; a downstream may suppress on this
	SecondsInStatic  float64
	SecondsSinceHigh float64

	// PerceptualDistance is a supplementary diagnostic: the perceptual
	// hash Hamming distance to the previous frame, when computable. It
	// never gates AllowDedupe or IsSleeping — those depend only on the
	// strided per-channel diff above.
	PerceptualDistance   int
	PerceptualDistanceOK bool
}

// Tracker holds the running state of the classifier across updates.
type Tracker struct {
	cfg Config

	sceneAwake       bool
	staticRunActive  bool
	staticStart      float64
	lastHighTime     float64
	dedupeBlockUntil float64

	lastHash *goimagehash.ImageHash
}

// New creates a tracker with the given config.
func New(cfg Config) *Tracker {
	return &Tracker{
		cfg:              cfg,
		lastHighTime:     -1e9,
		dedupeBlockUntil: -1e9,
	}
}

// SampledDiffRatio returns the fraction of strided-sampled pixels where any
// of |ΔB|, |ΔG|, |ΔR| exceeds channelThr. Mismatched dimensions or invalid
// images report maximal difference.
func SampledDiffRatio(cur, prev rawimage.RawImage, stride, channelThr int) float64 {
	if !cur.Ok() || !prev.Ok() || cur.Width != prev.Width || cur.Height != prev.Height {
		return 1.0
	}
	if stride < 1 {
		stride = 1
	}
	if channelThr < 0 {
		channelThr = 0
	}

	var sampled, changed int
	for y := 0; y < cur.Height; y += stride {
		for x := 0; x < cur.Width; x += stride {
			a := prev.At(x, y)
			b := cur.At(x, y)
			db := absInt(int(a[0]) - int(b[0]))
			dg := absInt(int(a[1]) - int(b[1]))
			dr := absInt(int(a[2]) - int(b[2]))
			if db > channelThr || dg > channelThr || dr > channelThr {
				changed++
			}
			sampled++
		}
	}
	if sampled == 0 {
		return 0.0
	}
	return float64(changed) / float64(sampled)
}

// Update advances the tracker with a new frame and returns the classification.
// prevOk should be false on the very first call (no previous frame exists).
func (t *Tracker) Update(cur rawimage.RawImage, prev rawimage.RawImage, prevOk bool, tsec float64) Decision {
	var d Decision

	if !prevOk || !prev.Ok() || !cur.Ok() {
		d.IsStaticScene = true
		d.IsSceneAwake = false
		t.startStaticIfNeeded(tsec, true)
		t.updatePerceptualHash(cur, &d)
		d.AllowDedupe = tsec >= t.dedupeBlockUntil
		d.IsSleeping = d.IsStaticScene && !d.IsSceneAwake
		return d
	}

	d.DiffRatio = SampledDiffRatio(cur, prev, t.cfg.SampleStride, t.cfg.ChannelThr)

	isStatic := d.DiffRatio <= t.cfg.StaticThreshold
	isHigh := d.DiffRatio >= t.cfg.WakeThreshold
	isMid := !isStatic && !isHigh

	if isStatic {
		t.startStaticIfNeeded(tsec, false)
		if t.sceneAwake &&
			(tsec-t.staticStart) >= t.cfg.StaticResetSec &&
			(tsec-t.lastHighTime) >= t.cfg.DedupePauseSec {
			t.sceneAwake = false
		}
	} else {
		t.staticRunActive = false
	}

	if isHigh {
		t.sceneAwake = true
		t.lastHighTime = tsec
		t.dedupeBlockUntil = tsec + t.cfg.DedupePauseSec
	} else if isMid {
		t.sceneAwake = true
	}

	d.IsStaticScene = isStatic
	d.IsSceneAwake = t.sceneAwake
	d.QuietActive = isMid
	d.DedupeBlock = tsec < t.dedupeBlockUntil
	d.AllowDedupe = !d.DedupeBlock
	d.IsSleeping = isStatic && !t.sceneAwake
	if isStatic {
		d.SecondsInStatic = tsec - t.staticStart
	}
	d.SecondsSinceHigh = tsec - t.lastHighTime

	t.updatePerceptualHash(cur, &d)
	return d
}

// updatePerceptualHash records a Hamming-distance diagnostic against the
// previous frame's perceptual hash. Skipped entirely unless cfg.Diagnostics
// is set, since the underlying DCT hash is too expensive to run every tick
// for a field nothing consumes by default. Any failure (unsupported image,
// hash error) leaves PerceptualDistanceOK false and never affects
// classification.
func (t *Tracker) updatePerceptualHash(cur rawimage.RawImage, d *Decision) {
	if !t.cfg.Diagnostics || !cur.Ok() {
		return
	}
	hash, err := goimagehash.PerceptionHash(rawimage.ToImage(cur))
	if err != nil {
		return
	}
	if t.lastHash != nil {
		if dist, err := t.lastHash.Distance(hash); err == nil {
			d.PerceptualDistance = dist
			d.PerceptualDistanceOK = true
		} else {
			slog.Debug("perceptual hash distance unavailable", "error", err)
		}
	}
	t.lastHash = hash
}

func (t *Tracker) startStaticIfNeeded(tsec float64, force bool) {
	if !t.staticRunActive || force {
		t.staticRunActive = true
		t.staticStart = tsec
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
