// Package framepool implements the coalescing frame history: a
// time-and-budget-bounded deque of unique frames, collapsing static runs to
// a single entry and emitting changed frames onto a quick lane for
// low-latency consumers.
package framepool

import (
	"sync"
	"sync/atomic"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/operand"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/ring"
)

// Frame is one coalesced entry in the pool.
type Frame struct {
	Index  int64
	Tsec   float64 // start time of this unique image
	TEnd   float64 // last observed time for this image, >= Tsec
	RunLen uint64  // count of coalesced identical frames
	Image  rawimage.RawImage
	Sig    operand.Map
}

// Config tunes retention and static-run collapsing.
type Config struct {
	RetentionSeconds   float64
	BudgetBytes        uint64
	FPSHint            int
	QuickLaneCapacity  int
	SingleStaticMode   bool
	StaticGraceSeconds float64
}

// DefaultConfig mirrors the reference pool's defaults.
func DefaultConfig() Config {
	return Config{
		RetentionSeconds:   300.0,
		BudgetBytes:        1024 * 1024 * 1024,
		FPSHint:            30,
		QuickLaneCapacity:  2048,
		SingleStaticMode:   true,
		StaticGraceSeconds: 1.0,
	}
}

// Pool is the coalescing frame history.
type Pool struct {
	mu         sync.Mutex
	frames     []Frame
	totalBytes uint64
	latestTs   float64

	retentionSec atomic.Value // float64
	budgetBytes  atomic.Uint64
	fpsHint      int

	singleStatic   atomic.Bool
	staticGraceSec atomic.Value // float64
	inStaticRun    bool
	staticSinceTs  float64

	quickLane *ring.SPSC[Frame]
}

// New creates a frame pool with the given configuration.
func New(cfg Config) *Pool {
	fps := cfg.FPSHint
	if fps < 1 {
		fps = 1
	}
	p := &Pool{
		fpsHint:   fps,
		quickLane: ring.New[Frame](cfg.QuickLaneCapacity),
	}
	p.retentionSec.Store(maxFloat(0, cfg.RetentionSeconds))
	p.budgetBytes.Store(cfg.BudgetBytes)
	p.singleStatic.Store(cfg.SingleStaticMode)
	p.staticGraceSec.Store(maxFloat(0, cfg.StaticGraceSeconds))
	return p
}

// SetRetentionSeconds updates the scrub window for changed frames.
func (p *Pool) SetRetentionSeconds(seconds float64) {
	p.retentionSec.Store(maxFloat(0, seconds))
}

// SetBudgetBytes updates the memory budget for retained frames.
func (p *Pool) SetBudgetBytes(bytes uint64) {
	p.budgetBytes.Store(bytes)
}

// SetSingleStaticMode toggles whether repeated identical frames collapse to
// a single retained entry after graceSeconds of continuous staticness.
func (p *Pool) SetSingleStaticMode(enabled bool, graceSeconds float64) {
	p.singleStatic.Store(enabled)
	p.staticGraceSec.Store(maxFloat(0, graceSeconds))
}

// Push admits a new captured frame. Identical frames coalesce into the
// trailing entry's run; changed frames append a new entry and are emitted
// onto the quick lane.
func (p *Pool) Push(img rawimage.RawImage, index int64, tsec float64) {
	if !img.Ok() {
		return
	}
	curSig := operand.Compute(img)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.latestTs = tsec

	if n := len(p.frames); n > 0 {
		last := &p.frames[n-1]
		if last.Image.Ok() && operand.FramesIdentical(img, last.Image, curSig, last.Sig) {
			last.TEnd = tsec
			last.RunLen++

			if p.singleStatic.Load() {
				if !p.inStaticRun {
					p.inStaticRun = true
					p.staticSinceTs = tsec
				}
				grace := p.staticGraceSec.Load().(float64)
				if tsec-p.staticSinceTs >= grace {
					for len(p.frames) > 1 {
						p.totalBytes -= uint64(len(p.frames[0].Image.Pix))
						p.frames = p.frames[1:]
					}
					if len(p.frames) == 1 {
						p.totalBytes = uint64(len(p.frames[0].Image.Pix))
					} else {
						p.totalBytes = 0
					}
				}
			}
			p.evictLocked()
			return
		}
		p.inStaticRun = false
		p.staticSinceTs = 0
	}

	f := Frame{
		Index:  index,
		Tsec:   tsec,
		TEnd:   tsec,
		RunLen: 1,
		Image:  img,
		Sig:    curSig,
	}
	p.totalBytes += uint64(len(f.Image.Pix))
	p.frames = append(p.frames, f)
	p.quickLane.Push(f)

	p.evictLocked()
}

// PopQuick drains the next changed frame from the quick lane, if any.
func (p *Pool) PopQuick() (Frame, bool) {
	return p.quickLane.Pop()
}

// Len returns the number of coalesced entries currently retained.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// SnapshotRecent returns the coalesced frames covering the last lastSeconds
// of pool time, newest last. Always includes at least one frame if the pool
// is non-empty.
func (p *Pool) SnapshotRecent(lastSeconds float64) []Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return nil
	}

	cutoff := p.latestTs - maxFloat(0, lastSeconds)
	var out []Frame
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].Tsec >= cutoff {
			out = append(out, p.frames[i])
		} else {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, p.frames[len(p.frames)-1])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ExpandRepeats returns how many times cur should be emitted when exporting
// to a fixed-fps video, given the next frame in the clip (nil if cur is
// last).
func ExpandRepeats(cur Frame, next *Frame, fps int) int {
	if fps < 1 {
		fps = 1
	}
	end := cur.TEnd
	if end <= cur.Tsec && next != nil {
		end = next.Tsec
	}
	span := maxFloat(0, end-cur.Tsec)
	n := int(roundHalfAwayFromZero(span * float64(fps)))
	if n < 1 {
		n = 1
	}
	return n
}

func (p *Pool) evictLocked() {
	if len(p.frames) == 0 {
		return
	}

	keepSec := maxFloat(0, p.retentionSec.Load().(float64))
	cutoffEnd := p.latestTs - keepSec
	for len(p.frames) > 1 && p.frames[0].TEnd < cutoffEnd {
		p.totalBytes -= uint64(len(p.frames[0].Image.Pix))
		p.frames = p.frames[1:]
	}

	budget := p.budgetBytes.Load()
	for len(p.frames) > 1 && p.totalBytes > budget {
		p.totalBytes -= uint64(len(p.frames[0].Image.Pix))
		p.frames = p.frames[1:]
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}
