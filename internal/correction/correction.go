// Package correction implements a mutex-guarded queue of in-place frame
// transforms applied once per captured frame: a persistent list that runs
// every frame and a one-shot list that drains after a single application.
package correction

import (
	"sync"
	"sync/atomic"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/rawimage"
)

// Fn mutates img in place.
type Fn func(img *rawimage.RawImage)

// Queue holds persistent and one-shot corrections behind a single mutex,
// with an atomic dirty flag so Apply can skip the lock entirely on the
// common empty-queue path.
type Queue struct {
	mu         sync.Mutex
	persistent []Fn
	oneshot    []Fn
	dirty      atomic.Bool
}

// New returns an empty correction queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue adds a correction that runs on every subsequent Apply call.
func (q *Queue) Enqueue(fn Fn) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.persistent = append(q.persistent, fn)
	q.mu.Unlock()
	q.dirty.Store(true)
}

// EnqueueOneshot adds a correction that runs on the next Apply call and is
// then discarded.
func (q *Queue) EnqueueOneshot(fn Fn) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.oneshot = append(q.oneshot, fn)
	q.mu.Unlock()
	q.dirty.Store(true)
}

// Apply runs every queued correction against img in order (persistent
// first, then one-shot), draining the one-shot list. Reports whether any
// correction ran.
func (q *Queue) Apply(img *rawimage.RawImage) bool {
	if !q.dirty.Load() {
		return false
	}

	q.mu.Lock()
	if len(q.persistent) == 0 && len(q.oneshot) == 0 {
		q.dirty.Store(false)
		q.mu.Unlock()
		return false
	}
	persistent := append([]Fn(nil), q.persistent...)
	oneshot := q.oneshot
	q.oneshot = nil
	q.mu.Unlock()

	ran := false
	for _, fn := range persistent {
		fn(img)
		ran = true
	}
	for _, fn := range oneshot {
		fn(img)
		ran = true
	}
	return ran
}

// Clear discards every queued correction.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.persistent = nil
	q.oneshot = nil
	q.mu.Unlock()
	q.dirty.Store(false)
}

// Empty reports whether the queue holds no corrections.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.persistent) == 0 && len(q.oneshot) == 0
}
