// Package metrics collects per-frame timing and memory samples and
// periodically summarizes them for the JSONL sink.
package metrics

import "math"

// RunningStats is Welford's online mean/variance accumulator.
type RunningStats struct {
	n    uint64
	mean float64
	m2   float64
}

// Add folds x into the running statistics.
func (r *RunningStats) Add(x float64) {
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	delta2 := x - r.mean
	r.m2 += delta * delta2
}

// Variance returns the sample variance, or 0 with fewer than two samples.
func (r *RunningStats) Variance() float64 {
	if r.n < 2 {
		return 0
	}
	return r.m2 / float64(r.n-1)
}

// Stddev returns the sample standard deviation.
func (r *RunningStats) Stddev() float64 {
	v := r.Variance()
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// Mean returns the running mean.
func (r *RunningStats) Mean() float64 { return r.mean }

// N returns the number of samples folded in.
func (r *RunningStats) N() uint64 { return r.n }

// Reset clears the accumulator.
func (r *RunningStats) Reset() {
	r.n = 0
	r.mean = 0
	r.m2 = 0
}
