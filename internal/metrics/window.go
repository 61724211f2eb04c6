package metrics

import "gonum.org/v1/gonum/stat"

// Window buffers raw samples between periodic summaries and reduces
// them with gonum's batch estimators, which are more numerically
// careful than a second pass of Welford's algorithm would be over an
// already-small buffer.
type Window struct {
	samples []float64
	cap     int
}

// NewWindow creates a window that holds up to capacity samples.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{samples: make([]float64, 0, capacity), cap: capacity}
}

// Add appends x, reporting whether the window is now full.
func (w *Window) Add(x float64) bool {
	w.samples = append(w.samples, x)
	return len(w.samples) >= w.cap
}

// Summary is a reduced batch of samples.
type Summary struct {
	Count    int
	Mean     float64
	Variance float64
	Min      float64
	Max      float64
}

// Flush reduces the buffered samples into a Summary and clears the window.
func (w *Window) Flush() Summary {
	if len(w.samples) == 0 {
		return Summary{}
	}
	mean, variance := stat.MeanVariance(w.samples, nil)
	lo, hi := w.samples[0], w.samples[0]
	for _, v := range w.samples {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	s := Summary{Count: len(w.samples), Mean: mean, Variance: variance, Min: lo, Max: hi}
	w.samples = w.samples[:0]
	return s
}
