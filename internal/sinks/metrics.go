package sinks

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/TavariAgent/cortex-em-spectrum-foundation/internal/metrics"
)

// MetricsLogger writes one JSON object per line: a per-frame record on
// every tick plus a periodic aggregate record, matching the pipeline's
// JSONL metrics sink contract.
type MetricsLogger struct {
	mu          sync.Mutex
	file        *os.File
	t0          time.Time
	aggInterval time.Duration
	lastAgg     time.Time

	dupSkippedTotal int
	diffRatio       metrics.RunningStats
	rssMB           *metrics.Window
}

// NewMetricsLogger opens path for append-only JSONL writes. A blank path
// disables the logger: Ok() returns false and writes are no-ops.
func NewMetricsLogger(path string) (*MetricsLogger, error) {
	now := time.Now()
	m := &MetricsLogger{
		t0:          now,
		lastAgg:     now,
		aggInterval: time.Second,
		rssMB:       metrics.NewWindow(256),
	}
	if path == "" {
		return m, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	m.file = f
	return m, nil
}

// Ok reports whether the logger is writing to a real file.
func (m *MetricsLogger) Ok() bool { return m.file != nil }

// WallSeconds returns elapsed time since the logger was created.
func (m *MetricsLogger) WallSeconds() float64 { return time.Since(m.t0).Seconds() }

type frameRecord struct {
	Type               string  `json:"type"`
	T                  float64 `json:"t"`
	FrameIndex         int     `json:"frame_index"`
	Tsec               float64 `json:"tsec"`
	Unique             int     `json:"unique"`
	DupSkippedTotal    int     `json:"dup_skipped_total"`
	PoolFrames         int     `json:"pool_frames"`
	RSSMB              float64 `json:"rss_mb"`
	DiffRatio          float64 `json:"diff_ratio"`
	DedupeBlock        int     `json:"dedupe_block"`
	PerceptualDistance *int    `json:"perceptual_distance,omitempty"`
}

// LogFrame emits the per-frame record for one orchestrator tick and, at
// the configured cadence, an aggregate record summarizing recent ticks.
// perceptualDistanceOK gates whether perceptualDistance is attached to the
// record at all: the diagnostic is only computed when --diagnostics is on,
// and an absent field beats a misleading zero value.
func (m *MetricsLogger) LogFrame(frameIndex int, tsec float64, unique bool, poolFrames int, rssBytes uint64, diffRatio float64, dedupeBlock bool, perceptualDistance int, perceptualDistanceOK bool) {
	if !unique {
		m.dupSkippedTotal++
	}
	rssMB := float64(rssBytes) / (1024 * 1024)
	m.diffRatio.Add(diffRatio)
	full := m.rssMB.Add(rssMB)

	rec := frameRecord{
		Type:            "frame",
		T:               m.WallSeconds(),
		FrameIndex:      frameIndex,
		Tsec:            tsec,
		Unique:          boolToInt(unique),
		DupSkippedTotal: m.dupSkippedTotal,
		PoolFrames:      poolFrames,
		RSSMB:           rssMB,
		DiffRatio:       diffRatio,
		DedupeBlock:     boolToInt(dedupeBlock),
	}
	if perceptualDistanceOK {
		rec.PerceptualDistance = &perceptualDistance
	}
	m.writeLine(rec)

	if full || time.Since(m.lastAgg) >= m.aggInterval {
		m.logAggregate()
	}
}

type aggregateRecord struct {
	Type          string  `json:"type"`
	T             float64 `json:"t"`
	FrameCount    uint64  `json:"frame_count"`
	DiffRatioMean float64 `json:"diff_ratio_mean"`
	RSSMBMean     float64 `json:"rss_mb_mean"`
	RSSMBMin      float64 `json:"rss_mb_min"`
	RSSMBMax      float64 `json:"rss_mb_max"`
}

// logAggregate writes one aggregate record covering the frames logged since
// the previous aggregate, then clears both accumulators for the next
// window. It writes nothing when no frame has been logged in the window.
func (m *MetricsLogger) logAggregate() {
	if m.diffRatio.N() == 0 {
		m.lastAgg = time.Now()
		return
	}
	rssSummary := m.rssMB.Flush()
	rec := aggregateRecord{
		Type:          "aggregate",
		T:             m.WallSeconds(),
		FrameCount:    m.diffRatio.N(),
		DiffRatioMean: m.diffRatio.Mean(),
		RSSMBMean:     rssSummary.Mean,
		RSSMBMin:      rssSummary.Min,
		RSSMBMax:      rssSummary.Max,
	}
	m.writeLine(rec)
	m.diffRatio.Reset()
	m.lastAgg = time.Now()
}

// WriteRaw writes an already-serialized JSON line, matching the
// original's write_raw escape hatch for caller-assembled objects.
func (m *MetricsLogger) WriteRaw(line string) {
	if !m.Ok() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.file.WriteString(line)
	m.file.WriteString("\n")
}

func (m *MetricsLogger) writeLine(v any) {
	if !m.Ok() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.file.Write(data)
	m.file.WriteString("\n")
}

// Close flushes and closes the underlying file.
func (m *MetricsLogger) Close() error {
	if !m.Ok() {
		return nil
	}
	return m.file.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
