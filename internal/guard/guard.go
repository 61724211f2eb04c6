// Package guard provides a lightweight duration/memory scope, adapted
// from the pipeline's tracing conventions down to a single enter/exit
// trait. Unlike a span, a Scope holds no pointer back to its owner and
// reports its snapshot only to whoever calls Exit.
package guard

import (
	"log/slog"
	"time"
)

// Snapshot is the result of closing a Scope.
type Snapshot struct {
	Name     string
	Duration time.Duration
	RSSDelta int64 // bytes; negative if RSS shrank
}

// LogValue implements slog.LogValuer for structured logging.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("scope", s.Name),
		slog.Duration("duration", s.Duration),
		slog.Int64("rss_delta_bytes", s.RSSDelta),
	)
}

// Scope times one unit of work and measures its RSS growth.
type Scope struct {
	name     string
	start    time.Time
	startRSS uint64
}

// Enter begins a new scope, sampling RSS at entry.
func Enter(name string) *Scope {
	return &Scope{
		name:     name,
		start:    time.Now(),
		startRSS: ProcessRSSBytes(),
	}
}

// Exit closes the scope and returns its snapshot.
func (s *Scope) Exit() Snapshot {
	endRSS := ProcessRSSBytes()
	return Snapshot{
		Name:     s.name,
		Duration: time.Since(s.start),
		RSSDelta: int64(endRSS) - int64(s.startRSS),
	}
}
