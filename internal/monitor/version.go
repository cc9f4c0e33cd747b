// Package monitor implements the Monitoring Version and Monitoring
// Controller components: monotonic version tokens, hierarchical gating
// flags, and scoped "operations" that pin a version for the lifetime of
// a traced call. Grounded on the teacher's internal/realtime event
// sequencing (monotonic Sequence numbers, §internal/realtime/bus.go)
// and internal/core/resilience's controller-style state machines.
package monitor

import (
	"sync"
	"time"
)

// Version is a totally ordered monitoring version token:
// (timestamp_micros, counter), ordered by timestamp then counter.
type Version struct {
	TimestampMicros int64
	Counter         int64
}

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool {
	if v.TimestampMicros != other.TimestampMicros {
		return v.TimestampMicros < other.TimestampMicros
	}
	return v.Counter < other.Counter
}

// LessOrEqual reports whether v orders at or before other.
func (v Version) LessOrEqual(other Version) bool {
	return v == other || v.Less(other)
}

// Zero is the smallest possible version, used as a "never set" sentinel.
var Zero = Version{}

// Source produces strictly monotonic Version tokens.
type Source struct {
	mu   sync.Mutex
	last Version
	now  func() time.Time
}

// NewSource returns a Source using the given clock function (time.Now
// in production, a frozen fake in tests).
func NewSource(now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	return &Source{now: now}
}

// GetCurrent returns the most recently issued version without advancing
// it (a pure read).
func (s *Source) GetCurrent() Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// NextAfter issues a new version guaranteed to be strictly greater than
// prev: it bumps the counter when the wall-clock timestamp collides
// with (or regresses behind) prev's timestamp.
func (s *Source) NextAfter(prev Version) Version {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMicro()
	var next Version
	if ts > prev.TimestampMicros {
		next = Version{TimestampMicros: ts, Counter: 0}
	} else {
		next = Version{TimestampMicros: prev.TimestampMicros, Counter: prev.Counter + 1}
	}
	s.last = next
	return next
}

// Reset reinitializes the source to (now, 0) and returns the new
// version, per §9's resolution of the Reset open question.
func (s *Source) Reset() Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = Version{TimestampMicros: s.now().UnixMicro(), Counter: 0}
	return s.last
}
