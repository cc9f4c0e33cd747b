package clockid

import (
	"strconv"

	"github.com/google/uuid"
)

// IdSource produces opaque, process-unique call ids. Grounded on the
// teacher's use of github.com/google/uuid for entity identity
// (internal/realtime/event.go's generateEventID).
type IdSource interface {
	NewId() string
}

// uuidSource is the production IdSource.
type uuidSource struct{}

// SystemId is the shared production IdSource.
var SystemId IdSource = uuidSource{}

func (uuidSource) NewId() string { return uuid.New().String() }

// Sequential is a deterministic test IdSource that hands out
// "<prefix><n>" ids in order, useful for asserting exact parent/child
// relationships in table-driven tests.
type Sequential struct {
	prefix string
	next   int
}

// NewSequential returns a Sequential id source.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// NewId returns the next sequential id.
func (s *Sequential) NewId() string {
	s.next++
	return s.prefix + strconv.Itoa(s.next)
}
