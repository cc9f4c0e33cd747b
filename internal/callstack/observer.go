package callstack

import (
	"sync"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
)

// Observer receives CallStackItems in publication order, on the thread
// that called Push/Pop (§5 "no event loop").
type Observer func(item callrecord.CallStackItem)

// Subscription is the scoped acquisition returned by Subscribe: release
// is mandatory and unsubscribes the observer (§9 "scoped disposable
// handles").
type Subscription struct {
	stack *Stack
	id    uint64
	once  sync.Once
}

// Close unsubscribes the observer. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.stack.unsubscribe(s.id)
	})
}
