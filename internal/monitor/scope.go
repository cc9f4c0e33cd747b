package monitor

import "sync/atomic"

// OperationScope pins a Version for the duration of a traced call. It
// starts Valid and transitions to Invalidated the instant any
// state-changing call bumps the controller's version while the scope is
// still open; a later re-enable cannot revert it back to Valid, because
// ShouldTrack compares the scope's pinned version against the
// controller's live activation/disable versions, not against scope
// state directly (§9 "pinned versions from before a disable stay
// untracked even across a later re-enable").
type OperationScope struct {
	controller *Controller
	pinned     Version
	valid      atomic.Bool
	closed     atomic.Bool
}

// Version returns the version pinned at BeginOperation time.
func (s *OperationScope) Version() Version {
	return s.pinned
}

// Valid reports whether the scope is still open and has not been
// invalidated by an intervening version bump.
func (s *OperationScope) Valid() bool {
	return s.valid.Load() && !s.closed.Load()
}

// invalidate is called by the owning Controller on every version bump.
// The pinned version itself never changes; only the cached validity
// flag does, so ShouldTrack queries against fresh controller state
// remain authoritative.
func (s *OperationScope) invalidate() {
	s.valid.Store(false)
}

// Close ends the operation and detaches it from the controller. Close
// is idempotent.
func (s *OperationScope) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.controller.unregisterContext(s)
	}
}
