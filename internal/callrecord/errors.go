package callrecord

import "errors"

// Sentinel errors for the call-record/pool subsystem, grouped the way
// internal/core/errors.go groups the teacher's domain errors.
var (
	// ErrNilRecord is returned when an operation receives a nil record
	// where one is required (§7 InvalidArgument).
	ErrNilRecord = errors.New("callrecord: record must not be nil")
)
