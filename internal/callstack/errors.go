package callstack

import "errors"

// ErrNilRecord is returned by Push when given a nil record (§4.4
// "if record is null throw InvalidArgument").
var ErrNilRecord = errors.New("callstack: record must not be nil")
