package reporter

import "errors"

var (
	// ErrNotInitialized is returned by StartReporting if Initialize
	// was not called first (§4.6 ordering contract).
	ErrNotInitialized = errors.New("reporter: Initialize must be called before StartReporting")
	// ErrAlreadyStarted is returned by AddOutput/AddFilter/Initialize
	// once StartReporting has been called.
	ErrAlreadyStarted = errors.New("reporter: reporter has already started")
)
