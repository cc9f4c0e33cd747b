package vfs

import "errors"

// ErrNotExist is wrapped into path-specific errors returned by MemFS's
// ReadFile, Remove, Rename, and ModTime. OSFS returns the os package's
// own errors for these.
var ErrNotExist = errors.New("vfs: path does not exist")
