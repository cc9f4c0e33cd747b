// Package vfs provides a pluggable file-system abstraction so writers
// can be exercised in tests without touching disk. Grounded on the
// teacher's storage-seam pattern (internal/database connection
// interfaces swapped for fakes in tests) generalized to a full
// filesystem contract.
package vfs

import (
	"io"
	"time"
)

// FS is the abstraction every writer depends on instead of the os
// package directly.
type FS interface {
	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string) error
	// WriteFile writes data to path, creating or truncating it.
	WriteFile(path string, data []byte) error
	// AppendFile appends data to path, creating it if absent.
	AppendFile(path string, data []byte) error
	// ReadFile reads the entire contents of path.
	ReadFile(path string) ([]byte, error)
	// Exists reports whether path names a file or directory.
	Exists(path string) bool
	// DirectoryExists reports whether path names a directory. Creating
	// a file under "/a/b/" makes DirectoryExists("/a/b") return true,
	// even if "/a/b" was never explicitly created (per the resolved
	// cross-variant ambiguity on WriteAllText semantics).
	DirectoryExists(path string) bool
	// Remove deletes a single file.
	Remove(path string) error
	// Rename moves oldPath to newPath, overwriting any existing file.
	Rename(oldPath, newPath string) error
	// ModTime returns the last modification time of path.
	ModTime(path string) (time.Time, error)
	// OpenWriter opens path for streaming writes (append semantics),
	// used by writers that emit rows incrementally instead of
	// buffering a full file in memory.
	OpenWriter(path string) (io.WriteCloser, error)
}
