package writer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/vitaliisemenov/methodtrace/internal/vfs"
)

// Archiver rotates a reporter directory's prior-run files into
// archive/<timestamp>/ before a new run writes fresh ones, mirroring
// the teacher's lumberjack-backed log rotation (pkg/logger.go) adapted
// from rolling log files to rolling report runs.
type Archiver struct {
	fs  vfs.FS
	now func() time.Time
}

// NewArchiver returns an Archiver using now for rotation timestamps
// (time.Now in production).
func NewArchiver(fs vfs.FS, now func() time.Time) *Archiver {
	if now == nil {
		now = time.Now
	}
	return &Archiver{fs: fs, now: now}
}

// RotateIfExists moves every name in names that currently exists under
// dir into dir/archive/<timestamp>/, returning the number moved.
func (a *Archiver) RotateIfExists(dir string, names []string) (int, error) {
	moved := 0
	var archiveDir string
	for _, name := range names {
		src := filepath.Join(dir, name)
		if !a.fs.Exists(src) {
			continue
		}
		if archiveDir == "" {
			archiveDir = filepath.Join(dir, "archive", a.now().UTC().Format("20060102T150405.000000000"))
			if err := a.fs.MkdirAll(archiveDir); err != nil {
				return moved, fmt.Errorf("writer: creating archive dir: %w", err)
			}
		}
		dst := filepath.Join(archiveDir, name)
		if err := a.fs.Rename(src, dst); err != nil {
			return moved, fmt.Errorf("writer: archiving %s: %w", name, err)
		}
		moved++
	}
	return moved, nil
}
