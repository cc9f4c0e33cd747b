package writer

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/vitaliisemenov/methodtrace/internal/report"
	"github.com/vitaliisemenov/methodtrace/internal/reporter"
	"github.com/vitaliisemenov/methodtrace/internal/vfs"
)

// base is embedded by every file-backed writer: it owns the output
// directory, the per-directory Method Override Manager, the archiver,
// and the summary/error side-channel every writer exposes per the
// common contract (§4.7).
type base struct {
	fs       vfs.FS
	archiver *Archiver

	mu           sync.Mutex
	params       reporter.Params
	dir          string
	reporterName string
	overrides    *report.OverrideManager
	limit        reporter.LimitOptions
	summaryLines []string
	errorLines   []string
}

func newBase(fs vfs.FS, archiver *Archiver) base {
	return base{fs: fs, archiver: archiver}
}

func (b *base) setParameters(p reporter.Params) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.params = p
	b.limit = p.Limit
	return nil
}

// resolveNames returns the per-reporter output directory and the
// writer's base file name (falling back to reporterName), without
// touching the filesystem. Callers use the base file name to build
// rotateNames before calling initializeDir.
func (b *base) resolveNames(reporterName string) (dir, baseFileName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dir = filepath.Join(b.params.OutputDirectory, reporterName)
	baseFileName = b.params.BaseFileName
	if baseFileName == "" {
		baseFileName = reporterName
	}
	return dir, baseFileName
}

// initializeDir creates the per-reporter output directory, optionally
// archives the given rotateNames from a prior run, and loads the
// override table.
func (b *base) initializeDir(reporterName string, rotateNames []string) (dir, baseName string, err error) {
	dir, baseName = b.resolveNames(reporterName)
	b.mu.Lock()
	b.reporterName = reporterName
	b.dir = dir
	b.mu.Unlock()

	if err = b.fs.MkdirAll(dir); err != nil {
		return dir, baseName, err
	}
	if b.archiver != nil && len(rotateNames) > 0 {
		if _, err = b.archiver.RotateIfExists(dir, rotateNames); err != nil {
			return dir, baseName, err
		}
	}
	overrides, err := report.Load(b.fs, dir)
	if err != nil {
		return dir, baseName, err
	}
	b.mu.Lock()
	b.overrides = overrides
	b.mu.Unlock()
	return dir, baseName, nil
}

func (b *base) applyOverrides(item report.Item) report.Item {
	b.mu.Lock()
	overrides := b.overrides
	b.mu.Unlock()
	if overrides == nil {
		return item
	}
	overrides.Observe(item)
	return overrides.Apply(item)
}

func (b *base) writeSummary(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summaryLines = append(b.summaryLines, line)
	return nil
}

func (b *base) writeError(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorLines = append(b.errorLines, err.Error())
	return nil
}

func (b *base) setLimitOptions(l reporter.LimitOptions) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limit = l
}

func (b *base) getLimitOptions() reporter.LimitOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit
}

// flushSummaryFile writes the accumulated summary/error lines into
// <dir>/summary.txt, one per line, no trailing newline. A no-op if
// nothing was ever recorded.
func (b *base) flushSummaryFile() error {
	b.mu.Lock()
	lines := append([]string{}, b.summaryLines...)
	for _, e := range b.errorLines {
		lines = append(lines, "ERROR: "+e)
	}
	dir := b.dir
	b.mu.Unlock()

	if len(lines) == 0 {
		return nil
	}
	return b.fs.WriteFile(filepath.Join(dir, "summary.txt"), []byte(strings.Join(lines, "\n")))
}

// saveOverrideTemplate persists method_overrides.template for this
// writer's directory (§4.8).
func (b *base) saveOverrideTemplate() error {
	b.mu.Lock()
	overrides := b.overrides
	b.mu.Unlock()
	if overrides == nil {
		return nil
	}
	return overrides.SaveTemplate()
}

// applyLimit trims items to the most recent MaxItems entries, or
// returns items unchanged if no limit is set (§4.7 SetLimitOptions).
func applyLimit[T any](items []T, limit reporter.LimitOptions) []T {
	if limit.MaxItems == nil || len(items) <= *limit.MaxItems {
		return items
	}
	return items[len(items)-*limit.MaxItems:]
}
