package writer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vitaliisemenov/methodtrace/internal/report"
	"github.com/vitaliisemenov/methodtrace/internal/reporter"
	"github.com/vitaliisemenov/methodtrace/internal/vfs"
)

// TxtWriter emits one line per MethodCallStart, in arrival order, to a
// single plain-text file. Unlike CSVWriter/RanttWriter it drives off
// WriteStart rather than WriteItem, since its output is a live narration
// of calls beginning, not a table of completed ones (§4.7).
type TxtWriter struct {
	base
	path  string
	lines []string
}

// NewTxtWriter constructs a TxtWriter backed by fs.
func NewTxtWriter(fs vfs.FS, archiver *Archiver) *TxtWriter {
	return &TxtWriter{base: newBase(fs, archiver)}
}

func (w *TxtWriter) SetParameters(p reporter.Params) error { return w.setParameters(p) }

func (w *TxtWriter) Initialize(reporterName string) error {
	_, baseFile := w.resolveNames(reporterName)
	dir, baseFile, err := w.initializeDir(reporterName, []string{baseFile + ".txt", "summary.txt"})
	if err != nil {
		return err
	}
	w.path = filepath.Join(dir, baseFile+".txt")
	return nil
}

func (w *TxtWriter) WriteStart(item report.Item) error {
	item = w.applyOverrides(item)
	line := fmt.Sprintf("%s %s %s -> %s", item.StartTime.Format(timeLayout), item.Id, item.ParentId, item.FullName)

	w.mu.Lock()
	w.lines = append(w.lines, line)
	w.lines = applyLimit(w.lines, w.limit)
	w.mu.Unlock()
	return nil
}

// WriteItem is a no-op: the Txt writer narrates starts, not completions.
func (w *TxtWriter) WriteItem(report.Item) error { return nil }

func (w *TxtWriter) WriteSummary(line string) error { return w.writeSummary(line) }
func (w *TxtWriter) WriteError(err error) error     { return w.writeError(err) }
func (w *TxtWriter) SetLimitOptions(l reporter.LimitOptions) {
	w.setLimitOptions(l)
	w.mu.Lock()
	w.lines = applyLimit(w.lines, l)
	w.mu.Unlock()
}
func (w *TxtWriter) GetLimitOptions() reporter.LimitOptions { return w.getLimitOptions() }

// Flush re-renders the entire file from the current line buffer, mirroring
// CSVWriter's full-rewrite approach so SetLimitOptions trimming is always
// reflected on disk.
func (w *TxtWriter) Flush() error {
	w.mu.Lock()
	lines := append([]string{}, w.lines...)
	path := w.path
	w.mu.Unlock()

	return w.fs.WriteFile(path, []byte(strings.Join(lines, "\n")))
}

func (w *TxtWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.saveOverrideTemplate(); err != nil {
		return err
	}
	return w.flushSummaryFile()
}
