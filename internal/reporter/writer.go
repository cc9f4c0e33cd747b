// Package reporter implements the Reporter Pipeline (§4.6): the
// observable stream of lifecycle events, per-reporter filtering,
// batching, gap detection and summary emission. Grounded on the
// teacher's internal/realtime publisher/subscriber pattern generalized
// from alert events to call-stack items, and on pkg/history/filters'
// enabled-filter-chain idea (reimplemented, not copied — that package
// was ultimately dropped, see DESIGN.md).
package reporter

import "github.com/vitaliisemenov/methodtrace/internal/report"

// LimitOptions bounds how many rows a writer keeps (§4.7
// SetLimitOptions/GetLimitOptions).
type LimitOptions struct {
	// MaxItems, when non-nil, keeps only the most recent N non-header
	// rows; older ones are dropped.
	MaxItems *int
}

// Params configures a writer's output target (§4.7 SetParameters).
type Params struct {
	OutputDirectory string
	BaseFileName    string
	DisplayName     string
	Limit           LimitOptions
}

// Writer is the common contract every output implementation satisfies
// (§4.7). WriteStart/WriteItem/WriteSummary/WriteError are non-throwing
// apart from fatal I/O errors, which are surfaced on Close.
type Writer interface {
	SetParameters(params Params) error
	// Initialize opens the output target(s), creating directories as
	// needed (§4.7 "Initialize(reporter) -> scoped_acquisition").
	Initialize(reporterName string) error
	// WriteStart is called once per MethodCallStart, in arrival order
	// (the Txt writer's primary hook; CSV/Rantt no-op it).
	WriteStart(item report.Item) error
	// WriteItem is called once per fully-ended record or synthetic gap.
	WriteItem(item report.Item) error
	WriteSummary(line string) error
	WriteError(err error) error
	SetLimitOptions(limit LimitOptions)
	GetLimitOptions() LimitOptions
	// Flush forces any buffered rows to the underlying FS.
	Flush() error
	// Close flushes and releases the output target(s); fatal I/O
	// errors are surfaced here, not per-write (§4.7, §7).
	Close() error
}
