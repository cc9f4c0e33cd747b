package reporter

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
	"github.com/vitaliisemenov/methodtrace/internal/callstack"
	"github.com/vitaliisemenov/methodtrace/internal/metrics"
	"github.com/vitaliisemenov/methodtrace/internal/report"
)

// BatchSize is the reporter's flush threshold (§4.6 BATCH_SIZE = 100).
const BatchSize = 100

// ParamWorkflowItemType and WorkflowItemTypeUserInteraction identify
// user-interaction spans for the summary's "measured without user
// interaction" line (§4.6).
const (
	ParamWorkflowItemType          = "WorkflowItemType"
	WorkflowItemTypeUserInteraction = "UserInteraction"
)

// Reporter is the Reporter Pipeline: one named consumer of the Call
// Stack's event stream, driving zero or more Writers through a shared
// filter chain, batching, gap detection, and a terminal summary.
type Reporter struct {
	Name       string
	FullName   string
	Id         string
	rootMethod string

	mu          sync.Mutex
	initialized bool
	started     bool

	outputs []Writer
	filters []namedFilter

	rootRecord *callrecord.CallRecord
	sub        *callstack.Subscription

	sinceFlush int

	openCount   int
	lastEndTime time.Time

	totalGapDuration        time.Duration
	userInteractionDuration time.Duration
	measuredTotal           time.Duration
	gapCount                int

	logger  *slog.Logger
	metrics *metrics.ReporterMetrics
}

// Option configures a Reporter at construction.
type Option func(*Reporter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) { r.logger = logger }
}

// WithMetrics attaches a Prometheus metric group.
func WithMetrics(m *metrics.ReporterMetrics) Option {
	return func(r *Reporter) { r.metrics = m }
}

// New constructs a Reporter. name/fullName/id are fixed for the
// reporter's lifetime (§4.6 "Name, FullName, RootMethod (set once),
// Id").
func New(name, fullName, id string, opts ...Option) *Reporter {
	r := &Reporter{Name: name, FullName: fullName, Id: id, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reporter", "reporter_name", name)
	return r
}

// AddOutput registers a writer and its parameters. Must be called
// before StartReporting.
func (r *Reporter) AddOutput(w Writer, params Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	if err := w.SetParameters(params); err != nil {
		return fmt.Errorf("reporter: configuring output: %w", err)
	}
	r.outputs = append(r.outputs, w)
	return nil
}

// AddFilter enables filter fn, named name, for this reporter instance.
func (r *Reporter) AddFilter(name FilterName, fn FilterFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.filters = append(r.filters, namedFilter{name: name, fn: fn})
	return nil
}

// Initialize sets RootMethod and captures the root call record. It
// MUST be called before StartReporting (§4.6 ordering contract:
// "[SetRootMethod, StartReporting, …, Flush/Close]").
func (r *Reporter) Initialize(rootRecord *callrecord.CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.rootRecord = rootRecord
	r.rootMethod = rootRecord.FullName()
	r.initialized = true
	for _, w := range r.outputs {
		if err := w.Initialize(r.Name); err != nil {
			return fmt.Errorf("reporter: initializing output: %w", err)
		}
	}
	return nil
}

// RootMethod returns the FullName of the root record, set by Initialize.
func (r *Reporter) RootMethod() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rootMethod
}

// Acquisition is the scoped handle returned by StartReporting: Close
// flushes and closes every registered writer exactly once (§4.6, §9).
type Acquisition struct {
	r    *Reporter
	once sync.Once
}

// Close flushes and closes all outputs, awaiting in-flight writer
// completion before returning (§5 "Disposal of a reporter awaits
// in-flight writer completion").
func (a *Acquisition) Close() error {
	var err error
	a.once.Do(func() {
		err = a.r.close()
	})
	return err
}

// StartReporting subscribes to stack's event stream. Initialize MUST
// have been called first.
func (r *Reporter) StartReporting(stack *callstack.Stack) (*Acquisition, error) {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if r.started {
		r.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	r.sub = stack.Subscribe(r.handle)
	return &Acquisition{r: r}, nil
}

func (r *Reporter) close() error {
	if r.sub != nil {
		r.sub.Close()
	}

	r.mu.Lock()
	outputs := append([]Writer{}, r.outputs...)
	r.mu.Unlock()

	var firstErr error
	for _, w := range outputs {
		if err := w.Flush(); err != nil {
			r.logger.Error("writer flush failed", "error", err)
		}
		if err := w.Close(); err != nil {
			r.logger.Error("writer close failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Reporter) handle(item callrecord.CallStackItem) {
	switch item.Type {
	case callrecord.ItemMethodCallStart:
		r.handleStart(item.Record)
	case callrecord.ItemMethodCallEnd:
		r.handleEnd(item.Record)
	case callrecord.ItemMethodCallException:
		r.handleException(item.Record, item.Err)
	case callrecord.ItemEmpty:
		// No reporter-level action: Start/End symmetry already tracks
		// openCount, and a fully-drained trace needs no further signal
		// here.
	}
}

func (r *Reporter) handleStart(rec *callrecord.CallRecord) {
	r.mu.Lock()
	if r.openCount == 0 && !r.lastEndTime.IsZero() && rec.StartTime.After(r.lastEndTime) {
		gap := &callrecord.CallRecord{
			Id:         "gap-" + rec.Id,
			MethodName: callrecord.GapMethodName,
			ItemType:   callrecord.RecordItemGap,
			StartTime:  r.lastEndTime,
			Elapsed:    rec.StartTime.Sub(r.lastEndTime),
			Parameters: callrecord.NewOrderedParams(),
		}
		r.totalGapDuration += gap.Elapsed
		r.gapCount++
		r.mu.Unlock()
		r.emit(report.FromRecord(gap))
		r.mu.Lock()
	}
	r.openCount++
	r.mu.Unlock()

	startItem := report.Item{
		Id:         rec.Id,
		ParentId:   rec.ParentId,
		MethodName: rec.MethodName,
		FullName:   rec.FullName(),
		StartTime:  rec.StartTime,
		Parameters: rec.Parameters,
	}
	r.forEachOutput(func(w Writer) error { return w.WriteStart(startItem) })
}

func (r *Reporter) handleEnd(rec *callrecord.CallRecord) {
	r.mu.Lock()
	r.openCount--
	endTime := rec.StartTime.Add(rec.Elapsed)
	r.lastEndTime = endTime
	r.mu.Unlock()

	item := report.FromRecord(rec)
	if !r.passesFilters(item) {
		r.maybeEmitSummary(rec)
		return
	}

	r.mu.Lock()
	r.measuredTotal += item.Duration
	if v, ok := item.Parameters.Get(ParamWorkflowItemType); ok && v == WorkflowItemTypeUserInteraction {
		r.userInteractionDuration += item.Duration
	}
	r.mu.Unlock()

	r.emit(item)
	r.maybeEmitSummary(rec)
}

func (r *Reporter) handleException(rec *callrecord.CallRecord, err error) {
	r.forEachOutput(func(w Writer) error { return w.WriteError(err) })
}

func (r *Reporter) passesFilters(item report.Item) bool {
	r.mu.Lock()
	filters := append([]namedFilter{}, r.filters...)
	r.mu.Unlock()
	for _, f := range filters {
		if !f.fn(item) {
			return false
		}
	}
	return true
}

// emit routes item to every output's WriteItem and advances the
// batch-flush counter (§4.6 "flush on batch full").
func (r *Reporter) emit(item report.Item) {
	r.forEachOutput(func(w Writer) error { return w.WriteItem(item) })

	r.mu.Lock()
	r.sinceFlush++
	shouldFlush := r.sinceFlush >= BatchSize
	if shouldFlush {
		r.sinceFlush = 0
	}
	outputs := append([]Writer{}, r.outputs...)
	r.mu.Unlock()

	if !shouldFlush {
		return
	}
	for _, w := range outputs {
		if err := w.Flush(); err != nil {
			r.logger.Error("batch flush failed", "error", err)
		}
	}
	if r.metrics != nil {
		r.metrics.BatchesFlushed.Inc()
	}
}

func (r *Reporter) forEachOutput(fn func(Writer) error) {
	r.mu.Lock()
	outputs := append([]Writer{}, r.outputs...)
	r.mu.Unlock()
	for _, w := range outputs {
		if err := fn(w); err != nil {
			r.logger.Error("writer operation failed", "error", err)
		}
	}
}

// maybeEmitSummary emits the six summary lines once the root record's
// end is observed (§4.6).
func (r *Reporter) maybeEmitSummary(rec *callrecord.CallRecord) {
	r.mu.Lock()
	isRoot := r.rootRecord != nil && rec == r.rootRecord
	if !isRoot {
		r.mu.Unlock()
		return
	}
	totalDuration := rec.Elapsed
	totalGap := r.totalGapDuration
	userInteraction := r.userInteractionDuration
	measuredTotal := r.measuredTotal
	gapCount := r.gapCount
	r.mu.Unlock()

	lines := []string{
		fmt.Sprintf("TotalDuration: %s", totalDuration),
		fmt.Sprintf("TotalGapDuration: %s", totalGap),
		fmt.Sprintf("UserInteractionDuration: %s", userInteraction),
		fmt.Sprintf("MeasuredTotal: %s", measuredTotal),
		fmt.Sprintf("MeasuredWithoutUserInteraction: %s", measuredTotal-userInteraction),
		fmt.Sprintf("GapCount: %d", gapCount),
	}
	for _, line := range lines {
		r.forEachOutput(func(w Writer) error { return w.WriteSummary(line) })
	}
	if r.metrics != nil {
		r.metrics.GapsEmitted.Add(float64(gapCount))
	}
}
