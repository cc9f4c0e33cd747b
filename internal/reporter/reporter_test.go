package reporter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
	"github.com/vitaliisemenov/methodtrace/internal/callstack"
	"github.com/vitaliisemenov/methodtrace/internal/report"
)

type fakeWriter struct {
	mu        sync.Mutex
	params    Params
	starts    []report.Item
	items     []report.Item
	summaries []string
	errs      []error
	flushes   int
	closed    bool
	limit     LimitOptions
}

func (w *fakeWriter) SetParameters(p Params) error { w.params = p; return nil }
func (w *fakeWriter) Initialize(string) error      { return nil }
func (w *fakeWriter) WriteStart(item report.Item) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.starts = append(w.starts, item)
	return nil
}
func (w *fakeWriter) WriteItem(item report.Item) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, item)
	return nil
}
func (w *fakeWriter) WriteSummary(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.summaries = append(w.summaries, line)
	return nil
}
func (w *fakeWriter) WriteError(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errs = append(w.errs, err)
	return nil
}
func (w *fakeWriter) SetLimitOptions(l LimitOptions) { w.limit = l }
func (w *fakeWriter) GetLimitOptions() LimitOptions  { return w.limit }
func (w *fakeWriter) Flush() error                   { w.flushes++; return nil }
func (w *fakeWriter) Close() error                   { w.closed = true; return nil }

func TestStartReportingBeforeInitializeFails(t *testing.T) {
	r := New("csv", "csv.Reporter", "r1")
	s := callstack.New(callrecord.NewPool(0))
	_, err := r.StartReporting(s)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestSimpleRootChildProducesStartEndAndSummary(t *testing.T) {
	pool := callrecord.NewPool(0)
	s := callstack.New(pool)
	r := New("csv", "csv.Reporter", "r1")
	w := &fakeWriter{}
	require.NoError(t, r.AddOutput(w, Params{OutputDirectory: "/out", BaseFileName: "csv"}))

	base := time.Now()
	root := pool.Rent(callrecord.RentParams{Id: "root", MethodName: "Root", ThreadId: 1, StartTime: base})
	require.NoError(t, r.Initialize(root))

	acq, err := r.StartReporting(s)
	require.NoError(t, err)

	require.NoError(t, s.Push(root))
	child := pool.Rent(callrecord.RentParams{Id: "child", MethodName: "Child", ThreadId: 1, StartTime: base.Add(time.Millisecond)})
	require.NoError(t, s.Push(child))
	child.End(base.Add(2 * time.Millisecond))
	s.Pop(child)
	root.End(base.Add(5 * time.Millisecond))
	s.Pop(root)

	require.NoError(t, acq.Close())

	require.Len(t, w.starts, 2)
	require.Len(t, w.items, 2)
	require.Len(t, w.summaries, 6)
	require.Equal(t, "TotalDuration: 5ms", w.summaries[0])
	require.True(t, w.closed)
}

func TestFilterChainDropsRecordsThatFailAnyFilter(t *testing.T) {
	pool := callrecord.NewPool(0)
	s := callstack.New(pool)
	r := New("csv", "csv.Reporter", "r1")
	w := &fakeWriter{}
	require.NoError(t, r.AddOutput(w, Params{}))
	require.NoError(t, r.AddFilter("never", func(item report.Item) bool { return false }))

	root := pool.Rent(callrecord.RentParams{Id: "root", MethodName: "Root", ThreadId: 1, StartTime: time.Now()})
	require.NoError(t, r.Initialize(root))
	acq, err := r.StartReporting(s)
	require.NoError(t, err)

	require.NoError(t, s.Push(root))
	root.End(time.Now().Add(time.Millisecond))
	s.Pop(root)
	require.NoError(t, acq.Close())

	require.Empty(t, w.items)
	require.Len(t, w.starts, 1)
}

func TestGapDetectionEmitsSyntheticGapBetweenDisjointRootSpans(t *testing.T) {
	pool := callrecord.NewPool(0)
	s := callstack.New(pool)
	r := New("csv", "csv.Reporter", "r1")
	w := &fakeWriter{}
	require.NoError(t, r.AddOutput(w, Params{}))

	base := time.Now()
	first := pool.Rent(callrecord.RentParams{Id: "first", MethodName: "First", ThreadId: 1, StartTime: base})
	require.NoError(t, r.Initialize(first))
	acq, err := r.StartReporting(s)
	require.NoError(t, err)

	require.NoError(t, s.Push(first))
	first.End(base.Add(time.Millisecond))
	s.Pop(first)

	second := pool.Rent(callrecord.RentParams{Id: "second", MethodName: "Second", ThreadId: 1, StartTime: base.Add(10 * time.Millisecond)})
	require.NoError(t, s.Push(second))
	second.End(base.Add(11 * time.Millisecond))
	s.Pop(second)

	require.NoError(t, acq.Close())

	require.Len(t, w.items, 3) // first, gap, second
	require.Equal(t, callrecord.GapMethodName, w.items[1].MethodName)
	require.Equal(t, 9*time.Millisecond, w.items[1].Duration)
}

func TestUserInteractionDurationExcludedFromMeasuredWithoutUserInteraction(t *testing.T) {
	pool := callrecord.NewPool(0)
	s := callstack.New(pool)
	r := New("csv", "csv.Reporter", "r1")
	w := &fakeWriter{}
	require.NoError(t, r.AddOutput(w, Params{}))

	base := time.Now()
	root := pool.Rent(callrecord.RentParams{Id: "root", MethodName: "Root", ThreadId: 1, StartTime: base})
	root.Parameters.Set(ParamWorkflowItemType, WorkflowItemTypeUserInteraction)
	require.NoError(t, r.Initialize(root))
	acq, err := r.StartReporting(s)
	require.NoError(t, err)

	require.NoError(t, s.Push(root))
	root.End(base.Add(10 * time.Millisecond))
	s.Pop(root)
	require.NoError(t, acq.Close())

	require.Equal(t, "MeasuredTotal: 10ms", w.summaries[3])
	require.Equal(t, "MeasuredWithoutUserInteraction: 0s", w.summaries[4])
}

func TestAddOutputAfterStartReportingFails(t *testing.T) {
	pool := callrecord.NewPool(0)
	s := callstack.New(pool)
	r := New("csv", "csv.Reporter", "r1")
	root := pool.Rent(callrecord.RentParams{Id: "root", MethodName: "Root", ThreadId: 1, StartTime: time.Now()})
	require.NoError(t, r.Initialize(root))
	_, err := r.StartReporting(s)
	require.NoError(t, err)

	require.ErrorIs(t, r.AddOutput(&fakeWriter{}, Params{}), ErrAlreadyStarted)
}
