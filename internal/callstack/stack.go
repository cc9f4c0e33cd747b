// Package callstack implements the Call Stack Tracker: per-thread
// stacks, cross-thread parent inference, and an observer fan-out of
// CallStackItem events. Grounded on the teacher's internal/realtime
// event bus (single-producer/multi-consumer publish, synchronous
// subscriber invocation on the publishing goroutine) generalized to a
// per-thread stack model.
package callstack

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
	"github.com/vitaliisemenov/methodtrace/internal/metrics"
)

// Stack is the Call Stack Tracker. Zero value is not usable; construct
// with New.
type Stack struct {
	mu      sync.RWMutex
	threads map[int64][]*callrecord.CallRecord

	subMu     sync.Mutex
	observers map[uint64]Observer
	nextSubID uint64

	dropped atomic.Int64

	pool    *callrecord.Pool
	logger  *slog.Logger
	metrics *metrics.StackMetrics
}

// Option configures a Stack at construction time.
type Option func(*Stack)

// WithLogger sets the structured logger (defaults to slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stack) { s.logger = logger }
}

// WithMetrics attaches a Prometheus metric group.
func WithMetrics(m *metrics.StackMetrics) Option {
	return func(s *Stack) { s.metrics = m }
}

// New constructs an empty Stack backed by pool.
func New(pool *callrecord.Pool, opts ...Option) *Stack {
	s := &Stack{
		threads:   make(map[int64][]*callrecord.CallRecord),
		observers: make(map[uint64]Observer),
		pool:      pool,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "call_stack")
	return s
}

// CreateCallRecord rents a record from the pool and fills in call-shape
// metadata, the convenience factory of §4.4.
func (s *Stack) CreateCallRecord(params callrecord.RentParams) *callrecord.CallRecord {
	return s.pool.Rent(params)
}

// Push links record into its thread's stack, inferring the parent
// per §4.4, and publishes MethodCallStart to all subscribers. Pushing
// the pool's Null record is a no-op (this is how "global not tracking"
// reaches the stack: the Method Call Context rents Null instead of a
// real record when ShouldTrack is false).
func (s *Stack) Push(record *callrecord.CallRecord) error {
	if record == nil {
		return ErrNilRecord
	}
	if record.IsNull {
		return nil
	}

	s.mu.Lock()
	thread := s.threads[record.ThreadId]
	if len(thread) >= callrecord.MaxCallStackDepth {
		s.mu.Unlock()
		s.dropped.Add(1)
		if s.metrics != nil {
			s.metrics.DroppedPushesTotal.Inc()
		}
		s.logger.Warn("push dropped: max call stack depth reached",
			"thread_id", record.ThreadId, "depth", len(thread))
		return nil
	}

	var parent *callrecord.CallRecord
	if len(thread) > 0 {
		parent = thread[len(thread)-1]
	} else {
		parent = s.findLogicalAncestorLocked(record)
	}

	if parent == nil {
		parent = s.pool.GetNull()
	}

	record.Parent = parent
	record.ParentId = parent.Id
	record.ParentThreadId = parent.ThreadId
	record.Level = parent.Level + 1

	wasEmpty := len(s.threads) == 0
	s.threads[record.ThreadId] = append(thread, record)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PushesTotal.Inc()
		if wasEmpty {
			s.metrics.ActiveThreads.Set(float64(len(s.threads)))
		} else {
			s.metrics.ActiveThreads.Set(float64(s.activeThreadCount()))
		}
	}

	s.publish(callrecord.NewStart(record))
	return nil
}

// findLogicalAncestorLocked picks the nearest active root among other
// threads' stacks: the candidate with the latest StartTime that is not
// after record's own StartTime. Callers must hold s.mu.
func (s *Stack) findLogicalAncestorLocked(record *callrecord.CallRecord) *callrecord.CallRecord {
	var best *callrecord.CallRecord
	for threadID, stack := range s.threads {
		if threadID == record.ThreadId || len(stack) == 0 {
			continue
		}
		root := logicalRoot(stack[0])
		if root.StartTime.After(record.StartTime) {
			continue
		}
		if best == nil || root.StartTime.After(best.StartTime) {
			best = root
		}
	}
	return best
}

// logicalRoot walks rec's Parent chain up to the Level==1 ancestor: the
// record whose own parent is the pool's Null sentinel. A thread's bottom
// stack entry (stack[0]) is only the oldest record pushed on that
// thread, not necessarily a root of the whole logical call tree — it may
// itself have been parented (via this same inference) onto another
// thread's call. Chasing Parent here ensures every thread converges on
// the same shared root instead of chaining to whichever thread happened
// to push most recently.
func logicalRoot(rec *callrecord.CallRecord) *callrecord.CallRecord {
	for rec.Level > 1 && rec.Parent != nil && !rec.Parent.IsNull {
		rec = rec.Parent
	}
	return rec
}

// Pop removes record from its thread's stack if it is the top entry and
// publishes MethodCallEnd. Popping a record that is not the current top
// is a no-op, logged at debug level (§4.4 failure semantics). When the
// last active thread drains to empty, the terminal Empty event is
// published exactly once.
func (s *Stack) Pop(record *callrecord.CallRecord) {
	if record == nil || record.IsNull {
		return
	}

	s.mu.Lock()
	thread := s.threads[record.ThreadId]
	if len(thread) == 0 || thread[len(thread)-1] != record {
		s.mu.Unlock()
		s.logger.Debug("pop of non-top record ignored", "id", record.Id, "thread_id", record.ThreadId)
		return
	}

	thread = thread[:len(thread)-1]
	if len(thread) == 0 {
		delete(s.threads, record.ThreadId)
	} else {
		s.threads[record.ThreadId] = thread
	}
	drained := len(s.threads) == 0
	activeCount := len(s.threads)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PopsTotal.Inc()
		s.metrics.ActiveThreads.Set(float64(activeCount))
	}

	s.publish(callrecord.NewEnd(record))
	if drained {
		s.publish(callrecord.NewEmpty())
	}
}

func (s *Stack) activeThreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}

// PublishException publishes a MethodCallException for record without
// popping it (the record is still pushed; Dispose pops it normally
// afterward). A no-op for the Null record.
func (s *Stack) PublishException(record *callrecord.CallRecord, err error) {
	if record == nil || record.IsNull {
		return
	}
	s.publish(callrecord.NewException(record, err))
}

// Subscribe registers observer for all future events; events are
// delivered synchronously on the goroutine that called Push/Pop, in
// publication order.
func (s *Stack) Subscribe(observer Observer) *Subscription {
	s.subMu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.observers[id] = observer
	s.subMu.Unlock()
	return &Subscription{stack: s, id: id}
}

func (s *Stack) unsubscribe(id uint64) {
	s.subMu.Lock()
	delete(s.observers, id)
	s.subMu.Unlock()
}

func (s *Stack) publish(item callrecord.CallStackItem) {
	s.subMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.subMu.Unlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("observer panicked", "recovered", r)
				}
			}()
			obs(item)
		}()
	}
}

// Diagnostics returns a thread_id -> depth snapshot, the opt-in
// replacement for the source's private-field reflection (§9).
func (s *Stack) Diagnostics() map[int64]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]int, len(s.threads))
	for id, stack := range s.threads {
		out[id] = len(stack)
	}
	return out
}

// DroppedPushes returns the cumulative count of pushes rejected for
// exceeding MaxCallStackDepth.
func (s *Stack) DroppedPushes() int64 {
	return s.dropped.Load()
}

// Reset drains all subscribers and returns every currently-stacked
// record to the pool, per the composed Reset semantics of §9.
func (s *Stack) Reset() {
	s.mu.Lock()
	threads := s.threads
	s.threads = make(map[int64][]*callrecord.CallRecord)
	s.mu.Unlock()

	for _, stack := range threads {
		for _, rec := range stack {
			s.pool.Return(rec)
		}
	}

	s.subMu.Lock()
	s.observers = make(map[uint64]Observer)
	s.subMu.Unlock()

	s.dropped.Store(0)
	if s.metrics != nil {
		s.metrics.ActiveThreads.Set(0)
	}
	s.logger.Info("call stack reset")
}
