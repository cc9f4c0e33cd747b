package callrecord

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Pool rents and recycles CallRecord shells. It is an optimization, not a
// correctness layer: Rent never fails — if the underlying sync.Pool is
// empty it simply allocates a fresh record (§4.1).
//
// Two distinct caches back the pool:
//   - shells: a sync.Pool of recycled *CallRecord structs, reused across
//     Rent/Return to avoid per-call allocation. This is Go's idiomatic
//     lock-free-under-contention object pool.
//   - shapes: a bounded LRU of "call shape" metadata (ParameterTypes,
//     GenericArguments capacity hints) keyed by ClassKey+MethodName,
//     adapted from internal/infrastructure/template/cache.go's use of
//     hashicorp/golang-lru for a bounded, eviction-aware lookup cache.
//     Repeated calls into the same hot method reuse slice capacity
//     instead of reallocating it every Rent.
type Pool struct {
	shells sync.Pool
	shapes *lru.Cache[string, *shapeHint]

	mu   sync.Mutex
	null *CallRecord
}

type shapeHint struct {
	parameterTypesCap   int
	genericArgumentsCap int
}

const defaultShapeCacheSize = 4096

// NewPool constructs a Pool with a shape cache of the given size (0 uses
// the default).
func NewPool(shapeCacheSize int) *Pool {
	if shapeCacheSize <= 0 {
		shapeCacheSize = defaultShapeCacheSize
	}
	shapes, _ := lru.New[string, *shapeHint](shapeCacheSize)
	p := &Pool{shapes: shapes}
	p.shells.New = func() any { return &CallRecord{} }
	return p
}

// RentParams bundles the arguments needed to populate a rented record.
type RentParams struct {
	Id               string
	ClassKey         string
	MethodName       string
	ParameterTypes   []string
	GenericArguments []string
	IsStatic         bool
	IsExtension      bool
	IsGeneric        bool
	ThreadId         int64
	StartTime        time.Time
}

// Rent returns a populated, non-null CallRecord ready to be pushed.
func (p *Pool) Rent(params RentParams) *CallRecord {
	rec := p.shells.Get().(*CallRecord)
	rec.reset()

	rec.Id = params.Id
	rec.ClassKey = params.ClassKey
	rec.MethodName = params.MethodName
	rec.IsStatic = params.IsStatic
	rec.IsExtension = params.IsExtension
	rec.IsGeneric = params.IsGeneric
	rec.ThreadId = params.ThreadId
	rec.StartTime = params.StartTime

	hintKey := params.ClassKey + "." + params.MethodName
	hint, ok := p.shapes.Get(hintKey)
	if !ok {
		hint = &shapeHint{}
	}

	rec.ParameterTypes = appendWithHint(nil, params.ParameterTypes, hint.parameterTypesCap)
	rec.GenericArguments = appendWithHint(nil, params.GenericArguments, hint.genericArgumentsCap)

	hint.parameterTypesCap = cap(rec.ParameterTypes)
	hint.genericArgumentsCap = cap(rec.GenericArguments)
	p.shapes.Add(hintKey, hint)

	return rec
}

func appendWithHint(dst, src []string, hintCap int) []string {
	n := len(src)
	c := n
	if hintCap > c {
		c = hintCap
	}
	out := make([]string, n, c)
	copy(out, src)
	return out
}

// Return releases a record back to the shell pool. Callers must only
// Return a record after every observer has finished processing its
// terminal event (§4.1 lifecycle) — once returned, any other goroutine
// still holding a *CallRecord pointer to it (e.g. via Parent) must not
// dereference it again.
func (p *Pool) Return(rec *CallRecord) {
	if rec == nil || rec.IsNull {
		return
	}
	p.shells.Put(rec)
}

// GetNull returns the shared sentinel Null record. It satisfies
// reference equality for "no parent" and never escapes into the
// reporter stream.
func (p *Pool) GetNull() *CallRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.null == nil {
		p.null = &CallRecord{
			IsNull:              true,
			Level:               0,
			Parameters:          NewOrderedParams(),
			AttributeParameters: NewStringSet(),
			ParentThreadId:      -1,
		}
	}
	return p.null
}
