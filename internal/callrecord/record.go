// Package callrecord defines the CallRecord data model shared by every
// subsystem (stack, controller, reporter, writers) and the pool that
// rents/returns record shells. Grounded on the teacher's core domain
// model (internal/core/history.go) for field-projection conventions and
// on pkg/history/filters for how "shape" data (ordered, named, typed)
// gets carried alongside an entity.
package callrecord

import "time"

// GapMethodName is the reserved MethodName used for synthetic gap
// records (§4.6 CallGap, §4.8 "Records whose MethodName equals the
// reserved Gap sentinel are excluded from the template").
const GapMethodName = "Gap"

// MaxCallStackDepth caps push depth per thread; pushes beyond this are
// silently dropped and counted in diagnostics (§4.4).
const MaxCallStackDepth = 2048

// CallRecord is one row of the trace: a single logical method
// invocation with timing, identity, linkage and parameters.
//
// A CallRecord is owned by exactly one Call Stack frame at a time.
// Parent is a non-owning back-reference: it is only safe to dereference
// while the parent is still pushed (or, after popping, until it is
// returned to the pool) — see DESIGN.md for why this is not a
// runtime/weak.Pointer, matching the "non-owning back-reference"
// re-architecture called for in spec §9.
type CallRecord struct {
	// Identity
	Id       string
	ParentId string

	// Call shape
	ClassKey         string
	MethodName       string
	ParameterTypes   []string
	GenericArguments []string
	IsStatic         bool
	IsExtension      bool
	IsGeneric        bool

	// Timing
	StartTime time.Time
	Elapsed   time.Duration
	ended     bool

	// Linkage
	Parent         *CallRecord
	ParentThreadId int64
	ThreadId       int64
	Level          int

	// Payload
	Parameters         *OrderedParams
	AttributeParameters StringSet

	// Pool hook: true only for the shared sentinel Null record.
	IsNull bool

	// ItemType tags synthetic records (currently only gaps use this;
	// real records default to the zero value).
	ItemType RecordItemType
}

// RecordItemType distinguishes a synthetic gap record from a real call.
type RecordItemType int

const (
	// RecordItemCall is an ordinary method invocation record.
	RecordItemCall RecordItemType = iota
	// RecordItemGap marks a synthetic CallGap record.
	RecordItemGap
)

// FullName returns the class-qualified method name used by ReportItem
// and the override manager's FullName key.
func (r *CallRecord) FullName() string {
	if r.ClassKey == "" {
		return r.MethodName
	}
	return r.ClassKey + "." + r.MethodName
}

// End marks the record complete: Elapsed is computed from now - StartTime
// and the record becomes immutable (§3 invariant: Elapsed >= 0, immutable
// once ended).
func (r *CallRecord) End(now time.Time) {
	if r.ended {
		return
	}
	elapsed := now.Sub(r.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	r.Elapsed = elapsed
	r.ended = true
}

// Ended reports whether End has been called.
func (r *CallRecord) Ended() bool {
	return r.ended
}

// reset clears a record for pool reuse. Exported fields are zeroed, but
// Parameters/AttributeParameters backing storage is kept to save
// allocations on the next Rent.
func (r *CallRecord) reset() {
	params := r.Parameters
	attrs := r.AttributeParameters
	*r = CallRecord{}
	if params != nil {
		params.reset()
		r.Parameters = params
	} else {
		r.Parameters = NewOrderedParams()
	}
	if attrs != nil {
		for k := range attrs {
			delete(attrs, k)
		}
		r.AttributeParameters = attrs
	} else {
		r.AttributeParameters = NewStringSet()
	}
}
