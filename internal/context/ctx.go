// Package context implements the Method Call Context and its
// ClassMonitor factory (§4.5): the scoped acquisition a host wraps
// around a traced block, coupling the Monitoring Controller, the Call
// Stack, and the Call Record Pool.
package context

import (
	"log/slog"
	"sync/atomic"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
	"github.com/vitaliisemenov/methodtrace/internal/callstack"
	"github.com/vitaliisemenov/methodtrace/internal/clockid"
	"github.com/vitaliisemenov/methodtrace/internal/monitor"
)

// Context is the Method Call Context: SetParameter/LogException while
// open, Dispose to pop and release. A Dummy context (IsDummy() == true)
// is returned whenever ShouldTrack is false; every operation on it is a
// no-op.
type Context struct {
	stack    *callstack.Stack
	pool     *callrecord.Pool
	clock    clockid.Clock
	record   *callrecord.CallRecord
	scope    *monitor.OperationScope
	disposed atomic.Bool
	async    bool
	logger   *slog.Logger
}

// IsDummy reports whether this context was handed out because tracking
// was disabled for this call (§4.5 "Dummy context").
func (c *Context) IsDummy() bool {
	return c.record.IsNull
}

// Record exposes the underlying CallRecord, primarily for tests and for
// reporters that need direct access before the terminal event fires.
func (c *Context) Record() *callrecord.CallRecord {
	return c.record
}

// SetParameter appends name=value to the call record's parameter map.
// A no-op on a Dummy or disposed context.
func (c *Context) SetParameter(name, value string) {
	if c.record.IsNull || c.disposed.Load() {
		return
	}
	c.record.Parameters.Set(name, value)
}

// LogException records a MethodCallException on the stack without
// popping the record; Dispose still pops it normally afterward.
func (c *Context) LogException(err error) {
	if c.record.IsNull || c.disposed.Load() || err == nil {
		return
	}
	c.stack.PublishException(c.record, err)
}

// Dispose pops the record, ends it, releases the pinned operation
// scope, and returns the record to the pool once popped. Idempotent.
func (c *Context) Dispose() {
	if !c.disposed.CompareAndSwap(false, true) {
		return
	}
	if c.scope != nil {
		c.scope.Close()
	}
	if c.record.IsNull {
		return
	}
	c.record.End(c.clock.Now())
	c.stack.Pop(c.record)
	c.pool.Return(c.record)
}
