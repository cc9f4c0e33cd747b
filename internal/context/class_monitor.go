package context

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
	"github.com/vitaliisemenov/methodtrace/internal/callstack"
	"github.com/vitaliisemenov/methodtrace/internal/clockid"
	"github.com/vitaliisemenov/methodtrace/internal/monitor"
)

// ClassMonitor is the factory a host's intercepted class/method binds
// to: it gates tracking through the Controller, rents a record on the
// Call Stack when allowed, and hands back either a live or Dummy
// Context.
type ClassMonitor struct {
	controller *monitor.Controller
	stack      *callstack.Stack
	pool       *callrecord.Pool
	clock      clockid.Clock
	ids        clockid.IdSource
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewClassMonitor wires a ClassMonitor from its five collaborators; a nil
// clock or ids falls back to the system source.
func NewClassMonitor(controller *monitor.Controller, stack *callstack.Stack, pool *callrecord.Pool, clock clockid.Clock, ids clockid.IdSource) *ClassMonitor {
	if clock == nil {
		clock = clockid.System
	}
	if ids == nil {
		ids = clockid.SystemId
	}
	return &ClassMonitor{
		controller: controller,
		stack:      stack,
		pool:       pool,
		clock:      clock,
		ids:        ids,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     slog.Default().With("component", "class_monitor"),
	}
}

// Start opens a synchronous Method Call Context for cfg.
func (m *ClassMonitor) Start(cfg Config) (*Context, error) {
	return m.start(cfg, false)
}

// AsyncStart opens an asynchronous Method Call Context: the caller may
// resume on any thread, but cfg.ThreadId must reflect whichever thread
// is "current" at the moment Start/Dispose/SetParameter run — parent
// inference is by record identity, not thread-local storage (§5).
func (m *ClassMonitor) AsyncStart(cfg Config) (*Context, error) {
	return m.start(cfg, true)
}

func (m *ClassMonitor) start(cfg Config, async bool) (*Context, error) {
	if err := m.validate.Struct(cfg); err != nil {
		return nil, err
	}

	scope, pinned := m.controller.BeginOperation()
	if !m.controller.ShouldTrack(pinned, monitor.ComponentKey(cfg.Reporter), monitor.ComponentKey(cfg.Filter)) {
		scope.Close()
		return &Context{
			stack:  m.stack,
			pool:   m.pool,
			clock:  m.clock,
			record: m.pool.GetNull(),
			async:  async,
			logger: m.logger,
		}, nil
	}

	record := m.stack.CreateCallRecord(callrecord.RentParams{
		Id:               m.ids.NewId(),
		ClassKey:         cfg.ClassKey,
		MethodName:       cfg.MethodName,
		ParameterTypes:   cfg.ParameterTypes,
		GenericArguments: cfg.GenericArguments,
		IsStatic:         cfg.IsStatic,
		IsExtension:      cfg.IsExtension,
		IsGeneric:        cfg.IsGeneric,
		ThreadId:         cfg.ThreadId,
		StartTime:        m.clock.Now(),
	})

	if err := m.stack.Push(record); err != nil {
		m.pool.Return(record)
		scope.Close()
		return nil, err
	}

	return &Context{
		stack:  m.stack,
		pool:   m.pool,
		clock:  m.clock,
		record: record,
		scope:  scope,
		async:  async,
		logger: m.logger,
	}, nil
}
