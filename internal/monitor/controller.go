package monitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vitaliisemenov/methodtrace/internal/metrics"
)

// StateChangedCallback observes every global/reporter/filter flag flip.
type StateChangedCallback func(kind ComponentKind, name ComponentKey, enabled bool, newVersion Version)

// VersionChangedCallback observes every version bump, independent of
// which flag triggered it.
type VersionChangedCallback func(old, new_ Version)

// versionedContext is the internal hook OperationScope implements so
// the controller can invalidate it synchronously on every version bump
// (§4.3 "drains callbacks synchronously").
type versionedContext interface {
	invalidate()
}

// Controller is the Monitoring Controller: global on/off, per-component
// flags, version bumps, callbacks, and scoped operations. One process
// normally owns a single Controller, explicitly constructed and passed
// by reference — never a package-level global — per spec §9 Design
// Notes ("avoid hidden globals... tests MUST be able to instantiate
// multiple independent controllers").
type Controller struct {
	mu sync.RWMutex

	versions *Source

	globalEnabled bool
	lastDisable   *Version // nil until the first Disable()

	reporterEnabled           map[ComponentKey]bool
	reporterActivationVersion map[ComponentKey]Version
	reporterLastSetValue      map[ComponentKey]bool

	filterEnabled           map[ComponentKey]bool
	filterActivationVersion map[ComponentKey]Version
	filterLastSetValue      map[ComponentKey]bool

	reporterFilter map[reporterFilterKey]bool

	contexts map[versionedContext]struct{}

	stateCallbacks   []StateChangedCallback
	versionCallbacks []VersionChangedCallback

	logger  *slog.Logger
	metrics *metrics.ControllerMetrics
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithLogger sets the structured logger (defaults to slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock overrides the wall clock used for version timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.versions = NewSource(now) }
}

// WithMetrics attaches a Prometheus metric group.
func WithMetrics(m *metrics.ControllerMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController constructs a Controller in the disabled state.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		versions:                  NewSource(nil),
		reporterEnabled:           make(map[ComponentKey]bool),
		reporterActivationVersion: make(map[ComponentKey]Version),
		reporterLastSetValue:      make(map[ComponentKey]bool),
		filterEnabled:             make(map[ComponentKey]bool),
		filterActivationVersion:   make(map[ComponentKey]Version),
		filterLastSetValue:        make(map[ComponentKey]bool),
		reporterFilter:            make(map[reporterFilterKey]bool),
		contexts:                  make(map[versionedContext]struct{}),
		logger:                    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "monitoring_controller")
	return c
}

// Enable turns global tracking on, restoring component flags to their
// last individually-set values (§4.3 "Global enable restores component
// flags to their last individually-set values").
func (c *Controller) Enable() {
	c.mu.Lock()
	c.globalEnabled = true
	for k, v := range c.reporterLastSetValue {
		c.reporterEnabled[k] = v
	}
	for k, v := range c.filterLastSetValue {
		c.filterEnabled[k] = v
	}
	c.mu.Unlock()
	c.bump(ComponentGlobal, "", true)
}

// Disable turns global tracking off, absolutely: it suppresses tracking
// even if component flags say otherwise (§4.3).
func (c *Controller) Disable() {
	c.mu.Lock()
	c.globalEnabled = false
	v := c.versions.GetCurrent()
	c.lastDisable = &v
	c.mu.Unlock()
	c.bump(ComponentGlobal, "", false)
}

// EnableReporter enables tracking for the named reporter component.
func (c *Controller) EnableReporter(name ComponentKey) {
	c.setReporter(name, true)
}

// DisableReporter disables tracking for the named reporter component.
func (c *Controller) DisableReporter(name ComponentKey) {
	c.setReporter(name, false)
}

func (c *Controller) setReporter(name ComponentKey, enabled bool) {
	c.mu.Lock()
	c.reporterEnabled[name] = enabled
	c.reporterLastSetValue[name] = enabled
	c.mu.Unlock()
	newVersion := c.bump(ComponentReporter, name, enabled)
	if enabled {
		c.mu.Lock()
		c.reporterActivationVersion[name] = newVersion
		c.mu.Unlock()
	}
}

// EnableFilter enables the named filter component globally.
func (c *Controller) EnableFilter(name ComponentKey) {
	c.setFilter(name, true)
}

// DisableFilter disables the named filter component globally.
func (c *Controller) DisableFilter(name ComponentKey) {
	c.setFilter(name, false)
}

func (c *Controller) setFilter(name ComponentKey, enabled bool) {
	c.mu.Lock()
	c.filterEnabled[name] = enabled
	c.filterLastSetValue[name] = enabled
	c.mu.Unlock()
	newVersion := c.bump(ComponentFilter, name, enabled)
	if enabled {
		c.mu.Lock()
		c.filterActivationVersion[name] = newVersion
		c.mu.Unlock()
	}
}

// EnableFilterForReporterType marks filter as applicable to reporter's
// filter chain (§4.3, consumed by the Reporter Pipeline's per-record
// filter evaluation, §4.6).
func (c *Controller) EnableFilterForReporterType(reporter, filter ComponentKey) {
	c.mu.Lock()
	c.reporterFilter[reporterFilterKey{reporter, filter}] = true
	c.mu.Unlock()
	c.bump(ComponentFilter, filter, true)
}

// IsEnabled reports the current global flag.
func (c *Controller) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.globalEnabled
}

// IsReporterEnabled reports the current flag for reporter.
func (c *Controller) IsReporterEnabled(reporter ComponentKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reporterEnabled[reporter]
}

// IsFilterEnabled reports the current flag for filter.
func (c *Controller) IsFilterEnabled(filter ComponentKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filterEnabled[filter]
}

// IsFilterEnabledForReporterType reports whether filter applies to
// reporter's filter chain.
func (c *Controller) IsFilterEnabledForReporterType(reporter, filter ComponentKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reporterFilter[reporterFilterKey{reporter, filter}]
}

// ShouldTrack is a pure function of the supplied version and the
// current flags — it never mutates state (§4.3). It returns true iff
// global is on at the current version AND version is newer than the
// version that was current at the last Disable AND (if reporter is non-empty)
// reporter is enabled and version >= its activation version AND (if
// filter is non-empty) the same holds for filter.
func (c *Controller) ShouldTrack(version Version, reporter, filter ComponentKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.globalEnabled {
		return false
	}
	if c.lastDisable != nil && version.LessOrEqual(*c.lastDisable) {
		return false
	}
	if reporter != "" {
		if !c.reporterEnabled[reporter] {
			return false
		}
		if version.Less(c.reporterActivationVersion[reporter]) {
			return false
		}
	}
	if filter != "" {
		if !c.filterEnabled[filter] {
			return false
		}
		if version.Less(c.filterActivationVersion[filter]) {
			return false
		}
	}
	return true
}

// CurrentVersion returns the controller's current version without
// pinning an operation.
func (c *Controller) CurrentVersion() Version {
	return c.versions.GetCurrent()
}

// RegisterContext attaches a versioned context the controller
// invalidates synchronously on every version change.
func (c *Controller) RegisterContext(ctx versionedContext) {
	c.mu.Lock()
	c.contexts[ctx] = struct{}{}
	c.mu.Unlock()
}

// unregisterContext detaches ctx, called by OperationScope.Close.
func (c *Controller) unregisterContext(ctx versionedContext) {
	c.mu.Lock()
	delete(c.contexts, ctx)
	c.mu.Unlock()
}

// BeginOperation pins the controller's current version for the
// lifetime of the returned scope (§4.3 "scoped operations that pin a
// version").
func (c *Controller) BeginOperation() (*OperationScope, Version) {
	v := c.versions.GetCurrent()
	scope := &OperationScope{controller: c, pinned: v}
	scope.valid.Store(true)
	c.RegisterContext(scope)
	return scope, v
}

// AddStateChangedCallback registers a callback invoked synchronously on
// every flag flip.
func (c *Controller) AddStateChangedCallback(cb StateChangedCallback) {
	c.mu.Lock()
	c.stateCallbacks = append(c.stateCallbacks, cb)
	c.mu.Unlock()
}

// AddVersionChangedCallback registers a callback invoked synchronously
// on every version bump (the VersionChanged event of §4.3).
func (c *Controller) AddVersionChangedCallback(cb VersionChangedCallback) {
	c.mu.Lock()
	c.versionCallbacks = append(c.versionCallbacks, cb)
	c.mu.Unlock()
}

// Reset drains registered scopes (invalidating and unregistering them),
// clears all flags, and re-initializes the version to (now, 0), per the
// spec §9 resolution of the Reset/Disable/Enable ambiguity. Reset does
// not touch the Call Record Pool or Call Stack directly — callers that
// compose a Controller with a Stack and Pool should reset those too
// (callstack.Stack.Reset returns stacked records to the pool).
func (c *Controller) Reset() {
	c.mu.Lock()
	old := c.versions.GetCurrent()
	for ctx := range c.contexts {
		ctx.invalidate()
	}
	c.contexts = make(map[versionedContext]struct{})
	c.globalEnabled = false
	c.lastDisable = nil
	c.reporterEnabled = make(map[ComponentKey]bool)
	c.reporterActivationVersion = make(map[ComponentKey]Version)
	c.reporterLastSetValue = make(map[ComponentKey]bool)
	c.filterEnabled = make(map[ComponentKey]bool)
	c.filterActivationVersion = make(map[ComponentKey]Version)
	c.filterLastSetValue = make(map[ComponentKey]bool)
	c.reporterFilter = make(map[reporterFilterKey]bool)
	new_ := c.versions.Reset()
	callbacks := append([]VersionChangedCallback{}, c.versionCallbacks...)
	c.mu.Unlock()

	c.logger.Info("controller reset")
	for _, cb := range callbacks {
		cb(old, new_)
	}
}

// bump atomically (a) the caller has already flipped the appropriate
// flag, (b) produces a new version, (c) drains callbacks synchronously,
// matching §4.3's algorithmic note. Returns the new version.
func (c *Controller) bump(kind ComponentKind, name ComponentKey, enabled bool) Version {
	c.mu.Lock()
	old := c.versions.GetCurrent()
	new_ := c.versions.NextAfter(old)
	for ctx := range c.contexts {
		ctx.invalidate()
	}
	stateCallbacks := append([]StateChangedCallback{}, c.stateCallbacks...)
	versionCallbacks := append([]VersionChangedCallback{}, c.versionCallbacks...)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.VersionBumps.Inc()
		if kind == ComponentGlobal {
			if enabled {
				c.metrics.GlobalEnabled.Set(1)
			} else {
				c.metrics.GlobalEnabled.Set(0)
			}
		}
	}

	c.logger.Debug("monitoring state changed",
		"kind", kind, "name", name, "enabled", enabled, "version", new_)

	for _, cb := range stateCallbacks {
		cb(kind, name, enabled, new_)
	}
	for _, cb := range versionCallbacks {
		cb(old, new_)
	}
	return new_
}
