package monitor

// ComponentKey is an opaque component identifier, replacing the
// source's dynamic `typeof(T)` keys per spec §9 Design Notes: a stable
// string interned at registration time, e.g. a reporter type name or
// filter type name.
type ComponentKey string

// ComponentKind distinguishes what a ComponentKey names, for the
// state-changed callback signature.
type ComponentKind string

const (
	ComponentGlobal   ComponentKind = "global"
	ComponentReporter ComponentKind = "reporter"
	ComponentFilter   ComponentKind = "filter"
)

// reporterFilterKey is the composite key for the reporter↔filter
// "enabled for reporter type" relation.
type reporterFilterKey struct {
	reporter ComponentKey
	filter   ComponentKey
}
