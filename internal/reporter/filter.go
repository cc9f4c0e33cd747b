package reporter

import "github.com/vitaliisemenov/methodtrace/internal/report"

// FilterFunc evaluates a single finalized report.Item. Filters MUST be
// read-only and side-effect free (§4.6).
type FilterFunc func(item report.Item) bool

type namedFilter struct {
	name FilterName
	fn   FilterFunc
}

// FilterName identifies a registered filter for diagnostics/logging.
type FilterName string
