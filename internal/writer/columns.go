// Package writer implements the Report Output Engine (§4.7): CSV,
// Rantt, and Txt writers sharing an in-memory FS seam, a per-directory
// Method Override Manager, an archiver, and durable SQL writers.
// Grounded on the teacher's output formatting (cmd/*/output patterns
// referenced by the other example repos) and internal/database's
// connection-pool conventions for the SQL-backed writers.
package writer

import (
	"strings"

	"github.com/vitaliisemenov/methodtrace/internal/report"
)

// caseInsensitiveColumns returns the union of parameter keys across
// items, first-seen order, deduplicated case-insensitively (§4.7 "CSV
// column ordering and duplicate elimination are case-insensitive on
// parameter names").
func caseInsensitiveColumns(items []report.Item) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range items {
		if item.Parameters == nil {
			continue
		}
		for _, k := range item.Parameters.Keys() {
			lower := strings.ToLower(k)
			if _, ok := seen[lower]; ok {
				continue
			}
			seen[lower] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
