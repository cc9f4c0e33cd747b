// Package report implements the Report Item Model and the Method
// Override Manager (§3 ReportItem, §4.8): the tabular projection every
// writer consumes, and the static-parameter override/template
// round-trip. Grounded on the teacher's internal/core/history.go
// projection pattern (domain entity -> flat row) generalized from
// alert history rows to call records.
package report

import (
	"sort"
	"time"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
)

// FixedColumns are the columns every writer emits regardless of which
// custom parameters were observed (§4.7 CSV writer).
var FixedColumns = []string{"Id", "ParentId", "MethodName", "FullName", "StartTime", "EndTime", "Duration"}

// Item is the ReportItem projection of a CallRecord for file output.
type Item struct {
	Id         string
	ParentId   string
	MethodName string
	FullName   string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration

	// IsStatic/IsExtension/IsGeneric carry through for the Rantt
	// writer's relationship-kind classification (§4.7).
	IsStatic    bool
	IsExtension bool
	IsGeneric   bool

	// Parameters is the flattened, insertion-ordered parameter map;
	// AttributeParameters names the subset that are static (and
	// therefore overridable from method_overrides.csv).
	Parameters          *callrecord.OrderedParams
	AttributeParameters callrecord.StringSet
}

// FromRecord projects a CallRecord into an Item. The record must have
// already ended (Item.EndTime/Duration read record.StartTime+Elapsed).
func FromRecord(rec *callrecord.CallRecord) Item {
	return Item{
		Id:                  rec.Id,
		ParentId:            rec.ParentId,
		MethodName:          rec.MethodName,
		FullName:            rec.FullName(),
		StartTime:           rec.StartTime,
		EndTime:             rec.StartTime.Add(rec.Elapsed),
		Duration:            rec.Elapsed,
		IsStatic:            rec.IsStatic,
		IsExtension:         rec.IsExtension,
		IsGeneric:           rec.IsGeneric,
		Parameters:          rec.Parameters,
		AttributeParameters: rec.AttributeParameters,
	}
}

// IsGap reports whether this item represents a synthetic gap record
// (§4.8 "Records whose MethodName equals the reserved Gap sentinel are
// excluded from the template").
func (i Item) IsGap() bool {
	return i.MethodName == callrecord.GapMethodName
}

// CustomColumns returns the union of parameter keys across items, in
// first-seen order, for a stable CSV header (§4.7 "Header is the union
// of fixed columns... every custom parameter key observed in the
// batch. Columns are stable within a file.").
func CustomColumns(items []Item) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range items {
		if item.Parameters == nil {
			continue
		}
		for _, k := range item.Parameters.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// RelationshipKind classifies a non-root item for the Rantt writer.
type RelationshipKind string

const (
	RelationshipRegular   RelationshipKind = "Regular"
	RelationshipStatic    RelationshipKind = "Static"
	RelationshipExtension RelationshipKind = "Extension"
	RelationshipGeneric   RelationshipKind = "Generic"
)

// Relationship classifies item by inspecting IsStatic/IsExtension/IsGeneric
// in that priority order (§4.7 Rantt writer).
func (i Item) Relationship() RelationshipKind {
	switch {
	case i.IsStatic:
		return RelationshipStatic
	case i.IsExtension:
		return RelationshipExtension
	case i.IsGeneric:
		return RelationshipGeneric
	default:
		return RelationshipRegular
	}
}

// SortByArrival orders items by (StartTime, then Id) for writers that
// need a stable global order reconstructed from per-thread streams
// (§5 ordering guarantees).
func SortByArrival(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].StartTime.Equal(items[j].StartTime) {
			return items[i].StartTime.Before(items[j].StartTime)
		}
		return items[i].Id < items[j].Id
	})
}
