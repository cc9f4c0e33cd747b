package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
)

func TestFromRecordProjectsTimingAndIdentity(t *testing.T) {
	pool := callrecord.NewPool(0)
	rec := pool.Rent(callrecord.RentParams{
		Id: "1", ClassKey: "A", MethodName: "B", ThreadId: 1, StartTime: time.Unix(0, 0),
	})
	rec.ParentId = "0"
	rec.End(time.Unix(0, 0).Add(5 * time.Millisecond))

	item := FromRecord(rec)
	require.Equal(t, "1", item.Id)
	require.Equal(t, "0", item.ParentId)
	require.Equal(t, "A.B", item.FullName)
	require.Equal(t, 5*time.Millisecond, item.Duration)
	require.Equal(t, rec.StartTime.Add(5*time.Millisecond), item.EndTime)
}

func TestCustomColumnsPreservesFirstSeenOrderAcrossItems(t *testing.T) {
	a := Item{Parameters: callrecord.NewOrderedParams()}
	a.Parameters.Set("z", "1")
	a.Parameters.Set("a", "2")
	b := Item{Parameters: callrecord.NewOrderedParams()}
	b.Parameters.Set("a", "3")
	b.Parameters.Set("m", "4")

	require.Equal(t, []string{"z", "a", "m"}, CustomColumns([]Item{a, b}))
}

func TestRelationshipPriorityOrder(t *testing.T) {
	require.Equal(t, RelationshipStatic, Item{IsStatic: true, IsExtension: true}.Relationship())
	require.Equal(t, RelationshipExtension, Item{IsExtension: true, IsGeneric: true}.Relationship())
	require.Equal(t, RelationshipGeneric, Item{IsGeneric: true}.Relationship())
	require.Equal(t, RelationshipRegular, Item{}.Relationship())
}

func TestSortByArrivalOrdersByStartTimeThenId(t *testing.T) {
	base := time.Now()
	items := []Item{
		{Id: "b", StartTime: base},
		{Id: "a", StartTime: base},
		{Id: "c", StartTime: base.Add(-time.Second)},
	}
	SortByArrival(items)
	require.Equal(t, []string{"c", "a", "b"}, []string{items[0].Id, items[1].Id, items[2].Id})
}

func TestIsGapMatchesReservedMethodName(t *testing.T) {
	require.True(t, Item{MethodName: callrecord.GapMethodName}.IsGap())
	require.False(t, Item{MethodName: "Normal"}.IsGap())
}
