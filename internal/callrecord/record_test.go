package callrecord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFullName(t *testing.T) {
	r := &CallRecord{ClassKey: "Acme.Widgets", MethodName: "Build"}
	require.Equal(t, "Acme.Widgets.Build", r.FullName())

	r2 := &CallRecord{MethodName: "Build"}
	require.Equal(t, "Build", r2.FullName())
}

func TestEndSetsElapsedAndIsImmutable(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &CallRecord{StartTime: start}

	r.End(start.Add(150 * time.Millisecond))
	require.True(t, r.Ended())
	require.Equal(t, 150*time.Millisecond, r.Elapsed)

	// Calling End again must not mutate Elapsed (immutability once ended).
	r.End(start.Add(10 * time.Second))
	require.Equal(t, 150*time.Millisecond, r.Elapsed)
}

func TestEndClampsNegativeElapsed(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)
	r := &CallRecord{StartTime: start}
	r.End(start.Add(-time.Second))
	require.Equal(t, time.Duration(0), r.Elapsed)
	require.GreaterOrEqual(t, r.Elapsed, time.Duration(0))
}

func TestOrderedParamsPreservesInsertionOrder(t *testing.T) {
	p := NewOrderedParams()
	p.Set("b", "2")
	p.Set("a", "1")
	p.Set("b", "20")

	require.Equal(t, []string{"b", "a"}, p.Keys())
	v, ok := p.Get("b")
	require.True(t, ok)
	require.Equal(t, "20", v)
	require.Equal(t, 2, p.Len())
}

func TestOrderedParamsClone(t *testing.T) {
	p := NewOrderedParams()
	p.Set("x", "1")
	clone := p.Clone()
	clone.Set("y", "2")

	require.Equal(t, 1, p.Len())
	require.Equal(t, 2, clone.Len())
}

func TestStringSetHasAndClone(t *testing.T) {
	s := NewStringSet()
	s.Add("CustomCol")
	require.True(t, s.Has("CustomCol"))
	require.False(t, s.Has("Other"))

	clone := s.Clone()
	clone.Add("Another")
	require.False(t, s.Has("Another"))
	require.True(t, clone.Has("Another"))
}
