package callrecord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRentPopulatesFields(t *testing.T) {
	p := NewPool(0)
	rec := p.Rent(RentParams{
		Id:               "id-1",
		ClassKey:         "Acme.Widgets",
		MethodName:       "Build",
		ParameterTypes:   []string{"int", "string"},
		GenericArguments: []string{"T"},
		ThreadId:         1,
		StartTime:        time.Now(),
	})

	require.Equal(t, "id-1", rec.Id)
	require.False(t, rec.IsNull)
	require.Equal(t, []string{"int", "string"}, rec.ParameterTypes)
	require.Equal(t, []string{"T"}, rec.GenericArguments)
	require.NotNil(t, rec.Parameters)
	require.NotNil(t, rec.AttributeParameters)
}

func TestPoolReturnAndReuseResetsState(t *testing.T) {
	p := NewPool(0)
	rec := p.Rent(RentParams{Id: "id-1", MethodName: "M"})
	rec.Parameters.Set("k", "v")
	rec.AttributeParameters.Add("k")

	p.Return(rec)

	rec2 := p.Rent(RentParams{Id: "id-2", MethodName: "M"})
	require.Equal(t, "id-2", rec2.Id)
	require.Equal(t, 0, rec2.Parameters.Len())
	require.False(t, rec2.AttributeParameters.Has("k"))
}

func TestPoolGetNullIsSingletonAndNeverMutated(t *testing.T) {
	p := NewPool(0)
	n1 := p.GetNull()
	n2 := p.GetNull()
	require.Same(t, n1, n2)
	require.True(t, n1.IsNull)
	require.Equal(t, 0, n1.Level)

	// Returning the null record must be a no-op, never handed out by Rent.
	p.Return(n1)
	require.True(t, p.GetNull().IsNull)
}

func TestPoolShapeCacheReusesCapacityAcrossRents(t *testing.T) {
	p := NewPool(0)
	rec1 := p.Rent(RentParams{
		Id:             "id-1",
		ClassKey:       "Acme",
		MethodName:     "Hot",
		ParameterTypes: []string{"int", "int", "int"},
	})
	p.Return(rec1)

	rec2 := p.Rent(RentParams{
		Id:             "id-2",
		ClassKey:       "Acme",
		MethodName:     "Hot",
		ParameterTypes: []string{"int"},
	})
	require.Equal(t, []string{"int"}, rec2.ParameterTypes)
	require.GreaterOrEqual(t, cap(rec2.ParameterTypes), 3)
}

func TestPoolRentNeverFailsUnderConcurrentUse(t *testing.T) {
	p := NewPool(0)
	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				rec := p.Rent(RentParams{Id: "x", MethodName: "M"})
				p.Return(rec)
			}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}
