package callstack

import (
	"testing"
	"time"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
)

func BenchmarkStack_PushPop_SingleThread(b *testing.B) {
	pool := callrecord.NewPool(0)
	s := New(pool)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := s.CreateCallRecord(callrecord.RentParams{
			Id:         "bench",
			MethodName: "Do",
			ThreadId:   1,
			StartTime:  time.Now(),
		})
		if err := s.Push(rec); err != nil {
			b.Fatal(err)
		}
		s.Pop(rec)
		pool.Return(rec)
	}
}

func BenchmarkStack_PushPop_NestedDepth(b *testing.B) {
	pool := callrecord.NewPool(0)
	s := New(pool)
	const depth = 5

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recs := make([]*callrecord.CallRecord, 0, depth)
		for d := 0; d < depth; d++ {
			rec := s.CreateCallRecord(callrecord.RentParams{
				Id:         "bench",
				MethodName: "Do",
				ThreadId:   1,
				StartTime:  time.Now(),
			})
			if err := s.Push(rec); err != nil {
				b.Fatal(err)
			}
			recs = append(recs, rec)
		}
		for d := depth - 1; d >= 0; d-- {
			s.Pop(recs[d])
			pool.Return(recs[d])
		}
	}
}

func BenchmarkStack_PushPop_WithSubscriber(b *testing.B) {
	pool := callrecord.NewPool(0)
	s := New(pool)
	sub := s.Subscribe(func(callrecord.CallStackItem) {})
	defer sub.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := s.CreateCallRecord(callrecord.RentParams{
			Id:         "bench",
			MethodName: "Do",
			ThreadId:   1,
			StartTime:  time.Now(),
		})
		if err := s.Push(rec); err != nil {
			b.Fatal(err)
		}
		s.Pop(rec)
		pool.Return(rec)
	}
}
