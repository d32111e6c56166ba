package queue_test

import (
	"context"
	"testing"

	"github.com/randomizedcoder/ringqueue/internal/queue"
)

// Sink variables to prevent compiler from eliminating benchmark loops
var sinkInt int
var sinkBool bool

func mustBlocking(b *testing.B, size int) *queue.BlockingRing[int] {
	b.Helper()
	q, err := queue.NewBlocking[int](size)
	if err != nil {
		b.Fatal(err)
	}
	return q
}

func mustChannel(b *testing.B, size int) *queue.ChannelQueue[int] {
	b.Helper()
	q, err := queue.NewChannel[int](size)
	if err != nil {
		b.Fatal(err)
	}
	return q
}

// Direct type benchmarks

func BenchmarkQueue_Blocking_PushPop_Direct(b *testing.B) {
	q := mustBlocking(b, 1024)
	b.ReportAllocs()
	b.ResetTimer()

	var val int
	var ok bool
	for i := 0; i < b.N; i++ {
		q.Push(i)
		val, ok = q.TryPop()
	}
	sinkInt = val
	sinkBool = ok
}

func BenchmarkQueue_Channel_PushPop_Direct(b *testing.B) {
	q := mustChannel(b, 1024)
	b.ReportAllocs()
	b.ResetTimer()

	var val int
	var ok bool
	for i := 0; i < b.N; i++ {
		q.Push(i)
		val, ok = q.TryPop()
	}
	sinkInt = val
	sinkBool = ok
}

// Interface benchmarks (with dynamic dispatch overhead)

func BenchmarkQueue_Blocking_PushPop_Interface(b *testing.B) {
	var q queue.Queue[int] = mustBlocking(b, 1024)
	b.ReportAllocs()
	b.ResetTimer()

	var val int
	for i := 0; i < b.N; i++ {
		q.Push(i)
		val, _ = q.TryPop()
	}
	sinkInt = val
}

// WaitAndPop with an item already buffered: measures the fast path,
// including AfterFunc registration being skipped.

func BenchmarkQueue_Blocking_PushWaitAndPop(b *testing.B) {
	q := mustBlocking(b, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.ReportAllocs()
	b.ResetTimer()

	var val int
	for i := 0; i < b.N; i++ {
		q.Push(i)
		val, _ = q.WaitAndPop(ctx)
	}
	sinkInt = val
}

func BenchmarkQueue_Channel_PushWaitAndPop(b *testing.B) {
	q := mustChannel(b, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.ReportAllocs()
	b.ResetTimer()

	var val int
	for i := 0; i < b.N; i++ {
		q.Push(i)
		val, _ = q.WaitAndPop(ctx)
	}
	sinkInt = val
}

// Overwrite path: every push after the first lap drops an item.

func BenchmarkQueue_Blocking_PushOverwrite(b *testing.B) {
	q := mustBlocking(b, 64)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		q.Push(i)
	}
}

func BenchmarkQueue_Channel_PushOverwrite(b *testing.B) {
	q := mustChannel(b, 64)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		q.Push(i)
	}
}

// Parallel producers contending on the lock.

func BenchmarkQueue_Blocking_Push_Parallel(b *testing.B) {
	q := mustBlocking(b, 1024)
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(i)
			i++
		}
	})
}

func BenchmarkQueue_Channel_Push_Parallel(b *testing.B) {
	q := mustChannel(b, 1024)
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(i)
			i++
		}
	})
}
