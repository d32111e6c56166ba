// Command ringbench compares the two drop-oldest queue implementations.
//
// Usage:
//
//	go run ./cmd/ringbench -n 10000000 -size 1024
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/randomizedcoder/ringqueue/internal/queue"
)

type result struct {
	name  string
	dur   time.Duration
	perOp float64
	drops int64
}

func main() {
	iterations := flag.Int("n", 10_000_000, "number of iterations")
	size := flag.Int("size", 1024, "queue size")
	flag.Parse()

	blocking, err := queue.NewBlocking[int](*size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ringbench: %v\n", err)
		os.Exit(1)
	}
	channel, err := queue.NewChannel[int](*size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ringbench: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Benchmarking drop-oldest queues (%d iterations, size=%d, cap=%d)\n",
		*iterations, *size, blocking.Cap())
	fmt.Println("─────────────────────────────────────────────────")

	fmt.Printf("\nResults (push + pop per iteration):\n")
	compare(
		pushPop("BlockingRing", blocking, *iterations),
		pushPop("ChannelQueue", channel, *iterations),
	)

	blocking.Stats().Reset()
	channel.Stats().Reset()

	fmt.Printf("\nResults (producer -> WaitAndPop consumer hand-off):\n")
	compare(
		handOff("BlockingRing", blocking, *iterations),
		handOff("ChannelQueue", channel, *iterations),
	)
}

func pushPop(name string, q queue.Queue[int], n int) result {
	start := time.Now()
	for i := 0; i < n; i++ {
		q.Push(i)
		q.TryPop()
	}
	return newResult(name, time.Since(start), n, q.Stats().Drops())
}

// handOff pushes n items from this goroutine while one consumer blocks in
// WaitAndPop. Items the consumer falls behind on are dropped, not retried.
func handOff(name string, q queue.Queue[int], n int) result {
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, ok := q.WaitAndPop(ctx); !ok {
				return
			}
		}
	}()

	start := time.Now()
	for i := 0; i < n; i++ {
		q.Push(i)
	}
	dur := time.Since(start)
	stop()
	<-done

	return newResult(name, dur, n, q.Stats().Drops())
}

func newResult(name string, dur time.Duration, n int, drops int64) result {
	return result{
		name:  name,
		dur:   dur,
		perOp: float64(dur.Nanoseconds()) / float64(n),
		drops: drops,
	}
}

func compare(a, b result) {
	for _, r := range []result{a, b} {
		fmt.Printf("  %-13s %v (%.2f ns/op, %d dropped)\n", r.name+":", r.dur, r.perOp, r.drops)
	}

	if a.perOp < b.perOp {
		fmt.Printf("\n  Speedup:  %.2fx (%s faster)\n", b.perOp/a.perOp, a.name)
	} else {
		fmt.Printf("\n  Speedup:  %.2fx (%s faster)\n", a.perOp/b.perOp, b.name)
	}

	// Extrapolate to ops/second
	fmt.Printf("  Throughput: %s %.2f M ops/sec, %s %.2f M ops/sec\n",
		a.name, 1000/a.perOp, b.name, 1000/b.perOp)
}
