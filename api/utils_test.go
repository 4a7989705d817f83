package api

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNextTimestampStrictlyIncreases(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastEventTimestamp, 0)
	})

	prev := nextTimestamp()
	for i := 0; i < 1000; i++ {
		next := nextTimestamp()
		if next <= prev {
			t.Fatalf("timestamp went backwards: %d after %d", next, prev)
		}
		prev = next
	}
}

func TestNextTimestampAdvancesPastClock(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastEventTimestamp, 0)
	})

	future := time.Now().Add(time.Second).UnixNano()
	atomic.StoreInt64(&lastEventTimestamp, future)

	if got := nextTimestamp(); got <= future {
		t.Fatalf("expected timestamp beyond %d, got %d", future, got)
	}
}

func TestNextTimestampConcurrent(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastEventTimestamp, 0)
	})

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	results := make(chan int64, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				results <- nextTimestamp()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make([]int64, 0, workers*perWorker)
	for ts := range results {
		seen = append(seen, ts)
	}
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	for i := 1; i < len(seen); i++ {
		if seen[i] == seen[i-1] {
			t.Fatalf("duplicate timestamp %d", seen[i])
		}
	}
}
