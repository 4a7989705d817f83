package api

import (
	"sync/atomic"
	"time"
)

var lastEventTimestamp int64

// nextTimestamp returns a strictly increasing nanosecond timestamp so events
// emitted by one instance always carry a total order, even within one tick.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastEventTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastEventTimestamp, last, now) {
			return now
		}
	}
}
