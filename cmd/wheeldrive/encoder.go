package main

import "sync/atomic"

// DeltaSource yields the signed count accumulated since the previous read.
type DeltaSource interface {
	ReadAndResetDelta() int
}

// encoderCounter accumulates encoder steps from a reader goroutine (or the
// bench injector). The daemon drains it with ReadAndResetDelta, which is the
// only synchronization point between the two sides.
type encoderCounter struct {
	v atomic.Int64
}

// Add accumulates n steps, saturating at +-encoderLimit.
func (c *encoderCounter) Add(n int) {
	for {
		old := c.v.Load()
		next := old + int64(n)
		if next > encoderLimit {
			next = encoderLimit
		}
		if next < -encoderLimit {
			next = -encoderLimit
		}
		if c.v.CompareAndSwap(old, next) {
			return
		}
	}
}

func (c *encoderCounter) ReadAndResetDelta() int {
	return int(c.v.Swap(0))
}
