package main

import (
	"sync/atomic"
	"time"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// deviceEvent is an inputEvent tagged with the index of the device it came from.
type deviceEvent struct {
	Device int
	inputEvent
}

// applyEncoderEvent adds relative motion to the counter. Other event types
// (sync, keys) are ignored.
func applyEncoderEvent(c *encoderCounter, ev inputEvent) bool {
	if ev.Type != EV_REL {
		return false
	}
	switch ev.Code {
	case REL_X, REL_Y, REL_DIAL, REL_WHEEL:
		c.Add(int(ev.Value))
		return true
	}
	return false
}

// benchButton is the menu button as the daemon sees it: the physical pin (if
// any) OR-ed with a hold injected from the bench socket.
type benchButton struct {
	pin       ButtonInput
	heldUntil atomic.Int64 // unix nanos
}

func (b *benchButton) Asserted(now time.Time) bool {
	if b.pin != nil && b.pin.Asserted(now) {
		return true
	}
	return now.UnixNano() < b.heldUntil.Load()
}

// Hold asserts the button from now for d.
func (b *benchButton) Hold(now time.Time, d time.Duration) {
	b.heldUntil.Store(now.Add(d).UnixNano())
}
