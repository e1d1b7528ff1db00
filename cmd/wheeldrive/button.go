package main

import "time"

// PressEvent is the output of the press classifier for one poll.
type PressEvent int

const (
	PressNone PressEvent = iota
	PressShort
	PressLong
)

func (p PressEvent) String() string {
	switch p {
	case PressShort:
		return "short"
	case PressLong:
		return "long"
	default:
		return "none"
	}
}

const (
	defaultDebounceInterval  = 50 * time.Millisecond
	defaultLongPressInterval = 3200 * time.Millisecond
)

// ButtonState is the classifier state for the menu button.
type ButtonState struct {
	Level     bool // asserted at the last poll
	PrevLevel bool
	Pressed   bool
	PressAt   time.Time
	ReleaseAt time.Time

	// SuppressRelease is set once a long press fired; the release that ends the
	// same press must not produce a short press.
	SuppressRelease bool
}

// ButtonTiming holds the classifier intervals.
type ButtonTiming struct {
	Debounce  time.Duration
	LongPress time.Duration
}

// Classify consumes one poll of the pin and returns the press event, if any.
func (b *ButtonState) Classify(asserted bool, now time.Time, t ButtonTiming) PressEvent {
	b.PrevLevel = b.Level
	b.Level = asserted

	ev := PressNone
	switch {
	case asserted && !b.PrevLevel:
		// Press edges too close to the last release are contact bounce.
		if !b.Pressed && now.Sub(b.ReleaseAt) >= t.Debounce {
			b.Pressed = true
			b.PressAt = now
		}

	case !asserted && b.PrevLevel && b.Pressed:
		b.Pressed = false
		if now.Sub(b.PressAt) < t.Debounce {
			// Bounce: drop the press without touching ReleaseAt.
			b.SuppressRelease = false
			break
		}
		if b.SuppressRelease {
			b.SuppressRelease = false
		} else {
			ev = PressShort
		}
		b.ReleaseAt = now
	}

	if b.Pressed && asserted && !b.SuppressRelease && now.Sub(b.PressAt) >= t.LongPress {
		b.SuppressRelease = true
		b.PressAt = now
		ev = PressLong
	}

	return ev
}
