package main

import (
	"testing"
	"time"
)

var testButtonTiming = ButtonTiming{
	Debounce:  defaultDebounceInterval,
	LongPress: defaultLongPressInterval,
}

// pollSeq feeds levels at 10ms intervals starting at t0 and returns every
// non-none event with its offset.
type pressAt struct {
	Offset time.Duration
	Press  PressEvent
}

func pollSeq(b *ButtonState, t0 time.Time, levels []bool) []pressAt {
	var out []pressAt
	for i, lv := range levels {
		off := time.Duration(i) * 10 * time.Millisecond
		if p := b.Classify(lv, t0.Add(off), testButtonTiming); p != PressNone {
			out = append(out, pressAt{Offset: off, Press: p})
		}
	}
	return out
}

func held(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func released(n int) []bool {
	return make([]bool, n)
}

func concat(parts ...[]bool) []bool {
	var out []bool
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestButton_ShortPressOnRelease(t *testing.T) {
	var b ButtonState
	t0 := time.Unix(1000, 0)

	// Held 150ms, then released.
	got := pollSeq(&b, t0, concat(held(15), released(5)))

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %v", got)
	}
	if got[0].Press != PressShort {
		t.Fatalf("expected short press, got %v", got[0].Press)
	}
	if got[0].Offset != 150*time.Millisecond {
		t.Fatalf("expected short press at release (150ms), got %v", got[0].Offset)
	}
	if b.Pressed {
		t.Fatalf("expected button not pressed after release")
	}
}

func TestButton_BounceShorterThanDebounceIsIgnored(t *testing.T) {
	var b ButtonState
	t0 := time.Unix(1000, 0)

	// Asserted for 30ms only.
	got := pollSeq(&b, t0, concat(held(3), released(10)))

	if len(got) != 0 {
		t.Fatalf("expected no events for a 30ms blip, got %v", got)
	}
	if !b.ReleaseAt.IsZero() {
		t.Fatalf("bounce must not move ReleaseAt, got %v", b.ReleaseAt)
	}
}

func TestButton_PressEdgeTooSoonAfterReleaseIsIgnored(t *testing.T) {
	var b ButtonState
	t0 := time.Unix(1000, 0)

	// Valid short press released at 100ms, re-asserted 20ms later for 100ms.
	got := pollSeq(&b, t0, concat(held(10), released(2), held(10), released(5)))

	if len(got) != 1 || got[0].Press != PressShort {
		t.Fatalf("expected exactly one short press, got %v", got)
	}
}

func TestButton_LongPressFiresWhileHeldAndSuppressesRelease(t *testing.T) {
	var b ButtonState
	t0 := time.Unix(1000, 0)

	// Held for 4s then released.
	got := pollSeq(&b, t0, concat(held(400), released(5)))

	if len(got) != 1 {
		t.Fatalf("expected only the long press, got %v", got)
	}
	if got[0].Press != PressLong {
		t.Fatalf("expected long press, got %v", got[0].Press)
	}
	if got[0].Offset != defaultLongPressInterval {
		t.Fatalf("expected long press at exactly %v, got %v", defaultLongPressInterval, got[0].Offset)
	}
	if b.SuppressRelease {
		t.Fatalf("expected suppression cleared by the release")
	}
}

func TestButton_LongPressFiresOncePerHold(t *testing.T) {
	var b ButtonState
	t0 := time.Unix(1000, 0)

	// Held for 10s.
	got := pollSeq(&b, t0, held(1000))

	if len(got) != 1 || got[0].Press != PressLong {
		t.Fatalf("expected exactly one long press for a 10s hold, got %v", got)
	}
}

func TestButton_NextPressAfterLongPressIsShort(t *testing.T) {
	var b ButtonState
	t0 := time.Unix(1000, 0)

	got := pollSeq(&b, t0, concat(held(330), released(10), held(10), released(5)))

	if len(got) != 2 {
		t.Fatalf("expected long then short, got %v", got)
	}
	if got[0].Press != PressLong || got[1].Press != PressShort {
		t.Fatalf("expected long then short, got %v", got)
	}
}

// holdUntil polls asserted every 10ms from t0 through lastHeld, then one
// released poll at release.
func holdUntil(b *ButtonState, t0 time.Time, lastHeld, release time.Duration) []pressAt {
	var out []pressAt
	poll := func(off time.Duration, lv bool) {
		if p := b.Classify(lv, t0.Add(off), testButtonTiming); p != PressNone {
			out = append(out, pressAt{Offset: off, Press: p})
		}
	}
	for off := time.Duration(0); off <= lastHeld; off += 10 * time.Millisecond {
		poll(off, true)
	}
	poll(release, false)
	return out
}

func TestButton_ClassifierBoundaries(t *testing.T) {
	ms := time.Millisecond
	cases := []struct {
		name     string
		lastHeld time.Duration
		release  time.Duration
		want     []pressAt
	}{
		{"49ms is bounce", 40 * ms, 49 * ms, nil},
		{"50ms is a short press", 40 * ms, 50 * ms, []pressAt{{50 * ms, PressShort}}},
		{"3190ms is still short", 3180 * ms, 3190 * ms, []pressAt{{3190 * ms, PressShort}}},
		{"3200ms is long only", 3200 * ms, 3210 * ms, []pressAt{{3200 * ms, PressLong}}},
	}

	for _, tc := range cases {
		var b ButtonState
		got := holdUntil(&b, time.Unix(1000, 0), tc.lastHeld, tc.release)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
			}
		}
	}
}
