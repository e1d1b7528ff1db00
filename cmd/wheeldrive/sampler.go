package main

// Direction is the sign of the wheel delta seen in one sample tick.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionForward
	DirectionReverse
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionReverse:
		return "reverse"
	default:
		return "none"
	}
}

// Sign returns +1, -1 or 0, matching how the direction is shown on the display.
func (d Direction) Sign() int {
	switch d {
	case DirectionForward:
		return 1
	case DirectionReverse:
		return -1
	default:
		return 0
	}
}

// sampleWheel turns one tick's encoder delta into a direction and a filtered
// speed. Direction follows the latest delta only; the filter only sees the
// magnitude.
func sampleWheel(f *speedFilter, delta int) (Direction, float64) {
	dir := DirectionNone
	switch {
	case delta > 0:
		dir = DirectionForward
	case delta < 0:
		dir = DirectionReverse
	}

	mag := delta
	if mag < 0 {
		mag = -mag
	}
	return dir, f.Push(mag)
}
