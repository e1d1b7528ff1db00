package main

import "fmt"

// Settings is the operator-tunable configuration shared by the motor controller
// and the menu. It is owned by DaemonState. Bounded fields are only changed
// through Adjust and Clamp, so they always stay inside their range.
type Settings struct {
	MaxDutyPercent  int
	SpeedThreshold  int
	AccelTimeMS     int
	DecelTimeMS     int
	ReversePolarity bool

	// SystemEnabled is the master enable. It is not persisted and starts false.
	SystemEnabled bool
}

// Setting bounds (inclusive).
const (
	minMaxDutyPercent = 0
	maxMaxDutyPercent = 100

	minSpeedThreshold = 5
	maxSpeedThreshold = 150

	minAccelTimeMS = 35
	maxAccelTimeMS = 250

	minDecelTimeMS = 15
	maxDecelTimeMS = 250
)

// settingField names a bounded numeric field of Settings.
type settingField int

const (
	fieldMaxDuty settingField = iota
	fieldAccel
	fieldDecel
	fieldThreshold
)

func (f settingField) String() string {
	switch f {
	case fieldMaxDuty:
		return "max_duty_percent"
	case fieldAccel:
		return "accel_time_ms"
	case fieldDecel:
		return "decel_time_ms"
	case fieldThreshold:
		return "speed_threshold"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Adjust adds delta to the named field and clamps the result.
func (s *Settings) Adjust(f settingField, delta int) {
	switch f {
	case fieldMaxDuty:
		s.MaxDutyPercent += delta
	case fieldAccel:
		s.AccelTimeMS += delta
	case fieldDecel:
		s.DecelTimeMS += delta
	case fieldThreshold:
		s.SpeedThreshold += delta
	}
	s.Clamp()
}

// Clamp forces every bounded field back into range.
func (s *Settings) Clamp() {
	s.MaxDutyPercent = clampInt(s.MaxDutyPercent, minMaxDutyPercent, maxMaxDutyPercent)
	s.SpeedThreshold = clampInt(s.SpeedThreshold, minSpeedThreshold, maxSpeedThreshold)
	s.AccelTimeMS = clampInt(s.AccelTimeMS, minAccelTimeMS, maxAccelTimeMS)
	s.DecelTimeMS = clampInt(s.DecelTimeMS, minDecelTimeMS, maxDecelTimeMS)
}

// signFlag returns (true, true) for a positive delta, (false, true) for a
// negative one and (_, false) when delta carries no direction.
func signFlag(delta int) (value bool, ok bool) {
	switch {
	case delta > 0:
		return true, true
	case delta < 0:
		return false, true
	default:
		return false, false
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
