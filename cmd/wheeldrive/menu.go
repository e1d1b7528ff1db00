package main

import (
	"fmt"
	"time"
)

// Mode is a menu edit mode. Modes form a cycle in declaration order.
type Mode int

const (
	ModeSetMaxDuty Mode = iota
	ModeSetAccel
	ModeSetDecel
	ModeSetThreshold
	ModeSetReversePolarity
	ModeSave
	ModeRunning

	modeCount = 7
)

func (m Mode) String() string {
	switch m {
	case ModeSetMaxDuty:
		return "set_max_duty"
	case ModeSetAccel:
		return "set_accel"
	case ModeSetDecel:
		return "set_decel"
	case ModeSetThreshold:
		return "set_threshold"
	case ModeSetReversePolarity:
		return "set_reverse_polarity"
	case ModeSave:
		return "save"
	case ModeRunning:
		return "running"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Label is the heading shown for the mode.
func (m Mode) Label() string {
	switch m {
	case ModeSetMaxDuty:
		return "Max PWM (%):"
	case ModeSetAccel:
		return "Set Accel (ms):"
	case ModeSetDecel:
		return "Set Decel (ms):"
	case ModeSetThreshold:
		return "Speed Threshold:"
	case ModeSetReversePolarity:
		return "Reverse Pol"
	case ModeSave:
		return "Save settings?"
	case ModeRunning:
		return "Running..."
	default:
		return ""
	}
}

// Next returns the following mode, wrapping after the last.
func (m Mode) Next() Mode {
	return Mode((int(m) + 1) % modeCount)
}

// Status banners shown after a save.
const (
	statusSaved      = "SAVED."
	statusSaveFailed = "SAVE FAILED"
)

// MenuState is the menu state machine. Previous-mode tracking for rendering
// lives in the presenters.
type MenuState struct {
	Mode        Mode
	Status      string
	StatusUntil time.Time
}

// MenuTiming holds menu durations.
type MenuTiming struct {
	TestHold time.Duration
	Status   time.Duration
}

// ApplyDelta binds a non-zero menu encoder delta to the field of the current mode.
func (m *MenuState) ApplyDelta(s *Settings, delta int) {
	if delta == 0 {
		return
	}
	switch m.Mode {
	case ModeSetMaxDuty:
		s.Adjust(fieldMaxDuty, delta)
	case ModeSetAccel:
		s.Adjust(fieldAccel, delta)
	case ModeSetDecel:
		s.Adjust(fieldDecel, delta)
	case ModeSetThreshold:
		s.Adjust(fieldThreshold, delta)
	case ModeSetReversePolarity:
		if v, ok := signFlag(delta); ok {
			s.ReversePolarity = v
		}
	case ModeRunning:
		if v, ok := signFlag(delta); ok {
			s.SystemEnabled = v
		}
	case ModeSave:
		// Nothing is bound to the save mode.
	}
}

// ApplyPress handles a classified press. Long presses return commands for the
// effects stage: a test actuation in SetMaxDuty and a save in Save.
func (m *MenuState) ApplyPress(p PressEvent, s Settings, dutyMax int, t MenuTiming) []Command {
	switch p {
	case PressShort:
		m.Mode = m.Mode.Next()
		return nil

	case PressLong:
		switch m.Mode {
		case ModeSetMaxDuty:
			return []Command{
				CmdRamp{Target: targetDuty(s.MaxDutyPercent, dutyMax), Duration: msDuration(s.AccelTimeMS), Wait: true},
				CmdHold{Duration: t.TestHold},
				CmdRamp{Target: 0, Duration: msDuration(s.DecelTimeMS), Wait: true},
			}
		case ModeSave:
			return []Command{CmdSaveSettings{Settings: s}}
		}
	}
	return nil
}

// SetSaveResult shows the save outcome for the status duration.
func (m *MenuState) SetSaveResult(err error, now time.Time, t MenuTiming) {
	m.Status = statusSaved
	if err != nil {
		m.Status = statusSaveFailed
	}
	m.StatusUntil = now.Add(t.Status)
}

// Frame is what the presenters draw.
type Frame struct {
	Mode   Mode
	Label  string
	Value  string
	Detail string
	Status string
}

// View builds the frame for the current state. An unexpired status banner
// replaces the label and value.
func (m *MenuState) View(s Settings, motor MotorState, now time.Time) Frame {
	f := Frame{Mode: m.Mode, Label: m.Mode.Label()}
	if m.Status != "" && now.Before(m.StatusUntil) {
		f.Status = m.Status
	}

	switch m.Mode {
	case ModeSetMaxDuty:
		f.Value = fmt.Sprintf("%d", s.MaxDutyPercent)
	case ModeSetAccel:
		f.Value = fmt.Sprintf("%d", s.AccelTimeMS)
	case ModeSetDecel:
		f.Value = fmt.Sprintf("%d", s.DecelTimeMS)
	case ModeSetThreshold:
		f.Value = fmt.Sprintf("%d", s.SpeedThreshold)
	case ModeSetReversePolarity:
		f.Value = "False"
		if s.ReversePolarity {
			f.Value = "True"
		}
	case ModeSave:
		f.Value = "Long press to save"
	case ModeRunning:
		f.Value = "SYSTEM OFF"
		if s.SystemEnabled {
			f.Value = "SYSTEM ON"
		}
		f.Detail = fmt.Sprintf("%d  %d", motor.Direction.Sign(), int(motor.FilteredSpeed))
	}
	return f
}
