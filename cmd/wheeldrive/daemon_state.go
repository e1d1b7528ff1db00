package main

import "time"

// DaemonState is the top-level, daemon-owned state container.
//
// Only the daemon goroutine touches it. Reduce mutates it in place and returns
// it; other goroutines get StateSnapshot copies through the event loop.
type DaemonState struct {
	// Settings is the single shared configuration record.
	Settings Settings

	Motor  MotorState
	Menu   MenuState
	Button ButtonState
	Filter speedFilter

	// Clock is the timestamp of the latest tick.
	Clock time.Time

	// LastBroadcast remembers what was last published so broadcasts are only
	// emitted on change.
	LastBroadcast broadcastMemo
}

// broadcastMemo is the last published value of each broadcast topic.
type broadcastMemo struct {
	Known    bool
	Mode     Mode
	Settings Settings
	Motor    motorSummary
}

// motorSummary is the broadcast view of MotorState. FilteredSpeed is rounded so
// sub-unit filter jitter does not produce traffic.
type motorSummary struct {
	Direction  Direction
	Speed      int
	Running    bool
	Duty       int
	TargetDuty int
}

func summarizeMotor(m MotorState) motorSummary {
	return motorSummary{
		Direction:  m.Direction,
		Speed:      int(m.FilteredSpeed + 0.5),
		Running:    m.Running,
		Duty:       m.LastDuty,
		TargetDuty: m.TargetDuty,
	}
}

// StateSnapshot is an immutable copy of the externally visible state.
type StateSnapshot struct {
	Settings Settings
	Mode     Mode
	Motor    MotorState
	Status   string
	At       time.Time
}

// newDaemonState builds the startup state: loaded settings, system disabled,
// menu in Running mode.
func newDaemonState(s Settings, f speedFilter) *DaemonState {
	s.SystemEnabled = false
	s.Clamp()
	return &DaemonState{
		Settings: s,
		Menu:     MenuState{Mode: ModeRunning},
		Filter:   f,
	}
}

// Snapshot copies the externally visible state.
func (s *DaemonState) Snapshot(now time.Time) StateSnapshot {
	snap := StateSnapshot{
		Settings: s.Settings,
		Mode:     s.Menu.Mode,
		Motor:    s.Motor,
		At:       now,
	}
	if now.Before(s.Menu.StatusUntil) {
		snap.Status = s.Menu.Status
	}
	return snap
}
