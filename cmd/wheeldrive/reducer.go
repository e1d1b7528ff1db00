package main

import "time"

// This file implements the reducer:
//
//   - Events: ticks (carrying hardware readings), effect observations, snapshot requests
//   - Commands: side effects requested by the reducer (actuator, storage, display)
//   - Broadcasts: state changes published to websocket clients
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// The daemon loop is responsible for executing Commands and feeding observations back as Events.

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a reducer-emitted change notification.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastModeChanged is emitted when the menu mode changes.
type BroadcastModeChanged struct {
	Mode Mode
	At   time.Time
}

func (BroadcastModeChanged) broadcastMarker() {}

// BroadcastSettingsChanged is emitted when any setting changes.
type BroadcastSettingsChanged struct {
	Settings Settings
	At       time.Time
}

func (BroadcastSettingsChanged) broadcastMarker() {}

// BroadcastMotorChanged is emitted when the rounded motor summary changes.
type BroadcastMotorChanged struct {
	Direction  Direction
	Speed      int
	Running    bool
	Duty       int
	TargetDuty int
	At         time.Time
}

func (BroadcastMotorChanged) broadcastMarker() {}

// BroadcastSaveResult reports the outcome of a save.
type BroadcastSaveResult struct {
	OK    bool
	Error string
	At    time.Time
}

func (BroadcastSaveResult) broadcastMarker() {}

// BroadcastActuatorFault reports a failed actuator command.
type BroadcastActuatorFault struct {
	Command string
	Error   string
	At      time.Time
}

func (BroadcastActuatorFault) broadcastMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReducerConfig is the static configuration the reducer needs.
type ReducerConfig struct {
	DutyMax int
	Button  ButtonTiming
	Menu    MenuTiming
}

// ReduceResult is the output of Reduce(): next state plus Commands to execute
// and Broadcasts to publish.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
//
// The daemon loop must:
// - execute Commands
// - translate results into Events
// - feed those Events back into Reduce()
func Reduce(s *DaemonState, e Event, cfg ReducerConfig) ReduceResult {
	if s == nil {
		s = newDaemonState(Settings{}, newSpeedFilter(defaultFilterWindow, defaultFilterThreshold, defaultFilterMin, defaultFilterMax))
	}

	var (
		cmds []Command
		bcs  []StateBroadcast
	)

	switch ev := e.(type) {
	case SampleTick:
		s.Clock = ev.Now
		s.Motor.LastDuty = ev.Duty
		s.Motor.Direction, s.Motor.FilteredSpeed = sampleWheel(&s.Filter, ev.WheelDelta)
		cmds = append(cmds, driveMotor(&s.Motor, s.Settings, cfg.DutyMax)...)

	case PollTick:
		s.Clock = ev.Now
		s.Menu.ApplyDelta(&s.Settings, ev.MenuDelta)

		press := s.Button.Classify(ev.ButtonAsserted, ev.Now, cfg.Button)
		cmds = append(cmds, s.Menu.ApplyPress(press, s.Settings, cfg.DutyMax, cfg.Menu)...)

		if s.Menu.Status != "" && !ev.Now.Before(s.Menu.StatusUntil) {
			s.Menu.Status = ""
		}

	case DisplayTick:
		s.Clock = ev.Now
		cmds = append(cmds, CmdRender{Frame: s.Menu.View(s.Settings, s.Motor, ev.Now)})

	case SettingsSaved:
		s.Menu.SetSaveResult(ev.Err, ev.At, cfg.Menu)
		bc := BroadcastSaveResult{OK: ev.Err == nil, At: ev.At}
		if ev.Err != nil {
			bc.Error = ev.Err.Error()
		}
		bcs = append(bcs, bc)

	case ActuatorFailed:
		// Keep Running as-is: the next sample tick recomputes from fresh readings.
		s.Motor.Fault = ev.Err.Error()
		s.Motor.FaultAt = ev.At
		bcs = append(bcs, BroadcastActuatorFault{
			Command: ev.Command.String(),
			Error:   ev.Err.Error(),
			At:      ev.At,
		})

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{
			Reply:    ev.Reply,
			Snapshot: s.Snapshot(s.Clock),
		})

	default:
		// Unknown event type: no-op.
	}

	bcs = append(bcs, diffBroadcasts(s)...)

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcs,
	}
}

// diffBroadcasts compares the state against the last published memo and emits
// one broadcast per changed topic. The first call publishes everything.
func diffBroadcasts(s *DaemonState) []StateBroadcast {
	var out []StateBroadcast
	memo := &s.LastBroadcast
	at := s.Clock

	if !memo.Known || memo.Mode != s.Menu.Mode {
		memo.Mode = s.Menu.Mode
		out = append(out, BroadcastModeChanged{Mode: s.Menu.Mode, At: at})
	}
	if !memo.Known || memo.Settings != s.Settings {
		memo.Settings = s.Settings
		out = append(out, BroadcastSettingsChanged{Settings: s.Settings, At: at})
	}
	if sum := summarizeMotor(s.Motor); !memo.Known || memo.Motor != sum {
		memo.Motor = sum
		out = append(out, BroadcastMotorChanged{
			Direction:  sum.Direction,
			Speed:      sum.Speed,
			Running:    sum.Running,
			Duty:       sum.Duty,
			TargetDuty: sum.TargetDuty,
			At:         at,
		})
	}
	memo.Known = true
	return out
}
