package main

import "time"

// MotorState is the runtime state of the drive controller. Nothing here is
// persisted; it is recomputed on every sample tick.
type MotorState struct {
	Direction     Direction
	FilteredSpeed float64
	Running       bool

	// LastDuty is the actuator duty observed at the last sample tick.
	LastDuty int
	// TargetDuty is MaxDutyPercent scaled to the actuator range.
	TargetDuty int

	// Fault is the last actuator failure. It is cleared when a new run starts.
	Fault   string
	FaultAt time.Time
}

// targetDuty maps a [0,100] percent onto [0,dutyMax] with integer math.
func targetDuty(percent, dutyMax int) int {
	return clampInt(percent*dutyMax/100, 0, dutyMax)
}

// directionLevel is the logic level for the direction pin. Forward drives the
// pin high unless the polarity is reversed.
func directionLevel(d Direction, reversed bool) bool {
	return (d == DirectionForward) != reversed
}

// driveMotor evaluates the stop and start rules for one sample tick and
// returns the actuator commands to issue.
//
// Stop is re-issued on every tick it holds. While running, nothing is issued,
// even if the wheel changes direction; the motor keeps its direction until a
// stop condition ends the run.
func driveMotor(m *MotorState, s Settings, dutyMax int) []Command {
	m.TargetDuty = targetDuty(s.MaxDutyPercent, dutyMax)

	stop := !s.SystemEnabled ||
		m.Direction == DirectionNone ||
		m.FilteredSpeed < float64(s.SpeedThreshold)

	if stop {
		m.Running = false
		return []Command{
			CmdRamp{Target: 0, Duration: msDuration(s.DecelTimeMS)},
		}
	}

	if m.Running || m.LastDuty >= m.TargetDuty {
		return nil
	}

	m.Running = true
	m.Fault = ""
	return []Command{
		CmdSetDirection{High: directionLevel(m.Direction, s.ReversePolarity)},
		CmdRamp{Target: m.TargetDuty, Duration: msDuration(s.AccelTimeMS)},
	}
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
