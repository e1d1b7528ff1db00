package main

import (
	"fmt"
	"time"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop:
// actuator moves, storage writes and display frames.
type Command interface {
	commandMarker()
	String() string
}

// CmdSetDirection drives the direction pin.
type CmdSetDirection struct {
	High bool
}

func (CmdSetDirection) commandMarker() {}
func (c CmdSetDirection) String() string {
	return fmt.Sprintf("CmdSetDirection(high=%v)", c.High)
}

// CmdRamp fades the PWM duty to Target over Duration. A new ramp supersedes
// one in flight. With Wait set, the effects stage blocks until it completes.
type CmdRamp struct {
	Target   int
	Duration time.Duration
	Wait     bool
}

func (CmdRamp) commandMarker() {}
func (c CmdRamp) String() string {
	return fmt.Sprintf("CmdRamp(target=%d, duration=%s, wait=%v)", c.Target, c.Duration, c.Wait)
}

// CmdHold blocks the effects stage for Duration. Used between the waited
// ramps of a test actuation.
type CmdHold struct {
	Duration time.Duration
}

func (CmdHold) commandMarker() {}
func (c CmdHold) String() string {
	return fmt.Sprintf("CmdHold(duration=%s)", c.Duration)
}

// CmdSaveSettings persists Settings to the byte store.
type CmdSaveSettings struct {
	Settings Settings
}

func (CmdSaveSettings) commandMarker() {}
func (c CmdSaveSettings) String() string {
	return fmt.Sprintf("CmdSaveSettings(duty=%d, threshold=%d, accel=%d, decel=%d, reverse=%v)",
		c.Settings.MaxDutyPercent, c.Settings.SpeedThreshold, c.Settings.AccelTimeMS,
		c.Settings.DecelTimeMS, c.Settings.ReversePolarity)
}

// CmdRender hands a frame to the presenters.
type CmdRender struct {
	Frame Frame
}

func (CmdRender) commandMarker() {}
func (c CmdRender) String() string {
	return fmt.Sprintf("CmdRender(mode=%s)", c.Frame.Mode)
}

// CmdPublishStateSnapshot delivers a reducer-built snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
