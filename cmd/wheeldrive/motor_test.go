package main

import (
	"testing"
	"time"
)

const testDutyMax = 255

func enabledSettings() Settings {
	s := decodeSettings(defaultRecord)
	s.SystemEnabled = true
	return s
}

func TestTargetDuty_ScalesPercent(t *testing.T) {
	cases := []struct{ percent, want int }{
		{0, 0},
		{50, 127},
		{100, 255},
		{150, 255},
	}
	for _, tc := range cases {
		if got := targetDuty(tc.percent, testDutyMax); got != tc.want {
			t.Fatalf("targetDuty(%d): got %d, want %d", tc.percent, got, tc.want)
		}
	}
}

func TestDriveMotor_StopsWhenDisabled(t *testing.T) {
	s := enabledSettings()
	s.SystemEnabled = false
	m := MotorState{Direction: DirectionForward, FilteredSpeed: 100, Running: true}

	cmds := driveMotor(&m, s, testDutyMax)

	if m.Running {
		t.Fatalf("expected motor stopped")
	}
	assertSingleStopRamp(t, cmds, s)
}

func TestDriveMotor_StopsWhenWheelIdle(t *testing.T) {
	s := enabledSettings()
	m := MotorState{Direction: DirectionNone, FilteredSpeed: 100, Running: true}

	cmds := driveMotor(&m, s, testDutyMax)

	if m.Running {
		t.Fatalf("expected motor stopped")
	}
	assertSingleStopRamp(t, cmds, s)
}

func TestDriveMotor_StopsBelowThreshold(t *testing.T) {
	s := enabledSettings()
	m := MotorState{Direction: DirectionForward, FilteredSpeed: float64(s.SpeedThreshold) - 0.5}

	cmds := driveMotor(&m, s, testDutyMax)

	assertSingleStopRamp(t, cmds, s)
}

func TestDriveMotor_StopIsReissuedEveryTick(t *testing.T) {
	s := enabledSettings()
	s.SystemEnabled = false
	m := MotorState{}

	for i := 0; i < 3; i++ {
		cmds := driveMotor(&m, s, testDutyMax)
		assertSingleStopRamp(t, cmds, s)
	}
}

func TestDriveMotor_StartsAtThreshold(t *testing.T) {
	s := enabledSettings()
	m := MotorState{Direction: DirectionForward, FilteredSpeed: float64(s.SpeedThreshold), Fault: "old fault"}

	cmds := driveMotor(&m, s, testDutyMax)

	if !m.Running {
		t.Fatalf("expected motor running")
	}
	if m.Fault != "" {
		t.Fatalf("expected fault cleared on start, got %q", m.Fault)
	}
	if len(cmds) != 2 {
		t.Fatalf("expected direction + ramp, got %v", cmds)
	}
	dir, ok := cmds[0].(CmdSetDirection)
	if !ok || !dir.High {
		t.Fatalf("expected CmdSetDirection{High:true}, got %v", cmds[0])
	}
	ramp, ok := cmds[1].(CmdRamp)
	if !ok {
		t.Fatalf("expected CmdRamp, got %T", cmds[1])
	}
	if ramp.Target != 127 || ramp.Duration != time.Duration(s.AccelTimeMS)*time.Millisecond || ramp.Wait {
		t.Fatalf("unexpected start ramp %+v", ramp)
	}
}

func TestDriveMotor_RunningIgnoresDirectionReversal(t *testing.T) {
	s := enabledSettings()
	m := MotorState{Direction: DirectionForward, FilteredSpeed: 50}
	if cmds := driveMotor(&m, s, testDutyMax); len(cmds) != 2 {
		t.Fatalf("expected start commands, got %v", cmds)
	}

	m.Direction = DirectionReverse
	cmds := driveMotor(&m, s, testDutyMax)

	if len(cmds) != 0 {
		t.Fatalf("expected no commands while running, got %v", cmds)
	}
	if !m.Running {
		t.Fatalf("expected motor still running")
	}
}

func TestDriveMotor_NoStartWhenDutyAlreadyAtTarget(t *testing.T) {
	s := enabledSettings()
	m := MotorState{Direction: DirectionForward, FilteredSpeed: 50, LastDuty: 127}

	cmds := driveMotor(&m, s, testDutyMax)

	if len(cmds) != 0 || m.Running {
		t.Fatalf("expected no start with duty at target, got %v running=%v", cmds, m.Running)
	}
}

func TestDirectionLevel_Polarity(t *testing.T) {
	cases := []struct {
		dir      Direction
		reversed bool
		want     bool
	}{
		{DirectionForward, false, true},
		{DirectionReverse, false, false},
		{DirectionForward, true, false},
		{DirectionReverse, true, true},
	}
	for _, tc := range cases {
		if got := directionLevel(tc.dir, tc.reversed); got != tc.want {
			t.Fatalf("directionLevel(%v, %v): got %v, want %v", tc.dir, tc.reversed, got, tc.want)
		}
	}
}

func assertSingleStopRamp(t *testing.T, cmds []Command, s Settings) {
	t.Helper()
	if len(cmds) != 1 {
		t.Fatalf("expected a single stop ramp, got %v", cmds)
	}
	ramp, ok := cmds[0].(CmdRamp)
	if !ok {
		t.Fatalf("expected CmdRamp, got %T", cmds[0])
	}
	if ramp.Target != 0 || ramp.Duration != time.Duration(s.DecelTimeMS)*time.Millisecond || ramp.Wait {
		t.Fatalf("unexpected stop ramp %+v", ramp)
	}
}
