package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

type decodedEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func recvFrame(t *testing.T, hub *Hub, timeout time.Duration) decodedEnvelope {
	t.Helper()
	select {
	case msg := <-hub.broadcast:
		var env decodedEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("bad frame %s: %v", msg, err)
		}
		return env
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for broadcast frame")
	}
	return decodedEnvelope{}
}

func TestConvertBroadcast_Types(t *testing.T) {
	cases := []struct {
		b    StateBroadcast
		want string
	}{
		{BroadcastModeChanged{Mode: ModeSave}, "mode_changed"},
		{BroadcastSettingsChanged{}, "settings_changed"},
		{BroadcastMotorChanged{}, "motor_changed"},
		{BroadcastSaveResult{OK: true}, "save_result"},
		{BroadcastActuatorFault{Command: "ramp", Error: "x"}, "actuator_fault"},
	}
	for _, tc := range cases {
		if got := broadcastType(tc.b); got != tc.want {
			t.Fatalf("%T: got %q, want %q", tc.b, got, tc.want)
		}
	}

	ev, _ := convertBroadcast(BroadcastModeChanged{Mode: ModeSave})
	data := ev.Data.(wsModeChangedData)
	if data.Mode != "save" || data.Label != "Save settings?" {
		t.Fatalf("unexpected mode payload %+v", data)
	}
}

func TestSnapshotPayload(t *testing.T) {
	snap := StateSnapshot{
		Settings: decodeSettings(defaultRecord),
		Mode:     ModeSetAccel,
		Motor: MotorState{
			Direction:     DirectionReverse,
			FilteredSpeed: 20.6,
			Running:       true,
			LastDuty:      80,
			TargetDuty:    127,
			Fault:         "pwm busy",
		},
		Status: statusSaved,
	}

	p := snapshotPayload(snap)
	if p.Mode != "set_accel" || p.Status != statusSaved || p.Fault != "pwm busy" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Motor.Direction != "reverse" || p.Motor.Speed != 21 || p.Motor.Duty != 80 || p.Motor.TargetDuty != 127 {
		t.Fatalf("unexpected motor payload %+v", p.Motor)
	}
	if p.Settings.MaxDutyPercent != 50 || p.Settings.AccelTimeMS != 250 {
		t.Fatalf("unexpected settings payload %+v", p.Settings)
	}
}

func TestRunBroadcaster_CoalescesMotorUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(t, 4, 16)
	src := make(chan StateBroadcast, 16)
	go RunBroadcaster(ctx, hub, src, slog.Default())

	src <- BroadcastMotorChanged{Speed: 10}
	src <- BroadcastMotorChanged{Speed: 11}
	src <- BroadcastMotorChanged{Speed: 12}

	env := recvFrame(t, hub, time.Second)
	if env.Type != "motor_changed" {
		t.Fatalf("expected motor_changed, got %q", env.Type)
	}
	var m wsMotorData
	if err := json.Unmarshal(env.Data, &m); err != nil {
		t.Fatalf("decode motor: %v", err)
	}
	if m.Speed != 12 {
		t.Fatalf("expected latest speed 12, got %d", m.Speed)
	}

	select {
	case msg := <-hub.broadcast:
		t.Fatalf("expected a single coalesced frame, got extra %s", msg)
	case <-time.After(2 * wsMotorCoalesceWindow):
	}
}

func TestRunBroadcaster_FlushesMotorBeforeOtherEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(t, 4, 16)
	src := make(chan StateBroadcast, 16)
	go RunBroadcaster(ctx, hub, src, slog.Default())

	src <- BroadcastMotorChanged{Speed: 7}
	src <- BroadcastModeChanged{Mode: ModeSetMaxDuty}

	// Both arrive well inside the coalesce window, motor first.
	first := recvFrame(t, hub, wsMotorCoalesceWindow/2)
	second := recvFrame(t, hub, wsMotorCoalesceWindow/2)
	if first.Type != "motor_changed" || second.Type != "mode_changed" {
		t.Fatalf("unexpected order %q, %q", first.Type, second.Type)
	}
}

func TestRunBroadcaster_FlushesOnSourceClose(t *testing.T) {
	hub := newTestHub(t, 4, 16)
	src := make(chan StateBroadcast, 4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		RunBroadcaster(context.Background(), hub, src, slog.Default())
	}()

	src <- BroadcastMotorChanged{Speed: 3}
	close(src)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcaster did not stop")
	}
	if env := recvFrame(t, hub, 100*time.Millisecond); env.Type != "motor_changed" {
		t.Fatalf("expected pending motor flushed, got %q", env.Type)
	}
}
