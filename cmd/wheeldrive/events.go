package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ==============================
// Events
// ==============================

// Event is the input to the reducer. Ticks carry the hardware readings taken
// by the daemon loop so that Reduce itself never touches hardware.
type Event interface {
	eventMarker()
}

// SampleTick is emitted on the speed-sample cadence.
type SampleTick struct {
	Now time.Time

	// WheelDelta is the signed wheel encoder count since the previous tick.
	WheelDelta int
	// Duty is the actuator duty at the time of the read.
	Duty int
}

func (SampleTick) eventMarker() {}

// PollTick is emitted on the menu poll cadence.
type PollTick struct {
	Now            time.Time
	MenuDelta      int
	ButtonAsserted bool
}

func (PollTick) eventMarker() {}

// DisplayTick is emitted on the display refresh cadence.
type DisplayTick struct {
	Now time.Time
}

func (DisplayTick) eventMarker() {}

// SettingsSaved is the observation that follows CmdSaveSettings.
type SettingsSaved struct {
	Settings Settings
	Err      error
	At       time.Time
}

func (SettingsSaved) eventMarker() {}

// ActuatorFailed is emitted when a direction or ramp command fails.
type ActuatorFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (ActuatorFailed) eventMarker() {}

// RequestStateSnapshot asks the daemon for a coherent snapshot (used by the
// state websocket on connect).
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// Bench inputs
// ============================================================================
// Bench inputs arrive over the IPC socket. They are not reducer events: they
// are applied to the same encoder counters and button line the physical
// controls drive, so the daemon cannot tell them apart from real input.
// ============================================================================

// BenchInput is a marker interface for injectable inputs.
type BenchInput interface {
	benchMarker()
}

// WheelTurn adds Steps to the wheel encoder counter.
type WheelTurn struct {
	Steps int `json:"steps"`
}

func (WheelTurn) benchMarker() {}

// MenuTurn adds Steps to the menu encoder counter.
type MenuTurn struct {
	Steps int `json:"steps"`
}

func (MenuTurn) benchMarker() {}

// ButtonHold asserts the menu button for MS milliseconds.
type ButtonHold struct {
	MS int `json:"ms"`
}

func (ButtonHold) benchMarker() {}

// EventEnvelope wraps a bench input with a type discriminator for JSON.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var errEmptyData = errors.New("missing data")

// UnmarshalBenchInput decodes one JSON envelope.
func UnmarshalBenchInput(data []byte) (BenchInput, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "wheel_turn":
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("unmarshal WheelTurn: %w", errEmptyData)
		}
		var in WheelTurn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return nil, fmt.Errorf("unmarshal WheelTurn: %w", err)
		}
		return in, nil

	case "menu_turn":
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("unmarshal MenuTurn: %w", errEmptyData)
		}
		var in MenuTurn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return nil, fmt.Errorf("unmarshal MenuTurn: %w", err)
		}
		return in, nil

	case "button_hold":
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("unmarshal ButtonHold: %w", errEmptyData)
		}
		var in ButtonHold
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return nil, fmt.Errorf("unmarshal ButtonHold: %w", err)
		}
		if in.MS <= 0 {
			return nil, fmt.Errorf("button_hold: ms must be > 0, got %d", in.MS)
		}
		return in, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalBenchInput encodes a bench input into a JSON envelope.
func MarshalBenchInput(in BenchInput) ([]byte, error) {
	var env EventEnvelope

	switch in := in.(type) {
	case WheelTurn:
		env.Type = "wheel_turn"
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal WheelTurn: %w", err)
		}
		env.Data = data

	case MenuTurn:
		env.Type = "menu_turn"
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal MenuTurn: %w", err)
		}
		env.Data = data

	case ButtonHold:
		env.Type = "button_hold"
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal ButtonHold: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unsupported event type: %T", in)
	}

	return json.Marshal(env)
}
