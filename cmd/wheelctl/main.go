package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// ============================================================================
// wheelctl - Bench IPC Client
// ============================================================================
// Drives a running wheeldrive daemon through its bench socket, as if the
// wheel, the menu knob or the button were moved by hand.
//
// Usage:
//   wheelctl wheel 40
//   wheelctl menu -1
//   wheelctl press
//   wheelctl hold
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/wheeldrive.sock)
// ============================================================================

// Press lengths for the press/hold shortcuts. A short press must outlast the
// debounce; a hold must outlast the long-press time.
const (
	shortPressMS = 150
	longPressMS  = 3500
)

// Input types (duplicated from the daemon for a standalone binary)
type Input interface{}

type WheelTurn struct {
	Steps int `json:"steps"`
}

type MenuTurn struct {
	Steps int `json:"steps"`
}

type ButtonHold struct {
	MS int `json:"ms"`
}

// InputEnvelope wraps inputs for JSON
type InputEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/wheeldrive.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var in Input
	var wait time.Duration

	switch args[0] {
	case "wheel":
		in = WheelTurn{Steps: intArg(args, "wheel")}

	case "menu":
		in = MenuTurn{Steps: intArg(args, "menu")}

	case "press":
		in = ButtonHold{MS: shortPressMS}

	case "hold":
		in = ButtonHold{MS: longPressMS}

	case "button":
		ms := intArg(args, "button")
		if ms <= 0 {
			fmt.Fprintf(os.Stderr, "error: button requires a positive duration in ms\n")
			os.Exit(1)
		}
		in = ButtonHold{MS: ms}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err := sendInput(socketPath, in); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Keep back-to-back invocations from merging into one press.
	if bh, ok := in.(ButtonHold); ok {
		wait = time.Duration(bh.MS) * time.Millisecond
		time.Sleep(wait)
	}

	fmt.Println("ok")
}

func intArg(args []string, cmd string) int {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "error: %s requires a number\n", cmd)
		os.Exit(1)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid number %q: %v\n", args[1], err)
		os.Exit(1)
	}
	return n
}

func sendInput(socketPath string, in Input) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := marshalInput(in)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send input: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}

	return nil
}

func marshalInput(in Input) ([]byte, error) {
	var env InputEnvelope

	var payload any
	switch i := in.(type) {
	case WheelTurn:
		env.Type = "wheel_turn"
		payload = i
	case MenuTurn:
		env.Type = "menu_turn"
		payload = i
	case ButtonHold:
		env.Type = "button_hold"
		payload = i
	default:
		return nil, fmt.Errorf("unknown input type: %T", in)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	env.Data = data

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `wheelctl - Drive a wheeldrive daemon through its bench socket

Usage:
  wheelctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/wheeldrive.sock)

Commands:
  wheel <steps>           Turn the drive wheel by a signed number of steps
  menu <steps>            Turn the menu knob by a signed number of detents
  press                   Short button press (next menu mode)
  hold                    Long button press (test run or save)
  button <ms>             Hold the button for ms milliseconds
  help, -h, --help        Show this help message

Examples:
  wheelctl wheel 40
  wheelctl menu -3
  wheelctl -socket /run/wheeldrive.sock hold
`)
}
