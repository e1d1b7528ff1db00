package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// Bench IPC - Unix Domain Socket Interface
// ============================================================================
// The bench socket lets a test rig or wheelctl drive the daemon without
// touching the hardware. Inputs land exactly where the real encoders and
// button land (the counters and the button pin), so the reducer cannot tell
// them apart.
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "wheel_turn", "data": {"steps": 12}}
//   - Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
// ============================================================================

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Error  string `json:"error,omitempty"` // error message if status == "error"
}

// benchInjector applies bench inputs to the live input sources.
type benchInjector struct {
	wheel  *encoderCounter
	menu   *encoderCounter
	button *benchButton
	now    func() time.Time
}

func newBenchInjector(wheel, menu *encoderCounter, button *benchButton) *benchInjector {
	return &benchInjector{wheel: wheel, menu: menu, button: button, now: time.Now}
}

func (b *benchInjector) Inject(in BenchInput) error {
	switch in := in.(type) {
	case WheelTurn:
		if b.wheel == nil {
			return errors.New("wheel input not available")
		}
		b.wheel.Add(in.Steps)
	case MenuTurn:
		if b.menu == nil {
			return errors.New("menu input not available")
		}
		b.menu.Add(in.Steps)
	case ButtonHold:
		if b.button == nil {
			return errors.New("button input not available")
		}
		b.button.Hold(b.now(), msDuration(in.MS))
	default:
		return fmt.Errorf("unsupported bench input: %T", in)
	}
	return nil
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, inj *benchInjector, logger *slog.Logger) error {
	// Remove a stale socket left by a previous run.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0660); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(conn, inj, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(conn net.Conn, inj *benchInjector, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		resp := IPCResponse{Status: "ok"}
		in, err := UnmarshalBenchInput([]byte(line))
		if err == nil {
			err = inj.Inject(in)
		}
		if err != nil {
			resp = IPCResponse{Status: "error", Error: err.Error()}
		}
		if encErr := encoder.Encode(resp); encErr != nil {
			logger.Error("IPC failed to send response", "error", encErr)
			return
		}
	}

	logger.Debug("IPC connection closed")
}

// SendIPCInput sends a bench input to the daemon and waits for its response.
func SendIPCInput(socketPath string, in BenchInput) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalBenchInput(in)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(data))); err != nil {
		return fmt.Errorf("send input: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}
	return nil
}
