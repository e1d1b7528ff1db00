package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Hub clients here have no connection; the hub only touches conn when it is
// non-nil, so frames can be read straight off client.send.

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(slog.Default(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func registerClient(t *testing.T, hub *Hub, name string) *Client {
	t.Helper()
	c := NewClient(hub, nil, name, slog.Default())
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, name+" not registered")
	return c
}

func hasClient(hub *Hub, c *Client) bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	_, ok := hub.clients[c]
	return ok
}

func readClientFrame(t *testing.T, c *Client) decodedEnvelope {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatalf("%s: send channel closed", c.remoteAddr)
		}
		var env decodedEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("%s: bad frame %s: %v", c.remoteAddr, msg, err)
		}
		return env
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("%s: no frame", c.remoteAddr)
	}
	return decodedEnvelope{}
}

func TestHub_SaveResultReachesEveryClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(t, 4, 8)
	go hub.Run(ctx)

	src := make(chan StateBroadcast, 4)
	go RunBroadcaster(ctx, hub, src, slog.Default())

	panel := registerClient(t, hub, "panel")
	bench := registerClient(t, hub, "bench")

	src <- BroadcastSaveResult{OK: false, Error: "i2c nack", At: time.Unix(1000, 0).UTC()}

	for _, c := range []*Client{panel, bench} {
		env := readClientFrame(t, c)
		if env.Type != "save_result" {
			t.Fatalf("%s: expected save_result, got %q", c.remoteAddr, env.Type)
		}
		var res wsSaveResultData
		if err := json.Unmarshal(env.Data, &res); err != nil {
			t.Fatalf("%s: decode: %v", c.remoteAddr, err)
		}
		if res.OK || res.Error != "i2c nack" {
			t.Fatalf("%s: unexpected result %+v", c.remoteAddr, res)
		}
	}
}

func TestHub_ClientThatFallsBehindIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(t, 1, 8)
	go hub.Run(ctx)

	src := make(chan StateBroadcast, 4)
	go RunBroadcaster(ctx, hub, src, slog.Default())

	stuck := registerClient(t, hub, "stuck")
	live := registerClient(t, hub, "live")

	// One queued frame fills the stuck client's buffer.
	stuck.send <- []byte(`{"type":"settings_changed"}`)

	src <- BroadcastModeChanged{Mode: ModeSetThreshold}

	env := readClientFrame(t, live)
	var mode wsModeChangedData
	if err := json.Unmarshal(env.Data, &mode); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != "mode_changed" || mode.Mode != "set_threshold" || mode.Label != "Speed Threshold:" {
		t.Fatalf("unexpected frame %s %+v", env.Type, mode)
	}

	waitUntil(t, 750*time.Millisecond, func() bool { return !hasClient(hub, stuck) }, "stuck client still registered")
	if !hasClient(hub, live) {
		t.Fatalf("live client was dropped")
	}

	// The queued frame drains, then the channel reads closed.
	<-stuck.send
	if _, ok := <-stuck.send; ok {
		t.Fatalf("expected stuck client's send channel closed")
	}
}

func TestServer_SendsStateInitOnConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 1)
	ws := NewServer(slog.Default(), events, ServerConfig{})
	go ws.Hub().Run(ctx)

	// Stand-in for the daemon loop: answer snapshot requests.
	snap := StateSnapshot{
		Settings: decodeSettings(defaultRecord),
		Mode:     ModeSetDecel,
		Motor:    MotorState{Direction: DirectionForward, FilteredSpeed: 18.2, Running: true, LastDuty: 90, TargetDuty: 127},
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if req, ok := ev.(RequestStateSnapshot); ok {
					req.Reply <- snap
				}
			}
		}
	}()

	mux := http.NewServeMux()
	ws.Register(mux, "/ws/state")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/state"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var env decodedEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("bad frame %s: %v", msg, err)
	}
	if env.Type != "state_init" {
		t.Fatalf("expected state_init first, got %q", env.Type)
	}
	var init wsMessageSnapshot
	if err := json.Unmarshal(env.Data, &init); err != nil {
		t.Fatalf("decode state_init: %v", err)
	}
	if init.Mode != "set_decel" || init.Settings.DecelTimeMS != 200 || init.Settings.SystemEnabled {
		t.Fatalf("unexpected snapshot %+v", init)
	}
	if init.Motor.Direction != "forward" || init.Motor.Speed != 18 || !init.Motor.Running || init.Motor.TargetDuty != 127 {
		t.Fatalf("unexpected motor %+v", init.Motor)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
