package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// envelope mirrors the daemon's state socket framing.
type envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type motorData struct {
	Direction  string `json:"direction"`
	Speed      int    `json:"speed"`
	Running    bool   `json:"running"`
	Duty       int    `json:"duty"`
	TargetDuty int    `json:"target_duty"`
}

type modeData struct {
	Mode  string `json:"mode"`
	Label string `json:"label"`
}

type saveData struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type faultData struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws/state", "wheeldrive state websocket URL")
		raw   = flag.Bool("raw", false, "Print messages as received instead of summarizing")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	// The daemon pings; answering keeps the read deadline fresh.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Println(string(message))
				continue
			}
			handleTextMessage(message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleTextMessage prints one state event as a single line.
func handleTextMessage(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch env.Type {
	case "motor_changed":
		var m motorData
		if json.Unmarshal(env.Data, &m) == nil {
			state := "stopped"
			if m.Running {
				state = "running"
			}
			fmt.Printf("[MOTOR] %s dir=%s speed=%d duty=%d/%d\n", state, m.Direction, m.Speed, m.Duty, m.TargetDuty)
			return
		}

	case "mode_changed":
		var m modeData
		if json.Unmarshal(env.Data, &m) == nil {
			fmt.Printf("[MODE] %s (%s)\n", m.Label, m.Mode)
			return
		}

	case "save_result":
		var s saveData
		if json.Unmarshal(env.Data, &s) == nil {
			if s.OK {
				fmt.Println("[SAVE] ok")
			} else {
				fmt.Printf("[SAVE] failed: %s\n", s.Error)
			}
			return
		}

	case "actuator_fault":
		var f faultData
		if json.Unmarshal(env.Data, &f) == nil {
			fmt.Printf("[FAULT] %s: %s\n", f.Command, f.Error)
			return
		}
	}

	// state_init, settings_changed and anything unrecognized.
	var data any
	_ = json.Unmarshal(env.Data, &data)
	pretty, _ := json.MarshalIndent(data, "", "  ")
	fmt.Printf("[%s]\n%s\n\n", env.Type, string(pretty))
}
