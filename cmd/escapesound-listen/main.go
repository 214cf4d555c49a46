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

// escapesound-listen connects to the daemon's state websocket and prints the
// live event stream. Useful for watching fades and duck transitions while
// tuning a room without opening the dashboard.

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:8090/ws", "escapesound state websocket URL")
		raw   = flag.Bool("raw", false, "print raw JSON frames instead of formatted lines")
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

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// The daemon pings us; answering pongs is handled by the library. Reset
	// the read deadline on every frame so a silent daemon is detected.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
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

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				continue
			}

			if *raw {
				fmt.Printf("%s\n", string(message))
				continue
			}
			printFrame(message)
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

// frame mirrors the daemon's websocket envelope.
type frame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func printFrame(message []byte) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch f.Type {
	case "state_init":
		pretty, err := json.MarshalIndent(json.RawMessage(f.Data), "", "  ")
		if err != nil {
			fmt.Printf("[INIT] %s\n", string(f.Data))
			return
		}
		fmt.Printf("[INIT]\n%s\n\n", string(pretty))

	case "volume_changed":
		var d struct {
			Channel string  `json:"channel"`
			Volume  float64 `json:"volume"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			fmt.Printf("[VOLUME] %s\n", string(f.Data))
			return
		}
		fmt.Printf("[VOLUME] %-10s %.2f\n", d.Channel, d.Volume)

	case "playback_changed":
		var d struct {
			Channel string `json:"channel"`
			File    string `json:"file,omitempty"`
			Playing bool   `json:"playing"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			fmt.Printf("[PLAYBACK] %s\n", string(f.Data))
			return
		}
		if d.Playing {
			fmt.Printf("[PLAYBACK] %-10s playing %s\n", d.Channel, d.File)
		} else {
			fmt.Printf("[PLAYBACK] %-10s stopped\n", d.Channel)
		}

	default:
		fmt.Printf("[%s] %s\n", f.Type, string(f.Data))
	}
}
