package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// escapesound-ctl - Command-line IPC Client
// ============================================================================
// This tool sends commands to the escapesound daemon via its Unix socket.
//
// Usage:
//   escapesound-ctl bg-play forest.mp3
//   escapesound-ctl bg-switch cave.mp3
//   escapesound-ctl bg-stop
//   escapesound-ctl hint-play hint-03.mp3 [volume]
//   escapesound-ctl hint-stop
//   escapesound-ctl panic
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/escapesound.sock)
// ============================================================================

// Command types (duplicated from the daemon package for a standalone binary)
type Command interface{}

type BackgroundPlay struct {
	File string `json:"file"`
}

type BackgroundSwitch struct {
	File string `json:"file"`
}

type BackgroundStop struct{}

type HintPlay struct {
	File   string   `json:"file"`
	Volume *float64 `json:"volume,omitempty"`
}

type HintStop struct{}

type StopAll struct{}

// CommandEnvelope wraps commands for JSON
type CommandEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/escapesound.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
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

	var cmd Command

	switch args[0] {
	case "bg-play", "play":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: bg-play requires a file name\n")
			os.Exit(1)
		}
		cmd = BackgroundPlay{File: args[1]}

	case "bg-switch", "switch":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: bg-switch requires a file name\n")
			os.Exit(1)
		}
		cmd = BackgroundSwitch{File: args[1]}

	case "bg-stop":
		cmd = BackgroundStop{}

	case "hint-play", "hint":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: hint-play requires a file name\n")
			os.Exit(1)
		}
		h := HintPlay{File: args[1]}
		if len(args) > 2 {
			vol, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: invalid volume: %v\n", err)
				os.Exit(1)
			}
			h.Volume = &vol
		}
		cmd = h

	case "hint-stop":
		cmd = HintStop{}

	case "panic", "stop-all":
		cmd = StopAll{}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err := sendCommand(socketPath, cmd); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

func sendCommand(socketPath string, cmd Command) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := marshalCommand(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	// Send command (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}

	return nil
}

func marshalCommand(cmd Command) ([]byte, error) {
	var env CommandEnvelope

	switch c := cmd.(type) {
	case BackgroundPlay:
		env.Type = "bg_play"
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal BackgroundPlay: %w", err)
		}
		env.Data = data

	case BackgroundSwitch:
		env.Type = "bg_switch"
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal BackgroundSwitch: %w", err)
		}
		env.Data = data

	case BackgroundStop:
		env.Type = "bg_stop"

	case HintPlay:
		env.Type = "hint_play"
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal HintPlay: %w", err)
		}
		env.Data = data

	case HintStop:
		env.Type = "hint_stop"

	case StopAll:
		env.Type = "stop_all"

	default:
		return nil, fmt.Errorf("unknown command type: %T", cmd)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `escapesound-ctl - Control the escapesound daemon via IPC

Usage:
  escapesound-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/escapesound.sock)

Commands:
  bg-play FILE           Start looping background ambience
  bg-switch FILE         Crossfade-free switch to a new background track
  bg-stop                Stop the background channel
  hint-play FILE [VOL]   Play a one-shot hint (optional volume 0..1)
  hint-stop              Cut the current hint short
  panic                  Silence both channels immediately

Examples:
  escapesound-ctl bg-play forest.mp3
  escapesound-ctl hint-play hint-03.mp3 0.9
  escapesound-ctl panic
`)
}
