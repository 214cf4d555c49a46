package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Control Events
// ============================================================================
// Control events represent intent from the gateways (MQTT, IPC, HTTP/WS UI).
// The central daemon loop consumes these and applies policy via the reducer.
// Observation events (playback started/failed/finished) live in reducer.go.
// ============================================================================

// ChannelKind identifies one of the two playback channels.
type ChannelKind int

const (
	ChannelBackground ChannelKind = iota
	ChannelHint
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelBackground:
		return "background"
	case ChannelHint:
		return "hint"
	default:
		return fmt.Sprintf("channel(%d)", int(k))
	}
}

// BackgroundPlay requests the background channel to start a looping track,
// replacing whatever it currently plays without any fade-out.
type BackgroundPlay struct {
	File string `json:"file"`
}

func (BackgroundPlay) eventMarker() {}

// BackgroundSwitch requests a gapless ambience change: fade the current
// background out, stop it, then start the new track with a fade-in.
type BackgroundSwitch struct {
	File string `json:"file"`
}

func (BackgroundSwitch) eventMarker() {}

// BackgroundStop stops the background channel immediately.
type BackgroundStop struct{}

func (BackgroundStop) eventMarker() {}

// HintPlay requests a one-shot hint. Volume, when set, overrides the
// configured default hint level for this hint only.
type HintPlay struct {
	File   string   `json:"file"`
	Volume *float64 `json:"volume,omitempty"`
}

func (HintPlay) eventMarker() {}

// HintStop cuts a playing hint short.
type HintStop struct{}

func (HintStop) eventMarker() {}

// StopAll is the panic command: silence both channels immediately.
type StopAll struct{}

func (StopAll) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps events for JSON serialization/deserialization.
// Since Go doesn't have union types, we use a type discriminator.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "bg_play":
		var a BackgroundPlay
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal BackgroundPlay: %w", err)
		}
		return a, nil

	case "bg_switch":
		var a BackgroundSwitch
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal BackgroundSwitch: %w", err)
		}
		return a, nil

	case "bg_stop":
		return BackgroundStop{}, nil

	case "hint_play":
		var a HintPlay
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal HintPlay: %w", err)
		}
		return a, nil

	case "hint_stop":
		return HintStop{}, nil

	case "stop_all":
		return StopAll{}, nil

	default:
		return nil, fmt.Errorf("%w: event type %q", ErrUnknownCommand, env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case BackgroundPlay:
		env.Type = "bg_play"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal BackgroundPlay: %w", err)
		}
		env.Data = data

	case BackgroundSwitch:
		env.Type = "bg_switch"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal BackgroundSwitch: %w", err)
		}
		env.Data = data

	case BackgroundStop:
		env.Type = "bg_stop"

	case HintPlay:
		env.Type = "hint_play"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal HintPlay: %w", err)
		}
		env.Data = data

	case HintStop:
		env.Type = "hint_stop"

	case StopAll:
		env.Type = "stop_all"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}

// validateControlEvent checks the payload of a gateway-submitted event before
// it is admitted to the daemon loop: file-bearing events must name a file
// with a recognized extension, and volume overrides must be in [0, 1].
func validateControlEvent(e Event, exts mediaExtensions) error {
	switch ev := e.(type) {
	case BackgroundPlay:
		return validateMediaFile(ev.File, exts)
	case BackgroundSwitch:
		return validateMediaFile(ev.File, exts)
	case HintPlay:
		if err := validateMediaFile(ev.File, exts); err != nil {
			return err
		}
		if ev.Volume != nil && (*ev.Volume < 0 || *ev.Volume > 1) {
			return fmt.Errorf("%w: %v", ErrInvalidVolume, *ev.Volume)
		}
		return nil
	case BackgroundStop, HintStop, StopAll:
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, e)
	}
}

func validateMediaFile(file string, exts mediaExtensions) error {
	if file == "" {
		return ErrMissingFile
	}
	_, err := exts.classify(file)
	return err
}
