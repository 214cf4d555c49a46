package main

import (
	"fmt"
	"math"
	"time"
)

// This file implements the reducer-style architecture building blocks:
//
//   - Events: inputs to the reducer (gateway commands, time ticks, backend
//     observations, command failures)
//   - Commands: side effects requested by the reducer (player start/stop,
//     volume writes, finish probes)
//   - Broadcasts: externally visible state changes for WS clients
//   - Reduce(): computes next state + commands, without performing I/O
//
// The reducer must be pure. All scheduling state lives in EngineState; fades
// are evaluated from FadeJob parameters against the tick timestamp, so the
// reducer carries no per-tick incremental state.
//
// The daemon loop is responsible for executing Commands and feeding backend
// observations back as Events.

// ==============================
// Events
// ==============================

// Event is the input to the reducer.
// It can be a gateway command, a Tick, or an observation from the backend.
type Event interface {
	eventMarker()
}

// Tick is emitted by the daemon loop at a fixed cadence. All fade evaluation
// happens against Now, so a delayed tick produces a coarser but still
// time-correct ramp.
type Tick struct {
	Now time.Time
}

func (Tick) eventMarker() {}

// TimedEvent wraps a gateway-submitted event so the daemon can stamp arrival
// time without every payload type carrying its own timestamp.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// PlaybackStarted is emitted by a channel worker once the backend confirmed
// that the loaded file is actually playing.
type PlaybackStarted struct {
	Channel ChannelKind
	File    string
	At      time.Time
}

func (PlaybackStarted) eventMarker() {}

// PlaybackLoadFailed is emitted when a file could not be loaded or started.
// It is channel-local: the reducer returns that channel to idle and the rest
// of the system continues untouched.
type PlaybackLoadFailed struct {
	Channel ChannelKind
	File    string
	Err     error
	At      time.Time
}

func (PlaybackLoadFailed) eventMarker() {}

// PlaybackFinished is emitted when a non-looping item ran to its natural end.
type PlaybackFinished struct {
	Channel ChannelKind
	At      time.Time
}

func (PlaybackFinished) eventMarker() {}

// BackendCommandFailed is emitted when executing a Command against a live
// player failed (stop, volume write, finish probe).
type BackendCommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (BackendCommandFailed) eventMarker() {}

// RequestStateSnapshot asks the reducer to publish a coherent state snapshot
// through the effects layer (keeps the reducer pure: the channel send happens
// in the effects stage, not here).
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
	At    time.Time
}

func (RequestStateSnapshot) eventMarker() {}

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the channel
// workers (or, for snapshots, inline by the daemon loop).
type Command interface {
	commandMarker()
	String() string
}

// CmdStartPlayback loads and starts a media file on a channel.
type CmdStartPlayback struct {
	Channel ChannelKind
	File    string
	Loop    bool
	Video   bool
}

func (CmdStartPlayback) commandMarker() {}
func (c CmdStartPlayback) String() string {
	return fmt.Sprintf("CmdStartPlayback(channel=%s, file=%q, loop=%v, video=%v)", c.Channel, c.File, c.Loop, c.Video)
}

// CmdStopPlayback tears down whatever the channel currently plays.
type CmdStopPlayback struct {
	Channel ChannelKind
}

func (CmdStopPlayback) commandMarker() {}
func (c CmdStopPlayback) String() string {
	return fmt.Sprintf("CmdStopPlayback(channel=%s)", c.Channel)
}

// CmdSetVolume applies a computed fade level to the channel's player.
type CmdSetVolume struct {
	Channel ChannelKind
	Level   float64
}

func (CmdSetVolume) commandMarker() {}
func (c CmdSetVolume) String() string {
	return fmt.Sprintf("CmdSetVolume(channel=%s, level=%.3f)", c.Channel, c.Level)
}

// CmdProbeFinished asks the worker whether the channel's item ended on its
// own; if so it emits PlaybackFinished.
type CmdProbeFinished struct {
	Channel ChannelKind
}

func (CmdProbeFinished) commandMarker() {}
func (c CmdProbeFinished) String() string {
	return fmt.Sprintf("CmdProbeFinished(channel=%s)", c.Channel)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }

// commandChannel maps a channel-scoped command to its channel.
func commandChannel(cmd Command) (ChannelKind, bool) {
	switch c := cmd.(type) {
	case CmdStartPlayback:
		return c.Channel, true
	case CmdStopPlayback:
		return c.Channel, true
	case CmdSetVolume:
		return c.Channel, true
	case CmdProbeFinished:
		return c.Channel, true
	default:
		return 0, false
	}
}

// ==============================
// Broadcasts (externally visible state changes)
// ==============================

// StateBroadcast is a marker for reducer-emitted state change notifications
// consumed by the WS broadcaster.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastVolumeChanged reports a channel's published volume level.
// Levels are rounded to two decimals; sub-step changes are not broadcast
// even though the internal state keeps full precision.
type BroadcastVolumeChanged struct {
	Channel ChannelKind
	Volume  float64
	At      time.Time
}

func (BroadcastVolumeChanged) broadcastMarker() {}

// BroadcastPlaybackChanged reports a channel starting or stopping an item.
type BroadcastPlaybackChanged struct {
	Channel ChannelKind
	File    string
	Playing bool
	At      time.Time
}

func (BroadcastPlaybackChanged) broadcastMarker() {}

// roundVolume rounds a linear gain to the published precision.
func roundVolume(v float64) float64 {
	return math.Round(v*100) / 100
}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce(): next state plus commands to execute
// and broadcasts to fan out.
//
// Commands are ordered: within one result, a stop for a channel always
// precedes a start for the same channel, and the per-channel workers execute
// their queue strictly in order. That ordering is what makes the switch
// sequence gapless-but-never-overlapping.
type ReduceResult struct {
	State      *EngineState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
//
// The daemon loop must:
// - execute Commands
// - translate backend observations into Events
// - feed those Events back into Reduce()
func Reduce(s *EngineState, e Event, cfg EngineConfig) ReduceResult {
	if s == nil {
		s = newEngineState(cfg)
	}

	var cmds []Command
	var bcasts []StateBroadcast

	switch ev := e.(type) {
	case Tick:
		cmds, bcasts = reduceTick(s, ev.Now, cfg)

	case TimedEvent:
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}

		switch a := ev.Event.(type) {
		case BackgroundPlay:
			s.PendingSwitch = ""
			s.Background.TargetVolume = cfg.BGVolume
			cmds = append(cmds, startChannel(&s.Background, ChannelBackground, a.File, true, cfg)...)
			s.Run = RunRunning

		case BackgroundSwitch:
			bg := &s.Background
			switch {
			case !bg.active():
				// Nothing audible yet: a switch degrades to a plain play.
				s.PendingSwitch = ""
				bg.TargetVolume = cfg.BGVolume
				cmds = append(cmds, startChannel(bg, ChannelBackground, a.File, true, cfg)...)
				s.Run = RunRunning

			case bg.Starting:
				// Previous track never became audible; replace it outright.
				s.PendingSwitch = ""
				cmds = append(cmds, startChannel(bg, ChannelBackground, a.File, true, cfg)...)

			case bg.Video || cfg.Extensions.isVideo(a.File):
				// Fullscreen swaps hard-cut: fading a video that may not
				// support soft volume just delays the switch.
				s.PendingSwitch = ""
				cmds = append(cmds, startChannel(bg, ChannelBackground, a.File, true, cfg)...)

			default:
				// Fade out from the current actual level; the stop and the
				// start of the pending file happen when the fade lands.
				// A switch arriving mid-switch just replaces the pending
				// file and re-aims the fade.
				s.PendingSwitch = a.File
				bg.Fade = newFade(bg.ActualVolume, 0, cfg.BGFade, at)
				bg.StopWhenFaded = true
			}

		case BackgroundStop:
			if s.Background.active() {
				cmds = append(cmds, CmdStopPlayback{Channel: ChannelBackground})
				s.Background.clearPlayback()
				bcasts = append(bcasts, BroadcastPlaybackChanged{Channel: ChannelBackground, At: at})
			}
			s.PendingSwitch = ""
			s.Run = RunIdle

		case HintPlay:
			vol := cfg.HintVolume
			if a.Volume != nil {
				vol = clamp01(*a.Volume)
			}
			s.Hint.TargetVolume = vol
			cmds = append(cmds, startChannel(&s.Hint, ChannelHint, a.File, false, cfg)...)

		case HintStop:
			// Hint interruption is immediate: no fade-out on the hint itself.
			if s.Hint.active() {
				cmds = append(cmds, CmdStopPlayback{Channel: ChannelHint})
				s.Hint.clearPlayback()
				bcasts = append(bcasts, BroadcastPlaybackChanged{Channel: ChannelHint, At: at})
			}
			restoreDuck(s, cfg, at)

		case StopAll:
			for _, k := range []ChannelKind{ChannelBackground, ChannelHint} {
				ch := s.channel(k)
				if ch.active() {
					cmds = append(cmds, CmdStopPlayback{Channel: k})
					ch.clearPlayback()
					bcasts = append(bcasts, BroadcastPlaybackChanged{Channel: k, At: at})
				}
			}
			s.PendingSwitch = ""
			s.Duck = DuckNormal
			s.Run = RunIdle

		default:
			// no-op
		}

	case PlaybackStarted:
		ch := s.channel(ev.Channel)
		if !ch.Starting || ch.File != ev.File {
			// Stale confirmation: the channel was stopped or retargeted
			// while this load was in flight. The worker queue guarantees a
			// stop for it is already behind this observation.
			break
		}

		ch.Starting = false
		ch.Playing = true

		switch ev.Channel {
		case ChannelBackground:
			s.Run = RunRunning
			target := cfg.BGVolume
			if s.Duck == DuckDucked {
				// A hint is still up: the fresh track fades straight to the
				// ducked level, never through full volume.
				target = cfg.DuckVolume
			}
			ch.Fade = newFade(ch.ActualVolume, target, cfg.BGFade, ev.At)

		case ChannelHint:
			ch.Fade = newFade(ch.ActualVolume, ch.TargetVolume, cfg.DuckFade, ev.At)
			if s.Duck == DuckNormal {
				s.Duck = DuckDucked
				bg := &s.Background
				if bg.Playing && !bg.StopWhenFaded {
					bg.Fade = newFade(bg.ActualVolume, cfg.DuckVolume, cfg.DuckFade, ev.At)
				}
			}
		}

		bcasts = append(bcasts, BroadcastPlaybackChanged{
			Channel: ev.Channel,
			File:    ev.File,
			Playing: true,
			At:      ev.At,
		})

	case PlaybackLoadFailed:
		ch := s.channel(ev.Channel)
		if !ch.Starting || ch.File != ev.File {
			break
		}
		ch.clearPlayback()

		if ev.Channel == ChannelBackground {
			s.Run = RunIdle
		} else {
			// The failed hint may have replaced a playing one that already
			// ducked the background.
			restoreDuck(s, cfg, ev.At)
		}

	case PlaybackFinished:
		ch := s.channel(ev.Channel)
		if !ch.Playing {
			break
		}
		ch.clearPlayback()
		bcasts = append(bcasts, BroadcastPlaybackChanged{Channel: ev.Channel, At: ev.At})

		if ev.Channel == ChannelHint {
			restoreDuck(s, cfg, ev.At)
		} else {
			s.Run = RunIdle
		}

	case BackendCommandFailed:
		// A live player stopped answering: that channel is gone, the other
		// one keeps playing.
		k, ok := commandChannel(ev.Command)
		if !ok {
			break
		}
		ch := s.channel(k)
		if !ch.active() {
			break
		}
		ch.clearPlayback()
		bcasts = append(bcasts, BroadcastPlaybackChanged{Channel: k, At: ev.At})

		if k == ChannelHint {
			restoreDuck(s, cfg, ev.At)
		} else {
			s.PendingSwitch = ""
			s.Run = RunIdle
		}

	case RequestStateSnapshot:
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}
		cmds = append(cmds, CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: s.Snapshot(at)})

	default:
		// Unknown event type: no-op.
	}

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcasts,
	}
}

// reduceTick advances fades, flushes volume writes, and completes deferred
// stop/switch sequences.
func reduceTick(s *EngineState, now time.Time, cfg EngineConfig) ([]Command, []StateBroadcast) {
	var cmds []Command
	var bcasts []StateBroadcast

	for _, k := range []ChannelKind{ChannelBackground, ChannelHint} {
		ch := s.channel(k)
		if ch.Fade == nil {
			continue
		}

		level, done := ch.Fade.level(now)
		ch.ActualVolume = level
		if done {
			ch.Fade = nil
		}

		// Coalesce backend writes: only send when the level moved by the
		// threshold, but always flush the fade endpoint exactly.
		if ch.active() {
			if !ch.volumeSent || done || math.Abs(level-ch.lastSent) >= volumeSendThreshold {
				ch.lastSent = level
				ch.volumeSent = true
				cmds = append(cmds, CmdSetVolume{Channel: k, Level: level})
			}
		}

		bcasts = appendVolumeBroadcast(bcasts, ch, k, now)

		if done && ch.StopWhenFaded {
			cmds = append(cmds, CmdStopPlayback{Channel: k})
			ch.clearPlayback()
			bcasts = append(bcasts, BroadcastPlaybackChanged{Channel: k, At: now})

			if k == ChannelBackground {
				if s.PendingSwitch != "" {
					file := s.PendingSwitch
					s.PendingSwitch = ""
					cmds = append(cmds, startChannel(ch, k, file, true, cfg)...)
				} else {
					s.Run = RunIdle
				}
			}
		}
	}

	// Completion polling for one-shot items. Background ambience loops and
	// is never probed.
	if s.Hint.Playing && !s.Hint.Loop {
		cmds = append(cmds, CmdProbeFinished{Channel: ChannelHint})
	}

	return cmds, bcasts
}

// startChannel marks the channel as loading `file` and emits the stop/start
// command pair. The stop (when needed) precedes the start in the worker
// queue, so the old item is always torn down before the new one spawns.
func startChannel(ch *ChannelState, k ChannelKind, file string, loop bool, cfg EngineConfig) []Command {
	var cmds []Command
	if ch.active() {
		cmds = append(cmds, CmdStopPlayback{Channel: k})
	}

	video := cfg.Extensions.isVideo(file)
	ch.beginStart(file, video, loop)
	cmds = append(cmds, CmdStartPlayback{Channel: k, File: file, Loop: loop, Video: video})
	return cmds
}

// restoreDuck returns the background to its full level after hint playback
// ends, whatever way it ended.
func restoreDuck(s *EngineState, cfg EngineConfig, at time.Time) {
	if s.Duck != DuckDucked {
		return
	}
	s.Duck = DuckNormal

	bg := &s.Background
	if bg.Playing && !bg.StopWhenFaded {
		bg.Fade = newFade(bg.ActualVolume, cfg.BGVolume, cfg.RestoreFade, at)
	}
}

// appendVolumeBroadcast emits a volume broadcast only when the rounded level
// actually changed since the last one.
func appendVolumeBroadcast(bcasts []StateBroadcast, ch *ChannelState, k ChannelKind, at time.Time) []StateBroadcast {
	r := roundVolume(ch.ActualVolume)
	if ch.broadcastKnown && r == ch.lastBroadcast {
		return bcasts
	}
	ch.lastBroadcast = r
	ch.broadcastKnown = true
	return append(bcasts, BroadcastVolumeChanged{Channel: k, Volume: r, At: at})
}
