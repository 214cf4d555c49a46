package main

import "time"

// EngineState is the top-level, daemon-owned state container.
//
// Goals:
//   - Keep all reducer-owned state in one place (pure reducer, no external
//     mutation).
//   - Hold both the desired picture (targets, pending switch) and the last
//     commanded picture (actual volumes, playing flags) so fades can always
//     resume from the real current level.
//   - Make it easy to publish a coherent snapshot to other clients
//     (IPC/UI/etc).
//
// EngineState is only ever touched by the daemon goroutine.
type EngineState struct {
	// Run tracks whether the installation is actively producing sound.
	Run RunState

	// Duck is the background attenuation phase driven by hint playback.
	Duck DuckPhase

	Background ChannelState
	Hint       ChannelState

	// PendingSwitch holds the next background file while the current one
	// fades out. Non-empty only during a switch sequence.
	PendingSwitch string
}

// RunState is the engine lifecycle state.
type RunState int

const (
	RunIdle RunState = iota
	RunRunning
)

func (r RunState) String() string {
	if r == RunRunning {
		return "running"
	}
	return "idle"
}

// DuckPhase tracks background attenuation.
type DuckPhase int

const (
	DuckNormal DuckPhase = iota
	DuckDucked
)

func (d DuckPhase) String() string {
	if d == DuckDucked {
		return "ducked"
	}
	return "normal"
}

// ChannelState is the reducer-owned state of one playback channel.
type ChannelState struct {
	// File is the currently loaded (or loading) media file, relative to the
	// media base directory. Empty when idle.
	File string

	// Starting is set between the start command being issued and the
	// backend confirming playback. Stale confirmations for a file we have
	// since abandoned are ignored.
	Starting bool

	// Playing is set once the backend confirmed playback started.
	Playing bool

	// Video routes this item to the video player instead of the mixer.
	Video bool

	// Loop repeats the item until stopped (background ambience).
	Loop bool

	// TargetVolume is the steady-state level for this channel when no duck
	// applies. For the hint channel this carries per-hint overrides.
	TargetVolume float64

	// ActualVolume is the level last computed for the backend. Fades always
	// start here, never from the target, so a superseded fade continues
	// smoothly.
	ActualVolume float64

	// Fade is the in-flight ramp, nil when the channel volume is settled.
	Fade *FadeJob

	// StopWhenFaded stops the channel once the current fade completes.
	// The switch sequence uses this to serialize fade-out, stop, start.
	StopWhenFaded bool

	// Backend write gating: last level actually sent, to suppress
	// sub-threshold updates between fade endpoints.
	lastSent   float64
	volumeSent bool

	// Broadcast gating: last externally published (rounded) level.
	lastBroadcast  float64
	broadcastKnown bool
}

// clearPlayback resets the playback-identity fields after a stop. Volume
// bookkeeping is kept so subsequent fades still start from reality.
func (c *ChannelState) clearPlayback() {
	c.File = ""
	c.Starting = false
	c.Playing = false
	c.Video = false
	c.Loop = false
	c.Fade = nil
	c.StopWhenFaded = false
}

// beginStart marks the channel as loading `file` at volume zero, ready for
// the post-confirmation fade-in.
func (c *ChannelState) beginStart(file string, video, loop bool) {
	c.File = file
	c.Video = video
	c.Loop = loop
	c.Starting = true
	c.Playing = false
	c.Fade = nil
	c.StopWhenFaded = false
	c.ActualVolume = 0
	c.volumeSent = false
}

// active reports whether the channel is occupied (loading or playing).
func (c *ChannelState) active() bool {
	return c.Playing || c.Starting
}

// EngineConfig is the reducer-facing slice of the configuration: volumes,
// fade durations, and media classification. It is derived from the YAML
// config via Config.ToEngineConfig.
type EngineConfig struct {
	BGVolume   float64
	HintVolume float64
	DuckVolume float64

	BGFade      time.Duration
	DuckFade    time.Duration
	RestoreFade time.Duration

	Extensions mediaExtensions
}

// newEngineState creates the initial idle state with configured targets.
func newEngineState(cfg EngineConfig) *EngineState {
	return &EngineState{
		Background: ChannelState{TargetVolume: cfg.BGVolume},
		Hint:       ChannelState{TargetVolume: cfg.HintVolume},
	}
}

// channel returns the state for one channel kind.
func (s *EngineState) channel(k ChannelKind) *ChannelState {
	if k == ChannelHint {
		return &s.Hint
	}
	return &s.Background
}

// ============================================================================
// Snapshots
// ============================================================================

// ChannelSnapshot is the externally visible state of one channel.
type ChannelSnapshot struct {
	File    string  `json:"file,omitempty"`
	Playing bool    `json:"playing"`
	Video   bool    `json:"video,omitempty"`
	Volume  float64 `json:"volume"`
	Target  float64 `json:"target"`
}

// StateSnapshot is a coherent copy of the engine state for external
// consumers (WS state_init, HTTP status, IPC). Volumes are rounded the same
// way broadcasts are, so snapshot and stream never disagree visibly.
type StateSnapshot struct {
	Running    bool            `json:"running"`
	Ducked     bool            `json:"ducked"`
	Background ChannelSnapshot `json:"background"`
	Hint       ChannelSnapshot `json:"hint"`
	At         time.Time       `json:"at"`
}

// Snapshot copies the externally relevant state. Called only from the
// reducer, on the daemon goroutine.
func (s *EngineState) Snapshot(at time.Time) StateSnapshot {
	return StateSnapshot{
		Running:    s.Run == RunRunning,
		Ducked:     s.Duck == DuckDucked,
		Background: snapshotChannel(&s.Background),
		Hint:       snapshotChannel(&s.Hint),
		At:         at,
	}
}

func snapshotChannel(c *ChannelState) ChannelSnapshot {
	return ChannelSnapshot{
		File:    c.File,
		Playing: c.Playing,
		Video:   c.Video,
		Volume:  roundVolume(c.ActualVolume),
		Target:  roundVolume(c.TargetVolume),
	}
}
