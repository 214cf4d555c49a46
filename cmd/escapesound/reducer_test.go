package main

import (
	"errors"
	"math"
	"testing"
	"time"
)

func testEngineConfig() EngineConfig {
	return EngineConfig{
		BGVolume:   0.7,
		HintVolume: 0.7,
		DuckVolume: 0.3,

		BGFade:      500 * time.Millisecond,
		DuckFade:    500 * time.Millisecond,
		RestoreFade: 500 * time.Millisecond,

		Extensions: newMediaExtensions(
			[]string{".mp3", ".ogg", ".wav"},
			[]string{".mp4", ".mkv"},
		),
	}
}

// sim drives the reducer with a synthetic clock at a 20ms tick cadence.
type sim struct {
	t   *testing.T
	cfg EngineConfig
	s   *EngineState
	now time.Time
}

func newSim(t *testing.T) *sim {
	t.Helper()
	cfg := testEngineConfig()
	return &sim{
		t:   t,
		cfg: cfg,
		s:   newEngineState(cfg),
		now: time.Unix(1000, 0).UTC(),
	}
}

// send submits a gateway command at the current simulated time.
func (m *sim) send(ev Event) ReduceResult {
	m.t.Helper()
	rr := Reduce(m.s, TimedEvent{Event: ev, At: m.now}, m.cfg)
	m.s = rr.State
	return rr
}

// observe feeds a backend observation (already timestamped at now).
func (m *sim) observe(ev Event) ReduceResult {
	m.t.Helper()
	rr := Reduce(m.s, ev, m.cfg)
	m.s = rr.State
	return rr
}

// tick advances the clock by one 20ms step and reduces a Tick.
func (m *sim) tick() ReduceResult {
	m.t.Helper()
	m.now = m.now.Add(20 * time.Millisecond)
	rr := Reduce(m.s, Tick{Now: m.now}, m.cfg)
	m.s = rr.State
	return rr
}

// run ticks for the given duration, concatenating all emitted commands.
func (m *sim) run(d time.Duration) []Command {
	m.t.Helper()
	var cmds []Command
	for elapsed := time.Duration(0); elapsed < d; elapsed += 20 * time.Millisecond {
		cmds = append(cmds, m.tick().Commands...)
	}
	return cmds
}

// started confirms playback of the channel's current file.
func (m *sim) started(k ChannelKind) ReduceResult {
	m.t.Helper()
	ch := m.s.channel(k)
	if ch.File == "" {
		m.t.Fatalf("started(%s): no file loading", k)
	}
	return m.observe(PlaybackStarted{Channel: k, File: ch.File, At: m.now})
}

// playBackground brings the background channel to a settled playing state.
func (m *sim) playBackground(file string) {
	m.t.Helper()
	m.send(BackgroundPlay{File: file})
	m.started(ChannelBackground)
	m.run(600 * time.Millisecond)
}

func volumeLevels(cmds []Command, k ChannelKind) []float64 {
	var out []float64
	for _, c := range cmds {
		if sv, ok := c.(CmdSetVolume); ok && sv.Channel == k {
			out = append(out, sv.Level)
		}
	}
	return out
}

func lastVolume(t *testing.T, cmds []Command, k ChannelKind) float64 {
	t.Helper()
	levels := volumeLevels(cmds, k)
	if len(levels) == 0 {
		t.Fatalf("no volume commands for channel %s", k)
	}
	return levels[len(levels)-1]
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestReduce_BackgroundPlay_StartsLoopingWithFadeIn(t *testing.T) {
	m := newSim(t)

	rr := m.send(BackgroundPlay{File: "forest.mp3"})

	if len(rr.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d: %v", len(rr.Commands), rr.Commands)
	}
	start, ok := rr.Commands[0].(CmdStartPlayback)
	if !ok {
		t.Fatalf("expected CmdStartPlayback, got %T", rr.Commands[0])
	}
	if start.Channel != ChannelBackground || start.File != "forest.mp3" || !start.Loop || start.Video {
		t.Fatalf("unexpected start command: %+v", start)
	}
	if !m.s.Background.Starting || m.s.Background.ActualVolume != 0 {
		t.Fatalf("expected background loading at volume 0, got %+v", m.s.Background)
	}
	if m.s.Run != RunRunning {
		t.Fatalf("expected running state, got %v", m.s.Run)
	}

	m.started(ChannelBackground)

	cmds := m.run(520 * time.Millisecond)
	levels := volumeLevels(cmds, ChannelBackground)
	if len(levels) == 0 {
		t.Fatalf("expected fade-in volume commands")
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] < levels[i-1] {
			t.Fatalf("fade-in not monotonic: %v", levels)
		}
	}
	if got := levels[len(levels)-1]; !approx(got, 0.7) {
		t.Fatalf("expected fade-in to land exactly on 0.7, got %v", got)
	}
}

func TestReduce_BackgroundPlay_ReplacesCurrentWithoutFade(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")

	rr := m.send(BackgroundPlay{File: "cave.mp3"})

	if len(rr.Commands) != 2 {
		t.Fatalf("expected stop+start, got %v", rr.Commands)
	}
	if _, ok := rr.Commands[0].(CmdStopPlayback); !ok {
		t.Fatalf("expected CmdStopPlayback first, got %T", rr.Commands[0])
	}
	if _, ok := rr.Commands[1].(CmdStartPlayback); !ok {
		t.Fatalf("expected CmdStartPlayback second, got %T", rr.Commands[1])
	}
}

func TestReduce_Switch_FadesOutThenStopsThenStarts(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")

	rr := m.send(BackgroundSwitch{File: "cave.mp3"})
	if len(rr.Commands) != 0 {
		t.Fatalf("switch should only arm the fade-out, got %v", rr.Commands)
	}
	if m.s.PendingSwitch != "cave.mp3" {
		t.Fatalf("expected pending switch, got %q", m.s.PendingSwitch)
	}

	cmds := m.run(520 * time.Millisecond)

	stopIdx, startIdx := -1, -1
	for i, c := range cmds {
		switch cc := c.(type) {
		case CmdStopPlayback:
			if cc.Channel == ChannelBackground && stopIdx == -1 {
				stopIdx = i
			}
		case CmdStartPlayback:
			if cc.Channel == ChannelBackground {
				startIdx = i
			}
		}
	}

	if stopIdx == -1 || startIdx == -1 {
		t.Fatalf("expected stop and start during switch, got %v", cmds)
	}
	if startIdx < stopIdx {
		t.Fatalf("new track started before old one stopped (start=%d stop=%d)", startIdx, stopIdx)
	}

	// The fade-out must reach exactly zero before the stop.
	levels := volumeLevels(cmds[:stopIdx+1], ChannelBackground)
	if got := levels[len(levels)-1]; !approx(got, 0) {
		t.Fatalf("expected fade-out to land on 0 before stop, got %v", got)
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1] {
			t.Fatalf("fade-out not monotonic: %v", levels)
		}
	}

	// The new track is loading at volume zero, awaiting its own fade-in.
	if !m.s.Background.Starting || m.s.Background.File != "cave.mp3" {
		t.Fatalf("expected cave.mp3 loading, got %+v", m.s.Background)
	}

	m.started(ChannelBackground)
	cmds = m.run(520 * time.Millisecond)
	if got := lastVolume(t, cmds, ChannelBackground); !approx(got, 0.7) {
		t.Fatalf("expected fade-in to 0.7 after switch, got %v", got)
	}
}

func TestReduce_Switch_VideoHardCuts(t *testing.T) {
	cases := []struct {
		name string
		from string
		to   string
	}{
		{"video to video", "intro.mp4", "outro.mp4"},
		{"video to audio", "intro.mp4", "forest.mp3"},
		{"audio to video", "forest.mp3", "outro.mp4"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newSim(t)
			m.playBackground(tc.from)

			rr := m.send(BackgroundSwitch{File: tc.to})
			if len(rr.Commands) != 2 {
				t.Fatalf("expected immediate stop+start, got %v", rr.Commands)
			}
			if stop, ok := rr.Commands[0].(CmdStopPlayback); !ok || stop.Channel != ChannelBackground {
				t.Fatalf("expected background stop first, got %T", rr.Commands[0])
			}
			start, ok := rr.Commands[1].(CmdStartPlayback)
			if !ok || start.File != tc.to {
				t.Fatalf("expected start of %q, got %v", tc.to, rr.Commands[1])
			}
			if m.s.PendingSwitch != "" {
				t.Fatalf("video switch must not arm a pending fade, got %q", m.s.PendingSwitch)
			}
			if m.s.Background.StopWhenFaded {
				t.Fatalf("video switch must not arm a fade-out stop")
			}
		})
	}
}

func TestReduce_Switch_WhileIdleActsAsPlay(t *testing.T) {
	m := newSim(t)

	rr := m.send(BackgroundSwitch{File: "cave.mp3"})
	if len(rr.Commands) != 1 {
		t.Fatalf("expected immediate start, got %v", rr.Commands)
	}
	if _, ok := rr.Commands[0].(CmdStartPlayback); !ok {
		t.Fatalf("expected CmdStartPlayback, got %T", rr.Commands[0])
	}
	if m.s.PendingSwitch != "" {
		t.Fatalf("no pending switch expected, got %q", m.s.PendingSwitch)
	}
}

func TestReduce_Switch_SupersededByNewerSwitch(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")

	m.send(BackgroundSwitch{File: "cave.mp3"})
	m.run(100 * time.Millisecond)
	m.send(BackgroundSwitch{File: "ruins.mp3"})

	cmds := m.run(600 * time.Millisecond)

	var startedFiles []string
	for _, c := range cmds {
		if sc, ok := c.(CmdStartPlayback); ok {
			startedFiles = append(startedFiles, sc.File)
		}
	}
	if len(startedFiles) != 1 || startedFiles[0] != "ruins.mp3" {
		t.Fatalf("expected exactly one start of ruins.mp3, got %v", startedFiles)
	}
}

func TestReduce_Hint_DucksAndRestoresBackground(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")

	rr := m.send(HintPlay{File: "hint-03.mp3"})
	if len(rr.Commands) != 1 {
		t.Fatalf("expected hint start, got %v", rr.Commands)
	}

	// Duck engages only once the hint is audibly playing.
	if m.s.Duck != DuckNormal {
		t.Fatalf("duck must not engage before the hint started")
	}

	m.started(ChannelHint)
	if m.s.Duck != DuckDucked {
		t.Fatalf("expected ducked after hint start, got %v", m.s.Duck)
	}

	cmds := m.run(520 * time.Millisecond)
	if got := lastVolume(t, cmds, ChannelBackground); !approx(got, 0.3) {
		t.Fatalf("expected background ducked to 0.3, got %v", got)
	}
	if got := lastVolume(t, cmds, ChannelHint); !approx(got, 0.7) {
		t.Fatalf("expected hint at 0.7, got %v", got)
	}

	m.observe(PlaybackFinished{Channel: ChannelHint, At: m.now})
	if m.s.Duck != DuckNormal {
		t.Fatalf("expected duck released after hint finished")
	}

	cmds = m.run(520 * time.Millisecond)
	if got := lastVolume(t, cmds, ChannelBackground); !approx(got, 0.7) {
		t.Fatalf("expected background restored to 0.7, got %v", got)
	}
}

func TestReduce_HintVolumeOverride_AppliesToThisHintOnly(t *testing.T) {
	m := newSim(t)

	vol := 0.4
	m.send(HintPlay{File: "whisper.mp3", Volume: &vol})
	m.started(ChannelHint)

	cmds := m.run(520 * time.Millisecond)
	if got := lastVolume(t, cmds, ChannelHint); !approx(got, 0.4) {
		t.Fatalf("expected hint at overridden 0.4, got %v", got)
	}

	m.observe(PlaybackFinished{Channel: ChannelHint, At: m.now})

	// Next hint without an override goes back to the configured default.
	m.send(HintPlay{File: "hint-04.mp3"})
	m.started(ChannelHint)
	cmds = m.run(520 * time.Millisecond)
	if got := lastVolume(t, cmds, ChannelHint); !approx(got, 0.7) {
		t.Fatalf("expected hint back at default 0.7, got %v", got)
	}
}

func TestReduce_HintStop_CutsImmediatelyAndRestores(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")
	m.send(HintPlay{File: "hint-03.mp3"})
	m.started(ChannelHint)
	m.run(520 * time.Millisecond)

	rr := m.send(HintStop{})

	// The hint stop is immediate, no fade-out on the hint channel.
	if len(rr.Commands) != 1 {
		t.Fatalf("expected exactly the hint stop, got %v", rr.Commands)
	}
	stop, ok := rr.Commands[0].(CmdStopPlayback)
	if !ok || stop.Channel != ChannelHint {
		t.Fatalf("expected CmdStopPlayback(hint), got %v", rr.Commands[0])
	}
	if m.s.Duck != DuckNormal {
		t.Fatalf("expected duck released on hint stop")
	}

	cmds := m.run(520 * time.Millisecond)
	if got := lastVolume(t, cmds, ChannelBackground); !approx(got, 0.7) {
		t.Fatalf("expected background restored to 0.7, got %v", got)
	}
}

func TestReduce_HintStop_WhileIdleIsNoOp(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")

	rr := m.send(HintStop{})
	if len(rr.Commands) != 0 {
		t.Fatalf("expected no commands, got %v", rr.Commands)
	}
	if !m.s.Background.Playing {
		t.Fatalf("background must be untouched")
	}
}

func TestReduce_HintInterrupt_ReplacesPlayingHint(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")
	m.send(HintPlay{File: "hint-01.mp3"})
	m.started(ChannelHint)
	m.run(520 * time.Millisecond)

	rr := m.send(HintPlay{File: "hint-02.mp3"})
	if len(rr.Commands) != 2 {
		t.Fatalf("expected stop+start, got %v", rr.Commands)
	}
	if _, ok := rr.Commands[0].(CmdStopPlayback); !ok {
		t.Fatalf("expected CmdStopPlayback first, got %T", rr.Commands[0])
	}

	// Background stays ducked across the handover.
	if m.s.Duck != DuckDucked {
		t.Fatalf("expected duck held across hint interrupt")
	}

	m.started(ChannelHint)
	if m.s.Duck != DuckDucked {
		t.Fatalf("duck must not re-engage (and re-fade) on the second hint")
	}
}

func TestReduce_SwitchWhileDucked_FadesInToDuckLevel(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")
	m.send(HintPlay{File: "hint-03.mp3"})
	m.started(ChannelHint)
	m.run(520 * time.Millisecond)

	m.send(BackgroundSwitch{File: "cave.mp3"})
	m.run(520 * time.Millisecond)
	m.started(ChannelBackground)

	cmds := m.run(520 * time.Millisecond)
	if got := lastVolume(t, cmds, ChannelBackground); !approx(got, 0.3) {
		t.Fatalf("post-switch fade-in must target the ducked level 0.3, got %v", got)
	}
}

func TestReduce_StopAll_SilencesBothAndIsIdempotent(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")
	m.send(HintPlay{File: "hint-03.mp3"})
	m.started(ChannelHint)
	m.run(200 * time.Millisecond)

	rr := m.send(StopAll{})

	stops := 0
	for _, c := range rr.Commands {
		if _, ok := c.(CmdStopPlayback); ok {
			stops++
		}
	}
	if stops != 2 {
		t.Fatalf("expected 2 stops, got %v", rr.Commands)
	}
	if m.s.Run != RunIdle || m.s.Duck != DuckNormal {
		t.Fatalf("expected idle/normal after stop all, got run=%v duck=%v", m.s.Run, m.s.Duck)
	}
	if m.s.Background.active() || m.s.Hint.active() {
		t.Fatalf("expected both channels idle")
	}

	rr = m.send(StopAll{})
	if len(rr.Commands) != 0 {
		t.Fatalf("second stop all must be a no-op, got %v", rr.Commands)
	}
}

func TestReduce_StopAll_CancelsPendingSwitch(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")
	m.send(BackgroundSwitch{File: "cave.mp3"})
	m.run(100 * time.Millisecond)

	m.send(StopAll{})
	if m.s.PendingSwitch != "" {
		t.Fatalf("pending switch must be cancelled")
	}

	cmds := m.run(time.Second)
	for _, c := range cmds {
		if _, ok := c.(CmdStartPlayback); ok {
			t.Fatalf("no playback may start after stop all, got %v", c)
		}
	}
}

func TestReduce_SupersedingFade_ContinuesFromActualLevel(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")
	m.send(HintPlay{File: "hint-03.mp3"})
	m.started(ChannelHint)

	// Interrupt the duck fade halfway down.
	cmds := m.run(260 * time.Millisecond)
	before := lastVolume(t, cmds, ChannelBackground)
	if before <= 0.3 || before >= 0.7 {
		t.Fatalf("expected mid-fade level, got %v", before)
	}

	m.send(HintStop{})

	// The restore fade must pick up where the duck fade was.
	first := lastVolume(t, m.tick().Commands, ChannelBackground)
	if math.Abs(first-before) > 0.05 {
		t.Fatalf("restore fade jumped: %v -> %v", before, first)
	}
}

func TestReduce_LoadFailure_IsChannelLocal(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")

	m.send(HintPlay{File: "missing.mp3"})
	rr := m.observe(PlaybackLoadFailed{Channel: ChannelHint, File: "missing.mp3", At: m.now})

	if len(rr.Commands) != 0 {
		t.Fatalf("expected no commands, got %v", rr.Commands)
	}
	if m.s.Hint.active() {
		t.Fatalf("hint channel must return to idle")
	}
	if m.s.Duck != DuckNormal {
		t.Fatalf("duck must not be engaged for a hint that never started")
	}
	if !m.s.Background.Playing {
		t.Fatalf("background must keep playing")
	}
}

func TestReduce_BackgroundLoadFailure_ReturnsToIdle(t *testing.T) {
	m := newSim(t)
	m.send(BackgroundPlay{File: "broken.mp3"})
	m.observe(PlaybackLoadFailed{Channel: ChannelBackground, File: "broken.mp3", At: m.now})

	if m.s.Run != RunIdle || m.s.Background.active() {
		t.Fatalf("expected idle after background load failure, got %+v", m.s)
	}

	// The system accepts new commands afterwards.
	rr := m.send(BackgroundPlay{File: "forest.mp3"})
	if len(rr.Commands) != 1 {
		t.Fatalf("expected fresh start, got %v", rr.Commands)
	}
}

func TestReduce_StaleStartConfirmation_Ignored(t *testing.T) {
	m := newSim(t)
	m.send(BackgroundPlay{File: "forest.mp3"})
	m.send(StopAll{})

	rr := m.observe(PlaybackStarted{Channel: ChannelBackground, File: "forest.mp3", At: m.now})

	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("stale confirmation must be ignored, got %v / %v", rr.Commands, rr.Broadcasts)
	}
	if m.s.Background.active() {
		t.Fatalf("background must stay idle")
	}
}

func TestReduce_BackendFailure_IdlesOnlyThatChannel(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")
	m.send(HintPlay{File: "hint-03.mp3"})
	m.started(ChannelHint)
	m.run(520 * time.Millisecond)

	m.observe(BackendCommandFailed{
		Command: CmdSetVolume{Channel: ChannelHint, Level: 0.5},
		Err:     errTestBackend,
		At:      m.now,
	})

	if m.s.Hint.active() {
		t.Fatalf("hint channel must be idled on backend failure")
	}
	if !m.s.Background.Playing {
		t.Fatalf("background must keep playing")
	}
	if m.s.Duck != DuckNormal {
		t.Fatalf("duck must be released when the hint dies")
	}
}

func TestReduce_Tick_ProbesOnlyPlayingOneShots(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")

	for _, c := range m.tick().Commands {
		if _, ok := c.(CmdProbeFinished); ok {
			t.Fatalf("looping background must not be probed")
		}
	}

	m.send(HintPlay{File: "hint-03.mp3"})
	// Still loading: no probe yet.
	for _, c := range m.tick().Commands {
		if _, ok := c.(CmdProbeFinished); ok {
			t.Fatalf("loading hint must not be probed")
		}
	}

	m.started(ChannelHint)
	found := false
	for _, c := range m.tick().Commands {
		if pc, ok := c.(CmdProbeFinished); ok && pc.Channel == ChannelHint {
			found = true
		}
	}
	if !found {
		t.Fatalf("playing hint must be probed for completion")
	}
}

func TestReduce_Snapshot_ReflectsEngineState(t *testing.T) {
	m := newSim(t)
	m.playBackground("forest.mp3")
	m.send(HintPlay{File: "hint-03.mp3"})
	m.started(ChannelHint)
	m.run(520 * time.Millisecond)

	reply := make(chan StateSnapshot, 1)
	rr := m.observe(RequestStateSnapshot{Reply: reply, At: m.now})

	if len(rr.Commands) != 1 {
		t.Fatalf("expected snapshot command, got %v", rr.Commands)
	}
	pub, ok := rr.Commands[0].(CmdPublishStateSnapshot)
	if !ok {
		t.Fatalf("expected CmdPublishStateSnapshot, got %T", rr.Commands[0])
	}

	snap := pub.Snapshot
	if !snap.Running || !snap.Ducked {
		t.Fatalf("unexpected snapshot flags: %+v", snap)
	}
	if snap.Background.File != "forest.mp3" || !snap.Background.Playing {
		t.Fatalf("unexpected background snapshot: %+v", snap.Background)
	}
	if !approx(snap.Background.Volume, 0.3) {
		t.Fatalf("expected snapshot ducked volume 0.3, got %v", snap.Background.Volume)
	}
	if snap.Hint.File != "hint-03.mp3" || !approx(snap.Hint.Volume, 0.7) {
		t.Fatalf("unexpected hint snapshot: %+v", snap.Hint)
	}
}

func TestReduce_VolumeBroadcasts_OnlyOnRoundedChange(t *testing.T) {
	cfg := testEngineConfig()
	cfg.BGFade = 10 * time.Second // sub-millistep fades per tick

	s := newEngineState(cfg)
	t0 := time.Unix(2000, 0).UTC()

	rr := Reduce(s, TimedEvent{Event: BackgroundPlay{File: "forest.mp3"}, At: t0}, cfg)
	s = rr.State
	rr = Reduce(s, PlaybackStarted{Channel: ChannelBackground, File: "forest.mp3", At: t0}, cfg)
	s = rr.State

	// First tick establishes a published level.
	rr = Reduce(s, Tick{Now: t0.Add(20 * time.Millisecond)}, cfg)
	s = rr.State
	if countVolumeBroadcasts(rr.Broadcasts) != 1 {
		t.Fatalf("expected initial volume broadcast, got %v", rr.Broadcasts)
	}

	// 1ms later the level moved by ~0.00007: below the published precision.
	rr = Reduce(s, Tick{Now: t0.Add(21 * time.Millisecond)}, cfg)
	s = rr.State
	if countVolumeBroadcasts(rr.Broadcasts) != 0 {
		t.Fatalf("expected no broadcast for sub-step change, got %v", rr.Broadcasts)
	}

	// A second later the rounded level has moved.
	rr = Reduce(s, Tick{Now: t0.Add(1021 * time.Millisecond)}, cfg)
	if countVolumeBroadcasts(rr.Broadcasts) != 1 {
		t.Fatalf("expected broadcast after rounded change, got %v", rr.Broadcasts)
	}
}

func countVolumeBroadcasts(bs []StateBroadcast) int {
	n := 0
	for _, b := range bs {
		if _, ok := b.(BroadcastVolumeChanged); ok {
			n++
		}
	}
	return n
}

var errTestBackend = errors.New("backend gone")
