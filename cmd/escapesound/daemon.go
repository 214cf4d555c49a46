package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven scheduling
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands +
//     broadcasts.
//   - Commands are dispatched to the per-channel workers (effects.go); the
//     daemon loop itself never touches the backend.
//   - Worker observations come back on the same events channel as gateway
//     commands, so every input to the reducer is serialized through this
//     single goroutine. Two MQTT messages arriving together can never
//     interleave their effects.
//   - Ticks drive all fade evaluation; everything between ticks is pure
//     bookkeeping.
//
// ============================================================================

// runDaemon is the main scheduling loop:
//   - Receives Events from gateways and channel workers
//   - Emits Tick events on a fixed cadence
//   - Reduces events into (state, commands, broadcasts)
//   - Dispatches commands to the channel workers and broadcasts to the hub
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	workers map[ChannelKind]*channelWorker,
	cfg EngineConfig,
	state *EngineState,
	updateHz int,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		state = newEngineState(cfg)
	}

	updateInterval := time.Second / time.Duration(updateHz)
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting dispatch
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publishBroadcasts := func(bs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bs {
			// Never block the scheduling loop on a slow consumer.
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping broadcast")
			}
		}
	}

	// Reduce all queued events, collecting resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publishBroadcasts(rr.Broadcasts)
		}
	}

	// Dispatch all queued commands to their executors. Observations come
	// back asynchronously on the events channel and are reduced on arrival.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]
			dispatchCommand(workers, cmd, logger)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}

			// Observations carry their own timestamps; gateway commands get
			// stamped on arrival.
			switch ev.(type) {
			case PlaybackStarted, PlaybackLoadFailed, PlaybackFinished, BackendCommandFailed, RequestStateSnapshot:
				enqueueEvent(ev)
			default:
				enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			}
			flushEvents()
			flushCommands()

		case now := <-ticker.C:
			enqueueEvent(Tick{Now: now})
			flushEvents()
			flushCommands()
		}
	}
}
