package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Effects layer - channel workers
// ============================================================================
// All backend I/O happens here. Each channel gets one worker goroutine that
// executes its commands strictly in order; spawning or tearing down a player
// can take a while, and doing it off the daemon goroutine keeps the tick
// cadence (and the other channel) unaffected by a slow load.
//
// Workers never call Reduce() directly; they emit observation Events that the
// daemon loop feeds back into the reducer.
// ============================================================================

// channelWorker owns the MediaHandle for one channel.
type channelWorker struct {
	kind    ChannelKind
	backend MediaBackend
	cmds    chan Command
	events  chan<- Event
	logger  *slog.Logger

	// handle is touched only by the run goroutine.
	handle MediaHandle
}

func newChannelWorker(kind ChannelKind, backend MediaBackend, events chan<- Event, logger *slog.Logger) *channelWorker {
	return &channelWorker{
		kind:    kind,
		backend: backend,
		cmds:    make(chan Command, 64),
		events:  events,
		logger:  logger.With("channel", kind.String()),
	}
}

// enqueue hands a command to the worker. It never blocks; a full queue drops
// the command and reports it, which surfaces as a backend failure for the
// channel rather than a stalled daemon loop.
func (w *channelWorker) enqueue(cmd Command) bool {
	select {
	case w.cmds <- cmd:
		return true
	default:
		w.logger.Error("worker queue full, dropping command", "command", cmd.String())
		return false
	}
}

// run executes commands until ctx is canceled, then tears down any live
// player.
func (w *channelWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if w.handle != nil {
				if err := w.handle.Stop(); err != nil {
					w.logger.Warn("stop on shutdown failed", "error", err)
				}
				w.handle = nil
			}
			return

		case cmd := <-w.cmds:
			w.exec(ctx, cmd)
		}
	}
}

func (w *channelWorker) exec(ctx context.Context, cmd Command) {
	now := time.Now()

	switch c := cmd.(type) {
	case CmdStartPlayback:
		// An ordered stop should already have cleared the handle; this
		// guards against a dropped stop command.
		if w.handle != nil {
			if err := w.handle.Stop(); err != nil {
				w.logger.Warn("stop before start failed", "error", err)
			}
			w.handle = nil
		}

		h, err := w.backend.Load(c.File, c.Video)
		if err != nil {
			w.logger.Error("media load failed", "file", c.File, "error", err)
			w.emit(ctx, PlaybackLoadFailed{Channel: w.kind, File: c.File, Err: err, At: time.Now()})
			return
		}

		if err := h.Play(c.Loop); err != nil {
			w.logger.Error("playback start failed", "file", c.File, "error", err)
			if stopErr := h.Stop(); stopErr != nil {
				w.logger.Warn("cleanup after failed start failed", "error", stopErr)
			}
			w.emit(ctx, PlaybackLoadFailed{Channel: w.kind, File: c.File, Err: err, At: time.Now()})
			return
		}

		w.handle = h
		w.logger.Info("playback started", "file", c.File, "loop", c.Loop, "video", c.Video)
		w.emit(ctx, PlaybackStarted{Channel: w.kind, File: c.File, At: time.Now()})

	case CmdStopPlayback:
		if w.handle == nil {
			return
		}
		err := w.handle.Stop()
		w.handle = nil
		if err != nil {
			w.logger.Error("playback stop failed", "error", err)
			w.emit(ctx, BackendCommandFailed{Command: cmd, Err: err, At: now})
			return
		}
		w.logger.Info("playback stopped")

	case CmdSetVolume:
		if w.handle == nil {
			return
		}
		if !w.handle.CanSetVolume() {
			w.logger.Debug("volume not adjustable for current item, skipping", "level", c.Level)
			return
		}
		if err := w.handle.SetVolume(c.Level); err != nil {
			w.logger.Error("set volume failed", "level", c.Level, "error", err)
			w.handle = nil
			w.emit(ctx, BackendCommandFailed{Command: cmd, Err: err, At: now})
		}

	case CmdProbeFinished:
		if w.handle == nil {
			return
		}
		fin, err := w.handle.Finished()
		if err != nil {
			w.logger.Error("finish probe failed", "error", err)
			w.handle = nil
			w.emit(ctx, BackendCommandFailed{Command: cmd, Err: err, At: now})
			return
		}
		if fin {
			if stopErr := w.handle.Stop(); stopErr != nil {
				w.logger.Warn("cleanup after natural end failed", "error", stopErr)
			}
			w.handle = nil
			w.logger.Info("playback finished")
			w.emit(ctx, PlaybackFinished{Channel: w.kind, At: time.Now()})
		}

	default:
		w.logger.Warn("unknown command type", "command", cmd.String())
	}
}

// emit feeds an observation back to the daemon loop without blocking past
// shutdown.
func (w *channelWorker) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}

// dispatchCommand routes a reducer-emitted command to the right executor:
// channel-scoped commands go to their worker, snapshot publishes run inline
// (they are just a channel send).
func dispatchCommand(workers map[ChannelKind]*channelWorker, cmd Command, logger *slog.Logger) {
	switch c := cmd.(type) {
	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		// Never block the daemon loop on a lagging requester.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		k, ok := commandChannel(cmd)
		if !ok {
			logger.Warn("command with no executor", "command", cmd.String())
			return
		}
		w := workers[k]
		if w == nil {
			logger.Warn("no worker for channel", "channel", k.String())
			return
		}
		w.enqueue(cmd)
	}
}
