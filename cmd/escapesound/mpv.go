package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dexterlb/mpvipc"
)

// ============================================================================
// MPV backend
// ============================================================================
// One mpv process per loaded media item, controlled over its JSON IPC socket.
// Audio runs with --no-video; video runs fullscreen on the configured output
// driver. The process is spawned paused at volume zero so the scheduling
// loop's fade-in is the first thing anyone hears.
// ============================================================================

// VideoMode selects the mpv video output path.
type VideoMode string

const (
	// VideoModeAuto tries DRM (bare KMS console) and falls back to the
	// default output if mpv refuses to start.
	VideoModeAuto VideoMode = "auto"
	VideoModeDRM  VideoMode = "drm"
	VideoModeX11  VideoMode = "x11"
)

// MPVBackendConfig configures the mpv backend.
type MPVBackendConfig struct {
	Binary string // mpv binary, default "mpv"

	AudioBasePath string
	VideoBasePath string

	Mode          VideoMode
	HDMIConnector string // DRM connector name, e.g. "HDMI-A-1"; empty lets mpv pick

	// SoftwareVolume keeps video items attenuable so they participate in
	// fades and ducking like audio does. Disable only when the video path
	// bypasses mpv's audio output entirely.
	SoftwareVolume bool

	ExtraVideoArgs []string
}

// MPVBackend spawns and controls mpv processes.
type MPVBackend struct {
	cfg    MPVBackendConfig
	logger *slog.Logger

	videoArgs    []string
	fallbackArgs []string // non-nil only in auto mode

	seq atomic.Uint64
}

// NewMPVBackend resolves the video output arguments once up front.
func NewMPVBackend(cfg MPVBackendConfig, logger *slog.Logger) *MPVBackend {
	if cfg.Binary == "" {
		cfg.Binary = "mpv"
	}

	primary, fallback := videoOutputArgs(cfg.Mode, cfg.HDMIConnector)

	return &MPVBackend{
		cfg:          cfg,
		logger:       logger,
		videoArgs:    primary,
		fallbackArgs: fallback,
	}
}

// videoOutputArgs returns the mpv arguments for the chosen video mode and,
// for auto mode, the fallback arguments to retry with when DRM is
// unavailable (e.g. a desktop session owns the display).
func videoOutputArgs(mode VideoMode, connector string) (primary, fallback []string) {
	drm := []string{"--vo=gpu", "--gpu-context=drm"}
	if connector != "" {
		drm = append(drm, "--drm-connector="+connector)
	}

	switch mode {
	case VideoModeDRM:
		return drm, nil
	case VideoModeX11:
		return []string{"--vo=gpu", "--gpu-context=x11egl"}, nil
	default:
		return drm, []string{}
	}
}

// Load resolves the file under the right base path and spawns a paused
// player for it.
func (b *MPVBackend) Load(name string, video bool) (MediaHandle, error) {
	base := b.cfg.AudioBasePath
	if video {
		base = b.cfg.VideoBasePath
	}
	path := safeJoin(base, name)

	fi, err := os.Stat(path)
	if err != nil {
		return nil, &MediaLoadError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return nil, &MediaLoadError{Path: path, Err: errors.New("not a regular file")}
	}

	h, err := b.spawn(path, video, b.videoArgs)
	if err != nil && video && b.fallbackArgs != nil {
		b.logger.Warn("drm video output failed, retrying with default output", "file", name, "error", err)
		h, err = b.spawn(path, video, b.fallbackArgs)
	}
	if err != nil {
		return nil, &MediaLoadError{Path: path, Err: err}
	}
	return h, nil
}

// Close is a no-op; handles own their process lifetimes.
func (b *MPVBackend) Close() error { return nil }

func (b *MPVBackend) spawn(path string, video bool, outputArgs []string) (*mpvHandle, error) {
	sock := filepath.Join(os.TempDir(), fmt.Sprintf("escapesound-mpv-%d-%d.sock", os.Getpid(), b.seq.Add(1)))

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--pause",
		"--keep-open=no",
		"--volume=0",
		"--input-ipc-server=" + sock,
	}
	if video {
		args = append(args, "--fs")
		args = append(args, outputArgs...)
		args = append(args, b.cfg.ExtraVideoArgs...)
	} else {
		args = append(args, "--no-video")
	}
	args = append(args, path)

	cmd := exec.Command(b.cfg.Binary, args...)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn mpv: %w", err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	h := &mpvHandle{
		cmd:     cmd,
		done:    done,
		sock:    sock,
		video:   video,
		softVol: !video || b.cfg.SoftwareVolume,
		logger:  b.logger,
	}

	conn, err := h.connect()
	if err != nil {
		h.terminate()
		return nil, err
	}
	h.conn = conn

	return h, nil
}

// mpvHandle is one running mpv process. It is owned by a single channel
// worker goroutine; only Stop may race (shutdown vs. worker) and is guarded.
type mpvHandle struct {
	cmd  *exec.Cmd
	conn *mpvipc.Connection
	done chan struct{}
	sock string

	video   bool
	softVol bool
	logger  *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// connect waits for the freshly spawned process to accept IPC connections.
func (h *mpvHandle) connect() (*mpvipc.Connection, error) {
	deadline := time.Now().Add(mpvStartupTimeout)
	for {
		select {
		case <-h.done:
			return nil, errors.New("mpv exited during startup")
		default:
		}

		conn := mpvipc.NewConnection(h.sock)
		if err := conn.Open(); err == nil {
			return conn, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("mpv ipc socket not ready after %s", mpvStartupTimeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (h *mpvHandle) Play(loop bool) error {
	if loop {
		if err := h.conn.Set("loop-file", "inf"); err != nil {
			return fmt.Errorf("set loop: %w", err)
		}
	}
	if err := h.conn.Set("pause", false); err != nil {
		return fmt.Errorf("unpause: %w", err)
	}
	return nil
}

func (h *mpvHandle) SetVolume(level float64) error {
	// mpv volume is 0-100.
	if err := h.conn.Set("volume", clamp01(level)*100); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

func (h *mpvHandle) CanSetVolume() bool { return h.softVol }

// Finished reports whether the process exited on its own. With --keep-open=no
// mpv quits at end of file, so process exit is the end-of-item signal.
func (h *mpvHandle) Finished() (bool, error) {
	select {
	case <-h.done:
		return true, nil
	default:
		return false, nil
	}
}

// Stop tears the player down: polite quit over IPC, SIGTERM, then SIGKILL.
// Idempotent.
func (h *mpvHandle) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	h.mu.Unlock()

	if h.conn != nil {
		if _, err := h.conn.Call("quit"); err != nil {
			h.logger.Debug("mpv quit command failed", "error", err)
		}
		_ = h.conn.Close()
	}

	h.terminate()
	return nil
}

// terminate escalates until the process is gone, then removes the socket.
func (h *mpvHandle) terminate() {
	select {
	case <-h.done:
	default:
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-h.done:
		case <-time.After(mpvStopGrace):
			_ = h.cmd.Process.Kill()
			<-h.done
		}
	}

	_ = os.Remove(h.sock)
}
