package main

import "fmt"

// ============================================================================
// Media backend abstraction
// ============================================================================
// The scheduling loop talks to playback hardware exclusively through this
// interface. The production implementation spawns mpv processes (mpv.go);
// tests substitute an in-memory fake.
// ============================================================================

// MediaBackend creates playback handles for media files.
//
// Load resolves `name` against the configured base directory for the media
// kind, verifies the file exists, and prepares a paused player for it.
// On failure it returns a *MediaLoadError so callers can distinguish a bad
// file from a broken backend.
type MediaBackend interface {
	Load(name string, video bool) (MediaHandle, error)
	Close() error
}

// MediaHandle is one loaded media item on one player instance.
//
// Handles are owned by a single channel worker goroutine; implementations do
// not need to support concurrent calls, but Stop must be safe to call twice.
type MediaHandle interface {
	// Play starts (or resumes) playback. With loop set the item repeats
	// until stopped.
	Play(loop bool) error

	// SetVolume applies a linear gain in [0, 1].
	SetVolume(level float64) error

	// CanSetVolume reports whether SetVolume has any effect for this item.
	// Video routed straight to the display pipeline may not be attenuable.
	CanSetVolume() bool

	// Finished reports whether playback ran to the end of the item on its
	// own. It stays false for looping items.
	Finished() (bool, error)

	// Stop tears the player down. Idempotent.
	Stop() error
}

// MediaLoadError indicates a specific file could not be loaded for playback.
// It is recoverable: the affected channel stays (or becomes) idle and the
// rest of the system continues untouched.
type MediaLoadError struct {
	Path string
	Err  error
}

func (e *MediaLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *MediaLoadError) Unwrap() error { return e.Err }
