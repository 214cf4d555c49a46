package main

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ============================================================================
// Media file classification and path handling
// ============================================================================
// Gateways (MQTT/IPC/HTTP) validate requested file names before an event ever
// reaches the scheduling loop, so malformed requests are rejected at the edge
// with a typed error and never disturb playback.
// ============================================================================

// Typed gateway errors. Callers use errors.Is to branch on these.
var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingFile      = errors.New("missing file name")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrInvalidVolume    = errors.New("volume out of range")
)

// mediaExtensions holds the recognized audio and video extensions,
// lowercased and including the leading dot.
type mediaExtensions struct {
	audio map[string]bool
	video map[string]bool
}

func newMediaExtensions(audio, video []string) mediaExtensions {
	m := mediaExtensions{
		audio: make(map[string]bool, len(audio)),
		video: make(map[string]bool, len(video)),
	}
	for _, ext := range audio {
		m.audio[strings.ToLower(ext)] = true
	}
	for _, ext := range video {
		m.video[strings.ToLower(ext)] = true
	}
	return m
}

// classify reports whether the file routes to the video player, or returns
// ErrUnsupportedMedia when the extension is recognized by neither set.
func (m mediaExtensions) classify(file string) (video bool, err error) {
	ext := strings.ToLower(filepath.Ext(file))
	switch {
	case m.video[ext]:
		return true, nil
	case m.audio[ext]:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedMedia, ext)
	}
}

// isVideo is classify without the error, for callers that already validated
// the name at the gateway.
func (m mediaExtensions) isVideo(file string) bool {
	v, _ := m.classify(file)
	return v
}

// safeJoin joins a requested file name onto a base directory while refusing
// to escape the base. Requests are untrusted (they arrive over MQTT), so
// absolute paths and ".." segments are stripped rather than honored.
func safeJoin(base, name string) string {
	// path.Clean on a rooted copy of the name collapses any "../" prefix.
	cleaned := path.Clean("/" + filepath.ToSlash(name))
	return filepath.Join(base, filepath.FromSlash(cleaned))
}
