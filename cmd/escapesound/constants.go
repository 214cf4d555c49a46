package main

import "time"

// Default configuration values. Keep these aligned with DefaultConfig()
// and the CLI defaults in main.go.
const (
	// Scheduling loop cadence (ticks per second). 50 Hz gives 20ms fade steps.
	defaultUpdateHz = 50

	// Volume levels are linear gains in [0.0, 1.0].
	defaultBGVolume   = 0.7
	defaultHintVolume = 0.7
	defaultDuckVolume = 0.3

	// Fade durations in milliseconds.
	defaultBGFadeMS      = 500
	defaultDuckFadeMS    = 500
	defaultRestoreFadeMS = 500

	// MQTT defaults.
	defaultMQTTBroker       = "tcp://127.0.0.1:1883"
	defaultMQTTClientID     = "escapesound"
	defaultMQTTQoS          = 0
	defaultStatusIntervalMS = 5000

	defaultTopicBackground = "room/audio/bg"
	defaultTopicHint       = "room/audio/hint"
	defaultTopicPanic      = "room/audio/panic"
	defaultTopicStatus     = "room/audio/status"

	defaultAudioBasePath = "/var/lib/escapesound/audio"
	defaultVideoBasePath = "/var/lib/escapesound/video"

	defaultIPCSocketPath = "/tmp/escapesound.sock"
	defaultWebPort       = 8090
)

// volumeSendThreshold is the minimum actual-volume delta that triggers a new
// set-volume command to the backend. Smaller changes are held until the fade
// endpoint, which is always flushed exactly.
const volumeSendThreshold = 0.005

// mpvStartupTimeout bounds how long we wait for a freshly spawned player
// process to accept IPC connections before declaring the load failed.
const mpvStartupTimeout = 3 * time.Second

// mpvStopGrace is how long a stopping player gets between SIGTERM and SIGKILL.
const mpvStopGrace = 2 * time.Second
