package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the escapesound daemon.
//
// This is intentionally user-facing and stable-ish. Keep defaults and
// validation centralized so the rest of the code can assume a well-formed
// config.
//
// Design goals:
// - Make the config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is
//   awkward (systemd drop-ins, quick tests on the bench).
type Config struct {
	// MQTT gateway configuration
	MQTT MQTTConfig `yaml:"mqtt"`

	// Audio channel configuration (volumes, fades, media location)
	Audio AudioConfig `yaml:"audio"`

	// Video playback configuration
	Video VideoConfig `yaml:"video"`

	// Scheduling engine configuration
	Engine EngineFileConfig `yaml:"engine"`

	// IPC configuration (used by escapesound-ctl)
	IPC IPCConfig `yaml:"ipc"`

	// Web server configuration
	Web WebConfig `yaml:"web"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type MQTTConfig struct {
	Broker           string       `yaml:"broker"`
	ClientID         string       `yaml:"client_id"`
	QoS              int          `yaml:"qos"`
	StatusIntervalMS int          `yaml:"status_interval_ms"`
	Topics           TopicsConfig `yaml:"topics"`
}

type TopicsConfig struct {
	Background string `yaml:"background"`
	Hint       string `yaml:"hint"`
	Panic      string `yaml:"panic"`
	Status     string `yaml:"status"`
}

type AudioConfig struct {
	BasePath string `yaml:"base_path"`

	// Linear gains in [0, 1].
	BGVolume   float64 `yaml:"bg_volume"`
	HintVolume float64 `yaml:"hint_volume"`
	DuckVolume float64 `yaml:"duck_volume"`

	// Fade durations in milliseconds.
	BGFadeMS      int `yaml:"bg_fade_ms"`
	DuckFadeMS    int `yaml:"duck_fade_ms"`
	RestoreFadeMS int `yaml:"restore_fade_ms"`

	Extensions []string `yaml:"extensions,omitempty"`
}

type VideoConfig struct {
	BasePath   string   `yaml:"base_path"`
	Mode       string   `yaml:"mode"` // auto | drm | x11
	Connector  string   `yaml:"connector,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`

	// SoftwareVolume keeps video items attenuable so they join the
	// fade/duck behavior of audio items. See MPVBackendConfig.
	SoftwareVolume bool `yaml:"software_volume"`

	ExtraArgs []string `yaml:"extra_args,omitempty"`
}

type EngineFileConfig struct {
	UpdateHz int `yaml:"update_hz"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type WebConfig struct {
	Port          int  `yaml:"port"`
	AllowShutdown bool `yaml:"allow_shutdown"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		MQTT: MQTTConfig{
			Broker:           defaultMQTTBroker,
			ClientID:         defaultMQTTClientID,
			QoS:              defaultMQTTQoS,
			StatusIntervalMS: defaultStatusIntervalMS,
			Topics: TopicsConfig{
				Background: defaultTopicBackground,
				Hint:       defaultTopicHint,
				Panic:      defaultTopicPanic,
				Status:     defaultTopicStatus,
			},
		},
		Audio: AudioConfig{
			BasePath:      defaultAudioBasePath,
			BGVolume:      defaultBGVolume,
			HintVolume:    defaultHintVolume,
			DuckVolume:    defaultDuckVolume,
			BGFadeMS:      defaultBGFadeMS,
			DuckFadeMS:    defaultDuckFadeMS,
			RestoreFadeMS: defaultRestoreFadeMS,
			Extensions:    []string{".mp3", ".ogg", ".wav", ".flac"},
		},
		Video: VideoConfig{
			BasePath:       defaultVideoBasePath,
			Mode:           string(VideoModeAuto),
			Extensions:     []string{".mp4", ".mkv", ".webm", ".mov"},
			SoftwareVolume: true,
		},
		Engine: EngineFileConfig{
			UpdateHz: defaultUpdateHz,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		Web: WebConfig{
			Port:          defaultWebPort,
			AllowShutdown: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are
	// allowed after the document). A second document decodes with some
	// error other than EOF under KnownFields, so only EOF is clean.
	if err := dec.Decode(new(struct{})); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if the pointer
// is non-nil (even when the value is a "zero value").
type FlagOverrides struct {
	MQTTBroker   *string
	MQTTClientID *string

	AudioBasePath *string
	VideoBasePath *string

	UpdateHz *int

	IPCSocketPath *string
	WebPort       *int

	LogLevel *string
}

// Apply merges the overrides into cfg. Nil pointers are ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.MQTTBroker != nil {
		cfg.MQTT.Broker = *o.MQTTBroker
	}
	if o.MQTTClientID != nil {
		cfg.MQTT.ClientID = *o.MQTTClientID
	}

	if o.AudioBasePath != nil {
		cfg.Audio.BasePath = *o.AudioBasePath
	}
	if o.VideoBasePath != nil {
		cfg.Video.BasePath = *o.VideoBasePath
	}

	if o.UpdateHz != nil {
		cfg.Engine.UpdateHz = *o.UpdateHz
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.WebPort != nil {
		cfg.Web.Port = *o.WebPort
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// MQTT
	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker must not be empty")
	}
	if c.MQTT.ClientID == "" {
		return errors.New("mqtt.client_id must not be empty")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errors.New("mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.StatusIntervalMS <= 0 {
		return errors.New("mqtt.status_interval_ms must be > 0")
	}
	for name, topic := range map[string]string{
		"mqtt.topics.background": c.MQTT.Topics.Background,
		"mqtt.topics.hint":       c.MQTT.Topics.Hint,
		"mqtt.topics.panic":      c.MQTT.Topics.Panic,
		"mqtt.topics.status":     c.MQTT.Topics.Status,
	} {
		if topic == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	// Audio
	if c.Audio.BasePath == "" {
		return errors.New("audio.base_path must not be empty")
	}
	for name, v := range map[string]float64{
		"audio.bg_volume":   c.Audio.BGVolume,
		"audio.hint_volume": c.Audio.HintVolume,
		"audio.duck_volume": c.Audio.DuckVolume,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	for name, ms := range map[string]int{
		"audio.bg_fade_ms":      c.Audio.BGFadeMS,
		"audio.duck_fade_ms":    c.Audio.DuckFadeMS,
		"audio.restore_fade_ms": c.Audio.RestoreFadeMS,
	} {
		if ms < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	if len(c.Audio.Extensions) == 0 {
		return errors.New("audio.extensions must not be empty")
	}
	if err := validateExtensions("audio.extensions", c.Audio.Extensions); err != nil {
		return err
	}

	// Video
	if c.Video.BasePath == "" {
		return errors.New("video.base_path must not be empty")
	}
	switch VideoMode(c.Video.Mode) {
	case VideoModeAuto, VideoModeDRM, VideoModeX11:
	default:
		return fmt.Errorf("video.mode must be %q, %q, or %q", VideoModeAuto, VideoModeDRM, VideoModeX11)
	}
	if err := validateExtensions("video.extensions", c.Video.Extensions); err != nil {
		return err
	}

	// Engine
	if c.Engine.UpdateHz <= 0 || c.Engine.UpdateHz > 1000 {
		return errors.New("engine.update_hz must be between 1 and 1000")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Web
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return errors.New("web.port must be between 1 and 65535")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

func validateExtensions(name string, exts []string) error {
	for i, ext := range exts {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("%s[%d]: %q must start with a dot", name, i, ext)
		}
	}
	return nil
}

// ToEngineConfig converts the file config into the internal engine config.
func (c *Config) ToEngineConfig() EngineConfig {
	return EngineConfig{
		BGVolume:   c.Audio.BGVolume,
		HintVolume: c.Audio.HintVolume,
		DuckVolume: c.Audio.DuckVolume,

		BGFade:      time.Duration(c.Audio.BGFadeMS) * time.Millisecond,
		DuckFade:    time.Duration(c.Audio.DuckFadeMS) * time.Millisecond,
		RestoreFade: time.Duration(c.Audio.RestoreFadeMS) * time.Millisecond,

		Extensions: c.MediaExtensions(),
	}
}

// ToMPVConfig converts the file config into the mpv backend config.
func (c *Config) ToMPVConfig() MPVBackendConfig {
	return MPVBackendConfig{
		AudioBasePath:  ExpandPath(c.Audio.BasePath),
		VideoBasePath:  ExpandPath(c.Video.BasePath),
		Mode:           VideoMode(c.Video.Mode),
		HDMIConnector:  c.Video.Connector,
		SoftwareVolume: c.Video.SoftwareVolume,
		ExtraVideoArgs: c.Video.ExtraArgs,
	}
}

// MediaExtensions builds the extension classifier from the configured lists.
func (c *Config) MediaExtensions() mediaExtensions {
	return newMediaExtensions(c.Audio.Extensions, c.Video.Extensions)
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
