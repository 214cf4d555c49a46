package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

const defaultConfigPath = "/etc/escapesound/config.yaml"

func printVersion() {
	fmt.Printf("escapesound v%s\n", version)
	fmt.Println("Two-channel audio/video playback daemon for escape room installations")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  escapesound [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that plays background ambience and one-shot hints for a physical")
	fmt.Println("  escape room, driven over MQTT by the room controller. Background audio")
	fmt.Println("  ducks automatically while a hint plays and all level changes are smooth")
	fmt.Println("  fades; the panic topic silences everything at once.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Printf("        Path to YAML config file (default %q when present)\n", defaultConfigPath)
	fmt.Println()
	fmt.Println("  -mqtt-broker string")
	fmt.Printf("        MQTT broker URL (default %q)\n", defaultMQTTBroker)
	fmt.Println()
	fmt.Println("  -mqtt-client-id string")
	fmt.Printf("        MQTT client identifier (default %q)\n", defaultMQTTClientID)
	fmt.Println()
	fmt.Println("  -audio-base string")
	fmt.Printf("        Base directory for audio files (default %q)\n", defaultAudioBasePath)
	fmt.Println()
	fmt.Println("  -video-base string")
	fmt.Printf("        Base directory for video files (default %q)\n", defaultVideoBasePath)
	fmt.Println()
	fmt.Println("  -update-hz int")
	fmt.Printf("        Scheduling loop frequency in Hz (default %d)\n", defaultUpdateHz)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -web-port int")
	fmt.Printf("        Web/WS listener port (default %d)\n", defaultWebPort)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with a config file")
	fmt.Println("  escapesound -config /etc/escapesound/config.yaml")
	fmt.Println()
	fmt.Println("  # Bench test against a local broker with media in the working tree")
	fmt.Println("  escapesound -mqtt-broker tcp://127.0.0.1:1883 -audio-base ./media/audio -video-base ./media/video")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires mpv on PATH for playback")
	fmt.Println("  - The daemon keeps retrying the broker connection, so it can start")
	fmt.Println("    before the broker does")
}

func main() {
	// Check for version/help flags early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		mqttBroker   = flag.String("mqtt-broker", defaultMQTTBroker, "MQTT broker URL")
		mqttClientID = flag.String("mqtt-client-id", defaultMQTTClientID, "MQTT client identifier")
		audioBase    = flag.String("audio-base", defaultAudioBasePath, "Base directory for audio files")
		videoBase    = flag.String("video-base", defaultVideoBasePath, "Base directory for video files")
		updateHz     = flag.Int("update-hz", defaultUpdateHz, "Scheduling loop frequency in Hz")
		ipcSocket    = flag.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC")
		webPort      = flag.Int("web-port", defaultWebPort, "Web/WS listener port")
		logLevelStr  = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion  = flag.Bool("version", false, "Print version and exit")
		showHelp     = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Config file first (explicit path must load; the default path is
	// optional), then flag overrides on top.
	cfg := DefaultConfig()
	switch {
	case *configPath != "":
		var err error
		cfg, err = LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		if _, err := os.Stat(defaultConfigPath); err == nil {
			var loadErr error
			cfg, loadErr = LoadConfigFile(defaultConfigPath)
			if loadErr != nil {
				fmt.Fprintln(os.Stderr, "error:", loadErr)
				os.Exit(1)
			}
		}
	}

	// Only apply overrides for flags the user actually set.
	overrides := FlagOverrides{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mqtt-broker":
			overrides.MQTTBroker = mqttBroker
		case "mqtt-client-id":
			overrides.MQTTClientID = mqttClientID
		case "audio-base":
			overrides.AudioBasePath = audioBase
		case "video-base":
			overrides.VideoBasePath = videoBase
		case "update-hz":
			overrides.UpdateHz = updateHz
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocket
		case "web-port":
			overrides.WebPort = webPort
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	engineCfg := cfg.ToEngineConfig()
	exts := engineCfg.Extensions

	backend := NewMPVBackend(cfg.ToMPVConfig(), logger)
	defer backend.Close()

	// Central event bus: gateway commands and worker observations all flow
	// through here into the single scheduling loop.
	events := make(chan Event, 128)
	broadcasts := make(chan StateBroadcast, 256)

	workers := map[ChannelKind]*channelWorker{
		ChannelBackground: newChannelWorker(ChannelBackground, backend, events, logger),
		ChannelHint:       newChannelWorker(ChannelHint, backend, events, logger),
	}

	state := newEngineState(engineCfg)

	stateServer := NewStateServer(logger, events, HubConfig{})
	mux := newWebMux(cfg.Web, exts, events, logger)
	stateServer.Register(mux, "/ws")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting escapesound",
		"version", version,
		"mqtt_broker", cfg.MQTT.Broker,
		"audio_base", cfg.Audio.BasePath,
		"video_base", cfg.Video.BasePath,
		"update_hz", cfg.Engine.UpdateHz,
		"ipc_socket", cfg.IPC.SocketPath,
		"web_port", cfg.Web.Port)

	g, ctx := errgroup.WithContext(ctx)

	for _, w := range workers {
		w := w
		g.Go(func() error {
			w.run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		stateServer.Hub().Run(ctx)
		return nil
	})

	g.Go(func() error {
		RunBroadcaster(ctx, stateServer.Hub(), broadcasts, logger)
		return nil
	})

	g.Go(func() error {
		runDaemon(ctx, events, workers, engineCfg, state, cfg.Engine.UpdateHz, broadcasts, logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, exts, events, logger)
	})

	g.Go(func() error {
		return runWebServer(ctx, cfg.Web.Port, mux, logger)
	})

	g.Go(func() error {
		return runMQTTGateway(ctx, cfg.MQTT, exts, events, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("escapesound stopped")
}
