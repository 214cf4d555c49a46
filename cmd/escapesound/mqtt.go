package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ============================================================================
// MQTT Gateway
// ============================================================================
// The room controller drives playback over three MQTT topics: background,
// hint, and panic. Payloads are validated here and translated into control
// events; malformed payloads are logged and dropped so they never reach the
// scheduling loop.
//
// A retained status message is republished on a fixed interval so the room
// dashboard can tell a silent installation from a dead one.
// ============================================================================

// topicKind classifies a subscribed topic.
type topicKind int

const (
	topicBackground topicKind = iota
	topicHint
	topicPanic
)

// mqttPayload is the decoded command payload. Payloads are either a JSON
// object {"cmd": ..., "file": ..., "volume": ...} or a bare string
// "cmd [file]" for hand-typed testing with mosquitto_pub.
type mqttPayload struct {
	Cmd    string   `json:"cmd"`
	File   string   `json:"file,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
}

// parseMQTTPayload decodes a raw topic payload.
func parseMQTTPayload(b []byte) (mqttPayload, error) {
	text := strings.TrimSpace(string(b))

	if strings.HasPrefix(text, "{") {
		var p mqttPayload
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return mqttPayload{}, fmt.Errorf("decode payload json: %w", err)
		}
		p.Cmd = strings.ToLower(strings.TrimSpace(p.Cmd))
		return p, nil
	}

	fields := strings.Fields(text)
	p := mqttPayload{}
	if len(fields) > 0 {
		p.Cmd = strings.ToLower(fields[0])
	}
	if len(fields) > 1 {
		p.File = fields[1]
	}
	return p, nil
}

// eventForTopic maps a decoded payload on a given topic to a control event.
func eventForTopic(kind topicKind, p mqttPayload) (Event, error) {
	switch kind {
	case topicBackground:
		switch p.Cmd {
		case "start", "play":
			return BackgroundPlay{File: p.File}, nil
		case "switch":
			return BackgroundSwitch{File: p.File}, nil
		case "stop":
			return BackgroundStop{}, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, p.Cmd)
		}

	case topicHint:
		switch p.Cmd {
		case "play", "start":
			return HintPlay{File: p.File, Volume: p.Volume}, nil
		case "stop":
			return HintStop{}, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, p.Cmd)
		}

	case topicPanic:
		// Panic silences everything no matter what the payload says.
		return StopAll{}, nil

	default:
		return nil, fmt.Errorf("%w: unknown topic kind", ErrUnknownCommand)
	}
}

// runMQTTGateway connects to the broker, subscribes the control topics, and
// publishes the retained status heartbeat until ctx is canceled.
//
// The client auto-reconnects and resubscribes via OnConnect, so a broker
// restart mid-game heals without operator action.
func runMQTTGateway(ctx context.Context, cfg MQTTConfig, exts mediaExtensions, events chan<- Event, logger *slog.Logger) error {
	qos := byte(cfg.QoS)

	topics := map[string]topicKind{
		cfg.Topics.Background: topicBackground,
		cfg.Topics.Hint:       topicHint,
		cfg.Topics.Panic:      topicPanic,
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		kind, ok := topics[msg.Topic()]
		if !ok {
			logger.Warn("message on unexpected topic", "topic", msg.Topic())
			return
		}

		p, err := parseMQTTPayload(msg.Payload())
		if err != nil {
			logger.Warn("rejected mqtt payload", "topic", msg.Topic(), "error", err)
			return
		}

		ev, err := eventForTopic(kind, p)
		if err != nil {
			logger.Warn("rejected mqtt command", "topic", msg.Topic(), "cmd", p.Cmd, "error", err)
			return
		}

		if err := validateControlEvent(ev, exts); err != nil {
			logger.Warn("rejected mqtt command", "topic", msg.Topic(), "cmd", p.Cmd, "file", p.File, "error", err)
			return
		}

		select {
		case events <- ev:
			logger.Debug("mqtt command accepted", "topic", msg.Topic(), "cmd", p.Cmd, "file", p.File)
		case <-ctx.Done():
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetBinaryWill(cfg.Topics.Status, statusPayload("offline"), qos, true)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker)
		for topic := range topics {
			if token := c.Subscribe(topic, qos, handler); token.Wait() && token.Error() != nil {
				logger.Error("mqtt subscribe failed", "topic", topic, "error", token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)

	// SetConnectRetry makes Connect() keep trying in the background, so a
	// daemon started before the broker comes up just waits for it. The
	// token only completes once a broker is reached, so poll it with a
	// timeout to stay responsive to shutdown while waiting.
	token := client.Connect()
	for !token.WaitTimeout(250 * time.Millisecond) {
		select {
		case <-ctx.Done():
			client.Disconnect(0)
			logger.Info("mqtt gateway stopped before broker connect")
			return nil
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	interval := time.Duration(cfg.StatusIntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publishStatus := func(status string) {
		if !client.IsConnectionOpen() {
			return
		}
		token := client.Publish(cfg.Topics.Status, qos, true, statusPayload(status))
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Warn("mqtt status publish failed", "error", err)
		}
	}

	publishStatus("online")

	for {
		select {
		case <-ctx.Done():
			publishStatus("offline")
			client.Disconnect(250)
			logger.Info("mqtt gateway stopped")
			return nil

		case <-ticker.C:
			publishStatus("online")
		}
	}
}

// statusPayload builds the retained heartbeat payload.
func statusPayload(status string) []byte {
	b, _ := json.Marshal(map[string]string{
		"status": status,
		"ts":     time.Now().UTC().Format(time.RFC3339),
	})
	return b
}
