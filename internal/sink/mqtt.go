package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/demensdeum/coverseer/internal/infrastructure/config"
	"github.com/demensdeum/coverseer/internal/infrastructure/mqtt"
)

// MQTTPublisher is the subset of the MQTT client the sink needs.
// This allows mocking in tests and flexibility in implementation.
type MQTTPublisher interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// MQTTSink relays supervision events to an MQTT broker as JSON
// payloads. Lifecycle events land on {prefix}/event/{type} and, when
// output mirroring is enabled, captured lines land on
// {prefix}/output/{stream}.
//
// The broker connection is owned by the caller and shared with the
// control subscription, so Close does not disconnect it.
type MQTTSink struct {
	client        MQTTPublisher
	topics        mqtt.Topics
	qos           byte
	publishOutput bool
}

// NewMQTTSink creates a sink publishing through the given client.
func NewMQTTSink(client MQTTPublisher, topics mqtt.Topics, cfg config.MQTTConfig) *MQTTSink {
	return &MQTTSink{
		client:        client,
		topics:        topics,
		qos:           byte(cfg.QoS),
		publishOutput: cfg.PublishOutput,
	}
}

// Write publishes the event to its topic. Output lines are dropped
// unless mirroring is enabled. Errors surface to the caller, which is
// expected to absorb them.
func (s *MQTTSink) Write(_ context.Context, ev Event) error {
	topic, ok := s.topicFor(ev)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("mqtt sink: marshal %s event: %w", ev.Type, err)
	}

	return s.client.Publish(topic, payload, s.qos, false)
}

// Close releases nothing. The shared broker connection outlives the
// sink.
func (s *MQTTSink) Close() error {
	return nil
}

// topicFor maps an event to its publish topic. The second return is
// false for events this sink does not relay.
func (s *MQTTSink) topicFor(ev Event) (string, bool) {
	switch ev.Type {
	case EventStdout:
		if !s.publishOutput {
			return "", false
		}
		return s.topics.Output("stdout"), true
	case EventStderr:
		if !s.publishOutput {
			return "", false
		}
		return s.topics.Output("stderr"), true
	case EventStart, EventExit, EventVerdict, EventRestart, EventState:
		return s.topics.Event(string(ev.Type)), true
	default:
		return "", false
	}
}
