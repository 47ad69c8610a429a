// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// DefaultTopicPrefix is the root of every topic the daemon publishes to.
const DefaultTopicPrefix = "home/buttons"

// EventTopic returns the topic for edge events of one input.
func EventTopic(prefix, input string) string {
	return prefix + "/events/" + input
}

// SystemTopic returns the topic for system lifecycle events.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an edge event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Input InputPayload `json:"input"`
}

// InputPayload contains the edge event details.
type InputPayload struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Edge      string `json:"edge"`
	State     string `json:"state"`
}

// FormatPayload creates the JSON payload for an edge event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Input: InputPayload{
			Name:      event.Input,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Edge:      event.Edge.String(),
			State:     string(event.State),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
