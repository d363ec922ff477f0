// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/access-logger/internal/access"
)

// TopicEvents is the MQTT topic for access records.
const TopicEvents = "access/logger/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "access/logger/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an access event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is an access record together with the machine state right after it
// was emitted.
type Event struct {
	Record  access.Record
	Tier    access.Tier
	Elapsed int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "BUTTON_C" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Access AccessPayload `json:"access"`
}

// AccessPayload contains the access event details.
type AccessPayload struct {
	Timestamp       string          `json:"timestamp"`
	Event           string          `json:"event"`
	Tier            string          `json:"tier"`
	ElapsedSeconds  int             `json:"elapsed_seconds"`
	Reading         *ReadingPayload `json:"reading,omitempty"`
	DurationSeconds *int            `json:"duration_seconds,omitempty"`
}

// ReadingPayload is a temperature/humidity pair.
type ReadingPayload struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// FormatPayload creates the JSON payload for an access event.
func FormatPayload(event Event) ([]byte, error) {
	p := AccessPayload{
		Timestamp:      event.Record.Timestamp.UTC().Format(time.RFC3339),
		Event:          string(event.Record.Kind),
		Tier:           string(event.Tier),
		ElapsedSeconds: event.Elapsed,
	}
	switch event.Record.Kind {
	case access.KindReading:
		p.Reading = &ReadingPayload{
			Temperature: event.Record.Reading.Temperature,
			Humidity:    event.Record.Reading.Humidity,
		}
	case access.KindStopped:
		d := event.Record.Duration
		p.DurationSeconds = &d
	}
	return json.Marshal(Payload{Access: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes if the
// connection drops without a clean disconnect.
func WillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{Event: "OFFLINE", Reason: "CONNECTION_LOST"},
	})
	return data
}
