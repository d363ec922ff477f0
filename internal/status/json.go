package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	Active         bool         `json:"active"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
	Tier           string       `json:"tier"`
	Colour         ColourJSON   `json:"colour"`
	LastReading    *ReadingJSON `json:"last_reading,omitempty"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"event_counts"`
	Log            LogJSON      `json:"log"`
	Config         ConfigJSON   `json:"config"`
}

// ColourJSON is the indicator colour for the current tier.
type ColourJSON struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ReadingJSON is the most recent sensor reading.
type ReadingJSON struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of record counts.
type CountsJSON struct {
	Started  int `json:"started"`
	Stopped  int `json:"stopped"`
	Readings int `json:"readings"`
}

// LogJSON describes the access log file.
type LogJSON struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Lines  int    `json:"lines"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs    int64  `json:"sample_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	Sensor      string `json:"sensor"`
}

func buildInner(snap Snapshot) StatusInner {
	tier := snap.Tier
	if tier == "" {
		tier = "NONE"
	}
	c := tier.Colour()

	inner := StatusInner{
		Active:         snap.Active,
		ElapsedSeconds: snap.Elapsed,
		Tier:           string(tier),
		Colour:         ColourJSON{R: c.R, G: c.G, B: c.B},
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Started:  snap.Counts.Started,
			Stopped:  snap.Counts.Stopped,
			Readings: snap.Counts.Readings,
		},
		Log: LogJSON{
			Path:   snap.Config.LogPath,
			Format: snap.Config.LogFormat,
			Lines:  snap.LinesWritten,
		},
		Config: ConfigJSON{
			SampleMs:    snap.Config.SampleMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			Sensor:      snap.Config.Sensor,
		},
	}

	if snap.HasReading {
		inner.LastReading = &ReadingJSON{
			Temperature: snap.LastReading.Temperature,
			Humidity:    snap.LastReading.Humidity,
			Timestamp:   snap.LastReadingAt.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
