// Package status provides a thread-safe status tracker for the access-logger daemon.
// It is read by the HTTP handlers and by the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/access-logger/internal/access"
)

// Config contains daemon configuration for display.
type Config struct {
	SampleMs    int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string // empty when MQTT is disabled
	HTTPPort    string
	LogPath     string
	LogFormat   string
	Sensor      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Active        bool
	Elapsed       int
	Tier          access.Tier
	HasReading    bool
	LastReading   access.Reading
	LastReadingAt time.Time
	Counts        access.Counts
	LinesWritten  int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Tier:      access.TierNone,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update copies the machine state and the number of log lines written.
// Called from runLoop after every button press and tick.
func (t *Tracker) Update(m *access.Machine, linesWritten int) {
	active, elapsed, tier, counts := m.Active(), m.Elapsed(), m.CurrentTier(), m.Counts()

	t.mu.Lock()
	t.snap.Active = active
	t.snap.Elapsed = elapsed
	t.snap.Tier = tier
	t.snap.Counts = counts
	t.snap.LinesWritten = linesWritten
	t.mu.Unlock()
}

// SetReading records the most recent sensor reading.
func (t *Tracker) SetReading(r access.Reading, at time.Time) {
	t.mu.Lock()
	t.snap.HasReading = true
	t.snap.LastReading = r
	t.snap.LastReadingAt = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
