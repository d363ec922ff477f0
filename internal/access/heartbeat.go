package access

import "time"

// Heartbeat decides when a periodic liveness event is due.
type Heartbeat struct {
	interval  time.Duration
	startTime time.Time
	last      time.Time
}

// NewHeartbeat creates a heartbeat timer. The startTime is used for
// calculating uptime. An interval <= 0 disables it.
func NewHeartbeat(interval time.Duration, startTime time.Time) *Heartbeat {
	return &Heartbeat{
		interval:  interval,
		startTime: startTime,
		last:      startTime,
	}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup).
func (h *Heartbeat) Check(now time.Time) (HeartbeatData, bool) {
	if h.interval <= 0 {
		return HeartbeatData{}, false
	}
	if now.Sub(h.last) < h.interval {
		return HeartbeatData{}, false
	}
	h.last = now
	return HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
	}, true
}
