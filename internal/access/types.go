// Package access contains the pure access-period state machine.
// This package has NO external dependencies (no GPIO, MQTT, files, or time.Sleep).
// Time is always injectable via time.Time parameters.
package access

import "time"

// Tier is the warning level derived from how long an access has lasted.
type Tier string

const (
	TierNone  Tier = "NONE"
	TierGreen Tier = "GREEN"
	TierAmber Tier = "AMBER"
	TierRed   Tier = "RED"
)

// Tier boundaries in elapsed seconds.
const (
	AmberAfter = 5  // first elapsed second shown as AMBER
	RedAfter   = 10 // first elapsed second shown as RED
)

// TierFor classifies an elapsed-second count.
func TierFor(elapsed int) Tier {
	switch {
	case elapsed >= RedAfter:
		return TierRed
	case elapsed >= AmberAfter:
		return TierAmber
	default:
		return TierGreen
	}
}

// RGB is an indicator colour with 0..255 channels.
type RGB struct {
	R, G, B uint8
}

// Colour returns the muted indicator colour used for the LED matrix.
func (t Tier) Colour() RGB {
	switch t {
	case TierGreen:
		return RGB{0, 10, 0}
	case TierAmber:
		return RGB{10, 7, 0}
	case TierRed:
		return RGB{10, 0, 0}
	default:
		return RGB{}
	}
}

// Kind identifies the variant of a Record.
type Kind string

const (
	KindStarted Kind = "ACCESS_STARTED"
	KindReading Kind = "READING"
	KindStopped Kind = "ACCESS_STOPPED"
)

// Reading is a single environmental sample.
type Reading struct {
	Temperature float64 // degrees Celsius
	Humidity    float64 // relative humidity, percent
}

// Record is one entry of the access log.
type Record struct {
	Kind      Kind
	Timestamp time.Time
	// Reading is set for KindReading only.
	Reading Reading
	// Duration is the elapsed-second count, set for KindStopped only.
	Duration int
}

// Started returns an ACCESS_STARTED record.
func Started(at time.Time) Record {
	return Record{Kind: KindStarted, Timestamp: at}
}

// ReadingAt returns a READING record.
func ReadingAt(at time.Time, r Reading) Record {
	return Record{Kind: KindReading, Timestamp: at, Reading: r}
}

// Stopped returns an ACCESS_STOPPED record.
func Stopped(at time.Time, seconds int) Record {
	return Record{Kind: KindStopped, Timestamp: at, Duration: seconds}
}

// Counts tracks the number of each record kind emitted since startup.
type Counts struct {
	Started  int
	Stopped  int
	Readings int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}
