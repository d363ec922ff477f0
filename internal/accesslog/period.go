package accesslog

import (
	"time"

	"github.com/sweeney/access-logger/internal/access"
)

// SampleInterval is the nominal time between readings. A reading taken at
// time t accounts for the second [t, t+SampleInterval).
const SampleInterval = time.Second

// TimedReading is a reading with the time it was taken.
type TimedReading struct {
	Timestamp time.Time
	access.Reading
}

// Period is one completed access rebuilt from the log.
type Period struct {
	Start    time.Time
	End      time.Time
	Readings []TimedReading
	// StoredSeconds is the elapsed count written on the stop line.
	StoredSeconds int
	// TimesFromLog is true when Start and End came from timestamped start and
	// stop lines rather than being derived from the readings.
	TimesFromLog bool
}

// HasTimes reports whether both the start and end time are known.
func (p Period) HasTimes() bool {
	return !p.Start.IsZero() && !p.End.IsZero()
}

// Seconds recomputes the period length from its start and end times,
// independently of StoredSeconds. Returns 0 when the times are unknown.
func (p Period) Seconds() int {
	if !p.HasTimes() {
		return 0
	}
	return int(p.End.Sub(p.Start) / time.Second)
}

// Discrepancy is the recomputed length minus the stored length, in seconds.
func (p Period) Discrepancy() int {
	return p.Seconds() - p.StoredSeconds
}

// MaxTemperature returns the highest temperature recorded, and false when
// the period has no readings.
func (p Period) MaxTemperature() (float64, bool) {
	if len(p.Readings) == 0 {
		return 0, false
	}
	hi := p.Readings[0].Temperature
	for _, r := range p.Readings[1:] {
		if r.Temperature > hi {
			hi = r.Temperature
		}
	}
	return hi, true
}

// AverageHumidity returns the mean humidity, and false when the period has
// no readings.
func (p Period) AverageHumidity() (float64, bool) {
	if len(p.Readings) == 0 {
		return 0, false
	}
	var total float64
	for _, r := range p.Readings {
		total += r.Humidity
	}
	return total / float64(len(p.Readings)), true
}

// openPeriod accumulates records between a start and a stop line.
type openPeriod struct {
	start    time.Time
	line     int
	readings []TimedReading
}

func (o *openPeriod) close(stop access.Record) Period {
	p := Period{
		Start:         o.start,
		End:           stop.Timestamp,
		Readings:      o.readings,
		StoredSeconds: stop.Duration,
	}
	if !p.Start.IsZero() && !p.End.IsZero() {
		p.TimesFromLog = true
		return p
	}
	// Compact logs only carry times on reading lines.
	if len(o.readings) > 0 {
		if p.Start.IsZero() {
			p.Start = o.readings[0].Timestamp
		}
		if p.End.IsZero() {
			p.End = o.readings[len(o.readings)-1].Timestamp.Add(SampleInterval)
		}
	}
	return p
}
