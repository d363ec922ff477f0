// Package accesslog persists access records as comma-separated text lines and
// rebuilds access periods from such a log.
package accesslog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/access-logger/internal/access"
)

// Line keywords.
const (
	KeywordStarted = "ACCESS-STARTED"
	KeywordStopped = "ACCESS-STOPPED"
)

// Format selects how start and stop lines are written. Reading lines are the
// same in every format.
type Format string

const (
	// FormatCompact writes bare "ACCESS-STARTED" and "ACCESS-STOPPED,<n>"
	// lines, byte-compatible with logs from the prototype rig.
	FormatCompact Format = "compact"
	// FormatTimestamped adds the event time to start and stop lines.
	FormatTimestamped Format = "timestamped"
)

// ParseFormat validates a format name. Empty selects FormatCompact.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCompact:
		return FormatCompact, nil
	case FormatTimestamped:
		return FormatTimestamped, nil
	default:
		return "", fmt.Errorf("unknown log format %q", s)
	}
}

// timestampLayout parses the non-padded YYYY-M-D|H:M:S form.
const timestampLayout = "2006-1-2|15:4:5"

// FormatTimestamp renders t as YYYY-M-D|H:M:S without zero padding.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d|%d:%d:%d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// ParseTimestamp parses a YYYY-M-D|H:M:S timestamp. Components may or may
// not be zero padded. The log holds the device's wall clock with no zone, so
// the result carries those fields in UTC and must not be shifted to another
// zone for display.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// EncodeLine renders a record as one log line including the trailing newline.
func EncodeLine(rec access.Record, format Format) string {
	switch rec.Kind {
	case access.KindStarted:
		if format == FormatTimestamped {
			return KeywordStarted + "," + FormatTimestamp(rec.Timestamp) + "\n"
		}
		return KeywordStarted + "\n"
	case access.KindStopped:
		if format == FormatTimestamped {
			return fmt.Sprintf("%s,%s,%d\n", KeywordStopped, FormatTimestamp(rec.Timestamp), rec.Duration)
		}
		return fmt.Sprintf("%s,%d\n", KeywordStopped, rec.Duration)
	default:
		return fmt.Sprintf("%s,%.2f,%.2f\n",
			FormatTimestamp(rec.Timestamp), rec.Reading.Temperature, rec.Reading.Humidity)
	}
}

// errBadLine is wrapped by every DecodeLine failure.
var errBadLine = errors.New("bad log line")

// DecodeLine parses one log line in either format. A start or stop line
// without a timestamp decodes with a zero Timestamp.
func DecodeLine(line string) (access.Record, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	switch fields[0] {
	case KeywordStarted:
		switch len(fields) {
		case 1:
			return access.Started(time.Time{}), nil
		case 2:
			ts, err := ParseTimestamp(fields[1])
			if err != nil {
				return access.Record{}, fmt.Errorf("%w: %v", errBadLine, err)
			}
			return access.Started(ts), nil
		}
		return access.Record{}, fmt.Errorf("%w: %s expects at most 1 field, got %d", errBadLine, KeywordStarted, len(fields)-1)

	case KeywordStopped:
		var ts time.Time
		var countField string
		switch len(fields) {
		case 2:
			countField = fields[1]
		case 3:
			t, err := ParseTimestamp(fields[1])
			if err != nil {
				return access.Record{}, fmt.Errorf("%w: %v", errBadLine, err)
			}
			ts = t
			countField = fields[2]
		default:
			return access.Record{}, fmt.Errorf("%w: %s expects 1 or 2 fields, got %d", errBadLine, KeywordStopped, len(fields)-1)
		}
		n, err := strconv.Atoi(countField)
		if err != nil || n < 0 {
			return access.Record{}, fmt.Errorf("%w: invalid elapsed seconds %q", errBadLine, countField)
		}
		return access.Stopped(ts, n), nil
	}

	if len(fields) != 3 {
		return access.Record{}, fmt.Errorf("%w: reading expects 3 fields, got %d", errBadLine, len(fields))
	}
	ts, err := ParseTimestamp(fields[0])
	if err != nil {
		return access.Record{}, fmt.Errorf("%w: %v", errBadLine, err)
	}
	temp, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return access.Record{}, fmt.Errorf("%w: invalid temperature %q", errBadLine, fields[1])
	}
	hum, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return access.Record{}, fmt.Errorf("%w: invalid humidity %q", errBadLine, fields[2])
	}
	return access.ReadingAt(ts, access.Reading{Temperature: temp, Humidity: hum}), nil
}
