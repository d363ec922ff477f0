package accesslog

import (
	"fmt"
	"io"
)

// Render prints each period with its start and end, recomputed and stored
// lengths, summary statistics and every reading. A period whose recomputed
// length differs from the stored one by more than tolerance seconds is
// marked DISCREPANCY. It returns the number of periods so marked.
func Render(w io.Writer, periods []Period, tolerance int) (int, error) {
	ew := &errWriter{w: w}
	flagged := 0

	for i, p := range periods {
		ew.printf("Access period %d\n", i+1)
		ew.printf("Started:  %s\n", timeOrUnknown(p, true))
		ew.printf("Stopped:  %s\n", timeOrUnknown(p, false))

		if p.HasTimes() {
			ew.printf("Length:   %d seconds (stored %d)", p.Seconds(), p.StoredSeconds)
			if d := p.Discrepancy(); abs(d) > tolerance {
				ew.printf(" DISCREPANCY %+d", d)
				flagged++
			}
			ew.printf("\n")
		} else {
			ew.printf("Length:   unknown (stored %d)\n", p.StoredSeconds)
		}

		if hi, ok := p.MaxTemperature(); ok {
			ew.printf("Max Temp: %.2f degrees C\n", hi)
		}
		if avg, ok := p.AverageHumidity(); ok {
			ew.printf("Hmdy Ave: %.2f %%\n", avg)
		}

		ew.printf("Readings: %d\n", len(p.Readings))
		for _, r := range p.Readings {
			ew.printf("  %s  %.2fc  %.2f%%\n", FormatTimestamp(r.Timestamp), r.Temperature, r.Humidity)
		}
		ew.printf("\n")
	}
	return flagged, ew.err
}

func timeOrUnknown(p Period, start bool) string {
	t := p.End
	if start {
		t = p.Start
	}
	if t.IsZero() {
		return "unknown"
	}
	return FormatTimestamp(t)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
