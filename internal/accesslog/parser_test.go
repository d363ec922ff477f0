package accesslog

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/access-logger/internal/access"
)

func parse(t *testing.T, log string, opts ParseOptions) *Result {
	t.Helper()
	res, err := Reconstruct(strings.NewReader(log), opts)
	require.NoError(t, err)
	return res
}

func TestReconstructRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_data.csv")
	s, err := Open(path, FormatCompact)
	require.NoError(t, err)

	at := time.Date(2019, 3, 5, 10, 0, 0, 0, time.UTC)
	m := access.NewMachine()
	emit := func(rec access.Record, ok bool) {
		if ok {
			require.NoError(t, s.Append(rec))
		}
	}
	emit(m.Start(at))
	for i := 0; i < 3; i++ {
		emit(m.Tick(access.Reading{Temperature: 21, Humidity: 45.5}, at.Add(time.Duration(i)*time.Second)))
	}
	emit(m.Stop(at.Add(3 * time.Second)))
	require.NoError(t, s.Close())

	res, err := ReconstructFile(path, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Lines)
	assert.Empty(t, res.Anomalies)
	require.Len(t, res.Periods, 1)

	p := res.Periods[0]
	assert.Len(t, p.Readings, 3)
	assert.Equal(t, 3, p.StoredSeconds)
	assert.Equal(t, 3, p.Seconds())
	assert.Equal(t, 0, p.Discrepancy())
	assert.False(t, p.TimesFromLog)
	assert.True(t, at.Equal(p.Start))
	assert.True(t, at.Add(3*time.Second).Equal(p.End))
}

func TestReconstructTimestampedFormat(t *testing.T) {
	log := "ACCESS-STARTED,2019-3-5|10:0:0\n" +
		"2019-3-5|10:0:1,20.00,50.00\n" +
		"2019-3-5|10:0:2,22.00,52.00\n" +
		"ACCESS-STOPPED,2019-3-5|10:0:4,2\n"

	res := parse(t, log, ParseOptions{})
	require.Len(t, res.Periods, 1)

	p := res.Periods[0]
	assert.True(t, p.TimesFromLog)
	assert.Equal(t, 4, p.Seconds())
	assert.Equal(t, 2, p.StoredSeconds)
	assert.Equal(t, 2, p.Discrepancy())

	hi, ok := p.MaxTemperature()
	require.True(t, ok)
	assert.Equal(t, 22.0, hi)
	avg, ok := p.AverageHumidity()
	require.True(t, ok)
	assert.InDelta(t, 51.0, avg, 1e-9)
}

func TestReconstructDoubleStartKeepsSecond(t *testing.T) {
	log := "ACCESS-STARTED\n" +
		"2019-3-5|10:0:0,20.00,50.00\n" +
		"ACCESS-STARTED\n" +
		"2019-3-5|10:1:0,21.00,51.00\n" +
		"2019-3-5|10:1:1,21.00,51.00\n" +
		"ACCESS-STOPPED,2\n"

	res := parse(t, log, ParseOptions{})
	require.Len(t, res.Periods, 1)
	assert.Len(t, res.Periods[0].Readings, 2)
	assert.Equal(t, 2, res.Periods[0].StoredSeconds)

	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyOrphanStart, res.Anomalies[0].Kind)
	assert.Equal(t, 3, res.Anomalies[0].Line)
}

func TestReconstructUnterminatedPeriodDropped(t *testing.T) {
	log := "ACCESS-STARTED\n" +
		"2019-3-5|10:0:0,20.00,50.00\n" +
		"ACCESS-STOPPED,1\n" +
		"ACCESS-STARTED\n" +
		"2019-3-5|10:5:0,20.00,50.00\n" +
		"2019-3-5|10:5:1,20.00,50.00\n"

	res := parse(t, log, ParseOptions{})
	require.Len(t, res.Periods, 1)
	assert.Equal(t, 1, res.Periods[0].StoredSeconds)

	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyUnterminated, res.Anomalies[0].Kind)
}

func TestReconstructOnlyDanglingSpan(t *testing.T) {
	res := parse(t, "ACCESS-STARTED\n2019-3-5|10:0:0,20.00,50.00\n", ParseOptions{})
	assert.Empty(t, res.Periods)
}

func TestReconstructStrayRecordsDiscarded(t *testing.T) {
	log := "2019-3-5|9:59:59,20.00,50.00\n" +
		"ACCESS-STOPPED,4\n" +
		"ACCESS-STARTED\n" +
		"2019-3-5|10:0:0,20.00,50.00\n" +
		"ACCESS-STOPPED,1\n"

	res := parse(t, log, ParseOptions{})
	require.Len(t, res.Periods, 1)
	assert.Len(t, res.Periods[0].Readings, 1)

	var kinds []AnomalyKind
	for _, a := range res.Anomalies {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []AnomalyKind{AnomalyStrayReading, AnomalyStrayStop}, kinds)
}

func TestReconstructSkipsBadAndBlankLines(t *testing.T) {
	log := "ACCESS-STARTED\n" +
		"\n" +
		"garbage\n" +
		"2019-3-5|10:0:0,20.00,50.00\n" +
		"ACCESS-STOPPED,1\n"

	res := parse(t, log, ParseOptions{})
	require.Len(t, res.Periods, 1)
	assert.Equal(t, 4, res.Lines)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyBadLine, res.Anomalies[0].Kind)
	assert.Equal(t, 3, res.Anomalies[0].Line)
}

func TestReconstructSkipsOverlongLine(t *testing.T) {
	log := "ACCESS-STARTED\n" +
		"2019-3-5|10:0:0,20.00,50.00\n" +
		"ACCESS-STOPPED,1\n" +
		strings.Repeat("x", 70*1024) + "\n" +
		"ACCESS-STARTED\n" +
		"2019-3-5|11:0:0,20.00,50.00\n" +
		"ACCESS-STOPPED,1\n"

	res := parse(t, log, ParseOptions{})
	require.Len(t, res.Periods, 2)
	assert.Equal(t, 7, res.Lines)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyBadLine, res.Anomalies[0].Kind)
	assert.Equal(t, 4, res.Anomalies[0].Line)
}

func TestReconstructOverlongLastLine(t *testing.T) {
	log := "ACCESS-STARTED\n" +
		"ACCESS-STOPPED,0\n" +
		strings.Repeat("y", 10*1024)

	res := parse(t, log, ParseOptions{})
	require.Len(t, res.Periods, 1)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, 3, res.Anomalies[0].Line)

	_, err := Reconstruct(strings.NewReader(log), ParseOptions{Strict: true})
	assert.ErrorIs(t, err, ErrMalformedLog)
}

func TestReconstructCRLF(t *testing.T) {
	res := parse(t, "ACCESS-STARTED\r\n2019-3-5|10:0:0,20.00,50.00\r\nACCESS-STOPPED,1\r\n", ParseOptions{})
	require.Len(t, res.Periods, 1)
	assert.Empty(t, res.Anomalies)
	assert.Len(t, res.Periods[0].Readings, 1)
}

func TestReconstructPeriodsInStopOrder(t *testing.T) {
	log := "ACCESS-STARTED\n" +
		"2019-3-5|10:0:0,20.00,50.00\n" +
		"ACCESS-STOPPED,1\n" +
		"ACCESS-STARTED\n" +
		"2019-3-5|11:0:0,20.00,50.00\n" +
		"2019-3-5|11:0:1,20.00,50.00\n" +
		"ACCESS-STOPPED,2\n"

	res := parse(t, log, ParseOptions{})
	require.Len(t, res.Periods, 2)
	assert.Equal(t, 1, res.Periods[0].StoredSeconds)
	assert.Equal(t, 2, res.Periods[1].StoredSeconds)
}

func TestReconstructNoReadingsHasUnknownTimes(t *testing.T) {
	res := parse(t, "ACCESS-STARTED\nACCESS-STOPPED,0\n", ParseOptions{})
	require.Len(t, res.Periods, 1)

	p := res.Periods[0]
	assert.False(t, p.HasTimes())
	assert.Equal(t, 0, p.Seconds())
	_, ok := p.MaxTemperature()
	assert.False(t, ok)
}

func TestReconstructStrict(t *testing.T) {
	log := "ACCESS-STARTED\nACCESS-STARTED\nACCESS-STOPPED,0\n"

	res, err := Reconstruct(strings.NewReader(log), ParseOptions{Strict: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedLog)

	var mle *MalformedLogError
	require.ErrorAs(t, err, &mle)
	assert.Equal(t, AnomalyOrphanStart, mle.Anomaly.Kind)
	assert.Equal(t, 2, mle.Anomaly.Line)
	assert.Empty(t, res.Periods)
}

func TestReconstructStrictAcceptsCleanLog(t *testing.T) {
	log := "ACCESS-STARTED\n2019-3-5|10:0:0,20.00,50.00\nACCESS-STOPPED,1\n"

	res, err := Reconstruct(strings.NewReader(log), ParseOptions{Strict: true})
	require.NoError(t, err)
	assert.Len(t, res.Periods, 1)
}

func TestReconstructFileMissing(t *testing.T) {
	_, err := ReconstructFile(filepath.Join(t.TempDir(), "nope.csv"), ParseOptions{})
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	log := "ACCESS-STARTED,2019-3-5|10:0:0\n" +
		"2019-3-5|10:0:0,20.00,50.00\n" +
		"2019-3-5|10:0:1,24.50,40.00\n" +
		"ACCESS-STOPPED,2019-3-5|10:0:2,2\n" +
		"ACCESS-STARTED,2019-3-5|11:0:0\n" +
		"2019-3-5|11:0:0,20.00,50.00\n" +
		"ACCESS-STOPPED,2019-3-5|11:0:5,1\n"
	res := parse(t, log, ParseOptions{})

	var buf bytes.Buffer
	flagged, err := Render(&buf, res.Periods, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	out := buf.String()
	assert.Contains(t, out, "Started:  2019-3-5|10:0:0")
	assert.Contains(t, out, "Stopped:  2019-3-5|10:0:2")
	assert.Contains(t, out, "Length:   2 seconds (stored 2)\n")
	assert.Contains(t, out, "Length:   5 seconds (stored 1) DISCREPANCY +4")
	assert.Contains(t, out, "Max Temp: 24.50 degrees C")
	assert.Contains(t, out, "Hmdy Ave: 45.00 %")
	assert.Contains(t, out, "  2019-3-5|10:0:1  24.50c  40.00%")

	// A wider tolerance hides the mismatch.
	buf.Reset()
	flagged, err = Render(&buf, res.Periods, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
	assert.NotContains(t, buf.String(), "DISCREPANCY")
}

func TestRenderUnknownTimes(t *testing.T) {
	res := parse(t, "ACCESS-STARTED\nACCESS-STOPPED,0\n", ParseOptions{})

	var buf bytes.Buffer
	flagged, err := Render(&buf, res.Periods, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
	assert.Contains(t, buf.String(), "Started:  unknown")
	assert.Contains(t, buf.String(), "Length:   unknown (stored 0)")
}
