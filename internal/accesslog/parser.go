package accesslog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sweeney/access-logger/internal/access"
)

// ErrMalformedLog is wrapped by the error returned from a strict parse.
var ErrMalformedLog = errors.New("malformed access log")

// AnomalyKind classifies something unexpected in the log.
type AnomalyKind string

const (
	// AnomalyOrphanStart is a start line while a period was already open.
	// The earlier period is discarded.
	AnomalyOrphanStart AnomalyKind = "ORPHAN_START"
	// AnomalyStrayReading is a reading with no open period.
	AnomalyStrayReading AnomalyKind = "STRAY_READING"
	// AnomalyStrayStop is a stop line with no open period.
	AnomalyStrayStop AnomalyKind = "STRAY_STOP"
	// AnomalyUnterminated is a period still open at end of log.
	AnomalyUnterminated AnomalyKind = "UNTERMINATED"
	// AnomalyBadLine is a line that could not be decoded.
	AnomalyBadLine AnomalyKind = "BAD_LINE"
)

// Anomaly describes one recovered problem and the 1-based line it was on.
type Anomaly struct {
	Kind   AnomalyKind
	Line   int
	Detail string
}

func (a Anomaly) String() string {
	if a.Detail == "" {
		return fmt.Sprintf("line %d: %s", a.Line, a.Kind)
	}
	return fmt.Sprintf("line %d: %s: %s", a.Line, a.Kind, a.Detail)
}

// MalformedLogError is returned by a strict parse on the first anomaly.
type MalformedLogError struct {
	Anomaly Anomaly
}

func (e *MalformedLogError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformedLog, e.Anomaly)
}

func (e *MalformedLogError) Unwrap() error {
	return ErrMalformedLog
}

// ParseOptions controls reconstruction.
type ParseOptions struct {
	// Strict rejects the whole log on the first anomaly instead of
	// discarding the affected records.
	Strict bool
}

// Result is the outcome of a reconstruction.
type Result struct {
	// Periods are in the order their stop line appeared.
	Periods   []Period
	Anomalies []Anomaly
	Lines     int
}

// Reconstruct replays a log stream into completed access periods. At most
// one period is open at a time. Anomalies are recovered locally unless
// opts.Strict is set. The returned error is non-nil only for read failures
// or, in strict mode, a *MalformedLogError.
func Reconstruct(r io.Reader, opts ParseOptions) (*Result, error) {
	res := &Result{}
	var cur *openPeriod

	note := func(a Anomaly) error {
		res.Anomalies = append(res.Anomalies, a)
		if opts.Strict {
			return &MalformedLogError{Anomaly: a}
		}
		return nil
	}

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, long, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read access log: %w", err)
		}
		lineNo++
		if long {
			res.Lines++
			detail := fmt.Sprintf("line longer than %d bytes", maxLineBytes)
			if err := note(Anomaly{Kind: AnomalyBadLine, Line: lineNo, Detail: detail}); err != nil {
				return res, err
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		res.Lines++

		rec, err := DecodeLine(line)
		if err != nil {
			if err := note(Anomaly{Kind: AnomalyBadLine, Line: lineNo, Detail: err.Error()}); err != nil {
				return res, err
			}
			continue
		}

		switch rec.Kind {
		case access.KindStarted:
			if cur != nil {
				detail := fmt.Sprintf("period opened on line %d never stopped", cur.line)
				if err := note(Anomaly{Kind: AnomalyOrphanStart, Line: lineNo, Detail: detail}); err != nil {
					return res, err
				}
			}
			cur = &openPeriod{start: rec.Timestamp, line: lineNo}

		case access.KindReading:
			if cur == nil {
				if err := note(Anomaly{Kind: AnomalyStrayReading, Line: lineNo}); err != nil {
					return res, err
				}
				continue
			}
			cur.readings = append(cur.readings, TimedReading{Timestamp: rec.Timestamp, Reading: rec.Reading})

		case access.KindStopped:
			if cur == nil {
				if err := note(Anomaly{Kind: AnomalyStrayStop, Line: lineNo}); err != nil {
					return res, err
				}
				continue
			}
			res.Periods = append(res.Periods, cur.close(rec))
			cur = nil
		}
	}

	if cur != nil {
		detail := fmt.Sprintf("period opened on line %d has no stop", cur.line)
		if err := note(Anomaly{Kind: AnomalyUnterminated, Line: lineNo, Detail: detail}); err != nil {
			return res, err
		}
	}
	return res, nil
}

// maxLineBytes bounds a single log line. Valid lines are a few dozen bytes;
// anything longer is corruption and is skipped without being buffered.
const maxLineBytes = 4096

// readLine returns the next line without its terminator. A line longer than
// maxLineBytes is consumed and reported with long set. io.EOF is returned
// only when no further line exists.
func readLine(br *bufio.Reader) (line string, long bool, err error) {
	var buf []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if !long && len(buf)+len(chunk) <= maxLineBytes+2 {
			buf = append(buf, chunk...)
		} else {
			long, buf = true, nil
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && (err != io.EOF || (len(buf) == 0 && !long)) {
			return "", false, err
		}
		if long {
			return "", true, nil
		}
		line = strings.TrimSuffix(strings.TrimSuffix(string(buf), "\n"), "\r")
		if len(line) > maxLineBytes {
			return "", true, nil
		}
		return line, false, nil
	}
}

// ReconstructFile opens the log at path read-only and reconstructs it.
func ReconstructFile(path string, opts ParseOptions) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	defer f.Close()
	return Reconstruct(f, opts)
}
