// Package archive keeps reconstructed access periods in a SQLite database so
// that history survives the log being truncated at the next start.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sweeney/access-logger/internal/accesslog"
)

// pragmas are applied to every connection.
const pragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

// Archive is a SQLite-backed store of access periods.
type Archive struct {
	db *sql.DB
}

// ArchivedPeriod is a stored access period.
type ArchivedPeriod struct {
	ID            string
	Start         time.Time // zero when unknown
	End           time.Time // zero when unknown
	StoredSeconds int
	ReadingCount  int
	TimesFromLog  bool
	Source        string
	ImportedAt    time.Time
}

// Open opens (creating if needed) the archive at path and applies migrations.
func Open(ctx context.Context, path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir archive dir: %w", err)
	}
	return openDSN(ctx, fmt.Sprintf("file:%s?%s", path, pragmas))
}

func openDSN(ctx context.Context, dsn string) (*Archive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive ping: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Import stores periods that are not already archived and returns how many
// were added. A period with known times is identified by its start, end,
// stored length and reading count, so importing the same log twice adds it
// once. A period with no readings in a compact log has no times at all;
// those are always added, since two of them cannot be told apart.
func (a *Archive) Import(ctx context.Context, source string, periods []accesslog.Period) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixMilli()
	added := 0
	for _, p := range periods {
		id := uuid.NewString()
		res, err := tx.ExecContext(ctx, `
INSERT INTO periods(
  period_id, start_ms, end_ms, stored_seconds, reading_count, times_from_log, source, imported_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(start_ms, end_ms, stored_seconds, reading_count) WHERE start_ms <> 0 DO NOTHING;
`,
			id, toMillis(p.Start), toMillis(p.End), p.StoredSeconds, len(p.Readings),
			boolInt(p.TimesFromLog), source, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert period: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return 0, fmt.Errorf("insert period: %w", err)
		} else if n == 0 {
			continue
		}

		for i, r := range p.Readings {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO readings(period_id, seq, taken_at_ms, temperature_c, humidity_pct)
VALUES (?, ?, ?, ?, ?);
`, id, i, toMillis(r.Timestamp), r.Temperature, r.Humidity); err != nil {
				return 0, fmt.Errorf("insert reading: %w", err)
			}
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return added, nil
}

// Periods returns every archived period, oldest first.
func (a *Archive) Periods(ctx context.Context) ([]ArchivedPeriod, error) {
	rows, err := a.db.QueryContext(ctx, `
SELECT period_id, start_ms, end_ms, stored_seconds, reading_count, times_from_log, source, imported_at_ms
FROM periods
ORDER BY start_ms, imported_at_ms, rowid;
`)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	var out []ArchivedPeriod
	for rows.Next() {
		var (
			p                          ArchivedPeriod
			startMs, endMs, importedMs int64
			timesFromLog               int
		)
		if err := rows.Scan(&p.ID, &startMs, &endMs, &p.StoredSeconds, &p.ReadingCount,
			&timesFromLog, &p.Source, &importedMs); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		p.Start = fromMillis(startMs)
		p.End = fromMillis(endMs)
		p.TimesFromLog = timesFromLog != 0
		p.ImportedAt = fromMillis(importedMs)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Readings returns the readings of one archived period in the order taken.
func (a *Archive) Readings(ctx context.Context, periodID string) ([]accesslog.TimedReading, error) {
	rows, err := a.db.QueryContext(ctx, `
SELECT taken_at_ms, temperature_c, humidity_pct
FROM readings
WHERE period_id = ?
ORDER BY seq;
`, periodID)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []accesslog.TimedReading
	for rows.Next() {
		var (
			r  accesslog.TimedReading
			ms int64
		)
		if err := rows.Scan(&ms, &r.Temperature, &r.Humidity); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Timestamp = fromMillis(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
