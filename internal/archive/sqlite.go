// Package archive exports daily logs into a SQLite database for ad-hoc
// querying and spreadsheets.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/timecalc"
)

// Archive is a SQLite file holding one row per day and one per entry.
// Exporting a day replaces everything previously stored for that day.
type Archive struct {
	db *sql.DB
}

// DayRow is a stored day.
type DayRow struct {
	Day          string
	Notes        string
	FeedingCount int
	DiaperCount  int
	SleepMinutes int
}

// EntryRow is a stored entry. Details holds the JSON of the detail block,
// or "" when the entry has none.
type EntryRow struct {
	ID        string
	Day       string
	BabyID    string
	Timestamp time.Time
	Type      string
	Summary   string
	Notes     string
	Details   string
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &Archive{db: db}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS days (
        day TEXT PRIMARY KEY,
        id TEXT NOT NULL,
        notes TEXT NOT NULL,
        feeding_count INTEGER NOT NULL,
        diaper_count INTEGER NOT NULL,
        sleep_minutes INTEGER NOT NULL,
        exported_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS entries (
        id TEXT PRIMARY KEY,
        day TEXT NOT NULL,
        baby_id TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        type TEXT NOT NULL,
        summary TEXT NOT NULL,
        notes TEXT NOT NULL,
        details TEXT,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (day) REFERENCES days(day) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_entries_day ON entries(day);
    CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON entries(timestamp);
    `

	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ExportDays writes every non-empty log in one transaction. Day keys are
// derived in loc. It returns the number of entries written.
func (a *Archive) ExportDays(ctx context.Context, logs []*model.DailyLog, loc *time.Location) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	dayQuery := `
        INSERT INTO days (day, id, notes, feeding_count, diaper_count, sleep_minutes, exported_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(day) DO UPDATE SET
            id = excluded.id,
            notes = excluded.notes,
            feeding_count = excluded.feeding_count,
            diaper_count = excluded.diaper_count,
            sleep_minutes = excluded.sleep_minutes,
            exported_at = excluded.exported_at
    `
	entryQuery := `
        INSERT INTO entries (id, day, baby_id, timestamp, type, summary, notes, details, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, dl := range logs {
		if dl == nil || (dl.IsEmpty() && dl.Notes == "") {
			continue
		}
		day := timecalc.DayKey(dl.Date, loc)
		if _, err := tx.ExecContext(ctx, dayQuery,
			day, dl.ID.String(), dl.Notes, dl.FeedingCount(), dl.DiaperCount(), dl.TotalSleepMinutes(), now); err != nil {
			return 0, fmt.Errorf("failed to insert day %s: %w", day, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE day = ?`, day); err != nil {
			return 0, fmt.Errorf("failed to clear entries of %s: %w", day, err)
		}

		for _, e := range dl.SortedEntries() {
			var details sql.NullString
			if d := e.Details(); d != nil {
				data, err := json.Marshal(d)
				if err != nil {
					return 0, fmt.Errorf("failed to encode details of %s: %w", e.ID, err)
				}
				details = sql.NullString{String: string(data), Valid: true}
			}
			// An entry keeps its id when a new timezone moves it to another day.
			if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, e.ID.String()); err != nil {
				return 0, fmt.Errorf("failed to clear entry %s: %w", e.ID, err)
			}
			if _, err := tx.ExecContext(ctx, entryQuery,
				e.ID.String(), day, e.BabyID.String(),
				e.Timestamp.UTC().Format(time.RFC3339), string(e.Type()),
				e.DisplaySummary(), e.Notes, details,
				e.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
				return 0, fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit export: %w", err)
	}
	return written, nil
}

// Days returns all stored days, oldest first.
func (a *Archive) Days(ctx context.Context) ([]DayRow, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT day, notes, feeding_count, diaper_count, sleep_minutes
        FROM days
        ORDER BY day
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query days: %w", err)
	}
	defer rows.Close()

	var days []DayRow
	for rows.Next() {
		var d DayRow
		if err := rows.Scan(&d.Day, &d.Notes, &d.FeedingCount, &d.DiaperCount, &d.SleepMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// Entries returns the stored entries of day, oldest first.
func (a *Archive) Entries(ctx context.Context, day string) ([]EntryRow, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT id, day, baby_id, timestamp, type, summary, notes, details
        FROM entries
        WHERE day = ?
        ORDER BY timestamp
    `, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []EntryRow
	for rows.Next() {
		var (
			e            EntryRow
			timestampStr string
			details      sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Day, &e.BabyID, &timestampStr, &e.Type, &e.Summary, &e.Notes, &details); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339, timestampStr); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
