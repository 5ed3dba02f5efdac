package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// InsertSleepSession stores a night of sleep (one per date).
func (db *DB) InsertSleepSession(ctx context.Context, row models.SleepSessionRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sleep_sessions (date, total_sleep, core, deep, rem, in_bed, sleep_start, sleep_end)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (date) DO NOTHING`,
		row.Date, row.TotalSleep, row.Core, row.Deep, row.REM,
		row.InBed, nullTime(row.SleepStart), nullTime(row.SleepEnd))
	if err != nil {
		return fmt.Errorf("inserting sleep session: %w", err)
	}
	return nil
}

// QuerySleepSessions retrieves sleep sessions in a date range, newest first.
func (db *DB) QuerySleepSessions(ctx context.Context, start, end time.Time) ([]models.SleepSessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date, total_sleep, core, deep, rem, in_bed, sleep_start, sleep_end
		 FROM sleep_sessions
		 WHERE date >= $1 AND date < $2
		 ORDER BY date DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying sleep sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SleepSessionRow
	for rows.Next() {
		var r models.SleepSessionRow
		var sleepStart, sleepEnd *time.Time
		if err := rows.Scan(&r.Date, &r.TotalSleep, &r.Core, &r.Deep, &r.REM,
			&r.InBed, &sleepStart, &sleepEnd); err != nil {
			return nil, fmt.Errorf("scanning sleep session: %w", err)
		}
		if sleepStart != nil {
			r.SleepStart = *sleepStart
		}
		if sleepEnd != nil {
			r.SleepEnd = *sleepEnd
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
