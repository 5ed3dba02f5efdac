package localdb

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// InsertHealthWorkout stores a forwarded workout.
func (d *DB) InsertHealthWorkout(ctx context.Context, row models.HealthWorkoutRow) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO health_workouts (id, name, start_time, end_time, duration_sec,
		 active_energy_burned, active_energy_units)
		 VALUES (?,?,?,?,?,?,?) ON CONFLICT DO NOTHING`,
		row.ID, row.Name, formatTime(row.StartTime), formatTime(row.EndTime), row.DurationSec,
		row.ActiveEnergyBurned, row.ActiveEnergyUnits)
	if err != nil {
		return fmt.Errorf("inserting health workout: %w", err)
	}
	return nil
}

// InsertHealthMetrics stores samples, skipping duplicates, and returns how
// many were new.
func (d *DB) InsertHealthMetrics(ctx context.Context, rows []models.HealthMetricRow) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning metric batch: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, r := range rows {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO health_metrics (time, metric_name, source, units, qty)
			 VALUES (?,?,?,?,?) ON CONFLICT DO NOTHING`,
			formatTime(r.Time), r.MetricName, r.Source, r.Units, r.Qty)
		if err != nil {
			return 0, fmt.Errorf("inserting health metric: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing health metrics: %w", err)
	}
	return total, nil
}

// InsertSleepSession stores one night; an existing date is kept.
func (d *DB) InsertSleepSession(ctx context.Context, row models.SleepSessionRow) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO sleep_sessions (date, total_sleep, core, deep, rem, in_bed, sleep_start, sleep_end)
		 VALUES (?,?,?,?,?,?,?,?) ON CONFLICT (date) DO NOTHING`,
		row.Date.Format("2006-01-02"), row.TotalSleep, row.Core, row.Deep, row.REM, row.InBed,
		optionalTime(row.SleepStart), optionalTime(row.SleepEnd))
	if err != nil {
		return fmt.Errorf("inserting sleep session: %w", err)
	}
	return nil
}

// CountHealthWorkouts returns the number of forwarded workouts.
func (d *DB) CountHealthWorkouts(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM health_workouts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting health workouts: %w", err)
	}
	return n, nil
}

func optionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}
