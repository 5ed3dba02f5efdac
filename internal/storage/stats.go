package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats counts what is stored, for the status endpoint.
type DataStats struct {
	Exercises       int64      `json:"exercises"`
	CustomExercises int64      `json:"custom_exercises"`
	Workouts        int64      `json:"workouts"`
	Sets            int64      `json:"sets"`
	MetricRows      int64      `json:"metric_rows"`
	SleepNights     int64      `json:"sleep_nights"`
	FirstWorkout    *time.Time `json:"first_workout"`
	LastWorkout     *time.Time `json:"last_workout"`
}

// GetDataStats returns row counts and the workout date range.
func (db *DB) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}
	err := db.Pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM exercises),
		        (SELECT COUNT(*) FROM exercises WHERE is_custom),
		        (SELECT COUNT(*) FROM workouts),
		        (SELECT COUNT(*) FROM workout_sets),
		        (SELECT COUNT(*) FROM health_metrics),
		        (SELECT COUNT(*) FROM sleep_sessions),
		        (SELECT MIN(started_at) FROM workouts),
		        (SELECT MAX(started_at) FROM workouts)`,
	).Scan(&stats.Exercises, &stats.CustomExercises, &stats.Workouts, &stats.Sets,
		&stats.MetricRows, &stats.SleepNights, &stats.FirstWorkout, &stats.LastWorkout)
	if err != nil {
		return nil, fmt.Errorf("counting stored data: %w", err)
	}
	return stats, nil
}
