package storage

import (
	"context"
	"fmt"
	"time"
)

// VolumePeriod holds training volume for one week or month.
type VolumePeriod struct {
	Period     string           `json:"period"`
	Workouts   int              `json:"workouts"`
	Sets       int              `json:"sets"`
	TotalReps  int              `json:"total_reps"`
	Volume     float64          `json:"volume"`
	AvgSetsPer float64          `json:"avg_sets_per_workout"`
	ByExercise []ExerciseVolume `json:"by_exercise,omitempty"`
}

// ExerciseVolume is one exercise's share of a period's volume.
type ExerciseVolume struct {
	ExerciseID string  `json:"exercise_id"`
	Name       string  `json:"name"`
	Sets       int     `json:"sets"`
	TotalReps  int     `json:"total_reps"`
	Volume     float64 `json:"volume"`
}

// truncInterval maps a bucket size onto a date_trunc field.
func truncInterval(bucket string) string {
	switch bucket {
	case "1 week", "week":
		return "week"
	default:
		return "month"
	}
}

// GetTrainingVolume sums sets, reps and weight x reps per period, newest
// first. Sets with non-positive reps count towards sets but add no volume.
func (db *DB) GetTrainingVolume(ctx context.Context, start, end time.Time, bucket string) ([]VolumePeriod, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, w.started_at)::date AS period,
		        COUNT(DISTINCT w.id)::int,
		        COUNT(s.id)::int,
		        COALESCE(SUM(GREATEST(s.reps, 0)), 0)::int,
		        COALESCE(SUM(s.weight * GREATEST(s.reps, 0)), 0)
		 FROM workouts w
		 JOIN workout_sets s ON s.workout_id = w.id
		 WHERE w.started_at >= $2 AND w.started_at < $3
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end)
	if err != nil {
		return nil, fmt.Errorf("querying training volume: %w", err)
	}
	defer rows.Close()

	var periods []VolumePeriod
	index := map[string]int{}
	for rows.Next() {
		var period time.Time
		var p VolumePeriod
		if err := rows.Scan(&period, &p.Workouts, &p.Sets, &p.TotalReps, &p.Volume); err != nil {
			return nil, fmt.Errorf("scanning training volume: %w", err)
		}
		p.Period = period.Format("2006-01-02")
		if p.Workouts > 0 {
			p.AvgSetsPer = float64(p.Sets) / float64(p.Workouts)
		}
		index[p.Period] = len(periods)
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	exRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, w.started_at)::date AS period,
		        e.id, e.name,
		        COUNT(s.id)::int,
		        COALESCE(SUM(GREATEST(s.reps, 0)), 0)::int,
		        COALESCE(SUM(s.weight * GREATEST(s.reps, 0)), 0) AS volume
		 FROM workouts w
		 JOIN workout_sets s ON s.workout_id = w.id
		 JOIN exercises e ON e.id = s.exercise_id
		 WHERE w.started_at >= $2 AND w.started_at < $3
		 GROUP BY period, e.id, e.name
		 ORDER BY period DESC, volume DESC`,
		truncInterval(bucket), start, end)
	if err != nil {
		return nil, fmt.Errorf("querying exercise volume: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var period time.Time
		var ev ExerciseVolume
		if err := exRows.Scan(&period, &ev.ExerciseID, &ev.Name, &ev.Sets, &ev.TotalReps, &ev.Volume); err != nil {
			return nil, fmt.Errorf("scanning exercise volume: %w", err)
		}
		if i, ok := index[period.Format("2006-01-02")]; ok {
			periods[i].ByExercise = append(periods[i].ByExercise, ev)
		}
	}
	return periods, exRows.Err()
}
