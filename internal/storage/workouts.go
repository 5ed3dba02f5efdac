package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

// AddWorkout inserts a workout row.
func (db *DB) AddWorkout(ctx context.Context, w models.Workout) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, started_at, completed_at, template_id) VALUES ($1,$2,$3,$4)`,
		w.ID, w.StartedAt, w.CompletedAt, w.TemplateID)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	return nil
}

// UpdateWorkout stores the completion time of an existing workout.
func (db *DB) UpdateWorkout(ctx context.Context, w models.Workout) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workouts SET started_at = $2, completed_at = $3, template_id = $4 WHERE id = $1`,
		w.ID, w.StartedAt, w.CompletedAt, w.TemplateID)
	if err != nil {
		return fmt.Errorf("updating workout %s: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workout %s: %w", w.ID, models.ErrNotFound)
	}
	return nil
}

// GetWorkoutByID returns one workout or models.ErrNotFound.
func (db *DB) GetWorkoutByID(ctx context.Context, id string) (models.Workout, error) {
	var w models.Workout
	err := db.Pool.QueryRow(ctx,
		`SELECT id, started_at, completed_at, template_id FROM workouts WHERE id = $1`, id,
	).Scan(&w.ID, &w.StartedAt, &w.CompletedAt, &w.TemplateID)
	if err != nil {
		return models.Workout{}, notFound(err, "workout "+id)
	}
	return w, nil
}

// WorkoutSummary is a workout with its set count and volume.
type WorkoutSummary struct {
	models.Workout
	SetCount    int     `json:"set_count"`
	TotalReps   int     `json:"total_reps"`
	VolumeKg    float64 `json:"volume"`
	DurationSec float64 `json:"duration_sec"`
}

// ListWorkouts returns workouts started in [start, end), newest first.
func (db *DB) ListWorkouts(ctx context.Context, start, end time.Time) ([]WorkoutSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT w.id, w.started_at, w.completed_at, w.template_id,
		        COUNT(s.id)::int,
		        COALESCE(SUM(s.reps), 0)::int,
		        COALESCE(SUM(s.reps * s.weight), 0)
		 FROM workouts w
		 LEFT JOIN workout_sets s ON s.workout_id = w.id
		 WHERE w.started_at >= $1 AND w.started_at < $2
		 GROUP BY w.id
		 ORDER BY w.started_at DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanWorkoutSummaries(rows)
}

func scanWorkoutSummaries(rows pgx.Rows) ([]WorkoutSummary, error) {
	var result []WorkoutSummary
	for rows.Next() {
		var ws WorkoutSummary
		if err := rows.Scan(&ws.ID, &ws.StartedAt, &ws.CompletedAt, &ws.TemplateID,
			&ws.SetCount, &ws.TotalReps, &ws.VolumeKg); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		ws.DurationSec = ws.Duration().Seconds()
		result = append(result, ws)
	}
	return result, rows.Err()
}
