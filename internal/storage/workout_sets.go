package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

const setColumns = `id, workout_id, exercise_id, reps, weight, logged_at`

// AddSet inserts one set.
func (db *DB) AddSet(ctx context.Context, s models.WorkoutSet) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sets (`+setColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.WorkoutID, s.ExerciseID, s.Reps, s.Weight, s.LoggedAt)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

// AddSets batch-inserts sets. Returns count inserted.
func (db *DB) AddSets(ctx context.Context, sets []models.WorkoutSet) (int64, error) {
	const cols = 6
	var total int64
	for start := 0; start < len(sets); start += chunkSize(cols) {
		chunk := sets[start:min(start+chunkSize(cols), len(sets))]

		query := `INSERT INTO workout_sets (` + setColumns + `) VALUES `
		args := make([]any, 0, len(chunk)*cols)
		valueStrings := make([]string, 0, len(chunk))
		for i, s := range chunk {
			base := i * cols
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6,
			))
			args = append(args, s.ID, s.WorkoutID, s.ExerciseID, s.Reps, s.Weight, s.LoggedAt)
		}
		query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

		tag, err := db.Pool.Exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("inserting sets: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// UpdateSet stores new reps and weight for a set.
func (db *DB) UpdateSet(ctx context.Context, s models.WorkoutSet) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sets SET reps = $2, weight = $3 WHERE id = $1`,
		s.ID, s.Reps, s.Weight)
	if err != nil {
		return fmt.Errorf("updating set %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set %s: %w", s.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteSet removes a set. Deleting a missing set is not an error.
func (db *DB) DeleteSet(ctx context.Context, id string) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM workout_sets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting set %s: %w", id, err)
	}
	return nil
}

// GetSetsByWorkoutID returns a workout's sets in logging order.
func (db *DB) GetSetsByWorkoutID(ctx context.Context, workoutID string) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+` FROM workout_sets WHERE workout_id = $1 ORDER BY logged_at ASC, id ASC`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()
	return scanSets(rows)
}

// GetLastSetsForExercise returns the most recent sets for an exercise, newest
// first. limit <= 0 selects 10.
func (db *DB) GetLastSetsForExercise(ctx context.Context, exerciseID string, limit int) ([]models.WorkoutSet, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+` FROM workout_sets
		 WHERE exercise_id = $1
		 ORDER BY logged_at DESC
		 LIMIT $2`,
		exerciseID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()
	return scanSets(rows)
}

func scanSets(rows pgx.Rows) ([]models.WorkoutSet, error) {
	var result []models.WorkoutSet
	for rows.Next() {
		var s models.WorkoutSet
		if err := rows.Scan(&s.ID, &s.WorkoutID, &s.ExerciseID, &s.Reps, &s.Weight, &s.LoggedAt); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
