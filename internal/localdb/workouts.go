package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// AddWorkout inserts a workout row.
func (d *DB) AddWorkout(ctx context.Context, w models.Workout) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO workouts (id, started_at, completed_at, template_id) VALUES (?,?,?,?)`,
		w.ID, formatTime(w.StartedAt), formatTimePtr(w.CompletedAt), w.TemplateID)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	return nil
}

// UpdateWorkout rewrites an existing workout.
func (d *DB) UpdateWorkout(ctx context.Context, w models.Workout) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE workouts SET started_at = ?, completed_at = ?, template_id = ? WHERE id = ?`,
		formatTime(w.StartedAt), formatTimePtr(w.CompletedAt), w.TemplateID, w.ID)
	if err != nil {
		return fmt.Errorf("updating workout %s: %w", w.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("workout %s: %w", w.ID, models.ErrNotFound)
	}
	return nil
}

// GetWorkoutByID returns one workout or models.ErrNotFound.
func (d *DB) GetWorkoutByID(ctx context.Context, id string) (models.Workout, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, started_at, completed_at, template_id FROM workouts WHERE id = ?`, id)
	w, err := scanWorkout(row)
	if err != nil {
		return models.Workout{}, notFound(err, "workout "+id)
	}
	return w, nil
}

// ListWorkouts returns workouts started in [start, end), newest first.
func (d *DB) ListWorkouts(ctx context.Context, start, end time.Time) ([]models.Workout, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, started_at, completed_at, template_id FROM workouts
		 WHERE started_at >= ? AND started_at < ?
		 ORDER BY started_at DESC`,
		formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func scanWorkout(row scanner) (models.Workout, error) {
	var w models.Workout
	var started string
	var completed, template sql.NullString
	if err := row.Scan(&w.ID, &started, &completed, &template); err != nil {
		return models.Workout{}, err
	}
	var err error
	if w.StartedAt, err = parseTime(started); err != nil {
		return models.Workout{}, err
	}
	if w.CompletedAt, err = parseNullTime(completed); err != nil {
		return models.Workout{}, err
	}
	if template.Valid {
		w.TemplateID = &template.String
	}
	return w, nil
}

const setColumns = `id, workout_id, exercise_id, reps, weight, logged_at`

// AddSet inserts one set.
func (d *DB) AddSet(ctx context.Context, s models.WorkoutSet) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO workout_sets (`+setColumns+`) VALUES (?,?,?,?,?,?)`,
		s.ID, s.WorkoutID, s.ExerciseID, s.Reps, s.Weight, formatTime(s.LoggedAt))
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

// AddSets inserts sets in one transaction and returns the number written.
func (d *DB) AddSets(ctx context.Context, sets []models.WorkoutSet) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning set batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO workout_sets (`+setColumns+`) VALUES (?,?,?,?,?,?) ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("preparing set insert: %w", err)
	}
	defer stmt.Close()

	var total int64
	for _, s := range sets {
		res, err := stmt.ExecContext(ctx, s.ID, s.WorkoutID, s.ExerciseID, s.Reps, s.Weight, formatTime(s.LoggedAt))
		if err != nil {
			return 0, fmt.Errorf("inserting set %s: %w", s.ID, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing sets: %w", err)
	}
	return total, nil
}

// UpdateSet stores new reps and weight for a set.
func (d *DB) UpdateSet(ctx context.Context, s models.WorkoutSet) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE workout_sets SET reps = ?, weight = ? WHERE id = ?`, s.Reps, s.Weight, s.ID)
	if err != nil {
		return fmt.Errorf("updating set %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set %s: %w", s.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteSet removes a set. Deleting a missing set is not an error.
func (d *DB) DeleteSet(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM workout_sets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting set %s: %w", id, err)
	}
	return nil
}

// GetSetsByWorkoutID returns a workout's sets in logging order.
func (d *DB) GetSetsByWorkoutID(ctx context.Context, workoutID string) ([]models.WorkoutSet, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+setColumns+` FROM workout_sets WHERE workout_id = ? ORDER BY logged_at, id`, workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	return scanSets(rows)
}

// GetLastSetsForExercise returns the newest sets for an exercise. limit <= 0
// selects 10.
func (d *DB) GetLastSetsForExercise(ctx context.Context, exerciseID string, limit int) ([]models.WorkoutSet, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+setColumns+` FROM workout_sets WHERE exercise_id = ?
		 ORDER BY logged_at DESC LIMIT ?`, exerciseID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	return scanSets(rows)
}

func scanSets(rows *sql.Rows) ([]models.WorkoutSet, error) {
	defer rows.Close()

	var result []models.WorkoutSet
	for rows.Next() {
		var s models.WorkoutSet
		var logged string
		if err := rows.Scan(&s.ID, &s.WorkoutID, &s.ExerciseID, &s.Reps, &s.Weight, &logged); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		t, err := parseTime(logged)
		if err != nil {
			return nil, err
		}
		s.LoggedAt = t
		result = append(result, s)
	}
	return result, rows.Err()
}
