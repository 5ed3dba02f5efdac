package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

const exerciseColumns = `id, name, primary_muscle_groups, secondary_muscle_groups, equipment, location, is_custom`

// GetExercises returns every exercise in catalog order: seeds first in file
// order, then custom exercises in creation order.
func (db *DB) GetExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+exerciseColumns+` FROM exercises ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, ex)
	}
	return result, rows.Err()
}

// GetExerciseByID returns one exercise or models.ErrNotFound.
func (db *DB) GetExerciseByID(ctx context.Context, id string) (models.Exercise, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id)
	ex, err := scanExercise(row)
	if err != nil {
		return models.Exercise{}, notFound(err, "exercise "+id)
	}
	return ex, nil
}

// AddExercise inserts a new exercise.
func (db *DB) AddExercise(ctx context.Context, ex models.Exercise) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercises (`+exerciseColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ex.ID, ex.Name, nonNil(ex.PrimaryMuscleGroups), nonNil(ex.SecondaryMuscleGroups),
		ex.Equipment, ex.Location, ex.IsCustom)
	if err != nil {
		return fmt.Errorf("inserting exercise %s: %w", ex.ID, err)
	}
	return nil
}

// SeedExercises inserts catalog exercises that are not stored yet. Existing
// rows, including their position, are left untouched.
func (db *DB) SeedExercises(ctx context.Context, exercises []models.Exercise) (int64, error) {
	batch := &pgx.Batch{}
	for _, ex := range exercises {
		batch.Queue(
			`INSERT INTO exercises (`+exerciseColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (id) DO NOTHING`,
			ex.ID, ex.Name, nonNil(ex.PrimaryMuscleGroups), nonNil(ex.SecondaryMuscleGroups),
			ex.Equipment, ex.Location, false)
	}
	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range exercises {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("seeding exercises: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func scanExercise(row pgx.Row) (models.Exercise, error) {
	var ex models.Exercise
	if err := row.Scan(&ex.ID, &ex.Name, &ex.PrimaryMuscleGroups, &ex.SecondaryMuscleGroups,
		&ex.Equipment, &ex.Location, &ex.IsCustom); err != nil {
		return models.Exercise{}, err
	}
	return ex, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
