package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// AddTemplate inserts or replaces a template.
func (db *DB) AddTemplate(ctx context.Context, t models.Template) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO templates (id, name, location_id, exercise_ids) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, location_id = EXCLUDED.location_id,
		 exercise_ids = EXCLUDED.exercise_ids`,
		t.ID, t.Name, t.LocationID, nonNil(t.ExerciseIDs))
	if err != nil {
		return fmt.Errorf("saving template %s: %w", t.ID, err)
	}
	return nil
}

// GetTemplateByID returns one template or models.ErrNotFound.
func (db *DB) GetTemplateByID(ctx context.Context, id string) (models.Template, error) {
	var t models.Template
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, location_id, exercise_ids FROM templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.LocationID, &t.ExerciseIDs)
	if err != nil {
		return models.Template{}, notFound(err, "template "+id)
	}
	return t, nil
}

// ListTemplates returns all templates by name.
func (db *DB) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, location_id, exercise_ids FROM templates ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.LocationID, &t.ExerciseIDs); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
