package localdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

const exerciseColumns = `id, name, primary_muscle_groups, secondary_muscle_groups, equipment, location, is_custom`

type scanner interface {
	Scan(dest ...any) error
}

// GetExercises returns exercises in insertion order.
func (d *DB) GetExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+exerciseColumns+` FROM exercises ORDER BY position`)
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
func (d *DB) GetExerciseByID(ctx context.Context, id string) (models.Exercise, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id)
	ex, err := scanExercise(row)
	if err != nil {
		return models.Exercise{}, notFound(err, "exercise "+id)
	}
	return ex, nil
}

// AddExercise inserts a new exercise.
func (d *DB) AddExercise(ctx context.Context, ex models.Exercise) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO exercises (`+exerciseColumns+`) VALUES (?,?,?,?,?,?,?)`,
		ex.ID, ex.Name, encodeList(ex.PrimaryMuscleGroups), encodeList(ex.SecondaryMuscleGroups),
		ex.Equipment, ex.Location, boolInt(ex.IsCustom))
	if err != nil {
		return fmt.Errorf("inserting exercise %s: %w", ex.ID, err)
	}
	return nil
}

// SeedExercises inserts catalog exercises not stored yet and returns how
// many were new.
func (d *DB) SeedExercises(ctx context.Context, exercises []models.Exercise) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	var inserted int64
	for _, ex := range exercises {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO exercises (`+exerciseColumns+`) VALUES (?,?,?,?,?,?,0)
			 ON CONFLICT (id) DO NOTHING`,
			ex.ID, ex.Name, encodeList(ex.PrimaryMuscleGroups), encodeList(ex.SecondaryMuscleGroups),
			ex.Equipment, ex.Location)
		if err != nil {
			return 0, fmt.Errorf("seeding exercise %s: %w", ex.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	return inserted, nil
}

func scanExercise(row scanner) (models.Exercise, error) {
	var ex models.Exercise
	var primary, secondary string
	var custom int
	if err := row.Scan(&ex.ID, &ex.Name, &primary, &secondary, &ex.Equipment, &ex.Location, &custom); err != nil {
		return models.Exercise{}, err
	}
	var err error
	if ex.PrimaryMuscleGroups, err = decodeList(primary); err != nil {
		return models.Exercise{}, err
	}
	if ex.SecondaryMuscleGroups, err = decodeList(secondary); err != nil {
		return models.Exercise{}, err
	}
	ex.IsCustom = custom != 0
	return ex, nil
}

// AddTemplate inserts or replaces a template.
func (d *DB) AddTemplate(ctx context.Context, t models.Template) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO templates (id, name, location_id, exercise_ids) VALUES (?,?,?,?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, location_id = excluded.location_id,
		 exercise_ids = excluded.exercise_ids`,
		t.ID, t.Name, t.LocationID, encodeList(t.ExerciseIDs))
	if err != nil {
		return fmt.Errorf("saving template %s: %w", t.ID, err)
	}
	return nil
}

// GetTemplateByID returns one template or models.ErrNotFound.
func (d *DB) GetTemplateByID(ctx context.Context, id string) (models.Template, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, location_id, exercise_ids FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err != nil {
		return models.Template{}, notFound(err, "template "+id)
	}
	return t, nil
}

// ListTemplates returns all templates by name.
func (d *DB) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, location_id, exercise_ids FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTemplate(row scanner) (models.Template, error) {
	var t models.Template
	var ids string
	if err := row.Scan(&t.ID, &t.Name, &t.LocationID, &ids); err != nil {
		return models.Template{}, err
	}
	list, err := decodeList(ids)
	if err != nil {
		return models.Template{}, err
	}
	t.ExerciseIDs = list
	return t, nil
}

// GetUserSettings returns saved settings or the defaults.
func (d *DB) GetUserSettings(ctx context.Context) (models.UserSettings, error) {
	var s models.UserSettings
	err := d.db.QueryRowContext(ctx,
		`SELECT rest_timer_seconds, weight_unit FROM user_settings WHERE id = 1`,
	).Scan(&s.RestTimerSeconds, &s.WeightUnit)
	if err == sql.ErrNoRows {
		return models.DefaultUserSettings(), nil
	}
	if err != nil {
		return models.UserSettings{}, fmt.Errorf("querying settings: %w", err)
	}
	return s.WithDefaults(), nil
}

// SaveUserSettings upserts the settings row.
func (d *DB) SaveUserSettings(ctx context.Context, s models.UserSettings) error {
	s = s.WithDefaults()
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO user_settings (id, rest_timer_seconds, weight_unit) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET rest_timer_seconds = excluded.rest_timer_seconds,
		 weight_unit = excluded.weight_unit`,
		s.RestTimerSeconds, s.WeightUnit)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// GetSetgraphMappings returns all saved import mappings.
func (d *DB) GetSetgraphMappings(ctx context.Context) ([]models.SetgraphExerciseMapping, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT setgraph_name, exercise_id, needs_mapping FROM setgraph_mappings ORDER BY setgraph_name`)
	if err != nil {
		return nil, fmt.Errorf("querying setgraph mappings: %w", err)
	}
	defer rows.Close()

	var result []models.SetgraphExerciseMapping
	for rows.Next() {
		var m models.SetgraphExerciseMapping
		var id sql.NullString
		var needs int
		if err := rows.Scan(&m.SetgraphName, &id, &needs); err != nil {
			return nil, fmt.Errorf("scanning setgraph mapping: %w", err)
		}
		if id.Valid {
			m.ExerciseID = &id.String
		}
		m.NeedsMapping = needs != 0
		result = append(result, m)
	}
	return result, rows.Err()
}

// SaveSetgraphMappings upserts mappings by Setgraph name.
func (d *DB) SaveSetgraphMappings(ctx context.Context, mappings []models.SetgraphExerciseMapping) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning mapping save: %w", err)
	}
	defer tx.Rollback()

	for _, m := range mappings {
		var id any
		if m.ExerciseID != nil {
			id = *m.ExerciseID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO setgraph_mappings (setgraph_name, exercise_id, needs_mapping) VALUES (?,?,?)
			 ON CONFLICT (setgraph_name) DO UPDATE SET exercise_id = excluded.exercise_id,
			 needs_mapping = excluded.needs_mapping`,
			m.SetgraphName, id, boolInt(m.NeedsMapping))
		if err != nil {
			return fmt.Errorf("saving mapping %q: %w", m.SetgraphName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mappings: %w", err)
	}
	return nil
}
