package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

// GetUserSettings returns the saved settings, or the defaults when nothing
// has been saved.
func (db *DB) GetUserSettings(ctx context.Context) (models.UserSettings, error) {
	var s models.UserSettings
	err := db.Pool.QueryRow(ctx,
		`SELECT rest_timer_seconds, weight_unit FROM user_settings WHERE id = 1`,
	).Scan(&s.RestTimerSeconds, &s.WeightUnit)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultUserSettings(), nil
	}
	if err != nil {
		return models.UserSettings{}, fmt.Errorf("querying settings: %w", err)
	}
	return s.WithDefaults(), nil
}

// SaveUserSettings upserts the settings row.
func (db *DB) SaveUserSettings(ctx context.Context, s models.UserSettings) error {
	s = s.WithDefaults()
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO user_settings (id, rest_timer_seconds, weight_unit, updated_at) VALUES (1, $1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET rest_timer_seconds = EXCLUDED.rest_timer_seconds,
		 weight_unit = EXCLUDED.weight_unit, updated_at = now()`,
		s.RestTimerSeconds, s.WeightUnit)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
