package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

// GetSetgraphMappings returns all saved import mappings.
func (db *DB) GetSetgraphMappings(ctx context.Context) ([]models.SetgraphExerciseMapping, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT setgraph_name, exercise_id, needs_mapping FROM setgraph_mappings ORDER BY setgraph_name`)
	if err != nil {
		return nil, fmt.Errorf("querying setgraph mappings: %w", err)
	}
	defer rows.Close()

	var result []models.SetgraphExerciseMapping
	for rows.Next() {
		var m models.SetgraphExerciseMapping
		if err := rows.Scan(&m.SetgraphName, &m.ExerciseID, &m.NeedsMapping); err != nil {
			return nil, fmt.Errorf("scanning setgraph mapping: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// SaveSetgraphMappings upserts mappings by Setgraph name.
func (db *DB) SaveSetgraphMappings(ctx context.Context, mappings []models.SetgraphExerciseMapping) error {
	batch := &pgx.Batch{}
	for _, m := range mappings {
		batch.Queue(
			`INSERT INTO setgraph_mappings (setgraph_name, exercise_id, needs_mapping, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (setgraph_name) DO UPDATE SET exercise_id = EXCLUDED.exercise_id,
			 needs_mapping = EXCLUDED.needs_mapping, updated_at = now()`,
			m.SetgraphName, m.ExerciseID, m.NeedsMapping)
	}
	if err := db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving setgraph mappings: %w", err)
	}
	return nil
}
