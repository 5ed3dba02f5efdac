package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// InsertHealthMetrics batch-inserts health metric rows. Returns the number actually inserted
// (skipped duplicates via ON CONFLICT DO NOTHING).
func (db *DB) InsertHealthMetrics(ctx context.Context, rows []models.HealthMetricRow) (int64, error) {
	const cols = 5
	var total int64
	for start := 0; start < len(rows); start += chunkSize(cols) {
		chunk := rows[start:min(start+chunkSize(cols), len(rows))]

		query := `INSERT INTO health_metrics (time, metric_name, source, units, qty) VALUES `
		args := make([]any, 0, len(chunk)*cols)
		valueStrings := make([]string, 0, len(chunk))
		for i, r := range chunk {
			base := i * cols
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5,
			))
			args = append(args, r.Time, r.MetricName, r.Source, r.Units, r.Qty)
		}
		query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

		tag, err := db.Pool.Exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("inserting health metrics: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// QueryHealthMetrics retrieves health metrics by name and time range.
func (db *DB) QueryHealthMetrics(ctx context.Context, metricName string, start, end time.Time) ([]models.HealthMetricRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT time, metric_name, source, units, qty
		 FROM health_metrics
		 WHERE metric_name = $1 AND time >= $2 AND time < $3
		 ORDER BY time ASC`,
		metricName, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying health metrics: %w", err)
	}
	defer rows.Close()

	var result []models.HealthMetricRow
	for rows.Next() {
		var r models.HealthMetricRow
		if err := rows.Scan(&r.Time, &r.MetricName, &r.Source, &r.Units, &r.Qty); err != nil {
			return nil, fmt.Errorf("scanning health metric row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// InsertHealthWorkout stores a workout forwarded to the health store.
func (db *DB) InsertHealthWorkout(ctx context.Context, row models.HealthWorkoutRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO health_workouts (id, name, start_time, end_time, duration_sec,
		 active_energy_burned, active_energy_units)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT DO NOTHING`,
		row.ID, row.Name, row.StartTime, row.EndTime, row.DurationSec,
		row.ActiveEnergyBurned, row.ActiveEnergyUnits)
	if err != nil {
		return fmt.Errorf("inserting health workout: %w", err)
	}
	return nil
}

// NutritionDay holds the summed nutrition metrics for one calendar day.
type NutritionDay struct {
	Date   string             `json:"date"`
	Totals map[string]float64 `json:"totals"`
	Units  map[string]string  `json:"units"`
}

// GetNutritionDaily sums each named metric per UTC day in [start, end),
// newest day first.
func (db *DB) GetNutritionDaily(ctx context.Context, metrics []string, start, end time.Time) ([]NutritionDay, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT (time AT TIME ZONE 'UTC')::date AS day, metric_name, MAX(units), SUM(qty)
		 FROM health_metrics
		 WHERE metric_name = ANY($1) AND time >= $2 AND time < $3
		 GROUP BY day, metric_name
		 ORDER BY day DESC, metric_name`,
		metrics, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying nutrition: %w", err)
	}
	defer rows.Close()

	var result []NutritionDay
	index := map[string]int{}
	for rows.Next() {
		var day time.Time
		var name, units string
		var sum float64
		if err := rows.Scan(&day, &name, &units, &sum); err != nil {
			return nil, fmt.Errorf("scanning nutrition: %w", err)
		}
		key := day.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(result)
			index[key] = i
			result = append(result, NutritionDay{Date: key, Totals: map[string]float64{}, Units: map[string]string{}})
		}
		result[i].Totals[name] = sum
		result[i].Units[name] = units
	}
	return result, rows.Err()
}
