package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// DataSource is the read side of the store used by MCP tools.
type DataSource interface {
	GetExercises(ctx context.Context) ([]models.Exercise, error)
	ListWorkouts(ctx context.Context, start, end time.Time) ([]storage.WorkoutSummary, error)
	GetWorkoutByID(ctx context.Context, id string) (models.Workout, error)
	GetSetsByWorkoutID(ctx context.Context, workoutID string) ([]models.WorkoutSet, error)
	GetTrainingVolume(ctx context.Context, start, end time.Time, bucket string) ([]storage.VolumePeriod, error)
	QuerySleepSessions(ctx context.Context, start, end time.Time) ([]models.SleepSessionRow, error)
	GetNutritionDaily(ctx context.Context, metrics []string, start, end time.Time) ([]storage.NutritionDay, error)
	QueryHealthMetrics(ctx context.Context, metricName string, start, end time.Time) ([]models.HealthMetricRow, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
