// Package health is the bridge to device health data: it records finished
// workouts and accepts nutrition and sleep samples for analytics.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

const (
	// WorkoutName labels forwarded strength sessions.
	WorkoutName = "Traditional Strength Training"
	// Source tags rows written by LiftLog itself.
	Source = "LiftLog"

	MetricActiveEnergy = "active_energy"
)

// ErrDisabled is returned by Initialize when health forwarding is turned off.
var ErrDisabled = errors.New("health forwarding disabled")

// Store persists health rows.
type Store interface {
	Ping(ctx context.Context) error
	InsertHealthWorkout(ctx context.Context, row models.HealthWorkoutRow) error
	InsertHealthMetrics(ctx context.Context, rows []models.HealthMetricRow) (int64, error)
	InsertSleepSession(ctx context.Context, row models.SleepSessionRow) error
}

// Recorder forwards finished workouts to the health store. It must be
// initialized before use; Initialize runs its check once and caches the
// outcome for the life of the process.
type Recorder struct {
	store   Store
	enabled bool
	log     *slog.Logger

	mu          sync.Mutex
	initialized bool
	ready       bool
	initErr     error
}

// NewRecorder creates a Recorder. A disabled recorder accepts nothing.
func NewRecorder(store Store, enabled bool, log *slog.Logger) *Recorder {
	return &Recorder{store: store, enabled: enabled, log: log}
}

// Initialize checks the health store once. Later calls return the cached
// result without touching the store.
func (r *Recorder) Initialize(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return r.ready, r.initErr
	}
	r.initialized = true

	if !r.enabled {
		r.initErr = ErrDisabled
		return false, r.initErr
	}
	if err := r.store.Ping(ctx); err != nil {
		r.initErr = fmt.Errorf("checking health store: %w", err)
		r.log.Warn("health store unavailable", "error", err)
		return false, r.initErr
	}
	r.ready = true
	return true, nil
}

// SaveWorkout records a finished workout and its energy estimate. It returns
// false when forwarding is disabled or unavailable.
func (r *Recorder) SaveWorkout(ctx context.Context, start, end time.Time, calories float64) (bool, error) {
	ok, err := r.Initialize(ctx)
	if errors.Is(err, ErrDisabled) {
		return false, nil
	}
	if !ok {
		return false, err
	}
	if end.Before(start) {
		return false, fmt.Errorf("workout ends before it starts: %s < %s", end, start)
	}

	row := models.HealthWorkoutRow{
		ID:                 uuid.NewString(),
		Name:               WorkoutName,
		StartTime:          start,
		EndTime:            end,
		DurationSec:        end.Sub(start).Seconds(),
		ActiveEnergyBurned: calories,
		ActiveEnergyUnits:  "kcal",
	}
	if err := r.store.InsertHealthWorkout(ctx, row); err != nil {
		return false, fmt.Errorf("saving health workout: %w", err)
	}

	energy := models.HealthMetricRow{
		Time:       end,
		MetricName: MetricActiveEnergy,
		Source:     Source,
		Units:      "kcal",
		Qty:        calories,
	}
	if _, err := r.store.InsertHealthMetrics(ctx, []models.HealthMetricRow{energy}); err != nil {
		r.log.Warn("saving active energy sample", "error", err)
	}
	return true, nil
}
