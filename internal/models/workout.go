package models

import "time"

// Workout is one training session. CompletedAt stays nil for an active or
// cancelled session.
type Workout struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	TemplateID  *string    `json:"template_id,omitempty"`
}

// Duration returns the elapsed time between start and completion, or zero
// for an incomplete workout.
func (w Workout) Duration() time.Duration {
	if w.CompletedAt == nil {
		return 0
	}
	return w.CompletedAt.Sub(w.StartedAt)
}

// WorkoutSet is a single logged set.
type WorkoutSet struct {
	ID         string    `json:"id"`
	WorkoutID  string    `json:"workout_id"`
	ExerciseID string    `json:"exercise_id"`
	Reps       int       `json:"reps"`
	Weight     float64   `json:"weight"`
	LoggedAt   time.Time `json:"logged_at"`
}

// Template is a named default exercise ordering for starting a workout.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	LocationID  string   `json:"location_id,omitempty"`
	ExerciseIDs []string `json:"exercise_ids"`
}

// Weight units accepted in UserSettings.
const (
	WeightUnitKg = "kg"
	WeightUnitLb = "lb"
)

// DefaultRestTimerSeconds is used when the user never configured a rest duration.
const DefaultRestTimerSeconds = 90

// UserSettings holds the single user's preferences.
type UserSettings struct {
	RestTimerSeconds int    `json:"rest_timer_seconds"`
	WeightUnit       string `json:"weight_unit"`
}

// DefaultUserSettings returns the settings used before anything is saved.
func DefaultUserSettings() UserSettings {
	return UserSettings{RestTimerSeconds: DefaultRestTimerSeconds, WeightUnit: WeightUnitKg}
}

// WithDefaults fills zero fields from DefaultUserSettings.
func (s UserSettings) WithDefaults() UserSettings {
	d := DefaultUserSettings()
	if s.RestTimerSeconds <= 0 {
		s.RestTimerSeconds = d.RestTimerSeconds
	}
	if s.WeightUnit != WeightUnitKg && s.WeightUnit != WeightUnitLb {
		s.WeightUnit = d.WeightUnit
	}
	return s
}
