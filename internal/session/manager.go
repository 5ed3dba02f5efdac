// Package session manages the single live workout: the exercise sequence and
// pointer, logged sets, and the rest timer that follows each set.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/timer"
	"github.com/google/uuid"
)

const (
	// CaloriesPerSet is the rough energy estimate forwarded on finish.
	CaloriesPerSet = 5

	defaultHistoryLimit = 10
	historyTimeout      = 10 * time.Second
)

// ErrInvalidSet is returned when reps or weight are out of range.
var ErrInvalidSet = errors.New("invalid set")

// Store is the persistence the session manager needs.
type Store interface {
	AddWorkout(ctx context.Context, w models.Workout) error
	UpdateWorkout(ctx context.Context, w models.Workout) error
	AddSet(ctx context.Context, s models.WorkoutSet) error
	UpdateSet(ctx context.Context, s models.WorkoutSet) error
	DeleteSet(ctx context.Context, id string) error
	GetLastSetsForExercise(ctx context.Context, exerciseID string, limit int) ([]models.WorkoutSet, error)
	GetTemplateByID(ctx context.Context, id string) (models.Template, error)
	GetUserSettings(ctx context.Context) (models.UserSettings, error)
}

// HealthRecorder receives finished workouts. Failures never fail a finish.
type HealthRecorder interface {
	SaveWorkout(ctx context.Context, start, end time.Time, calories float64) (bool, error)
}

// RestTimer is the countdown started after each logged set.
type RestTimer interface {
	Start(seconds int)
	Stop()
	State() timer.State
}

// State is the in-memory view of the active workout.
type State struct {
	Workout              models.Workout      `json:"workout"`
	Sets                 []models.WorkoutSet `json:"sets"`
	CurrentExerciseID    *string             `json:"current_exercise_id"`
	CurrentExerciseIndex int                 `json:"current_exercise_index"`
	ExerciseIDs          []string            `json:"exercise_ids"`
}

func (s *State) clone() *State {
	c := *s
	c.Sets = slices.Clone(s.Sets)
	c.ExerciseIDs = slices.Clone(s.ExerciseIDs)
	if s.CurrentExerciseID != nil {
		id := *s.CurrentExerciseID
		c.CurrentExerciseID = &id
	}
	if c.Sets == nil {
		c.Sets = []models.WorkoutSet{}
	}
	if c.ExerciseIDs == nil {
		c.ExerciseIDs = []string{}
	}
	return &c
}

func (s *State) indexOf(exerciseID string) int {
	return slices.Index(s.ExerciseIDs, exerciseID)
}

// point moves the current pointer to index i, or clears it when the
// sequence is empty.
func (s *State) point(i int) {
	if len(s.ExerciseIDs) == 0 {
		s.CurrentExerciseID = nil
		s.CurrentExerciseIndex = 0
		return
	}
	i = max(0, min(i, len(s.ExerciseIDs)-1))
	id := s.ExerciseIDs[i]
	s.CurrentExerciseID = &id
	s.CurrentExerciseIndex = i
}

// relocate recomputes the index of the current exercise after the sequence
// changed, falling back to the first exercise.
func (s *State) relocate() {
	if s.CurrentExerciseID != nil {
		if i := s.indexOf(*s.CurrentExerciseID); i >= 0 {
			s.CurrentExerciseIndex = i
			return
		}
	}
	if s.CurrentExerciseID == nil {
		s.CurrentExerciseIndex = 0
		return
	}
	s.point(0)
}

func (s *State) hasSets(exerciseID string) bool {
	return slices.ContainsFunc(s.Sets, func(ws models.WorkoutSet) bool { return ws.ExerciseID == exerciseID })
}

// Snapshot is the active state plus timer, as served to clients.
type Snapshot struct {
	Active bool        `json:"active"`
	State  *State      `json:"state,omitempty"`
	Timer  timer.State `json:"timer"`
}

// Manager owns at most one active workout. All methods are safe for
// concurrent use; operations on an idle manager are no-ops.
type Manager struct {
	store  Store
	timer  RestTimer
	health HealthRecorder
	log    *slog.Logger

	now          func() time.Time
	newID        func() string
	historyLimit int

	mu      sync.Mutex
	active  *State
	gen     uint64
	history map[string][]models.WorkoutSet
	pending sync.WaitGroup
}

// NewManager creates an idle manager. health may be nil.
func NewManager(store Store, t RestTimer, health HealthRecorder, log *slog.Logger) *Manager {
	return &Manager{
		store:        store,
		timer:        t,
		health:       health,
		log:          log,
		now:          time.Now,
		newID:        uuid.NewString,
		historyLimit: defaultHistoryLimit,
		history:      make(map[string][]models.WorkoutSet),
	}
}

// StartWorkout creates and persists a new workout and makes it active. An
// existing active workout is replaced without being finished and its rest
// timer is stopped. An unknown
// template starts an empty workout.
func (m *Manager) StartWorkout(ctx context.Context, templateID *string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := models.Workout{ID: m.newID(), StartedAt: m.now()}
	if templateID != nil && *templateID != "" {
		id := *templateID
		w.TemplateID = &id
	}
	if err := m.store.AddWorkout(ctx, w); err != nil {
		return "", fmt.Errorf("creating workout: %w", err)
	}

	exerciseIDs := []string{}
	if w.TemplateID != nil {
		tpl, err := m.store.GetTemplateByID(ctx, *w.TemplateID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			m.log.Warn("template not found, starting empty workout", "template_id", *w.TemplateID)
		case err != nil:
			m.log.Error("loading template", "template_id", *w.TemplateID, "error", err)
		default:
			exerciseIDs = slices.Clone(tpl.ExerciseIDs)
		}
	}

	history := make(map[string][]models.WorkoutSet)
	if len(exerciseIDs) > 0 {
		sets, err := m.store.GetLastSetsForExercise(ctx, exerciseIDs[0], m.historyLimit)
		if err != nil {
			m.log.Warn("loading exercise history", "exercise_id", exerciseIDs[0], "error", err)
		} else {
			history[exerciseIDs[0]] = sets
		}
	}

	st := &State{Workout: w, Sets: []models.WorkoutSet{}, ExerciseIDs: exerciseIDs}
	st.point(0)

	if m.active != nil {
		m.timer.Stop()
	}
	m.gen++
	m.active = st
	m.history = history
	m.log.Info("workout started", "workout_id", w.ID, "exercises", len(exerciseIDs))
	return w.ID, nil
}

// FinishWorkout marks the active workout completed and forwards a summary to
// the health recorder. A failed forward is logged only.
func (m *Manager) FinishWorkout(ctx context.Context) (*models.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, nil
	}

	w := m.active.Workout
	completed := m.now()
	if completed.Before(w.StartedAt) {
		completed = w.StartedAt
	}
	w.CompletedAt = &completed
	if err := m.store.UpdateWorkout(ctx, w); err != nil {
		return nil, fmt.Errorf("completing workout %s: %w", w.ID, err)
	}

	if m.health != nil {
		calories := float64(CaloriesPerSet * len(m.active.Sets))
		ok, err := m.health.SaveWorkout(ctx, w.StartedAt, completed, calories)
		switch {
		case err != nil:
			m.log.Warn("forwarding workout to health store", "workout_id", w.ID, "error", err)
		case !ok:
			m.log.Info("health store declined workout", "workout_id", w.ID)
		}
	}

	m.clearLocked()
	m.log.Info("workout finished", "workout_id", w.ID, "duration", w.Duration())
	return &w, nil
}

// CancelWorkout drops the active state without completing the workout. The
// workout and its sets stay in storage as an incomplete record.
func (m *Manager) CancelWorkout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	id := m.active.Workout.ID
	m.clearLocked()
	m.log.Info("workout cancelled", "workout_id", id)
}

func (m *Manager) clearLocked() {
	m.active = nil
	m.gen++
	m.history = make(map[string][]models.WorkoutSet)
	m.timer.Stop()
}

// LogSet records a set for exerciseID, or for the current exercise when
// exerciseID is nil, and starts the rest timer with the configured duration.
// It returns nil when there is no active workout or no exercise to log to.
func (m *Manager) LogSet(ctx context.Context, reps int, weight float64, exerciseID *string) (*models.WorkoutSet, error) {
	if err := validateSet(reps, weight); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, nil
	}

	var target string
	switch {
	case exerciseID != nil && *exerciseID != "":
		target = *exerciseID
	case m.active.CurrentExerciseID != nil:
		target = *m.active.CurrentExerciseID
	default:
		return nil, nil
	}

	set := models.WorkoutSet{
		ID:         m.newID(),
		WorkoutID:  m.active.Workout.ID,
		ExerciseID: target,
		Reps:       reps,
		Weight:     weight,
		LoggedAt:   m.now(),
	}
	if err := m.store.AddSet(ctx, set); err != nil {
		return nil, fmt.Errorf("saving set: %w", err)
	}
	m.active.Sets = append(m.active.Sets, set)

	m.timer.Start(m.restSeconds(ctx))
	return &set, nil
}

func (m *Manager) restSeconds(ctx context.Context) int {
	settings, err := m.store.GetUserSettings(ctx)
	if err != nil {
		m.log.Warn("loading settings for rest timer", "error", err)
		return 0
	}
	return settings.WithDefaults().RestTimerSeconds
}

// RemoveSet deletes a set of the active workout. Unknown ids are ignored.
func (m *Manager) RemoveSet(ctx context.Context, setID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	i := slices.IndexFunc(m.active.Sets, func(s models.WorkoutSet) bool { return s.ID == setID })
	if i < 0 {
		return nil
	}
	if err := m.store.DeleteSet(ctx, setID); err != nil {
		return fmt.Errorf("deleting set %s: %w", setID, err)
	}
	m.active.Sets = slices.Delete(m.active.Sets, i, i+1)
	return nil
}

// EditSet changes the reps and weight of a set. Unknown ids are ignored.
func (m *Manager) EditSet(ctx context.Context, setID string, reps int, weight float64) error {
	if err := validateSet(reps, weight); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	i := slices.IndexFunc(m.active.Sets, func(s models.WorkoutSet) bool { return s.ID == setID })
	if i < 0 {
		return nil
	}
	updated := m.active.Sets[i]
	updated.Reps = reps
	updated.Weight = weight
	if err := m.store.UpdateSet(ctx, updated); err != nil {
		return fmt.Errorf("updating set %s: %w", setID, err)
	}
	m.active.Sets[i] = updated
	return nil
}

func validateSet(reps int, weight float64) error {
	if reps <= 0 {
		return fmt.Errorf("%w: reps must be positive, got %d", ErrInvalidSet, reps)
	}
	if weight < 0 {
		return fmt.Errorf("%w: weight must not be negative, got %g", ErrInvalidSet, weight)
	}
	return nil
}

// SetCurrentExercise moves the pointer to an exercise already in the
// sequence and refreshes its history in the background.
func (m *Manager) SetCurrentExercise(exerciseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	i := m.active.indexOf(exerciseID)
	if i < 0 {
		return
	}
	m.active.point(i)
	m.refreshHistoryLocked(exerciseID)
}

// AddExerciseToWorkout appends an exercise. The first exercise added to an
// empty sequence becomes current.
func (m *Manager) AddExerciseToWorkout(exerciseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || exerciseID == "" || m.active.indexOf(exerciseID) >= 0 {
		return
	}
	m.active.ExerciseIDs = append(m.active.ExerciseIDs, exerciseID)
	if m.active.CurrentExerciseID == nil {
		m.active.point(len(m.active.ExerciseIDs) - 1)
		m.refreshHistoryLocked(exerciseID)
	}
}

// RemoveExerciseFromWorkout drops an exercise from the sequence. Removing the
// current exercise moves the pointer to min(index, len-1). Logged sets are
// kept.
func (m *Manager) RemoveExerciseFromWorkout(exerciseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	st := m.active
	i := st.indexOf(exerciseID)
	if i < 0 {
		return
	}
	st.ExerciseIDs = slices.Delete(st.ExerciseIDs, i, i+1)

	if st.CurrentExerciseID != nil && *st.CurrentExerciseID == exerciseID {
		st.point(st.CurrentExerciseIndex)
		if st.CurrentExerciseID != nil {
			m.refreshHistoryLocked(*st.CurrentExerciseID)
		}
		return
	}
	st.relocate()
}

// ReorderExercises replaces the sequence and relocates the current exercise,
// falling back to index 0 when it is no longer present.
func (m *Manager) ReorderExercises(newOrder []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	m.active.ExerciseIDs = slices.Clone(newOrder)
	if m.active.ExerciseIDs == nil {
		m.active.ExerciseIDs = []string{}
	}
	m.active.relocate()
}

// SwitchTemplate rebuilds the sequence from another template. Exercises that
// already have sets in this workout stay in place; the template's remaining
// exercises follow in template order. Unknown templates are ignored.
func (m *Manager) SwitchTemplate(ctx context.Context, templateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	tpl, err := m.store.GetTemplateByID(ctx, templateID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading template %s: %w", templateID, err)
	}

	st := m.active
	next := []string{}
	for _, id := range st.ExerciseIDs {
		if st.hasSets(id) {
			next = append(next, id)
		}
	}
	for _, s := range st.Sets {
		if !slices.Contains(next, s.ExerciseID) {
			next = append(next, s.ExerciseID)
		}
	}
	for _, id := range tpl.ExerciseIDs {
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}

	prev := st.CurrentExerciseID
	st.ExerciseIDs = next
	st.relocate()
	if prev == nil && len(next) > 0 {
		st.point(0)
	}
	if st.CurrentExerciseID != nil && (prev == nil || *prev != *st.CurrentExerciseID) {
		m.refreshHistoryLocked(*st.CurrentExerciseID)
	}
	return nil
}

// SwapExercise substitutes newID for oldID at the same position. Sets already
// logged under oldID keep their exercise.
func (m *Manager) SwapExercise(oldID, newID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || newID == "" {
		return
	}
	st := m.active
	i := st.indexOf(oldID)
	if i < 0 || st.indexOf(newID) >= 0 {
		return
	}
	st.ExerciseIDs[i] = newID
	if st.CurrentExerciseID != nil && *st.CurrentExerciseID == oldID {
		st.point(i)
	}
	m.refreshHistoryLocked(newID)
}

// GetSetsForExercise returns the sets logged for exerciseID in this workout.
func (m *Manager) GetSetsForExercise(exerciseID string) []models.WorkoutSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WorkoutSet{}
	if m.active == nil {
		return out
	}
	for _, s := range m.active.Sets {
		if s.ExerciseID == exerciseID {
			out = append(out, s)
		}
	}
	return out
}

// Snapshot returns a copy of the active state and the timer.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{Timer: m.timer.State()}
	if m.active != nil {
		snap.Active = true
		snap.State = m.active.clone()
	}
	return snap
}

// History returns the cached previous sets for an exercise.
func (m *Manager) History(exerciseID string) []models.WorkoutSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history[exerciseID])
}

// Wait blocks until background history refreshes have finished.
func (m *Manager) Wait() {
	m.pending.Wait()
}

func (m *Manager) refreshHistoryLocked(exerciseID string) {
	gen := m.gen
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()

		sets, err := m.store.GetLastSetsForExercise(ctx, exerciseID, m.historyLimit)
		if err != nil {
			m.log.Warn("refreshing exercise history", "exercise_id", exerciseID, "error", err)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen != gen || m.active == nil {
			return
		}
		m.history[exerciseID] = sets
	}()
}
