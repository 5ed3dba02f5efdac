package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/timer"
)

type memStore struct {
	mu        sync.Mutex
	workouts  map[string]models.Workout
	sets      map[string]models.WorkoutSet
	templates map[string]models.Template
	history   map[string][]models.WorkoutSet
	settings  *models.UserSettings
	failSets  bool
}

func newMemStore() *memStore {
	return &memStore{
		workouts:  map[string]models.Workout{},
		sets:      map[string]models.WorkoutSet{},
		templates: map[string]models.Template{},
		history:   map[string][]models.WorkoutSet{},
	}
}

var errStore = errors.New("store down")

func (s *memStore) AddWorkout(_ context.Context, w models.Workout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workouts[w.ID] = w
	return nil
}

func (s *memStore) UpdateWorkout(_ context.Context, w models.Workout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workouts[w.ID]; !ok {
		return models.ErrNotFound
	}
	s.workouts[w.ID] = w
	return nil
}

func (s *memStore) AddSet(_ context.Context, ws models.WorkoutSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSets {
		return errStore
	}
	s.sets[ws.ID] = ws
	return nil
}

func (s *memStore) UpdateSet(_ context.Context, ws models.WorkoutSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSets {
		return errStore
	}
	s.sets[ws.ID] = ws
	return nil
}

func (s *memStore) DeleteSet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSets {
		return errStore
	}
	delete(s.sets, id)
	return nil
}

func (s *memStore) GetLastSetsForExercise(_ context.Context, exerciseID string, _ int) ([]models.WorkoutSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[exerciseID], nil
}

func (s *memStore) GetTemplateByID(_ context.Context, id string) (models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return models.Template{}, models.ErrNotFound
	}
	return t, nil
}

func (s *memStore) GetUserSettings(context.Context) (models.UserSettings, error) {
	if s.settings == nil {
		return models.DefaultUserSettings(), nil
	}
	return *s.settings, nil
}

type fakeHealth struct {
	calls    int
	calories float64
	err      error
}

func (h *fakeHealth) SaveWorkout(_ context.Context, _, _ time.Time, calories float64) (bool, error) {
	h.calls++
	h.calories = calories
	return h.err == nil, h.err
}

type fixture struct {
	m      *Manager
	store  *memStore
	health *fakeHealth
	timer  *timer.RestTimer
	sched  *timer.ManualScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	sched := timer.NewManualScheduler()
	rt := timer.New(timer.Options{Scheduler: sched, DefaultSeconds: 90})
	health := &fakeHealth{}
	m := NewManager(store, rt, health, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(m.Wait)
	return &fixture{m: m, store: store, health: health, timer: rt, sched: sched}
}

func (f *fixture) startWith(t *testing.T, exerciseIDs ...string) string {
	t.Helper()
	f.store.templates["tpl"] = models.Template{ID: "tpl", Name: "Test", ExerciseIDs: exerciseIDs}
	tpl := "tpl"
	id, err := f.m.StartWorkout(context.Background(), &tpl)
	if err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	return id
}

func (f *fixture) state(t *testing.T) *State {
	t.Helper()
	snap := f.m.Snapshot()
	if !snap.Active {
		t.Fatal("expected an active workout")
	}
	return snap.State
}

func current(st *State) string {
	if st.CurrentExerciseID == nil {
		return ""
	}
	return *st.CurrentExerciseID
}

func TestStartWorkoutFromTemplate(t *testing.T) {
	f := newFixture(t)
	f.store.history["a"] = []models.WorkoutSet{{ID: "old", ExerciseID: "a", Reps: 5}}

	id := f.startWith(t, "a", "b")
	st := f.state(t)

	if st.Workout.ID != id || st.Workout.CompletedAt != nil {
		t.Errorf("workout = %+v", st.Workout)
	}
	if _, ok := f.store.workouts[id]; !ok {
		t.Error("workout not persisted")
	}
	if !reflect.DeepEqual(st.ExerciseIDs, []string{"a", "b"}) || current(st) != "a" || st.CurrentExerciseIndex != 0 {
		t.Errorf("state = %+v", st)
	}
	if got := f.m.History("a"); len(got) != 1 || got[0].ID != "old" {
		t.Errorf("history = %+v, want preloaded set", got)
	}
}

func TestStartWorkoutUnknownTemplate(t *testing.T) {
	f := newFixture(t)
	missing := "missing"
	if _, err := f.m.StartWorkout(context.Background(), &missing); err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	st := f.state(t)
	if len(st.ExerciseIDs) != 0 || st.CurrentExerciseID != nil {
		t.Errorf("state = %+v, want empty sequence", st)
	}
}

func TestStartWorkoutReplacesActive(t *testing.T) {
	f := newFixture(t)
	first := f.startWith(t, "a")
	if _, err := f.m.LogSet(context.Background(), 5, 60, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	if !f.timer.State().IsRunning {
		t.Fatal("timer not running after LogSet")
	}
	second, err := f.m.StartWorkout(context.Background(), nil)
	if err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	if first == second {
		t.Fatal("expected a new workout id")
	}
	if f.store.workouts[first].CompletedAt != nil {
		t.Error("previous workout must not be auto-finished")
	}
	if f.timer.State().IsRunning {
		t.Error("previous rest timer still running")
	}
}

// TestLogSetStartsTimerWithDefault verifies that logging a set starts the
// rest timer using the configured duration.
func TestLogSetStartsTimerWithDefault(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a")

	set, err := f.m.LogSet(context.Background(), 8, 60, nil)
	if err != nil || set == nil {
		t.Fatalf("LogSet = %v, %v", set, err)
	}
	if set.ExerciseID != "a" {
		t.Errorf("exercise = %q, want current exercise a", set.ExerciseID)
	}
	ts := f.timer.State()
	if !ts.IsRunning || ts.TotalSeconds != models.DefaultRestTimerSeconds {
		t.Errorf("timer = %+v, want running with %d", ts, models.DefaultRestTimerSeconds)
	}
	if _, ok := f.store.sets[set.ID]; !ok {
		t.Error("set not persisted")
	}
}

func TestLogSetUsesConfiguredDuration(t *testing.T) {
	f := newFixture(t)
	f.store.settings = &models.UserSettings{RestTimerSeconds: 120, WeightUnit: models.WeightUnitKg}
	f.startWith(t, "a")

	if _, err := f.m.LogSet(context.Background(), 5, 100, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	if got := f.timer.State().TotalSeconds; got != 120 {
		t.Errorf("timer total = %d, want 120", got)
	}
}

func TestLogSetNoops(t *testing.T) {
	f := newFixture(t)
	if set, err := f.m.LogSet(context.Background(), 5, 50, nil); set != nil || err != nil {
		t.Errorf("idle LogSet = %v, %v", set, err)
	}

	if _, err := f.m.StartWorkout(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if set, err := f.m.LogSet(context.Background(), 5, 50, nil); set != nil || err != nil {
		t.Errorf("LogSet without exercise = %v, %v", set, err)
	}
	if f.timer.State().IsRunning {
		t.Error("timer started for a no-op LogSet")
	}
}

func TestLogSetValidation(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a")
	if _, err := f.m.LogSet(context.Background(), 0, 50, nil); !errors.Is(err, ErrInvalidSet) {
		t.Errorf("zero reps err = %v, want ErrInvalidSet", err)
	}
	if _, err := f.m.LogSet(context.Background(), 5, -1, nil); !errors.Is(err, ErrInvalidSet) {
		t.Errorf("negative weight err = %v, want ErrInvalidSet", err)
	}
}

// TestLogSetStoreFailureKeepsState verifies sets are persisted before they
// become visible.
func TestLogSetStoreFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a")
	f.store.failSets = true

	if _, err := f.m.LogSet(context.Background(), 5, 50, nil); !errors.Is(err, errStore) {
		t.Fatalf("err = %v, want store error", err)
	}
	if n := len(f.state(t).Sets); n != 0 {
		t.Errorf("sets = %d, want 0", n)
	}
}

func TestEditAndRemoveSet(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a")
	ctx := context.Background()
	set, _ := f.m.LogSet(ctx, 5, 50, nil)

	if err := f.m.EditSet(ctx, set.ID, 6, 52.5); err != nil {
		t.Fatalf("EditSet: %v", err)
	}
	got := f.m.GetSetsForExercise("a")
	if len(got) != 1 || got[0].Reps != 6 || got[0].Weight != 52.5 {
		t.Errorf("sets = %+v", got)
	}
	if f.store.sets[set.ID].Reps != 6 {
		t.Error("edit not persisted")
	}

	if err := f.m.EditSet(ctx, "nope", 1, 1); err != nil {
		t.Errorf("EditSet unknown id: %v", err)
	}

	if err := f.m.RemoveSet(ctx, set.ID); err != nil {
		t.Fatalf("RemoveSet: %v", err)
	}
	if len(f.m.GetSetsForExercise("a")) != 0 {
		t.Error("set still in memory")
	}
	if _, ok := f.store.sets[set.ID]; ok {
		t.Error("set still in store")
	}
}

func TestFinishWorkout(t *testing.T) {
	f := newFixture(t)
	id := f.startWith(t, "a")
	ctx := context.Background()
	f.m.LogSet(ctx, 5, 50, nil)
	f.m.LogSet(ctx, 5, 50, nil)

	w, err := f.m.FinishWorkout(ctx)
	if err != nil {
		t.Fatalf("FinishWorkout: %v", err)
	}
	if w == nil || w.CompletedAt == nil || w.CompletedAt.Before(w.StartedAt) {
		t.Fatalf("finished workout = %+v", w)
	}
	if f.store.workouts[id].CompletedAt == nil {
		t.Error("completion not persisted")
	}
	if f.health.calls != 1 || f.health.calories != 10 {
		t.Errorf("health calls = %d calories = %v, want 1 and 10", f.health.calls, f.health.calories)
	}
	if f.m.Snapshot().Active {
		t.Error("state not cleared")
	}
	if f.timer.State().IsRunning {
		t.Error("timer still running")
	}
}

func TestFinishWorkoutHealthFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.health.err = errors.New("health unavailable")
	f.startWith(t, "a")

	if _, err := f.m.FinishWorkout(context.Background()); err != nil {
		t.Fatalf("FinishWorkout: %v", err)
	}
	if f.m.Snapshot().Active {
		t.Error("state not cleared")
	}
}

func TestCancelWorkoutKeepsRecord(t *testing.T) {
	f := newFixture(t)
	id := f.startWith(t, "a")
	ctx := context.Background()
	set, _ := f.m.LogSet(ctx, 5, 50, nil)

	f.m.CancelWorkout()

	if f.m.Snapshot().Active {
		t.Error("state not cleared")
	}
	w, ok := f.store.workouts[id]
	if !ok || w.CompletedAt != nil {
		t.Errorf("stored workout = %+v, want present and incomplete", w)
	}
	if _, ok := f.store.sets[set.ID]; !ok {
		t.Error("logged set was deleted")
	}
	if f.timer.State().IsRunning {
		t.Error("timer still running")
	}
	if f.health.calls != 0 {
		t.Error("cancel must not forward to health")
	}
}

func TestIdleOperationsAreNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if w, err := f.m.FinishWorkout(ctx); w != nil || err != nil {
		t.Errorf("FinishWorkout = %v, %v", w, err)
	}
	f.m.CancelWorkout()
	f.m.SetCurrentExercise("a")
	f.m.AddExerciseToWorkout("a")
	f.m.RemoveExerciseFromWorkout("a")
	f.m.ReorderExercises([]string{"a"})
	f.m.SwapExercise("a", "b")
	if err := f.m.SwitchTemplate(ctx, "tpl"); err != nil {
		t.Error(err)
	}
	if err := f.m.RemoveSet(ctx, "x"); err != nil {
		t.Error(err)
	}
	if err := f.m.EditSet(ctx, "x", 1, 1); err != nil {
		t.Error(err)
	}
	if got := f.m.GetSetsForExercise("a"); len(got) != 0 {
		t.Errorf("sets = %v", got)
	}
	if f.m.Snapshot().Active {
		t.Error("idle manager became active")
	}
}

func TestSetCurrentExercise(t *testing.T) {
	f := newFixture(t)
	f.store.history["c"] = []models.WorkoutSet{{ID: "hist-c", ExerciseID: "c"}}
	f.startWith(t, "a", "b", "c")

	f.m.SetCurrentExercise("c")
	f.m.Wait()

	st := f.state(t)
	if current(st) != "c" || st.CurrentExerciseIndex != 2 {
		t.Errorf("current = %q @ %d, want c @ 2", current(st), st.CurrentExerciseIndex)
	}
	if got := f.m.History("c"); len(got) != 1 {
		t.Errorf("history = %v, want refreshed", got)
	}

	f.m.SetCurrentExercise("zzz")
	if current(f.state(t)) != "c" {
		t.Error("unknown exercise moved the pointer")
	}
}

// TestRemoveLastExercise verifies removing the only exercise empties the
// sequence and clears the pointer.
func TestRemoveLastExercise(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a")

	f.m.RemoveExerciseFromWorkout("a")

	st := f.state(t)
	if len(st.ExerciseIDs) != 0 || st.CurrentExerciseID != nil || st.CurrentExerciseIndex != 0 {
		t.Errorf("state = ids %v current %v index %d, want [] nil 0", st.ExerciseIDs, st.CurrentExerciseID, st.CurrentExerciseIndex)
	}
}

func TestRemoveExerciseReclamps(t *testing.T) {
	tests := []struct {
		name        string
		current     string
		remove      string
		wantIDs     []string
		wantCurrent string
		wantIndex   int
	}{
		{"remove current in middle", "b", "b", []string{"a", "c"}, "c", 1},
		{"remove current at end", "c", "c", []string{"a", "b"}, "b", 1},
		{"remove before current", "c", "a", []string{"b", "c"}, "c", 1},
		{"remove after current", "a", "c", []string{"a", "b"}, "a", 0},
		{"remove unknown", "b", "x", []string{"a", "b", "c"}, "b", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.startWith(t, "a", "b", "c")
			f.m.SetCurrentExercise(tt.current)

			f.m.RemoveExerciseFromWorkout(tt.remove)

			st := f.state(t)
			if !reflect.DeepEqual(st.ExerciseIDs, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", st.ExerciseIDs, tt.wantIDs)
			}
			if current(st) != tt.wantCurrent || st.CurrentExerciseIndex != tt.wantIndex {
				t.Errorf("current = %q @ %d, want %q @ %d", current(st), st.CurrentExerciseIndex, tt.wantCurrent, tt.wantIndex)
			}
		})
	}
}

func TestAddExerciseToEmptyWorkout(t *testing.T) {
	f := newFixture(t)
	if _, err := f.m.StartWorkout(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	f.m.AddExerciseToWorkout("a")
	f.m.AddExerciseToWorkout("b")
	f.m.AddExerciseToWorkout("a")

	st := f.state(t)
	if !reflect.DeepEqual(st.ExerciseIDs, []string{"a", "b"}) || current(st) != "a" {
		t.Errorf("state = %v current %q", st.ExerciseIDs, current(st))
	}
}

func TestReorderExercises(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a", "b", "c")
	f.m.SetCurrentExercise("b")

	f.m.ReorderExercises([]string{"c", "a", "b"})
	st := f.state(t)
	if current(st) != "b" || st.CurrentExerciseIndex != 2 {
		t.Errorf("current = %q @ %d, want b @ 2", current(st), st.CurrentExerciseIndex)
	}

	f.m.ReorderExercises([]string{"c", "a"})
	st = f.state(t)
	if st.CurrentExerciseIndex != 0 || current(st) != "c" {
		t.Errorf("current = %q @ %d, want fallback to c @ 0", current(st), st.CurrentExerciseIndex)
	}
}

func TestSwitchTemplate(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a", "b", "c")
	ctx := context.Background()
	f.m.SetCurrentExercise("b")
	f.m.LogSet(ctx, 5, 50, nil)
	f.store.templates["pull"] = models.Template{ID: "pull", ExerciseIDs: []string{"d", "b", "e"}}

	if err := f.m.SwitchTemplate(ctx, "pull"); err != nil {
		t.Fatalf("SwitchTemplate: %v", err)
	}
	st := f.state(t)
	if want := []string{"b", "d", "e"}; !reflect.DeepEqual(st.ExerciseIDs, want) {
		t.Errorf("ids = %v, want %v", st.ExerciseIDs, want)
	}
	if current(st) != "b" || st.CurrentExerciseIndex != 0 {
		t.Errorf("current = %q @ %d, want b @ 0", current(st), st.CurrentExerciseIndex)
	}

	if err := f.m.SwitchTemplate(ctx, "missing"); err != nil {
		t.Errorf("unknown template: %v", err)
	}
	if got := f.state(t).ExerciseIDs; !reflect.DeepEqual(got, []string{"b", "d", "e"}) {
		t.Errorf("unknown template changed ids to %v", got)
	}
}

// TestSwapExercisePreservesPosition verifies the substitution happens in place.
func TestSwapExercisePreservesPosition(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a", "b", "c", "d")
	ctx := context.Background()
	f.m.SetCurrentExercise("c")
	set, _ := f.m.LogSet(ctx, 5, 50, nil)

	f.m.SwapExercise("c", "x")

	st := f.state(t)
	if want := []string{"a", "b", "x", "d"}; !reflect.DeepEqual(st.ExerciseIDs, want) {
		t.Errorf("ids = %v, want %v", st.ExerciseIDs, want)
	}
	if current(st) != "x" || st.CurrentExerciseIndex != 2 {
		t.Errorf("current = %q @ %d, want x @ 2", current(st), st.CurrentExerciseIndex)
	}
	if got := f.m.GetSetsForExercise("c"); len(got) != 1 || got[0].ID != set.ID {
		t.Errorf("sets under c = %v, want the logged set kept", got)
	}
}

func TestSwapExerciseNotCurrent(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a", "b")

	f.m.SwapExercise("b", "x")
	f.m.SwapExercise("missing", "y")
	f.m.SwapExercise("a", "x")

	st := f.state(t)
	if !reflect.DeepEqual(st.ExerciseIDs, []string{"a", "x"}) || current(st) != "a" {
		t.Errorf("state = %v current %q", st.ExerciseIDs, current(st))
	}
}

// TestStaleHistoryDiscarded verifies a refresh finishing after the workout
// ended does not repopulate the cache.
func TestStaleHistoryDiscarded(t *testing.T) {
	f := newFixture(t)
	f.store.history["b"] = []models.WorkoutSet{{ID: "h"}}
	f.startWith(t, "a", "b")

	f.store.mu.Lock()
	f.m.SetCurrentExercise("b")
	f.m.CancelWorkout()
	f.store.mu.Unlock()
	f.m.Wait()

	if got := f.m.History("b"); len(got) != 0 {
		t.Errorf("history = %v, want empty after cancel", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	f := newFixture(t)
	f.startWith(t, "a", "b")
	st := f.state(t)
	st.ExerciseIDs[0] = "mutated"
	if f.state(t).ExerciseIDs[0] != "a" {
		t.Error("Snapshot exposed internal slice")
	}
}
