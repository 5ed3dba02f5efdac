package localdb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/health"
	"github.com/claude/liftlog/internal/ingest/setgraph"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/timer"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openSeeded(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	if _, err := db.SeedExercises(context.Background(), cat.All()); err != nil {
		t.Fatalf("SeedExercises: %v", err)
	}
	return db
}

func TestSeedExercisesIdempotent(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	cat, _ := catalog.Load()

	n, err := db.SeedExercises(ctx, cat.All())
	if err != nil || n != 0 {
		t.Fatalf("second seed = %d, %v, want 0", n, err)
	}

	got, err := db.GetExercises(ctx)
	if err != nil {
		t.Fatalf("GetExercises: %v", err)
	}
	if len(got) != cat.Len() {
		t.Fatalf("exercises = %d, want %d", len(got), cat.Len())
	}
	if got[0].ID != cat.All()[0].ID {
		t.Errorf("first exercise = %s, want catalog order", got[0].ID)
	}
	if len(got[0].PrimaryMuscleGroups) == 0 {
		t.Error("muscle groups not decoded")
	}
}

func TestOpenFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "liftlog.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNotFound(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	if _, err := db.GetTemplateByID(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetTemplateByID err = %v, want ErrNotFound", err)
	}
	if _, err := db.GetExerciseByID(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetExerciseByID err = %v, want ErrNotFound", err)
	}
	if err := db.UpdateWorkout(ctx, models.Workout{ID: "missing", StartedAt: time.Now()}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("UpdateWorkout err = %v, want ErrNotFound", err)
	}
	if err := db.DeleteSet(ctx, "missing"); err != nil {
		t.Errorf("DeleteSet on missing id: %v", err)
	}
}

func TestSettingsDefaultsAndSave(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	s, err := db.GetUserSettings(ctx)
	if err != nil || s != models.DefaultUserSettings() {
		t.Fatalf("GetUserSettings = %+v, %v, want defaults", s, err)
	}
	if err := db.SaveUserSettings(ctx, models.UserSettings{RestTimerSeconds: 150, WeightUnit: models.WeightUnitLb}); err != nil {
		t.Fatalf("SaveUserSettings: %v", err)
	}
	s, _ = db.GetUserSettings(ctx)
	if s.RestTimerSeconds != 150 || s.WeightUnit != models.WeightUnitLb {
		t.Errorf("settings = %+v", s)
	}
}

func TestMappingsRoundTrip(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	id := "barbell-bench-press"

	err := db.SaveSetgraphMappings(ctx, []models.SetgraphExerciseMapping{
		{SetgraphName: "Bench", ExerciseID: &id},
		{SetgraphName: "Sled Push", NeedsMapping: true},
	})
	if err != nil {
		t.Fatalf("SaveSetgraphMappings: %v", err)
	}
	got, err := db.GetSetgraphMappings(ctx)
	if err != nil || len(got) != 2 {
		t.Fatalf("GetSetgraphMappings = %v, %v", got, err)
	}
	if got[0].ExerciseID == nil || *got[0].ExerciseID != id {
		t.Errorf("Bench mapping = %+v", got[0])
	}
	if got[1].ExerciseID != nil || !got[1].NeedsMapping {
		t.Errorf("Sled Push mapping = %+v", got[1])
	}
}

func TestLastSetsNewestFirst(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

	if err := db.AddWorkout(ctx, models.Workout{ID: "w1", StartedAt: start}); err != nil {
		t.Fatalf("AddWorkout: %v", err)
	}
	sets := []models.WorkoutSet{
		{ID: "s1", WorkoutID: "w1", ExerciseID: "barbell-deadlift", Reps: 5, Weight: 140, LoggedAt: start.Add(time.Minute)},
		{ID: "s2", WorkoutID: "w1", ExerciseID: "barbell-deadlift", Reps: 5, Weight: 150, LoggedAt: start.Add(1500 * time.Millisecond)},
		{ID: "s3", WorkoutID: "w1", ExerciseID: "barbell-deadlift", Reps: 3, Weight: 160, LoggedAt: start.Add(10 * time.Minute)},
	}
	n, err := db.AddSets(ctx, sets)
	if err != nil || n != 3 {
		t.Fatalf("AddSets = %d, %v", n, err)
	}

	got, err := db.GetLastSetsForExercise(ctx, "barbell-deadlift", 2)
	if err != nil {
		t.Fatalf("GetLastSetsForExercise: %v", err)
	}
	if len(got) != 2 || got[0].ID != "s3" || got[1].ID != "s1" {
		t.Errorf("history = %+v, want s3 then s1", got)
	}
	if !got[0].LoggedAt.Equal(sets[2].LoggedAt) {
		t.Errorf("logged_at = %v, want %v", got[0].LoggedAt, sets[2].LoggedAt)
	}
}

const benchCSV = `exerciseName,date,repetitions,weightLb,weightKg,note,labelName
Bench Press,2024-05-01 18:00:00 +0000,8,,60,,
Bench Press,2024-05-01 18:05:00 +0000,8,,62.5,,
Running,2024-05-03 07:30:00 +0000,1,,,,
`

func TestSetgraphImport(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	rows, err := setgraph.Parse(strings.NewReader(benchCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := setgraph.NewProvider(db, discardLogger(), 0)
	proposals, err := p.Propose(ctx, rows)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	mappings := setgraph.Confirmed(proposals)

	res, err := p.Import(ctx, rows, mappings)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.WorkoutsCreated != 2 || res.SetsCreated != 3 || res.ExercisesCreated != 1 {
		t.Errorf("result = %+v", res)
	}

	// A second run writes the same workouts again and reuses the saved
	// custom exercise.
	proposals, err = p.Propose(ctx, rows)
	if err != nil {
		t.Fatalf("second Propose: %v", err)
	}
	res, err = p.Import(ctx, rows, setgraph.Confirmed(proposals))
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if res.WorkoutsCreated != 2 || res.ExercisesCreated != 0 {
		t.Errorf("second result = %+v", res)
	}

	workouts, err := db.ListWorkouts(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || len(workouts) != 4 {
		t.Fatalf("ListWorkouts = %d, %v, want 4", len(workouts), err)
	}
	saved, _ := db.GetSetgraphMappings(ctx)
	if len(saved) != 2 {
		t.Errorf("saved mappings = %d, want 2", len(saved))
	}
}

func TestSessionAgainstStore(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	if err := db.AddTemplate(ctx, models.Template{ID: "push", Name: "Push", ExerciseIDs: []string{"barbell-bench-press", "overhead-press"}}); err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}
	rt := timer.New(timer.Options{Scheduler: timer.NewManualScheduler()})
	recorder := health.NewRecorder(db, true, discardLogger())
	m := session.NewManager(db, rt, recorder, discardLogger())
	defer m.Wait()

	tpl := "push"
	workoutID, err := m.StartWorkout(ctx, &tpl)
	if err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	if _, err := m.LogSet(ctx, 8, 60, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	if !rt.State().IsRunning {
		t.Error("rest timer not started")
	}
	if _, err := m.FinishWorkout(ctx); err != nil {
		t.Fatalf("FinishWorkout: %v", err)
	}
	m.Wait()

	w, err := db.GetWorkoutByID(ctx, workoutID)
	if err != nil || w.CompletedAt == nil {
		t.Fatalf("stored workout = %+v, %v", w, err)
	}
	sets, _ := db.GetSetsByWorkoutID(ctx, workoutID)
	if len(sets) != 1 || sets[0].ExerciseID != "barbell-bench-press" {
		t.Errorf("sets = %+v", sets)
	}
	if n, _ := db.CountHealthWorkouts(ctx); n != 1 {
		t.Errorf("health workouts = %d, want 1", n)
	}
}
