package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeSource struct {
	DataSource

	exercises []models.Exercise
	workouts  map[string]models.Workout
	sets      []models.WorkoutSet
	nights    []models.SleepSessionRow
	bucket    string
}

func (f *fakeSource) GetExercises(context.Context) ([]models.Exercise, error) {
	return f.exercises, nil
}

func (f *fakeSource) GetWorkoutByID(_ context.Context, id string) (models.Workout, error) {
	w, ok := f.workouts[id]
	if !ok {
		return models.Workout{}, models.ErrNotFound
	}
	return w, nil
}

func (f *fakeSource) GetSetsByWorkoutID(context.Context, string) ([]models.WorkoutSet, error) {
	return f.sets, nil
}

func (f *fakeSource) GetTrainingVolume(_ context.Context, _, _ time.Time, bucket string) ([]storage.VolumePeriod, error) {
	f.bucket = bucket
	return []storage.VolumePeriod{}, nil
}

func (f *fakeSource) QuerySleepSessions(context.Context, time.Time, time.Time) ([]models.SleepSessionRow, error) {
	return f.nights, nil
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("result has no text content")
	return ""
}

// TestTimeRange verifies range defaults and parsing.
func TestTimeRange(t *testing.T) {
	start, end, err := timeRange("", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := end.Sub(start); diff.Hours() < 167 || diff.Hours() > 169 {
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	start, end, err = timeRange("2024-01-01", "2024-01-31", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Day() != 1 || end.Day() != 31 {
		t.Errorf("range = %v .. %v", start, end)
	}

	start, _, err = timeRange("", "2024-06-15T10:30:00Z", 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 3, 17, 10, 30, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}

	if _, _, err := timeRange("not-a-date", "", 7); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestSearchExercises(t *testing.T) {
	h := newHandlers(&fakeSource{exercises: []models.Exercise{
		{ID: "barbell-bench-press", Name: "Barbell Bench Press", Equipment: "barbell", PrimaryMuscleGroups: []string{"chest"}},
		{ID: "dumbbell-bench-press", Name: "Dumbbell Bench Press", Equipment: "dumbbell", PrimaryMuscleGroups: []string{"chest"}},
		{ID: "barbell-back-squat", Name: "Barbell Back Squat", Equipment: "barbell", PrimaryMuscleGroups: []string{"quadriceps"}},
	}})

	res, err := h.searchExercises(context.Background(), callRequest(map[string]any{"query": "bench", "equipment": "barbell"}))
	if err != nil || res.IsError {
		t.Fatalf("searchExercises = %v, %v", res, err)
	}
	var got []models.Exercise
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "barbell-bench-press" {
		t.Errorf("matches = %+v", got)
	}
}

func TestGetWorkoutSets(t *testing.T) {
	ds := &fakeSource{
		workouts: map[string]models.Workout{"w1": {ID: "w1", StartedAt: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)}},
		sets:     []models.WorkoutSet{{ID: "s1", WorkoutID: "w1", ExerciseID: "barbell-bench-press", Reps: 8, Weight: 60}},
	}
	h := newHandlers(ds)

	res, _ := h.getWorkoutSets(context.Background(), callRequest(map[string]any{}))
	if !res.IsError {
		t.Error("missing workout_id should be a tool error")
	}
	res, _ = h.getWorkoutSets(context.Background(), callRequest(map[string]any{"workout_id": "nope"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Error("unknown workout should be a not-found tool error")
	}

	res, err := h.getWorkoutSets(context.Background(), callRequest(map[string]any{"workout_id": "w1"}))
	if err != nil || res.IsError {
		t.Fatalf("getWorkoutSets = %v, %v", res, err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"s1"`) {
		t.Errorf("result = %s", text)
	}
}

func TestBucketArgument(t *testing.T) {
	ds := &fakeSource{}
	h := newHandlers(ds)
	for arg, want := range map[string]string{"1 week": "1 week", "1 month": "1 month", "fortnight": "1 month"} {
		if _, err := h.getTrainingVolume(context.Background(), callRequest(map[string]any{"bucket": arg})); err != nil {
			t.Fatal(err)
		}
		if ds.bucket != want {
			t.Errorf("bucket %q passed as %q, want %q", arg, ds.bucket, want)
		}
	}
}

func TestGetSleepSummaryInvalidDate(t *testing.T) {
	h := newHandlers(&fakeSource{})
	res, err := h.getSleepSummary(context.Background(), callRequest(map[string]any{"start": "yesterday"}))
	if err != nil || !res.IsError {
		t.Errorf("getSleepSummary = %v, %v, want tool error", res, err)
	}
}
