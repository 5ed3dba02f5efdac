package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/liftlog/internal/analytics"
	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/health"
	"github.com/claude/liftlog/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// timeRange parses optional start/end arguments. A missing end is now and a
// missing start is days before end.
func timeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

func bucketArg(req mcp.CallToolRequest) string {
	if req.GetString("bucket", analytics.BucketMonth) == analytics.BucketWeek {
		return analytics.BucketWeek
	}
	return analytics.BucketMonth
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Tool definitions ---

var toolSearchExercises = mcp.NewTool("search_exercises",
	mcp.WithDescription("Search the exercise catalog by name, muscle group, or equipment. All filters are optional and combined."),
	mcp.WithString("query", mcp.Description("Words that must all appear in the exercise name (e.g. 'incline press')")),
	mcp.WithString("muscle_group", mcp.Description("Primary or secondary muscle group (e.g. chest, quadriceps)")),
	mcp.WithString("equipment", mcp.Description("Equipment (e.g. barbell, dumbbell, machine, bodyweight)")),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("List logged workouts with set count, total reps, volume, and duration, newest first."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetWorkoutSets = mcp.NewTool("get_workout_sets",
	mcp.WithDescription("Every set of one workout in the order it was logged, with exercise, reps and weight."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout ID as returned by get_workouts")),
)

var toolGetTrainingVolume = mcp.NewTool("get_training_volume",
	mcp.WithDescription("Weekly or monthly training volume: workouts, sets, reps and tonnage per period, broken down by exercise."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 month'."), mcp.Enum(analytics.BucketWeek, analytics.BucketMonth)),
)

var toolGetSleepSummary = mcp.NewTool("get_sleep_summary",
	mcp.WithDescription("Aggregated sleep per period: duration, stages, efficiency, average bedtime and waketime with consistency."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 month'."), mcp.Enum(analytics.BucketWeek, analytics.BucketMonth)),
)

var toolGetNutrition = mcp.NewTool("get_nutrition",
	mcp.WithDescription("Daily nutrition totals (energy, protein, carbohydrates, fat, fiber, water) pushed from the health bridge."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolGetBodyMass = mcp.NewTool("get_body_mass",
	mcp.WithDescription("Body mass samples in time order, useful next to training volume."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

// --- Tool handlers ---

func (h *handlers) searchExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.GetExercises(ctx)
	if err != nil {
		h.log.Error("mcp search_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(catalog.Filter(exercises, catalog.Query{
		Text:        req.GetString("query", ""),
		MuscleGroup: req.GetString("muscle_group", ""),
		Equipment:   req.GetString("equipment", ""),
	}))
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 30)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) getWorkoutSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}

	workout, err := h.ds.GetWorkoutByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout_sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	sets, err := h.ds.GetSetsByWorkoutID(ctx, id)
	if err != nil {
		h.log.Error("mcp get_workout_sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(map[string]any{"workout": workout, "sets": sets})
}

func (h *handlers) getTrainingVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	periods, err := h.ds.GetTrainingVolume(ctx, start, end, bucketArg(req))
	if err != nil {
		h.log.Error("mcp get_training_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(periods)
}

func (h *handlers) getSleepSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	nights, err := h.ds.QuerySleepSessions(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_sleep_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(analytics.SummarizeSleep(nights, bucketArg(req)))
}

func (h *handlers) getNutrition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 7)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	days, err := h.ds.GetNutritionDaily(ctx, health.NutritionMetrics, start, end)
	if err != nil {
		h.log.Error("mcp get_nutrition", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(days)
}

func (h *handlers) getBodyMass(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	rows, err := h.ds.QueryHealthMetrics(ctx, health.MetricBodyMass, start, end)
	if err != nil {
		h.log.Error("mcp get_body_mass", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(rows)
}
