// Package mcp exposes the training log to LLM clients as read-only MCP tools
// and resources.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog strength training server. Search the exercise catalog, browse logged workouts and sets, and summarize training volume alongside sleep and nutrition."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolSearchExercises, Handler: h.searchExercises},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetWorkoutSets, Handler: h.getWorkoutSets},
		server.ServerTool{Tool: toolGetTrainingVolume, Handler: h.getTrainingVolume},
		server.ServerTool{Tool: toolGetSleepSummary, Handler: h.getSleepSummary},
		server.ServerTool{Tool: toolGetNutrition, Handler: h.getNutrition},
		server.ServerTool{Tool: toolGetBodyMass, Handler: h.getBodyMass},
	)

	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resDataStats, Handler: h.dataStats},
	)

	return s
}

type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resExerciseCatalog = mcp.NewResource(
	"liftlog://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("Every exercise with its muscle groups, equipment and aliases, including custom ones"),
	mcp.WithMIMEType("application/json"),
)

var resRecentWorkouts = mcp.NewResource(
	"liftlog://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Workouts from the last 14 days with set counts and volume"),
	mcp.WithMIMEType("application/json"),
)

var resDataStats = mcp.NewResource(
	"liftlog://data_stats",
	"Data Stats",
	mcp.WithResourceDescription("Row counts and the date range of logged workouts"),
	mcp.WithMIMEType("application/json"),
)
