package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/health"
	"github.com/claude/liftlog/internal/ingest/setgraph"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/timer"
	"github.com/go-chi/chi/v5"
)

// Store is the persistence the HTTP handlers read and write directly.
type Store interface {
	GetExercises(ctx context.Context) ([]models.Exercise, error)
	AddExercise(ctx context.Context, ex models.Exercise) error
	ListTemplates(ctx context.Context) ([]models.Template, error)
	AddTemplate(ctx context.Context, t models.Template) error
	ListWorkouts(ctx context.Context, start, end time.Time) ([]storage.WorkoutSummary, error)
	GetWorkoutByID(ctx context.Context, id string) (models.Workout, error)
	GetSetsByWorkoutID(ctx context.Context, workoutID string) ([]models.WorkoutSet, error)
	GetUserSettings(ctx context.Context) (models.UserSettings, error)
	SaveUserSettings(ctx context.Context, s models.UserSettings) error
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
	GetTrainingVolume(ctx context.Context, start, end time.Time, bucket string) ([]storage.VolumePeriod, error)
	GetNutritionDaily(ctx context.Context, metrics []string, start, end time.Time) ([]storage.NutritionDay, error)
	QuerySleepSessions(ctx context.Context, start, end time.Time) ([]models.SleepSessionRow, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

var _ Store = (*storage.DB)(nil)

// Deps are the domain services behind the API.
type Deps struct {
	Session  *session.Manager
	Timer    *timer.RestTimer
	Setgraph *setgraph.Provider
	Samples  *health.Ingester
	Events   *Events
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	session  *session.Manager
	timer    *timer.RestTimer
	setgraph *setgraph.Provider
	samples  *health.Ingester
	events   *Events
	log      *slog.Logger
	apiKey   string
	router   chi.Router

	whoisMu sync.RWMutex
	whois   whoIser
}

// New creates a new Server with all routes configured.
func New(db Store, deps Deps, apiKey string, log *slog.Logger) *Server {
	if deps.Events == nil {
		deps.Events = NewEvents()
	}
	s := &Server{
		db:       db,
		session:  deps.Session,
		timer:    deps.Timer,
		setgraph: deps.Setgraph,
		samples:  deps.Samples,
		events:   deps.Events,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Mount attaches h under pattern, e.g. the MCP handler at /mcp.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

// SetTailscale makes identity lookups go through the tailnet.
func (s *Server) SetTailscale(lc whoIser) {
	s.whoisMu.Lock()
	s.whois = lc
	s.whoisMu.Unlock()
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/stats", s.handleStats)

		r.Get("/exercises", s.handleListExercises)
		r.Post("/exercises", s.handleCreateExercise)
		r.Get("/templates", s.handleListTemplates)
		r.Post("/templates", s.handleSaveTemplate)
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}/sets", s.handleWorkoutSets)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		// Imports and device pushes (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/import/setgraph/validate", s.handleSetgraphValidate)
			r.Post("/import/setgraph/propose", s.handleSetgraphPropose)
			r.Post("/import/setgraph", s.handleSetgraphImport)
			r.Get("/import/logs", s.handleImportLogs)
			r.Post("/health/samples", s.handleHealthSamples)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleSessionSnapshot)
			r.Get("/events", s.handleSessionEvents)
			r.Post("/start", s.handleSessionStart)
			r.Post("/finish", s.handleSessionFinish)
			r.Post("/cancel", s.handleSessionCancel)
			r.Post("/sets", s.handleLogSet)
			r.Patch("/sets/{id}", s.handleEditSet)
			r.Delete("/sets/{id}", s.handleRemoveSet)
			r.Post("/current", s.handleSetCurrent)
			r.Post("/exercises", s.handleAddExercise)
			r.Delete("/exercises/{id}", s.handleRemoveExercise)
			r.Put("/order", s.handleReorder)
			r.Post("/template", s.handleSwitchTemplate)
			r.Post("/swap", s.handleSwap)
			r.Post("/timer/{action}", s.handleTimer)
		})

		r.Get("/analytics/volume", s.handleVolume)
		r.Get("/analytics/nutrition", s.handleNutrition)
		r.Get("/analytics/sleep", s.handleSleep)
	})
}
