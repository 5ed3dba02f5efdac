package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/analytics"
	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/health"
	"github.com/claude/liftlog/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetDataStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.db.GetExercises(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, catalog.Filter(exercises, catalog.Query{
		Text:        q.Get("q"),
		MuscleGroup: q.Get("muscle"),
		Equipment:   q.Get("equipment"),
	}))
}

type createExerciseRequest struct {
	Name                  string   `json:"name"`
	PrimaryMuscleGroups   []string `json:"primary_muscle_groups"`
	SecondaryMuscleGroups []string `json:"secondary_muscle_groups"`
	Equipment             string   `json:"equipment"`
	Location              string   `json:"location"`
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req createExerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	ex := models.Exercise{
		ID:                    uuid.NewString(),
		Name:                  req.Name,
		PrimaryMuscleGroups:   models.CanonicalPrimary(models.MergeMuscleGroups("", req.PrimaryMuscleGroups)),
		SecondaryMuscleGroups: models.MergeMuscleGroups("", req.SecondaryMuscleGroups),
		Equipment:             req.Equipment,
		Location:              req.Location,
		IsCustom:              true,
	}
	if err := s.db.AddExercise(r.Context(), ex); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.db.ListTemplates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if templates == nil {
		templates = []models.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	if !decodeJSON(w, r, &t) {
		return
	}
	if strings.TrimSpace(t.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ExerciseIDs == nil {
		t.ExerciseIDs = []string{}
	}
	if err := s.db.AddTemplate(r.Context(), t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	workouts, err := s.db.ListWorkouts(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleWorkoutSets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	workout, err := s.db.GetWorkoutByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	sets, err := s.db.GetSetsByWorkoutID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if sets == nil {
		sets = []models.WorkoutSet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workout": workout, "sets": sets})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.db.GetUserSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.UserSettings
	if !decodeJSON(w, r, &settings) {
		return
	}
	if settings.RestTimerSeconds <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rest_timer_seconds must be positive"})
		return
	}
	if settings.WeightUnit != models.WeightUnitKg && settings.WeightUnit != models.WeightUnitLb {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weight_unit must be kg or lb"})
		return
	}
	if err := s.db.SaveUserSettings(r.Context(), settings); err != nil {
		writeError(w, err)
		return
	}
	if s.timer != nil {
		s.timer.SetDefault(settings.RestTimerSeconds)
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseAnalyticsRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	periods, err := s.db.GetTrainingVolume(r.Context(), start, end, bucketParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

func (s *Server) handleNutrition(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	days, err := s.db.GetNutritionDaily(r.Context(), health.NutritionMetrics, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleSleep(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseAnalyticsRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	nights, err := s.db.QuerySleepSessions(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.SummarizeSleep(nights, bucketParam(r)))
}

func bucketParam(r *http.Request) string {
	if r.URL.Query().Get("bucket") == "week" {
		return analytics.BucketWeek
	}
	return analytics.BucketMonth
}

// parseAnalyticsRange is parseTimeRange with a 90 day default window.
func parseAnalyticsRange(r *http.Request) (time.Time, time.Time, error) {
	if r.URL.Query().Get("start") == "" {
		end := time.Now()
		return end.AddDate(0, 0, -90), end, nil
	}
	return parseTimeRange(r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps store errors to a status: ErrNotFound is 404, anything
// else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, models.ErrNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = time.Now()
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
