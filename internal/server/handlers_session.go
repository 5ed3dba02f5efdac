package server

import (
	"errors"
	"net/http"

	"github.com/claude/liftlog/internal/session"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// respondSession publishes and returns the session after a change.
func (s *Server) respondSession(w http.ResponseWriter) {
	snap := s.session.Snapshot()
	s.events.Publish("session", snap)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID *string `json:"template_id"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.session.StartWorkout(r.Context(), req.TemplateID); err != nil {
		writeError(w, err)
		return
	}
	s.respondSession(w)
}

func (s *Server) handleSessionFinish(w http.ResponseWriter, r *http.Request) {
	workout, err := s.session.FinishWorkout(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if workout == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active workout"})
		return
	}
	s.publishSession()
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleSessionCancel(w http.ResponseWriter, r *http.Request) {
	s.session.CancelWorkout()
	s.respondSession(w)
}

type setRequest struct {
	Reps       int     `json:"reps"`
	Weight     float64 `json:"weight"`
	ExerciseID *string `json:"exercise_id,omitempty"`
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	set, err := s.session.LogSet(r.Context(), req.Reps, req.Weight, req.ExerciseID)
	if errors.Is(err, session.ErrInvalidSet) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if set == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active workout or exercise"})
		return
	}
	s.publishSession()
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleEditSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.session.EditSet(r.Context(), chi.URLParam(r, "id"), req.Reps, req.Weight)
	if errors.Is(err, session.ErrInvalidSet) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondSession(w)
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveSet(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	s.respondSession(w)
}

type exerciseRequest struct {
	ExerciseID string `json:"exercise_id"`
}

func (s *Server) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.session.SetCurrentExercise(req.ExerciseID)
	s.respondSession(w)
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExerciseID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise_id is required"})
		return
	}
	s.session.AddExerciseToWorkout(req.ExerciseID)
	s.respondSession(w)
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	s.session.RemoveExerciseFromWorkout(chi.URLParam(r, "id"))
	s.respondSession(w)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIDs []string `json:"exercise_ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.session.ReorderExercises(req.ExerciseIDs)
	s.respondSession(w)
}

func (s *Server) handleSwitchTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID string `json:"template_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.session.SwitchTemplate(r.Context(), req.TemplateID); err != nil {
		writeError(w, err)
		return
	}
	s.respondSession(w)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldID string `json:"old_id"`
		NewID string `json:"new_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.session.SwapExercise(req.OldID, req.NewID)
	s.respondSession(w)
}

// handleTimer drives the rest timer. Its own events reach subscribers
// through the timer callback.
func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "start":
		var req struct {
			Seconds int `json:"seconds"`
		}
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}
		s.timer.Start(req.Seconds)
	case "stop":
		s.timer.Stop()
	case "reset":
		s.timer.Reset()
	case "resume":
		s.timer.Resume()
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown timer action"})
		return
	}
	writeJSON(w, http.StatusOK, s.timer.State())
}
