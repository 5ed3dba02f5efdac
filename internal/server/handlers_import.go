package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/setgraph"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// maxUploadBytes caps Setgraph exports and health pushes.
const maxUploadBytes = 32 << 20

func (s *Server) handleSetgraphValidate(w http.ResponseWriter, r *http.Request) {
	export, err := setgraph.Scan(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, export.Validate())
}

func (s *Server) handleSetgraphPropose(w http.ResponseWriter, r *http.Request) {
	export, ok := s.scanValid(w, http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if !ok {
		return
	}
	proposals, err := s.setgraph.Propose(r.Context(), export.Rows)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

// handleSetgraphImport takes a multipart form with the export in "file" and
// optional confirmed mappings as JSON in "mappings". Without mappings the
// proposals are used when none needs review. ?dry_run=true plans the import
// without writing.
func (s *Server) handleSetgraphImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form: " + err.Error()})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	export, ok := s.scanValid(w, file)
	if !ok {
		return
	}

	var mappings []models.SetgraphExerciseMapping
	if raw := r.FormValue("mappings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid mappings: " + err.Error()})
			return
		}
	} else {
		proposals, err := s.setgraph.Propose(r.Context(), export.Rows)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, p := range proposals {
			if p.NeedsMapping {
				writeJSON(w, http.StatusConflict, map[string]any{
					"error":     "some exercises need a mapping",
					"proposals": proposals,
				})
				return
			}
		}
		mappings = setgraph.Confirmed(proposals)
	}

	if dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run")); dryRun {
		result, err := s.setgraph.Preview(r.Context(), export.Rows, mappings)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	logID, start := s.beginImport(sourceSetgraph, map[string]any{"rows": len(export.Rows), "mappings": len(mappings)})
	result, err := s.setgraph.Import(r.Context(), export.Rows, mappings)
	s.finishImport(logID, sourceSetgraph, result, err, start)
	if err != nil {
		s.log.Error("setgraph import error", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// scanValid parses an export and refuses it with 422 when validation fails.
func (s *Server) scanValid(w http.ResponseWriter, body io.Reader) (*setgraph.Export, bool) {
	export, err := setgraph.Scan(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	if v := export.Validate(); !v.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, v)
		return nil, false
	}
	return export, true
}

func (s *Server) handleHealthSamples(w http.ResponseWriter, r *http.Request) {
	var payload models.SamplesPayload
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if !decodeJSON(w, r, &payload) {
		return
	}

	logID, start := s.beginImport(sourceHealthSamples, map[string]any{"metrics": len(payload.Metrics), "sleep": len(payload.Sleep)})
	result, err := s.samples.Ingest(r.Context(), &payload)
	s.finishImport(logID, sourceHealthSamples, result, err, start)
	if err != nil {
		s.log.Error("health samples ingest error", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []storage.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// Import log sources.
const (
	sourceSetgraph      = "setgraph"
	sourceHealthSamples = "health_samples"
)

// beginImport records a running import in import_logs. A zero id means the
// log could not be written; the import still runs.
func (s *Server) beginImport(source string, meta map[string]any) (int64, time.Time) {
	ctx, cancel := contextWithTimeout()
	defer cancel()

	raw := json.RawMessage(mustJSON(meta))
	id, err := s.db.InsertImportLog(ctx, storage.ImportLog{
		Source:   source,
		Status:   storage.ImportStatusRunning,
		Metadata: &raw,
	})
	if err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
		return 0, time.Now()
	}
	return id, time.Now()
}

// finishImport stores the outcome of an import started with beginImport.
func (s *Server) finishImport(id int64, source string, result *ingest.Result, importErr error, started time.Time) {
	if id == 0 {
		return
	}
	if result == nil {
		result = &ingest.Result{}
	}
	status := storage.ImportStatusSuccess
	var errMsg *string
	if importErr != nil {
		status = storage.ImportStatusError
		msg := importErr.Error()
		errMsg = &msg
	}
	durationMs := int(time.Since(started).Milliseconds())

	raw := json.RawMessage(mustJSON(importMetadata(source, result)))

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if err := s.db.UpdateImportLog(ctx, id, storage.ImportLog{
		Status:           status,
		RowsReceived:     result.RowsReceived,
		WorkoutsCreated:  result.WorkoutsCreated,
		SetsCreated:      result.SetsCreated,
		ExercisesCreated: result.ExercisesCreated,
		ErrorCount:       len(result.Errors),
		DurationMs:       &durationMs,
		ErrorMessage:     errMsg,
		Metadata:         &raw,
	}); err != nil {
		s.log.Error("failed to finalize import log", "log_id", id, "error", err)
	}
}

// importMetadata picks the counters worth keeping for each import source.
func importMetadata(source string, result *ingest.Result) map[string]any {
	if source == sourceHealthSamples {
		return map[string]any{
			"metrics_received":        result.MetricsReceived,
			"metrics_inserted":        result.MetricsInserted,
			"metrics_rejected":        result.MetricsRejected,
			"rejected_names":          result.RejectedNames,
			"sleep_sessions_inserted": result.SleepSessionsInserted,
		}
	}
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return map[string]any{
		"rows_received":     result.RowsReceived,
		"workouts_created":  result.WorkoutsCreated,
		"sets_created":      result.SetsCreated,
		"exercises_created": result.ExercisesCreated,
		"errors":            errs,
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
