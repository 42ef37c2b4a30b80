package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/trainplan/internal/ingest"
	"github.com/claude/trainplan/internal/ingest/program"
	"github.com/claude/trainplan/internal/ingest/workout"
	"github.com/claude/trainplan/internal/storage"
)

func (s *Server) handleIngestProgram(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	started := time.Now()
	result, err := s.programs.Ingest(r.Context(), r.Body, uid)
	s.logImport(uid, "program", result, err, int(time.Since(started).Milliseconds()))

	if err != nil {
		var ife *program.InvalidFormatError
		if errors.As(err, &ife) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid format", "details": ife.Errors})
			return
		}
		s.log.Error("program ingest error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngestWorkouts(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	started := time.Now()
	result, err := s.workouts.Ingest(r.Context(), r.Body, uid)
	s.logImport(uid, "workouts", result, err, int(time.Since(started).Milliseconds()))

	if err != nil {
		if isBadWorkoutDocument(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.log.Error("workout ingest error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func isBadWorkoutDocument(err error) bool {
	var ve *workout.ValidationError
	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	return errors.As(err, &ve) || errors.As(err, &se) || errors.As(err, &te) || errors.Is(err, workout.ErrTooLarge)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	stats, err := s.db.GetDataStats(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an import operation's result to the import_logs table.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}
	if result == nil {
		result = &ingest.Result{}
	}
	if result.Unchanged {
		status = "unchanged"
	}

	log := storage.ImportLog{
		UserID:           uid,
		Source:           source,
		Status:           status,
		Warnings:         len(result.Warnings),
		WorkoutsReceived: result.WorkoutsReceived,
		WorkoutsInserted: result.WorkoutsInserted,
		SetsReceived:     result.SetsReceived,
		SetsInserted:     result.SetsInserted,
		DurationMs:       &durationMs,
		ErrorMessage:     errMsg,
	}
	if result.ProgramName != "" {
		name := result.ProgramName
		log.ProgramName = &name
	}
	if result.ProgramID != nil {
		meta, _ := json.Marshal(map[string]any{"program_id": result.ProgramID, "weeks": result.Weeks})
		raw := json.RawMessage(meta)
		log.Metadata = &raw
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, log); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
