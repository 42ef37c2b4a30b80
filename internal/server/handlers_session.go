package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/claude/trainplan/internal/models"
	"github.com/claude/trainplan/internal/prescription"
	"github.com/claude/trainplan/internal/session"
	"github.com/claude/trainplan/internal/storage"
	"github.com/go-chi/chi/v5"
)

// startSessionRequest is the JSON body for starting a workout session.
type startSessionRequest struct {
	Week int    `json:"week"`
	Day  string `json:"day"`
}

// sessionResponse is returned when a session starts.
type sessionResponse struct {
	Snapshot session.Snapshot     `json:"snapshot"`
	Plan     []session.PlannedSet `json:"plan"`
}

// finishResponse is returned when a session ends with a stored log.
type finishResponse struct {
	Workout      *models.WorkoutLog `json:"workout"`
	Inserted     bool               `json:"inserted"`
	SetsInserted int64              `json:"sets_inserted"`
}

func (s *Server) activeSession(uid int) *session.Session {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	return s.sessions[uid]
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	req.Day = strings.ToLower(strings.TrimSpace(req.Day))
	if req.Week < 1 || req.Day == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "week and day are required"})
		return
	}

	rec, err := s.db.GetActiveProgram(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": storage.ErrNoActiveProgram.Error()})
		return
	}

	items, err := prescription.ResolveDay(&rec.Program, req.Week, req.Day)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	programID := rec.ID
	sess, err := session.New(items, rec.Program.ExerciseLibrary, session.Options{
		UserID:    uid,
		ProgramID: &programID,
		Week:      req.Week,
		Day:       req.Day,
		Log:       s.log,
	})
	switch {
	case errors.Is(err, session.ErrNothingPlanned):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("nothing planned for week %d %s", req.Week, req.Day)})
		return
	case errors.Is(err, session.ErrUnknownExercise):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.sessMu.Lock()
	if prev := s.sessions[uid]; prev != nil && !prev.State().Terminal() {
		s.sessMu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a session is already running"})
		return
	}
	s.sessions[uid] = sess
	s.sessMu.Unlock()

	// The clock outlives the request.
	if err := sess.Start(context.Background()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Snapshot: sess.Snapshot(), Plan: sess.Plan()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	sess := s.activeSession(uid)
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no session"})
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	sess := s.activeSession(uid)
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no session"})
		return
	}

	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "pause":
		err = sess.Pause()
	case "resume":
		err = sess.Resume()
	case "skip-rest":
		err = sess.SkipRest()
	case "cancel":
		err = sess.Cancel()
	case "complete-set":
		var actual session.Actual
		if err := json.NewDecoder(r.Body).Decode(&actual); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
		if _, err = sess.CompleteSet(actual); err == nil && sess.State() == session.StateFinished {
			s.finishSession(w, r, sess)
			return
		}
	case "finish":
		s.finishSession(w, r, sess)
		return
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action " + action})
		return
	}

	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// finishSession ends the session and stores its workout log.
func (s *Server) finishSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	log, err := sess.Finish()
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	inserted, sets, err := s.db.InsertWorkoutLog(r.Context(), log)
	if err != nil {
		s.log.Error("storing session log", "session", sess.ID(), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, finishResponse{Workout: log, Inserted: inserted, SetsInserted: sets})
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	sess := s.activeSession(uid)
	if sess == nil || sess.State().Terminal() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no session running"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := sess.Subscribe()
	defer sess.Unsubscribe(ch)

	// Send current status immediately
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", mustJSON(sess.Snapshot()))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, mustJSON(evt))
			flusher.Flush()

			if evt.Type == session.EventFinished {
				return
			}
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
