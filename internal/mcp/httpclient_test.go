package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/trainplan/internal/models"
	"github.com/claude/trainplan/internal/storage"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestGetActiveProgram verifies the program document round-trips through
// the REST API.
func TestGetActiveProgram(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/program": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.ProgramRecord{
				ID:            id,
				Name:          "Core",
				DurationWeeks: 4,
				Active:        true,
				Program:       models.TrainingProgram{ProgramName: "Core", DurationWeeks: 4},
			})
		},
	})
	defer ts.Close()

	rec, err := NewHTTPClient(ts.URL).GetActiveProgram(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.ID != id || rec.Program.ProgramName != "Core" {
		t.Errorf("program = %+v, want Core with id %s", rec, id)
	}
}

// TestGetActiveProgramNotFound verifies a 404 maps to "no program" rather
// than an error.
func TestGetActiveProgramNotFound(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/program": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"no active program"}`))
		},
	})
	defer ts.Close()

	rec, err := NewHTTPClient(ts.URL).GetActiveProgram(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("program = %+v, want nil", rec)
	}
}

// TestQueryWorkoutLogs verifies the time range and exercise filter are sent.
func TestQueryWorkoutLogs(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("exercise"); got != "plank" {
				t.Errorf("exercise=%q, want plank", got)
			}
			if got := r.URL.Query().Get("start"); got != "2026-01-01T00:00:00Z" {
				t.Errorf("start=%q, want 2026-01-01T00:00:00Z", got)
			}
			writeTestJSON(t, w, []models.WorkoutLog{
				{Week: 2, Day: "monday", Sets: []models.LoggedSet{{ExerciseName: "plank", SetNumber: 1}}},
			})
		},
	})
	defer ts.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	logs, err := NewHTTPClient(ts.URL).QueryWorkoutLogs(context.Background(), start, end, 1, "plank")
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || len(logs[0].Sets) != 1 {
		t.Fatalf("logs = %+v, want one log with one set", logs)
	}
}

// TestGetExerciseHistory verifies the exercise parameter and response decoding.
func TestGetExerciseHistory(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/history/exercise": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("exercise"); got != "push_up" {
				t.Errorf("exercise=%q, want push_up", got)
			}
			writeTestJSON(t, w, []storage.ExerciseSession{{Date: "2026-01-05", Sets: 3, TotalReps: 30}})
		},
	})
	defer ts.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	history, err := NewHTTPClient(ts.URL).GetExerciseHistory(context.Background(), "push_up", start, end, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].TotalReps != 30 {
		t.Errorf("history = %+v, want one session with 30 reps", history)
	}
}

// TestGetTrainingSummary verifies the bucket is sent as the agg parameter.
func TestGetTrainingSummary(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/history/summary": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("agg"); got != "monthly" {
				t.Errorf("agg=%q, want monthly", got)
			}
			writeTestJSON(t, w, []storage.TrainingSummaryPeriod{{Period: "2026-01-01", Sessions: 12}})
		},
	})
	defer ts.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periods, err := NewHTTPClient(ts.URL).GetTrainingSummary(context.Background(), start, end, "1 month", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 1 || periods[0].Sessions != 12 {
		t.Errorf("periods = %+v, want one period with 12 sessions", periods)
	}
}

// TestBucketToAgg verifies the bucket-to-agg mapping used for summary requests.
func TestBucketToAgg(t *testing.T) {
	cases := []struct {
		bucket string
		want   string
	}{
		{"1 week", "weekly"},
		{"1 month", "monthly"},
		{"", "weekly"},
	}
	for _, tc := range cases {
		if got := bucketToAgg(tc.bucket); got != tc.want {
			t.Errorf("bucketToAgg(%q) = %q, want %q", tc.bucket, got, tc.want)
		}
	}
}

// TestHTTPClientServerError verifies the client returns an error on non-200 responses.
func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/program": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"database down"}`))
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).GetActiveProgram(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
