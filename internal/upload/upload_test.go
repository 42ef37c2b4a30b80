package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/trainplan/internal/ingest"
)

// recorder is a fake ingest server that records request bodies per path.
type recorder struct {
	mu     sync.Mutex
	bodies map[string][]string
	status func(path, body string) int
}

func newRecorder(t *testing.T) (*recorder, *httptest.Server) {
	t.Helper()
	rec := &recorder{bodies: map[string][]string{}}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "key" {
			t.Errorf("X-API-Key = %q, want key", r.Header.Get("X-API-Key"))
		}
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.bodies[r.URL.Path] = append(rec.bodies[r.URL.Path], string(body))
		rec.mu.Unlock()

		code := http.StatusOK
		if rec.status != nil {
			code = rec.status(r.URL.Path, string(body))
		}
		w.WriteHeader(code)
		if code == http.StatusOK {
			json.NewEncoder(w).Encode(ingest.Result{WorkoutsReceived: 1, WorkoutsInserted: 1, SetsInserted: 3, Message: "ok"})
			return
		}
		w.Write([]byte(`{"error":"rejected"}`))
	}))
	t.Cleanup(ts.Close)
	return rec, ts
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies[path])
}

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func testClient(url string) *Client {
	c := NewClient(url, "key")
	c.backoff = time.Millisecond
	return c
}

func openState(t *testing.T) *StateDB {
	t.Helper()
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRunUploadsNewestProgramAndWorkouts verifies only the newest program is
// sent, every workout is sent, and a second run sends nothing.
func TestRunUploadsNewestProgramAndWorkouts(t *testing.T) {
	rec, ts := newRecorder(t)
	root := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)
	writeFile(t, filepath.Join(root, "programs", "a.json"), `{"program_name":"old"}`, old)
	writeFile(t, filepath.Join(root, "programs", "b.json"), `{"program_name":"new"}`, old.Add(time.Hour))
	writeFile(t, filepath.Join(root, "workouts", "w1.json"), `{"week":1}`, old)
	writeFile(t, filepath.Join(root, "workouts", "w2.json"), `{"week":2}`, old)

	state := openState(t)
	stats, err := New(testClient(ts.URL), state, root, false, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := rec.count(ProgramPath); n != 1 {
		t.Fatalf("program uploads = %d, want 1", n)
	}
	if got := rec.bodies[ProgramPath][0]; !strings.Contains(got, "new") {
		t.Errorf("program body = %s, want the newest file", got)
	}
	if n := rec.count(WorkoutsPath); n != 2 {
		t.Errorf("workout uploads = %d, want 2", n)
	}
	if stats.FilesUploaded != 3 || stats.ProgramsImported != 1 {
		t.Errorf("stats = %+v, want 3 uploaded and 1 program", stats)
	}

	stats, err = New(testClient(ts.URL), state, root, false, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.FilesSkipped != 3 || stats.FilesUploaded != 0 {
		t.Errorf("second run stats = %+v, want 3 skipped", stats)
	}
	if n := rec.count(WorkoutsPath); n != 2 {
		t.Errorf("workout uploads after second run = %d, want 2", n)
	}

	uploaded, err := state.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(uploaded) != 3 {
		t.Errorf("state rows = %d, want 3", len(uploaded))
	}
}

// TestRunChangedFileIsResent verifies a modified file is uploaded again.
func TestRunChangedFileIsResent(t *testing.T) {
	rec, ts := newRecorder(t)
	root := t.TempDir()
	path := filepath.Join(root, "workouts", "w1.json")
	writeFile(t, path, `{"week":1}`, time.Now())

	state := openState(t)
	if _, err := New(testClient(ts.URL), state, root, false, discardLogger()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, `{"week":1,"notes":"edited"}`, time.Now())
	if _, err := New(testClient(ts.URL), state, root, false, discardLogger()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := rec.count(WorkoutsPath); n != 2 {
		t.Errorf("workout uploads = %d, want 2", n)
	}
}

// TestRunRejectedFileContinues verifies a 4xx is counted, not retried, and
// not recorded as uploaded.
func TestRunRejectedFileContinues(t *testing.T) {
	rec, ts := newRecorder(t)
	rec.status = func(_, body string) int {
		if strings.Contains(body, "bad") {
			return http.StatusBadRequest
		}
		return http.StatusOK
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "workouts", "w1.json"), `{"bad":true}`, time.Now())
	writeFile(t, filepath.Join(root, "workouts", "w2.json"), `{"week":2}`, time.Now())

	state := openState(t)
	stats, err := New(testClient(ts.URL), state, root, false, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesErrored != 1 || stats.FilesUploaded != 1 {
		t.Errorf("stats = %+v, want 1 errored and 1 uploaded", stats)
	}
	if n := rec.count(WorkoutsPath); n != 2 {
		t.Errorf("requests = %d, want 2 (no retry on 400)", n)
	}

	uploaded, err := state.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(uploaded) != 1 || uploaded[0].Path != filepath.Join("workouts", "w2.json") {
		t.Errorf("state = %+v, want only w2.json", uploaded)
	}
}

// TestRunDryRun verifies nothing is sent or recorded in dry-run mode.
func TestRunDryRun(t *testing.T) {
	rec, ts := newRecorder(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "workouts", "w1.json"), `{"week":1}`, time.Now())

	state := openState(t)
	stats, err := New(testClient(ts.URL), state, root, true, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rec.count(WorkoutsPath) != 0 {
		t.Error("dry run sent a request")
	}
	if stats.FilesUploaded != 1 {
		t.Errorf("FilesUploaded = %d, want 1", stats.FilesUploaded)
	}
	uploaded, _ := state.List(context.Background())
	if len(uploaded) != 0 {
		t.Errorf("state rows = %d, want 0", len(uploaded))
	}
}

// TestClientRetriesServerErrors verifies 5xx responses are retried.
func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ingest.Result{Message: "ok"})
	}))
	defer ts.Close()

	result, err := testClient(ts.URL).Send(context.Background(), WorkoutsPath, []byte(`{}`))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
	if result.Message != "ok" {
		t.Errorf("message = %q, want ok", result.Message)
	}
}

// TestClientGivesUp verifies the error after the last attempt.
func TestClientGivesUp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).Send(context.Background(), WorkoutsPath, []byte(`{}`))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want wrapped 500 StatusError", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v, want attempt count", err)
	}
}

// TestNewestFile verifies modification time wins and ties break by name.
func TestNewestFile(t *testing.T) {
	dir := t.TempDir()
	ts := time.Now().Add(-time.Hour)
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	c := filepath.Join(dir, "c.json")
	writeFile(t, a, "{}", ts.Add(time.Minute))
	writeFile(t, b, "{}", ts)
	writeFile(t, c, "{}", ts)

	if got := newestFile([]string{a, b, c}); got != a {
		t.Errorf("newestFile = %s, want %s", got, a)
	}
	if got := newestFile([]string{b, c}); got != c {
		t.Errorf("newestFile tie = %s, want %s", got, c)
	}
	if got := newestFile(nil); got != "" {
		t.Errorf("newestFile(nil) = %q, want empty", got)
	}
}
