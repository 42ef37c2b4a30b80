package workout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/claude/trainplan/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	seen map[uuid.UUID]bool
	logs []*models.WorkoutLog
	err  error
}

func (s *stubStore) InsertWorkoutLog(_ context.Context, log *models.WorkoutLog) (bool, int64, error) {
	if s.err != nil {
		return false, 0, s.err
	}
	if s.seen == nil {
		s.seen = make(map[uuid.UUID]bool)
	}
	if s.seen[log.ID] {
		return false, 0, nil
	}
	s.seen[log.ID] = true
	s.logs = append(s.logs, log)
	return true, int64(len(log.Sets)), nil
}

func newTestProvider(store Store) *Provider {
	return NewProvider(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const oneWorkout = `{
  "id": "44444444-4444-4444-4444-444444444444",
  "week": 3,
  "day": "Monday",
  "started_at": "2026-05-04T07:00:00Z",
  "ended_at": "2026-05-04T07:40:00Z",
  "paused_sec": 120,
  "sets": [
    {"exercise_name": "push_up", "set_number": 1, "reps": 10, "target": "10", "completed_at": "2026-05-04T07:05:00Z"},
    {"exercise_name": "plank", "set_number": 1, "hold_seconds": 45, "target": "40s", "completed_at": "2026-05-04T07:10:00Z"}
  ]
}`

func TestParse_SingleObject(t *testing.T) {
	p := newTestProvider(&stubStore{})
	logs, err := p.Parse([]byte(oneWorkout))
	require.NoError(t, err)
	require.Len(t, logs, 1)

	l := logs[0]
	assert.Equal(t, uuid.MustParse("44444444-4444-4444-4444-444444444444"), l.ID)
	assert.Equal(t, "monday", l.Day)
	assert.Equal(t, 40*60-120, l.DurationSec)
	require.Len(t, l.Sets, 2)
	assert.Equal(t, 45, *l.Sets[1].HoldSeconds)
}

func TestParse_ArrayGeneratesIDs(t *testing.T) {
	doc := `[
	  {"week": 1, "day": "tuesday", "started_at": "2026-05-05T07:00:00Z", "ended_at": "2026-05-05T07:20:00Z"},
	  {"week": 1, "day": "friday", "started_at": "2026-05-08T07:00:00Z", "ended_at": "2026-05-08T07:25:00Z", "duration_sec": 900}
	]`
	p := newTestProvider(&stubStore{})
	logs, err := p.Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.NotEqual(t, uuid.Nil, logs[0].ID)
	assert.NotEqual(t, logs[0].ID, logs[1].ID)
	assert.Equal(t, 1200, logs[0].DurationSec)
	assert.Equal(t, 900, logs[1].DurationSec, "explicit duration is kept")
}

func TestParse_ValidationErrors(t *testing.T) {
	doc := `[
	  {"week": 0, "day": "monday", "started_at": "2026-05-05T07:00:00Z", "ended_at": "2026-05-05T07:20:00Z"},
	  {"week": 1, "day": "", "started_at": "2026-05-05T07:00:00Z", "ended_at": "2026-05-05T06:00:00Z",
	   "sets": [{"exercise_name": "", "set_number": 0, "completed_at": "2026-05-05T07:01:00Z"}]}
	]`
	p := newTestProvider(&stubStore{})
	_, err := p.Parse([]byte(doc))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	msg := err.Error()
	assert.Contains(t, msg, "workout 0: week")
	assert.Contains(t, msg, "workout 1:")
	assert.Contains(t, msg, "ended_at")
	assert.Contains(t, msg, "sets[0].exercise_name")
}

func TestParse_MalformedJSON(t *testing.T) {
	p := newTestProvider(&stubStore{})
	_, err := p.Parse([]byte(`{"week": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding workout log")
}

func TestIngest_SkipsDuplicates(t *testing.T) {
	store := &stubStore{}
	p := newTestProvider(store)

	first, err := p.Ingest(context.Background(), strings.NewReader(oneWorkout), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, first.WorkoutsInserted)
	assert.Equal(t, int64(2), first.SetsInserted)
	assert.Equal(t, 2, first.SetsReceived)
	require.Len(t, store.logs, 1)
	assert.Equal(t, 5, store.logs[0].UserID)

	second, err := p.Ingest(context.Background(), strings.NewReader(oneWorkout), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, second.WorkoutsReceived)
	assert.Equal(t, 0, second.WorkoutsInserted)
	assert.Equal(t, int64(0), second.SetsInserted)
}

func TestIngest_StoreError(t *testing.T) {
	p := newTestProvider(&stubStore{err: errors.New("disk full")})
	_, err := p.Ingest(context.Background(), strings.NewReader(oneWorkout), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
