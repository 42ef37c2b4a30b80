package program

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claude/trainplan/internal/models"
	"github.com/claude/trainplan/internal/prescription"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	active     *models.ProgramRecord
	getErr     error
	replaceErr error
	replaced   []*models.ProgramRecord
}

func (s *stubStore) GetActiveProgram(_ context.Context, _ int) (*models.ProgramRecord, error) {
	return s.active, s.getErr
}

func (s *stubStore) ReplaceActiveProgram(_ context.Context, rec *models.ProgramRecord) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaced = append(s.replaced, rec)
	s.active = rec
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readSample(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "calisthenics.json"))
	require.NoError(t, err)
	return data
}

func TestParse_SampleProgram(t *testing.T) {
	p, warnings, err := Parse(readSample(t))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "Bodyweight Foundations", p.ProgramName)
	assert.Equal(t, 6, p.DurationWeeks)
	assert.Equal(t, 30, p.SessionStructure.MainMinutes)
	assert.Len(t, p.ExerciseLibrary, 4)
	assert.Len(t, p.WeeklyTargets, 5)

	week4, err := prescription.Resolve(p, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, *week4["monday"][0].Reps)
	assert.Equal(t, 40, *week4["monday"][1].HoldSeconds)
	assert.Equal(t, 10, *week4["thursday"][0].RepsEachSide)
	assert.Equal(t, 25, *week4["thursday"][1].HoldSecondsEachSide)

	week6, err := prescription.Resolve(p, 6)
	require.NoError(t, err)
	assert.NotContains(t, week6, "thursday")
	assert.Equal(t, 3, week6["monday"][0].Sets)
	assert.Equal(t, 45, *week6["monday"][1].HoldSeconds)
	assert.Equal(t, "+5kg", prescription.FormatLoad(week6["monday"][0]))
}

func TestParse_MalformedJSON(t *testing.T) {
	_, _, err := Parse([]byte(`{"program_name": "x",`))
	require.Error(t, err)

	var ife *InvalidFormatError
	require.True(t, errors.As(err, &ife), "error should be InvalidFormatError")
	require.Len(t, ife.Errors, 1)
	assert.Contains(t, ife.Errors[0].Message, "malformed JSON")
}

func TestParse_SchemaViolations(t *testing.T) {
	doc := `{
	  "program_name": "",
	  "duration_weeks": 0,
	  "exercise_library": {"plank": {"type": "isometric", "rest_s": 60}},
	  "weekly_targets": [{"week": "one"}]
	}`
	_, _, err := Parse([]byte(doc))

	var ife *InvalidFormatError
	require.True(t, errors.As(err, &ife), "error should be InvalidFormatError, got %v", err)
	assert.GreaterOrEqual(t, len(ife.Errors), 4)

	msg := ife.Error()
	assert.Contains(t, msg, "program_name")
	assert.Contains(t, msg, "duration_weeks")
	assert.Contains(t, msg, "weekly_targets.0.week")
}

func TestParse_MissingRequiredFields(t *testing.T) {
	_, _, err := Parse([]byte(`{"program_name": "Only a name"}`))

	var ife *InvalidFormatError
	require.True(t, errors.As(err, &ife))
	msg := ife.Error()
	assert.Contains(t, msg, "duration_weeks")
	assert.Contains(t, msg, "exercise_library")
	assert.Contains(t, msg, "weekly_targets")
}

func TestParse_LintErrorsReject(t *testing.T) {
	doc := `{
	  "program_name": "Conflicting",
	  "duration_weeks": 2,
	  "exercise_library": {"plank": {"type": "hold_seconds", "rest_s": 60}},
	  "weekly_targets": [
	    {"week": 1, "day_prescription": {"monday": [{"name": "plank", "sets": 3, "hold_seconds": 30}]}},
	    {"week": 2, "delta_from_previous_week": {"plank_hold_seconds": "ten"}}
	  ]
	}`
	_, _, err := Parse([]byte(doc))

	var ife *InvalidFormatError
	require.True(t, errors.As(err, &ife))
	require.Len(t, ife.Errors, 1)
	assert.Equal(t, "weekly_targets[1].delta_from_previous_week.plank_hold_seconds", ife.Errors[0].Field)
}

func TestParse_WarningsKept(t *testing.T) {
	doc := `{
	  "program_name": "Loose",
	  "duration_weeks": 1,
	  "exercise_library": {},
	  "weekly_targets": [
	    {"week": 1, "day_prescription": {"monday": [{"name": "burpee", "sets": 3, "reps": 10}]}}
	  ]
	}`
	p, warnings, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Len(t, warnings, 1)
	assert.Equal(t, prescription.SeverityWarning, warnings[0].Severity)
	assert.Contains(t, warnings[0].Message, "burpee")
}

func TestIngest_ReplacesActiveProgram(t *testing.T) {
	old := &models.ProgramRecord{ID: uuid.New(), Name: "Old", SourceHash: "abc", Active: true}
	store := &stubStore{active: old}
	p := NewProvider(store, discardLogger())

	result, err := p.Ingest(context.Background(), bytes.NewReader(readSample(t)), 7)
	require.NoError(t, err)

	require.Len(t, store.replaced, 1)
	rec := store.replaced[0]
	assert.Equal(t, 7, rec.UserID)
	assert.Equal(t, "Bodyweight Foundations", rec.Name)
	assert.True(t, rec.Active)
	assert.Equal(t, HashDocument(readSample(t)), rec.SourceHash)
	assert.NotEqual(t, old.ID, rec.ID)

	require.NotNil(t, result.ProgramID)
	assert.Equal(t, rec.ID, *result.ProgramID)
	assert.False(t, result.Unchanged)
	assert.Equal(t, 6, result.Weeks)
}

func TestIngest_UnchangedDocument(t *testing.T) {
	data := readSample(t)
	active := &models.ProgramRecord{ID: uuid.New(), SourceHash: HashDocument(data), Active: true}
	store := &stubStore{active: active}
	p := NewProvider(store, discardLogger())

	result, err := p.Ingest(context.Background(), bytes.NewReader(data), 1)
	require.NoError(t, err)
	assert.True(t, result.Unchanged)
	assert.Equal(t, active.ID, *result.ProgramID)
	assert.Empty(t, store.replaced)
}

func TestIngest_InvalidKeepsActiveProgram(t *testing.T) {
	active := &models.ProgramRecord{ID: uuid.New(), SourceHash: "abc", Active: true}
	store := &stubStore{active: active}
	p := NewProvider(store, discardLogger())

	_, err := p.Ingest(context.Background(), strings.NewReader(`not json`), 1)
	require.Error(t, err)

	var ife *InvalidFormatError
	assert.True(t, errors.As(err, &ife))
	assert.Empty(t, store.replaced)
	assert.Same(t, active, store.active)
}

func TestIngest_StoreFailure(t *testing.T) {
	store := &stubStore{replaceErr: errors.New("connection reset")}
	p := NewProvider(store, discardLogger())

	_, err := p.Ingest(context.Background(), bytes.NewReader(readSample(t)), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing program")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIngest_DocumentTooLarge(t *testing.T) {
	p := NewProvider(&stubStore{}, discardLogger())

	big := bytes.Repeat([]byte(" "), MaxDocumentBytes+1)
	_, err := p.Ingest(context.Background(), bytes.NewReader(big), 1)

	var ife *InvalidFormatError
	require.True(t, errors.As(err, &ife))
	assert.Contains(t, ife.Errors[0].Message, "exceeds")
}
