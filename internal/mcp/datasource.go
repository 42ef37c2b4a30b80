package mcp

import (
	"context"
	"time"

	"github.com/claude/trainplan/internal/models"
	"github.com/claude/trainplan/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	GetActiveProgram(ctx context.Context, userID int) (*models.ProgramRecord, error)
	QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutLog, error)
	GetExerciseHistory(ctx context.Context, exercise string, start, end time.Time, userID int) ([]storage.ExerciseSession, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
