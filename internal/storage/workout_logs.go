package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/trainplan/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrWorkoutNotFound is returned by GetWorkoutLog for an unknown id.
var ErrWorkoutNotFound = errors.New("workout log not found")

// InsertWorkoutLog stores a workout log and its sets in one transaction.
// Returns false if a log with the same ID already exists, in which case
// nothing is written.
func (db *DB) InsertWorkoutLog(ctx context.Context, log *models.WorkoutLog) (bool, int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO workout_logs (id, user_id, program_id, week, day, started_at, ended_at,
		 duration_sec, paused_sec, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT DO NOTHING`,
		log.ID, log.UserID, log.ProgramID, log.Week, log.Day, log.StartedAt, log.EndedAt,
		log.DurationSec, log.PausedSec, log.Notes)
	if err != nil {
		return false, 0, fmt.Errorf("inserting workout log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, 0, nil
	}

	sets, err := insertLoggedSets(ctx, tx, log.ID, log.UserID, log.Sets)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("committing workout log: %w", err)
	}
	return true, sets, nil
}

func insertLoggedSets(ctx context.Context, tx pgx.Tx, workoutID uuid.UUID, userID int, sets []models.LoggedSet) (int64, error) {
	if len(sets) == 0 {
		return 0, nil
	}

	query := `INSERT INTO logged_sets (workout_id, user_id, exercise_name, set_number, reps, hold_seconds,
		reps_each_side, hold_seconds_each_side, weight_kg, distance_m, target, completed_at, over_time_limit) VALUES `
	args := make([]any, 0, len(sets)*13)
	valueStrings := make([]string, 0, len(sets))

	for i, s := range sets {
		base := i * 13
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
			base+8, base+9, base+10, base+11, base+12, base+13,
		))
		args = append(args, workoutID, userID, s.ExerciseName, s.SetNumber, s.Reps, s.HoldSeconds,
			s.RepsEachSide, s.HoldSecondsEachSide, s.WeightKg, s.DistanceM, s.Target,
			s.CompletedAt, s.OverTimeLimit)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting logged sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryWorkoutLogs returns the workout logs started in [start, end), newest
// first, with their sets. A non-empty exerciseFilter keeps only logs with at
// least one set of a matching exercise (case-insensitive substring).
func (db *DB) QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutLog, error) {
	query := `SELECT id, user_id, program_id, week, day, started_at, ended_at, duration_sec, paused_sec, notes
		 FROM workout_logs w
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3`
	args := []any{start, end, userID}
	if exerciseFilter != "" {
		query += ` AND EXISTS (SELECT 1 FROM logged_sets s WHERE s.workout_id = w.id AND s.exercise_name ILIKE $4)`
		args = append(args, "%"+exerciseFilter+"%")
	}
	query += ` ORDER BY started_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workout logs: %w", err)
	}
	defer rows.Close()

	var logs []models.WorkoutLog
	for rows.Next() {
		var l models.WorkoutLog
		if err := scanWorkoutLog(rows, &l); err != nil {
			return nil, fmt.Errorf("scanning workout log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return logs, nil
	}

	ids := make([]uuid.UUID, len(logs))
	index := make(map[uuid.UUID]int, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
		index[l.ID] = i
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT workout_id, exercise_name, set_number, reps, hold_seconds, reps_each_side,
		 hold_seconds_each_side, weight_kg, distance_m, target, completed_at, over_time_limit
		 FROM logged_sets
		 WHERE workout_id = ANY($1) AND user_id = $2
		 ORDER BY completed_at ASC, set_number ASC`,
		ids, userID)
	if err != nil {
		return nil, fmt.Errorf("querying logged sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var workoutID uuid.UUID
		var s models.LoggedSet
		if err := setRows.Scan(&workoutID, &s.ExerciseName, &s.SetNumber, &s.Reps, &s.HoldSeconds,
			&s.RepsEachSide, &s.HoldSecondsEachSide, &s.WeightKg, &s.DistanceM, &s.Target,
			&s.CompletedAt, &s.OverTimeLimit); err != nil {
			return nil, fmt.Errorf("scanning logged set: %w", err)
		}
		i := index[workoutID]
		logs[i].Sets = append(logs[i].Sets, s)
	}
	return logs, setRows.Err()
}

// GetWorkoutLog retrieves a single workout log with its sets.
func (db *DB) GetWorkoutLog(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutLog, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, program_id, week, day, started_at, ended_at, duration_sec, paused_sec, notes
		 FROM workout_logs
		 WHERE id = $1 AND user_id = $2`,
		id, userID)

	var l models.WorkoutLog
	if err := scanWorkoutLog(row, &l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("querying workout log: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_name, set_number, reps, hold_seconds, reps_each_side,
		 hold_seconds_each_side, weight_kg, distance_m, target, completed_at, over_time_limit
		 FROM logged_sets
		 WHERE workout_id = $1 AND user_id = $2
		 ORDER BY completed_at ASC, set_number ASC`,
		id, userID)
	if err != nil {
		return nil, fmt.Errorf("querying logged sets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.LoggedSet
		if err := rows.Scan(&s.ExerciseName, &s.SetNumber, &s.Reps, &s.HoldSeconds,
			&s.RepsEachSide, &s.HoldSecondsEachSide, &s.WeightKg, &s.DistanceM, &s.Target,
			&s.CompletedAt, &s.OverTimeLimit); err != nil {
			return nil, fmt.Errorf("scanning logged set: %w", err)
		}
		l.Sets = append(l.Sets, s)
	}
	return &l, rows.Err()
}

// DeleteWorkoutLogs removes every workout log of a user. Returns the number
// of logs deleted.
func (db *DB) DeleteWorkoutLogs(ctx context.Context, userID int) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_logs WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting workout logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanWorkoutLog(row pgx.Row, l *models.WorkoutLog) error {
	return row.Scan(&l.ID, &l.UserID, &l.ProgramID, &l.Week, &l.Day, &l.StartedAt, &l.EndedAt,
		&l.DurationSec, &l.PausedSec, &l.Notes)
}
