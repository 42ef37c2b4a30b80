package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored data.
type DataStats struct {
	TotalPrograms  int64              `json:"total_programs"`
	TotalWorkouts  int64              `json:"total_workouts"`
	TotalSets      int64              `json:"total_sets"`
	EarliestData   *time.Time         `json:"earliest_data"`
	LatestData     *time.Time         `json:"latest_data"`
	SetsByExercise []ExerciseTypeStat `json:"sets_by_exercise"`
}

// ExerciseTypeStat holds summary stats for a single exercise.
type ExerciseTypeStat struct {
	Name     string `json:"name"`
	Sets     int64  `json:"sets"`
	Workouts int64  `json:"workouts"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM programs WHERE user_id = $1`, userID,
	).Scan(&stats.TotalPrograms)
	if err != nil {
		return nil, fmt.Errorf("counting programs: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(started_at), MAX(started_at) FROM workout_logs WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM logged_sets WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSets)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_name, COUNT(*), COUNT(DISTINCT workout_id)
		 FROM logged_sets
		 WHERE user_id = $1
		 GROUP BY exercise_name
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sets by exercise: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseTypeStat
		if err := rows.Scan(&s.Name, &s.Sets, &s.Workouts); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		stats.SetsByExercise = append(stats.SetsByExercise, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
