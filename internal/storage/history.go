package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExerciseSession is one exercise's performance within a single workout.
type ExerciseSession struct {
	WorkoutID        uuid.UUID `json:"workout_id"`
	Date             string    `json:"date"`
	Week             int       `json:"week"`
	Day              string    `json:"day"`
	Sets             int       `json:"sets"`
	TotalReps        int       `json:"total_reps"`
	TotalHoldSeconds int       `json:"total_hold_seconds"`
	BestReps         int       `json:"best_reps,omitempty"`
	BestHoldSeconds  int       `json:"best_hold_seconds,omitempty"`
	MaxWeightKg      *float64  `json:"max_weight_kg,omitempty"`
	OverTimeLimit    int       `json:"over_time_limit_sets,omitempty"`
}

// exerciseSetRow is one logged set joined with its workout.
type exerciseSetRow struct {
	workoutID           uuid.UUID
	startedAt           time.Time
	week                int
	day                 string
	reps                *int
	holdSeconds         *int
	repsEachSide        *int
	holdSecondsEachSide *int
	weightKg            *float64
	overTimeLimit       bool
}

// GetExerciseHistory returns per-workout progression for one exercise,
// oldest first. The exercise name matches exactly (case-insensitive).
func (db *DB) GetExerciseHistory(ctx context.Context, exercise string, start, end time.Time, userID int) ([]ExerciseSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT w.id, w.started_at, w.week, w.day,
		        s.reps, s.hold_seconds, s.reps_each_side, s.hold_seconds_each_side,
		        s.weight_kg, s.over_time_limit
		 FROM logged_sets s
		 JOIN workout_logs w ON w.id = s.workout_id
		 WHERE lower(s.exercise_name) = lower($1)
		   AND w.started_at >= $2 AND w.started_at < $3 AND w.user_id = $4
		 ORDER BY w.started_at ASC, s.set_number ASC`,
		exercise, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	var sets []exerciseSetRow
	for rows.Next() {
		var r exerciseSetRow
		if err := rows.Scan(&r.workoutID, &r.startedAt, &r.week, &r.day,
			&r.reps, &r.holdSeconds, &r.repsEachSide, &r.holdSecondsEachSide,
			&r.weightKg, &r.overTimeLimit); err != nil {
			return nil, fmt.Errorf("scanning exercise history: %w", err)
		}
		sets = append(sets, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summarizeExercise(sets), nil
}

// summarizeExercise groups consecutive rows by workout. Each-side work counts
// both sides toward the totals; best values are per side.
func summarizeExercise(rows []exerciseSetRow) []ExerciseSession {
	var result []ExerciseSession
	for _, r := range rows {
		if len(result) == 0 || result[len(result)-1].WorkoutID != r.workoutID {
			result = append(result, ExerciseSession{
				WorkoutID: r.workoutID,
				Date:      r.startedAt.Format("2006-01-02"),
				Week:      r.week,
				Day:       r.day,
			})
		}
		es := &result[len(result)-1]
		es.Sets++

		reps, hold := 0, 0
		if r.reps != nil {
			reps = *r.reps
			es.TotalReps += reps
		} else if r.repsEachSide != nil {
			reps = *r.repsEachSide
			es.TotalReps += 2 * reps
		}
		if r.holdSeconds != nil {
			hold = *r.holdSeconds
			es.TotalHoldSeconds += hold
		} else if r.holdSecondsEachSide != nil {
			hold = *r.holdSecondsEachSide
			es.TotalHoldSeconds += 2 * hold
		}
		es.BestReps = max(es.BestReps, reps)
		es.BestHoldSeconds = max(es.BestHoldSeconds, hold)

		if r.weightKg != nil && (es.MaxWeightKg == nil || *r.weightKg > *es.MaxWeightKg) {
			w := *r.weightKg
			es.MaxWeightKg = &w
		}
		if r.overTimeLimit {
			es.OverTimeLimit++
		}
	}
	return result
}
