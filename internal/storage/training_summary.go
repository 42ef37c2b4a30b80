package storage

import (
	"context"
	"fmt"
	"time"
)

// TrainingSummaryPeriod holds aggregated training volume for one time period.
type TrainingSummaryPeriod struct {
	Period           string  `json:"period"`
	Sessions         int     `json:"sessions"`
	MinutesTrained   float64 `json:"minutes_trained"`
	PausedMinutes    float64 `json:"paused_minutes"`
	Sets             int     `json:"sets"`
	TotalReps        int     `json:"total_reps"`
	TotalHoldSeconds int     `json:"total_hold_seconds"`
	Exercises        int     `json:"distinct_exercises"`
}

// GetTrainingSummary returns session counts and set volume per period.
// Each-side reps and holds count both sides.
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	trunc := truncInterval(bucket)

	// Query 1: sessions and time per period
	sessionRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, started_at)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(duration_sec), 0) / 60.0,
		        COALESCE(SUM(paused_sec), 0) / 60.0
		 FROM workout_logs
		 WHERE started_at >= $2 AND started_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying session summary: %w", err)
	}
	defer sessionRows.Close()

	periodMap := make(map[string]*TrainingSummaryPeriod)
	var periodOrder []string

	for sessionRows.Next() {
		var periodTime time.Time
		var sp TrainingSummaryPeriod
		if err := sessionRows.Scan(&periodTime, &sp.Sessions, &sp.MinutesTrained, &sp.PausedMinutes); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		sp.Period = periodTime.Format("2006-01-02")
		periodMap[sp.Period] = &sp
		periodOrder = append(periodOrder, sp.Period)
	}
	if err := sessionRows.Err(); err != nil {
		return nil, err
	}

	// Query 2: set volume per period
	setRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, w.started_at)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(COALESCE(s.reps, 2 * s.reps_each_side, 0)), 0)::int,
		        COALESCE(SUM(COALESCE(s.hold_seconds, 2 * s.hold_seconds_each_side, 0)), 0)::int,
		        COUNT(DISTINCT lower(s.exercise_name))::int
		 FROM logged_sets s
		 JOIN workout_logs w ON w.id = s.workout_id
		 WHERE w.started_at >= $2 AND w.started_at < $3 AND w.user_id = $4
		 GROUP BY period`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying set summary: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var periodTime time.Time
		var sets, reps, hold, exercises int
		if err := setRows.Scan(&periodTime, &sets, &reps, &hold, &exercises); err != nil {
			return nil, fmt.Errorf("scanning set summary: %w", err)
		}
		sp, ok := periodMap[periodTime.Format("2006-01-02")]
		if !ok {
			continue
		}
		sp.Sets = sets
		sp.TotalReps = reps
		sp.TotalHoldSeconds = hold
		sp.Exercises = exercises
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	result := make([]TrainingSummaryPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 week", "week", "weekly":
		return "week"
	case "1 month", "month", "monthly":
		return "month"
	default:
		return "week"
	}
}
