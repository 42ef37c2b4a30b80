package models

import (
	"time"

	"github.com/google/uuid"
)

// ProgramRecord is a row of the programs table.
type ProgramRecord struct {
	ID            uuid.UUID       `json:"id"`
	UserID        int             `json:"user_id"`
	Name          string          `json:"name"`
	DurationWeeks int             `json:"duration_weeks"`
	Program       TrainingProgram `json:"program"`
	SourceHash    string          `json:"source_hash"`
	Active        bool            `json:"active"`
	ImportedAt    time.Time       `json:"imported_at"`
}

// WorkoutLog is one completed (or abandoned) training session.
type WorkoutLog struct {
	ID          uuid.UUID   `json:"id"`
	UserID      int         `json:"user_id"`
	ProgramID   *uuid.UUID  `json:"program_id,omitempty"`
	Week        int         `json:"week" validate:"gte=1"`
	Day         string      `json:"day" validate:"required"`
	StartedAt   time.Time   `json:"started_at" validate:"required"`
	EndedAt     time.Time   `json:"ended_at" validate:"required,gtefield=StartedAt"`
	DurationSec int         `json:"duration_sec" validate:"gte=0"`
	PausedSec   int         `json:"paused_sec" validate:"gte=0"`
	Notes       string      `json:"notes,omitempty"`
	Sets        []LoggedSet `json:"sets" validate:"omitempty,dive"`
}

// LoggedSet is the actual performance of one set.
type LoggedSet struct {
	ExerciseName        string    `json:"exercise_name" validate:"required"`
	SetNumber           int       `json:"set_number" validate:"gte=1"`
	Reps                *int      `json:"reps,omitempty" validate:"omitempty,gte=0"`
	HoldSeconds         *int      `json:"hold_seconds,omitempty" validate:"omitempty,gte=0"`
	RepsEachSide        *int      `json:"reps_each_side,omitempty" validate:"omitempty,gte=0"`
	HoldSecondsEachSide *int      `json:"hold_seconds_each_side,omitempty" validate:"omitempty,gte=0"`
	WeightKg            *float64  `json:"weight_kg,omitempty"`
	DistanceM           *float64  `json:"distance_m,omitempty"`
	Target              string    `json:"target,omitempty"`
	CompletedAt         time.Time `json:"completed_at"`
	OverTimeLimit       bool      `json:"over_time_limit,omitempty"`
}
