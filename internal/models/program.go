package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExerciseType determines which workload field of a PrescriptionItem is meaningful.
type ExerciseType string

const (
	TypeHoldSeconds         ExerciseType = "hold_seconds"
	TypeReps                ExerciseType = "reps"
	TypeHoldSecondsEachSide ExerciseType = "hold_seconds_each_side"
	TypeRepsEachSide        ExerciseType = "reps_each_side"
)

// TrainingProgram is the imported multi-week plan.
type TrainingProgram struct {
	ProgramName      string                        `json:"program_name" validate:"required"`
	DurationWeeks    int                           `json:"duration_weeks" validate:"gte=1"`
	GoalPriority     []string                      `json:"goal_priority,omitempty"`
	SessionStructure SessionStructure              `json:"session_structure"`
	ExerciseLibrary  map[string]ExerciseDefinition `json:"exercise_library" validate:"omitempty,dive"`
	WeeklyTargets    []WeekPrescription            `json:"weekly_targets" validate:"omitempty,dive"`
}

// SessionStructure is the per-session time budget in minutes.
type SessionStructure struct {
	WarmupMinutes   int `json:"warmup_minutes,omitempty" validate:"gte=0"`
	MainMinutes     int `json:"main_minutes" validate:"gte=0"`
	CooldownMinutes int `json:"cooldown_minutes,omitempty" validate:"gte=0"`
}

// ExerciseDefinition is the static metadata for a named exercise.
type ExerciseDefinition struct {
	Type        ExerciseType `json:"type" validate:"oneof=hold_seconds reps hold_seconds_each_side reps_each_side"`
	RestS       int          `json:"rest_s" validate:"gte=0"`
	TimeLimitS  *int         `json:"time_limit_s,omitempty" validate:"omitempty,gte=1"`
	Description string       `json:"description,omitempty"`
	GifURL      string       `json:"gif_url,omitempty"`
}

// DayPrescription maps a day name ("monday") to that day's items.
type DayPrescription map[string][]PrescriptionItem

// WeekPrescription is one entry of weekly_targets. At most one of
// DayPrescription and Delta should be set.
type WeekPrescription struct {
	Week            int             `json:"week" validate:"gte=1"`
	DayPrescription DayPrescription `json:"day_prescription,omitempty" validate:"omitempty,dive,dive"`
	Delta           Delta           `json:"delta_from_previous_week,omitempty"`
}

// PrescriptionItem is one exercise's prescribed workload for a day.
// Absent workload fields are nil.
type PrescriptionItem struct {
	Name                string   `json:"name" validate:"required"`
	Sets                int      `json:"sets" validate:"gte=1"`
	Reps                *int     `json:"reps,omitempty"`
	HoldSeconds         *int     `json:"hold_seconds,omitempty"`
	RepsEachSide        *int     `json:"reps_each_side,omitempty"`
	HoldSecondsEachSide *int     `json:"hold_seconds_each_side,omitempty"`
	WeightKg            *float64 `json:"weight_kg,omitempty"`
	DistanceM           *float64 `json:"distance_m,omitempty"`
}

// Clone returns a deep copy of the item.
func (p PrescriptionItem) Clone() PrescriptionItem {
	c := p
	c.Reps = cloneInt(p.Reps)
	c.HoldSeconds = cloneInt(p.HoldSeconds)
	c.RepsEachSide = cloneInt(p.RepsEachSide)
	c.HoldSecondsEachSide = cloneInt(p.HoldSecondsEachSide)
	c.WeightKg = cloneFloat(p.WeightKg)
	c.DistanceM = cloneFloat(p.DistanceM)
	return c
}

// Clone returns a deep copy of the day mapping.
func (d DayPrescription) Clone() DayPrescription {
	if d == nil {
		return nil
	}
	out := make(DayPrescription, len(d))
	for day, items := range d {
		copied := make([]PrescriptionItem, len(items))
		for i, it := range items {
			copied[i] = it.Clone()
		}
		out[day] = copied
	}
	return out
}

// Delta maps "<exercise>_<field>" keys to signed integer strings ("+5", "-2").
type Delta map[string]DeltaValue

// DeltaValue is the raw delta text. JSON numbers are accepted and kept in
// their decimal form so that parsing happens in one place.
type DeltaValue string

func (v *DeltaValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = DeltaValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("delta value must be a string or number: %s", data)
	}
	*v = DeltaValue(n.String())
	return nil
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
