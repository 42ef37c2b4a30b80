package prescription

import (
	"errors"
	"fmt"
	"sort"

	"github.com/claude/trainplan/internal/models"
)

// Severity classifies a lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a problem found in a program definition.
type Issue struct {
	Severity Severity `json:"severity"`
	Week     int      `json:"week,omitempty"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// Lint checks a program for entries the resolver tolerates but a well-formed
// program should not contain. Conflicting or duplicate week entries and
// malformed delta values are errors; everything else is a warning.
func Lint(program *models.TrainingProgram) []Issue {
	if program == nil {
		return []Issue{{Severity: SeverityError, Path: "(root)", Message: ErrNilProgram.Error()}}
	}

	var issues []Issue
	seen := make(map[int]int, len(program.WeeklyTargets))
	known := program.ExerciseLibrary

	for i := range program.WeeklyTargets {
		entry := &program.WeeklyTargets[i]
		path := fmt.Sprintf("weekly_targets[%d]", i)

		if first, dup := seen[entry.Week]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError, Week: entry.Week, Path: path,
				Message: fmt.Sprintf("duplicate week %d (first defined at weekly_targets[%d])", entry.Week, first),
			})
		} else {
			seen[entry.Week] = i
		}

		if entry.DayPrescription != nil && entry.Delta != nil {
			issues = append(issues, Issue{
				Severity: SeverityError, Week: entry.Week, Path: path,
				Message: "both day_prescription and delta_from_previous_week are set",
			})
		}

		if program.DurationWeeks > 0 && entry.Week > program.DurationWeeks {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Week: entry.Week, Path: path,
				Message: fmt.Sprintf("week %d is beyond duration_weeks %d", entry.Week, program.DurationWeeks),
			})
		}

		issues = append(issues, lintDays(entry, path, known)...)
		issues = append(issues, lintDelta(entry, path, known)...)
	}
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func lintDays(entry *models.WeekPrescription, path string, known map[string]models.ExerciseDefinition) []Issue {
	var issues []Issue
	days := Days(Schedule(entry.DayPrescription))
	for _, day := range days {
		for j, item := range entry.DayPrescription[day] {
			itemPath := fmt.Sprintf("%s.day_prescription.%s[%d]", path, day, j)
			def, ok := known[item.Name]
			if !ok {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Week: entry.Week, Path: itemPath,
					Message: fmt.Sprintf("exercise %q is not in exercise_library", item.Name),
				})
				continue
			}
			if n := workloadFields(item); n > 1 {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Week: entry.Week, Path: itemPath,
					Message: fmt.Sprintf("%d workload fields set, only %s is expected", n, def.Type),
				})
			} else if n == 1 && !hasField(item, def.Type) {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Week: entry.Week, Path: itemPath,
					Message: fmt.Sprintf("workload field does not match exercise type %s", def.Type),
				})
			}
		}
	}
	return issues
}

func lintDelta(entry *models.WeekPrescription, path string, known map[string]models.ExerciseDefinition) []Issue {
	if len(entry.Delta) == 0 {
		return nil
	}
	var issues []Issue

	if _, err := parseDelta(entry.Week, entry.Delta); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			issues = append(issues, Issue{
				Severity: SeverityError, Week: entry.Week,
				Path:    fmt.Sprintf("%s.delta_from_previous_week.%s", path, pe.Key),
				Message: fmt.Sprintf("value %q is not a signed integer", pe.Value),
			})
		}
	}

	keys := make([]string, 0, len(entry.Delta))
	for k := range entry.Delta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		keyPath := fmt.Sprintf("%s.delta_from_previous_week.%s", path, key)
		exercise, _, ok := splitDeltaKey(key)
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Week: entry.Week, Path: keyPath,
				Message: "key has no recognized field suffix and is ignored",
			})
			continue
		}
		if _, ok := known[exercise]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Week: entry.Week, Path: keyPath,
				Message: fmt.Sprintf("exercise %q is not in exercise_library", exercise),
			})
		}
	}
	return issues
}

func workloadFields(item models.PrescriptionItem) int {
	n := 0
	for _, p := range []*int{item.Reps, item.HoldSeconds, item.RepsEachSide, item.HoldSecondsEachSide} {
		if p != nil {
			n++
		}
	}
	return n
}

func hasField(item models.PrescriptionItem, t models.ExerciseType) bool {
	switch t {
	case models.TypeReps:
		return item.Reps != nil
	case models.TypeHoldSeconds:
		return item.HoldSeconds != nil
	case models.TypeRepsEachSide:
		return item.RepsEachSide != nil
	case models.TypeHoldSecondsEachSide:
		return item.HoldSecondsEachSide != nil
	}
	return false
}
