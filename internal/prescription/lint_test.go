package prescription

import (
	"strings"
	"testing"
)

func countSeverity(issues []Issue, sev Severity) int {
	n := 0
	for _, i := range issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

func findIssue(issues []Issue, substr string) *Issue {
	for i := range issues {
		if strings.Contains(issues[i].Message, substr) {
			return &issues[i]
		}
	}
	return nil
}

// TestLintCleanProgram verifies a well-formed program yields no issues.
func TestLintCleanProgram(t *testing.T) {
	issues := Lint(mustProgram(t, plankProgram))
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
	if HasErrors(issues) {
		t.Error("HasErrors = true for clean program")
	}
}

// TestLintConflicts verifies conflicting and duplicate week entries are errors.
func TestLintConflicts(t *testing.T) {
	p := mustProgram(t, `{
	  "program_name": "Conflict",
	  "duration_weeks": 2,
	  "exercise_library": {"plank": {"type": "hold_seconds", "rest_s": 60}},
	  "weekly_targets": [
	    {"week": 1, "day_prescription": {"monday": [{"name": "plank", "sets": 3, "hold_seconds": 30}]}},
	    {"week": 2,
	     "day_prescription": {"monday": [{"name": "plank", "sets": 1, "hold_seconds": 15}]},
	     "delta_from_previous_week": {"plank_hold_seconds": "+5"}},
	    {"week": 2, "delta_from_previous_week": {"plank_hold_seconds": "+5"}}
	  ]
	}`)

	issues := Lint(p)
	if !HasErrors(issues) {
		t.Fatal("HasErrors = false, want true")
	}
	if i := findIssue(issues, "both day_prescription"); i == nil || i.Path != "weekly_targets[1]" {
		t.Errorf("missing conflict issue on weekly_targets[1]: %v", issues)
	}
	if i := findIssue(issues, "duplicate week 2"); i == nil || i.Path != "weekly_targets[2]" {
		t.Errorf("missing duplicate issue on weekly_targets[2]: %v", issues)
	}
	if n := countSeverity(issues, SeverityError); n != 2 {
		t.Errorf("error count = %d, want 2: %v", n, issues)
	}
}

// TestLintMalformedDelta verifies malformed delta values are reported even
// when the resolver would never reach them.
func TestLintMalformedDelta(t *testing.T) {
	p := mustProgram(t, `{
	  "program_name": "Bad",
	  "duration_weeks": 2,
	  "exercise_library": {"plank": {"type": "hold_seconds", "rest_s": 60}},
	  "weekly_targets": [
	    {"week": 1, "delta_from_previous_week": {"plank_hold_seconds": "1.5"}}
	  ]
	}`)

	issues := Lint(p)
	i := findIssue(issues, "not a signed integer")
	if i == nil {
		t.Fatalf("missing malformed delta issue: %v", issues)
	}
	if i.Severity != SeverityError {
		t.Errorf("severity = %s, want error", i.Severity)
	}
	if i.Path != "weekly_targets[0].delta_from_previous_week.plank_hold_seconds" {
		t.Errorf("path = %q", i.Path)
	}
}

// TestLintWarnings verifies reference and shape problems are warnings only.
func TestLintWarnings(t *testing.T) {
	p := mustProgram(t, `{
	  "program_name": "Warn",
	  "duration_weeks": 1,
	  "exercise_library": {
	    "plank": {"type": "hold_seconds", "rest_s": 60},
	    "squat": {"type": "reps", "rest_s": 90}
	  },
	  "weekly_targets": [
	    {"week": 1, "day_prescription": {"monday": [
	      {"name": "plank", "sets": 3, "hold_seconds": 30, "reps": 5},
	      {"name": "squat", "sets": 3, "hold_seconds": 30},
	      {"name": "burpee", "sets": 3, "reps": 10}
	    ]}},
	    {"week": 2, "delta_from_previous_week": {"lunge_reps": "+1", "plank_tempo": "+1"}}
	  ]
	}`)

	issues := Lint(p)
	if HasErrors(issues) {
		t.Fatalf("unexpected errors: %v", issues)
	}
	for _, want := range []string{
		"2 workload fields set",
		"does not match exercise type reps",
		`exercise "burpee" is not in exercise_library`,
		`exercise "lunge" is not in exercise_library`,
		"no recognized field suffix",
		"beyond duration_weeks",
	} {
		if findIssue(issues, want) == nil {
			t.Errorf("missing warning %q in %v", want, issues)
		}
	}
}
