package mcp

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/claude/trainplan/internal/models"
	"github.com/claude/trainplan/internal/prescription"
	"github.com/claude/trainplan/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	return timeRangeWithDefault(startStr, endStr, 7)
}

// timeRangeWithDefault parses start/end, defaulting end to now and start to
// days before end.
func timeRangeWithDefault(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetProgramOverview = mcp.NewTool("get_program_overview",
	mcp.WithDescription("Describe the active training program: name, duration, goals, session time budget, exercise library, and which weeks are absolute prescriptions versus deltas from the previous week."),
)

var toolGetWeekPrescription = mcp.NewTool("get_week_prescription",
	mcp.WithDescription("Resolve the exercises, sets and targets prescribed for a program week by replaying every snapshot and delta up to that week. Targets are formatted for display (e.g. '12', '30s', '8 (each)')."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("Program week, starting at 1")),
	mcp.WithString("day", mcp.Description("Restrict to one day (e.g. 'monday')")),
)

var toolGetWorkoutLogs = mcp.NewTool("get_workout_logs",
	mcp.WithDescription("Query logged workout sessions with their sets. Each set carries the performed values and the target that was prescribed at the time."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Only sessions containing this exercise (partial match)")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Session-by-session progression for one exercise: sets, total reps, total hold seconds, best set and max load. Each-side work counts both sides in totals."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name as used in the program (e.g. 'plank')")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Weekly or monthly training volume: sessions, minutes trained, sets, reps, hold seconds and distinct exercises per period."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 week'."), mcp.Enum("1 week", "1 month")),
)

// --- Tool handlers ---

// ProgramOverview summarizes a stored program.
type ProgramOverview struct {
	ID               uuid.UUID               `json:"id"`
	Name             string                  `json:"name"`
	DurationWeeks    int                     `json:"duration_weeks"`
	GoalPriority     []string                `json:"goal_priority,omitempty"`
	SessionStructure models.SessionStructure `json:"session_structure"`
	ImportedAt       time.Time               `json:"imported_at"`
	Exercises        []ExerciseOverview      `json:"exercises"`
	Weeks            []WeekOverview          `json:"weeks"`
}

// ExerciseOverview is one exercise library entry.
type ExerciseOverview struct {
	Name string `json:"name"`
	models.ExerciseDefinition
}

// WeekOverview says how a week is defined.
type WeekOverview struct {
	Week int      `json:"week"`
	Kind string   `json:"kind"`
	Days []string `json:"days,omitempty"`
	Keys []string `json:"delta_keys,omitempty"`
}

func programOverview(rec *models.ProgramRecord) ProgramOverview {
	p := rec.Program
	ov := ProgramOverview{
		ID:               rec.ID,
		Name:             p.ProgramName,
		DurationWeeks:    p.DurationWeeks,
		GoalPriority:     p.GoalPriority,
		SessionStructure: p.SessionStructure,
		ImportedAt:       rec.ImportedAt,
		Exercises:        make([]ExerciseOverview, 0, len(p.ExerciseLibrary)),
		Weeks:            make([]WeekOverview, 0, len(p.WeeklyTargets)),
	}
	for name, def := range p.ExerciseLibrary {
		ov.Exercises = append(ov.Exercises, ExerciseOverview{Name: name, ExerciseDefinition: def})
	}
	sort.Slice(ov.Exercises, func(i, j int) bool { return ov.Exercises[i].Name < ov.Exercises[j].Name })

	for _, entry := range p.WeeklyTargets {
		wo := WeekOverview{Week: entry.Week}
		switch {
		case entry.DayPrescription != nil:
			wo.Kind = "snapshot"
			wo.Days = prescription.Days(prescription.Schedule(entry.DayPrescription))
		case len(entry.Delta) > 0:
			wo.Kind = "delta"
			for k := range entry.Delta {
				wo.Keys = append(wo.Keys, k)
			}
			sort.Strings(wo.Keys)
		default:
			wo.Kind = "empty"
		}
		ov.Weeks = append(ov.Weeks, wo)
	}
	sort.SliceStable(ov.Weeks, func(i, j int) bool { return ov.Weeks[i].Week < ov.Weeks[j].Week })
	return ov
}

func (h *handlers) activeProgramOrError(ctx context.Context) (*models.ProgramRecord, *mcp.CallToolResult) {
	rec, err := h.ds.GetActiveProgram(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp active program", "error", err)
		return nil, mcp.NewToolResultError("query failed: " + err.Error())
	}
	if rec == nil {
		return nil, mcp.NewToolResultError(storage.ErrNoActiveProgram.Error() + ": import a program first")
	}
	return rec, nil
}

func (h *handlers) getProgramOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, errResult := h.activeProgramOrError(ctx)
	if errResult != nil {
		return errResult, nil
	}

	result, err := mcp.NewToolResultJSON(programOverview(rec))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWeekPrescription(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	week, err := req.RequireInt("week")
	if err != nil {
		return mcp.NewToolResultError("week parameter is required"), nil
	}

	rec, errResult := h.activeProgramOrError(ctx)
	if errResult != nil {
		return errResult, nil
	}

	view, err := prescription.ViewWeek(&rec.Program, week, req.GetString("day", ""))
	if err != nil {
		var pe *prescription.ParseError
		if errors.As(err, &pe) {
			h.log.Error("mcp get_week_prescription: stored program has a malformed delta", "error", err)
		}
		return mcp.NewToolResultError("resolve failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(view)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	logs, err := h.ds.QueryWorkoutLogs(ctx, start, end, uid, req.GetString("exercise", ""))
	if err != nil {
		h.log.Error("mcp get_workout_logs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(logs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	start, end, err := timeRangeWithDefault(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	history, err := h.ds.GetExerciseHistory(ctx, exercise, start, end, uid)
	if err != nil {
		h.log.Error("mcp get_exercise_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(history)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRangeWithDefault(req.GetString("start", ""), req.GetString("end", ""), 182)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := req.GetString("bucket", "1 week")
	uid := UserIDFromContext(ctx)

	summary, err := h.ds.GetTrainingSummary(ctx, start, end, bucket, uid)
	if err != nil {
		h.log.Error("mcp get_training_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summary)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
