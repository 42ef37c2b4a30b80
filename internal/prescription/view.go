package prescription

import (
	"strings"

	"github.com/claude/trainplan/internal/models"
)

// ItemView is a resolved item with its display strings and library metadata.
type ItemView struct {
	models.PrescriptionItem
	Target      string              `json:"target"`
	Load        string              `json:"load,omitempty"`
	Type        models.ExerciseType `json:"type,omitempty"`
	RestS       int                 `json:"rest_s"`
	TimeLimitS  *int                `json:"time_limit_s,omitempty"`
	Description string              `json:"description,omitempty"`
	GifURL      string              `json:"gif_url,omitempty"`
	Known       bool                `json:"known"`
}

// DayView is one day of a resolved week.
type DayView struct {
	Day   string     `json:"day"`
	Items []ItemView `json:"items"`
}

// WeekView is a resolved week ready for display.
type WeekView struct {
	ProgramName   string    `json:"program_name"`
	Week          int       `json:"week"`
	DurationWeeks int       `json:"duration_weeks"`
	Days          []DayView `json:"days"`
}

// ViewWeek resolves a week and attaches formatted targets and library
// metadata. A non-empty day restricts the view to that day (matched
// case-insensitively); an unknown day yields no days.
func ViewWeek(program *models.TrainingProgram, week int, day string) (*WeekView, error) {
	schedule, err := Resolve(program, week)
	if err != nil {
		return nil, err
	}

	view := &WeekView{
		ProgramName:   program.ProgramName,
		Week:          week,
		DurationWeeks: program.DurationWeeks,
		Days:          []DayView{},
	}
	for _, d := range Days(schedule) {
		if day != "" && !strings.EqualFold(d, day) {
			continue
		}
		dv := DayView{Day: d, Items: make([]ItemView, 0, len(schedule[d]))}
		for _, item := range schedule[d] {
			dv.Items = append(dv.Items, viewItem(item, program.ExerciseLibrary))
		}
		view.Days = append(view.Days, dv)
	}
	return view, nil
}

func viewItem(item models.PrescriptionItem, library map[string]models.ExerciseDefinition) ItemView {
	v := ItemView{
		PrescriptionItem: item,
		Target:           FormatTarget(item),
		Load:             FormatLoad(item),
	}
	if def, ok := library[item.Name]; ok {
		v.Known = true
		v.Type = def.Type
		v.RestS = def.RestS
		v.TimeLimitS = def.TimeLimitS
		v.Description = def.Description
		v.GifURL = def.GifURL
	}
	return v
}
