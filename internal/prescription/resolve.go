// Package prescription replays a program's weekly snapshots and deltas into
// the concrete per-day workload for a given week.
package prescription

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/claude/trainplan/internal/models"
)

var (
	// ErrInvalidWeek is returned for week numbers below 1.
	ErrInvalidWeek = errors.New("week must be a positive integer")
	// ErrNilProgram is returned when no program is supplied.
	ErrNilProgram = errors.New("program is nil")
)

// Schedule is the working prescription: day name to ordered items.
type Schedule map[string][]models.PrescriptionItem

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	return Schedule(models.DayPrescription(s).Clone())
}

// ParseError reports a delta value that is not a signed integer.
type ParseError struct {
	Week  int
	Key   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("week %d: delta %q has invalid value %q: %v", e.Week, e.Key, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// deltaField binds a delta key suffix to the item field it adjusts.
type deltaField struct {
	suffix string
	add    func(item *models.PrescriptionItem, n int)
}

// deltaFields is ordered most-specific suffix first: exercise names may
// contain underscores, so "push_up_reps_each_side" must not match "_reps".
var deltaFields = []deltaField{
	{"_hold_seconds_each_side", func(it *models.PrescriptionItem, n int) { it.HoldSecondsEachSide = addTo(it.HoldSecondsEachSide, n) }},
	{"_reps_each_side", func(it *models.PrescriptionItem, n int) { it.RepsEachSide = addTo(it.RepsEachSide, n) }},
	{"_hold_seconds", func(it *models.PrescriptionItem, n int) { it.HoldSeconds = addTo(it.HoldSeconds, n) }},
	{"_reps", func(it *models.PrescriptionItem, n int) { it.Reps = addTo(it.Reps, n) }},
	{"_sets", func(it *models.PrescriptionItem, n int) { it.Sets += n }},
}

// addTo treats an absent field as 0.
func addTo(p *int, n int) *int {
	v := n
	if p != nil {
		v += *p
	}
	return &v
}

// splitDeltaKey returns the exercise name and field for a delta key.
// ok is false when the key carries no recognized suffix.
func splitDeltaKey(key string) (exercise string, field *deltaField, ok bool) {
	for i := range deltaFields {
		if name, found := strings.CutSuffix(key, deltaFields[i].suffix); found {
			return name, &deltaFields[i], true
		}
	}
	return "", nil, false
}

// deltaOp is one parsed delta entry.
type deltaOp struct {
	exercise string
	field    *deltaField
	amount   int
}

// parseDelta compiles a week's delta mapping. Keys are processed in sorted
// order so the first reported error is stable.
func parseDelta(week int, delta models.Delta) ([]deltaOp, error) {
	keys := make([]string, 0, len(delta))
	for k := range delta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]deltaOp, 0, len(keys))
	for _, key := range keys {
		exercise, field, ok := splitDeltaKey(key)
		if !ok {
			continue
		}
		raw := string(delta[key])
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ParseError{Week: week, Key: key, Value: raw, Err: err}
		}
		ops = append(ops, deltaOp{exercise: exercise, field: field, amount: n})
	}
	return ops, nil
}

// apply folds one week entry into the working schedule and returns the next
// schedule. The input schedule and the entry are never modified.
// A snapshot takes precedence when an entry carries both kinds.
func apply(working Schedule, entry *models.WeekPrescription) (Schedule, error) {
	if entry.DayPrescription != nil {
		return Schedule(entry.DayPrescription.Clone()), nil
	}
	if len(entry.Delta) == 0 || len(working) == 0 {
		return working, nil
	}

	ops, err := parseDelta(entry.Week, entry.Delta)
	if err != nil {
		return nil, err
	}

	next := working.Clone()
	for _, items := range next {
		for i := range items {
			for _, op := range ops {
				if items[i].Name == op.exercise {
					op.field.add(&items[i], op.amount)
				}
			}
		}
	}
	return next, nil
}

// indexWeeks maps each week number to its first entry and reports the
// highest week number present.
func indexWeeks(targets []models.WeekPrescription) (map[int]*models.WeekPrescription, int) {
	byWeek := make(map[int]*models.WeekPrescription, len(targets))
	maxWeek := 0
	for i := range targets {
		w := targets[i].Week
		if _, seen := byWeek[w]; !seen {
			byWeek[w] = &targets[i]
		}
		if w > maxWeek {
			maxWeek = w
		}
	}
	return byWeek, maxWeek
}

// Resolve computes the prescription for every training day of targetWeek by
// replaying weeks 1..targetWeek in ascending order. Weeks without an entry
// contribute nothing; a day_prescription replaces everything accumulated so
// far; a delta adjusts matching items of every day. The program is not
// modified and the result shares no memory with it.
func Resolve(program *models.TrainingProgram, targetWeek int) (Schedule, error) {
	if program == nil {
		return nil, ErrNilProgram
	}
	if targetWeek < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWeek, targetWeek)
	}

	byWeek, maxWeek := indexWeeks(program.WeeklyTargets)
	last := min(targetWeek, maxWeek)

	working := Schedule{}
	for w := 1; w <= last; w++ {
		entry, ok := byWeek[w]
		if !ok {
			continue
		}
		next, err := apply(working, entry)
		if err != nil {
			return nil, err
		}
		working = next
	}
	return working, nil
}

// ResolveDay returns the items for a single day of targetWeek. A day with no
// prescription yields an empty slice.
func ResolveDay(program *models.TrainingProgram, targetWeek int, day string) ([]models.PrescriptionItem, error) {
	schedule, err := Resolve(program, targetWeek)
	if err != nil {
		return nil, err
	}
	if items, ok := schedule[day]; ok {
		return items, nil
	}
	for d, items := range schedule {
		if strings.EqualFold(d, day) {
			return items, nil
		}
	}
	return []models.PrescriptionItem{}, nil
}

var weekdayOrder = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// Days returns the schedule's day names in calendar order. Names that are
// not weekdays follow, sorted alphabetically.
func Days(s Schedule) []string {
	days := make([]string, 0, len(s))
	for d := range s {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		oi, iok := weekdayOrder[strings.ToLower(days[i])]
		oj, jok := weekdayOrder[strings.ToLower(days[j])]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return days[i] < days[j]
		}
	})
	return days
}
