// Package session runs a timed workout for one day's prescription: a session
// clock, per-set rest countdowns, pause/resume and set logging.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/trainplan/internal/models"
	"github.com/claude/trainplan/internal/prescription"
	"github.com/google/uuid"
)

// State is the lifecycle state of a session.
type State string

const (
	StateReady     State = "ready"
	StateWorking   State = "working"
	StateResting   State = "resting"
	StatePaused    State = "paused"
	StateFinished  State = "finished"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateCancelled
}

var (
	ErrUnknownExercise = errors.New("exercise not in exercise library")
	ErrNothingPlanned  = errors.New("no sets planned for this day")
	ErrNotRunning      = errors.New("session is not running")
	ErrNotResting      = errors.New("session is not resting")
	ErrNotWorking      = errors.New("no set in progress")
	ErrAlreadyStarted  = errors.New("session already started")
)

// PlannedSet is one set of the flattened day plan.
type PlannedSet struct {
	Exercise   string                  `json:"exercise"`
	Type       models.ExerciseType     `json:"type"`
	SetNumber  int                     `json:"set_number"`
	TotalSets  int                     `json:"total_sets"`
	Target     string                  `json:"target"`
	Load       string                  `json:"load,omitempty"`
	RestS      int                     `json:"rest_s"`
	TimeLimitS int                     `json:"time_limit_s,omitempty"`
	Item       models.PrescriptionItem `json:"item"`
}

// Actual is what the user performed. Nil workload fields fall back to the
// prescribed values.
type Actual struct {
	Reps                *int     `json:"reps,omitempty"`
	HoldSeconds         *int     `json:"hold_seconds,omitempty"`
	RepsEachSide        *int     `json:"reps_each_side,omitempty"`
	HoldSecondsEachSide *int     `json:"hold_seconds_each_side,omitempty"`
	WeightKg            *float64 `json:"weight_kg,omitempty"`
	DistanceM           *float64 `json:"distance_m,omitempty"`
}

func (a Actual) empty() bool {
	return a.Reps == nil && a.HoldSeconds == nil && a.RepsEachSide == nil && a.HoldSecondsEachSide == nil
}

// Options identify the session and inject the clock.
type Options struct {
	UserID    int
	ProgramID *uuid.UUID
	Week      int
	Day       string
	Now       func() time.Time
	Log       *slog.Logger
}

// Session is a single running workout. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id   uuid.UUID
	opts Options
	plan []PlannedSet

	state       State
	beforePause State
	current     int

	elapsedSec    int
	pausedSec     int
	setElapsedSec int
	restRemaining int

	startedAt time.Time
	endedAt   time.Time
	logged    []models.LoggedSet

	stopClock context.CancelFunc
	doneCh    chan struct{}

	subs   map[chan Event]struct{}
	subsMu sync.Mutex
}

// New flattens a day's items into planned sets. Every item must name an
// exercise in the library.
func New(items []models.PrescriptionItem, library map[string]models.ExerciseDefinition, opts Options) (*Session, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	var plan []PlannedSet
	for _, item := range items {
		def, ok := library[item.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, item.Name)
		}
		limit := 0
		if def.TimeLimitS != nil {
			limit = *def.TimeLimitS
		}
		for n := 1; n <= item.Sets; n++ {
			plan = append(plan, PlannedSet{
				Exercise:   item.Name,
				Type:       def.Type,
				SetNumber:  n,
				TotalSets:  item.Sets,
				Target:     prescription.FormatTarget(item),
				Load:       prescription.FormatLoad(item),
				RestS:      def.RestS,
				TimeLimitS: limit,
				Item:       item.Clone(),
			})
		}
	}
	if len(plan) == 0 {
		return nil, ErrNothingPlanned
	}

	return &Session{
		id:     uuid.New(),
		opts:   opts,
		plan:   plan,
		state:  StateReady,
		doneCh: make(chan struct{}),
		subs:   make(map[chan Event]struct{}),
	}, nil
}

// ID returns the session id, which becomes the workout log id.
func (s *Session) ID() uuid.UUID { return s.id }

// Plan returns a copy of the planned sets.
func (s *Session) Plan() []PlannedSet {
	out := make([]PlannedSet, len(s.plan))
	copy(out, s.plan)
	return out
}

// Begin moves a ready session to working without starting the clock.
// Tick must then be driven by the caller.
func (s *Session) Begin() error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateWorking
	s.startedAt = s.opts.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.opts.Log.Info("session started", "session", s.id, "week", s.opts.Week, "day", s.opts.Day, "sets", len(s.plan))
	s.broadcast(Event{Type: EventStarted, Snapshot: snap})
	return nil
}

// Start begins the session and launches the session clock, which ticks once
// per second until the session ends or ctx is cancelled.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Begin(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.stopClock = cancel
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.doneCh)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.Tick() {
				return
			}
		}
	}
}

// Done is closed when the clock started by Start exits.
func (s *Session) Done() <-chan struct{} { return s.doneCh }

// Tick advances the session by one second. The session clock runs while not
// paused; the rest countdown runs only while resting. Returns false once the
// session has ended.
func (s *Session) Tick() bool {
	s.mu.Lock()
	var events []Event

	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return true
	case StateFinished, StateCancelled:
		s.mu.Unlock()
		return false
	case StatePaused:
		s.pausedSec++
	case StateWorking:
		s.elapsedSec++
		s.setElapsedSec++
		if limit := s.plan[s.current].TimeLimitS; limit > 0 && s.setElapsedSec == limit {
			events = append(events, Event{Type: EventTimeLimit})
		}
	case StateResting:
		s.elapsedSec++
		s.restRemaining--
		if s.restRemaining <= 0 {
			s.advanceLocked()
			events = append(events, Event{Type: EventRestFinished})
		}
	}

	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(Event{Type: EventTick, Snapshot: snap})
	for _, e := range events {
		e.Snapshot = snap
		s.broadcast(e)
	}
	return true
}

// CompleteSet logs the current set and starts its rest countdown. Completing
// the last set finishes the session.
func (s *Session) CompleteSet(actual Actual) (models.LoggedSet, error) {
	s.mu.Lock()
	if s.state != StateWorking {
		s.mu.Unlock()
		return models.LoggedSet{}, ErrNotWorking
	}

	planned := s.plan[s.current]
	set := models.LoggedSet{
		ExerciseName:  planned.Exercise,
		SetNumber:     planned.SetNumber,
		WeightKg:      actual.WeightKg,
		DistanceM:     actual.DistanceM,
		Target:        planned.Target,
		CompletedAt:   s.opts.Now().UTC(),
		OverTimeLimit: planned.TimeLimitS > 0 && s.setElapsedSec > planned.TimeLimitS,
	}
	if actual.empty() {
		prescribed := planned.Item.Clone()
		set.Reps = prescribed.Reps
		set.HoldSeconds = prescribed.HoldSeconds
		set.RepsEachSide = prescribed.RepsEachSide
		set.HoldSecondsEachSide = prescribed.HoldSecondsEachSide
	} else {
		set.Reps = actual.Reps
		set.HoldSeconds = actual.HoldSeconds
		set.RepsEachSide = actual.RepsEachSide
		set.HoldSecondsEachSide = actual.HoldSecondsEachSide
	}
	if set.WeightKg == nil && planned.Item.WeightKg != nil {
		w := *planned.Item.WeightKg
		set.WeightKg = &w
	}
	if set.DistanceM == nil && planned.Item.DistanceM != nil {
		d := *planned.Item.DistanceM
		set.DistanceM = &d
	}
	s.logged = append(s.logged, set)

	events := []Event{{Type: EventSetCompleted, Set: &set}}
	switch {
	case s.current == len(s.plan)-1:
		s.finishLocked(StateFinished)
		events = append(events, Event{Type: EventFinished})
	case planned.RestS > 0:
		s.state = StateResting
		s.restRemaining = planned.RestS
		events = append(events, Event{Type: EventRestStarted})
	default:
		s.advanceLocked()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, e := range events {
		e.Snapshot = snap
		s.broadcast(e)
	}
	return set, nil
}

// SkipRest ends the rest countdown early and starts the next set.
func (s *Session) SkipRest() error {
	s.mu.Lock()
	if s.state != StateResting {
		s.mu.Unlock()
		return ErrNotResting
	}
	s.advanceLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(Event{Type: EventRestFinished, Snapshot: snap})
	return nil
}

// Pause stops the session clock and any rest countdown.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StateWorking && s.state != StateResting {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.beforePause = s.state
	s.state = StatePaused
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(Event{Type: EventPaused, Snapshot: snap})
	return nil
}

// Resume continues a paused session where it left off.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.state = s.beforePause
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(Event{Type: EventResumed, Snapshot: snap})
	return nil
}

// Cancel abandons the session. Logged sets are discarded.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.finishLocked(StateCancelled)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.opts.Log.Info("session cancelled", "session", s.id)
	s.broadcast(Event{Type: EventFinished, Snapshot: snap})
	return nil
}

// Finish ends the session and returns its workout log. Finishing early keeps
// the sets logged so far. Calling Finish on an already finished session
// returns the same log.
func (s *Session) Finish() (*models.WorkoutLog, error) {
	s.mu.Lock()
	switch s.state {
	case StateReady, StateCancelled:
		s.mu.Unlock()
		return nil, ErrNotRunning
	case StateFinished:
		log := s.logLocked()
		s.mu.Unlock()
		return log, nil
	}
	s.finishLocked(StateFinished)
	log := s.logLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.opts.Log.Info("session finished", "session", s.id, "sets", len(log.Sets), "duration_sec", log.DurationSec)
	s.broadcast(Event{Type: EventFinished, Snapshot: snap})
	return log, nil
}

// advanceLocked starts the next planned set.
func (s *Session) advanceLocked() {
	s.current++
	s.state = StateWorking
	s.setElapsedSec = 0
	s.restRemaining = 0
}

func (s *Session) finishLocked(state State) {
	s.state = state
	s.restRemaining = 0
	s.endedAt = s.opts.Now()
	if s.stopClock != nil {
		s.stopClock()
	}
}

func (s *Session) logLocked() *models.WorkoutLog {
	var programID *uuid.UUID
	if s.opts.ProgramID != nil {
		id := *s.opts.ProgramID
		programID = &id
	}
	sets := make([]models.LoggedSet, len(s.logged))
	copy(sets, s.logged)
	return &models.WorkoutLog{
		ID:          s.id,
		UserID:      s.opts.UserID,
		ProgramID:   programID,
		Week:        s.opts.Week,
		Day:         s.opts.Day,
		StartedAt:   s.startedAt.UTC(),
		EndedAt:     s.endedAt.UTC(),
		DurationSec: s.elapsedSec,
		PausedSec:   s.pausedSec,
		Sets:        sets,
	}
}
