package session

import "github.com/claude/trainplan/internal/models"

// Event types published to subscribers.
const (
	EventStarted      = "started"
	EventTick         = "tick"
	EventSetCompleted = "set_completed"
	EventRestStarted  = "rest_started"
	EventRestFinished = "rest_finished"
	EventTimeLimit    = "time_limit"
	EventPaused       = "paused"
	EventResumed      = "resumed"
	EventFinished     = "finished"
)

// Event is a state change of a session.
type Event struct {
	Type     string            `json:"type"`
	Snapshot Snapshot          `json:"snapshot"`
	Set      *models.LoggedSet `json:"set,omitempty"`
}

// Snapshot is the display state of a session at one instant.
type Snapshot struct {
	ID               string      `json:"id"`
	State            State       `json:"state"`
	Week             int         `json:"week"`
	Day              string      `json:"day"`
	ElapsedSec       int         `json:"elapsed_sec"`
	PausedSec        int         `json:"paused_sec"`
	SetElapsedSec    int         `json:"set_elapsed_sec"`
	RestRemainingSec int         `json:"rest_remaining_sec"`
	SetIndex         int         `json:"set_index"`
	TotalSets        int         `json:"total_sets"`
	CompletedSets    int         `json:"completed_sets"`
	Current          *PlannedSet `json:"current,omitempty"`
	Next             *PlannedSet `json:"next,omitempty"`
	OverTimeLimit    bool        `json:"over_time_limit,omitempty"`
}

// Snapshot returns the current display state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:               s.id.String(),
		State:            s.state,
		Week:             s.opts.Week,
		Day:              s.opts.Day,
		ElapsedSec:       s.elapsedSec,
		PausedSec:        s.pausedSec,
		SetElapsedSec:    s.setElapsedSec,
		RestRemainingSec: s.restRemaining,
		SetIndex:         s.current,
		TotalSets:        len(s.plan),
		CompletedSets:    len(s.logged),
	}
	if s.state.Terminal() {
		return snap
	}

	// While resting, "current" is the set just completed and "next" is the
	// one the countdown leads into.
	cur := s.plan[s.current]
	snap.Current = &cur
	snap.OverTimeLimit = cur.TimeLimitS > 0 && s.setElapsedSec > cur.TimeLimitS
	if s.current+1 < len(s.plan) {
		next := s.plan[s.current+1]
		snap.Next = &next
	}
	return snap
}

// Subscribe returns a channel receiving this session's events. Slow
// subscribers miss events rather than block the session.
func (s *Session) Subscribe() chan Event {
	ch := make(chan Event, 32)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch.
func (s *Session) Unsubscribe(ch chan Event) {
	s.subsMu.Lock()
	delete(s.subs, ch)
	s.subsMu.Unlock()
}

func (s *Session) broadcast(event Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, skip
		}
	}
}
