package session

import (
	"encoding/json"
	"sync"
	"time"
)

// StartKind distinguishes the two scheduled transitions.
type StartKind string

const (
	StartSession StartKind = "session"
	StartCombat  StartKind = "combat"
)

// ScheduledStart is a transition every client performs at the same wall-clock
// instant, so screens flip together despite delivery jitter.
type ScheduledStart struct {
	Kind    StartKind
	At      time.Time
	Payload json.RawMessage
}

// Scheduler fires at most one pending start per session. A new schedule
// cancels the prior pending one; a target instant already in the past fires
// immediately.
type Scheduler struct {
	fire func(ScheduledStart)
	now  func() time.Time

	mutex sync.Mutex
	timer *time.Timer
}

// NewScheduler creates a scheduler delivering to fire.
func NewScheduler(fire func(ScheduledStart)) *Scheduler {
	return &Scheduler{fire: fire, now: time.Now}
}

// Schedule arms the one-shot timer for the given unix-millisecond target.
func (s *Scheduler) Schedule(kind StartKind, startAtMillis int64, payload json.RawMessage) {
	at := time.UnixMilli(startAtMillis)
	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	event := ScheduledStart{Kind: kind, At: at, Payload: payload}

	s.mutex.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, func() { s.fire(event) })
	s.mutex.Unlock()
}

// Stop cancels any pending start.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mutex.Unlock()
}
