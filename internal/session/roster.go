package session

import (
	"sync"

	"github.com/questline/sessionsync/internal/protocol"
)

// Roster holds the deduplicated participant list for one session, keyed by
// canonical participant id.
type Roster struct {
	local  protocol.Identity
	logger Logger

	mutex   sync.RWMutex
	entries map[string]protocol.Participant
}

// NewRoster creates an empty roster for the given local participant.
func NewRoster(local protocol.Identity, logger Logger) *Roster {
	return &Roster{
		local:   local,
		logger:  logger,
		entries: make(map[string]protocol.Participant),
	}
}

// Replace rebuilds the roster from an authoritative broadcast. Duplicate ids
// collapse to the last occurrence. If the broadcast omits the local
// participant — the server has a window between join-ack and the roster
// broadcast where that happens — a minimal entry is synthesized so the local
// player never drops out of the roster. Workaround, not a protocol guarantee.
func (r *Roster) Replace(raw []protocol.Participant) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entries := make(map[string]protocol.Participant, len(raw))
	for _, p := range raw {
		if p.ID.IsZero() {
			continue
		}
		entries[p.ID.String()] = p
	}

	if _, present := entries[r.local.ID]; !present && r.local.ID != "" {
		r.logger.Printf("roster broadcast omitted local participant %s, reinjecting", r.local.ID)
		entries[r.local.ID] = protocol.Participant{
			ID:        protocol.FlexID(r.local.ID),
			Name:      r.local.Name,
			Connected: true,
		}
	}

	r.entries = entries
}

// Remove drops a participant. Removing the local participant is a no-op; the
// router suppresses self-removal before it gets here, and this guard keeps
// the invariant even for direct callers.
func (r *Roster) Remove(id protocol.FlexID) {
	if id.String() == r.local.ID {
		return
	}
	r.mutex.Lock()
	delete(r.entries, id.String())
	r.mutex.Unlock()
}

// Get returns the participant with the given id.
func (r *Roster) Get(id string) (protocol.Participant, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	p, ok := r.entries[id]
	return p, ok
}

// Local returns the local participant's roster entry, if present.
func (r *Roster) Local() (protocol.Participant, bool) {
	return r.Get(r.local.ID)
}

// Snapshot returns a copy of the roster map.
func (r *Roster) Snapshot() map[string]protocol.Participant {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make(map[string]protocol.Participant, len(r.entries))
	for id, p := range r.entries {
		out[id] = p
	}
	return out
}

// Len returns the number of participants.
func (r *Roster) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.entries)
}
