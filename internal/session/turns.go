package session

import (
	"strings"
	"sync"

	"github.com/questline/sessionsync/internal/protocol"
)

// CandidateIdentitySet holds every identifier that could denote the local
// character. Upstream data references a character inconsistently — sometimes
// by a resolved numeric id, sometimes by the raw roster selection, sometimes
// only by name — so turn checks match against the whole set. Precedence, for
// diagnostics only (membership is what decides):
//
//  1. the locally resolved character id (from the character fetch)
//  2. the roster slot's selection id
//  3. an id recovered from the turn order by the slot's character name
//  4. an id recovered from the turn order by the locally known name
//
// A false positive would grant move rights to the wrong client, so only exact
// id equality (after canonicalization) counts; names never match directly,
// they only recover an id from the turn order.
type CandidateIdentitySet struct {
	ids []string
}

// BuildCandidates computes the candidate set once per roster or turn-order
// update.
func BuildCandidates(resolvedID string, slot *protocol.Participant, localName string, turnOrder []protocol.TurnEntry) CandidateIdentitySet {
	var set CandidateIdentitySet
	set.add(resolvedID)

	if slot != nil && slot.Character != nil {
		set.add(slot.Character.ID.String())
		set.add(idByName(turnOrder, slot.Character.Name))
	}
	set.add(idByName(turnOrder, localName))

	return set
}

func (s *CandidateIdentitySet) add(id string) {
	if id == "" {
		return
	}
	for _, existing := range s.ids {
		if existing == id {
			return
		}
	}
	s.ids = append(s.ids, id)
}

// Contains reports whether the given id denotes the local character.
func (s CandidateIdentitySet) Contains(id protocol.FlexID) bool {
	if id.IsZero() {
		return false
	}
	for _, candidate := range s.ids {
		if candidate == id.String() {
			return true
		}
	}
	return false
}

// Empty reports whether no identifier is known for the local character.
func (s CandidateIdentitySet) Empty() bool { return len(s.ids) == 0 }

// IDs returns the candidates in precedence order.
func (s CandidateIdentitySet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func idByName(turnOrder []protocol.TurnEntry, name string) string {
	name = canonicalName(name)
	if name == "" {
		return ""
	}
	for _, entry := range turnOrder {
		if canonicalName(entry.Name) == name {
			return entry.CharacterID.String()
		}
	}
	return ""
}

func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// TurnState tracks the single active character and its remaining move budget.
// Only TURN_ACTIVE dispatch mutates the cursor; the candidate set is the one
// piece recomputed locally, on roster and character-resolution changes.
type TurnState struct {
	logger Logger

	mutex          sync.RWMutex
	active         protocol.FlexID
	movesRemaining int
	hasTurn        bool
	turnOrder      []protocol.TurnEntry
	candidates     CandidateIdentitySet
}

// NewTurnState creates a turn state with no active turn.
func NewTurnState(logger Logger) *TurnState {
	return &TurnState{logger: logger}
}

// Set records the active character and move budget from a TURN_ACTIVE
// broadcast. A non-empty turn order replaces the stored one.
func (t *TurnState) Set(characterID protocol.FlexID, movesRemaining int, turnOrder []protocol.TurnEntry) {
	t.mutex.Lock()
	t.active = characterID
	t.movesRemaining = movesRemaining
	t.hasTurn = true
	if len(turnOrder) > 0 {
		t.turnOrder = turnOrder
	}
	t.mutex.Unlock()
}

// Clear drops the turn cursor (no turn active).
func (t *TurnState) Clear() {
	t.mutex.Lock()
	t.active = ""
	t.movesRemaining = 0
	t.hasTurn = false
	t.mutex.Unlock()
}

// Active returns the current turn cursor.
func (t *TurnState) Active() (protocol.FlexID, int, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.active, t.movesRemaining, t.hasTurn
}

// TurnOrder returns the last known turn order.
func (t *TurnState) TurnOrder() []protocol.TurnEntry {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	out := make([]protocol.TurnEntry, len(t.turnOrder))
	copy(out, t.turnOrder)
	return out
}

// Rebuild recomputes the candidate identity set from the current roster slot
// and resolved character information.
func (t *TurnState) Rebuild(resolvedID string, slot *protocol.Participant, localName string) {
	t.mutex.Lock()
	t.candidates = BuildCandidates(resolvedID, slot, localName, t.turnOrder)
	t.mutex.Unlock()
}

// Candidates returns the current candidate identity set.
func (t *TurnState) Candidates() CandidateIdentitySet {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.candidates
}

// IsLocalCharacter reports whether id denotes the local character.
func (t *TurnState) IsLocalCharacter(id protocol.FlexID) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.candidates.Contains(id)
}

// IsMyTurn reports whether the active character belongs to the local
// participant. An empty candidate set means "not my turn", never an error;
// the next broadcast self-corrects a false negative.
func (t *TurnState) IsMyTurn() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.hasTurn && t.candidates.Contains(t.active)
}
