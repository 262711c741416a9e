package session

import (
	"testing"

	"github.com/questline/sessionsync/internal/protocol"
)

func TestIsMyTurnMatchesAnyCandidateShape(t *testing.T) {
	turnOrder := []protocol.TurnEntry{
		{CharacterID: "31", Name: "Grimnir"},
		{CharacterID: "32", Name: "Vala"},
	}

	tests := []struct {
		name       string
		resolvedID string
		slot       *protocol.Participant
		localName  string
		activeID   protocol.FlexID
		want       bool
	}{
		{
			name:       "resolved numeric id",
			resolvedID: "31",
			activeID:   "31",
			want:       true,
		},
		{
			name:     "roster slot selection id as numeric string",
			slot:     &protocol.Participant{ID: "7", Character: &protocol.CharacterRef{ID: "31"}},
			activeID: "31",
			want:     true,
		},
		{
			name:     "nested character object id",
			slot:     &protocol.Participant{ID: "7", Character: &protocol.CharacterRef{ID: "31", Name: "Grimnir"}},
			activeID: "31",
			want:     true,
		},
		{
			name:      "recovered by case-insensitive name match",
			localName: "  GRIMNIR ",
			activeID:  "31",
			want:      true,
		},
		{
			name:       "no candidate matches",
			resolvedID: "31",
			slot:       &protocol.Participant{ID: "7", Character: &protocol.CharacterRef{ID: "31", Name: "Grimnir"}},
			localName:  "Grimnir",
			activeID:   "32",
			want:       false,
		},
		{
			name:     "empty candidate set is never my turn",
			activeID: "31",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := NewTurnState(&MockLogger{})
			turns.Set(tt.activeID, 4, turnOrder)
			turns.Rebuild(tt.resolvedID, tt.slot, tt.localName)

			if got := turns.IsMyTurn(); got != tt.want {
				t.Errorf("IsMyTurn() = %v, want %v (candidates %v)", got, tt.want, turns.Candidates().IDs())
			}
		})
	}
}

func TestCandidateSetDeduplicatesAndOrders(t *testing.T) {
	slot := &protocol.Participant{ID: "7", Character: &protocol.CharacterRef{ID: "31", Name: "Grimnir"}}
	turnOrder := []protocol.TurnEntry{{CharacterID: "31", Name: "Grimnir"}}

	set := BuildCandidates("31", slot, "grimnir", turnOrder)
	ids := set.IDs()
	if len(ids) != 1 || ids[0] != "31" {
		t.Fatalf("Expected single deduplicated candidate '31', got %v", ids)
	}
}

func TestCandidateNameNeverMatchesWithoutTurnOrderID(t *testing.T) {
	// A name with no turn-order entry recovers nothing: names alone must
	// never grant move rights.
	set := BuildCandidates("", nil, "Grimnir", nil)
	if !set.Empty() {
		t.Fatalf("Expected empty candidate set, got %v", set.IDs())
	}
	if set.Contains("Grimnir") {
		t.Error("A bare name must not be a candidate id")
	}
}

func TestTurnStateSetAndClear(t *testing.T) {
	turns := NewTurnState(&MockLogger{})

	if _, _, active := turns.Active(); active {
		t.Fatal("Expected no active turn initially")
	}

	turns.Set("31", 6, nil)
	id, moves, active := turns.Active()
	if !active || id != "31" || moves != 6 {
		t.Errorf("Expected active turn 31 with 6 moves, got %s/%d/%v", id, moves, active)
	}

	turns.Clear()
	if _, _, active := turns.Active(); active {
		t.Error("Expected no active turn after Clear")
	}
}

func TestTurnOrderOnlyReplacedWhenPresent(t *testing.T) {
	turns := NewTurnState(&MockLogger{})
	turns.Set("31", 4, []protocol.TurnEntry{{CharacterID: "31", Name: "Grimnir"}})

	// A later TURN_ACTIVE without an order keeps the known one, so the
	// name fallback still works.
	turns.Set("32", 4, nil)
	turns.Rebuild("", nil, "Grimnir")
	if !turns.IsLocalCharacter("31") {
		t.Error("Expected name recovery to keep using the stored turn order")
	}
}
