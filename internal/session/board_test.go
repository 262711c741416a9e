package session

import (
	"testing"
)

func intPtr(v int) *int { return &v }

func TestApplyMoveIdempotentAcrossSources(t *testing.T) {
	board := NewBoard()

	optimistic := Move{CharacterID: "31", To: Coordinate{X: 4, Y: 9}, MovesRemaining: intPtr(3), Source: SourceOptimistic}
	authoritative := optimistic
	authoritative.Source = SourceAuthoritative

	// Either ordering lands on the same state.
	board.ApplyMove(optimistic)
	board.ApplyMove(authoritative)
	board.ApplyMove(optimistic)

	pos, ok := board.Position("31")
	if !ok || pos != (Coordinate{X: 4, Y: 9}) {
		t.Fatalf("Expected position (4,9), got %+v ok=%v", pos, ok)
	}
	left, ok := board.MovesRemaining("31")
	if !ok || left != 3 {
		t.Errorf("Expected 3 moves remaining, got %d ok=%v", left, ok)
	}
}

func TestApplyMoveWithoutBudgetKeepsCounter(t *testing.T) {
	board := NewBoard()
	board.ApplyMove(Move{CharacterID: "31", To: Coordinate{X: 1, Y: 1}, MovesRemaining: intPtr(5), Source: SourceAuthoritative})
	board.ApplyMove(Move{CharacterID: "31", To: Coordinate{X: 2, Y: 1}, Source: SourceAuthoritative})

	left, ok := board.MovesRemaining("31")
	if !ok || left != 5 {
		t.Errorf("Expected counter untouched by budget-less move, got %d ok=%v", left, ok)
	}
}

func TestApplyMoveIgnoresEmptyID(t *testing.T) {
	board := NewBoard()
	board.ApplyMove(Move{To: Coordinate{X: 1, Y: 1}, Source: SourceAuthoritative})
	if len(board.Positions()) != 0 {
		t.Error("Expected empty-id move to be dropped")
	}
}

func TestDetectorSingleFirePerTile(t *testing.T) {
	detector := NewDetector()
	tile := Coordinate{X: 3, Y: 3}
	contents := TileContents{Hostiles: []Entity{{ID: "m1", Name: "Ghoul"}}}

	first := detector.OnArrive("31", tile, contents, true)
	if first == nil || first.Kind != NoticeCombat {
		t.Fatalf("Expected combat notice, got %+v", first)
	}
	second := detector.OnArrive("31", tile, contents, true)
	if second != nil {
		t.Fatalf("Expected replayed arrival to be silent, got %+v", second)
	}
}

func TestDetectorCombatTakesPriorityOverLoot(t *testing.T) {
	detector := NewDetector()
	tile := Coordinate{X: 5, Y: 2}
	contents := TileContents{
		Hostiles: []Entity{{ID: "m1", Name: "Ghoul"}},
		Items:    []Entity{{ID: "i1", Name: "Potion"}},
	}

	notice := detector.OnArrive("31", tile, contents, true)
	if notice == nil || notice.Kind != NoticeCombat {
		t.Fatalf("Expected combat notice on mixed tile, got %+v", notice)
	}
	if len(notice.Items) != 0 {
		t.Error("Combat notice must not carry loot")
	}
}

func TestDetectorLootNotice(t *testing.T) {
	detector := NewDetector()
	tile := Coordinate{X: 0, Y: 8}
	contents := TileContents{Items: []Entity{{ID: "i1", Name: "Potion"}, {ID: "i2", Name: "Key"}}}

	notice := detector.OnArrive("31", tile, contents, false)
	if notice == nil || notice.Kind != NoticeLoot {
		t.Fatalf("Expected loot notice, got %+v", notice)
	}
	if notice.LocalMove {
		t.Error("Expected remote move to be flagged non-local")
	}
	if len(notice.Items) != 2 {
		t.Errorf("Expected both items in notice, got %d", len(notice.Items))
	}

	if again := detector.OnArrive("31", tile, contents, false); again != nil {
		t.Errorf("Expected second loot arrival to be silent, got %+v", again)
	}
}

func TestDetectorEmptyTileIsSilent(t *testing.T) {
	detector := NewDetector()
	if notice := detector.OnArrive("31", Coordinate{X: 9, Y: 9}, TileContents{}, true); notice != nil {
		t.Fatalf("Expected silent arrival on empty tile, got %+v", notice)
	}
}

func TestDetectorSeenSetsAreIndependentPerKind(t *testing.T) {
	detector := NewDetector()
	tile := Coordinate{X: 1, Y: 2}

	// Combat fires and consumes only the combat set...
	if n := detector.OnArrive("31", tile, TileContents{Hostiles: []Entity{{ID: "m1"}}}, true); n == nil {
		t.Fatal("Expected combat notice")
	}
	// ...so a later loot-only arrival on the same tile still fires.
	if n := detector.OnArrive("31", tile, TileContents{Items: []Entity{{ID: "i1"}}}, true); n == nil || n.Kind != NoticeLoot {
		t.Fatalf("Expected loot notice after combat cleared, got %+v", n)
	}
}

func TestDetectorResetReopensTiles(t *testing.T) {
	detector := NewDetector()
	tile := Coordinate{X: 3, Y: 3}
	contents := TileContents{Hostiles: []Entity{{ID: "m1"}}}

	detector.OnArrive("31", tile, contents, true)
	detector.Reset()

	if notice := detector.OnArrive("31", tile, contents, true); notice == nil {
		t.Fatal("Expected notice to fire again after Reset")
	}
}

func TestTileKey(t *testing.T) {
	if key := TileKey(Coordinate{X: -2, Y: 7}); key != "-2,7" {
		t.Errorf("Expected '-2,7', got %q", key)
	}
}
