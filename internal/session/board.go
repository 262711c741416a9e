package session

import (
	"fmt"
	"sync"

	"github.com/questline/sessionsync/internal/protocol"
)

// Coordinate is a board position.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TileKey derives the session-scoped deduplication key for a coordinate.
func TileKey(c Coordinate) string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// MoveSource says whether a move application is a local optimistic hint or
// the server's authoritative broadcast.
type MoveSource string

const (
	SourceOptimistic    MoveSource = "optimistic"
	SourceAuthoritative MoveSource = "authoritative"
)

// Move is one position change to apply.
type Move struct {
	CharacterID    protocol.FlexID
	To             Coordinate
	MovesRemaining *int
	Source         MoveSource
}

// Board tracks per-character positions. ApplyMove is idempotent regardless of
// source or ordering, so the optimistic write after a 2xx move response and
// the later authoritative broadcast for the same move land identically.
type Board struct {
	mutex     sync.RWMutex
	positions map[string]Coordinate
	movesLeft map[string]int
}

// NewBoard creates an empty board state.
func NewBoard() *Board {
	return &Board{
		positions: make(map[string]Coordinate),
		movesLeft: make(map[string]int),
	}
}

// ApplyMove records a character's new position, and its remaining move budget
// when the payload carries one.
func (b *Board) ApplyMove(m Move) {
	if m.CharacterID.IsZero() {
		return
	}
	b.mutex.Lock()
	b.positions[m.CharacterID.String()] = m.To
	if m.MovesRemaining != nil {
		b.movesLeft[m.CharacterID.String()] = *m.MovesRemaining
	}
	b.mutex.Unlock()
}

// Position returns a character's last known position.
func (b *Board) Position(characterID string) (Coordinate, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	pos, ok := b.positions[characterID]
	return pos, ok
}

// MovesRemaining returns a character's extra movement counter, if known.
func (b *Board) MovesRemaining(characterID string) (int, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	left, ok := b.movesLeft[characterID]
	return left, ok
}

// Positions returns a copy of all known positions.
func (b *Board) Positions() map[string]Coordinate {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	out := make(map[string]Coordinate, len(b.positions))
	for id, pos := range b.positions {
		out[id] = pos
	}
	return out
}

// Entity is something sitting on a tile: a hostile encounter or a lootable
// item.
type Entity struct {
	ID   protocol.FlexID `json:"id"`
	Name string          `json:"name"`
}

// TileContents is what occupies a destination tile.
type TileContents struct {
	Hostiles []Entity
	Items    []Entity
}

// NoticeKind classifies an interaction notice.
type NoticeKind string

const (
	NoticeCombat NoticeKind = "combat"
	NoticeLoot   NoticeKind = "loot"
)

// Notice is a single-fire interaction event for an arrival tile.
type Notice struct {
	Kind        NoticeKind
	Tile        Coordinate
	CharacterID protocol.FlexID
	// LocalMove is set when the arriving character belongs to the local
	// participant; only then does auto-loot run.
	LocalMove bool
	Hostiles  []Entity
	Items     []Entity
}

// Detector decides once per tile per session whether an arrival surfaces a
// combat or loot notice. Hostiles take priority over loot, and each tile key
// fires each notice kind at most once until Reset.
type Detector struct {
	mutex      sync.Mutex
	seenCombat map[string]struct{}
	seenLoot   map[string]struct{}
}

// NewDetector creates a detector with empty seen-sets.
func NewDetector() *Detector {
	return &Detector{
		seenCombat: make(map[string]struct{}),
		seenLoot:   make(map[string]struct{}),
	}
}

// OnArrive inspects the destination tile and returns at most one notice.
// A nil result means the arrival is silent and any stale notice should be
// cleared by the caller.
func (d *Detector) OnArrive(characterID protocol.FlexID, tile Coordinate, contents TileContents, localMove bool) *Notice {
	key := TileKey(tile)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(contents.Hostiles) > 0 {
		if _, seen := d.seenCombat[key]; seen {
			return nil
		}
		d.seenCombat[key] = struct{}{}
		return &Notice{
			Kind:        NoticeCombat,
			Tile:        tile,
			CharacterID: characterID,
			LocalMove:   localMove,
			Hostiles:    contents.Hostiles,
		}
	}

	if len(contents.Items) > 0 {
		if _, seen := d.seenLoot[key]; seen {
			return nil
		}
		d.seenLoot[key] = struct{}{}
		return &Notice{
			Kind:        NoticeLoot,
			Tile:        tile,
			CharacterID: characterID,
			LocalMove:   localMove,
			Items:       contents.Items,
		}
	}

	return nil
}

// Reset clears both seen-sets. Called when the session is torn down.
func (d *Detector) Reset() {
	d.mutex.Lock()
	d.seenCombat = make(map[string]struct{})
	d.seenLoot = make(map[string]struct{})
	d.mutex.Unlock()
}
