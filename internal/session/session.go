package session

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/questline/sessionsync/internal/protocol"
	"github.com/questline/sessionsync/internal/rest"
	"github.com/questline/sessionsync/internal/wsclient"
)

// JoinParams configures a session join.
type JoinParams struct {
	GameID string
	// MapID selects the board whose tile contents drive interaction
	// detection. Optional; without it only move-response tile payloads
	// feed the detector.
	MapID    string
	Identity protocol.Identity
	// CharacterID is the participant's selected character, empty until
	// chosen.
	CharacterID string

	Registry  *wsclient.Registry
	API       *rest.Client
	Callbacks Callbacks
	Logger    Logger
}

// Session is one client's view of a shared game session: the shared
// connection handle, the event router, and the derived state the UI reads.
type Session struct {
	gameID   string
	identity protocol.Identity
	api      *rest.Client
	logger   Logger

	roster    *Roster
	turns     *TurnState
	board     *Board
	detector  *Detector
	scheduler *Scheduler
	router    *Router

	handle *wsclient.Handle
	detach func()

	tileMu sync.RWMutex
	tiles  map[string]TileContents

	charMu      sync.RWMutex
	characterID string

	closed atomic.Bool
}

// Join fetches the initial roster and map, acquires the shared connection for
// the game, and starts routing broadcasts into derived state. The returned
// session must be released with Leave.
func Join(ctx context.Context, params JoinParams) (*Session, error) {
	if params.Registry == nil || params.API == nil {
		return nil, &SessionError{Code: "bad_params", Message: "registry and api client are required"}
	}
	if params.Logger == nil {
		params.Logger = log.Default()
	}

	s := &Session{
		gameID:      params.GameID,
		identity:    params.Identity,
		api:         params.API,
		logger:      params.Logger,
		roster:      NewRoster(params.Identity, params.Logger),
		turns:       NewTurnState(params.Logger),
		board:       NewBoard(),
		detector:    NewDetector(),
		tiles:       make(map[string]TileContents),
		characterID: params.CharacterID,
	}
	s.scheduler = NewScheduler(func(event ScheduledStart) {
		if s.closed.Load() {
			return
		}
		if params.Callbacks.OnStart != nil {
			params.Callbacks.OnStart(event)
		}
	})

	if players, err := params.API.Roster(ctx, params.GameID); err != nil {
		s.logger.Printf("session %s: initial roster fetch failed: %v", params.GameID, err)
	} else {
		s.roster.Replace(players)
	}

	if params.MapID != "" {
		gameMap, err := params.API.GameMap(ctx, params.MapID)
		if err != nil {
			return nil, err
		}
		s.indexMap(gameMap)
	}

	callbacks := params.Callbacks
	userNotice := callbacks.OnNotice
	callbacks.OnNotice = func(notice *Notice) {
		if notice != nil && notice.Kind == NoticeLoot && notice.LocalMove {
			go s.autoLoot(notice)
		}
		if userNotice != nil {
			userNotice(notice)
		}
	}
	userDeleted := callbacks.OnDeleted
	callbacks.OnDeleted = func() {
		if userDeleted != nil {
			userDeleted()
		}
		// The session is gone server-side; drop our claim on the socket.
		go s.Leave()
	}

	s.router = NewRouter(RouterDeps{
		SessionID: params.GameID,
		Local:     params.Identity,
		Roster:    s.roster,
		Turns:     s.turns,
		Board:     s.board,
		Detector:  s.detector,
		Scheduler: s.scheduler,
		Lookup:    s.tileContents,
		Callbacks: callbacks,
		Logger:    params.Logger,
	})

	if params.CharacterID != "" {
		s.resolveCharacter(ctx, params.CharacterID)
	}

	s.handle = params.Registry.Acquire(params.GameID, params.Identity)
	s.detach = s.router.Attach(s.handle.Conn())

	return s, nil
}

// SelectCharacter records the participant's chosen character and resolves it
// against the backend so turn matching has the canonical id and name.
func (s *Session) SelectCharacter(ctx context.Context, characterID string) {
	s.charMu.Lock()
	s.characterID = characterID
	s.charMu.Unlock()
	s.resolveCharacter(ctx, characterID)
}

func (s *Session) resolveCharacter(ctx context.Context, characterID string) {
	character, err := s.api.Character(ctx, characterID)
	if err != nil {
		// Degraded: keep the raw selection id as the only candidate.
		s.logger.Printf("session %s: character %s fetch failed, matching on raw id only: %v", s.gameID, characterID, err)
		s.router.SetResolvedCharacter(characterID, "")
		return
	}
	if s.closed.Load() {
		return
	}
	s.router.SetResolvedCharacter(character.ID.String(), character.Name)
	if character.Position != nil {
		s.board.ApplyMove(Move{
			CharacterID: character.ID,
			To:          Coordinate{X: character.Position.X, Y: character.Position.Y},
			Source:      SourceAuthoritative,
		})
	}
}

// Move requests a move for the local character. On success the new position
// is applied optimistically and the destination tile runs through interaction
// detection; the later broadcast for the same move is an idempotent re-apply.
// On failure no local state changes and the typed REST error is returned.
func (s *Session) Move(ctx context.Context, to Coordinate) error {
	if s.closed.Load() {
		return &SessionError{Code: "session_closed", Message: "session has been released"}
	}
	s.charMu.RLock()
	characterID := s.characterID
	s.charMu.RUnlock()
	if characterID == "" {
		return &SessionError{Code: "no_character", Message: "no character selected"}
	}

	result, err := s.api.Move(ctx, s.gameID, characterID, rest.Position{X: to.X, Y: to.Y})
	if err != nil {
		return err
	}
	if s.closed.Load() {
		return nil
	}

	confirmed := Coordinate{X: result.Position.X, Y: result.Position.Y}
	if result.Tile != nil {
		s.setTileContents(confirmed, TileContents{
			Hostiles: convertEntities(result.Tile.Hostiles),
			Items:    convertEntities(result.Tile.Items),
		})
	}

	s.router.ApplyLocalMove(Move{
		CharacterID:    protocol.FlexID(characterID),
		To:             confirmed,
		MovesRemaining: result.MovesRemaining,
	})

	// Some server paths confirm an encounter only in the move response,
	// with no broadcast following; scheduling here is safe because a later
	// broadcast for the same instant just re-arms the timer.
	if result.CombatStart != nil {
		s.scheduler.Schedule(StartCombat, result.CombatStart.StartAt, result.CombatStart.Payload)
	}
	return nil
}

// autoLoot picks up each item on the tile for the local character. Failures
// are logged and skipped: partial loot must never block movement.
func (s *Session) autoLoot(notice *Notice) {
	s.charMu.RLock()
	characterID := s.characterID
	s.charMu.RUnlock()

	for _, item := range notice.Items {
		if s.closed.Load() {
			return
		}
		if err := s.api.PickupItem(context.Background(), s.gameID, characterID, item.ID.String()); err != nil {
			s.logger.Printf("session %s: pickup of %s failed: %v", s.gameID, item.ID, err)
		}
	}
}

// Roster returns the current participant map.
func (s *Session) Roster() map[string]protocol.Participant { return s.roster.Snapshot() }

// IsMyTurn reports whether the local character holds the turn cursor.
func (s *Session) IsMyTurn() bool { return s.turns.IsMyTurn() }

// ActiveTurn returns the current turn cursor.
func (s *Session) ActiveTurn() (protocol.FlexID, int, bool) { return s.turns.Active() }

// Position returns a character's last known position.
func (s *Session) Position(characterID string) (Coordinate, bool) {
	return s.board.Position(characterID)
}

// Positions returns all known character positions.
func (s *Session) Positions() map[string]Coordinate { return s.board.Positions() }

// Status returns the shared connection's lifecycle state.
func (s *Session) Status() wsclient.Status {
	if s.handle == nil {
		return wsclient.StatusClosed
	}
	return s.handle.Conn().Status()
}

// Leave releases this session's claim on the shared connection and stops all
// derived-state processing. Idempotent; late async results after Leave are
// dropped.
func (s *Session) Leave() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.detach != nil {
		s.detach()
	}
	s.scheduler.Stop()
	s.detector.Reset()
	if s.handle != nil {
		s.handle.Release()
	}
}

func (s *Session) indexMap(gameMap *rest.GameMap) {
	s.tileMu.Lock()
	defer s.tileMu.Unlock()
	for _, tile := range gameMap.Tiles {
		contents := TileContents{
			Hostiles: convertEntities(tile.Hostiles),
			Items:    convertEntities(tile.Items),
		}
		if len(contents.Hostiles) == 0 && len(contents.Items) == 0 {
			continue
		}
		s.tiles[TileKey(Coordinate{X: tile.X, Y: tile.Y})] = contents
	}
}

func (s *Session) tileContents(c Coordinate) TileContents {
	s.tileMu.RLock()
	defer s.tileMu.RUnlock()
	return s.tiles[TileKey(c)]
}

func (s *Session) setTileContents(c Coordinate, contents TileContents) {
	s.tileMu.Lock()
	s.tiles[TileKey(c)] = contents
	s.tileMu.Unlock()
}

func convertEntities(in []rest.Entity) []Entity {
	if len(in) == 0 {
		return nil
	}
	out := make([]Entity, len(in))
	for i, e := range in {
		out[i] = Entity{ID: e.ID, Name: e.Name}
	}
	return out
}
