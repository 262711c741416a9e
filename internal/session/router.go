package session

import (
	"errors"
	"sync"

	"github.com/questline/sessionsync/internal/protocol"
	"github.com/questline/sessionsync/internal/wsclient"
)

// Callbacks is the typed subscription surface presentation code attaches to.
// All callbacks are optional and are invoked one at a time from the
// connection's read goroutine (or the start timer); they must not block.
type Callbacks struct {
	OnRoster  func(map[string]protocol.Participant)
	OnTurn    func(active protocol.FlexID, movesRemaining int, mine bool)
	OnMove    func(Move)
	OnNotice  func(*Notice)
	OnStart   func(ScheduledStart)
	OnCombat  func(*protocol.CombatEvent)
	OnDeleted func()
	OnStatus  func(wsclient.Status)
}

// TileLookup resolves the contents of a destination tile.
type TileLookup func(Coordinate) TileContents

// FrameSource is the slice of a session connection the router consumes: the
// append-only frame log and sink registration.
type FrameSource interface {
	Frames(from int) []wsclient.Frame
	Subscribe(sink wsclient.Sink) func()
}

// Router consumes the connection's append-only frame log and drives the
// session's state components. It keeps a monotonic cursor into the log, so
// attaching, detaching, and re-attaching never reprocesses a frame. Unknown
// message types and frames for other sessions are skipped; the cursor still
// advances past them.
type Router struct {
	sessionID string
	local     protocol.Identity
	roster    *Roster
	turns     *TurnState
	board     *Board
	detector  *Detector
	scheduler *Scheduler
	lookup    TileLookup
	callbacks Callbacks
	logger    Logger

	mutex  sync.Mutex
	conn   FrameSource
	cursor int

	resolvedMu    sync.RWMutex
	resolvedID    string
	localCharName string
}

// RouterDeps bundles the state components a router drives.
type RouterDeps struct {
	SessionID string
	Local     protocol.Identity
	Roster    *Roster
	Turns     *TurnState
	Board     *Board
	Detector  *Detector
	Scheduler *Scheduler
	Lookup    TileLookup
	Callbacks Callbacks
	Logger    Logger
}

// NewRouter creates a router over the given state components.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		sessionID: deps.SessionID,
		local:     deps.Local,
		roster:    deps.Roster,
		turns:     deps.Turns,
		board:     deps.Board,
		detector:  deps.Detector,
		scheduler: deps.Scheduler,
		lookup:    deps.Lookup,
		callbacks: deps.Callbacks,
		logger:    deps.Logger,
	}
}

// Attach subscribes the router to a connection and drains any frames already
// in the log. The returned function detaches it.
func (r *Router) Attach(conn FrameSource) func() {
	r.mutex.Lock()
	r.conn = conn
	r.mutex.Unlock()

	unsubscribe := conn.Subscribe(r)
	r.FramesAppended()
	return unsubscribe
}

// FramesAppended implements wsclient.Sink.
func (r *Router) FramesAppended() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.conn == nil {
		return
	}
	for _, frame := range r.conn.Frames(r.cursor) {
		if frame.Index < r.cursor {
			continue
		}
		r.cursor = frame.Index + 1
		r.dispatch(frame.Data)
	}
}

// StatusChanged implements wsclient.Sink.
func (r *Router) StatusChanged(status wsclient.Status) {
	if r.callbacks.OnStatus != nil {
		r.callbacks.OnStatus(status)
	}
}

func (r *Router) dispatch(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			return
		}
		r.logger.Printf("session %s: discarding malformed frame: %v", r.sessionID, err)
		return
	}

	if sid := msg.Session(); sid != "" && sid != r.sessionID {
		return
	}

	switch m := msg.(type) {
	case *protocol.JoinAck:
		r.logger.Printf("session %s: join acknowledged for %s", r.sessionID, m.Participant.ID)

	case *protocol.PlayersUpdate:
		r.roster.Replace(m.Players)
		r.rebuildCandidates()
		if r.callbacks.OnRoster != nil {
			r.callbacks.OnRoster(r.roster.Snapshot())
		}

	case *protocol.MoveBroadcast:
		r.applyMove(Move{
			CharacterID:    m.CharacterID,
			To:             Coordinate{X: m.X, Y: m.Y},
			MovesRemaining: m.MovesRemaining,
			Source:         SourceAuthoritative,
		})

	case *protocol.TurnActive:
		r.turns.Set(m.CharacterID, m.MovesRemaining, m.TurnOrder)
		r.rebuildCandidates()
		if r.callbacks.OnTurn != nil {
			r.callbacks.OnTurn(m.CharacterID, m.MovesRemaining, r.turns.IsMyTurn())
		}

	case *protocol.PlayerLeft:
		if m.ParticipantID.String() == r.local.ID {
			// Self-removal means this client should navigate away, not
			// edit its own roster; the caller learns via SESSION_DELETED
			// or its own leave flow.
			r.logger.Printf("session %s: suppressing self-removal broadcast", r.sessionID)
			return
		}
		r.roster.Remove(m.ParticipantID)
		if r.callbacks.OnRoster != nil {
			r.callbacks.OnRoster(r.roster.Snapshot())
		}

	case *protocol.SessionDeleted:
		if r.callbacks.OnDeleted != nil {
			r.callbacks.OnDeleted()
		}

	case *protocol.SessionStarted:
		r.scheduler.Schedule(StartSession, m.StartAt, m.Payload)

	case *protocol.CombatStarted:
		r.scheduler.Schedule(StartCombat, m.StartAt, m.Payload)

	case *protocol.CombatEvent:
		if r.callbacks.OnCombat != nil {
			r.callbacks.OnCombat(m)
		}
	}
}

// applyMove runs the shared position + interaction pipeline for a move from
// either source. ApplyMove itself is idempotent, so the optimistic write and
// the authoritative broadcast for the same move coexist safely, and the
// detector's seen-sets keep the replay from double-firing notices.
func (r *Router) applyMove(move Move) {
	r.board.ApplyMove(move)
	if r.callbacks.OnMove != nil {
		r.callbacks.OnMove(move)
	}

	var contents TileContents
	if r.lookup != nil {
		contents = r.lookup(move.To)
	}
	notice := r.detector.OnArrive(move.CharacterID, move.To, contents, r.turns.IsLocalCharacter(move.CharacterID))
	if r.callbacks.OnNotice != nil {
		// nil notice clears any stale one.
		r.callbacks.OnNotice(notice)
	}
}

// ApplyLocalMove feeds an optimistic move through the same pipeline the
// authoritative broadcasts use.
func (r *Router) ApplyLocalMove(move Move) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	move.Source = SourceOptimistic
	r.applyMove(move)
}

func (r *Router) rebuildCandidates() {
	r.resolvedMu.RLock()
	resolvedID := r.resolvedID
	localName := r.localCharName
	r.resolvedMu.RUnlock()

	var slot *protocol.Participant
	if entry, ok := r.roster.Local(); ok {
		slot = &entry
		if localName == "" && entry.Character != nil {
			localName = entry.Character.Name
		}
	}
	r.turns.Rebuild(resolvedID, slot, localName)
}

// SetResolvedCharacter records the locally resolved character id and name
// (from the character fetch) and rebuilds the candidate set.
func (r *Router) SetResolvedCharacter(id, name string) {
	r.resolvedMu.Lock()
	r.resolvedID = id
	if name != "" {
		r.localCharName = name
	}
	r.resolvedMu.Unlock()

	r.rebuildCandidates()
}
