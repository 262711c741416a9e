package protocol

import "encoding/json"

type MessageType string

const (
	TypeJoinAck        MessageType = "JOIN_ACK"
	TypeUpdatePlayers  MessageType = "UPDATE_PLAYERS"
	TypeMoveBroadcast  MessageType = "MOVE_BROADCAST"
	TypeTurnActive     MessageType = "TURN_ACTIVE"
	TypePlayerLeft     MessageType = "PLAYER_LEFT"
	TypeSessionDeleted MessageType = "SESSION_DELETED"
	TypeSessionStarted MessageType = "SESSION_STARTED"
	TypeCombatStarted  MessageType = "COMBAT_STARTED"

	TypeJoin  MessageType = "JOIN"
	TypeLeave MessageType = "LEAVE"

	// Legacy tag still emitted by older servers for MOVE_BROADCAST.
	typeMoveBroadcastLegacy MessageType = "JUGADA_MOVIDA"
)

// Message is an inbound frame classified by its type tag.
type Message interface {
	Kind() MessageType
	// Session returns the session id the message names, or "" when the
	// variant carries none.
	Session() string
}

type Participant struct {
	ID        FlexID        `json:"id"`
	Name      string        `json:"name"`
	Character *CharacterRef `json:"character,omitempty"`
	Connected bool          `json:"connected,omitempty"`
}

type JoinAck struct {
	SessionID   string      `json:"sessionId"`
	Participant Participant `json:"participant"`
}

type PlayersUpdate struct {
	SessionID string        `json:"sessionId,omitempty"`
	Players   []Participant `json:"players"`
}

type MoveBroadcast struct {
	SessionID      string `json:"sessionId,omitempty"`
	CharacterID    FlexID `json:"characterId"`
	X              int    `json:"x"`
	Y              int    `json:"y"`
	MovesRemaining *int   `json:"movesRemaining,omitempty"`
}

type TurnActive struct {
	SessionID      string      `json:"sessionId,omitempty"`
	CharacterID    FlexID      `json:"characterId"`
	MovesRemaining int         `json:"movesRemaining"`
	TurnOrder      []TurnEntry `json:"turnOrder,omitempty"`
}

// TurnEntry is one slot of the server's turn order, used as the last-resort
// source for matching a character by name.
type TurnEntry struct {
	CharacterID FlexID `json:"characterId"`
	Name        string `json:"name"`
}

type PlayerLeft struct {
	SessionID     string `json:"sessionId,omitempty"`
	ParticipantID FlexID `json:"participantId"`
}

type SessionDeleted struct {
	SessionID string `json:"sessionId"`
}

// SessionStarted carries the wall-clock instant (unix milliseconds) at which
// every client should transition, so they switch together despite delivery
// jitter. COMBAT_STARTED shares the shape.
type SessionStarted struct {
	SessionID string          `json:"sessionId,omitempty"`
	StartAt   int64           `json:"startAt"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type CombatStarted struct {
	SessionID string          `json:"sessionId,omitempty"`
	StartAt   int64           `json:"startAt"`
	CombatID  FlexID          `json:"combatId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// CombatEvent is any other COMBAT_* frame. Combat resolution is server-side;
// the client forwards these uninterpreted.
type CombatEvent struct {
	Type      MessageType
	SessionID string
	Raw       json.RawMessage
}

func (m *JoinAck) Kind() MessageType        { return TypeJoinAck }
func (m *PlayersUpdate) Kind() MessageType  { return TypeUpdatePlayers }
func (m *MoveBroadcast) Kind() MessageType  { return TypeMoveBroadcast }
func (m *TurnActive) Kind() MessageType     { return TypeTurnActive }
func (m *PlayerLeft) Kind() MessageType     { return TypePlayerLeft }
func (m *SessionDeleted) Kind() MessageType { return TypeSessionDeleted }
func (m *SessionStarted) Kind() MessageType { return TypeSessionStarted }
func (m *CombatStarted) Kind() MessageType  { return TypeCombatStarted }
func (m *CombatEvent) Kind() MessageType    { return m.Type }

func (m *JoinAck) Session() string        { return m.SessionID }
func (m *PlayersUpdate) Session() string  { return m.SessionID }
func (m *MoveBroadcast) Session() string  { return m.SessionID }
func (m *TurnActive) Session() string     { return m.SessionID }
func (m *PlayerLeft) Session() string     { return m.SessionID }
func (m *SessionDeleted) Session() string { return m.SessionID }
func (m *SessionStarted) Session() string { return m.SessionID }
func (m *CombatStarted) Session() string  { return m.SessionID }
func (m *CombatEvent) Session() string    { return m.SessionID }

// Identity is the local participant as announced to the server.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Join struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"sessionId"`
	Participant Identity    `json:"participant"`
}

type Leave struct {
	Type          MessageType `json:"type"`
	SessionID     string      `json:"sessionId"`
	ParticipantID string      `json:"participantId"`
}

func NewJoin(sessionID string, identity Identity) Join {
	return Join{Type: TypeJoin, SessionID: sessionID, Participant: identity}
}

func NewLeave(sessionID, participantID string) Leave {
	return Leave{Type: TypeLeave, SessionID: sessionID, ParticipantID: participantID}
}
