package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType marks a frame whose type tag is not part of the union.
// Callers skip these for forward compatibility.
var ErrUnknownType = errors.New("unknown message type")

// Decode classifies an inbound frame by its type tag and unmarshals it into
// the matching variant.
func Decode(data []byte) (Message, error) {
	var head struct {
		Type      MessageType `json:"type"`
		SessionID string      `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var msg Message
	switch head.Type {
	case TypeJoinAck:
		msg = &JoinAck{}
	case TypeUpdatePlayers:
		msg = &PlayersUpdate{}
	case TypeMoveBroadcast, typeMoveBroadcastLegacy:
		msg = &MoveBroadcast{}
	case TypeTurnActive:
		msg = &TurnActive{}
	case TypePlayerLeft:
		msg = &PlayerLeft{}
	case TypeSessionDeleted:
		msg = &SessionDeleted{}
	case TypeSessionStarted:
		msg = &SessionStarted{}
	case TypeCombatStarted:
		msg = &CombatStarted{}
	default:
		if strings.HasPrefix(string(head.Type), "COMBAT_") {
			return &CombatEvent{
				Type:      head.Type,
				SessionID: head.SessionID,
				Raw:       append([]byte(nil), data...),
			}, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return msg, nil
}
