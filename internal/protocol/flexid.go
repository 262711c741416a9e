package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexID is an identifier that the server emits inconsistently as either a
// JSON number or a JSON string. It canonicalizes to the string form so ids
// can be compared and used as map keys regardless of how they arrived.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexID) String() string { return string(f) }

func (f FlexID) IsZero() bool { return f == "" }

// CharacterRef is a participant's selected character. Roster payloads carry
// it either as a bare id scalar or as a nested object with id and name.
type CharacterRef struct {
	ID   FlexID `json:"id"`
	Name string `json:"name,omitempty"`
}

func (c *CharacterRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CharacterRef{}
		return nil
	}
	if data[0] == '{' {
		type plain CharacterRef
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*c = CharacterRef(p)
		return nil
	}
	var id FlexID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*c = CharacterRef{ID: id}
	return nil
}
