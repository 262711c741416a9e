package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/questline/sessionsync/internal/protocol"
)

// Position is a board coordinate in request/response payloads.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Entity is a hostile or lootable thing occupying a tile.
type Entity struct {
	ID   protocol.FlexID `json:"id"`
	Name string          `json:"name"`
}

// TilePayload describes the contents of a destination tile.
type TilePayload struct {
	Hostiles []Entity `json:"hostiles,omitempty"`
	Items    []Entity `json:"items,omitempty"`
}

// CombatStartPayload is the combat-start block a move response may embed
// when the move triggers an encounter.
type CombatStartPayload struct {
	CombatID protocol.FlexID `json:"combatId"`
	StartAt  int64           `json:"startAt"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// MoveResult is the confirmed outcome of a move request. The WebSocket
// broadcast stays authoritative; this is the local optimistic hint.
type MoveResult struct {
	Position       Position            `json:"position"`
	MovesRemaining *int                `json:"movesRemaining,omitempty"`
	Tile           *TilePayload        `json:"tile,omitempty"`
	CombatStart    *CombatStartPayload `json:"combatStart,omitempty"`
}

// Character is the resolved character record.
type Character struct {
	ID       protocol.FlexID `json:"id"`
	Name     string          `json:"name"`
	Position *Position       `json:"position,omitempty"`
	Movement int             `json:"movement,omitempty"`
}

// MapTile is one cell of a fetched game map.
type MapTile struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Hostiles []Entity `json:"hostiles,omitempty"`
	Items    []Entity `json:"items,omitempty"`
}

// GameMap is the board definition with per-tile contents.
type GameMap struct {
	ID     protocol.FlexID `json:"id"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Tiles  []MapTile       `json:"tiles"`
}

// Client calls the game backend's REST collaborators. A failed request never
// leaves partial state behind; callers apply results only on success.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SetToken sets the bearer token attached to every request. Obtaining the
// token is the login flow's problem, not this client's.
func (c *Client) SetToken(token string) { c.token = token }

// Move requests a character move and returns the confirmed position along
// with whatever the destination tile holds.
func (c *Client) Move(ctx context.Context, gameID, characterID string, to Position) (*MoveResult, error) {
	var result MoveResult
	path := fmt.Sprintf("/games/%s/characters/%s/move", gameID, characterID)
	if err := c.do(ctx, http.MethodPost, path, to, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Character fetches a character by id.
func (c *Client) Character(ctx context.Context, id string) (*Character, error) {
	var character Character
	if err := c.do(ctx, http.MethodGet, "/characters/"+id, nil, &character); err != nil {
		return nil, err
	}
	return &character, nil
}

// GameMap fetches a map definition by id.
func (c *Client) GameMap(ctx context.Context, id string) (*GameMap, error) {
	var gameMap GameMap
	if err := c.do(ctx, http.MethodGet, "/maps/"+id, nil, &gameMap); err != nil {
		return nil, err
	}
	return &gameMap, nil
}

// Roster fetches the current participant list for a game.
func (c *Client) Roster(ctx context.Context, gameID string) ([]protocol.Participant, error) {
	var players []protocol.Participant
	if err := c.do(ctx, http.MethodGet, "/games/"+gameID+"/players", nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// PickupItem adds a tile item to the character's inventory.
func (c *Client) PickupItem(ctx context.Context, gameID, characterID, itemID string) error {
	path := fmt.Sprintf("/games/%s/characters/%s/items/%s", gameID, characterID, itemID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return c.apiError(res)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) apiError(res *http.Response) error {
	apiErr := &APIError{Status: res.StatusCode, Code: "request_failed"}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err == nil && json.Unmarshal(data, &body) == nil {
		if body.Code != "" {
			apiErr.Code = body.Code
		}
		apiErr.Message = body.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(res.StatusCode)
	}
	return apiErr
}
