package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMoveDecodesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/games/g1/characters/31/move" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		_, _ = w.Write([]byte(`{"position":{"x":4,"y":9},"movesRemaining":2,
			"tile":{"hostiles":[{"id":7,"name":"Ghoul"}]},
			"combatStart":{"combatId":"c1","startAt":1700000000000}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	client.SetToken("tok")

	result, err := client.Move(context.Background(), "g1", "31", Position{X: 4, Y: 9})
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if result.Position != (Position{X: 4, Y: 9}) {
		t.Errorf("Unexpected position: %+v", result.Position)
	}
	if result.MovesRemaining == nil || *result.MovesRemaining != 2 {
		t.Errorf("Unexpected moves remaining: %v", result.MovesRemaining)
	}
	if result.Tile == nil || len(result.Tile.Hostiles) != 1 || result.Tile.Hostiles[0].ID != "7" {
		t.Errorf("Unexpected tile payload: %+v", result.Tile)
	}
	if result.CombatStart == nil || result.CombatStart.CombatID != "c1" {
		t.Errorf("Unexpected combat start: %+v", result.CombatStart)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"bad request", http.StatusBadRequest, ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"code":"nope","message":"rejected"}`))
			}))
			defer server.Close()

			client := NewClient(server.URL, nil)
			_, err := client.Character(context.Background(), "31")
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Expected %v class, got %v", tt.sentinel, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %T", err)
			}
			if apiErr.Code != "nope" || apiErr.Message != "rejected" {
				t.Errorf("Expected server code/message preserved, got %+v", apiErr)
			}
		})
	}
}

func TestErrorBodyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>gateway exploded</html>`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.Roster(context.Background(), "g1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Code != "request_failed" {
		t.Errorf("Expected generic failure code for non-JSON body, got %+v", apiErr)
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		t.Error("Server errors must not match client error classes")
	}
}

func TestRosterAndPickup(t *testing.T) {
	var pickupPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/games/g1/players":
			_, _ = w.Write([]byte(`[{"id":5,"name":"Ana","character":{"id":9,"name":"Vala"}}]`))
		case r.Method == http.MethodPost:
			pickupPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	players, err := client.Roster(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Roster failed: %v", err)
	}
	if len(players) != 1 || players[0].ID != "5" || players[0].Character.ID != "9" {
		t.Errorf("Unexpected roster: %+v", players)
	}

	if err := client.PickupItem(context.Background(), "g1", "31", "i1"); err != nil {
		t.Fatalf("PickupItem failed: %v", err)
	}
	if pickupPath != "/games/g1/characters/31/items/i1" {
		t.Errorf("Unexpected pickup path: %s", pickupPath)
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.GameMap(ctx, "m1"); err == nil {
		t.Fatal("Expected context cancellation error")
	}
}
