package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"github.com/questline/sessionsync/internal/config"
	"github.com/questline/sessionsync/internal/protocol"
	"github.com/questline/sessionsync/internal/rest"
	"github.com/questline/sessionsync/internal/session"
	"github.com/questline/sessionsync/internal/wsclient"
)

// sessionprobe joins a game session and logs the derived event stream.
// Diagnostic tool for watching what the synchronization layer sees.
func main() {
	var gameID, mapID, name, characterID string
	flag.StringVar(&gameID, "game", "", "game session id to join (required)")
	flag.StringVar(&mapID, "map", "", "map id for tile-content lookups")
	flag.StringVar(&name, "name", "probe", "participant display name")
	flag.StringVar(&characterID, "character", "", "selected character id")
	flag.Parse()

	if gameID == "" {
		log.Fatal("sessionprobe: -game is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("sessionprobe: %v", err)
	}

	registry := wsclient.NewRegistry(cfg.WSOptions(log.Default()))
	api := rest.NewClient(cfg.APIURL, nil)
	if cfg.APIToken != "" {
		api.SetToken(cfg.APIToken)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := session.Join(ctx, session.JoinParams{
		GameID:      gameID,
		MapID:       mapID,
		Identity:    protocol.Identity{ID: uuid.New().String(), Name: name},
		CharacterID: characterID,
		Registry:    registry,
		API:         api,
		Logger:      log.Default(),
		Callbacks: session.Callbacks{
			OnRoster: func(roster map[string]protocol.Participant) {
				log.Printf("roster: %d participants", len(roster))
				for id, p := range roster {
					log.Printf("  %s %q character=%v connected=%v", id, p.Name, p.Character, p.Connected)
				}
			},
			OnTurn: func(active protocol.FlexID, movesRemaining int, mine bool) {
				log.Printf("turn: character=%s moves=%d mine=%v", active, movesRemaining, mine)
			},
			OnMove: func(m session.Move) {
				log.Printf("move: character=%s to=(%d,%d) source=%s", m.CharacterID, m.To.X, m.To.Y, m.Source)
			},
			OnNotice: func(n *session.Notice) {
				if n == nil {
					return
				}
				log.Printf("notice: %s at (%d,%d) hostiles=%d items=%d local=%v",
					n.Kind, n.Tile.X, n.Tile.Y, len(n.Hostiles), len(n.Items), n.LocalMove)
			},
			OnStart: func(e session.ScheduledStart) {
				log.Printf("start: %s at %s", e.Kind, e.At)
			},
			OnCombat: func(e *protocol.CombatEvent) {
				log.Printf("combat: %s", e.Kind())
			},
			OnDeleted: func() {
				log.Printf("session deleted by server")
				stop()
			},
			OnStatus: func(status wsclient.Status) {
				log.Printf("connection: %s", status)
			},
		},
	})
	if err != nil {
		log.Fatalf("sessionprobe: join: %v", err)
	}

	<-ctx.Done()
	s.Leave()
	log.Printf("sessionprobe: left session %s", gameID)
}
