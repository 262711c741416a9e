package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/questline/sessionsync/internal/protocol"
)

// wireMessages groups every frame shape on the session channel so one schema
// document covers the whole protocol.
type wireMessages struct {
	Join           protocol.Join           `json:"join"`
	Leave          protocol.Leave          `json:"leave"`
	JoinAck        protocol.JoinAck        `json:"joinAck"`
	UpdatePlayers  protocol.PlayersUpdate  `json:"updatePlayers"`
	MoveBroadcast  protocol.MoveBroadcast  `json:"moveBroadcast"`
	TurnActive     protocol.TurnActive     `json:"turnActive"`
	PlayerLeft     protocol.PlayerLeft     `json:"playerLeft"`
	SessionDeleted protocol.SessionDeleted `json:"sessionDeleted"`
	SessionStarted protocol.SessionStarted `json:"sessionStarted"`
	CombatStarted  protocol.CombatStarted  `json:"combatStarted"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(wireMessages))
	schema.Title = "Questline Session Wire Protocol"
	schema.Description = "Frame shapes exchanged on the per-session WebSocket channel"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
