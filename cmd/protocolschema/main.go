package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"arena/server/internal/net/proto"
)

// protocol lists every payload keyed by the event that carries it.
type protocol struct {
	PlayerCreate proto.Entity         `json:"player.create" jsonschema:"description=Full state of the joining player sent once to its own session"`
	ClientReady  *struct{}            `json:"client.ready,omitempty" jsonschema:"description=Sent by the client once it can accept sync frames"`
	ClientSync   []proto.Entity       `json:"client.sync" jsonschema:"description=Full state after ready or a resync and changed attributes otherwise"`
	PlayerLeave  proto.LeavePayload   `json:"player.leave"`
	EntityAttack *proto.ClientPayload `json:"entity.attack,omitempty" jsonschema:"description=Optional dirX and dirY aim override"`
	PlayerMove   proto.ClientPayload  `json:"player.move" jsonschema:"description=Movement intent in dx and dy"`
	Envelope     proto.Envelope       `json:"envelope"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema (stdout when empty)")
	flag.Parse()

	schema := buildSchema()

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal schema: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := writeSchema(outPath, data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(protocol))
	schema.Title = "Arena Sync Protocol"
	schema.Description = "Payloads exchanged over the arena websocket, keyed by envelope type"
	return schema
}

func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
