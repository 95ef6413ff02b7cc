package proto

import (
	"arena/server/internal/sim"
)

// Event names carried in the envelope type field.
const (
	EventPlayerCreate = "player.create"
	EventClientReady  = "client.ready"
	EventClientSync   = "client.sync"
	EventPlayerLeave  = "player.leave"
	EventEntityAttack = "entity.attack"
	EventPlayerMove   = "player.move"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Entity is the flattened state of one entity: its id next to its attributes.
type Entity map[string]any

// ID returns the entity id, empty when absent or not a string.
func (e Entity) ID() string {
	id, _ := e["id"].(string)
	return id
}

// EntityFromState flattens a simulation state into a wire entity.
func EntityFromState(state sim.EntityState) Entity {
	out := make(Entity, len(state.Attrs)+1)
	for name, value := range state.Attrs {
		out[name] = value
	}
	out["id"] = state.ID
	return out
}

// EntitiesFromStates flattens a list of states, preserving order.
func EntitiesFromStates(states []sim.EntityState) []Entity {
	out := make([]Entity, 0, len(states))
	for _, state := range states {
		out = append(out, EntityFromState(state))
	}
	return out
}

// LeavePayload announces a removed entity.
type LeavePayload struct {
	ID string `json:"id"`
}

// ClientPayload is the union of inbound payload fields.
type ClientPayload struct {
	DX   float64  `json:"dx,omitempty"`
	DY   float64  `json:"dy,omitempty"`
	DirX *float64 `json:"dirX,omitempty"`
	DirY *float64 `json:"dirY,omitempty"`
}

// ClientMessage captures an inbound message from the client.
type ClientMessage struct {
	Type    string         `json:"type"`
	Payload *ClientPayload `json:"payload,omitempty"`
}

// ClientCommand converts a client message into a simulation command. Origin
// metadata is filled in by the hub. It reports false for messages that are
// not simulation commands, including client.ready.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case EventEntityAttack:
		cmd := sim.Command{Type: sim.CommandAttack, Attack: &sim.AttackCommand{}}
		if p := msg.Payload; p != nil && (p.DirX != nil || p.DirY != nil) {
			cmd.Attack.Directed = true
			if p.DirX != nil {
				cmd.Attack.DirX = *p.DirX
			}
			if p.DirY != nil {
				cmd.Attack.DirY = *p.DirY
			}
		}
		return cmd, true
	case EventPlayerMove:
		move := &sim.MoveCommand{}
		if msg.Payload != nil {
			move.DX = msg.Payload.DX
			move.DY = msg.Payload.DY
		}
		return sim.Command{Type: sim.CommandMove, Move: move}, true
	default:
		return sim.Command{}, false
	}
}
