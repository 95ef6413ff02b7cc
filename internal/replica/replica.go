// Package replica mirrors the server's entities from the sync protocol the
// way a client does.
package replica

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"arena/server/internal/attrs"
	"arena/server/internal/net/proto"
)

// Replica is a client-side registry. Applying the same message twice leaves
// it unchanged.
type Replica struct {
	self     string
	order    []string
	entities map[string]*attrs.Store
}

func New() *Replica {
	return &Replica{entities: make(map[string]*attrs.Store)}
}

type frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Apply decodes one server frame and applies it.
func (r *Replica) Apply(binary bool, data []byte) error {
	var f frame
	if binary {
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("replica: decode msgpack: %w", err)
		}
	} else if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("replica: decode json: %w", err)
	}
	return r.ApplyEvent(f.Type, f.Payload)
}

// ApplyEvent applies a decoded payload. Unknown events are ignored.
func (r *Replica) ApplyEvent(event string, payload any) error {
	switch event {
	case proto.EventPlayerCreate:
		values, ok := payload.(map[string]any)
		if !ok {
			return fmt.Errorf("replica: %s payload is %T", event, payload)
		}
		id, err := r.upsert(values)
		if err != nil {
			return err
		}
		r.self = id
	case proto.EventClientSync:
		list, ok := payload.([]any)
		if !ok {
			return fmt.Errorf("replica: %s payload is %T", event, payload)
		}
		for _, item := range list {
			values, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("replica: %s entry is %T", event, item)
			}
			if _, err := r.upsert(values); err != nil {
				return err
			}
		}
	case proto.EventPlayerLeave:
		values, ok := payload.(map[string]any)
		if !ok {
			return fmt.Errorf("replica: %s payload is %T", event, payload)
		}
		id, _ := values["id"].(string)
		r.remove(id)
	}
	return nil
}

// upsert creates unknown entities before applying their attributes. A nil
// value deletes the attribute.
func (r *Replica) upsert(values map[string]any) (string, error) {
	id, _ := values["id"].(string)
	if id == "" {
		return "", fmt.Errorf("replica: entity without id")
	}
	batch := make(attrs.Values, len(values))
	var deleted []string
	for name, value := range values {
		switch {
		case name == "id":
		case value == nil:
			deleted = append(deleted, name)
		default:
			batch[name] = value
		}
	}

	store, ok := r.entities[id]
	if !ok {
		created, err := attrs.New(batch)
		if err != nil {
			return "", fmt.Errorf("replica: entity %s: %w", id, err)
		}
		r.entities[id] = created
		r.order = append(r.order, id)
		return id, nil
	}
	if err := store.Set(batch); err != nil {
		return "", fmt.Errorf("replica: entity %s: %w", id, err)
	}
	store.Delete(deleted...)
	return id, nil
}

func (r *Replica) remove(id string) {
	if _, ok := r.entities[id]; !ok {
		return
	}
	delete(r.entities, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.self == id {
		r.self = ""
	}
}

// Self returns the id announced by player.create.
func (r *Replica) Self() string { return r.self }

// Get returns a copy of an entity's attributes.
func (r *Replica) Get(id string) (attrs.Values, bool) {
	store, ok := r.entities[id]
	if !ok {
		return nil, false
	}
	return store.Snapshot(), true
}

// IDs lists known entities in the order they were first seen.
func (r *Replica) IDs() []string {
	return append([]string(nil), r.order...)
}

func (r *Replica) Len() int { return len(r.order) }
