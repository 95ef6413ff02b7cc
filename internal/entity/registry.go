package entity

import "fmt"

// DuplicateEntityError is returned when an id is already registered.
type DuplicateEntityError struct {
	ID string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity %s already registered", e.ID)
}

// Registry maps ids to entities for one world and drives the per-tick update
// pass in insertion order.
type Registry struct {
	entities map[string]*Entity
	order    []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*Entity)}
}

// Add registers an entity under id. The registry is left untouched on error.
func (r *Registry) Add(id string, e *Entity) error {
	if e == nil {
		return fmt.Errorf("entity %s: nil entity", id)
	}
	if e.ID() != id {
		return fmt.Errorf("entity %s: registered under mismatched id %s", e.ID(), id)
	}
	if e.Removed() {
		return fmt.Errorf("entity %s: already removed", id)
	}
	if _, exists := r.entities[id]; exists {
		return &DuplicateEntityError{ID: id}
	}
	r.entities[id] = e
	r.order = append(r.order, id)
	return nil
}

// Get returns the entity registered under id.
func (r *Registry) Get(id string) (*Entity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// Remove detaches the entity and fires its removal notification. Removing an
// unknown id is a no-op.
func (r *Registry) Remove(ctx *Context, id string) bool {
	e, ok := r.entities[id]
	if !ok {
		return false
	}
	delete(r.entities, id)
	for i, candidate := range r.order {
		if candidate == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	e.remove(ctx)
	return true
}

// Update runs one tick over every entity in insertion order. Entities removed
// during the pass are skipped; entities added during the pass wait for the
// next tick.
func (r *Registry) Update(ctx *Context, elapsed float64) {
	ids := r.IDs()
	for _, id := range ids {
		e, ok := r.entities[id]
		if !ok {
			continue
		}
		e.Update(ctx, elapsed)
	}
}

// Each visits entities in insertion order until fn returns false.
func (r *Registry) Each(fn func(*Entity) bool) {
	for _, id := range r.IDs() {
		e, ok := r.entities[id]
		if !ok {
			continue
		}
		if !fn(e) {
			return
		}
	}
}

// IDs returns the registered ids in insertion order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Len reports the number of registered entities.
func (r *Registry) Len() int {
	return len(r.entities)
}
