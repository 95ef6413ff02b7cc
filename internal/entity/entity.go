package entity

import (
	"math"

	"arena/server/internal/attrs"
)

// Standard attribute names shared by components.
const (
	AttrX         = "x"
	AttrY         = "y"
	AttrWidth     = "width"
	AttrHeight    = "height"
	AttrImage     = "image"
	AttrTeam      = "team"
	AttrAlive     = "alive"
	AttrHealth    = "health"
	AttrMaxHealth = "maxHealth"
	AttrDiedAt    = "diedAt"
)

// Entity couples an immutable id with an attribute store and a component
// registry.
type Entity struct {
	id         string
	Attrs      *attrs.Store
	Components *Components

	removed bool
}

// New constructs an entity seeded with the provided attributes.
func New(id string, initial attrs.Values) (*Entity, error) {
	store, err := attrs.New(initial)
	if err != nil {
		return nil, err
	}
	e := &Entity{id: id, Attrs: store}
	e.Components = newComponents(e)
	return e, nil
}

// ID returns the entity identifier.
func (e *Entity) ID() string {
	if e == nil {
		return ""
	}
	return e.id
}

// Removed reports whether the entity has been torn down.
func (e *Entity) Removed() bool {
	return e == nil || e.removed
}

// Alive reports whether the entity is present and its alive attribute is
// truthy.
func (e *Entity) Alive() bool {
	return !e.Removed() && e.Attrs.Bool(AttrAlive)
}

// Team returns the team attribute; ok is false when it is undefined.
func (e *Entity) Team() (any, bool) {
	if e.Removed() {
		return nil, false
	}
	return e.Attrs.Get(AttrTeam)
}

// Update runs the component pass for one tick.
func (e *Entity) Update(ctx *Context, elapsed float64) {
	if e.Removed() {
		return
	}
	e.Components.update(ctx, elapsed)
}

// Fire delivers an event to every active component.
func (e *Entity) Fire(ctx *Context, event Event) {
	if e.Removed() {
		return
	}
	if event.Entity == nil {
		event.Entity = e
	}
	e.Components.dispatch(ctx, event)
}

// Damage is the entity's damage entry point. It lowers health, and on
// reaching zero marks the entity dead. Damage against a removed or dead
// entity, or one without a numeric health, is ignored. It returns the
// applied amount and whether this hit was fatal.
func (e *Entity) Damage(ctx *Context, amount float64, source *Entity) (float64, bool) {
	if !e.Alive() || math.IsNaN(amount) || amount <= 0 {
		return 0, false
	}
	health, ok := e.Attrs.Float(AttrHealth)
	if !ok {
		return 0, false
	}
	applied := amount
	if applied > health {
		applied = health
	}
	remaining := health - applied
	e.Attrs.SetFloats(map[string]float64{AttrHealth: remaining})
	e.Fire(ctx, Event{Type: EventDamage, Entity: e, Source: source, Amount: applied})
	if remaining > 0 {
		return applied, false
	}

	diedAt := float64(0)
	if ctx != nil {
		diedAt = float64(ctx.Now.UnixMilli())
	}
	_ = e.Attrs.Set(attrs.Values{AttrAlive: false, AttrDiedAt: diedAt})
	e.Fire(ctx, Event{Type: EventDeath, Entity: e, Source: source, Amount: applied})
	return applied, true
}

// Discard tears down an entity that never made it into a registry, such as
// one whose spawn failed part way. Components already initialised receive
// the removal notification.
func (e *Entity) Discard(ctx *Context) bool {
	return e.remove(ctx)
}

// remove fires the removal notification once and marks the entity torn down.
func (e *Entity) remove(ctx *Context) bool {
	if e.Removed() {
		return false
	}
	e.Components.release(ctx, Event{Type: EventRemove, Entity: e})
	e.removed = true
	return true
}
