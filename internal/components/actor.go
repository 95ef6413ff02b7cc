package components

import (
	"arena/server/internal/attrs"
	"arena/server/internal/entity"
)

// Actor marks an entity as visible to clients. Its attribute changes are
// collected after every tick and broadcast.
type Actor struct {
	owner *entity.Entity
	image string
}

// NewActor constructs an actor rendered with the given image key.
func NewActor(image string) *Actor {
	return &Actor{image: image}
}

func (a *Actor) Key() entity.Key     { return entity.KeyActor }
func (a *Actor) Phase() entity.Phase { return entity.PhaseSync }

func (a *Actor) Init(ctx *entity.Context, owner *entity.Entity) error {
	a.owner = owner
	if owner.Attrs.Has(entity.AttrImage) {
		return nil
	}
	if a.image == "" {
		return &entity.ConfigError{Entity: owner.ID(), Key: entity.KeyActor, Reason: "image is required"}
	}
	return owner.Attrs.Set(attrs.Values{entity.AttrImage: a.image})
}

// Changes returns the attributes changed since the previous call.
func (a *Actor) Changes() attrs.Values {
	return a.owner.Attrs.Flush()
}

// State returns every attribute of the owner.
func (a *Actor) State() attrs.Values {
	return a.owner.Attrs.Snapshot()
}

// Actors collect changes after the whole tick, so there is no per-component
// work here.
func (a *Actor) Update(ctx *entity.Context, elapsed float64) {}

func (a *Actor) OnEvent(ctx *entity.Context, event entity.Event) {}
