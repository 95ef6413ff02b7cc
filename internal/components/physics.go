package components

import (
	"fmt"

	"arena/server/internal/entity"
	"arena/server/internal/physics"
)

// Physics keeps an entity's body in step with its position attributes and
// contains it inside the world bounds.
type Physics struct {
	kind  string
	owner *entity.Entity
	world *physics.World
	body  *physics.Body
}

// NewPhysics constructs a physics component whose body carries the given
// type tag, physics.TypePlayer when empty.
func NewPhysics(kind string) *Physics {
	if kind == "" {
		kind = physics.TypePlayer
	}
	return &Physics{kind: kind}
}

func (p *Physics) Key() entity.Key     { return entity.KeyPhysics }
func (p *Physics) Phase() entity.Phase { return entity.PhasePhysics }

// Init registers the body with the context's world.
func (p *Physics) Init(ctx *entity.Context, owner *entity.Entity) error {
	if ctx == nil || ctx.World == nil {
		return &entity.ConfigError{Entity: owner.ID(), Key: entity.KeyPhysics, Reason: "no world in context"}
	}
	values, ok := owner.Attrs.Floats(entity.AttrX, entity.AttrY, entity.AttrWidth, entity.AttrHeight)
	if !ok {
		return &entity.ConfigError{Entity: owner.ID(), Key: entity.KeyPhysics, Reason: "x, y, width and height must be numeric"}
	}
	body := physics.NewBody(p.kind, owner.ID())
	body.X, body.Y, body.Width, body.Height = values[0], values[1], values[2], values[3]
	if err := ctx.World.Add(body); err != nil {
		return fmt.Errorf("register body: %w", err)
	}
	p.owner = owner
	p.world = ctx.World
	p.body = body
	return nil
}

// Update clamps the position to the world, writes it back to the attributes
// and lets walls override the clamp.
func (p *Physics) Update(ctx *entity.Context, elapsed float64) {
	values, ok := p.owner.Attrs.Floats(entity.AttrX, entity.AttrY, entity.AttrWidth, entity.AttrHeight)
	if !ok {
		return
	}
	x, y, width, height := values[0], values[1], values[2], values[3]
	w := p.world

	if x < w.X {
		x = w.X
	} else if x+width > w.Right() {
		x = w.Right() - width
	}
	if y < w.Y {
		y = w.Y
	} else if y+height > w.Bottom() {
		y = w.Bottom() - height
	}

	p.body.X = x
	p.body.Y = y
	p.body.Width = width
	p.body.Height = height

	p.owner.Attrs.SetFloats(map[string]float64{entity.AttrX: x, entity.AttrY: y})

	p.Collide(physics.TypeWall, func(body, _ *physics.Body) {
		p.owner.Attrs.SetFloats(map[string]float64{entity.AttrX: body.X, entity.AttrY: body.Y})
	})
}

// OnEvent releases the body when the owner is removed.
func (p *Physics) OnEvent(ctx *entity.Context, event entity.Event) {
	if event.Type != entity.EventRemove {
		return
	}
	if p.world != nil && p.body != nil {
		p.world.Remove(p.body)
	}
}

// Body returns the persistent body.
func (p *Physics) Body() *physics.Body {
	return p.body
}

// Collide runs a collide query for the component's own body.
func (p *Physics) Collide(kind string, fn physics.CollisionFunc) int {
	return p.CollideWith(p.body, kind, fn)
}

// CollideWith runs a collide query for an arbitrary body.
func (p *Physics) CollideWith(body *physics.Body, kind string, fn physics.CollisionFunc) int {
	if p.world == nil {
		return 0
	}
	return p.world.Collide(body, kind, fn)
}

// Overlap runs an overlap query for the component's own body.
func (p *Physics) Overlap(kind string, fn physics.CollisionFunc) int {
	return p.OverlapWith(p.body, kind, fn)
}

// OverlapWith runs an overlap query for an arbitrary body, typically a
// transient attack volume.
func (p *Physics) OverlapWith(body *physics.Body, kind string, fn physics.CollisionFunc) int {
	if p.world == nil {
		return 0
	}
	return p.world.Overlap(body, kind, fn)
}
