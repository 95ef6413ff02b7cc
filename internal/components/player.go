package components

import (
	"math"

	"arena/server/internal/entity"
)

// AttrSpeed is the movement speed in world units per second.
const AttrSpeed = "speed"

// Player turns the latest movement intent into a position change and keeps
// the facing attributes current.
type Player struct {
	owner *entity.Entity
	speed float64
	dx    float64
	dy    float64
}

// NewPlayer constructs a player component with a default speed used when the
// entity carries no speed attribute.
func NewPlayer(speed float64) *Player {
	return &Player{speed: speed}
}

func (p *Player) Key() entity.Key     { return entity.KeyPlayer }
func (p *Player) Phase() entity.Phase { return entity.PhaseInput }

func (p *Player) Init(ctx *entity.Context, owner *entity.Entity) error {
	if _, ok := owner.Attrs.Floats(entity.AttrX, entity.AttrY); !ok {
		return &entity.ConfigError{Entity: owner.ID(), Key: entity.KeyPlayer, Reason: "x and y must be numeric"}
	}
	p.owner = owner
	return nil
}

// SetIntent replaces the movement direction. Components are clamped to
// [-1, 1]; a zero vector stops the player.
func (p *Player) SetIntent(dx, dy float64) {
	p.dx = clampUnit(dx)
	p.dy = clampUnit(dy)
}

// Intent returns the current movement direction.
func (p *Player) Intent() (float64, float64) {
	return p.dx, p.dy
}

// SetSpeed retunes the fallback speed.
func (p *Player) SetSpeed(speed float64) {
	p.speed = speed
}

func (p *Player) Update(ctx *entity.Context, elapsed float64) {
	if (p.dx == 0 && p.dy == 0) || !p.owner.Alive() {
		return
	}
	speed := p.speed
	if s, ok := p.owner.Attrs.Float(AttrSpeed); ok {
		speed = s
	}
	dx, dy := p.dx, p.dy
	if length := math.Hypot(dx, dy); length > 1 {
		dx /= length
		dy /= length
	}
	pos, _ := p.owner.Attrs.Floats(entity.AttrX, entity.AttrY)
	step := speed * elapsed / 1000
	p.owner.Attrs.SetFloats(map[string]float64{
		entity.AttrX: pos[0] + dx*step,
		entity.AttrY: pos[1] + dy*step,
		AttrFacingX:  dx,
		AttrFacingY:  dy,
	})
}

func (p *Player) OnEvent(ctx *entity.Context, event entity.Event) {
	if event.Type == entity.EventRemove || event.Type == entity.EventDeath {
		p.dx, p.dy = 0, 0
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
