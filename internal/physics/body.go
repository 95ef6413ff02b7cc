package physics

import "github.com/jakecoffman/cp"

// Body type tags understood by the simulation.
const (
	TypePlayer = "player"
	TypeWall   = "wall"
	TypeAttack = "attack"
)

// Body is an axis-aligned rectangle registered with a World. Owner is the id
// of the owning entity; it is a lookup key, not an ownership edge.
type Body struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Type   string
	Owner  string

	world *World
}

// NewBody constructs an empty body of the given type.
func NewBody(kind, owner string) *Body {
	return &Body{Type: kind, Owner: owner}
}

// NewBodyFromBB constructs a body covering the bounding box.
func NewBodyFromBB(kind, owner string, bb cp.BB) *Body {
	return &Body{
		X:      bb.L,
		Y:      bb.B,
		Width:  bb.R - bb.L,
		Height: bb.T - bb.B,
		Type:   kind,
		Owner:  owner,
	}
}

// Right returns x+width.
func (b *Body) Right() float64 {
	return b.X + b.Width
}

// Bottom returns y+height.
func (b *Body) Bottom() float64 {
	return b.Y + b.Height
}

// Center returns the midpoint of the rectangle.
func (b *Body) Center() cp.Vector {
	return cp.Vector{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// BB converts the body into a chipmunk bounding box. The y axis grows
// downwards, so B holds the top edge in screen space.
func (b *Body) BB() cp.BB {
	return cp.BB{L: b.X, B: b.Y, R: b.Right(), T: b.Bottom()}
}

// SetBB moves and resizes the body to cover the bounding box.
func (b *Body) SetBB(bb cp.BB) {
	b.X = bb.L
	b.Y = bb.B
	b.Width = bb.R - bb.L
	b.Height = bb.T - bb.B
}

// World returns the world the body is registered with, if any.
func (b *Body) World() *World {
	return b.world
}

// Intersects reports positive-area overlap on both axes. Touching edges and
// zero-size rectangles never intersect.
func (b *Body) Intersects(other *Body) bool {
	if b == nil || other == nil {
		return false
	}
	dx, dy := b.overlapDepth(other)
	return dx > 0 && dy > 0
}

// overlapDepth returns the overlap extent on each axis.
func (b *Body) overlapDepth(other *Body) (float64, float64) {
	dx := minFloat(b.Right(), other.Right()) - maxFloat(b.X, other.X)
	dy := minFloat(b.Bottom(), other.Bottom()) - maxFloat(b.Y, other.Y)
	return dx, dy
}

// separate pushes b out of other along the axis with the smallest overlap.
func (b *Body) separate(other *Body) {
	dx, dy := b.overlapDepth(other)
	if dx <= 0 || dy <= 0 {
		return
	}
	bc := b.Center()
	oc := other.Center()
	if dx < dy {
		if bc.X < oc.X {
			b.X = other.X - b.Width
		} else {
			b.X = other.Right()
		}
		return
	}
	if bc.Y < oc.Y {
		b.Y = other.Y - b.Height
	} else {
		b.Y = other.Bottom()
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
