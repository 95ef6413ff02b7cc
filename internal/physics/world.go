package physics

import "fmt"

// DuplicateBodyError is returned when a body is registered twice.
type DuplicateBodyError struct {
	Owner string
	Type  string
}

func (e *DuplicateBodyError) Error() string {
	return fmt.Sprintf("physics: body %s/%s already registered", e.Type, e.Owner)
}

// CollisionFunc receives the queried body and the matching body.
type CollisionFunc func(body, other *Body)

// World owns the registered bodies inside a bounded region. Bodies are kept
// in insertion order so queries are deterministic.
type World struct {
	X      float64
	Y      float64
	Width  float64
	Height float64

	bodies []*Body
}

// NewWorld constructs an empty world covering the given region.
func NewWorld(x, y, width, height float64) *World {
	return &World{X: x, Y: y, Width: width, Height: height}
}

// Right returns x+width.
func (w *World) Right() float64 {
	return w.X + w.Width
}

// Bottom returns y+height.
func (w *World) Bottom() float64 {
	return w.Y + w.Height
}

// Add registers a body. A body belongs to at most one world.
func (w *World) Add(body *Body) error {
	if body == nil {
		return fmt.Errorf("physics: nil body")
	}
	if body.world != nil {
		return &DuplicateBodyError{Owner: body.Owner, Type: body.Type}
	}
	body.world = w
	w.bodies = append(w.bodies, body)
	return nil
}

// Remove deregisters a body. Removing an unknown body is a no-op.
func (w *World) Remove(body *Body) bool {
	if body == nil || body.world != w {
		return false
	}
	for i, candidate := range w.bodies {
		if candidate == body {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			body.world = nil
			return true
		}
	}
	return false
}

// RemoveOwner deregisters every body owned by the given entity id.
func (w *World) RemoveOwner(owner string) int {
	removed := 0
	kept := w.bodies[:0]
	for _, body := range w.bodies {
		if body.Owner == owner {
			body.world = nil
			removed++
			continue
		}
		kept = append(kept, body)
	}
	for i := len(kept); i < len(w.bodies); i++ {
		w.bodies[i] = nil
	}
	w.bodies = kept
	return removed
}

// Contains reports whether the body is registered here.
func (w *World) Contains(body *Body) bool {
	return body != nil && body.world == w
}

// Len reports the number of registered bodies.
func (w *World) Len() int {
	return len(w.bodies)
}

// Bodies returns a copy of the registered bodies in insertion order.
func (w *World) Bodies() []*Body {
	out := make([]*Body, len(w.bodies))
	copy(out, w.bodies)
	return out
}

// Collide reports every body of the given type intersecting body. Against
// walls, body is first pushed out along the smallest-overlap axis so the
// callback sees the resolved position. It returns the number of reports.
func (w *World) Collide(body *Body, kind string, fn CollisionFunc) int {
	return w.query(body, kind, kind == TypeWall, fn)
}

// Overlap reports every body of the given type intersecting body without
// moving anything. body does not need to be registered.
func (w *World) Overlap(body *Body, kind string, fn CollisionFunc) int {
	return w.query(body, kind, false, fn)
}

func (w *World) query(body *Body, kind string, resolve bool, fn CollisionFunc) int {
	if body == nil {
		return 0
	}
	// Callbacks may remove bodies; iterate a stable copy and skip anything
	// that left the world meanwhile.
	candidates := w.Bodies()
	reported := 0
	for _, other := range candidates {
		if other == body || other.world != w {
			continue
		}
		if kind != "" && other.Type != kind {
			continue
		}
		if !body.Intersects(other) {
			continue
		}
		if resolve {
			body.separate(other)
		}
		reported++
		if fn != nil {
			fn(body, other)
		}
	}
	return reported
}
