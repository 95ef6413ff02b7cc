package combat

import "github.com/jakecoffman/cp"

// Aim describes where an attacker stands and faces.
type Aim struct {
	Origin cp.Vector
	Facing cp.Vector
	Range  float64
}

// Targeting chooses the centre of an area attack.
type Targeting interface {
	Target(aim Aim) cp.Vector
}

// TargetingFunc adapts a function into a Targeting policy.
type TargetingFunc func(aim Aim) cp.Vector

func (f TargetingFunc) Target(aim Aim) cp.Vector {
	return f(aim)
}

// FacingOffset aims Range units from the origin along the facing direction.
// A zero facing aims at the origin itself.
type FacingOffset struct{}

func (FacingOffset) Target(aim Aim) cp.Vector {
	if aim.Facing.Length() == 0 || aim.Range == 0 {
		return aim.Origin
	}
	return aim.Origin.Add(aim.Facing.Normalize().Mult(aim.Range))
}

// Volume returns the square attack area of side aoe centred on target.
func Volume(target cp.Vector, aoe float64) cp.BB {
	half := aoe / 2
	return cp.NewBBForExtents(target, half, half)
}
