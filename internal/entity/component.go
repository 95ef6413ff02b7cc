package entity

import "fmt"

// Key identifies a component variant. An entity holds at most one component
// per key.
type Key string

const (
	KeyIO      Key = "io"
	KeyPlayer  Key = "player"
	KeyPhysics Key = "physics"
	KeyAttack  Key = "attack"
	KeyActor   Key = "actor"
)

// Phase orders component updates within a tick.
type Phase int

const (
	PhaseInput Phase = iota
	PhasePhysics
	PhaseCombat
	PhaseSync
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePhysics:
		return "physics"
	case PhaseCombat:
		return "combat"
	case PhaseSync:
		return "sync"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State tracks a component through its lifecycle.
type State int

const (
	StateDetached State = iota
	StateInitialized
	StateActive
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateDetached:
		return "detached"
	case StateInitialized:
		return "initialized"
	case StateActive:
		return "active"
	case StateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventType names notifications an entity fires to its components.
type EventType string

const (
	// EventRemove is fired exactly once when the entity leaves the registry.
	EventRemove EventType = "entity.remove"
	// EventDamage is fired after damage was applied to the entity.
	EventDamage EventType = "entity.damage"
	// EventDeath is fired when the entity's health reaches zero.
	EventDeath EventType = "entity.death"
)

// Event is delivered to every component of the entity it concerns.
type Event struct {
	Type   EventType
	Entity *Entity
	Source *Entity
	Amount float64
}

// Component is a capability attached to an entity.
//
// Init runs once at attach time with the owner already constructed; an error
// aborts the attach. Update runs once per tick while the component is active,
// with elapsed measured in milliseconds. OnEvent receives entity
// notifications; on EventRemove the component must release anything it
// registered outside the entity, such as world bodies.
type Component interface {
	Key() Key
	Phase() Phase
	Init(ctx *Context, owner *Entity) error
	Update(ctx *Context, elapsed float64)
	OnEvent(ctx *Context, event Event)
}

// ConfigError reports a component that cannot initialise because its owner
// lacks a required attribute or sibling component.
type ConfigError struct {
	Entity string
	Key    Key
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("entity %s: component %s: %s", e.Entity, e.Key, e.Reason)
}

// DuplicateComponentError is returned when a key is attached twice.
type DuplicateComponentError struct {
	Entity string
	Key    Key
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("entity %s: component %s already attached", e.Entity, e.Key)
}
