package entity

import (
	"fmt"
	"sort"
)

type slot struct {
	component Component
	state     State
	order     int
}

// Components is the per-entity component registry.
type Components struct {
	owner   *Entity
	byKey   map[Key]*slot
	ordered []*slot
	next    int
}

func newComponents(owner *Entity) *Components {
	return &Components{owner: owner, byKey: make(map[Key]*slot)}
}

// Add attaches a component and initialises it. On error the component is
// not retained.
func (c *Components) Add(ctx *Context, component Component) error {
	if component == nil {
		return fmt.Errorf("entity %s: nil component", c.owner.id)
	}
	key := component.Key()
	if _, exists := c.byKey[key]; exists {
		return &DuplicateComponentError{Entity: c.owner.id, Key: key}
	}
	if c.owner.removed {
		return fmt.Errorf("entity %s: attach %s to removed entity", c.owner.id, key)
	}

	s := &slot{component: component, state: StateInitialized, order: c.next}
	c.next++
	if err := component.Init(ctx, c.owner); err != nil {
		return fmt.Errorf("init %s: %w", key, err)
	}
	s.state = StateActive

	c.byKey[key] = s
	c.ordered = append(c.ordered, s)
	sort.SliceStable(c.ordered, func(i, j int) bool {
		a, b := c.ordered[i], c.ordered[j]
		if a.component.Phase() != b.component.Phase() {
			return a.component.Phase() < b.component.Phase()
		}
		return a.order < b.order
	})
	return nil
}

// Get returns the component attached under key.
func (c *Components) Get(key Key) (Component, bool) {
	s, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	return s.component, true
}

// Has reports whether a component is attached under key.
func (c *Components) Has(key Key) bool {
	_, ok := c.byKey[key]
	return ok
}

// State reports the lifecycle state of the component under key.
func (c *Components) State(key Key) State {
	s, ok := c.byKey[key]
	if !ok {
		return StateDetached
	}
	return s.state
}

// Len reports the number of attached components.
func (c *Components) Len() int {
	return len(c.ordered)
}

// Keys lists attached keys in update order.
func (c *Components) Keys() []Key {
	keys := make([]Key, 0, len(c.ordered))
	for _, s := range c.ordered {
		keys = append(keys, s.component.Key())
	}
	return keys
}

func (c *Components) update(ctx *Context, elapsed float64) {
	for _, s := range c.ordered {
		// A component may remove its own entity (or another) mid-pass.
		if c.owner.removed {
			return
		}
		if s.state != StateActive {
			continue
		}
		s.component.Update(ctx, elapsed)
	}
}

func (c *Components) dispatch(ctx *Context, event Event) {
	for _, s := range c.ordered {
		if s.state != StateActive {
			continue
		}
		s.component.OnEvent(ctx, event)
	}
}

func (c *Components) release(ctx *Context, event Event) {
	for _, s := range c.ordered {
		if s.state != StateActive {
			continue
		}
		s.state = StateRemoved
		s.component.OnEvent(ctx, event)
	}
}

// Lookup resolves a component under key and asserts its concrete type.
func Lookup[T Component](e *Entity, key Key) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}
	component, ok := e.Components.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := component.(T)
	return typed, ok
}
