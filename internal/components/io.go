package components

import (
	"github.com/jakecoffman/cp"

	"arena/server/internal/entity"
)

// IntentKind names a client intent routed through the io component.
type IntentKind string

const (
	IntentAttack IntentKind = "attack"
	IntentMove   IntentKind = "move"
)

// Intent is a single client request addressed to one entity.
type Intent struct {
	Kind IntentKind
	DX   float64
	DY   float64
	// Direction optionally overrides the attack facing.
	Direction *cp.Vector
}

// IO binds an entity to the session that controls it and routes that
// session's intents to the components able to act on them.
type IO struct {
	owner      *entity.Entity
	session    string
	dispatched uint64
}

// NewIO constructs an io component for the given session id.
func NewIO(session string) *IO {
	return &IO{session: session}
}

func (c *IO) Key() entity.Key     { return entity.KeyIO }
func (c *IO) Phase() entity.Phase { return entity.PhaseInput }

func (c *IO) Init(ctx *entity.Context, owner *entity.Entity) error {
	c.owner = owner
	return nil
}

// Session returns the controlling session id.
func (c *IO) Session() string {
	return c.session
}

// Dispatched returns how many intents reached a component.
func (c *IO) Dispatched() uint64 {
	return c.dispatched
}

// Dispatch hands the intent to the component responsible for it. It reports
// false when the entity lacks that component.
func (c *IO) Dispatch(intent Intent) bool {
	if c.owner == nil || c.owner.Removed() {
		return false
	}
	switch intent.Kind {
	case IntentAttack:
		attack, ok := entity.Lookup[*Attack](c.owner, entity.KeyAttack)
		if !ok {
			return false
		}
		attack.Request(intent.Direction)
	case IntentMove:
		player, ok := entity.Lookup[*Player](c.owner, entity.KeyPlayer)
		if !ok {
			return false
		}
		player.SetIntent(intent.DX, intent.DY)
	default:
		return false
	}
	c.dispatched++
	return true
}

func (c *IO) Update(ctx *entity.Context, elapsed float64) {}

func (c *IO) OnEvent(ctx *entity.Context, event entity.Event) {}
