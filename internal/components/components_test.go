package components

import (
	"errors"
	"testing"
	"time"

	"github.com/jakecoffman/cp"

	"arena/server/internal/attrs"
	"arena/server/internal/entity"
	"arena/server/internal/physics"
	combatlog "arena/server/logging/combat"
	"arena/server/logging/sinks"
)

func newContext(t *testing.T) (*entity.Context, *sinks.Memory) {
	t.Helper()
	ctx := entity.NewContext(physics.NewWorld(0, 0, 200, 200), entity.NewRegistry())
	memory := sinks.NewMemory()
	ctx.Publisher = memory
	ctx.Now = time.Unix(1000, 0)
	return ctx, memory
}

func spawn(t *testing.T, ctx *entity.Context, id string, values attrs.Values, components ...entity.Component) *entity.Entity {
	t.Helper()
	e, err := entity.New(id, values)
	if err != nil {
		t.Fatalf("new %s: %v", id, err)
	}
	for _, c := range components {
		if err := e.Components.Add(ctx, c); err != nil {
			t.Fatalf("add %s to %s: %v", c.Key(), id, err)
		}
	}
	if err := ctx.Entities.Add(id, e); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return e
}

func fighter(x, y float64, team any) attrs.Values {
	values := attrs.Values{
		entity.AttrX:      x,
		entity.AttrY:      y,
		entity.AttrWidth:  10,
		entity.AttrHeight: 10,
		entity.AttrAlive:  true,
		entity.AttrHealth: 30,
		AttrAttackAoe:     20,
		AttrMaxDamage:     10,
	}
	if team != nil {
		values[entity.AttrTeam] = team
	}
	return values
}

func withAttack(cooldown time.Duration) []entity.Component {
	return []entity.Component{NewPhysics(""), NewAttack(AttackConfig{Cooldown: cooldown})}
}

func TestPhysicsClampsToWorldBounds(t *testing.T) {
	ctx, _ := newContext(t)
	e := spawn(t, ctx, "p1", attrs.Values{entity.AttrX: -5, entity.AttrY: 195, entity.AttrWidth: 10, entity.AttrHeight: 10}, NewPhysics(""))

	ctx.Entities.Update(ctx, 16)

	pos, _ := e.Attrs.Floats(entity.AttrX, entity.AttrY)
	if pos[0] != 0 || pos[1] != 190 {
		t.Fatalf("expected clamp to (0,190), got %v", pos)
	}
	phys, _ := entity.Lookup[*Physics](e, entity.KeyPhysics)
	if phys.Body().X != 0 || phys.Body().Y != 190 {
		t.Fatalf("expected body to follow attributes, got %+v", phys.Body())
	}
}

func TestPhysicsEdgeContactIsNotClamped(t *testing.T) {
	ctx, _ := newContext(t)
	e := spawn(t, ctx, "p1", attrs.Values{entity.AttrX: 190, entity.AttrY: 0, entity.AttrWidth: 10, entity.AttrHeight: 0}, NewPhysics(""))
	ctx.Entities.Update(ctx, 16)
	pos, _ := e.Attrs.Floats(entity.AttrX, entity.AttrY)
	if pos[0] != 190 || pos[1] != 0 {
		t.Fatalf("expected position unchanged, got %v", pos)
	}
}

func TestPhysicsWallOverridesPosition(t *testing.T) {
	ctx, _ := newContext(t)
	wall := physics.NewBody(physics.TypeWall, "")
	wall.X, wall.Y, wall.Width, wall.Height = 50, 0, 20, 100
	if err := ctx.World.Add(wall); err != nil {
		t.Fatalf("add wall: %v", err)
	}
	e := spawn(t, ctx, "p1", attrs.Values{entity.AttrX: 45, entity.AttrY: 10, entity.AttrWidth: 10, entity.AttrHeight: 10}, NewPhysics(""))

	ctx.Entities.Update(ctx, 16)

	pos, _ := e.Attrs.Floats(entity.AttrX, entity.AttrY)
	if pos[0] != 40 || pos[1] != 10 {
		t.Fatalf("expected wall to push player to (40,10), got %v", pos)
	}
}

func TestPhysicsInitRequiresGeometry(t *testing.T) {
	ctx, _ := newContext(t)
	e, _ := entity.New("p1", attrs.Values{entity.AttrX: 1})
	err := e.Components.Add(ctx, NewPhysics(""))
	var cfgErr *entity.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ctx.World.Len() != 0 {
		t.Fatalf("expected no body to be registered")
	}
}

func TestPhysicsReleasesBodyOnRemove(t *testing.T) {
	ctx, _ := newContext(t)
	spawn(t, ctx, "p1", fighter(0, 0, "red"), NewPhysics(""))
	if ctx.World.Len() != 1 {
		t.Fatalf("expected registered body")
	}
	ctx.Entities.Remove(ctx, "p1")
	if ctx.World.Len() != 0 {
		t.Fatalf("expected body to be released, %d remain", ctx.World.Len())
	}
}

func TestAttackDamagesEnemyOnceWithinCooldown(t *testing.T) {
	ctx, memory := newContext(t)
	a := spawn(t, ctx, "a", fighter(45, 45, "red"), withAttack(time.Second)...)
	b := spawn(t, ctx, "b", fighter(50, 50, "blue"), withAttack(time.Second)...)

	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	if hits := attack.OnAttack(ctx); hits != 1 {
		t.Fatalf("expected one hit, got %d", hits)
	}
	if health, _ := b.Attrs.Float(entity.AttrHealth); health != 20 {
		t.Fatalf("expected health 20, got %v", health)
	}
	if !attack.LastAttackAt().Equal(ctx.Now) {
		t.Fatalf("expected lastAttackAt to be recorded")
	}

	ctx.Now = ctx.Now.Add(500 * time.Millisecond)
	if hits := attack.OnAttack(ctx); hits != 0 {
		t.Fatalf("expected cooldown to block, got %d hits", hits)
	}
	if health, _ := b.Attrs.Float(entity.AttrHealth); health != 20 {
		t.Fatalf("expected health unchanged at 20, got %v", health)
	}

	ctx.Now = ctx.Now.Add(500 * time.Millisecond)
	if hits := attack.OnAttack(ctx); hits != 1 {
		t.Fatalf("expected attack after cooldown, got %d hits", hits)
	}

	if got := len(memory.OfType(combatlog.EventDamage)); got != 2 {
		t.Fatalf("expected 2 damage events, got %d", got)
	}
	if got := len(memory.OfType(combatlog.EventAttackOverlap)); got != 2 {
		t.Fatalf("expected 2 overlap events, got %d", got)
	}
}

func TestAttackSkipsIneligibleTargets(t *testing.T) {
	ctx, _ := newContext(t)
	a := spawn(t, ctx, "a", fighter(45, 45, "red"), withAttack(0)...)
	ally := spawn(t, ctx, "ally", fighter(50, 50, "red"), withAttack(0)...)
	neutral := spawn(t, ctx, "neutral", fighter(48, 48, nil), NewPhysics(""))
	deadValues := fighter(46, 46, "blue")
	deadValues[entity.AttrAlive] = false
	dead := spawn(t, ctx, "dead", deadValues, NewPhysics(""))

	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	if hits := attack.OnAttack(ctx); hits != 0 {
		t.Fatalf("expected no eligible targets, got %d", hits)
	}
	for _, e := range []*entity.Entity{a, ally, neutral, dead} {
		if health, _ := e.Attrs.Float(entity.AttrHealth); health != 30 {
			t.Fatalf("expected %s untouched, got %v", e.ID(), health)
		}
	}
	if attack.LastAttackAt().IsZero() {
		t.Fatalf("expected an executed attack to record its time even without hits")
	}
}

func TestAttackFromUntaggedAttackerHitsTaggedTargets(t *testing.T) {
	ctx, _ := newContext(t)
	a := spawn(t, ctx, "a", fighter(45, 45, nil), withAttack(0)...)
	b := spawn(t, ctx, "b", fighter(50, 50, "blue"), NewPhysics(""))

	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	attack.OnAttack(ctx)
	if health, _ := b.Attrs.Float(entity.AttrHealth); health != 20 {
		t.Fatalf("expected damage, got health %v", health)
	}
}

func TestAttackOutOfRangeMisses(t *testing.T) {
	ctx, _ := newContext(t)
	a := spawn(t, ctx, "a", fighter(0, 0, "red"), withAttack(0)...)
	b := spawn(t, ctx, "b", fighter(150, 150, "blue"), NewPhysics(""))

	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	if hits := attack.OnAttack(ctx); hits != 0 {
		t.Fatalf("expected miss, got %d hits", hits)
	}
	if health, _ := b.Attrs.Float(entity.AttrHealth); health != 30 {
		t.Fatalf("expected health 30, got %v", health)
	}
}

func TestAttackFollowsFacing(t *testing.T) {
	ctx, _ := newContext(t)
	values := fighter(45, 45, "red")
	values[AttrFacingX] = 1
	values[AttrAttackRange] = 30
	a := spawn(t, ctx, "a", values, withAttack(0)...)
	behind := spawn(t, ctx, "behind", fighter(30, 45, "blue"), NewPhysics(""))
	ahead := spawn(t, ctx, "ahead", fighter(75, 45, "blue"), NewPhysics(""))

	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	attack.OnAttack(ctx)
	if health, _ := ahead.Attrs.Float(entity.AttrHealth); health != 20 {
		t.Fatalf("expected target ahead to be hit, got %v", health)
	}
	if health, _ := behind.Attrs.Float(entity.AttrHealth); health != 30 {
		t.Fatalf("expected target behind to be spared, got %v", health)
	}
}

func TestAttackKillsAndReportsDefeat(t *testing.T) {
	ctx, memory := newContext(t)
	a := spawn(t, ctx, "a", fighter(45, 45, "red"), withAttack(0)...)
	weak := fighter(50, 50, "blue")
	weak[entity.AttrHealth] = 5
	b := spawn(t, ctx, "b", weak, NewPhysics(""))

	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	attack.OnAttack(ctx)
	if b.Alive() {
		t.Fatalf("expected target to die")
	}
	if got := len(memory.OfType(combatlog.EventDefeat)); got != 1 {
		t.Fatalf("expected one defeat event, got %d", got)
	}
}

func TestDeadAttackerCannotAttack(t *testing.T) {
	ctx, _ := newContext(t)
	values := fighter(45, 45, "red")
	values[entity.AttrAlive] = false
	a := spawn(t, ctx, "a", values, withAttack(0)...)
	spawn(t, ctx, "b", fighter(50, 50, "blue"), NewPhysics(""))

	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	if hits := attack.OnAttack(ctx); hits != 0 {
		t.Fatalf("expected dead attacker to be ignored")
	}
	if !attack.LastAttackAt().IsZero() {
		t.Fatalf("expected nothing to be recorded")
	}
}

func TestAttackInitFailsFast(t *testing.T) {
	ctx, _ := newContext(t)
	e, _ := entity.New("a", fighter(0, 0, "red"))
	err := e.Components.Add(ctx, NewAttack(AttackConfig{}))
	var cfgErr *entity.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError without physics, got %v", err)
	}

	e2, _ := entity.New("b", attrs.Values{entity.AttrX: 0, entity.AttrY: 0, entity.AttrWidth: 1, entity.AttrHeight: 1})
	if err := e2.Components.Add(ctx, NewPhysics("")); err != nil {
		t.Fatalf("physics: %v", err)
	}
	err = e2.Components.Add(ctx, NewAttack(AttackConfig{}))
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError without attackAoe, got %v", err)
	}
	if e2.Components.Has(entity.KeyAttack) {
		t.Fatalf("expected failed attack not to be retained")
	}
}

func TestAttackRequestResolvesInCombatPhase(t *testing.T) {
	ctx, _ := newContext(t)
	a := spawn(t, ctx, "a", fighter(45, 45, "red"), append([]entity.Component{NewIO("s1")}, withAttack(time.Second)...)...)
	b := spawn(t, ctx, "b", fighter(50, 50, "blue"), NewPhysics(""))

	io, _ := entity.Lookup[*IO](a, entity.KeyIO)
	if !io.Dispatch(Intent{Kind: IntentAttack}) {
		t.Fatalf("expected attack intent to be dispatched")
	}
	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	if !attack.Pending() {
		t.Fatalf("expected pending attack")
	}
	if health, _ := b.Attrs.Float(entity.AttrHealth); health != 30 {
		t.Fatalf("expected no damage before the tick")
	}

	ctx.Entities.Update(ctx, 16)
	if health, _ := b.Attrs.Float(entity.AttrHealth); health != 20 {
		t.Fatalf("expected damage during the tick, got %v", health)
	}
	if attack.Pending() {
		t.Fatalf("expected pending flag to clear")
	}
}

func TestAttackDirectionOverridesFacing(t *testing.T) {
	ctx, _ := newContext(t)
	a := spawn(t, ctx, "a", fighter(0, 0, "red"), withAttack(0)...)
	b := spawn(t, ctx, "b", fighter(15, 15, "blue"), NewPhysics(""))

	attack, _ := entity.Lookup[*Attack](a, entity.KeyAttack)
	if hits := attack.OnAttack(ctx); hits != 0 {
		t.Fatalf("expected undirected attack to miss, got %d hits", hits)
	}
	attack.Request(&cp.Vector{X: 1, Y: 1})
	ctx.Entities.Update(ctx, 16)
	if health, _ := b.Attrs.Float(entity.AttrHealth); health != 20 {
		t.Fatalf("expected directed attack to land, got %v", health)
	}
}

func TestMoveIntentAdvancesPlayer(t *testing.T) {
	ctx, _ := newContext(t)
	values := fighter(50, 50, "red")
	values[AttrSpeed] = 100
	e := spawn(t, ctx, "p1", values, NewIO("s1"), NewPlayer(50), NewPhysics(""))

	io, _ := entity.Lookup[*IO](e, entity.KeyIO)
	if !io.Dispatch(Intent{Kind: IntentMove, DX: 1, DY: 0}) {
		t.Fatalf("expected move intent to be dispatched")
	}
	ctx.Entities.Update(ctx, 100)

	pos, _ := e.Attrs.Floats(entity.AttrX, entity.AttrY, AttrFacingX)
	if pos[0] != 60 || pos[1] != 50 || pos[2] != 1 {
		t.Fatalf("expected (60,50) facing +x, got %v", pos)
	}
	if io.Dispatched() != 1 {
		t.Fatalf("expected one dispatched intent, got %d", io.Dispatched())
	}
}

func TestMoveIsClampedByPhysicsSameTick(t *testing.T) {
	ctx, _ := newContext(t)
	values := fighter(5, 50, "red")
	values[AttrSpeed] = 100
	e := spawn(t, ctx, "p1", values, NewPlayer(0), NewPhysics(""))

	player, _ := entity.Lookup[*Player](e, entity.KeyPlayer)
	player.SetIntent(-1, 0)
	ctx.Entities.Update(ctx, 100)
	if x, _ := e.Attrs.Float(entity.AttrX); x != 0 {
		t.Fatalf("expected clamp at 0, got %v", x)
	}
}

func TestDispatchWithoutTargetComponentFails(t *testing.T) {
	ctx, _ := newContext(t)
	e := spawn(t, ctx, "p1", fighter(0, 0, "red"), NewIO("s1"))
	io, _ := entity.Lookup[*IO](e, entity.KeyIO)
	if io.Dispatch(Intent{Kind: IntentAttack}) {
		t.Fatalf("expected dispatch without attack component to fail")
	}
	if io.Dispatch(Intent{Kind: "dance"}) {
		t.Fatalf("expected unknown intent to fail")
	}
}

func TestActorSeedsImageAndFlushesChanges(t *testing.T) {
	ctx, _ := newContext(t)
	e := spawn(t, ctx, "p1", fighter(0, 0, "red"), NewActor("knight"))
	actor, _ := entity.Lookup[*Actor](e, entity.KeyActor)

	first := actor.Changes()
	if first[entity.AttrImage] != "knight" {
		t.Fatalf("expected image in first changes, got %v", first)
	}
	if len(actor.Changes()) != 0 {
		t.Fatalf("expected flush to clear changes")
	}
	e.Attrs.SetFloats(map[string]float64{entity.AttrX: 3})
	if changes := actor.Changes(); len(changes) != 1 || changes[entity.AttrX] != 3.0 {
		t.Fatalf("unexpected changes %v", changes)
	}

	bare, _ := entity.New("p2", nil)
	var cfgErr *entity.ConfigError
	if err := bare.Components.Add(ctx, NewActor("")); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError without image, got %v", err)
	}
}
