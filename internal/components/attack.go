package components

import (
	"time"

	"github.com/jakecoffman/cp"

	"arena/server/internal/combat"
	"arena/server/internal/entity"
	"arena/server/internal/physics"
	"arena/server/logging"
	combatlog "arena/server/logging/combat"
)

// Attack attribute names.
const (
	AttrAttackAoe    = "attackAoe"
	AttrAttackRange  = "attackRange"
	AttrMaxDamage    = "maxDamage"
	AttrLastAttackAt = "lastAttackAt"
	AttrFacingX      = "facingX"
	AttrFacingY      = "facingY"
)

// AttackConfig tunes an attack component.
type AttackConfig struct {
	Cooldown  time.Duration
	Targeting combat.Targeting
	Damage    combat.DamagePolicy
}

// Attack resolves cooldown gated area attacks against enemy players.
type Attack struct {
	owner   *entity.Entity
	physics *Physics
	team    any
	hasTeam bool

	volume    *physics.Body
	cooldown  combat.Cooldown
	targeting combat.Targeting
	damage    combat.DamagePolicy

	pending bool
	facing  *cp.Vector
}

// NewAttack constructs an attack component. Nil policies fall back to
// facing-offset targeting and fixed damage.
func NewAttack(cfg AttackConfig) *Attack {
	a := &Attack{
		cooldown:  combat.Cooldown{Interval: cfg.Cooldown},
		targeting: cfg.Targeting,
		damage:    cfg.Damage,
	}
	if a.targeting == nil {
		a.targeting = combat.FacingOffset{}
	}
	if a.damage == nil {
		a.damage = combat.FixedDamage{}
	}
	return a
}

func (a *Attack) Key() entity.Key     { return entity.KeyAttack }
func (a *Attack) Phase() entity.Phase { return entity.PhaseCombat }

// Init resolves the physics component and validates the combat attributes.
func (a *Attack) Init(ctx *entity.Context, owner *entity.Entity) error {
	phys, ok := entity.Lookup[*Physics](owner, entity.KeyPhysics)
	if !ok {
		return &entity.ConfigError{Entity: owner.ID(), Key: entity.KeyAttack, Reason: "requires a physics component"}
	}
	if _, ok := owner.Attrs.Floats(AttrAttackAoe, AttrMaxDamage); !ok {
		return &entity.ConfigError{Entity: owner.ID(), Key: entity.KeyAttack, Reason: "attackAoe and maxDamage must be numeric"}
	}
	a.owner = owner
	a.physics = phys
	a.team, a.hasTeam = owner.Team()
	a.volume = physics.NewBody(physics.TypeAttack, owner.ID())
	return nil
}

// Request records an attack intent. It resolves during the next combat
// phase so that movement for the tick has already been applied. A non-nil
// direction replaces the facing attributes for this attack only.
func (a *Attack) Request(direction *cp.Vector) {
	a.pending = true
	a.facing = direction
}

// Pending reports whether an attack intent awaits resolution.
func (a *Attack) Pending() bool {
	return a.pending
}

// SetCooldown retunes the interval between attacks.
func (a *Attack) SetCooldown(d time.Duration) {
	a.cooldown.Interval = d
}

// CanAttack reports whether the cooldown has elapsed.
func (a *Attack) CanAttack(now time.Time) bool {
	return a.cooldown.Ready(now)
}

// LastAttackAt returns the time of the last executed attack, zero if none.
func (a *Attack) LastAttackAt() time.Time {
	return a.cooldown.Last()
}

func (a *Attack) Update(ctx *entity.Context, elapsed float64) {
	if !a.pending {
		return
	}
	a.pending = false
	facing := a.facing
	a.facing = nil
	a.resolve(ctx, facing)
}

// OnAttack executes an attack immediately. It returns the number of targets
// damaged; a blocked attack returns zero and records nothing.
func (a *Attack) OnAttack(ctx *entity.Context) int {
	return a.resolve(ctx, nil)
}

func (a *Attack) resolve(ctx *entity.Context, facing *cp.Vector) int {
	if a.owner == nil || !a.owner.Alive() {
		return 0
	}
	now := ctx.Now
	if !a.CanAttack(now) {
		return 0
	}

	aoe, _ := a.owner.Attrs.Float(AttrAttackAoe)
	maxDamage, _ := a.owner.Attrs.Float(AttrMaxDamage)

	target := a.targeting.Target(a.aim(aoe, facing))
	a.volume.SetBB(combat.Volume(target, aoe))

	actorRef := logging.PlayerRef(a.owner.ID())
	var hits, skipped []string
	var targets []logging.EntityRef
	a.physics.OverlapWith(a.volume, physics.TypePlayer, func(_, other *physics.Body) {
		victim, ok := ctx.Entities.Get(other.Owner)
		if !ok || victim == a.owner {
			return
		}
		if !a.hostile(victim) || !victim.Alive() {
			skipped = append(skipped, victim.ID())
			return
		}
		health, _ := victim.Attrs.Float(entity.AttrHealth)
		amount := a.damage.Damage(combat.Hit{
			Tick:         ctx.Tick,
			AttackerID:   a.owner.ID(),
			TargetID:     victim.ID(),
			MaxDamage:    maxDamage,
			TargetHealth: health,
		})
		applied, fatal := victim.Damage(ctx, amount, a.owner)
		hits = append(hits, victim.ID())
		victimRef := logging.PlayerRef(victim.ID())
		targets = append(targets, victimRef)
		remaining, _ := victim.Attrs.Float(entity.AttrHealth)
		combatlog.Damage(ctx.Std(), ctx.Publisher, ctx.Tick, actorRef, victimRef, combatlog.DamagePayload{Amount: applied, TargetHealth: remaining})
		if fatal {
			combatlog.Defeat(ctx.Std(), ctx.Publisher, ctx.Tick, actorRef, victimRef, combatlog.DefeatPayload{Amount: applied})
		}
	})

	a.cooldown.Trigger(now)
	a.owner.Attrs.SetFloats(map[string]float64{AttrLastAttackAt: float64(now.UnixMilli())})

	combatlog.AttackOverlap(ctx.Std(), ctx.Publisher, ctx.Tick, actorRef, targets, combatlog.AttackOverlapPayload{
		TargetX: target.X,
		TargetY: target.Y,
		Aoe:     aoe,
		Hits:    hits,
		Skipped: skipped,
	})
	return len(hits)
}

func (a *Attack) aim(aoe float64, facing *cp.Vector) combat.Aim {
	aim := combat.Aim{Origin: a.physics.Body().Center(), Range: aoe / 2}
	if r, ok := a.owner.Attrs.Float(AttrAttackRange); ok {
		aim.Range = r
	}
	if facing != nil {
		aim.Facing = *facing
		return aim
	}
	fx, _ := a.owner.Attrs.Float(AttrFacingX)
	fy, _ := a.owner.Attrs.Float(AttrFacingY)
	aim.Facing = cp.Vector{X: fx, Y: fy}
	return aim
}

// hostile reports whether the victim carries a team that differs from the
// attacker's. A victim without a team is never hostile.
func (a *Attack) hostile(victim *entity.Entity) bool {
	team, ok := victim.Team()
	if !ok {
		return false
	}
	if !a.hasTeam {
		return true
	}
	return team != a.team
}

// OnEvent drops any pending intent when the owner is removed. The attack
// volume is never registered with the world so there is nothing to release.
func (a *Attack) OnEvent(ctx *entity.Context, event entity.Event) {
	if event.Type == entity.EventRemove {
		a.pending = false
		a.facing = nil
	}
}
