package combat

import (
	"context"

	"arena/server/logging"
)

const (
	// EventAttackOverlap is emitted when an attack volume resolves.
	EventAttackOverlap logging.EventType = "combat.attack_overlap"
	// EventDamage is emitted when an attack deals damage to a target.
	EventDamage logging.EventType = "combat.damage"
	// EventDefeat is emitted when a target's health reaches zero.
	EventDefeat logging.EventType = "combat.defeat"
)

// AttackOverlapPayload captures the attack volume and who it touched.
type AttackOverlapPayload struct {
	TargetX float64  `json:"targetX"`
	TargetY float64  `json:"targetY"`
	Aoe     float64  `json:"aoe"`
	Hits    []string `json:"hits,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

// DamagePayload captures the amount dealt to a single target.
type DamagePayload struct {
	Amount       float64 `json:"amount"`
	TargetHealth float64 `json:"targetHealth"`
}

// DefeatPayload describes the fatal blow.
type DefeatPayload struct {
	Amount float64 `json:"amount"`
}

// AttackOverlap publishes the resolution of one attack.
func AttackOverlap(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload AttackOverlapPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAttackOverlap,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Damage publishes a damage event for a single target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// Defeat publishes a defeat event for the eliminated target.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DefeatPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}
