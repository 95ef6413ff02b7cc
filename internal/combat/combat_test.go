package combat

import (
	"errors"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
)

func TestReadyCooldownFirstUseAndWindow(t *testing.T) {
	now := time.Unix(10, 0)
	if !ReadyCooldown(time.Time{}, time.Second, now) {
		t.Fatalf("expected first use to be ready")
	}
	if ReadyCooldown(now, time.Second, now.Add(500*time.Millisecond)) {
		t.Fatalf("expected cooldown to block within the window")
	}
	if !ReadyCooldown(now, time.Second, now.Add(time.Second)) {
		t.Fatalf("expected cooldown to allow exactly at the interval")
	}
	if !ReadyCooldown(now, 0, now) {
		t.Fatalf("expected zero cooldown to always be ready")
	}
}

func TestCooldownTracksLastTrigger(t *testing.T) {
	cd := Cooldown{Interval: 2 * time.Second}
	now := time.Unix(30, 0)
	if !cd.Ready(now) {
		t.Fatalf("expected fresh cooldown to be ready")
	}
	cd.Trigger(now)
	if cd.Ready(now.Add(time.Second)) {
		t.Fatalf("expected cooldown to block after trigger")
	}
	if !cd.Last().Equal(now) {
		t.Fatalf("expected last trigger %v, got %v", now, cd.Last())
	}
}

func TestFacingOffsetAimsAlongFacing(t *testing.T) {
	aim := Aim{Origin: cp.Vector{X: 50, Y: 50}, Facing: cp.Vector{X: 3, Y: 0}, Range: 10}
	got := FacingOffset{}.Target(aim)
	if got.X != 60 || got.Y != 50 {
		t.Fatalf("expected target (60,50), got %+v", got)
	}

	aim.Facing = cp.Vector{}
	got = FacingOffset{}.Target(aim)
	if got.X != 50 || got.Y != 50 {
		t.Fatalf("expected zero facing to aim at origin, got %+v", got)
	}
}

func TestVolumeIsCenteredSquare(t *testing.T) {
	bb := Volume(cp.Vector{X: 50, Y: 50}, 20)
	if bb.L != 40 || bb.R != 60 || bb.B != 40 || bb.T != 60 {
		t.Fatalf("unexpected volume %+v", bb)
	}
}

func TestFixedDamageUsesMaxDamage(t *testing.T) {
	if got := (FixedDamage{}).Damage(Hit{MaxDamage: 12}); got != 12 {
		t.Fatalf("expected 12, got %v", got)
	}
}

func TestScriptedDamageEvaluatesScript(t *testing.T) {
	policy, err := NewScriptedDamage([]byte(`damage = maxDamage * 2`), nil)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if got := policy.Damage(Hit{MaxDamage: 7}); got != 14 {
		t.Fatalf("expected 14, got %v", got)
	}
	if got := policy.Damage(Hit{MaxDamage: 3}); got != 6 {
		t.Fatalf("expected inputs to be refreshed per hit, got %v", got)
	}
}

func TestScriptedDamageCanReadTarget(t *testing.T) {
	src := `
damage = maxDamage
if targetHealth < maxDamage {
	damage = targetHealth
}
`
	policy, err := NewScriptedDamage([]byte(src), nil)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if got := policy.Damage(Hit{MaxDamage: 10, TargetHealth: 4}); got != 4 {
		t.Fatalf("expected damage capped at 4, got %v", got)
	}
}

func TestScriptedDamageFallsBackOnRuntimeError(t *testing.T) {
	var reported error
	policy, err := NewScriptedDamage([]byte(`damage = maxDamage - "x"`), func(err error) { reported = err })
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if got := policy.Damage(Hit{MaxDamage: 9}); got != 9 {
		t.Fatalf("expected fallback to maxDamage, got %v", got)
	}
	if reported == nil {
		t.Fatalf("expected runtime error to be reported")
	}
}

func TestScriptedDamageFallsBackOnNonFiniteResult(t *testing.T) {
	for _, src := range []string{
		`math := import("math"); damage = math.nan()`,
		`math := import("math"); damage = math.inf(1)`,
	} {
		var reported error
		policy, err := NewScriptedDamage([]byte(src), func(err error) { reported = err })
		if err != nil {
			t.Fatalf("compile %q failed: %v", src, err)
		}
		if got := policy.Damage(Hit{MaxDamage: 6}); got != 6 {
			t.Fatalf("expected fallback to maxDamage for %q, got %v", src, got)
		}
		if reported == nil {
			t.Fatalf("expected non-finite result of %q to be reported", src)
		}
	}
}

func TestScriptedDamageRejectsInvalidSource(t *testing.T) {
	_, err := NewScriptedDamage([]byte(`damage = (`), nil)
	if err == nil {
		t.Fatalf("expected compile error")
	}
	if errors.Unwrap(err) == nil {
		t.Fatalf("expected wrapped compile error, got %v", err)
	}
}
