package combat

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Hit carries the inputs of one damage calculation.
type Hit struct {
	Tick         uint64
	AttackerID   string
	TargetID     string
	MaxDamage    float64
	TargetHealth float64
}

// DamagePolicy computes the damage one hit deals.
type DamagePolicy interface {
	Damage(hit Hit) float64
}

// FixedDamage always deals the attacker's maxDamage.
type FixedDamage struct{}

func (FixedDamage) Damage(hit Hit) float64 {
	return hit.MaxDamage
}

// ScriptedDamage evaluates a tengo script per hit. The script sees maxDamage,
// targetHealth, attacker, target and tick, and must assign damage. Any script
// failure falls back to maxDamage.
type ScriptedDamage struct {
	mu       sync.Mutex
	compiled *tengo.Compiled
	onError  func(error)
}

var scriptInputs = map[string]any{
	"maxDamage":    0.0,
	"targetHealth": 0.0,
	"attacker":     "",
	"target":       "",
	"tick":         0,
	"damage":       0.0,
}

// NewScriptedDamage compiles the script source.
func NewScriptedDamage(src []byte, onError func(error)) (*ScriptedDamage, error) {
	script := tengo.NewScript(src)
	for name, value := range scriptInputs {
		if err := script.Add(name, value); err != nil {
			return nil, fmt.Errorf("damage script: declare %s: %w", name, err)
		}
	}
	script.SetImports(stdlib.GetModuleMap("math", "rand"))
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("damage script: compile: %w", err)
	}
	return &ScriptedDamage{compiled: compiled, onError: onError}, nil
}

// LoadScriptedDamage reads and compiles a script file.
func LoadScriptedDamage(path string, onError func(error)) (*ScriptedDamage, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("damage script: read %s: %w", path, err)
	}
	return NewScriptedDamage(src, onError)
}

func (s *ScriptedDamage) Damage(hit Hit) float64 {
	amount, err := s.evaluate(hit)
	if err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return hit.MaxDamage
	}
	return amount
}

func (s *ScriptedDamage) evaluate(hit Hit) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inputs := map[string]any{
		"maxDamage":    hit.MaxDamage,
		"targetHealth": hit.TargetHealth,
		"attacker":     hit.AttackerID,
		"target":       hit.TargetID,
		"tick":         int64(hit.Tick),
		"damage":       hit.MaxDamage,
	}
	for name, value := range inputs {
		if err := s.compiled.Set(name, value); err != nil {
			return 0, fmt.Errorf("damage script: set %s: %w", name, err)
		}
	}
	if err := s.compiled.Run(); err != nil {
		return 0, fmt.Errorf("damage script: run: %w", err)
	}
	result := s.compiled.Get("damage")
	if result == nil || result.IsUndefined() {
		return 0, fmt.Errorf("damage script: damage is undefined")
	}
	amount := result.Float()
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("damage script: damage is not finite: %v", amount)
	}
	if amount < 0 {
		amount = 0
	}
	return amount, nil
}
