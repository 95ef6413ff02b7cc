package sim

import "time"

// Tuning holds gameplay parameters that may change while the server runs.
// Changes arrive as retune commands so they always land between ticks.
type Tuning struct {
	AttackCooldown time.Duration `json:"attackCooldown" yaml:"attack_cooldown"`
	ReapAfter      time.Duration `json:"reapAfter" yaml:"reap_after"`
	MoveSpeed      float64       `json:"moveSpeed" yaml:"move_speed"`
	MaxHealth      float64       `json:"maxHealth" yaml:"max_health"`
	MaxDamage      float64       `json:"maxDamage" yaml:"max_damage"`
	AttackAoe      float64       `json:"attackAoe" yaml:"attack_aoe"`
	// AttackRange is the distance from the player's centre to the attack
	// centre; zero means half the attack area.
	AttackRange  float64  `json:"attackRange,omitempty" yaml:"attack_range"`
	PlayerWidth  float64  `json:"playerWidth" yaml:"player_width"`
	PlayerHeight float64  `json:"playerHeight" yaml:"player_height"`
	Images       []string `json:"images,omitempty" yaml:"images"`
	Teams        []string `json:"teams,omitempty" yaml:"teams"`
}

// DefaultTuning returns the tuning used when no configuration is supplied.
func DefaultTuning() Tuning {
	return Tuning{
		AttackCooldown: 500 * time.Millisecond,
		ReapAfter:      3 * time.Second,
		MoveSpeed:      120,
		MaxHealth:      100,
		MaxDamage:      10,
		AttackAoe:      32,
		PlayerWidth:    32,
		PlayerHeight:   32,
		Images:         []string{"player-male", "player-female"},
		Teams:          []string{"red", "blue"},
	}
}

// Rect is an axis-aligned rectangle in world units.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// WorldConfig describes the arena bounds and its static walls.
type WorldConfig struct {
	Bounds Rect   `yaml:"bounds"`
	Walls  []Rect `yaml:"walls"`
}

// DefaultWorld returns an empty 800x600 arena.
func DefaultWorld() WorldConfig {
	return WorldConfig{Bounds: Rect{Width: 800, Height: 600}}
}
