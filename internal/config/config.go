// Package config loads server settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"arena/server/internal/sim"
	"arena/server/logging"
)

// Config is the full server configuration.
type Config struct {
	Addr         string          `yaml:"addr"`
	SessionQueue int             `yaml:"session_queue"`
	DamageScript string          `yaml:"damage_script"`
	Seed         int64           `yaml:"seed"`
	Loop         sim.LoopConfig  `yaml:"loop"`
	World        sim.WorldConfig `yaml:"world"`
	Tuning       sim.Tuning      `yaml:"tuning"`
	Logging      logging.Config  `yaml:"logging"`
}

func Default() Config {
	return Config{
		Addr:         ":8080",
		SessionQueue: 64,
		Loop: sim.LoopConfig{
			TickRate:        20,
			CatchupMaxTicks: 3,
			CommandCapacity: 1024,
			PerActorLimit:   8,
		},
		World:   sim.DefaultWorld(),
		Tuning:  sim.DefaultTuning(),
		Logging: logging.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ARENA_* variables. Values that fail to
// parse are skipped and returned joined.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	str := func(key string, dst *string) {
		if raw, ok := lookup(key); ok && raw != "" {
			*dst = raw
		}
	}
	integer := func(key string, dst *int) {
		if raw, ok := lookup(key); ok && raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s=%q: %w", key, raw, err))
				return
			}
			*dst = value
		}
	}
	float := func(key string, dst *float64) {
		if raw, ok := lookup(key); ok && raw != "" {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s=%q: %w", key, raw, err))
				return
			}
			*dst = value
		}
	}
	duration := func(key string, dst *time.Duration) {
		if raw, ok := lookup(key); ok && raw != "" {
			value, err := time.ParseDuration(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s=%q: %w", key, raw, err))
				return
			}
			*dst = value
		}
	}

	str("ARENA_ADDR", &c.Addr)
	str("ARENA_DAMAGE_SCRIPT", &c.DamageScript)
	str("ARENA_LOG_LEVEL", &c.Logging.MinimumSeverity)
	str("ARENA_LOG_JSON", &c.Logging.JSON.FilePath)
	integer("ARENA_TICK_RATE", &c.Loop.TickRate)
	integer("ARENA_PER_ACTOR_LIMIT", &c.Loop.PerActorLimit)
	integer("ARENA_SESSION_QUEUE", &c.SessionQueue)
	duration("ARENA_ATTACK_COOLDOWN", &c.Tuning.AttackCooldown)
	duration("ARENA_REAP_AFTER", &c.Tuning.ReapAfter)
	float("ARENA_MOVE_SPEED", &c.Tuning.MoveSpeed)
	float("ARENA_MAX_DAMAGE", &c.Tuning.MaxDamage)
	float("ARENA_ATTACK_AOE", &c.Tuning.AttackAoe)

	if raw, ok := lookup("ARENA_SEED"); ok && raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.Seed = value
		} else {
			errs = append(errs, fmt.Errorf("invalid ARENA_SEED=%q: %w", raw, err))
		}
	}
	list := func(key string, dst *[]string) {
		if raw, ok := lookup(key); ok && raw != "" {
			var out []string
			for _, item := range strings.Split(raw, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			*dst = out
		}
	}
	list("ARENA_LOG_SINKS", &c.Logging.EnabledSinks)
	list("ARENA_LOG_MUTE", &c.Logging.Mute)
	if c.Logging.JSON.FilePath != "" && !c.Logging.HasSink("json") {
		c.Logging.EnabledSinks = append(c.Logging.EnabledSinks, "json")
	}
	return errors.Join(errs...)
}

// Normalized replaces unusable values with defaults.
func (c Config) Normalized() Config {
	def := Default()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.SessionQueue <= 0 {
		c.SessionQueue = def.SessionQueue
	}
	if c.Loop.TickRate <= 0 {
		c.Loop.TickRate = def.Loop.TickRate
	}
	if c.Loop.CatchupMaxTicks < 1 {
		c.Loop.CatchupMaxTicks = 1
	}
	if c.Loop.CommandCapacity <= 0 {
		c.Loop.CommandCapacity = def.Loop.CommandCapacity
	}
	if c.Loop.PerActorLimit < 0 {
		c.Loop.PerActorLimit = 0
	}
	if c.World.Bounds.Width <= 0 || c.World.Bounds.Height <= 0 {
		c.World.Bounds = def.World.Bounds
	}
	c.Tuning = normalizeTuning(c.Tuning, def.Tuning)
	if _, ok := logging.ParseSeverity(c.Logging.MinimumSeverity); !ok {
		c.Logging.MinimumSeverity = def.Logging.MinimumSeverity
	}
	if c.Logging.BufferSize <= 0 {
		c.Logging.BufferSize = def.Logging.BufferSize
	}
	return c
}

func normalizeTuning(t, def sim.Tuning) sim.Tuning {
	if t.AttackCooldown < 0 {
		t.AttackCooldown = 0
	}
	if t.ReapAfter < 0 {
		t.ReapAfter = 0
	}
	if t.MoveSpeed < 0 {
		t.MoveSpeed = def.MoveSpeed
	}
	if t.MaxHealth <= 0 {
		t.MaxHealth = def.MaxHealth
	}
	if t.MaxDamage < 0 {
		t.MaxDamage = def.MaxDamage
	}
	if t.AttackAoe <= 0 {
		t.AttackAoe = def.AttackAoe
	}
	if t.AttackRange < 0 {
		t.AttackRange = 0
	}
	if t.PlayerWidth <= 0 {
		t.PlayerWidth = def.PlayerWidth
	}
	if t.PlayerHeight <= 0 {
		t.PlayerHeight = def.PlayerHeight
	}
	if len(t.Images) == 0 {
		t.Images = def.Images
	}
	if len(t.Teams) == 0 {
		t.Teams = def.Teams
	}
	return t
}
