package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jakecoffman/cp"

	"arena/server/internal/attrs"
	"arena/server/internal/combat"
	"arena/server/internal/components"
	"arena/server/internal/entity"
	"arena/server/internal/physics"
	"arena/server/internal/telemetry"
	"arena/server/logging"
	"arena/server/logging/lifecycle"
	"arena/server/logging/simulation"
)

const (
	// LeaveDisconnect marks a removal requested by the transport.
	LeaveDisconnect = "disconnect"
	// LeaveDefeated marks a dead player reaped after the grace period.
	LeaveDefeated = "defeated"

	spawnAttempts = 16
)

// Deps carries shared infrastructure for a simulation.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
	RNG       *rand.Rand
	Targeting combat.Targeting
	Damage    combat.DamagePolicy
}

// Simulation owns one world and its entities. It is not safe for concurrent
// use; a single loop goroutine drives it.
type Simulation struct {
	deps     Deps
	tuning   Tuning
	world    *physics.World
	entities *entity.Registry
	ctx      *entity.Context

	tick    uint64
	created []Created
	removed []string
}

// New builds a simulation and seeds the static walls.
func New(world WorldConfig, tuning Tuning, deps Deps) (*Simulation, error) {
	if world.Bounds.Width <= 0 || world.Bounds.Height <= 0 {
		return nil, fmt.Errorf("sim: world bounds must have positive size, got %vx%v", world.Bounds.Width, world.Bounds.Height)
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.NopLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	if deps.RNG == nil {
		deps.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Simulation{
		deps:     deps,
		tuning:   tuning,
		world:    physics.NewWorld(world.Bounds.X, world.Bounds.Y, world.Bounds.Width, world.Bounds.Height),
		entities: entity.NewRegistry(),
	}
	s.ctx = entity.NewContext(s.world, s.entities)
	s.ctx.Publisher = deps.Publisher
	s.ctx.Logger = deps.Logger
	s.ctx.Now = deps.Clock.Now()

	for i, rect := range world.Walls {
		wall := physics.NewBody(physics.TypeWall, fmt.Sprintf("wall-%d", i))
		wall.X, wall.Y, wall.Width, wall.Height = rect.X, rect.Y, rect.Width, rect.Height
		if err := s.world.Add(wall); err != nil {
			return nil, fmt.Errorf("sim: seed wall %d: %w", i, err)
		}
	}
	return s, nil
}

// World exposes the spatial world.
func (s *Simulation) World() *physics.World { return s.world }

// Entities exposes the entity registry.
func (s *Simulation) Entities() *entity.Registry { return s.entities }

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() uint64 { return s.tick }

// Tuning returns the tuning in effect.
func (s *Simulation) Tuning() Tuning { return s.tuning }

// Apply executes queued commands between ticks. Commands addressed to unknown
// or removed entities are ignored. Spawn failures are returned joined.
func (s *Simulation) Apply(cmds []Command) error {
	var errs []error
	for _, cmd := range cmds {
		switch cmd.Type {
		case CommandJoin:
			join := JoinCommand{Session: cmd.ActorID}
			if cmd.Join != nil {
				join = *cmd.Join
			}
			if _, err := s.Spawn(cmd.ActorID, join); err != nil {
				errs = append(errs, err)
			}
		case CommandLeave:
			reason := LeaveDisconnect
			if cmd.Leave != nil && cmd.Leave.Reason != "" {
				reason = cmd.Leave.Reason
			}
			s.Remove(cmd.ActorID, reason)
		case CommandMove:
			if cmd.Move == nil {
				continue
			}
			s.dispatch(cmd.ActorID, components.Intent{Kind: components.IntentMove, DX: cmd.Move.DX, DY: cmd.Move.DY})
		case CommandAttack:
			intent := components.Intent{Kind: components.IntentAttack}
			if cmd.Attack != nil && cmd.Attack.Directed {
				intent.Direction = &cp.Vector{X: cmd.Attack.DirX, Y: cmd.Attack.DirY}
			}
			s.dispatch(cmd.ActorID, intent)
		case CommandRetune:
			if cmd.Retune != nil {
				s.Retune(*cmd.Retune)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Simulation) dispatch(id string, intent components.Intent) bool {
	e, ok := s.entities.Get(id)
	if !ok {
		return false
	}
	io, ok := entity.Lookup[*components.IO](e, entity.KeyIO)
	if !ok {
		return false
	}
	return io.Dispatch(intent)
}

// Step runs one tick at now, then reaps players that have been dead longer
// than the reap delay.
func (s *Simulation) Step(now time.Time, elapsed time.Duration) {
	s.tick++
	s.ctx.Tick = s.tick
	s.ctx.Now = now
	s.entities.Update(s.ctx, float64(elapsed)/float64(time.Millisecond))
	s.reap(now)
}

func (s *Simulation) reap(now time.Time) {
	var dead []string
	s.entities.Each(func(e *entity.Entity) bool {
		if e.Alive() {
			return true
		}
		diedAt, ok := e.Attrs.Float(entity.AttrDiedAt)
		if !ok {
			return true
		}
		if now.Sub(time.UnixMilli(int64(diedAt))) >= s.tuning.ReapAfter {
			dead = append(dead, e.ID())
		}
		return true
	})
	for _, id := range dead {
		s.Remove(id, LeaveDefeated)
	}
}

// Spawn builds a player with io, player, physics, attack and actor
// components. On failure nothing is registered.
func (s *Simulation) Spawn(id string, join JoinCommand) (*entity.Entity, error) {
	if _, exists := s.entities.Get(id); exists {
		err := &entity.DuplicateEntityError{ID: id}
		s.spawnFailed(id, err)
		return nil, err
	}
	team := join.Team
	if team == "" {
		team = s.balancedTeam()
	}
	x, y := s.spawnPoint()
	values := attrs.Values{
		entity.AttrX:                x,
		entity.AttrY:                y,
		entity.AttrWidth:            s.tuning.PlayerWidth,
		entity.AttrHeight:           s.tuning.PlayerHeight,
		entity.AttrAlive:            true,
		entity.AttrHealth:           s.tuning.MaxHealth,
		entity.AttrMaxHealth:        s.tuning.MaxHealth,
		components.AttrAttackAoe:    s.tuning.AttackAoe,
		components.AttrMaxDamage:    s.tuning.MaxDamage,
		components.AttrLastAttackAt: 0,
	}
	if team != "" {
		values[entity.AttrTeam] = team
	}
	if s.tuning.AttackRange > 0 {
		values[components.AttrAttackRange] = s.tuning.AttackRange
	}

	e, err := entity.New(id, values)
	if err != nil {
		s.spawnFailed(id, err)
		return nil, err
	}
	parts := []entity.Component{
		components.NewIO(join.Session),
		components.NewPlayer(s.tuning.MoveSpeed),
		components.NewPhysics(physics.TypePlayer),
		components.NewAttack(components.AttackConfig{
			Cooldown:  s.tuning.AttackCooldown,
			Targeting: s.deps.Targeting,
			Damage:    s.deps.Damage,
		}),
		components.NewActor(s.image()),
	}
	for _, c := range parts {
		if err := e.Components.Add(s.ctx, c); err != nil {
			e.Discard(s.ctx)
			s.world.RemoveOwner(id)
			err = fmt.Errorf("spawn %s: %w", id, err)
			s.spawnFailed(id, err)
			return nil, err
		}
	}
	if err := s.entities.Add(id, e); err != nil {
		e.Discard(s.ctx)
		s.world.RemoveOwner(id)
		s.spawnFailed(id, err)
		return nil, err
	}

	s.created = append(s.created, Created{Session: join.Session, State: fullState(e)})
	lifecycle.PlayerJoined(s.ctx.Std(), s.deps.Publisher, s.tick, logging.PlayerRef(id), lifecycle.PlayerJoinedPayload{
		SpawnX: x,
		SpawnY: y,
		Team:   team,
	})
	return e, nil
}

func (s *Simulation) spawnFailed(id string, err error) {
	s.deps.Logger.Printf("[sim] spawn %s failed: %v", id, err)
	lifecycle.SpawnFailed(s.ctx.Std(), s.deps.Publisher, s.tick, logging.PlayerRef(id), lifecycle.SpawnFailedPayload{Error: err.Error()})
}

// Remove tears down an entity. Removing an unknown id is a no-op.
func (s *Simulation) Remove(id, reason string) bool {
	if !s.entities.Remove(s.ctx, id) {
		return false
	}
	s.world.RemoveOwner(id)
	s.removed = append(s.removed, id)
	lifecycle.PlayerLeft(s.ctx.Std(), s.deps.Publisher, s.tick, logging.PlayerRef(id), lifecycle.PlayerLeftPayload{Reason: reason})
	return true
}

// Retune swaps the tuning and pushes the live parts into existing players.
func (s *Simulation) Retune(t Tuning) {
	s.tuning = t
	s.entities.Each(func(e *entity.Entity) bool {
		if attack, ok := entity.Lookup[*components.Attack](e, entity.KeyAttack); ok {
			attack.SetCooldown(t.AttackCooldown)
		}
		if player, ok := entity.Lookup[*components.Player](e, entity.KeyPlayer); ok {
			player.SetSpeed(t.MoveSpeed)
		}
		return true
	})
	simulation.Retuned(s.ctx.Std(), s.deps.Publisher, s.tick, simulation.RetunedPayload{
		AttackCooldownMillis: t.AttackCooldown.Milliseconds(),
		ReapAfterMillis:      t.ReapAfter.Milliseconds(),
		MoveSpeed:            t.MoveSpeed,
	})
}

// Frame collects what happened since the previous frame. Incremental changes
// are flushed from every actor; the full state is built only when asked.
func (s *Simulation) Frame(now time.Time, full bool) Frame {
	frame := Frame{
		Tick:    s.tick,
		Now:     now,
		Created: s.created,
		Removed: s.removed,
	}
	s.created = nil
	s.removed = nil
	if full {
		frame.Full = make([]EntityState, 0, s.entities.Len())
	}

	s.entities.Each(func(e *entity.Entity) bool {
		actor, ok := entity.Lookup[*components.Actor](e, entity.KeyActor)
		if !ok {
			return true
		}
		if changed := actor.Changes(); len(changed) > 0 {
			frame.Changes = append(frame.Changes, incrementalState(e, changed))
		}
		if full {
			frame.Full = append(frame.Full, fullState(e))
		}
		return true
	})
	return frame
}

// State returns the full state of every synced entity.
func (s *Simulation) State() []EntityState {
	var states []EntityState
	s.entities.Each(func(e *entity.Entity) bool {
		if e.Components.Has(entity.KeyActor) {
			states = append(states, fullState(e))
		}
		return true
	})
	return states
}

func (s *Simulation) balancedTeam() string {
	if len(s.tuning.Teams) == 0 {
		return ""
	}
	counts := make(map[string]int, len(s.tuning.Teams))
	s.entities.Each(func(e *entity.Entity) bool {
		if team, ok := e.Attrs.String(entity.AttrTeam); ok {
			counts[team]++
		}
		return true
	})
	best := s.tuning.Teams[0]
	for _, team := range s.tuning.Teams[1:] {
		if counts[team] < counts[best] {
			best = team
		}
	}
	return best
}

func (s *Simulation) image() string {
	if len(s.tuning.Images) == 0 {
		return "player"
	}
	return s.tuning.Images[s.deps.RNG.Intn(len(s.tuning.Images))]
}

// spawnPoint picks a random free spot inside the world, falling back to the
// last candidate when every attempt lands on something.
func (s *Simulation) spawnPoint() (float64, float64) {
	w := s.world
	width, height := s.tuning.PlayerWidth, s.tuning.PlayerHeight
	spanX := w.Width - width
	spanY := w.Height - height
	if spanX < 0 {
		spanX = 0
	}
	if spanY < 0 {
		spanY = 0
	}
	probe := physics.NewBody(physics.TypePlayer, "")
	probe.Width, probe.Height = width, height
	for i := 0; i < spawnAttempts; i++ {
		probe.X = w.X + s.deps.RNG.Float64()*spanX
		probe.Y = w.Y + s.deps.RNG.Float64()*spanY
		if w.Overlap(probe, "", func(_, _ *physics.Body) {}) == 0 {
			break
		}
	}
	return probe.X, probe.Y
}
