package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"arena/server/internal/telemetry"
	"arena/server/logging"
	"arena/server/logging/simulation"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"

	MetricTicks          = "sim_ticks_total"
	MetricTickOverruns   = "sim_tick_overruns_total"
	MetricCommandsDrops  = "sim_command_drops_total"
	MetricEntities       = "sim_entities"
	MetricLastTickMicros = "sim_last_tick_micros"
)

// LoopConfig tunes the command buffer and tick loop.
type LoopConfig struct {
	TickRate        int `yaml:"tick_rate"`
	CatchupMaxTicks int `yaml:"catchup_max_ticks"`
	CommandCapacity int `yaml:"command_capacity"`
	PerActorLimit   int `yaml:"per_actor_limit"`
}

// LoopHooks are invoked on the loop goroutine.
type LoopHooks struct {
	// AfterStep receives every completed tick.
	AfterStep func(LoopStepResult)
	// OnCommandDrop observes rejected commands.
	OnCommandDrop func(reason string, cmd Command)
}

// LoopTickContext is the tick-local clock reading.
type LoopTickContext struct {
	Now   time.Time
	Delta time.Duration
}

// LoopStepResult summarizes one tick.
type LoopStepResult struct {
	Frame        Frame
	Commands     []Command
	Delta        time.Duration
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
}

// Loop coordinates command ingestion and the fixed-timestep runner.
type Loop struct {
	sim       *Simulation
	buffer    *CommandBuffer
	hooks     LoopHooks
	config    LoopConfig
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	clock     logging.Clock

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
	// leaves holds leave commands that found the ring full. A leave is never
	// dropped: its session is already gone and nothing would retry it.
	leaves []Command

	fullRequested atomic.Bool
	overrunStreak uint64
}

// NewLoop wraps the simulation with a ring-buffer queue and ticker.
func NewLoop(sim *Simulation, cfg LoopConfig, hooks LoopHooks) *Loop {
	if sim == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 20
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = 1024
	}
	deps := sim.deps
	return &Loop{
		sim:           sim,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		publisher:     deps.Publisher,
		clock:         deps.Clock,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Simulation exposes the wrapped simulation. Only the loop goroutine may
// touch it while Run is active.
func (l *Loop) Simulation() *Simulation {
	if l == nil {
		return nil
	}
	return l.sim
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	l.queueMu.Lock()
	overflow := len(l.leaves)
	l.queueMu.Unlock()
	return l.buffer.Len() + overflow
}

// RequestFull asks the next tick to include the full world state.
func (l *Loop) RequestFull() {
	if l == nil {
		return
	}
	l.fullRequested.Store(true)
}

// Enqueue stages a command, enforcing per-actor throttling and capacity
// limits. Leaves bypass both. It is safe to call from any goroutine.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" && cmd.Type != CommandLeave {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" && !l.buffer.Push(cmd) {
		if cmd.Type == CommandLeave {
			l.leaves = append(l.leaves, cmd)
		} else {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single tick using the staged commands.
func (l *Loop) Advance(tc LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	if err := l.sim.Apply(commands); err != nil {
		l.logger.Printf("[sim] apply: %v", err)
	}
	l.sim.Step(tc.Now, tc.Delta)
	full := l.fullRequested.Swap(false)
	result := LoopStepResult{
		Frame:    l.sim.Frame(tc.Now, full),
		Commands: commands,
		Delta:    tc.Delta,
	}
	if l.metrics != nil {
		l.metrics.Add(MetricTicks, 1)
		l.metrics.Store(MetricEntities, uint64(l.sim.Entities().Len()))
	}
	return result
}

// Run drives the fixed-timestep loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l == nil {
		return
	}
	budget := time.Second / time.Duration(l.config.TickRate)
	maxDelta := budget
	if l.config.CatchupMaxTicks > 1 {
		maxDelta = budget * time.Duration(l.config.CatchupMaxTicks)
	}
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	last := l.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := l.clock.Now()
			delta := now.Sub(last)
			clamped := false
			if delta <= 0 {
				delta = budget
			} else if delta > maxDelta {
				delta = maxDelta
				clamped = true
			}
			last = now

			start := l.clock.Now()
			result := l.Advance(LoopTickContext{Now: now, Delta: delta})
			result.Duration = l.clock.Now().Sub(start)
			result.Budget = budget
			result.ClampedDelta = clamped
			l.observeDuration(ctx, result)

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) observeDuration(ctx context.Context, result LoopStepResult) {
	if l.metrics != nil {
		l.metrics.Store(MetricLastTickMicros, uint64(result.Duration.Microseconds()))
	}
	if result.Duration <= result.Budget {
		l.overrunStreak = 0
		return
	}
	l.overrunStreak++
	if l.metrics != nil {
		l.metrics.Add(MetricTickOverruns, 1)
	}
	simulation.TickBudgetOverrun(ctx, l.publisher, result.Frame.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         l.overrunStreak,
	})
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.leaves) > 0 {
		commands = append(commands, l.leaves...)
		l.leaves = nil
	}
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.metrics != nil {
		l.metrics.Add(MetricCommandsDrops, 1)
	}
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	// Log on powers of two.
	if count > 0 && count&(count-1) == 0 {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			count,
			l.config.PerActorLimit,
		)
		simulation.CommandDropped(context.Background(), l.publisher, cmd.OriginTick, logging.PlayerRef(cmd.ActorID), simulation.CommandDroppedPayload{
			Command: string(cmd.Type),
			Reason:  reason,
		})
	}
}
