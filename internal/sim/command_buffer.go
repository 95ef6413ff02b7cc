package sim

import (
	"sync"

	"arena/server/internal/telemetry"
)

const (
	MetricCommandOccupancy = "sim_command_buffer_occupancy"
	MetricCommandOverflow  = "sim_command_buffer_overflow_total"
	MetricCommandCoalesced = "sim_command_coalesced_total"
)

// CommandBuffer is a bounded FIFO of commands waiting for the next tick.
// A move from an actor that already has a move waiting replaces it in place,
// so a client streaming input holds at most one slot per tick.
type CommandBuffer struct {
	mu      sync.Mutex
	ring    []Command
	start   int
	size    int
	moves   map[string]int
	metrics telemetry.Metrics
}

func NewCommandBuffer(capacity int, metrics telemetry.Metrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		ring:    make([]Command, capacity),
		moves:   make(map[string]int),
		metrics: metrics,
	}
}

// Push queues a command and reports false when there is no room.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if cmd.Type == CommandMove && cmd.ActorID != "" {
		if slot, ok := b.moves[cmd.ActorID]; ok {
			b.ring[slot] = cmd
			b.count(MetricCommandCoalesced)
			return true
		}
	}
	if b.size == len(b.ring) {
		b.count(MetricCommandOverflow)
		return false
	}
	slot := (b.start + b.size) % len(b.ring)
	b.ring[slot] = cmd
	b.size++
	if cmd.Type == CommandMove && cmd.ActorID != "" {
		b.moves[cmd.ActorID] = slot
	}
	b.occupancy()
	return true
}

// Drain hands back every queued command in arrival order and empties the
// buffer.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return nil
	}
	out := make([]Command, 0, b.size)
	for i := 0; i < b.size; i++ {
		slot := (b.start + i) % len(b.ring)
		out = append(out, b.ring[slot])
		b.ring[slot] = Command{}
	}
	b.start = (b.start + b.size) % len(b.ring)
	b.size = 0
	clear(b.moves)
	b.occupancy()
	return out
}

func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *CommandBuffer) count(key string) {
	if b.metrics != nil {
		b.metrics.Add(key, 1)
	}
}

func (b *CommandBuffer) occupancy() {
	if b.metrics != nil {
		b.metrics.Store(MetricCommandOccupancy, uint64(b.size))
	}
}
