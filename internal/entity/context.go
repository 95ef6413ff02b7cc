package entity

import (
	"context"
	"time"

	"arena/server/internal/physics"
	"arena/server/internal/telemetry"
	"arena/server/logging"
)

// Context is the simulation context handed to every component operation. It
// exposes the world and registry owned by one simulation plus the tick-local
// clock reading.
type Context struct {
	Ctx       context.Context
	World     *physics.World
	Entities  *Registry
	Tick      uint64
	Now       time.Time
	Publisher logging.Publisher
	Logger    telemetry.Logger
}

// NewContext builds a context with no-op logging.
func NewContext(world *physics.World, entities *Registry) *Context {
	return &Context{
		Ctx:       context.Background(),
		World:     world,
		Entities:  entities,
		Publisher: logging.NopPublisher(),
		Logger:    telemetry.NopLogger(),
	}
}

// Std returns the standard context used for event publishing.
func (c *Context) Std() context.Context {
	if c == nil || c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Publish forwards a structured event when a publisher is configured.
func (c *Context) Publish(event logging.Event) {
	if c == nil || c.Publisher == nil {
		return
	}
	if event.Tick == 0 {
		event.Tick = c.Tick
	}
	c.Publisher.Publish(c.Std(), event)
}

// Printf writes an operational log line when a logger is configured.
func (c *Context) Printf(format string, args ...any) {
	if c == nil || c.Logger == nil {
		return
	}
	c.Logger.Printf(format, args...)
}
