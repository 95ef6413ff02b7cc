package simulation

import (
	"context"

	"arena/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a tick takes longer than its budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventCommandDropped is emitted when a queued intent is rejected.
	EventCommandDropped logging.EventType = "simulation.command_dropped"
	// EventRetuned is emitted when new tuning is applied between ticks.
	EventRetuned logging.EventType = "simulation.retuned"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// CommandDroppedPayload captures a rejected intent.
type CommandDroppedPayload struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

// RetunedPayload captures the tuning now in effect.
type RetunedPayload struct {
	AttackCooldownMillis int64   `json:"attackCooldownMillis"`
	ReapAfterMillis      int64   `json:"reapAfterMillis"`
	MoveSpeed            float64 `json:"moveSpeed"`
}

// TickBudgetOverrun publishes a warning when a tick exceeds its budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// CommandDropped publishes a warning for a rejected intent.
func CommandDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// Retuned publishes the tuning applied between ticks.
func Retuned(ctx context.Context, pub logging.Publisher, tick uint64, payload RetunedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRetuned,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
