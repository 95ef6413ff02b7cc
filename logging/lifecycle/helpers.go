package lifecycle

import (
	"context"

	"arena/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player entity is spawned.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player entity is removed.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventSpawnFailed is emitted when an archetype fails to initialise.
	EventSpawnFailed logging.EventType = "lifecycle.spawn_failed"
)

// PlayerJoinedPayload captures spawn metadata for a new player.
type PlayerJoinedPayload struct {
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
	Team   string  `json:"team,omitempty"`
}

// PlayerLeftPayload captures why the entity was removed.
type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

// SpawnFailedPayload captures the configuration error.
type SpawnFailedPayload struct {
	Error string `json:"error"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// PlayerLeft publishes a player removal event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerLeftPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerLeft,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// SpawnFailed publishes an error when an entity could not be initialised.
func SpawnFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SpawnFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSpawnFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
