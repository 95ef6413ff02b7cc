package network

import (
	"context"

	"arena/server/logging"
)

const (
	// EventSessionOpened is emitted when a websocket session attaches to a player.
	EventSessionOpened logging.EventType = "network.session_opened"
	// EventSessionClosed is emitted when a session ends.
	EventSessionClosed logging.EventType = "network.session_closed"
	// EventFrameDropped is emitted when a session's outbound queue is full.
	EventFrameDropped logging.EventType = "network.frame_dropped"
)

// SessionPayload captures session metadata.
type SessionPayload struct {
	Codec  string `json:"codec"`
	Reason string `json:"reason,omitempty"`
}

// FrameDroppedPayload captures the dropped frame.
type FrameDroppedPayload struct {
	Event string `json:"event"`
	Queue int    `json:"queue"`
}

// SessionOpened publishes a session attach event.
func SessionOpened(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionOpened,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// SessionClosed publishes a session detach event.
func SessionClosed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionClosed,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// FrameDropped publishes a debug event when a frame is discarded.
func FrameDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FrameDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFrameDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
