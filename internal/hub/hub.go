package hub

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"arena/server/internal/net/proto"
	"arena/server/internal/sim"
	"arena/server/internal/telemetry"
	"arena/server/logging"
	"arena/server/logging/network"
)

const (
	MetricFramesSent    = "hub_frames_sent_total"
	MetricFramesDropped = "hub_frames_dropped_total"
	MetricSessions      = "hub_sessions"

	defaultQueueSize = 64
)

// Engine is the part of the simulation loop the hub drives.
type Engine interface {
	Enqueue(cmd sim.Command) (bool, string)
	RequestFull()
}

// Config tunes the hub.
type Config struct {
	QueueSize int
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Hub tracks sessions, turns their messages into simulation commands and
// fans every tick out to them.
type Hub struct {
	engine    Engine
	queueSize int
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   atomic.Uint64
	tick     atomic.Uint64
}

// New constructs a hub bound to the engine.
func New(engine Engine, cfg Config) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NopLogger()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	return &Hub{
		engine:    engine,
		queueSize: cfg.QueueSize,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		sessions:  make(map[string]*Session),
	}
}

// Join opens a session and spawns its player. The session receives
// player.create once the simulation has applied the join.
func (h *Hub) Join(codec proto.Codec) (*Session, error) {
	if codec == nil {
		codec = proto.JSONCodec{}
	}
	id := fmt.Sprintf("player-%d", h.nextID.Add(1))
	session := newSession(id, codec, h.queueSize)

	h.mu.Lock()
	h.sessions[id] = session
	count := len(h.sessions)
	h.mu.Unlock()

	ok, reason := h.engine.Enqueue(sim.Command{
		ActorID:    id,
		Type:       sim.CommandJoin,
		OriginTick: h.tick.Load(),
		IssuedAt:   time.Now(),
		Join:       &sim.JoinCommand{Session: id},
	})
	if !ok {
		h.drop(session)
		return nil, fmt.Errorf("hub: join %s rejected: %s", id, reason)
	}
	h.storeSessions(count)
	network.SessionOpened(context.Background(), h.publisher, logging.PlayerRef(id), network.SessionPayload{Codec: codec.Name()})
	return session, nil
}

// Leave closes the session and removes its player. Leaving twice is a no-op.
func (h *Hub) Leave(session *Session, reason string) {
	if session == nil || !h.drop(session) {
		return
	}
	if ok, why := h.engine.Enqueue(sim.Command{
		ActorID:    session.id,
		Type:       sim.CommandLeave,
		OriginTick: h.tick.Load(),
		IssuedAt:   time.Now(),
		Leave:      &sim.LeaveCommand{Reason: sim.LeaveDisconnect},
	}); !ok {
		h.logger.Printf("[hub] leave for %s rejected: %s", session.id, why)
	}
	network.SessionClosed(context.Background(), h.publisher, logging.PlayerRef(session.id), network.SessionPayload{
		Codec:  session.codec.Name(),
		Reason: reason,
	})
}

func (h *Hub) drop(session *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[session.id] != session {
		return false
	}
	delete(h.sessions, session.id)
	session.close()
	h.storeSessions(len(h.sessions))
	return true
}

// HandleMessage processes one decoded client message.
func (h *Hub) HandleMessage(session *Session, msg proto.ClientMessage) {
	if msg.Type == proto.EventClientReady {
		h.mu.Lock()
		if !session.ready {
			session.ready = true
			session.needFull = true
		}
		h.mu.Unlock()
		h.engine.RequestFull()
		return
	}
	cmd, ok := proto.ClientCommand(msg)
	if !ok {
		h.logger.Printf("[hub] unknown message type %q from %s", msg.Type, session.id)
		return
	}
	cmd.ActorID = session.id
	cmd.OriginTick = h.tick.Load()
	cmd.IssuedAt = time.Now()
	h.engine.Enqueue(cmd)
}

// Broadcast fans a completed tick out to the sessions. It runs on the loop
// goroutine and never blocks on a slow session.
func (h *Hub) Broadcast(result sim.LoopStepResult) {
	frame := result.Frame
	h.tick.Store(frame.Tick)
	cache := newFrameCache()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, created := range frame.Created {
		session, ok := h.sessions[created.Session]
		if !ok {
			continue
		}
		h.sendLocked(session, cache, "", proto.EventPlayerCreate, proto.EntityFromState(created.State), frame.Tick)
	}

	var full, changes []proto.Entity
	if frame.Full != nil {
		full = proto.EntitiesFromStates(frame.Full)
	}
	if len(frame.Changes) > 0 {
		changes = proto.EntitiesFromStates(frame.Changes)
	}

	for _, session := range h.sessions {
		if !session.ready {
			continue
		}
		switch {
		case session.needFull && full != nil:
			session.needFull = false
			h.sendLocked(session, cache, "full", proto.EventClientSync, full, frame.Tick)
		case !session.needFull && changes != nil:
			h.sendLocked(session, cache, "changes", proto.EventClientSync, changes, frame.Tick)
		}
		for _, id := range frame.Removed {
			h.sendLocked(session, cache, "leave:"+id, proto.EventPlayerLeave, proto.LeavePayload{ID: id}, frame.Tick)
		}
	}
}

func (h *Hub) sendLocked(session *Session, cache *frameCache, key, event string, payload any, tick uint64) {
	data, err := cache.encode(session.codec, key, event, payload)
	if err != nil {
		h.logger.Printf("[hub] encode %s for %s: %v", event, session.id, err)
		return
	}
	if session.offer(Frame{Binary: session.codec.Binary(), Data: data}) {
		if h.metrics != nil {
			h.metrics.Add(MetricFramesSent, 1)
		}
		return
	}
	// A dropped frame leaves the client behind; resync it with full state.
	if session.ready {
		session.needFull = true
		h.engine.RequestFull()
	}
	if h.metrics != nil {
		h.metrics.Add(MetricFramesDropped, 1)
	}
	network.FrameDropped(context.Background(), h.publisher, tick, logging.PlayerRef(session.id), network.FrameDroppedPayload{
		Event: event,
		Queue: cap(session.out),
	})
}

func (h *Hub) storeSessions(count int) {
	if h.metrics != nil {
		h.metrics.Store(MetricSessions, uint64(count))
	}
}

// SessionInfo is a diagnostics view of one session.
type SessionInfo struct {
	ID     string `json:"id"`
	Codec  string `json:"codec"`
	Ready  bool   `json:"ready"`
	Queued int    `json:"queued"`
}

// Sessions lists the open sessions ordered by id.
func (h *Hub) Sessions() []SessionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	infos := make([]SessionInfo, 0, len(h.sessions))
	for _, session := range h.sessions {
		infos = append(infos, SessionInfo{
			ID:     session.id,
			Codec:  session.codec.Name(),
			Ready:  session.ready,
			Queued: len(session.out),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Tick returns the last broadcast tick.
func (h *Hub) Tick() uint64 {
	return h.tick.Load()
}

// frameCache encodes each shared payload once per codec within a broadcast.
// An empty key disables caching.
type frameCache struct {
	entries map[string][]byte
}

func newFrameCache() *frameCache {
	return &frameCache{entries: make(map[string][]byte)}
}

func (c *frameCache) encode(codec proto.Codec, key, event string, payload any) ([]byte, error) {
	if key == "" {
		return codec.Encode(event, payload)
	}
	key = codec.Name() + "|" + key
	if data, ok := c.entries[key]; ok {
		return data, nil
	}
	data, err := codec.Encode(event, payload)
	if err != nil {
		return nil, err
	}
	c.entries[key] = data
	return data, nil
}
