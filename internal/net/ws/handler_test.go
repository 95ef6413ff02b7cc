package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"arena/server/internal/hub"
	"arena/server/internal/net/proto"
	"arena/server/internal/replica"
	"arena/server/internal/sim"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	return startServerWithTuning(t, sim.DefaultTuning())
}

func startServerWithTuning(t *testing.T, tuning sim.Tuning) *httptest.Server {
	t.Helper()
	simulation, err := sim.New(sim.DefaultWorld(), tuning, sim.Deps{})
	if err != nil {
		t.Fatalf("failed to build simulation: %v", err)
	}
	var h *hub.Hub
	loop := sim.NewLoop(simulation, sim.LoopConfig{TickRate: 100}, sim.LoopHooks{
		AfterStep: func(result sim.LoopStepResult) { h.Broadcast(result) },
	})
	h = hub.New(loop, hub.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()

	srv := httptest.NewServer(http.HandlerFunc(NewHandler(h, HandlerConfig{}).Handle))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// await reads until a message of the given type satisfies match.
func await(t *testing.T, conn *websocket.Conn, kind string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", kind, err)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("invalid frame %s: %v", data, err)
		}
		if env.Type == kind && (match == nil || match(env.Payload)) {
			return env.Payload
		}
	}
}

func entities(t *testing.T, payload json.RawMessage) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("invalid sync payload %s: %v", payload, err)
	}
	return out
}

func find(list []map[string]any, id string) map[string]any {
	for _, e := range list {
		if e["id"] == id {
			return e
		}
	}
	return nil
}

func TestSessionReceivesCreateThenFullThenIncrementalSync(t *testing.T) {
	srv := startServer(t)
	conn := dial(t, srv, "")

	var created map[string]any
	if err := json.Unmarshal(await(t, conn, proto.EventPlayerCreate, nil), &created); err != nil {
		t.Fatalf("invalid player.create payload: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" || created["health"] == nil || created["team"] == nil {
		t.Fatalf("expected full player state, got %v", created)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	send(t, conn, map[string]any{"type": proto.EventClientReady})
	full := entities(t, await(t, conn, proto.EventClientSync, nil))
	self := find(full, id)
	if self == nil || self["maxDamage"] == nil {
		t.Fatalf("expected full sync with own entity, got %v", full)
	}
	startX, _ := self["x"].(float64)
	dx := 1
	if startX > 400 {
		dx = -1
	}

	send(t, conn, map[string]any{"type": proto.EventPlayerMove, "payload": map[string]any{"dx": dx, "dy": 0}})
	await(t, conn, proto.EventClientSync, func(payload json.RawMessage) bool {
		e := find(entities(t, payload), id)
		if e == nil {
			return false
		}
		x, _ := e["x"].(float64)
		_, hasImage := e["image"]
		return x != startX && hasImage
	})
}

func TestDisconnectBroadcastsLeave(t *testing.T) {
	srv := startServer(t)
	first := dial(t, srv, "")
	await(t, first, proto.EventPlayerCreate, nil)
	send(t, first, map[string]any{"type": proto.EventClientReady})
	await(t, first, proto.EventClientSync, nil)

	second := dial(t, srv, "")
	var created map[string]any
	_ = json.Unmarshal(await(t, second, proto.EventPlayerCreate, nil), &created)
	secondID, _ := created["id"].(string)

	second.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	second.Close()

	payload := await(t, first, proto.EventPlayerLeave, nil)
	var leave proto.LeavePayload
	if err := json.Unmarshal(payload, &leave); err != nil || leave.ID != secondID {
		t.Fatalf("expected leave for %s, got %s", secondID, payload)
	}
}

func TestMsgpackCodecUsesBinaryFrames(t *testing.T) {
	srv := startServer(t)
	conn := dial(t, srv, "?codec=msgpack")
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected binary frame, got %d", kind)
	}
	var env map[string]any
	if err := msgpack.Unmarshal(data, &env); err != nil {
		t.Fatalf("invalid msgpack frame: %v", err)
	}
	if env["type"] != proto.EventPlayerCreate {
		t.Fatalf("expected player.create, got %v", env["type"])
	}

	ready, _ := msgpack.Marshal(map[string]any{"type": proto.EventClientReady})
	if err := conn.WriteMessage(websocket.BinaryMessage, ready); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for sync: %v", err)
		}
		env = nil
		if err := msgpack.Unmarshal(data, &env); err != nil {
			t.Fatalf("invalid msgpack frame: %v", err)
		}
		if env["type"] == proto.EventClientSync {
			return
		}
	}
}

func TestUnknownCodecIsRejected(t *testing.T) {
	srv := startServer(t)
	resp, err := http.Get(srv.URL + "/ws?codec=xml")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// mirror feeds frames into a replica until done reports true.
func mirror(t *testing.T, conn *websocket.Conn, r *replica.Replica, done func() bool) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for !done() {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("mirror read: %v", err)
		}
		if err := r.Apply(kind == websocket.BinaryMessage, data); err != nil {
			t.Fatalf("mirror apply: %v", err)
		}
	}
}

func TestAttackDamagesEnemyEndToEnd(t *testing.T) {
	tuning := sim.DefaultTuning()
	// An area covering the whole arena makes the hit independent of spawn
	// positions.
	tuning.AttackAoe = 4000
	srv := startServerWithTuning(t, tuning)

	attacker := dial(t, srv, "")
	victim := dial(t, srv, "?codec=msgpack")

	view := replica.New()
	mirror(t, attacker, view, func() bool { return view.Self() != "" })
	self := view.Self()
	send(t, attacker, map[string]any{"type": proto.EventClientReady})
	mirror(t, attacker, view, func() bool { return view.Len() == 2 })

	var enemy string
	for _, id := range view.IDs() {
		if id != self {
			enemy = id
		}
	}
	before, _ := view.Get(enemy)
	mine, _ := view.Get(self)
	if before["team"] == mine["team"] {
		t.Fatalf("expected balanced teams, got %v and %v", mine["team"], before["team"])
	}

	send(t, attacker, map[string]any{"type": proto.EventEntityAttack})
	mirror(t, attacker, view, func() bool {
		after, _ := view.Get(enemy)
		return after["health"] != before["health"]
	})
	after, _ := view.Get(enemy)
	if after["health"] != before["health"].(float64)-tuning.MaxDamage {
		t.Fatalf("expected %v damage, health went %v -> %v", tuning.MaxDamage, before["health"], after["health"])
	}

	victimView := replica.New()
	mirror(t, victim, victimView, func() bool { return victimView.Self() == enemy })
}
