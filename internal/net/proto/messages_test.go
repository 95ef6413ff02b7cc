package proto

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"arena/server/internal/attrs"
	"arena/server/internal/sim"
)

func TestClientCommand(t *testing.T) {
	t.Run("undirected attack", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: EventEntityAttack})
		if !ok || cmd.Type != sim.CommandAttack || cmd.Attack == nil {
			t.Fatalf("expected attack command, got %+v", cmd)
		}
		if cmd.Attack.Directed {
			t.Fatalf("expected undirected attack")
		}
	})

	t.Run("directed attack", func(t *testing.T) {
		x := -1.0
		cmd, ok := ClientCommand(ClientMessage{Type: EventEntityAttack, Payload: &ClientPayload{DirX: &x}})
		if !ok || !cmd.Attack.Directed || cmd.Attack.DirX != -1 || cmd.Attack.DirY != 0 {
			t.Fatalf("unexpected attack %+v", cmd.Attack)
		}
	})

	t.Run("move", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: EventPlayerMove, Payload: &ClientPayload{DX: 1, DY: -0.5}})
		if !ok || cmd.Type != sim.CommandMove || cmd.Move.DX != 1 || cmd.Move.DY != -0.5 {
			t.Fatalf("unexpected move %+v", cmd)
		}
	})

	t.Run("ready is not a command", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: EventClientReady}); ok {
			t.Fatalf("expected client.ready to be handled outside the simulation")
		}
	})
}

func TestJSONCodecEnvelope(t *testing.T) {
	codec := JSONCodec{}
	states := []sim.EntityState{{ID: "p1", Attrs: attrs.Values{"x": 1.0, "y": 2.0, "image": "knight"}}}
	data, err := codec.Encode(EventClientSync, EntitiesFromStates(states))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded struct {
		Type    string           `json:"type"`
		Payload []map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid json %s: %v", data, err)
	}
	if decoded.Type != EventClientSync || len(decoded.Payload) != 1 {
		t.Fatalf("unexpected envelope %s", data)
	}
	entity := decoded.Payload[0]
	if entity["id"] != "p1" || entity["x"] != 1.0 || entity["image"] != "knight" {
		t.Fatalf("unexpected entity %v", entity)
	}

	msg, err := codec.Decode([]byte(`{"type":"entity.attack","payload":{"dirX":0,"dirY":1}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Payload == nil || msg.Payload.DirX == nil || *msg.Payload.DirY != 1 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if _, err := codec.Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Fatalf("expected error for message without type")
	}
	if _, err := codec.Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestMsgpackCodecSharesJSONLayout(t *testing.T) {
	codec := MsgpackCodec{}
	data, err := codec.Encode(EventPlayerLeave, LeavePayload{ID: "p9"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := msgpack.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	payload, ok := decoded["payload"].(map[string]any)
	if decoded["type"] != EventPlayerLeave || !ok || payload["id"] != "p9" {
		t.Fatalf("unexpected envelope %v", decoded)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(ClientMessage{Type: EventPlayerMove, Payload: &ClientPayload{DX: 1}}); err != nil {
		t.Fatalf("encode client message: %v", err)
	}
	msg, err := codec.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != EventPlayerMove || msg.Payload == nil || msg.Payload.DX != 1 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if _, err := codec.Decode([]byte{0xc1}); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestCodecByName(t *testing.T) {
	for name, binary := range map[string]bool{"": false, CodecJSON: false, CodecMsgpack: true} {
		codec, err := CodecByName(name)
		if err != nil {
			t.Fatalf("codec %q: %v", name, err)
		}
		if codec.Binary() != binary {
			t.Fatalf("codec %q: expected binary=%v", name, binary)
		}
	}
	if _, err := CodecByName("xml"); err == nil {
		t.Fatalf("expected unknown codec error")
	}
}
