package proto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec names.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Codec encodes outbound envelopes and decodes inbound client messages.
type Codec interface {
	Name() string
	// Binary reports whether frames must be sent as binary messages.
	Binary() bool
	Encode(event string, payload any) ([]byte, error)
	Decode(data []byte) (ClientMessage, error)
}

// CodecByName resolves a codec, defaulting to JSON for an empty name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("proto: unknown codec %q", name)
	}
}

// JSONCodec writes text frames.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecJSON }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: event, Payload: payload})
}

func (JSONCodec) Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("proto: decode json: %w", err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("proto: message without type")
	}
	return msg, nil
}

// MsgpackCodec writes binary frames. Field names follow the JSON tags so
// both codecs share one layout.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecMsgpack }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(event string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetOmitEmpty(true)
	if err := enc.Encode(Envelope{Type: event, Payload: payload}); err != nil {
		return nil, fmt.Errorf("proto: encode msgpack: %w", err)
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&msg); err != nil {
		return msg, fmt.Errorf("proto: decode msgpack: %w", err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("proto: message without type")
	}
	return msg, nil
}
