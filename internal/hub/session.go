package hub

import "arena/server/internal/net/proto"

// Frame is one encoded outbound message.
type Frame struct {
	Binary bool
	Data   []byte
}

// Session is one connected client. Its outbound queue is drained by the
// transport writer; the hub never blocks on it.
type Session struct {
	id    string
	codec proto.Codec
	out   chan Frame

	// Guarded by the hub mutex.
	ready    bool
	needFull bool
	closed   bool
}

func newSession(id string, codec proto.Codec, queue int) *Session {
	return &Session{id: id, codec: codec, out: make(chan Frame, queue)}
}

// ID returns the session id, which is also the id of its player.
func (s *Session) ID() string { return s.id }

// Codec returns the negotiated codec.
func (s *Session) Codec() proto.Codec { return s.codec }

// Frames yields outbound frames until the session closes.
func (s *Session) Frames() <-chan Frame { return s.out }

func (s *Session) offer(frame Frame) bool {
	if s.closed {
		return false
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}
