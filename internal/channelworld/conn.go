// Package channelworld wires the transport boundary (internal/
// channelserver), the per-session projection (internal/session), and
// the map/worker substrate (internal/room, internal/worker, internal/
// coordinator) into a running channel process. It is the composition
// root cmd/channeld drives; nothing under internal/ depends on it.
package channelworld

import (
	"net"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/channeld/internal/wire"
	"github.com/justapithecus/channeld/log"
)

// Encoder turns a session-layer event value into wire bytes. It is the
// server->client counterpart of the external wire codec boundary
// (spec.md §1 treats packet encoding as an external collaborator, the
// same way internal/wire treats the stream cipher): core only produces
// event values (session.ChangeMap, session.NewMapBurst, ...); how they
// become bytes on the wire is pluggable.
type Encoder interface {
	Encode(event any) ([]byte, error)
}

// MsgpackEncoder is the reference Encoder, matching the compact binary
// framing the rest of this module favors over JSON for anything that
// crosses the wire (spec.md §6's own hello/frame layouts are binary).
type MsgpackEncoder struct{}

func (MsgpackEncoder) Encode(event any) ([]byte, error) {
	return msgpack.Marshal(event)
}

var _ Encoder = MsgpackEncoder{}

// SessionConn implements session.Conn over a net.Conn, encrypting every
// outbound event with the send-direction cipher negotiated in the
// handshake (spec.md §6 "per-direction stream ciphers keyed by 4-byte
// IVs exchanged in the hello") before framing and writing it (session.
// Conn's own doc comment: "wraps a wire.FrameReader/Writer pair and the
// session's send cipher").
type SessionConn struct {
	conn    net.Conn
	cipher  wire.Cipher
	encoder Encoder
	logger  *log.Logger
}

// NewSessionConn builds a SessionConn writing to conn, encrypting with
// cipher and encoding events with encoder. logger may be nil.
func NewSessionConn(conn net.Conn, cipher wire.Cipher, encoder Encoder, logger *log.Logger) *SessionConn {
	return &SessionConn{conn: conn, cipher: cipher, encoder: encoder, logger: logger}
}

// Send implements session.Conn. A write or encode failure is logged
// and otherwise swallowed: Send has no error return, matching the
// fire-and-forget shape session.User's own callers use it with
// (spec.md §5 "Write — zero-copy; two callbacks" models the failure
// path at the worker/Submit layer, not at this call site).
func (c *SessionConn) Send(event any) {
	payload, err := c.encoder.Encode(event)
	if err != nil {
		c.logError("channelworld: encode event failed", err)
		return
	}
	frame := c.cipher.EncryptFrame(payload)
	if _, err := c.conn.Write(frame); err != nil {
		c.logError("channelworld: write event failed", err)
	}
}

func (c *SessionConn) logError(msg string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Error(msg, map[string]any{"error": err.Error()})
}
