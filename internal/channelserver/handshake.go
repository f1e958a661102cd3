package channelserver

import (
	"crypto/rand"
	"fmt"
	"io"
	"net"

	"github.com/justapithecus/channeld/internal/wire"
)

// handshakeResult is what a successful pre-session handshake yields: the
// client's declared session id and a FrameReader already carrying the
// recv-direction cipher, ready to read every subsequent packet (spec.md
// §6 "Hello packet ... then per-direction stream ciphers keyed by
// 4-byte IVs exchanged in the hello" — the first client packet is
// itself sent under that cipher, not in the clear).
type handshakeResult struct {
	SessionID uint32
	Reader    *wire.FrameReader
	SendIV    [4]byte
}

// performHandshake writes the fixed 16-byte hello packet, installs the
// recv-direction cipher, then reads and validates the client's first
// packet (spec.md §6 "First client packet must be opcode 0x0014
// carrying session_id:u32; any deviation ends the session"). Any
// read/write error, or a deviation from the expected opcode, is
// reported so the caller closes the connection — this layer never
// retries a malformed handshake.
func performHandshake(conn net.Conn) (handshakeResult, error) {
	recvIV, err := randomIV()
	if err != nil {
		return handshakeResult{}, fmt.Errorf("channelserver: handshake: generate recv iv: %w", err)
	}
	sendIV, err := randomIV()
	if err != nil {
		return handshakeResult{}, fmt.Errorf("channelserver: handshake: generate send iv: %w", err)
	}

	hello := wire.NewHello(recvIV, sendIV)
	if _, err := conn.Write(hello.Encode()); err != nil {
		return handshakeResult{}, fmt.Errorf("channelserver: handshake: write hello: %w", err)
	}

	reader := wire.NewFrameReader(conn, wire.NewXORCipher(recvIV))
	payload, err := reader.ReadFrame()
	if err != nil {
		return handshakeResult{}, fmt.Errorf("channelserver: handshake: read first packet: %w", err)
	}

	sessionID, err := wire.ParseFirstClientPacket(payload)
	if err != nil {
		return handshakeResult{}, fmt.Errorf("channelserver: handshake: parse first packet: %w", err)
	}

	return handshakeResult{SessionID: sessionID, Reader: reader, SendIV: sendIV}, nil
}

func randomIV() ([4]byte, error) {
	var iv [4]byte
	if _, err := io.ReadFull(rand.Reader, iv[:]); err != nil {
		return iv, err
	}
	return iv, nil
}
