package wire

import "encoding/binary"

// Hello is the fixed server->client handshake packet (spec.md §6:
// "16 bytes total = {len:u16=0x000E, version:u16=83,
// subversion_len:u16=0x0001, subversion:"0", recv_iv[4], send_iv[4],
// locale:u8=8}").
type Hello struct {
	Version uint16
	RecvIV  [4]byte
	SendIV  [4]byte
	Locale  uint8
}

const (
	helloVersion    = 83
	helloSubversion = "0"
	helloLocale     = 8
	helloBodyLen    = 0x000E
)

// Encode serializes h into the exact 16-byte wire layout. It is not a
// length-prefixed frame in the FrameReader sense: the length field is
// itself part of the fixed packet.
func (h Hello) Encode() []byte {
	buf := make([]byte, 0, 16)
	buf = appendU16(buf, helloBodyLen)
	buf = appendU16(buf, h.Version)
	buf = appendU16(buf, uint16(len(helloSubversion)))
	buf = append(buf, helloSubversion...)
	buf = append(buf, h.RecvIV[:]...)
	buf = append(buf, h.SendIV[:]...)
	buf = append(buf, h.Locale)
	return buf
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

// NewHello builds the standard hello with the protocol's fixed
// version/locale and the given per-direction IVs.
func NewHello(recvIV, sendIV [4]byte) Hello {
	return Hello{Version: helloVersion, RecvIV: recvIV, SendIV: sendIV, Locale: helloLocale}
}

// FirstClientOpcode is the only opcode accepted as the client's first
// packet (spec.md §6 "First client packet must be opcode 0x0014
// carrying session_id:u32; any deviation ends the session").
const FirstClientOpcode uint16 = 0x0014

// ParseFirstClientPacket validates and extracts session_id from the
// client's first post-hello packet.
func ParseFirstClientPacket(payload []byte) (sessionID uint32, err error) {
	r := NewReader(payload)
	opcode, err := r.ReadU16()
	if err != nil {
		return 0, err
	}
	if opcode != FirstClientOpcode {
		return 0, &FrameError{Kind: FrameErrorPartial, Msg: "unexpected first client opcode"}
	}
	return r.ReadU32()
}
