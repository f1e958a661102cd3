package wire

import (
	"bytes"
	"testing"
)

func TestFrameReaderRoundTripsWithCipher(t *testing.T) {
	iv := [4]byte{1, 2, 3, 4}
	enc := NewXORCipher(iv)
	dec := NewXORCipher(iv)

	var wireBuf bytes.Buffer
	wireBuf.Write(enc.EncryptFrame([]byte("hello")))
	wireBuf.Write(enc.EncryptFrame([]byte("world!")))

	fr := NewFrameReader(&wireBuf, dec)

	got1, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("read frame 1: %v", err)
	}
	if string(got1) != "hello" {
		t.Fatalf("frame 1 = %q, want %q", got1, "hello")
	}

	got2, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("read frame 2: %v", err)
	}
	if string(got2) != "world!" {
		t.Fatalf("frame 2 = %q, want %q", got2, "world!")
	}
}

func TestFrameReaderPartialFrameIsFatal(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x05, 0x00, 'a', 'b'})
	fr := NewFrameReader(buf, nil)
	_, err := fr.ReadFrame()
	if err == nil || !IsFatal(err) {
		t.Fatalf("expected fatal frame error, got %v", err)
	}
}

func TestReaderHelperFamily(t *testing.T) {
	payload := []byte{0x2A, 0x34, 0x12, 0x02, 0x00, 'h', 'i'}
	r := NewReader(payload)

	u8, err := r.ReadU8()
	if err != nil || u8 != 0x2A {
		t.Fatalf("ReadU8 = %v, %v", u8, err)
	}
	u16, err := r.ReadU16()
	if err != nil || u16 != 0x1234 {
		t.Fatalf("ReadU16 = %v, %v", u16, err)
	}
	s, err := r.ReadSizedString()
	if err != nil || s != "hi" {
		t.Fatalf("ReadSizedString = %q, %v", s, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestReaderShortReadErrors(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.ReadU32(); err != ErrShortRead {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}

func TestHelloEncodeLayout(t *testing.T) {
	h := NewHello([4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8})
	buf := h.Encode()
	if len(buf) != 16 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
	if buf[0] != 0x0E || buf[1] != 0x00 {
		t.Fatalf("len field = %x %x, want 0E 00", buf[0], buf[1])
	}
	if buf[15] != helloLocale {
		t.Fatalf("locale = %d, want %d", buf[15], helloLocale)
	}
}

func TestParseFirstClientPacketRejectsWrongOpcode(t *testing.T) {
	payload := []byte{0x01, 0x00, 0, 0, 0, 0}
	if _, err := ParseFirstClientPacket(payload); err == nil {
		t.Fatal("expected error for wrong opcode")
	}
}
