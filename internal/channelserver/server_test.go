package channelserver

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/justapithecus/channeld/internal/wire"
	"github.com/justapithecus/channeld/metrics"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	sessions []uint32
	done     chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{done: make(chan struct{}, 8)}
}

func (d *fakeDispatcher) HandleSession(ctx context.Context, sessionID uint32, conn net.Conn, reader *wire.FrameReader, sendIV [4]byte) {
	d.mu.Lock()
	d.sessions = append(d.sessions, sessionID)
	d.mu.Unlock()
	d.done <- struct{}{}
}

func dialAndHandshake(t *testing.T, addr string, sessionID uint32) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	hello := make([]byte, 16)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := readFull(conn, hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	var recvIV [4]byte
	copy(recvIV[:], hello[7:11])

	cipher := wire.NewXORCipher(recvIV)
	payload := make([]byte, 6)
	binary.LittleEndian.PutUint16(payload[0:2], wire.FirstClientOpcode)
	binary.LittleEndian.PutUint32(payload[2:6], sessionID)
	frame := cipher.EncryptFrame(payload)
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write first packet: %v", err)
	}
	return conn
}

func TestServeDispatchesHandshakenSession(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	dispatcher := newFakeDispatcher()
	collector := metrics.NewCollector("ch-1", "world-1", 1)
	srv := New(ln, dispatcher, nil, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	conn := dialAndHandshake(t, ln.Addr().String(), 0x1234)
	defer conn.Close()

	select {
	case <-dispatcher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher was never invoked")
	}

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if len(dispatcher.sessions) != 1 || dispatcher.sessions[0] != 0x1234 {
		t.Errorf("sessions = %v, want [0x1234]", dispatcher.sessions)
	}

	snap := collector.Snapshot()
	if snap.SessionsAccepted != 1 {
		t.Errorf("SessionsAccepted = %d, want 1", snap.SessionsAccepted)
	}
}

func TestServeCountsHandshakeFailureWithoutDispatch(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	dispatcher := newFakeDispatcher()
	collector := metrics.NewCollector("ch-1", "world-1", 1)
	srv := New(ln, dispatcher, nil, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := make([]byte, 16)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := readFull(conn, hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	var recvIV [4]byte
	copy(recvIV[:], hello[7:11])

	cipher := wire.NewXORCipher(recvIV)
	payload := make([]byte, 6)
	binary.LittleEndian.PutUint16(payload[0:2], 0x9999) // wrong opcode
	binary.LittleEndian.PutUint32(payload[2:6], 1)
	frame := cipher.EncryptFrame(payload)
	conn.Write(frame)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if collector.Snapshot().HandshakeFailures == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := collector.Snapshot()
	if snap.HandshakeFailures != 1 {
		t.Errorf("HandshakeFailures = %d, want 1", snap.HandshakeFailures)
	}
	if snap.SessionsAccepted != 0 {
		t.Errorf("SessionsAccepted = %d, want 0", snap.SessionsAccepted)
	}

	select {
	case <-dispatcher.done:
		t.Fatal("dispatcher should not be invoked on handshake failure")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopEndsServeLoop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	dispatcher := newFakeDispatcher()
	srv := New(ln, dispatcher, nil, nil)

	servedDone := make(chan struct{})
	go func() {
		srv.Serve(context.Background())
		close(servedDone)
	}()

	time.Sleep(50 * time.Millisecond)
	if err := srv.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	select {
	case <-servedDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}

	// A second Stop call must not panic or block.
	if err := srv.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
