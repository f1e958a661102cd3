package channelserver

import (
	"encoding/binary"
	"net"
	"sync"

	"github.com/justapithecus/channeld/log"
)

// disconnectNotifyByte is the first byte of a disconnect notification
// frame written to the login-control connection (spec.md §6 "the
// channel writes [0x00, session_id:u32 little-endian] when a session
// disconnects").
const disconnectNotifyByte = 0x00

// LoginControl owns the single connection from the login server (spec.md
// §6 "Login-control endpoint (ipv4/ipv6/AF_UNIX): a single connection
// from the login server"). It tracks first-connect vs reconnect,
// buffers disconnect notifications while no connection is attached, and
// replays them once a new connection arrives.
type LoginControl struct {
	listener net.Listener
	logger   *log.Logger

	mu          sync.Mutex
	everConnected bool
	conn          net.Conn
	pending       [][4]byte // buffered session ids awaiting a [0x00, id] write
}

// NewLoginControl wraps listener, which the caller has already bound
// (ipv4/ipv6/AF_UNIX per spec.md §6).
func NewLoginControl(listener net.Listener, logger *log.Logger) *LoginControl {
	return &LoginControl{listener: listener, logger: logger}
}

// Serve accepts login-server connections until the listener is closed,
// re-binding to await a new connection whenever the current one drops
// (spec.md §6 "If the login connection drops, the channel re-binds the
// listener and awaits a new connection; disconnect-notifications
// collected in the interim are replayed on reconnect").
func (lc *LoginControl) Serve() {
	for {
		conn, err := lc.listener.Accept()
		if err != nil {
			return
		}
		lc.handleConn(conn)
	}
}

// Close closes the underlying listener, ending Serve's accept loop.
func (lc *LoginControl) Close() error {
	return lc.listener.Close()
}

func (lc *LoginControl) handleConn(conn net.Conn) {
	lc.mu.Lock()
	first := byte(0)
	if lc.everConnected {
		first = 1
	}
	lc.everConnected = true
	lc.conn = conn
	pending := lc.pending
	lc.pending = nil
	lc.mu.Unlock()

	if _, err := conn.Write([]byte{first}); err != nil {
		lc.logError("login-control: write connect byte failed", err)
		lc.detach(conn)
		return
	}

	for _, id := range pending {
		if !lc.writeDisconnect(conn, id) {
			return
		}
	}
}

// Notify reports sessionID's disconnection to the login server so it
// can release its login-token reservation (spec.md §6). If no
// connection is currently attached, the notification is buffered and
// replayed on the next connect.
func (lc *LoginControl) Notify(sessionID uint32) {
	var idBytes [4]byte
	binary.LittleEndian.PutUint32(idBytes[:], sessionID)

	lc.mu.Lock()
	conn := lc.conn
	if conn == nil {
		lc.pending = append(lc.pending, idBytes)
		lc.mu.Unlock()
		return
	}
	lc.mu.Unlock()

	lc.writeDisconnect(conn, idBytes)
}

func (lc *LoginControl) writeDisconnect(conn net.Conn, id [4]byte) bool {
	frame := append([]byte{disconnectNotifyByte}, id[:]...)
	if _, err := conn.Write(frame); err != nil {
		lc.logError("login-control: write disconnect notification failed", err)
		lc.requeue(id)
		lc.detach(conn)
		return false
	}
	return true
}

func (lc *LoginControl) requeue(id [4]byte) {
	lc.mu.Lock()
	lc.pending = append(lc.pending, id)
	lc.mu.Unlock()
}

func (lc *LoginControl) detach(conn net.Conn) {
	lc.mu.Lock()
	if lc.conn == conn {
		lc.conn = nil
	}
	lc.mu.Unlock()
	conn.Close()
}

func (lc *LoginControl) logError(msg string, err error) {
	if lc.logger == nil {
		return
	}
	lc.logger.Error(msg, map[string]any{"error": err.Error()})
}
