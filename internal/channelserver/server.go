// Package channelserver implements the channel's external interfaces
// (spec.md §6): the client-facing TCP listener and its pre-session
// handshake, and the login-control endpoint's reconnect/notify
// protocol. It is the transport boundary between a raw net.Conn and a
// session.User — opcode-level packet dispatch onto session.User's
// operations is wired by the caller (cmd/channeld) via Dispatcher.
package channelserver

import (
	"context"
	"net"
	"sync"

	"github.com/justapithecus/channeld/internal/wire"
	"github.com/justapithecus/channeld/log"
	"github.com/justapithecus/channeld/metrics"
)

// Dispatcher hands a freshly-handshaken connection off to the rest of
// the server (room/session wiring, worker assignment). It is called
// once per accepted connection, on its own goroutine, and owns the
// connection's lifetime from that point on — Server itself never reads
// another byte from it.
type Dispatcher interface {
	HandleSession(ctx context.Context, sessionID uint32, conn net.Conn, reader *wire.FrameReader, sendIV [4]byte)
}

// Server owns the client-facing listener and drives its accept loop
// (spec.md §6 "Client TCP port (default 7575)"), grounded on the
// teacher pack's accept-loop/shutdown shape (mutex-guarded listener,
// sync.Once-guarded Stop).
type Server struct {
	listener   net.Listener
	dispatcher Dispatcher
	logger     *log.Logger
	collector  *metrics.Collector

	mu       sync.Mutex
	shutdown bool
	stopOnce sync.Once
}

// New wraps listener, which the caller has already bound to the
// client-facing address. dispatcher receives every successfully
// handshaken connection; collector/logger may be nil.
func New(listener net.Listener, dispatcher Dispatcher, logger *log.Logger, collector *metrics.Collector) *Server {
	return &Server{listener: listener, dispatcher: dispatcher, logger: logger, collector: collector}
}

// Serve accepts connections until ctx is canceled or Stop is called,
// performing the pre-session handshake inline and handing the result to
// Dispatcher on its own goroutine (spec.md §6 "pre-session 14-byte
// handshake ... then per-direction stream ciphers").
func (s *Server) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				return
			}
			s.logError("channelserver: accept failed", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// Stop closes the listener, ending Serve's accept loop. Already-
// dispatched connections are unaffected.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		err = s.listener.Close()
	})
	return err
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	result, err := performHandshake(conn)
	if err != nil {
		s.logError("channelserver: handshake failed", err)
		s.collector.IncHandshakeFailure()
		conn.Close()
		return
	}

	s.collector.IncSessionAccepted()
	s.dispatcher.HandleSession(ctx, result.SessionID, conn, result.Reader, result.SendIV)
}

func (s *Server) logError(msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Error(msg, map[string]any{"error": err.Error()})
}
