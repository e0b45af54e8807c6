package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/connection"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/wire"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on, e.g. "0.0.0.0:3000" or "127.0.0.1:0".
	Address string

	// MaxMessageSize bounds inbound frames (default 16 KB).
	MaxMessageSize int

	// QueueSize is the outbound queue depth per connection (default 64).
	QueueSize int

	// Logger receives protocol events (optional).
	Logger log.Logger

	// Component names the owner in protocol events.
	Component string

	// OnConnect is called after a connection joins the live set and
	// before its receive loop starts.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called after a connection has left the live set and
	// its socket is closed. err is nil for a clean EOF or local close.
	OnDisconnect func(conn *ServerConn, err error)

	// OnMessage is called from the connection's receive loop for every
	// decoded frame, valid or not.
	OnMessage func(conn *ServerConn, msg *wire.Message)

	// OnError is called for accept and write failures. conn is nil for
	// accept errors.
	OnError func(conn *ServerConn, err error)
}

// Server accepts TCP connections and keeps the set of live ones.
type Server struct {
	config   ServerConfig
	listener net.Listener
	backoff  *connection.Backoff

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. It does not listen until Start.
func NewServer(config ServerConfig) *Server {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}

	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
		backoff: connection.NewBackoffWithConfig(connection.BackoffConfig{
			Initial: 5 * time.Millisecond,
			Max:     time.Second,
		}),
	}
}

// Start binds the listener and starts accepting. Bind failures are
// returned immediately.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and every connection, then waits for every
// connection worker to exit.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.cancel()
	err := s.listener.Close()

	s.connsMu.Lock()
	conns := make([]*ServerConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	clear(s.conns)
	s.connsMu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	s.wg.Wait()

	if IsClosedError(err) {
		return nil
	}
	return err
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// Running reports whether the server is accepting.
func (s *Server) Running() bool {
	return s.running.Load()
}

// ConnectionCount returns the number of live connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Connections returns a snapshot of the live set.
func (s *Server) Connections() []*ServerConn {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()

	out := make([]*ServerConn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

// Broadcast queues frame on every live connection and returns how many
// accepted it. A connection that cannot take the frame is reported through
// OnError and does not affect the others.
func (s *Server) Broadcast(frame []byte) int {
	sent := 0
	for _, c := range s.Connections() {
		if err := c.SendAsync(frame); err != nil {
			s.reportError(c, fmt.Errorf("broadcast to %s: %w", c.RemoteAddr(), err))
			continue
		}
		sent++
	}
	return sent
}

func (s *Server) reportError(c *ServerConn, err error) {
	if s.config.OnError != nil {
		s.config.OnError(c, err)
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || IsClosedError(err) {
				return
			}
			s.reportError(nil, fmt.Errorf("accept: %w", err))

			select {
			case <-s.ctx.Done():
				return
			case <-time.After(s.backoff.Next()):
			}
			continue
		}
		s.backoff.Reset()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	sc := newServerConn(s, conn)

	s.connsMu.Lock()
	if !s.running.Load() {
		s.connsMu.Unlock()
		conn.Close()
		return
	}
	s.conns[sc] = struct{}{}
	s.connsMu.Unlock()

	logStateChange(s.config.Logger, sc.lc, StateDisconnected, StateConnected, "")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sc.writeLoop()
	}()

	if s.config.OnConnect != nil {
		s.config.OnConnect(sc)
	}

	readErr := sc.readLoop()

	s.connsMu.Lock()
	delete(s.conns, sc)
	s.connsMu.Unlock()

	sc.Close()
	<-sc.writerDone

	if readErr == io.EOF || IsClosedError(readErr) {
		readErr = nil
	}
	reason := ""
	if readErr != nil {
		reason = readErr.Error()
	}
	logStateChange(s.config.Logger, sc.lc, StateConnected, StateDisconnected, reason)

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sc, readErr)
	}
}

// ServerConn is one accepted connection.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	server     *Server
	connID     string
	remoteAddr net.Addr
	lc         LogContext

	sendq      chan []byte
	closeCh    chan struct{}
	closeOnce  sync.Once
	writerDone chan struct{}
}

func newServerConn(s *Server, conn net.Conn) *ServerConn {
	sc := &ServerConn{
		conn:       conn,
		framer:     NewFramerWithMaxSize(conn, s.config.MaxMessageSize),
		server:     s,
		connID:     uuid.New().String(),
		remoteAddr: conn.RemoteAddr(),
		sendq:      make(chan []byte, s.config.QueueSize),
		closeCh:    make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	sc.lc = LogContext{
		ConnID:     sc.connID,
		Component:  s.config.Component,
		Role:       log.RoleServer,
		RemoteAddr: sc.remoteAddr.String(),
	}
	if s.config.Logger != nil {
		sc.framer.SetLogger(s.config.Logger, sc.lc)
	}
	return sc
}

// ConnID returns the connection's UUID.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// RemoteAddr returns the peer address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// Closed reports whether Close has been called.
func (c *ServerConn) Closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// Send writes frame synchronously.
func (c *ServerConn) Send(frame []byte) error {
	if c.Closed() {
		return ErrConnectionClosed
	}
	return c.framer.WriteFrame(frame)
}

// SendAsync queues frame for the connection's writer without blocking.
func (c *ServerConn) SendAsync(frame []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.sendq <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close closes the socket, which ends the receive loop and the writer.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) writeLoop() {
	defer close(c.writerDone)

	for {
		select {
		case <-c.closeCh:
			return
		case frame := <-c.sendq:
			if err := c.Send(frame); err != nil {
				if !IsClosedError(err) {
					c.server.reportError(c, fmt.Errorf("write to %s: %w", c.remoteAddr, err))
				}
				c.Close()
				return
			}
		}
	}
}

func (c *ServerConn) readLoop() error {
	for {
		msg, err := c.framer.ReadMessage()
		if err != nil {
			if c.Closed() && !errors.Is(err, io.EOF) {
				return ErrConnectionClosed
			}
			return err
		}
		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, msg)
		}
	}
}
