package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/wire"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// MaxMessageSize bounds inbound frames (default 16 KB).
	MaxMessageSize int

	// ConnectTimeout applies when the context has no deadline
	// (default 5s).
	ConnectTimeout time.Duration

	// Logger receives protocol events (optional).
	Logger log.Logger

	// Component names the owner in protocol events.
	Component string
}

// Client dials bridge servers.
type Client struct {
	config ClientConfig
}

// NewClient creates a client.
func NewClient(config ClientConfig) *Client {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 5 * time.Second
	}
	return &Client{config: config}
}

// Connect opens a TCP connection to address.
func (c *Client) Connect(ctx context.Context, address string) (*ClientConn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	cc := &ClientConn{
		conn:    conn,
		framer:  NewFramerWithMaxSize(conn, c.config.MaxMessageSize),
		connID:  uuid.New().String(),
		closeCh: make(chan struct{}),
		logger:  c.config.Logger,
	}
	cc.lc = LogContext{
		ConnID:     cc.connID,
		Component:  c.config.Component,
		Role:       log.RoleClient,
		RemoteAddr: conn.RemoteAddr().String(),
	}
	if c.config.Logger != nil {
		cc.framer.SetLogger(c.config.Logger, cc.lc)
	}
	cc.state.Store(int32(StateConnected))
	logStateChange(cc.logger, cc.lc, StateConnecting, StateConnected, "")

	return cc, nil
}

// ClientConn is a connection from a client to a server.
type ClientConn struct {
	conn   net.Conn
	framer *Framer
	connID string
	lc     LogContext
	logger log.Logger

	state     atomic.Int32
	closeCh   chan struct{}
	closeOnce sync.Once
	readMu    sync.Mutex
}

// ConnID returns the connection's UUID.
func (c *ClientConn) ConnID() string { return c.connID }

// LocalAddr returns the local address.
func (c *ClientConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the server address.
func (c *ClientConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// State returns the connection state.
func (c *ClientConn) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Done is closed when the connection is closed.
func (c *ClientConn) Done() <-chan struct{} {
	return c.closeCh
}

// Send writes an encoded frame.
func (c *ClientConn) Send(frame []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(frame)
}

// SendMessage encodes and writes m.
func (c *ClientConn) SendMessage(m *wire.Message) error {
	frame, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// ReadMessage reads the next frame. It blocks until a frame arrives, the
// peer closes, or Close is called.
func (c *ClientConn) ReadMessage() (*wire.Message, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	msg, err := c.framer.ReadMessage()
	if err != nil && IsClosedError(err) {
		return nil, ErrConnectionClosed
	}
	return msg, err
}

// Close closes the socket. Safe to call more than once.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.closeCh)
		err = c.conn.Close()
		c.state.Store(int32(StateDisconnected))
		logStateChange(c.logger, c.lc, StateConnected, StateDisconnected, "")
	})
	return err
}
