package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/discovery"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/metrics"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/transport"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/wire"
)

// ClientState is the externally visible state of a Client.
type ClientState int32

const (
	ClientIdle ClientState = iota
	ClientDiscovering
	ClientConnected
)

func (s ClientState) String() string {
	switch s {
	case ClientIdle:
		return "IDLE"
	case ClientDiscovering:
		return "DISCOVERING"
	case ClientConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// link is one TCP connection and its receive worker.
type link struct {
	conn *transport.ClientConn
	done chan struct{}
}

// Client is the network client component.
type Client struct {
	component.Base

	cfg       ClientConfig
	prober    *discovery.Prober
	transport *transport.Client
	bridgeM   *metrics.BridgeMetrics
	discM     *metrics.DiscoveryMetrics

	discovering atomic.Bool
	updateID    atomic.Int64

	// mu guards everything below. Workers are only spawned under mu while
	// active, so Stop's Wait never races an Add.
	mu      sync.Mutex
	active  bool
	servers []string
	listID  int64
	link    *link
	ctx     context.Context
	cancel  context.CancelFunc
	outq    chan []byte
	wg      sync.WaitGroup
}

// NewClient creates a client from cfg.
func NewClient(cfg ClientConfig) *Client {
	cfg.applyDefaults()
	return &Client{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Client) Config() ClientConfig { return c.cfg }

// Init subscribes to the outbound id and the control messages.
func (c *Client) Init(env component.Env) error {
	c.Bind(env)

	c.prober = &discovery.Prober{
		Logger:         env.Logger,
		ProtocolLogger: env.ProtocolLogger,
		Component:      env.Name,
	}
	c.transport = transport.NewClient(transport.ClientConfig{
		MaxMessageSize: c.cfg.MaxMessageSize,
		ConnectTimeout: c.cfg.ConnectTimeout,
		Logger:         env.ProtocolLogger,
		Component:      env.Name,
	})
	c.bridgeM = env.Metrics.BridgeOrNil()
	c.discM = env.Metrics.DiscoveryOrNil()

	c.Subscribe(c.cfg.Outbound, c.handleOutbound)
	c.Subscribe(ConnectToServer, c.handleConnect)
	c.Subscribe(RefreshServerList, func(attrs.Attributes) error {
		c.RefreshServerList()
		return nil
	})
	return nil
}

// Start spawns the outbound worker and runs a first discovery round.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.outq = make(chan []byte, c.cfg.QueueSize)
	c.active = true

	c.wg.Add(1)
	go c.outboundWorker(c.ctx, c.outq)
	c.mu.Unlock()

	c.Logger().Info("client started",
		"group", c.cfg.Group, "discovery_port", c.cfg.DiscoveryPort, "tcp_port", c.cfg.TCPPort)

	c.RefreshServerList()
	return nil
}

// Stop cancels discovery, closes the connection and waits for every
// worker. It is idempotent.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = false
	l := c.link
	c.link = nil
	c.cancel()
	c.mu.Unlock()

	if l != nil {
		l.conn.Close()
	}
	c.wg.Wait()

	c.Logger().Info("client stopped")
	return nil
}

// State reports Connected while a connection is open, Discovering while a
// round runs, Idle otherwise.
func (c *Client) State() ClientState {
	c.mu.Lock()
	connected := c.link != nil
	c.mu.Unlock()

	switch {
	case connected:
		return ClientConnected
	case c.discovering.Load():
		return ClientDiscovering
	default:
		return ClientIdle
	}
}

// Servers returns the servers found in the latest round.
func (c *Client) Servers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.servers...)
}

// UpdateID returns the id of the latest discovery round.
func (c *Client) UpdateID() int64 {
	return c.updateID.Load()
}

// RemoteAddr returns the connected server, or nil.
func (c *Client) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.link == nil {
		return nil
	}
	return c.link.conn.RemoteAddr()
}

// RefreshServerList starts a discovery round unless one is running or the
// client is not active. It does not wait for the round.
func (c *Client) RefreshServerList() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	if !c.discovering.CompareAndSwap(false, true) {
		c.Logger().Debug("discovery already in progress")
		return
	}

	c.wg.Add(1)
	go c.discover(c.ctx)
}

func (c *Client) discover(ctx context.Context) {
	defer c.wg.Done()
	defer c.discovering.Store(false)

	id := c.updateID.Add(1)

	c.mu.Lock()
	c.servers = nil
	c.listID = id
	c.mu.Unlock()

	roundCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	h, err := c.OneShot(c.cfg.DiscoveryTimeout, cancel)
	if err != nil {
		c.Logger().Warn("discovery timer unavailable", "error", err)
		return
	}
	defer c.CancelTimer(h)

	update := attrs.New()
	update.SetInt(AttrUpdateID, id)

	found, err := c.prober.Probe(roundCtx, discovery.ProbeConfig{
		Address:    c.cfg.Group,
		Port:       c.cfg.DiscoveryPort,
		MaxServers: c.cfg.MaxServers,
		TTL:        c.cfg.TTL,
		Loopback:   c.cfg.Loopback,
		Interface:  c.cfg.Interface,
		UpdateID:   id,
	}, func(ip string, index int) {
		c.mu.Lock()
		c.servers = append(c.servers, ip)
		c.mu.Unlock()

		c.discM.RecordPong()
		update.SetString(strconv.Itoa(index), ip)
		c.Publish(UpdateServerList, update)
	})
	if err != nil {
		c.Logger().Warn("discovery failed", "update_id", id, "error", err)
	}

	c.discM.RecordRound(len(found))
	c.Logger().Info("discovery finished", "update_id", id, "servers", len(found))
}

func (c *Client) handleConnect(a attrs.Attributes) error {
	index, err := a.Int(AttrID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	listID := c.listID
	servers := append([]string(nil), c.servers...)
	c.mu.Unlock()

	if uid, ok := a.TryInt(AttrUpdateID); ok && uid != listID {
		c.Logger().Warn("ignoring connect for another discovery round", "update_id", uid, "current", listID)
		return nil
	}
	if index < 1 || index > int64(len(servers)) {
		c.Logger().Warn("ignoring connect to unknown server", "index", index, "known", len(servers))
		return nil
	}

	c.connect(net.JoinHostPort(servers[index-1], strconv.Itoa(c.cfg.TCPPort)))
	return nil
}

// connect replaces the current connection with one to addr. Failures are
// logged.
func (c *Client) connect(addr string) {
	c.disconnect()

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	c.Logger().Info("connecting", "addr", addr)
	conn, err := c.transport.Connect(ctx, addr)
	if err != nil {
		c.Logger().Error("connect failed", "addr", addr, "error", err)
		return
	}

	l := &link{conn: conn, done: make(chan struct{})}

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		conn.Close()
		return
	}
	old := c.link
	c.link = l
	c.wg.Add(1)
	go c.receive(l)
	c.mu.Unlock()

	// A concurrent connect may have won the race above.
	if old != nil {
		old.conn.Close()
	}

	c.bridgeM.RecordConnect(c.Name())
	c.Logger().Info("connected", "addr", addr, "conn_id", conn.ConnID())
}

// disconnect closes the current connection without waiting for its
// receive worker, which may be the caller.
func (c *Client) disconnect() {
	c.mu.Lock()
	l := c.link
	c.link = nil
	c.mu.Unlock()

	if l != nil {
		l.conn.Close()
	}
}

// drop clears l if it is still the current connection.
func (c *Client) drop(l *link) {
	c.mu.Lock()
	if c.link == l {
		c.link = nil
	}
	c.mu.Unlock()
	l.conn.Close()
}

func (c *Client) receive(l *link) {
	defer c.wg.Done()
	defer close(l.done)
	defer c.bridgeM.RecordDisconnect(c.Name())
	defer c.drop(l)

	remote := l.conn.RemoteAddr().String()
	for {
		m, err := l.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, transport.ErrConnectionClosed):
				c.Logger().Debug("connection closed", "remote", remote)
			case errors.Is(err, io.EOF):
				c.Logger().Info("server closed connection", "remote", remote)
			default:
				c.Logger().Error("read failed, disconnecting", "remote", remote, "error", err)
			}
			return
		}

		if !m.IsValid() {
			c.bridgeM.RecordInvalidFrame(c.Name())
			c.Logger().Error("invalid frame, disconnecting", "remote", remote, "id", m.ID)
			return
		}
		c.bridgeM.RecordFrameIn(c.Name())

		data := attrs.New()
		data.SetString(AttrID, m.ID)
		data.SetString(AttrData, m.Payload)
		c.Publish(NetworkData, data)

		if c.cfg.InboundByID && m.ID != c.cfg.Outbound {
			byID := attrs.New()
			byID.SetString(AttrData, m.Payload)
			c.Publish(m.ID, byID)
		}
	}
}

func (c *Client) handleOutbound(a attrs.Attributes) error {
	id, err := a.String(AttrID)
	if err != nil {
		return err
	}
	data, err := a.String(AttrData)
	if err != nil {
		return err
	}

	c.mu.Lock()
	connected := c.active && c.link != nil
	outq := c.outq
	c.mu.Unlock()

	if !connected {
		c.bridgeM.RecordDrop(c.Name(), "not_connected")
		c.Logger().Debug("not connected, dropping message", "id", id)
		return nil
	}

	frame, err := wire.Encode(id, data)
	if err != nil {
		return err
	}

	select {
	case outq <- frame:
	default:
		c.bridgeM.RecordDrop(c.Name(), "queue_full")
		c.Logger().Warn("outbound queue full, dropping message", "id", id)
	}
	return nil
}

func (c *Client) outboundWorker(ctx context.Context, outq <-chan []byte) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-outq:
			c.mu.Lock()
			l := c.link
			c.mu.Unlock()

			if l == nil {
				c.bridgeM.RecordDrop(c.Name(), "not_connected")
				continue
			}
			if err := l.conn.Send(frame); err != nil {
				c.bridgeM.RecordDrop(c.Name(), "write_error")
				c.Logger().Error("send failed, disconnecting", "error", err)
				c.drop(l)
				continue
			}
			c.bridgeM.RecordFrameOut(c.Name(), len(frame), 1)
		}
	}
}

var _ component.Component = (*Client)(nil)
