package discovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/connection"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

// ResponderConfig configures a Responder.
type ResponderConfig struct {
	// Group is the multicast group to join. A unicast address binds a plain
	// UDP socket on that address instead.
	Group string

	// Port is the UDP port. Zero picks an ephemeral port.
	Port int

	// Interface selects the interface for the multicast join. Empty lets
	// the system choose.
	Interface string

	Logger         *slog.Logger
	ProtocolLogger log.Logger
	Component      string

	// OnPing is called after each pong is sent.
	OnPing func(from *net.UDPAddr)
}

// Responder answers discovery pings with pongs until stopped.
type Responder struct {
	config ResponderConfig
	logger *slog.Logger

	mu      sync.Mutex
	conn    *net.UDPConn
	running bool
	wg      sync.WaitGroup

	served atomic.Uint64
}

// NewResponder creates a responder. It does not bind until Start.
func NewResponder(config ResponderConfig) *Responder {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{config: config, logger: logger}
}

// Start binds the socket and starts answering. Bind failures are returned.
func (r *Responder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyStarted
	}

	ip := net.ParseIP(r.config.Group)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, r.config.Group)
	}
	addr := &net.UDPAddr{IP: ip, Port: r.config.Port}

	var (
		conn *net.UDPConn
		err  error
	)
	if ip.IsMulticast() {
		var ifi *net.Interface
		if r.config.Interface != "" {
			if ifi, err = net.InterfaceByName(r.config.Interface); err != nil {
				return fmt.Errorf("discovery interface %s: %w", r.config.Interface, err)
			}
		}
		conn, err = net.ListenMulticastUDP("udp4", ifi, addr)
	} else {
		conn, err = net.ListenUDP("udp4", addr)
	}
	if err != nil {
		return fmt.Errorf("discovery listen %s: %w", net.JoinHostPort(r.config.Group, strconv.Itoa(r.config.Port)), err)
	}

	r.conn = conn
	r.running = true

	r.wg.Add(1)
	go r.serve(conn)

	r.logger.Debug("discovery responder started", "addr", conn.LocalAddr().String(), "multicast", ip.IsMulticast())
	return nil
}

// Stop closes the socket and waits for the receive loop to exit.
func (r *Responder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.conn.Close()
	r.mu.Unlock()

	r.wg.Wait()
}

// Addr returns the bound address, or nil when not started.
func (r *Responder) Addr() *net.UDPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// Served returns how many pings have been answered.
func (r *Responder) Served() uint64 {
	return r.served.Load()
}

func (r *Responder) serve(conn *net.UDPConn) {
	defer r.wg.Done()

	backoff := connection.NewBackoffWithConfig(connection.BackoffConfig{
		Initial: 10 * time.Millisecond,
		Max:     time.Second,
	})
	buf := make([]byte, datagramSize)
	pong := []byte(PongMessage)

	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Warn("discovery read failed", "error", err)
			time.Sleep(backoff.Next())
			continue
		}
		backoff.Reset()

		if !IsPing(buf[:n]) {
			r.logger.Debug("ignoring datagram", "from", from.String(), "size", n)
			continue
		}
		logDatagram(r.config.ProtocolLogger, r.config.Component, log.RoleServer, log.DirectionIn, log.DiscoveryPing, from, 0, 0)

		if _, err := conn.WriteToUDP(pong, from); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Warn("pong failed", "to", from.String(), "error", err)
			continue
		}
		r.served.Add(1)
		logDatagram(r.config.ProtocolLogger, r.config.Component, log.RoleServer, log.DirectionOut, log.DiscoveryPong, from, 0, 0)
		r.logger.Debug("answered ping", "from", from.String())

		if r.config.OnPing != nil {
			r.config.OnPing(from)
		}
	}
}
