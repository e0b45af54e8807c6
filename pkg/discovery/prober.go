package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

// ProbeConfig describes one discovery round.
type ProbeConfig struct {
	// Address is the multicast group, or a unicast host for tests.
	Address string
	Port    int

	// MaxServers ends the round early once this many distinct servers
	// answered. Zero means wait for the context.
	MaxServers int

	// TTL is the multicast hop limit (default 1).
	TTL int

	// Loopback delivers the ping to responders on this host.
	Loopback bool

	// Interface selects the outgoing multicast interface.
	Interface string

	// UpdateID tags the round in protocol capture.
	UpdateID int64
}

// Prober sends pings and collects pong senders. The zero value is usable.
type Prober struct {
	Logger         *slog.Logger
	ProtocolLogger log.Logger
	Component      string
}

// Probe runs one round. onFound is called once per distinct server IP, in
// arrival order, with the 1-based index of the server in this round. The
// round ends when MaxServers is reached or ctx is done; the latter closes
// the socket and is not an error. The IPs found are returned.
func (p *Prober) Probe(ctx context.Context, cfg ProbeConfig, onFound func(ip string, index int)) ([]string, error) {
	ip := net.ParseIP(cfg.Address)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, cfg.Address)
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	dst := &net.UDPAddr{IP: ip, Port: cfg.Port}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("discovery socket: %w", err)
	}
	defer conn.Close()

	if ip.IsMulticast() {
		if err := p.setMulticastOptions(conn, cfg, ip); err != nil {
			return nil, err
		}
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := conn.WriteToUDP([]byte(PingMessage), dst); err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("send ping to %s: %w", dst, err)
	}
	logDatagram(p.ProtocolLogger, p.Component, log.RoleClient, log.DirectionOut, log.DiscoveryPing, dst, cfg.UpdateID, 0)

	seen := make(map[string]struct{})
	var found []string
	buf := make([]byte, datagramSize)

	for cfg.MaxServers <= 0 || len(found) < cfg.MaxServers {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return found, nil
			}
			return found, fmt.Errorf("discovery read: %w", err)
		}
		if !IsPong(buf[:n]) {
			p.logger().Debug("ignoring datagram", "from", from.String(), "size", n)
			continue
		}

		addr := from.IP.String()
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		found = append(found, addr)

		logDatagram(p.ProtocolLogger, p.Component, log.RoleClient, log.DirectionIn, log.DiscoveryPong, from, cfg.UpdateID, len(found))
		p.logger().Debug("server found", "addr", addr, "index", len(found))

		if onFound != nil {
			onFound(addr, len(found))
		}
	}
	return found, nil
}

// setMulticastOptions sets hop limit, loopback and interface, then joins
// the group. A failed join is only logged: responders answer with unicast
// pongs, so the round still works without membership.
func (p *Prober) setMulticastOptions(conn *net.UDPConn, cfg ProbeConfig, group net.IP) error {
	pc := ipv4.NewPacketConn(conn)

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultMulticastTTL
	}
	if err := pc.SetMulticastTTL(ttl); err != nil {
		return fmt.Errorf("multicast ttl: %w", err)
	}
	if err := pc.SetMulticastLoopback(cfg.Loopback); err != nil {
		return fmt.Errorf("multicast loopback: %w", err)
	}

	var ifi *net.Interface
	if cfg.Interface != "" {
		var err error
		if ifi, err = net.InterfaceByName(cfg.Interface); err != nil {
			return fmt.Errorf("discovery interface %s: %w", cfg.Interface, err)
		}
		if err := pc.SetMulticastInterface(ifi); err != nil {
			return fmt.Errorf("multicast interface: %w", err)
		}
	}

	if err := joinGroup(pc, ifi, group); err != nil {
		p.logger().Warn("multicast join failed", "group", group.String(), "error", err)
	}
	return nil
}

// joinGroup makes pc a member of group on ifi (nil: the system default).
// Membership ends when the socket is closed.
func joinGroup(pc *ipv4.PacketConn, ifi *net.Interface, group net.IP) error {
	return pc.JoinGroup(ifi, &net.UDPAddr{IP: group})
}

func (p *Prober) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
