package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/discovery"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/metrics"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/transport"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/version"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/wire"
)

// Server is the network server component. It answers discovery pings,
// accepts TCP clients, republishes their frames on the bus and fans out
// the subscribed bus ids to every client.
type Server struct {
	component.Base

	cfg     ServerConfig
	bridgeM *metrics.BridgeMetrics

	tserver    *transport.Server
	responder  *discovery.Responder
	advertiser *discovery.MDNSAdvertiser

	mu     sync.Mutex
	active bool
}

// NewServer creates a server from cfg.
func NewServer(cfg ServerConfig) *Server {
	cfg.applyDefaults()
	return &Server{cfg: cfg}
}

// Config returns the effective configuration.
func (s *Server) Config() ServerConfig { return s.cfg }

// Init builds the listeners and subscribes to the fan-out ids.
func (s *Server) Init(env component.Env) error {
	s.Bind(env)
	s.bridgeM = env.Metrics.BridgeOrNil()

	s.tserver = transport.NewServer(transport.ServerConfig{
		Address:        net.JoinHostPort(s.cfg.TCPAddress, strconv.Itoa(s.cfg.TCPPort)),
		MaxMessageSize: s.cfg.MaxMessageSize,
		QueueSize:      s.cfg.QueueSize,
		Logger:         env.ProtocolLogger,
		Component:      env.Name,
		OnConnect:      s.onConnect,
		OnDisconnect:   s.onDisconnect,
		OnMessage:      s.onMessage,
		OnError:        s.onError,
	})

	s.responder = discovery.NewResponder(discovery.ResponderConfig{
		Group:          s.cfg.Group,
		Port:           s.cfg.DiscoveryPort,
		Interface:      s.cfg.Interface,
		Logger:         s.Logger(),
		ProtocolLogger: env.ProtocolLogger,
		Component:      env.Name,
	})

	if s.cfg.MDNS.Enabled {
		s.advertiser = discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: s.cfg.Interface,
		})
	}

	for _, id := range s.cfg.Subscribe {
		s.Subscribe(id, s.fanOut(id))
	}
	return nil
}

// Start binds the TCP listener, then the discovery socket. A bind failure
// of either is returned and leaves nothing running.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil
	}

	if err := s.tserver.Start(ctx); err != nil {
		return err
	}
	if err := s.responder.Start(); err != nil {
		s.tserver.Stop()
		return err
	}
	s.active = true

	if s.advertiser != nil {
		s.advertise()
	}

	s.Logger().Info("server started",
		"tcp", s.tserver.Addr().String(),
		"discovery", s.responder.Addr().String(),
		"subscribe", s.cfg.Subscribe)
	return nil
}

// advertise registers the DNS-SD record. Failures only log: ping/pong
// discovery keeps working without it.
func (s *Server) advertise() {
	tcp, ok := s.tserver.Addr().(*net.TCPAddr)
	if !ok {
		return
	}
	info := &discovery.ServerInfo{
		InstanceName:  s.cfg.MDNS.Instance,
		TCPPort:       uint16(tcp.Port),
		Group:         s.cfg.Group,
		DiscoveryPort: uint16(s.responder.Addr().Port),
		Version:       version.Protocol,
	}
	if err := s.advertiser.Advertise(info); err != nil {
		s.Logger().Warn("mdns registration failed", "instance", info.InstanceName, "error", err)
		return
	}
	s.Logger().Info("mdns registered", "instance", info.InstanceName, "service", discovery.ServiceType)
}

// Stop withdraws the DNS-SD record, closes the discovery socket and the
// listener, and closes every connection. It is idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	s.active = false

	if s.advertiser != nil {
		s.advertiser.Stop()
	}
	s.responder.Stop()
	if err := s.tserver.Stop(); err != nil {
		return fmt.Errorf("stop tcp server: %w", err)
	}

	s.Logger().Info("server stopped")
	return nil
}

// TCPAddr returns the bound TCP address, or nil before Start.
func (s *Server) TCPAddr() net.Addr {
	if s.tserver == nil {
		return nil
	}
	return s.tserver.Addr()
}

// DiscoveryAddr returns the bound discovery address, or nil before Start.
func (s *Server) DiscoveryAddr() *net.UDPAddr {
	if s.responder == nil {
		return nil
	}
	return s.responder.Addr()
}

// ConnectionCount returns the number of live connections.
func (s *Server) ConnectionCount() int {
	if s.tserver == nil {
		return 0
	}
	return s.tserver.ConnectionCount()
}

// fanOut returns the handler that sends the data of every id message to
// every live connection. The frame is encoded once.
func (s *Server) fanOut(id string) func(attrs.Attributes) error {
	return func(a attrs.Attributes) error {
		data, err := a.String(AttrData)
		if err != nil {
			return err
		}
		frame, err := wire.Encode(id, data)
		if err != nil {
			return err
		}

		n := s.tserver.Broadcast(frame)
		s.bridgeM.RecordFrameOut(s.Name(), len(frame), n)
		return nil
	}
}

func (s *Server) onConnect(c *transport.ServerConn) {
	s.bridgeM.RecordConnect(s.Name())
	s.Logger().Info("client connected", "conn_id", c.ConnID(), "remote", c.RemoteAddr().String())
}

func (s *Server) onDisconnect(c *transport.ServerConn, err error) {
	s.bridgeM.RecordDisconnect(s.Name())
	if err != nil {
		s.Logger().Warn("client disconnected", "conn_id", c.ConnID(), "error", err)
		return
	}
	s.Logger().Info("client disconnected", "conn_id", c.ConnID())
}

func (s *Server) onMessage(c *transport.ServerConn, m *wire.Message) {
	if !m.IsValid() {
		s.bridgeM.RecordInvalidFrame(s.Name())
		s.Logger().Warn("skipping invalid frame", "conn_id", c.ConnID(), "id", m.ID)
		return
	}
	s.bridgeM.RecordFrameIn(s.Name())

	data := attrs.New()
	data.SetString(AttrData, m.Payload)
	s.Publish(m.ID, data)
}

func (s *Server) onError(c *transport.ServerConn, err error) {
	if c == nil {
		s.Logger().Warn("accept failed", "error", err)
		return
	}
	if errors.Is(err, transport.ErrQueueFull) {
		s.bridgeM.RecordDrop(s.Name(), "queue_full")
	} else {
		s.bridgeM.RecordDrop(s.Name(), "write_error")
	}
	s.Logger().Warn("send failed", "conn_id", c.ConnID(), "error", err)
}

var _ component.Component = (*Server)(nil)
