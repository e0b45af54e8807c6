package bridge

import (
	"fmt"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/discovery"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/transport"
)

// Defaults shared by both sides.
const (
	DefaultDiscoveryTimeout = 5 * time.Second
	DefaultRxSizeKB         = 16
	DefaultConnectTimeout   = 5 * time.Second
	DefaultTCPAddress       = "0.0.0.0"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Group is the multicast group (or unicast host) to ping.
	Group         string
	DiscoveryPort int
	Interface     string
	TTL           int
	Loopback      bool

	// TCPPort is the port dialed on every discovered server.
	TCPPort int

	DiscoveryTimeout time.Duration
	MaxServers       int
	MaxMessageSize   int
	ConnectTimeout   time.Duration

	// Outbound is the bus id whose messages are sent to the server.
	Outbound  string
	QueueSize int

	// InboundByID also republishes each inbound frame under its own id,
	// unless that id is Outbound. Off by default: inbound frames only
	// appear as NETWORK_DATA.
	InboundByID bool
}

// ParseClientConfig reads a Client section. multicast.group is required.
func ParseClientConfig(s config.Section) (ClientConfig, error) {
	cfg := ClientConfig{}
	var err error

	if cfg.Group, err = s.RequireString("multicast.group"); err != nil {
		return cfg, err
	}
	if cfg.DiscoveryPort, err = s.Port("multicast.port", discovery.DefaultPort); err != nil {
		return cfg, err
	}
	if cfg.Interface, err = s.String("multicast.interface", ""); err != nil {
		return cfg, err
	}
	if cfg.TTL, err = s.PositiveInt("multicast.ttl", discovery.DefaultMulticastTTL); err != nil {
		return cfg, err
	}
	if cfg.Loopback, err = s.Bool("multicast.loopback", true); err != nil {
		return cfg, err
	}
	if cfg.TCPPort, err = s.Port("server.tcp.port", discovery.DefaultTCPPort); err != nil {
		return cfg, err
	}
	if cfg.DiscoveryTimeout, err = s.Millis("server.max.timeout-ms", DefaultDiscoveryTimeout); err != nil {
		return cfg, err
	}
	kb, err := s.PositiveInt("server.max.rx-size-kb", DefaultRxSizeKB)
	if err != nil {
		return cfg, err
	}
	cfg.MaxMessageSize = kb * 1024
	if cfg.MaxServers, err = s.PositiveInt("server.max.count", discovery.DefaultMaxServers); err != nil {
		return cfg, err
	}
	if cfg.ConnectTimeout, err = s.Millis("server.connect-timeout-ms", DefaultConnectTimeout); err != nil {
		return cfg, err
	}
	if cfg.Outbound, err = s.String("outbound", NetworkBroadcast); err != nil {
		return cfg, err
	}
	if cfg.QueueSize, err = s.PositiveInt("queue", transport.DefaultQueueSize); err != nil {
		return cfg, err
	}
	if cfg.InboundByID, err = s.Bool("inbound.by-id", false); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *ClientConfig) applyDefaults() {
	if c.DiscoveryPort == 0 {
		c.DiscoveryPort = discovery.DefaultPort
	}
	if c.TCPPort == 0 {
		c.TCPPort = discovery.DefaultTCPPort
	}
	if c.DiscoveryTimeout <= 0 {
		c.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if c.MaxServers <= 0 {
		c.MaxServers = discovery.DefaultMaxServers
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultRxSizeKB * 1024
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Outbound == "" {
		c.Outbound = NetworkBroadcast
	}
	if c.QueueSize <= 0 {
		c.QueueSize = transport.DefaultQueueSize
	}
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Group is the multicast group to answer pings on. A unicast address
	// binds a plain UDP socket instead.
	Group string

	// DiscoveryPort and TCPPort may be zero to bind ephemeral ports.
	DiscoveryPort int
	Interface     string

	TCPAddress string
	TCPPort    int

	MaxMessageSize int
	QueueSize      int

	// Subscribe lists the bus ids fanned out to every connection.
	Subscribe []string

	MDNS MDNSConfig
}

// MDNSConfig controls the optional DNS-SD registration.
type MDNSConfig struct {
	Enabled  bool
	Instance string
}

// ParseServerConfig reads a Server section. multicast.group is required.
func ParseServerConfig(name string, s config.Section) (ServerConfig, error) {
	cfg := ServerConfig{}
	var err error

	if cfg.Group, err = s.RequireString("multicast.group"); err != nil {
		return cfg, err
	}
	if cfg.DiscoveryPort, err = s.ListenPort("multicast.port", discovery.DefaultPort); err != nil {
		return cfg, err
	}
	if cfg.Interface, err = s.String("multicast.interface", ""); err != nil {
		return cfg, err
	}
	if cfg.TCPAddress, err = s.String("server.tcp.address", DefaultTCPAddress); err != nil {
		return cfg, err
	}
	if cfg.TCPPort, err = s.ListenPort("server.tcp.port", discovery.DefaultTCPPort); err != nil {
		return cfg, err
	}
	kb, err := s.PositiveInt("server.max.rx-size-kb", DefaultRxSizeKB)
	if err != nil {
		return cfg, err
	}
	cfg.MaxMessageSize = kb * 1024
	if cfg.QueueSize, err = s.PositiveInt("queue", transport.DefaultQueueSize); err != nil {
		return cfg, err
	}
	if cfg.Subscribe, err = s.Strings("subscribe", []string{NetworkBroadcast}); err != nil {
		return cfg, err
	}
	if cfg.MDNS.Enabled, err = s.Bool("mdns.enabled", false); err != nil {
		return cfg, err
	}
	if cfg.MDNS.Instance, err = s.String("mdns.instance", name); err != nil {
		return cfg, err
	}
	if cfg.MDNS.Enabled {
		if err := discovery.ValidateInstanceName(cfg.MDNS.Instance); err != nil {
			return cfg, fmt.Errorf("%w: %s.mdns.instance: %w", config.ErrConfig, s.Path(), err)
		}
	}

	return cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.TCPAddress == "" {
		c.TCPAddress = DefaultTCPAddress
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultRxSizeKB * 1024
	}
	if c.QueueSize <= 0 {
		c.QueueSize = transport.DefaultQueueSize
	}
	if c.Subscribe == nil {
		c.Subscribe = []string{NetworkBroadcast}
	}
}
