package discovery

import (
	"bytes"
	"errors"
	"time"
)

// Datagram payloads.
const (
	PingMessage = "ping"
	PongMessage = "pong"
)

// Defaults.
const (
	// DefaultPort is the UDP discovery port.
	DefaultPort = 5000

	// DefaultTCPPort is the bridge server's TCP port.
	DefaultTCPPort = 3000

	// DefaultMaxServers bounds a probe round.
	DefaultMaxServers = 2

	// DefaultMulticastTTL keeps pings on the local segment.
	DefaultMulticastTTL = 1

	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second

	// datagramSize is the receive buffer for ping/pong datagrams. Anything
	// longer is truncated, which is harmless since only the prefix matters.
	datagramSize = 64
)

// DNS-SD constants.
const (
	// ServiceType is the DNS-SD service type of a bridge server.
	ServiceType = "_breadcrumbs._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyGroup         = "group" // Multicast group used for ping/pong
	TXTKeyDiscoveryPort = "dport" // UDP discovery port
	TXTKeyVersion       = "v"     // Software version (optional)
)

// Errors.
var (
	ErrInvalidAddress      = errors.New("discovery: invalid address")
	ErrAlreadyStarted      = errors.New("discovery: already started")
	ErrInvalidTXTRecord    = errors.New("discovery: invalid TXT record")
	ErrMissingRequired     = errors.New("discovery: missing required field")
	ErrInstanceNameTooLong = errors.New("discovery: instance name exceeds 63 characters")
	ErrNotAdvertising      = errors.New("discovery: not advertising")
)

// ServerInfo is what a bridge server publishes over DNS-SD.
type ServerInfo struct {
	// InstanceName is the DNS-SD instance label.
	InstanceName string

	// TCPPort is the framed protocol port.
	TCPPort uint16

	// Group and DiscoveryPort describe the ping/pong endpoint.
	Group         string
	DiscoveryPort uint16

	Version string
}

// Validate checks the fields needed for registration.
func (i *ServerInfo) Validate() error {
	if err := ValidateInstanceName(i.InstanceName); err != nil {
		return err
	}
	if i.TCPPort == 0 {
		return ErrMissingRequired
	}
	return nil
}

// ServerService is a bridge server seen by an MDNSBrowser.
type ServerService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	Group         string
	DiscoveryPort uint16
	Version       string
}

// IsPing reports whether a datagram is a discovery request.
func IsPing(b []byte) bool {
	return bytes.HasPrefix(b, []byte(PingMessage))
}

// IsPong reports whether a datagram is a discovery reply.
func IsPong(b []byte) bool {
	return bytes.HasPrefix(b, []byte(PongMessage))
}
