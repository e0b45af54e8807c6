package bridge

import (
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
)

// Bus message ids used by the bridge.
const (
	// RefreshServerList starts a discovery round on every client.
	RefreshServerList = "REFRESH_SERVER_LIST"

	// UpdateServerList is published by a client once per newly found server.
	// It carries AttrUpdateID and "1".."n" mapped to the server addresses
	// found so far in the round.
	UpdateServerList = "UPDATE_SERVER_LIST"

	// ConnectToServer asks a client to connect to the server with 1-based
	// index AttrID from round AttrUpdateID.
	ConnectToServer = "CONNECT_TO_SERVER"

	// NetworkBroadcast carries AttrID and AttrData to send over the network.
	NetworkBroadcast = "NETWORK_BROADCAST"

	// NetworkData carries AttrID and AttrData received by a client.
	NetworkData = "NETWORK_DATA"
)

// Attribute keys.
const (
	AttrID       = "id"
	AttrData     = "data"
	AttrUpdateID = "update_id"
)

// Component kinds.
const (
	KindClient = "Client"
	KindServer = "Server"
)

// Register adds the Client and Server kinds to reg.
func Register(reg *component.Registry) error {
	if err := reg.Register(KindClient, func(name string, s config.Section) (component.Component, error) {
		cfg, err := ParseClientConfig(s)
		if err != nil {
			return nil, err
		}
		return NewClient(cfg), nil
	}); err != nil {
		return err
	}

	return reg.Register(KindServer, func(name string, s config.Section) (component.Component, error) {
		cfg, err := ParseServerConfig(name, s)
		if err != nil {
			return nil, err
		}
		return NewServer(cfg), nil
	})
}
