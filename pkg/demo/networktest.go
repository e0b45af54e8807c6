package demo

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/bridge"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/timer"
)

// Roles accepted by NetworkTestConfig.RunAs.
const (
	RunAsClient = "client"
	RunAsServer = "server"
)

// NetworkTestConfig configures a NetworkTestApp.
type NetworkTestConfig struct {
	RunAs         string
	UpdatePeriod  time.Duration
	RefreshPeriod time.Duration
}

// ParseNetworkTestConfig reads run-as, update-period-ms and
// refresh-server-list-ms.
func ParseNetworkTestConfig(s config.Section) (NetworkTestConfig, error) {
	var cfg NetworkTestConfig
	var err error

	if cfg.RunAs, err = s.String("run-as", RunAsServer); err != nil {
		return cfg, err
	}
	if cfg.RunAs != RunAsClient && cfg.RunAs != RunAsServer {
		return cfg, fmt.Errorf("%w: %s.run-as: expected %q or %q, got %q",
			config.ErrConfig, s.Path(), RunAsClient, RunAsServer, cfg.RunAs)
	}
	if cfg.UpdatePeriod, err = s.Millis("update-period-ms", 2*time.Second); err != nil {
		return cfg, err
	}
	if cfg.RefreshPeriod, err = s.Millis("refresh-server-list-ms", 10*time.Second); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NetworkTestApp exercises a bridge. It broadcasts "Message N" every
// UpdatePeriod with its role as the frame id, logs NETWORK_DATA, and asks
// the client to connect to the first server of every discovery round. As a
// client it also refreshes the server list every RefreshPeriod.
type NetworkTestApp struct {
	component.Base

	cfg  NetworkTestConfig
	sent atomic.Int64

	mu          sync.Mutex
	active      bool
	timers      []*timer.Handle
	connectedTo int64
}

// NewNetworkTestApp creates the app.
func NewNetworkTestApp(cfg NetworkTestConfig) *NetworkTestApp {
	if cfg.RunAs == "" {
		cfg.RunAs = RunAsServer
	}
	return &NetworkTestApp{cfg: cfg}
}

func (n *NetworkTestApp) Init(env component.Env) error {
	n.Bind(env)
	n.Subscribe(bridge.NetworkData, n.handleData)
	n.Subscribe(bridge.UpdateServerList, n.handleServerList)
	return nil
}

func (n *NetworkTestApp) Start(context.Context) error {
	n.mu.Lock()
	if n.active {
		n.mu.Unlock()
		return nil
	}
	n.active = true

	if n.cfg.RunAs == RunAsClient {
		if err := n.schedule(n.cfg.RefreshPeriod, n.refresh); err != nil {
			n.mu.Unlock()
			return err
		}
	}
	if err := n.schedule(n.cfg.UpdatePeriod, n.broadcast); err != nil {
		n.mu.Unlock()
		return err
	}
	n.mu.Unlock()

	n.refresh()
	return nil
}

// schedule must be called with n.mu held.
func (n *NetworkTestApp) schedule(period time.Duration, fn func()) error {
	h, err := n.Periodic(period, fn)
	if err != nil {
		return err
	}
	n.timers = append(n.timers, h)
	return nil
}

func (n *NetworkTestApp) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, h := range n.timers {
		n.CancelTimer(h)
	}
	n.timers = nil
	n.active = false
	return nil
}

// Sent returns how many broadcasts were published.
func (n *NetworkTestApp) Sent() int64 { return n.sent.Load() }

func (n *NetworkTestApp) refresh() {
	n.Publish(bridge.RefreshServerList, attrs.New())
}

func (n *NetworkTestApp) broadcast() {
	msg := "Message " + strconv.FormatInt(n.sent.Add(1), 10)
	n.Logger().Info("sending message", "role", n.cfg.RunAs, "data", msg)
	n.Publish(bridge.NetworkBroadcast, attrs.Of(
		bridge.AttrID, n.cfg.RunAs,
		bridge.AttrData, msg,
	))
}

func (n *NetworkTestApp) handleData(a attrs.Attributes) error {
	id, _ := a.TryString(bridge.AttrID)
	data, err := a.String(bridge.AttrData)
	if err != nil {
		return err
	}
	n.Logger().Info("network data", "id", id, "data", data)
	return nil
}

// handleServerList connects to server 1 once per discovery round.
func (n *NetworkTestApp) handleServerList(a attrs.Attributes) error {
	updateID, err := a.Int(bridge.AttrUpdateID)
	if err != nil {
		return err
	}

	servers := make([]any, 0, 2*a.Len())
	a.Range(func(key string, v attrs.Value) bool {
		if key != bridge.AttrUpdateID {
			servers = append(servers, key, v.String())
		}
		return true
	})
	n.Logger().Info("server list updated", append([]any{"update_id", updateID}, servers...)...)

	n.mu.Lock()
	if updateID == n.connectedTo {
		n.mu.Unlock()
		return nil
	}
	n.connectedTo = updateID
	n.mu.Unlock()

	n.Publish(bridge.ConnectToServer, attrs.Of(
		bridge.AttrID, 1,
		bridge.AttrUpdateID, updateID,
	))
	return nil
}
