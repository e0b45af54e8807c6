package bridge_test

import (
	"context"
	"io"
	"net"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/bridge"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/bus"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/discovery"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/logging"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/wire"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// recorder keeps every message published under a set of ids.
type recorder struct {
	mu   sync.Mutex
	msgs map[string][]attrs.Attributes
}

func record(b *bus.Bus, ids ...string) *recorder {
	r := &recorder{msgs: make(map[string][]attrs.Attributes)}
	for _, id := range ids {
		b.Subscribe(id, func(a attrs.Attributes) error {
			r.mu.Lock()
			r.msgs[id] = append(r.msgs[id], a)
			r.mu.Unlock()
			return nil
		})
	}
	return r
}

func (r *recorder) get(id string) []attrs.Attributes {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]attrs.Attributes(nil), r.msgs[id]...)
}

// handlerErrors collects bus handler failures.
type handlerErrors struct {
	mu   sync.Mutex
	errs []*bus.HandlerError
}

func (h *handlerErrors) hook(err *bus.HandlerError) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *handlerErrors) get() []*bus.HandlerError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*bus.HandlerError(nil), h.errs...)
}

type node struct {
	rt   *component.Runtime
	rec  *recorder
	errs *handlerErrors
}

// startNode runs c as the only component of a fresh runtime. ids are
// recorded from before Start.
func startNode(t *testing.T, name, kind string, c component.Component, ids ...string) *node {
	t.Helper()

	errs := &handlerErrors{}
	b := bus.New(bus.WithLogger(logging.Discard()), bus.WithErrorHook(errs.hook))
	rt := component.NewRuntime(component.NewRegistry(),
		component.WithBus(b),
		component.WithLogger(logging.Discard()),
	)
	require.NoError(t, rt.Add(name, kind, c))
	rec := record(b, ids...)

	require.NoError(t, rt.Init())
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() { rt.Stop() })

	return &node{rt: rt, rec: rec, errs: errs}
}

func startBridgeServer(t *testing.T, ids ...string) (*bridge.Server, *node) {
	t.Helper()
	srv := bridge.NewServer(bridge.ServerConfig{
		Group:      "127.0.0.1",
		TCPAddress: "127.0.0.1",
	})
	return srv, startNode(t, "server", bridge.KindServer, srv, ids...)
}

func tcpPort(t *testing.T, addr net.Addr) int {
	t.Helper()
	tcp, ok := addr.(*net.TCPAddr)
	require.True(t, ok, "not a TCP address: %v", addr)
	return tcp.Port
}

func clientConfig(discoveryPort, tcpPort int) bridge.ClientConfig {
	return bridge.ClientConfig{
		Group:            "127.0.0.1",
		DiscoveryPort:    discoveryPort,
		TCPPort:          tcpPort,
		DiscoveryTimeout: 500 * time.Millisecond,
		MaxServers:       1,
		ConnectTimeout:   time.Second,
	}
}

func startBridgeClient(t *testing.T, cfg bridge.ClientConfig, ids ...string) (*bridge.Client, *node) {
	t.Helper()
	c := bridge.NewClient(cfg)
	return c, startNode(t, "client", bridge.KindClient, c, ids...)
}

// waitServerList waits for the n-th UPDATE_SERVER_LIST of the client.
func waitServerList(t *testing.T, n *node, count int) attrs.Attributes {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(n.rec.get(bridge.UpdateServerList)) >= count
	}, waitFor, tick)
	return n.rec.get(bridge.UpdateServerList)[count-1]
}

func connectTo(n *node, index, updateID int64) {
	n.rt.Bus().Publish(bridge.ConnectToServer, attrs.Of(
		bridge.AttrID, index,
		bridge.AttrUpdateID, updateID,
	))
}

func TestEndToEnd(t *testing.T) {
	srv, sn := startBridgeServer(t, "client")
	c, cn := startBridgeClient(t,
		clientConfig(srv.DiscoveryAddr().Port, tcpPort(t, srv.TCPAddr())),
		bridge.UpdateServerList, bridge.NetworkData)

	list := waitServerList(t, cn, 1)
	assert.Equal(t, "127.0.0.1", attrString(t, list, "1"))
	assert.Equal(t, int64(1), attrInt(t, list, bridge.AttrUpdateID))
	assert.Equal(t, []string{"127.0.0.1"}, c.Servers())

	connectTo(cn, 1, 1)
	require.Eventually(t, func() bool {
		return srv.ConnectionCount() == 1 && c.State() == bridge.ClientConnected
	}, waitFor, tick)

	// Server to client.
	sn.rt.Bus().Publish(bridge.NetworkBroadcast, attrs.Of(bridge.AttrData, "hello"))
	require.Eventually(t, func() bool { return len(cn.rec.get(bridge.NetworkData)) == 1 }, waitFor, tick)
	got := cn.rec.get(bridge.NetworkData)[0]
	assert.Equal(t, bridge.NetworkBroadcast, attrString(t, got, bridge.AttrID))
	assert.Equal(t, "hello", attrString(t, got, bridge.AttrData))

	// Client to server, republished under the frame id.
	cn.rt.Bus().Publish(bridge.NetworkBroadcast, attrs.Of(
		bridge.AttrID, "client",
		bridge.AttrData, "Message 1",
	))
	require.Eventually(t, func() bool { return len(sn.rec.get("client")) == 1 }, waitFor, tick)
	assert.Equal(t, "Message 1", attrString(t, sn.rec.get("client")[0], bridge.AttrData))

	assert.Empty(t, sn.errs.get())
	assert.Empty(t, cn.errs.get())
}

func TestClientRepublishesByID(t *testing.T) {
	srv := bridge.NewServer(bridge.ServerConfig{
		Group:      "127.0.0.1",
		TCPAddress: "127.0.0.1",
		Subscribe:  []string{"TEMP"},
	})
	sn := startNode(t, "server", bridge.KindServer, srv)
	cc := clientConfig(srv.DiscoveryAddr().Port, tcpPort(t, srv.TCPAddr()))
	cc.InboundByID = true
	c, cn := startBridgeClient(t, cc, bridge.UpdateServerList, bridge.NetworkData, "TEMP")

	waitServerList(t, cn, 1)
	connectTo(cn, 1, 1)
	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, waitFor, tick)

	sn.rt.Bus().Publish("TEMP", attrs.Of(bridge.AttrData, "21.5"))

	require.Eventually(t, func() bool { return len(cn.rec.get("TEMP")) == 1 }, waitFor, tick)
	assert.Equal(t, "21.5", attrString(t, cn.rec.get("TEMP")[0], bridge.AttrData))
	assert.Len(t, cn.rec.get(bridge.NetworkData), 1)
	assert.Equal(t, bridge.ClientConnected, c.State())
}

func TestClientPublishesOnlyNetworkDataByDefault(t *testing.T) {
	srv := bridge.NewServer(bridge.ServerConfig{
		Group:      "127.0.0.1",
		TCPAddress: "127.0.0.1",
		Subscribe:  []string{"TEMP"},
	})
	sn := startNode(t, "server", bridge.KindServer, srv)
	_, cn := startBridgeClient(t,
		clientConfig(srv.DiscoveryAddr().Port, tcpPort(t, srv.TCPAddr())),
		bridge.UpdateServerList, bridge.NetworkData, "TEMP")

	waitServerList(t, cn, 1)
	connectTo(cn, 1, 1)
	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, waitFor, tick)

	sn.rt.Bus().Publish("TEMP", attrs.Of(bridge.AttrData, "21.5"))

	require.Eventually(t, func() bool { return len(cn.rec.get(bridge.NetworkData)) == 1 }, waitFor, tick)
	assert.Equal(t, "TEMP", attrString(t, cn.rec.get(bridge.NetworkData)[0], bridge.AttrID))
	assert.Empty(t, cn.rec.get("TEMP"))
}

func TestServerSkipsInvalidFrames(t *testing.T) {
	srv, sn := startBridgeServer(t, "temp")

	conn, err := net.Dial("tcp", srv.TCPAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	bad, err := wire.Encode("temp", "corrupt")
	require.NoError(t, err)
	bad[len(bad)-1] ^= 0xFF
	good, err := wire.Encode("temp", "21")
	require.NoError(t, err)

	_, err = conn.Write(append(bad, good...))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(sn.rec.get("temp")) == 1 }, waitFor, tick)
	assert.Equal(t, "21", attrString(t, sn.rec.get("temp")[0], bridge.AttrData))

	// The connection survives the bad frame.
	assert.Equal(t, 1, srv.ConnectionCount())
	_, err = conn.Write(good)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sn.rec.get("temp")) == 2 }, waitFor, tick)
}

func TestServerFansOutToEveryConnection(t *testing.T) {
	srv, sn := startBridgeServer(t)

	var conns []net.Conn
	for range 3 {
		conn, err := net.Dial("tcp", srv.TCPAddr().String())
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		conns = append(conns, conn)
	}
	require.Eventually(t, func() bool { return srv.ConnectionCount() == 3 }, waitFor, tick)

	sn.rt.Bus().Publish(bridge.NetworkBroadcast, attrs.Of(bridge.AttrData, "all"))

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
		m, err := wire.Read(conn, 0)
		require.NoError(t, err)
		assert.True(t, m.IsValid())
		assert.Equal(t, bridge.NetworkBroadcast, m.ID)
		assert.Equal(t, "all", m.Payload)
	}

	// A message without data is a handler error, not a send.
	sn.rt.Bus().Publish(bridge.NetworkBroadcast, attrs.New())
	require.Len(t, sn.errs.get(), 1)
	assert.Equal(t, bridge.NetworkBroadcast, sn.errs.get()[0].ID)
}

// fakeTCPServer accepts one connection and hands it to fn.
func fakeTCPServer(t *testing.T, fn func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
	return tcpPort(t, ln.Addr())
}

func startResponder(t *testing.T) *discovery.Responder {
	t.Helper()
	r := discovery.NewResponder(discovery.ResponderConfig{Group: "127.0.0.1", Logger: logging.Discard()})
	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)
	return r
}

func TestClientDisconnectsOnInvalidFrame(t *testing.T) {
	r := startResponder(t)

	first, _ := wire.Encode("a", "1")
	bad, _ := wire.Encode("b", "2")
	bad[len(bad)-1] ^= 0x01
	last, _ := wire.Encode("c", "3")

	closed := make(chan struct{})
	port := fakeTCPServer(t, func(conn net.Conn) {
		conn.Write(first)
		conn.Write(bad)
		conn.Write(last)
		conn.SetReadDeadline(time.Now().Add(waitFor))
		io.Copy(io.Discard, conn)
		close(closed)
	})

	c, cn := startBridgeClient(t, clientConfig(r.Addr().Port, port), bridge.UpdateServerList, bridge.NetworkData)
	waitServerList(t, cn, 1)
	connectTo(cn, 1, 1)

	select {
	case <-closed:
	case <-time.After(2 * waitFor):
		t.Fatal("client did not close the connection")
	}

	msgs := cn.rec.get(bridge.NetworkData)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", attrString(t, msgs[0], bridge.AttrID))
	assert.Eventually(t, func() bool { return c.State() == bridge.ClientIdle }, waitFor, tick)
}

func TestClientDisconnectsOnServerClose(t *testing.T) {
	r := startResponder(t)
	port := fakeTCPServer(t, func(net.Conn) {})

	c, cn := startBridgeClient(t, clientConfig(r.Addr().Port, port), bridge.UpdateServerList)
	waitServerList(t, cn, 1)
	connectTo(cn, 1, 1)

	assert.Eventually(t, func() bool { return c.State() == bridge.ClientIdle }, waitFor, tick)
	assert.Nil(t, c.RemoteAddr())
}

// multiSourceServer answers each ping with two pongs from 127.0.0.1 and
// one from each extra address.
func multiSourceServer(t *testing.T, extra ...string) int {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var senders []*net.UDPConn
	for _, ip := range extra {
		s, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP(ip)})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		senders = append(senders, s)
	}

	go func() {
		buf := make([]byte, 64)
		for {
			_, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			conn.WriteToUDP([]byte("pong"), from)
			conn.WriteToUDP([]byte("pong"), from)
			for _, s := range senders {
				s.WriteToUDP([]byte("pong"), from)
			}
		}
	}()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func TestDiscoveryDeduplicates(t *testing.T) {
	port := multiSourceServer(t)

	cfg := clientConfig(port, 3000)
	cfg.MaxServers = 2
	cfg.DiscoveryTimeout = 300 * time.Millisecond
	c, cn := startBridgeClient(t, cfg, bridge.UpdateServerList)

	require.Eventually(t, func() bool { return c.State() == bridge.ClientIdle }, waitFor, tick)
	assert.Len(t, cn.rec.get(bridge.UpdateServerList), 1)
	assert.Equal(t, []string{"127.0.0.1"}, c.Servers())
}

func TestDiscoveryListsEveryServer(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs the whole 127.0.0.0/8 range on loopback")
	}
	port := multiSourceServer(t, "127.0.0.2", "127.0.0.3")

	cfg := clientConfig(port, 3000)
	cfg.MaxServers = 3
	c, cn := startBridgeClient(t, cfg, bridge.UpdateServerList)

	third := waitServerList(t, cn, 3)
	assert.Equal(t, 4, third.Len(), "update_id plus three servers")
	assert.ElementsMatch(t,
		[]string{"127.0.0.1", "127.0.0.2", "127.0.0.3"},
		[]string{attrString(t, third, "1"), attrString(t, third, "2"), attrString(t, third, "3")})

	first := cn.rec.get(bridge.UpdateServerList)[0]
	assert.Equal(t, 2, first.Len())
	assert.Len(t, c.Servers(), 3)
}

func TestConnectIgnoresStaleRequests(t *testing.T) {
	srv, _ := startBridgeServer(t)
	c, cn := startBridgeClient(t,
		clientConfig(srv.DiscoveryAddr().Port, tcpPort(t, srv.TCPAddr())),
		bridge.UpdateServerList)
	waitServerList(t, cn, 1)

	connectTo(cn, 1, 99)
	connectTo(cn, 2, 1)
	connectTo(cn, 0, 1)
	assert.Never(t, func() bool { return srv.ConnectionCount() > 0 }, 100*time.Millisecond, tick)
	assert.Equal(t, bridge.ClientIdle, c.State())

	// update_id is optional.
	cn.rt.Bus().Publish(bridge.ConnectToServer, attrs.Of(bridge.AttrID, 1))
	assert.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, waitFor, tick)

	// A request without an index is malformed.
	cn.rt.Bus().Publish(bridge.ConnectToServer, attrs.New())
	require.Len(t, cn.errs.get(), 1)
	assert.Equal(t, bridge.ConnectToServer, cn.errs.get()[0].ID)
}

func TestConnectFailureIsContained(t *testing.T) {
	r := startResponder(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := tcpPort(t, ln.Addr())
	ln.Close()

	c, cn := startBridgeClient(t, clientConfig(r.Addr().Port, port), bridge.UpdateServerList)
	waitServerList(t, cn, 1)
	connectTo(cn, 1, 1)

	assert.Empty(t, cn.errs.get())
	assert.Nil(t, c.RemoteAddr())
}

func TestOutboundWithoutConnection(t *testing.T) {
	cfg := clientConfig(1, 3000)
	cfg.DiscoveryTimeout = 50 * time.Millisecond
	c, cn := startBridgeClient(t, cfg)

	cn.rt.Bus().Publish(bridge.NetworkBroadcast, attrs.Of(bridge.AttrID, "x", bridge.AttrData, "y"))
	assert.Empty(t, cn.errs.get())
	assert.NotEqual(t, bridge.ClientConnected, c.State())

	cn.rt.Bus().Publish(bridge.NetworkBroadcast, attrs.Of(bridge.AttrID, "x"))
	require.Len(t, cn.errs.get(), 1)
}

func TestRefreshWhileDiscoveringIsIgnored(t *testing.T) {
	cfg := clientConfig(1, 3000)
	cfg.DiscoveryTimeout = time.Second
	c, cn := startBridgeClient(t, cfg)

	require.Eventually(t, func() bool { return c.UpdateID() == 1 }, waitFor, tick)
	require.Equal(t, bridge.ClientDiscovering, c.State())

	cn.rt.Bus().Publish(bridge.RefreshServerList, attrs.New())
	c.RefreshServerList()
	assert.Equal(t, int64(1), c.UpdateID())

	require.Eventually(t, func() bool { return c.State() == bridge.ClientIdle }, 2*waitFor, tick)
	cn.rt.Bus().Publish(bridge.RefreshServerList, attrs.New())
	assert.Eventually(t, func() bool { return c.UpdateID() == 2 }, waitFor, tick)
}

func TestClientStopIsIdempotent(t *testing.T) {
	cfg := clientConfig(1, 3000)
	cfg.DiscoveryTimeout = time.Minute
	c, _ := startBridgeClient(t, cfg)

	require.Eventually(t, func() bool { return c.State() == bridge.ClientDiscovering }, waitFor, tick)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, c.Stop())
		assert.NoError(t, c.Stop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Stop did not cancel the discovery round")
	}
	assert.Equal(t, bridge.ClientIdle, c.State())

	// Refresh after Stop does nothing.
	c.RefreshServerList()
	assert.Equal(t, int64(1), c.UpdateID())
}

func TestServerStopIsIdempotent(t *testing.T) {
	srv, _ := startBridgeServer(t)

	conn, err := net.Dial("tcp", srv.TCPAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, waitFor, tick)

	require.NoError(t, srv.Stop())
	require.NoError(t, srv.Stop())
	assert.Equal(t, 0, srv.ConnectionCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err, "connection should be closed by Stop")
}

func TestServerBindFailure(t *testing.T) {
	t.Run("tcp", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		srv := bridge.NewServer(bridge.ServerConfig{
			Group:      "127.0.0.1",
			TCPAddress: "127.0.0.1",
			TCPPort:    tcpPort(t, ln.Addr()),
		})
		assertStartFails(t, srv)
	})

	t.Run("discovery", func(t *testing.T) {
		udp, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		require.NoError(t, err)
		defer udp.Close()

		srv := bridge.NewServer(bridge.ServerConfig{
			Group:         "127.0.0.1",
			DiscoveryPort: udp.LocalAddr().(*net.UDPAddr).Port,
			TCPAddress:    "127.0.0.1",
		})
		assertStartFails(t, srv)
	})
}

func assertStartFails(t *testing.T, srv *bridge.Server) {
	t.Helper()
	rt := component.NewRuntime(component.NewRegistry(), component.WithLogger(logging.Discard()))
	require.NoError(t, rt.Add("server", bridge.KindServer, srv))
	require.NoError(t, rt.Init())

	err := rt.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"server"`)
	assert.NoError(t, rt.Stop())
}

func attrString(t *testing.T, a attrs.Attributes, key string) string {
	t.Helper()
	v, err := a.String(key)
	require.NoError(t, err)
	return v
}

func attrInt(t *testing.T, a attrs.Attributes, key string) int64 {
	t.Helper()
	v, err := a.Int(key)
	require.NoError(t, err)
	return v
}
