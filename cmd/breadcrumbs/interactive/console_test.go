package interactive

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/bridge"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/componentregistry"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/demo"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/logging"
)

func newConsole(t *testing.T) (*Console, *component.Runtime, *bytes.Buffer) {
	t.Helper()
	reg, err := componentregistry.New()
	require.NoError(t, err)

	rt := component.NewRuntime(reg, component.WithLogger(logging.Discard()))
	t.Cleanup(func() { rt.Stop() })

	var out bytes.Buffer
	c := NewWithWriter(&out)
	c.Bind(rt)
	return c, rt, &out
}

func capture(rt *component.Runtime, id string) *[]attrs.Attributes {
	var got []attrs.Attributes
	rt.Bus().Subscribe(id, func(a attrs.Attributes) error {
		got = append(got, a)
		return nil
	})
	return &got
}

func TestExecQuit(t *testing.T) {
	c, _, out := newConsole(t)
	assert.False(t, c.Exec(context.Background(), ""))
	assert.True(t, c.Exec(context.Background(), "quit"))
	assert.True(t, c.Exec(context.Background(), "  EXIT "))
	assert.Contains(t, out.String(), "Exiting...")
}

func TestExecWithoutRuntime(t *testing.T) {
	var out bytes.Buffer
	c := NewWithWriter(&out)
	assert.False(t, c.Exec(context.Background(), "status"))
	assert.Contains(t, out.String(), "Runtime not ready")
}

func TestExecKindsAndHelp(t *testing.T) {
	c, _, out := newConsole(t)
	c.Exec(context.Background(), "kinds")
	for _, kind := range []string{"Client", "Server", "Producer", "MessageConsumer", "NetworkTestApp"} {
		assert.Contains(t, out.String(), kind)
	}

	out.Reset()
	c.Exec(context.Background(), "help")
	assert.Contains(t, out.String(), "publish <id>")

	out.Reset()
	c.Exec(context.Background(), "frobnicate")
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
}

func TestExecPublishReachesConsumer(t *testing.T) {
	c, rt, out := newConsole(t)
	consumer := demo.NewConsumer("TICK")
	require.NoError(t, rt.Add("consumer", demo.KindConsumer, consumer))
	require.NoError(t, rt.Init())

	c.Exec(context.Background(), "publish TICK count=5")
	assert.Equal(t, int64(5), consumer.Last())
	assert.Contains(t, out.String(), "Published TICK {count=5}")

	out.Reset()
	c.Exec(context.Background(), "publish TICK count")
	assert.Contains(t, out.String(), "expected key=value")
	assert.Equal(t, int64(1), consumer.Received())
}

func TestExecStatus(t *testing.T) {
	c, rt, out := newConsole(t)
	require.NoError(t, rt.Add("consumer", demo.KindConsumer, demo.NewConsumer("")))
	require.NoError(t, rt.Init())

	c.Exec(context.Background(), "status")
	assert.Contains(t, out.String(), "consumer")
	assert.Contains(t, out.String(), "MessageConsumer")
	assert.Contains(t, out.String(), "INITIALIZED")
}

func TestExecWatch(t *testing.T) {
	c, rt, out := newConsole(t)

	c.Exec(context.Background(), "watch TEMP")
	c.Exec(context.Background(), "watch TEMP")
	assert.Contains(t, out.String(), "Already watching TEMP")

	out.Reset()
	rt.Bus().Publish("TEMP", attrs.Of("value", 21))
	assert.Contains(t, out.String(), "TEMP {value=21}")
	assert.Equal(t, 1, rt.Bus().Subscribers("TEMP"))
}

func TestExecNetworkCommands(t *testing.T) {
	c, rt, out := newConsole(t)
	refresh := capture(rt, bridge.RefreshServerList)
	connect := capture(rt, bridge.ConnectToServer)
	send := capture(rt, bridge.NetworkBroadcast)

	c.Exec(context.Background(), "refresh")
	assert.Len(t, *refresh, 1)

	c.Exec(context.Background(), "connect 2 7")
	c.Exec(context.Background(), "connect 1")
	c.Exec(context.Background(), "connect x")
	require.Len(t, *connect, 2)
	id, _ := (*connect)[0].Int(bridge.AttrID)
	round, _ := (*connect)[0].Int(bridge.AttrUpdateID)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, int64(7), round)
	assert.False(t, (*connect)[1].Has(bridge.AttrUpdateID))
	assert.Contains(t, out.String(), "Invalid server index: x")

	c.Exec(context.Background(), "send temp 21 C")
	require.Len(t, *send, 1)
	sid, _ := (*send)[0].String(bridge.AttrID)
	data, _ := (*send)[0].String(bridge.AttrData)
	assert.Equal(t, "temp", sid)
	assert.Equal(t, "21 C", data)
}

func TestParseAttributes(t *testing.T) {
	a, err := ParseAttributes([]string{"n=42", "f=1.5", "b=true", "s=hello", "e="})
	require.NoError(t, err)

	n, err := a.Int("n")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	f, err := a.Float("f")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	b, err := a.Bool("b")
	require.NoError(t, err)
	assert.True(t, b)

	s, err := a.String("s")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	e, err := a.String("e")
	require.NoError(t, err)
	assert.Empty(t, e)

	_, err = ParseAttributes([]string{"=1"})
	assert.Error(t, err)
}
