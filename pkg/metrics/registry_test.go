package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusMetrics(t *testing.T) {
	r := NewRegistry()

	r.Bus.RecordPublish("temp", 3)
	r.Bus.RecordPublish("temp", 2)
	r.Bus.RecordHandlerError("temp")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Bus.published.WithLabelValues("temp")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.Bus.deliveries.WithLabelValues("temp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Bus.handlerErrors.WithLabelValues("temp")))
}

func TestBridgeMetrics(t *testing.T) {
	r := NewRegistry()

	r.Bridge.RecordConnect("server")
	r.Bridge.RecordConnect("server")
	r.Bridge.RecordDisconnect("server")
	r.Bridge.RecordFrameOut("server", 10, 2)
	r.Bridge.RecordInvalidFrame("server")
	r.Bridge.RecordDrop("client", "not_connected")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Bridge.connections.WithLabelValues("server")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Bridge.framesOut.WithLabelValues("server")))
	assert.Equal(t, 20.0, testutil.ToFloat64(r.Bridge.bytesOut.WithLabelValues("server")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Bridge.invalidFrames.WithLabelValues("server")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Bridge.droppedFrames.WithLabelValues("client", "not_connected")))
}

func TestNilReceiversAreNoops(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.BusOrNil().RecordPublish("x", 1)
		r.BusOrNil().RecordHandlerError("x")
		r.RuntimeOrNil().RecordState("a", "b", 1)
		r.BridgeOrNil().RecordConnect("c")
		r.BridgeOrNil().RecordFrameIn("c")
		r.DiscoveryOrNil().RecordRound(2)
		r.DiscoveryOrNil().RecordPong()
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewRegistry()
	r.Discovery.RecordRound(2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "breadcrumbs_discovery_last_round_servers 2"), body)
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
