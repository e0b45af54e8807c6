package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
logging:
  level: debug
  format: json
metrics:
  address: ":9102"
components:
  - kind: Server
    name: server
    settings:
      multicast:
        group: 239.0.0.1
        port: 5000
      server:
        tcp: { address: 0.0.0.0, port: 3000 }
        max.rx-size-kb: 32
      subscribe: [NETWORK_BROADCAST, ALERTS]
  - kind: Client
    settings:
      multicast.group: 239.0.0.1
      server.max.timeout-ms: 2000
      server.max.count: "3"
      mdns.enabled: "true"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, ":9102", cfg.Metrics.Address)
	require.Len(t, cfg.Components, 2)

	srv := cfg.Components[0]
	assert.Equal(t, "Server", srv.Kind)
	assert.Equal(t, "server", srv.Name)

	group, err := srv.Settings.RequireString("multicast.group")
	require.NoError(t, err)
	assert.Equal(t, "239.0.0.1", group)

	port, err := srv.Settings.Port("server.tcp.port", 1)
	require.NoError(t, err)
	assert.Equal(t, 3000, port)

	rx, err := srv.Settings.Int("server.max.rx-size-kb", 16)
	require.NoError(t, err)
	assert.Equal(t, 32, rx)

	subs, err := srv.Settings.Strings("subscribe", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"NETWORK_BROADCAST", "ALERTS"}, subs)

	cli := cfg.Components[1]
	assert.Equal(t, "client-1", cli.Name)

	timeout, err := cli.Settings.Millis("server.max.timeout-ms", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, timeout)

	count, err := cli.Settings.PositiveInt("server.max.count", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	mdns, err := cli.Settings.Bool("mdns.enabled", false)
	require.NoError(t, err)
	assert.True(t, mdns)

	tcpPort, err := cli.Settings.Port("server.tcp.port", 3000)
	require.NoError(t, err)
	assert.Equal(t, 3000, tcpPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad level", "logging: { level: loud }"},
		{"bad format", "logging: { format: xml }"},
		{"missing kind", "components: [ { name: x } ]"},
		{"duplicate name", "components: [ { kind: A, name: x }, { kind: B, name: x } ]"},
		{"malformed yaml", "components: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BREADCRUMBS_LOG_LEVEL", "warn")
	t.Setenv("BREADCRUMBS_METRICS_ADDRESS", "127.0.0.1:9999")
	t.Setenv("BREADCRUMBS_PROTOCOL_LOG", "/tmp/capture.cbor")

	cfg, err := Parse([]byte("logging: { level: debug }"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Address)
	assert.Equal(t, "/tmp/capture.cbor", cfg.ProtocolLog.Path)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Components, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
