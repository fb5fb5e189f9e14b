package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridmesh.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadNodeConfig(t *testing.T) {
	path := writeConfig(t, `
worker_id = "alpha"
listen = ":7402"
metrics_addr = ":9402"
log_level = "debug"

[[peers]]
id = "beta"
addr = "10.0.0.2:7401"

[[peers]]
id = "gamma"
addr = "10.0.0.3:7401"
`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	require.Equal(t, "alpha", cfg.WorkerID)
	require.Equal(t, ":7402", cfg.Listen)
	require.Equal(t, ":9402", cfg.MetricsAddr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Peers, 2)

	dir := cfg.Directory()
	require.Equal(t, "10.0.0.2:7401", dir["beta"])
	require.Equal(t, "10.0.0.3:7401", dir["gamma"])
}

func TestLoadNodeConfigDefaultsListen(t *testing.T) {
	path := writeConfig(t, `worker_id = "alpha"`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":7401", cfg.Listen)
	require.Empty(t, cfg.Peers)
}

func TestLoadNodeConfigFailures(t *testing.T) {
	_, err := LoadNodeConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "config load failed")

	_, err = LoadNodeConfig(writeConfig(t, `worker_id = `))
	require.ErrorContains(t, err, "config parse failed")

	_, err = LoadNodeConfig(writeConfig(t, `listen = ":7401"`))
	require.ErrorContains(t, err, "missing worker_id")
}

func TestValidateNodeConfigPeers(t *testing.T) {
	cfg := NodeConfig{WorkerID: "alpha", Listen: ":7401", Peers: []PeerConfig{{ID: "", Addr: "x"}}}
	require.ErrorContains(t, ValidateNodeConfig(cfg), "peer[0] missing id")

	cfg.Peers = []PeerConfig{{ID: "beta", Addr: " "}}
	require.ErrorContains(t, ValidateNodeConfig(cfg), "peer[0] missing addr")

	cfg.Peers = []PeerConfig{{ID: "beta", Addr: "10.0.0.2:7401"}}
	require.NoError(t, ValidateNodeConfig(cfg))
}
