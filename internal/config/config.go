package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// NodeConfig describes one mesh worker node.
type NodeConfig struct {
	WorkerID    string       `toml:"worker_id"`
	Listen      string       `toml:"listen"`
	MetricsAddr string       `toml:"metrics_addr"`
	LogLevel    string       `toml:"log_level"`
	Peers       []PeerConfig `toml:"peers"`
}

// PeerConfig binds one remote worker id to its dialable address.
type PeerConfig struct {
	ID   string `toml:"id"`
	Addr string `toml:"addr"`
}

// LoadNodeConfig reads, defaults, and validates one node config file.
func LoadNodeConfig(path string) (NodeConfig, error) {
	var cfg NodeConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return NodeConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":7401"
	}
	if err := ValidateNodeConfig(cfg); err != nil {
		return NodeConfig{}, err
	}
	return cfg, nil
}

// ValidateNodeConfig enforces required node config fields.
func ValidateNodeConfig(cfg NodeConfig) error {
	if strings.TrimSpace(cfg.WorkerID) == "" {
		return fmt.Errorf("node config missing worker_id")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("node config missing listen")
	}
	for i, peer := range cfg.Peers {
		if strings.TrimSpace(peer.ID) == "" {
			return fmt.Errorf("peer[%d] missing id", i)
		}
		if strings.TrimSpace(peer.Addr) == "" {
			return fmt.Errorf("peer[%d] missing addr", i)
		}
	}
	return nil
}

// Directory maps peer ids to addresses for the TCP messenger.
func (c NodeConfig) Directory() map[string]string {
	out := make(map[string]string, len(c.Peers))
	for _, peer := range c.Peers {
		out[peer.ID] = peer.Addr
	}
	return out
}
