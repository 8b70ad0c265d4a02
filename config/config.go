// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads and validates node configuration for rird-node and
// its companion CLIs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for a node.
type Config struct {
	Environment string           `yaml:"environment" json:"environment"`
	Identity    IdentityConfig   `yaml:"identity" json:"identity"`
	Store       StoreConfig      `yaml:"store" json:"store"`
	Genesis     GenesisConfig    `yaml:"genesis" json:"genesis"`
	Gossip      GossipConfig     `yaml:"gossip" json:"gossip"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Safety      SafetyConfig     `yaml:"safety" json:"safety"`
	RPC         RPCConfig        `yaml:"rpc" json:"rpc"`
	Logging     LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig    `yaml:"metrics" json:"metrics"`
	Health      HealthConfig     `yaml:"health" json:"health"`
}

// IdentityConfig locates this node's signing key pair.
type IdentityConfig struct {
	KeyPath       string `yaml:"key_path" json:"key_path"`
	PassphraseEnv string `yaml:"passphrase_env" json:"passphrase_env"`
}

// StoreConfig selects and configures the persistent-log backend.
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"` // "postgres" or "memory"
	DSN     string `yaml:"dsn" json:"dsn"`
}

// GenesisConfig points at the signed genesis file declaring the
// governance keyholder set and multisig threshold, plus the separate
// root public key authorized to trigger the emergency killswitch.
type GenesisConfig struct {
	Path               string `yaml:"path" json:"path"`
	KillswitchRootHex string `yaml:"killswitch_root_hex" json:"killswitch_root_hex"`
}

// GossipConfig configures the pubsub transport adapter.
type GossipConfig struct {
	Topic          string        `yaml:"topic" json:"topic"`
	ListenAddr     string        `yaml:"listen_addr" json:"listen_addr"`
	BootstrapPeers []string      `yaml:"bootstrap_peers" json:"bootstrap_peers"`
	DialTimeout    time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// RateLimitConfig overrides the default sliding-window thresholds per
// record type. Zero values fall back to flagging package defaults.
type RateLimitConfig struct {
	WindowSeconds    int            `yaml:"window_seconds" json:"window_seconds"`
	PerTypeOverrides map[string]int `yaml:"per_type_overrides" json:"per_type_overrides"`
}

// SafetyConfig controls logging of safety-filter hits. The filter itself
// cannot be disabled or bypassed from configuration.
type SafetyConfig struct {
	LogVerbosity string `yaml:"log_verbosity" json:"log_verbosity"` // "silent", "summary", "verbose"
}

// RPCConfig configures the local control-plane JSON-RPC listener.
type RPCConfig struct {
	SocketPath   string `yaml:"socket_path" json:"socket_path"`
	AuthTokenEnv string `yaml:"auth_token_env" json:"auth_token_env"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig configures the liveness/readiness HTTP endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing format by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Identity.KeyPath == "" {
		cfg.Identity.KeyPath = ".rird/identity.key"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Genesis.Path == "" {
		cfg.Genesis.Path = "genesis.yaml"
	}
	if cfg.Gossip.Topic == "" {
		cfg.Gossip.Topic = "/rird/activity/1.0.0"
	}
	if cfg.Gossip.DialTimeout == 0 {
		cfg.Gossip.DialTimeout = 10 * time.Second
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 3600
	}
	if cfg.Safety.LogVerbosity == "" {
		cfg.Safety.LogVerbosity = "summary"
	}
	if cfg.RPC.SocketPath == "" {
		cfg.RPC.SocketPath = ".rird/control.sock"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 9091
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = "/healthz"
	}
}
