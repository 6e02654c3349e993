package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/quantrail/gatewire"
	"github.com/quantrail/gatewire/internal/config"
	"github.com/quantrail/gatewire/internal/record"
)

type fileConfig struct {
	Host                 string `toml:"host"`
	Port                 int    `toml:"port"`
	ClientID             int64  `toml:"client_id"`
	ConnectTimeout       string `toml:"connect_timeout"`
	HandshakeTimeout     string `toml:"handshake_timeout"`
	BackoffCeiling       string `toml:"backoff_ceiling"`
	MaxReconnectAttempts int    `toml:"max_reconnect_attempts"`
	Capabilities         string `toml:"capabilities"`
	CaptureDir           string `toml:"capture_dir"`
}

func loadSessionConfig(path string) (gatewire.Config, error) {
	cfg := gatewire.FromClientConfig(config.DefaultClientConfig())
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return gatewire.Config{}, fmt.Errorf("load session config: %w", err)
	}

	if meta.IsDefined("host") {
		if host := strings.TrimSpace(raw.Host); host != "" {
			cfg.Host = host
		}
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("client_id") {
		cfg.ClientID = raw.ClientID
	}
	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return gatewire.Config{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}
	if meta.IsDefined("handshake_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HandshakeTimeout))
		if err != nil {
			return gatewire.Config{}, fmt.Errorf("parse handshake_timeout: %w", err)
		}
		cfg.HandshakeTimeout = d
	}
	if meta.IsDefined("backoff_ceiling") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BackoffCeiling))
		if err != nil {
			return gatewire.Config{}, fmt.Errorf("parse backoff_ceiling: %w", err)
		}
		cfg.BackoffCeiling = d
	}
	if meta.IsDefined("max_reconnect_attempts") {
		cfg.MaxReconnectAttempts = raw.MaxReconnectAttempts
	}
	if meta.IsDefined("capabilities") {
		cfg.Capabilities = strings.TrimSpace(raw.Capabilities)
	}
	if meta.IsDefined("capture_dir") {
		if dir := strings.TrimSpace(raw.CaptureDir); dir != "" {
			if err := os.Setenv(record.EnvCaptureDir, dir); err != nil {
				return gatewire.Config{}, fmt.Errorf("set capture dir: %w", err)
			}
		}
	}

	return cfg, nil
}
