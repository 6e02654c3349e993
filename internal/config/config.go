// Package config loads client configuration from TOML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ClientConfig describes one gateway session.
type ClientConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	ClientID int64  `toml:"client_id"`

	ConnectTimeout   duration `toml:"connect_timeout"`
	HandshakeTimeout duration `toml:"handshake_timeout"`

	BackoffCeiling       duration `toml:"backoff_ceiling"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`

	Capabilities string `toml:"capabilities"`
}

// duration accepts Go duration strings in TOML values.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) Std() time.Duration { return time.Duration(d) }

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:                 "127.0.0.1",
		Port:                 4001,
		ClientID:             1,
		ConnectTimeout:       duration(5 * time.Second),
		HandshakeTimeout:     duration(10 * time.Second),
		BackoffCeiling:       duration(30 * time.Second),
		MaxReconnectAttempts: 10,
	}
}

// LoadClientConfig reads path over the defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse client config: %w", err)
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("client config: host required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("client config: invalid port %d", cfg.Port)
	}
	if cfg.ClientID < 0 {
		return fmt.Errorf("client config: invalid client_id %d", cfg.ClientID)
	}
	if cfg.MaxReconnectAttempts < 0 {
		return fmt.Errorf("client config: invalid max_reconnect_attempts %d", cfg.MaxReconnectAttempts)
	}
	return nil
}

// Timeouts returns the dial timeouts with zero values defaulted.
func (c ClientConfig) Timeouts() (connect, handshake time.Duration) {
	connect = c.ConnectTimeout.Std()
	if connect == 0 {
		connect = 5 * time.Second
	}
	handshake = c.HandshakeTimeout.Std()
	if handshake == 0 {
		handshake = 10 * time.Second
	}
	return connect, handshake
}
