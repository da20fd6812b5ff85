package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultPort = 32145
	DefaultHost = "127.0.0.1"

	// DefaultReconnectDelay is how long the monitor waits before
	// re-establishing a session after the smart card service goes away.
	DefaultReconnectDelay = 2 * time.Second
)

// Config holds the agent configuration.
type Config struct {
	Host           string
	Port           int
	LogLevel       string
	ReconnectDelay time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	cfg := &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		LogLevel:       "info",
		ReconnectDelay: DefaultReconnectDelay,
	}

	// PCSC_AGENT_PORT - override the default port
	if portStr := os.Getenv("PCSC_AGENT_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 && port < 65536 {
			cfg.Port = port
		}
	}

	// PCSC_AGENT_HOST - override the default host (rarely needed, localhost is safest)
	if host := os.Getenv("PCSC_AGENT_HOST"); host != "" {
		cfg.Host = host
	}

	// PCSC_AGENT_LOG_LEVEL - debug, info, warn or error
	if level := os.Getenv("PCSC_AGENT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	// PCSC_AGENT_RECONNECT_DELAY - seconds between session recovery attempts
	if delayStr := os.Getenv("PCSC_AGENT_RECONNECT_DELAY"); delayStr != "" {
		if secs, err := strconv.Atoi(delayStr); err == nil && secs > 0 {
			cfg.ReconnectDelay = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

// Address returns the formatted host:port address string.
func (c *Config) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
