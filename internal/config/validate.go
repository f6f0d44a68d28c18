package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.BaseURL == "" && c.Server.InstanceURL == "" {
		return errors.New("server.base_url or server.instance_url is required")
	}
	if c.Server.BaseURL != "" && !hasScheme(c.Server.BaseURL, "ws://", "wss://") {
		return fmt.Errorf("server.base_url must use ws:// or wss://, got %q", c.Server.BaseURL)
	}
	if c.Server.InstanceURL != "" && !hasScheme(c.Server.InstanceURL, "http://", "https://") {
		return fmt.Errorf("server.instance_url must use http:// or https://, got %q", c.Server.InstanceURL)
	}
	if c.Server.VerifyCredentials && (c.Server.InstanceURL == "" || c.Server.AccessToken == "") {
		return errors.New("server.verify_credentials requires instance_url and access_token")
	}

	if len(c.Streams) == 0 {
		return errors.New("streams must not be empty")
	}
	names := make(map[string]bool, len(c.Streams))
	for i, s := range c.Streams {
		if s.Stream == "" {
			return fmt.Errorf("streams[%d].stream is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("streams[%d].name %q is not unique", i, s.Name)
		}
		names[s.Name] = true
		for _, p := range s.Params {
			if !strings.Contains(p, "=") {
				return fmt.Errorf("streams[%d].params entry %q must be key=value", i, p)
			}
		}
	}

	if c.Connection.ReadTimeout <= 0 {
		return errors.New("connection.read_timeout must be > 0")
	}

	switch c.Retry.Strategy {
	case RetryFixed, RetryExponential:
	default:
		return fmt.Errorf("retry.strategy must be %q or %q, got %q", RetryFixed, RetryExponential, c.Retry.Strategy)
	}
	if c.Retry.Interval <= 0 {
		return errors.New("retry.interval must be > 0")
	}
	if c.Retry.MaxAttempts < 0 {
		return errors.New("retry.max_attempts must be >= 0")
	}
	if c.Retry.Strategy == RetryExponential && c.Retry.MaxInterval < c.Retry.Interval {
		return fmt.Errorf("retry.max_interval (%s) cannot be less than interval (%s)", c.Retry.MaxInterval, c.Retry.Interval)
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Redis.DB < 0 {
		return errors.New("redis.db must be >= 0")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func hasScheme(u string, schemes ...string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(u, s) {
			return true
		}
	}
	return false
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("unknown level %q", level)
	}
	return l, nil
}
