package config

import "time"

// Config is the root configuration for a listener instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Server     ServerConfig     `yaml:"server"`
	Streams    []StreamConfig   `yaml:"streams"`
	Connection ConnectionConfig `yaml:"connection"`
	Retry      RetryConfig      `yaml:"retry"`
	Database   DBConfig         `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InstanceConfig identifies this listener.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the streaming server settings. Either BaseURL or
// InstanceURL must be set; BaseURL wins when both are.
type ServerConfig struct {
	BaseURL           string `yaml:"base_url"`           // e.g. wss://example.social/api/v1/streaming
	InstanceURL       string `yaml:"instance_url"`       // e.g. https://example.social, used to discover BaseURL
	AccessToken       string `yaml:"access_token"`       // optional; sent as the access_token query parameter
	VerifyCredentials bool   `yaml:"verify_credentials"` // check the token against instance_url at startup
}

// StreamConfig names one stream to subscribe to.
type StreamConfig struct {
	Name   string   `yaml:"name"`   // label for logs and metrics, defaults to Stream
	Stream string   `yaml:"stream"` // user, public, public:local, hashtag, list, direct, ...
	Params []string `yaml:"params"` // extra "key=value" query parameters
}

// ConnectionConfig holds socket session timeouts.
type ConnectionConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// Retry strategies.
const (
	RetryFixed       = "fixed"
	RetryExponential = "exponential"
)

// RetryConfig holds reconnect settings.
type RetryConfig struct {
	Strategy    string        `yaml:"strategy"`
	Interval    time.Duration `yaml:"interval"`
	MaxInterval time.Duration `yaml:"max_interval"` // exponential only
	MaxAttempts int           `yaml:"max_attempts"` // 0 = unlimited
}

// DBConfig holds the optional PostgreSQL event sink connection. The sink is
// enabled when Host is set.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// RedisConfig holds the optional Redis publish sink. The sink is enabled when
// Addr is set.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Channel    string `yaml:"channel"`
	TLSEnabled bool   `yaml:"tls_enabled"`
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
