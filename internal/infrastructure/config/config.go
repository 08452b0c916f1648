package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic hub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	State     StateConfig     `yaml:"state"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	DeviceAPI DeviceAPIConfig `yaml:"device_api"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig names the log file for output "file". Rotation is left
// to logrotate.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// StateConfig selects the property state backend.
type StateConfig struct {
	// Backend is one of sqlite, postgres, memory or none.
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`

	// HistoryRetentionDays bounds the state history table. 0 keeps everything.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// ExchangeConfig contains message exchange settings.
type ExchangeConfig struct {
	// Transport is memory or mqtt.
	Transport string `yaml:"transport"`
	// Source is stamped on every message the hub enqueues.
	Source    string `yaml:"source"`
	QueueSize int    `yaml:"queue_size"`
}

// DeviceAPIConfig contains settings for the device command client.
type DeviceAPIConfig struct {
	// CommandTimeout is how long to wait for a device ack in seconds.
	CommandTimeout int `yaml:"command_timeout"`
}

// Load reads the YAML file at path over the defaults, applies GRAYLOGIC_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-hub",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		State: StateConfig{
			Backend:              "sqlite",
			HistoryRetentionDays: 30,
		},
		Exchange: ExchangeConfig{
			Transport: "memory",
			Source:    "graylogic-hub",
			QueueSize: 256,
		},
		DeviceAPI: DeviceAPIConfig{
			CommandTimeout: 10,
		},
	}
}

// envOverrides maps environment variables onto config fields. Secrets
// belong here rather than in the YAML file.
func envOverrides(cfg *Config) map[string]any {
	return map[string]any{
		"GRAYLOGIC_SITE_ID":                      &cfg.Site.ID,
		"GRAYLOGIC_DATABASE_PATH":                &cfg.Database.Path,
		"GRAYLOGIC_MQTT_HOST":                    &cfg.MQTT.Broker.Host,
		"GRAYLOGIC_MQTT_PORT":                    &cfg.MQTT.Broker.Port,
		"GRAYLOGIC_MQTT_CLIENT_ID":               &cfg.MQTT.Broker.ClientID,
		"GRAYLOGIC_MQTT_USERNAME":                &cfg.MQTT.Auth.Username,
		"GRAYLOGIC_MQTT_PASSWORD":                &cfg.MQTT.Auth.Password,
		"GRAYLOGIC_API_HOST":                     &cfg.API.Host,
		"GRAYLOGIC_API_PORT":                     &cfg.API.Port,
		"GRAYLOGIC_INFLUXDB_ENABLED":             &cfg.InfluxDB.Enabled,
		"GRAYLOGIC_INFLUXDB_URL":                 &cfg.InfluxDB.URL,
		"GRAYLOGIC_INFLUXDB_TOKEN":               &cfg.InfluxDB.Token,
		"GRAYLOGIC_LOG_LEVEL":                    &cfg.Logging.Level,
		"GRAYLOGIC_STATE_BACKEND":                &cfg.State.Backend,
		"GRAYLOGIC_STATE_DSN":                    &cfg.State.DSN,
		"GRAYLOGIC_STATE_HISTORY_RETENTION_DAYS": &cfg.State.HistoryRetentionDays,
		"GRAYLOGIC_EXCHANGE_TRANSPORT":           &cfg.Exchange.Transport,
	}
}

// applyEnvOverrides sets every field whose variable is non-empty.
func applyEnvOverrides(cfg *Config) error {
	for name, field := range envOverrides(cfg) {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		switch f := field.(type) {
		case *string:
			*f = v
		case *int:
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %q is not an integer", name, v)
			}
			*f = n
		case *bool:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %q is not a boolean", name, v)
			}
			*f = b
		}
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Host == "" || c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.host and mqtt.broker.client_id are required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Reconnect.InitialDelay > c.MQTT.Reconnect.MaxDelay {
		errs = append(errs, "mqtt.reconnect.initial_delay must not exceed max_delay")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// State validation
	switch c.State.Backend {
	case "sqlite", "memory", "none":
	case "postgres":
		if c.State.DSN == "" {
			errs = append(errs, "state.dsn is required for the postgres backend")
		}
	default:
		errs = append(errs, "state.backend must be sqlite, postgres, memory, or none")
	}

	if c.State.HistoryRetentionDays < 0 {
		errs = append(errs, "state.history_retention_days must not be negative")
	}

	// Exchange validation
	if c.Exchange.Transport != "memory" && c.Exchange.Transport != "mqtt" {
		errs = append(errs, "exchange.transport must be memory or mqtt")
	}
	if c.Exchange.QueueSize < 0 {
		errs = append(errs, "exchange.queue_size must not be negative")
	}

	if c.DeviceAPI.CommandTimeout < 0 {
		errs = append(errs, "device_api.command_timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the read timeout.
func (t APITimeoutConfig) ReadTimeout() time.Duration { return time.Duration(t.Read) * time.Second }

// WriteTimeout returns the write timeout.
func (t APITimeoutConfig) WriteTimeout() time.Duration { return time.Duration(t.Write) * time.Second }

// IdleTimeout returns the keep-alive idle timeout.
func (t APITimeoutConfig) IdleTimeout() time.Duration { return time.Duration(t.Idle) * time.Second }

// GetCommandTimeout returns the device command timeout as a Duration.
// Zero falls back to ten seconds.
func (c *Config) GetCommandTimeout() time.Duration {
	if c.DeviceAPI.CommandTimeout == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.DeviceAPI.CommandTimeout) * time.Second
}
