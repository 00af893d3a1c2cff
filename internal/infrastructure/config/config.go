package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for coverseer.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Logging    LoggingConfig    `yaml:"logging"`
	Sink       SinkConfig       `yaml:"sink"`
	History    HistoryConfig    `yaml:"history"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
}

// SupervisorConfig contains the supervision loop settings.
type SupervisorConfig struct {
	// Command is the child command line. Trailing command-line arguments
	// take precedence; this key exists so a config file alone can drive
	// the tool.
	Command string `yaml:"command"`

	// CheckInterval is the delay between oracle polls, in seconds.
	CheckInterval int `yaml:"check_interval"`

	// MaxOutputLines bounds the output ring buffer.
	MaxOutputLines int `yaml:"max_output_lines"`

	// RestartOnCleanExit restarts the child even after exit code zero.
	// By default a clean exit ends supervision.
	RestartOnCleanExit bool `yaml:"restart_on_clean_exit"`

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL,
	// in seconds.
	GracefulTimeout int `yaml:"graceful_timeout"`

	// RestartBackoff is the base delay before restarting a failed child,
	// in seconds. The delay doubles per consecutive failure.
	RestartBackoff int `yaml:"restart_backoff"`

	// MaxRestartDelay caps the backoff between restarts, in seconds.
	MaxRestartDelay int `yaml:"max_restart_delay"`

	// StableThreshold is how long a run must survive before the
	// consecutive-failure counter resets, in seconds.
	StableThreshold int `yaml:"stable_threshold"`

	// MaxRestartAttempts limits consecutive failed runs. 0 means unlimited.
	MaxRestartAttempts int `yaml:"max_restart_attempts"`

	// WorkDir is the child's working directory. Empty inherits ours.
	WorkDir string `yaml:"work_dir"`

	// Env is extra environment for the child as KEY=VALUE pairs,
	// appended to the inherited environment.
	Env []string `yaml:"env"`
}

// OracleConfig contains the health-judgment service settings.
type OracleConfig struct {
	// Endpoint is the base URL of an Ollama-compatible API.
	Endpoint string `yaml:"endpoint"`

	// Model is the model identifier passed on each generate request.
	Model string `yaml:"model"`

	// Timeout bounds one assessment request, in seconds.
	Timeout int `yaml:"timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SinkConfig contains settings for output and event sinks.
type SinkConfig struct {
	File FileSinkConfig `yaml:"file"`
}

// FileSinkConfig contains the rotating NDJSON file sink settings.
type FileSinkConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// HistoryConfig contains the SQLite supervision history settings.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	WALMode       bool   `yaml:"wal_mode"`
	BusyTimeout   int    `yaml:"busy_timeout"`
	RetentionDays int    `yaml:"retention_days"`
}

// APIConfig contains status API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains live stream settings for the status API.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT event publishing settings.
type MQTTConfig struct {
	Enabled       bool                `yaml:"enabled"`
	Broker        MQTTBrokerConfig    `yaml:"broker"`
	Auth          MQTTAuthConfig      `yaml:"auth"`
	QoS           int                 `yaml:"qos"`
	Reconnect     MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix   string              `yaml:"topic_prefix"`
	PublishOutput bool                `yaml:"publish_output"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB metrics settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path skips the file entirely and yields defaults plus
// environment overrides, so the tool runs without any config file.
//
// Environment variables follow the pattern: COVERSEER_SECTION_KEY
// For example: COVERSEER_ORACLE_ENDPOINT, COVERSEER_HISTORY_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Supervisor: SupervisorConfig{
			CheckInterval:   5,
			MaxOutputLines:  100,
			GracefulTimeout: 5,
			RestartBackoff:  2,
			MaxRestartDelay: 300,
			StableThreshold: 120,
		},
		Oracle: OracleConfig{
			Endpoint: "http://localhost:11434",
			Model:    "gemma3:4b",
			Timeout:  30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Sink: SinkConfig{
			File: FileSinkConfig{
				Path:       "./data/output.ndjson",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     7,
			},
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "./data/coverseer.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8600,
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
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "coverseer",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "coverseer",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: COVERSEER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Oracle
	if v := os.Getenv("COVERSEER_ORACLE_ENDPOINT"); v != "" {
		cfg.Oracle.Endpoint = v
	}
	if v := os.Getenv("COVERSEER_ORACLE_MODEL"); v != "" {
		cfg.Oracle.Model = v
	}

	// History
	if v := os.Getenv("COVERSEER_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// MQTT
	if v := os.Getenv("COVERSEER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("COVERSEER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("COVERSEER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("COVERSEER_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("COVERSEER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Supervisor validation
	if c.Supervisor.CheckInterval < 1 {
		errs = append(errs, "supervisor.check_interval must be at least 1 second")
	}
	if c.Supervisor.MaxOutputLines < 1 {
		errs = append(errs, "supervisor.max_output_lines must be at least 1")
	}
	if c.Supervisor.GracefulTimeout < 1 {
		errs = append(errs, "supervisor.graceful_timeout must be at least 1 second")
	}
	if c.Supervisor.RestartBackoff < 0 {
		errs = append(errs, "supervisor.restart_backoff must not be negative")
	}
	if c.Supervisor.MaxRestartDelay < c.Supervisor.RestartBackoff {
		errs = append(errs, "supervisor.max_restart_delay must not be below supervisor.restart_backoff")
	}
	if c.Supervisor.MaxRestartAttempts < 0 {
		errs = append(errs, "supervisor.max_restart_attempts must not be negative")
	}

	// Oracle validation
	if c.Oracle.Endpoint == "" {
		errs = append(errs, "oracle.endpoint is required")
	}
	if c.Oracle.Model == "" {
		errs = append(errs, "oracle.model is required")
	}
	if c.Oracle.Timeout < 1 {
		errs = append(errs, "oracle.timeout must be at least 1 second")
	}

	// History validation
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	// Sink validation
	if c.Sink.File.Enabled && c.Sink.File.Path == "" {
		errs = append(errs, "sink.file.path is required when the file sink is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetCheckInterval returns the oracle poll interval as a Duration.
func (c *Config) GetCheckInterval() time.Duration {
	return time.Duration(c.Supervisor.CheckInterval) * time.Second
}

// GetGracefulTimeout returns the SIGTERM grace period as a Duration.
func (c *Config) GetGracefulTimeout() time.Duration {
	return time.Duration(c.Supervisor.GracefulTimeout) * time.Second
}

// GetRestartBackoff returns the base restart delay as a Duration.
func (c *Config) GetRestartBackoff() time.Duration {
	return time.Duration(c.Supervisor.RestartBackoff) * time.Second
}

// GetMaxRestartDelay returns the restart delay cap as a Duration.
func (c *Config) GetMaxRestartDelay() time.Duration {
	return time.Duration(c.Supervisor.MaxRestartDelay) * time.Second
}

// GetStableThreshold returns the stability threshold as a Duration.
func (c *Config) GetStableThreshold() time.Duration {
	return time.Duration(c.Supervisor.StableThreshold) * time.Second
}

// GetOracleTimeout returns the oracle request timeout as a Duration.
func (c *Config) GetOracleTimeout() time.Duration {
	return time.Duration(c.Oracle.Timeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
