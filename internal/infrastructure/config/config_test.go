package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
supervisor:
  command: "ping -c 100 localhost"
  check_interval: 10
  max_output_lines: 50
  restart_on_clean_exit: true
oracle:
  endpoint: "http://oracle.local:11434"
  model: "llama3.2:3b"
  timeout: 15
history:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
api:
  enabled: true
  host: "127.0.0.1"
  port: 8600
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Supervisor.Command != "ping -c 100 localhost" {
		t.Errorf("Supervisor.Command = %q, want %q", cfg.Supervisor.Command, "ping -c 100 localhost")
	}

	if cfg.Supervisor.CheckInterval != 10 {
		t.Errorf("Supervisor.CheckInterval = %d, want 10", cfg.Supervisor.CheckInterval)
	}

	if !cfg.Supervisor.RestartOnCleanExit {
		t.Error("Supervisor.RestartOnCleanExit = false, want true")
	}

	if cfg.Oracle.Model != "llama3.2:3b" {
		t.Errorf("Oracle.Model = %q, want %q", cfg.Oracle.Model, "llama3.2:3b")
	}

	if cfg.History.Path != "/tmp/test.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/tmp/test.db")
	}
}

func TestLoad_EmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if cfg.Supervisor.CheckInterval != 5 {
		t.Errorf("Supervisor.CheckInterval = %d, want default 5", cfg.Supervisor.CheckInterval)
	}

	if cfg.Supervisor.MaxOutputLines != 100 {
		t.Errorf("Supervisor.MaxOutputLines = %d, want default 100", cfg.Supervisor.MaxOutputLines)
	}

	if cfg.Oracle.Endpoint != "http://localhost:11434" {
		t.Errorf("Oracle.Endpoint = %q, want default", cfg.Oracle.Endpoint)
	}

	if cfg.Oracle.Model != "gemma3:4b" {
		t.Errorf("Oracle.Model = %q, want default gemma3:4b", cfg.Oracle.Model)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
supervisor:
  check_interval: 0
oracle:
  model: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for zero check_interval, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// valid returns a config that passes validation; tests mutate one field.
	valid := func() *Config {
		return defaultConfig()
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "zero check interval",
			mutate:  func(c *Config) { c.Supervisor.CheckInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero output lines",
			mutate:  func(c *Config) { c.Supervisor.MaxOutputLines = 0 },
			wantErr: true,
		},
		{
			name:    "zero graceful timeout",
			mutate:  func(c *Config) { c.Supervisor.GracefulTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative restart backoff",
			mutate:  func(c *Config) { c.Supervisor.RestartBackoff = -1 },
			wantErr: true,
		},
		{
			name:    "restart delay cap below base",
			mutate:  func(c *Config) { c.Supervisor.MaxRestartDelay = 1 },
			wantErr: true,
		},
		{
			name:    "empty oracle endpoint",
			mutate:  func(c *Config) { c.Oracle.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "empty oracle model",
			mutate:  func(c *Config) { c.Oracle.Model = "" },
			wantErr: true,
		},
		{
			name:    "zero oracle timeout",
			mutate:  func(c *Config) { c.Oracle.Timeout = 0 },
			wantErr: true,
		},
		{
			name: "history enabled without path",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Path = ""
			},
			wantErr: true,
		},
		{
			name: "api enabled with invalid port",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 0
			},
			wantErr: true,
		},
		{
			name: "api disabled ignores port",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
			wantErr: false,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "mqtt enabled without topic prefix",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.TopicPrefix = ""
			},
			wantErr: true,
		},
		{
			name: "file sink enabled without path",
			mutate: func(c *Config) {
				c.Sink.File.Enabled = true
				c.Sink.File.Path = ""
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Bucket = "coverseer"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetDurations(t *testing.T) {
	cfg := &Config{
		Supervisor: SupervisorConfig{
			CheckInterval:   5,
			GracefulTimeout: 7,
			RestartBackoff:  2,
			MaxRestartDelay: 300,
			StableThreshold: 120,
		},
		Oracle: OracleConfig{Timeout: 30},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetCheckInterval().Seconds(); got != 5 {
		t.Errorf("GetCheckInterval() = %v, want 5", got)
	}

	if got := cfg.GetGracefulTimeout().Seconds(); got != 7 {
		t.Errorf("GetGracefulTimeout() = %v, want 7", got)
	}

	if got := cfg.GetRestartBackoff().Seconds(); got != 2 {
		t.Errorf("GetRestartBackoff() = %v, want 2", got)
	}

	if got := cfg.GetMaxRestartDelay().Seconds(); got != 300 {
		t.Errorf("GetMaxRestartDelay() = %v, want 300", got)
	}

	if got := cfg.GetStableThreshold().Seconds(); got != 120 {
		t.Errorf("GetStableThreshold() = %v, want 120", got)
	}

	if got := cfg.GetOracleTimeout().Seconds(); got != 30 {
		t.Errorf("GetOracleTimeout() = %v, want 30", got)
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("COVERSEER_ORACLE_ENDPOINT", "http://oracle.lan:11434")
	t.Setenv("COVERSEER_ORACLE_MODEL", "qwen2.5:7b")
	t.Setenv("COVERSEER_HISTORY_PATH", "/custom/path.db")
	t.Setenv("COVERSEER_MQTT_HOST", "mqtt.example.com")
	t.Setenv("COVERSEER_MQTT_USERNAME", "testuser")
	t.Setenv("COVERSEER_MQTT_PASSWORD", "testpass")
	t.Setenv("COVERSEER_API_HOST", "192.168.1.1")
	t.Setenv("COVERSEER_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Oracle.Endpoint != "http://oracle.lan:11434" {
		t.Errorf("Oracle.Endpoint = %q, want %q", cfg.Oracle.Endpoint, "http://oracle.lan:11434")
	}

	if cfg.Oracle.Model != "qwen2.5:7b" {
		t.Errorf("Oracle.Model = %q, want %q", cfg.Oracle.Model, "qwen2.5:7b")
	}

	if cfg.History.Path != "/custom/path.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Supervisor.CheckInterval != 5 {
		t.Errorf("defaultConfig Supervisor.CheckInterval = %d, want 5", cfg.Supervisor.CheckInterval)
	}

	if cfg.Supervisor.RestartOnCleanExit {
		t.Error("defaultConfig should not restart on clean exit")
	}

	if cfg.Oracle.Endpoint == "" {
		t.Error("defaultConfig should have non-empty Oracle.Endpoint")
	}

	if cfg.History.Path == "" {
		t.Error("defaultConfig should have non-empty History.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8600 {
		t.Errorf("defaultConfig API.Port = %d, want 8600", cfg.API.Port)
	}

	if cfg.API.Enabled {
		t.Error("defaultConfig API should be disabled")
	}

	if cfg.MQTT.Enabled {
		t.Error("defaultConfig MQTT should be disabled")
	}
}
