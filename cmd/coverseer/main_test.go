package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestConfigPath_FlagWins verifies the -config flag beats the environment.
func TestConfigPath_FlagWins(t *testing.T) {
	t.Setenv("COVERSEER_CONFIG", "/env/coverseer.yaml")

	if got := configPath("/flag/coverseer.yaml"); got != "/flag/coverseer.yaml" {
		t.Errorf("configPath() = %q, want %q", got, "/flag/coverseer.yaml")
	}
}

// TestConfigPath_EnvFallback verifies COVERSEER_CONFIG is used without a flag.
func TestConfigPath_EnvFallback(t *testing.T) {
	t.Setenv("COVERSEER_CONFIG", "/env/coverseer.yaml")

	if got := configPath(""); got != "/env/coverseer.yaml" {
		t.Errorf("configPath() = %q, want %q", got, "/env/coverseer.yaml")
	}
}

// TestConfigPath_Empty verifies built-in defaults apply with neither set.
func TestConfigPath_Empty(t *testing.T) {
	t.Setenv("COVERSEER_CONFIG", "")

	if got := configPath(""); got != "" {
		t.Errorf("configPath() = %q, want empty", got)
	}
}

// TestRun_Version verifies -version short-circuits with success.
func TestRun_Version(t *testing.T) {
	if err := run(context.Background(), []string{"-version"}); err != nil {
		t.Fatalf("run(-version) = %v, want nil", err)
	}
}

// TestRun_UnknownFlag verifies bad flags map to a usage error.
func TestRun_UnknownFlag(t *testing.T) {
	err := run(context.Background(), []string{"-definitely-not-a-flag"})
	if !errors.Is(err, errUsage) {
		t.Fatalf("run() = %v, want errUsage", err)
	}
}

// TestRun_NegativeInterval verifies interval validation.
func TestRun_NegativeInterval(t *testing.T) {
	t.Setenv("COVERSEER_CONFIG", "")

	err := run(context.Background(), []string{"-interval", "-5", "true"})
	if !errors.Is(err, errUsage) {
		t.Fatalf("run() = %v, want errUsage", err)
	}
}

// TestRun_InvalidConfigPath verifies a missing config file is a usage error.
func TestRun_InvalidConfigPath(t *testing.T) {
	err := run(context.Background(), []string{"-config", "/nonexistent/coverseer.yaml", "sleep", "60"})
	if !errors.Is(err, errUsage) {
		t.Fatalf("run() = %v, want errUsage", err)
	}
}

// TestRun_NoCommand verifies the usage error when there is nothing to
// supervise, from neither arguments nor config.
func TestRun_NoCommand(t *testing.T) {
	t.Setenv("COVERSEER_CONFIG", "")

	err := run(context.Background(), nil)
	if !errors.Is(err, errUsage) {
		t.Fatalf("run() = %v, want errUsage", err)
	}
}

// TestRun_CleanExit wires the full stack and supervises a child that
// exits cleanly: supervision ends with no error.
func TestRun_CleanExit(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "coverseer.yaml")
	dbPath := filepath.Join(tmpDir, "coverseer.db")

	cfgContent := `
supervisor:
  graceful_timeout: 2

history:
  enabled: true
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx, []string{"-config", cfgPath, "echo", "supervised"}); err != nil {
		t.Fatalf("run() = %v, want nil after clean exit", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("history database was not created: %v", err)
	}
}

// TestRun_CommandFromConfig verifies the supervisor.command fallback.
func TestRun_CommandFromConfig(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "coverseer.yaml")

	cfgContent := `
supervisor:
  command: "true"
  graceful_timeout: 2

history:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx, []string{"-config", cfgPath}); err != nil {
		t.Fatalf("run() = %v, want nil after clean exit", err)
	}
}

// TestRun_Cancellation verifies a long-running child is torn down when
// the context ends and the context error surfaces.
func TestRun_Cancellation(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "coverseer.yaml")

	cfgContent := `
supervisor:
  graceful_timeout: 2

history:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := run(ctx, []string{"-config", cfgPath, "sleep", "60"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run() = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 8*time.Second {
		t.Errorf("shutdown took %v, child was not torn down promptly", elapsed)
	}
}
