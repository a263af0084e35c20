package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify log defaults
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "auto")
	}

	// Verify completion defaults
	if cfg.Completion.Adapter != "command" {
		t.Errorf("Completion.Adapter = %q, want %q", cfg.Completion.Adapter, "command")
	}
	if cfg.Completion.Timeout != 30*time.Second {
		t.Errorf("Completion.Timeout = %v, want %v", cfg.Completion.Timeout, 30*time.Second)
	}
	// command.bin has NO default - user must configure explicitly
	if cfg.Completion.Command.Bin != "" {
		t.Errorf("Completion.Command.Bin = %q, want empty (no default)", cfg.Completion.Command.Bin)
	}
	if cfg.Completion.Retry.MaxAttempts != 2 {
		t.Errorf("Completion.Retry.MaxAttempts = %d, want %d", cfg.Completion.Retry.MaxAttempts, 2)
	}
	if cfg.Completion.Retry.InitialDelay != 500*time.Millisecond {
		t.Errorf("Completion.Retry.InitialDelay = %v, want %v", cfg.Completion.Retry.InitialDelay, 500*time.Millisecond)
	}

	// Verify session defaults
	if cfg.Session.MaxRounds != 3 {
		t.Errorf("Session.MaxRounds = %d, want %d", cfg.Session.MaxRounds, 3)
	}
	if cfg.Session.VotingRule != "majority" {
		t.Errorf("Session.VotingRule = %q, want %q", cfg.Session.VotingRule, "majority")
	}
	if cfg.Session.Timeout != 5*time.Minute {
		t.Errorf("Session.Timeout = %v, want %v", cfg.Session.Timeout, 5*time.Minute)
	}
	if cfg.Session.Team != "DEFAULT" {
		t.Errorf("Session.Team = %q, want %q", cfg.Session.Team, "DEFAULT")
	}

	// Verify store defaults
	if cfg.Store.Path != ".roundtable/roundtable.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, ".roundtable/roundtable.db")
	}

	// Verify server defaults
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8787)
	}

	// Verify events defaults
	if cfg.Events.Buffer != 256 {
		t.Errorf("Events.Buffer = %d, want %d", cfg.Events.Buffer, 256)
	}
}

func TestLoader_DefaultsValidate(t *testing.T) {
	// A default config with a command bin set should pass validation.
	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Completion.Command.Bin = "claude"

	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig() error = %v, want nil", err)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	os.Setenv("ROUNDTABLE_LOG_LEVEL", "debug")
	os.Setenv("ROUNDTABLE_SESSION_MAX_ROUNDS", "7")
	os.Setenv("ROUNDTABLE_COMPLETION_TIMEOUT", "45s")
	defer func() {
		os.Unsetenv("ROUNDTABLE_LOG_LEVEL")
		os.Unsetenv("ROUNDTABLE_SESSION_MAX_ROUNDS")
		os.Unsetenv("ROUNDTABLE_COMPLETION_TIMEOUT")
	}()

	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Session.MaxRounds != 7 {
		t.Errorf("Session.MaxRounds = %d, want %d", cfg.Session.MaxRounds, 7)
	}
	if cfg.Completion.Timeout != 45*time.Second {
		t.Errorf("Completion.Timeout = %v, want %v", cfg.Completion.Timeout, 45*time.Second)
	}
}

func TestLoader_MissingConfig(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil (should use defaults)", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q (default)", cfg.Log.Level, "info")
	}
}

func TestLoader_ConfigFileOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
log:
  level: warn
  format: json
completion:
  adapter: mock
  timeout: 10s
session:
  max_rounds: 5
  voting_rule: ranked
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	loader := NewLoader().WithConfigFile(configPath)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Completion.Adapter != "mock" {
		t.Errorf("Completion.Adapter = %q, want %q", cfg.Completion.Adapter, "mock")
	}
	if cfg.Completion.Timeout != 10*time.Second {
		t.Errorf("Completion.Timeout = %v, want %v", cfg.Completion.Timeout, 10*time.Second)
	}
	if cfg.Session.MaxRounds != 5 {
		t.Errorf("Session.MaxRounds = %d, want %d", cfg.Session.MaxRounds, 5)
	}
	if cfg.Session.VotingRule != "ranked" {
		t.Errorf("Session.VotingRule = %q, want %q", cfg.Session.VotingRule, "ranked")
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Port != 8787 {
		t.Errorf("Server.Port = %d, want %d (default)", cfg.Server.Port, 8787)
	}
}

func TestLoader_Precedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	// Config file sets level to "warn"
	configContent := `
log:
  level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Environment sets level to "debug" (should override file)
	os.Setenv("ROUNDTABLE_LOG_LEVEL", "debug")
	defer os.Unsetenv("ROUNDTABLE_LOG_LEVEL")

	loader := NewLoader().WithConfigFile(configPath)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (env should override file)", cfg.Log.Level, "debug")
	}
}

func TestLoader_InvalidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid-config.yaml")

	invalidContent := `
log:
  level: [invalid yaml
`
	if err := os.WriteFile(configPath, []byte(invalidContent), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	loader := NewLoader().WithConfigFile(configPath)
	if _, err := loader.Load(); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "roundtable.yaml")

	if err := WriteDefault(configPath, false); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	// The starter file must itself load cleanly.
	loader := NewLoader().WithConfigFile(configPath)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.VotingRule != "majority" {
		t.Errorf("Session.VotingRule = %q, want %q", cfg.Session.VotingRule, "majority")
	}
	if cfg.Completion.Command.Bin != "claude" {
		t.Errorf("Completion.Command.Bin = %q, want %q", cfg.Completion.Command.Bin, "claude")
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig() error = %v, want nil", err)
	}

	// A second write without force must refuse.
	err = WriteDefault(configPath, false)
	if err == nil {
		t.Fatal("WriteDefault() on existing file error = nil, want error")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("WriteDefault() error = %v, want mention of existing file", err)
	}

	// Force overwrites.
	if err := WriteDefault(configPath, true); err != nil {
		t.Errorf("WriteDefault(force) error = %v", err)
	}
}
