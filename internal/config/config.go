package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Completion CompletionConfig `mapstructure:"completion"`
	Session    SessionConfig    `mapstructure:"session"`
	Store      StoreConfig      `mapstructure:"store"`
	Server     ServerConfig     `mapstructure:"server"`
	Events     EventsConfig     `mapstructure:"events"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// CompletionConfig configures the text-completion backend.
type CompletionConfig struct {
	// Adapter selects the backend: command, http, or mock.
	Adapter string `mapstructure:"adapter"`

	// Timeout is the per-call budget applied by the phases.
	Timeout time.Duration `mapstructure:"timeout"`

	Command CommandConfig `mapstructure:"command"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

// CommandConfig configures the CLI completion adapter.
type CommandConfig struct {
	Bin        string   `mapstructure:"bin"`
	Args       []string `mapstructure:"args"`
	SystemFlag string   `mapstructure:"system_flag"`
}

// HTTPConfig configures the OpenAI-compatible HTTP adapter.
type HTTPConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RetryConfig configures transport-level retries inside the per-call
// budget. Phases never retry; adapters may.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	Jitter       float64       `mapstructure:"jitter"`
}

// SessionConfig carries session defaults used when the trigger omits
// them.
type SessionConfig struct {
	MaxRounds  int           `mapstructure:"max_rounds"`
	VotingRule string        `mapstructure:"voting_rule"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Team       string        `mapstructure:"team"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	Path       string `mapstructure:"path"`
	ReportsDir string `mapstructure:"reports_dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EventsConfig configures the in-process event bus.
type EventsConfig struct {
	Buffer int `mapstructure:"buffer"`
}
