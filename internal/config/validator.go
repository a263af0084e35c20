package config

import (
	"fmt"
	"strings"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a configuration with a fresh validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateCompletion(&cfg.Completion)
	v.validateSession(&cfg.Session)
	v.validateStore(&cfg.Store)
	v.validateServer(&cfg.Server)
	v.validateEvents(&cfg.Events)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateCompletion(cfg *CompletionConfig) {
	switch cfg.Adapter {
	case "command":
		if cfg.Command.Bin == "" {
			v.addError("completion.command.bin", cfg.Command.Bin, "required for the command adapter")
		}
	case "http":
		if cfg.HTTP.BaseURL == "" {
			v.addError("completion.http.base_url", cfg.HTTP.BaseURL, "required for the http adapter")
		}
		if cfg.HTTP.Model == "" {
			v.addError("completion.http.model", cfg.HTTP.Model, "required for the http adapter")
		}
	case "mock":
		// No backend settings required.
	default:
		v.addError("completion.adapter", cfg.Adapter, "must be one of: command, http, mock")
	}

	if cfg.Timeout <= 0 {
		v.addError("completion.timeout", cfg.Timeout, "must be positive")
	}
	if cfg.Retry.MaxAttempts < 1 {
		v.addError("completion.retry.max_attempts", cfg.Retry.MaxAttempts, "must be at least 1")
	}
	if cfg.Retry.Multiplier < 1 {
		v.addError("completion.retry.multiplier", cfg.Retry.Multiplier, "must be >= 1")
	}
	if cfg.Retry.Jitter < 0 || cfg.Retry.Jitter > 1 {
		v.addError("completion.retry.jitter", cfg.Retry.Jitter, "must be in [0,1]")
	}
}

func (v *Validator) validateSession(cfg *SessionConfig) {
	if cfg.MaxRounds < 1 {
		v.addError("session.max_rounds", cfg.MaxRounds, "must be at least 1")
	}
	if _, err := core.ParseVotingRule(cfg.VotingRule); err != nil {
		v.addError("session.voting_rule", cfg.VotingRule, "must be one of: majority, unanimity, rated, ranked")
	}
	if cfg.Timeout <= 0 {
		v.addError("session.timeout", cfg.Timeout, "must be positive")
	}
	if cfg.Team == "" {
		v.addError("session.team", cfg.Team, "preset name cannot be empty")
	}
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	if cfg.Path == "" {
		v.addError("store.path", cfg.Path, "database path cannot be empty")
	}
	if cfg.ReportsDir == "" {
		v.addError("store.reports_dir", cfg.ReportsDir, "reports directory cannot be empty")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be in 1..65535")
	}
	if cfg.ShutdownTimeout <= 0 {
		v.addError("server.shutdown_timeout", cfg.ShutdownTimeout, "must be positive")
	}
}

func (v *Validator) validateEvents(cfg *EventsConfig) {
	if cfg.Buffer < 1 {
		v.addError("events.buffer", cfg.Buffer, "must be at least 1")
	}
}
