package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "ROUNDTABLE",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "ROUNDTABLE",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (ROUNDTABLE_*)
// 3. Project config (roundtable.yaml or .roundtable/config.yaml)
// 4. User config (~/.roundtable/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("roundtable")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath(".roundtable")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".roundtable"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.add_source", false)

	// Completion defaults
	l.v.SetDefault("completion.adapter", "command")
	l.v.SetDefault("completion.timeout", "30s")
	l.v.SetDefault("completion.command.bin", "")
	l.v.SetDefault("completion.command.args", []string{})
	l.v.SetDefault("completion.command.system_flag", "--system")
	l.v.SetDefault("completion.http.base_url", "https://api.openai.com/v1")
	l.v.SetDefault("completion.http.model", "gpt-4o-mini")
	l.v.SetDefault("completion.http.temperature", 0.7)
	l.v.SetDefault("completion.http.max_tokens", 1024)
	l.v.SetDefault("completion.retry.max_attempts", 2)
	l.v.SetDefault("completion.retry.initial_delay", "500ms")
	l.v.SetDefault("completion.retry.max_delay", "5s")
	l.v.SetDefault("completion.retry.multiplier", 2.0)
	l.v.SetDefault("completion.retry.jitter", 0.2)

	// Session defaults
	l.v.SetDefault("session.max_rounds", 3)
	l.v.SetDefault("session.voting_rule", "majority")
	l.v.SetDefault("session.timeout", "5m")
	l.v.SetDefault("session.team", "DEFAULT")

	// Store defaults (unified under .roundtable/)
	l.v.SetDefault("store.path", ".roundtable/roundtable.db")
	l.v.SetDefault("store.reports_dir", ".roundtable/reports")

	// Server defaults
	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 8787)
	l.v.SetDefault("server.cors_origins", []string{"*"})
	l.v.SetDefault("server.shutdown_timeout", "10s")

	// Events defaults
	l.v.SetDefault("events.buffer", 256)
}
