package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/roundtable-ai/roundtable/internal/adapters/completion"
	"github.com/roundtable-ai/roundtable/internal/adapters/state"
	"github.com/roundtable-ai/roundtable/internal/config"
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/events"
	"github.com/roundtable-ai/roundtable/internal/logging"
	"github.com/roundtable-ai/roundtable/internal/persona"
	"github.com/roundtable-ai/roundtable/internal/service"
)

// loadConfig loads and validates configuration from all sources.
// The global viper instance carries the flag bindings from root.go.
func loadConfig() (*config.Config, error) {
	cfg, _, err := loadConfigWithLoader()
	return cfg, err
}

// loadConfigWithLoader also returns the loader, for callers that watch
// the config file for changes.
func loadConfigWithLoader() (*config.Config, *config.Loader, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		AddSource: cfg.Log.AddSource,
	})
}

// engine bundles the deliberation runtime shared by run and serve.
type engine struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *persona.Registry
	store    *state.SQLiteStore
	bus      *events.Bus
	saver    *service.Saver
	manager  *service.Manager
}

func buildEngine(cfg *config.Config, logger *logging.Logger) (*engine, error) {
	registry, err := persona.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("loading persona catalog: %w", err)
	}

	client, err := completion.NewFromConfig(cfg.Completion, logger)
	if err != nil {
		return nil, err
	}

	prompts, err := service.NewPromptRenderer()
	if err != nil {
		return nil, fmt.Errorf("loading prompt templates: %w", err)
	}

	store, err := state.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	bus := events.New(cfg.Events.Buffer)
	saver := service.NewSaver(store, logger, 16)

	orchCfg := &service.OrchestratorConfig{
		CallTimeout:    cfg.Completion.Timeout,
		SessionTimeout: cfg.Session.Timeout,
	}
	manager := service.NewManager(orchCfg, client, prompts, bus, saver, logger)

	return &engine{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		store:    store,
		bus:      bus,
		saver:    saver,
		manager:  manager,
	}, nil
}

// close tears the runtime down in dependency order: running sessions
// first, then the write-behind queue, then the bus and the store.
func (e *engine) close(ctx context.Context) {
	e.manager.Shutdown()
	if err := e.manager.Wait(ctx); err != nil {
		e.logger.Warn("waiting for sessions", "error", err)
	}
	if err := e.saver.Drain(ctx); err != nil {
		e.logger.Warn("draining session saver", "error", err)
	}
	e.bus.Close()
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing store", "error", err)
	}
}

// resolveTeam picks the personas for a session. Explicit ids win over a
// preset name, and --suggest wins over the configured default preset.
func resolveTeam(registry *persona.Registry, cfg *config.Config, topic string, ids []string, team string, suggest bool) ([]core.PersonaProfile, error) {
	switch {
	case len(ids) > 0:
		pids := make([]core.PersonaID, len(ids))
		for i, id := range ids {
			pids[i] = core.PersonaID(strings.TrimSpace(id))
		}
		return registry.Get(pids)
	case team != "":
		return registry.Preset(team)
	case suggest:
		return registry.SuggestTeam(topic), nil
	case cfg.Session.Team != "":
		return registry.Preset(cfg.Session.Team)
	default:
		return registry.SuggestTeam(topic), nil
	}
}

// getTopic resolves the deliberation topic from args or --file.
func getTopic(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading topic file: %w", err)
		}
		topic := strings.TrimSpace(string(data))
		if topic == "" {
			return "", fmt.Errorf("topic file %s is empty", file)
		}
		return topic, nil
	}

	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}

	return "", fmt.Errorf("topic required: pass it as an argument or via --file")
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
