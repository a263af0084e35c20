package completion

import (
	"fmt"

	"github.com/roundtable-ai/roundtable/internal/config"
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

// NewFromConfig selects and builds the configured completion client.
// The mock adapter ships with the demo script so `--adapter mock` works
// without a backend.
func NewFromConfig(cfg config.CompletionConfig, logger *logging.Logger) (core.CompletionClient, error) {
	switch cfg.Adapter {
	case "command":
		return NewCommandClient(cfg.Command, logger), nil
	case "http":
		return NewHTTPClient(cfg.HTTP, cfg.Retry, logger), nil
	case "mock":
		return NewMockClient(DemoScripts()...), nil
	default:
		return nil, fmt.Errorf("unknown completion adapter: %s", cfg.Adapter)
	}
}
