package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// DefaultConfigYAML is the starter configuration written by
// `roundtable init`.
const DefaultConfigYAML = `# RoundTable configuration.
# Values not specified here use built-in defaults.

log:
  level: info        # debug, info, warn, error
  format: auto       # auto, text, json

completion:
  adapter: command   # command, http, mock
  timeout: 30s       # per persona call
  command:
    bin: claude      # any CLI that reads a prompt on stdin and prints a completion
    args: ["-p"]
    system_flag: "--append-system-prompt"
  http:
    base_url: https://api.openai.com/v1
    model: gpt-4o-mini
    # api_key: set via ROUNDTABLE_COMPLETION_HTTP_API_KEY
  retry:
    max_attempts: 2
    initial_delay: 500ms

session:
  max_rounds: 3
  voting_rule: majority   # majority, unanimity, rated, ranked
  timeout: 5m
  team: DEFAULT           # DEFAULT, FULL, COMPACT

store:
  path: .roundtable/roundtable.db
  reports_dir: .roundtable/reports

server:
  host: 127.0.0.1
  port: 8787
`

// WriteDefault writes the starter configuration to path atomically.
// Refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(DefaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
