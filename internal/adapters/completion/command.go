// Package completion provides the completion backends: a CLI wrapper,
// an OpenAI-compatible HTTP client, and a scripted mock.
package completion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/roundtable-ai/roundtable/internal/config"
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

// CommandClient runs a configured CLI binary once per completion call.
// The system prompt is passed through a flag, the user prompt on stdin;
// stdout is the completion.
type CommandClient struct {
	bin        string
	args       []string
	systemFlag string
	logger     *logging.Logger
}

var _ core.CompletionClient = (*CommandClient)(nil)

// NewCommandClient creates a CLI-backed completion client.
func NewCommandClient(cfg config.CommandConfig, logger *logging.Logger) *CommandClient {
	return &CommandClient{
		bin:        cfg.Bin,
		args:       append([]string(nil), cfg.Args...),
		systemFlag: cfg.SystemFlag,
		logger:     logger.WithComponent("completion.command"),
	}
}

// Name returns the adapter identifier.
func (c *CommandClient) Name() string { return "command" }

// Complete runs one invocation of the configured binary. A non-zero
// exit becomes an error carrying the stderr tail; callers translate it
// into a fallback.
func (c *CommandClient) Complete(ctx context.Context, req core.CompletionRequest) (*core.CompletionResult, error) {
	args := append([]string(nil), c.args...)
	if c.systemFlag != "" && req.SystemPrompt != "" {
		args = append(args, c.systemFlag, req.SystemPrompt)
	}

	// #nosec G204 -- binary and args come from validated config
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Stdin = strings.NewReader(req.Prompt)
	// Unblocks Wait when a grandchild keeps the output pipe open after
	// the context kills the command.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	// The deadline may have killed the process; report the context
	// error so the phase classifies it as a timeout.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			c.logger.Warn("completion command failed",
				"bin", c.bin,
				"exit_code", exitErr.ExitCode(),
				"duration", duration,
				"stderr", truncate(stderr.String(), 500),
			)
			return nil, fmt.Errorf("%s exited with code %d: %s", c.bin, exitErr.ExitCode(), truncate(stderr.String(), 200))
		}
		return nil, fmt.Errorf("running %s: %w", c.bin, err)
	}

	text := strings.TrimSpace(stdout.String())
	c.logger.Debug("completion command finished",
		"bin", c.bin,
		"duration", duration,
		"output_length", len(text),
	)

	return &core.CompletionResult{
		Text:  text,
		Usage: estimateUsage(req, text),
	}, nil
}

// estimateUsage approximates token counts from byte counts for backends
// that report none.
func estimateUsage(req core.CompletionRequest, output string) core.Usage {
	return core.Usage{
		InputTokens:  estimateTokens(req.SystemPrompt) + estimateTokens(req.Prompt),
		OutputTokens: estimateTokens(output),
	}
}

func estimateTokens(text string) int {
	return len(text) / 4
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "... [truncated]"
}
