package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// callResult is one persona's completion outcome. Slot i belongs to
// personas[i]; failed slots carry the error and an empty text.
type callResult struct {
	text  string
	usage core.Usage
	err   error
}

func (r callResult) failed() bool {
	return r.err != nil
}

// fanOut issues one completion call per persona concurrently, applying
// the per-call timeout to each. Results come back indexed by persona
// position regardless of completion order. Individual failures land in
// their slot and never abort the other calls.
func fanOut(ctx context.Context, client core.CompletionClient, timeout time.Duration, personas []core.PersonaProfile, prompts []string) []callResult {
	results := make([]callResult, len(personas))

	g, gctx := errgroup.WithContext(ctx)
	for i := range personas {
		i := i // capture
		g.Go(func() error {
			results[i] = completeOne(gctx, client, timeout, personas[i], prompts[i])
			return nil
		})
	}
	// Tasks never return errors; Wait is purely the join point.
	_ = g.Wait()

	return results
}

// completeOne performs a single persona call under the per-call
// timeout, normalizing failures into the domain taxonomy.
func completeOne(ctx context.Context, client core.CompletionClient, timeout time.Duration, persona core.PersonaProfile, prompt string) callResult {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := client.Complete(cctx, core.CompletionRequest{
		SystemPrompt: SystemPrompt(persona),
		Prompt:       prompt,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return callResult{err: core.ErrAgentTimeout(persona.ID, timeout)}
		}
		var derr *core.DomainError
		if errors.As(err, &derr) {
			return callResult{err: err}
		}
		return callResult{err: core.ErrAgentError(persona.ID, err)}
	}
	if strings.TrimSpace(res.Text) == "" {
		return callResult{usage: res.Usage, err: core.ErrAgentError(persona.ID, errors.New("empty response"))}
	}

	return callResult{text: res.Text, usage: res.Usage}
}
