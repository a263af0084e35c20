package completion

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// Script answers the calls whose prompts contain its matchers. Empty
// matchers match everything; the first matching script wins.
type Script struct {
	SystemContains string
	PromptContains string
	Reply          string
	Err            error
}

// MockClient returns scripted completions for tests and demos. It is
// safe for concurrent use.
type MockClient struct {
	mu      sync.Mutex
	scripts []Script
	calls   int
	delay   time.Duration
}

var _ core.CompletionClient = (*MockClient)(nil)

// NewMockClient creates a mock client with the given scripts.
func NewMockClient(scripts ...Script) *MockClient {
	return &MockClient{scripts: scripts}
}

// WithDelay makes every call sleep before answering, to exercise
// timeout paths.
func (m *MockClient) WithDelay(d time.Duration) *MockClient {
	m.delay = d
	return m
}

// Name returns the adapter identifier.
func (m *MockClient) Name() string { return "mock" }

// Calls returns how many completions were requested so far.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete answers with the first matching script, or a generic line
// when nothing matches.
func (m *MockClient) Complete(ctx context.Context, req core.CompletionRequest) (*core.CompletionResult, error) {
	m.mu.Lock()
	m.calls++
	scripts := m.scripts
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, s := range scripts {
		if s.SystemContains != "" && !strings.Contains(req.SystemPrompt, s.SystemContains) {
			continue
		}
		if s.PromptContains != "" && !strings.Contains(req.Prompt, s.PromptContains) {
			continue
		}
		if s.Err != nil {
			return nil, s.Err
		}
		return &core.CompletionResult{Text: s.Reply, Usage: estimateUsage(req, s.Reply)}, nil
	}

	reply := "I have nothing further to add."
	return &core.CompletionResult{Text: reply, Usage: estimateUsage(req, reply)}, nil
}

// DemoScripts returns a canned deliberation for `--adapter mock`: the
// personas state positions in round one, converge in round two, file
// distinct proposals, and rally behind P2. Written for the three-seat
// default team but harmless with any other.
func DemoScripts() []Script {
	return []Script{
		{
			SystemContains: "The Analyst",
			PromptContains: "round 1 of",
			Reply: "Looking at the numbers first: we should benchmark the two leading options " +
				"before committing. Prior art suggests the managed route wins on total cost " +
				"once the team is larger than five.",
		},
		{
			SystemContains: "The Pragmatist",
			PromptContains: "round 1 of",
			Reply: "Whatever we pick has to ship this quarter. I lean toward the boring, " +
				"well-documented option we already know how to operate.",
		},
		{
			PromptContains: "round 1 of",
			Reply: "I see real risk in deciding on instinct here. What breaks under load, and " +
				"who gets paged when it does? We need those answers on the table.",
		},
		{
			PromptContains: "discussion round",
			Reply: "I agree with The Pragmatist. The boring option with a benchmark to back " +
				"it up covers both the delivery and the evidence concerns.",
		},
		{
			SystemContains: "The Analyst",
			PromptContains: "section markers",
			Reply: "TITLE: Benchmark, then adopt the managed option\n" +
				"DESCRIPTION: Run a one-week benchmark of the two finalists against production-shaped load, " +
				"then adopt the managed option unless the numbers disqualify it.\n" +
				"BENEFITS:\n- Decision backed by data\n- Bounded time investment\n" +
				"STEPS:\n1. Define the load profile\n2. Run both benchmarks\n3. Publish results\n4. Adopt the winner",
		},
		{
			SystemContains: "The Pragmatist",
			PromptContains: "section markers",
			Reply: "TITLE: Adopt the proven option now\n" +
				"DESCRIPTION: Pick the option the team already operates confidently, ship this quarter, " +
				"and revisit only if it fails a concrete capacity target.\n" +
				"BENEFITS:\n- Ships this quarter\n- No new operational surface\n- Known failure modes\n" +
				"STEPS:\n1. Write the capacity target\n2. Provision\n3. Migrate\n4. Review in six months",
		},
		{
			PromptContains: "section markers",
			Reply: "TITLE: Stress-test before any commitment\n" +
				"DESCRIPTION: Neither option has been pushed to failure by us. Break both in a sandbox first.\n" +
				"BENEFITS:\n- Failure modes known up front\n" +
				"STEPS:\n1. Build the sandbox\n2. Break both options\n3. Decide from the wreckage",
		},
		{PromptContains: "RANKING:", Reply: "RANKING: P2 > P1 > P3"},
		{PromptContains: "RATE P1", Reply: "RATE P1: 4\nRATE P2: 5\nRATE P3: 3"},
		{PromptContains: "VOTE:", Reply: "VOTE: P2"},
	}
}
