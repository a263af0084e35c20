package core

import (
	"context"
	"time"
)

// =============================================================================
// Completion Port
// =============================================================================

// CompletionRequest is one stateless text-completion call.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
}

// Usage counts tokens consumed by one completion call. Adapters that get
// no usage data from their backend estimate it.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns the sum of input and output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// CompletionResult is the successful outcome of a completion call.
type CompletionResult struct {
	Text  string
	Usage Usage
}

// CompletionClient is the stateless request/response completion
// capability consumed by all phases. Implementations must be safe for
// concurrent use; callers apply their own per-call timeout through ctx.
type CompletionClient interface {
	// Name returns the adapter identifier (e.g., "command", "http").
	Name() string

	// Complete runs one completion call.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// =============================================================================
// Persistence Port
// =============================================================================

// SessionFilter narrows ListSessions. Zero fields match everything.
type SessionFilter struct {
	Topic  string
	UserID string
	Status string
	Limit  int
}

// SessionSummary is the list-view projection of a stored session.
type SessionSummary struct {
	ID               string     `json:"id"`
	Topic            string     `json:"topic"`
	UserID           string     `json:"user_id,omitempty"`
	Status           Status     `json:"status"`
	VotingRule       VotingRule `json:"voting_rule"`
	WinnerProposalID string     `json:"winner_proposal_id,omitempty"`
	ConsensusScore   float64    `json:"consensus_score"`
	RoundsUsed       int        `json:"rounds_used"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
}

// PersonaWinRate is one row of the win-rate analytics query.
type PersonaWinRate struct {
	PersonaID PersonaID `json:"persona_id"`
	Sessions  int       `json:"sessions"`
	Wins      int       `json:"wins"`
	WinRate   float64   `json:"win_rate"`
}

// RuleEffectiveness is one row of the voting-rule analytics query.
type RuleEffectiveness struct {
	Rule           VotingRule `json:"rule"`
	Sessions       int        `json:"sessions"`
	AvgConsensus   float64    `json:"avg_consensus"`
	AvgRounds      float64    `json:"avg_rounds"`
	UnanimousShare float64    `json:"unanimous_share"`
}

// SessionStore persists completed and failed sessions. The engine treats
// it as a write-behind sink: phase execution never blocks on it.
type SessionStore interface {
	// SaveSession upserts a session and, when non-nil, its result.
	SaveSession(ctx context.Context, session *Session, result *SessionResult) error

	// GetSession loads a session and its result (result may be nil for
	// failed sessions). Returns a not-found storage error when absent.
	GetSession(ctx context.Context, id string) (*Session, *SessionResult, error)

	// ListSessions returns summaries matching the filter, newest first.
	ListSessions(ctx context.Context, filter SessionFilter) ([]SessionSummary, error)

	// WinRateByPersona aggregates wins over all completed sessions.
	WinRateByPersona(ctx context.Context) ([]PersonaWinRate, error)

	// EffectivenessByVotingRule aggregates result metrics per rule.
	EffectivenessByVotingRule(ctx context.Context) ([]RuleEffectiveness, error)

	// Close releases the underlying resources.
	Close() error
}
