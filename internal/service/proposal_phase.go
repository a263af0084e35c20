package service

import (
	"context"
	"time"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

// ProposalPhase collects one structured proposal per persona after the
// discussion ends. It runs exactly once per session.
type ProposalPhase struct {
	client  core.CompletionClient
	prompts *PromptRenderer
	logger  *logging.Logger
	timeout time.Duration
}

// NewProposalPhase creates a proposal phase. A non-positive timeout
// falls back to DefaultCallTimeout.
func NewProposalPhase(client core.CompletionClient, prompts *PromptRenderer, logger *logging.Logger, timeout time.Duration) *ProposalPhase {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &ProposalPhase{
		client:  client,
		prompts: prompts,
		logger:  logger.WithComponent("proposal_phase"),
		timeout: timeout,
	}
}

// Run gathers proposals from every persona in parallel. Proposal ids
// are assigned by persona position (P1..PN), so they are stable for a
// given team. Failed calls yield fallback proposals with quality 0.
func (p *ProposalPhase) Run(ctx context.Context, sess *core.Session) ([]core.Proposal, error) {
	personas := sess.Personas

	prompt, err := p.prompts.RenderProposal(ProposalParams{
		Topic:      sess.Topic,
		Transcript: renderTranscript(personas, sess.Rounds),
	})
	if err != nil {
		return nil, err
	}

	prompts := make([]string, len(personas))
	for i := range prompts {
		prompts[i] = prompt
	}

	results := fanOut(ctx, p.client, p.timeout, personas, prompts)

	proposals := make([]core.Proposal, len(personas))
	for i, persona := range personas {
		res := results[i]
		if res.failed() {
			p.logger.WithPersona(string(persona.ID)).Warn("proposal call failed, substituting fallback",
				"error", res.err,
			)
			proposals[i] = core.FallbackProposal(persona, i)
			continue
		}

		parsed := parseProposal(res.text)
		prop := core.Proposal{
			ID:          core.ProposalID(i),
			PersonaID:   persona.ID,
			Title:       parsed.Title,
			Description: parsed.Description,
			Benefits:    parsed.Benefits,
			Steps:       parsed.Steps,
			Usage:       res.usage,
		}
		prop.QualityScore = QualityScore(prop)
		proposals[i] = prop
	}

	return proposals, nil
}
