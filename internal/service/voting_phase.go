package service

import (
	"context"
	"fmt"
	"time"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/logging"
	"github.com/roundtable-ai/roundtable/internal/voting"
)

// VotingPhase collects one ballot per persona over the full proposal
// set and aggregates them under the session's voting rule.
type VotingPhase struct {
	client  core.CompletionClient
	prompts *PromptRenderer
	logger  *logging.Logger
	timeout time.Duration
}

// NewVotingPhase creates a voting phase. A non-positive timeout falls
// back to DefaultCallTimeout.
func NewVotingPhase(client core.CompletionClient, prompts *PromptRenderer, logger *logging.Logger, timeout time.Duration) *VotingPhase {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &VotingPhase{
		client:  client,
		prompts: prompts,
		logger:  logger.WithComponent("voting_phase"),
		timeout: timeout,
	}
}

// Run gathers ballots in parallel and tallies them. A persona whose
// call fails or whose reply cannot be parsed into a valid ballot
// receives the rule's default ballot, so aggregation always sees one
// valid vote per persona.
func (p *VotingPhase) Run(ctx context.Context, sess *core.Session, proposals []core.Proposal) ([]core.Vote, *voting.Outcome, error) {
	personas := sess.Personas
	rule := sess.VotingRule

	prompt, err := p.prompts.RenderBallot(BallotParams{
		Topic:     sess.Topic,
		Rule:      rule,
		Proposals: ballotProposals(proposals),
	})
	if err != nil {
		return nil, nil, err
	}

	prompts := make([]string, len(personas))
	for i := range prompts {
		prompts[i] = prompt
	}

	results := fanOut(ctx, p.client, p.timeout, personas, prompts)

	votes := make([]core.Vote, len(personas))
	for i, persona := range personas {
		res := results[i]
		if res.failed() {
			p.logger.WithPersona(string(persona.ID)).Warn("voting call failed, substituting default ballot",
				"error", res.err,
			)
			votes[i] = core.Vote{
				PersonaID:  persona.ID,
				Ballot:     voting.DefaultBallot(rule, proposals),
				IsFallback: true,
				Usage:      res.usage,
			}
			continue
		}

		ballot, ok := parseBallot(rule, res.text, proposals)
		if !ok {
			perr := core.ErrParseFailure("ballot", fmt.Sprintf("no valid %s ballot in reply from %s", rule, persona.ID))
			p.logger.WithPersona(string(persona.ID)).Warn("ballot unparsable, substituting default ballot",
				"error", perr,
			)
			votes[i] = core.Vote{
				PersonaID:  persona.ID,
				Ballot:     voting.DefaultBallot(rule, proposals),
				IsFallback: true,
				Usage:      res.usage,
			}
			continue
		}

		votes[i] = core.Vote{PersonaID: persona.ID, Ballot: ballot, Usage: res.usage}
	}

	outcome, err := voting.Tally(rule, proposals, votes)
	if err != nil {
		return votes, nil, err
	}

	return votes, outcome, nil
}

func ballotProposals(proposals []core.Proposal) []BallotProposal {
	out := make([]BallotProposal, len(proposals))
	for i, p := range proposals {
		out[i] = BallotProposal{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
		}
	}
	return out
}
