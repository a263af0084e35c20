// Package voting aggregates ballots into a winner under the session's
// voting rule. Everything here is pure: no I/O, no clocks, identical
// inputs produce identical outcomes.
package voting

import (
	"fmt"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// Outcome is the result of aggregating one ballot set.
type Outcome struct {
	WinnerProposalID string
	Distribution     core.VoteDistribution
	ConsensusScore   float64

	// TopChoices records each voter's effective first preference,
	// the basis of the consensus score.
	TopChoices map[core.PersonaID]string
}

// Tally aggregates votes over proposals under rule.
//
// Proposals must be in canonical order (persona registration order);
// ties always resolve to the earliest proposal in that order. Every
// ballot must already be valid for the rule; the voting phase
// substitutes default ballots before aggregation ever runs.
func Tally(rule core.VotingRule, proposals []core.Proposal, votes []core.Vote) (*Outcome, error) {
	if len(proposals) == 0 {
		return nil, core.ErrValidation("NO_PROPOSALS", "cannot tally without proposals")
	}
	if len(votes) == 0 {
		return nil, core.ErrValidation("NO_VOTES", "cannot tally without votes")
	}
	if !core.ValidVotingRule(rule) {
		return nil, core.ErrValidation("INVALID_VOTING_RULE", fmt.Sprintf("unknown voting rule %q", rule))
	}

	known := make(map[string]bool, len(proposals))
	for _, p := range proposals {
		if known[p.ID] {
			return nil, core.ErrValidation("DUPLICATE_PROPOSAL", fmt.Sprintf("proposal id %s appears more than once", p.ID))
		}
		known[p.ID] = true
	}

	for _, v := range votes {
		if err := checkBallot(rule, v, known, len(proposals)); err != nil {
			return nil, err
		}
	}

	totals := make(map[string]float64, len(proposals))
	for _, p := range proposals {
		totals[p.ID] = 0
	}

	switch rule {
	case core.RuleMajority, core.RuleUnanimity:
		for _, v := range votes {
			totals[v.Ballot.ProposalID]++
		}
	case core.RuleRated:
		for _, v := range votes {
			for id, rating := range v.Ballot.Ratings {
				totals[id] += float64(rating)
			}
		}
	case core.RuleRanked:
		// Borda: with K proposals, rank position p contributes K-1-p
		// points, so the top rank is worth K-1 and the last rank 0.
		k := len(proposals)
		for _, v := range votes {
			for pos, id := range v.Ballot.Ranking {
				totals[id] += float64(k - 1 - pos)
			}
		}
	}

	winner := pickWinner(proposals, totals)

	top := make(map[core.PersonaID]string, len(votes))
	supporters := 0
	fallbacks := 0
	for _, v := range votes {
		choice := topChoice(rule, v.Ballot, proposals)
		top[v.PersonaID] = choice
		if choice == winner {
			supporters++
		}
		if v.IsFallback {
			fallbacks++
		}
	}

	return &Outcome{
		WinnerProposalID: winner,
		Distribution: core.VoteDistribution{
			Rule:            rule,
			Totals:          totals,
			Unanimous:       supporters == len(votes),
			FallbackBallots: fallbacks,
		},
		ConsensusScore: float64(supporters) / float64(len(votes)),
		TopChoices:     top,
	}, nil
}

// pickWinner returns the highest-total proposal. On a tie the earliest
// proposal in canonical order wins, which is the one submitted by the
// persona with the lowest registration index.
func pickWinner(proposals []core.Proposal, totals map[string]float64) string {
	winner := proposals[0].ID
	best := totals[winner]
	for _, p := range proposals[1:] {
		if totals[p.ID] > best {
			winner = p.ID
			best = totals[p.ID]
		}
	}
	return winner
}

// topChoice reinterprets a ballot as a single first preference.
func topChoice(rule core.VotingRule, b core.Ballot, proposals []core.Proposal) string {
	switch rule {
	case core.RuleMajority, core.RuleUnanimity:
		return b.ProposalID
	case core.RuleRated:
		choice := proposals[0].ID
		best := b.Ratings[choice]
		for _, p := range proposals[1:] {
			if b.Ratings[p.ID] > best {
				choice = p.ID
				best = b.Ratings[p.ID]
			}
		}
		return choice
	case core.RuleRanked:
		if len(b.Ranking) > 0 {
			return b.Ranking[0]
		}
	}
	return ""
}

func checkBallot(rule core.VotingRule, v core.Vote, known map[string]bool, k int) error {
	switch rule {
	case core.RuleMajority, core.RuleUnanimity:
		if !known[v.Ballot.ProposalID] {
			return invalidBallot(v.PersonaID, fmt.Sprintf("vote for unknown proposal %q", v.Ballot.ProposalID))
		}
	case core.RuleRated:
		if len(v.Ballot.Ratings) != k {
			return invalidBallot(v.PersonaID, fmt.Sprintf("rated %d of %d proposals", len(v.Ballot.Ratings), k))
		}
		for id, rating := range v.Ballot.Ratings {
			if !known[id] {
				return invalidBallot(v.PersonaID, fmt.Sprintf("rating for unknown proposal %q", id))
			}
			if rating < 1 || rating > 5 {
				return invalidBallot(v.PersonaID, fmt.Sprintf("rating %d for %s out of range 1..5", rating, id))
			}
		}
	case core.RuleRanked:
		if len(v.Ballot.Ranking) != k {
			return invalidBallot(v.PersonaID, fmt.Sprintf("ranked %d of %d proposals", len(v.Ballot.Ranking), k))
		}
		seen := make(map[string]bool, k)
		for _, id := range v.Ballot.Ranking {
			if !known[id] {
				return invalidBallot(v.PersonaID, fmt.Sprintf("ranking references unknown proposal %q", id))
			}
			if seen[id] {
				return invalidBallot(v.PersonaID, fmt.Sprintf("ranking lists proposal %s twice", id))
			}
			seen[id] = true
		}
	}
	return nil
}

func invalidBallot(persona core.PersonaID, detail string) error {
	return core.ErrValidation("INVALID_BALLOT", fmt.Sprintf("persona %s: %s", persona, detail))
}
