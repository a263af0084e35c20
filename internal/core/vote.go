package core

// Ballot carries a persona's vote in the shape dictated by the session's
// voting rule. Exactly one field is populated: ProposalID for majority and
// unanimity, Ratings for rated, Ranking for ranked.
type Ballot struct {
	ProposalID string         `json:"proposal_id,omitempty"`
	Ratings    map[string]int `json:"ratings,omitempty"`
	Ranking    []string       `json:"ranking,omitempty"`
}

// Vote is one persona's cast ballot. IsFallback marks default ballots
// substituted for failed or invalid responses.
type Vote struct {
	PersonaID  PersonaID `json:"persona_id"`
	Ballot     Ballot    `json:"ballot"`
	IsFallback bool      `json:"is_fallback"`
	Usage      Usage     `json:"usage"`
}

// VoteDistribution summarizes aggregation under one rule. Totals holds
// vote counts (majority/unanimity), rating sums (rated), or Borda points
// (ranked), keyed by proposal id. Unanimous reports whether every
// voter's top choice matched the winner.
type VoteDistribution struct {
	Rule            VotingRule         `json:"rule"`
	Totals          map[string]float64 `json:"totals"`
	Unanimous       bool               `json:"unanimous"`
	FallbackBallots int                `json:"fallback_ballots"`
}

// AllFallbackVotes reports whether every vote is a default ballot.
func AllFallbackVotes(votes []Vote) bool {
	if len(votes) == 0 {
		return false
	}
	for _, v := range votes {
		if !v.IsFallback {
			return false
		}
	}
	return true
}
