package core

import (
	"fmt"
	"strings"
)

// VotingRule selects how ballots are shaped and aggregated. The set is
// closed: every rule has exactly one aggregation handler.
type VotingRule string

const (
	// RuleMajority counts one vote per persona; highest tally wins.
	RuleMajority VotingRule = "majority"

	// RuleUnanimity requires every ballot to name the same proposal;
	// otherwise the ballots are re-aggregated as a majority vote and the
	// result is flagged non-unanimous.
	RuleUnanimity VotingRule = "unanimity"

	// RuleRated sums per-proposal ratings (1..5) across all voters.
	RuleRated VotingRule = "rated"

	// RuleRanked is a Borda count over full rankings: with K proposals a
	// ballot awards K-1 points to its top choice down to 0 for the last.
	RuleRanked VotingRule = "ranked"
)

// AllVotingRules returns every supported rule.
func AllVotingRules() []VotingRule {
	return []VotingRule{RuleMajority, RuleUnanimity, RuleRated, RuleRanked}
}

// ValidVotingRule checks if a rule string is valid.
func ValidVotingRule(r VotingRule) bool {
	switch r {
	case RuleMajority, RuleUnanimity, RuleRated, RuleRanked:
		return true
	default:
		return false
	}
}

// ParseVotingRule converts a string to a VotingRule with validation.
// Matching is case-insensitive.
func ParseVotingRule(s string) (VotingRule, error) {
	r := VotingRule(strings.ToLower(strings.TrimSpace(s)))
	if !ValidVotingRule(r) {
		return "", fmt.Errorf("invalid voting rule: %q (want one of majority, unanimity, rated, ranked)", s)
	}
	return r, nil
}

// String returns the string representation of the rule.
func (r VotingRule) String() string {
	return string(r)
}
