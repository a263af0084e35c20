package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roundtable-ai/roundtable/internal/core"
)

var (
	votePattern    = regexp.MustCompile(`(?im)^\s*(?:my\s+)?vote\s*:?\s*\(?([Pp]\d+)\)?`)
	ratePattern    = regexp.MustCompile(`(?im)^\s*(?:rate\s+)?\(?([Pp]\d+)\)?\s*[:=-]\s*([1-5])\b`)
	rankingPattern = regexp.MustCompile(`(?im)^\s*rank(?:ing)?\s*:?\s*(.+)$`)
	proposalToken  = regexp.MustCompile(`\b[Pp]\d+\b`)
)

// parseBallot extracts a ballot of the rule's shape from a voting
// reply. Validity is binary: a ballot that cannot be fully recovered
// reports ok=false and the caller substitutes a default ballot.
func parseBallot(rule core.VotingRule, text string, proposals []core.Proposal) (core.Ballot, bool) {
	known := make(map[string]bool, len(proposals))
	for _, p := range proposals {
		known[p.ID] = true
	}

	switch rule {
	case core.RuleMajority, core.RuleUnanimity:
		if id, ok := parseSingleChoice(text, known); ok {
			return core.Ballot{ProposalID: id}, true
		}
	case core.RuleRated:
		if ratings, ok := parseRatings(text, known, len(proposals)); ok {
			return core.Ballot{Ratings: ratings}, true
		}
	case core.RuleRanked:
		if ranking, ok := parseRanking(text, known, len(proposals)); ok {
			return core.Ballot{Ranking: ranking}, true
		}
	}
	return core.Ballot{}, false
}

// parseSingleChoice prefers an explicit VOTE line; failing that it
// tolerates a reply that mentions exactly one known proposal id.
func parseSingleChoice(text string, known map[string]bool) (string, bool) {
	if m := votePattern.FindStringSubmatch(text); m != nil {
		id := strings.ToUpper(m[1])
		if known[id] {
			return id, true
		}
	}

	var distinct []string
	seen := map[string]bool{}
	for _, tok := range proposalToken.FindAllString(text, -1) {
		id := strings.ToUpper(tok)
		if known[id] && !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}
	if len(distinct) == 1 {
		return distinct[0], true
	}
	return "", false
}

// parseRatings requires a rating line for every proposal; the first
// rating for an id wins and unknown ids are ignored.
func parseRatings(text string, known map[string]bool, k int) (map[string]int, bool) {
	ratings := make(map[string]int, k)
	for _, m := range ratePattern.FindAllStringSubmatch(text, -1) {
		id := strings.ToUpper(m[1])
		if !known[id] {
			continue
		}
		if _, dup := ratings[id]; dup {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		ratings[id] = n
	}
	if len(ratings) != k {
		return nil, false
	}
	return ratings, true
}

// parseRanking prefers an explicit RANKING line, falling back to id
// order of appearance across the whole reply. Only a full permutation
// of the proposal set is valid.
func parseRanking(text string, known map[string]bool, k int) ([]string, bool) {
	if m := rankingPattern.FindStringSubmatch(text); m != nil {
		if ranking := collectIDs(m[1], known); len(ranking) == k {
			return ranking, true
		}
	}
	if ranking := collectIDs(text, known); len(ranking) == k {
		return ranking, true
	}
	return nil, false
}

func collectIDs(s string, known map[string]bool) []string {
	var ids []string
	seen := map[string]bool{}
	for _, tok := range proposalToken.FindAllString(s, -1) {
		id := strings.ToUpper(tok)
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
