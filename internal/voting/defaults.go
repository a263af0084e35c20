package voting

import (
	"sort"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// DefaultBallot builds the substitute ballot for a persona that failed
// to produce a valid one. Majority and unanimity back the
// highest-quality proposal, rated flattens to a 3 for everything, and
// ranked orders by quality score descending. Quality ties resolve to
// canonical proposal order.
func DefaultBallot(rule core.VotingRule, proposals []core.Proposal) core.Ballot {
	switch rule {
	case core.RuleMajority, core.RuleUnanimity:
		return core.Ballot{ProposalID: highestQuality(proposals).ID}
	case core.RuleRated:
		ratings := make(map[string]int, len(proposals))
		for _, p := range proposals {
			ratings[p.ID] = 3
		}
		return core.Ballot{Ratings: ratings}
	case core.RuleRanked:
		return core.Ballot{Ranking: qualityRanking(proposals)}
	}
	return core.Ballot{}
}

func highestQuality(proposals []core.Proposal) core.Proposal {
	best := proposals[0]
	for _, p := range proposals[1:] {
		if p.QualityScore > best.QualityScore {
			best = p
		}
	}
	return best
}

// qualityRanking returns all proposal ids ordered by quality score
// descending.
func qualityRanking(proposals []core.Proposal) []string {
	idx := make([]int, len(proposals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return proposals[idx[a]].QualityScore > proposals[idx[b]].QualityScore
	})
	ids := make([]string, len(proposals))
	for i, j := range idx {
		ids[i] = proposals[j].ID
	}
	return ids
}
