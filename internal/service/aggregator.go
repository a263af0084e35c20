package service

import (
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/voting"
)

// BuildResult assembles the immutable session result from a session
// whose votes have been tallied. Pure; called exactly once per session.
func BuildResult(sess *core.Session, outcome *voting.Outcome) *core.SessionResult {
	votesByPersona := make(map[core.PersonaID]core.Vote, len(sess.Votes))
	for _, v := range sess.Votes {
		votesByPersona[v.PersonaID] = v
	}

	participants := make([]core.ParticipantStat, len(sess.Personas))
	var total core.Usage

	for i, p := range sess.Personas {
		stat := core.ParticipantStat{
			PersonaID:   p.ID,
			DisplayName: p.DisplayName,
		}

		for _, r := range sess.Rounds {
			for _, m := range r.Messages {
				if m.PersonaID != p.ID {
					continue
				}
				stat.Messages++
				if m.IsFallback {
					stat.FallbackMessages++
				}
				stat.Usage.Add(m.Usage)
			}
		}

		// Proposals sit in registration order, one per persona.
		if i < len(sess.Proposals) {
			prop := sess.Proposals[i]
			stat.ProposalID = prop.ID
			stat.ProposalQuality = prop.QualityScore
			stat.Won = prop.ID == outcome.WinnerProposalID
			stat.Usage.Add(prop.Usage)
		}

		if v, ok := votesByPersona[p.ID]; ok {
			stat.Usage.Add(v.Usage)
		}
		stat.TopChoice = outcome.TopChoices[p.ID]

		total.Add(stat.Usage)
		participants[i] = stat
	}

	result := &core.SessionResult{
		SessionID:        sess.ID,
		WinnerProposalID: outcome.WinnerProposalID,
		ConsensusScore:   outcome.ConsensusScore,
		VotingRule:       sess.VotingRule,
		Distribution:     outcome.Distribution,
		Participants:     participants,
		Quality:          qualityStats(sess.Proposals),
		RoundsUsed:       sess.RoundsUsed(),
		// Discussion only ends before max rounds through convergence,
		// so early stop is implied by the round count.
		EarlyStopped: sess.RoundsUsed() < sess.MaxRounds,
		Usage:        total,
	}
	if winner := core.FindProposal(sess.Proposals, outcome.WinnerProposalID); winner != nil {
		result.WinnerPersonaID = winner.PersonaID
	}
	return result
}

// qualityStats summarizes non-fallback proposal quality. All zeros when
// every proposal fell back.
func qualityStats(proposals []core.Proposal) core.QualityStats {
	var stats core.QualityStats
	n := 0
	for _, p := range proposals {
		if p.IsFallback {
			continue
		}
		q := p.QualityScore
		if n == 0 || q < stats.Min {
			stats.Min = q
		}
		if q > stats.Max {
			stats.Max = q
		}
		stats.Mean += q
		n++
	}
	if n > 0 {
		stats.Mean /= float64(n)
	}
	return stats
}
