package core

// ParticipantStat summarizes one persona's part in a session.
type ParticipantStat struct {
	PersonaID        PersonaID `json:"persona_id"`
	DisplayName      string    `json:"display_name"`
	Messages         int       `json:"messages"`
	FallbackMessages int       `json:"fallback_messages"`
	ProposalID       string    `json:"proposal_id"`
	ProposalQuality  float64   `json:"proposal_quality"`
	TopChoice        string    `json:"top_choice"`
	Won              bool      `json:"won"`
	Usage            Usage     `json:"usage"`
}

// QualityStats describes the distribution of non-fallback proposal
// quality scores. All zeros when every proposal fell back.
type QualityStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// SessionResult is the read-only outcome of a completed session,
// produced exactly once at session end.
type SessionResult struct {
	SessionID        string            `json:"session_id"`
	WinnerProposalID string            `json:"winner_proposal_id"`
	WinnerPersonaID  PersonaID         `json:"winner_persona_id"`
	ConsensusScore   float64           `json:"consensus_score"`
	VotingRule       VotingRule        `json:"voting_rule"`
	Distribution     VoteDistribution  `json:"distribution"`
	Participants     []ParticipantStat `json:"participants"`
	Quality          QualityStats      `json:"quality"`
	RoundsUsed       int               `json:"rounds_used"`
	EarlyStopped     bool              `json:"early_stopped"`
	Usage            Usage             `json:"usage"`
}
