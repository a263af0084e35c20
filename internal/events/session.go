package events

// Event type constants for deliberation sessions.
const (
	TypeSessionStarted      = "session_started"
	TypeRoundStarted        = "round_started"
	TypeMessageAdded        = "message_added"
	TypeRoundCompleted      = "round_completed"
	TypeSessionEarlyStopped = "session_early_stopped"
	TypePhaseStarted        = "phase_started"
	TypePhaseCompleted      = "phase_completed"
	TypeProposalAdded       = "proposal_added"
	TypeVoteAdded           = "vote_added"
	TypeSessionCompleted    = "session_completed"
	TypeSessionFailed       = "session_failed"
)

// SessionStartedEvent is emitted when a session enters discussion.
type SessionStartedEvent struct {
	BaseEvent
	Topic      string   `json:"topic"`
	Personas   []string `json:"personas"`
	VotingRule string   `json:"voting_rule"`
	MaxRounds  int      `json:"max_rounds"`
}

// NewSessionStartedEvent creates a new session started event.
func NewSessionStartedEvent(sessionID, topic string, personas []string, votingRule string, maxRounds int) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent:  NewBaseEvent(TypeSessionStarted, sessionID),
		Topic:      topic,
		Personas:   personas,
		VotingRule: votingRule,
		MaxRounds:  maxRounds,
	}
}

// RoundStartedEvent is emitted when a discussion round begins.
type RoundStartedEvent struct {
	BaseEvent
	Round int `json:"round"`
}

// NewRoundStartedEvent creates a new round started event.
func NewRoundStartedEvent(sessionID string, round int) RoundStartedEvent {
	return RoundStartedEvent{
		BaseEvent: NewBaseEvent(TypeRoundStarted, sessionID),
		Round:     round,
	}
}

// MessageAddedEvent is emitted for each message collected in a round.
type MessageAddedEvent struct {
	BaseEvent
	Round      int    `json:"round"`
	PersonaID  string `json:"persona_id"`
	Signal     string `json:"signal"`
	IsFallback bool   `json:"is_fallback"`
}

// NewMessageAddedEvent creates a new message added event.
func NewMessageAddedEvent(sessionID string, round int, personaID, signal string, isFallback bool) MessageAddedEvent {
	return MessageAddedEvent{
		BaseEvent:  NewBaseEvent(TypeMessageAdded, sessionID),
		Round:      round,
		PersonaID:  personaID,
		Signal:     signal,
		IsFallback: isFallback,
	}
}

// RoundCompletedEvent is emitted when a discussion round finishes.
type RoundCompletedEvent struct {
	BaseEvent
	Round     int  `json:"round"`
	Fallbacks int  `json:"fallbacks"`
	EarlyStop bool `json:"early_stop"`
}

// NewRoundCompletedEvent creates a new round completed event.
func NewRoundCompletedEvent(sessionID string, round, fallbacks int, earlyStop bool) RoundCompletedEvent {
	return RoundCompletedEvent{
		BaseEvent: NewBaseEvent(TypeRoundCompleted, sessionID),
		Round:     round,
		Fallbacks: fallbacks,
		EarlyStop: earlyStop,
	}
}

// SessionEarlyStoppedEvent is emitted when discussion ends before
// max rounds because the personas converged.
type SessionEarlyStoppedEvent struct {
	BaseEvent
	Round int `json:"round"`
}

// NewSessionEarlyStoppedEvent creates a new early stop event.
func NewSessionEarlyStoppedEvent(sessionID string, round int) SessionEarlyStoppedEvent {
	return SessionEarlyStoppedEvent{
		BaseEvent: NewBaseEvent(TypeSessionEarlyStopped, sessionID),
		Round:     round,
	}
}

// PhaseStartedEvent is emitted when a phase begins.
type PhaseStartedEvent struct {
	BaseEvent
	Phase string `json:"phase"`
}

// NewPhaseStartedEvent creates a new phase started event.
func NewPhaseStartedEvent(sessionID, phase string) PhaseStartedEvent {
	return PhaseStartedEvent{
		BaseEvent: NewBaseEvent(TypePhaseStarted, sessionID),
		Phase:     phase,
	}
}

// PhaseCompletedEvent is emitted when a phase finishes.
type PhaseCompletedEvent struct {
	BaseEvent
	Phase     string `json:"phase"`
	Fallbacks int    `json:"fallbacks"`
}

// NewPhaseCompletedEvent creates a new phase completed event.
func NewPhaseCompletedEvent(sessionID, phase string, fallbacks int) PhaseCompletedEvent {
	return PhaseCompletedEvent{
		BaseEvent: NewBaseEvent(TypePhaseCompleted, sessionID),
		Phase:     phase,
		Fallbacks: fallbacks,
	}
}

// ProposalAddedEvent is emitted for each collected proposal.
type ProposalAddedEvent struct {
	BaseEvent
	ProposalID   string  `json:"proposal_id"`
	PersonaID    string  `json:"persona_id"`
	Title        string  `json:"title"`
	QualityScore float64 `json:"quality_score"`
	IsFallback   bool    `json:"is_fallback"`
}

// NewProposalAddedEvent creates a new proposal added event.
func NewProposalAddedEvent(sessionID, proposalID, personaID, title string, quality float64, isFallback bool) ProposalAddedEvent {
	return ProposalAddedEvent{
		BaseEvent:    NewBaseEvent(TypeProposalAdded, sessionID),
		ProposalID:   proposalID,
		PersonaID:    personaID,
		Title:        title,
		QualityScore: quality,
		IsFallback:   isFallback,
	}
}

// VoteAddedEvent is emitted for each collected ballot.
type VoteAddedEvent struct {
	BaseEvent
	PersonaID  string `json:"persona_id"`
	IsFallback bool   `json:"is_fallback"`
}

// NewVoteAddedEvent creates a new vote added event.
func NewVoteAddedEvent(sessionID, personaID string, isFallback bool) VoteAddedEvent {
	return VoteAddedEvent{
		BaseEvent:  NewBaseEvent(TypeVoteAdded, sessionID),
		PersonaID:  personaID,
		IsFallback: isFallback,
	}
}

// SessionCompletedEvent is emitted when a session reaches completed.
type SessionCompletedEvent struct {
	BaseEvent
	WinnerProposalID string  `json:"winner_proposal_id"`
	WinnerPersonaID  string  `json:"winner_persona_id"`
	ConsensusScore   float64 `json:"consensus_score"`
	RoundsUsed       int     `json:"rounds_used"`
}

// NewSessionCompletedEvent creates a new session completed event.
func NewSessionCompletedEvent(sessionID, winnerProposalID, winnerPersonaID string, consensus float64, roundsUsed int) SessionCompletedEvent {
	return SessionCompletedEvent{
		BaseEvent:        NewBaseEvent(TypeSessionCompleted, sessionID),
		WinnerProposalID: winnerProposalID,
		WinnerPersonaID:  winnerPersonaID,
		ConsensusScore:   consensus,
		RoundsUsed:       roundsUsed,
	}
}

// SessionFailedEvent is emitted when a session transitions to failed.
type SessionFailedEvent struct {
	BaseEvent
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// NewSessionFailedEvent creates a new session failed event.
func NewSessionFailedEvent(sessionID, code, reason string) SessionFailedEvent {
	return SessionFailedEvent{
		BaseEvent: NewBaseEvent(TypeSessionFailed, sessionID),
		Code:      code,
		Reason:    reason,
	}
}
