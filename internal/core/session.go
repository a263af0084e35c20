package core

import (
	"fmt"
	"time"
)

// Session is one complete deliberation run over a single topic. It is
// owned by exactly one orchestrator for its lifetime and becomes
// immutable once the status is terminal.
type Session struct {
	ID         string           `json:"id"`
	Topic      string           `json:"topic"`
	UserID     string           `json:"user_id,omitempty"`
	MaxRounds  int              `json:"max_rounds"`
	VotingRule VotingRule       `json:"voting_rule"`
	Personas   []PersonaProfile `json:"personas"`
	Status     Status           `json:"status"`
	Rounds     []Round          `json:"rounds"`
	Proposals  []Proposal       `json:"proposals"`
	Votes      []Vote           `json:"votes"`

	// FailureCode holds the domain error code when Status is failed.
	FailureCode string `json:"failure_code,omitempty"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// NewSession builds a session in the created state. Personas are stored
// in registration order so that transcripts, proposal ids, and tie-breaks
// are deterministic.
func NewSession(id, topic, userID string, maxRounds int, rule VotingRule, personas []PersonaProfile) *Session {
	ordered := make([]PersonaProfile, len(personas))
	copy(ordered, personas)
	SortPersonas(ordered)
	return &Session{
		ID:         id,
		Topic:      topic,
		UserID:     userID,
		MaxRounds:  maxRounds,
		VotingRule: rule,
		Personas:   ordered,
		Status:     StatusCreated,
		Rounds:     make([]Round, 0, maxRounds),
	}
}

// Validate checks session invariants required before the first round.
func (s *Session) Validate() error {
	if s.ID == "" {
		return ErrValidation("SESSION_ID_REQUIRED", "session id cannot be empty")
	}
	if s.Topic == "" {
		return ErrValidation("TOPIC_REQUIRED", "session topic cannot be empty")
	}
	if s.MaxRounds < 1 {
		return ErrValidation("INVALID_MAX_ROUNDS", fmt.Sprintf("maxRounds must be >= 1, got %d", s.MaxRounds))
	}
	if len(s.Personas) == 0 {
		return ErrValidation("NO_PERSONAS", "session needs at least one persona")
	}
	seen := make(map[PersonaID]bool, len(s.Personas))
	for _, p := range s.Personas {
		if seen[p.ID] {
			return ErrValidation("DUPLICATE_PERSONA", fmt.Sprintf("persona %s appears more than once", p.ID))
		}
		seen[p.ID] = true
	}
	if !ValidVotingRule(s.VotingRule) {
		return ErrValidation("INVALID_VOTING_RULE", fmt.Sprintf("unknown voting rule %q", s.VotingRule))
	}
	return nil
}

// transition moves the session to next, enforcing the lifecycle graph.
func (s *Session) transition(next Status) error {
	if !s.Status.CanTransitionTo(next) {
		return ErrSessionState(fmt.Sprintf("cannot transition session from %s to %s", s.Status, next))
	}
	s.Status = next
	return nil
}

// Start transitions created -> discussing and stamps StartedAt.
func (s *Session) Start() error {
	if err := s.transition(StatusDiscussing); err != nil {
		return err
	}
	now := time.Now()
	s.StartedAt = &now
	return nil
}

// BeginProposing transitions discussing -> proposing.
func (s *Session) BeginProposing() error {
	return s.transition(StatusProposing)
}

// BeginVoting transitions proposing -> voting.
func (s *Session) BeginVoting() error {
	return s.transition(StatusVoting)
}

// Complete transitions voting -> completed and stamps EndedAt.
func (s *Session) Complete() error {
	if err := s.transition(StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	s.EndedAt = &now
	return nil
}

// Fail transitions any non-terminal state to failed, recording the
// domain error code that killed the session.
func (s *Session) Fail(code string) error {
	if err := s.transition(StatusFailed); err != nil {
		return err
	}
	s.FailureCode = code
	now := time.Now()
	s.EndedAt = &now
	return nil
}

// AddRound appends a completed round. Rounds are append-only.
func (s *Session) AddRound(r Round) error {
	if s.Status != StatusDiscussing {
		return ErrSessionState(fmt.Sprintf("cannot add round in %s state", s.Status))
	}
	if len(r.Messages) != len(s.Personas) {
		return ErrSessionState(fmt.Sprintf("round %d has %d messages, want %d", r.Index, len(r.Messages), len(s.Personas)))
	}
	s.Rounds = append(s.Rounds, r)
	return nil
}

// SetProposals records the finalized proposal set.
func (s *Session) SetProposals(proposals []Proposal) error {
	if s.Status != StatusProposing {
		return ErrSessionState(fmt.Sprintf("cannot set proposals in %s state", s.Status))
	}
	if len(proposals) != len(s.Personas) {
		return ErrSessionState(fmt.Sprintf("got %d proposals, want %d", len(proposals), len(s.Personas)))
	}
	s.Proposals = proposals
	return nil
}

// SetVotes records the finalized vote set.
func (s *Session) SetVotes(votes []Vote) error {
	if s.Status != StatusVoting {
		return ErrSessionState(fmt.Sprintf("cannot set votes in %s state", s.Status))
	}
	if len(votes) != len(s.Personas) {
		return ErrSessionState(fmt.Sprintf("got %d votes, want %d", len(votes), len(s.Personas)))
	}
	s.Votes = votes
	return nil
}

// RoundsUsed returns how many discussion rounds actually ran.
func (s *Session) RoundsUsed() int {
	return len(s.Rounds)
}

// Duration returns wall-clock time from start to end (or now).
func (s *Session) Duration() time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(*s.StartedAt)
}

// Clone returns a deep copy safe to hand to observers while the
// orchestrator keeps mutating the original.
func (s *Session) Clone() *Session {
	out := *s
	out.Personas = make([]PersonaProfile, len(s.Personas))
	copy(out.Personas, s.Personas)
	for i := range out.Personas {
		tags := make([]string, len(s.Personas[i].Tags))
		copy(tags, s.Personas[i].Tags)
		out.Personas[i].Tags = tags
	}
	out.Rounds = make([]Round, len(s.Rounds))
	for i, r := range s.Rounds {
		msgs := make([]Message, len(r.Messages))
		copy(msgs, r.Messages)
		out.Rounds[i] = Round{Index: r.Index, Messages: msgs}
	}
	out.Proposals = make([]Proposal, len(s.Proposals))
	for i, p := range s.Proposals {
		cp := p
		cp.Benefits = append([]string(nil), p.Benefits...)
		cp.Steps = append([]string(nil), p.Steps...)
		out.Proposals[i] = cp
	}
	out.Votes = make([]Vote, len(s.Votes))
	for i, v := range s.Votes {
		cv := v
		if v.Ballot.Ratings != nil {
			cv.Ballot.Ratings = make(map[string]int, len(v.Ballot.Ratings))
			for k, r := range v.Ballot.Ratings {
				cv.Ballot.Ratings[k] = r
			}
		}
		cv.Ballot.Ranking = append([]string(nil), v.Ballot.Ranking...)
		out.Votes[i] = cv
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	return &out
}
