package core

import (
	"fmt"
	"strings"
)

// Status represents the lifecycle state of a session.
type Status string

const (
	// StatusCreated is the initial state before Run is called.
	StatusCreated Status = "created"

	// StatusDiscussing is the round loop: every persona produces one
	// message per round until maxRounds or early stop.
	StatusDiscussing Status = "discussing"

	// StatusProposing is the single proposal collection pass.
	StatusProposing Status = "proposing"

	// StatusVoting is ballot collection and aggregation.
	StatusVoting Status = "voting"

	// StatusCompleted is the terminal success state. The session is
	// immutable from here on.
	StatusCompleted Status = "completed"

	// StatusFailed is the terminal failure state, reachable from any
	// non-terminal state via session timeout or the agent circuit breaker.
	StatusFailed Status = "failed"
)

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusCreated,
		StatusDiscussing,
		StatusProposing,
		StatusVoting,
		StatusCompleted,
		StatusFailed,
	}
}

// ValidStatus checks if a status string is valid.
func ValidStatus(s Status) bool {
	switch s {
	case StatusCreated, StatusDiscussing, StatusProposing, StatusVoting,
		StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseStatus converts a string to a Status with validation.
// Matching is case-insensitive.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !ValidStatus(st) {
		return "", fmt.Errorf("invalid session status: %q (want one of created, discussing, proposing, voting, completed, failed)", s)
	}
	return st, nil
}

// Terminal returns true for completed and failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the lifecycle allows moving from s to
// next. Failed is reachable from any non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	switch s {
	case StatusCreated:
		return next == StatusDiscussing
	case StatusDiscussing:
		return next == StatusDiscussing || next == StatusProposing
	case StatusProposing:
		return next == StatusVoting
	case StatusVoting:
		return next == StatusCompleted
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}
