package core

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatExecution,
		Code:     CodeAgentError,
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatExecution, Code: CodeAgentError}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrUnknownPersona("ghost").Retryable {
		t.Fatalf("unknown persona should not be retryable")
	}
	if !IsCode(ErrUnknownPersona("ghost"), CodeUnknownPersona) {
		t.Fatalf("expected UNKNOWN_PERSONA_ID code")
	}
	if !ErrAgentTimeout("analyst", 30*time.Second).Retryable {
		t.Fatalf("agent timeout should be retryable")
	}
	if !ErrAgentError("analyst", errors.New("boom")).Retryable {
		t.Fatalf("agent error should be retryable")
	}
	if ErrParseFailure("proposal", "no sections").Retryable {
		t.Fatalf("parse failure should not be retryable")
	}
	if ErrSessionTimeout(5 * time.Minute).Retryable {
		t.Fatalf("session timeout should not be retryable")
	}
	if ErrAllAgentsUnavailable(PhaseProposal).Retryable {
		t.Fatalf("all agents unavailable should not be retryable")
	}
	if ErrSessionState("msg").Retryable {
		t.Fatalf("session state should not be retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrAgentTimeout("analyst", time.Second)) {
		t.Fatalf("agent timeout should be retryable")
	}
	if IsRetryable(ErrSessionTimeout(time.Minute)) {
		t.Fatalf("session timeout should not be retryable")
	}
	wrapped := fmt.Errorf("message phase: %w", ErrAgentError("skeptic", errors.New("boom")))
	if !IsRetryable(wrapped) {
		t.Fatalf("expected retryable to survive wrapping")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain error should not be retryable")
	}
}

func TestIsSessionFatal(t *testing.T) {
	if !IsSessionFatal(ErrSessionTimeout(time.Minute)) {
		t.Fatalf("session timeout should be session fatal")
	}
	if !IsSessionFatal(ErrAllAgentsUnavailable(PhaseMessage)) {
		t.Fatalf("all agents unavailable should be session fatal")
	}
	if IsSessionFatal(ErrAgentTimeout("analyst", time.Second)) {
		t.Fatalf("agent timeout should be recovered in-phase, not session fatal")
	}
	if IsSessionFatal(errors.New("plain")) {
		t.Fatalf("plain error should not be session fatal")
	}
}

func TestErrorCode(t *testing.T) {
	if ErrorCode(ErrStorage("save", errors.New("disk"))) != CodeStorage {
		t.Fatalf("expected STORAGE code")
	}
	if ErrorCode(errors.New("plain")) != "" {
		t.Fatalf("expected empty code for non-domain error")
	}
	wrapped := errors.Join(errors.New("outer"), ErrParseFailure("ballot", "garbage"))
	if ErrorCode(wrapped) != CodeParseFailure {
		t.Fatalf("expected code to survive wrapping")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrAgentTimeout("analyst", time.Second)) != ErrCatTimeout {
		t.Fatalf("expected timeout category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if !IsCategory(ErrAllAgentsUnavailable(PhaseVoting), ErrCatUnavailable) {
		t.Fatalf("expected category match")
	}
}
