package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation  ErrorCategory = "validation"  // Invalid input
	ErrCatExecution   ErrorCategory = "execution"   // Completion call failure
	ErrCatTimeout     ErrorCategory = "timeout"     // Per-call or session deadline
	ErrCatParse       ErrorCategory = "parse"       // Response unparsable into the expected shape
	ErrCatUnavailable ErrorCategory = "unavailable" // No persona is responding
	ErrCatState       ErrorCategory = "state"       // Lifecycle misuse
	ErrCatStorage     ErrorCategory = "storage"     // Persistence failure
	ErrCatInternal    ErrorCategory = "internal"    // Unexpected internal error
)

// DomainError represents a structured error from the engine.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// Error codes. Codes are stable: they appear in stored sessions, API
// responses, and reports.
const (
	// Recovered locally inside a phase via fallback substitution.
	CodeAgentTimeout = "AGENT_TIMEOUT"
	CodeAgentError   = "AGENT_ERROR"
	CodeParseFailure = "PARSE_FAILURE"

	// Fails session creation.
	CodeUnknownPersona = "UNKNOWN_PERSONA_ID"

	// Session-fatal.
	CodeSessionTimeout       = "SESSION_TIMEOUT"
	CodeSessionCanceled      = "SESSION_CANCELED"
	CodeAllAgentsUnavailable = "ALL_AGENTS_UNAVAILABLE"

	// Caller errors against the lifecycle (reentrancy, bad transition).
	CodeSessionState = "SESSION_STATE"

	// Persistence layer.
	CodeStorage  = "STORAGE"
	CodeNotFound = "NOT_FOUND"
)

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrUnknownPersona reports a persona id absent from the registry.
// This is a caller configuration error and fails session creation.
func ErrUnknownPersona(id string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      CodeUnknownPersona,
		Message:   fmt.Sprintf("unknown persona id: %s", id),
		Retryable: false,
		Details:   map[string]interface{}{"persona_id": id},
	}
}

// ErrAgentTimeout reports a persona call that exceeded its per-call
// budget. Always recovered in-phase via fallback substitution.
func ErrAgentTimeout(persona PersonaID, timeout time.Duration) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeAgentTimeout,
		Message:   fmt.Sprintf("persona %s did not respond within %s", persona, timeout),
		Retryable: true,
		Details:   map[string]interface{}{"persona_id": persona.String()},
	}
}

// ErrAgentError reports a non-timeout completion failure. Always
// recovered in-phase via fallback substitution.
func ErrAgentError(persona PersonaID, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeAgentError,
		Message:   fmt.Sprintf("completion call for persona %s failed", persona),
		Retryable: true,
		Cause:     cause,
		Details:   map[string]interface{}{"persona_id": persona.String()},
	}
}

// ErrParseFailure reports a response that was received but could not be
// parsed into the expected shape.
func ErrParseFailure(kind, detail string) *DomainError {
	return &DomainError{
		Category:  ErrCatParse,
		Code:      CodeParseFailure,
		Message:   fmt.Sprintf("could not parse %s: %s", kind, detail),
		Retryable: false,
	}
}

// ErrSessionTimeout reports that the session wall-clock budget expired.
// Session-fatal.
func ErrSessionTimeout(budget time.Duration) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeSessionTimeout,
		Message:   fmt.Sprintf("session exceeded wall-clock budget of %s", budget),
		Retryable: false,
	}
}

// ErrSessionCanceled reports that the caller canceled the session
// before it completed. Session-fatal.
func ErrSessionCanceled() *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeSessionCanceled,
		Message:   "session canceled before completion",
		Retryable: false,
	}
}

// ErrAllAgentsUnavailable reports the circuit breaker tripping after two
// consecutive all-fallback phases. Session-fatal.
func ErrAllAgentsUnavailable(phase Phase) *DomainError {
	return &DomainError{
		Category:  ErrCatUnavailable,
		Code:      CodeAllAgentsUnavailable,
		Message:   fmt.Sprintf("every persona call returned a fallback in two consecutive phases (last: %s)", phase),
		Retryable: false,
		Details:   map[string]interface{}{"phase": phase.String()},
	}
}

// ErrSessionState creates a lifecycle misuse error (reentrancy, invalid
// transition, mutation after a terminal state).
func ErrSessionState(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      CodeSessionState,
		Message:   message,
		Retryable: false,
	}
}

// ErrStorage wraps a persistence failure.
func ErrStorage(op string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatStorage,
		Code:      CodeStorage,
		Message:   fmt.Sprintf("storage %s failed", op),
		Retryable: false,
		Cause:     cause,
	}
}

// ErrNotFound reports a lookup that matched nothing in the store.
func ErrNotFound(kind, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatStorage,
		Code:      CodeNotFound,
		Message:   fmt.Sprintf("%s %q not found", kind, id),
		Retryable: false,
	}
}

// IsNotFound reports whether err is a storage miss rather than a failure.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// IsCode checks if an error carries the given domain code.
func IsCode(err error, code string) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code == code
	}
	return false
}

// ErrorCode extracts the domain code, or "" for non-domain errors.
func ErrorCode(err error) string {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code
	}
	return ""
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsSessionFatal reports whether the error must fail the whole session
// rather than be recovered by fallback substitution.
func IsSessionFatal(err error) bool {
	switch ErrorCode(err) {
	case CodeSessionTimeout, CodeSessionCanceled, CodeAllAgentsUnavailable:
		return true
	default:
		return false
	}
}
