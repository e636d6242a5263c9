// Package toolerrors provides the structured error taxonomy tool handlers and
// the resilient HTTP client raise (spec.md §7). Every Kind carries a fixed,
// agent-facing repair hint so the LLM can self-correct without a human in the
// loop.
package toolerrors

import "fmt"

// Kind classifies a tool-facing failure. Kinds are not Go types — callers
// switch on Kind, not on concrete error types, the way
// goa-ai/runtime/agent/toolerrors.ToolError keeps error taxonomies flat and
// serialization-friendly.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInvalidRequest    Kind = "invalid_request"
	KindConflict          Kind = "conflict"
	KindServerError       Kind = "server_error"
	KindOtherHTTP         Kind = "other_http"
	KindConnectivity      Kind = "connectivity"
	KindTimeout           Kind = "timeout"
	KindCircuitOpen       Kind = "circuit_open"
	KindDeniedByHook      Kind = "denied_by_hook"
	KindDestructiveBlocked Kind = "destructive_blocked"
	KindUnexpected        Kind = "unexpected"
)

// Error is the structured failure type every layer of the control plane
// returns. Message is always the exact agent-facing text from spec.md §7;
// Cause preserves the underlying error for logs without leaking it to the
// model.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap supports errors.Is/As against Cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New builds a Kind/Message pair with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a Kind/Message pair that preserves cause for logging.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation renders the "Invalid input: …" message from spec.md §7.
func Validation(details string) *Error {
	return New(KindValidation, fmt.Sprintf(
		"Invalid input: %s. Check the tool's parameter descriptions and try again.", details))
}

// NotFound renders the 404 message from spec.md §7.
func NotFound(method, path string) *Error {
	return New(KindNotFound, fmt.Sprintf(
		"Error: %s %s not found (404). Try: Use a list tool to find valid IDs.", method, path))
}

// InvalidRequest renders the 422 message from spec.md §7.
func InvalidRequest(method, path, body string) *Error {
	return New(KindInvalidRequest, fmt.Sprintf(
		"Error: Invalid input for %s %s (422). Details: %s. Try: Check required fields and value formats.",
		method, path, body))
}

// Conflict renders the 409 message from spec.md §7.
func Conflict(method, path, body string) *Error {
	return New(KindConflict, fmt.Sprintf(
		"Error: Conflict on %s %s (409). Details: %s. Try: Check current state before retrying.",
		method, path, body))
}

// ServerError renders the >=500 message from spec.md §7.
func ServerError(method, path string, code int) *Error {
	return New(KindServerError, fmt.Sprintf(
		"Error: Turbo API server error on %s %s (%d). Try: Wait a moment and retry.",
		method, path, code))
}

// OtherHTTP renders the unclassified-HTTP message from spec.md §7.
func OtherHTTP(method, path string, code int, body string) *Error {
	return New(KindOtherHTTP, fmt.Sprintf(
		"Error: %s %s returned %d. Details: %s", method, path, code, body))
}

// Connectivity renders the connect-failure message from spec.md §7.
func Connectivity(baseURL string, cause error) *Error {
	return Wrap(KindConnectivity, fmt.Sprintf("Cannot connect to Turbo API at %s", baseURL), cause)
}

// Timeout renders the timeout message from spec.md §7.
func Timeout(method, path string, attempts int, cause error) *Error {
	return Wrap(KindTimeout, fmt.Sprintf("Timeout on %s %s after %d attempts", method, path, attempts), cause)
}

// CircuitOpen renders the breaker-open message from spec.md §7.
func CircuitOpen(remaining string) *Error {
	return New(KindCircuitOpen, fmt.Sprintf("Circuit breaker open. API calls paused for %ss.", remaining))
}

// DeniedByHook wraps a gate's own reason text (spec.md §4.3) as a
// denied_by_hook error; the reason text IS the agent-facing message.
func DeniedByHook(reason string) *Error {
	return New(KindDeniedByHook, reason)
}

// DestructiveBlocked renders the shell-filter message from spec.md §7.
func DestructiveBlocked(pattern string) *Error {
	return New(KindDestructiveBlocked, fmt.Sprintf(
		"Destructive command blocked: contains '%s'. Turbo agents cannot execute destructive shell commands.",
		pattern))
}

// Unexpected renders the catch-all message from spec.md §7. hint may be empty.
func Unexpected(hint string, cause error) *Error {
	msg := "Error: Unexpected failure."
	if hint != "" {
		msg += " " + hint
	}
	return Wrap(KindUnexpected, msg, cause)
}
