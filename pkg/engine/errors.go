// Package engine provides the core types and interfaces for the Pipewright
// orchestration core. It defines the 3-stage workflow: Analyze -> Synthesize -> Generate.
package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of one orchestrated attempt.
type ErrorKind string

const (
	// ErrKindValidation indicates required input was missing or malformed.
	// Caught locally, before any network call is issued.
	ErrKindValidation ErrorKind = "validation"

	// ErrKindTimeout indicates the remote call exceeded its wait bound,
	// or the server reported a gateway timeout.
	ErrKindTimeout ErrorKind = "timeout"

	// ErrKindNotFound indicates the remote endpoint could not locate the
	// requested repository or resource.
	ErrKindNotFound ErrorKind = "not_found"

	// ErrKindAccessDenied indicates the remote endpoint refused access.
	ErrKindAccessDenied ErrorKind = "access_denied"

	// ErrKindRemote indicates a structured failure message from the remote side.
	ErrKindRemote ErrorKind = "remote"

	// ErrKindUnknown indicates an uncategorized failure.
	ErrKindUnknown ErrorKind = "unknown"

	// ErrKindMissingAnalysis indicates generation was attempted without a
	// prior successful repository analysis.
	ErrKindMissingAnalysis ErrorKind = "missing_analysis"

	// ErrKindEmptyWorkflow indicates generation was attempted against a
	// graph that cannot be serialized.
	ErrKindEmptyWorkflow ErrorKind = "empty_workflow"
)

// Error represents a classified error with context.
// All errors in the orchestration core are terminal for the attempt that
// produced them; none are retried internally.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message surfaced to the user.
	Message string `json:"message"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Endpoint is the remote endpoint involved, if applicable.
	Endpoint string `json:"endpoint,omitempty"`

	// StatusCode is the HTTP status code that produced the error, if any.
	StatusCode int `json:"status_code,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation != "" && e.Err != nil {
		return fmt.Sprintf("[%s] %s (operation=%s): %s", e.Kind, e.Message, e.Operation, e.Err.Error())
	}
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation=%s)", e.Kind, e.Message, e.Operation)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// UserMessage returns the message stored in the owning orchestrator's error
// field. The message alone, without the classification prefix.
func (e *Error) UserMessage() string {
	return e.Message
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *Error {
	return &Error{Kind: ErrKindValidation, Message: message, Err: err}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(message string, err error) *Error {
	return &Error{Kind: ErrKindTimeout, Message: message, Err: err}
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(message string, err error) *Error {
	return &Error{Kind: ErrKindNotFound, Message: message, Err: err}
}

// NewAccessDeniedError creates a new access-denied error.
func NewAccessDeniedError(message string, err error) *Error {
	return &Error{Kind: ErrKindAccessDenied, Message: message, Err: err}
}

// NewRemoteError creates a new remote error carrying a structured message
// returned by the remote side.
func NewRemoteError(message string, err error) *Error {
	return &Error{Kind: ErrKindRemote, Message: message, Err: err}
}

// NewUnknownError creates a new unknown error.
func NewUnknownError(message string, err error) *Error {
	return &Error{Kind: ErrKindUnknown, Message: message, Err: err}
}

// NewMissingAnalysisError creates the error for generation attempted without
// a usable analysis.
func NewMissingAnalysisError() *Error {
	return &Error{
		Kind:    ErrKindMissingAnalysis,
		Message: "no repository analysis available; analyze a repository first",
	}
}

// NewEmptyWorkflowError creates the error for generation attempted against a
// graph that cannot be serialized.
func NewEmptyWorkflowError() *Error {
	return &Error{
		Kind:    ErrKindEmptyWorkflow,
		Message: "pipeline graph is empty or invalid; add at least one stage",
	}
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithEndpoint adds endpoint context to an error.
func (e *Error) WithEndpoint(endpoint string) *Error {
	e.Endpoint = endpoint
	return e
}

// WithStatusCode adds the originating HTTP status code to an error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// KindOf returns the classification of err, or ErrKindUnknown when err is not
// a classified error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// IsValidation returns true if the error is classified as a validation error.
func IsValidation(err error) bool { return isKind(err, ErrKindValidation) }

// IsTimeout returns true if the error is classified as a timeout.
func IsTimeout(err error) bool { return isKind(err, ErrKindTimeout) }

// IsNotFound returns true if the error is classified as not-found.
func IsNotFound(err error) bool { return isKind(err, ErrKindNotFound) }

// IsAccessDenied returns true if the error is classified as access-denied.
func IsAccessDenied(err error) bool { return isKind(err, ErrKindAccessDenied) }

// IsRemote returns true if the error carries a structured remote message.
func IsRemote(err error) bool { return isKind(err, ErrKindRemote) }

// IsMissingAnalysis returns true if generation ran without a usable analysis.
func IsMissingAnalysis(err error) bool { return isKind(err, ErrKindMissingAnalysis) }

// IsEmptyWorkflow returns true if the graph could not be serialized.
func IsEmptyWorkflow(err error) bool { return isKind(err, ErrKindEmptyWorkflow) }

// IsLocal returns true for errors raised before any network call was issued.
func IsLocal(err error) bool {
	return IsValidation(err) || IsMissingAnalysis(err) || IsEmptyWorkflow(err)
}

func isKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Message returns the user-facing message for err: the classified message when
// err is a classified error, the raw error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
