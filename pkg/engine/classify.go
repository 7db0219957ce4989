package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// remoteFailure is the error envelope the analyzer and generator services
// return on structured failures.
type remoteFailure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// ClassifyTransport classifies an error returned by the HTTP client before
// any response was received. Deadline expiry maps to a timeout; everything
// else is unknown.
func ClassifyTransport(operation, endpoint string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("request timed out waiting for the service", err).
			WithOperation(operation).WithEndpoint(endpoint)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError("request timed out waiting for the service", err).
			WithOperation(operation).WithEndpoint(endpoint)
	}
	if errors.Is(err, context.Canceled) {
		return NewUnknownError("request was cancelled", err).
			WithOperation(operation).WithEndpoint(endpoint)
	}
	return NewUnknownError("request failed before a response was received", err).
		WithOperation(operation).WithEndpoint(endpoint)
}

// ClassifyResponse classifies a non-2xx HTTP response into the error
// taxonomy. The body is inspected for a structured failure envelope; when one
// is present its message is surfaced verbatim as a remote error, except for
// the status codes with a dedicated classification.
func ClassifyResponse(operation, endpoint string, statusCode int, body []byte) *Error {
	switch statusCode {
	case http.StatusGatewayTimeout:
		return NewTimeoutError("service reported a gateway timeout", nil).
			WithOperation(operation).WithEndpoint(endpoint).WithStatusCode(statusCode)
	case http.StatusNotFound:
		msg := "repository not found"
		if m := remoteMessage(body); m != "" {
			msg = m
		}
		return NewNotFoundError(msg, nil).
			WithOperation(operation).WithEndpoint(endpoint).WithStatusCode(statusCode)
	case http.StatusForbidden:
		msg := "access to the repository was denied"
		if m := remoteMessage(body); m != "" {
			msg = m
		}
		return NewAccessDeniedError(msg, nil).
			WithOperation(operation).WithEndpoint(endpoint).WithStatusCode(statusCode)
	}
	if m := remoteMessage(body); m != "" {
		return NewRemoteError(m, nil).
			WithOperation(operation).WithEndpoint(endpoint).WithStatusCode(statusCode)
	}
	return NewUnknownError(fmt.Sprintf("service returned unexpected status %d", statusCode), nil).
		WithOperation(operation).WithEndpoint(endpoint).WithStatusCode(statusCode)
}

// remoteMessage extracts the failure message from a structured error body.
// Returns "" when the body carries no usable message.
func remoteMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var f remoteFailure
	if err := json.Unmarshal(body, &f); err != nil {
		return ""
	}
	for _, m := range []string{f.Error, f.Message, f.Detail} {
		if s := strings.TrimSpace(m); s != "" {
			return s
		}
	}
	return ""
}
