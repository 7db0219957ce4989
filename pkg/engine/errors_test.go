package engine

import (
	"errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewNotFoundError("repository not found", nil).WithOperation("analyze")
	got := err.Error()
	want := "[not_found] repository not found (operation=analyze)"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnknownError("request failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"validation", NewValidationError("missing field", nil), IsValidation},
		{"timeout", NewTimeoutError("timed out", nil), IsTimeout},
		{"not_found", NewNotFoundError("gone", nil), IsNotFound},
		{"access_denied", NewAccessDeniedError("forbidden", nil), IsAccessDenied},
		{"remote", NewRemoteError("server said no", nil), IsRemote},
		{"missing_analysis", NewMissingAnalysisError(), IsMissingAnalysis},
		{"empty_workflow", NewEmptyWorkflowError(), IsEmptyWorkflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Errorf("predicate returned false for %v", tt.err)
			}
			if tt.name != "timeout" && IsTimeout(tt.err) {
				t.Errorf("IsTimeout returned true for %v", tt.err)
			}
		})
	}
}

func TestKindPredicatesRejectPlainErrors(t *testing.T) {
	plain := errors.New("plain")
	if IsTimeout(plain) || IsNotFound(plain) || IsValidation(plain) {
		t.Error("predicates must reject unclassified errors")
	}
	if KindOf(plain) != ErrKindUnknown {
		t.Errorf("KindOf(plain) = %s, want %s", KindOf(plain), ErrKindUnknown)
	}
}

func TestIsLocal(t *testing.T) {
	if !IsLocal(NewMissingAnalysisError()) {
		t.Error("missing-analysis errors are local")
	}
	if !IsLocal(NewEmptyWorkflowError()) {
		t.Error("empty-workflow errors are local")
	}
	if !IsLocal(NewValidationError("bad input", nil)) {
		t.Error("validation errors are local")
	}
	if IsLocal(NewTimeoutError("timed out", nil)) {
		t.Error("timeouts are not local")
	}
}

func TestMessage(t *testing.T) {
	if got := Message(nil); got != "" {
		t.Errorf("Message(nil) = %q, want empty", got)
	}
	if got := Message(NewRemoteError("upstream exploded", nil)); got != "upstream exploded" {
		t.Errorf("Message() = %q, want the classified message", got)
	}
	if got := Message(errors.New("raw")); got != "raw" {
		t.Errorf("Message() = %q, want %q", got, "raw")
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	a := NewTimeoutError("first", nil)
	b := NewTimeoutError("second", nil)
	if !errors.Is(a, b) {
		t.Error("errors of the same kind should match via errors.Is")
	}
	c := NewNotFoundError("other", nil)
	if errors.Is(a, c) {
		t.Error("errors of different kinds must not match")
	}
}
