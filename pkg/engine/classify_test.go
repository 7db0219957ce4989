package engine

import (
	"context"
	"testing"
)

func TestClassifyResponseGatewayTimeout(t *testing.T) {
	err := ClassifyResponse("analyze", "/api/analyze/github", 504, nil)
	if !IsTimeout(err) {
		t.Fatalf("504 should classify as timeout, got %v", err)
	}
	if err.StatusCode != 504 {
		t.Errorf("StatusCode = %d, want 504", err.StatusCode)
	}
}

func TestClassifyResponseNotFound(t *testing.T) {
	err := ClassifyResponse("analyze", "/api/analyze/github", 404, nil)
	if !IsNotFound(err) {
		t.Fatalf("404 should classify as not-found, got %v", err)
	}
	if err.Message != "repository not found" {
		t.Errorf("Message = %q, want the default not-found message", err.Message)
	}
}

func TestClassifyResponseNotFoundRemoteMessage(t *testing.T) {
	body := []byte(`{"error":"repo acme/ghost does not exist"}`)
	err := ClassifyResponse("analyze", "/api/analyze/github", 404, body)
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err.Message != "repo acme/ghost does not exist" {
		t.Errorf("Message = %q, want the remote message", err.Message)
	}
}

func TestClassifyResponseAccessDenied(t *testing.T) {
	err := ClassifyResponse("analyze", "/api/analyze/gitlab", 403, nil)
	if !IsAccessDenied(err) {
		t.Errorf("403 should classify as access-denied, got %v", err)
	}
}

// Only 403 carries the access-denied classification; 401 takes the generic
// remote or unknown path like any other status.
func TestClassifyResponseUnauthorizedNotAccessDenied(t *testing.T) {
	withBody := ClassifyResponse("analyze", "/api/analyze/gitlab", 401, []byte(`{"error":"token expired"}`))
	if !IsRemote(withBody) {
		t.Errorf("401 with a structured body should classify as remote, got %v", withBody)
	}
	if withBody.Message != "token expired" {
		t.Errorf("Message = %q, want the remote message verbatim", withBody.Message)
	}

	bare := ClassifyResponse("analyze", "/api/analyze/gitlab", 401, nil)
	if IsAccessDenied(bare) {
		t.Error("401 must not classify as access-denied")
	}
	if KindOf(bare) != ErrKindUnknown {
		t.Errorf("bare 401 should classify as unknown, got %v", bare)
	}
}

func TestClassifyResponseStructuredBody(t *testing.T) {
	body := []byte(`{"error":"unsupported repository layout"}`)
	err := ClassifyResponse("generate", "/api/generate", 422, body)
	if !IsRemote(err) {
		t.Fatalf("structured body should classify as remote, got %v", err)
	}
	if err.Message != "unsupported repository layout" {
		t.Errorf("Message = %q, want the remote message verbatim", err.Message)
	}
}

func TestClassifyResponseOpaqueBody(t *testing.T) {
	err := ClassifyResponse("generate", "/api/generate", 500, []byte("<html>oops</html>"))
	if KindOf(err) != ErrKindUnknown {
		t.Fatalf("opaque 500 should classify as unknown, got %v", err)
	}
}

func TestClassifyResponseEmptyErrorField(t *testing.T) {
	err := ClassifyResponse("generate", "/api/generate", 500, []byte(`{"error":"  "}`))
	if KindOf(err) != ErrKindUnknown {
		t.Fatalf("blank remote message should classify as unknown, got %v", err)
	}
}

func TestClassifyTransportDeadline(t *testing.T) {
	err := ClassifyTransport("analyze", "/api/analyze/github", context.DeadlineExceeded)
	if !IsTimeout(err) {
		t.Fatalf("deadline expiry should classify as timeout, got %v", err)
	}
}

func TestClassifyTransportOther(t *testing.T) {
	err := ClassifyTransport("analyze", "/api/analyze/github", context.Canceled)
	if KindOf(err) != ErrKindUnknown {
		t.Fatalf("cancellation should classify as unknown, got %v", err)
	}
}
