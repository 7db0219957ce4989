package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{Level: "fatal", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return New(Config{BaseURL: url, Timeout: timeout}, logger)
}

func testRequest() engine.GenerationRequest {
	return engine.GenerationRequest{
		Workflow: engine.WorkflowRepresentation{Version: 1, Workflow: []byte(`{"stages":[{"id":"a"}],"links":[]}`)},
		RepoInfo: "Repository: acme/widgets\nPackage manager: Node.js\n",
		Provider: engine.ProviderGitHubActions,
	}
}

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("got %s %s, want POST /api/generate", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		for _, key := range []string{"version", "workflow", "repoInfo", "ciProvider"} {
			if _, ok := payload[key]; !ok {
				t.Errorf("payload missing %q: %s", key, body)
			}
		}
		_, _ = w.Write([]byte(`{"yaml":"jobs:\n  build: {}\n","projectName":"widgets"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	result, err := c.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.YAML == "" {
		t.Error("expected generated YAML")
	}
	if result.ProjectName != "widgets" {
		t.Errorf("ProjectName = %q, want widgets", result.ProjectName)
	}
}

func TestGenerateInvalidProvider(t *testing.T) {
	c := newTestClient(t, "http://localhost:0", time.Second)
	req := testRequest()
	req.Provider = engine.CIProvider("jenkins")
	if _, err := c.Generate(context.Background(), req); !engine.IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 50*time.Millisecond)
	if _, err := c.Generate(context.Background(), testRequest()); !engine.IsTimeout(err) {
		t.Fatalf("expected a timeout error, got %v", err)
	}
}

func TestGenerateRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"workflow has no runnable stages"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	_, err := c.Generate(context.Background(), testRequest())
	if !engine.IsRemote(err) {
		t.Fatalf("expected a remote error, got %v", err)
	}
	if got := engine.Message(err); got != "workflow has no runnable stages" {
		t.Errorf("Message = %q, want the remote message verbatim", got)
	}
}

func TestGenerateEmptyYAML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"yaml":""}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	if _, err := c.Generate(context.Background(), testRequest()); !engine.IsRemote(err) {
		t.Fatalf("a 2xx response without configuration should fail, got %v", err)
	}
}
