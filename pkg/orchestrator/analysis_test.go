package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

type fakeAnalyzer struct {
	fn func(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error) {
	return f.fn(ctx, req)
}

type fakeGraph struct {
	mu        sync.Mutex
	populated []engine.AnalysisResult
	rep       engine.WorkflowRepresentation
	serr      error
}

func (f *fakeGraph) PopulateFromAnalysis(result engine.AnalysisResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.populated = append(f.populated, result)
}

func (f *fakeGraph) StageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.populated)
}

func (f *fakeGraph) Serialize() (engine.WorkflowRepresentation, error) {
	if f.serr != nil {
		return engine.WorkflowRepresentation{}, f.serr
	}
	return f.rep, nil
}

func (f *fakeGraph) populatedResults() []engine.AnalysisResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.AnalysisResult(nil), f.populated...)
}

func githubRequest() engine.AnalysisRequest {
	return engine.AnalysisRequest{Owner: "acme", Repo: "widgets", Source: engine.SourceGitHub}
}

func TestStartAnalysisSuccess(t *testing.T) {
	want := engine.AnalysisResult{
		RepositoryID:   "acme/widgets",
		PackageManager: "Node.js",
	}
	graph := &fakeGraph{}
	o := NewAnalysisOrchestrator(&fakeAnalyzer{
		fn: func(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error) {
			cp := want
			return &cp, nil
		},
	}, graph, telemetry.NewNopTelemetry())

	if o.State() != engine.AnalysisIdle {
		t.Fatalf("initial state = %s, want idle", o.State())
	}

	if err := o.StartAnalysis(context.Background(), githubRequest()); err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	if o.State() != engine.AnalysisComplete {
		t.Errorf("state = %s, want analyzed", o.State())
	}
	if !o.HasUsableAnalysis() {
		t.Error("HasUsableAnalysis should be true after success")
	}
	if o.IsLoading() {
		t.Error("IsLoading should be false after settlement")
	}
	if o.ErrorMessage() != "" {
		t.Errorf("ErrorMessage = %q, want empty", o.ErrorMessage())
	}

	got := graph.populatedResults()
	if len(got) != 1 {
		t.Fatalf("synthesis invoked %d times, want exactly once", len(got))
	}
	if got[0].RepositoryID != want.RepositoryID || got[0].PackageManager != want.PackageManager {
		t.Errorf("synthesis received %+v, want the exact analysis record", got[0])
	}
}

func TestStartAnalysisFailure(t *testing.T) {
	graph := &fakeGraph{}
	o := NewAnalysisOrchestrator(&fakeAnalyzer{
		fn: func(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error) {
			return nil, engine.NewTimeoutError("request timed out waiting for the service", nil)
		},
	}, graph, telemetry.NewNopTelemetry())

	err := o.StartAnalysis(context.Background(), githubRequest())
	if !engine.IsTimeout(err) {
		t.Fatalf("expected a timeout error, got %v", err)
	}

	if o.State() != engine.AnalysisFailed {
		t.Errorf("state = %s, want failed", o.State())
	}
	if o.HasUsableAnalysis() {
		t.Error("HasUsableAnalysis must be false after failure")
	}
	if o.Result() != nil {
		t.Error("failed attempt must clear any prior result")
	}
	if o.ErrorMessage() != "request timed out waiting for the service" {
		t.Errorf("ErrorMessage = %q", o.ErrorMessage())
	}
	if len(graph.populatedResults()) != 0 {
		t.Error("synthesis must not run on failure")
	}
}

func TestStartAnalysisReentrant(t *testing.T) {
	calls := 0
	o := NewAnalysisOrchestrator(&fakeAnalyzer{
		fn: func(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error) {
			calls++
			if calls == 1 {
				return nil, engine.NewNotFoundError("repository not found", nil)
			}
			return &engine.AnalysisResult{RepositoryID: "acme/widgets"}, nil
		},
	}, &fakeGraph{}, telemetry.NewNopTelemetry())

	// Failed is re-entrant: a new attempt discards the prior error.
	_ = o.StartAnalysis(context.Background(), githubRequest())
	if o.State() != engine.AnalysisFailed {
		t.Fatalf("state = %s, want failed", o.State())
	}

	if err := o.StartAnalysis(context.Background(), githubRequest()); err != nil {
		t.Fatal(err)
	}
	if o.State() != engine.AnalysisComplete {
		t.Errorf("state = %s, want analyzed", o.State())
	}
	if o.ErrorMessage() != "" {
		t.Errorf("prior error leaked: %q", o.ErrorMessage())
	}
}

func TestSupersededAnalysisFailureDiscarded(t *testing.T) {
	staleStarted := make(chan struct{})
	freshSettled := make(chan struct{})
	graph := &fakeGraph{}

	o := NewAnalysisOrchestrator(&fakeAnalyzer{
		fn: func(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error) {
			if req.Owner == "stale" {
				// Started first, settles last, after the fresh
				// attempt already succeeded.
				close(staleStarted)
				<-freshSettled
				return nil, engine.NewTimeoutError("timed out", nil)
			}
			return &engine.AnalysisResult{RepositoryID: "fresh/widgets"}, nil
		},
	}, graph, telemetry.NewNopTelemetry())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = o.StartAnalysis(context.Background(), engine.AnalysisRequest{Owner: "stale", Repo: "widgets", Source: engine.SourceGitHub})
	}()
	<-staleStarted

	if err := o.StartAnalysis(context.Background(), engine.AnalysisRequest{Owner: "fresh", Repo: "widgets", Source: engine.SourceGitHub}); err != nil {
		t.Fatal(err)
	}
	close(freshSettled)
	wg.Wait()

	// The stale attempt carries an older sequence token, so its late
	// failure must not revoke the fresh attempt's outcome.
	if o.State() != engine.AnalysisComplete {
		t.Errorf("state = %s, want analyzed after a superseded failure", o.State())
	}
	if !o.HasUsableAnalysis() {
		t.Error("HasUsableAnalysis = false, the fresh success must survive")
	}
	if o.ErrorMessage() != "" {
		t.Errorf("superseded failure leaked its message: %q", o.ErrorMessage())
	}
	if got := o.Result(); got == nil || got.RepositoryID != "fresh/widgets" {
		t.Errorf("Result = %+v, want the fresh attempt's result", got)
	}
}

func TestSupersededAnalysisSuccessDiscarded(t *testing.T) {
	staleStarted := make(chan struct{})
	freshSettled := make(chan struct{})
	graph := &fakeGraph{}

	o := NewAnalysisOrchestrator(&fakeAnalyzer{
		fn: func(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error) {
			if req.Owner == "stale" {
				close(staleStarted)
				<-freshSettled
				return &engine.AnalysisResult{RepositoryID: "stale/widgets"}, nil
			}
			return &engine.AnalysisResult{RepositoryID: "fresh/widgets"}, nil
		},
	}, graph, telemetry.NewNopTelemetry())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = o.StartAnalysis(context.Background(), engine.AnalysisRequest{Owner: "stale", Repo: "widgets", Source: engine.SourceGitHub})
	}()
	<-staleStarted

	if err := o.StartAnalysis(context.Background(), engine.AnalysisRequest{Owner: "fresh", Repo: "widgets", Source: engine.SourceGitHub}); err != nil {
		t.Fatal(err)
	}
	close(freshSettled)
	wg.Wait()

	if got := o.Result(); got == nil || got.RepositoryID != "fresh/widgets" {
		t.Errorf("Result = %+v, want the fresh attempt's result", got)
	}

	// A discarded success must not re-run synthesis either.
	populated := graph.populatedResults()
	if len(populated) != 1 || populated[0].RepositoryID != "fresh/widgets" {
		t.Errorf("graph populated with %+v, want exactly the fresh result", populated)
	}
}

func TestResultReturnsCopy(t *testing.T) {
	o := NewAnalysisOrchestrator(&fakeAnalyzer{
		fn: func(ctx context.Context, req engine.AnalysisRequest) (*engine.AnalysisResult, error) {
			return &engine.AnalysisResult{RepositoryID: "acme/widgets"}, nil
		},
	}, &fakeGraph{}, telemetry.NewNopTelemetry())

	if err := o.StartAnalysis(context.Background(), githubRequest()); err != nil {
		t.Fatal(err)
	}
	first := o.Result()
	first.RepositoryID = "mutated"
	if o.Result().RepositoryID != "acme/widgets" {
		t.Error("Result must return a copy, not the held record")
	}
}
