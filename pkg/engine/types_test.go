package engine

import (
	"strings"
	"testing"
)

func TestAnalysisRequestValidate(t *testing.T) {
	ok := AnalysisRequest{Owner: "acme", Repo: "widgets", Source: SourceGitHub}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if got := ok.RepositoryID(); got != "acme/widgets" {
		t.Errorf("RepositoryID() = %q, want %q", got, "acme/widgets")
	}

	blankOwner := AnalysisRequest{Owner: "   ", Repo: "widgets", Source: SourceGitHub}
	if err := blankOwner.Validate(); !IsValidation(err) {
		t.Errorf("blank owner should fail validation, got %v", err)
	}

	blankRepo := AnalysisRequest{Owner: "acme", Source: SourceGitHub}
	if err := blankRepo.Validate(); !IsValidation(err) {
		t.Errorf("blank repo should fail validation, got %v", err)
	}

	badSource := AnalysisRequest{Owner: "acme", Repo: "widgets", Source: SourceKind("bitbucket")}
	if err := badSource.Validate(); !IsValidation(err) {
		t.Errorf("unsupported source should fail validation, got %v", err)
	}
}

func TestDeriveProjectName(t *testing.T) {
	tests := []struct {
		name   string
		result AnalysisResult
		want   string
	}{
		{"owner slash name", AnalysisResult{RepositoryID: "acme/widgets"}, "widgets"},
		{"clone url", AnalysisResult{RepositoryID: "https://github.com/acme/widgets.git"}, "widgets"},
		{"trailing slash", AnalysisResult{RepositoryID: "acme/widgets/"}, "widgets"},
		{"no separator", AnalysisResult{RepositoryID: "widgets"}, "widgets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.DeriveProjectName(); got != tt.want {
				t.Errorf("DeriveProjectName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalysisSummary(t *testing.T) {
	r := AnalysisResult{
		RepositoryID:   "acme/widgets",
		PackageManager: "Node.js",
		HasDockerfile:  true,
	}
	s := r.Summary()
	for _, want := range []string{"acme/widgets", "Node.js", "Dockerfile present: yes", "Existing CI config: no"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestGenerationRequestMarshal(t *testing.T) {
	req := GenerationRequest{
		Workflow: WorkflowRepresentation{Version: 1, Workflow: []byte(`{"stages":[]}`)},
		RepoInfo: "Repository: acme/widgets",
		Provider: ProviderCircleCI,
	}
	raw, err := req.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"version":1`, `"workflow":{"stages":[]}`, `"ciProvider":"circleci"`, `"repoInfo"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("payload missing %s: %s", want, raw)
		}
	}
}

func TestAnalysisStateTransitionsHelpers(t *testing.T) {
	if AnalysisIdle.IsTerminal() || AnalysisRunning.IsTerminal() {
		t.Error("idle and analyzing are not terminal")
	}
	if !AnalysisComplete.IsTerminal() || !AnalysisFailed.IsTerminal() {
		t.Error("analyzed and failed are terminal")
	}
	if !AnalysisRunning.IsActive() {
		t.Error("analyzing is active")
	}
	if err := AnalysisState("bogus").Validate(); err == nil {
		t.Error("bogus state should not validate")
	}
}

func TestProviderMetadata(t *testing.T) {
	if len(Providers()) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(Providers()))
	}
	for _, p := range Providers() {
		if err := p.Validate(); err != nil {
			t.Errorf("provider %s should validate: %v", p, err)
		}
		if p.DisplayName() == "" || p.ConfigFileName() == "" {
			t.Errorf("provider %s missing metadata", p)
		}
	}
	if err := CIProvider("jenkins").Validate(); err == nil {
		t.Error("unsupported provider should not validate")
	}
}
