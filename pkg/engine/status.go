package engine

import "fmt"

// AnalysisState represents the lifecycle state of repository analysis.
type AnalysisState string

const (
	// AnalysisIdle indicates no analysis has been attempted since the last reset.
	AnalysisIdle AnalysisState = "idle"

	// AnalysisRunning indicates an analysis request is in flight.
	AnalysisRunning AnalysisState = "analyzing"

	// AnalysisComplete indicates the latest analysis succeeded and its result
	// is available to downstream generation.
	AnalysisComplete AnalysisState = "analyzed"

	// AnalysisFailed indicates the latest analysis failed; the classified
	// error message is retained alongside this state.
	AnalysisFailed AnalysisState = "failed"
)

// IsTerminal returns true if the state is a settled outcome of an attempt.
func (s AnalysisState) IsTerminal() bool {
	return s == AnalysisComplete || s == AnalysisFailed
}

// IsActive returns true if an analysis attempt is currently in flight.
func (s AnalysisState) IsActive() bool {
	return s == AnalysisRunning
}

// Validate checks if the state is a valid analysis state.
func (s AnalysisState) Validate() error {
	switch s {
	case AnalysisIdle, AnalysisRunning, AnalysisComplete, AnalysisFailed:
		return nil
	default:
		return fmt.Errorf("invalid analysis state: %s", s)
	}
}

// SourceKind identifies which hosting service a repository lives on. It
// selects the analyzer endpoint used for that repository.
type SourceKind string

const (
	// SourceGitHub routes analysis through the GitHub-specific endpoint.
	SourceGitHub SourceKind = "github"

	// SourceGitLab routes analysis through the GitLab-specific endpoint.
	SourceGitLab SourceKind = "gitlab"
)

// Validate checks if the source kind is supported.
func (k SourceKind) Validate() error {
	switch k {
	case SourceGitHub, SourceGitLab:
		return nil
	default:
		return fmt.Errorf("unsupported source kind: %s", k)
	}
}

// CIProvider identifies the target CI system a configuration is generated for.
type CIProvider string

const (
	// ProviderGitHubActions targets GitHub Actions workflow files.
	ProviderGitHubActions CIProvider = "github-actions"

	// ProviderGitLabCI targets GitLab CI pipeline files.
	ProviderGitLabCI CIProvider = "gitlab-ci"

	// ProviderCircleCI targets CircleCI configuration files.
	ProviderCircleCI CIProvider = "circleci"
)

// DefaultProvider is selected until the user picks a different target.
const DefaultProvider = ProviderGitHubActions

// Providers returns all supported CI providers in presentation order.
func Providers() []CIProvider {
	return []CIProvider{ProviderGitHubActions, ProviderGitLabCI, ProviderCircleCI}
}

// Validate checks if the provider is one of the supported targets.
func (p CIProvider) Validate() error {
	switch p {
	case ProviderGitHubActions, ProviderGitLabCI, ProviderCircleCI:
		return nil
	default:
		return fmt.Errorf("unsupported CI provider: %s", p)
	}
}

// DisplayName returns the human-readable name of the provider.
func (p CIProvider) DisplayName() string {
	switch p {
	case ProviderGitHubActions:
		return "GitHub Actions"
	case ProviderGitLabCI:
		return "GitLab CI"
	case ProviderCircleCI:
		return "CircleCI"
	default:
		return string(p)
	}
}

// ConfigFileName returns the conventional path of the generated configuration
// file inside a repository using this provider.
func (p CIProvider) ConfigFileName() string {
	switch p {
	case ProviderGitHubActions:
		return ".github/workflows/ci.yml"
	case ProviderGitLabCI:
		return ".gitlab-ci.yml"
	case ProviderCircleCI:
		return ".circleci/config.yml"
	default:
		return ""
	}
}
