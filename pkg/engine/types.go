package engine

import (
	"encoding/json"
	"strings"
	"time"
)

// AnalysisRequest identifies a repository to analyze.
type AnalysisRequest struct {
	// Owner is the account or group owning the repository.
	Owner string `json:"owner" validate:"required"`

	// Repo is the repository name.
	Repo string `json:"repo" validate:"required"`

	// Source selects which hosting service endpoint performs the analysis.
	Source SourceKind `json:"source" validate:"required"`
}

// Validate checks the request before any network call is issued.
func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Owner) == "" {
		return NewValidationError("repository owner is required", nil).
			WithOperation("analyze")
	}
	if strings.TrimSpace(r.Repo) == "" {
		return NewValidationError("repository name is required", nil).
			WithOperation("analyze")
	}
	if err := r.Source.Validate(); err != nil {
		return NewValidationError(err.Error(), err).WithOperation("analyze")
	}
	return nil
}

// RepositoryID returns the owner/name identifier of the repository.
func (r AnalysisRequest) RepositoryID() string {
	return strings.TrimSpace(r.Owner) + "/" + strings.TrimSpace(r.Repo)
}

// AnalysisResult is the outcome of a successful repository analysis. The
// payload is retained verbatim so generation can forward fields this version
// does not model. JSON tags follow the analyzer service's wire names.
type AnalysisResult struct {
	// RepositoryID identifies the analyzed repository.
	RepositoryID string `json:"repositoryIdentifier"`

	// ProjectName is the name the service inferred for the project, if any.
	ProjectName string `json:"projectName,omitempty"`

	// Languages lists the detected languages, most prominent first.
	Languages []string `json:"languages,omitempty"`

	// PackageManager is the detected package manager label, if any.
	PackageManager string `json:"packageManagerLabel,omitempty"`

	// Framework is the detected application framework label, if any.
	Framework string `json:"frameworkLabel,omitempty"`

	// HasDockerfile reports whether a Dockerfile was found.
	HasDockerfile bool `json:"hasDockerfile"`

	// HasExistingCI reports whether the repository already carries CI
	// configuration.
	HasExistingCI bool `json:"hasExistingCiConfig"`

	// Raw is the analyzer's full response payload, kept verbatim.
	Raw json.RawMessage `json:"-"`
}

// DeriveProjectName returns the project name for artifacts built from this
// analysis: the last path segment of the repository identifier, or the full
// identifier when it has no separator.
func (r AnalysisResult) DeriveProjectName() string {
	id := strings.TrimSuffix(strings.TrimSpace(r.RepositoryID), "/")
	id = strings.TrimSuffix(id, ".git")
	if i := strings.LastIndex(id, "/"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}

// Summary renders the human-readable metadata block attached to generation
// requests. Opaque text for the generator's prompt context, not structured
// data.
func (r AnalysisResult) Summary() string {
	var sb strings.Builder
	sb.WriteString("Repository: " + r.RepositoryID + "\n")
	if r.PackageManager != "" {
		sb.WriteString("Package manager: " + r.PackageManager + "\n")
	}
	if r.Framework != "" {
		sb.WriteString("Framework: " + r.Framework + "\n")
	}
	sb.WriteString("Dockerfile present: " + yesNo(r.HasDockerfile) + "\n")
	sb.WriteString("Existing CI config: " + yesNo(r.HasExistingCI) + "\n")
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// WorkflowRepresentation is the serialized form of the pipeline graph sent to
// the generation service. The workflow body is treated as opaque by the
// transport layer; only the graph model knows its shape.
type WorkflowRepresentation struct {
	// Version is the serialization format version.
	Version int `json:"version"`

	// Workflow is the serialized graph.
	Workflow json.RawMessage `json:"workflow"`
}

// GenerationRequest is the full payload sent to the generation service.
type GenerationRequest struct {
	// Workflow is the serialized pipeline graph.
	Workflow WorkflowRepresentation `json:"-"`

	// RepoInfo is the human-readable analysis summary attached to the
	// payload.
	RepoInfo string `json:"repoInfo"`

	// Provider is the CI system to generate configuration for.
	Provider CIProvider `json:"ciProvider"`
}

// MarshalJSON flattens the workflow representation's fields into the
// top-level payload alongside repoInfo and ciProvider.
func (r GenerationRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Version    int             `json:"version"`
		Workflow   json.RawMessage `json:"workflow"`
		RepoInfo   string          `json:"repoInfo"`
		CIProvider CIProvider      `json:"ciProvider"`
	}{
		Version:    r.Workflow.Version,
		Workflow:   r.Workflow.Workflow,
		RepoInfo:   r.RepoInfo,
		CIProvider: r.Provider,
	})
}

// GenerationResult is a successful response from the generation service.
type GenerationResult struct {
	// YAML is the generated configuration text.
	YAML string `json:"yaml"`

	// ProjectName is the name the service chose for the project. May be
	// empty; the orchestrator then derives one from the analysis.
	ProjectName string `json:"projectName,omitempty"`
}

// GeneratedConfig is the presentation-facing outcome of one generation
// attempt. Exactly one of YAML and Error is meaningful at any time; Loading
// reports an attempt still in flight.
type GeneratedConfig struct {
	// YAML is the generated configuration text. Empty until an attempt
	// succeeds.
	YAML string `json:"yaml"`

	// Loading reports whether a generation attempt is in flight.
	Loading bool `json:"loading"`

	// Error is the user-facing message of the latest failed attempt.
	// Empty means no error.
	Error string `json:"error"`
}

// Artifact is the durable record persisted after a successful generation.
// All four payload fields are written together or not at all.
type Artifact struct {
	// ID uniquely identifies the artifact record.
	ID string `json:"id"`

	// YAML is the generated configuration text.
	YAML string `json:"yaml"`

	// Provider is the CI system the configuration targets.
	Provider CIProvider `json:"provider"`

	// ProjectName is the name derived for the project.
	ProjectName string `json:"project_name"`

	// SavedAt is when the artifact was persisted.
	SavedAt time.Time `json:"saved_at"`
}
