package engine

import "context"

// Analyzer performs repository analysis against a remote service.
type Analyzer interface {
	// Analyze inspects the identified repository and returns its analysis.
	// The returned error, when non-nil, is always a classified *Error.
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
}

// Generator produces CI configuration from a serialized workflow.
type Generator interface {
	// Generate submits the workflow and returns the generated configuration.
	// The returned error, when non-nil, is always a classified *Error.
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// GraphModel is the pipeline graph consumed by generation.
type GraphModel interface {
	// Serialize converts the current graph into its wire representation.
	// Returns an empty-workflow error when the graph has no stages.
	Serialize() (WorkflowRepresentation, error)

	// IsEmpty reports whether the graph has no stages.
	IsEmpty() bool
}

// ArtifactWriter persists generated configuration artifacts.
type ArtifactWriter interface {
	// Save persists the artifact, replacing any previous artifact for the
	// same project and provider.
	Save(ctx context.Context, artifact Artifact) error
}

// ArtifactReader retrieves persisted configuration artifacts.
type ArtifactReader interface {
	// Get returns the artifact with the given ID.
	Get(ctx context.Context, id string) (*Artifact, error)

	// List returns all persisted artifacts, most recent first.
	List(ctx context.Context) ([]Artifact, error)
}

// ArtifactStore combines artifact persistence and retrieval.
type ArtifactStore interface {
	ArtifactWriter
	ArtifactReader

	// Delete removes the artifact with the given ID.
	Delete(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}
