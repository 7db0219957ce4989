package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

// Serializer produces the wire representation of the pipeline graph.
type Serializer interface {
	Serialize() (engine.WorkflowRepresentation, error)
}

// GenerationOrchestrator drives configuration generation and owns the
// GeneratedConfig state and artifact persistence. It never proceeds without a
// usable analysis and never holds its lock across the remote call.
type GenerationOrchestrator struct {
	analysis *AnalysisOrchestrator
	graph    Serializer
	gen      engine.Generator
	store    engine.ArtifactWriter
	tel      *telemetry.Telemetry
	logger   *telemetry.Logger

	mu           sync.Mutex
	attempt      uint64
	config       engine.GeneratedConfig
	lastArtifact *engine.Artifact
}

// NewGenerationOrchestrator creates the generation coordinator.
func NewGenerationOrchestrator(
	analysis *AnalysisOrchestrator,
	graph Serializer,
	gen engine.Generator,
	store engine.ArtifactWriter,
	tel *telemetry.Telemetry,
) *GenerationOrchestrator {
	return &GenerationOrchestrator{
		analysis: analysis,
		graph:    graph,
		gen:      gen,
		store:    store,
		tel:      tel,
		logger:   tel.Logger.NewComponentLogger("generation_orchestrator"),
	}
}

// Generate runs one configuration generation attempt for the given provider.
// The outcome is observable through GeneratedConfig; the returned error
// mirrors what GeneratedConfig records. Each call is issued a sequence token
// and fully replaces the previous GeneratedConfig; a settlement from an
// attempt superseded by a newer call is discarded, including its artifact
// write.
func (g *GenerationOrchestrator) Generate(ctx context.Context, provider engine.CIProvider) error {
	log := g.logger.WithProvider(string(provider))

	g.mu.Lock()
	g.attempt++
	token := g.attempt
	g.mu.Unlock()

	// Both gates fail locally, before any network call.
	if !g.analysis.HasUsableAnalysis() {
		err := engine.NewMissingAnalysisError()
		g.settleFailure(token, err)
		log.WithError(err).Warn("generation blocked: no usable analysis")
		return err
	}

	workflow, err := g.graph.Serialize()
	if err != nil {
		if !engine.IsEmptyWorkflow(err) {
			err = engine.NewEmptyWorkflowError()
		}
		g.settleFailure(token, err)
		log.WithError(err).Warn("generation blocked: graph cannot be serialized")
		return err
	}

	analysis := g.analysis.Result()
	if analysis == nil {
		// The gate passed but a racing analysis attempt discarded the
		// result before we copied it.
		err := engine.NewMissingAnalysisError()
		g.settleFailure(token, err)
		return err
	}
	repoID := analysis.RepositoryID

	// Enter the loading state: clear prior yaml and error. The started
	// event is the presentation layer's cue to surface the pending view.
	g.mu.Lock()
	if token == g.attempt {
		g.config = engine.GeneratedConfig{Loading: true}
	}
	g.mu.Unlock()

	ctx, span := g.tel.Tracer.StartGenerationSpan(ctx, repoID, string(provider))
	defer span.End()
	g.tel.Metrics.RecordGenerationStarted(string(provider))
	_ = g.tel.Events.PublishGenerationStarted(repoID, string(provider))
	timer := telemetry.NewTimer()

	log.WithRepository(repoID).Info("starting configuration generation")

	req := engine.GenerationRequest{
		Workflow: workflow,
		RepoInfo: analysis.Summary(),
		Provider: provider,
	}

	// Suspension point: the remote call runs outside the lock.
	result, err := g.gen.Generate(ctx, req)
	if err != nil {
		committed := g.settleFailure(token, err)
		telemetry.RecordError(span, err)
		g.tel.Metrics.RecordGenerationCompleted(string(provider), "failure", timer.Duration())
		g.tel.Metrics.RecordError(string(engine.KindOf(err)), "generate")
		_ = g.tel.Events.PublishGenerationFailed(repoID, string(provider), engine.Message(err))
		if committed {
			log.WithError(err).Error("configuration generation failed")
		} else {
			log.WithError(err).Debug("discarded failure of a superseded generation attempt")
		}
		return err
	}

	projectName := result.ProjectName
	if projectName == "" {
		projectName = analysis.DeriveProjectName()
	}
	artifact := engine.Artifact{
		ID:          uuid.New().String(),
		YAML:        result.YAML,
		Provider:    provider,
		ProjectName: projectName,
		SavedAt:     time.Now().UTC(),
	}

	g.mu.Lock()
	committed := token == g.attempt
	if committed {
		g.config = engine.GeneratedConfig{YAML: result.YAML}
		g.lastArtifact = &artifact
	}
	g.mu.Unlock()

	telemetry.RecordSuccess(span)
	g.tel.Metrics.RecordGenerationCompleted(string(provider), "success", timer.Duration())
	_ = g.tel.Events.PublishGenerationCompleted(repoID, string(provider), timer.Duration())

	if !committed {
		// A newer attempt owns the state now; its artifact is the one
		// worth keeping, so the stale write is skipped too.
		log.Debug("discarded success of a superseded generation attempt")
		return nil
	}

	// Persist the artifact. All four fields are written atomically by the
	// store; a failed write leaves no partial record behind.
	if err := g.store.Save(ctx, artifact); err != nil {
		log.WithError(err).Error("failed to persist generated configuration")
		return engine.NewUnknownError("generated configuration could not be persisted", err).
			WithOperation("persist")
	}
	g.tel.Metrics.RecordArtifactSaved(string(provider))
	_ = g.tel.Events.PublishArtifactSaved(artifact.ID, projectName, string(provider))

	log.WithArtifactID(artifact.ID).Info("configuration generated and persisted")
	return nil
}

// settleFailure replaces GeneratedConfig with the failed outcome. An attempt
// superseded by a newer Generate call reports false and leaves the config
// untouched.
func (g *GenerationOrchestrator) settleFailure(token uint64, err error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if token != g.attempt {
		return false
	}
	g.config = engine.GeneratedConfig{Error: engine.Message(err)}
	return true
}

// GeneratedConfig returns the outcome of the latest generation attempt.
func (g *GenerationOrchestrator) GeneratedConfig() engine.GeneratedConfig {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config
}

// LastArtifact returns a copy of the most recently persisted artifact, or
// nil when no attempt has succeeded yet.
func (g *GenerationOrchestrator) LastArtifact() *engine.Artifact {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastArtifact == nil {
		return nil
	}
	cp := *g.lastArtifact
	return &cp
}
