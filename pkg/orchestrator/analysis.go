package orchestrator

import (
	"context"
	"sync"

	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

// Synthesizer seeds the pipeline graph from an analysis result.
type Synthesizer interface {
	PopulateFromAnalysis(result engine.AnalysisResult)
	StageCount() int
}

// AnalysisOrchestrator drives repository analysis and owns its lifecycle
// state. It is the single source of truth for whether a usable analysis
// exists, which gates configuration generation.
type AnalysisOrchestrator struct {
	analyzer engine.Analyzer
	graph    Synthesizer
	tel      *telemetry.Telemetry
	logger   *telemetry.Logger

	mu      sync.Mutex
	attempt uint64
	state   engine.AnalysisState
	result  *engine.AnalysisResult
	errMsg  string
}

// NewAnalysisOrchestrator creates the analysis coordinator.
func NewAnalysisOrchestrator(analyzer engine.Analyzer, graph Synthesizer, tel *telemetry.Telemetry) *AnalysisOrchestrator {
	return &AnalysisOrchestrator{
		analyzer: analyzer,
		graph:    graph,
		tel:      tel,
		logger:   tel.Logger.NewComponentLogger("analysis_orchestrator"),
		state:    engine.AnalysisIdle,
	}
}

// StartAnalysis runs one analysis attempt to completion and settles the
// orchestrator state with its outcome. Starting a new attempt does not cancel
// a previous in-flight one; each call is issued a sequence token and only the
// most recently started attempt may commit. A superseded attempt's settlement
// is discarded in its entirety, so an older attempt finishing late can never
// overwrite a newer attempt's outcome.
//
// On a committed success the graph is synthesized from the result exactly
// once before the call returns. The returned error, when non-nil, is a
// classified *engine.Error and describes this attempt even when its
// settlement was discarded.
func (o *AnalysisOrchestrator) StartAnalysis(ctx context.Context, req engine.AnalysisRequest) error {
	repoID := req.RepositoryID()
	log := o.logger.WithRepository(repoID)

	// Transition to Analyzing under a fresh token: discard prior result
	// and error, and supersede any attempt still in flight.
	o.mu.Lock()
	o.attempt++
	token := o.attempt
	o.state = engine.AnalysisRunning
	o.result = nil
	o.errMsg = ""
	o.mu.Unlock()

	ctx, span := o.tel.Tracer.StartAnalysisSpan(ctx, repoID, string(req.Source))
	defer span.End()
	o.tel.Metrics.RecordAnalysisStarted(string(req.Source))
	_ = o.tel.Events.PublishAnalysisStarted(repoID, string(req.Source))
	timer := telemetry.NewTimer()

	log.Info("starting repository analysis")

	// The network call runs outside the lock; it is the suspension point.
	result, err := o.analyzer.Analyze(ctx, req)
	if err != nil {
		msg := engine.Message(err)
		committed := o.settle(token, engine.AnalysisFailed, nil, msg)

		telemetry.RecordError(span, err)
		o.tel.Metrics.RecordAnalysisCompleted(string(req.Source), "failure", timer.Duration())
		o.tel.Metrics.RecordError(string(engine.KindOf(err)), "analyze")
		_ = o.tel.Events.PublishAnalysisFailed(repoID, msg)
		if committed {
			log.WithError(err).Error("repository analysis failed")
		} else {
			log.WithError(err).Debug("discarded failure of a superseded analysis attempt")
		}
		return err
	}

	committed := o.settle(token, engine.AnalysisComplete, result, "")

	telemetry.RecordSuccess(span)
	o.tel.Metrics.RecordAnalysisCompleted(string(req.Source), "success", timer.Duration())
	_ = o.tel.Events.PublishAnalysisCompleted(repoID, timer.Duration())

	if !committed {
		log.Debug("discarded success of a superseded analysis attempt")
		return nil
	}

	log.Info("repository analysis completed")

	// Synthesis runs on every committed success. Its failures are the
	// graph's to report, not caught here.
	o.graph.PopulateFromAnalysis(*result)
	_ = o.tel.Events.PublishGraphSynthesized(result.RepositoryID, o.graph.StageCount())

	return nil
}

// settle commits an attempt's outcome. An attempt superseded by a newer
// StartAnalysis call reports false and leaves the state untouched.
func (o *AnalysisOrchestrator) settle(token uint64, state engine.AnalysisState, result *engine.AnalysisResult, errMsg string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if token != o.attempt {
		return false
	}
	o.state = state
	o.result = result
	o.errMsg = errMsg
	return true
}

// State returns the current analysis lifecycle state.
func (o *AnalysisOrchestrator) State() engine.AnalysisState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsLoading reports whether an analysis attempt is in flight.
func (o *AnalysisOrchestrator) IsLoading() bool {
	return o.State() == engine.AnalysisRunning
}

// ErrorMessage returns the user-facing message of the latest failed attempt,
// or "" when the latest attempt did not fail.
func (o *AnalysisOrchestrator) ErrorMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

// HasUsableAnalysis reports whether the current state is Analyzed. This is
// the gate configuration generation checks before proceeding.
func (o *AnalysisOrchestrator) HasUsableAnalysis() bool {
	return o.State() == engine.AnalysisComplete
}

// Result returns a copy of the held analysis result, or nil when no usable
// analysis exists.
func (o *AnalysisOrchestrator) Result() *engine.AnalysisResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return nil
	}
	cp := *o.result
	return &cp
}
