// Package orchestrator binds the three asynchronous stages of the system:
// repository analysis ingestion, graph synthesis from the analysis, and
// multi-provider configuration generation from the graph.
//
// Two coordinators share the work. The AnalysisOrchestrator drives the
// analysis call, owns the analysis lifecycle state, and gates configuration
// generation on a usable result. The GenerationOrchestrator serializes the
// pipeline graph, enriches it with analysis metadata, submits it for
// generation, and persists successful results durably.
//
// Neither coordinator cancels an in-flight remote call when a new attempt
// starts; overlapping attempts race for final-state ownership and the last
// one to settle wins. No call is retried automatically; retry decisions are
// surfaced to the operator.
package orchestrator
