// Package engine provides the core domain types of the Pipewright
// orchestration core: the error taxonomy shared by every remote call, the
// analysis lifecycle states, the supported source kinds and CI providers,
// and the narrow interfaces the orchestrators depend on.
//
// The package has no I/O of its own. Remote clients live in pkg/analyzer and
// pkg/generator, the graph model in pkg/pipeline, and the state machines that
// tie them together in pkg/orchestrator.
package engine
