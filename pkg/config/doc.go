// Package config loads application settings and parses declarative
// pipeline documents.
//
// Two concerns live here:
//
//   - Settings: the YAML settings file configuring the analyzer and
//     generator endpoints, request timeouts, the artifact store path and
//     telemetry. Defaults cover every field so the tool runs without a
//     file.
//
//   - Pipeline documents: CUE files declaring a stage graph directly,
//     the file-based alternative to synthesizing a graph from repository
//     analysis. CUEParser parses and validates documents and
//     PipelineDocument.BuildGraph materializes them into the in-memory
//     graph, reusing its link and cycle validation.
//
// # Usage
//
//	settings, err := config.LoadSettings("pipewright.yaml")
//	if err != nil {
//		return err
//	}
//
//	parser := config.NewCUEParser()
//	graph, err := parser.Evaluate(ctx, []string{"pipeline.cue"})
package config
