package config

import (
	"time"

	"github.com/pipewright/pipewright/pkg/pipeline"
)

// StageConfig is one pipeline stage as declared in a pipeline document.
type StageConfig struct {
	// ID uniquely identifies the stage within the document. When stages
	// are declared as a struct, the field name becomes the ID.
	ID string `json:"id"`

	// Name is the human-readable stage name.
	Name string `json:"name" validate:"required"`

	// Kind classifies the stage.
	Kind string `json:"kind,omitempty" validate:"omitempty,oneof=checkout install test build docker-build deploy custom"`

	// Commands are the shell commands the stage runs.
	Commands []string `json:"commands,omitempty"`

	// Image is an optional container image the stage runs in.
	Image string `json:"image,omitempty"`
}

// LinkConfig declares an ordering edge between two stages.
type LinkConfig struct {
	// From is the upstream stage ID.
	From string `json:"from" validate:"required"`

	// To is the downstream stage ID.
	To string `json:"to" validate:"required"`
}

// PipelineDocument is a declarative stage graph. It is the file-based path
// to a workflow: documents are parsed from CUE and materialized into the
// in-memory graph.
type PipelineDocument struct {
	// Name labels the pipeline.
	Name string `json:"name,omitempty"`

	// Stages are the pipeline stages, in declaration order.
	Stages []StageConfig `json:"stages" validate:"required,min=1,dive"`

	// Links are the ordering edges between stages.
	Links []LinkConfig `json:"links,omitempty" validate:"dive"`
}

// ParsedPipeline is the result of parsing one or more CUE sources.
type ParsedPipeline struct {
	// Document is the extracted pipeline, valid only when Errors is empty.
	Document PipelineDocument `json:"document"`

	// SourceFiles are the CUE files that were parsed.
	SourceFiles []string `json:"source_files"`

	// ParsedAt is when parsing happened.
	ParsedAt time.Time `json:"parsed_at"`

	// Errors lists parse and validation errors with source positions.
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is a parse or validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the CUE path to the error (e.g., "stages.build").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning, info).
	Severity string `json:"severity"`
}

// BuildGraph materializes the document into a fresh in-memory graph.
// Stage IDs and document order are preserved.
func (doc *PipelineDocument) BuildGraph() (*pipeline.Graph, error) {
	g := pipeline.NewGraph()
	for _, stage := range doc.Stages {
		spec := pipeline.StageSpec{
			ID:       stage.ID,
			Name:     stage.Name,
			Kind:     pipeline.StageKind(stage.Kind),
			Commands: stage.Commands,
			Image:    stage.Image,
		}
		if _, err := g.AddNode(spec); err != nil {
			return nil, err
		}
	}
	for _, link := range doc.Links {
		if err := g.AddLink(link.From, link.To); err != nil {
			return nil, err
		}
	}
	return g, nil
}
