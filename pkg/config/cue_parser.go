package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/go-playground/validator/v10"

	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/pipeline"
)

// CUEParser parses and validates CUE pipeline documents.
type CUEParser struct {
	ctx       *cue.Context
	validator *validator.Validate
}

// NewCUEParser creates a new pipeline document parser.
func NewCUEParser() *CUEParser {
	return &CUEParser{
		ctx:       cuecontext.New(),
		validator: validator.New(),
	}
}

// Parse parses CUE pipeline sources. Sources may be files or directories;
// multiple sources are unified before extraction.
func (cp *CUEParser) Parse(ctx context.Context, sources []string) (*ParsedPipeline, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	var cueValue cue.Value
	var sourceFiles []string
	var parseErrors []ValidationError

	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", source, err)
		}

		if info.IsDir() {
			val, files, errs := cp.loadDirectory(source)
			if len(errs) > 0 {
				parseErrors = append(parseErrors, errs...)
			}
			if val.Exists() {
				if cueValue.Exists() {
					cueValue = cueValue.Unify(val)
				} else {
					cueValue = val
				}
			}
			sourceFiles = append(sourceFiles, files...)
		} else {
			val, errs := cp.loadFile(source)
			if len(errs) > 0 {
				parseErrors = append(parseErrors, errs...)
			}
			if val.Exists() {
				if cueValue.Exists() {
					cueValue = cueValue.Unify(val)
				} else {
					cueValue = val
				}
			}
			sourceFiles = append(sourceFiles, source)
		}
	}

	if len(parseErrors) > 0 {
		return &ParsedPipeline{
			SourceFiles: sourceFiles,
			ParsedAt:    time.Now(),
			Errors:      parseErrors,
		}, nil
	}

	if err := cueValue.Err(); err != nil {
		parseErrors = append(parseErrors, cp.convertCUEErrors(err)...)
		return &ParsedPipeline{
			SourceFiles: sourceFiles,
			ParsedAt:    time.Now(),
			Errors:      parseErrors,
		}, nil
	}

	return cp.extractPipeline(cueValue, sourceFiles)
}

// ParseInline parses inline CUE content.
func (cp *CUEParser) ParseInline(ctx context.Context, content string) (*ParsedPipeline, error) {
	val := cp.ctx.CompileString(content)
	if err := val.Err(); err != nil {
		return &ParsedPipeline{
			SourceFiles: []string{"inline"},
			ParsedAt:    time.Now(),
			Errors:      cp.convertCUEErrors(err),
		}, nil
	}

	return cp.extractPipeline(val, []string{"inline"})
}

// Evaluate parses pipeline sources and materializes the graph in one step,
// failing on any parse or validation error.
func (cp *CUEParser) Evaluate(ctx context.Context, sources []string) (*pipeline.Graph, error) {
	parsed, err := cp.Parse(ctx, sources)
	if err != nil {
		return nil, err
	}
	if len(parsed.Errors) > 0 {
		return nil, engine.NewValidationError(formatErrors(parsed.Errors), nil)
	}
	return parsed.Document.BuildGraph()
}

// loadDirectory loads a directory as a CUE package.
func (cp *CUEParser) loadDirectory(dir string) (cue.Value, []string, []ValidationError) {
	buildInstances := load.Instances([]string{dir}, nil)
	if len(buildInstances) == 0 {
		return cue.Value{}, nil, []ValidationError{{
			File:     dir,
			Message:  "no CUE files found",
			Severity: "error",
		}}
	}

	inst := buildInstances[0]
	if inst.Err != nil {
		return cue.Value{}, nil, cp.convertCUEErrors(inst.Err)
	}

	val := cp.ctx.BuildInstance(inst)
	if err := val.Err(); err != nil {
		return cue.Value{}, nil, cp.convertCUEErrors(err)
	}

	var files []string
	for _, file := range inst.Files {
		if file.Filename != "" {
			files = append(files, file.Filename)
		}
	}

	return val, files, nil
}

// loadFile loads a single CUE file.
func (cp *CUEParser) loadFile(path string) (cue.Value, []ValidationError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, []ValidationError{{
			File:     path,
			Message:  fmt.Sprintf("failed to read file: %v", err),
			Severity: "error",
		}}
	}

	val := cp.ctx.CompileString(string(content), cue.Filename(path))
	if err := val.Err(); err != nil {
		return cue.Value{}, cp.convertCUEErrors(err)
	}

	return val, nil
}

// extractPipeline extracts the pipeline document from a CUE value. The
// document lives under the top-level "pipeline" field; a bare document at
// the root is also accepted.
func (cp *CUEParser) extractPipeline(val cue.Value, sourceFiles []string) (*ParsedPipeline, error) {
	parsed := &ParsedPipeline{
		SourceFiles: sourceFiles,
		ParsedAt:    time.Now(),
	}

	root := val.LookupPath(cue.ParsePath("pipeline"))
	if !root.Exists() {
		root = val
	}

	nameVal := root.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		if name, err := nameVal.String(); err == nil {
			parsed.Document.Name = name
		}
	}

	stagesVal := root.LookupPath(cue.ParsePath("stages"))
	if !stagesVal.Exists() {
		parsed.Errors = append(parsed.Errors, ValidationError{
			Path:     "stages",
			Message:  "pipeline declares no stages",
			Severity: "error",
		})
		return parsed, nil
	}

	// Stages can be declared as a struct keyed by stage ID or as a list.
	switch stagesVal.Kind() {
	case cue.StructKind:
		iter, err := stagesVal.Fields(cue.All())
		if err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "stages",
				Message:  fmt.Sprintf("failed to iterate stages: %v", err),
				Severity: "error",
			})
			break
		}
		for iter.Next() {
			id := strings.Trim(iter.Selector().String(), `"`)
			stage, err := cp.extractStage(id, iter.Value())
			if err != nil {
				parsed.Errors = append(parsed.Errors, ValidationError{
					Path:     fmt.Sprintf("stages.%s", id),
					Message:  err.Error(),
					Severity: "error",
				})
				continue
			}
			parsed.Document.Stages = append(parsed.Document.Stages, stage)
		}
	case cue.ListKind:
		list, err := stagesVal.List()
		if err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "stages",
				Message:  fmt.Sprintf("failed to list stages: %v", err),
				Severity: "error",
			})
			break
		}
		idx := 0
		for list.Next() {
			stage, err := cp.extractStage("", list.Value())
			if err != nil {
				parsed.Errors = append(parsed.Errors, ValidationError{
					Path:     fmt.Sprintf("stages[%d]", idx),
					Message:  err.Error(),
					Severity: "error",
				})
				idx++
				continue
			}
			parsed.Document.Stages = append(parsed.Document.Stages, stage)
			idx++
		}
	default:
		parsed.Errors = append(parsed.Errors, ValidationError{
			Path:     "stages",
			Message:  "stages must be a struct or a list",
			Severity: "error",
		})
	}

	linksVal := root.LookupPath(cue.ParsePath("links"))
	if linksVal.Exists() {
		if err := linksVal.Decode(&parsed.Document.Links); err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "links",
				Message:  fmt.Sprintf("failed to decode links: %v", err),
				Severity: "error",
			})
		}
	}

	if len(parsed.Errors) == 0 {
		if err := cp.validator.Struct(&parsed.Document); err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "pipeline",
				Message:  err.Error(),
				Severity: "error",
			})
		}
	}

	return parsed, nil
}

// extractStage extracts one stage from a CUE value. When the stage comes
// from a struct field and carries no explicit ID, the field name is used.
func (cp *CUEParser) extractStage(id string, val cue.Value) (StageConfig, error) {
	var stage StageConfig
	if err := val.Decode(&stage); err != nil {
		return stage, fmt.Errorf("failed to decode stage: %w", err)
	}

	if stage.ID == "" && id != "" {
		stage.ID = id
	}
	if stage.Name == "" {
		return stage, fmt.Errorf("stage has no name")
	}

	if err := cp.validator.Struct(stage); err != nil {
		return stage, fmt.Errorf("validation failed: %w", err)
	}

	return stage, nil
}

// convertCUEErrors converts CUE errors to a ValidationError slice with
// source positions.
func (cp *CUEParser) convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	errs := errors.Errors(err)
	for _, e := range errs {
		pos := errors.Positions(e)
		var file string
		var line, column int

		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Message:  errors.Details(e, nil),
			Severity: "error",
		})
	}

	return validationErrors
}

// ExportJSON exports a CUE value to indented JSON.
func (cp *CUEParser) ExportJSON(val cue.Value) ([]byte, error) {
	var data interface{}
	if err := val.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}

	return json.MarshalIndent(data, "", "  ")
}

// FindPipelineFiles lists all CUE files under a directory tree.
func FindPipelineFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}

// formatErrors joins validation errors into a single message.
func formatErrors(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.File != "" && e.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, strings.TrimSpace(e.Message)))
			continue
		}
		if e.Path != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", e.Path, strings.TrimSpace(e.Message)))
			continue
		}
		parts = append(parts, strings.TrimSpace(e.Message))
	}
	return "pipeline document invalid: " + strings.Join(parts, "; ")
}
