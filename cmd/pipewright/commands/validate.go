package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pipewright/pipewright/pkg/config"
	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/policy"
)

func newValidateCommand() *cobra.Command {
	var (
		providerFlag string
		policyDirs   []string
		noPolicies   bool
	)

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate CUE pipeline documents",
		Long: `Validate CUE pipeline documents against the document schema, the
graph's structural rules (unknown links, cycles) and the policy set.`,
		Example: `  # Validate pipelines in the current directory
  pipewright validate

  # Validate a single document
  pipewright validate ci.cue

  # Validate with additional team policies
  pipewright validate ./pipelines --policy-dir ./policies`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer app.close(ctx)

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			provider, err := app.resolveProvider(providerFlag)
			if err != nil {
				return err
			}

			var policyEngine *policy.Engine
			if !noPolicies {
				policyEngine, err = newPolicyEngine(ctx, app.tel, policyDirs)
				if err != nil {
					return err
				}
			}

			return validatePath(ctx, app, path, provider, policyEngine)
		},
	}

	cmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "CI provider the policies evaluate against")
	cmd.Flags().StringSliceVar(&policyDirs, "policy-dir", nil, "additional policy files or directories")
	cmd.Flags().BoolVar(&noPolicies, "no-policies", false, "skip policy evaluation")

	return cmd
}

// validatePath validates every pipeline document under path. A nil policy
// engine skips policy evaluation. Shared with the watch command.
func validatePath(ctx context.Context, app *app, path string, provider engine.CIProvider, policyEngine *policy.Engine) error {
	files, err := collectPipelineFiles(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no pipeline documents found under %s", path)
	}

	parser := config.NewCUEParser()
	failed := 0

	for _, file := range files {
		if err := validateDocument(ctx, app, parser, file, provider, policyEngine); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", file, err)
			failed++
			continue
		}
		fmt.Printf("OK   %s\n", file)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(files))
	}
	return nil
}

// validateDocument validates one pipeline document end to end.
func validateDocument(ctx context.Context, app *app, parser *config.CUEParser, file string, provider engine.CIProvider, policyEngine *policy.Engine) error {
	graph, err := parser.Evaluate(ctx, []string{file})
	if err != nil {
		return err
	}

	if policyEngine == nil {
		if _, err := graph.Serialize(); err != nil {
			return err
		}
		return nil
	}
	return enforcePolicies(ctx, app.tel, policyEngine, graph, provider, file)
}

// collectPipelineFiles resolves a path to the CUE files under it.
func collectPipelineFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return config.FindPipelineFiles(path)
}
