package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pipewright/pipewright/pkg/orchestrator"
	"github.com/pipewright/pipewright/pkg/pipeline"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		source  string
		dotFile string
	)

	cmd := &cobra.Command{
		Use:   "analyze <owner>/<repo>",
		Short: "Analyze a repository and synthesize a pipeline",
		Long: `Analyze a source repository and synthesize a pipeline-stage graph
from what the analysis finds: languages, package manager, framework,
Dockerfile and existing CI configuration.`,
		Example: `  # Analyze a GitHub repository
  pipewright analyze acme/widgets

  # Analyze a GitLab repository
  pipewright analyze acme/widgets --source gitlab

  # Write the synthesized graph as DOT for visualization
  pipewright analyze acme/widgets --dot pipeline.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer app.close(ctx)

			req, err := parseRepoArg(args[0], source)
			if err != nil {
				return err
			}

			graph := pipeline.NewGraph()
			orch := orchestrator.NewAnalysisOrchestrator(app.analyzerClient(), graph, app.tel)

			if err := orch.StartAnalysis(ctx, req); err != nil {
				return fmt.Errorf("analysis failed: %s", orch.ErrorMessage())
			}
			app.tel.Metrics.SetGraphSize(graph.StageCount(), graph.LinkCount())

			result := orch.Result()
			if jsonOutput {
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			} else {
				fmt.Println(result.Summary())
				fmt.Println()
				fmt.Printf("Synthesized pipeline (%d stages):\n", graph.StageCount())
				for _, stage := range graph.Stages() {
					fmt.Printf("  %-12s %s\n", stage.Kind, stage.Name)
				}
			}

			if dotFile != "" {
				if err := os.WriteFile(dotFile, []byte(graph.ToDOT()), 0o644); err != nil {
					return fmt.Errorf("failed to write DOT file: %w", err)
				}
				fmt.Printf("\nGraph written to %s\n", dotFile)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "github", "repository source (github, gitlab)")
	cmd.Flags().StringVar(&dotFile, "dot", "", "output DOT graph file (optional)")

	return cmd
}
