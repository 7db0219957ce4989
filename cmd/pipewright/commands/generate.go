package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pipewright/pipewright/pkg/config"
	"github.com/pipewright/pipewright/pkg/engine"
	"github.com/pipewright/pipewright/pkg/orchestrator"
	"github.com/pipewright/pipewright/pkg/pipeline"
	"github.com/pipewright/pipewright/pkg/policy"
	"github.com/pipewright/pipewright/pkg/telemetry"
)

func newGenerateCommand() *cobra.Command {
	var (
		source       string
		providerFlag string
		pipelineFile string
		outFile      string
		policyDirs   []string
		noPolicies   bool
	)

	cmd := &cobra.Command{
		Use:   "generate <owner>/<repo>",
		Short: "Generate a CI configuration file",
		Long: `Analyze a repository, synthesize or load a pipeline, gate it through
policies and generate a CI configuration for the chosen provider.

The pipeline comes from repository analysis by default; --pipeline
replaces it with a declarative CUE document. The generated
configuration is persisted to the artifact store on success.`,
		Example: `  # Generate a GitHub Actions workflow
  pipewright generate acme/widgets

  # Generate for GitLab CI from a declarative pipeline
  pipewright generate acme/widgets --provider gitlab-ci --pipeline ci.cue

  # Write the configuration to the provider's conventional path
  pipewright generate acme/widgets -o .github/workflows/ci.yml`,
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
			provider, err := app.resolveProvider(providerFlag)
			if err != nil {
				return err
			}

			store, err := app.openStore(ctx)
			if err != nil {
				return fmt.Errorf("failed to open artifact store: %w", err)
			}
			defer store.Close()

			// Generation needs a settled analysis regardless of where the
			// pipeline comes from; the analysis enriches the request.
			graph := pipeline.NewGraph()
			analysisOrch := orchestrator.NewAnalysisOrchestrator(app.analyzerClient(), graph, app.tel)
			if err := analysisOrch.StartAnalysis(ctx, req); err != nil {
				return fmt.Errorf("analysis failed: %s", analysisOrch.ErrorMessage())
			}

			serializer := orchestrator.Serializer(graph)
			app.tel.Metrics.SetGraphSize(graph.StageCount(), graph.LinkCount())
			if pipelineFile != "" {
				parser := config.NewCUEParser()
				docGraph, err := parser.Evaluate(ctx, []string{pipelineFile})
				if err != nil {
					return fmt.Errorf("failed to load pipeline document: %w", err)
				}
				serializer = docGraph
				app.tel.Metrics.SetGraphSize(docGraph.StageCount(), docGraph.LinkCount())
			}

			if !noPolicies {
				policyEngine, err := newPolicyEngine(ctx, app.tel, policyDirs)
				if err != nil {
					return err
				}
				repoID := req.RepositoryID()
				if err := enforcePolicies(ctx, app.tel, policyEngine, serializer, provider, repoID); err != nil {
					return err
				}
			}

			genOrch := orchestrator.NewGenerationOrchestrator(analysisOrch, serializer, app.generatorClient(), store, app.tel)
			if err := genOrch.Generate(ctx, provider); err != nil {
				cfg := genOrch.GeneratedConfig()
				if cfg.Error != "" {
					return fmt.Errorf("generation failed: %s", cfg.Error)
				}
				return err
			}

			cfg := genOrch.GeneratedConfig()

			// Round-check: the service promised YAML, make sure it parses
			// before handing it to the user.
			var parsed interface{}
			if err := yaml.Unmarshal([]byte(cfg.YAML), &parsed); err != nil {
				app.tel.Logger.WithError(err).Warn("generated configuration is not valid YAML")
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(cfg.YAML), 0o644); err != nil {
					return fmt.Errorf("failed to write configuration: %w", err)
				}
				fmt.Printf("Configuration written to %s\n", outFile)
			} else {
				fmt.Print(cfg.YAML)
			}

			if artifact := genOrch.LastArtifact(); artifact != nil {
				fmt.Fprintf(os.Stderr, "Saved artifact %s (%s, %s)\n",
					artifact.ID, artifact.ProjectName, artifact.Provider.DisplayName())
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "github", "repository source (github, gitlab)")
	cmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "CI provider (github-actions, gitlab-ci, circleci)")
	cmd.Flags().StringVar(&pipelineFile, "pipeline", "", "declarative CUE pipeline document replacing the synthesized graph")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "write the configuration to a file instead of stdout")
	cmd.Flags().StringSliceVar(&policyDirs, "policy-dir", nil, "additional policy files or directories")
	cmd.Flags().BoolVar(&noPolicies, "no-policies", false, "skip policy evaluation")

	return cmd
}

// newPolicyEngine builds a policy engine carrying the builtin set plus any
// user policy files or directories.
func newPolicyEngine(ctx context.Context, tel *telemetry.Telemetry, policyDirs []string) (*policy.Engine, error) {
	policyEngine, err := policy.NewEngine(tel.Logger.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	if len(policyDirs) > 0 {
		if err := policyEngine.LoadPolicies(ctx, policyDirs); err != nil {
			return nil, err
		}
	}
	return policyEngine, nil
}

// enforcePolicies serializes the workflow and evaluates every policy
// against it. Blocking violations abort generation.
func enforcePolicies(
	ctx context.Context,
	tel *telemetry.Telemetry,
	policyEngine *policy.Engine,
	serializer orchestrator.Serializer,
	provider engine.CIProvider,
	repository string,
) error {
	workflow, err := serializer.Serialize()
	if err != nil {
		return fmt.Errorf("pipeline cannot be checked: %s", engine.Message(err))
	}

	result, err := policyEngine.Evaluate(ctx, workflow, provider, repository)
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}

	for _, v := range result.Violations {
		fmt.Fprintf(os.Stderr, "policy %s [%s]: %s\n", v.Policy, v.Severity, v.Message)
		_ = tel.Events.PublishPolicyViolation(repository, v.Policy, v.Message)
	}
	if blocking := result.Blocking(); len(blocking) > 0 {
		return fmt.Errorf("%d policy violation(s) block generation", len(blocking))
	}

	return nil
}
