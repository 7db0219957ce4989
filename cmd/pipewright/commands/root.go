package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pipewright",
		Short: "Pipewright - CI/CD pipeline synthesis and configuration generation",
		Long: `Pipewright analyzes a source repository, synthesizes a pipeline-stage
graph from the analysis, and turns that graph into a concrete CI
configuration file for one of several providers.

Features:
  - Repository analysis for GitHub and GitLab repositories
  - Automatic pipeline synthesis from analysis signals
  - Declarative pipeline documents via CUE
  - Multi-provider generation (GitHub Actions, GitLab CI, CircleCI)
  - Policy gates via OPA/rego
  - Durable artifact history in SQLite`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newArtifactsCommand())
	rootCmd.AddCommand(newProvidersCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
