package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pipewright/pipewright/pkg/engine"
)

func newArtifactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Inspect the generated-configuration history",
		Long: `Inspect the artifact store. One artifact is kept per project and
provider pair; a new generation for the same pair replaces it.`,
	}

	cmd.AddCommand(newArtifactsListCommand())
	cmd.AddCommand(newArtifactsGetCommand())
	cmd.AddCommand(newArtifactsDeleteCommand())

	return cmd
}

func newArtifactsListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer app.close(ctx)

			store, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var artifacts []engine.Artifact
			if limit > 0 || offset > 0 {
				artifacts, err = store.ListPage(ctx, limit, offset)
			} else {
				artifacts, err = store.List(ctx)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				out, err := json.MarshalIndent(artifacts, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			if len(artifacts) == 0 {
				fmt.Println("No artifacts stored yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROJECT\tPROVIDER\tSAVED AT")
			for _, a := range artifacts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					a.ID, a.ProjectName, a.Provider, a.SavedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of artifacts to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of artifacts to skip")

	return cmd
}

func newArtifactsGetCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer app.close(ctx)

			store, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			artifact, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(artifact.YAML), 0o644); err != nil {
					return err
				}
				fmt.Printf("Configuration written to %s\n", outFile)
				return nil
			}

			if jsonOutput {
				out, err := json.MarshalIndent(artifact, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Print(artifact.YAML)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "write the configuration to a file")

	return cmd
}

func newArtifactsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer app.close(ctx)

			store, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted artifact %s\n", args[0])
			return nil
		},
	}
}
