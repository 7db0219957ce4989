package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pipewright/pipewright/pkg/providers"
)

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported CI providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := providers.List()

			if jsonOutput {
				out, err := json.MarshalIndent(list, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCONFIG FILE")
			for _, p := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.DisplayName, p.ConfigFileName)
			}
			return w.Flush()
		},
	}
}
