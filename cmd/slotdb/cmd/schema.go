package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "List the fields of the table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := openCoordinator(cmd)
		if err != nil {
			return err
		}
		defer coord.ShutDown()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTYPE\tWIDTH\tSEARCHABLE\tDISPLAYABLE\tMODIFIABLE")
		for _, f := range coord.Schema().Fields() {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%t\t%t\n",
				f.Name, f.Type, f.MaxLength, f.Searchable, f.Displayable, f.Modifiable)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
