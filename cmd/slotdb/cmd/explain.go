package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Describe the table file and its slot usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := openCoordinator(cmd)
		if err != nil {
			return err
		}
		defer coord.ShutDown()

		s := coord.Schema()
		stats := coord.Stats()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "file\t%s\n", cfg.DataFile)
		fmt.Fprintf(tw, "fields\t%d\n", s.NumFields())
		fmt.Fprintf(tw, "record width\t%d\n", s.DataWidth())
		fmt.Fprintf(tw, "slots\t%d\n", stats.Slots)
		fmt.Fprintf(tw, "live\t%d\n", stats.Live)
		fmt.Fprintf(tw, "deleted\t%d\n", stats.Deleted)
		fmt.Fprintf(tw, "free slots\t%d\n", stats.FreeSlots)
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
