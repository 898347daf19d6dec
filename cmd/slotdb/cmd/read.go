package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/client"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <record>",
	Short: "Print a record",
	Long: `Print the displayable fields of a record.

Example:
  slotdb read 3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseRecordNumber(args[0])
		if err != nil {
			return err
		}

		coord, err := openCoordinator(cmd)
		if err != nil {
			return err
		}
		defer coord.ShutDown()

		h := client.New(coord, logger.Logger)
		fields, err := h.Read(n)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), h.Schema(), n, fields)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
