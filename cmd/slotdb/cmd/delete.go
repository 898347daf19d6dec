package cmd

import (
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/client"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <record>",
	Short: "Delete a record",
	Long: `Lock and delete a record. Its slot is reused by the next create.

Example:
  slotdb delete 3`,
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
		if err := h.Lock(n); err != nil {
			return err
		}
		if err := h.Delete(n); err != nil {
			return multierror.Append(err, h.Close()).ErrorOrNil()
		}
		cmd.Printf("Deleted record %d\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
