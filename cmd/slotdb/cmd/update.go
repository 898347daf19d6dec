package cmd

import (
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/client"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update <record> field=value...",
	Short: "Change fields of a record",
	Long: `Lock a record, change the given fields and unlock it.

Example:
  slotdb update 3 owner=12345678`,
	Args: cobra.MinimumNArgs(2),
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
		texts, err := parseAssignments(h.Schema(), args[1:])
		if err != nil {
			return err
		}

		if err := h.Lock(n); err != nil {
			return err
		}
		if err := h.Update(n, texts); err != nil {
			return multierror.Append(err, h.Close()).ErrorOrNil()
		}
		if err := h.Unlock(n); err != nil {
			return err
		}
		cmd.Printf("Updated record %d\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
