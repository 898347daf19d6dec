package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/client"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create field=value...",
	Short: "Add a record",
	Long: `Add a record. Fields that are not given get their zero value.

Example:
  slotdb create name=Palace location=Smallville size=4 rate='$150.00'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := openCoordinator(cmd)
		if err != nil {
			return err
		}
		defer coord.ShutDown()

		h := client.New(coord, logger.Logger)
		texts, err := parseAssignments(h.Schema(), args)
		if err != nil {
			return err
		}

		n, err := h.Create(texts)
		if err != nil {
			return err
		}
		cmd.Printf("Created record %d\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
