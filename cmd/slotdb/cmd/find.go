package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/slotdb/pkg/client"
)

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find [field=prefix...]",
	Short: "List records whose fields start with the given prefixes",
	Long: `List records whose fields start with the given prefixes, ignoring case.
With no criteria every live record is listed.

Examples:
  slotdb find
  slotdb find name=pal location=smallville`,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := openCoordinator(cmd)
		if err != nil {
			return err
		}
		defer coord.ShutDown()

		h := client.New(coord, logger.Logger)
		criteria, err := parseAssignments(h.Schema(), args)
		if err != nil {
			return err
		}

		numbers, err := h.Find(criteria)
		if err != nil {
			return err
		}

		s := h.Schema()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		header := []string{"RECORD"}
		for _, f := range s.Fields() {
			if f.Displayable {
				header = append(header, strings.ToUpper(f.Name))
			}
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))

		for _, n := range numbers {
			fields, err := h.Read(n)
			if err != nil {
				// Deleted since the search.
				continue
			}
			row := []string{fmt.Sprint(n)}
			for i, value := range fields {
				if s.Field(i).Displayable {
					row = append(row, value)
				}
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
}
