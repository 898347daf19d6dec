package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ssargent/slotdb/pkg/schema"
)

// parseAssignments turns name=value arguments into per-field text in schema
// order. Fields that are not named stay nil.
func parseAssignments(s *schema.Schema, args []string) ([]*string, error) {
	texts := make([]*string, s.NumFields())
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		i, ok := s.IndexOf(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		if texts[i] != nil {
			return nil, fmt.Errorf("field %q given more than once", name)
		}
		texts[i] = &value
	}
	return texts, nil
}

func parseRecordNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid record number %q", arg)
	}
	return n, nil
}

// printRecord writes one field per line
func printRecord(w io.Writer, s *schema.Schema, n int, fields []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "record\t%d\n", n)
	for i, value := range fields {
		if !s.Field(i).Displayable {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", s.Field(i).Name, value)
	}
	return tw.Flush()
}
