package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/changelog"
	"github.com/walteh/redline/pkg/pipeline"
)

// NewLogCmd creates the log command.
func NewLogCmd() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent change-log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			records, err := changelog.New("").ReadRecent(tail)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "change log is empty.")
				return nil
			}
			for _, record := range records {
				fmt.Fprintf(out, "[%s] %-10s %-8s %-12s %s\n",
					record.Timestamp, record.Command, record.Action, record.LineSummary, record.Path)
				if len(record.Spans) > 0 {
					fmt.Fprintf(out, "    spans: %s\n", pipeline.DescribeSpans(record.Spans))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 20, "show the newest N entries")

	return cmd
}
