package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/redline/pkg/changelog"
	"github.com/walteh/redline/pkg/pipeline"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	var (
		since  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate the change log by command and action",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			reportFormat, err := pipeline.ParseReportFormat(format)
			if err != nil {
				return err
			}
			var sinceTime time.Time
			sinceLabel := "beginning of log"
			if since != "" {
				sinceTime, err = time.Parse(time.RFC3339, since)
				if err != nil {
					return errors.Errorf("parsing --since %q: %w", since, err)
				}
				sinceLabel = since
			}

			records, err := changelog.New("").ReadAll()
			if err != nil {
				return err
			}
			rows := changelog.Report(records, sinceTime)
			if len(rows) == 0 {
				fmt.Fprintln(out, "no log entries match the requested window.")
				return nil
			}

			if reportFormat == pipeline.ReportJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return errors.WithStack(encoder.Encode(rows))
			}

			fmt.Fprintf(out, "Report entries: %d (since %s)\n", len(rows), sinceLabel)
			for _, row := range rows {
				fmt.Fprintf(out, "%-12s %-10s %d\n", row.Command, row.Action, row.Count)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&since, "since", "", "only count entries at or after this RFC3339 timestamp")
	flags.StringVar(&format, "format", "table", "report format: table or json")

	return cmd
}
