package commands

import (
	"bufio"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/review"
)

// NewReviewCmd creates the review command.
func NewReviewCmd() *cobra.Command {
	common := &CommonFlags{}
	input := review.Input{}

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Read files with slicing, search highlighting, and follow mode",
		Long: `Review prints slices of the selected files: head, tail, a line
range, or the context around one line. --search highlights matches,
--step pauses between files, and --follow re-renders a single file as
it changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			input.Colorize = common.shouldColor()
			opts, err := review.NewOptions(input)
			if err != nil {
				return err
			}
			strategy, err := charset.New(common.Encoding)
			if err != nil {
				return err
			}
			entries, err := common.resolveEntries(ctx)
			if err != nil {
				return err
			}
			return review.Run(ctx, entries, strategy, opts, out, in)
		},
	}

	common.Register(cmd)
	flags := cmd.Flags()
	flags.IntVar(&input.Head, "head", 0, "show the first N lines")
	flags.IntVar(&input.Tail, "tail", 0, "show the last N lines")
	flags.StringVar(&input.Lines, "lines", "", "show a line range, e.g. 10:20 or 10-20")
	flags.StringVar(&input.Around, "around", "", "show context around a line, e.g. 42:3")
	flags.BoolVar(&input.Follow, "follow", false, "keep re-rendering a single file as it changes")
	flags.BoolVar(&input.Step, "step", false, "pause for enter between files")
	flags.StringVar(&input.Search, "search", "", "highlight matches of this text")
	flags.BoolVar(&input.Regex, "search-regex", false, "treat --search as a regular expression")

	return cmd
}
