package commands

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/pipeline"
)

// NewWriteCmd creates the write command.
func NewWriteCmd() *cobra.Command {
	common := &CommonFlags{}
	var (
		body           []string
		bodyFile       string
		bodyHere       string
		withStdin      bool
		allowOverwrite bool
		lineEnding     string
	)

	cmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Write a whole file through the safety pipeline",
		Long: `Write replaces (or creates) one file with the given body, going
through the same diff preview, approval, backup, and undo machinery the
editing commands use. Existing files are refused unless
--allow-overwrite is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			target := args[0]

			ending, err := pipeline.ParseLineEnding(lineEnding)
			if err != nil {
				return err
			}
			bodyText, bodySource, err := resolveBody(body, bodyFile, withStdin, bodyHere, "file body", in, out)
			if err != nil {
				return err
			}

			runner, err := common.newRunner("write", false, in, out)
			if err != nil {
				return err
			}

			runner.PrintBanner([]string{target}, nil, nil, false, nil, []string{
				fmt.Sprintf("body_source=%s", bodySource),
				fmt.Sprintf("body_length=%d chars", len([]rune(bodyText))),
				fmt.Sprintf("line_ending=%s", ending),
				fmt.Sprintf("allow_overwrite=%t", allowOverwrite),
			})

			if err := runner.ProcessWrite(ctx, target, bodyText, ending, allowOverwrite); err != nil {
				return err
			}
			runner.Stats.Print("write", out)
			return nil
		},
	}

	common.Register(cmd)
	flags := cmd.Flags()
	flags.StringArrayVar(&body, "body", nil, "body line (repeatable)")
	flags.StringVar(&bodyFile, "body-file", "", "read the body from a file")
	flags.StringVar(&bodyHere, "body-here", "", "read the body as a heredoc ending at this tag")
	flags.BoolVar(&withStdin, "with-stdin", false, "read the body from stdin")
	flags.BoolVar(&allowOverwrite, "allow-overwrite", false, "allow replacing a file that already exists")
	flags.StringVar(&lineEnding, "line-ending", "auto", "line ending: auto, lf, crlf, or cr")

	return cmd
}
