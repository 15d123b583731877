package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/textedit"
)

// NewBlockCmd creates the block command.
func NewBlockCmd() *cobra.Command {
	common := &CommonFlags{}
	var (
		startMarker string
		endMarker   string
		mode        string
		body        []string
		bodyFile    string
		bodyHere    string
		withStdin   bool
	)

	cmd := &cobra.Command{
		Use:   "block",
		Short: "Replace or fill the region between two markers",
		Long: `Block edits the text between a start marker and an end marker.
Replace mode swaps the region's body; insert mode only fills a region
that is currently empty. The body is re-indented to match the marker
line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			blockMode, err := parseBlockMode(mode)
			if err != nil {
				return err
			}
			bodyText, bodySource, err := resolveBody(body, bodyFile, withStdin, bodyHere, "block body", in, out)
			if err != nil {
				return err
			}
			options := textedit.BlockOptions{
				StartMarker: startMarker,
				EndMarker:   endMarker,
				Mode:        blockMode,
				Body:        bodyText,
			}

			runner, err := common.newRunner("block", false, in, out)
			if err != nil {
				return err
			}
			entries, err := common.resolveEntries(ctx)
			if err != nil {
				return err
			}

			runner.PrintBanner(common.Targets, common.Globs, common.Exclude, common.IncludeHidden, entries, []string{
				fmt.Sprintf("start_marker=%s", startMarker),
				fmt.Sprintf("end_marker=%s", endMarker),
				fmt.Sprintf("mode=%s", blockMode),
				fmt.Sprintf("body_source=%s", bodySource),
				fmt.Sprintf("body_length=%d chars", len([]rune(bodyText))),
			})

			err = runner.ProcessEntries(ctx, entries, func(_ context.Context, decoded charset.Decoded) (string, bool, error) {
				outcome, err := textedit.Block(decoded.Text, options)
				if err != nil {
					return "", false, err
				}
				return outcome.NewText, outcome.Changed, nil
			})
			if err != nil {
				return err
			}
			runner.Stats.Print("block", out)
			return nil
		},
	}

	common.Register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&startMarker, "start-marker", "", "text that opens the block")
	flags.StringVar(&endMarker, "end-marker", "", "text that closes the block")
	flags.StringVar(&mode, "mode", "replace", "block mode: replace or insert")
	flags.StringArrayVar(&body, "body", nil, "body line (repeatable)")
	flags.StringVar(&bodyFile, "body-file", "", "read the body from a file")
	flags.StringVar(&bodyHere, "body-here", "", "read the body as a heredoc ending at this tag")
	flags.BoolVar(&withStdin, "with-stdin", false, "read the body from stdin")
	cobra.CheckErr(cmd.MarkFlagRequired("start-marker"))
	cobra.CheckErr(cmd.MarkFlagRequired("end-marker"))

	return cmd
}

func parseBlockMode(value string) (textedit.BlockMode, error) {
	switch strings.ToLower(value) {
	case "", "replace":
		return textedit.BlockReplace, nil
	case "insert":
		return textedit.BlockInsert, nil
	default:
		return textedit.BlockReplace, errors.Errorf("unsupported block mode %q (expected replace or insert)", value)
	}
}
