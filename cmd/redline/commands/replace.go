package commands

import (
	"bufio"
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/textedit"
)

// NewReplaceCmd creates the replace command.
func NewReplaceCmd() *cobra.Command {
	common := &CommonFlags{}
	var (
		pattern     string
		replacement string
		withStdin   bool
		withHere    string
		regex       bool
		literal     bool
		diffOnly    bool
		count       int
		expect      int
		afterLine   int
	)

	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Replace a pattern across the selected files",
		Long: `Replace previews a literal or regex substitution across every
selected file, then asks per file before writing. Without --apply nothing
is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			replacementText, replacementSource := replacement, "literal"
			if !cmd.Flags().Changed("with") {
				var err error
				replacementText, replacementSource, err = resolveBody(nil, "", withStdin, withHere, "replacement", in, out)
				if err != nil {
					return err
				}
			}

			literalMode := literal || !regex
			effectivePattern := pattern
			if literalMode {
				effectivePattern = regexp.QuoteMeta(pattern)
			}
			options := textedit.ReplaceOptions{
				Pattern:       effectivePattern,
				Replacement:   replacementText,
				AllowCaptures: !literalMode,
				Count:         count,
				Expect:        expect,
				AfterLine:     afterLine,
			}

			runner, err := common.newRunner("replace", diffOnly, in, out)
			if err != nil {
				return err
			}
			entries, err := common.resolveEntries(ctx)
			if err != nil {
				return err
			}

			if diffOnly {
				fmt.Fprintln(out, "diff-only mode enabled: changes will not be written even with --apply.")
			}
			mode := "regex"
			if literalMode {
				mode = "literal"
			}
			runner.PrintBanner(common.Targets, common.Globs, common.Exclude, common.IncludeHidden, entries, []string{
				fmt.Sprintf("pattern=%s", pattern),
				fmt.Sprintf("replacement_source=%s", replacementSource),
				fmt.Sprintf("replacement_length=%d chars", len([]rune(replacementText))),
				fmt.Sprintf("mode=%s", mode),
				fmt.Sprintf("count=%d", count),
				fmt.Sprintf("expect=%d", expect),
				fmt.Sprintf("after_line=%d", afterLine),
				fmt.Sprintf("diff_only=%t", diffOnly),
			})

			err = runner.ProcessEntries(ctx, entries, func(_ context.Context, decoded charset.Decoded) (string, bool, error) {
				outcome, err := textedit.Replace(decoded.Text, options)
				if err != nil {
					return "", false, err
				}
				if !outcome.Changed {
					if outcome.Replacements == 0 {
						printSuggestions(out, outcome, pattern, afterLine)
					}
					return "", false, nil
				}
				return outcome.NewText, true, nil
			})
			if err != nil {
				return err
			}
			runner.Stats.Print("replace", out)
			return nil
		},
	}

	common.Register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&pattern, "pattern", "", "text or regex to search for")
	flags.StringVar(&replacement, "with", "", "replacement text")
	flags.BoolVar(&withStdin, "with-stdin", false, "read replacement text from stdin")
	flags.StringVar(&withHere, "with-here", "", "read replacement text as a heredoc ending at this tag")
	flags.BoolVar(&regex, "regex", false, "treat the pattern as a regular expression")
	flags.BoolVar(&literal, "literal", false, "force literal matching even with --regex")
	flags.BoolVar(&diffOnly, "diff-only", false, "show diffs but never write, even with --apply")
	flags.IntVar(&count, "count", 0, "replace at most N occurrences per file (0 = all)")
	flags.IntVar(&expect, "expect", 0, "fail unless exactly N replacements happen per file")
	flags.IntVar(&afterLine, "after-line", 0, "only replace matches strictly after this line")
	cobra.CheckErr(cmd.MarkFlagRequired("pattern"))

	return cmd
}
