package commands

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/textedit"
)

// NewRenameCmd creates the rename command.
func NewRenameCmd() *cobra.Command {
	common := &CommonFlags{}
	var (
		from         string
		to           string
		wordBoundary bool
		caseAware    bool
	)

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a literal token across the selected files",
		Long: `Rename swaps one literal token for another. With --word-boundary the
token must stand alone; with --case-aware each occurrence keeps its own
casing (FOO stays upper, Foo stays capitalized).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			options := textedit.RenameOptions{
				From:         from,
				To:           to,
				WordBoundary: wordBoundary,
				CaseAware:    caseAware,
			}

			runner, err := common.newRunner("rename", false, in, out)
			if err != nil {
				return err
			}
			entries, err := common.resolveEntries(ctx)
			if err != nil {
				return err
			}

			runner.PrintBanner(common.Targets, common.Globs, common.Exclude, common.IncludeHidden, entries, []string{
				fmt.Sprintf("from=%s", from),
				fmt.Sprintf("to=%s", to),
				fmt.Sprintf("word_boundary=%t", wordBoundary),
				fmt.Sprintf("case_aware=%t", caseAware),
			})

			err = runner.ProcessEntries(ctx, entries, func(_ context.Context, decoded charset.Decoded) (string, bool, error) {
				outcome, err := textedit.Rename(decoded.Text, options)
				if err != nil {
					return "", false, err
				}
				if !outcome.Changed {
					if outcome.Replacements == 0 {
						printSuggestions(out, outcome, from, 0)
					}
					return "", false, nil
				}
				return outcome.NewText, true, nil
			})
			if err != nil {
				return err
			}
			runner.Stats.Print("rename", out)
			return nil
		},
	}

	common.Register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&from, "from", "", "token to rename")
	flags.StringVar(&to, "to", "", "new name for the token")
	flags.BoolVar(&wordBoundary, "word-boundary", false, "only match the token on word boundaries")
	flags.BoolVar(&caseAware, "case-aware", false, "match any casing and mirror it in the replacement")
	cobra.CheckErr(cmd.MarkFlagRequired("from"))
	cobra.CheckErr(cmd.MarkFlagRequired("to"))

	return cmd
}
