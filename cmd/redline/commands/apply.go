package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/pipeline"
)

// NewApplyCmd creates the apply command.
func NewApplyCmd() *cobra.Command {
	common := &CommonFlags{}
	var (
		patchFiles []string
		root       string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply unified-diff patch files",
		Long: `Apply reads one or more unified-diff patch files and walks their
hunks file by file. Modify, create, delete, and rename segments are all
supported; each target gets the usual preview-and-approve flow.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			runner, err := common.newRunner("apply", false, in, out)
			if err != nil {
				return err
			}
			resolvedRoot, err := pipeline.ResolvePatchRoot(root)
			if err != nil {
				return err
			}
			items, err := runner.CollectPatchWork(patchFiles, resolvedRoot)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "no applicable patch hunks to review.")
				return nil
			}

			entries := pipeline.SummarizeWork(items)
			runner.PrintBanner(common.Targets, common.Globs, common.Exclude, common.IncludeHidden, entries, []string{
				fmt.Sprintf("patch files: %s", strings.Join(patchFiles, ", ")),
				fmt.Sprintf("root: %s", resolvedRoot),
			})

			if err := runner.ProcessPatches(ctx, items); err != nil {
				return err
			}
			runner.Stats.Print("apply", out)
			return nil
		},
	}

	common.Register(cmd)
	flags := cmd.Flags()
	flags.StringArrayVar(&patchFiles, "patch", nil, "unified-diff patch file (repeatable)")
	flags.StringVar(&root, "root", "", "directory patch paths are resolved against")
	cobra.CheckErr(cmd.MarkFlagRequired("patch"))

	return cmd
}
