package commands

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/pipeline"
)

// NewCleanupCmd creates the cleanup command.
func NewCleanupCmd() *cobra.Command {
	common := &CommonFlags{}
	var root string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the .bak sidecar files earlier edits left behind",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			files, err := pipeline.FindBackupFiles(root, common.IncludeHidden)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintf(out, "no .bak files found under %s\n", root)
				return nil
			}

			fmt.Fprintf(out, "cleanup root: %s\n", root)
			fmt.Fprintf(out, "found %d backup file(s):\n", len(files))
			for _, file := range files {
				fmt.Fprintf(out, "  - %s\n", file)
			}
			if !common.Apply {
				fmt.Fprintln(out, "dry-run: rerun with --apply to delete these backups.")
				return nil
			}

			runner, err := common.newRunner("cleanup", false, in, out)
			if err != nil {
				return err
			}
			if err := runner.ProcessCleanup(files); err != nil {
				return err
			}
			runner.Stats.Print("cleanup", out)
			return nil
		},
	}

	common.Register(cmd)
	cmd.Flags().StringVar(&root, "root", ".", "directory to search for backups")

	return cmd
}
