package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/batch"
	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/pipeline"
	"github.com/walteh/redline/pkg/textedit"
)

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	common := &CommonFlags{}
	var plan string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a multi-step edit plan from a file",
		Long: `Batch loads a YAML, JSON, or HCL plan and runs its replace and
normalize steps in order. Each step may override the shared settings;
anything it leaves out inherits the command line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			loaded, err := batch.Load(ctx, plan)
			if err != nil {
				return err
			}

			for i, step := range loaded.Steps {
				fmt.Fprintf(out, "\n=== Batch Step %d/%d: %s ===\n", i+1, len(loaded.Steps), step.Kind())
				switch {
				case step.Replace != nil:
					err = runReplaceStep(ctx, mergeCommon(*common, step.Replace.Common), *step.Replace, in, out)
				case step.Normalize != nil:
					err = runNormalizeStep(ctx, mergeCommon(*common, step.Normalize.Common), *step.Normalize, in, out)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	common.Register(cmd)
	cmd.Flags().StringVar(&plan, "plan", "", "plan file (yaml, json, or hcl)")
	cobra.CheckErr(cmd.MarkFlagRequired("plan"))

	return cmd
}

// mergeCommon layers a step's overrides over the command-line settings.
func mergeCommon(base CommonFlags, overrides batch.Common) CommonFlags {
	merged := base
	if overrides.Targets != nil {
		merged.Targets = overrides.Targets
	}
	if overrides.Globs != nil {
		merged.Globs = overrides.Globs
	}
	if overrides.Exclude != nil {
		merged.Exclude = overrides.Exclude
	}
	if overrides.Encoding != nil {
		merged.Encoding = *overrides.Encoding
	}
	if overrides.Apply != nil {
		merged.Apply = *overrides.Apply
	}
	if overrides.AutoApply != nil {
		merged.AutoApply = *overrides.AutoApply
	}
	if overrides.NoBackup != nil {
		merged.NoBackup = *overrides.NoBackup
	}
	if overrides.Context != nil {
		merged.Context = *overrides.Context
	}
	if overrides.Pager != nil {
		merged.Pager = *overrides.Pager
	}
	if overrides.JSON != nil {
		merged.JSON = *overrides.JSON
	}
	if overrides.IncludeHidden != nil {
		merged.IncludeHidden = *overrides.IncludeHidden
	}
	if overrides.UndoLog != nil {
		merged.UndoLog = *overrides.UndoLog
	}
	return merged
}

func runReplaceStep(ctx context.Context, common CommonFlags, step batch.ReplaceStep, in *bufio.Reader, out io.Writer) error {
	pattern := step.Pattern
	if !step.Regex {
		pattern = regexp.QuoteMeta(step.Pattern)
	}
	options := textedit.ReplaceOptions{
		Pattern:       pattern,
		Replacement:   step.Replacement,
		AllowCaptures: step.Regex,
		Count:         step.Count,
		Expect:        step.Expect,
		AfterLine:     step.AfterLine,
	}

	runner, err := common.newRunner("replace", step.DiffOnly, in, out)
	if err != nil {
		return err
	}
	entries, err := common.resolveEntries(ctx)
	if err != nil {
		return err
	}

	if step.DiffOnly {
		fmt.Fprintln(out, "diff-only mode enabled: changes will not be written even with --apply.")
	}
	mode := "literal"
	if step.Regex {
		mode = "regex"
	}
	runner.PrintBanner(common.Targets, common.Globs, common.Exclude, common.IncludeHidden, entries, []string{
		fmt.Sprintf("pattern=%s", step.Pattern),
		fmt.Sprintf("mode=%s", mode),
		fmt.Sprintf("count=%d", step.Count),
		fmt.Sprintf("expect=%d", step.Expect),
		fmt.Sprintf("after_line=%d", step.AfterLine),
		fmt.Sprintf("diff_only=%t", step.DiffOnly),
	})

	err = runner.ProcessEntries(ctx, entries, func(_ context.Context, decoded charset.Decoded) (string, bool, error) {
		outcome, err := textedit.Replace(decoded.Text, options)
		if err != nil {
			return "", false, err
		}
		if !outcome.Changed {
			if outcome.Replacements == 0 {
				printSuggestions(out, outcome, step.Pattern, step.AfterLine)
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
}

func runNormalizeStep(ctx context.Context, common CommonFlags, step batch.NormalizeStep, in *bufio.Reader, out io.Writer) error {
	format, err := pipeline.ParseReportFormat(step.ReportFormat)
	if err != nil {
		return err
	}

	scanSet := func(flag *bool) bool { return flag != nil && *flag }
	anyScan := scanSet(step.ScanZeroWidth) || scanSet(step.ScanControl) ||
		scanSet(step.ScanTrailingSpace) || scanSet(step.ScanFinalNewline)
	edit := textedit.NormalizeOptions{
		StripZeroWidth:      step.StripZeroWidth,
		StripControl:        step.StripControl,
		TrimTrailingSpace:   step.TrimTrailingSpace,
		EnsureEOL:           step.EnsureEOL,
		DetectZeroWidth:     !anyScan || scanSet(step.ScanZeroWidth),
		DetectControl:       !anyScan || scanSet(step.ScanControl),
		DetectTrailingSpace: !anyScan || scanSet(step.ScanTrailingSpace),
		DetectFinalNewline:  !anyScan || scanSet(step.ScanFinalNewline),
	}
	convert := ""
	if step.ConvertEncoding != nil {
		convert = *step.ConvertEncoding
	}
	run := pipeline.NormalizeRun{
		Edit:            edit,
		ConvertEncoding: convert,
		DetectEncoding:  !anyScan,
		Format:          format,
	}

	runner, err := common.newRunner("normalize", false, in, out)
	if err != nil {
		return err
	}
	entries, err := common.resolveEntries(ctx)
	if err != nil {
		return err
	}

	runner.PrintBanner(common.Targets, common.Globs, common.Exclude, common.IncludeHidden, entries, []string{
		fmt.Sprintf("strip_zero_width=%t", step.StripZeroWidth),
		fmt.Sprintf("strip_control=%t", step.StripControl),
		fmt.Sprintf("trim_trailing_space=%t", step.TrimTrailingSpace),
		fmt.Sprintf("ensure_eol=%t", step.EnsureEOL),
		fmt.Sprintf("report_format=%s", format),
	})

	if err := runner.ProcessNormalize(ctx, entries, run); err != nil {
		return err
	}
	runner.Stats.Print("normalize", out)
	return nil
}
