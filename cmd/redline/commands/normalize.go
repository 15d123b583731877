package commands

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walteh/redline/pkg/pipeline"
	"github.com/walteh/redline/pkg/textedit"
)

// NewNormalizeCmd creates the normalize command.
func NewNormalizeCmd() *cobra.Command {
	common := &CommonFlags{}
	var (
		convertEncoding   string
		stripZeroWidth    bool
		stripControl      bool
		trimTrailingSpace bool
		ensureEOL         bool
		reportFormat      string
		scanEncoding      bool
		scanZeroWidth     bool
		scanControl       bool
		scanTrailingSpace bool
		scanFinalNewline  bool
	)

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Scan and fix invisible-character and whitespace hygiene",
		Long: `Normalize reports zero-width characters, stray control characters,
trailing whitespace, missing final newlines, and the detected encoding.
The strip/trim/ensure flags turn individual findings into fixes, and
--convert-encoding rewrites the file bytes in a different charset.
Without any --scan-* flag every detector runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			format, err := pipeline.ParseReportFormat(reportFormat)
			if err != nil {
				return err
			}

			// Any explicit scan flag narrows detection to just the flags
			// given; otherwise everything is scanned.
			anyScan := scanEncoding || scanZeroWidth || scanControl || scanTrailingSpace || scanFinalNewline
			edit := textedit.NormalizeOptions{
				StripZeroWidth:      stripZeroWidth,
				StripControl:        stripControl,
				TrimTrailingSpace:   trimTrailingSpace,
				EnsureEOL:           ensureEOL,
				DetectZeroWidth:     !anyScan || scanZeroWidth,
				DetectControl:       !anyScan || scanControl,
				DetectTrailingSpace: !anyScan || scanTrailingSpace,
				DetectFinalNewline:  !anyScan || scanFinalNewline,
			}
			run := pipeline.NormalizeRun{
				Edit:            edit,
				ConvertEncoding: convertEncoding,
				DetectEncoding:  !anyScan || scanEncoding,
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

			details := []string{
				fmt.Sprintf("strip_zero_width=%t", stripZeroWidth),
				fmt.Sprintf("strip_control=%t", stripControl),
				fmt.Sprintf("trim_trailing_space=%t", trimTrailingSpace),
				fmt.Sprintf("ensure_eol=%t", ensureEOL),
				fmt.Sprintf("report_format=%s", format),
			}
			if convertEncoding != "" {
				details = append(details, fmt.Sprintf("convert_encoding=%s", convertEncoding))
			}
			runner.PrintBanner(common.Targets, common.Globs, common.Exclude, common.IncludeHidden, entries, details)

			if err := runner.ProcessNormalize(ctx, entries, run); err != nil {
				return err
			}
			runner.Stats.Print("normalize", out)
			return nil
		},
	}

	common.Register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&convertEncoding, "convert-encoding", "", "rewrite the file bytes using this charset")
	flags.BoolVar(&stripZeroWidth, "strip-zero-width", false, "remove zero-width characters")
	flags.BoolVar(&stripControl, "strip-control", false, "remove stray control characters")
	flags.BoolVar(&trimTrailingSpace, "trim-trailing-space", false, "trim trailing spaces and tabs per line")
	flags.BoolVar(&ensureEOL, "ensure-eol", false, "ensure the file ends with a newline")
	flags.StringVar(&reportFormat, "report-format", "table", "report format: table or json")
	flags.BoolVar(&scanEncoding, "scan-encoding", false, "report only the detected encoding")
	flags.BoolVar(&scanZeroWidth, "scan-zero-width", false, "scan for zero-width characters")
	flags.BoolVar(&scanControl, "scan-control", false, "scan for stray control characters")
	flags.BoolVar(&scanTrailingSpace, "scan-trailing-space", false, "scan for trailing whitespace")
	flags.BoolVar(&scanFinalNewline, "scan-final-newline", false, "scan for a missing final newline")

	return cmd
}
