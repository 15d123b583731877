// Package commands wires the redline subcommands: shared flags, body
// collection, and construction of the pipeline runner each command
// drives.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/redline/pkg/changelog"
	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/diffview"
	"github.com/walteh/redline/pkg/fileset"
	"github.com/walteh/redline/pkg/pipeline"
	"github.com/walteh/redline/pkg/textedit"
)

// ErrBodyRequired is returned when no body source flag was given.
var ErrBodyRequired = errors.Base("body text required")

// CommonFlags are the write-safety and selection flags shared by every
// editing command.
type CommonFlags struct {
	Globs         []string
	Targets       []string
	Encoding      string
	Apply         bool
	AutoApply     bool
	NoBackup      bool
	Context       int
	Pager         string
	Color         string
	JSON          bool
	IncludeHidden bool
	Exclude       []string
	UndoLog       string
}

// Register adds the shared flags to a command.
func (f *CommonFlags) Register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVar(&f.Globs, "glob", nil, "glob pattern selecting files (repeatable)")
	flags.StringArrayVar(&f.Targets, "target", nil, "file or directory to edit (repeatable)")
	flags.StringVar(&f.Encoding, "encoding", "", "force a charset instead of auto-detecting")
	flags.BoolVar(&f.Apply, "apply", false, "write changes instead of previewing")
	flags.BoolVar(&f.AutoApply, "yes", false, "apply without prompting per file")
	flags.BoolVar(&f.NoBackup, "no-backup", false, "skip .bak sidecar files")
	flags.IntVar(&f.Context, "context", 3, "diff context lines")
	flags.StringVar(&f.Pager, "pager", "auto", "pager mode: auto, always, never")
	flags.StringVar(&f.Color, "color", "auto", "color mode: auto, always, never")
	flags.BoolVar(&f.JSON, "json", false, "emit one JSON event per file action")
	flags.BoolVar(&f.IncludeHidden, "include-hidden", false, "include hidden files and directories")
	flags.StringArrayVar(&f.Exclude, "exclude", nil, "glob pattern to exclude (repeatable)")
	flags.StringVar(&f.UndoLog, "undo-log", "", "directory to write reverse undo patches into")
}

func (f *CommonFlags) shouldColor() bool {
	switch strings.ToLower(f.Color) {
	case "always":
		return true
	case "never":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd())
	}
}

// allowInteractivePager requires a real terminal on both ends and no
// mode that expects uninterrupted output.
func (f *CommonFlags) allowInteractivePager() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) &&
		isatty.IsTerminal(os.Stdout.Fd()) &&
		!f.AutoApply && !f.JSON
}

func parsePagerMode(value string) (diffview.PagerMode, error) {
	switch strings.ToLower(value) {
	case "", "auto":
		return diffview.PagerAuto, nil
	case "always":
		return diffview.PagerAlways, nil
	case "never":
		return diffview.PagerNever, nil
	default:
		return diffview.PagerAuto, errors.Errorf("unsupported pager mode %q (expected auto, always, or never)", value)
	}
}

func (f *CommonFlags) diffConfig() (diffview.Config, error) {
	pager, err := parsePagerMode(f.Pager)
	if err != nil {
		return diffview.Config{}, err
	}
	return diffview.Config{
		Context:     f.Context,
		Colorize:    f.shouldColor(),
		Pager:       pager,
		Interactive: f.allowInteractivePager(),
		Differ:      diffview.MyersDiffer{},
	}, nil
}

// newRunner builds the pipeline runner for one command invocation.
func (f *CommonFlags) newRunner(command string, diffOnly bool, in *bufio.Reader, out io.Writer) (*pipeline.Runner, error) {
	strategy, err := charset.New(f.Encoding)
	if err != nil {
		return nil, err
	}
	diffCfg, err := f.diffConfig()
	if err != nil {
		return nil, err
	}
	opts := pipeline.Options{
		Command:   command,
		Apply:     f.Apply,
		AutoApply: f.AutoApply,
		DiffOnly:  diffOnly,
		NoBackup:  f.NoBackup,
		JSON:      f.JSON,
		UndoDir:   f.UndoLog,
		Diff:      diffCfg,
	}
	return pipeline.New(strategy, opts, changelog.New(""), in, out), nil
}

func (f *CommonFlags) resolveEntries(ctx context.Context) ([]fileset.Entry, error) {
	return fileset.Resolve(ctx, fileset.Options{
		Targets:       f.Targets,
		Globs:         f.Globs,
		IncludeHidden: f.IncludeHidden,
		Excludes:      f.Exclude,
	})
}

// resolveBody collects body text from the first available source:
// literal lines, a file, a heredoc, or stdin.
func resolveBody(lines []string, bodyFile string, withStdin bool, hereTag, description string, in *bufio.Reader, out io.Writer) (string, string, error) {
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), "literal", nil
	}
	if bodyFile != "" {
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return "", "", errors.Errorf("reading %s from %s: %w", description, bodyFile, err)
		}
		return string(data), "file", nil
	}
	if hereTag != "" {
		text, err := readHeredoc(in, hereTag, description, out)
		if err != nil {
			return "", "", err
		}
		return text, "heredoc", nil
	}
	if withStdin {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", "", errors.Errorf("reading %s from stdin: %w", description, err)
		}
		return string(data), "stdin", nil
	}
	return "", "", errors.Errorf("%w: use --body, --body-file, --body-here, or --with-stdin (%s)", ErrBodyRequired, description)
}

// readHeredoc collects lines until one containing only the terminator
// tag.
func readHeredoc(in *bufio.Reader, tag, description string, out io.Writer) (string, error) {
	if strings.TrimSpace(tag) == "" {
		return "", errors.Errorf("heredoc terminator cannot be empty")
	}
	fmt.Fprintf(out, "Enter %s; finish with a line containing only %s.\n", description, tag)
	var buf strings.Builder
	for {
		line, err := in.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == tag {
			return buf.String(), nil
		}
		buf.WriteString(line)
		if err != nil {
			return "", errors.Errorf("stdin closed before heredoc terminator %q", tag)
		}
	}
}

// printSuggestions reports near-miss candidates after a pattern found
// nothing to change.
func printSuggestions(out io.Writer, outcome *textedit.Outcome, pattern string, afterLine int) {
	if afterLine > 0 && outcome.FilteredByLine > 0 {
		fmt.Fprintf(out, "no matches after line %d; %d occurrence(s) were at or before that line\n",
			afterLine, outcome.FilteredByLine)
		return
	}
	if len(outcome.Suggestions) == 0 {
		fmt.Fprintf(out, "no similar text found for '%s'\n", pattern)
		return
	}
	fmt.Fprintln(out, "no exact matches; closest candidates:")
	for _, suggestion := range outcome.Suggestions {
		fmt.Fprintf(out, "  - line %d column %d (score %d): %s\n",
			suggestion.Line, suggestion.Column, suggestion.Score, strings.TrimSpace(suggestion.LineText))
		fmt.Fprintf(out, "    snippet: %s\n", suggestion.Snippet)
		patternView, marker := suggestion.Hint(pattern)
		fmt.Fprintf(out, "    pattern: %s\n", patternView)
		fmt.Fprintf(out, "             %s\n", marker)
	}
}
