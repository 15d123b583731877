// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline drives the shared edit loop: transform a file in
// memory, preview the diff, collect per-file approval, then write
// through the undo-patch/backup/atomic-rename sequence. Every command
// that touches files funnels through a Runner.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/redline/pkg/changelog"
	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/diffview"
	"github.com/walteh/redline/pkg/fileset"
)

// decision is one answer to the per-file approval prompt.
type decision int

const (
	decisionApply decision = iota
	decisionApplyAll
	decisionSkip
	decisionQuit
)

// Options carries the write-safety knobs shared by every command.
type Options struct {
	Command   string
	Apply     bool
	AutoApply bool
	DiffOnly  bool
	NoBackup  bool
	JSON      bool
	// UndoDir, when set, receives one reverse patch per written file.
	UndoDir string
	Diff    diffview.Config
}

// CommandStats tallies per-file outcomes for the end-of-command summary.
type CommandStats struct {
	Applied int
	Skipped int
	DryRun  int
	NoOp    int
}

// Print emits the one-line summary, or nothing when no file was visited.
func (s CommandStats) Print(label string, out io.Writer) {
	total := s.Applied + s.Skipped + s.DryRun + s.NoOp
	if total == 0 {
		return
	}
	pterm.Info.WithWriter(out).Printfln(
		"%s summary: applied=%d, skipped=%d, dry-run=%d, no-op=%d",
		label, s.Applied, s.Skipped, s.DryRun, s.NoOp)
}

// Runner owns the state of one command invocation. The zero applyAll
// starts false and latches true after an [a]ll answer.
type Runner struct {
	Strategy *charset.Strategy
	Opts     Options
	Log      *changelog.Log
	In       *bufio.Reader
	Out      io.Writer
	Stats    CommandStats

	applyAll bool
}

// New builds a runner; auto-apply pre-latches the approval loop only
// when changes will actually be written.
func New(strategy *charset.Strategy, opts Options, log *changelog.Log, in *bufio.Reader, out io.Writer) *Runner {
	return &Runner{
		Strategy: strategy,
		Opts:     opts,
		Log:      log,
		In:       in,
		Out:      out,
		applyAll: opts.AutoApply && opts.Apply && !opts.DiffOnly,
	}
}

func (r *Runner) applyMode() bool {
	return r.Opts.Apply && !r.Opts.DiffOnly
}

func (r *Runner) differ() diffview.LineDiffer {
	if r.Opts.Diff.Differ != nil {
		return r.Opts.Diff.Differ
	}
	return diffview.MyersDiffer{}
}

// Transform rewrites decoded text. Returning changed=false means the
// file needs no edit.
type Transform func(ctx context.Context, decoded charset.Decoded) (string, bool, error)

type transformResult struct {
	decoded charset.Decoded
	newText string
}

// ProcessEntries runs the transform over every entry with preview and
// approval. A quit answer stops the loop without error.
func (r *Runner) ProcessEntries(ctx context.Context, entries []fileset.Entry, transform Transform) error {
	for _, entry := range entries {
		result, err := r.runTransform(ctx, entry, transform)
		if err != nil {
			return err
		}
		if result == nil {
			r.Stats.NoOp++
			r.logNoOp(ctx, entry.Path, "no changes")
			continue
		}

		summary := diffview.Summarize(result.decoded.Text, result.newText, r.differ())
		spans := toLogSpans(diffview.Spans(r.differ().DiffLines(result.decoded.Text, result.newText)))

		fmt.Fprintf(r.Out, "--- preview: %s ---\n", entry.Path)
		rendered := diffview.Render(result.decoded.Text, result.newText, r.Opts.Diff)
		if err := diffview.Show(rendered, r.Opts.Diff, r.Out, r.In); err != nil {
			return err
		}

		if !r.applyMode() {
			r.Stats.DryRun++
			if r.Opts.DiffOnly {
				fmt.Fprintln(r.Out, "diff-only: rerun without --diff-only to write this change.")
			} else {
				fmt.Fprintln(r.Out, "dry-run: rerun with --apply to write this change.")
			}
			r.logChange(ctx, entry.Path, "dry-run", summary, spans, status{dryRun: true, diffOnly: r.Opts.DiffOnly})
			continue
		}

		choice, err := r.approve(entry.Path)
		if err != nil {
			return err
		}
		switch choice {
		case decisionApply, decisionApplyAll:
			if err := r.applyResult(ctx, entry.Path, result, nil); err != nil {
				return err
			}
			r.Stats.Applied++
			r.logChange(ctx, entry.Path, "applied", summary, spans, status{applied: true})
		case decisionSkip:
			fmt.Fprintf(r.Out, "skipped %s\n", entry.Path)
			r.Stats.Skipped++
			r.logChange(ctx, entry.Path, "skipped", summary, spans, status{})
		case decisionQuit:
			fmt.Fprintln(r.Out, "stopping after user request.")
			r.Stats.Skipped++
			return nil
		}
	}
	return nil
}

// runTransform reads and decodes the entry, then applies the transform.
// A nil result means the file was skipped or unchanged; the reason has
// already been printed.
func (r *Runner) runTransform(ctx context.Context, entry fileset.Entry, transform Transform) (*transformResult, error) {
	if entry.Meta.ProbablyBinary {
		fmt.Fprintf(r.Out, "skipping %s (suspected binary file)\n", entry.Path)
		return nil, nil
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", entry.Path, err)
	}
	decoded := r.Strategy.Decode(data)
	if decoded.HadErrors {
		pterm.Warning.WithWriter(r.Out).Printfln("decoding errors encountered for %s; continuing", entry.Path)
	}

	newText, changed, err := transform(ctx, decoded)
	if err != nil {
		return nil, err
	}
	if !changed || newText == decoded.Text {
		fmt.Fprintf(r.Out, "no changes for %s\n", entry.Path)
		return nil, nil
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", entry.Path).
		Str("encoding", decoded.Decision.Name).
		Msg("transform produced a change")
	return &transformResult{decoded: decoded, newText: newText}, nil
}

// approve asks for a per-file decision unless apply-all has latched.
func (r *Runner) approve(path string) (decision, error) {
	if r.applyAll {
		return decisionApply, nil
	}
	for {
		fmt.Fprintf(r.Out, "Apply change to %s? [y]es/[n]o/[a]ll/[q]uit: ", path)
		line, err := r.In.ReadString('\n')
		if err != nil && line == "" {
			// Treat EOF on stdin as a quit rather than an apply.
			return decisionQuit, nil
		}
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "y", "yes", "":
			return decisionApply, nil
		case "n", "no":
			return decisionSkip, nil
		case "a", "all":
			r.applyAll = true
			return decisionApplyAll, nil
		case "q", "quit":
			return decisionQuit, nil
		default:
			fmt.Fprintln(r.Out, "Please enter y, n, a, or q.")
		}
	}
}

func (r *Runner) logNoOp(ctx context.Context, path, summary string) {
	if r.applyMode() {
		r.logChange(ctx, path, "no-op", summary, nil, status{})
	} else {
		r.emitJSONEvent(path, "no-op", summary, nil, status{dryRun: true})
	}
}

func toLogSpans(spans []diffview.Span) []changelog.Span {
	out := make([]changelog.Span, 0, len(spans))
	for _, span := range spans {
		kind := "modified"
		if span.Kind == diffview.SpanAdded {
			kind = "added"
		}
		out = append(out, changelog.Span{Kind: kind, Start: span.Start, End: span.End})
	}
	return out
}
