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

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/walteh/redline/pkg/changelog"
	"github.com/walteh/redline/pkg/fileset"
)

// status flags accompany each logged action in JSON output.
type status struct {
	applied   bool
	dryRun    bool
	diffOnly  bool
	patchKind string
}

type jsonEvent struct {
	Command     string           `json:"command"`
	Path        string           `json:"path"`
	Action      string           `json:"action"`
	LineSummary string           `json:"line_summary"`
	Spans       []changelog.Span `json:"spans"`
	Applied     bool             `json:"applied"`
	DryRun      bool             `json:"dry_run"`
	DiffOnly    bool             `json:"diff_only,omitempty"`
	PatchKind   string           `json:"patch_kind,omitempty"`
}

// logChange records the action in the change log and, in JSON mode,
// mirrors it to stdout as one event per line. Change-log failures are
// logged but never abort the edit that already happened.
func (r *Runner) logChange(ctx context.Context, path, action, summary string, spans []changelog.Span, st status) {
	if r.Log != nil {
		err := r.Log.Record(ctx, changelog.Record{
			Command:     r.Opts.Command,
			Path:        path,
			Action:      action,
			LineSummary: summary,
			Spans:       spans,
		})
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("recording change log entry failed")
		}
	}
	r.emitJSONEvent(path, action, summary, spans, st)
}

func (r *Runner) emitJSONEvent(path, action, summary string, spans []changelog.Span, st status) {
	if !r.Opts.JSON {
		return
	}
	if spans == nil {
		spans = []changelog.Span{}
	}
	event := jsonEvent{
		Command:     r.Opts.Command,
		Path:        path,
		Action:      action,
		LineSummary: summary,
		Spans:       spans,
		Applied:     st.applied,
		DryRun:      st.dryRun,
		DiffOnly:    st.diffOnly,
		PatchKind:   st.patchKind,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintln(r.Out, string(data))
}

// PrintBanner echoes the effective settings and resolved files before
// the edit loop starts, so a dry run documents exactly what it covered.
func (r *Runner) PrintBanner(targets, globs, excludes []string, includeHidden bool, entries []fileset.Entry, details []string) {
	out := r.Out
	fmt.Fprintf(out, "command: %s\n", r.Opts.Command)
	mode := "dry-run"
	if r.Opts.Apply {
		mode = "apply"
	}
	if r.Opts.AutoApply {
		mode += " (auto-approve)"
	}
	fmt.Fprintf(out, "mode: %s\n", mode)

	if len(targets) > 0 {
		fmt.Fprintln(out, "targets:")
		for _, target := range targets {
			fmt.Fprintf(out, "  - %s\n", target)
		}
	} else {
		fmt.Fprintln(out, "targets: (none)")
	}
	fmt.Fprintf(out, "encoding strategy: %s\n", r.Strategy.Describe())
	fmt.Fprintf(out, "context lines: %d\n", r.Opts.Diff.Context)
	fmt.Fprintf(out, "pager: %s\n", r.Opts.Diff.Pager)
	fmt.Fprintf(out, "json output: %t\n", r.Opts.JSON)
	fmt.Fprintf(out, "include hidden: %t\n", includeHidden)
	if len(excludes) > 0 {
		fmt.Fprintf(out, "exclude globs: %v\n", excludes)
	}
	if r.Opts.NoBackup {
		fmt.Fprintln(out, "backups disabled")
	}
	if r.Opts.UndoDir != "" {
		fmt.Fprintf(out, "undo log dir: %s\n", r.Opts.UndoDir)
	}
	if len(globs) > 0 {
		fmt.Fprintln(out, "globs:")
		for _, glob := range globs {
			fmt.Fprintf(out, "  - %s\n", glob)
		}
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "resolved files: (none)")
	} else {
		fmt.Fprintf(out, "resolved files (%d):\n", len(entries))
		for i, entry := range entries {
			if i == 10 {
				fmt.Fprintln(out, "  ...")
				break
			}
			binaryHint := ""
			if entry.Meta.ProbablyBinary {
				binaryHint = ", binary? yes"
			}
			fmt.Fprintf(out, "  - %s (%d bytes%s)\n", entry.Path, entry.Meta.Size, binaryHint)
		}
	}
	for _, detail := range details {
		fmt.Fprintln(out, detail)
	}
	fmt.Fprintln(out, "---")
}
