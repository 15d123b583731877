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
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/redline/pkg/changelog"
	"github.com/walteh/redline/pkg/diffview"
	"github.com/walteh/redline/pkg/fileset"
	"github.com/walteh/redline/pkg/patch"
)

// ErrTargetExists guards create and rename patches against clobbering a
// file that is already on disk.
var ErrTargetExists = errors.Base("target file already exists")

// PatchWork is one file patch with its paths resolved against the root.
// An empty path marks the absent side of a create or delete.
type PatchWork struct {
	Patch   patch.FilePatch
	OldPath string
	NewPath string
}

// CollectPatchWork loads every patch file and resolves the per-segment
// paths against root.
func (r *Runner) CollectPatchWork(patchFiles []string, root string) ([]PatchWork, error) {
	var items []PatchWork
	for _, patchPath := range patchFiles {
		patches, err := patch.Load(patchPath)
		if err != nil {
			return nil, err
		}
		if len(patches) == 0 {
			pterm.Warning.WithWriter(r.Out).Printfln("%s contained no patch hunks", patchPath)
		}
		for _, fp := range patches {
			items = append(items, PatchWork{
				Patch:   fp,
				OldPath: resolvePatchTarget(root, fp.OldPath),
				NewPath: resolvePatchTarget(root, fp.NewPath),
			})
		}
	}
	return items, nil
}

// SummarizeWork lists the distinct files the work items touch, for the
// command banner.
func SummarizeWork(items []PatchWork) []fileset.Entry {
	seen := map[string]fileset.Entry{}
	for _, work := range items {
		path := work.NewPath
		if path == "" {
			path = work.OldPath
		}
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		seen[path] = fileset.Entry{Path: path, Meta: fileset.Metadata{Size: size}}
	}

	entries := make([]fileset.Entry, 0, len(seen))
	for _, entry := range seen {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// ResolvePatchRoot resolves the patch root flag; empty means the
// working directory.
func ResolvePatchRoot(root string) (string, error) {
	if root == "" {
		dir, err := os.Getwd()
		if err != nil {
			return "", errors.Errorf("determining working directory: %w", err)
		}
		return dir, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Errorf("resolving root %s: %w", root, err)
	}
	return abs, nil
}

func resolvePatchTarget(root, relative string) string {
	if relative == "" {
		return ""
	}
	if filepath.IsAbs(relative) {
		return relative
	}
	return filepath.Join(root, relative)
}

// ProcessPatches reviews and applies each work item in order. A quit
// answer stops the loop without error.
func (r *Runner) ProcessPatches(ctx context.Context, items []PatchWork) error {
	for _, work := range items {
		label := patchLabel(work)
		fmt.Fprintf(r.Out, "--- patch %s#%d (%s) [%s] ---\n",
			work.Patch.Source, work.Patch.Index, label, work.Patch.Kind)

		var (
			quit bool
			err  error
		)
		switch work.Patch.Kind {
		case patch.KindModify:
			quit, err = r.patchModify(ctx, work)
		case patch.KindCreate:
			quit, err = r.patchCreate(ctx, work)
		case patch.KindDelete:
			quit, err = r.patchDelete(ctx, work)
		case patch.KindRename:
			quit, err = r.patchRename(ctx, work)
		}
		if err != nil {
			return err
		}
		if quit {
			fmt.Fprintln(r.Out, "stopping after user request.")
			r.Stats.Skipped++
			return nil
		}
	}
	return nil
}

func patchLabel(work PatchWork) string {
	switch {
	case work.OldPath != "" && work.NewPath != "" && work.OldPath != work.NewPath:
		return work.OldPath + " -> " + work.NewPath
	case work.NewPath != "":
		return work.NewPath
	case work.OldPath != "":
		return work.OldPath
	default:
		return "(unknown path)"
	}
}

func (r *Runner) patchModify(ctx context.Context, work PatchWork) (bool, error) {
	path := work.NewPath
	if path == "" {
		path = work.OldPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Errorf("reading %s: %w", path, err)
	}
	decoded := r.Strategy.Decode(data)

	patched, err := patch.Apply(decoded.Text, work.Patch.Text)
	if err != nil {
		return false, errors.Errorf("applying patch %s#%d to %s: %w",
			work.Patch.Source, work.Patch.Index, path, err)
	}

	summary := diffview.Summarize(decoded.Text, patched, r.differ())
	spans := toLogSpans(diffview.Spans(r.differ().DiffLines(decoded.Text, patched)))
	st := status{patchKind: work.Patch.Kind.String()}

	if patched == decoded.Text {
		fmt.Fprintf(r.Out, "patch %s#%d made no changes to %s\n",
			work.Patch.Source, work.Patch.Index, path)
		r.Stats.NoOp++
		st.dryRun = !r.applyMode()
		if r.applyMode() {
			r.logChange(ctx, path, "no-op", summary, spans, st)
		} else {
			r.emitJSONEvent(path, "no-op", summary, spans, st)
		}
		return false, nil
	}

	if err := r.showDiff(decoded.Text, patched); err != nil {
		return false, err
	}
	result := &transformResult{decoded: decoded, newText: patched}

	if !r.applyMode() {
		r.Stats.DryRun++
		fmt.Fprintln(r.Out, "dry-run: rerun with --apply to write this change.")
		st.dryRun = true
		r.logChange(ctx, path, "dry-run", summary, spans, st)
		return false, nil
	}

	choice, err := r.approve(path)
	if err != nil {
		return false, err
	}
	switch choice {
	case decisionApply, decisionApplyAll:
		if err := r.applyResult(ctx, path, result, nil); err != nil {
			return false, err
		}
		r.Stats.Applied++
		st.applied = true
		r.logChange(ctx, path, "applied", summary, spans, st)
	case decisionSkip:
		fmt.Fprintf(r.Out, "skipped %s\n", path)
		r.Stats.Skipped++
		r.logChange(ctx, path, "skipped", summary, spans, st)
	case decisionQuit:
		return true, nil
	}
	return false, nil
}

func (r *Runner) patchCreate(ctx context.Context, work PatchWork) (bool, error) {
	path := work.NewPath
	if _, err := os.Stat(path); err == nil {
		return false, errors.Errorf("%w: refusing to create %s", ErrTargetExists, path)
	}

	newText, err := patch.Apply("", work.Patch.Text)
	if err != nil {
		return false, errors.Errorf("applying patch %s#%d for new file %s: %w",
			work.Patch.Source, work.Patch.Index, path, err)
	}

	summary := diffview.Summarize("", newText, r.differ())
	spans := toLogSpans(diffview.Spans(r.differ().DiffLines("", newText)))
	st := status{patchKind: work.Patch.Kind.String()}

	if newText == "" {
		fmt.Fprintf(r.Out, "patch %s#%d produced no content for %s; skipping\n",
			work.Patch.Source, work.Patch.Index, path)
		r.Stats.NoOp++
		st.dryRun = !r.applyMode()
		r.emitJSONEvent(path, "no-op", summary, spans, st)
		return false, nil
	}

	if err := r.showDiff("", newText); err != nil {
		return false, err
	}

	if !r.applyMode() {
		r.Stats.DryRun++
		fmt.Fprintln(r.Out, "dry-run: rerun with --apply to create this file.")
		st.dryRun = true
		r.logChange(ctx, path, "dry-run", summary, spans, st)
		return false, nil
	}

	choice, err := r.approve(path)
	if err != nil {
		return false, err
	}
	switch choice {
	case decisionApply, decisionApplyAll:
		if err := r.WriteNewFile(ctx, path, newText); err != nil {
			return false, err
		}
		r.Stats.Applied++
		st.applied = true
		r.logChange(ctx, path, "applied", summary, spans, st)
	case decisionSkip:
		fmt.Fprintf(r.Out, "skipped %s\n", path)
		r.Stats.Skipped++
		r.logChange(ctx, path, "skipped", summary, spans, st)
	case decisionQuit:
		return true, nil
	}
	return false, nil
}

func (r *Runner) patchDelete(ctx context.Context, work PatchWork) (bool, error) {
	path := work.OldPath
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Errorf("reading %s: %w", path, err)
	}
	decoded := r.Strategy.Decode(data)

	newText, err := patch.Apply(decoded.Text, work.Patch.Text)
	if err != nil {
		return false, errors.Errorf("applying delete patch %s#%d to %s: %w",
			work.Patch.Source, work.Patch.Index, path, err)
	}
	if newText != "" {
		return false, errors.Errorf("%w: patch %s#%d for %s",
			patch.ErrDeleteNotEmpty, work.Patch.Source, work.Patch.Index, path)
	}

	summary := diffview.Summarize(decoded.Text, "", r.differ())
	spans := toLogSpans(diffview.Spans(r.differ().DiffLines(decoded.Text, "")))
	st := status{patchKind: work.Patch.Kind.String()}

	if err := r.showDiff(decoded.Text, ""); err != nil {
		return false, err
	}

	if !r.applyMode() {
		r.Stats.DryRun++
		fmt.Fprintln(r.Out, "dry-run: rerun with --apply to delete this file.")
		st.dryRun = true
		r.logChange(ctx, path, "dry-run", summary, spans, st)
		return false, nil
	}

	choice, err := r.approve(path)
	if err != nil {
		return false, err
	}
	switch choice {
	case decisionApply, decisionApplyAll:
		if err := r.deleteWithUndo(ctx, path, decoded.Text); err != nil {
			return false, err
		}
		r.Stats.Applied++
		st.applied = true
		r.logChange(ctx, path, "applied", summary, spans, st)
	case decisionSkip:
		fmt.Fprintf(r.Out, "skipped %s\n", path)
		r.Stats.Skipped++
		r.logChange(ctx, path, "skipped", summary, spans, st)
	case decisionQuit:
		return true, nil
	}
	return false, nil
}

func (r *Runner) patchRename(ctx context.Context, work PatchWork) (bool, error) {
	oldPath, newPath := work.OldPath, work.NewPath
	if newPath != oldPath {
		if _, err := os.Stat(newPath); err == nil {
			return false, errors.Errorf("%w: refusing to overwrite %s during rename", ErrTargetExists, newPath)
		}
	}
	data, err := os.ReadFile(oldPath)
	if err != nil {
		return false, errors.Errorf("reading %s: %w", oldPath, err)
	}
	decoded := r.Strategy.Decode(data)

	newText, err := patch.Apply(decoded.Text, work.Patch.Text)
	if err != nil {
		return false, errors.Errorf("applying rename patch %s#%d for %s -> %s: %w",
			work.Patch.Source, work.Patch.Index, oldPath, newPath, err)
	}

	contentChanged := newText != decoded.Text
	summary := "rename-only"
	var spans []changelog.Span
	if contentChanged {
		if err := r.showDiff(decoded.Text, newText); err != nil {
			return false, err
		}
		summary = diffview.Summarize(decoded.Text, newText, r.differ())
		spans = toLogSpans(diffview.Spans(r.differ().DiffLines(decoded.Text, newText)))
	} else {
		fmt.Fprintln(r.Out, "(rename only; no textual diff)")
	}
	st := status{patchKind: work.Patch.Kind.String()}

	if !r.applyMode() {
		r.Stats.DryRun++
		fmt.Fprintln(r.Out, "dry-run: rerun with --apply to rename this file.")
		st.dryRun = true
		r.logChange(ctx, newPath, "dry-run (rename)", summary, spans, st)
		return false, nil
	}

	choice, err := r.approve(newPath)
	if err != nil {
		return false, err
	}
	switch choice {
	case decisionApply, decisionApplyAll:
		decision := decoded.Decision
		result := &transformResult{decoded: decoded, newText: newText}
		if err := r.applyResult(ctx, newPath, result, &decision); err != nil {
			return false, err
		}
		if err := r.deleteWithUndo(ctx, oldPath, decoded.Text); err != nil {
			return false, err
		}
		r.Stats.Applied++
		st.applied = true
		r.logChange(ctx, newPath, "applied (rename)", summary, spans, st)
		r.logChange(ctx, oldPath, "deleted (rename)", "entire file removed", nil, st)
	case decisionSkip:
		fmt.Fprintf(r.Out, "skipped rename to %s\n", newPath)
		r.Stats.Skipped++
		r.logChange(ctx, newPath, "skipped (rename)", summary, spans, st)
	case decisionQuit:
		return true, nil
	}
	return false, nil
}

func (r *Runner) showDiff(old, new string) error {
	rendered := diffview.Render(old, new, r.Opts.Diff)
	return diffview.Show(rendered, r.Opts.Diff, r.Out, r.In)
}
