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
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/diffview"
)

// applyResult writes the new text through the safety sequence: undo
// patch first, then backup, then a same-directory temp file renamed
// over the target. A non-nil targetDecision overrides the encoding the
// file was decoded with.
func (r *Runner) applyResult(ctx context.Context, path string, result *transformResult, targetDecision *charset.Decision) error {
	if r.Opts.UndoDir != "" {
		if err := r.writeUndoPatch(path, result.decoded.Text, result.newText); err != nil {
			return err
		}
	}

	decision := result.decoded.Decision
	if targetDecision != nil {
		decision = *targetDecision
	}
	encoded, lossy, err := r.Strategy.Encode(result.newText, decision)
	if err != nil {
		return errors.Errorf("encoding %s: %w", path, err)
	}
	if lossy {
		pterm.Warning.WithWriter(r.Out).Printfln("encoding fallback occurred when writing %s; output may be lossy", path)
	}

	backup, err := r.createBackupIfNeeded(path)
	if err != nil {
		return err
	}
	if err := writeViaTemp(path, encoded); err != nil {
		return err
	}
	if backup != "" {
		fmt.Fprintf(r.Out, "backup saved: %s -> %s\n", path, backup)
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Str("encoding", decision.Name).
		Int("bytes", len(encoded)).
		Msg("file written")
	pterm.Success.WithWriter(r.Out).Printfln("applied %s", path)
	return nil
}

// WriteNewFile creates a file that did not exist before, going through
// the same undo/backup/temp-rename sequence.
func (r *Runner) WriteNewFile(ctx context.Context, path, newText string) error {
	decision := r.Strategy.Decide(nil)
	result := &transformResult{
		decoded: charset.Decoded{Text: "", Decision: decision},
		newText: newText,
	}
	return r.applyResult(ctx, path, result, &decision)
}

// deleteWithUndo removes a file, recording a reverse patch and a backup
// first so the deletion stays recoverable.
func (r *Runner) deleteWithUndo(ctx context.Context, path, oldText string) error {
	if r.Opts.UndoDir != "" {
		if err := r.writeUndoPatch(path, oldText, ""); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil {
		backup, err := r.createBackupIfNeeded(path)
		if err != nil {
			return err
		}
		if backup != "" {
			fmt.Fprintf(r.Out, "backup saved: %s -> %s\n", path, backup)
		}
		if err := os.Remove(path); err != nil {
			return errors.Errorf("removing %s: %w", path, err)
		}
	}
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("file deleted")
	fmt.Fprintf(r.Out, "deleted %s\n", path)
	return nil
}

// createBackupIfNeeded copies the target to the first free .bak/.bakN
// sibling. Returns "" when backups are disabled or the target does not
// exist yet.
func (r *Runner) createBackupIfNeeded(path string) (string, error) {
	if r.Opts.NoBackup {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}

	for attempt := 0; ; attempt++ {
		candidate := backupCandidate(path, attempt)
		if _, err := os.Stat(candidate); err == nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.Errorf("reading %s for backup: %w", path, err)
		}
		if err := os.WriteFile(candidate, data, 0o644); err != nil {
			return "", errors.Errorf("creating backup %s: %w", candidate, err)
		}
		return candidate, nil
	}
}

func backupCandidate(path string, index int) string {
	suffix := ".bak"
	if index > 0 {
		suffix = fmt.Sprintf(".bak%d", index)
	}
	return path + suffix
}

// writeViaTemp writes data to a unique temp file in the target's
// directory, fsyncs it, and renames it into place so readers never see
// a half-written file.
func writeViaTemp(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Errorf("creating directory %s: %w", dir, err)
		}
	}

	tempPath := filepath.Join(dir, fmt.Sprintf(".redline-tmp-%d-%d", os.Getpid(), time.Now().UnixNano()))
	file, err := os.Create(tempPath)
	if err != nil {
		return errors.Errorf("creating temp file %s: %w", tempPath, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing temp file %s: %w", tempPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.Errorf("syncing temp file %s: %w", tempPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// writeUndoPatch records a reverse unified diff (new back to old) so
// the change can be undone with the apply command.
func (r *Runner) writeUndoPatch(path, oldText, newText string) error {
	if err := os.MkdirAll(r.Opts.UndoDir, 0o755); err != nil {
		return errors.Errorf("creating undo dir %s: %w", r.Opts.UndoDir, err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339)
	name := fmt.Sprintf("%s_%s.patch", timestamp, sanitizePath(path))
	patchPath := filepath.Join(r.Opts.UndoDir, name)
	diff := diffview.Unified(path, path, newText, oldText, 3, r.differ())
	if err := os.WriteFile(patchPath, []byte(diff), 0o644); err != nil {
		return errors.Errorf("writing undo patch %s: %w", patchPath, err)
	}
	return nil
}

// LineEnding selects the newline style for whole-file writes.
type LineEnding int

const (
	LineAuto LineEnding = iota
	LineLF
	LineCRLF
	LineCR
)

func (e LineEnding) String() string {
	switch e {
	case LineLF:
		return "lf"
	case LineCRLF:
		return "crlf"
	case LineCR:
		return "cr"
	default:
		return "auto"
	}
}

// ErrBadLineEnding rejects unknown --line-ending values.
var ErrBadLineEnding = errors.Base("unsupported line ending")

// ParseLineEnding accepts auto, lf, crlf, or cr.
func ParseLineEnding(value string) (LineEnding, error) {
	switch strings.ToLower(value) {
	case "", "auto":
		return LineAuto, nil
	case "lf":
		return LineLF, nil
	case "crlf":
		return LineCRLF, nil
	case "cr":
		return LineCR, nil
	default:
		return LineAuto, errors.Errorf("%w: %q", ErrBadLineEnding, value)
	}
}

// resolve picks the concrete style: auto keeps the existing file's
// style, or LF for a new file.
func (e LineEnding) resolve(existing string) string {
	switch e {
	case LineLF:
		return "\n"
	case LineCRLF:
		return "\r\n"
	case LineCR:
		return "\r"
	}
	switch {
	case strings.Contains(existing, "\r\n"):
		return "\r\n"
	case strings.Contains(existing, "\r"):
		return "\r"
	default:
		return "\n"
	}
}

func applyLineEnding(body, newline string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	if newline == "\n" {
		return normalized
	}
	return strings.ReplaceAll(normalized, "\n", newline)
}

// ProcessWrite replaces (or creates) one file's entire content, with
// the same preview, approval, and write-safety steps as the transform
// commands.
func (r *Runner) ProcessWrite(ctx context.Context, path, body string, ending LineEnding, allowOverwrite bool) error {
	var (
		oldText string
		decoded charset.Decoded
		exists  bool
	)
	if _, err := os.Stat(path); err == nil {
		if !allowOverwrite {
			return errors.Errorf("%w: %s; use --allow-overwrite to replace it", ErrTargetExists, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Errorf("reading %s: %w", path, err)
		}
		decoded = r.Strategy.Decode(data)
		oldText = decoded.Text
		exists = true
	} else {
		decoded = charset.Decoded{Decision: r.Strategy.Decide(nil)}
	}

	newText := applyLineEnding(body, ending.resolve(oldText))
	kind := "create"
	if exists {
		kind = "modify"
	}
	st := status{patchKind: kind}

	summary := diffview.Summarize(oldText, newText, r.differ())
	spans := toLogSpans(diffview.Spans(r.differ().DiffLines(oldText, newText)))

	if oldText == newText {
		fmt.Fprintf(r.Out, "content already matches %s; nothing to do.\n", path)
		r.Stats.NoOp++
		r.logChange(ctx, path, "no-op", summary, spans, st)
		return nil
	}

	if err := r.showDiff(oldText, newText); err != nil {
		return err
	}

	if !r.Opts.Apply {
		r.Stats.DryRun++
		fmt.Fprintln(r.Out, "dry-run: rerun with --apply to write this file.")
		st.dryRun = true
		r.logChange(ctx, path, "dry-run", summary, spans, st)
		return nil
	}

	choice, err := r.approve(path)
	if err != nil {
		return err
	}
	switch choice {
	case decisionApply, decisionApplyAll:
		decision := decoded.Decision
		result := &transformResult{decoded: decoded, newText: newText}
		if err := r.applyResult(ctx, path, result, &decision); err != nil {
			return err
		}
		r.Stats.Applied++
		st.applied = true
		r.logChange(ctx, path, "applied", summary, spans, st)
	case decisionSkip:
		fmt.Fprintf(r.Out, "skipped %s\n", path)
		r.Stats.Skipped++
		r.logChange(ctx, path, "skipped", summary, spans, st)
	case decisionQuit:
		fmt.Fprintln(r.Out, "stopping after user request.")
		r.Stats.Skipped++
	}
	return nil
}

func sanitizePath(path string) string {
	return strings.Map(func(ch rune) rune {
		switch ch {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return ch
		}
	}, path)
}
