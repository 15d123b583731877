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
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/redline/pkg/changelog"
	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/diffview"
	"github.com/walteh/redline/pkg/fileset"
	"github.com/walteh/redline/pkg/textedit"
)

// ErrBadReportFormat rejects report formats other than table or json.
var ErrBadReportFormat = errors.Base("unsupported report format")

// ReportFormat selects how per-file hygiene reports are printed.
type ReportFormat int

const (
	ReportTable ReportFormat = iota
	ReportJSON
)

func (f ReportFormat) String() string {
	if f == ReportJSON {
		return "json"
	}
	return "table"
}

// ParseReportFormat accepts "table" or "json".
func ParseReportFormat(value string) (ReportFormat, error) {
	switch strings.ToLower(value) {
	case "", "table":
		return ReportTable, nil
	case "json":
		return ReportJSON, nil
	default:
		return ReportTable, errors.Errorf("%w: %q (expected table or json)", ErrBadReportFormat, value)
	}
}

// NormalizeRun configures one hygiene pass over the resolved files.
type NormalizeRun struct {
	Edit textedit.NormalizeOptions
	// ConvertEncoding, when non-empty, rewrites every file in that
	// charset even if the text itself needs no cleanup.
	ConvertEncoding string
	DetectEncoding  bool
	Format          ReportFormat
}

type normalizeJSONRow struct {
	Path            string `json:"path"`
	ZeroWidth       *int   `json:"zero_width"`
	ControlChars    *int   `json:"control_chars"`
	TrailingSpaces  *int   `json:"trailing_spaces"`
	MissingFinalNL  *bool  `json:"missing_final_newline"`
	Encoding        string `json:"encoding,omitempty"`
	ConvertEncoding string `json:"convert_encoding,omitempty"`
}

// ProcessNormalize reports and optionally repairs hygiene issues across
// the entries, with the usual preview and approval flow for any file
// that would change.
func (r *Runner) ProcessNormalize(ctx context.Context, entries []fileset.Entry, run NormalizeRun) error {
	var convertDecision *charset.Decision
	if run.ConvertEncoding != "" {
		convertStrategy, err := charset.New(run.ConvertEncoding)
		if err != nil {
			return err
		}
		decision := convertStrategy.Decide(nil)
		convertDecision = &decision
	}

	for _, entry := range entries {
		if entry.Meta.ProbablyBinary {
			fmt.Fprintf(r.Out, "skipping %s (suspected binary file)\n", entry.Path)
			r.Stats.Skipped++
			r.logChange(ctx, entry.Path, "skipped", "suspected binary file", nil, status{dryRun: !r.Opts.Apply})
			continue
		}

		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return errors.Errorf("reading %s: %w", entry.Path, err)
		}
		decoded := r.Strategy.Decode(data)
		outcome := textedit.Normalize(decoded.Text, run.Edit)
		r.printNormalizeReport(entry.Path, decoded, outcome.Report, run)

		convertOnly := !outcome.Changed && convertDecision != nil
		var newText string
		switch {
		case outcome.Changed:
			newText = outcome.Cleaned
		case convertDecision != nil:
			newText = decoded.Text
		default:
			r.Stats.NoOp++
			r.logNoOp(ctx, entry.Path, "no change")
			continue
		}

		result := &transformResult{decoded: decoded, newText: newText}
		summary := diffview.Summarize(decoded.Text, newText, r.differ())
		spans := toLogSpans(diffview.Spans(r.differ().DiffLines(decoded.Text, newText)))
		if convertOnly && len(spans) == 0 {
			summary = fmt.Sprintf("encoding conversion to %s", run.ConvertEncoding)
			fmt.Fprintf(r.Out, "(no textual diff) %s will be rewritten using %s\n", entry.Path, run.ConvertEncoding)
		} else {
			fmt.Fprintf(r.Out, "--- preview: %s ---\n", entry.Path)
			if err := r.showDiff(decoded.Text, newText); err != nil {
				return err
			}
		}

		if !r.Opts.Apply {
			r.Stats.DryRun++
			fmt.Fprintln(r.Out, "dry-run: rerun with --apply to write this change.")
			r.logChange(ctx, entry.Path, "dry-run", summary, spans, status{dryRun: true})
			continue
		}

		choice, err := r.approve(entry.Path)
		if err != nil {
			return err
		}
		switch choice {
		case decisionApply, decisionApplyAll:
			if err := r.applyResult(ctx, entry.Path, result, convertDecision); err != nil {
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

func (r *Runner) printNormalizeReport(path string, decoded charset.Decoded, report textedit.NormalizeReport, run NormalizeRun) {
	if run.Format == ReportJSON {
		row := normalizeJSONRow{
			Path:            path,
			ZeroWidth:       report.ZeroWidth,
			ControlChars:    report.ControlChars,
			TrailingSpaces:  report.TrailingSpaces,
			MissingFinalNL:  report.MissingFinalNewline,
			ConvertEncoding: run.ConvertEncoding,
		}
		if run.DetectEncoding {
			row.Encoding = decoded.Decision.Name
		}
		if data, err := json.Marshal(row); err == nil {
			fmt.Fprintln(r.Out, string(data))
		}
		return
	}

	fmt.Fprintf(r.Out, "%s -> zero-width: %s, control: %s, trailing spaces: %s, missing final newline: %s\n",
		path,
		formatDetection(report.ZeroWidth),
		formatDetection(report.ControlChars),
		formatDetection(report.TrailingSpaces),
		formatDetectedBool(report.MissingFinalNewline))
	switch {
	case run.DetectEncoding && run.ConvertEncoding != "":
		fmt.Fprintf(r.Out, "    encoding: %s -> %s\n", decoded.Decision.Name, run.ConvertEncoding)
	case run.DetectEncoding:
		fmt.Fprintf(r.Out, "    encoding: %s\n", decoded.Decision.Name)
	case run.ConvertEncoding != "":
		fmt.Fprintf(r.Out, "    convert encoding: %s\n", run.ConvertEncoding)
	}
}

func formatDetection(value *int) string {
	if value == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *value)
}

func formatDetectedBool(value *bool) string {
	switch {
	case value == nil:
		return "n/a"
	case *value:
		return "yes"
	default:
		return "no"
	}
}

// DescribeSpans renders spans the way the log command displays them,
// e.g. "M L1-L2, A L4".
func DescribeSpans(spans []changelog.Span) string {
	parts := make([]string, 0, len(spans))
	for _, span := range spans {
		kind := "M"
		if span.Kind == "added" {
			kind = "A"
		}
		if span.End > span.Start {
			parts = append(parts, fmt.Sprintf("%s L%d-L%d", kind, span.Start, span.End))
		} else {
			parts = append(parts, fmt.Sprintf("%s L%d", kind, span.Start))
		}
	}
	return strings.Join(parts, ", ")
}
