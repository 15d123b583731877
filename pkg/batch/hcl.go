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

package batch

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser decodes .hcl plans of the form:
//
//	step "replace" {
//	  pattern     = "old"
//	  replacement = "new"
//	  common {
//	    globs = ["**/*.md"]
//	  }
//	}
type HCLParser struct{}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

type hclCommon struct {
	Targets       []string `hcl:"targets,optional"`
	Globs         []string `hcl:"globs,optional"`
	Encoding      *string  `hcl:"encoding,optional"`
	Apply         *bool    `hcl:"apply,optional"`
	AutoApply     *bool    `hcl:"auto_apply,optional"`
	NoBackup      *bool    `hcl:"no_backup,optional"`
	Context       *int     `hcl:"context,optional"`
	Pager         *string  `hcl:"pager,optional"`
	JSON          *bool    `hcl:"json,optional"`
	IncludeHidden *bool    `hcl:"include_hidden,optional"`
	Exclude       []string `hcl:"exclude,optional"`
	UndoLog       *string  `hcl:"undo_log,optional"`
}

type hclStep struct {
	Command string     `hcl:"command,label"`
	Common  *hclCommon `hcl:"common,block"`

	Pattern     *string `hcl:"pattern,optional"`
	Replacement *string `hcl:"replacement,optional"`
	Regex       *bool   `hcl:"regex,optional"`
	DiffOnly    *bool   `hcl:"diff_only,optional"`
	Count       *int    `hcl:"count,optional"`
	Expect      *int    `hcl:"expect,optional"`
	AfterLine   *int    `hcl:"after_line,optional"`

	ConvertEncoding   *string `hcl:"convert_encoding,optional"`
	StripZeroWidth    *bool   `hcl:"strip_zero_width,optional"`
	StripControl      *bool   `hcl:"strip_control,optional"`
	TrimTrailingSpace *bool   `hcl:"trim_trailing_space,optional"`
	EnsureEOL         *bool   `hcl:"ensure_eol,optional"`
	ReportFormat      *string `hcl:"report_format,optional"`
	ScanZeroWidth     *bool   `hcl:"scan_zero_width,optional"`
	ScanControl       *bool   `hcl:"scan_control,optional"`
	ScanTrailingSpace *bool   `hcl:"scan_trailing_space,optional"`
	ScanFinalNewline  *bool   `hcl:"scan_final_newline,optional"`
}

type hclPlan struct {
	Steps []hclStep `hcl:"step,block"`
}

func (p *HCLParser) Parse(_ context.Context, data []byte) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, "plan.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var raw hclPlan
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &raw); diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL plan: %s", diags.Error())
	}

	plan := &Plan{}
	for i, step := range raw.Steps {
		common := Common{}
		if step.Common != nil {
			common = Common{
				Targets:       step.Common.Targets,
				Globs:         step.Common.Globs,
				Encoding:      step.Common.Encoding,
				Apply:         step.Common.Apply,
				AutoApply:     step.Common.AutoApply,
				NoBackup:      step.Common.NoBackup,
				Context:       step.Common.Context,
				Pager:         step.Common.Pager,
				JSON:          step.Common.JSON,
				IncludeHidden: step.Common.IncludeHidden,
				Exclude:       step.Common.Exclude,
				UndoLog:       step.Common.UndoLog,
			}
		}

		switch step.Command {
		case "replace":
			plan.Steps = append(plan.Steps, Step{Replace: &ReplaceStep{
				Common:      common,
				Pattern:     stringOr(step.Pattern, ""),
				Replacement: stringOr(step.Replacement, ""),
				Regex:       boolOr(step.Regex, false),
				DiffOnly:    boolOr(step.DiffOnly, false),
				Count:       intOr(step.Count, 0),
				Expect:      intOr(step.Expect, 0),
				AfterLine:   intOr(step.AfterLine, 0),
			}})
		case "normalize":
			plan.Steps = append(plan.Steps, Step{Normalize: &NormalizeStep{
				Common:            common,
				ConvertEncoding:   step.ConvertEncoding,
				StripZeroWidth:    boolOr(step.StripZeroWidth, false),
				StripControl:      boolOr(step.StripControl, false),
				TrimTrailingSpace: boolOr(step.TrimTrailingSpace, false),
				EnsureEOL:         boolOr(step.EnsureEOL, false),
				ReportFormat:      stringOr(step.ReportFormat, ""),
				ScanZeroWidth:     step.ScanZeroWidth,
				ScanControl:       step.ScanControl,
				ScanTrailingSpace: step.ScanTrailingSpace,
				ScanFinalNewline:  step.ScanFinalNewline,
			}})
		default:
			return nil, errors.Errorf("%w: step %d has unknown command %q", ErrInvalidPlan, i+1, step.Command)
		}
	}
	return plan, nil
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
