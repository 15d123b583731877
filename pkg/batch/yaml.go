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

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

func init() {
	Register(&YAMLParser{})
}

// 🔧 YAMLParser decodes .yaml/.yml/.json plans. JSON is a subset of YAML,
// so one decoder covers both.
type YAMLParser struct{}

func (p *YAMLParser) CanParse(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml") ||
		strings.HasSuffix(lower, ".json")
}

type yamlStep struct {
	Command string `yaml:"command"`
	Common  Common `yaml:"common"`

	// replace fields
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Regex       bool   `yaml:"regex"`
	DiffOnly    bool   `yaml:"diff_only"`
	Count       int    `yaml:"count"`
	Expect      int    `yaml:"expect"`
	AfterLine   int    `yaml:"after_line"`

	// normalize fields
	ConvertEncoding   *string `yaml:"convert_encoding"`
	StripZeroWidth    bool    `yaml:"strip_zero_width"`
	StripControl      bool    `yaml:"strip_control"`
	TrimTrailingSpace bool    `yaml:"trim_trailing_space"`
	EnsureEOL         bool    `yaml:"ensure_eol"`
	ReportFormat      string  `yaml:"report_format"`
	ScanZeroWidth     *bool   `yaml:"scan_zero_width"`
	ScanControl       *bool   `yaml:"scan_control"`
	ScanTrailingSpace *bool   `yaml:"scan_trailing_space"`
	ScanFinalNewline  *bool   `yaml:"scan_final_newline"`
}

type yamlPlan struct {
	Steps []yamlStep `yaml:"steps"`
}

func (p *YAMLParser) Parse(_ context.Context, data []byte) (*Plan, error) {
	var raw yamlPlan
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Errorf("decoding plan: %w", err)
	}

	plan := &Plan{}
	for i, step := range raw.Steps {
		switch step.Command {
		case "replace":
			plan.Steps = append(plan.Steps, Step{Replace: &ReplaceStep{
				Common:      step.Common,
				Pattern:     step.Pattern,
				Replacement: step.Replacement,
				Regex:       step.Regex,
				DiffOnly:    step.DiffOnly,
				Count:       step.Count,
				Expect:      step.Expect,
				AfterLine:   step.AfterLine,
			}})
		case "normalize":
			plan.Steps = append(plan.Steps, Step{Normalize: &NormalizeStep{
				Common:            step.Common,
				ConvertEncoding:   step.ConvertEncoding,
				StripZeroWidth:    step.StripZeroWidth,
				StripControl:      step.StripControl,
				TrimTrailingSpace: step.TrimTrailingSpace,
				EnsureEOL:         step.EnsureEOL,
				ReportFormat:      step.ReportFormat,
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
