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

// Package batch loads multi-step edit plans from YAML, JSON, or HCL
// files. Each step is a replace or normalize pass with optional overrides
// of the shared command settings.
package batch

import (
	"context"
	"os"
	"sync"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrUnknownFormat is returned when no parser claims the plan file.
	ErrUnknownFormat = errors.Base("unknown plan format")
	// ErrInvalidPlan wraps structural problems in a parsed plan.
	ErrInvalidPlan = errors.Base("invalid plan")
)

// Common carries per-step overrides of the shared command settings. Nil
// pointers and nil slices mean "keep the command-line value".
type Common struct {
	Targets       []string `yaml:"targets,omitempty"`
	Globs         []string `yaml:"globs,omitempty"`
	Encoding      *string  `yaml:"encoding,omitempty"`
	Apply         *bool    `yaml:"apply,omitempty"`
	AutoApply     *bool    `yaml:"auto_apply,omitempty"`
	NoBackup      *bool    `yaml:"no_backup,omitempty"`
	Context       *int     `yaml:"context,omitempty"`
	Pager         *string  `yaml:"pager,omitempty"`
	JSON          *bool    `yaml:"json,omitempty"`
	IncludeHidden *bool    `yaml:"include_hidden,omitempty"`
	Exclude       []string `yaml:"exclude,omitempty"`
	UndoLog       *string  `yaml:"undo_log,omitempty"`
}

// ReplaceStep is one pattern replacement pass.
type ReplaceStep struct {
	Common      Common
	Pattern     string
	Replacement string
	Regex       bool
	DiffOnly    bool
	Count       int
	Expect      int
	AfterLine   int
}

// NormalizeStep is one hygiene pass. Nil scan flags fall back to the
// normalize command's defaults.
type NormalizeStep struct {
	Common            Common
	ConvertEncoding   *string
	StripZeroWidth    bool
	StripControl      bool
	TrimTrailingSpace bool
	EnsureEOL         bool
	ReportFormat      string
	ScanZeroWidth     *bool
	ScanControl       *bool
	ScanTrailingSpace *bool
	ScanFinalNewline  *bool
}

// Step is one plan entry; exactly one of Replace or Normalize is set.
type Step struct {
	Replace   *ReplaceStep
	Normalize *NormalizeStep
}

// Kind names the step's command.
func (s Step) Kind() string {
	if s.Normalize != nil {
		return "normalize"
	}
	return "replace"
}

// Plan is an ordered list of steps.
type Plan struct {
	Steps []Step
}

// 📦 Parser turns plan file bytes into a Plan. Implementations register
// themselves at init time.
type Parser interface {
	// CanParse checks whether this parser handles the given file name.
	CanParse(filename string) bool
	// Parse decodes the plan.
	Parse(ctx context.Context, data []byte) (*Plan, error)
}

var (
	parsersMu sync.RWMutex
	parsers   []Parser
)

// Register adds a parser to the registry.
func Register(p Parser) {
	parsersMu.Lock()
	defer parsersMu.Unlock()
	parsers = append(parsers, p)
}

// Load reads a plan file and decodes it with the first parser that claims
// the file name.
func Load(ctx context.Context, path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading plan %s: %w", path, err)
	}

	parsersMu.RLock()
	defer parsersMu.RUnlock()
	for _, parser := range parsers {
		if parser.CanParse(path) {
			plan, err := parser.Parse(ctx, data)
			if err != nil {
				return nil, errors.Errorf("parsing plan %s: %w", path, err)
			}
			if err := validate(plan); err != nil {
				return nil, errors.Errorf("plan %s: %w", path, err)
			}
			return plan, nil
		}
	}
	return nil, errors.Errorf("%w: %s", ErrUnknownFormat, path)
}

func validate(plan *Plan) error {
	if len(plan.Steps) == 0 {
		return errors.Errorf("%w: no steps", ErrInvalidPlan)
	}
	for i, step := range plan.Steps {
		if step.Replace == nil && step.Normalize == nil {
			return errors.Errorf("%w: step %d has no command", ErrInvalidPlan, i+1)
		}
		if step.Replace != nil && step.Replace.Pattern == "" {
			return errors.Errorf("%w: step %d replace needs a pattern", ErrInvalidPlan, i+1)
		}
	}
	return nil
}
