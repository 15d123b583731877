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

package diffview

import (
	"fmt"

	"github.com/fatih/color"
)

// PagerMode controls whether long diffs go through the interactive pager.
type PagerMode int

const (
	PagerAuto PagerMode = iota
	PagerAlways
	PagerNever
)

func (m PagerMode) String() string {
	switch m {
	case PagerAlways:
		return "always"
	case PagerNever:
		return "never"
	default:
		return "auto"
	}
}

// Config carries the display knobs shared by every preview.
type Config struct {
	Context     int
	Colorize    bool
	Pager       PagerMode
	Interactive bool
	Differ      LineDiffer
}

// Rendering caps. A diff that trips a cap is cut off with a single
// warning naming the cap, so a pathological file cannot flood the
// terminal or the pager buffer.
const (
	maxRenderLines = 5000
	maxRenderBytes = 5 * 1024 * 1024
	maxLineBytes   = 64 * 1024

	truncatedLineSuffix = " (line truncated)"
)

// Rendered is a bounded, display-ready diff.
type Rendered struct {
	Lines []string
	// CapNotice names the cap that cut the render short; empty when the
	// whole diff fit.
	CapNotice string
	// LongLines counts lines that were individually truncated.
	LongLines int
}

// Warning returns the single summary warning for a capped render, or ""
// when nothing was cut.
func (r *Rendered) Warning() string {
	if r.CapNotice == "" && r.LongLines == 0 {
		return ""
	}
	if r.CapNotice == "" {
		return fmt.Sprintf("warning: %d long line(s) truncated for display", r.LongLines)
	}
	if r.LongLines == 0 {
		return fmt.Sprintf("warning: diff truncated (%s)", r.CapNotice)
	}
	return fmt.Sprintf("warning: diff truncated (%s); %d long line(s) truncated for display", r.CapNotice, r.LongLines)
}

// Render produces the bounded preview of old vs new. Equal runs are
// trimmed to the context radius with a `...` separator between groups,
// matching the usual unified preview shape.
func Render(old, new string, cfg Config) *Rendered {
	differ := cfg.Differ
	if differ == nil {
		differ = MyersDiffer{}
	}
	ops := differ.DiffLines(old, new)
	oldLines := SplitLines(old)
	newLines := SplitLines(new)

	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	rendered := &Rendered{}
	budgetBytes := maxRenderBytes

	emit := func(prefix, line string, paint *color.Color) bool {
		if rendered.CapNotice != "" {
			return false
		}
		if len(rendered.Lines) >= maxRenderLines {
			rendered.CapNotice = fmt.Sprintf("display limit of %d lines reached", maxRenderLines)
			return false
		}
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes] + truncatedLineSuffix
			rendered.LongLines++
		}
		text := prefix + line
		if cfg.Colorize && paint != nil {
			text = paint.Sprint(text)
		}
		budgetBytes -= len(text) + 1
		if budgetBytes < 0 {
			rendered.CapNotice = fmt.Sprintf("display limit of %d bytes reached", maxRenderBytes)
			return false
		}
		rendered.Lines = append(rendered.Lines, text)
		return true
	}

	for groupIdx, group := range groupOps(ops, cfg.Context) {
		if groupIdx > 0 {
			if !emit("", "...", nil) {
				break
			}
		}
		for _, op := range group {
			ok := true
			switch op.Tag {
			case TagEqual:
				for _, line := range oldLines[op.OldStart:op.OldEnd] {
					if ok = emit("  ", line, nil); !ok {
						break
					}
				}
			case TagDelete, TagReplace:
				for _, line := range oldLines[op.OldStart:op.OldEnd] {
					if ok = emit("- ", line, red); !ok {
						break
					}
				}
				if ok {
					for _, line := range newLines[op.NewStart:op.NewEnd] {
						if ok = emit("+ ", line, green); !ok {
							break
						}
					}
				}
			case TagInsert:
				for _, line := range newLines[op.NewStart:op.NewEnd] {
					if ok = emit("+ ", line, green); !ok {
						break
					}
				}
			}
			if !ok {
				break
			}
		}
		if rendered.CapNotice != "" {
			break
		}
	}

	return rendered
}

// groupOps trims equal runs to the context radius and splits the op list
// into display groups separated by elided regions. Ops that are all equal
// produce no groups.
func groupOps(ops []Op, context int) [][]Op {
	var groups [][]Op
	var current []Op

	flush := func() {
		if hasChanges(current) {
			groups = append(groups, current)
		}
		current = nil
	}

	for i, op := range ops {
		if op.Tag != TagEqual {
			current = append(current, op)
			continue
		}

		size := op.OldEnd - op.OldStart
		first := i == 0
		last := i == len(ops)-1

		switch {
		case first:
			// Leading context only.
			start := op.OldEnd - context
			if start < op.OldStart {
				start = op.OldStart
			}
			shift := start - op.OldStart
			if shift < size {
				current = append(current, Op{Tag: TagEqual, OldStart: start, OldEnd: op.OldEnd, NewStart: op.NewStart + shift, NewEnd: op.NewEnd})
			}
		case last:
			// Trailing context only.
			end := op.OldStart + context
			if end > op.OldEnd {
				end = op.OldEnd
			}
			if end > op.OldStart {
				current = append(current, Op{Tag: TagEqual, OldStart: op.OldStart, OldEnd: end, NewStart: op.NewStart, NewEnd: op.NewStart + (end - op.OldStart)})
			}
		case size > 2*context:
			// Split the run: close the current group with trailing
			// context and open the next with leading context.
			current = append(current, Op{Tag: TagEqual, OldStart: op.OldStart, OldEnd: op.OldStart + context, NewStart: op.NewStart, NewEnd: op.NewStart + context})
			flush()
			current = append(current, Op{Tag: TagEqual, OldStart: op.OldEnd - context, OldEnd: op.OldEnd, NewStart: op.NewEnd - context, NewEnd: op.NewEnd})
		default:
			current = append(current, op)
		}
	}
	flush()
	return groups
}

func hasChanges(ops []Op) bool {
	for _, op := range ops {
		if op.Tag != TagEqual {
			return true
		}
	}
	return false
}
