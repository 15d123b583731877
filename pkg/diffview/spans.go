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
	"strings"
)

// SpanKind distinguishes modified ranges from pure additions.
type SpanKind int

const (
	// SpanModified covers deleted or replaced lines, addressed on the old
	// text's line numbers.
	SpanModified SpanKind = iota
	// SpanAdded covers inserted lines, addressed on the new text's line
	// numbers.
	SpanAdded
)

// Span is a 1-based inclusive line range touched by a diff.
type Span struct {
	Kind  SpanKind
	Start int
	End   int
}

// Spans lists the changed regions of a diff in ascending order. Ranges are
// kept disjoint; modified spans use old-side numbering and added spans use
// new-side numbering, so overlapping starts are nudged forward rather than
// allowed to interleave.
func Spans(ops []Op) []Span {
	var spans []Span
	lastEnd := 0
	for _, op := range ops {
		var span Span
		switch op.Tag {
		case TagDelete, TagReplace:
			span = Span{Kind: SpanModified, Start: op.OldStart + 1, End: op.OldEnd}
		case TagInsert:
			span = Span{Kind: SpanAdded, Start: op.NewStart + 1, End: op.NewEnd}
		default:
			continue
		}
		if span.Start <= lastEnd {
			span.Start = lastEnd + 1
		}
		if span.End < span.Start {
			span.End = span.Start
		}
		spans = append(spans, span)
		lastEnd = span.End
	}
	return spans
}

// Summarize renders the changed regions of old vs new as a short label,
// "L3-L4, +L7" style, or "no-change" when nothing differs.
func Summarize(old, new string, differ LineDiffer) string {
	if differ == nil {
		differ = MyersDiffer{}
	}
	var parts []string
	for _, span := range Spans(differ.DiffLines(old, new)) {
		switch {
		case span.Kind == SpanAdded:
			parts = append(parts, fmt.Sprintf("+L%d", span.Start))
		case span.Start == span.End:
			parts = append(parts, fmt.Sprintf("L%d", span.Start))
		default:
			parts = append(parts, fmt.Sprintf("L%d-L%d", span.Start, span.End))
		}
	}
	if len(parts) == 0 {
		return "no-change"
	}
	return strings.Join(parts, ", ")
}
