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

const noNewlineMarker = `\ No newline at end of file`

// Unified emits unified-diff text for old vs new, suitable for feeding
// back through the patch applier. Undo patches are generated this way with
// the arguments swapped.
func Unified(oldLabel, newLabel, old, new string, context int, differ LineDiffer) string {
	if differ == nil {
		differ = MyersDiffer{}
	}
	ops := differ.DiffLines(old, new)
	groups := groupOps(ops, context)
	if len(groups) == 0 {
		return ""
	}

	oldLines := SplitLines(old)
	newLines := SplitLines(new)
	oldNoEOF := old != "" && !strings.HasSuffix(old, "\n")
	newNoEOF := new != "" && !strings.HasSuffix(new, "\n")

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n", oldLabel)
	fmt.Fprintf(&out, "+++ %s\n", newLabel)

	for _, group := range groups {
		oldStart, oldCount, newStart, newCount := groupRanges(group)
		fmt.Fprintf(&out, "@@ -%s +%s @@\n", formatRange(oldStart, oldCount), formatRange(newStart, newCount))

		for _, op := range group {
			switch op.Tag {
			case TagEqual:
				for i := op.OldStart; i < op.OldEnd; i++ {
					out.WriteString(" " + oldLines[i] + "\n")
					if oldNoEOF && i == len(oldLines)-1 {
						out.WriteString(noNewlineMarker + "\n")
					}
				}
			case TagDelete, TagReplace:
				for i := op.OldStart; i < op.OldEnd; i++ {
					out.WriteString("-" + oldLines[i] + "\n")
					if oldNoEOF && i == len(oldLines)-1 {
						out.WriteString(noNewlineMarker + "\n")
					}
				}
				for i := op.NewStart; i < op.NewEnd; i++ {
					out.WriteString("+" + newLines[i] + "\n")
					if newNoEOF && i == len(newLines)-1 {
						out.WriteString(noNewlineMarker + "\n")
					}
				}
			case TagInsert:
				for i := op.NewStart; i < op.NewEnd; i++ {
					out.WriteString("+" + newLines[i] + "\n")
					if newNoEOF && i == len(newLines)-1 {
						out.WriteString(noNewlineMarker + "\n")
					}
				}
			}
		}
	}
	return out.String()
}

func groupRanges(group []Op) (oldStart, oldCount, newStart, newCount int) {
	first, last := group[0], group[len(group)-1]
	oldCount = last.OldEnd - first.OldStart
	newCount = last.NewEnd - first.NewStart
	// Unified headers are 1-based; a zero-length side points at the line
	// before the change.
	oldStart = first.OldStart + 1
	if oldCount == 0 {
		oldStart = first.OldStart
	}
	newStart = first.NewStart + 1
	if newCount == 0 {
		newStart = first.NewStart
	}
	return oldStart, oldCount, newStart, newCount
}

func formatRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
