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

// Package diffview renders line diffs for previews and undo artifacts.
// Rendering is bounded so a runaway diff cannot flood the terminal, and
// long output goes through a fixed-size pager when the session is
// interactive.
package diffview

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Tag classifies one diff operation.
type Tag int

const (
	TagEqual Tag = iota
	TagDelete
	TagInsert
	TagReplace
)

// Op is one line-level diff operation. Ranges are 0-based half-open line
// indexes into the old and new texts.
type Op struct {
	Tag      Tag
	OldStart int
	OldEnd   int
	NewStart int
	NewEnd   int
}

// LineDiffer produces line-level diff operations. The Myers backend is the
// only implementation; the seam keeps the algorithm swappable.
type LineDiffer interface {
	DiffLines(old, new string) []Op
}

// MyersDiffer diffs at line granularity using Myers over a line-to-rune
// mapping.
type MyersDiffer struct{}

func (MyersDiffer) DiffLines(old, new string) []Op {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lineArray := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffMain(oldChars, newChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ops []Op
	oldLine, newLine := 0, 0
	for _, diff := range diffs {
		n := countLines(diff.Text)
		if n == 0 {
			continue
		}
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, Op{Tag: TagEqual, OldStart: oldLine, OldEnd: oldLine + n, NewStart: newLine, NewEnd: newLine + n})
			oldLine += n
			newLine += n
		case diffmatchpatch.DiffDelete:
			ops = append(ops, Op{Tag: TagDelete, OldStart: oldLine, OldEnd: oldLine + n, NewStart: newLine, NewEnd: newLine})
			oldLine += n
		case diffmatchpatch.DiffInsert:
			ops = append(ops, Op{Tag: TagInsert, OldStart: oldLine, OldEnd: oldLine, NewStart: newLine, NewEnd: newLine + n})
			newLine += n
		}
	}
	return coalesceReplacements(ops)
}

// coalesceReplacements folds each run of delete and insert ops with no
// equal op in between into a single change op, so span summaries see one
// modification per contiguous changed region. The backend may emit such a
// region as interleaved delete/insert pairs.
func coalesceReplacements(ops []Op) []Op {
	var out []Op
	for i := 0; i < len(ops); {
		if ops[i].Tag == TagEqual {
			out = append(out, ops[i])
			i++
			continue
		}

		run := ops[i]
		hasDelete := run.Tag == TagDelete
		hasInsert := run.Tag == TagInsert
		j := i + 1
		for ; j < len(ops) && ops[j].Tag != TagEqual; j++ {
			if ops[j].Tag == TagDelete {
				hasDelete = true
			} else {
				hasInsert = true
			}
			if ops[j].OldEnd > run.OldEnd {
				run.OldEnd = ops[j].OldEnd
			}
			if ops[j].NewEnd > run.NewEnd {
				run.NewEnd = ops[j].NewEnd
			}
		}

		switch {
		case hasDelete && hasInsert:
			run.Tag = TagReplace
		case hasInsert:
			run.Tag = TagInsert
		default:
			run.Tag = TagDelete
		}
		out = append(out, run)
		i = j
	}
	return out
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// SplitLines splits text into lines without terminators. A trailing
// newline does not produce a phantom empty line; empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
