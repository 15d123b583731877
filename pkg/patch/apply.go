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

package patch

import (
	"regexp"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

type lineEndingStyle int

const (
	styleLF lineEndingStyle = iota
	styleCRLF
	styleCR
)

func detectLineEndingStyle(text string) lineEndingStyle {
	if strings.Contains(text, "\r\n") {
		return styleCRLF
	}
	if strings.Contains(text, "\r") {
		return styleCR
	}
	return styleLF
}

func normalizeToLF(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func restoreFromLF(text string, style lineEndingStyle) string {
	switch style {
	case styleCRLF:
		return strings.ReplaceAll(text, "\n", "\r\n")
	case styleCR:
		return strings.ReplaceAll(text, "\n", "\r")
	default:
		return text
	}
}

type hunkLine struct {
	op      byte // ' ', '-', or '+'
	content string
	noEOF   bool // a `\ No newline at end of file` marker followed this line
}

type hunk struct {
	oldStart int // 1-based; 0 means the old side is empty
	oldCount int
	newStart int
	newCount int
	lines    []hunkLine
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// parseHunks extracts the hunks from one segment body. Header lines
// (---/+++) are skipped. Hunk content is consumed until the header's line
// counts are satisfied, so trailing blank lines between segments are not
// mistaken for context.
func parseHunks(body string) ([]hunk, error) {
	var hunks []hunk
	var current *hunk
	oldLeft, newLeft := 0, 0

	for _, chunk := range splitInclusive(body) {
		line := strings.TrimSuffix(strings.TrimSuffix(chunk, "\n"), "\r")

		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			continue
		}
		if match := hunkHeaderRe.FindStringSubmatch(line); match != nil {
			h := hunk{
				oldStart: mustAtoi(match[1]),
				oldCount: atoiDefault(match[2], 1),
				newStart: mustAtoi(match[3]),
				newCount: atoiDefault(match[4], 1),
			}
			hunks = append(hunks, h)
			current = &hunks[len(hunks)-1]
			oldLeft, newLeft = h.oldCount, h.newCount
			continue
		}

		if strings.HasPrefix(line, `\`) {
			if current == nil || len(current.lines) == 0 {
				return nil, errors.Errorf("%w: no-newline marker with no preceding line", ErrMalformedPatch)
			}
			current.lines[len(current.lines)-1].noEOF = true
			continue
		}

		inHunk := current != nil && (oldLeft > 0 || newLeft > 0)
		if !inHunk {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, errors.Errorf("%w: content outside hunk: %q", ErrMalformedPatch, line)
		}

		op, content := byte(' '), ""
		if line != "" {
			op, content = line[0], line[1:]
		}
		switch op {
		case ' ':
			oldLeft--
			newLeft--
		case '-':
			oldLeft--
		case '+':
			newLeft--
		default:
			return nil, errors.Errorf("%w: unexpected hunk line: %q", ErrMalformedPatch, line)
		}
		current.lines = append(current.lines, hunkLine{op: op, content: content})
	}

	if len(hunks) == 0 {
		return nil, errors.Errorf("%w: no hunks found", ErrMalformedPatch)
	}
	return hunks, nil
}

// Apply runs the segment's hunks over the base text with exact context
// matching. The base's line-ending style is detected, normalized to LF for
// application, and restored afterwards.
func Apply(base, patchText string) (string, error) {
	style := detectLineEndingStyle(base)
	normalized := normalizeToLF(base)

	hunks, err := parseHunks(patchText)
	if err != nil {
		return "", err
	}

	patched, err := applyHunks(normalized, hunks)
	if err != nil {
		return "", err
	}
	return restoreFromLF(patched, style), nil
}

func applyHunks(base string, hunks []hunk) (string, error) {
	baseLines, hadFinalNewline := splitLines(base)

	var out []string
	cursor := 0
	outNoEOF := false

	for _, h := range hunks {
		// An old count of zero means a pure insertion after oldStart.
		oldPos := h.oldStart - 1
		if h.oldCount == 0 {
			oldPos = h.oldStart
		}
		if oldPos < cursor || oldPos > len(baseLines) {
			return "", errors.Errorf("%w: hunk targets line %d outside remaining file", ErrHunkMismatch, h.oldStart)
		}
		out = append(out, baseLines[cursor:oldPos]...)
		cursor = oldPos

		for _, line := range h.lines {
			switch line.op {
			case ' ':
				if cursor >= len(baseLines) || baseLines[cursor] != line.content {
					return "", contextMismatch(baseLines, cursor, line.content)
				}
				out = append(out, line.content)
				cursor++
				if line.noEOF {
					outNoEOF = true
				}
			case '-':
				if cursor >= len(baseLines) || baseLines[cursor] != line.content {
					return "", contextMismatch(baseLines, cursor, line.content)
				}
				cursor++
			case '+':
				out = append(out, line.content)
				outNoEOF = line.noEOF
			}
		}
	}

	trailingNewline := hadFinalNewline
	if cursor >= len(baseLines) {
		// The last hunk reached old EOF, so the new side decides whether
		// the result ends with a newline.
		trailingNewline = !outNoEOF
	} else {
		out = append(out, baseLines[cursor:]...)
	}

	if len(out) == 0 {
		return "", nil
	}
	result := strings.Join(out, "\n")
	if trailingNewline {
		result += "\n"
	}
	return result, nil
}

func contextMismatch(baseLines []string, cursor int, want string) error {
	if cursor >= len(baseLines) {
		return errors.Errorf("%w: expected %q but file ended", ErrHunkMismatch, want)
	}
	return errors.Errorf("%w: expected %q at line %d, found %q", ErrHunkMismatch, want, cursor+1, baseLines[cursor])
}

// splitLines splits LF-normalized text into lines without terminators and
// reports whether the text ended with a newline. Empty text yields no
// lines.
func splitLines(text string) ([]string, bool) {
	if text == "" {
		return nil, false
	}
	hadFinal := strings.HasSuffix(text, "\n")
	if hadFinal {
		text = text[:len(text)-1]
	}
	return strings.Split(text, "\n"), hadFinal
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
