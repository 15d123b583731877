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

// Package patch parses multi-file unified diffs and applies them with
// exact-context matching. A patch file splits into per-file segments at
// `diff --` and `--- ` boundaries; each segment classifies into modify,
// create, delete, or rename purely from its header labels.
package patch

import (
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrMissingHeader is returned for a segment without a ---/+++ pair.
	ErrMissingHeader = errors.Base("patch segment missing header")
	// ErrMalformedPatch is returned when a segment's hunks do not parse.
	ErrMalformedPatch = errors.Base("malformed patch")
	// ErrHunkMismatch is returned when hunk context does not match the
	// file content exactly.
	ErrHunkMismatch = errors.Base("hunk does not match file content")
	// ErrDeleteNotEmpty is returned when a delete patch leaves content
	// behind.
	ErrDeleteNotEmpty = errors.Base("delete patch leaves file content")
)

// Kind classifies what a file patch does to its target.
type Kind int

const (
	KindModify Kind = iota
	KindCreate
	KindDelete
	KindRename
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindDelete:
		return "delete"
	case KindRename:
		return "rename"
	default:
		return "modify"
	}
}

// FilePatch is one per-file segment of a patch file. OldPath or NewPath is
// empty when the corresponding side is /dev/null.
type FilePatch struct {
	Source  string
	Index   int
	Text    string
	Kind    Kind
	OldPath string
	NewPath string
}

// Load reads a patch file from disk and parses it into per-file segments.
func Load(path string) ([]FilePatch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading patch %s: %w", path, err)
	}
	return Parse(path, string(raw))
}

// Parse splits patch text into per-file segments, validating that each
// segment's hunks parse and that its labels classify.
func Parse(source, text string) ([]FilePatch, error) {
	segments, err := splitSegments(text)
	if err != nil {
		return nil, errors.Errorf("parsing patch %s: %w", source, err)
	}

	patches := make([]FilePatch, 0, len(segments))
	for idx, segment := range segments {
		if _, err := parseHunks(segment.body); err != nil {
			return nil, errors.Errorf("parsing patch %s segment %d: %w", source, idx+1, err)
		}
		kind, oldPath, newPath, err := classify(segment.oldLabel, segment.newLabel)
		if err != nil {
			return nil, errors.Errorf("segment %d in %s has unsupported paths: %w", idx+1, source, err)
		}
		patches = append(patches, FilePatch{
			Source:  source,
			Index:   idx + 1,
			Text:    segment.body,
			Kind:    kind,
			OldPath: oldPath,
			NewPath: newPath,
		})
	}
	return patches, nil
}

type segment struct {
	oldLabel string
	newLabel string
	body     string
}

// splitSegments walks the patch line by line. A `diff --` line closes the
// current segment; a `--- ` line both closes the current segment and opens
// the next one. Everything before the first `--- ` header is preamble and
// is dropped.
func splitSegments(text string) ([]segment, error) {
	var segments []segment
	var buffer strings.Builder
	var oldLabel, newLabel string
	haveOld, haveNew := false, false
	inSegment := false

	finalize := func() error {
		if !haveOld {
			return errors.Errorf("%w: no --- line", ErrMissingHeader)
		}
		if !haveNew {
			return errors.Errorf("%w: no +++ line", ErrMissingHeader)
		}
		segments = append(segments, segment{oldLabel: oldLabel, newLabel: newLabel, body: buffer.String()})
		buffer.Reset()
		haveOld, haveNew = false, false
		return nil
	}

	for _, chunk := range splitInclusive(text) {
		cleaned := strings.ReplaceAll(chunk, "\r", "")
		trimmed := strings.TrimSuffix(cleaned, "\n")

		if strings.HasPrefix(trimmed, "diff --") {
			if inSegment {
				if err := finalize(); err != nil {
					return nil, err
				}
				inSegment = false
			}
			continue
		}
		if rest, ok := strings.CutPrefix(trimmed, "--- "); ok {
			if inSegment {
				if err := finalize(); err != nil {
					return nil, err
				}
			}
			buffer.Reset()
			buffer.WriteString(cleaned)
			oldLabel = strings.TrimSpace(rest)
			haveOld, haveNew = true, false
			inSegment = true
			continue
		}

		if !inSegment {
			continue
		}

		if !haveNew {
			if rest, ok := strings.CutPrefix(trimmed, "+++ "); ok {
				newLabel = strings.TrimSpace(rest)
				haveNew = true
				buffer.WriteString(cleaned)
				continue
			}
		}

		buffer.WriteString(cleaned)
	}

	if inSegment {
		if err := finalize(); err != nil {
			return nil, err
		}
	}
	return segments, nil
}

// classify maps the header label pair to a patch kind. Equal paths modify,
// unequal paths rename, a /dev/null side creates or deletes, and two
// /dev/null sides are an error.
func classify(oldLabel, newLabel string) (Kind, string, string, error) {
	oldPath := labelToPath(oldLabel)
	newPath := labelToPath(newLabel)
	switch {
	case oldPath != "" && newPath != "":
		if oldPath == newPath {
			return KindModify, oldPath, newPath, nil
		}
		return KindRename, oldPath, newPath, nil
	case oldPath == "" && newPath != "":
		return KindCreate, "", newPath, nil
	case oldPath != "" && newPath == "":
		return KindDelete, oldPath, "", nil
	default:
		return 0, "", "", errors.Errorf("%w: missing both old and new file labels", ErrMalformedPatch)
	}
}

// labelToPath strips git's a/ and b/ prefixes, surrounding quotes, and a
// leading ./ from a header label. /dev/null maps to the empty string.
func labelToPath(label string) string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "/dev/null" {
		return ""
	}
	unquoted := strings.Trim(trimmed, `"`)
	if rest, ok := strings.CutPrefix(unquoted, "a/"); ok {
		unquoted = rest
	} else if rest, ok := strings.CutPrefix(unquoted, "b/"); ok {
		unquoted = rest
	}
	return strings.TrimPrefix(unquoted, "./")
}

func splitInclusive(text string) []string {
	var chunks []string
	for text != "" {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			chunks = append(chunks, text)
			break
		}
		chunks = append(chunks, text[:idx+1])
		text = text[idx+1:]
	}
	return chunks
}
