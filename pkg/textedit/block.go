package textedit

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// BlockMode selects how the marker-delimited region is edited.
type BlockMode int

const (
	// BlockReplace swaps the region content for the new body.
	BlockReplace BlockMode = iota
	// BlockInsert fills the region, but only if it is currently blank.
	BlockInsert
)

func (m BlockMode) String() string {
	if m == BlockInsert {
		return "insert"
	}
	return "replace"
}

// BlockOptions configures an edit of the region between the first start
// marker and the first end marker after it.
type BlockOptions struct {
	StartMarker string
	EndMarker   string
	Mode        BlockMode
	Body        string
}

// Block rewrites the marker-delimited region. The body is reshaped to fit
// the document: its line endings follow the document's dominant style, the
// region's leading/trailing linebreak shape is preserved, non-indented body
// lines pick up the start marker's indentation, and a whitespace-only tail
// before the end marker is kept so the end marker stays aligned.
func Block(text string, opts BlockOptions) (*Outcome, error) {
	startPos := strings.Index(text, opts.StartMarker)
	if startPos < 0 {
		return nil, errors.Errorf("%w: start marker %q", ErrMarkerNotFound, opts.StartMarker)
	}
	afterStart := startPos + len(opts.StartMarker)
	relEnd := strings.Index(text[afterStart:], opts.EndMarker)
	if relEnd < 0 {
		return nil, errors.Errorf("%w: end marker %q after start marker", ErrMarkerNotFound, opts.EndMarker)
	}
	endPos := afterStart + relEnd

	existing := text[afterStart:endPos]
	if opts.Mode == BlockInsert && strings.TrimSpace(existing) != "" {
		return nil, errors.Errorf("%w: insert mode requires a blank region between markers", ErrRegionNotEmpty)
	}

	indent := blockIndent(text, startPos)
	desired := adjustBlockBody(existing, opts.Body, text, indent)

	if existing == desired {
		return &Outcome{}, nil
	}

	newText := text[:afterStart] + desired + text[endPos:]
	if newText == text {
		return &Outcome{}, nil
	}
	return &Outcome{Changed: true, NewText: newText, Replacements: 1}, nil
}

func adjustBlockBody(existing, requested, fullText, indent string) string {
	newline := preferredLineEnding(existing, fullText)
	body := normalizeLineEndings(requested)

	if hasLeadingLinebreak(existing) && !strings.HasPrefix(body, "\n") {
		body = "\n" + body
	}
	if hasTrailingLinebreak(existing) && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}

	var rebuilt strings.Builder
	rebuilt.Grow(len(body) + len(indent)*4)

	for _, segment := range splitInclusive(body) {
		line, hasNewline := strings.CutSuffix(segment, "\n")
		if needsIndent(line, indent) {
			rebuilt.WriteString(indent)
		}
		rebuilt.WriteString(line)
		if hasNewline {
			rebuilt.WriteByte('\n')
		}
	}

	result := rebuilt.String()
	if trailing := trailingIndent(existing); trailing != "" {
		if !strings.HasSuffix(result, "\n"+trailing) {
			if !strings.HasSuffix(result, "\n") {
				result += "\n"
			}
			result += trailing
		}
	}

	return restoreLineEndings(result, newline)
}

func preferredLineEnding(block, doc string) string {
	if strings.Contains(block, "\r\n") || strings.Contains(doc, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

func hasLeadingLinebreak(text string) bool {
	return strings.HasPrefix(text, "\r\n") || strings.HasPrefix(text, "\n")
}

func hasTrailingLinebreak(text string) bool {
	if strings.HasSuffix(text, "\r\n") {
		return true
	}
	return strings.HasSuffix(text, "\n")
}

// normalizeLineEndings rewrites CRLF and lone CR to LF.
func normalizeLineEndings(input string) string {
	if input == "" {
		return ""
	}
	input = strings.ReplaceAll(input, "\r\n", "\n")
	return strings.ReplaceAll(input, "\r", "\n")
}

func restoreLineEndings(text, newline string) string {
	if newline == "\n" {
		return text
	}
	return strings.ReplaceAll(text, "\n", newline)
}

// splitInclusive splits text into segments that each keep their trailing
// newline; a final segment without one is included as-is. An empty input
// yields a single empty segment.
func splitInclusive(text string) []string {
	var segments []string
	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			segments = append(segments, text)
			return segments
		}
		segments = append(segments, text[:idx+1])
		text = text[idx+1:]
		if text == "" {
			return segments
		}
	}
}

func needsIndent(line, indent string) bool {
	if indent == "" || line == "" {
		return false
	}
	return line[0] != ' ' && line[0] != '\t'
}

// blockIndent returns the run of spaces and tabs between the start of the
// marker's line and the marker itself.
func blockIndent(text string, markerStart int) string {
	lineStart := 0
	if idx := strings.LastIndexByte(text[:markerStart], '\n'); idx >= 0 {
		lineStart = idx + 1
	}
	prefix := text[lineStart:markerStart]
	for i := 0; i < len(prefix); i++ {
		if prefix[i] != ' ' && prefix[i] != '\t' {
			return prefix[:i]
		}
	}
	return prefix
}

// trailingIndent returns the whitespace-only content after the region's
// last newline, which keeps the end marker's indentation intact.
func trailingIndent(existing string) string {
	pos := strings.LastIndexByte(existing, '\n')
	if pos < 0 {
		return ""
	}
	tail := existing[pos+1:]
	if tail == "" {
		return ""
	}
	for _, ch := range tail {
		if ch != ' ' && ch != '\t' {
			return ""
		}
	}
	return tail
}
