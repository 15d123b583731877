// Package textedit holds the pure text transforms: regex replace,
// marker-delimited block edits, token rename, and whitespace
// normalization. Transforms never touch the filesystem; they take decoded
// text and return a candidate rewrite, or report "no change" together with
// fuzzy suggestions for the pattern that failed to match.
package textedit

import (
	"regexp"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrBadPattern wraps a pattern that does not compile.
	ErrBadPattern = errors.Base("invalid pattern")
	// ErrCountMismatch is returned when --expect disagrees with the number
	// of replacements actually made.
	ErrCountMismatch = errors.Base("replacement count mismatch")
	// ErrMarkerNotFound is returned when a block marker is absent.
	ErrMarkerNotFound = errors.Base("marker not found")
	// ErrRegionNotEmpty is returned by insert mode when the block region
	// already has content.
	ErrRegionNotEmpty = errors.Base("block region not empty")
)

// Outcome is the result of one transform over one file's text. Changed is
// false when the transform decided the text should stay as it is; in that
// case Suggestions may carry near-miss candidates for the failed pattern.
type Outcome struct {
	Changed        bool
	NewText        string
	Replacements   int
	FilteredByLine int
	Suggestions    []Suggestion
}

// TextMatcher is the matching capability the transforms depend on. The
// stdlib regexp engine is the only backend; the seam keeps it swappable.
type TextMatcher interface {
	// FindAllSubmatchIndex returns every match as pairs of byte offsets,
	// group 0 first, in left-to-right order.
	FindAllSubmatchIndex(text string) [][]int
	// ExpandString appends the capture-expanded template for one match.
	ExpandString(dst []byte, template, text string, match []int) []byte
}

type regexpMatcher struct {
	re *regexp.Regexp
}

func (m *regexpMatcher) FindAllSubmatchIndex(text string) [][]int {
	return m.re.FindAllStringSubmatchIndex(text, -1)
}

func (m *regexpMatcher) ExpandString(dst []byte, template, text string, match []int) []byte {
	return m.re.ExpandString(dst, template, text, match)
}

// CompilePattern builds the matcher for a regex pattern.
func CompilePattern(pattern string) (TextMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("%w: %v", ErrBadPattern, err)
	}
	return &regexpMatcher{re: re}, nil
}

// lineIndex maps byte offsets to 1-based line numbers via a precomputed
// sorted list of line start offsets.
type lineIndex struct {
	starts []int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && i+1 <= len(text) {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts}
}

// lineAt returns the 1-based line number containing the byte offset.
func (ix *lineIndex) lineAt(offset int) int {
	lo, hi := 0, len(ix.starts)
	for lo < hi {
		mid := (lo + hi) / 2
		if ix.starts[mid] <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
