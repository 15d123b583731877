package textedit

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Suggestion is a near-miss candidate for a pattern that matched nothing.
// Line and Column are 1-based; Column counts codepoints, not bytes.
type Suggestion struct {
	Score    int
	Line     int
	Column   int
	LineText string
	Snippet  string
}

// Hint renders the pattern under the snippet with a caret marker per
// mismatched position, for printing below the suggestion line.
func (s Suggestion) Hint(pattern string) (patternView, markerLine string) {
	snippetChars := []rune(s.Snippet)
	patternChars := []rune(pattern)
	width := len(snippetChars)
	if len(patternChars) > width {
		width = len(patternChars)
	}
	var markers strings.Builder
	markers.Grow(width)
	for i := 0; i < width; i++ {
		sc, pc := ' ', ' '
		if i < len(snippetChars) {
			sc = snippetChars[i]
		}
		if i < len(patternChars) {
			pc = patternChars[i]
		}
		if sc == pc {
			markers.WriteByte(' ')
		} else {
			markers.WriteByte('^')
		}
	}
	return pattern, markers.String()
}

// Suggest scans every line for the window closest to the pattern by edit
// distance and returns the top candidates ordered by (score, line, column).
func Suggest(text, pattern string, limit int) []Suggestion {
	if pattern == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		// Split leaves a phantom empty line after a trailing newline.
		lines = lines[:len(lines)-1]
	}

	var suggestions []Suggestion
	for lineIdx, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if score, column, snippet, ok := bestWindow(line, pattern); ok {
			suggestions = append(suggestions, Suggestion{
				Score:    score,
				Line:     lineIdx + 1,
				Column:   column + 1,
				LineText: line,
				Snippet:  snippet,
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// bestWindow slides two window sizes over the line, the pattern's codepoint
// length and that plus two, and keeps the lowest-scoring window. Ties go to
// the earliest start, then the shortest snippet.
func bestWindow(line, pattern string) (score, column int, snippet string, ok bool) {
	if line == "" {
		return 0, 0, "", false
	}

	lineChars := []rune(line)
	patLen := len([]rune(pattern))
	if patLen < 1 {
		patLen = 1
	}

	bestScore, bestStart := 0, 0
	var bestSnippet string
	found := false

	for start := 0; start < len(lineChars); start++ {
		for _, length := range [2]int{patLen, patLen + 2} {
			end := start + length
			if end > len(lineChars) {
				end = len(lineChars)
			}
			if end <= start {
				continue
			}
			candidate := string(lineChars[start:end])
			candidateScore := levenshtein.ComputeDistance(candidate, pattern)

			better := !found ||
				candidateScore < bestScore ||
				(candidateScore == bestScore &&
					(start < bestStart ||
						(start == bestStart && len(candidate) < len(bestSnippet))))
			if better {
				bestScore, bestStart, bestSnippet = candidateScore, start, candidate
				found = true
			}
		}
	}

	if !found {
		return 0, 0, "", false
	}
	return bestScore, bestStart, bestSnippet, true
}
