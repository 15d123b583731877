package textedit

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

const suggestionLimit = 3

// ReplaceOptions configures a regex replace pass. Count, Expect, and
// AfterLine are gates; zero means unset.
type ReplaceOptions struct {
	Pattern       string
	Replacement   string
	AllowCaptures bool
	Count         int
	Expect        int
	AfterLine     int
}

// Replace applies the pattern across the whole text. Matches at or before
// AfterLine are filtered out before Count and Expect are consulted, so a
// replacement budget never gets spent on occurrences the caller asked to
// skip.
func Replace(text string, opts ReplaceOptions) (*Outcome, error) {
	matcher, err := CompilePattern(opts.Pattern)
	if err != nil {
		return nil, err
	}

	var out strings.Builder
	out.Grow(len(text))
	lastEnd := 0
	replacements := 0
	filtered := 0

	var index *lineIndex
	if opts.AfterLine > 0 {
		index = newLineIndex(text)
	}

	for _, match := range matcher.FindAllSubmatchIndex(text) {
		start, end := match[0], match[1]
		if index != nil && index.lineAt(start) <= opts.AfterLine {
			filtered++
			continue
		}
		if opts.Count > 0 && replacements >= opts.Count {
			break
		}

		out.WriteString(text[lastEnd:start])
		if opts.AllowCaptures {
			out.Write(matcher.ExpandString(nil, opts.Replacement, text, match))
		} else {
			out.WriteString(opts.Replacement)
		}
		lastEnd = end
		replacements++
	}

	if replacements == 0 {
		result := &Outcome{FilteredByLine: filtered}
		if opts.AfterLine > 0 && filtered > 0 {
			// Everything matched before the line gate; suggestions would
			// only point at occurrences the caller excluded on purpose.
			return result, nil
		}
		result.Suggestions = Suggest(text, opts.Pattern, suggestionLimit)
		return result, nil
	}

	out.WriteString(text[lastEnd:])

	if opts.Expect > 0 && replacements != opts.Expect {
		return nil, errors.Errorf("%w: expected %d matches but found %d",
			ErrCountMismatch, opts.Expect, replacements)
	}

	newText := out.String()
	if newText == text {
		return &Outcome{Replacements: replacements, FilteredByLine: filtered}, nil
	}
	return &Outcome{
		Changed:        true,
		NewText:        newText,
		Replacements:   replacements,
		FilteredByLine: filtered,
	}, nil
}
