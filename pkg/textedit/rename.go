package textedit

import (
	"regexp"
	"strings"
	"unicode"

	"gitlab.com/tozd/go/errors"
)

// RenameOptions configures a literal token rename.
type RenameOptions struct {
	From         string
	To           string
	WordBoundary bool
	CaseAware    bool
}

// Rename replaces every occurrence of the literal From token. With
// CaseAware the match is case-insensitive and the replacement is reshaped
// to the case of each matched occurrence.
func Rename(text string, opts RenameOptions) (*Outcome, error) {
	pattern := regexp.QuoteMeta(opts.From)
	if opts.WordBoundary {
		pattern = `\b` + pattern + `\b`
	}
	if opts.CaseAware {
		pattern = `(?i)` + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("%w: %v", ErrBadPattern, err)
	}

	matches := 0
	replaced := re.ReplaceAllStringFunc(text, func(matched string) string {
		matches++
		if opts.CaseAware {
			return adjustCase(matched, opts.To)
		}
		return opts.To
	})

	if matches == 0 {
		return &Outcome{Suggestions: Suggest(text, opts.From, suggestionLimit)}, nil
	}
	if replaced == text {
		return &Outcome{Replacements: matches}, nil
	}
	return &Outcome{Changed: true, NewText: replaced, Replacements: matches}, nil
}

type caseKind int

const (
	caseUpper caseKind = iota
	caseLower
	caseCapitalized
	caseMixed
)

// adjustCase reshapes target to match the case pattern of source.
func adjustCase(source, target string) string {
	switch detectCaseKind(source) {
	case caseUpper:
		return strings.ToUpper(target)
	case caseLower:
		return strings.ToLower(target)
	case caseCapitalized:
		return capitalize(target)
	default:
		return target
	}
}

func capitalize(value string) string {
	var out strings.Builder
	out.Grow(len(value))
	for i, ch := range value {
		if i == 0 {
			out.WriteRune(unicode.ToUpper(ch))
		} else {
			out.WriteRune(unicode.ToLower(ch))
		}
	}
	return out.String()
}

func detectCaseKind(text string) caseKind {
	hasAlpha := false
	allUpper := true
	allLower := true
	first := true
	firstUpper := false
	restHasUpper := false

	for _, ch := range text {
		if unicode.IsLetter(ch) {
			hasAlpha = true
			switch {
			case unicode.IsUpper(ch):
				allLower = false
			case unicode.IsLower(ch):
				allUpper = false
			default:
				allUpper = false
				allLower = false
			}
			if !first && unicode.IsUpper(ch) {
				restHasUpper = true
			}
		}
		if first {
			firstUpper = unicode.IsUpper(ch)
		}
		first = false
	}

	switch {
	case !hasAlpha:
		return caseMixed
	case allUpper:
		return caseUpper
	case allLower:
		return caseLower
	case firstUpper && !restHasUpper:
		return caseCapitalized
	default:
		return caseMixed
	}
}
