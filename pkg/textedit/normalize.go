package textedit

import "strings"

// NormalizeOptions selects which hygiene problems to detect and which to
// fix. Detection and stripping are independent so a dry scan can report
// without touching the text.
type NormalizeOptions struct {
	StripZeroWidth    bool
	StripControl      bool
	TrimTrailingSpace bool
	EnsureEOL         bool

	DetectZeroWidth     bool
	DetectControl       bool
	DetectTrailingSpace bool
	DetectFinalNewline  bool
}

// NormalizeReport carries per-problem counts. A nil field means that
// detection was not requested.
type NormalizeReport struct {
	ZeroWidth           *int  `json:"zero_width,omitempty"`
	ControlChars        *int  `json:"control_chars,omitempty"`
	TrailingSpaces      *int  `json:"trailing_spaces,omitempty"`
	MissingFinalNewline *bool `json:"missing_final_newline,omitempty"`
}

// NormalizeOutcome pairs the report with the cleaned text. Changed is false
// when no fix altered anything.
type NormalizeOutcome struct {
	Report  NormalizeReport
	Changed bool
	Cleaned string
}

// Normalize scans the text for zero-width characters, stray control
// characters, and trailing whitespace, stripping or trimming them as
// requested. Tabs, CR, and LF never count as control characters.
func Normalize(text string, opts NormalizeOptions) NormalizeOutcome {
	var report NormalizeReport
	if opts.DetectZeroWidth {
		report.ZeroWidth = new(int)
	}
	if opts.DetectControl {
		report.ControlChars = new(int)
	}
	if opts.DetectTrailingSpace {
		report.TrailingSpaces = new(int)
	}
	if opts.DetectFinalNewline {
		missing := text != "" && !strings.HasSuffix(text, "\n")
		report.MissingFinalNewline = &missing
	}

	var cleaned strings.Builder
	cleaned.Grow(len(text))
	var lineBuffer []rune
	changed := false

	flush := func(appendNewline bool) {
		hadCR := false
		if n := len(lineBuffer); n > 0 && lineBuffer[n-1] == '\r' {
			lineBuffer = lineBuffer[:n-1]
			hadCR = true
		}

		if opts.DetectTrailingSpace || opts.TrimTrailingSpace {
			trailing := countTrailingWhitespace(lineBuffer)
			if report.TrailingSpaces != nil {
				*report.TrailingSpaces += trailing
			}
			if opts.TrimTrailingSpace && trailing > 0 {
				lineBuffer = lineBuffer[:len(lineBuffer)-trailing]
				changed = true
			}
		}

		if hadCR {
			lineBuffer = append(lineBuffer, '\r')
		}
		if len(lineBuffer) > 0 || appendNewline {
			cleaned.WriteString(string(lineBuffer))
			if appendNewline {
				cleaned.WriteByte('\n')
			}
		}
		lineBuffer = lineBuffer[:0]
	}

	for _, ch := range text {
		if ch == '\n' {
			flush(true)
			continue
		}

		if isZeroWidthChar(ch) {
			if report.ZeroWidth != nil {
				*report.ZeroWidth++
			}
			if opts.StripZeroWidth {
				changed = true
				continue
			}
		}

		if isStrayControlChar(ch) {
			if report.ControlChars != nil {
				*report.ControlChars++
			}
			if opts.StripControl {
				changed = true
				continue
			}
		}

		lineBuffer = append(lineBuffer, ch)
	}
	flush(false)

	result := cleaned.String()
	if opts.EnsureEOL && !strings.HasSuffix(result, "\n") {
		result += "\n"
		changed = true
	}

	if changed || result != text {
		return NormalizeOutcome{Report: report, Changed: true, Cleaned: result}
	}
	return NormalizeOutcome{Report: report}
}

// isZeroWidthChar reports ZWSP, ZWNJ, ZWJ, and the BOM codepoint.
func isZeroWidthChar(ch rune) bool {
	switch ch {
	case '\u200B', '\u200C', '\u200D', '\uFEFF':
		return true
	}
	return false
}

func isStrayControlChar(ch rune) bool {
	if ch == '\n' || ch == '\t' || ch == '\r' {
		return false
	}
	return ch < 0x20 || ch == 0x7F || (ch >= 0x80 && ch <= 0x9F)
}

func countTrailingWhitespace(line []rune) int {
	count := 0
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] != ' ' && line[i] != '\t' {
			break
		}
		count++
	}
	return count
}
