package textedit

import (
	"regexp"
	"testing"

	"github.com/agnivade/levenshtein"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplace_Basics(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		opts     ReplaceOptions
		wantText string
		wantN    int
	}{
		{
			name:     "literal_replace_all",
			text:     "foo bar foo",
			opts:     ReplaceOptions{Pattern: "foo", Replacement: "baz"},
			wantText: "baz bar baz",
			wantN:    2,
		},
		{
			name:     "count_limits_replacements",
			text:     "a a a a",
			opts:     ReplaceOptions{Pattern: "a", Replacement: "b", Count: 2},
			wantText: "b b a a",
			wantN:    2,
		},
		{
			name:     "captures_expand_when_allowed",
			text:     "name=alice",
			opts:     ReplaceOptions{Pattern: `name=(\w+)`, Replacement: "user=$1", AllowCaptures: true},
			wantText: "user=alice",
			wantN:    1,
		},
		{
			name:     "captures_literal_when_not_allowed",
			text:     "name=alice",
			opts:     ReplaceOptions{Pattern: `name=(\w+)`, Replacement: "user=$1"},
			wantText: "user=$1",
			wantN:    1,
		},
		{
			name:     "after_line_skips_early_matches",
			text:     "alpha\nfoo\nbeta\nfoo\n",
			opts:     ReplaceOptions{Pattern: regexp.QuoteMeta("foo"), Replacement: "FOO", AfterLine: 2},
			wantText: "alpha\nfoo\nbeta\nFOO\n",
			wantN:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := Replace(tt.text, tt.opts)
			require.NoError(t, err)
			require.True(t, outcome.Changed)
			assert.Equal(t, tt.wantText, outcome.NewText)
			assert.Equal(t, tt.wantN, outcome.Replacements)
		})
	}
}

func TestReplace_AfterLineFiltersBeforeCount(t *testing.T) {
	// The single budgeted replacement must land on the first eligible
	// match, not on a match the line gate excluded.
	outcome, err := Replace("foo\nfoo\nfoo\n", ReplaceOptions{
		Pattern:     "foo",
		Replacement: "FOO",
		Count:       1,
		AfterLine:   1,
	})
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	assert.Equal(t, "foo\nFOO\nfoo\n", outcome.NewText)
	assert.Equal(t, 1, outcome.FilteredByLine)
}

func TestReplace_NoLateMatchesIsQuietNoOp(t *testing.T) {
	outcome, err := Replace("foo\nfoo\n", ReplaceOptions{
		Pattern:     "foo",
		Replacement: "FOO",
		AfterLine:   5,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, 2, outcome.FilteredByLine)
	assert.Empty(t, outcome.Suggestions)
}

func TestReplace_ExpectMismatch(t *testing.T) {
	_, err := Replace("foo foo", ReplaceOptions{
		Pattern:     "foo",
		Replacement: "bar",
		Expect:      3,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestReplace_ZeroMatchesSkipsExpect(t *testing.T) {
	outcome, err := Replace("nothing here", ReplaceOptions{
		Pattern:     "absent",
		Replacement: "x",
		Expect:      2,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
}

func TestReplace_InvalidPattern(t *testing.T) {
	_, err := Replace("text", ReplaceOptions{Pattern: "(", Replacement: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadPattern)
}

func TestReplace_NoMatchReturnsSuggestions(t *testing.T) {
	outcome, err := Replace("aplha bent\nalpha bear\n", ReplaceOptions{
		Pattern:     regexp.QuoteMeta("alpha beta"),
		Replacement: "x",
	})
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	require.NotEmpty(t, outcome.Suggestions)
	assert.Equal(t, 2, outcome.Suggestions[0].Line)
}

func TestBlock_ReplaceSwapsBody(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts BlockOptions
		want string
	}{
		{
			name: "multiline_body",
			text: "/*start*/\nold\n/*end*/",
			opts: BlockOptions{StartMarker: "/*start*/", EndMarker: "/*end*/", Body: "\nnew\n"},
			want: "/*start*/\nnew\n/*end*/",
		},
		{
			name: "injects_missing_linebreaks",
			text: "// begin\nold\n// end\n",
			opts: BlockOptions{StartMarker: "// begin", EndMarker: "// end", Body: "updated line"},
			want: "// begin\nupdated line\n// end\n",
		},
		{
			name: "inline_region_stays_flat",
			text: "/*start*/old/*end*/",
			opts: BlockOptions{StartMarker: "/*start*/", EndMarker: "/*end*/", Body: "new"},
			want: "/*start*/new/*end*/",
		},
		{
			name: "body_picks_up_marker_indent",
			text: "  // begin\nold\n  // end\n",
			opts: BlockOptions{StartMarker: "// begin", EndMarker: "// end", Body: "\nfresh\n"},
			want: "  // begin\n  fresh\n  // end\n",
		},
		{
			name: "crlf_document_keeps_crlf",
			text: "// begin\r\nold\r\n// end\r\n",
			opts: BlockOptions{StartMarker: "// begin", EndMarker: "// end", Body: "new"},
			want: "// begin\r\nnew\r\n// end\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := Block(tt.text, tt.opts)
			require.NoError(t, err)
			require.True(t, outcome.Changed)
			assert.Equal(t, tt.want, outcome.NewText)
		})
	}
}

func TestBlock_NoChangeWhenRegionMatches(t *testing.T) {
	outcome, err := Block("/*start*/\nsame\n/*end*/", BlockOptions{
		StartMarker: "/*start*/",
		EndMarker:   "/*end*/",
		Body:        "\nsame\n",
	})
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
}

func TestBlock_MarkerErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts BlockOptions
	}{
		{
			name: "missing_start_marker",
			text: "no markers here",
			opts: BlockOptions{StartMarker: "<<", EndMarker: ">>"},
		},
		{
			name: "end_marker_only_before_start",
			text: ">> content <<",
			opts: BlockOptions{StartMarker: "<<", EndMarker: ">>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Block(tt.text, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMarkerNotFound)
		})
	}
}

func TestBlock_InsertRequiresBlankRegion(t *testing.T) {
	_, err := Block("// begin\nkeep\n// end", BlockOptions{
		StartMarker: "// begin",
		EndMarker:   "// end",
		Mode:        BlockInsert,
		Body:        "\nnew\n",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegionNotEmpty)
}

func TestBlock_InsertFillsBlankRegion(t *testing.T) {
	outcome, err := Block("// begin\n\n// end\n", BlockOptions{
		StartMarker: "// begin",
		EndMarker:   "// end",
		Mode:        BlockInsert,
		Body:        "\nfilled\n",
	})
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	assert.Equal(t, "// begin\nfilled\n// end\n", outcome.NewText)
}

func TestRename_WordBoundaryAndCaseAware(t *testing.T) {
	outcome, err := Rename("Foo foo FOO", RenameOptions{
		From:         "foo",
		To:           "bar",
		WordBoundary: true,
		CaseAware:    true,
	})
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	assert.Equal(t, "Bar bar BAR", outcome.NewText)
	assert.Equal(t, 3, outcome.Replacements)
}

func TestRename_WordBoundaryGuardsSubstrings(t *testing.T) {
	outcome, err := Rename("foobar foo", RenameOptions{
		From:         "foo",
		To:           "baz",
		WordBoundary: true,
	})
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	assert.Equal(t, "foobar baz", outcome.NewText)
}

func TestRename_NoMatchReturnsSuggestions(t *testing.T) {
	outcome, err := Rename("alpha beta", RenameOptions{
		From:         "nope",
		To:           "noop",
		WordBoundary: true,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
}

func TestDetectCaseKind(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want caseKind
	}{
		{name: "upper", in: "FOO", want: caseUpper},
		{name: "lower", in: "foo", want: caseLower},
		{name: "capitalized", in: "Foo", want: caseCapitalized},
		{name: "mixed", in: "fOo", want: caseMixed},
		{name: "no_alpha", in: "123", want: caseMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCaseKind(tt.in))
		})
	}
}

func TestSuggest_OrdersByScore(t *testing.T) {
	text := "alpha beta\naplha bent\nsomething else"
	suggestions := Suggest(text, "alpha beta", 2)
	require.Len(t, suggestions, 2)
	assert.Equal(t, 1, suggestions[0].Line)
	assert.Equal(t, 0, suggestions[0].Score)
	assert.Equal(t, 2, suggestions[1].Line)
	assert.Greater(t, suggestions[1].Score, 0)
}

func TestSuggest_HandlesMultibyteChars(t *testing.T) {
	suggestions := Suggest("café example", "cafe", 1)
	require.Len(t, suggestions, 1)
	assert.Equal(t, 1, suggestions[0].Column)
	assert.LessOrEqual(t, suggestions[0].Score, 1)
}

func TestSuggest_EmptyPattern(t *testing.T) {
	assert.Empty(t, Suggest("anything", "", 3))
}

func TestSuggest_DistanceIsAMetric(t *testing.T) {
	samples := []string{"", "a", "alpha", "alpah", "alpha beta", "beta", "café", "caffée"}
	for _, a := range samples {
		assert.Zero(t, levenshtein.ComputeDistance(a, a))
		for _, b := range samples {
			ab := levenshtein.ComputeDistance(a, b)
			assert.Equal(t, ab, levenshtein.ComputeDistance(b, a), "d(%q,%q)", a, b)
			for _, c := range samples {
				ac := levenshtein.ComputeDistance(a, c)
				cb := levenshtein.ComputeDistance(c, b)
				assert.LessOrEqual(t, ab, ac+cb, "d(%q,%q) via %q", a, b, c)
			}
		}
	}
}

func TestSuggestionHint_MarksVariances(t *testing.T) {
	s := Suggestion{Snippet: "alpha"}
	patternView, markers := s.Hint("alpah")
	assert.Equal(t, "alpah", patternView)
	assert.Equal(t, "   ^^", markers)
}

func TestLineIndex(t *testing.T) {
	index := newLineIndex("one\ntwo\nthree")
	assert.Equal(t, 1, index.lineAt(0))
	assert.Equal(t, 1, index.lineAt(3))
	assert.Equal(t, 2, index.lineAt(4))
	assert.Equal(t, 3, index.lineAt(8))
}

func TestNormalize(t *testing.T) {
	detectAll := NormalizeOptions{
		DetectZeroWidth:     true,
		DetectControl:       true,
		DetectTrailingSpace: true,
		DetectFinalNewline:  true,
	}

	t.Run("missing_final_newline_reported", func(t *testing.T) {
		outcome := Normalize("no newline", detectAll)
		require.NotNil(t, outcome.Report.MissingFinalNewline)
		assert.True(t, *outcome.Report.MissingFinalNewline)
		assert.False(t, outcome.Changed)
	})

	t.Run("detection_can_be_disabled", func(t *testing.T) {
		opts := detectAll
		opts.DetectZeroWidth = false
		outcome := Normalize("a\u200Bb", opts)
		assert.Nil(t, outcome.Report.ZeroWidth)
	})

	t.Run("zero_width_counted_and_stripped", func(t *testing.T) {
		opts := detectAll
		opts.StripZeroWidth = true
		outcome := Normalize("a\u200Bb\uFEFFc", opts)
		require.NotNil(t, outcome.Report.ZeroWidth)
		assert.Equal(t, 2, *outcome.Report.ZeroWidth)
		require.True(t, outcome.Changed)
		assert.Equal(t, "abc", outcome.Cleaned)
	})

	t.Run("trim_trailing_space_handles_crlf", func(t *testing.T) {
		opts := detectAll
		opts.TrimTrailingSpace = true
		outcome := Normalize("hello  \r\nworld\t \r\n", opts)
		require.True(t, outcome.Changed)
		assert.Equal(t, "hello\r\nworld\r\n", outcome.Cleaned)
	})

	t.Run("ensure_eol_appends_newline", func(t *testing.T) {
		outcome := Normalize("tail", NormalizeOptions{EnsureEOL: true})
		require.True(t, outcome.Changed)
		assert.Equal(t, "tail\n", outcome.Cleaned)
	})

	t.Run("control_chars_counted", func(t *testing.T) {
		outcome := Normalize("a\x00b\tc\n", detectAll)
		require.NotNil(t, outcome.Report.ControlChars)
		assert.Equal(t, 1, *outcome.Report.ControlChars)
	})
}
