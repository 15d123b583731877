package diffview

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMyersDiffer_BasicOps(t *testing.T) {
	ops := MyersDiffer{}.DiffLines("a\nb\nc\n", "a\nB\nc\n")
	require.Len(t, ops, 3)
	assert.Equal(t, TagEqual, ops[0].Tag)
	assert.Equal(t, TagReplace, ops[1].Tag)
	assert.Equal(t, 1, ops[1].OldStart)
	assert.Equal(t, 2, ops[1].OldEnd)
	assert.Equal(t, TagEqual, ops[2].Tag)
}

func TestMyersDiffer_InsertOnly(t *testing.T) {
	ops := MyersDiffer{}.DiffLines("a\nc\n", "a\nb\nc\n")
	var inserts []Op
	for _, op := range ops {
		if op.Tag == TagInsert {
			inserts = append(inserts, op)
		}
	}
	require.Len(t, inserts, 1)
	assert.Equal(t, 1, inserts[0].NewStart)
	assert.Equal(t, 2, inserts[0].NewEnd)
}

func TestMyersDiffer_MergesInterleavedChangeRuns(t *testing.T) {
	ops := MyersDiffer{}.DiffLines("a\nb\nc\nd\n", "a\nX\nY\nd\n")
	require.Len(t, ops, 3)
	assert.Equal(t, TagEqual, ops[0].Tag)
	assert.Equal(t, TagReplace, ops[1].Tag)
	assert.Equal(t, 1, ops[1].OldStart)
	assert.Equal(t, 3, ops[1].OldEnd)
	assert.Equal(t, 1, ops[1].NewStart)
	assert.Equal(t, 3, ops[1].NewEnd)
	assert.Equal(t, TagEqual, ops[2].Tag)
}

func TestCoalesceReplacements_FoldsWholeRun(t *testing.T) {
	ops := []Op{
		{Tag: TagEqual, OldStart: 0, OldEnd: 1, NewStart: 0, NewEnd: 1},
		{Tag: TagDelete, OldStart: 1, OldEnd: 2, NewStart: 1, NewEnd: 1},
		{Tag: TagInsert, OldStart: 2, OldEnd: 2, NewStart: 1, NewEnd: 2},
		{Tag: TagDelete, OldStart: 2, OldEnd: 3, NewStart: 2, NewEnd: 2},
		{Tag: TagInsert, OldStart: 3, OldEnd: 3, NewStart: 2, NewEnd: 3},
		{Tag: TagEqual, OldStart: 3, OldEnd: 4, NewStart: 3, NewEnd: 4},
	}
	merged := coalesceReplacements(ops)
	require.Len(t, merged, 3)
	assert.Equal(t, Op{Tag: TagReplace, OldStart: 1, OldEnd: 3, NewStart: 1, NewEnd: 3}, merged[1])

	deleteOnly := []Op{
		{Tag: TagDelete, OldStart: 0, OldEnd: 1, NewStart: 0, NewEnd: 0},
		{Tag: TagDelete, OldStart: 1, OldEnd: 2, NewStart: 0, NewEnd: 0},
	}
	merged = coalesceReplacements(deleteOnly)
	require.Len(t, merged, 1)
	assert.Equal(t, TagDelete, merged[0].Tag)
	assert.Equal(t, 2, merged[0].OldEnd)
}

func TestRender_TrimsContext(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 20; i++ {
		oldLines = append(oldLines, "same")
		newLines = append(newLines, "same")
	}
	oldLines[10] = "before"
	newLines[10] = "after"

	rendered := Render(strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n", Config{Context: 2})
	require.NotEmpty(t, rendered.Lines)
	assert.Contains(t, rendered.Lines, "- before")
	assert.Contains(t, rendered.Lines, "+ after")
	// 2 context above + change pair + 2 context below.
	assert.Len(t, rendered.Lines, 6)
	assert.Empty(t, rendered.Warning())
}

func TestRender_ElidesBetweenGroups(t *testing.T) {
	var oldLines []string
	for i := 0; i < 50; i++ {
		oldLines = append(oldLines, "same")
	}
	newLines := make([]string, len(oldLines))
	copy(newLines, oldLines)
	oldLines[5] = "first old"
	newLines[5] = "first new"
	oldLines[45] = "second old"
	newLines[45] = "second new"

	rendered := Render(strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n", Config{Context: 2})
	assert.Contains(t, rendered.Lines, "...")
}

func TestRender_LineCap(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < maxRenderLines+100; i++ {
		oldLines = append(oldLines, "old line")
		newLines = append(newLines, "new line")
	}

	rendered := Render(strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n", Config{Context: 0})
	assert.Len(t, rendered.Lines, maxRenderLines)
	assert.Contains(t, rendered.Warning(), "diff truncated")
	assert.Contains(t, rendered.CapNotice, "lines")
}

func TestRender_LongLineTruncated(t *testing.T) {
	longLine := strings.Repeat("x", maxLineBytes+10)
	rendered := Render("short\n", longLine+"\n", Config{})
	assert.Equal(t, 1, rendered.LongLines)
	found := false
	for _, line := range rendered.Lines {
		if strings.HasSuffix(line, truncatedLineSuffix) {
			found = true
		}
	}
	assert.True(t, found)
	assert.Contains(t, rendered.Warning(), "long line(s)")
}

func TestRender_NoChangesRendersNothing(t *testing.T) {
	rendered := Render("same\n", "same\n", Config{Context: 3})
	assert.Empty(t, rendered.Lines)
	assert.Empty(t, rendered.Warning())
}

func TestSpans(t *testing.T) {
	ops := MyersDiffer{}.DiffLines("a\nb\nc\nd\n", "a\nB\nc\nd\ne\n")
	spans := Spans(ops)
	require.Len(t, spans, 2)
	assert.Equal(t, SpanModified, spans[0].Kind)
	assert.Equal(t, 2, spans[0].Start)
	assert.Equal(t, 2, spans[0].End)
	assert.Equal(t, SpanAdded, spans[1].Kind)
	assert.Equal(t, 5, spans[1].Start)
}

func TestSpans_StayDisjointAndAscending(t *testing.T) {
	ops := []Op{
		{Tag: TagReplace, OldStart: 0, OldEnd: 3, NewStart: 0, NewEnd: 2},
		{Tag: TagInsert, OldStart: 3, OldEnd: 3, NewStart: 2, NewEnd: 4},
	}
	spans := Spans(ops)
	require.Len(t, spans, 2)
	lastEnd := 0
	for _, span := range spans {
		assert.Greater(t, span.Start, lastEnd)
		assert.GreaterOrEqual(t, span.End, span.Start)
		lastEnd = span.End
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want string
	}{
		{name: "no_change", old: "a\n", new: "a\n", want: "no-change"},
		{name: "single_line_modify", old: "a\nb\nc\n", new: "a\nB\nc\n", want: "L2"},
		{name: "range_modify", old: "a\nb\nc\nd\n", new: "a\nX\nY\nd\n", want: "L2-L3"},
		{name: "pure_addition", old: "a\n", new: "a\nb\n", want: "+L2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.old, tt.new, nil))
		})
	}
}

func TestUnified_RoundTripsThroughLabels(t *testing.T) {
	old := "a\nb\nc\n"
	new := "a\nB\nc\n"
	text := Unified("a/f.txt", "b/f.txt", old, new, 3, nil)
	assert.True(t, strings.HasPrefix(text, "--- a/f.txt\n+++ b/f.txt\n"))
	assert.Contains(t, text, "@@ -1,3 +1,3 @@")
	assert.Contains(t, text, "-b\n")
	assert.Contains(t, text, "+B\n")
}

func TestUnified_MarksMissingFinalNewline(t *testing.T) {
	text := Unified("a/f.txt", "b/f.txt", "line\n", "line", 3, nil)
	assert.Contains(t, text, noNewlineMarker)
}

func TestUnified_EmptyForIdenticalTexts(t *testing.T) {
	assert.Empty(t, Unified("a/f.txt", "b/f.txt", "same\n", "same\n", 3, nil))
}

func TestShow_InlineWhenShort(t *testing.T) {
	rendered := &Rendered{Lines: []string{"- old", "+ new"}}
	var out strings.Builder
	err := Show(rendered, Config{}, &out, bufio.NewReader(strings.NewReader("")))
	require.NoError(t, err)
	assert.Equal(t, "- old\n+ new\n", out.String())
}

func TestShow_NotesSuppressedPager(t *testing.T) {
	lines := make([]string, pageSize+1)
	for i := range lines {
		lines[i] = "x"
	}
	rendered := &Rendered{Lines: lines}
	var out strings.Builder
	err := Show(rendered, Config{Pager: PagerAuto, Interactive: false}, &out, bufio.NewReader(strings.NewReader("")))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "pager disabled in non-interactive mode")
}

func TestPager_QuitStopsOutput(t *testing.T) {
	lines := make([]string, pageSize*2)
	for i := range lines {
		lines[i] = "line"
	}
	var out strings.Builder
	err := runPager(lines, &out, bufio.NewReader(strings.NewReader("q\n")))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "page 1/2")
	assert.NotContains(t, out.String(), "page 2/2")
}

func TestPager_NextAdvances(t *testing.T) {
	lines := make([]string, pageSize+10)
	for i := range lines {
		lines[i] = "line"
	}
	var out strings.Builder
	err := runPager(lines, &out, bufio.NewReader(strings.NewReader("n\nq\n")))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "page 2/2")
}
