package review

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/fileset"
)

func TestParseRangeSpec(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{name: "colon_separator", spec: "10:20", wantStart: 10, wantEnd: 20},
		{name: "dash_separator", spec: "3-7", wantStart: 3, wantEnd: 7},
		{name: "spaces_tolerated", spec: " 1 : 5 ", wantStart: 1, wantEnd: 5},
		{name: "zero_start_rejected", spec: "0:5", wantErr: true},
		{name: "start_after_end_rejected", spec: "9:2", wantErr: true},
		{name: "three_parts_rejected", spec: "1:2:3", wantErr: true},
		{name: "not_a_number", spec: "a:b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseRangeSpec(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrBadSpec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestParseLineContext(t *testing.T) {
	line, context, err := parseLineContext("42:5")
	require.NoError(t, err)
	assert.Equal(t, 42, line)
	assert.Equal(t, 5, context)

	line, context, err = parseLineContext("7,2")
	require.NoError(t, err)
	assert.Equal(t, 7, line)
	assert.Equal(t, 2, context)

	_, _, err = parseLineContext("0:3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadSpec)

	_, _, err = parseLineContext("42")
	require.Error(t, err)
}

func TestHighlight_MarksEveryMatch(t *testing.T) {
	opts, err := NewOptions(Input{Search: "foo"})
	require.NoError(t, err)
	assert.Equal(t, ">>foo<< bar >>foo<<", opts.highlight("foo bar foo"))
	assert.Equal(t, "no match here", opts.highlight("no match here"))
}

func TestHighlight_RegexMode(t *testing.T) {
	opts, err := NewOptions(Input{Search: `v\d+`, Regex: true})
	require.NoError(t, err)
	assert.Equal(t, "tag >>v12<< released", opts.highlight("tag v12 released"))

	_, err = NewOptions(Input{Search: "(", Regex: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadSpec)
}

func TestNewOptions_DefaultsToHead(t *testing.T) {
	opts, err := NewOptions(Input{})
	require.NoError(t, err)
	require.Len(t, opts.slices, 1)
	assert.Equal(t, sliceHead, opts.slices[0].kind)
	assert.Equal(t, defaultHeadLines, opts.slices[0].count)
}

func TestRender_HeadAndTail(t *testing.T) {
	opts, err := NewOptions(Input{Head: 2, Tail: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	opts.render(&buf, "one\ntwo\nthree\nfour\n")
	out := buf.String()

	assert.Contains(t, out, "-- head (2 lines) --")
	assert.Contains(t, out, "     1 | one")
	assert.Contains(t, out, "     2 | two")
	assert.NotContains(t, out, "     3 | three")
	assert.Contains(t, out, "-- tail (1 lines) --")
	assert.Contains(t, out, "     4 | four")
}

func TestRender_RangeClampsToFile(t *testing.T) {
	opts, err := NewOptions(Input{Lines: "2:99"})
	require.NoError(t, err)

	var buf bytes.Buffer
	opts.render(&buf, "a\nb\nc\n")
	out := buf.String()

	assert.Contains(t, out, "     2 | b")
	assert.Contains(t, out, "     3 | c")
	assert.NotContains(t, out, "     1 | a")
}

func TestRender_AroundLine(t *testing.T) {
	opts, err := NewOptions(Input{Around: "3:1"})
	require.NoError(t, err)

	var buf bytes.Buffer
	opts.render(&buf, "a\nb\nc\nd\ne\n")
	out := buf.String()

	assert.Contains(t, out, "     2 | b")
	assert.Contains(t, out, "     3 | c")
	assert.Contains(t, out, "     4 | d")
	assert.NotContains(t, out, "     1 | a")
	assert.NotContains(t, out, "     5 | e")
}

func TestRender_EmptyFile(t *testing.T) {
	opts, err := NewOptions(Input{})
	require.NoError(t, err)

	var buf bytes.Buffer
	opts.render(&buf, "")
	assert.Contains(t, buf.String(), "(file is empty)")
}

func TestToIndices(t *testing.T) {
	start, end := toIndices(2, 3, 10)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)

	start, end = toIndices(8, 99, 10)
	assert.Equal(t, 7, start)
	assert.Equal(t, 10, end)

	start, end = toIndices(99, 99, 10)
	assert.Equal(t, 9, start)
	assert.Equal(t, 10, end)
}

func reviewEntry(t *testing.T, name, content string) fileset.Entry {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return fileset.Entry{Path: path, Meta: fileset.Metadata{Size: int64(len(content))}}
}

func TestRun_PrintsFileHeaderAndLines(t *testing.T) {
	entry := reviewEntry(t, "notes.txt", "alpha\nbeta\n")
	strategy, err := charset.New("")
	require.NoError(t, err)
	opts, err := NewOptions(Input{Search: "beta"})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Run(context.Background(), []fileset.Entry{entry}, strategy, opts, &buf, bufio.NewReader(strings.NewReader("")))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "=== "+entry.Path+" ===")
	assert.Contains(t, out, "decoded as utf-8")
	assert.Contains(t, out, "     1 | alpha")
	assert.Contains(t, out, "     2 | >>beta<<")
}

func TestRun_SkipsBinaryEntries(t *testing.T) {
	entry := reviewEntry(t, "blob.bin", "a\x00b")
	entry.Meta.ProbablyBinary = true
	strategy, err := charset.New("")
	require.NoError(t, err)
	opts, err := NewOptions(Input{})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Run(context.Background(), []fileset.Entry{entry}, strategy, opts, &buf, bufio.NewReader(strings.NewReader("")))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "skipping (suspected binary file)")
}

func TestRun_StepModeStopsOnQuit(t *testing.T) {
	first := reviewEntry(t, "first.txt", "one\n")
	second := reviewEntry(t, "second.txt", "two\n")
	strategy, err := charset.New("")
	require.NoError(t, err)
	opts, err := NewOptions(Input{Step: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Run(context.Background(), []fileset.Entry{first, second}, strategy, opts, &buf, bufio.NewReader(strings.NewReader("q\n")))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, first.Path)
	assert.NotContains(t, out, second.Path)
}

func TestRun_FollowRequiresSingleFile(t *testing.T) {
	first := reviewEntry(t, "first.txt", "one\n")
	second := reviewEntry(t, "second.txt", "two\n")
	strategy, err := charset.New("")
	require.NoError(t, err)
	opts, err := NewOptions(Input{Follow: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Run(context.Background(), []fileset.Entry{first, second}, strategy, opts, &buf, bufio.NewReader(strings.NewReader("")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFollowNeedsOneFile)
}

func TestRun_FollowRendersUntilCanceled(t *testing.T) {
	entry := reviewEntry(t, "live.txt", "tick\n")
	strategy, err := charset.New("")
	require.NoError(t, err)
	opts, err := NewOptions(Input{Follow: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err = Run(ctx, []fileset.Entry{entry}, strategy, opts, &buf, bufio.NewReader(strings.NewReader("")))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "     1 | tick")
}
