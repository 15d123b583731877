// Package review renders read-only slices of files for inspection before
// an edit: head/tail windows, explicit line ranges, context around a
// line, and literal or regex search highlighting. Follow mode polls a
// single file and re-renders when it changes.
package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/redline/pkg/charset"
	"github.com/walteh/redline/pkg/fileset"
)

const (
	defaultHeadLines = 40
	followInterval   = 750 * time.Millisecond
)

var (
	// ErrBadSpec wraps an unparsable range or around spec.
	ErrBadSpec = errors.Base("invalid review spec")
	// ErrFollowNeedsOneFile is returned when --follow resolves to more
	// than one file.
	ErrFollowNeedsOneFile = errors.Base("follow requires exactly one resolved file")
)

// Input is the raw review request as collected from flags. Zero Head and
// Tail mean unset.
type Input struct {
	Head     int
	Tail     int
	Lines    string
	Around   string
	Follow   bool
	Step     bool
	Search   string
	Regex    bool
	Colorize bool
}

type sliceKind int

const (
	sliceHead sliceKind = iota
	sliceTail
	sliceRange
	sliceAround
)

type slice struct {
	kind    sliceKind
	count   int
	start   int
	end     int
	line    int
	context int
}

// Options is a validated review request.
type Options struct {
	slices   []slice
	matcher  *regexp.Regexp
	follow   bool
	step     bool
	colorize bool
}

// NewOptions validates the input. With no explicit slice requested the
// default is a head window.
func NewOptions(input Input) (*Options, error) {
	var slices []slice

	if input.Lines != "" {
		start, end, err := parseRangeSpec(input.Lines)
		if err != nil {
			return nil, err
		}
		slices = append(slices, slice{kind: sliceRange, start: start, end: end})
	}
	if input.Around != "" {
		line, context, err := parseLineContext(input.Around)
		if err != nil {
			return nil, err
		}
		slices = append(slices, slice{kind: sliceAround, line: line, context: context})
	}
	if input.Head > 0 {
		slices = append(slices, slice{kind: sliceHead, count: input.Head})
	}
	if input.Tail > 0 {
		slices = append(slices, slice{kind: sliceTail, count: input.Tail})
	}
	if len(slices) == 0 {
		slices = append(slices, slice{kind: sliceHead, count: defaultHeadLines})
	}

	matcher, err := buildMatcher(input.Search, input.Regex)
	if err != nil {
		return nil, err
	}

	return &Options{
		slices:   slices,
		matcher:  matcher,
		follow:   input.Follow,
		step:     input.Step,
		colorize: input.Colorize,
	}, nil
}

// Follow reports whether follow mode was requested.
func (o *Options) Follow() bool { return o.follow }

// Run reviews each entry in order. In step mode the loop pauses between
// files; in follow mode the single file is re-rendered whenever its
// content changes, until the context is canceled.
func Run(ctx context.Context, entries []fileset.Entry, strategy *charset.Strategy, opts *Options, out io.Writer, in *bufio.Reader) error {
	if opts.follow {
		if len(entries) != 1 {
			return errors.WithStack(ErrFollowNeedsOneFile)
		}
		return followFile(ctx, entries[0], strategy, opts, out)
	}

	for i, entry := range entries {
		if err := reviewFile(entry, strategy, opts, out); err != nil {
			return err
		}
		if opts.step && i < len(entries)-1 {
			fmt.Fprint(out, "-- press enter for the next file, q to stop: ")
			input, err := in.ReadString('\n')
			if err != nil && input == "" {
				return nil
			}
			if strings.HasPrefix(strings.TrimSpace(strings.ToLower(input)), "q") {
				return nil
			}
		}
	}
	return nil
}

func reviewFile(entry fileset.Entry, strategy *charset.Strategy, opts *Options, out io.Writer) error {
	fmt.Fprintf(out, "=== %s ===\n", entry.Path)

	if entry.Meta.ProbablyBinary {
		fmt.Fprintln(out, "skipping (suspected binary file)")
		return nil
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return errors.Errorf("reading %s: %w", entry.Path, err)
	}
	decoded := strategy.Decode(data)

	hadErrors := "no"
	if decoded.HadErrors {
		hadErrors = "yes"
	}
	fmt.Fprintf(out, "decoded as %s via %s (errors: %s)\n",
		decoded.Decision.Name, decoded.Decision.Source, hadErrors)

	opts.render(out, decoded.Text)
	return nil
}

func followFile(ctx context.Context, entry fileset.Entry, strategy *charset.Strategy, opts *Options, out io.Writer) error {
	logger := zerolog.Ctx(ctx)
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	var last string
	first := true
	for {
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return errors.Errorf("reading %s: %w", entry.Path, err)
		}
		text := strategy.Decode(data).Text
		if first || text != last {
			if !first {
				fmt.Fprintln(out, "-- file changed --")
			}
			fmt.Fprintf(out, "=== %s ===\n", entry.Path)
			opts.render(out, text)
			last = text
			first = false
		}

		select {
		case <-ctx.Done():
			logger.Debug().Msg("follow stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (o *Options) render(out io.Writer, text string) {
	lines := splitLines(text)
	if len(lines) == 0 {
		fmt.Fprintln(out, "(file is empty)")
		return
	}

	for _, s := range o.slices {
		switch s.kind {
		case sliceHead:
			fmt.Fprintf(out, "-- head (%d lines) --\n", s.count)
			end := min(s.count, len(lines))
			o.printLines(out, lines, 0, end)
		case sliceTail:
			fmt.Fprintf(out, "-- tail (%d lines) --\n", s.count)
			start := max(len(lines)-s.count, 0)
			o.printLines(out, lines, start, len(lines))
		case sliceRange:
			fmt.Fprintf(out, "-- lines %d to %d --\n", s.start, s.end)
			startIdx, endIdx := toIndices(s.start, s.end, len(lines))
			o.printLines(out, lines, startIdx, endIdx)
		case sliceAround:
			fmt.Fprintf(out, "-- around line %d ± %d --\n", s.line, s.context)
			startLine := max(s.line-s.context, 0)
			startIdx, endIdx := toIndices(startLine, s.line+s.context, len(lines))
			o.printLines(out, lines, startIdx, endIdx)
		}
	}
}

func (o *Options) printLines(out io.Writer, lines []string, startIdx, endIdx int) {
	endIdx = min(endIdx, len(lines))
	for idx := startIdx; idx < endIdx; idx++ {
		fmt.Fprintf(out, "%6d | %s\n", idx+1, o.highlight(lines[idx]))
	}
}

var matchPaint = color.New(color.FgYellow, color.Bold)

func (o *Options) highlight(line string) string {
	if o.matcher == nil {
		return line
	}
	return o.matcher.ReplaceAllStringFunc(line, func(matched string) string {
		if o.colorize {
			return matchPaint.Sprint(matched)
		}
		return ">>" + matched + "<<"
	})
}

// toIndices converts a 1-based inclusive line range to 0-based slice
// bounds, clamped to the file.
func toIndices(startLine, endLine, totalLines int) (int, int) {
	start := startLine - 1
	if start < 0 {
		start = 0
	}
	if start > totalLines-1 {
		start = totalLines - 1
	}
	end := endLine - 1
	if end < start {
		end = start
	}
	return start, min(end+1, totalLines)
}

func parseRangeSpec(spec string) (int, int, error) {
	parts := strings.FieldsFunc(spec, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("%w: range should be start:end, got %q", ErrBadSpec, spec)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, errors.Errorf("%w: %q: %v", ErrBadSpec, spec, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, errors.Errorf("%w: %q: %v", ErrBadSpec, spec, err)
	}
	if start <= 0 || end <= 0 {
		return 0, 0, errors.Errorf("%w: line numbers start at 1", ErrBadSpec)
	}
	if start > end {
		return 0, 0, errors.Errorf("%w: range start must be <= end", ErrBadSpec)
	}
	return start, end, nil
}

func parseLineContext(spec string) (int, int, error) {
	parts := strings.FieldsFunc(spec, func(r rune) bool { return r == ':' || r == ',' })
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("%w: around should be line:context, got %q", ErrBadSpec, spec)
	}
	line, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, errors.Errorf("%w: %q: %v", ErrBadSpec, spec, err)
	}
	context, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, errors.Errorf("%w: %q: %v", ErrBadSpec, spec, err)
	}
	if line <= 0 {
		return 0, 0, errors.Errorf("%w: line numbers start at 1", ErrBadSpec)
	}
	return line, context, nil
}

func buildMatcher(pattern string, asRegex bool) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	expr := pattern
	if !asRegex {
		expr = regexp.QuoteMeta(pattern)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Errorf("%w: search pattern: %v", ErrBadSpec, err)
	}
	return re, nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
