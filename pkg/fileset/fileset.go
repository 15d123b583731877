// Package fileset resolves command targets and globs into the concrete
// list of files a command will touch. Hidden path components are filtered
// unless asked for, exclude globs prune the set, and each file is sniffed
// for binary content so the pipeline can skip it.
package fileset

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const binaryCheckBytes = 4096

// sniffConcurrency bounds the parallel binary probes during resolution.
const sniffConcurrency = 8

var (
	// ErrNoMatches is returned when targets and globs resolve to nothing.
	ErrNoMatches = errors.Base("no files matched")
	// ErrBadGlob wraps an invalid glob or exclude pattern.
	ErrBadGlob = errors.Base("invalid glob pattern")
)

// Metadata is what the pipeline needs to know about a file before reading
// it.
type Metadata struct {
	Size           int64
	ProbablyBinary bool
}

// Entry is one resolved file.
type Entry struct {
	Path string
	Meta Metadata
}

// Options selects the files a command operates on.
type Options struct {
	Targets       []string
	Globs         []string
	IncludeHidden bool
	Excludes      []string
}

// Resolve expands targets and globs into deduplicated file entries sorted
// by path. A missing explicit target triggers a nearby-path suggestion in
// the error so typos are cheap to fix.
func Resolve(ctx context.Context, opts Options) ([]Entry, error) {
	for _, pattern := range opts.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("%w: exclude %q", ErrBadGlob, pattern)
		}
	}

	var paths []string
	for _, target := range opts.Targets {
		found, err := appendPath(target, opts)
		if err != nil {
			return nil, errors.Errorf("processing target %s: %w", target, err)
		}
		paths = append(paths, found...)
	}

	for _, pattern := range opts.Globs {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("%w: %q", ErrBadGlob, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, errors.Errorf("%w: %q: %v", ErrBadGlob, pattern, err)
		}
		for _, match := range matches {
			found, err := appendPath(match, opts)
			if err != nil {
				return nil, errors.Errorf("processing match %s: %w", match, err)
			}
			paths = append(paths, found...)
		}
	}

	if len(paths) == 0 {
		if len(opts.Targets) > 0 {
			if suggestion := suggestPath(opts.Targets[0]); suggestion != "" {
				return nil, errors.Errorf("%w: did you mean %s?", ErrNoMatches, suggestion)
			}
		}
		return nil, errors.Errorf("%w: provide --target or --glob", ErrNoMatches)
	}

	paths = dedupPaths(paths)
	entries, err := sniffAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Int("files", len(entries)).
		Msg("resolved target set")
	return entries, nil
}

func appendPath(path string, opts Options) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if suggestion := suggestPath(path); suggestion != "" {
				return nil, errors.Errorf("unable to read %s; did you mean %s?", path, suggestion)
			}
		}
		return nil, errors.Errorf("unable to read metadata for %s: %w", path, err)
	}

	if info.IsDir() {
		return walkDirectory(path, opts)
	}
	if info.Mode().IsRegular() && !shouldSkip(path, opts) {
		return []string{path}, nil
	}
	return nil, nil
}

func walkDirectory(dir string, opts Options) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.IncludeHidden && path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if shouldSkip(path, opts) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", dir, err)
	}
	return paths, nil
}

func shouldSkip(path string, opts Options) bool {
	if !opts.IncludeHidden && hasHiddenComponent(path) {
		return true
	}
	candidate := filepath.ToSlash(path)
	for _, pattern := range opts.Excludes {
		if ok, _ := doublestar.Match(pattern, candidate); ok {
			return true
		}
	}
	return false
}

// hasHiddenComponent reports whether any path segment starts with a dot.
// The relative markers "." and ".." do not count.
func hasHiddenComponent(path string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == "." || segment == ".." {
			continue
		}
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

func dedupPaths(paths []string) []string {
	sort.Strings(paths)
	out := paths[:0]
	for i, path := range paths {
		if i == 0 || path != paths[i-1] {
			out = append(out, path)
		}
	}
	return out
}

// sniffAll probes the resolved files for binary content in parallel.
// Resolution happens before the per-file pipeline starts, so this is the
// only concurrent stage.
func sniffAll(ctx context.Context, paths []string) ([]Entry, error) {
	entries := make([]Entry, len(paths))
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(sniffConcurrency)

	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			info, err := os.Stat(path)
			if err != nil {
				return errors.Errorf("metadata for %s: %w", path, err)
			}
			binary, err := detectBinary(path)
			if err != nil {
				return err
			}
			entries[i] = Entry{Path: path, Meta: Metadata{Size: info.Size(), ProbablyBinary: binary}}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// detectBinary reports whether the first 4 KiB contain a NUL byte.
func detectBinary(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, errors.Errorf("opening %s for binary detection: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, binaryCheckBytes)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, errors.Errorf("reading %s for binary detection: %w", path, err)
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return true, nil
		}
	}
	return false, nil
}
