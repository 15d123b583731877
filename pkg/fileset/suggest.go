package fileset

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	maxAscent   = 64
	maxSiblings = 256
)

// suggestPath looks for an existing file that the user probably meant when
// a target does not exist: each suffix of the requested path is tried
// against the starting directory, its siblings, and then each ancestor on
// the way up.
func suggestPath(original string) string {
	if original == "" {
		return ""
	}
	if filepath.IsAbs(original) {
		base := filepath.Dir(original)
		return suggestPathFrom(base, filepath.Base(original))
	}
	base, err := os.Getwd()
	if err != nil {
		return ""
	}
	return suggestPathFrom(base, original)
}

func suggestPathFrom(base, needle string) string {
	if needle == "" {
		return ""
	}

	suffixes := collectSuffixes(needle)
	if len(suffixes) == 0 {
		return ""
	}
	simpleNames := collectSimpleNames(suffixes)

	current := base
	checked := map[string]bool{}
	for i := 0; i < maxAscent; i++ {
		if hit := tryDirectCandidates(current, suffixes, checked); hit != "" {
			return hit
		}
		if hit := searchSiblingDirectories(current, suffixes, simpleNames, checked); hit != "" {
			return hit
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return ""
}

// collectSuffixes lists the needle itself, every trailing sub-path, and
// the bare file name, deduplicated in order.
func collectSuffixes(needle string) []string {
	seen := map[string]bool{}
	var suffixes []string
	push := func(candidate string) {
		if candidate == "" || seen[candidate] {
			return
		}
		seen[candidate] = true
		suffixes = append(suffixes, candidate)
	}

	push(needle)

	var segments []string
	for _, segment := range strings.Split(filepath.ToSlash(needle), "/") {
		if segment == "" || segment == "." || segment == ".." {
			continue
		}
		segments = append(segments, segment)
	}
	if len(segments) > 1 {
		for idx := 1; idx < len(segments); idx++ {
			push(filepath.Join(segments[idx:]...))
		}
	}
	if len(segments) > 0 {
		push(segments[len(segments)-1])
	}
	return suffixes
}

func collectSimpleNames(suffixes []string) []string {
	seen := map[string]bool{}
	var names []string
	for _, suffix := range suffixes {
		if strings.ContainsRune(filepath.ToSlash(suffix), '/') {
			continue
		}
		if !seen[suffix] {
			seen[suffix] = true
			names = append(names, suffix)
		}
	}
	return names
}

func tryDirectCandidates(current string, suffixes []string, checked map[string]bool) string {
	for _, suffix := range suffixes {
		if hit := checkCandidate(filepath.Join(current, suffix), checked); hit != "" {
			return hit
		}
	}
	return ""
}

func searchSiblingDirectories(current string, suffixes, simpleNames []string, checked map[string]bool) string {
	entries, err := os.ReadDir(current)
	if err != nil {
		return ""
	}

	for idx, entry := range entries {
		if idx >= maxSiblings {
			break
		}
		path := filepath.Join(current, entry.Name())
		if entry.IsDir() {
			for _, suffix := range suffixes {
				if hit := checkCandidate(filepath.Join(path, suffix), checked); hit != "" {
					return hit
				}
			}
			continue
		}
		for _, name := range simpleNames {
			if entry.Name() == name {
				if hit := checkCandidate(path, checked); hit != "" {
					return hit
				}
			}
		}
	}
	return ""
}

func checkCandidate(candidate string, checked map[string]bool) string {
	if checked[candidate] {
		return ""
	}
	checked[candidate] = true
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
