// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// IsBackupFile reports whether the file name looks like one of the
// .bak/.bakN sidecars the write path creates. The check is
// case-insensitive and requires an all-digit suffix after ".bak".
func IsBackupFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	idx := strings.LastIndex(name, ".bak")
	if idx < 0 {
		return false
	}
	suffix := name[idx+len(".bak"):]
	for _, ch := range suffix {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// FindBackupFiles walks root for backup sidecars, skipping hidden
// directories unless asked to include them.
func FindBackupFiles(root string, includeHidden bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		hidden := strings.HasPrefix(name, ".") && name != "." && name != ".."
		if entry.IsDir() {
			if hidden && !includeHidden && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden && !includeHidden {
			return nil
		}
		if entry.Type().IsRegular() && IsBackupFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// ProcessCleanup deletes the given backup files one by one with the
// usual approval flow.
func (r *Runner) ProcessCleanup(paths []string) error {
	for _, path := range paths {
		choice, err := r.approve(path)
		if err != nil {
			return err
		}
		switch choice {
		case decisionApply, decisionApplyAll:
			if err := os.Remove(path); err != nil {
				return errors.Errorf("removing backup %s: %w", path, err)
			}
			fmt.Fprintf(r.Out, "removed %s\n", path)
			r.Stats.Applied++
		case decisionSkip:
			fmt.Fprintf(r.Out, "skipped %s\n", path)
			r.Stats.Skipped++
		case decisionQuit:
			fmt.Fprintln(r.Out, "stopping cleanup after user request.")
			return nil
		}
	}
	return nil
}
