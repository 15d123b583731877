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

package diffview

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// pageSize is the fixed pager window in lines.
const pageSize = 200

// Show prints the rendered diff, paging it when it overflows a page and
// the session allows interaction. When paging was wanted but the session
// is non-interactive the whole diff prints inline with a note.
func Show(rendered *Rendered, cfg Config, out io.Writer, in *bufio.Reader) error {
	wantPager := cfg.Pager == PagerAlways ||
		(cfg.Pager == PagerAuto && len(rendered.Lines) > pageSize)

	if wantPager && cfg.Interactive && cfg.Pager != PagerNever {
		if err := runPager(rendered.Lines, out, in); err != nil {
			return err
		}
	} else {
		for _, line := range rendered.Lines {
			fmt.Fprintln(out, line)
		}
		if wantPager && !cfg.Interactive {
			fmt.Fprintln(out, "note: output exceeds one page; pager disabled in non-interactive mode")
		}
	}

	if warning := rendered.Warning(); warning != "" {
		fmt.Fprintln(out, warning)
	}
	return nil
}

// runPager is a plain synchronous prompt loop over fixed pages.
func runPager(lines []string, out io.Writer, in *bufio.Reader) error {
	pages := (len(lines) + pageSize - 1) / pageSize
	if pages == 0 {
		return nil
	}
	page := 0

	for {
		start := page * pageSize
		end := start + pageSize
		if end > len(lines) {
			end = len(lines)
		}
		for _, line := range lines[start:end] {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintf(out, "-- page %d/%d -- (n)ext (p)rev (g)oto N (h)ead (t)ail (q)uit (?)help: ", page+1, pages)

		input, err := in.ReadString('\n')
		if err != nil && input == "" {
			return nil
		}
		fields := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
		command := ""
		if len(fields) > 0 {
			command = fields[0]
		}

		switch command {
		case "", "n", "next":
			if page+1 >= pages {
				fmt.Fprintln(out, "already at the last page")
				continue
			}
			page++
		case "p", "prev":
			if page == 0 {
				fmt.Fprintln(out, "already at the first page")
				continue
			}
			page--
		case "g", "goto":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: goto N")
				continue
			}
			n, convErr := strconv.Atoi(fields[1])
			if convErr != nil || n < 1 || n > pages {
				fmt.Fprintf(out, "page must be between 1 and %d\n", pages)
				continue
			}
			page = n - 1
		case "h", "head":
			page = 0
		case "t", "tail":
			page = pages - 1
		case "q", "quit":
			return nil
		case "?", "help":
			fmt.Fprintln(out, "commands: next, prev, goto N, head, tail, quit")
		default:
			fmt.Fprintf(out, "unknown command %q; try ? for help\n", command)
		}
	}
}
