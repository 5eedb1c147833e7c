// Package summary reads TAP version 13 reports back into a result tree.
//
// It understands the layout the tap package writes: serial subsections
// introduced by a "[description]" header and indented four spaces per level,
// and concurrent subsections whose lines carry a "  description|  " prefix.
package summary

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Result is one "ok" or "not ok" line.
type Result struct {
	// Path is the description of every enclosing subsection followed by the
	// result's own description.
	Path []string `json:"path"`

	// Depth is the nesting level; top-level results are at depth 0.
	Depth int `json:"depth"`

	OK        bool   `json:"ok"`
	Directive string `json:"directive,omitempty"`

	// Composite is true when other results are nested under this one.
	Composite bool `json:"composite"`

	// Line is the 1-based line number in the report.
	Line int `json:"line"`
}

// Description returns the last element of the path.
func (r Result) Description() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[len(r.Path)-1]
}

// Skipped reports whether the result carries a SKIP directive.
func (r Result) Skipped() bool {
	return strings.HasPrefix(strings.ToUpper(r.Directive), "SKIP")
}

// Summary is a parsed report.
type Summary struct {
	Version     int      `json:"version"`
	Plan        int      `json:"plan"` // -1 when the report has no top-level plan
	Results     []Result `json:"results"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Bailed      bool     `json:"bailed"`
	BailReason  string   `json:"bail_reason,omitempty"`

	// Digest identifies the exact report text; identical runs share it.
	Digest string `json:"digest"`
}

// Totals counts leaf results.
type Totals struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Totals counts results that have no nested results.
func (s *Summary) Totals() Totals {
	var t Totals
	for _, r := range s.Results {
		switch {
		case r.Composite:
		case r.Skipped():
			t.Skipped++
		case r.OK:
			t.Passed++
		default:
			t.Failed++
		}
	}
	return t
}

// OK reports whether the report ran to completion with every top-level
// result passing and the plan satisfied.
func (s *Summary) OK() bool {
	if s.Bailed {
		return false
	}
	top := 0
	for _, r := range s.Results {
		if r.Depth != 0 {
			continue
		}
		top++
		if !r.OK {
			return false
		}
	}
	return s.Plan < 0 || s.Plan == top
}

// Failures returns the failing leaf results.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.OK && !r.Composite {
			out = append(out, r)
		}
	}
	return out
}

// ParseError reports a line that could not be read.
type ParseError struct {
	Line    int
	Text    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Message, e.Text)
}

var (
	versionLine    = regexp.MustCompile(`^TAP version (\d+)$`)
	planLine       = regexp.MustCompile(`^1\.\.(\d+)$`)
	resultLine     = regexp.MustCompile(`^(ok|not ok)(?: - (.*?))?(?: # (.*))?$`)
	headerLine     = regexp.MustCompile(`^\[(.*)\]$`)
	concurrentHead = regexp.MustCompile(`^  ([^|]*)\|  `)
)

// Parse reads a report from r.
func Parse(r io.Reader) (*Summary, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return ParseLines(lines)
}

// ParseLines reads a report from individual lines.
func ParseLines(lines []string) (*Summary, error) {
	s := &Summary{Plan: -1, Digest: Digest(lines)}
	// headers[d] is the most recent "[...]" header seen at depth d.
	var headers []string
	sawVersion := false

	for i, raw := range lines {
		lineNo := i + 1
		raw = strings.TrimRight(raw, "\r")
		if raw == "" {
			continue
		}
		path, text := unnest(raw, headers)
		depth := len(path)

		switch {
		case strings.HasPrefix(text, "Bail out!"):
			s.Bailed = true
			s.BailReason = strings.TrimSpace(strings.TrimPrefix(text, "Bail out!"))
			return s.finish(), nil

		case depth == 0 && versionLine.MatchString(text):
			if sawVersion {
				return nil, &ParseError{Line: lineNo, Text: raw, Message: "repeated version line"}
			}
			v, _ := strconv.Atoi(versionLine.FindStringSubmatch(text)[1])
			s.Version = v
			sawVersion = true

		case planLine.MatchString(text):
			if depth == 0 {
				n, _ := strconv.Atoi(planLine.FindStringSubmatch(text)[1])
				s.Plan = n
			}

		case headerLine.MatchString(text):
			for len(headers) <= depth {
				headers = append(headers, "")
			}
			headers[depth] = headerLine.FindStringSubmatch(text)[1]
			headers = headers[:depth+1]

		case strings.HasPrefix(text, "#"):
			if depth == 0 {
				s.Diagnostics = append(s.Diagnostics, strings.TrimSpace(strings.TrimPrefix(text, "#")))
			}

		case resultLine.MatchString(text):
			m := resultLine.FindStringSubmatch(text)
			s.Results = append(s.Results, Result{
				Path:      append(append([]string{}, path...), m[2]),
				Depth:     depth,
				OK:        m[1] == "ok",
				Directive: m[3],
				Line:      lineNo,
			})

		default:
			// YAML diagnostic blocks and unknown lines are ignored.
		}
	}
	if !sawVersion {
		return nil, &ParseError{Line: 1, Message: "missing version line"}
	}
	return s.finish(), nil
}

// unnest strips subsection prefixes from line, returning the enclosing
// descriptions and the remaining text.
func unnest(line string, headers []string) ([]string, string) {
	var path []string
	for {
		if strings.HasPrefix(line, "    ") {
			name := ""
			if d := len(path); d < len(headers) {
				name = headers[d]
			}
			path = append(path, name)
			line = line[4:]
			continue
		}
		if m := concurrentHead.FindStringSubmatch(line); m != nil {
			path = append(path, m[1])
			line = line[len(m[0]):]
			continue
		}
		return path, line
	}
}

func (s *Summary) finish() *Summary {
	for i := range s.Results {
		s.Results[i].Composite = s.composite(i)
	}
	return s
}

// composite reports whether the result at i closes a subsection holding
// results. Results for a subsection are written after its contents, so only
// the deeper results since the previous one at i's depth or shallower count.
func (s *Summary) composite(i int) bool {
	parent := s.Results[i]
	for j := i - 1; j >= 0; j-- {
		child := s.Results[j]
		if child.Depth <= parent.Depth {
			return false
		}
		if nestedUnder(child, parent) {
			return true
		}
	}
	return false
}

func nestedUnder(child, parent Result) bool {
	for k := 0; k <= parent.Depth; k++ {
		if child.Path[k] != parent.Path[k] {
			return false
		}
	}
	return true
}
