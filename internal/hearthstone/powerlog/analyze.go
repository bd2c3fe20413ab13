package powerlog

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Count is one row of an analysis report.
type Count struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Sample string `json:"sample"`
}

// Report summarizes what a log contains: how many lines of each record
// kind, which sources printed them, which tags changed and which lines
// failed to decode.
type Report struct {
	Lines    int     `json:"lines"`
	Kinds    []Count `json:"kinds"`
	Sources  []Count `json:"sources"`
	Tags     []Count `json:"tags"`
	Failures []Count `json:"failures"`
}

// Analyzer accumulates a Report line by line.
type Analyzer struct {
	lines    int
	kinds    map[string]*Count
	sources  map[string]*Count
	tags     map[string]*Count
	failures map[string]*Count
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		kinds:    make(map[string]*Count),
		sources:  make(map[string]*Count),
		tags:     make(map[string]*Count),
		failures: make(map[string]*Count),
	}
}

func bump(m map[string]*Count, name, line string) {
	c := m[name]
	if c == nil {
		c = &Count{Name: name, Sample: line}
		m[name] = c
	}
	c.Count++
}

// Add classifies one line.
func (a *Analyzer) Add(line string) {
	a.lines++
	rec, err := ParseLine(line)
	if err != nil {
		bump(a.failures, failureShape(rec, line), line)
		return
	}
	if rec.Kind == KindNone {
		return
	}
	bump(a.kinds, rec.Kind.String(), line)
	if rec.Source != "" {
		bump(a.sources, rec.Source, line)
	}
	if rec.Kind == KindTagChange || rec.Kind == KindTagLine {
		bump(a.tags, rec.Tag.String(), line)
	}
}

// failureShape names the record shape a rejected line was trying to be.
func failureShape(rec Record, line string) string {
	if rec.Kind != KindNone {
		return rec.Kind.String()
	}
	_, _, body := StripPrefix(line)
	if fields := strings.Fields(body); len(fields) > 0 {
		return fields[0]
	}
	return rec.Kind.String()
}

func sorted(m map[string]*Count, limit int) []Count {
	out := make([]Count, 0, len(m))
	for _, c := range m {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Report returns the counts so far, most frequent first. At most topTags
// tags are listed; 0 lists them all.
func (a *Analyzer) Report(topTags int) Report {
	return Report{
		Lines:    a.lines,
		Kinds:    sorted(a.kinds, 0),
		Sources:  sorted(a.sources, 0),
		Tags:     sorted(a.tags, topTags),
		Failures: sorted(a.failures, 0),
	}
}

// WriteMarkdown renders the report as a Markdown document.
func (r Report) WriteMarkdown(w io.Writer) error {
	var md strings.Builder
	md.WriteString("# Power.log analysis\n\n")
	fmt.Fprintf(&md, "**Lines read**: %d\n\n", r.Lines)

	section := func(title string, rows []Count) {
		fmt.Fprintf(&md, "## %s\n\n", title)
		if len(rows) == 0 {
			md.WriteString("_none_\n\n")
			return
		}
		md.WriteString("| Name | Count | Sample |\n|---|---:|---|\n")
		for _, c := range rows {
			sample := strings.ReplaceAll(strings.TrimSpace(c.Sample), "|", `\|`)
			fmt.Fprintf(&md, "| `%s` | %d | `%s` |\n", c.Name, c.Count, sample)
		}
		md.WriteString("\n")
	}
	section("Record kinds", r.Kinds)
	section("Sources", r.Sources)
	section("Tags", r.Tags)
	section("Decode failures", r.Failures)

	_, err := io.WriteString(w, md.String())
	return err
}
