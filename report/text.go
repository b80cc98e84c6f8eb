// Package report renders analysis reports.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/memtrace/analysis"
	"github.com/sarchlab/memtrace/trace"
)

// Header returns the line that introduces the report of a trace.
func Header(name string) string {
	return fmt.Sprintf("=== Traces for %s ===", name)
}

// Lines renders a report as text, one element per line.
func Lines(r analysis.Report) []string {
	lines := []string{"Counts:"}

	for _, c := range r.Counts {
		lines = append(lines, fmt.Sprintf(" %-12s %d", c.Type.Label(), c.Count))
	}

	lines = append(lines, "", "Instructions:")
	lines = appendPages(lines, r.TopInstructionPages())

	lines = append(lines, "Data:")
	lines = appendPages(lines, r.TopDataPages())

	lines = append(lines, fmt.Sprintf("unique pages: %d", r.UniquePages()))

	return lines
}

func appendPages(lines []string, pages []analysis.PageCount) []string {
	for _, p := range pages {
		lines = append(lines, fmt.Sprintf("%s,%d", trace.FormatPage(p.Page), p.Count))
	}

	return lines
}

// Write writes the header and the text lines of a report to w.
func Write(w io.Writer, r analysis.Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, Header(r.Trace))

	for _, line := range Lines(r) {
		fmt.Fprintln(bw, line)
	}

	return bw.Flush()
}
