// Package analysis aggregates memory-access traces into ranked reports.
package analysis

import (
	"io"
	"sort"

	"github.com/sarchlab/memtrace/trace"
)

// TopN is the number of pages of each kind listed in a report.
const TopN = 15

// An Aggregator accumulates the accesses of a single trace.
type Aggregator struct {
	counts       [trace.NumAccessTypes]int
	instructions *pageCounter
	data         *pageCounter
	accesses     int
}

// NewAggregator creates an Aggregator with all counters at zero.
func NewAggregator() *Aggregator {
	return &Aggregator{
		instructions: newPageCounter(),
		data:         newPageCounter(),
	}
}

// Add records one access. Loads, stores and modifies all land in the same
// data page table.
func (a *Aggregator) Add(access trace.Access) {
	a.counts[access.Type]++
	a.accesses++

	page := access.Page()
	if access.Type.IsInstruction() {
		a.instructions.inc(page)
	} else {
		a.data.inc(page)
	}
}

// Accesses returns the number of accesses added so far.
func (a *Aggregator) Accesses() int {
	return a.accesses
}

// Count returns the number of accesses of the given type.
func (a *Aggregator) Count(t trace.AccessType) int {
	return a.counts[t]
}

// InstructionPageCount returns how many instruction fetches touched page.
func (a *Aggregator) InstructionPageCount(page string) int {
	return a.instructions.get(page)
}

// DataPageCount returns how many loads, stores and modifies touched page.
func (a *Aggregator) DataPageCount(page string) int {
	return a.data.get(page)
}

// Report ranks the collected counters.
func (a *Aggregator) Report(name string) Report {
	counts := make([]TypeCount, 0, trace.NumAccessTypes)
	for _, t := range trace.AllAccessTypes {
		counts = append(counts, TypeCount{Type: t, Count: a.counts[t]})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	return Report{
		Trace:            name,
		Accesses:         a.accesses,
		Counts:           counts,
		InstructionPages: a.instructions.ranked(),
		DataPages:        a.data.ranked(),
	}
}

// Analyze reads a whole trace and returns its report. The first malformed
// line aborts the analysis.
func Analyze(name string, r io.Reader) (Report, error) {
	agg := NewAggregator()

	s := trace.NewScanner(r)
	for s.Scan() {
		agg.Add(s.Access())
	}

	if err := s.Err(); err != nil {
		return Report{}, err
	}

	return agg.Report(name), nil
}
