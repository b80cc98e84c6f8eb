package analysis

import "github.com/sarchlab/memtrace/trace"

// TypeCount is the number of accesses of one type.
type TypeCount struct {
	Type  trace.AccessType `json:"type" msgpack:"type"`
	Count int              `json:"count" msgpack:"count"`
}

// Report is the result of analyzing one trace.
type Report struct {
	Trace    string `json:"trace" msgpack:"trace"`
	Accesses int    `json:"accesses" msgpack:"accesses"`

	// Counts holds all four access types, highest count first.
	Counts []TypeCount `json:"counts" msgpack:"counts"`

	// InstructionPages and DataPages hold every touched page, highest count
	// first. Ties keep the order in which the pages were first touched.
	InstructionPages []PageCount `json:"instruction_pages" msgpack:"instruction_pages"`
	DataPages        []PageCount `json:"data_pages" msgpack:"data_pages"`
}

// Count returns the number of accesses of type t.
func (r Report) Count(t trace.AccessType) int {
	for _, c := range r.Counts {
		if c.Type == t {
			return c.Count
		}
	}

	return 0
}

// TopInstructionPages returns at most TopN of the hottest instruction pages.
func (r Report) TopInstructionPages() []PageCount {
	return top(r.InstructionPages)
}

// TopDataPages returns at most TopN of the hottest data pages.
func (r Report) TopDataPages() []PageCount {
	return top(r.DataPages)
}

// UniquePages is the number of instruction pages plus the number of data
// pages. A page touched by both kinds of access is counted twice.
func (r Report) UniquePages() int {
	return len(r.InstructionPages) + len(r.DataPages)
}

func top(pages []PageCount) []PageCount {
	if len(pages) > TopN {
		return pages[:TopN]
	}

	return pages
}
