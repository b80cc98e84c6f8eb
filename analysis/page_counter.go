package analysis

import "sort"

// PageCount is the number of accesses that touched a page.
type PageCount struct {
	Page  string `json:"page" msgpack:"page"`
	Count int    `json:"count" msgpack:"count"`
}

// pageCounter counts accesses per page and remembers the order in which
// pages were first touched.
type pageCounter struct {
	index   map[string]int
	entries []PageCount
	total   int
}

func newPageCounter() *pageCounter {
	return &pageCounter{
		index: make(map[string]int),
	}
}

func (c *pageCounter) inc(page string) {
	i, ok := c.index[page]
	if !ok {
		i = len(c.entries)
		c.index[page] = i
		c.entries = append(c.entries, PageCount{Page: page})
	}

	c.entries[i].Count++
	c.total++
}

func (c *pageCounter) get(page string) int {
	i, ok := c.index[page]
	if !ok {
		return 0
	}

	return c.entries[i].Count
}

func (c *pageCounter) len() int {
	return len(c.entries)
}

// ranked returns the pages sorted by count, highest first. Pages with the same
// count keep their first-touch order.
func (c *pageCounter) ranked() []PageCount {
	ranked := make([]PageCount, len(c.entries))
	copy(ranked, c.entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	return ranked
}
