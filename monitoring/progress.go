package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar follows how many traces of a run have been analyzed.
type ProgressBar struct {
	mu sync.Mutex

	id        string
	name      string
	startTime time.Time
	total     uint64
	finished  uint64
	current   string
}

// TraceProgress is what the API reports about a ProgressBar.
type TraceProgress struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
	Current   string    `json:"current,omitempty"`
}

// Status returns the progress of the bar.
func (b *ProgressBar) Status() TraceProgress {
	b.mu.Lock()
	defer b.mu.Unlock()

	return TraceProgress{
		ID:        b.id,
		Name:      b.name,
		StartTime: b.startTime,
		Total:     b.total,
		Finished:  b.finished,
		Current:   b.current,
	}
}

// StartTrace marks path as the trace being analyzed.
func (b *ProgressBar) StartTrace(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = path
}

// FinishTrace counts the current trace as analyzed.
func (b *ProgressBar) FinishTrace() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == "" {
		return
	}

	b.current = ""
	b.finished++
}
