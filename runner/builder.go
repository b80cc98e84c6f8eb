package runner

import (
	"io"

	"github.com/sarchlab/memtrace/analysis"
	"github.com/sarchlab/memtrace/monitoring"
	"github.com/sarchlab/memtrace/report"
)

// StdoutPath selects the standard output as the report destination.
const StdoutPath = "-"

// Builder can build a Runner.
type Builder struct {
	inputs   []string
	output   string
	writer   io.Writer
	format   report.Format
	backends []analysis.ReportBackend
	monitor  *monitoring.Monitor
}

// MakeBuilder creates a Builder that writes text reports.
func MakeBuilder() Builder {
	return Builder{
		format: report.FormatText,
	}
}

// WithInputs sets the traces to analyze, in order.
func (b Builder) WithInputs(paths ...string) Builder {
	b.inputs = append([]string(nil), paths...)
	return b
}

// WithOutput sets the file that receives the reports. The file is truncated.
// StdoutPath writes to the standard output.
func (b Builder) WithOutput(path string) Builder {
	b.output = path
	return b
}

// WithOutputWriter writes the reports to w instead of a file. The Runner does
// not close w.
func (b Builder) WithOutputWriter(w io.Writer) Builder {
	b.writer = w
	return b
}

// WithFormat sets the encoding of the reports.
func (b Builder) WithFormat(f report.Format) Builder {
	b.format = f
	return b
}

// WithBackend adds a backend that receives every report.
func (b Builder) WithBackend(backend analysis.ReportBackend) Builder {
	b.backends = append(b.backends, backend)
	return b
}

// WithMonitor publishes progress and reports to m.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// Build creates a Runner.
func (b Builder) Build() *Runner {
	if len(b.inputs) == 0 {
		panic("Runner requires at least one input")
	}

	if b.output == "" && b.writer == nil {
		panic("Runner requires an output")
	}

	backends := append([]analysis.ReportBackend(nil), b.backends...)
	if b.monitor != nil {
		backends = append(backends, b.monitor)
	}

	return &Runner{
		inputs:   b.inputs,
		output:   b.output,
		writer:   b.writer,
		format:   b.format,
		backends: backends,
		monitor:  b.monitor,
	}
}
