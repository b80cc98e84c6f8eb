// Package runner analyzes a list of trace files one after another and writes
// their reports to a single destination.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/sarchlab/memtrace/analysis"
	"github.com/sarchlab/memtrace/monitoring"
	"github.com/sarchlab/memtrace/report"
)

// Runner drives the analysis of several traces.
type Runner struct {
	inputs   []string
	output   string
	writer   io.Writer
	format   report.Format
	backends []analysis.ReportBackend
	monitor  *monitoring.Monitor
}

// Inputs returns the traces in the order they are analyzed.
func (r *Runner) Inputs() []string {
	return append([]string(nil), r.inputs...)
}

// Run analyzes every input in order. Counters start from zero for every
// input. The first failure stops the run. The output opened by Run is closed
// on every path.
func (r *Runner) Run(ctx context.Context) (reports []analysis.Report, err error) {
	out, closeOut, err := r.openOutput()
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := closeOut(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	enc, err := report.NewEncoder(out, r.format)
	if err != nil {
		return nil, err
	}

	var bar *monitoring.ProgressBar
	if r.monitor != nil {
		bar = r.monitor.CreateProgressBar("traces", uint64(len(r.inputs)))
		defer r.monitor.CompleteProgressBar(bar)
	}

	for _, path := range r.inputs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		if bar != nil {
			bar.StartTrace(path)
		}

		rep, err := r.runOne(path, enc)
		if err != nil {
			return reports, err
		}

		if bar != nil {
			bar.FinishTrace()
		}

		reports = append(reports, rep)
	}

	for _, b := range r.backends {
		if err := b.Flush(); err != nil {
			return reports, err
		}
	}

	return reports, nil
}

func (r *Runner) runOne(path string, enc report.Encoder) (analysis.Report, error) {
	log.Debug().Str("trace", path).Msg("analyzing trace")

	rep, err := analyzeFile(path)
	if err != nil {
		return analysis.Report{}, err
	}

	if err := enc.Encode(rep); err != nil {
		return analysis.Report{}, fmt.Errorf("write report of %s: %w", path, err)
	}

	for _, b := range r.backends {
		if err := b.AddReport(rep); err != nil {
			return analysis.Report{}, fmt.Errorf("record report of %s: %w", path, err)
		}
	}

	log.Info().
		Str("trace", path).
		Int("accesses", rep.Accesses).
		Int("unique_pages", rep.UniquePages()).
		Msg("trace analyzed")

	return rep, nil
}

func analyzeFile(path string) (analysis.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return analysis.Report{}, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	rep, err := analysis.Analyze(path, f)
	if err != nil {
		return analysis.Report{}, fmt.Errorf("analyze %s: %w", path, err)
	}

	return rep, nil
}

func (r *Runner) openOutput() (io.Writer, func() error, error) {
	noop := func() error { return nil }

	if r.writer != nil {
		return r.writer, noop, nil
	}

	if r.output == StdoutPath {
		return os.Stdout, noop, nil
	}

	f, err := os.Create(r.output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}

	return f, f.Close, nil
}
