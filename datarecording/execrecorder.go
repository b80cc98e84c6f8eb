package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfoTable is the table that holds the run metadata.
const ExecInfoTable = "exec_info"

const timeLayout = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a program run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records when and how the program was run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
	now      func() time.Time
}

// NewExecRecorder creates the exec_info table in recorder.
func NewExecRecorder(recorder DataRecorder) (*ExecRecorder, error) {
	err := recorder.CreateTable(ExecInfoTable, ExecInfo{})
	if err != nil {
		return nil, err
	}

	return &ExecRecorder{
		recorder: recorder,
		now:      time.Now,
	}, nil
}

// Start remembers the start time, the command line and the working
// directory. An empty runID is not recorded.
func (e *ExecRecorder) Start(runID string) {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", e.now().Format(timeLayout)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	if runID != "" {
		e.entries = append(e.entries, ExecInfo{"Run ID", runID})
	}

	if cwd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
	}
}

// End writes the collected properties along with the end time.
func (e *ExecRecorder) End() error {
	e.entries = append(e.entries,
		ExecInfo{"End Time", e.now().Format(timeLayout)})

	for _, entry := range e.entries {
		if err := e.recorder.InsertData(ExecInfoTable, entry); err != nil {
			return err
		}
	}

	e.entries = nil

	return e.recorder.Flush()
}
