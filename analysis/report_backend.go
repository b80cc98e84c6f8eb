package analysis

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"fortio.org/safecast"
	"github.com/rs/zerolog/log"
	"github.com/sarchlab/memtrace/datarecording"
	"github.com/sarchlab/memtrace/trace"
	"github.com/tebeka/atexit"
)

// ReportBackend is the interface that provides the service that can record
// finished reports.
type ReportBackend interface {
	AddReport(report Report) error
	Flush() error
}

// Page kinds used by the backends.
const (
	KindInstruction = "instruction"
	KindData        = "data"
)

// CSVBackend is a ReportBackend that writes every ranked page to a CSV file.
type CSVBackend struct {
	file      *os.File
	csvWriter *csv.Writer
	closed    bool
}

// NewCSVBackend creates filename and writes the header row.
func NewCSVBackend(filename string) (*CSVBackend, error) {
	file, err := os.OpenFile(filename,
		os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	b := &CSVBackend{
		file:      file,
		csvWriter: csv.NewWriter(file),
	}

	header := []string{"Trace", "Kind", "Position", "Page", "Count"}
	if err := b.csvWriter.Write(header); err != nil {
		file.Close()
		return nil, err
	}

	atexit.Register(func() { b.Close() })

	return b, nil
}

// AddReport writes one row per instruction page and per data page.
func (b *CSVBackend) AddReport(report Report) error {
	if err := b.writePages(report.Trace, KindInstruction,
		report.InstructionPages); err != nil {
		return err
	}

	return b.writePages(report.Trace, KindData, report.DataPages)
}

func (b *CSVBackend) writePages(name, kind string, pages []PageCount) error {
	for i, p := range pages {
		err := b.csvWriter.Write([]string{
			name,
			kind,
			strconv.Itoa(i + 1),
			trace.FormatPage(p.Page),
			strconv.Itoa(p.Count),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Flush flushes the CSV writer.
func (b *CSVBackend) Flush() error {
	b.csvWriter.Flush()
	return b.csvWriter.Error()
}

// Close flushes and closes the file.
func (b *CSVBackend) Close() error {
	if b.closed {
		return nil
	}

	b.closed = true

	if err := b.Flush(); err != nil {
		b.file.Close()
		return err
	}

	return b.file.Close()
}

// Tables written by RecorderBackend.
const (
	AccessCountTable = "access_counts"
	PageCountTable   = "page_counts"
)

// AccessCountEntry is a row of the access_counts table.
type AccessCountEntry struct {
	RunID string
	Trace string
	Type  string
	Count uint64
}

// PageCountEntry is a row of the page_counts table.
type PageCountEntry struct {
	RunID    string
	Trace    string
	Kind     string
	Position uint64
	Page     string
	Count    uint64
}

// RecorderBackend is a ReportBackend that stores reports through a
// datarecording.DataRecorder.
type RecorderBackend struct {
	recorder datarecording.DataRecorder
	runID    string
}

// NewRecorderBackend creates the access_counts and page_counts tables.
func NewRecorderBackend(
	recorder datarecording.DataRecorder,
	runID string,
) (*RecorderBackend, error) {
	if err := recorder.CreateTable(AccessCountTable, AccessCountEntry{}); err != nil {
		return nil, err
	}

	if err := recorder.CreateTable(PageCountTable, PageCountEntry{}); err != nil {
		return nil, err
	}

	return &RecorderBackend{
		recorder: recorder,
		runID:    runID,
	}, nil
}

// AddReport inserts the four access counts and every ranked page.
func (b *RecorderBackend) AddReport(report Report) error {
	for _, c := range report.Counts {
		count, err := safecast.Conv[uint64](c.Count)
		if err != nil {
			return fmt.Errorf("%s count of %s: %w", c.Type, report.Trace, err)
		}

		err = b.recorder.InsertData(AccessCountTable, AccessCountEntry{
			RunID: b.runID,
			Trace: report.Trace,
			Type:  c.Type.Symbol(),
			Count: count,
		})
		if err != nil {
			return err
		}
	}

	if err := b.insertPages(report.Trace, KindInstruction,
		report.InstructionPages); err != nil {
		return err
	}

	if err := b.insertPages(report.Trace, KindData, report.DataPages); err != nil {
		return err
	}

	log.Debug().
		Str("trace", report.Trace).
		Int("pages", report.UniquePages()).
		Msg("report recorded")

	return nil
}

func (b *RecorderBackend) insertPages(
	name, kind string,
	pages []PageCount,
) error {
	for i, p := range pages {
		position, err := safecast.Conv[uint64](i + 1)
		if err != nil {
			return err
		}

		count, err := safecast.Conv[uint64](p.Count)
		if err != nil {
			return fmt.Errorf("page %s of %s: %w", p.Page, name, err)
		}

		err = b.recorder.InsertData(PageCountTable, PageCountEntry{
			RunID:    b.runID,
			Trace:    name,
			Kind:     kind,
			Position: position,
			Page:     p.Page,
			Count:    count,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Flush flushes the underlying recorder.
func (b *RecorderBackend) Flush() error {
	return b.recorder.Flush()
}
