// Package monitoring serves the progress and the results of an analysis run
// over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/sarchlab/memtrace/analysis"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor collects the reports of a run and exposes them, together with the
// progress and the resource usage of the process, through a web API.
type Monitor struct {
	portNumber int

	reportsLock sync.Mutex
	reports     []analysis.Report

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		log.Warn().
			Int("port", portNumber).
			Msg("monitoring port below 1000 is not allowed, using a random port")

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// AddReport makes a finished report available to the API.
func (m *Monitor) AddReport(r analysis.Report) error {
	m.reportsLock.Lock()
	defer m.reportsLock.Unlock()

	m.reports = append(m.reports, r)

	return nil
}

// Flush does nothing. Reports are visible as soon as they are added.
func (m *Monitor) Flush() error {
	return nil
}

// Reports returns a copy of the reports collected so far.
func (m *Monitor) Reports() []analysis.Report {
	m.reportsLock.Lock()
	defer m.reportsLock.Unlock()

	reports := make([]analysis.Report, len(m.reports))
	copy(reports, m.reports)

	return reports
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:        xid.New().String(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the API.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the routes served by the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/reports", m.listReports)
	r.HandleFunc("/api/report/{index:[0-9]+}", m.reportDetails)
	r.HandleFunc("/api/report/{index:[0-9]+}/pages", m.reportPages)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring analysis with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("monitoring server stopped")
		}
	}()

	return url, nil
}

// OpenBrowser opens the report list of a started server in a web browser.
func (m *Monitor) OpenBrowser(url string) error {
	return browser.OpenURL(url + "/api/reports")
}

// Shutdown stops a started server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]TraceProgress, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Status())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type reportSummary struct {
	Index       int    `json:"index"`
	Trace       string `json:"trace"`
	Accesses    int    `json:"accesses"`
	UniquePages int    `json:"unique_pages"`
}

func (m *Monitor) listReports(w http.ResponseWriter, _ *http.Request) {
	reports := m.Reports()

	rsp := make([]reportSummary, 0, len(reports))
	for i, r := range reports {
		rsp = append(rsp, reportSummary{
			Index:       i,
			Trace:       r.Trace,
			Accesses:    r.Accesses,
			UniquePages: r.UniquePages(),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) findReportOr404(
	w http.ResponseWriter,
	r *http.Request,
) (analysis.Report, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])

	reports := m.Reports()
	if err != nil || index < 0 || index >= len(reports) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "report %s not found", mux.Vars(r)["index"])

		return analysis.Report{}, false
	}

	return reports[index], true
}

func (m *Monitor) reportDetails(w http.ResponseWriter, r *http.Request) {
	report, ok := m.findReportOr404(w, r)
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&report)
	serializer.SetMaxDepth(3)

	if err := serializer.Serialize(w); err != nil {
		log.Error().Err(err).Msg("failed to serialize report")
	}
}

func (m *Monitor) reportPages(w http.ResponseWriter, r *http.Request) {
	report, ok := m.findReportOr404(w, r)
	if !ok {
		return
	}

	kind, limit, offset, err := pagesParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	pages := report.InstructionPages
	if kind == analysis.KindData {
		pages = report.DataPages
	}

	writeJSON(w, selectPages(pages, limit, offset))
}

func pagesParseParams(r *http.Request) (kind string, limit, offset int, err error) {
	kind = r.URL.Query().Get("kind")
	if kind == "" {
		kind = analysis.KindInstruction
	}

	if kind != analysis.KindInstruction && kind != analysis.KindData {
		return "", 0, 0, fmt.Errorf(
			"invalid kind: %s. Allowed values are `%s` and `%s`",
			kind, analysis.KindInstruction, analysis.KindData)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return kind, 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return kind, limit, 0, err
	}

	return kind, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}

	return n, nil
}

func selectPages(pages []analysis.PageCount, limit, offset int) []analysis.PageCount {
	if offset >= len(pages) {
		return []analysis.PageCount{}
	}

	pages = pages[offset:]
	if limit > 0 && limit < len(pages) {
		pages = pages[:limit]
	}

	return pages
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		internalError(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		internalError(w, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		internalError(w, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(bytes); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func internalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("monitoring request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
