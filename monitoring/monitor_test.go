package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memtrace/analysis"
	"github.com/sarchlab/memtrace/trace"
)

func sampleReport(name string) analysis.Report {
	return analysis.Report{
		Trace:    name,
		Accesses: 4,
		Counts: []analysis.TypeCount{
			{Type: trace.Instruction, Count: 2},
			{Type: trace.Load, Count: 2},
			{Type: trace.Store, Count: 0},
			{Type: trace.Modify, Count: 0},
		},
		InstructionPages: []analysis.PageCount{{Page: "0400000", Count: 2}},
		DataPages: []analysis.PageCount{
			{Page: "0601000", Count: 1},
			{Page: "0602000", Count: 1},
		},
	}
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		router http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		router = m.Router()
	})

	It("should reject privileged ports", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should list reports", func() {
		Expect(m.AddReport(sampleReport("a.ref"))).To(Succeed())
		Expect(m.AddReport(sampleReport("b.ref"))).To(Succeed())

		rec := get("/api/reports")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var summaries []reportSummary
		Expect(json.Unmarshal(rec.Body.Bytes(), &summaries)).To(Succeed())
		Expect(summaries).To(Equal([]reportSummary{
			{Index: 0, Trace: "a.ref", Accesses: 4, UniquePages: 3},
			{Index: 1, Trace: "b.ref", Accesses: 4, UniquePages: 3},
		}))
	})

	It("should serialize a single report", func() {
		Expect(m.AddReport(sampleReport("a.ref"))).To(Succeed())

		rec := get("/api/report/0")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("a.ref"))
	})

	It("should return 404 for unknown reports", func() {
		rec := get("/api/report/3")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should page through the data pages", func() {
		Expect(m.AddReport(sampleReport("a.ref"))).To(Succeed())

		rec := get("/api/report/0/pages?kind=data&limit=1&offset=1")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var pages []analysis.PageCount
		Expect(json.Unmarshal(rec.Body.Bytes(), &pages)).To(Succeed())
		Expect(pages).To(Equal([]analysis.PageCount{{Page: "0602000", Count: 1}}))
	})

	It("should reject an unknown page kind", func() {
		Expect(m.AddReport(sampleReport("a.ref"))).To(Succeed())

		rec := get("/api/report/0/pages?kind=stack")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("traces", 4)
		bar.StartTrace("a.ref")
		bar.FinishTrace()
		bar.StartTrace("b.ref")

		rec := get("/api/progress")

		var bars []TraceProgress
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("traces"))
		Expect(bars[0].Total).To(Equal(uint64(4)))
		Expect(bars[0].Finished).To(Equal(uint64(1)))
		Expect(bars[0].Current).To(Equal("b.ref"))

		bar.FinishTrace()
		bar.FinishTrace()
		Expect(bar.Status().Finished).To(Equal(uint64(2)))
		Expect(bar.Status().Current).To(BeEmpty())

		m.CompleteProgressBar(bar)

		rec = get("/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should report resource usage", func() {
		rec := get("/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve on a random port", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer m.Shutdown(context.Background())

		rsp, err := http.Get(url + "/api/reports")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})

var _ = Describe("selectPages", func() {
	pages := []analysis.PageCount{{Page: "1", Count: 3}, {Page: "2", Count: 2}}

	It("should return everything without a limit", func() {
		Expect(selectPages(pages, 0, 0)).To(Equal(pages))
	})

	It("should return nothing past the end", func() {
		Expect(selectPages(pages, 0, 5)).To(BeEmpty())
	})
})
