package analysis

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/memtrace/trace"
)

func sampleReport() Report {
	return Report{
		Trace:    "sample.ref",
		Accesses: 6,
		Counts: []TypeCount{
			{trace.Instruction, 3},
			{trace.Load, 2},
			{trace.Store, 1},
			{trace.Modify, 0},
		},
		InstructionPages: []PageCount{{"0400000", 2}, {"0401000", 1}},
		DataPages:        []PageCount{{"0601000", 3}},
	}
}

var _ = ginkgo.Describe("CSVBackend", func() {
	ginkgo.It("should write one row per page", func() {
		filename := filepath.Join(ginkgo.GinkgoT().TempDir(), "pages.csv")

		backend, err := NewCSVBackend(filename)
		Expect(err).NotTo(HaveOccurred())
		Expect(backend.AddReport(sampleReport())).To(Succeed())
		Expect(backend.Close()).To(Succeed())
		Expect(backend.Close()).To(Succeed())

		f, err := os.Open(filename)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(Equal([][]string{
			{"Trace", "Kind", "Position", "Page", "Count"},
			{"sample.ref", "instruction", "1", "0x400000", "2"},
			{"sample.ref", "instruction", "2", "0x401000", "1"},
			{"sample.ref", "data", "1", "0x601000", "3"},
		}))
	})

	ginkgo.It("should fail when the file cannot be created", func() {
		_, err := NewCSVBackend(filepath.Join(ginkgo.GinkgoT().TempDir(), "missing", "x.csv"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = ginkgo.Describe("RecorderBackend", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.It("should create its tables", func() {
		recorder.EXPECT().CreateTable(AccessCountTable, AccessCountEntry{})
		recorder.EXPECT().CreateTable(PageCountTable, PageCountEntry{})

		_, err := NewRecorderBackend(recorder, "run")
		Expect(err).NotTo(HaveOccurred())
	})

	ginkgo.It("should fail if a table cannot be created", func() {
		recorder.EXPECT().
			CreateTable(AccessCountTable, AccessCountEntry{}).
			Return(errors.New("disk full"))

		_, err := NewRecorderBackend(recorder, "run")
		Expect(err).To(MatchError("disk full"))
	})

	ginkgo.It("should insert counts and pages", func() {
		recorder.EXPECT().CreateTable(gomock.Any(), gomock.Any()).Times(2)

		backend, err := NewRecorderBackend(recorder, "run")
		Expect(err).NotTo(HaveOccurred())

		recorder.EXPECT().
			InsertData(AccessCountTable, gomock.Any()).
			Times(4)
		recorder.EXPECT().InsertData(PageCountTable, PageCountEntry{
			RunID: "run", Trace: "sample.ref", Kind: KindInstruction,
			Position: 1, Page: "0400000", Count: 2,
		})
		recorder.EXPECT().InsertData(PageCountTable, PageCountEntry{
			RunID: "run", Trace: "sample.ref", Kind: KindInstruction,
			Position: 2, Page: "0401000", Count: 1,
		})
		recorder.EXPECT().InsertData(PageCountTable, PageCountEntry{
			RunID: "run", Trace: "sample.ref", Kind: KindData,
			Position: 1, Page: "0601000", Count: 3,
		})
		recorder.EXPECT().Flush()

		Expect(backend.AddReport(sampleReport())).To(Succeed())
		Expect(backend.Flush()).To(Succeed())
	})

	ginkgo.It("should stop at the first insert error", func() {
		recorder.EXPECT().CreateTable(gomock.Any(), gomock.Any()).Times(2)

		backend, err := NewRecorderBackend(recorder, "run")
		Expect(err).NotTo(HaveOccurred())

		recorder.EXPECT().
			InsertData(AccessCountTable, gomock.Any()).
			Return(errors.New("locked"))

		Expect(backend.AddReport(sampleReport())).To(MatchError("locked"))
	})
})
