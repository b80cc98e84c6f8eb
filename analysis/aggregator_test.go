package analysis

import (
	"fmt"
	"strings"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memtrace/trace"
)

func mustAnalyze(lines ...string) Report {
	report, err := Analyze("test.ref", strings.NewReader(strings.Join(lines, "\n")))
	Expect(err).NotTo(HaveOccurred())

	return report
}

func sumPages(pages []PageCount) int {
	sum := 0
	for _, p := range pages {
		sum += p.Count
	}

	return sum
}

var _ = ginkgo.Describe("Aggregator", func() {
	ginkgo.It("should count the example trace", func() {
		report := mustAnalyze(
			"I 00000040,4",
			"I 00000040,4",
			"L 00000100,4",
		)

		Expect(report.Count(trace.Instruction)).To(Equal(2))
		Expect(report.Count(trace.Load)).To(Equal(1))
		Expect(report.Count(trace.Store)).To(Equal(0))
		Expect(report.Count(trace.Modify)).To(Equal(0))
		Expect(report.InstructionPages).To(Equal([]PageCount{{"00000000", 2}}))
		Expect(report.DataPages).To(Equal([]PageCount{{"00000000", 1}}))
		Expect(report.UniquePages()).To(Equal(2))
	})

	ginkgo.It("should keep type counts consistent with page counts", func() {
		report := mustAnalyze(
			"I 0400000,3",
			"L 7ff000010,8",
			"S 7ff000020,8",
			"M 0601040,4",
			"I 0401000,3",
			"I 0400010,3",
			"S 0601ff8,8",
		)

		total := 0
		for _, c := range report.Counts {
			total += c.Count
		}

		Expect(total).To(Equal(7))
		Expect(report.Accesses).To(Equal(7))
		Expect(sumPages(report.InstructionPages)).
			To(Equal(report.Count(trace.Instruction)))
		Expect(sumPages(report.DataPages)).To(Equal(
			report.Count(trace.Load) +
				report.Count(trace.Store) +
				report.Count(trace.Modify)))
	})

	ginkgo.It("should merge loads, stores and modifies into data pages", func() {
		agg := NewAggregator()
		for _, line := range []string{"L 0601000,8", "S 0601008,8", "M 0601010,8"} {
			access, err := trace.ParseLine(line)
			Expect(err).NotTo(HaveOccurred())
			agg.Add(access)
		}

		Expect(agg.DataPageCount("0601000")).To(Equal(3))
		Expect(agg.InstructionPageCount("0601000")).To(Equal(0))
		Expect(agg.Accesses()).To(Equal(3))
	})

	ginkgo.It("should count a page shared by both kinds twice", func() {
		report := mustAnalyze("I 0400000,3", "L 0400010,8")

		Expect(report.UniquePages()).To(Equal(2))
	})

	ginkgo.It("should rank access types by count, stable on I, L, S, M", func() {
		report := mustAnalyze(
			"S 0601000,8",
			"S 0601000,8",
			"M 0601000,8",
			"I 0400000,3",
		)

		Expect(report.Counts).To(Equal([]TypeCount{
			{trace.Store, 2},
			{trace.Instruction, 1},
			{trace.Modify, 1},
			{trace.Load, 0},
		}))
	})

	ginkgo.It("should keep first-touch order for pages with equal counts", func() {
		report := mustAnalyze(
			"L 0603000,8",
			"L 0601000,8",
			"L 0602000,8",
			"L 0602000,8",
			"L 0601000,8",
		)

		Expect(report.DataPages).To(Equal([]PageCount{
			{"0601000", 2},
			{"0602000", 2},
			{"0603000", 1},
		}))
	})

	ginkgo.It("should list every page when there are at most 15", func() {
		var lines []string
		for i := 0; i < TopN; i++ {
			lines = append(lines, fmt.Sprintf("I %04x000,3", i+1))
		}

		report := mustAnalyze(lines...)

		Expect(report.TopInstructionPages()).To(HaveLen(TopN))
		Expect(report.TopDataPages()).To(BeEmpty())
	})

	ginkgo.It("should cut the listing at 15 pages, hottest first", func() {
		var lines []string
		for i := 0; i < 20; i++ {
			for j := 0; j <= i; j++ {
				lines = append(lines, fmt.Sprintf("L %04x010,8", i+1))
			}
		}

		report := mustAnalyze(lines...)
		top := report.TopDataPages()

		Expect(report.DataPages).To(HaveLen(20))
		Expect(top).To(HaveLen(TopN))
		Expect(top[0]).To(Equal(PageCount{"0014000", 20}))
		Expect(top[TopN-1]).To(Equal(PageCount{"0006000", 6}))

		for i := 1; i < len(top); i++ {
			Expect(top[i-1].Count).To(BeNumerically(">=", top[i].Count))
		}
	})

	ginkgo.It("should produce identical reports for identical input", func() {
		lines := []string{"I 0400000,3", "L 0601000,8", "S 0602000,8", "L 0601000,8"}

		Expect(mustAnalyze(lines...)).To(Equal(mustAnalyze(lines...)))
	})

	ginkgo.It("should stop at a malformed line", func() {
		_, err := Analyze("bad.ref", strings.NewReader("I 0400000,3\nZ 0400000,3\n"))

		Expect(err).To(MatchError(trace.ErrUnknownAccessType))
	})

	ginkgo.It("should skip blank lines", func() {
		report := mustAnalyze("", "I 0400000,3", "   ", "")

		Expect(report.Accesses).To(Equal(1))
	})
})
