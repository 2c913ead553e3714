package compare_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/frapfit/internal/compare"
)

type stubFit struct {
	rss float64
	df  int
}

func (s stubFit) ResidualSS() float64 { return s.rss }
func (s stubFit) DF() int             { return s.df }

var _ = Describe("FTest", func() {
	It("computes the extra-sum-of-squares statistic", func() {
		// reduced: rss 30 on 12 df; full: rss 10 on 10 df
		res, err := compare.FTest(30, 12, 10, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.DFNum).To(Equal(2))
		Expect(res.DFDen).To(Equal(10))
		Expect(res.F).To(BeNumerically("~", 10, 1e-12))
	})

	It("matches the closed-form F(2, d2) tail", func() {
		res, err := compare.FTest(30, 12, 10, 10)
		Expect(err).NotTo(HaveOccurred())
		// P[F(2, 10) > x] = (1 + 2x/10)^-5
		Expect(res.P).To(BeNumerically("~", math.Pow(1+2*res.F/10, -5), 1e-10))
		Expect(res.Significant(0.05)).To(BeTrue())
	})

	It("reports no difference when the fits are equal", func() {
		res, err := compare.FTest(10, 12, 10, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.F).To(BeZero())
		Expect(res.P).To(BeNumerically("~", 1, 1e-12))
		Expect(res.Significant(0.05)).To(BeFalse())
	})

	It("treats a perfect full fit as infinitely significant", func() {
		res, err := compare.FTest(1, 12, 0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(math.IsInf(res.F, 1)).To(BeTrue())
		Expect(res.P).To(BeZero())
	})

	It("treats two perfect fits as indistinguishable", func() {
		res, err := compare.FTest(0, 12, 0, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.F).To(BeZero())
		Expect(res.P).To(Equal(1.0))
	})

	DescribeTable("rejects invalid comparisons",
		func(rssR float64, dfR int, rssF float64, dfF int) {
			_, err := compare.FTest(rssR, dfR, rssF, dfF)
			Expect(err).To(HaveOccurred())
		},
		Entry("no residual df in the full model", 1.0, 3, 0.5, 0),
		Entry("not nested", 1.0, 10, 0.5, 10),
		Entry("reduced has fewer df", 1.0, 8, 0.5, 10),
		Entry("negative rss", -1.0, 12, 0.5, 10),
		Entry("NaN rss", 1.0, 12, math.NaN(), 10),
	)
})

var _ = Describe("Nested", func() {
	It("reads rss and df from the fits", func() {
		res, err := compare.Nested(stubFit{rss: 30, df: 12}, stubFit{rss: 10, df: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.RSSReduced).To(Equal(30.0))
		Expect(res.RSSFull).To(Equal(10.0))
		Expect(res.DFReduced).To(Equal(12))
		Expect(res.String()).To(ContainSubstring("F(2, 10)"))
	})
})
