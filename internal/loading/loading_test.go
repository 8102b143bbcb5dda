package loading_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ravi-mn/prognos/internal/loading"
	"github.com/ravi-mn/prognos/internal/prog"
)

var _ = Describe("Const", func() {
	It("returns the same input at any time", func() {
		c := loading.NewConst(prog.Input{"i": 2.5})
		Expect(c.Load(0, nil)).To(Equal(prog.Input{"i": 2.5}))
		Expect(c.Load(1e6, nil)).To(Equal(prog.Input{"i": 2.5}))
	})

	It("returns a copy callers cannot mutate", func() {
		c := loading.NewConst(prog.Input{"i": 1.0})
		u := c.Load(0, nil)
		u["i"] = 99
		Expect(c.Load(0, nil)["i"]).To(Equal(1.0))
	})
})

var _ = Describe("Piecewise", func() {
	It("selects the value for the bracket containing t", func() {
		p, err := loading.NewPiecewise(
			[]float64{600, 900, 1800},
			map[string][]float64{"i": {2, 1, 4}},
		)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Load(0, nil)["i"]).To(Equal(2.0))
		Expect(p.Load(599.9, nil)["i"]).To(Equal(2.0))
		Expect(p.Load(600, nil)["i"]).To(Equal(1.0))
		Expect(p.Load(1200, nil)["i"]).To(Equal(4.0))
	})

	It("treats an extra value as the default past the last time", func() {
		p, err := loading.NewPiecewise(
			[]float64{600, 900},
			map[string][]float64{"i": {2, 1, 3}},
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Load(950, nil)["i"]).To(Equal(3.0))
		Expect(p.Load(1e9, nil)["i"]).To(Equal(3.0))
	})

	It("holds the last value when times and values have equal length", func() {
		p, err := loading.NewPiecewise(
			[]float64{600, 900},
			map[string][]float64{"i": {2, 1}},
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Load(950, nil)["i"]).To(Equal(1.0))
	})

	It("rejects mismatched value lengths", func() {
		_, err := loading.NewPiecewise(
			[]float64{1, 2},
			map[string][]float64{"a": {1, 2}, "b": {1, 2, 3, 4}},
		)
		Expect(err).To(HaveOccurred())
	})

	It("rejects unsorted times", func() {
		_, err := loading.NewPiecewise(
			[]float64{5, 1},
			map[string][]float64{"i": {1, 2}},
		)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("MovingAverage", func() {
	It("averages the measurements seen so far", func() {
		m := loading.NewMovingAverage([]string{"i"}, 4)
		m.Add(prog.Input{"i": 1})
		m.Add(prog.Input{"i": 3})
		Expect(m.Load(10, nil)["i"]).To(Equal(2.0))
	})

	It("evicts measurements beyond the window", func() {
		m := loading.NewMovingAverage([]string{"i"}, 2)
		m.Add(prog.Input{"i": 100})
		m.Add(prog.Input{"i": 4})
		m.Add(prog.Input{"i": 6})
		Expect(m.Load(0, nil)["i"]).To(Equal(5.0))
	})

	It("returns zero before any measurement", func() {
		m := loading.NewMovingAverage([]string{"i"}, 3)
		Expect(m.Load(0, nil)["i"]).To(Equal(0.0))
	})
})

var _ = Describe("GaussianNoiseWrapper", func() {
	base := loading.NewConst(prog.Input{"i": 5.0})

	It("perturbs the wrapped profile with the configured spread", func() {
		g := loading.NewGaussianNoiseWrapper(base.Load, 0.5, 7)
		sum, sumSq := 0.0, 0.0
		const n = 5000
		for k := 0; k < n; k++ {
			v := g.Load(0, nil)["i"]
			sum += v
			sumSq += v * v
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		Expect(mean).To(BeNumerically("~", 5.0, 0.05))
		Expect(variance).To(BeNumerically("~", 0.25, 0.03))
	})

	It("is deterministic for a fixed seed", func() {
		a := loading.NewGaussianNoiseWrapper(base.Load, 0.5, 42)
		b := loading.NewGaussianNoiseWrapper(base.Load, 0.5, 42)
		for k := 0; k < 10; k++ {
			Expect(a.Load(0, nil)["i"]).To(Equal(b.Load(0, nil)["i"]))
		}
	})

	It("grows the spread over time with a slope", func() {
		g := loading.NewGaussianNoiseWrapper(base.Load, 0.0, 1).WithSlope(1.0, 100)

		// before t0 the profile is exact
		Expect(g.Load(50, nil)["i"]).To(Equal(5.0))

		// well past t0 the added noise is visible
		deviated := false
		for k := 0; k < 20; k++ {
			if v := g.Load(200, nil)["i"]; v != 5.0 {
				deviated = true
				break
			}
		}
		Expect(deviated).To(BeTrue())
	})
})
