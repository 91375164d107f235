package evolve_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/engine"
	"github.com/san-kum/popsynth/internal/engine/enginetest"
	"github.com/san-kum/popsynth/internal/evolve"
	"github.com/san-kum/popsynth/internal/units"
)

type recorder struct {
	steps       []evolve.Progress
	transitions []evolve.State
	onStep      func(evolve.Progress)
}

func (r *recorder) OnStep(p evolve.Progress) {
	r.steps = append(r.steps, p)
	if r.onStep != nil {
		r.onStep(p)
	}
}

func (r *recorder) OnState(from, to evolve.State) {
	r.transitions = append(r.transitions, to)
}

func testPopulation() (*astro.Binaries, *astro.Stars) {
	stars := astro.NewStars()
	binaries := astro.NewBinaries()
	for _, m := range []float64{1, 2, 4} {
		c1 := stars.Add(astro.Star{Mass: units.MSun.Of(m)})
		c2 := stars.Add(astro.Star{Mass: units.MSun.Of(m / 2)})
		binaries.Add(astro.Binary{
			Eccentricity:  units.Scalar(0),
			SemiMajorAxis: units.RSun.Of(1),
			Child1:        c1,
			Child2:        c2,
		})
	}
	return binaries, stars
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ = Describe("Driver", func() {
	var (
		ctx      context.Context
		fake     *enginetest.Fake
		binaries *astro.Binaries
		stars    *astro.Stars
		rec      *recorder
		driver   *evolve.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = enginetest.New()
		binaries, stars = testPopulation()
		rec = &recorder{}
		driver = evolve.New(fake.Factory(), evolve.WithObserver(rec), evolve.WithLogger(quiet))
	})

	It("should hand over stars before binaries and advance in fixed steps", func() {
		res, err := driver.Evolve(ctx, binaries, stars, units.Gyr.Of(2), units.Myr.Of(500))
		Expect(err).NotTo(HaveOccurred())

		Expect(fake.Calls).To(Equal([]string{
			"add_stars", "add_binaries",
			"evolve_model", "evolve_model", "evolve_model", "evolve_model",
			"close",
		}))
		Expect(fake.Closed).To(BeTrue())

		targets := []float64{}
		for _, t := range fake.Targets {
			targets = append(targets, t.MustValueIn(units.Gyr))
		}
		Expect(targets).To(Equal([]float64{0.5, 1.0, 1.5, 2.0}))

		Expect(res.Steps).To(Equal(4))
		Expect(res.ModelTime.MustValueIn(units.Myr)).To(BeNumerically("~", 2000, 1e-9))
		Expect(driver.State()).To(Equal(evolve.Done))
	})

	It("should report progress after every advance", func() {
		_, err := driver.Evolve(ctx, binaries, stars, units.Gyr.Of(2), units.Myr.Of(500))
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.steps).To(HaveLen(4))
		for i, p := range rec.steps {
			Expect(p.Step).To(Equal(i + 1))
			Expect(p.Total).To(Equal(4))
			Expect(p.End.MustValueIn(units.Gyr)).To(Equal(2.0))
		}
		Expect(rec.transitions).To(Equal([]evolve.State{evolve.Running, evolve.Done}))
	})

	It("should not clamp the last step to the end time", func() {
		res, err := driver.Evolve(ctx, binaries, stars, units.Gyr.Of(1), units.Myr.Of(300))
		Expect(err).NotTo(HaveOccurred())

		Expect(fake.Targets).To(HaveLen(4))
		last := fake.Targets[len(fake.Targets)-1].MustValueIn(units.Myr)
		Expect(last).To(BeNumerically("~", 1200, 1e-6))
		Expect(res.ModelTime.MustValueIn(units.Myr)).To(BeNumerically(">", 1000))
	})

	It("should copy the final engine state into the caller's stores", func() {
		fake.Decay = 0.5
		_, err := driver.Evolve(ctx, binaries, stars, units.Gyr.Of(2), units.Myr.Of(500))
		Expect(err).NotTo(HaveOccurred())

		for _, s := range stars.All() {
			Expect(s.Age.MustValueIn(units.Gyr)).To(Equal(2.0))
		}
		Expect(stars.At(0).Get().Mass.MustValueIn(units.MSun)).To(BeNumerically("~", 1.0/16, 1e-12))
		Expect(stars.At(5).Get().Mass.MustValueIn(units.MSun)).To(BeNumerically("~", 2.0/16, 1e-12))

		for _, b := range binaries.All() {
			Expect(b.SemiMajorAxis.MustValueIn(units.RSun)).To(BeNumerically("~", 5.0625, 1e-12))
			Expect(stars.Contains(b.Child1)).To(BeTrue())
			Expect(stars.Contains(b.Child2)).To(BeTrue())
		}
	})

	It("should not synchronise while the engine is running", func() {
		rec.onStep = func(evolve.Progress) {
			Expect(stars.At(0).Get().Age.IsSet()).To(BeFalse())
		}
		_, err := driver.Evolve(ctx, binaries, stars, units.Gyr.Of(2), units.Myr.Of(500))
		Expect(err).NotTo(HaveOccurred())
		Expect(stars.At(0).Get().Age.IsSet()).To(BeTrue())
	})

	It("should fail the run on an engine fault without copying back", func() {
		fake.FailAt = 2
		_, err := driver.Evolve(ctx, binaries, stars, units.Gyr.Of(2), units.Myr.Of(500))

		Expect(err).To(MatchError(enginetest.ErrInjected))
		var stepErr *evolve.StepError
		Expect(errors.As(err, &stepErr)).To(BeTrue())
		Expect(stepErr.Step).To(Equal(2))
		Expect(stepErr.Time.MustValueIn(units.Gyr)).To(Equal(1.0))

		Expect(stars.At(0).Get().Age.IsSet()).To(BeFalse())
		Expect(fake.Targets).To(HaveLen(2))
		Expect(fake.Closed).To(BeTrue())
		Expect(driver.State()).To(Equal(evolve.Failed))
		Expect(rec.transitions).To(Equal([]evolve.State{evolve.Running, evolve.Failed}))
	})

	It("should stop when the context is canceled", func() {
		cctx, cancel := context.WithCancel(ctx)
		rec.onStep = func(p evolve.Progress) {
			if p.Step == 1 {
				cancel()
			}
		}
		_, err := driver.Evolve(cctx, binaries, stars, units.Gyr.Of(2), units.Myr.Of(500))
		Expect(err).To(MatchError(context.Canceled))
		Expect(fake.Targets).To(HaveLen(1))
	})

	It("should stop at once on a canceled context however small the step", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := driver.Evolve(cctx, binaries, stars, units.Gyr.Of(2), units.Myr.Of(1e-12))
		Expect(err).To(MatchError(context.Canceled))
		Expect(fake.Targets).To(BeEmpty())
		Expect(driver.State()).To(Equal(evolve.Failed))
	})

	It("should not let rounding add an advance", func() {
		res, err := driver.Evolve(ctx, binaries, stars, units.Myr.Of(1), units.Myr.Of(0.1))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Steps).To(Equal(10))
		Expect(fake.Targets).To(HaveLen(10))
		Expect(fake.Targets[9].MustValueIn(units.Myr)).To(BeNumerically("~", 1, 1e-12))
	})

	It("should run only once", func() {
		_, err := driver.Evolve(ctx, binaries, stars, units.Gyr.Of(1), units.Myr.Of(500))
		Expect(err).NotTo(HaveOccurred())

		_, err = driver.Evolve(ctx, binaries, stars, units.Gyr.Of(1), units.Myr.Of(500))
		Expect(err).To(MatchError(evolve.ErrNotIdle))
	})

	It("should copy back even when no advance is needed", func() {
		res, err := driver.Evolve(ctx, binaries, stars, units.Gyr.Of(0), units.Myr.Of(500))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Steps).To(Equal(0))
		Expect(fake.Targets).To(BeEmpty())
		Expect(stars.At(0).Get().Mass.MustValueIn(units.MSun)).To(Equal(1.0))
	})

	DescribeTable("should reject bad times before starting the engine",
		func(end, step units.Quantity, want error) {
			started := false
			d := evolve.New(func() (engine.Engine, error) {
				started = true
				return fake, nil
			}, evolve.WithLogger(quiet))

			_, err := d.Evolve(ctx, binaries, stars, end, step)
			Expect(err).To(MatchError(want))
			Expect(started).To(BeFalse())
			Expect(fake.Calls).To(BeEmpty())
			Expect(d.State()).To(Equal(evolve.Idle))
		},
		Entry("zero step", units.Gyr.Of(2), units.Myr.Of(0), evolve.ErrTimeStep),
		Entry("negative step", units.Gyr.Of(2), units.Myr.Of(-5), evolve.ErrTimeStep),
		Entry("step with mass unit", units.Gyr.Of(2), units.MSun.Of(1), evolve.ErrTimeStep),
		Entry("unset step", units.Gyr.Of(2), units.Quantity{}, evolve.ErrTimeStep),
		Entry("end with length unit", units.RSun.Of(2), units.Myr.Of(500), evolve.ErrEndTime),
		Entry("step too small to reach the end", units.Gyr.Of(2), units.Myr.Of(1e-13), evolve.ErrTimeStep),
	)

	It("should refuse a driver without an engine", func() {
		_, err := evolve.New(nil).Evolve(ctx, binaries, stars, units.Gyr.Of(1), units.Myr.Of(1))
		Expect(err).To(MatchError(evolve.ErrNoEngine))
	})

	It("should surface engine start failures", func() {
		boom := errors.New("boom")
		d := evolve.New(func() (engine.Engine, error) { return nil, boom }, evolve.WithLogger(quiet))
		_, err := d.Evolve(ctx, binaries, stars, units.Gyr.Of(1), units.Myr.Of(500))
		Expect(err).To(MatchError(boom))
		Expect(d.State()).To(Equal(evolve.Failed))
	})

	It("should run through the one-call entry point", func() {
		res, err := evolve.Population(ctx, fake.Factory(), binaries, stars, units.Gyr.Of(1), units.Myr.Of(250), evolve.WithLogger(quiet))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Steps).To(Equal(4))
	})
})

var _ = Describe("PlannedSteps", func() {
	It("should count the advances the loop makes", func() {
		Expect(evolve.PlannedSteps(units.Gyr.Of(2), units.Gyr.Of(0.5))).To(Equal(4))
		Expect(evolve.PlannedSteps(units.Myr.Of(1000), units.Myr.Of(300))).To(Equal(4))
		Expect(evolve.PlannedSteps(units.Myr.Of(0), units.Myr.Of(300))).To(Equal(0))
		Expect(evolve.PlannedSteps(units.Myr.Of(1), units.Myr.Of(0.1))).To(Equal(10))
		Expect(evolve.PlannedSteps(units.Myr.Of(0.3), units.Myr.Of(0.1))).To(Equal(3))
		Expect(evolve.PlannedSteps(units.Gyr.Of(2), units.Gyr.Of(1e-15))).To(BeNumerically("~", 2e15, 1))
	})
})
