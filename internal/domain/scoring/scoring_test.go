package scoring_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func exampleCatalog() *catalog.Catalog {
	cat, err := catalog.New([]model.Metric{
		{ID: 1, Name: "Regular Feedback", Weight: 5, Kind: model.KindContinuous, Max: 1, HighThreshold: 1},
		{ID: 2, Name: "Cross Selling", Weight: 3, Kind: model.KindContinuous, Max: 10, HighThreshold: 7, LowThreshold: 3},
	})
	if err != nil {
		panic(err)
	}
	return cat
}

func TestMaximumPossibleScore(t *testing.T) {
	Convey("Given the example catalog", t, func() {
		cat := exampleCatalog()

		Convey("Then the maximum is 5x1 + 3x10", func() {
			max := scoring.MaximumPossibleScore(cat)
			So(max.Total, ShouldEqual, 35)
			So(max.Corrected, ShouldEqual, 35)
			So(max.Warnings, ShouldBeEmpty)
			So(max.Version, ShouldEqual, cat.Version())
		})
	})

	Convey("Given a discrete metric", t, func() {
		cat, _ := catalog.New([]model.Metric{{
			ID: 7, Name: "Lifecycle", Weight: 2, Kind: model.KindDiscrete,
			Options: []model.MetricOption{{Label: "Onboarding", Value: 1}, {Label: "Mature", Value: 4}, {Label: "Churning", Value: 0}},
		}})

		Convey("Then the highest option value is used", func() {
			So(scoring.MaximumPossibleScore(cat).Total, ShouldEqual, 8)
		})
	})

	Convey("Given an empty catalog", t, func() {
		cat, _ := catalog.New(nil)

		Convey("Then the maximum is zero without warnings", func() {
			max := scoring.MaximumPossibleScore(cat)
			So(max.Total, ShouldEqual, 0)
			So(max.Warnings, ShouldBeEmpty)
			So(scoring.ContributionBreakdown(cat), ShouldBeEmpty)
		})
	})

	Convey("Given a metric with a zero maximum", t, func() {
		cat, _ := catalog.New([]model.Metric{
			{ID: 1, Name: "Feedback", Weight: 5, Max: 1, HighThreshold: 1},
			{ID: 9, Name: "Unbounded", Weight: 4, Max: 0},
		})

		Convey("Then it contributes nothing and is flagged", func() {
			max := scoring.MaximumPossibleScore(cat)
			So(max.Total, ShouldEqual, 5)
			So(len(max.Warnings), ShouldEqual, 1)
			So(max.Warnings[0].MetricID, ShouldEqual, 9)
			So(max.Warnings[0].Issue, ShouldEqual, scoring.IssueMissingMax)
		})
	})
}

func TestMaximumPossibleScore_Monotonic(t *testing.T) {
	Convey("Given a catalog", t, func() {
		cat := exampleCatalog()
		before := scoring.MaximumPossibleScore(cat).Total

		Convey("When adding metrics", func() {
			for _, extra := range []model.Metric{
				{ID: 3, Name: "Zero", Weight: 1, Max: 0},
				{ID: 4, Name: "Small", Weight: 1, Max: 0.5},
				{ID: 5, Name: "Options", Weight: 2, Kind: model.KindDiscrete, Options: []model.MetricOption{{Value: 3}}},
			} {
				next, err := cat.With(extra)
				So(err, ShouldBeNil)
				after := scoring.MaximumPossibleScore(next).Total
				So(after, ShouldBeGreaterThanOrEqualTo, before)
				cat, before = next, after
			}
		})

		Convey("When removing metrics", func() {
			for _, id := range []int64{2, 1} {
				next := cat.Without(id)
				after := scoring.MaximumPossibleScore(next).Total
				So(after, ShouldBeLessThanOrEqualTo, before)
				cat, before = next, after
			}
			So(before, ShouldEqual, 0)
		})
	})
}

func TestContributionBreakdown(t *testing.T) {
	Convey("Given the example catalog", t, func() {
		rows := scoring.ContributionBreakdown(exampleCatalog())

		Convey("Then each row carries its share of the total", func() {
			So(len(rows), ShouldEqual, 2)
			So(rows[0].MaxWeightedPoints, ShouldEqual, 5)
			So(rows[0].PercentOfTotal, ShouldAlmostEqual, 100.0*5/35, 1e-9)
			So(rows[1].MaxRawValue, ShouldEqual, 10)
			So(rows[1].Weight, ShouldEqual, 3)
			So(rows[1].PercentOfTotal, ShouldAlmostEqual, 100.0*30/35, 1e-9)
			So(rows[0].PercentOfTotal+rows[1].PercentOfTotal, ShouldAlmostEqual, 100, 1e-9)
		})
	})

	Convey("Given only misconfigured metrics", t, func() {
		cat, _ := catalog.New([]model.Metric{{ID: 1, Name: "Broken", Weight: 2}})
		rows := scoring.ContributionBreakdown(cat)

		Convey("Then percentages are zero and the row is flagged", func() {
			So(rows[0].Misconfigured, ShouldBeTrue)
			So(rows[0].Issue, ShouldEqual, scoring.IssueMissingMax)
			So(rows[0].PercentOfTotal, ShouldEqual, 0)
		})
	})
}

func TestProfile(t *testing.T) {
	Convey("Given factor maps", t, func() {
		Convey("When factors are valid", func() {
			p, err := scoring.NewProfile(map[int64]float64{2: 0.5}, map[string]float64{"Cross Selling": 0.33, "Gut Instinct": 1})
			So(err, ShouldBeNil)

			Convey("Then ids win over names and unknown metrics get 1", func() {
				So(p.Factor(model.Metric{ID: 2, Name: "Cross Selling"}), ShouldEqual, 0.5)
				So(p.Factor(model.Metric{ID: 8, Name: "cross selling"}), ShouldEqual, 0.33)
				So(p.Factor(model.Metric{ID: 9, Name: "Other"}), ShouldEqual, 1)
			})
		})

		Convey("When a factor is outside (0, 1]", func() {
			for _, f := range []float64{0, -0.1, 1.5} {
				_, err := scoring.NewProfile(nil, map[string]float64{"x": f})
				So(errors.Is(err, scoring.ErrInvalidFactor), ShouldBeTrue)
			}
			_, err := scoring.NewProfile(map[int64]float64{1: 2}, nil)
			So(errors.Is(err, scoring.ErrInvalidFactor), ShouldBeTrue)
		})
	})
}

func TestNormalizer(t *testing.T) {
	cat := exampleCatalog()
	feedback, _ := cat.Get(1)
	crossSelling, _ := cat.Get(2)

	Convey("Given a normalizer with a correction for the wide metric", t, func() {
		p, _ := scoring.NewProfile(nil, map[string]float64{"Cross Selling": 0.5})
		n := scoring.NewNormalizer(scoring.WithProfile(p))

		Convey("Then display contributions apply weight and factor", func() {
			So(n.DisplayContribution(feedback, 1), ShouldEqual, 5)
			So(n.DisplayContribution(crossSelling, 4), ShouldEqual, 6)
		})

		Convey("And normalized contributions divide by the maximum", func() {
			So(n.NormalizedContribution(feedback, 1), ShouldEqual, 1)
			So(n.NormalizedContribution(crossSelling, 4), ShouldEqual, 0.4)
		})

		Convey("And the corrected maximum applies the factor", func() {
			max := n.MaximumPossibleScore(cat)
			So(max.Total, ShouldEqual, 35)
			So(max.Corrected, ShouldEqual, 20)
		})
	})

	Convey("Given realistic maxima", t, func() {
		n := scoring.NewNormalizer(scoring.WithRealisticMax(map[int64]float64{2: 5, 1: 0}))

		Convey("Then the realistic maximum replaces the theoretical one", func() {
			So(n.NormalizedContribution(crossSelling, 4), ShouldEqual, 0.8)
			So(n.NormalizedContribution(crossSelling, 8), ShouldEqual, 1)
			So(n.NormalizedContribution(feedback, 1), ShouldEqual, 1)
		})
	})

	Convey("Given a metric with a zero maximum", t, func() {
		n := scoring.NewNormalizer()
		m := model.Metric{ID: 3, Weight: 2}

		Convey("Then normalization short-circuits to zero", func() {
			So(n.NormalizedContribution(m, 5), ShouldEqual, 0)
		})
	})

	Convey("Given out-of-range raw values", t, func() {
		Convey("When clamping", func() {
			n := scoring.NewNormalizer()
			v, clamped, err := n.Bound(crossSelling, 14)
			So(err, ShouldBeNil)
			So(clamped, ShouldBeTrue)
			So(v, ShouldEqual, 10)

			v, clamped, err = n.Bound(crossSelling, -2)
			So(err, ShouldBeNil)
			So(clamped, ShouldBeTrue)
			So(v, ShouldEqual, 0)

			v, clamped, err = n.Bound(crossSelling, 4)
			So(err, ShouldBeNil)
			So(clamped, ShouldBeFalse)
			So(v, ShouldEqual, 4)
		})

		Convey("When rejecting", func() {
			n := scoring.NewNormalizer(scoring.WithClampPolicy(scoring.RejectOutOfRange))
			_, _, err := n.Bound(crossSelling, 14)
			So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
			So(n.Policy().String(), ShouldEqual, "reject")
		})
	})
}

func TestObservedMaxima(t *testing.T) {
	Convey("Given records across metrics", t, func() {
		maxima := scoring.ObservedMaxima([]model.ScoreRecord{
			{MetricID: 2, Value: 4},
			{MetricID: 2, Value: 7},
			{MetricID: 1, Value: 0},
			{MetricID: 3, Value: 2},
		})

		Convey("Then the largest positive value per metric is kept", func() {
			So(maxima, ShouldResemble, map[int64]float64{2: 7, 3: 2})
		})
	})
}

func TestBoundedMaxima(t *testing.T) {
	Convey("Given records with out-of-range values", t, func() {
		cat := exampleCatalog()
		records := []model.ScoreRecord{
			{MetricID: 2, Value: 4},
			{MetricID: 2, Value: 1000},
			{MetricID: 2, Value: -3},
			{MetricID: 1, Value: 1},
			{MetricID: 77, Value: 50},
		}

		for _, policy := range []scoring.ClampPolicy{scoring.ClampToBounds, scoring.RejectOutOfRange} {
			Convey("When the policy is "+policy.String(), func() {
				maxima := scoring.NewNormalizer(scoring.WithClampPolicy(policy)).BoundedMaxima(cat, records)

				Convey("Then only in-range values of known metrics count", func() {
					So(maxima, ShouldResemble, map[int64]float64{1: 1, 2: 4})
				})
			})
		}

		Convey("When every value of a metric is out of range", func() {
			maxima := scoring.NewNormalizer().BoundedMaxima(cat, []model.ScoreRecord{{MetricID: 2, Value: 11}})

			Convey("Then the metric is omitted", func() {
				So(maxima, ShouldBeEmpty)
			})
		})
	})
}

func TestMaxScoreCache(t *testing.T) {
	Convey("Given a cache", t, func() {
		cache := scoring.NewMaxScoreCache()
		cat := exampleCatalog()

		Convey("When reading the same catalog twice", func() {
			first, hit1 := cache.Get(cat, nil)
			second, hit2 := cache.Get(cat, nil)

			Convey("Then the second read is a hit", func() {
				So(hit1, ShouldBeFalse)
				So(hit2, ShouldBeTrue)
				So(second, ShouldResemble, first)
				hits, misses := cache.Stats()
				So(hits, ShouldEqual, 1)
				So(misses, ShouldEqual, 1)
			})
		})

		Convey("When the catalog changes", func() {
			_, _ = cache.Get(cat, nil)
			next, _ := cat.With(model.Metric{ID: 3, Name: "Gut Instinct", Weight: 2, Max: 5})
			max, hit := cache.Get(next, nil)

			Convey("Then the maximum is recomputed", func() {
				So(hit, ShouldBeFalse)
				So(max.Total, ShouldEqual, 45)
			})
		})

		Convey("When invalidated", func() {
			_, _ = cache.Get(cat, nil)
			cache.Invalidate()
			_, hit := cache.Get(cat, nil)
			So(hit, ShouldBeFalse)
		})

		Convey("When read concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					max, _ := cache.Get(cat, nil)
					if max.Total != 35 {
						panic("unexpected maximum")
					}
				}()
			}
			wg.Wait()
			hits, misses := cache.Stats()
			So(hits+misses, ShouldEqual, 16)
			So(misses, ShouldEqual, 1)
		})
	})
}
