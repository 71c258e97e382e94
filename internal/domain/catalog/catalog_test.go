package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/engage/internal/domain/catalog"
	"github.com/okian/engage/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleMetrics() []model.Metric {
	return []model.Metric{
		{
			ID: 1, Name: "Regular Feedback", Weight: 5, Kind: model.KindDiscrete,
			Options:       []model.MetricOption{{Label: "No", Value: 0}, {Label: "Yes", Value: 1}},
			HighThreshold: 1, LowThreshold: 0,
		},
		{ID: 2, Name: "Cross Selling", Weight: 3, Kind: model.KindContinuous, Min: 0, Max: 10, HighThreshold: 7, LowThreshold: 3},
	}
}

type fakeSource struct {
	metrics []model.Metric
	err     error
}

func (f fakeSource) FetchMetrics(context.Context) ([]model.Metric, error) { return f.metrics, f.err }

func TestCatalog_New(t *testing.T) {
	Convey("Given valid metric definitions", t, func() {
		cat, err := catalog.New(sampleMetrics())

		Convey("Then the catalog keeps input order", func() {
			So(err, ShouldBeNil)
			So(cat.Len(), ShouldEqual, 2)
			list := cat.List()
			So(list[0].ID, ShouldEqual, 1)
			So(list[1].ID, ShouldEqual, 2)
		})

		Convey("And metrics resolve by id", func() {
			m, err := cat.Get(2)
			So(err, ShouldBeNil)
			So(m.Name, ShouldEqual, "Cross Selling")
		})

		Convey("And unknown ids report not found", func() {
			_, err := cat.Get(99)
			So(errors.Is(err, catalog.ErrMetricNotFound), ShouldBeTrue)
			_, ok := cat.Lookup(99)
			So(ok, ShouldBeFalse)
		})

		Convey("And List returns a copy", func() {
			list := cat.List()
			list[0].Weight = 100
			m, _ := cat.Get(1)
			So(m.Weight, ShouldEqual, 5)
		})
	})

	Convey("Given invalid metric definitions", t, func() {
		bad := []model.Metric{
			{ID: 1, Name: "zero weight", Weight: 0, Max: 1},
			{ID: 2, Name: "empty options", Weight: 1, Kind: model.KindDiscrete},
			{ID: 3, Name: "dup options", Weight: 1, Kind: model.KindDiscrete, Options: []model.MetricOption{{Value: 1}, {Value: 1}}},
			{ID: 4, Name: "inverted thresholds", Weight: 1, Max: 10, HighThreshold: 2, LowThreshold: 5},
		}

		Convey("When building a catalog", func() {
			cat, err := catalog.New(bad)

			Convey("Then every violation is reported", func() {
				So(cat, ShouldBeNil)
				So(errors.Is(err, catalog.ErrInvalidMetric), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "weight 0")
				So(err.Error(), ShouldContainSubstring, "no options")
				So(err.Error(), ShouldContainSubstring, "duplicate option value")
				So(err.Error(), ShouldContainSubstring, "below low threshold")
			})
		})

		Convey("When ids collide", func() {
			ms := sampleMetrics()
			ms[1].ID = 1
			_, err := catalog.New(ms)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "duplicate metric id 1")
		})
	})

	Convey("Given an empty definition list", t, func() {
		cat, err := catalog.New(nil)
		So(err, ShouldBeNil)
		So(cat.Len(), ShouldEqual, 0)
		So(cat.List(), ShouldBeEmpty)
	})
}

func TestCatalog_Version(t *testing.T) {
	Convey("Given two catalogs with the same content", t, func() {
		a, _ := catalog.New(sampleMetrics())
		b, _ := catalog.New(sampleMetrics())

		Convey("Then they share a version", func() {
			So(a.Version(), ShouldEqual, b.Version())
			So(a.Version(), ShouldNotEqual, 0)
		})

		Convey("When a metric weight changes", func() {
			ms := sampleMetrics()
			ms[1].Weight = 4
			c, err := catalog.New(ms)
			So(err, ShouldBeNil)

			Convey("Then the version changes", func() {
				So(c.Version(), ShouldNotEqual, a.Version())
			})
		})

		Convey("When the version is pinned", func() {
			c, _ := catalog.New(sampleMetrics(), catalog.WithVersion(42))
			So(c.Version(), ShouldEqual, 42)
		})
	})
}

func TestCatalog_WithWithout(t *testing.T) {
	Convey("Given a catalog", t, func() {
		cat, _ := catalog.New(sampleMetrics())

		Convey("When adding a metric", func() {
			next, err := cat.With(model.Metric{ID: 3, Name: "Gut Instinct", Weight: 2, Max: 5})
			So(err, ShouldBeNil)

			Convey("Then the new catalog has it and the old one does not", func() {
				So(next.Len(), ShouldEqual, 3)
				So(cat.Len(), ShouldEqual, 2)
				So(next.Version(), ShouldNotEqual, cat.Version())
			})
		})

		Convey("When replacing a metric", func() {
			next, err := cat.With(model.Metric{ID: 2, Name: "Cross Selling", Weight: 1, Max: 10, HighThreshold: 7, LowThreshold: 3})
			So(err, ShouldBeNil)
			m, _ := next.Get(2)
			So(m.Weight, ShouldEqual, 1)
			So(next.Len(), ShouldEqual, 2)
		})

		Convey("When removing a metric", func() {
			next := cat.Without(1)
			So(next.Len(), ShouldEqual, 1)
			_, ok := next.Lookup(1)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestCatalog_Load(t *testing.T) {
	Convey("Given a metric source", t, func() {
		Convey("When it returns definitions", func() {
			cat, err := catalog.Load(context.Background(), fakeSource{metrics: sampleMetrics()})
			So(err, ShouldBeNil)
			So(cat.Len(), ShouldEqual, 2)
		})

		Convey("When it fails", func() {
			boom := errors.New("boom")
			_, err := catalog.Load(context.Background(), fakeSource{err: boom})
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})
}
