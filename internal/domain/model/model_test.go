package model_test

import (
	"testing"
	"time"

	model "github.com/okian/engage/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMetricBounds(t *testing.T) {
	convey.Convey("Given a continuous metric", t, func() {
		m := model.Metric{ID: 2, Weight: 3, Kind: model.KindContinuous, Min: 0, Max: 10}

		convey.Convey("Then its bounds come from Min and Max", func() {
			convey.So(m.MaxRaw(), convey.ShouldEqual, 10)
			convey.So(m.MinRaw(), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given a discrete metric", t, func() {
		m := model.Metric{
			ID:     1,
			Weight: 5,
			Kind:   model.KindDiscrete,
			Max:    99, // ignored for discrete metrics
			Options: []model.MetricOption{
				{Label: "Ideal", Value: 1},
				{Label: "Low", Value: 0},
				{Label: "Penalty", Value: -1},
			},
		}

		convey.Convey("Then its bounds come from the option values", func() {
			convey.So(m.MaxRaw(), convey.ShouldEqual, 1)
			convey.So(m.MinRaw(), convey.ShouldEqual, -1)
		})

		convey.Convey("And an empty option set has no bounds", func() {
			m.Options = nil
			convey.So(m.MaxRaw(), convey.ShouldEqual, 0)
			convey.So(m.MinRaw(), convey.ShouldEqual, 0)
		})
	})
}

func TestMetricLevel(t *testing.T) {
	convey.Convey("Given a metric with thresholds 3 and 7", t, func() {
		m := model.Metric{Max: 10, LowThreshold: 3, HighThreshold: 7}

		convey.So(m.Level(9), convey.ShouldEqual, model.LevelHigh)
		convey.So(m.Level(7), convey.ShouldEqual, model.LevelHigh)
		convey.So(m.Level(5), convey.ShouldEqual, model.LevelNormal)
		convey.So(m.Level(3), convey.ShouldEqual, model.LevelLow)
		convey.So(m.Level(0), convey.ShouldEqual, model.LevelLow)
	})
}

func TestParseMetricKind(t *testing.T) {
	convey.Convey("Given kind spellings", t, func() {
		for in, want := range map[string]model.MetricKind{
			"continuous": model.KindContinuous,
			"number":     model.KindContinuous,
			"":           model.KindContinuous,
			"Discrete":   model.KindDiscrete,
			" select ":   model.KindDiscrete,
		} {
			got, err := model.ParseMetricKind(in)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, want)
		}

		_, err := model.ParseMetricKind("slider")
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(model.KindDiscrete.String(), convey.ShouldEqual, "discrete")
	})
}

func TestScoreRecordNewer(t *testing.T) {
	convey.Convey("Given two records for the same metric", t, func() {
		t1 := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
		t2 := t1.Add(time.Hour)

		convey.Convey("When timestamps differ", func() {
			older := model.ScoreRecord{ID: 9, TakenAt: t1, Value: 0}
			newer := model.ScoreRecord{ID: 1, TakenAt: t2, Value: 1}

			convey.Convey("Then the later timestamp wins regardless of id", func() {
				convey.So(newer.Newer(older), convey.ShouldBeTrue)
				convey.So(older.Newer(newer), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When timestamps are equal", func() {
			a := model.ScoreRecord{ID: 4, TakenAt: t1}
			b := model.ScoreRecord{ID: 5, TakenAt: t1}

			convey.Convey("Then the higher id wins", func() {
				convey.So(b.Newer(a), convey.ShouldBeTrue)
				convey.So(a.Newer(b), convey.ShouldBeFalse)
			})
		})
	})
}
