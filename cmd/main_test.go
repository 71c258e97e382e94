package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/engage/internal/adapters/http/api"
	"github.com/okian/engage/internal/adapters/http/swagger"
	app "github.com/okian/engage/internal/app"
	"github.com/okian/engage/internal/config"
	"github.com/okian/engage/internal/domain/report"
	"github.com/okian/engage/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("ENGAGE_ADDR", ":8080")
			_ = os.Setenv("ENGAGE_DASHBOARD_MOVERS", "5")
			_ = os.Setenv("ENGAGE_CLAMP_POLICY", "reject")
			defer func() {
				_ = os.Unsetenv("ENGAGE_ADDR")
				_ = os.Unsetenv("ENGAGE_DASHBOARD_MOVERS")
				_ = os.Unsetenv("ENGAGE_CLAMP_POLICY")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DashboardMovers, convey.ShouldEqual, 5)
				convey.So(cfg.ClampPolicy, convey.ShouldEqual, "reject")
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("ENGAGE_ADDR", "")
			defer func() { _ = os.Unsetenv("ENGAGE_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})

			convey.Convey("And run keeps the error chain", func() {
				err := run()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldStartWith, "failed to load config: ")
			})
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("When the memory driver is selected", func() {
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			convey.Convey("Then an empty store is returned", func() {
				counts, err := store.Count(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(counts.Records, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the sqlite driver is selected", func() {
			cfg.StoreDriver = "sqlite"
			cfg.StoreDSN = ":memory:"
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			convey.Convey("Then the schema is ready", func() {
				metrics, err := store.FetchMetrics(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(metrics, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application with a seeded catalog", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg := config.New(ctx)
		cfg.DashboardSchedule = ""
		cfg.Metrics = []config.MetricConfig{
			{Name: "Regular Feedback", Weight: 5, Max: 1, HighThreshold: 1},
			{Name: "Cross Selling", Weight: 3, Max: 10, HighThreshold: 7, LowThreshold: 3},
		}
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		seed, err := cfg.CatalogMetrics()
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(
			app.WithStore(store),
			app.WithLocation(cfg.Location()),
			app.WithClampPolicy(cfg.Policy()),
			app.WithCutoffs(cfg.Cutoffs()),
			app.WithSeedMetrics(seed),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		swagger.Register(mux)
		api.NewServer(svc, svc).Register(mux)
		srv := httptest.NewServer(api.RequestIDMiddleware(mux))
		defer srv.Close()

		convey.Convey("When scores are posted and the client summary is read", func() {
			body := `{"records":[
				{"client_id":7,"metric_id":1,"value":1,"taken_at":"2025-01-15T09:00:00Z"},
				{"client_id":7,"metric_id":2,"value":4,"taken_at":"2025-01-15T09:00:00Z"}
			]}`
			resp, err := http.Post(srv.URL+"/scores", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)

			resp, err = http.Get(srv.URL + "/clients/7/summary")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the summary reflects the posted scores", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var sum report.ClientSummary
				convey.So(json.NewDecoder(resp.Body).Decode(&sum), convey.ShouldBeNil)
				convey.So(sum.Current.Total, convey.ShouldEqual, 17)
				convey.So(sum.Display, convey.ShouldEqual, "17.0/35 (48.6%)")
			})
		})

		convey.Convey("When the docs are requested", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then they are served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}
