package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/engage/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.DashboardConcurrency, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ENGAGE_ADDR", ":8080")
			_ = os.Setenv("ENGAGE_STORE_DRIVER", "sqlite")
			_ = os.Setenv("ENGAGE_CLAMP_POLICY", "reject")
			_ = os.Setenv("ENGAGE_TREND_THRESHOLD", "0.1")
			_ = os.Setenv("ENGAGE_DASHBOARD_CONCURRENCY", "2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.ClampPolicy, convey.ShouldEqual, "reject")
				convey.So(cfg.TrendThreshold, convey.ShouldEqual, 0.1)
				convey.So(cfg.DashboardConcurrency, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
# engagement scoring
addr: ":9090"
timezone: "America/New_York"
grade_good: 75
normalization_factors:
  Cross Selling: 0.33
realistic_max:
  Cross Selling: 3
metrics:
  - id: 1
    name: Help Desk Usage
    weight: 5
    max: 1
    high_threshold: 1
  - id: 4
    name: Cross Selling
    weight: 3
    max: 10
    high_threshold: 3
    low_threshold: 1
  - id: 10
    name: Client LifeCycle Phase
    weight: 2
    kind: select
    options:
      - label: Onboard
        value: 1
      - label: Steady
        value: 0
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ENGAGE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Timezone, convey.ShouldEqual, "America/New_York")
				convey.So(cfg.GradeGood, convey.ShouldEqual, 75)
				convey.So(cfg.GradeExcellent, convey.ShouldEqual, 85)
				convey.So(cfg.NormalizationFactors["Cross Selling"], convey.ShouldEqual, 0.33)
				convey.So(cfg.RealisticMax["Cross Selling"], convey.ShouldEqual, 3)
			})

			convey.Convey("Then the seed catalog is parsed", func() {
				metrics, err := cfg.CatalogMetrics()
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(metrics), convey.ShouldEqual, 3)
				convey.So(metrics[1].Max, convey.ShouldEqual, 10)
				convey.So(metrics[2].Options[0].Label, convey.ShouldEqual, "Onboard")
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nlog_level: debug\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ENGAGE_CONFIG", tmpFile)
			_ = os.Setenv("ENGAGE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with an invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ENGAGE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("ENGAGE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("ENGAGE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ENGAGE_DASHBOARD_CONCURRENCY", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the seeded catalog has an unknown kind", func() {
			tmpFile := createTempConfigFile("metrics:\n  - name: Gut Instinct\n    weight: 4\n    kind: slider\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ENGAGE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"ENGAGE_CONFIG",
		"ENGAGE_ADDR",
		"ENGAGE_STORE_DRIVER",
		"ENGAGE_CLAMP_POLICY",
		"ENGAGE_TREND_THRESHOLD",
		"ENGAGE_DASHBOARD_CONCURRENCY",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "engage-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
