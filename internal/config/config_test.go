package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/courtside/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have the engine reference values", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.StalenessWindow(), convey.ShouldEqual, 20*time.Second)
			convey.So(cfg.DebounceWindow(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.DebounceMax, convey.ShouldEqual, 2)
			convey.So(cfg.ExpiryQuarter, convey.ShouldEqual, 4)
			convey.So(cfg.ExpiryClockSeconds(), convey.ShouldEqual, 140)
			convey.So(cfg.SinkTimeout(), convey.ShouldEqual, 5*time.Second)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the worker count is zero", func() {
			cfg.WorkerCount = 0
			err := cfg.Validate()

			convey.Convey("Then it is rejected as invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "worker_count")
			})
		})

		convey.Convey("When the expiry clock is malformed", func() {
			cfg.ExpiryClock = "2:75"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg.ExpiryClockSeconds(), convey.ShouldEqual, 0)
		})

		convey.Convey("When the sweep spec is not a cron expression", func() {
			cfg.SweepSpec = "every five seconds"
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "sweep_spec")
		})

		convey.Convey("When the debounce ceiling is zero", func() {
			cfg.DebounceMax = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
