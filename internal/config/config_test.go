package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/watchtower/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have the documented defaults", func() {
			convey.So(cfg.Endpoint, convey.ShouldEqual, "http://127.0.0.1:9080")
			convey.So(cfg.Throttle(), convey.ShouldEqual, 50*time.Millisecond)
			convey.So(cfg.FlushInterval(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.BufferCapacity, convey.ShouldEqual, 1000)
			convey.So(cfg.ProbeTimeout(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.BeaconQueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.Compress, convey.ShouldBeFalse)
			convey.So(cfg.CollectorAddr, convey.ShouldEqual, ":9080")
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"relative endpoint", func(c *config.Config) { c.Endpoint = "/collect" }},
			{"non-http endpoint", func(c *config.Config) { c.Endpoint = "ws://host" }},
			{"zero capacity", func(c *config.Config) { c.BufferCapacity = 0 }},
			{"zero flush", func(c *config.Config) { c.FlushIntervalMS = 0 }},
			{"negative throttle", func(c *config.Config) { c.ThrottleMS = -1 }},
			{"negative timeout", func(c *config.Config) { c.ProbeTimeoutMS = -1 }},
		}

		for _, tc := range cases {
			cfg := config.New(context.Background())
			tc.mutate(cfg)

			convey.Convey("Then "+tc.name+" is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a zero throttle and probe timeout", t, func() {
		cfg := config.New(context.Background())
		cfg.ThrottleMS = 0
		cfg.ProbeTimeoutMS = 0

		convey.Convey("Then the config is valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
