package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/watchtower/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars(t)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Endpoint, convey.ShouldEqual, "http://127.0.0.1:9080")
				convey.So(cfg.FlushIntervalMS, convey.ShouldEqual, 5000)
				convey.So(cfg.BufferCapacity, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars(t)
			t.Setenv("WATCHTOWER_ENDPOINT", "https://collect.example.test")
			t.Setenv("WATCHTOWER_THROTTLE_MS", "20")
			t.Setenv("WATCHTOWER_BUFFER_CAPACITY", "300")
			t.Setenv("WATCHTOWER_COMPRESS", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Endpoint, convey.ShouldEqual, "https://collect.example.test")
				convey.So(cfg.ThrottleMS, convey.ShouldEqual, 20)
				convey.So(cfg.BufferCapacity, convey.ShouldEqual, 300)
				convey.So(cfg.Compress, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			clearConfigEnvVars(t)
			path := filepath.Join(t.TempDir(), "watchtower.yaml")
			yaml := "endpoint: http://collector:8080\nflush_interval_ms: 1000\npage_url: https://shop.test/cart\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			t.Setenv("WATCHTOWER_CONFIG", path)
			t.Setenv("WATCHTOWER_FLUSH_INTERVAL_MS", "2500")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Endpoint, convey.ShouldEqual, "http://collector:8080")
				convey.So(cfg.PageURL, convey.ShouldEqual, "https://shop.test/cart")
				convey.So(cfg.FlushIntervalMS, convey.ShouldEqual, 2500)
			})
		})

		convey.Convey("When the config file is missing", func() {
			clearConfigEnvVars(t)
			t.Setenv("WATCHTOWER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the environment carries an invalid value", func() {
			clearConfigEnvVars(t)
			t.Setenv("WATCHTOWER_BUFFER_CAPACITY", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// clearConfigEnvVars removes every WATCHTOWER_ variable for the test.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			t.Setenv(key, "") // restores the original value after the test
			_ = os.Unsetenv(key)
		}
	}
}
