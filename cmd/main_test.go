package main

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/cyberguardian/internal/adapters/repository"
	"github.com/okian/cyberguardian/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("CG_STORE_DRIVER", "cassandra")
			defer func() { _ = os.Unsetenv("CG_STORE_DRIVER") }()

			err := run(context.Background())

			convey.Convey("Then run refuses to start", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When started and then cancelled", func() {
			_ = os.Setenv("CG_ADDR", "127.0.0.1:0")
			defer func() { _ = os.Unsetenv("CG_ADDR") }()

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then a system metrics update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updater stops with its context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}

func TestWriteTimeout(t *testing.T) {
	convey.Convey("Given the default turn timeout", t, func() {
		turn := 20 * time.Second

		convey.Convey("Then responses outlast three backend calls and a store wait", func() {
			got := writeTimeout(turn)
			convey.So(got, convey.ShouldBeGreaterThan, 3*turn+repository.DefaultBusyTimeout)
			convey.So(got, convey.ShouldEqual, 67*time.Second)
		})
	})
}
