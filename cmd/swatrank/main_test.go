package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	service "github.com/okian/swatrank/internal/app"
	"github.com/okian/swatrank/internal/adapters/repository"
	"github.com/okian/swatrank/internal/config"
	"github.com/okian/swatrank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.Modes = config.DefaultModes()

		convey.Convey("When opening the default store", func() {
			store, err := openStore(ctx, cfg)

			convey.Convey("Then an in-memory store should be used", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := store.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(store.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When no redis address is configured", func() {
			pub, closePublisher, err := openPublisher(ctx, cfg)

			convey.Convey("Then publishing should stay off", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pub, convey.ShouldBeNil)
				convey.So(closePublisher, convey.ShouldNotBeNil)
				closePublisher()
			})
		})

		convey.Convey("When building the HTTP handler", func() {
			svc := service.New(service.WithCatalog(cfg.Catalog()))
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			for _, traced := range []bool{false, true} {
				rec := httptest.NewRecorder()
				newHandler(ctx, svc, traced).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/modes/keskin/stages", nil))

				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "keskin-atis-1")
			}
		})

		convey.Convey("When updating metrics", func() {
			svc := service.New(service.WithCatalog(cfg.Catalog()))

			convey.Convey("Then it should not panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})
	})
}
