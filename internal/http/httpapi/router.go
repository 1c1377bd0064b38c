// Package httpapi assembles the chi router for the public API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"productshot/internal/http/handlers"
	"productshot/internal/infra"
	"productshot/internal/middleware"
)

// NewRouter wires routes and middleware around the handler app.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Locale(cfg.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/presets", app.ListPresets)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

		r.Post("/v1/uploads", app.UploadImage)
		r.Post("/v1/renders", app.CreateRender)
		r.Get("/v1/renders/{id}", app.GetRender)
		r.Get("/v1/renders/{id}/assets", app.ListRenderAssets)
		r.Get("/v1/renders/{id}/archive", app.ArchiveRender)
		r.Get("/v1/assets/{id}/download", app.DownloadAsset)
	})

	return r
}
