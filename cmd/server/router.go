package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/lexis-api/internal/api"
	apiMiddleware "github.com/phrazzld/lexis-api/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	practiceHandler := api.NewPracticeHandler(app.practiceService, api.LanguageDefaults{
		TargetLanguageID:      app.config.Learning.DefaultTargetLanguageID,
		TranslationLanguageID: app.config.Learning.DefaultTranslationLanguageID,
	}, app.logger)
	learnerHandler := api.NewLearnerHandler(app.practiceService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiMiddleware.LearnerIdentity)
		api.RegisterRoutes(r, practiceHandler, learnerHandler)
	})

	r.Handle("/metrics", app.metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", slog.Any("error", err))
		}
	})

	return r
}
