package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/lectern-api/internal/api"
	apiMiddleware "github.com/phrazzld/lectern-api/internal/api/middleware"
)

// setupRouter configures all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.verifier, app.logger)
	jobHandler := api.NewJobHandler(app.jobs, app.logger)
	contentHandler := api.NewContentHandler(app.jobs, app.config.Media.UploadDir, app.logger)
	wsHandler := api.NewWSHandler(app.hub, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Authentication is optional: anonymous submissions are
		// supported, a valid token scopes jobs to the user.
		r.Use(authMiddleware.Optional)

		r.Post("/videos/process", jobHandler.ProcessVideo)
		r.Get("/videos", jobHandler.List)
		r.Get("/videos/{id}/status", jobHandler.Status)
		r.Get("/videos/{id}/results", jobHandler.Results)
		r.Get("/videos/{id}/summary", jobHandler.Summary)
		r.Get("/videos/{id}/transcript", jobHandler.Transcript)
		r.Post("/videos/{id}/retry", jobHandler.Retry)
		r.Post("/videos/{id}/cancel", jobHandler.Cancel)
		r.Delete("/videos/{id}", jobHandler.Delete)

		r.Get("/quiz", jobHandler.Quiz)

		r.Post("/content/process", contentHandler.ProcessContent)
		r.Post("/content/upload", contentHandler.UploadContent)
	})

	r.Get("/ws/user/{user_id}", wsHandler.Connect)
	r.Get("/ws/stats", wsHandler.Stats)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
