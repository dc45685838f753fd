// Package rest wires the HTTP surface: routing, middleware and the
// request handlers.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"bookgraph/infrastructure/config"
	"bookgraph/interfaces/http/rest/handlers"
	"bookgraph/interfaces/http/rest/middleware"
)

// NewRouter builds the chi router with all middleware and routes
func NewRouter(
	cfg *config.Config,
	dataset *handlers.DatasetHandler,
	graph *handlers.GraphHandler,
	imports *handlers.ImportHandler,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer, logger))

		r.Post("/sync", dataset.Sync)
		r.Get("/restore", dataset.Restore)
		r.Post("/backup", dataset.Backup)
		r.Get("/export", dataset.Export)
		r.Post("/import", dataset.Import)

		r.Post("/sync_graph", graph.SyncGraph)
		r.Get("/restore_graph", graph.RestoreGraph)
		r.Get("/graph", graph.Overview)
		r.Get("/graph/{docID}", graph.View)

		r.Post("/import_gemini_book", imports.ImportGeminiBook)
	})

	return r
}
