package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/daap14/contractd/internal/api/handler"
	"github.com/daap14/contractd/internal/api/middleware"
	"github.com/daap14/contractd/internal/api/response"
	"github.com/daap14/contractd/internal/blueprint"
	"github.com/daap14/contractd/internal/contract"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	// Pinger is nil for the in-memory store.
	Pinger             handler.StorePinger
	Store              string
	Version            string
	OpenAPISpec        []byte
	Blueprints         *blueprint.Service
	Contracts          *contract.Service
	CORSAllowedOrigins []string
	WriteRateLimit     float64
	WriteRateBurst     int
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	if len(deps.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Route not found", middleware.GetRequestID(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Err(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", middleware.GetRequestID(r.Context()))
	})

	healthHandler := handler.NewHealthHandler(deps.Pinger, deps.Store, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.WriteRateLimit(deps.WriteRateLimit, deps.WriteRateBurst))

		r.Get("/lifecycle", handler.NewLifecycleHandler().ServeHTTP)

		if deps.Blueprints != nil {
			bpHandler := handler.NewBlueprintHandler(deps.Blueprints)
			r.Route("/blueprints", func(r chi.Router) {
				r.Post("/", bpHandler.Create)
				r.Get("/", bpHandler.List)
				r.Get("/{id}", bpHandler.GetByID)
			})
		}

		if deps.Contracts != nil {
			contractHandler := handler.NewContractHandler(deps.Contracts)
			r.Route("/contracts", func(r chi.Router) {
				r.Post("/", contractHandler.Create)
				r.Get("/", contractHandler.List)
				r.Get("/{id}", contractHandler.GetByID)
				r.Put("/{id}/fields", contractHandler.UpdateFields)
				r.Put("/{id}/status", contractHandler.UpdateStatus)
				r.Get("/{id}/next-statuses", contractHandler.NextStatuses)
			})
		}
	})

	return r
}
