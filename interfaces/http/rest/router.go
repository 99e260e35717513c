package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	commandbus "mindmesh-backend/application/commands/bus"
	querybus "mindmesh-backend/application/queries/bus"
	"mindmesh-backend/infrastructure/config"
	"mindmesh-backend/interfaces/http/rest/handlers"
	"mindmesh-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg        *config.Config
	commandBus *commandbus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	commandBus *commandbus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:        cfg,
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.mindmesh.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg, rt.logger))

		r.Route("/maps/{mapID}", func(r chi.Router) {
			historyHandler := handlers.NewHistoryHandler(rt.commandBus, rt.queryBus, rt.cfg.MaxBodyBytes, rt.logger)
			r.Post("/changes", historyHandler.RecordChange)
			r.Post("/revert", historyHandler.Revert)
			r.Get("/history", historyHandler.GetHistory)
			r.Get("/snapshots/{snapshotID}", historyHandler.GetSnapshot)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
