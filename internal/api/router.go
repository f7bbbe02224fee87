package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/imposter/internal/api/handler"
	apimiddleware "github.com/mcoot/imposter/internal/api/middleware"
	"github.com/mcoot/imposter/internal/api/response"
	"github.com/mcoot/imposter/internal/middleware"
	"github.com/mcoot/imposter/internal/services/catalog"
	"github.com/mcoot/imposter/internal/services/session"
	"github.com/mcoot/imposter/internal/web/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Coordinator *session.Coordinator
	Catalog     *catalog.Service
	Registry    *ws.Registry
	WSHandler   http.Handler
	PublicURL   string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	roomHandler := handler.NewRoomHandler(cfg.Coordinator, cfg.PublicURL)
	catalogHandler := handler.NewCatalogHandler(cfg.Catalog)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := apimiddleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler(cfg.Registry)).Methods(http.MethodGet)
	api.HandleFunc("/categories", catalogHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/qr", roomHandler.QR).Methods(http.MethodGet)

	// Websocket endpoint; the logging wrapper passes Hijack through
	if cfg.WSHandler != nil {
		wsRoute := middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler)(loggingMiddleware(cfg.WSHandler))
		r.Handle("/ws", wsRoute).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(registry *ws.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := response.Health{Status: "ok"}
		if registry != nil {
			health.Clients = registry.ClientCount()
		}
		response.JSON(w, http.StatusOK, health)
	}
}
