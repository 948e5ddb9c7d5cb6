package route

import (
	"net/http"

	"platewatch/internal/config"
	"platewatch/internal/handler"
	"platewatch/internal/logger"
	"platewatch/internal/middleware"
	"platewatch/internal/repository"
	"platewatch/internal/service"
	"platewatch/internal/service/websocket"
)

// SetupRoutes registers the API, stream, log and auth endpoints and wraps the
// mux with the authentication middleware.
func SetupRoutes(watcher *service.Watcher, hub *websocket.HubService, cfg *config.Config, logger *logger.Logger,
	sightingRepo repository.SightingRepository, snapshotRepo repository.SnapshotRepository) http.Handler {
	mux := http.NewServeMux()

	// Live view
	mux.HandleFunc("/api/view", handler.DecisionFeedHandler(hub, watcher, logger))
	mux.HandleFunc("/api/frame/latest", handler.LatestFrameHandler(watcher))
	mux.HandleFunc("/api/status", handler.StatusHandler(watcher, logger))
	mux.Handle("/stream", watcher.Restream())

	// Sightings
	mux.HandleFunc("/api/sightings", handler.GetSightingsHandler(cfg, logger, sightingRepo, snapshotRepo))
	mux.HandleFunc("/api/sightings/snapshot", handler.ViewSnapshotHandler(cfg))
	mux.HandleFunc("/api/sightings/clear", handler.ClearSightingsHandler(cfg, logger, sightingRepo, snapshotRepo))

	// Log endpoints
	mux.HandleFunc("/logs/", handler.LogsHandler(cfg, logger))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
